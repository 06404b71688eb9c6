package http

import (
	"encoding/json"
	"log"
	"net/http"

	"livequiz-service/internal/app"
	"livequiz-service/internal/domain"
	"github.com/gorilla/websocket"
)

// Roles a connection may declare. The host role is trusted by deployment,
// not authenticated.
const (
	RoleHost = "host"
	RoleTeam = "team"
)

type WSHandler struct {
	controller *app.Controller
	upgrader   websocket.Upgrader
}

func NewWSHandler(controller *app.Controller) *WSHandler {
	return &WSHandler{
		controller: controller,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type lockPayload struct {
	Answer string `json:"answer"`
}

type updateScorePayload struct {
	TeamID string `json:"teamId"`
	Delta  int    `json:"delta"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades HTTP requests to websockets and wires them into the quiz
// controller. Clients declare their role via query parameters: the host
// connects with role=host, a team with role=team&teamId=X. Every connection
// receives a state_update with the current snapshot immediately, then the
// controller's event stream.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	role := r.URL.Query().Get("role")
	if role == "" {
		role = RoleTeam
	}
	teamID := r.URL.Query().Get("teamId")
	if role == RoleTeam && teamID == "" {
		http.Error(w, "missing teamId", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	events, cancel := h.controller.Subscribe()
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	eventsDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	go func() {
		defer close(eventsDone)
		for {
			select {
			case ev, ok := <-events:
				if !ok {
					return
				}
				select {
				case send <- outboundFor(ev):
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		h.dispatch(role, teamID, inbound, send)
	}

	close(closeSignals)
	<-eventsDone
	close(send)
	<-writerDone
}

// dispatch routes one inbound command. Commands outside the connection's
// role are dropped without a reply, matching the core's no-op guard policy.
func (h *WSHandler) dispatch(role, teamID string, inbound inboundMessage, send chan<- outboundMessage[any]) {
	if inbound.Type == "lock_answer" {
		if role != RoleTeam {
			return
		}
		var payload lockPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid lock_answer payload"}}
			return
		}
		h.controller.LockAnswer(teamID, payload.Answer)
		return
	}

	if role != RoleHost {
		return
	}

	switch inbound.Type {
	case "start_quiz":
		h.controller.StartQuiz()
	case "restart_quiz":
		h.controller.RestartQuiz()
	case "next_question":
		h.controller.NextQuestion()
	case "prev_question":
		h.controller.PrevQuestion()
	case "reveal_answer":
		h.controller.RevealAnswer()
	case "start_review":
		h.controller.StartReview()
	case "review_next":
		h.controller.ReviewNext()
	case "review_prev":
		h.controller.ReviewPrev()
	case "time_up":
		h.controller.TimeUp()
	case "update_score":
		var payload updateScorePayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid update_score payload"}}
			return
		}
		h.controller.UpdateScore(payload.TeamID, payload.Delta)
	default:
		send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}}
	}
}

func outboundFor(ev domain.Event) outboundMessage[any] {
	switch ev.Type {
	case domain.EventTimerSync:
		return outboundMessage[any]{Type: domain.EventTimerSync, Payload: ev.Seconds}
	case domain.EventToast:
		return outboundMessage[any]{Type: domain.EventToast, Payload: ev.Toast}
	default:
		return outboundMessage[any]{Type: domain.EventStateUpdate, Payload: ev.Snapshot}
	}
}

package domain

import "time"

// Quiz statuses. The controller is the only writer; everything else reads
// these out of snapshots.
const (
	StatusWaiting   = "waiting"
	StatusActive    = "active"
	StatusRevealed  = "revealed"
	StatusFinished  = "finished"
	StatusReviewing = "reviewing"
)

// Question kinds.
const (
	KindMultipleChoice = "multiple-choice"
	KindFreeText       = "free-text"
)

// Toast severities.
const (
	ToastInfo    = "info"
	ToastSuccess = "success"
	ToastError   = "error"
)

// Question is a single entry of the question bank. Ordinal is 1-based and
// immutable once the bank is loaded.
type Question struct {
	Ordinal       int      `json:"questionId"`
	Text          string   `json:"text"`
	Kind          string   `json:"type"`
	Image         string   `json:"questionImage,omitempty"`
	Options       []string `json:"options,omitempty"`
	CorrectAnswer string   `json:"correctAnswer"`
	Justification string   `json:"justification,omitempty"`
}

// Team is one of the fixed roster identities with its running score.
type Team struct {
	ID    string `json:"teamId"`
	Name  string `json:"name"`
	Score int    `json:"score"`
}

// Submission is a team's locked answer for one question. Correct, Points,
// Rank and Skipped are filled exactly once, during reveal.
type Submission struct {
	ID            int64     `json:"id"`
	TeamID        string    `json:"teamId"`
	QuestionIndex int       `json:"questionIndex"`
	Answer        *string   `json:"answer"`
	LockedAt      time.Time `json:"lockedAt"`
	Correct       bool      `json:"isCorrect"`
	Points        int       `json:"pointsAwarded"`
	Rank          int       `json:"order,omitempty"`
	Skipped       bool      `json:"skipped"`
}

// QuizState is the singleton progression state of the running quiz.
type QuizState struct {
	Status            string     `json:"status"`
	CurrentQuestion   int        `json:"currentQuestionIndex"`
	AcceptingAnswers  bool       `json:"acceptingAnswers"`
	QuestionStartTime *time.Time `json:"questionStartTime"`
}

// Snapshot is the full read view handed to the broadcast layer after every
// mutation. RemainingSeconds is non-zero only while a question timer runs.
type Snapshot struct {
	State            QuizState    `json:"state"`
	Question         *Question    `json:"question"`
	Teams            []Team       `json:"teams"`
	Submissions      []Submission `json:"submissions"`
	RemainingSeconds int          `json:"remainingTime"`
}

// Toast is a user-facing informational notice.
type Toast struct {
	Message  string `json:"message"`
	Severity string `json:"type"`
}

// Event kinds emitted to subscribers.
const (
	EventStateUpdate = "state_update"
	EventTimerSync   = "timer_sync"
	EventToast       = "toast"
)

// Event is the outbound unit relayed to every subscriber. Exactly one of
// Snapshot, Seconds, Toast is meaningful depending on Type.
type Event struct {
	Type     string    `json:"type"`
	Snapshot *Snapshot `json:"snapshot,omitempty"`
	Seconds  int       `json:"seconds,omitempty"`
	Toast    *Toast    `json:"toast,omitempty"`
}

package app

import (
	"fmt"
	"sync"
	"time"

	"livequiz-service/internal/domain"
)

// DefaultQuestionTimer is the answering window armed for every activated
// question unless configured otherwise.
const DefaultQuestionTimer = 90 * time.Second

// Controller is the single owner of all quiz progression state: the
// QuizState singleton, the submission log, and the team registry. Every
// command is serialized behind its mutex and runs to completion (including
// scoring) before the next one is processed. Invalid commands degrade to
// silent no-ops so a late or malformed client message can never crash or
// disrupt the shared state; the snapshot already encodes why a command was
// refused.
type Controller struct {
	bank     []domain.Question
	timerDur time.Duration
	now      func() time.Time

	mu          sync.Mutex
	state       domain.QuizState
	teams       *TeamRegistry
	submissions *SubmissionLog
	scored      map[int]bool
	timer       *time.Timer
	timerGen    uint64
	subscribers map[chan domain.Event]struct{}
}

// NewController builds a controller over a loaded question bank and a fixed
// team roster. The bank must be loaded before any command is accepted.
func NewController(bank []domain.Question, roster []domain.Team, timerDur time.Duration) *Controller {
	return NewControllerWithClock(bank, roster, timerDur, time.Now)
}

// NewControllerWithClock allows deterministic timestamps in tests.
func NewControllerWithClock(bank []domain.Question, roster []domain.Team, timerDur time.Duration, now func() time.Time) *Controller {
	if timerDur <= 0 {
		timerDur = DefaultQuestionTimer
	}
	return &Controller{
		bank:     bank,
		timerDur: timerDur,
		now:      now,
		state: domain.QuizState{
			Status:          domain.StatusWaiting,
			CurrentQuestion: -1,
		},
		teams:       NewTeamRegistry(roster),
		submissions: NewSubmissionLog(),
		scored:      make(map[int]bool),
		subscribers: make(map[chan domain.Event]struct{}),
	}
}

// Subscribe returns a channel that receives events for this quiz, primed
// with a state_update of the current snapshot. The caller must invoke the
// returned cancel function to avoid leaks.
func (c *Controller) Subscribe() (<-chan domain.Event, func()) {
	ch := make(chan domain.Event, 16)

	c.mu.Lock()
	c.subscribers[ch] = struct{}{}
	initial := c.snapshotLocked()
	// Prime the fresh channel while still holding the lock so the send
	// cannot interleave with a concurrent broadcast's fallback path.
	ch <- domain.Event{Type: domain.EventStateUpdate, Snapshot: &initial}
	c.mu.Unlock()

	cancel := func() {
		c.mu.Lock()
		if _, ok := c.subscribers[ch]; ok {
			delete(c.subscribers, ch)
			close(ch)
		}
		c.mu.Unlock()
	}
	return ch, cancel
}

// Snapshot returns the current read view without mutating anything.
func (c *Controller) Snapshot() domain.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// StartQuiz resets scores and submissions and activates the first question.
func (c *Controller) StartQuiz() domain.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Status != domain.StatusWaiting && c.state.Status != domain.StatusFinished {
		return c.snapshotLocked()
	}
	if len(c.bank) == 0 {
		return c.snapshotLocked()
	}

	c.teams.ResetScores()
	c.submissions.Clear()
	c.scored = make(map[int]bool)
	c.activateQuestionLocked(0)
	return c.broadcastStateLocked()
}

// RestartQuiz returns the quiz to the waiting lobby from any status,
// zeroing every score and dropping every submission.
func (c *Controller) RestartQuiz() domain.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.teams.ResetScores()
	c.submissions.Clear()
	c.scored = make(map[int]bool)
	c.cancelTimerLocked()
	c.state.Status = domain.StatusWaiting
	c.state.CurrentQuestion = -1
	c.state.AcceptingAnswers = false
	c.state.QuestionStartTime = nil

	snap := c.broadcastStateLocked()
	c.broadcastLocked(domain.Event{Type: domain.EventTimerSync, Seconds: 0})
	c.toastLocked("Quiz Reset to Lobby", domain.ToastInfo)
	return snap
}

// NextQuestion advances from a revealed question to the next one, or to the
// finished status when the bank is exhausted.
func (c *Controller) NextQuestion() domain.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Status != domain.StatusRevealed {
		return c.snapshotLocked()
	}

	next := c.state.CurrentQuestion + 1
	if next >= len(c.bank) {
		c.cancelTimerLocked()
		c.state.Status = domain.StatusFinished
		c.state.AcceptingAnswers = false
		c.state.QuestionStartTime = nil
		snap := c.broadcastStateLocked()
		c.toastLocked("Quiz Complete", domain.ToastInfo)
		return snap
	}

	c.activateQuestionLocked(next)
	return c.broadcastStateLocked()
}

// PrevQuestion steps back to an already-revealed question for re-viewing.
// Submissions stay closed and nothing is re-scored.
func (c *Controller) PrevQuestion() domain.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Status != domain.StatusRevealed || c.state.CurrentQuestion <= 0 {
		return c.snapshotLocked()
	}

	c.cancelTimerLocked()
	c.state.CurrentQuestion--
	c.state.AcceptingAnswers = false
	c.state.QuestionStartTime = nil

	snap := c.broadcastStateLocked()
	c.toastLocked(fmt.Sprintf("Revisiting Question %d", c.state.CurrentQuestion+1), domain.ToastInfo)
	return snap
}

// RevealAnswer closes the active question, backfills a skipped submission
// for every team that never locked, and runs the scoring pipeline exactly
// once for the question.
func (c *Controller) RevealAnswer() domain.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Status != domain.StatusActive {
		return c.snapshotLocked()
	}

	c.cancelTimerLocked()
	c.state.Status = domain.StatusRevealed
	c.state.AcceptingAnswers = false

	index := c.state.CurrentQuestion
	if c.scored[index] {
		// The question was re-activated after a rewind. Its submissions
		// already carry final results and scores were applied once;
		// re-revealing only closes the window again.
		snap := c.broadcastStateLocked()
		c.toastLocked("Answers Revealed!", domain.ToastInfo)
		return snap
	}
	c.scored[index] = true

	now := c.now()
	for _, teamID := range c.teams.IDs() {
		if !c.submissions.Has(index, teamID) {
			c.submissions.AddSkip(teamID, index, now)
		}
	}

	question := c.bank[index]
	scored := c.submissions.ForQuestion(index)
	scoreQuestion(&question, scored)
	for _, sub := range scored {
		c.teams.AddScore(sub.TeamID, sub.Points)
	}

	snap := c.broadcastStateLocked()
	c.toastLocked("Answers Revealed!", domain.ToastInfo)
	return snap
}

// StartReview enters the read-only review traversal from the finished
// status, starting at the first question.
func (c *Controller) StartReview() domain.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Status != domain.StatusFinished {
		return c.snapshotLocked()
	}

	c.state.Status = domain.StatusReviewing
	c.state.CurrentQuestion = 0
	c.state.AcceptingAnswers = false
	c.state.QuestionStartTime = nil
	return c.broadcastStateLocked()
}

// ReviewNext moves the review pointer forward, clamped to the bank.
func (c *Controller) ReviewNext() domain.Snapshot {
	return c.reviewStep(1)
}

// ReviewPrev moves the review pointer backward, clamped to the bank.
func (c *Controller) ReviewPrev() domain.Snapshot {
	return c.reviewStep(-1)
}

func (c *Controller) reviewStep(delta int) domain.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Status != domain.StatusReviewing {
		return c.snapshotLocked()
	}

	next := c.state.CurrentQuestion + delta
	if next < 0 || next >= len(c.bank) {
		return c.snapshotLocked()
	}

	c.state.CurrentQuestion = next
	return c.broadcastStateLocked()
}

// TimeUp is the host's manual end of the answering window. The status stays
// active until the host reveals.
func (c *Controller) TimeUp() domain.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Status != domain.StatusActive {
		return c.snapshotLocked()
	}

	c.cancelTimerLocked()
	c.state.AcceptingAnswers = false
	snap := c.broadcastStateLocked()
	c.broadcastLocked(domain.Event{Type: domain.EventTimerSync, Seconds: 0})
	return snap
}

// LockAnswer records a team's final answer for the current question. The
// first lock wins; repeats, unknown teams, and locks outside the answering
// window are no-ops.
func (c *Controller) LockAnswer(teamID, answer string) domain.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.state.AcceptingAnswers || !c.teams.Has(teamID) {
		return c.snapshotLocked()
	}
	if !c.submissions.Lock(teamID, c.state.CurrentQuestion, answer, c.now()) {
		return c.snapshotLocked()
	}
	return c.broadcastStateLocked()
}

// UpdateScore applies a manual correction to a team's score. Permitted in
// any status; unknown teams are ignored.
func (c *Controller) UpdateScore(teamID string, delta int) domain.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.teams.Has(teamID) {
		return c.snapshotLocked()
	}

	c.teams.AddScore(teamID, delta)
	return c.broadcastStateLocked()
}

// activateQuestionLocked points the quiz at index, opens the answering
// window, and arms a fresh timer for it.
func (c *Controller) activateQuestionLocked(index int) {
	start := c.now()
	c.state.Status = domain.StatusActive
	c.state.CurrentQuestion = index
	c.state.AcceptingAnswers = true
	c.state.QuestionStartTime = &start
	c.armTimerLocked(index)
	c.broadcastLocked(domain.Event{Type: domain.EventTimerSync, Seconds: int(c.timerDur.Seconds())})
}

func (c *Controller) armTimerLocked(index int) {
	c.cancelTimerLocked()
	c.timerGen++
	gen := c.timerGen
	c.timer = time.AfterFunc(c.timerDur, func() {
		c.timerFired(gen, index)
	})
}

func (c *Controller) cancelTimerLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

// timerFired is the one-shot callback for the question timer. The state may
// have moved on while it was pending, so it re-validates at fire time: only
// the latest armed generation, on an active quiz, still accepting, still on
// the index the timer was armed for, gets its answering window closed. The
// generation check catches a callback that was already past Stop and waiting
// on the mutex when a fresh timer for the same index was armed. It never
// changes the status.
func (c *Controller) timerFired(gen uint64, index int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.timerGen || c.state.Status != domain.StatusActive || !c.state.AcceptingAnswers || c.state.CurrentQuestion != index {
		return
	}

	c.timer = nil
	c.state.AcceptingAnswers = false
	c.broadcastStateLocked()
	c.broadcastLocked(domain.Event{Type: domain.EventTimerSync, Seconds: 0})
}

// broadcastStateLocked is the single exit point for mutations: it builds
// the snapshot and fans it out to every subscriber.
func (c *Controller) broadcastStateLocked() domain.Snapshot {
	snap := c.snapshotLocked()
	c.broadcastLocked(domain.Event{Type: domain.EventStateUpdate, Snapshot: &snap})
	return snap
}

func (c *Controller) toastLocked(message, severity string) {
	c.broadcastLocked(domain.Event{
		Type:  domain.EventToast,
		Toast: &domain.Toast{Message: message, Severity: severity},
	})
}

func (c *Controller) broadcastLocked(ev domain.Event) {
	for ch := range c.subscribers {
		select {
		case ch <- ev:
		default:
			// Drop the oldest pending event rather than let a slow
			// subscriber block the mutation path.
			select {
			case <-ch:
			default:
			}
			ch <- ev
		}
	}
}

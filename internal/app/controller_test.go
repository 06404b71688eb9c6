package app_test

import (
	"testing"
	"time"

	"livequiz-service/internal/app"
	"livequiz-service/internal/domain"
)

func testBank() []domain.Question {
	return []domain.Question{
		{
			Ordinal:       1,
			Text:          "What is 2 + 2?",
			Kind:          domain.KindMultipleChoice,
			Options:       []string{"3", "4", "5"},
			CorrectAnswer: "4",
		},
		{
			Ordinal:       2,
			Text:          "Which builder method seals the specification?",
			Kind:          domain.KindFreeText,
			CorrectAnswer: "build()",
		},
	}
}

func testRoster() []domain.Team {
	return []domain.Team{
		{ID: "A", Name: "AttackOnTitans"},
		{ID: "B", Name: "AlgoLooms"},
		{ID: "C", Name: "Moonshine Coders"},
		{ID: "D", Name: "CrossCity Coders"},
	}
}

// newTestController returns a controller on a frozen clock; tests advance
// the returned *time.Time to move time forward.
func newTestController(t *testing.T) (*app.Controller, *time.Time) {
	t.Helper()
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	c := app.NewControllerWithClock(testBank(), testRoster(), 90*time.Second, func() time.Time { return now })
	return c, &now
}

func scoreOf(snap domain.Snapshot, teamID string) int {
	for _, team := range snap.Teams {
		if team.ID == teamID {
			return team.Score
		}
	}
	return -999
}

func submissionOf(snap domain.Snapshot, teamID string) (domain.Submission, bool) {
	for _, sub := range snap.Submissions {
		if sub.TeamID == teamID {
			return sub, true
		}
	}
	return domain.Submission{}, false
}

func TestStartQuizActivatesFirstQuestion(t *testing.T) {
	c, _ := newTestController(t)

	snap := c.StartQuiz()
	if snap.State.Status != domain.StatusActive {
		t.Fatalf("expected active, got %s", snap.State.Status)
	}
	if snap.State.CurrentQuestion != 0 || !snap.State.AcceptingAnswers {
		t.Fatalf("expected question 0 accepting answers, got %+v", snap.State)
	}
	if snap.Question == nil || snap.Question.Ordinal != 1 {
		t.Fatalf("expected question 1 in snapshot, got %+v", snap.Question)
	}
	if snap.RemainingSeconds != 90 {
		t.Fatalf("expected full 90s remaining, got %d", snap.RemainingSeconds)
	}
}

func TestStartQuizRequiresWaitingOrFinished(t *testing.T) {
	c, _ := newTestController(t)
	c.StartQuiz()
	c.LockAnswer("A", "4")

	// start_quiz from active is a no-op and keeps the submission.
	snap := c.StartQuiz()
	if snap.State.Status != domain.StatusActive || len(snap.Submissions) != 1 {
		t.Fatalf("expected start_quiz to be refused mid-question, got %+v", snap.State)
	}
}

func TestLockAnswerFirstWins(t *testing.T) {
	c, _ := newTestController(t)
	c.StartQuiz()

	c.LockAnswer("A", "4")
	snap := c.LockAnswer("A", "5")

	if len(snap.Submissions) != 1 {
		t.Fatalf("expected exactly one submission, got %d", len(snap.Submissions))
	}
	if got := *snap.Submissions[0].Answer; got != "4" {
		t.Fatalf("second lock must be discarded, answer = %q", got)
	}
}

func TestLockAnswerGuards(t *testing.T) {
	c, _ := newTestController(t)

	// Not accepting before start.
	if snap := c.LockAnswer("A", "4"); len(snap.Submissions) != 0 {
		t.Fatalf("lock before start must be ignored")
	}

	c.StartQuiz()

	// Unknown teams never get a submission fabricated.
	if snap := c.LockAnswer("Z", "4"); len(snap.Submissions) != 0 {
		t.Fatalf("unknown team lock must be ignored")
	}

	c.RevealAnswer()
	snap := c.LockAnswer("A", "4")
	if sub, ok := submissionOf(snap, "A"); !ok || !sub.Skipped {
		t.Fatalf("lock after reveal must not replace the skip, got %+v", sub)
	}
}

func TestRevealBackfillsSkipsAndScores(t *testing.T) {
	c, now := newTestController(t)
	c.StartQuiz()

	c.LockAnswer("A", "4")
	*now = now.Add(5 * time.Second)
	c.LockAnswer("C", "3")

	snap := c.RevealAnswer()
	if snap.State.Status != domain.StatusRevealed || snap.State.AcceptingAnswers {
		t.Fatalf("expected revealed and closed, got %+v", snap.State)
	}
	if len(snap.Submissions) != 4 {
		t.Fatalf("expected a submission per team, got %d", len(snap.Submissions))
	}

	for _, id := range []string{"B", "D"} {
		sub, ok := submissionOf(snap, id)
		if !ok || !sub.Skipped || sub.Points != 0 {
			t.Fatalf("team %s: expected skipped with 0 points, got %+v", id, sub)
		}
		if scoreOf(snap, id) != 0 {
			t.Fatalf("team %s: expected score 0", id)
		}
	}

	subA, _ := submissionOf(snap, "A")
	if !subA.Correct || subA.Rank != 1 || subA.Points != 4 {
		t.Fatalf("team A: expected rank 1 / +4, got %+v", subA)
	}
	if scoreOf(snap, "A") != 4 {
		t.Fatalf("team A: expected score 4, got %d", scoreOf(snap, "A"))
	}

	subC, _ := submissionOf(snap, "C")
	if subC.Correct || subC.Points != -1 || scoreOf(snap, "C") != -1 {
		t.Fatalf("team C: expected -1 for wrong answer, got %+v score %d", subC, scoreOf(snap, "C"))
	}
}

func TestRevealIsOncePerQuestion(t *testing.T) {
	c, _ := newTestController(t)
	c.StartQuiz()
	c.LockAnswer("A", "4")
	first := c.RevealAnswer()

	// A second reveal is guard-rejected and must not double-apply points.
	second := c.RevealAnswer()
	if scoreOf(second, "A") != scoreOf(first, "A") {
		t.Fatalf("reveal must not re-score: %d vs %d", scoreOf(second, "A"), scoreOf(first, "A"))
	}
}

func TestRevealAfterRewindDoesNotRescore(t *testing.T) {
	c, _ := newTestController(t)
	c.StartQuiz()
	c.RevealAnswer() // question 0, all skips
	c.NextQuestion()

	c.LockAnswer("A", "build()")
	first := c.RevealAnswer()
	if scoreOf(first, "A") != 4 {
		t.Fatalf("expected 4 points on first reveal, got %d", scoreOf(first, "A"))
	}

	// prev_question rewinds to question 0; next_question re-activates the
	// already-scored question 1 and opens the window again.
	c.PrevQuestion()
	reopened := c.NextQuestion()
	if reopened.State.Status != domain.StatusActive || reopened.State.CurrentQuestion != 1 {
		t.Fatalf("expected question 1 active after rewind, got %+v", reopened.State)
	}

	snap := c.RevealAnswer()
	if scoreOf(snap, "A") != 4 {
		t.Fatalf("revealing a rewound question must not re-apply points: got %d, want 4", scoreOf(snap, "A"))
	}
	subA, _ := submissionOf(snap, "A")
	if !subA.Correct || subA.Points != 4 || subA.Rank != 1 {
		t.Fatalf("submission results are write-once, got %+v", subA)
	}
	if len(snap.Submissions) != 4 {
		t.Fatalf("re-activation must not grow the submission set, got %d", len(snap.Submissions))
	}
}

func TestFreeTextNormalizationOnReveal(t *testing.T) {
	c, _ := newTestController(t)
	c.StartQuiz()
	c.RevealAnswer()
	c.NextQuestion() // free-text question

	c.LockAnswer("B", " Build ( )  ")
	snap := c.RevealAnswer()

	subB, _ := submissionOf(snap, "B")
	if !subB.Correct {
		t.Fatalf("expected lenient free-text match, got %+v", subB)
	}
}

func TestNextQuestionAdvancesAndFinishes(t *testing.T) {
	c, _ := newTestController(t)
	c.StartQuiz()

	// next_question outside revealed is refused.
	if snap := c.NextQuestion(); snap.State.CurrentQuestion != 0 {
		t.Fatalf("next_question while active must be a no-op")
	}

	c.RevealAnswer()
	snap := c.NextQuestion()
	if snap.State.Status != domain.StatusActive || snap.State.CurrentQuestion != 1 {
		t.Fatalf("expected question 1 active, got %+v", snap.State)
	}

	c.RevealAnswer()
	snap = c.NextQuestion()
	if snap.State.Status != domain.StatusFinished || snap.State.AcceptingAnswers {
		t.Fatalf("expected finished after last question, got %+v", snap.State)
	}
}

func TestPrevQuestionIsReadOnlyRewind(t *testing.T) {
	c, _ := newTestController(t)
	c.StartQuiz()
	c.LockAnswer("A", "4")
	c.RevealAnswer()
	c.NextQuestion()
	before := c.RevealAnswer()

	snap := c.PrevQuestion()
	if snap.State.Status != domain.StatusRevealed || snap.State.CurrentQuestion != 0 {
		t.Fatalf("expected revealed on question 0, got %+v", snap.State)
	}
	if snap.State.AcceptingAnswers {
		t.Fatalf("rewind must not reopen submissions")
	}
	for _, team := range testRoster() {
		if scoreOf(snap, team.ID) != scoreOf(before, team.ID) {
			t.Fatalf("rewind must not re-score team %s", team.ID)
		}
	}

	// At index 0 another prev is refused.
	if snap := c.PrevQuestion(); snap.State.CurrentQuestion != 0 {
		t.Fatalf("prev_question at index 0 must be a no-op")
	}
}

func TestReviewTraversal(t *testing.T) {
	c, _ := newTestController(t)

	// start_review only applies to a finished quiz.
	if snap := c.StartReview(); snap.State.Status == domain.StatusReviewing {
		t.Fatalf("review must not start from waiting")
	}

	c.StartQuiz()
	c.RevealAnswer()
	c.NextQuestion()
	c.RevealAnswer()
	c.NextQuestion() // finished

	snap := c.StartReview()
	if snap.State.Status != domain.StatusReviewing || snap.State.CurrentQuestion != 0 {
		t.Fatalf("expected reviewing at question 0, got %+v", snap.State)
	}

	snap = c.ReviewNext()
	if snap.State.CurrentQuestion != 1 {
		t.Fatalf("expected review index 1, got %d", snap.State.CurrentQuestion)
	}
	// Clamped at the end of the bank.
	if snap = c.ReviewNext(); snap.State.CurrentQuestion != 1 {
		t.Fatalf("review must clamp at last question")
	}
	if snap = c.ReviewPrev(); snap.State.CurrentQuestion != 0 {
		t.Fatalf("expected review index 0, got %d", snap.State.CurrentQuestion)
	}
	if snap = c.ReviewPrev(); snap.State.CurrentQuestion != 0 {
		t.Fatalf("review must clamp at first question")
	}
}

func TestRestartQuizResetsEverything(t *testing.T) {
	c, _ := newTestController(t)
	c.StartQuiz()
	c.LockAnswer("A", "4")
	c.RevealAnswer()
	c.UpdateScore("B", 7)

	snap := c.RestartQuiz()
	if snap.State.Status != domain.StatusWaiting || snap.State.CurrentQuestion != -1 {
		t.Fatalf("expected waiting lobby, got %+v", snap.State)
	}
	if snap.State.AcceptingAnswers || snap.State.QuestionStartTime != nil {
		t.Fatalf("expected closed idle state, got %+v", snap.State)
	}
	for _, team := range snap.Teams {
		if team.Score != 0 {
			t.Fatalf("team %s: expected score 0 after restart, got %d", team.ID, team.Score)
		}
	}

	// Submissions from the previous run are gone.
	started := c.StartQuiz()
	if len(started.Submissions) != 0 {
		t.Fatalf("expected no submissions after restart, got %d", len(started.Submissions))
	}
}

func TestUpdateScoreIsManualAndAdditive(t *testing.T) {
	c, _ := newTestController(t)

	snap := c.UpdateScore("A", 5)
	if scoreOf(snap, "A") != 5 {
		t.Fatalf("expected 5, got %d", scoreOf(snap, "A"))
	}
	snap = c.UpdateScore("A", -3)
	if scoreOf(snap, "A") != 2 {
		t.Fatalf("expected 2, got %d", scoreOf(snap, "A"))
	}

	// Unknown teams are never fabricated.
	snap = c.UpdateScore("Z", 10)
	if len(snap.Teams) != 4 {
		t.Fatalf("expected roster unchanged, got %d teams", len(snap.Teams))
	}
}

func TestScoresMayGoNegative(t *testing.T) {
	c, _ := newTestController(t)
	c.StartQuiz()
	c.LockAnswer("A", "3")
	snap := c.RevealAnswer()
	if scoreOf(snap, "A") != -1 {
		t.Fatalf("expected -1, got %d", scoreOf(snap, "A"))
	}
}

func TestRemainingSecondsCountsDown(t *testing.T) {
	c, now := newTestController(t)
	c.StartQuiz()

	*now = now.Add(12 * time.Second)
	snap := c.Snapshot()
	if snap.RemainingSeconds != 78 {
		t.Fatalf("expected 78s remaining, got %d", snap.RemainingSeconds)
	}

	*now = now.Add(10 * time.Minute)
	snap = c.Snapshot()
	if snap.RemainingSeconds != 0 {
		t.Fatalf("expected clamp at 0, got %d", snap.RemainingSeconds)
	}
}

func TestSubscribeReceivesEvents(t *testing.T) {
	c, _ := newTestController(t)
	events, cancel := c.Subscribe()
	defer cancel()

	initial := <-events
	if initial.Type != domain.EventStateUpdate || initial.Snapshot == nil {
		t.Fatalf("expected initial state_update, got %+v", initial)
	}
	if initial.Snapshot.State.Status != domain.StatusWaiting {
		t.Fatalf("expected waiting snapshot, got %s", initial.Snapshot.State.Status)
	}

	c.StartQuiz()

	var stateSeen, timerSeen bool
	for i := 0; i < 3 && !(stateSeen && timerSeen); i++ {
		select {
		case ev := <-events:
			switch ev.Type {
			case domain.EventStateUpdate:
				stateSeen = true
			case domain.EventTimerSync:
				if ev.Seconds != 90 {
					t.Fatalf("expected 90s timer sync, got %d", ev.Seconds)
				}
				timerSeen = true
			}
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for events")
		}
	}
	if !stateSeen || !timerSeen {
		t.Fatalf("expected state_update and timer_sync, got state=%v timer=%v", stateSeen, timerSeen)
	}
}

func TestEndToEndQuizRun(t *testing.T) {
	c, now := newTestController(t)

	c.StartQuiz()
	c.LockAnswer("A", "4")
	*now = now.Add(5 * time.Second)
	c.LockAnswer("B", "3")
	snap := c.RevealAnswer()

	subA, _ := submissionOf(snap, "A")
	if !subA.Correct || subA.Rank != 1 || subA.Points != 4 {
		t.Fatalf("team A: expected rank 1 / +4, got %+v", subA)
	}
	subB, _ := submissionOf(snap, "B")
	if subB.Correct || subB.Points != -1 {
		t.Fatalf("team B: expected -1 wrong answer, got %+v", subB)
	}
	for _, id := range []string{"C", "D"} {
		s, _ := submissionOf(snap, id)
		if !s.Skipped || s.Points != 0 {
			t.Fatalf("team %s: expected skip / 0, got %+v", id, s)
		}
	}

	c.NextQuestion()
	c.RevealAnswer()
	final := c.NextQuestion()
	if final.State.Status != domain.StatusFinished {
		t.Fatalf("expected finished at end of bank, got %s", final.State.Status)
	}
}

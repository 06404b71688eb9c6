package app

import "livequiz-service/internal/domain"

// snapshotLocked assembles the full read view: quiz state, current question
// (nil before start), the identity-sorted roster, the current question's
// submissions, and the remaining whole seconds while the answering window
// is open.
func (c *Controller) snapshotLocked() domain.Snapshot {
	snap := domain.Snapshot{
		State: c.state,
		Teams: c.teams.List(),
	}

	index := c.state.CurrentQuestion
	if index < 0 || index >= len(c.bank) {
		return snap
	}

	question := c.bank[index]
	snap.Question = &question

	for _, sub := range c.submissions.ForQuestion(index) {
		snap.Submissions = append(snap.Submissions, *sub)
	}

	if c.state.Status == domain.StatusActive && c.state.QuestionStartTime != nil && c.timer != nil {
		elapsed := int(c.now().Sub(*c.state.QuestionStartTime).Seconds())
		remaining := int(c.timerDur.Seconds()) - elapsed
		if remaining < 0 {
			remaining = 0
		}
		snap.RemainingSeconds = remaining
	}

	return snap
}

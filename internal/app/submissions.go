package app

import (
	"sort"
	"time"

	"livequiz-service/internal/domain"
)

// SubmissionLog is the append-only record of locked answers, keyed by
// (question index, team). First lock wins; entries are only ever added, and
// the whole log is dropped on quiz start/restart.
type SubmissionLog struct {
	nextID  int64
	byIndex map[int]map[string]*domain.Submission
}

func NewSubmissionLog() *SubmissionLog {
	return &SubmissionLog{byIndex: make(map[int]map[string]*domain.Submission)}
}

// Lock records a team's answer for the question at index. It reports false
// if the team already locked for this question; the duplicate answer is
// discarded.
func (l *SubmissionLog) Lock(teamID string, index int, answer string, at time.Time) bool {
	forIndex := l.byIndex[index]
	if forIndex == nil {
		forIndex = make(map[string]*domain.Submission)
		l.byIndex[index] = forIndex
	}
	if _, ok := forIndex[teamID]; ok {
		return false
	}
	l.nextID++
	a := answer
	forIndex[teamID] = &domain.Submission{
		ID:            l.nextID,
		TeamID:        teamID,
		QuestionIndex: index,
		Answer:        &a,
		LockedAt:      at,
	}
	return true
}

// AddSkip synthesizes a skipped submission for a team that never answered
// before reveal.
func (l *SubmissionLog) AddSkip(teamID string, index int, at time.Time) *domain.Submission {
	forIndex := l.byIndex[index]
	if forIndex == nil {
		forIndex = make(map[string]*domain.Submission)
		l.byIndex[index] = forIndex
	}
	l.nextID++
	sub := &domain.Submission{
		ID:            l.nextID,
		TeamID:        teamID,
		QuestionIndex: index,
		LockedAt:      at,
		Skipped:       true,
	}
	forIndex[teamID] = sub
	return sub
}

// Has reports whether a submission exists for (index, teamID).
func (l *SubmissionLog) Has(index int, teamID string) bool {
	_, ok := l.byIndex[index][teamID]
	return ok
}

// ForQuestion returns the submissions for index ordered by lock time, then
// team identity for determinism within a tie.
func (l *SubmissionLog) ForQuestion(index int) []*domain.Submission {
	forIndex := l.byIndex[index]
	subs := make([]*domain.Submission, 0, len(forIndex))
	for _, sub := range forIndex {
		subs = append(subs, sub)
	}
	sort.Slice(subs, func(i, j int) bool {
		if !subs[i].LockedAt.Equal(subs[j].LockedAt) {
			return subs[i].LockedAt.Before(subs[j].LockedAt)
		}
		return subs[i].TeamID < subs[j].TeamID
	})
	return subs
}

// Clear drops every submission (quiz start/restart).
func (l *SubmissionLog) Clear() {
	l.byIndex = make(map[int]map[string]*domain.Submission)
}

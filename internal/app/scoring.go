package app

import (
	"sort"
	"strings"
	"unicode"

	"livequiz-service/internal/domain"
)

// normalizeFreeText lowercases the answer and strips all whitespace,
// parentheses and periods so minor formatting differences don't penalize a
// correct concept.
func normalizeFreeText(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsSpace(r) || r == '(' || r == ')' || r == '.' {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// answerMatches reports whether answer counts as correct for the question.
// Multiple-choice requires exact equality with the correct option.
func answerMatches(q *domain.Question, answer string) bool {
	if q.Kind == domain.KindFreeText {
		return normalizeFreeText(answer) == normalizeFreeText(q.CorrectAnswer)
	}
	return answer == q.CorrectAnswer
}

// scoreQuestion marks correctness and assigns rank and points to the full
// set of submissions for one question (one entry per team, real or skipped).
// Submissions sharing an identical lock timestamp form a tie group: every
// correct submission in a group claims the same rank, and the rank counter
// advances by the group's correct count, so simultaneous locks are never
// favored by insertion order while speed still matters across distinct
// timestamps. Wrong answers score -1 regardless of timing; skips score 0.
func scoreQuestion(q *domain.Question, subs []*domain.Submission) {
	for _, sub := range subs {
		if !sub.Skipped && sub.Answer != nil {
			sub.Correct = answerMatches(q, *sub.Answer)
		}
	}

	sort.SliceStable(subs, func(i, j int) bool {
		return subs[i].LockedAt.Before(subs[j].LockedAt)
	})

	rank := 1
	for start := 0; start < len(subs); {
		end := start
		for end < len(subs) && subs[end].LockedAt.Equal(subs[start].LockedAt) {
			end++
		}

		correctInGroup := 0
		for _, sub := range subs[start:end] {
			switch {
			case sub.Skipped:
				sub.Points = 0
			case sub.Correct:
				sub.Rank = rank
				sub.Points = pointsForRank(rank)
				correctInGroup++
			default:
				sub.Points = -1
			}
		}

		rank += correctInGroup
		start = end
	}
}

func pointsForRank(rank int) int {
	switch rank {
	case 1:
		return 4
	case 2:
		return 3
	case 3:
		return 2
	default:
		return 1
	}
}

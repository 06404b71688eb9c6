package app

import (
	"sort"

	"livequiz-service/internal/domain"
)

// TeamRegistry holds the fixed roster for the run. Teams are never created or
// destroyed while the process lives; only their scores change. All access is
// serialized by the owning Controller.
type TeamRegistry struct {
	teams map[string]*domain.Team
}

func NewTeamRegistry(roster []domain.Team) *TeamRegistry {
	r := &TeamRegistry{teams: make(map[string]*domain.Team, len(roster))}
	for _, t := range roster {
		t.Score = 0
		team := t
		r.teams[t.ID] = &team
	}
	return r
}

// Has reports whether id belongs to the roster.
func (r *TeamRegistry) Has(id string) bool {
	_, ok := r.teams[id]
	return ok
}

// AddScore adds delta to the team's score. Unknown ids are ignored; the
// registry never fabricates a team.
func (r *TeamRegistry) AddScore(id string, delta int) {
	if team, ok := r.teams[id]; ok {
		team.Score += delta
	}
}

// ResetScores zeroes every team.
func (r *TeamRegistry) ResetScores() {
	for _, team := range r.teams {
		team.Score = 0
	}
}

// IDs returns the roster identities sorted.
func (r *TeamRegistry) IDs() []string {
	ids := make([]string, 0, len(r.teams))
	for id := range r.teams {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// List returns a copy of the roster sorted by identity.
func (r *TeamRegistry) List() []domain.Team {
	out := make([]domain.Team, 0, len(r.teams))
	for _, id := range r.IDs() {
		out = append(out, *r.teams[id])
	}
	return out
}

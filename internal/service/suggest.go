package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/concilia/concilia/internal/database/repository"
)

// MatchCandidate is a scored pairing of one expense and one movement.
type MatchCandidate struct {
	ExpenseID  string
	MovementID string
	Confidence float64
	Breakdown  Breakdown
	DaysApart  int
}

// SuggestionService ranks pending counterparts for an anchor entity. It is
// read-only: no state change, no feedback writes.
type SuggestionService struct {
	Expenses  *repository.ExpenseRepo
	Movements *repository.MovementRepo
	Scorer    *Scorer
}

// Suggest scores every pending candidate against the anchor and returns them
// best first. Candidates below minConfidence are dropped; limit <= 0 means
// no cap. Ordering is deterministic: confidence desc, then day distance,
// then candidate id.
func (s *SuggestionService) Suggest(ctx context.Context, kind repository.EntityKind, anchorID string, minConfidence float64, limit int) ([]MatchCandidate, error) {
	var out []MatchCandidate

	switch kind {
	case repository.KindExpense:
		e, err := s.Expenses.Get(ctx, anchorID)
		if err != nil {
			return nil, err
		}
		if e == nil {
			return nil, fmt.Errorf("expense %s: %w", anchorID, ErrNotFound)
		}
		pool, err := s.Movements.ListPending(ctx, 0)
		if err != nil {
			return nil, err
		}
		for _, m := range pool {
			conf, bd := s.Scorer.Score(*e, m)
			if conf < minConfidence {
				continue
			}
			out = append(out, MatchCandidate{
				ExpenseID:  e.ID,
				MovementID: m.ID,
				Confidence: conf,
				Breakdown:  bd,
				DaysApart:  daysApart(e.Date, m.Date),
			})
		}
		sortCandidates(out, func(c MatchCandidate) string { return c.MovementID })

	case repository.KindMovement:
		m, err := s.Movements.Get(ctx, anchorID)
		if err != nil {
			return nil, err
		}
		if m == nil {
			return nil, fmt.Errorf("movement %s: %w", anchorID, ErrNotFound)
		}
		pool, err := s.Expenses.ListPending(ctx)
		if err != nil {
			return nil, err
		}
		for _, e := range pool {
			conf, bd := s.Scorer.Score(e, *m)
			if conf < minConfidence {
				continue
			}
			out = append(out, MatchCandidate{
				ExpenseID:  e.ID,
				MovementID: m.ID,
				Confidence: conf,
				Breakdown:  bd,
				DaysApart:  daysApart(e.Date, m.Date),
			})
		}
		sortCandidates(out, func(c MatchCandidate) string { return c.ExpenseID })

	default:
		return nil, fmt.Errorf("unknown anchor kind %q: %w", kind, ErrValidation)
	}

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func sortCandidates(cands []MatchCandidate, candidateID func(MatchCandidate) string) {
	sort.Slice(cands, func(i, j int) bool {
		if cands[i].Confidence != cands[j].Confidence {
			return cands[i].Confidence > cands[j].Confidence
		}
		if cands[i].DaysApart != cands[j].DaysApart {
			return cands[i].DaysApart < cands[j].DaysApart
		}
		return candidateID(cands[i]) < candidateID(cands[j])
	})
}

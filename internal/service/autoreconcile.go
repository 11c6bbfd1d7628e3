package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/concilia/concilia/internal/database/repository"
)

// Batch item outcomes.
const (
	OutcomeMatched     = "matched"
	OutcomeSkipped     = "skipped"
	OutcomeNoCandidate = "no_candidate"
)

// RetryPolicy bounds the commit retries after a version conflict.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     time.Duration
}

// BatchItem is the per-movement record of an auto-reconcile run.
type BatchItem struct {
	MovementID string
	ExpenseID  string
	Confidence float64
	Outcome    string
	Reason     string
}

// BatchSummary aggregates one RunBatch call.
type BatchSummary struct {
	Reviewed    int
	Matched     int
	Skipped     int
	NoCandidate int
	Items       []BatchItem
}

// AutoReconciler links pending movements to their best-scoring expense when
// the confidence clears the threshold. Scoring fans out across Workers
// goroutines; commits are applied sequentially in the movements' original
// order so two movements can never claim the same expense.
type AutoReconciler struct {
	Movements   *repository.MovementRepo
	Suggestions *SuggestionService
	Ledger      *Ledger
	Workers     int
	Retry       RetryPolicy
}

// RunBatch reviews up to limit pending movements, oldest first. A movement
// whose best candidate scores below threshold is counted as no_candidate; a
// movement whose commit loses a race or hits a state error is skipped, never
// failed. limit <= 0 means no cap. On cancellation the summary covers only
// the items that completed before the cut.
func (a *AutoReconciler) RunBatch(ctx context.Context, threshold float64, limit int) (BatchSummary, error) {
	if threshold < 0 || threshold > 1 {
		return BatchSummary{}, fmt.Errorf("threshold %v outside [0, 1]: %w", threshold, ErrValidation)
	}

	pending, err := a.Movements.ListPending(ctx, limit)
	if err != nil {
		return BatchSummary{}, err
	}

	var summary BatchSummary
	if len(pending) == 0 {
		return summary, nil
	}

	type scored struct {
		candidate MatchCandidate
		found     bool
		err       error
	}

	workers := a.Workers
	if workers < 1 {
		workers = 1
	}

	// Scoring phase: read-only, safe to parallelize. Results are stored by
	// index so the commit phase sees the original order.
	results := make([]scored, len(pending))
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	for i, m := range pending {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, movementID string) {
			defer wg.Done()
			defer func() { <-sem }()
			cands, err := a.Suggestions.Suggest(ctx, repository.KindMovement, movementID, threshold, 1)
			if err != nil {
				results[i] = scored{err: err}
				return
			}
			if len(cands) == 0 {
				return
			}
			results[i] = scored{candidate: cands[0], found: true}
		}(i, m.ID)
	}
	wg.Wait()

	// Commit phase: sequential, in listing order.
	for i, m := range pending {
		if ctx.Err() != nil {
			return summary, ctx.Err()
		}
		r := results[i]
		item := BatchItem{MovementID: m.ID}

		switch {
		case r.err != nil:
			if errors.Is(r.err, ErrNotFound) || errors.Is(r.err, ErrAlreadyReconciled) {
				item.Outcome = OutcomeSkipped
				item.Reason = r.err.Error()
			} else {
				return summary, r.err
			}
		case !r.found:
			item.Outcome = OutcomeNoCandidate
		default:
			item.ExpenseID = r.candidate.ExpenseID
			item.Confidence = r.candidate.Confidence
			if err := a.commit(ctx, r.candidate.ExpenseID, m.ID); err != nil {
				if isSkippable(err) {
					item.Outcome = OutcomeSkipped
					item.Reason = err.Error()
					// The failed link rolled its feedback back; keep the
					// audit trail complete anyway. Best effort.
					_, _ = a.Ledger.RecordFeedback(ctx, r.candidate.ExpenseID, m.ID, repository.DecisionAutoApplied)
				} else {
					return summary, err
				}
			} else {
				item.Outcome = OutcomeMatched
			}
		}

		switch item.Outcome {
		case OutcomeMatched:
			summary.Matched++
		case OutcomeSkipped:
			summary.Skipped++
		case OutcomeNoCandidate:
			summary.NoCandidate++
		}
		summary.Items = append(summary.Items, item)
		summary.Reviewed++
	}
	return summary, nil
}

// commit applies one link, retrying version conflicts per the policy.
func (a *AutoReconciler) commit(ctx context.Context, expenseID, movementID string) error {
	attempts := a.Retry.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for try := 0; try < attempts; try++ {
		if try > 0 && a.Retry.Backoff > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(a.Retry.Backoff):
			}
		}
		_, err = a.Ledger.link(ctx, expenseID, movementID, repository.DecisionAutoApplied)
		if !errors.Is(err, ErrConcurrentModification) {
			return err
		}
	}
	return err
}

// isSkippable reports whether the batch should record the movement as skipped
// and continue rather than abort the run.
func isSkippable(err error) bool {
	return errors.Is(err, ErrAlreadyReconciled) ||
		errors.Is(err, ErrConcurrentModification) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrValidation)
}

package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/concilia/concilia/internal/database/repository"
)

func newAutoReconciler(f *fixture) *AutoReconciler {
	return &AutoReconciler{
		Movements:   f.movements,
		Suggestions: f.suggestions,
		Ledger:      f.ledger,
		Workers:     4,
		Retry:       RetryPolicy{MaxAttempts: 3, Backoff: 5 * time.Millisecond},
	}
}

func TestRunBatchLinksHighConfidencePairs(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	f := newFixture(t)
	auto := newAutoReconciler(f)

	e := f.addExpense(t, ctx, 50000, day(2025, 1, 15), "Gasolina Pemex")
	m := f.addMovement(t, ctx, -50000, day(2025, 1, 15), "GASOLINERA PEMEX")

	// A stray with nothing close enough.
	f.addMovement(t, ctx, -123456, day(2025, 6, 1), "CARGO SIN PAREJA")

	sum, err := auto.RunBatch(ctx, 0.85, 0)
	require.NoError(t, err)
	require.Equal(t, 2, sum.Reviewed)
	require.Equal(t, 1, sum.Matched)
	require.Equal(t, 1, sum.NoCandidate)
	require.Equal(t, 0, sum.Skipped)
	require.Len(t, sum.Items, 2)

	require.Equal(t, repository.StateReconciled, f.getExpense(t, ctx, e.ID).State)
	require.Equal(t, repository.StateReconciled, f.getMovement(t, ctx, m.ID).State)

	entries, err := f.feedback.ListByPair(ctx, e.ID, m.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, repository.DecisionAutoApplied, entries[0].Decision)
}

func TestRunBatchRespectsThreshold(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	f := newFixture(t)
	auto := newAutoReconciler(f)

	// Same amount but a month apart and unrelated text: decent but not great.
	f.addExpense(t, ctx, 30000, day(2025, 1, 1), "Suscripcion software")
	f.addMovement(t, ctx, -30000, day(2025, 2, 5), "CARGO RECURRENTE")

	sum, err := auto.RunBatch(ctx, 0.85, 0)
	require.NoError(t, err)
	require.Equal(t, 0, sum.Matched)
	require.Equal(t, 1, sum.NoCandidate)
	for _, it := range sum.Items {
		if it.Outcome == OutcomeMatched {
			require.GreaterOrEqual(t, it.Confidence, 0.85)
		}
	}

	_, err = auto.RunBatch(ctx, 1.5, 0)
	require.ErrorIs(t, err, ErrValidation)
	_, err = auto.RunBatch(ctx, -0.1, 0)
	require.ErrorIs(t, err, ErrValidation)
}

func TestRunBatchSkipsContestedExpense(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	f := newFixture(t)
	auto := newAutoReconciler(f)

	// Two near-identical movements chase the single matching expense; only
	// one can win, the other is skipped, and the batch completes.
	e := f.addExpense(t, ctx, 45000, day(2025, 3, 10), "Comida con cliente")
	m1 := f.addMovement(t, ctx, -45000, day(2025, 3, 10), "COMIDA CON CLIENTE")
	m2 := f.addMovement(t, ctx, -45000, day(2025, 3, 10), "COMIDA CON CLIENTE BIS")

	sum, err := auto.RunBatch(ctx, 0.80, 0)
	require.NoError(t, err)
	require.Equal(t, 2, sum.Reviewed)
	require.Equal(t, 1, sum.Matched)
	require.Equal(t, 1, sum.Skipped)

	reconciled := 0
	for _, id := range []string{m1.ID, m2.ID} {
		if f.getMovement(t, ctx, id).State == repository.StateReconciled {
			reconciled++
		}
	}
	require.Equal(t, 1, reconciled)
	require.Equal(t, repository.StateReconciled, f.getExpense(t, ctx, e.ID).State)
}

func TestRunBatchHonorsLimitAndOrder(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	f := newFixture(t)
	auto := newAutoReconciler(f)

	old := f.addMovement(t, ctx, -11100, day(2025, 1, 1), "CARGO VIEJO")
	f.addMovement(t, ctx, -22200, day(2025, 2, 1), "CARGO NUEVO")

	sum, err := auto.RunBatch(ctx, 0.99, 1)
	require.NoError(t, err)
	require.Equal(t, 1, sum.Reviewed)
	require.Len(t, sum.Items, 1)
	require.Equal(t, old.ID, sum.Items[0].MovementID)
}

func TestRunBatchMidCancellationKeepsCommittedLinks(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	auto := newAutoReconciler(f)

	setup, cancelSetup := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelSetup()

	// Distinct amounts so each movement has exactly one qualifying expense.
	const pairs = 30
	movementIDs := make([]string, 0, pairs)
	for i := 0; i < pairs; i++ {
		cents := int64(10000 * (i + 1))
		f.addExpense(t, setup, cents, day(2025, 1, 2), "Cargo mensual")
		m := f.addMovement(t, setup, -cents, day(2025, 1, 2), "CARGO MENSUAL")
		movementIDs = append(movementIDs, m.ID)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Cancel the batch as soon as the first link lands.
	watcherDone := make(chan struct{})
	go func() {
		defer close(watcherDone)
		for {
			var n int
			err := f.db.QueryRowContext(setup,
				`SELECT COUNT(*) FROM bank_movements WHERE reconciliation_state = 'reconciled'`).Scan(&n)
			if err != nil {
				return
			}
			if n > 0 {
				cancel()
				return
			}
			time.Sleep(time.Millisecond)
		}
	}()

	sum, err := auto.RunBatch(ctx, 0.95, 0)
	<-watcherDone
	require.ErrorIs(t, err, context.Canceled)

	// The summary covers completed items only, and at least one link
	// committed before the cancellation landed.
	require.Equal(t, len(sum.Items), sum.Reviewed)
	require.Equal(t, sum.Reviewed, sum.Matched)
	require.GreaterOrEqual(t, sum.Matched, 1)
	require.Less(t, sum.Matched, pairs)

	// Committed links survive; nothing beyond them was started.
	reconciled := 0
	for _, id := range movementIDs {
		if f.getMovement(t, setup, id).State == repository.StateReconciled {
			reconciled++
		}
	}
	require.Equal(t, sum.Matched, reconciled)
}

func TestRunBatchCancellation(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	auto := newAutoReconciler(f)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for i := 0; i < 5; i++ {
		f.addMovement(t, ctx, -10000, day(2025, 1, 1+i), "CARGO")
	}

	done, stop := context.WithCancel(context.Background())
	stop()
	_, err := auto.RunBatch(done, 0.85, 0)
	require.Error(t, err)
	require.ErrorIs(t, err, context.Canceled)
}

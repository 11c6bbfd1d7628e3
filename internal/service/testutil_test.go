package service

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/concilia/concilia/internal/config"
	"github.com/concilia/concilia/internal/database"
	"github.com/concilia/concilia/internal/database/repository"
)

// fixture wires a fresh migrated database and the full service stack.
type fixture struct {
	db        *sql.DB
	expenses  *repository.ExpenseRepo
	movements *repository.MovementRepo
	splits    *repository.SplitRepo
	feedback  *repository.FeedbackRepo

	scorer      *Scorer
	suggestions *SuggestionService
	ledger      *Ledger
	splitter    *SplitManager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	migrations, err := filepath.Abs("../database/migrations")
	require.NoError(t, err)
	require.NoError(t, database.RunMigrations(dbPath, migrations))

	db, err := database.Open(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	f := &fixture{
		db:        db,
		expenses:  repository.NewExpenseRepo(db),
		movements: repository.NewMovementRepo(db),
		splits:    repository.NewSplitRepo(db),
		feedback:  repository.NewFeedbackRepo(db),
	}
	f.scorer = NewScorer(config.Default().Matching)
	f.suggestions = &SuggestionService{Expenses: f.expenses, Movements: f.movements, Scorer: f.scorer}
	f.ledger = &Ledger{DB: db, Expenses: f.expenses, Movements: f.movements, Feedback: f.feedback, Scorer: f.scorer}
	f.splitter = &SplitManager{DB: db, Expenses: f.expenses, Movements: f.movements, Splits: f.splits}
	return f
}

func (f *fixture) addExpense(t *testing.T, ctx context.Context, cents int64, date time.Time, desc string) repository.ExpenseRecord {
	t.Helper()
	e := repository.ExpenseRecord{
		ID:            uuid.NewString(),
		Date:          date,
		AmountCents:   cents,
		Description:   desc,
		PaymentMethod: "credit_card",
		Reconcilable:  true,
		State:         repository.StatePending,
	}
	require.NoError(t, f.expenses.Insert(ctx, e))
	return e
}

func (f *fixture) addMovement(t *testing.T, ctx context.Context, cents int64, date time.Time, desc string) repository.BankMovement {
	t.Helper()
	m := repository.BankMovement{
		ID:              uuid.NewString(),
		Date:            date,
		AmountCents:     cents,
		DescriptionRaw:  desc,
		DescriptionNorm: NormalizeDescription(desc),
		Kind:            repository.MovementCharge,
		AccountClass:    "credit_card",
		State:           repository.StatePending,
	}
	require.NoError(t, f.movements.Insert(ctx, m))
	return m
}

func (f *fixture) getExpense(t *testing.T, ctx context.Context, id string) repository.ExpenseRecord {
	t.Helper()
	e, err := f.expenses.Get(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, e)
	return *e
}

func (f *fixture) getMovement(t *testing.T, ctx context.Context, id string) repository.BankMovement {
	t.Helper()
	m, err := f.movements.Get(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, m)
	return *m
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

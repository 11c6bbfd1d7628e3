package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestResetWipesAllTables(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	f := newFixture(t)
	maint := &MaintenanceService{DB: f.db}

	// Populate every table: a simple link (feedback entry included) and a
	// split group with members.
	e := f.addExpense(t, ctx, 10000, day(2025, 1, 1), "Gasto simple")
	m := f.addMovement(t, ctx, -10000, day(2025, 1, 1), "CARGO SIMPLE")
	_, err := f.ledger.LinkSimple(ctx, e.ID, m.ID)
	require.NoError(t, err)

	anchor := f.addMovement(t, ctx, -30000, day(2025, 1, 2), "CARGO DOBLE")
	a := f.addExpense(t, ctx, 10000, day(2025, 1, 2), "Uno")
	b := f.addExpense(t, ctx, 20000, day(2025, 1, 2), "Dos")
	_, err = f.splitter.CreateOneToMany(ctx, anchor.ID, []SplitMemberInput{
		{EntityID: a.ID, AmountCents: 10000},
		{EntityID: b.ID, AmountCents: 20000},
	}, "tester", "")
	require.NoError(t, err)

	require.NoError(t, maint.Reset(ctx))

	for _, table := range []string{
		"expense_records", "bank_movements", "split_groups", "split_members", "feedback_entries",
	} {
		var n int
		require.NoError(t, f.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n))
		require.Equal(t, 0, n, table)
	}

	// Schema survives: new rows insert cleanly after the wipe.
	f.addExpense(t, ctx, 5000, day(2025, 2, 1), "Gasto nuevo")
	counts, err := f.expenses.CountByState(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, counts["pending"])
}

func TestResetRequiresDB(t *testing.T) {
	t.Parallel()

	maint := &MaintenanceService{}
	require.Error(t, maint.Reset(context.Background()))
}

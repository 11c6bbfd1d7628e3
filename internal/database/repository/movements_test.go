package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func insertMovement(t *testing.T, ctx context.Context, repo *MovementRepo, cents int64, date time.Time, desc string) BankMovement {
	t.Helper()
	m := BankMovement{
		ID:             uuid.NewString(),
		Date:           date,
		AmountCents:    cents,
		DescriptionRaw: desc,
		Kind:           MovementCharge,
		State:          StatePending,
	}
	require.NoError(t, repo.Insert(ctx, m))
	return m
}

func TestMovementListFilters(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	db := newTestDB(t)
	repo := NewMovementRepo(db)

	jan := insertMovement(t, ctx, repo, -10000, time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC), "OXXO REFORMA")
	feb := insertMovement(t, ctx, repo, -20000, time.Date(2025, 2, 5, 0, 0, 0, 0, time.UTC), "PEMEX 5512")
	mar := insertMovement(t, ctx, repo, -30000, time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC), "OXXO CENTRO")

	partner := uuid.NewString()
	require.NoError(t, repo.SetReconciled(ctx, feb.ID, 0, &partner, nil, 20000))

	// Unfiltered: newest first.
	all, err := repo.List(ctx, MovementFilters{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Equal(t, mar.ID, all[0].ID)
	require.Equal(t, jan.ID, all[2].ID)

	// State filter.
	pending, err := repo.List(ctx, MovementFilters{State: StatePending})
	require.NoError(t, err)
	require.Len(t, pending, 2)
	for _, m := range pending {
		require.Equal(t, StatePending, m.State)
	}

	// Search matches the raw description.
	oxxo, err := repo.List(ctx, MovementFilters{Search: "OXXO"})
	require.NoError(t, err)
	require.Len(t, oxxo, 2)

	// Limit caps the newest-first result.
	capped, err := repo.List(ctx, MovementFilters{Limit: 1})
	require.NoError(t, err)
	require.Len(t, capped, 1)
	require.Equal(t, mar.ID, capped[0].ID)
}

func TestMovementListPendingOrderAndLimit(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	db := newTestDB(t)
	repo := NewMovementRepo(db)

	newer := insertMovement(t, ctx, repo, -100, time.Date(2025, 4, 10, 0, 0, 0, 0, time.UTC), "B")
	older := insertMovement(t, ctx, repo, -100, time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC), "A")

	got, err := repo.ListPending(ctx, 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, older.ID, got[0].ID)
	require.Equal(t, newer.ID, got[1].ID)

	one, err := repo.ListPending(ctx, 1)
	require.NoError(t, err)
	require.Len(t, one, 1)
	require.Equal(t, older.ID, one[0].ID)
}

package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRunMigrationsWithDB(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := Open(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	migrations, err := filepath.Abs("migrations")
	require.NoError(t, err)
	require.NoError(t, RunMigrationsWithDB(db, migrations))

	// Schema is in place on the same handle.
	for _, table := range []string{
		"expense_records", "bank_movements", "split_groups", "split_members", "feedback_entries",
	} {
		var n int
		require.NoError(t, db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n), table)
		require.Equal(t, 0, n)
	}

	// Re-running is a no-op, not an error.
	require.NoError(t, RunMigrationsWithDB(db, migrations))
}

func TestNowIsUTCSecondPrecision(t *testing.T) {
	t.Parallel()

	got := Now()
	require.Equal(t, time.UTC, got.Location())
	require.Zero(t, got.Nanosecond())
	require.WithinDuration(t, time.Now().UTC(), got, 2*time.Second)
}

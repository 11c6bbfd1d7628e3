package service

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/concilia/concilia/internal/database"
)

// MaintenanceService performs destructive database upkeep.
type MaintenanceService struct {
	DB *sql.DB
}

// Reset wipes every domain table in one transaction, child tables first so
// foreign keys hold throughout. The schema itself is kept.
func (s *MaintenanceService) Reset(ctx context.Context) error {
	if s.DB == nil {
		return fmt.Errorf("maintenance: db not configured")
	}
	if err := database.WithTx(s.DB, func(tx *sql.Tx) error {
		tables := []string{
			"feedback_entries",
			"split_members",
			"split_groups",
			"bank_movements",
			"expense_records",
		}
		for _, t := range tables {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+t); err != nil {
				return fmt.Errorf("reset table %s: %w", t, err)
			}
		}
		return nil
	}); err != nil {
		return err
	}
	_, _ = s.DB.ExecContext(ctx, "VACUUM")
	return nil
}

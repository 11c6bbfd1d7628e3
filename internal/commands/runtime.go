package commands

import (
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/concilia/concilia/internal/config"
	"github.com/concilia/concilia/internal/database"
	"github.com/concilia/concilia/internal/database/repository"
	"github.com/concilia/concilia/internal/service"
)

// runtime wires configuration, database and services for one command
// invocation.
type runtime struct {
	cfg config.Config
	db  *sql.DB

	expenses  *repository.ExpenseRepo
	movements *repository.MovementRepo
	splits    *repository.SplitRepo
	feedback  *repository.FeedbackRepo

	suggestions *service.SuggestionService
	ledger      *service.Ledger
	splitter    *service.SplitManager
	auto        *service.AutoReconciler
	maintenance *service.MaintenanceService
}

func openRuntime() (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		return nil, err
	}
	if err := database.RunMigrationsWithDB(db, cfg.Database.Migrations); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	rt := &runtime{
		cfg:       cfg,
		db:        db,
		expenses:  repository.NewExpenseRepo(db),
		movements: repository.NewMovementRepo(db),
		splits:    repository.NewSplitRepo(db),
		feedback:  repository.NewFeedbackRepo(db),
	}
	scorer := service.NewScorer(cfg.Matching)
	rt.suggestions = &service.SuggestionService{
		Expenses:  rt.expenses,
		Movements: rt.movements,
		Scorer:    scorer,
	}
	rt.ledger = &service.Ledger{
		DB:        db,
		Expenses:  rt.expenses,
		Movements: rt.movements,
		Feedback:  rt.feedback,
		Scorer:    scorer,
	}
	rt.splitter = &service.SplitManager{
		DB:        db,
		Expenses:  rt.expenses,
		Movements: rt.movements,
		Splits:    rt.splits,
	}
	rt.auto = &service.AutoReconciler{
		Movements:   rt.movements,
		Suggestions: rt.suggestions,
		Ledger:      rt.ledger,
		Workers:     cfg.Auto.Workers,
		Retry: service.RetryPolicy{
			MaxAttempts: cfg.Auto.RetryAttempts,
			Backoff:     cfg.Auto.RetryBackoff,
		},
	}
	rt.maintenance = &service.MaintenanceService{DB: db}
	return rt, nil
}

func (rt *runtime) Close() {
	_ = rt.db.Close()
}

// money renders minor units as a fixed-point currency string.
func money(cents int64) string {
	return service.Cents(cents).StringFixed(2)
}

// parseAmount converts a currency string like "150.00" to minor units.
func parseAmount(s string) (int64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	cents := d.Mul(decimal.NewFromInt(100))
	if !cents.IsInteger() {
		return 0, fmt.Errorf("amount %q has sub-cent precision", s)
	}
	return cents.IntPart(), nil
}

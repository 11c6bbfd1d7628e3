package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/concilia/concilia/internal/database"
	"github.com/concilia/concilia/internal/database/repository"
)

// Ledger owns the reconciliation state machine for simple 1:1 links.
// Permitted transitions: pending -> reconciled (LinkSimple),
// pending -> non_reconcilable (MarkNonReconcilable), and
// reconciled -> pending (Unlink). Everything else is rejected.
//
// Every mutation runs in one sqlite transaction and every state write is a
// version compare-and-swap, so two callers racing on the same entity cannot
// both commit: the loser gets ErrConcurrentModification.
type Ledger struct {
	DB        *sql.DB
	Expenses  *repository.ExpenseRepo
	Movements *repository.MovementRepo
	Feedback  *repository.FeedbackRepo
	Scorer    *Scorer
}

// LinkResult describes a committed 1:1 link.
type LinkResult struct {
	ExpenseID  string
	MovementID string
	Confidence float64
	Breakdown  Breakdown
}

// LinkSimple reconciles one pending expense against one pending movement and
// records an accepted feedback entry in the same transaction.
func (l *Ledger) LinkSimple(ctx context.Context, expenseID, movementID string) (LinkResult, error) {
	return l.link(ctx, expenseID, movementID, repository.DecisionAccepted)
}

func (l *Ledger) link(ctx context.Context, expenseID, movementID string, decision repository.Decision) (LinkResult, error) {
	var out LinkResult
	err := database.WithTx(l.DB, func(tx *sql.Tx) error {
		exps := l.Expenses.WithTx(tx)
		movs := l.Movements.WithTx(tx)
		fb := l.Feedback.WithTx(tx)

		e, err := exps.Get(ctx, expenseID)
		if err != nil {
			return err
		}
		if e == nil {
			return fmt.Errorf("expense %s: %w", expenseID, ErrNotFound)
		}
		m, err := movs.Get(ctx, movementID)
		if err != nil {
			return err
		}
		if m == nil {
			return fmt.Errorf("movement %s: %w", movementID, ErrNotFound)
		}
		if !e.Reconcilable {
			return fmt.Errorf("expense %s is flagged non-reconcilable: %w", e.ID, ErrValidation)
		}
		if e.State != repository.StatePending {
			return fmt.Errorf("expense %s is %s: %w", e.ID, e.State, ErrAlreadyReconciled)
		}
		if m.State != repository.StatePending {
			return fmt.Errorf("movement %s is %s: %w", m.ID, m.State, ErrAlreadyReconciled)
		}

		conf, bd := l.Scorer.Score(*e, *m)

		if err := exps.SetReconciled(ctx, e.ID, e.Version, &m.ID, nil, e.AmountCents); err != nil {
			return staleToConflict(err)
		}
		if err := movs.SetReconciled(ctx, m.ID, m.Version, &e.ID, nil, m.AbsAmountCents()); err != nil {
			return staleToConflict(err)
		}
		if err := fb.Insert(ctx, repository.FeedbackEntry{
			ID:           uuid.NewString(),
			ExpenseID:    e.ID,
			MovementID:   m.ID,
			Confidence:   conf,
			AmountScore:  bd.Amount,
			DateScore:    bd.Date,
			TextScore:    bd.Text,
			PaymentScore: bd.Payment,
			Decision:     decision,
		}); err != nil {
			return err
		}

		out = LinkResult{ExpenseID: e.ID, MovementID: m.ID, Confidence: conf, Breakdown: bd}
		return nil
	})
	return out, err
}

// Unlink reverts a simple 1:1 link back to pending on both sides. Entities
// that belong to a split group are refused; those go through SplitManager.Undo.
func (l *Ledger) Unlink(ctx context.Context, kind repository.EntityKind, id string) error {
	return database.WithTx(l.DB, func(tx *sql.Tx) error {
		exps := l.Expenses.WithTx(tx)
		movs := l.Movements.WithTx(tx)

		var (
			expense  *repository.ExpenseRecord
			movement *repository.BankMovement
		)
		switch kind {
		case repository.KindExpense:
			e, err := exps.Get(ctx, id)
			if err != nil {
				return err
			}
			if e == nil {
				return fmt.Errorf("expense %s: %w", id, ErrNotFound)
			}
			if e.SplitGroupID != nil {
				return fmt.Errorf("expense %s belongs to split %s, undo the split instead: %w", e.ID, *e.SplitGroupID, ErrNotReconciled)
			}
			if e.State != repository.StateReconciled || e.MatchedMovement == nil {
				return fmt.Errorf("expense %s: %w", e.ID, ErrNotReconciled)
			}
			m, err := movs.Get(ctx, *e.MatchedMovement)
			if err != nil {
				return err
			}
			if m == nil {
				return fmt.Errorf("movement %s: %w", *e.MatchedMovement, ErrNotFound)
			}
			expense, movement = e, m
		case repository.KindMovement:
			m, err := movs.Get(ctx, id)
			if err != nil {
				return err
			}
			if m == nil {
				return fmt.Errorf("movement %s: %w", id, ErrNotFound)
			}
			if m.SplitGroupID != nil {
				return fmt.Errorf("movement %s belongs to split %s, undo the split instead: %w", m.ID, *m.SplitGroupID, ErrNotReconciled)
			}
			if m.State != repository.StateReconciled || m.MatchedExpense == nil {
				return fmt.Errorf("movement %s: %w", m.ID, ErrNotReconciled)
			}
			e, err := exps.Get(ctx, *m.MatchedExpense)
			if err != nil {
				return err
			}
			if e == nil {
				return fmt.Errorf("expense %s: %w", *m.MatchedExpense, ErrNotFound)
			}
			expense, movement = e, m
		default:
			return fmt.Errorf("unknown entity kind %q: %w", kind, ErrValidation)
		}

		if err := exps.SetPending(ctx, expense.ID, expense.Version); err != nil {
			return staleToConflict(err)
		}
		if err := movs.SetPending(ctx, movement.ID, movement.Version); err != nil {
			return staleToConflict(err)
		}
		return nil
	})
}

// MarkNonReconcilable excludes a pending expense from matching. The reason
// code is mandatory; movements are unaffected.
func (l *Ledger) MarkNonReconcilable(ctx context.Context, expenseID, reasonCode, reasonText string) error {
	if strings.TrimSpace(reasonCode) == "" {
		return fmt.Errorf("reason code is required: %w", ErrValidation)
	}
	return database.WithTx(l.DB, func(tx *sql.Tx) error {
		exps := l.Expenses.WithTx(tx)
		e, err := exps.Get(ctx, expenseID)
		if err != nil {
			return err
		}
		if e == nil {
			return fmt.Errorf("expense %s: %w", expenseID, ErrNotFound)
		}
		if e.State != repository.StatePending {
			return fmt.Errorf("expense %s is %s: %w", e.ID, e.State, ErrInvalidStateTransition)
		}
		if err := exps.SetNonReconcilable(ctx, e.ID, e.Version, reasonCode, reasonText); err != nil {
			return staleToConflict(err)
		}
		return nil
	})
}

// RecordFeedback stores an explicit operator decision about a pair, scored
// at decision time. State is not touched.
func (l *Ledger) RecordFeedback(ctx context.Context, expenseID, movementID string, decision repository.Decision) (repository.FeedbackEntry, error) {
	switch decision {
	case repository.DecisionAccepted, repository.DecisionRejected, repository.DecisionAutoApplied:
	default:
		return repository.FeedbackEntry{}, fmt.Errorf("unknown decision %q: %w", decision, ErrValidation)
	}
	e, err := l.Expenses.Get(ctx, expenseID)
	if err != nil {
		return repository.FeedbackEntry{}, err
	}
	if e == nil {
		return repository.FeedbackEntry{}, fmt.Errorf("expense %s: %w", expenseID, ErrNotFound)
	}
	m, err := l.Movements.Get(ctx, movementID)
	if err != nil {
		return repository.FeedbackEntry{}, err
	}
	if m == nil {
		return repository.FeedbackEntry{}, fmt.Errorf("movement %s: %w", movementID, ErrNotFound)
	}
	conf, bd := l.Scorer.Score(*e, *m)
	entry := repository.FeedbackEntry{
		ID:           uuid.NewString(),
		ExpenseID:    e.ID,
		MovementID:   m.ID,
		Confidence:   conf,
		AmountScore:  bd.Amount,
		DateScore:    bd.Date,
		TextScore:    bd.Text,
		PaymentScore: bd.Payment,
		Decision:     decision,
	}
	if err := l.Feedback.Insert(ctx, entry); err != nil {
		return repository.FeedbackEntry{}, err
	}
	return entry, nil
}

func staleToConflict(err error) error {
	if errors.Is(err, repository.ErrStaleVersion) {
		return ErrConcurrentModification
	}
	return err
}

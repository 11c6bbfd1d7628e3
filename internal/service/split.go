package service

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/concilia/concilia/internal/database"
	"github.com/concilia/concilia/internal/database/repository"
)

// epsilonCents is the exact-sum tolerance for split allocations: one minor
// unit, i.e. 0.01 of the currency.
const epsilonCents int64 = 1

// SplitMemberInput is one allocation on the "many" side of a split.
type SplitMemberInput struct {
	EntityID      string
	AmountCents   int64
	PaymentNumber int
}

// SplitManager creates and undoes multi-member reconciliations. Every
// operation is one transaction: either the whole group and all member state
// changes land, or nothing does.
type SplitManager struct {
	DB        *sql.DB
	Expenses  *repository.ExpenseRepo
	Movements *repository.MovementRepo
	Splits    *repository.SplitRepo
}

// CreateOneToMany splits one movement across several expenses. The target is
// the movement's absolute amount; member allocations must sum to it within
// epsilonCents.
func (sm *SplitManager) CreateOneToMany(ctx context.Context, movementID string, members []SplitMemberInput, createdBy, notes string) (repository.SplitGroup, error) {
	if err := validateMembers(members); err != nil {
		return repository.SplitGroup{}, err
	}
	var out repository.SplitGroup
	err := database.WithTx(sm.DB, func(tx *sql.Tx) error {
		exps := sm.Expenses.WithTx(tx)
		movs := sm.Movements.WithTx(tx)
		splits := sm.Splits.WithTx(tx)

		m, err := movs.Get(ctx, movementID)
		if err != nil {
			return err
		}
		if m == nil {
			return fmt.Errorf("movement %s: %w", movementID, ErrNotFound)
		}
		if m.State != repository.StatePending {
			return fmt.Errorf("movement %s is %s: %w", m.ID, m.State, ErrAlreadyReconciled)
		}

		target := m.AbsAmountCents()
		if err := checkSum(members, target); err != nil {
			return err
		}

		group := repository.SplitGroup{
			ID:          uuid.NewString(),
			Type:        repository.SplitOneToMany,
			AnchorID:    m.ID,
			AnchorKind:  repository.KindMovement,
			TargetCents: target,
			Complete:    true,
			CreatedBy:   createdBy,
			Notes:       notes,
		}

		for i, in := range members {
			e, err := exps.Get(ctx, in.EntityID)
			if err != nil {
				return err
			}
			if e == nil {
				return fmt.Errorf("expense %s: %w", in.EntityID, ErrNotFound)
			}
			if !e.Reconcilable || e.State != repository.StatePending {
				return fmt.Errorf("expense %s is %s: %w", e.ID, e.State, ErrMemberNotPending)
			}
			if err := exps.SetReconciled(ctx, e.ID, e.Version, nil, &group.ID, in.AmountCents); err != nil {
				return staleToConflict(err)
			}
			group.Members = append(group.Members, repository.SplitMember{
				SplitGroupID:   group.ID,
				Position:       i,
				EntityID:       e.ID,
				EntityKind:     repository.KindExpense,
				AllocatedCents: in.AmountCents,
				Percentage:     percentage(in.AmountCents, target),
				PaymentNumber:  in.PaymentNumber,
			})
		}

		if err := movs.SetReconciled(ctx, m.ID, m.Version, nil, &group.ID, target); err != nil {
			return staleToConflict(err)
		}
		if err := splits.Insert(ctx, group); err != nil {
			return err
		}

		stored, err := splits.Get(ctx, group.ID)
		if err != nil {
			return err
		}
		out = *stored
		return nil
	})
	return out, err
}

// CreateManyToOne covers one expense with several movements, e.g. an invoice
// paid in installments. The target is the expense amount.
func (sm *SplitManager) CreateManyToOne(ctx context.Context, expenseID string, members []SplitMemberInput, createdBy, notes string) (repository.SplitGroup, error) {
	if err := validateMembers(members); err != nil {
		return repository.SplitGroup{}, err
	}
	var out repository.SplitGroup
	err := database.WithTx(sm.DB, func(tx *sql.Tx) error {
		exps := sm.Expenses.WithTx(tx)
		movs := sm.Movements.WithTx(tx)
		splits := sm.Splits.WithTx(tx)

		e, err := exps.Get(ctx, expenseID)
		if err != nil {
			return err
		}
		if e == nil {
			return fmt.Errorf("expense %s: %w", expenseID, ErrNotFound)
		}
		if !e.Reconcilable {
			return fmt.Errorf("expense %s is flagged non-reconcilable: %w", e.ID, ErrValidation)
		}
		if e.State != repository.StatePending {
			return fmt.Errorf("expense %s is %s: %w", e.ID, e.State, ErrAlreadyReconciled)
		}

		target := e.AmountCents
		if err := checkSum(members, target); err != nil {
			return err
		}

		group := repository.SplitGroup{
			ID:          uuid.NewString(),
			Type:        repository.SplitManyToOne,
			AnchorID:    e.ID,
			AnchorKind:  repository.KindExpense,
			TargetCents: target,
			Complete:    true,
			CreatedBy:   createdBy,
			Notes:       notes,
		}

		for i, in := range members {
			m, err := movs.Get(ctx, in.EntityID)
			if err != nil {
				return err
			}
			if m == nil {
				return fmt.Errorf("movement %s: %w", in.EntityID, ErrNotFound)
			}
			if m.State != repository.StatePending {
				return fmt.Errorf("movement %s is %s: %w", m.ID, m.State, ErrMemberNotPending)
			}
			if err := movs.SetReconciled(ctx, m.ID, m.Version, nil, &group.ID, in.AmountCents); err != nil {
				return staleToConflict(err)
			}
			group.Members = append(group.Members, repository.SplitMember{
				SplitGroupID:   group.ID,
				Position:       i,
				EntityID:       m.ID,
				EntityKind:     repository.KindMovement,
				AllocatedCents: in.AmountCents,
				Percentage:     percentage(in.AmountCents, target),
				PaymentNumber:  in.PaymentNumber,
			})
		}

		if err := exps.SetReconciled(ctx, e.ID, e.Version, nil, &group.ID, target); err != nil {
			return staleToConflict(err)
		}
		if err := splits.Insert(ctx, group); err != nil {
			return err
		}

		stored, err := splits.Get(ctx, group.ID)
		if err != nil {
			return err
		}
		out = *stored
		return nil
	})
	return out, err
}

// GetSplit returns the group with its members.
func (sm *SplitManager) GetSplit(ctx context.Context, id string) (repository.SplitGroup, error) {
	g, err := sm.Splits.Get(ctx, id)
	if err != nil {
		return repository.SplitGroup{}, err
	}
	if g == nil {
		return repository.SplitGroup{}, fmt.Errorf("split %s: %w", id, ErrSplitNotFound)
	}
	return *g, nil
}

// Undo reverts the anchor and every member to pending and closes the group.
// The group row is kept for audit. Undoing an already-closed group is a
// no-op, not an error.
func (sm *SplitManager) Undo(ctx context.Context, id string) error {
	return database.WithTx(sm.DB, func(tx *sql.Tx) error {
		exps := sm.Expenses.WithTx(tx)
		movs := sm.Movements.WithTx(tx)
		splits := sm.Splits.WithTx(tx)

		g, err := splits.Get(ctx, id)
		if err != nil {
			return err
		}
		if g == nil {
			return fmt.Errorf("split %s: %w", id, ErrSplitNotFound)
		}
		if g.Closed {
			return nil
		}

		revert := func(kind repository.EntityKind, entityID string) error {
			switch kind {
			case repository.KindExpense:
				e, err := exps.Get(ctx, entityID)
				if err != nil {
					return err
				}
				if e == nil {
					return fmt.Errorf("expense %s: %w", entityID, ErrNotFound)
				}
				return staleToConflict(exps.SetPending(ctx, e.ID, e.Version))
			case repository.KindMovement:
				m, err := movs.Get(ctx, entityID)
				if err != nil {
					return err
				}
				if m == nil {
					return fmt.Errorf("movement %s: %w", entityID, ErrNotFound)
				}
				return staleToConflict(movs.SetPending(ctx, m.ID, m.Version))
			default:
				return fmt.Errorf("unknown entity kind %q: %w", kind, ErrValidation)
			}
		}

		if err := revert(g.AnchorKind, g.AnchorID); err != nil {
			return err
		}
		for _, mem := range g.Members {
			if err := revert(mem.EntityKind, mem.EntityID); err != nil {
				return err
			}
		}
		return staleToConflict(splits.Close(ctx, g.ID))
	})
}

func validateMembers(members []SplitMemberInput) error {
	if len(members) < 2 {
		return fmt.Errorf("a split needs at least two members: %w", ErrValidation)
	}
	seen := make(map[string]bool, len(members))
	for _, m := range members {
		if m.EntityID == "" {
			return fmt.Errorf("member id is required: %w", ErrValidation)
		}
		if seen[m.EntityID] {
			return fmt.Errorf("member %s listed twice: %w", m.EntityID, ErrDuplicateMember)
		}
		seen[m.EntityID] = true
		if m.AmountCents <= 0 {
			return fmt.Errorf("member %s allocation must be positive: %w", m.EntityID, ErrValidation)
		}
	}
	return nil
}

func checkSum(members []SplitMemberInput, target int64) error {
	var sum int64
	for _, m := range members {
		sum += m.AmountCents
	}
	diff := sum - target
	if diff < 0 {
		diff = -diff
	}
	if diff > epsilonCents {
		return &AllocationMismatchError{TargetCents: target, SumCents: sum}
	}
	return nil
}

// percentage is allocated/target in percent, rounded to two decimals for
// display (2500/5000 -> 50.0).
func percentage(allocated, target int64) float64 {
	if target == 0 {
		return 0
	}
	return decimal.NewFromInt(allocated).
		Div(decimal.NewFromInt(target)).
		Mul(decimal.NewFromInt(100)).
		Round(2).
		InexactFloat64()
}

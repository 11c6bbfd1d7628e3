package service

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Sentinel errors for the reconciliation engine. Callers match them with
// errors.Is; the wrapped message carries the offending entity id.
var (
	ErrNotFound               = errors.New("not found")
	ErrValidation             = errors.New("validation failed")
	ErrAlreadyReconciled      = errors.New("already reconciled")
	ErrNotReconciled          = errors.New("no active simple link")
	ErrInvalidStateTransition = errors.New("invalid state transition")
	ErrConcurrentModification = errors.New("concurrent modification")
	ErrSplitNotFound          = errors.New("split group not found")
	ErrDuplicateMember        = errors.New("duplicate split member")
	ErrMemberNotPending       = errors.New("split member not pending")
)

// AllocationMismatchError reports a split whose member sum differs from the
// anchor target by more than the tolerance. The delta is kept so the caller
// can show the exact shortfall or excess.
type AllocationMismatchError struct {
	TargetCents int64
	SumCents    int64
}

// DeltaCents is positive when the members over-allocate, negative when they
// fall short.
func (e *AllocationMismatchError) DeltaCents() int64 { return e.SumCents - e.TargetCents }

func (e *AllocationMismatchError) Error() string {
	return fmt.Sprintf("allocation mismatch: members sum to %s, target is %s (delta %s)",
		Cents(e.SumCents).StringFixed(2), Cents(e.TargetCents).StringFixed(2),
		Cents(e.DeltaCents()).StringFixed(2))
}

// Cents converts minor units to a decimal currency amount for display.
func Cents(c int64) decimal.Decimal { return decimal.New(c, -2) }

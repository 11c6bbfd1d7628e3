package repository

import "time"

// ReconciliationState is the lifecycle state of an expense or movement.
type ReconciliationState string

const (
	StatePending             ReconciliationState = "pending"
	StateReconciled          ReconciliationState = "reconciled"
	StatePartiallyReconciled ReconciliationState = "partially_reconciled"
	StateNonReconcilable     ReconciliationState = "non_reconcilable"
)

// EntityKind distinguishes the two sides of a reconciliation.
type EntityKind string

const (
	KindExpense  EntityKind = "expense"
	KindMovement EntityKind = "movement"
)

// SplitType is the shape of a split group.
type SplitType string

const (
	SplitOneToMany SplitType = "one_to_many"
	SplitManyToOne SplitType = "many_to_one"
)

// Decision records how a match candidate was resolved.
type Decision string

const (
	DecisionAccepted    Decision = "accepted"
	DecisionRejected    Decision = "rejected"
	DecisionAutoApplied Decision = "auto_applied"
)

// MovementCharge and MovementCredit are the two movement kinds.
const (
	MovementCharge = "charge"
	MovementCredit = "credit"
)

// ExpenseRecord represents an expense row. Amounts are minor units (cents).
type ExpenseRecord struct {
	ID              string
	Date            time.Time
	AmountCents     int64
	Description     string
	Provider        *string
	PaymentMethod   string // account class hint; empty = unknown
	Reconcilable    bool
	State           ReconciliationState
	MatchedMovement *string
	SplitGroupID    *string
	ReconciledCents int64
	ExclusionCode   *string
	ExclusionNote   *string
	Version         int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// PendingCents is the amount not yet covered by any link or split.
func (e ExpenseRecord) PendingCents() int64 {
	return e.AmountCents - e.ReconciledCents
}

// BankMovement represents a bank statement line. AmountCents is signed;
// negative means a charge.
type BankMovement struct {
	ID              string
	Date            time.Time
	AmountCents     int64
	DescriptionRaw  string
	DescriptionNorm string
	Kind            string // "charge" or "credit"
	AccountClass    string // empty = unknown
	State           ReconciliationState
	MatchedExpense  *string
	SplitGroupID    *string
	AllocatedCents  int64
	Version         int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// AbsAmountCents is the magnitude of the movement regardless of direction.
func (m BankMovement) AbsAmountCents() int64 {
	if m.AmountCents < 0 {
		return -m.AmountCents
	}
	return m.AmountCents
}

// UnallocatedCents is the amount not yet consumed by a link or split.
func (m BankMovement) UnallocatedCents() int64 {
	return m.AbsAmountCents() - m.AllocatedCents
}

// SplitGroup is an atomic multi-member reconciliation. The anchor is the
// "one" side; members are the "many" side and their allocations sum to
// TargetCents.
type SplitGroup struct {
	ID          string
	Type        SplitType
	AnchorID    string
	AnchorKind  EntityKind
	TargetCents int64
	Complete    bool
	Closed      bool
	CreatedBy   string
	Notes       string
	CreatedAt   time.Time
	ClosedAt    *time.Time
	Members     []SplitMember
}

// SplitMember is one row of the "many" side of a split group.
type SplitMember struct {
	SplitGroupID   string
	Position       int
	EntityID       string
	EntityKind     EntityKind
	AllocatedCents int64
	Percentage     float64
	PaymentNumber  int
}

// FeedbackEntry is an append-only record of a reconciliation decision.
type FeedbackEntry struct {
	ID           string
	ExpenseID    string
	MovementID   string
	Confidence   float64
	AmountScore  float64
	DateScore    float64
	TextScore    float64
	PaymentScore float64
	Decision     Decision
	DecidedAt    time.Time
}

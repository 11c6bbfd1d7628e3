package repository

import (
	"context"
	"database/sql"
	"strings"
)

const movementColumns = `id, date, amount_cents, description_raw, description_norm,
 movement_kind, account_class, reconciliation_state, matched_expense_id,
 split_group_id, allocated_cents, version, created_at, updated_at`

// MovementFilters defines list filters.
type MovementFilters struct {
	State  ReconciliationState
	Search string
	Limit  int
}

// MovementRepo handles bank movements.
type MovementRepo struct {
	db Querier
}

func NewMovementRepo(db Querier) *MovementRepo { return &MovementRepo{db: db} }

// WithTx returns a copy of the repo bound to tx.
func (r *MovementRepo) WithTx(tx *sql.Tx) *MovementRepo { return &MovementRepo{db: tx} }

func (r *MovementRepo) Insert(ctx context.Context, m BankMovement) error {
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO bank_movements(
	 id, date, amount_cents, description_raw, description_norm, movement_kind,
	 account_class, reconciliation_state, matched_expense_id, split_group_id,
	 allocated_cents, version, created_at, updated_at)
	VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP);
	`,
		m.ID, m.Date, m.AmountCents, m.DescriptionRaw, m.DescriptionNorm, m.Kind,
		m.AccountClass, m.State, m.MatchedExpense, m.SplitGroupID, m.AllocatedCents)
	return err
}

// Get returns the movement or nil when the id is unknown.
func (r *MovementRepo) Get(ctx context.Context, id string) (*BankMovement, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+movementColumns+` FROM bank_movements WHERE id = ?`, id)
	m, err := scanMovement(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

// ListPending returns pending movements oldest first, id as a stable
// tie-break. limit <= 0 means no cap.
func (r *MovementRepo) ListPending(ctx context.Context, limit int) ([]BankMovement, error) {
	query := `SELECT ` + movementColumns + ` FROM bank_movements
	 WHERE reconciliation_state = ?
	 ORDER BY date ASC, id ASC`
	args := []any{StatePending}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectMovements(rows)
}

func (r *MovementRepo) List(ctx context.Context, f MovementFilters) ([]BankMovement, error) {
	var where []string
	var args []any
	if f.State != "" {
		where = append(where, "reconciliation_state = ?")
		args = append(args, f.State)
	}
	if f.Search != "" {
		where = append(where, "(description_raw LIKE ? OR description_norm LIKE ?)")
		args = append(args, "%"+f.Search+"%", "%"+f.Search+"%")
	}
	query := `SELECT ` + movementColumns + ` FROM bank_movements`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY date DESC, id ASC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectMovements(rows)
}

func (r *MovementRepo) CountByState(ctx context.Context) (map[ReconciliationState]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT reconciliation_state, COUNT(*) FROM bank_movements GROUP BY reconciliation_state`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[ReconciliationState]int{}
	for rows.Next() {
		var s ReconciliationState
		var n int
		if err := rows.Scan(&s, &n); err != nil {
			return nil, err
		}
		out[s] = n
	}
	return out, rows.Err()
}

// SetReconciled moves a pending movement to reconciled via compare-and-swap
// on (id, version, pending).
func (r *MovementRepo) SetReconciled(ctx context.Context, id string, version int64, matchedExpense, splitGroupID *string, allocatedCents int64) error {
	res, err := r.db.ExecContext(ctx, `
	UPDATE bank_movements
	 SET reconciliation_state = ?, matched_expense_id = ?, split_group_id = ?,
	     allocated_cents = ?, version = version + 1, updated_at = CURRENT_TIMESTAMP
	 WHERE id = ? AND version = ? AND reconciliation_state = ?`,
		StateReconciled, matchedExpense, splitGroupID, allocatedCents,
		id, version, StatePending)
	return casResult(res, err)
}

// SetPending reverts a movement to pending and clears allocation fields.
func (r *MovementRepo) SetPending(ctx context.Context, id string, version int64) error {
	res, err := r.db.ExecContext(ctx, `
	UPDATE bank_movements
	 SET reconciliation_state = ?, matched_expense_id = NULL, split_group_id = NULL,
	     allocated_cents = 0, version = version + 1, updated_at = CURRENT_TIMESTAMP
	 WHERE id = ? AND version = ?`,
		StatePending, id, version)
	return casResult(res, err)
}

func scanMovement(row rowScanner) (BankMovement, error) {
	var m BankMovement
	err := row.Scan(&m.ID, &m.Date, &m.AmountCents, &m.DescriptionRaw,
		&m.DescriptionNorm, &m.Kind, &m.AccountClass, &m.State,
		&m.MatchedExpense, &m.SplitGroupID, &m.AllocatedCents,
		&m.Version, &m.CreatedAt, &m.UpdatedAt)
	return m, err
}

func collectMovements(rows *sql.Rows) ([]BankMovement, error) {
	var out []BankMovement
	for rows.Next() {
		m, err := scanMovement(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

package repository

import (
	"context"
	"database/sql"
	"strings"
)

const expenseColumns = `id, date, amount_cents, description, provider, payment_method,
 reconcilable, reconciliation_state, matched_movement_id, split_group_id,
 reconciled_cents, exclusion_code, exclusion_note, version, created_at, updated_at`

// ExpenseFilters defines list filters.
type ExpenseFilters struct {
	State  ReconciliationState
	Search string
	Limit  int
}

// ExpenseRepo handles expense records.
type ExpenseRepo struct {
	db Querier
}

func NewExpenseRepo(db Querier) *ExpenseRepo { return &ExpenseRepo{db: db} }

// WithTx returns a copy of the repo bound to tx.
func (r *ExpenseRepo) WithTx(tx *sql.Tx) *ExpenseRepo { return &ExpenseRepo{db: tx} }

func (r *ExpenseRepo) Insert(ctx context.Context, e ExpenseRecord) error {
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO expense_records(
	 id, date, amount_cents, description, provider, payment_method, reconcilable,
	 reconciliation_state, matched_movement_id, split_group_id, reconciled_cents,
	 exclusion_code, exclusion_note, version, created_at, updated_at)
	VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP);
	`,
		e.ID, e.Date, e.AmountCents, e.Description, e.Provider, e.PaymentMethod,
		e.Reconcilable, e.State, e.MatchedMovement, e.SplitGroupID, e.ReconciledCents,
		e.ExclusionCode, e.ExclusionNote)
	return err
}

// Get returns the expense or nil when the id is unknown.
func (r *ExpenseRepo) Get(ctx context.Context, id string) (*ExpenseRecord, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+expenseColumns+` FROM expense_records WHERE id = ?`, id)
	e, err := scanExpense(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &e, nil
}

// ListPending returns reconcilable pending expenses, oldest first with id as
// a stable tie-break.
func (r *ExpenseRepo) ListPending(ctx context.Context) ([]ExpenseRecord, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+expenseColumns+` FROM expense_records
	 WHERE reconciliation_state = ? AND reconcilable = 1
	 ORDER BY date ASC, id ASC`, StatePending)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectExpenses(rows)
}

func (r *ExpenseRepo) List(ctx context.Context, f ExpenseFilters) ([]ExpenseRecord, error) {
	var where []string
	var args []any
	if f.State != "" {
		where = append(where, "reconciliation_state = ?")
		args = append(args, f.State)
	}
	if f.Search != "" {
		where = append(where, "description LIKE ?")
		args = append(args, "%"+f.Search+"%")
	}
	query := `SELECT ` + expenseColumns + ` FROM expense_records`
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
	return collectExpenses(rows)
}

func (r *ExpenseRepo) CountByState(ctx context.Context) (map[ReconciliationState]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT reconciliation_state, COUNT(*) FROM expense_records GROUP BY reconciliation_state`)
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

// SetReconciled moves a pending expense to reconciled. The update is a
// compare-and-swap on (id, version, pending); ErrStaleVersion means another
// writer got there first.
func (r *ExpenseRepo) SetReconciled(ctx context.Context, id string, version int64, matchedMovement, splitGroupID *string, reconciledCents int64) error {
	res, err := r.db.ExecContext(ctx, `
	UPDATE expense_records
	 SET reconciliation_state = ?, matched_movement_id = ?, split_group_id = ?,
	     reconciled_cents = ?, version = version + 1, updated_at = CURRENT_TIMESTAMP
	 WHERE id = ? AND version = ? AND reconciliation_state = ?`,
		StateReconciled, matchedMovement, splitGroupID, reconciledCents,
		id, version, StatePending)
	return casResult(res, err)
}

// SetPending reverts an expense to pending and clears all reconciliation
// fields (unlink and split undo).
func (r *ExpenseRepo) SetPending(ctx context.Context, id string, version int64) error {
	res, err := r.db.ExecContext(ctx, `
	UPDATE expense_records
	 SET reconciliation_state = ?, matched_movement_id = NULL, split_group_id = NULL,
	     reconciled_cents = 0, exclusion_code = NULL, exclusion_note = NULL,
	     version = version + 1, updated_at = CURRENT_TIMESTAMP
	 WHERE id = ? AND version = ?`,
		StatePending, id, version)
	return casResult(res, err)
}

// SetNonReconcilable excludes a pending expense from matching with a reason.
func (r *ExpenseRepo) SetNonReconcilable(ctx context.Context, id string, version int64, code, note string) error {
	res, err := r.db.ExecContext(ctx, `
	UPDATE expense_records
	 SET reconciliation_state = ?, exclusion_code = ?, exclusion_note = ?,
	     version = version + 1, updated_at = CURRENT_TIMESTAMP
	 WHERE id = ? AND version = ? AND reconciliation_state = ?`,
		StateNonReconcilable, code, note, id, version, StatePending)
	return casResult(res, err)
}

func casResult(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrStaleVersion
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExpense(row rowScanner) (ExpenseRecord, error) {
	var e ExpenseRecord
	err := row.Scan(&e.ID, &e.Date, &e.AmountCents, &e.Description, &e.Provider,
		&e.PaymentMethod, &e.Reconcilable, &e.State, &e.MatchedMovement,
		&e.SplitGroupID, &e.ReconciledCents, &e.ExclusionCode, &e.ExclusionNote,
		&e.Version, &e.CreatedAt, &e.UpdatedAt)
	return e, err
}

func collectExpenses(rows *sql.Rows) ([]ExpenseRecord, error) {
	var out []ExpenseRecord
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

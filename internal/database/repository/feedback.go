package repository

import (
	"context"
	"database/sql"
)

const feedbackColumns = `id, expense_id, movement_id, confidence, amount_score,
 date_score, text_score, payment_score, decision, decided_at`

// FeedbackRepo handles the append-only decision trail. Entries are never
// updated or deleted.
type FeedbackRepo struct {
	db Querier
}

func NewFeedbackRepo(db Querier) *FeedbackRepo { return &FeedbackRepo{db: db} }

// WithTx returns a copy of the repo bound to tx.
func (r *FeedbackRepo) WithTx(tx *sql.Tx) *FeedbackRepo { return &FeedbackRepo{db: tx} }

func (r *FeedbackRepo) Insert(ctx context.Context, f FeedbackEntry) error {
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO feedback_entries(
	 id, expense_id, movement_id, confidence, amount_score, date_score,
	 text_score, payment_score, decision, decided_at)
	VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP);
	`, f.ID, f.ExpenseID, f.MovementID, f.Confidence, f.AmountScore, f.DateScore,
		f.TextScore, f.PaymentScore, f.Decision)
	return err
}

// ListByPair returns all decisions recorded for an (expense, movement) pair,
// oldest first.
func (r *FeedbackRepo) ListByPair(ctx context.Context, expenseID, movementID string) ([]FeedbackEntry, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+feedbackColumns+` FROM feedback_entries
	 WHERE expense_id = ? AND movement_id = ? ORDER BY decided_at ASC, id ASC`,
		expenseID, movementID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectFeedback(rows)
}

// List returns the most recent entries. limit <= 0 means no cap.
func (r *FeedbackRepo) List(ctx context.Context, limit int) ([]FeedbackEntry, error) {
	query := `SELECT ` + feedbackColumns + ` FROM feedback_entries ORDER BY decided_at DESC, id ASC`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectFeedback(rows)
}

func collectFeedback(rows *sql.Rows) ([]FeedbackEntry, error) {
	var out []FeedbackEntry
	for rows.Next() {
		var f FeedbackEntry
		if err := rows.Scan(&f.ID, &f.ExpenseID, &f.MovementID, &f.Confidence,
			&f.AmountScore, &f.DateScore, &f.TextScore, &f.PaymentScore,
			&f.Decision, &f.DecidedAt); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

package repository

import (
	"context"
	"database/sql"
)

// SplitRepo handles split groups and their members.
type SplitRepo struct {
	db Querier
}

func NewSplitRepo(db Querier) *SplitRepo { return &SplitRepo{db: db} }

// WithTx returns a copy of the repo bound to tx.
func (r *SplitRepo) WithTx(tx *sql.Tx) *SplitRepo { return &SplitRepo{db: tx} }

// Insert stores the group row and all member rows.
func (r *SplitRepo) Insert(ctx context.Context, g SplitGroup) error {
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO split_groups(
	 id, split_type, anchor_id, anchor_kind, target_cents, is_complete, closed,
	 created_by, notes, created_at)
	VALUES(?, ?, ?, ?, ?, ?, 0, ?, ?, CURRENT_TIMESTAMP);
	`, g.ID, g.Type, g.AnchorID, g.AnchorKind, g.TargetCents, g.Complete, g.CreatedBy, g.Notes)
	if err != nil {
		return err
	}
	for _, m := range g.Members {
		_, err := r.db.ExecContext(ctx, `
		INSERT INTO split_members(
		 split_group_id, position, entity_id, entity_kind, allocated_cents,
		 percentage, payment_number)
		VALUES(?, ?, ?, ?, ?, ?, ?);
		`, g.ID, m.Position, m.EntityID, m.EntityKind, m.AllocatedCents, m.Percentage, m.PaymentNumber)
		if err != nil {
			return err
		}
	}
	return nil
}

// Get returns the group with members ordered by position, or nil when the
// id is unknown.
func (r *SplitRepo) Get(ctx context.Context, id string) (*SplitGroup, error) {
	row := r.db.QueryRowContext(ctx, `
	SELECT id, split_type, anchor_id, anchor_kind, target_cents, is_complete,
	 closed, created_by, notes, created_at, closed_at
	FROM split_groups WHERE id = ?`, id)
	var g SplitGroup
	err := row.Scan(&g.ID, &g.Type, &g.AnchorID, &g.AnchorKind, &g.TargetCents,
		&g.Complete, &g.Closed, &g.CreatedBy, &g.Notes, &g.CreatedAt, &g.ClosedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, `
	SELECT split_group_id, position, entity_id, entity_kind, allocated_cents,
	 percentage, payment_number
	FROM split_members WHERE split_group_id = ? ORDER BY position ASC`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var m SplitMember
		if err := rows.Scan(&m.SplitGroupID, &m.Position, &m.EntityID, &m.EntityKind,
			&m.AllocatedCents, &m.Percentage, &m.PaymentNumber); err != nil {
			return nil, err
		}
		g.Members = append(g.Members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &g, nil
}

// Close marks a group logically undone. The row and its members are kept
// for audit; a closed group id is never reused.
func (r *SplitRepo) Close(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `
	UPDATE split_groups SET closed = 1, closed_at = CURRENT_TIMESTAMP
	 WHERE id = ? AND closed = 0`, id)
	return casResult(res, err)
}

package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/ambulance-fleet-api/internal/model"
)

// RestoreCodeRepo stores password restore codes.
type RestoreCodeRepo struct{ DB *sql.DB }

func NewRestoreCodeRepo(db *sql.DB) *RestoreCodeRepo { return &RestoreCodeRepo{DB: db} }

// Replace deletes every pending code of the user and stores c, so only the
// most recent email works.
func (r *RestoreCodeRepo) Replace(ctx context.Context, c model.RestoreCode) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if _, err := tx.ExecContext(ctx, "DELETE FROM restore_codes WHERE user_id=?", c.UserID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO restore_codes (id, user_id, valid_until, created_at) VALUES (?,?,?,?)",
		c.ID, c.UserID, c.ValidUntil, c.CreatedAt); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

func (r *RestoreCodeRepo) Get(ctx context.Context, id string) (model.RestoreCode, error) {
	var c model.RestoreCode
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, user_id, valid_until, created_at FROM restore_codes WHERE id=? LIMIT 1", id).
		Scan(&c.ID, &c.UserID, &c.ValidUntil, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.RestoreCode{}, ErrNotFound
	}
	return c, err
}

// Claim deletes the code and reports ErrNotFound unless this call was the
// one that removed it. A code can therefore be spent once.
func (r *RestoreCodeRepo) Claim(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM restore_codes WHERE id=?", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n != 1 {
		return ErrNotFound
	}
	return nil
}

// DeleteForUser removes all codes of a user.
func (r *RestoreCodeRepo) DeleteForUser(ctx context.Context, userID string) error {
	_, err := r.DB.ExecContext(ctx, "DELETE FROM restore_codes WHERE user_id=?", userID)
	return err
}

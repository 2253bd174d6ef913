package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/ambulance-fleet-api/internal/model"
)

// UpgradeTokenRepo persists upgrade tokens and runs the promotion
// transaction that consumes them.
type UpgradeTokenRepo struct {
	DB      *sql.DB
	Drivers *DriverRepo
}

func NewUpgradeTokenRepo(db *sql.DB, drivers *DriverRepo) *UpgradeTokenRepo {
	return &UpgradeTokenRepo{DB: db, Drivers: drivers}
}

// Promotion describes one redemption: who gets which role with which token,
// plus the driver record to create for DRIVER grants.
type Promotion struct {
	TokenID string
	UserID  string
	Grant   model.Role
	Driver  *model.Driver
	At      time.Time
}

// Create inserts an unused token.
func (r *UpgradeTokenRepo) Create(ctx context.Context, t model.UpgradeToken) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO upgrade_tokens (id, role_grant, used, created_by, created_at) VALUES (?,?,0,?,?)",
		t.ID, t.Grant.String(), t.CreatedBy, t.CreatedAt)
	return err
}

// GetByID loads a token; ErrNotFound if absent.
func (r *UpgradeTokenRepo) GetByID(ctx context.Context, id string) (model.UpgradeToken, error) {
	var (
		t         model.UpgradeToken
		grant     string
		usedBy    sql.NullString
		createdBy sql.NullString
		revokedAt sql.NullTime
	)
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, role_grant, used, used_by, created_by, created_at, revoked_at FROM upgrade_tokens WHERE id=? LIMIT 1",
		id).Scan(&t.ID, &grant, &t.Used, &usedBy, &createdBy, &t.CreatedAt, &revokedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.UpgradeToken{}, ErrNotFound
		}
		return model.UpgradeToken{}, err
	}
	if t.Grant, err = model.ParseRole(grant); err != nil {
		return model.UpgradeToken{}, err
	}
	if usedBy.Valid {
		t.UsedBy = &usedBy.String
	}
	if createdBy.Valid {
		t.CreatedBy = &createdBy.String
	}
	if revokedAt.Valid {
		t.RevokedAt = &revokedAt.Time
	}
	return t, nil
}

// ListUnused returns unused tokens granting role, oldest first.
func (r *UpgradeTokenRepo) ListUnused(ctx context.Context, grant model.Role) ([]model.UpgradeToken, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id, created_at FROM upgrade_tokens WHERE role_grant=? AND used=0 ORDER BY created_at, id",
		grant.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.UpgradeToken
	for rows.Next() {
		t := model.UpgradeToken{Grant: grant}
		if err := rows.Scan(&t.ID, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Promote consumes the token, sets the user's role and creates the
// companion record in one transaction. The consume is conditional on
// used=0; if another transaction got there first ErrTokenUsed is returned
// and nothing is written.
func (r *UpgradeTokenRepo) Promote(ctx context.Context, p Promotion) error {
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

	res, err := tx.ExecContext(ctx,
		"UPDATE upgrade_tokens SET used=1, used_by=?, revoked_at=? WHERE id=? AND used=0",
		p.UserID, p.At, p.TokenID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrTokenUsed
	}

	if _, err := tx.ExecContext(ctx, "UPDATE users SET role=? WHERE id=?", p.Grant.String(), p.UserID); err != nil {
		return err
	}

	switch p.Grant {
	case model.RoleDriver:
		if p.Driver == nil {
			return errors.New("driver grant without driver record")
		}
		if err := r.Drivers.CreateIfAbsentTx(ctx, tx, *p.Driver); err != nil {
			return err
		}
	case model.RoleManager:
		if err := r.Drivers.CreateManagerIfAbsentTx(ctx, tx, model.Manager{UserID: p.UserID, CreatedAt: p.At}); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

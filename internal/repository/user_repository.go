package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/iliyamo/ambulance-fleet-api/internal/model"
)

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = "id,name,email,phone,national_id,password_hash,birth_date,role,created_at"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (model.User, error) {
	var (
		u    model.User
		role string
	)
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Phone, &u.NationalID,
		&u.PasswordHash, &u.BirthDate, &role, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, ErrNotFound
		}
		return model.User{}, err
	}
	if u.Role, err = model.ParseRole(role); err != nil {
		return model.User{}, fmt.Errorf("user %s: %w", u.ID, err)
	}
	return u, nil
}

// Create inserts a user. Email must already be normalized by the caller.
func (r *UserRepo) Create(ctx context.Context, u model.User) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO users ("+userColumns+") VALUES (?,?,?,?,?,?,?,?,?)",
		u.ID, u.Name, u.Email, u.Phone, u.NationalID, u.PasswordHash,
		u.BirthDate, u.Role.String(), u.CreatedAt)
	if key, dup := duplicateKey(err); dup {
		switch key {
		case "uq_users_email":
			return ErrEmailExists
		case "uq_users_phone":
			return ErrPhoneExists
		case "uq_users_national_id":
			return ErrNationalIDExists
		}
		return ErrConflict
	}
	return err
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", email))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id string) (model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
}

// List returns a page of users ordered by creation time.
func (r *UserRepo) List(ctx context.Context, limit, offset int) ([]model.User, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+userColumns+" FROM users ORDER BY created_at, id LIMIT ? OFFSET ?",
		limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// Taken reports which of email, phone and national id already belong to a
// user, so registration can report every clash at once.
func (r *UserRepo) Taken(ctx context.Context, email, phone, nationalID string) (emailTaken, phoneTaken, idTaken bool, err error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT email, phone, national_id FROM users WHERE email=? OR phone=? OR national_id=?",
		email, phone, nationalID)
	if err != nil {
		return false, false, false, err
	}
	defer rows.Close()
	for rows.Next() {
		var e, p, n string
		if err := rows.Scan(&e, &p, &n); err != nil {
			return false, false, false, err
		}
		emailTaken = emailTaken || e == email
		phoneTaken = phoneTaken || p == phone
		idTaken = idTaken || n == nationalID
	}
	return emailTaken, phoneTaken, idTaken, rows.Err()
}

// UpdatePassword replaces the stored hash.
func (r *UserRepo) UpdatePassword(ctx context.Context, id, hash string) error {
	res, err := r.DB.ExecContext(ctx, "UPDATE users SET password_hash=? WHERE id=?", hash, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// Delete removes the user. Companion rows cascade in the schema.
func (r *UserRepo) Delete(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM users WHERE id=?", id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/ambulance-fleet-api/internal/model"
)

// DriverRepo manages the companion records of DRIVER and MANAGER users.
type DriverRepo struct{ DB *sql.DB }

func NewDriverRepo(db *sql.DB) *DriverRepo { return &DriverRepo{DB: db} }

// GetByUserID returns the driver record of a user.
func (r *DriverRepo) GetByUserID(ctx context.Context, userID string) (model.Driver, error) {
	var (
		d           model.Driver
		ambulanceID sql.NullString
	)
	err := r.DB.QueryRowContext(ctx,
		"SELECT user_id, ambulance_id, license_number, license_expiry, created_at FROM drivers WHERE user_id=? LIMIT 1",
		userID).Scan(&d.UserID, &ambulanceID, &d.LicenseNumber, &d.LicenseExpiry, &d.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Driver{}, ErrNotFound
		}
		return model.Driver{}, err
	}
	if ambulanceID.Valid {
		d.AmbulanceID = &ambulanceID.String
	}
	return d, nil
}

// Update rewrites the mutable fields of a driver record.
func (r *DriverRepo) Update(ctx context.Context, d model.Driver) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE drivers SET ambulance_id=?, license_expiry=? WHERE user_id=?",
		d.AmbulanceID, d.LicenseExpiry, d.UserID)
	return err
}

// CreateIfAbsentTx inserts the driver record unless the user already has
// one, in which case the existing row is left untouched.
func (r *DriverRepo) CreateIfAbsentTx(ctx context.Context, tx *sql.Tx, d model.Driver) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO drivers (user_id, ambulance_id, license_number, license_expiry, created_at)
		 SELECT ?,?,?,?,? FROM DUAL
		 WHERE NOT EXISTS (SELECT 1 FROM drivers WHERE user_id=?)`,
		d.UserID, d.AmbulanceID, d.LicenseNumber, d.LicenseExpiry, d.CreatedAt, d.UserID)
	return err
}

// CreateManagerIfAbsentTx is the MANAGER counterpart of CreateIfAbsentTx.
func (r *DriverRepo) CreateManagerIfAbsentTx(ctx context.Context, tx *sql.Tx, m model.Manager) error {
	_, err := tx.ExecContext(ctx,
		"INSERT IGNORE INTO managers (user_id, created_at) VALUES (?,?)",
		m.UserID, m.CreatedAt)
	return err
}

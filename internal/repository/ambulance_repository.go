package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/ambulance-fleet-api/internal/model"
)

type AmbulanceRepo struct{ DB *sql.DB }

func NewAmbulanceRepo(db *sql.DB) *AmbulanceRepo { return &AmbulanceRepo{DB: db} }

const ambulanceColumns = "id, plate, model, year, document_number, created_at"

// Create inserts a vehicle. A duplicate plate yields ErrConflict.
func (r *AmbulanceRepo) Create(ctx context.Context, a model.Ambulance) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO ambulances ("+ambulanceColumns+") VALUES (?,?,?,?,?,?)",
		a.ID, a.Plate, a.Model, a.Year, a.DocumentNumber, a.CreatedAt)
	if _, dup := duplicateKey(err); dup {
		return ErrConflict
	}
	return err
}

func (r *AmbulanceRepo) GetByID(ctx context.Context, id string) (model.Ambulance, error) {
	var a model.Ambulance
	err := r.DB.QueryRowContext(ctx,
		"SELECT "+ambulanceColumns+" FROM ambulances WHERE id=? LIMIT 1", id).
		Scan(&a.ID, &a.Plate, &a.Model, &a.Year, &a.DocumentNumber, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Ambulance{}, ErrNotFound
	}
	return a, err
}

// Exists reports whether a vehicle with id is registered.
func (r *AmbulanceRepo) Exists(ctx context.Context, id string) (bool, error) {
	var one int
	err := r.DB.QueryRowContext(ctx, "SELECT 1 FROM ambulances WHERE id=? LIMIT 1", id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

func (r *AmbulanceRepo) List(ctx context.Context) ([]model.Ambulance, error) {
	rows, err := r.DB.QueryContext(ctx, "SELECT "+ambulanceColumns+" FROM ambulances ORDER BY plate")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Ambulance{}
	for rows.Next() {
		var a model.Ambulance
		if err := rows.Scan(&a.ID, &a.Plate, &a.Model, &a.Year, &a.DocumentNumber, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

package model

import "time"

// Driver is the companion record of a user holding the DRIVER role.
type Driver struct {
	UserID        string    `json:"id"`
	AmbulanceID   *string   `json:"id_ambulancia"`
	LicenseNumber string    `json:"cnh"`
	LicenseExpiry time.Time `json:"vencimento"`
	CreatedAt     time.Time `json:"criado_em"`
}

// Manager is the companion record of a user holding the MANAGER role.
type Manager struct {
	UserID    string    `json:"id"`
	CreatedAt time.Time `json:"criado_em"`
}

// Ambulance is a fleet vehicle a driver may be assigned to.
type Ambulance struct {
	ID             string    `json:"id"`
	Plate          string    `json:"placa"`
	Model          string    `json:"modelo"`
	Year           int       `json:"ano"`
	DocumentNumber string    `json:"renavam"`
	CreatedAt      time.Time `json:"criado_em"`
}

// RestoreCode authorizes a single password reset until ValidUntil.
type RestoreCode struct {
	ID         string
	UserID     string
	ValidUntil time.Time
	CreatedAt  time.Time
}

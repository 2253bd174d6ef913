package model

import "time"

// UpgradeToken is a single-use voucher that promotes the redeeming user to
// Grant. Once Used is true the token is terminal.
type UpgradeToken struct {
	ID        string     `json:"id"`
	Grant     Role       `json:"fator_cargo"`
	Used      bool       `json:"usado"`
	UsedBy    *string    `json:"usuario,omitempty"`
	CreatedBy *string    `json:"criado_por,omitempty"`
	CreatedAt time.Time  `json:"criado_em"`
	RevokedAt *time.Time `json:"revogado_em,omitempty"`
}

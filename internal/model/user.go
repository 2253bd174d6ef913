package model

import "time"

// User represents an account as stored in the `users` table.
// The json tags describe the public profile; PasswordHash is never encoded.
//
// Fields:
//
//	ID           – UUID (32 hex chars, no dashes).
//	Name         – display name.
//	Email        – unique, lower-cased.
//	Phone        – unique, digits only.
//	NationalID   – unique CPF, digits only.
//	PasswordHash – bcrypt hash.
//	BirthDate    – date of birth (UTC midnight).
//	Role         – authorization level, changed only by an upgrade token.
//	CreatedAt    – timestamp of creation.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"nome"`
	Email        string    `json:"email"`
	Phone        string    `json:"telefone"`
	NationalID   string    `json:"cpf"`
	PasswordHash string    `json:"-"`
	BirthDate    time.Time `json:"data_nascimento"`
	Role         Role      `json:"cargo"`
	CreatedAt    time.Time `json:"criado_em"`
}

// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow the service layer to
// distinguish between different failure scenarios and translate them into
// application errors without inspecting driver-specific codes.
package repository

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when the requested row or session does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when an insert violates a uniqueness constraint
// not covered by a more specific sentinel.
var ErrConflict = errors.New("conflict")

// Uniqueness violations on users, one per unique column.
var (
	ErrEmailExists      = errors.New("email already exists")
	ErrPhoneExists      = errors.New("phone already exists")
	ErrNationalIDExists = errors.New("national id already exists")
)

// ErrTokenUsed is returned by the promotion transaction when the upgrade
// token was consumed by someone else first.
var ErrTokenUsed = errors.New("upgrade token already used")

// duplicateKey reports whether err is a MySQL duplicate-key error (1062)
// and, if so, the name of the violated key.
func duplicateKey(err error) (string, bool) {
	var me *mysql.MySQLError
	if !errors.As(err, &me) || me.Number != 1062 {
		return "", false
	}
	// Message format: Duplicate entry 'x' for key 'users.uq_users_email'
	msg := me.Message
	if i := strings.LastIndex(msg, "for key '"); i >= 0 {
		key := strings.TrimSuffix(msg[i+len("for key '"):], "'")
		if j := strings.LastIndex(key, "."); j >= 0 {
			key = key[j+1:]
		}
		return key, true
	}
	return "", true
}

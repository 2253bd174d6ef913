package database

import (
	"context"
	"database/sql"
	"fmt"
)

// Migrate creates the identity schema when missing. Statements are
// idempotent and applied in order.
func Migrate(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id            CHAR(32)     NOT NULL PRIMARY KEY,
			name          VARCHAR(120) NOT NULL,
			email         VARCHAR(255) NOT NULL,
			phone         VARCHAR(20)  NOT NULL,
			national_id   CHAR(11)     NOT NULL,
			password_hash VARCHAR(255) NOT NULL,
			birth_date    DATE         NOT NULL,
			role          ENUM('USER','DRIVER','MANAGER') NOT NULL DEFAULT 'USER',
			created_at    DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE KEY uq_users_email (email),
			UNIQUE KEY uq_users_phone (phone),
			UNIQUE KEY uq_users_national_id (national_id)
		) ENGINE=InnoDB`,
		`CREATE TABLE IF NOT EXISTS ambulances (
			id              CHAR(32)    NOT NULL PRIMARY KEY,
			plate           VARCHAR(10) NOT NULL,
			model           VARCHAR(80) NOT NULL,
			year            SMALLINT    NOT NULL,
			document_number VARCHAR(20) NOT NULL,
			created_at      DATETIME    NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE KEY uq_ambulances_plate (plate)
		) ENGINE=InnoDB`,
		`CREATE TABLE IF NOT EXISTS upgrade_tokens (
			id         CHAR(32) NOT NULL PRIMARY KEY,
			role_grant ENUM('USER','DRIVER','MANAGER') NOT NULL,
			used       TINYINT(1) NOT NULL DEFAULT 0,
			used_by    CHAR(32) NULL,
			created_by CHAR(32) NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			revoked_at DATETIME NULL,
			CONSTRAINT fk_upgrade_tokens_used_by FOREIGN KEY (used_by) REFERENCES users(id) ON DELETE SET NULL,
			CONSTRAINT fk_upgrade_tokens_created_by FOREIGN KEY (created_by) REFERENCES users(id) ON DELETE SET NULL
		) ENGINE=InnoDB`,
		`CREATE TABLE IF NOT EXISTS drivers (
			user_id        CHAR(32)    NOT NULL PRIMARY KEY,
			ambulance_id   CHAR(32)    NULL,
			license_number VARCHAR(20) NOT NULL,
			license_expiry DATE        NOT NULL,
			created_at     DATETIME    NOT NULL DEFAULT CURRENT_TIMESTAMP,
			CONSTRAINT fk_drivers_user FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE,
			CONSTRAINT fk_drivers_ambulance FOREIGN KEY (ambulance_id) REFERENCES ambulances(id) ON DELETE SET NULL
		) ENGINE=InnoDB`,
		`CREATE TABLE IF NOT EXISTS managers (
			user_id    CHAR(32) NOT NULL PRIMARY KEY,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			CONSTRAINT fk_managers_user FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
		) ENGINE=InnoDB`,
		`CREATE TABLE IF NOT EXISTS restore_codes (
			id          CHAR(32) NOT NULL PRIMARY KEY,
			user_id     CHAR(32) NOT NULL,
			valid_until DATETIME NOT NULL,
			created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			KEY idx_restore_codes_user (user_id),
			CONSTRAINT fk_restore_codes_user FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
		) ENGINE=InnoDB`,
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}
	}
	return nil
}

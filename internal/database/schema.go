package database

import (
	"context"
	"database/sql"
	"fmt"
)

// schema lists the MySQL DDL statements applied by Migrate.  Each
// statement is idempotent so Migrate can run on every start.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		email         VARCHAR(120) NOT NULL,
		password_hash VARCHAR(255) NOT NULL,
		is_admin      TINYINT(1) NOT NULL DEFAULT 0,
		created_at    DATETIME(6) NOT NULL,
		updated_at    DATETIME(6) NOT NULL,
		UNIQUE KEY uq_users_email (email)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS refresh_tokens (
		id         BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		user_id    BIGINT UNSIGNED NOT NULL,
		token_hash CHAR(64) NOT NULL,
		expires_at DATETIME(6) NOT NULL,
		revoked_at DATETIME(6) NULL,
		created_at DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
		UNIQUE KEY uq_refresh_tokens_hash (token_hash),
		KEY ix_refresh_tokens_user (user_id),
		CONSTRAINT fk_refresh_tokens_user FOREIGN KEY (user_id) REFERENCES users (id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS rooms (
		id              BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		name            VARCHAR(100) NOT NULL,
		slug            VARCHAR(120) NOT NULL,
		capacity        INT UNSIGNED NOT NULL,
		price_minor     BIGINT NOT NULL,
		available_units INT UNSIGNED NOT NULL DEFAULT 0,
		description     TEXT NULL,
		images_json     TEXT NOT NULL,
		videos_json     TEXT NOT NULL,
		amenities_json  TEXT NOT NULL,
		is_deleted      TINYINT(1) NOT NULL DEFAULT 0,
		created_at      DATETIME(6) NOT NULL,
		updated_at      DATETIME(6) NOT NULL,
		KEY ix_rooms_deleted (is_deleted),
		CONSTRAINT ck_rooms_capacity CHECK (capacity > 0),
		CONSTRAINT ck_rooms_price CHECK (price_minor >= 0),
		CONSTRAINT ck_rooms_units CHECK (available_units >= 0)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS bookings (
		id                BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		user_id           BIGINT UNSIGNED NOT NULL,
		room_id           BIGINT UNSIGNED NOT NULL,
		check_in_date     DATE NOT NULL,
		check_out_date    DATE NOT NULL,
		total_price_minor BIGINT NOT NULL,
		payment_reference VARCHAR(100) NOT NULL,
		status            VARCHAR(32) NOT NULL DEFAULT 'pending_payment',
		refund_requested_at DATETIME(6) NULL,
		created_at        DATETIME(6) NOT NULL,
		updated_at        DATETIME(6) NOT NULL,
		UNIQUE KEY uq_bookings_payment_reference (payment_reference),
		KEY ix_bookings_user_created (user_id, created_at),
		KEY ix_bookings_status_updated (status, updated_at),
		CONSTRAINT fk_bookings_user FOREIGN KEY (user_id) REFERENCES users (id),
		CONSTRAINT fk_bookings_room FOREIGN KEY (room_id) REFERENCES rooms (id),
		CONSTRAINT ck_bookings_dates CHECK (check_out_date > check_in_date),
		CONSTRAINT ck_bookings_status CHECK (status IN ('pending_payment','approved','failed'))
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS hostel_details (
		id                  BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		hostel_name         VARCHAR(100) NOT NULL,
		general_video_url   TEXT NOT NULL,
		general_images_json TEXT NOT NULL,
		amenities_json      TEXT NOT NULL
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// Migrate creates any missing tables.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate statement %d: %w", i, err)
		}
	}
	return nil
}

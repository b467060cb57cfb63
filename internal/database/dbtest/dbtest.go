// Package dbtest opens throwaway SQLite databases carrying the same tables
// as the MySQL schema, for tests.
package dbtest

import (
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
)

// sqlite-friendly copy of the tables the repositories touch.
var schema = []string{
	`CREATE TABLE users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		is_admin BOOLEAN NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);`,
	`CREATE TABLE refresh_tokens (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		token_hash TEXT NOT NULL UNIQUE,
		expires_at DATETIME NOT NULL,
		revoked_at DATETIME NULL,
		created_at DATETIME NOT NULL
	);`,
	`CREATE TABLE rooms (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		slug TEXT NOT NULL,
		capacity INTEGER NOT NULL,
		price_minor INTEGER NOT NULL,
		available_units INTEGER NOT NULL DEFAULT 0 CHECK (available_units >= 0),
		description TEXT NULL,
		images_json TEXT NOT NULL,
		videos_json TEXT NOT NULL,
		amenities_json TEXT NOT NULL,
		is_deleted BOOLEAN NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);`,
	`CREATE TABLE bookings (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		room_id INTEGER NOT NULL,
		check_in_date DATE NOT NULL,
		check_out_date DATE NOT NULL,
		total_price_minor INTEGER NOT NULL,
		payment_reference TEXT NOT NULL UNIQUE,
		status TEXT NOT NULL DEFAULT 'pending_payment',
		refund_requested_at DATETIME NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);`,
	`CREATE TABLE hostel_details (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		hostel_name TEXT NOT NULL,
		general_video_url TEXT NOT NULL,
		general_images_json TEXT NOT NULL,
		amenities_json TEXT NOT NULL
	);`,
}

// Open returns a private in-memory database with the schema applied.  A
// single connection keeps every statement on the same in-memory instance.
func Open(t testing.TB) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	for _, stmt := range schema {
		_, err := db.Exec(stmt)
		require.NoError(t, err, "create schema")
	}
	return db
}

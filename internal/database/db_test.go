package database

import (
	"strings"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDSN(t *testing.T) {
	dsn := DSN("hostel", "p@ss", "db", "3306", "leemont")

	c, err := mysql.ParseDSN(dsn)
	require.NoError(t, err)
	assert.Equal(t, "hostel", c.User)
	assert.Equal(t, "p@ss", c.Passwd)
	assert.Equal(t, "db:3306", c.Addr)
	assert.Equal(t, "leemont", c.DBName)
	assert.True(t, c.ParseTime)
	assert.True(t, c.ClientFoundRows)
	assert.Equal(t, time.UTC, c.Loc)
	assert.Contains(t, dsn, "charset=utf8mb4")
}

func TestSchemaConstraints(t *testing.T) {
	var rooms, bookings string
	for _, stmt := range schema {
		switch {
		case strings.Contains(stmt, "CREATE TABLE IF NOT EXISTS rooms"):
			rooms = stmt
		case strings.Contains(stmt, "CREATE TABLE IF NOT EXISTS bookings"):
			bookings = stmt
		}
	}
	require.NotEmpty(t, rooms)
	require.NotEmpty(t, bookings)
	assert.Contains(t, rooms, "CHECK (available_units >= 0)")
	assert.Contains(t, rooms, "CHECK (price_minor >= 0)")
	assert.Contains(t, bookings, "refund_requested_at DATETIME(6) NULL")
	assert.Contains(t, bookings, "(status, updated_at)")
}

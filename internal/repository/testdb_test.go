package repository

import (
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iliyamo/leemont-hostel/internal/database/dbtest"
)

var testNow = time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)

func newTestDB(t *testing.T) *sql.DB {
	return dbtest.Open(t)
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// seedRoom inserts a room with the given number of units.
func seedRoom(t *testing.T, rooms *RoomRepo, name string, units uint32) uint64 {
	t.Helper()
	rm := roomFixture(name, units)
	require.NoError(t, rooms.Create(t.Context(), &rm))
	return rm.ID
}

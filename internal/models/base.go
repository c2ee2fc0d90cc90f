package models

import (
	"time"

	"github.com/google/uuid"
)

// ensureID assigns a fresh UUID when the primary key has not been set.
// Postgres and SQLite disagree on uuid defaults, so ids are generated here.
func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

// DateOnly truncates t to midnight UTC. All due dates are stored this way.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// AddDays returns the date n calendar days after t.
func AddDays(t time.Time, n int) time.Time {
	return DateOnly(t).AddDate(0, 0, n)
}

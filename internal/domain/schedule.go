package domain

import (
	"errors"
	"time"
)

var ErrScheduleRowNotFound = errors.New("schedule row not found")

// ScheduleRow is the durable coordination record claimed by competing
// workers, one per monitor.
type ScheduleRow struct {
	ID                  string
	MonitorID           string
	TenantID            string
	Active              bool
	NextCheckAt         time.Time
	ClaimedBy           *string
	ClaimedAt           *time.Time
	LastCheckAt         *time.Time
	LastStatus          *Status
	LastPing            *float64
	RetryCount          int
	ConsecutiveFailures int
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// Due reports whether the row is eligible for claim right now — used by
// in-memory fakes and tests; the postgres implementation expresses the
// same predicate in SQL.
func (r *ScheduleRow) Due(now time.Time, claimTimeout time.Duration) bool {
	if !r.Active || r.NextCheckAt.After(now) {
		return false
	}
	if r.ClaimedBy == nil {
		return true
	}
	return r.ClaimedAt != nil && r.ClaimedAt.Before(now.Add(-claimTimeout))
}

// ScheduleStats summarizes schedule row counts for a tenant (or globally).
type ScheduleStats struct {
	Total   int
	Active  int
	Claimed int
	Due     int
}

package attendance

import (
	"errors"
	"time"
)

// Typed failures surfaced to callers.
var (
	ErrNotFound      = errors.New("attendance record not found")
	ErrAlreadyClosed = errors.New("attendance record already closed")
)

// Snapshot carries the roster fields copied onto a record at swipe time.
// It is a point-in-time copy: later roster edits do not rewrite past records.
type Snapshot struct {
	RollNumber string `json:"roll_number"`
	CardID     string `json:"card_id"`
	Name       string `json:"name"`
	Branch     string `json:"branch"`
}

// Record is one visit, possibly still in progress. A nil OutTime means the
// session is open and the person is currently inside.
type Record struct {
	ID         string     `json:"id"`
	RollNumber string     `json:"roll_number"`
	CardID     string     `json:"card_id"`
	Name       string     `json:"name"`
	Branch     string     `json:"branch"`
	InTime     time.Time  `json:"in_time"`
	OutTime    *time.Time `json:"out_time,omitempty"`
	Duration   string     `json:"duration,omitempty"`
	DateKey    string     `json:"date"`
}

// Open reports whether the record's session is still in progress.
func (r Record) Open() bool { return r.OutTime == nil }

// DaySummary aggregates one person's visits for a single report day. Records
// holds the raw rows behind the total so callers can drill into visit-level
// detail without a second query.
type DaySummary struct {
	RollNumber   string   `json:"roll_number"`
	CardID       string   `json:"card_id"`
	Name         string   `json:"name"`
	Branch       string   `json:"branch"`
	TotalMinutes int      `json:"total_minutes"`
	Records      []Record `json:"records"`
}

// DateKeyFor derives the report partition day from the instant a session
// opened. A session spanning midnight stays entirely on its start day.
func DateKeyFor(t time.Time) string { return t.UTC().Format("2006-01-02") }

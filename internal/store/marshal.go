package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/roach88/cfrstat/internal/cfr"
)

// timestampLayout is used for run timestamps, which unlike issue dates carry
// a time of day.
const timestampLayout = time.RFC3339Nano

// nullableLabel converts an optional label to a SQL parameter.
func nullableLabel(label *string) any {
	if label == nil {
		return nil
	}
	return *label
}

// labelFromNull converts a scanned label back to an optional string.
func labelFromNull(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}

// parseIssueDate parses a persisted issue date.
func parseIssueDate(s string) (time.Time, error) {
	t, err := time.Parse(cfr.DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse issue date %q: %w", s, err)
	}
	return t, nil
}

// formatTimestamp formats t in UTC for persistence.
func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

// parseTimestamp parses a persisted run timestamp.
func parseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(timestampLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

package repository

import (
	"database/sql"
	"encoding/json"
	"strings"
	"time"
)

// marshalJSON serializes list-valued columns; storage defaults to "[]" so
// scans never see NULL.
func marshalJSON(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil || string(b) == "null" {
		return "[]"
	}
	return string(b)
}

func unmarshalJSON(s string, v interface{}) {
	if s == "" {
		return
	}
	// Corrupt column content is treated as empty rather than failing reads.
	_ = json.Unmarshal([]byte(s), v)
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonthKeyUsesIST(t *testing.T) {
	// 20:00 UTC on Jan 31 is already Feb 1 in IST
	utc := time.Date(2025, time.January, 31, 20, 0, 0, 0, time.UTC)
	assert.Equal(t, "2025-02", MonthKey(utc))
}

func TestNextMonthKey(t *testing.T) {
	cases := map[string]struct {
		in   time.Time
		want string
	}{
		"mid year":   {time.Date(2025, time.June, 15, 10, 0, 0, 0, IST), "2025-07"},
		"year end":   {time.Date(2025, time.December, 31, 10, 0, 0, 0, IST), "2026-01"},
		"end of jan": {time.Date(2025, time.January, 31, 10, 0, 0, 0, IST), "2025-02"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, NextMonthKey(tc.in))
		})
	}
}

func TestDueDateClampsToMonthLength(t *testing.T) {
	cases := []struct {
		month  string
		dueDay int
		want   string
	}{
		{"2025-03", 5, "2025-03-05"},
		{"2025-02", 31, "2025-02-28"},
		{"2024-02", 30, "2024-02-29"},
		{"2025-04", 0, "2025-04-01"},
	}
	for _, tc := range cases {
		got, err := DueDate(tc.month, tc.dueDay)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got.Format(DateLayout), "%s day %d", tc.month, tc.dueDay)
	}
}

func TestParseMonthRejectsGarbage(t *testing.T) {
	_, err := ParseMonth("2025-13")
	assert.Error(t, err)

	_, err = DueDate("March", 1)
	assert.Error(t, err)
}

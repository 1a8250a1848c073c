package timeutil

import (
	"fmt"
	"time"
)

// MonthKey formats t as the YYYY-MM key rent logs are stored under.
func MonthKey(t time.Time) string {
	return t.In(IST).Format(MonthLayout)
}

// ParseMonth parses a YYYY-MM key into the first day of that month in IST.
func ParseMonth(key string) (time.Time, error) {
	t, err := time.ParseInLocation(MonthLayout, key, IST)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid month %q, expected YYYY-MM", key)
	}
	return t, nil
}

// MonthStart returns midnight on the first day of t's month.
func MonthStart(t time.Time) time.Time {
	ist := t.In(IST)
	return time.Date(ist.Year(), ist.Month(), 1, 0, 0, 0, 0, IST)
}

// NextMonthKey returns the key of the month after t.
func NextMonthKey(t time.Time) string {
	return MonthKey(MonthStart(t).AddDate(0, 1, 0))
}

// DaysInMonth returns the number of days in t's month.
func DaysInMonth(t time.Time) int {
	return MonthStart(t).AddDate(0, 1, -1).Day()
}

// DueDate returns the due date for a month key, using dueDay clamped to
// the month's length. A dueDay below 1 is treated as the 1st.
func DueDate(monthKey string, dueDay int) (time.Time, error) {
	start, err := ParseMonth(monthKey)
	if err != nil {
		return time.Time{}, err
	}
	if dueDay < 1 {
		dueDay = 1
	}
	if last := DaysInMonth(start); dueDay > last {
		dueDay = last
	}
	return start.AddDate(0, 0, dueDay-1), nil
}

// Package timeutil pins billing dates to Indian Standard Time. Months,
// due dates and the overdue cutoff are all calendar values in IST, whatever
// the server's local zone is.
package timeutil

import "time"

// IST is Asia/Kolkata, or a fixed +05:30 zone when tzdata is missing.
var IST = loadIST()

func loadIST() *time.Location {
	if loc, err := time.LoadLocation("Asia/Kolkata"); err == nil {
		return loc
	}
	return time.FixedZone("IST", 5*60*60+30*60)
}

const (
	DateLayout     = "2006-01-02"
	MonthLayout    = "2006-01"
	DateTimeLayout = "2006-01-02 15:04:05"
	DisplayLayout  = "02 Jan 2006, 03:04 PM"
)

func Now() time.Time {
	return time.Now().In(IST)
}

func ToIST(t time.Time) time.Time {
	return t.In(IST)
}

// ParseDate parses a YYYY-MM-DD calendar date as IST midnight.
func ParseDate(value string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, value, IST)
}

// StartOfDay truncates t to IST midnight. The overdue sweep compares due
// dates against this, never against the wall clock.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.In(IST).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, IST)
}

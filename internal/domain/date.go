package domain

import (
	"fmt"
	"strings"
	"time"
)

// SourceDateLayout is the day.month.year format used by every upstream source.
const SourceDateLayout = "02.01.2006"

const isoDateLayout = "2006-01-02"

// Date is a calendar day without time-of-day or zone.
type Date struct {
	time.Time
}

// NewDate builds a Date at UTC midnight.
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseSourceDate parses an exact DD.MM.YYYY value; surrounding whitespace is ignored.
func ParseSourceDate(raw string) (Date, error) {
	t, err := time.Parse(SourceDateLayout, strings.TrimSpace(raw))
	if err != nil {
		return Date{}, fmt.Errorf("date %q: %w", raw, err)
	}
	return Date{Time: t}, nil
}

func (d Date) String() string {
	return d.Format(isoDateLayout)
}

// MarshalJSON renders the date as YYYY-MM-DD.
func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

// UnmarshalJSON accepts YYYY-MM-DD.
func (d *Date) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(string(data), `"`)
	t, err := time.Parse(isoDateLayout, raw)
	if err != nil {
		return fmt.Errorf("date %q: %w", raw, err)
	}
	d.Time = t
	return nil
}

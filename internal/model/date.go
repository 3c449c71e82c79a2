package model

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// DateLayout is the on-disk layout for every date column.
const DateLayout = "2006-01-02"

// Date is a calendar date with no time component. The zero value is an
// unset date.
type Date struct {
	t time.Time
}

// NewDate returns the date y-m-d.
func NewDate(y int, m time.Month, d int) Date {
	return Date{t: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar date in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, m, d)
}

// ParseDate parses a YYYY-MM-DD string. A trailing time component
// ("2024-01-05 00:00:00" or RFC 3339) is tolerated and dropped.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if len(s) > len(DateLayout) {
		s = s[:len(DateLayout)]
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, eris.Wrapf(err, "model: parse date %q", s)
	}
	return Date{t: t}, nil
}

// MustParseDate is ParseDate for literals known to be valid.
func MustParseDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Time returns the date as midnight UTC.
func (d Date) Time() time.Time { return d.t }

// IsZero reports whether d is unset.
func (d Date) IsZero() bool { return d.t.IsZero() }

func (d Date) Year() int { return d.t.Year() }
func (d Date) Month() time.Month { return d.t.Month() }
func (d Date) Day() int { return d.t.Day() }
func (d Date) Weekday() time.Weekday { return d.t.Weekday() }
func (d Date) AddDays(n int) Date { return Date{t: d.t.AddDate(0, 0, n)} }
func (d Date) Before(o Date) bool { return d.t.Before(o.t) }
func (d Date) After(o Date) bool { return d.t.After(o.t) }
func (d Date) Equal(o Date) bool { return d.t.Equal(o.t) }
func (d Date) MonthStart() Date { return NewDate(d.Year(), d.Month(), 1) }
func (d Date) SameMonth(o Date) bool { return d.Year() == o.Year() && d.Month() == o.Month() }

// Compare returns -1, 0 or +1.
func (d Date) Compare(o Date) int {
	return d.t.Compare(o.t)
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.t.Format(DateLayout)
}

// MarshalText implements encoding.TextMarshaler for CSV and JSON codecs.
func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. An empty value
// decodes to the zero date.
func (d *Date) UnmarshalText(b []byte) error {
	if strings.TrimSpace(string(b)) == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Package period buckets daily records into Monday-aligned weeks, names
// them with reporting labels and resolves the reference weeks a report
// compares against.
package period

import (
	"fmt"
	"time"

	"github.com/sells-group/adreport-cli/internal/model"
)

var monthNames = [...]string{
	time.January:   "enero",
	time.February:  "febrero",
	time.March:     "marzo",
	time.April:     "abril",
	time.May:       "mayo",
	time.June:      "junio",
	time.July:      "julio",
	time.August:    "agosto",
	time.September: "septiembre",
	time.October:   "octubre",
	time.November:  "noviembre",
	time.December:  "diciembre",
}

// MonthName returns the lower-case Spanish name of m.
func MonthName(m time.Month) string {
	if m < time.January || m > time.December {
		return ""
	}
	return monthNames[m]
}

// WeekStart returns the Monday of the Monday-to-Sunday week containing d.
func WeekStart(d model.Date) model.Date {
	offset := (int(d.Weekday()) + 6) % 7
	return d.AddDays(-offset)
}

// WeekOfMonth returns the 1-based position of weekStart among the Mondays
// in weeks that fall in the same calendar month. weekStart is counted even
// when it is missing from weeks.
func WeekOfMonth(weekStart model.Date, weeks []model.Date) int {
	n := 1
	seen := make(map[model.Date]bool, len(weeks))
	for _, w := range weeks {
		if seen[w] || w.Equal(weekStart) {
			continue
		}
		seen[w] = true
		if w.SameMonth(weekStart) && w.Before(weekStart) {
			n++
		}
	}
	return n
}

// Label names a week as {year}_{month}_semana{ordinal}, taking year and
// month from the week's Monday.
func Label(weekStart model.Date, ordinal int) string {
	return fmt.Sprintf("%d_%s_semana%d", weekStart.Year(), MonthName(weekStart.Month()), ordinal)
}

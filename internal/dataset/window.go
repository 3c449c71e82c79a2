package dataset

import (
	"github.com/rotisserie/eris"

	"github.com/sells-group/adreport-cli/internal/model"
)

// ErrNoWindow is returned when no extraction range can be derived.
var ErrNoWindow = eris.New("dataset: no resolvable date range")

// Window is an inclusive range of days to extract.
type Window struct {
	Since model.Date `json:"since"`
	Until model.Date `json:"until"`
}

// Days lists every day of the window in order.
func (w Window) Days() []model.Date {
	var days []model.Date
	for d := w.Since; !d.After(w.Until); d = d.AddDays(1) {
		days = append(days, d)
	}
	return days
}

func (w Window) String() string {
	return w.Since.String() + ".." + w.Until.String()
}

// NewWindow validates an explicit range.
func NewWindow(since, until model.Date) (Window, error) {
	if since.IsZero() || until.IsZero() {
		return Window{}, eris.Wrap(ErrNoWindow, "dataset: window bounds must be set")
	}
	if since.After(until) {
		return Window{}, eris.Wrapf(ErrNoWindow, "dataset: since %s is after until %s", since, until)
	}
	return Window{Since: since, Until: until}, nil
}

// LastDate returns the latest record date, or the zero date when empty.
func LastDate(records []model.PerformanceRecord) model.Date {
	var last model.Date
	for _, r := range records {
		if r.Date.After(last) {
			last = r.Date
		}
	}
	return last
}

// NextWindow returns the days following the latest record: last+1 through
// last+days.
func NextWindow(records []model.PerformanceRecord, days int) (Window, error) {
	if days < 1 {
		return Window{}, eris.Wrapf(ErrNoWindow, "dataset: window of %d days", days)
	}
	last := LastDate(records)
	if last.IsZero() {
		return Window{}, eris.Wrap(ErrNoWindow, "dataset: dataset has no dated rows")
	}
	return NewWindow(last.AddDays(1), last.AddDays(days))
}

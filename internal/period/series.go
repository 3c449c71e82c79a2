package period

import (
	"math"

	"github.com/rotisserie/eris"

	"github.com/sells-group/adreport-cli/internal/model"
	"github.com/sells-group/adreport-cli/internal/tabular"
)

// Metric names a weekly measure tracked by the comparison tables.
type Metric string

// Tracked metrics, in report order.
const (
	Spend               Metric = "spend"
	MessagingStarted    Metric = "messaging_started"
	CPL                 Metric = "cpl"
	CTR                 Metric = "ctr"
	UniqueLinkClicksCTR Metric = "unique_link_clicks_ctr"
)

// Metrics lists the tracked metrics in report order.
var Metrics = []Metric{Spend, MessagingStarted, CPL, CTR, UniqueLinkClicksCTR}

// Comparison offsets, in weeks back from the current week.
const (
	OffsetPrevious  = 1
	OffsetLastMonth = 4
	OffsetLastYear  = 52
)

// ErrPeriodNotFound is returned when a label is not in the series.
var ErrPeriodNotFound = eris.New("period: label not found")

// ErrEmptySeries is returned when there are no weeks to work with.
var ErrEmptySeries = eris.New("period: no weekly data")

// Week is the aggregate of one Monday-aligned week. Sums are float64 so
// that a missing week can carry NaN everywhere.
type Week struct {
	Start            model.Date `json:"week_start"`
	Label            string     `json:"period"`
	Spend            float64    `json:"spend"`
	MessagingStarted float64    `json:"messaging_started"`
	Impressions      float64    `json:"impressions"`
	ClicksAll        float64    `json:"clicks_all"`
	LinkClicks       float64    `json:"link_clicks"`

	CTR                 float64 `json:"ctr"`
	UniqueLinkClicksCTR float64 `json:"unique_link_clicks_ctr"`
	CPL                 float64 `json:"cpl"`
}

// MissingWeek is a week with every measure unknown.
func MissingWeek() Week {
	nan := math.NaN()
	return Week{
		Spend:               nan,
		MessagingStarted:    nan,
		Impressions:         nan,
		ClicksAll:           nan,
		LinkClicks:          nan,
		CTR:                 nan,
		UniqueLinkClicksCTR: nan,
		CPL:                 nan,
	}
}

// Missing reports whether w stands in for a week outside the series.
func (w Week) Missing() bool { return w.Start.IsZero() }

// Value returns the measure m, or NaN for an unknown metric.
func (w Week) Value(m Metric) float64 {
	switch m {
	case Spend:
		return w.Spend
	case MessagingStarted:
		return w.MessagingStarted
	case CPL:
		return w.CPL
	case CTR:
		return w.CTR
	case UniqueLinkClicksCTR:
		return w.UniqueLinkClicksCTR
	default:
		return math.NaN()
	}
}

func ratio(num, den float64) float64 {
	if den == 0 {
		return math.NaN()
	}
	return num / den
}

// Series is a gapless-by-position list of weeks sorted by start date.
// Positions, not calendar distance, define the comparison offsets.
type Series struct {
	Weeks []Week
	index map[string]int
}

// BuildWeekly aggregates daily records into weeks and labels them.
func BuildWeekly(records []model.PerformanceRecord) *Series {
	groups := tabular.GroupBy(records, func(r model.PerformanceRecord) model.Date {
		return WeekStart(r.Date)
	})
	tabular.SortGroups(groups, func(a, b model.Date) int { return a.Compare(b) })

	starts := make([]model.Date, 0, len(groups))
	for _, g := range groups {
		starts = append(starts, g.Key)
	}

	weeks := tabular.Aggregate(groups, func(start model.Date, rows []model.PerformanceRecord) Week {
		w := Week{
			Start:            start,
			Label:            Label(start, WeekOfMonth(start, starts)),
			Spend:            tabular.Sum(rows, func(r model.PerformanceRecord) float64 { return r.Spend }),
			MessagingStarted: float64(tabular.Sum(rows, func(r model.PerformanceRecord) int64 { return r.MessagingStarted })),
			Impressions:      float64(tabular.Sum(rows, func(r model.PerformanceRecord) int64 { return r.Impressions })),
			ClicksAll:        float64(tabular.Sum(rows, func(r model.PerformanceRecord) int64 { return r.ClicksAll })),
			LinkClicks:       float64(tabular.Sum(rows, func(r model.PerformanceRecord) int64 { return r.LinkClicks })),
		}
		w.CTR = ratio(w.ClicksAll, w.Impressions)
		w.UniqueLinkClicksCTR = ratio(w.LinkClicks, w.Impressions)
		w.CPL = ratio(w.Spend, w.MessagingStarted)
		return w
	})
	return NewSeries(weeks)
}

// NewSeries indexes weeks by label. Weeks must already be sorted.
func NewSeries(weeks []Week) *Series {
	s := &Series{Weeks: weeks, index: make(map[string]int, len(weeks))}
	for i, w := range weeks {
		if _, dup := s.index[w.Label]; !dup {
			s.index[w.Label] = i
		}
	}
	return s
}

// Len returns the number of weeks.
func (s *Series) Len() int { return len(s.Weeks) }

// Latest returns the last week of the series.
func (s *Series) Latest() (Week, error) {
	if len(s.Weeks) == 0 {
		return Week{}, ErrEmptySeries
	}
	return s.Weeks[len(s.Weeks)-1], nil
}

// At returns the week at position i, or a missing week when i is out of
// bounds.
func (s *Series) At(i int) Week {
	if i < 0 || i >= len(s.Weeks) {
		return MissingWeek()
	}
	return s.Weeks[i]
}

// Resolution holds a week and the three weeks it is compared against.
type Resolution struct {
	Label     string
	Current   Week
	Previous  Week
	LastMonth Week
	LastYear  Week
}

// Resolve finds label and the weeks 1, 4 and 52 positions before it.
// References that fall before the start of the series are missing weeks.
func (s *Series) Resolve(label string) (Resolution, error) {
	i, ok := s.index[label]
	if !ok {
		return Resolution{}, eris.Wrapf(ErrPeriodNotFound, "period: %q", label)
	}
	return Resolution{
		Label:     label,
		Current:   s.At(i),
		Previous:  s.At(i - OffsetPrevious),
		LastMonth: s.At(i - OffsetLastMonth),
		LastYear:  s.At(i - OffsetLastYear),
	}, nil
}

// Next returns the Monday after the latest week and its label. The
// ordinal counts the series' weeks already in that month plus one.
func (s *Series) Next() (model.Date, string, error) {
	last, err := s.Latest()
	if err != nil {
		return model.Date{}, "", err
	}
	next := last.Start.AddDays(7)
	n := 1
	for _, w := range s.Weeks {
		if w.Start.SameMonth(next) {
			n++
		}
	}
	return next, Label(next, n), nil
}

// NextLabel returns the label of the week following the series.
func (s *Series) NextLabel() (string, error) {
	_, label, err := s.Next()
	return label, err
}

// Pick selects the reporting label: "next" (the upcoming week), "latest"
// (the last complete week in the series) or an explicit label.
func (s *Series) Pick(choice string) (string, error) {
	switch choice {
	case "", "next":
		return s.NextLabel()
	case "latest":
		w, err := s.Latest()
		if err != nil {
			return "", err
		}
		return w.Label, nil
	default:
		return choice, nil
	}
}

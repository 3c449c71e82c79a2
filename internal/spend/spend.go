// Package spend summarises campaign spend by calendar month and writes the
// monthly spend workbook.
package spend

import (
	"cmp"

	"github.com/rotisserie/eris"

	"github.com/sells-group/adreport-cli/internal/model"
	"github.com/sells-group/adreport-cli/internal/tabular"
)

// ErrNoRows is returned when nothing falls on or after the cutoff.
var ErrNoRows = eris.New("spend: no records on or after cutoff")

// DefaultCutoff is the first day included in the workbook.
var DefaultCutoff = model.NewDate(2026, 1, 1)

// Options selects the optional breakdowns.
type Options struct {
	Cutoff     model.Date
	ByAccount  bool
	ByCampaign bool
}

// Monthly is one month of aggregated spend. Key is the account label or
// campaign name for the breakdown sheets, empty for the overall summary.
type Monthly struct {
	Key         string
	MonthStart  model.Date
	Spend       float64
	Impressions int64
	ClicksAll   int64
}

// Summary holds every table of the workbook.
type Summary struct {
	Cutoff     model.Date
	Filtered   []model.PerformanceRecord
	Monthly    []Monthly
	ByAccount  []Monthly
	ByCampaign []Monthly
}

type monthKey struct {
	key   string
	month model.Date
}

func aggregate(records []model.PerformanceRecord, key func(model.PerformanceRecord) string) []Monthly {
	groups := tabular.GroupBy(records, func(r model.PerformanceRecord) monthKey {
		return monthKey{key: key(r), month: r.Date.MonthStart()}
	})
	tabular.SortGroups(groups, func(a, b monthKey) int {
		if c := cmp.Compare(a.key, b.key); c != 0 {
			return c
		}
		return a.month.Compare(b.month)
	})
	return tabular.Aggregate(groups, func(k monthKey, rows []model.PerformanceRecord) Monthly {
		return Monthly{
			Key:         k.key,
			MonthStart:  k.month,
			Spend:       tabular.Sum(rows, func(r model.PerformanceRecord) float64 { return r.Spend }),
			Impressions: tabular.Sum(rows, func(r model.PerformanceRecord) int64 { return r.Impressions }),
			ClicksAll:   tabular.Sum(rows, func(r model.PerformanceRecord) int64 { return r.ClicksAll }),
		}
	})
}

// Aggregate filters records to the cutoff and builds the monthly tables.
func Aggregate(records []model.PerformanceRecord, opts Options) (Summary, error) {
	cutoff := opts.Cutoff
	if cutoff.IsZero() {
		cutoff = DefaultCutoff
	}

	s := Summary{Cutoff: cutoff}
	for _, r := range records {
		if !r.Date.Before(cutoff) {
			s.Filtered = append(s.Filtered, r)
		}
	}
	if len(s.Filtered) == 0 {
		return s, eris.Wrapf(ErrNoRows, "spend: cutoff %s", cutoff)
	}

	s.Monthly = aggregate(s.Filtered, func(model.PerformanceRecord) string { return "" })
	if opts.ByAccount {
		s.ByAccount = aggregate(s.Filtered, func(r model.PerformanceRecord) string { return r.AccountLabel })
	}
	if opts.ByCampaign {
		s.ByCampaign = aggregate(s.Filtered, func(r model.PerformanceRecord) string { return r.CampaignName })
	}
	return s, nil
}

// Total returns the summed spend of the overall monthly table.
func (s Summary) Total() float64 {
	return tabular.Sum(s.Monthly, func(m Monthly) float64 { return m.Spend })
}

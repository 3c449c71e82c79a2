// Package compare builds the period-over-period comparison tables of the
// weekly report.
package compare

import (
	"math"

	"github.com/sells-group/adreport-cli/internal/period"
)

// RatioMetric is the synthetic all-clicks CTR over link CTR row.
const RatioMetric period.Metric = "ctr (todos / links)"

// Column headers shared by both tables.
const (
	ColMetric    = "Métrica"
	ColCurrent   = "Semana Actual"
	ColPrevious  = "Semana Anterior"
	ColLastMonth = "Misma Semana Mes Anterior"
	ColLastYear  = "Misma Semana Año Anterior"

	ColChangePrevious  = "Cambio vs Semana Anterior (%)"
	ColChangeLastMonth = "Cambio vs Misma Semana Mes Anterior (%)"
	ColChangeLastYear  = "Cambio vs Misma Semana Año Anterior (%)"
)

// Row is one metric line of a comparison table. Values follows the
// table's column order after the metric column.
type Row struct {
	Metric period.Metric
	Values []float64
}

// Table is a titled, ordered comparison table.
type Table struct {
	Period  string
	Columns []string
	Rows    []Row
}

// ChangePct is the percentage change of cur against ref, rounded to two
// decimals. It is NaN when either side is NaN or ref is zero.
func ChangePct(cur, ref float64) float64 {
	if math.IsNaN(cur) || math.IsNaN(ref) || ref == 0 {
		return math.NaN()
	}
	return Round((cur-ref)/ref*100, 2)
}

// SafeDiv divides a by b, giving NaN when either is NaN or b is zero.
func SafeDiv(a, b float64) float64 {
	if math.IsNaN(a) || math.IsNaN(b) || b == 0 {
		return math.NaN()
	}
	return a / b
}

// Round rounds x to places decimals with ties to even. NaN passes through.
func Round(x float64, places int) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return x
	}
	p := math.Pow(10, float64(places))
	return math.RoundToEven(x*p) / p
}

func clickRatio(w period.Week) float64 {
	return SafeDiv(w.CTR, w.UniqueLinkClicksCTR)
}

// PercentTable lists each metric's current value and its change against
// the previous week, the same week last month and the same week last
// year.
func PercentTable(res period.Resolution) Table {
	t := Table{
		Period:  res.Label,
		Columns: []string{ColMetric, ColCurrent, ColChangePrevious, ColChangeLastMonth, ColChangeLastYear},
	}
	for _, m := range period.Metrics {
		cur := res.Current.Value(m)
		t.Rows = append(t.Rows, Row{Metric: m, Values: []float64{
			cur,
			ChangePct(cur, res.Previous.Value(m)),
			ChangePct(cur, res.LastMonth.Value(m)),
			ChangePct(cur, res.LastYear.Value(m)),
		}})
	}
	cur := clickRatio(res.Current)
	t.Rows = append(t.Rows, Row{Metric: RatioMetric, Values: []float64{
		Round(cur, 2),
		ChangePct(cur, clickRatio(res.Previous)),
		ChangePct(cur, clickRatio(res.LastMonth)),
		ChangePct(cur, clickRatio(res.LastYear)),
	}})
	return t
}

// ValueTable lists each metric's raw value for the current week and the
// three reference weeks.
func ValueTable(res period.Resolution) Table {
	t := Table{
		Period:  res.Label,
		Columns: []string{ColMetric, ColCurrent, ColPrevious, ColLastMonth, ColLastYear},
	}
	weeks := []period.Week{res.Current, res.Previous, res.LastMonth, res.LastYear}
	for _, m := range period.Metrics {
		vals := make([]float64, 0, len(weeks))
		for _, w := range weeks {
			vals = append(vals, w.Value(m))
		}
		t.Rows = append(t.Rows, Row{Metric: m, Values: vals})
	}
	ratios := make([]float64, 0, len(weeks))
	for _, w := range weeks {
		ratios = append(ratios, Round(clickRatio(w), 4))
	}
	t.Rows = append(t.Rows, Row{Metric: RatioMetric, Values: ratios})
	return t
}

// Build resolves label in the series and returns both tables.
func Build(s *period.Series, label string) (pct, values Table, err error) {
	res, err := s.Resolve(label)
	if err != nil {
		return Table{}, Table{}, err
	}
	return PercentTable(res), ValueTable(res), nil
}

// Find returns the row for metric m.
func (t Table) Find(m period.Metric) (Row, bool) {
	for _, r := range t.Rows {
		if r.Metric == m {
			return r, true
		}
	}
	return Row{}, false
}

// Package render turns comparison tables into PNG images and console
// tables.
package render

import (
	"math"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sells-group/adreport-cli/internal/compare"
	"github.com/sells-group/adreport-cli/internal/period"
)

var displayNames = map[period.Metric]string{
	period.Spend:               "Total Spend",
	period.MessagingStarted:    "WhatsApp Leads",
	period.CPL:                 "CPL",
	period.CTR:                 "CTR (todos)",
	period.UniqueLinkClicksCTR: "CTR (links)",
	compare.RatioMetric:        "CTR (todos / links)",
}

// ratios shown as percentages of impressions
var percentMetrics = map[period.Metric]bool{
	period.CTR:                 true,
	period.UniqueLinkClicksCTR: true,
}

var printer = message.NewPrinter(language.English)

// DisplayName returns the report name of m.
func DisplayName(m period.Metric) string {
	if name, ok := displayNames[m]; ok {
		return name
	}
	return string(m)
}

// FormatCell renders one numeric cell. Change columns and CTR metrics are
// shown as percentages, everything else with thousands separators and two
// decimals. Unknown values are blank.
func FormatCell(m period.Metric, column string, v float64) string {
	switch {
	case math.IsNaN(v):
		return ""
	case strings.Contains(column, "(%)"):
		return printer.Sprintf("%.2f%%", v)
	case percentMetrics[m]:
		return printer.Sprintf("%.2f%%", v*100)
	default:
		return printer.Sprintf("%.2f", v)
	}
}

// Cells lays out t as text: the header row first, then one row per metric.
func Cells(t compare.Table) [][]string {
	out := make([][]string, 0, len(t.Rows)+1)
	out = append(out, append([]string(nil), t.Columns...))
	for _, r := range t.Rows {
		line := make([]string, 0, len(t.Columns))
		line = append(line, DisplayName(r.Metric))
		for i, v := range r.Values {
			col := ""
			if i+1 < len(t.Columns) {
				col = t.Columns[i+1]
			}
			line = append(line, FormatCell(r.Metric, col, v))
		}
		out = append(out, line)
	}
	return out
}

package spend

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/xuri/excelize/v2"
)

// Sheet names of the workbook.
const (
	SheetMonthly    = "Monthly_Spend"
	SheetByAccount  = "Monthly_by_Account"
	SheetByCampaign = "Monthly_by_Campaign"
)

const tableStyle = "TableStyleMedium9"

var filteredHeader = []any{
	"account_id", "date", "campaign_id", "campaign_name", "spend", "impressions", "reach",
	"video_25pct", "clicks_all", "link_clicks", "ctr", "unique_link_clicks_ctr",
	"messaging_started", "two_way_conversations", "month_start",
}

// FilteredSheet names the raw data sheet after the cutoff year.
func FilteredSheet(s Summary) string {
	return fmt.Sprintf("Filtered_%dplus", s.Cutoff.Year())
}

type workbook struct {
	f         *excelize.File
	dateStyle int
}

func (w *workbook) cell(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}

func (w *workbook) writeRows(sheet string, header []any, rows [][]any, dateCols ...int) error {
	if err := w.f.SetSheetRow(sheet, "A1", &header); err != nil {
		return eris.Wrapf(err, "spend: header of %s", sheet)
	}
	for i := range rows {
		if err := w.f.SetSheetRow(sheet, w.cell(1, i+2), &rows[i]); err != nil {
			return eris.Wrapf(err, "spend: row %d of %s", i+2, sheet)
		}
	}
	if len(rows) == 0 {
		return nil
	}
	for _, c := range dateCols {
		if err := w.f.SetCellStyle(sheet, w.cell(c, 2), w.cell(c, len(rows)+1), w.dateStyle); err != nil {
			return eris.Wrapf(err, "spend: date style on %s", sheet)
		}
	}
	return nil
}

func (w *workbook) addTable(sheet, name string, cols, rows int) error {
	err := w.f.AddTable(sheet, &excelize.Table{
		Range:     w.cell(1, 1) + ":" + w.cell(cols, rows+1),
		Name:      name,
		StyleName: tableStyle,
	})
	return eris.Wrapf(err, "spend: table on %s", sheet)
}

func monthlyRows(ms []Monthly, withKey bool) [][]any {
	out := make([][]any, 0, len(ms))
	for _, m := range ms {
		row := make([]any, 0, 5)
		if withKey {
			row = append(row, m.Key)
		}
		row = append(row, m.MonthStart.Time(), m.Spend, m.Impressions, m.ClicksAll)
		out = append(out, row)
	}
	return out
}

func (w *workbook) monthlySheet(sheet, table, keyCol string, ms []Monthly) error {
	header := []any{"month_start", "spend", "impressions", "clicks_all"}
	dateCol := 1
	if keyCol != "" {
		header = append([]any{keyCol}, header...)
		dateCol = 2
	}
	if err := w.writeRows(sheet, header, monthlyRows(ms, keyCol != ""), dateCol); err != nil {
		return err
	}
	return w.addTable(sheet, table, len(header), len(ms))
}

func (w *workbook) chart(s Summary) error {
	last := len(s.Monthly) + 1
	ref := func(col string) string { return fmt.Sprintf("%s!$%s$2:$%s$%d", SheetMonthly, col, col, last) }

	err := w.f.AddChart(SheetMonthly, "H2", &excelize.Chart{
		Type: excelize.Col,
		Series: []excelize.ChartSeries{{
			Name:       SheetMonthly + "!$B$1",
			Categories: ref("A"),
			Values:     ref("B"),
		}},
		Title:  []excelize.RichTextRun{{Text: fmt.Sprintf("Gasto mensual (desde %d)", s.Cutoff.Year())}},
		Legend: excelize.ChartLegend{Position: "bottom"},
		XAxis: excelize.ChartAxis{
			Title:  []excelize.RichTextRun{{Text: "Mes"}},
			NumFmt: excelize.ChartNumFmt{CustomNumFmt: "mmm yyyy"},
		},
		YAxis: excelize.ChartAxis{
			Title:          []excelize.RichTextRun{{Text: "Gasto"}},
			MajorGridLines: false,
		},
		Format: excelize.GraphicOptions{ScaleX: 1.4, ScaleY: 1.4},
	})
	return eris.Wrap(err, "spend: add chart")
}

// WriteWorkbook writes the filtered rows, the monthly table with its
// column chart and the enabled breakdown sheets to path.
func WriteWorkbook(path string, s Summary) error {
	f := excelize.NewFile()
	defer f.Close() //nolint:errcheck

	dateFmt := "yyyy-mm-dd"
	style, err := f.NewStyle(&excelize.Style{CustomNumFmt: &dateFmt})
	if err != nil {
		return eris.Wrap(err, "spend: date style")
	}
	w := &workbook{f: f, dateStyle: style}

	filtered := FilteredSheet(s)
	if err := f.SetSheetName("Sheet1", filtered); err != nil {
		return eris.Wrap(err, "spend: rename first sheet")
	}
	raw := make([][]any, 0, len(s.Filtered))
	for _, r := range s.Filtered {
		raw = append(raw, []any{
			r.AccountLabel, r.Date.Time(), r.CampaignID, r.CampaignName, r.Spend, r.Impressions, r.Reach,
			r.Video25Pct, r.ClicksAll, r.LinkClicks, r.CTR, r.UniqueLinkClicksCTR,
			r.MessagingStarted, r.TwoWayConversations, r.Date.MonthStart().Time(),
		})
	}
	if err := w.writeRows(filtered, filteredHeader, raw, 2, len(filteredHeader)); err != nil {
		return err
	}

	if _, err := f.NewSheet(SheetMonthly); err != nil {
		return eris.Wrap(err, "spend: new monthly sheet")
	}
	if err := w.monthlySheet(SheetMonthly, "MonthlySpend", "", s.Monthly); err != nil {
		return err
	}
	if len(s.Monthly) > 0 {
		if err := w.chart(s); err != nil {
			return err
		}
	}

	if s.ByAccount != nil {
		if _, err := f.NewSheet(SheetByAccount); err != nil {
			return eris.Wrap(err, "spend: new account sheet")
		}
		if err := w.monthlySheet(SheetByAccount, "MonthlyByAccount", "account_id", s.ByAccount); err != nil {
			return err
		}
	}
	if s.ByCampaign != nil {
		if _, err := f.NewSheet(SheetByCampaign); err != nil {
			return eris.Wrap(err, "spend: new campaign sheet")
		}
		if err := w.monthlySheet(SheetByCampaign, "MonthlyByCampaign", "campaign_name", s.ByCampaign); err != nil {
			return err
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrapf(err, "spend: create dir for %s", path)
	}
	return eris.Wrapf(f.SaveAs(path), "spend: save %s", path)
}

package render

import (
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/sells-group/adreport-cli/internal/compare"
)

// Console prints t as a boxed text table titled with its period.
func Console(w io.Writer, t compare.Table) {
	cells := Cells(t)
	if len(cells) == 0 {
		return
	}

	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleLight)
	if t.Period != "" {
		tw.SetTitle(t.Period)
	}

	header := make(table.Row, 0, len(cells[0]))
	for _, h := range cells[0] {
		header = append(header, h)
	}
	tw.AppendHeader(header)

	for _, line := range cells[1:] {
		row := make(table.Row, 0, len(line))
		for _, c := range line {
			row = append(row, c)
		}
		tw.AppendRow(row)
	}

	configs := make([]table.ColumnConfig, 0, len(cells[0]))
	for i := 2; i <= len(cells[0]); i++ {
		configs = append(configs, table.ColumnConfig{Number: i, Align: text.AlignRight})
	}
	tw.SetColumnConfigs(configs)
	tw.Render()
}

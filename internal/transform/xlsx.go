package transform

import (
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// SheetName is the worksheet holding the downstream table.
const SheetName = "primera_tabla"

// WriteXLSX writes rows as a single-sheet workbook with the same columns
// as the CSV output. Null cells are left empty.
func WriteXLSX(path string, rows []Row) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(SheetName)
	if err != nil {
		return eris.Wrap(err, "transform: add sheet")
	}

	header := sheet.AddRow()
	for _, c := range Columns {
		header.AddCell().SetString(c)
	}

	for _, r := range rows {
		xr := sheet.AddRow()
		xr.AddCell().SetString(r.Account)
		xr.AddCell().SetString(r.DateStart.String())
		xr.AddCell().SetString(r.DateStop.String())
		xr.AddCell().SetString(r.CampaignID)
		xr.AddCell().SetString(r.CampaignName)
		for _, n := range r.metrics() {
			cell := xr.AddCell()
			if n.Valid {
				cell.SetFloat(n.Float64)
			}
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrapf(err, "transform: create dir for %s", path)
	}
	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "transform: save %s", path)
	}
	return nil
}

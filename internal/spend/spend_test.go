package spend

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/sells-group/adreport-cli/internal/model"
)

func records() []model.PerformanceRecord {
	d := model.MustParseDate
	return []model.PerformanceRecord{
		{AccountLabel: "tla", Date: d("2025-12-31"), CampaignID: "a", CampaignName: "Old", Spend: 999, Impressions: 1, ClicksAll: 1},
		{AccountLabel: "tla", Date: d("2026-01-01"), CampaignID: "a", CampaignName: "Promo", Spend: 10, Impressions: 100, ClicksAll: 5},
		{AccountLabel: "illapa", Date: d("2026-01-15"), CampaignID: "b", CampaignName: "Brand", Spend: 20.5, Impressions: 200, ClicksAll: 7},
		{AccountLabel: "tla", Date: d("2026-02-03"), CampaignID: "a", CampaignName: "Promo", Spend: 30, Impressions: 300, ClicksAll: 9},
	}
}

func TestAggregate_Monthly(t *testing.T) {
	s, err := Aggregate(records(), Options{Cutoff: DefaultCutoff, ByAccount: true})
	require.NoError(t, err)

	assert.Len(t, s.Filtered, 3)
	require.Len(t, s.Monthly, 2)
	assert.Equal(t, "2026-01-01", s.Monthly[0].MonthStart.String())
	assert.Equal(t, 30.5, s.Monthly[0].Spend)
	assert.Equal(t, int64(300), s.Monthly[0].Impressions)
	assert.Equal(t, int64(12), s.Monthly[0].ClicksAll)
	assert.Equal(t, "2026-02-01", s.Monthly[1].MonthStart.String())
	assert.Equal(t, 60.5, s.Total())

	require.Len(t, s.ByAccount, 3)
	assert.Equal(t, "illapa", s.ByAccount[0].Key)
	assert.Equal(t, "tla", s.ByAccount[1].Key)
	assert.Equal(t, "2026-01-01", s.ByAccount[1].MonthStart.String())
	assert.Equal(t, "tla", s.ByAccount[2].Key)
	assert.Equal(t, "2026-02-01", s.ByAccount[2].MonthStart.String())

	assert.Nil(t, s.ByCampaign)
}

func TestAggregate_ByCampaign(t *testing.T) {
	s, err := Aggregate(records(), Options{ByCampaign: true})
	require.NoError(t, err)
	require.Len(t, s.ByCampaign, 3)
	assert.Equal(t, "Brand", s.ByCampaign[0].Key)
	assert.Equal(t, 40.0, s.ByCampaign[1].Spend+s.ByCampaign[2].Spend)
}

func TestAggregate_NothingAfterCutoff(t *testing.T) {
	_, err := Aggregate(records(), Options{Cutoff: model.NewDate(2030, 1, 1)})
	assert.ErrorIs(t, err, ErrNoRows)
}

func TestWriteWorkbook(t *testing.T) {
	s, err := Aggregate(records(), Options{Cutoff: DefaultCutoff, ByAccount: true, ByCampaign: true})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "spend", "raw_spend_monthly.xlsx")
	require.NoError(t, WriteWorkbook(path, s))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close() //nolint:errcheck

	assert.Equal(t, []string{"Filtered_2026plus", SheetMonthly, SheetByAccount, SheetByCampaign}, f.GetSheetList())

	rows, err := f.GetRows(SheetMonthly)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"month_start", "spend", "impressions", "clicks_all"}, rows[0])
	assert.Equal(t, []string{"2026-01-01", "30.5", "300", "12"}, rows[1])

	tables, err := f.GetTables(SheetMonthly)
	require.NoError(t, err)
	require.Len(t, tables, 1)
	assert.Equal(t, "A1:D3", tables[0].Range)
	assert.Equal(t, "TableStyleMedium9", tables[0].StyleName)

	raw, err := f.GetRows("Filtered_2026plus")
	require.NoError(t, err)
	require.Len(t, raw, 4)
	assert.Equal(t, "account_id", raw[0][0])
	assert.Equal(t, "month_start", raw[0][14])
	assert.Equal(t, "2026-01-15", raw[2][1])
	assert.Equal(t, "2026-01-01", raw[2][14])

	byAcct, err := f.GetRows(SheetByAccount)
	require.NoError(t, err)
	assert.Equal(t, []string{"account_id", "month_start", "spend", "impressions", "clicks_all"}, byAcct[0])
	assert.Equal(t, "illapa", byAcct[1][0])
}

func TestWriteWorkbook_OptionalSheetsOff(t *testing.T) {
	s, err := Aggregate(records(), Options{})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "spend.xlsx")
	require.NoError(t, WriteWorkbook(path, s))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close() //nolint:errcheck
	assert.Equal(t, []string{"Filtered_2026plus", SheetMonthly}, f.GetSheetList())
}

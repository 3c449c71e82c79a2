package pipeline

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/sells-group/adreport-cli/internal/model"
	"github.com/sells-group/adreport-cli/internal/spend"
	"github.com/sells-group/adreport-cli/internal/transform"
)

func TestTransform_WritesDownstreamCSV(t *testing.T) {
	cfg := testConfig(t)
	writeDataset(t, cfg.Paths.Dataset,
		record("illapa", "2025-04-07", "c1", 5),
		record("tla", "2025-04-07", "c2", 7),
	)

	p := New(cfg, newTestStore(t), nil, nil, nil)
	res, err := p.Transform(context.Background(), TransformOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{cfg.Paths.DownstreamCSV}, res.Artifacts)
	assert.NoFileExists(t, cfg.Paths.DownstreamXLSX)

	raw, err := os.ReadFile(cfg.Paths.DownstreamCSV)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(strings.TrimPrefix(string(raw), "\ufeff")), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, strings.Join(transform.Columns, ","), lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "illa,2025-04-07,2025-04-07,c1,"))
	assert.True(t, strings.HasPrefix(lines[2], "tla,"))
}

func TestTransform_WritesXLSX(t *testing.T) {
	cfg := testConfig(t)
	writeDataset(t, cfg.Paths.Dataset, record("tla", "2025-04-07", "c1", 5))

	p := New(cfg, newTestStore(t), nil, nil, nil)
	res, err := p.Transform(context.Background(), TransformOptions{WriteXLSX: true})
	require.NoError(t, err)
	assert.Len(t, res.Artifacts, 2)

	f, err := excelize.OpenFile(cfg.Paths.DownstreamXLSX)
	require.NoError(t, err)
	defer f.Close() //nolint:errcheck
	rows, err := f.GetRows(f.GetSheetList()[0])
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "account", rows[0][0])
	assert.Equal(t, "tla", rows[1][0])
}

func TestTransform_MissingDataset(t *testing.T) {
	cfg := testConfig(t)

	p := New(cfg, newTestStore(t), nil, nil, nil)
	_, err := p.Transform(context.Background(), TransformOptions{})
	require.Error(t, err)
	assert.True(t, IsPrecondition(err))
}

func TestSpend_WritesWorkbook(t *testing.T) {
	cfg := testConfig(t)
	writeDataset(t, cfg.Paths.Dataset,
		record("tla", "2024-12-30", "c1", 100),
		record("tla", "2025-01-02", "c1", 10),
		record("illapa", "2025-02-03", "c2", 20),
	)

	p := New(cfg, newTestStore(t), nil, nil, nil)
	res, err := p.Spend(context.Background(), SpendOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{cfg.Paths.SpendXLSX}, res.Artifacts)

	f, err := excelize.OpenFile(cfg.Paths.SpendXLSX)
	require.NoError(t, err)
	defer f.Close() //nolint:errcheck
	sheets := f.GetSheetList()
	assert.Contains(t, sheets, spend.SheetMonthly)
	assert.Contains(t, sheets, spend.SheetByAccount)
	assert.NotContains(t, sheets, spend.SheetByCampaign)
}

func TestSpend_OptionOverrides(t *testing.T) {
	cfg := testConfig(t)
	p := New(cfg, nil, nil, nil, nil)

	no, yes := false, true
	opts, err := p.spendOptions(SpendOptions{
		Cutoff:     model.MustParseDate("2025-02-01"),
		ByAccount:  &no,
		ByCampaign: &yes,
	})
	require.NoError(t, err)
	assert.Equal(t, "2025-02-01", opts.Cutoff.String())
	assert.False(t, opts.ByAccount)
	assert.True(t, opts.ByCampaign)

	opts, err = p.spendOptions(SpendOptions{})
	require.NoError(t, err)
	assert.Equal(t, "2025-01-01", opts.Cutoff.String())
	assert.True(t, opts.ByAccount)

	cfg.Spend.Cutoff = "soon"
	_, err = p.spendOptions(SpendOptions{})
	assert.True(t, IsPrecondition(err))
}

func TestSpend_NothingAfterCutoff(t *testing.T) {
	cfg := testConfig(t)
	writeDataset(t, cfg.Paths.Dataset, record("tla", "2024-12-30", "c1", 100))

	p := New(cfg, newTestStore(t), nil, nil, nil)
	_, err := p.Spend(context.Background(), SpendOptions{})
	require.Error(t, err)
	assert.True(t, IsNothingToDo(err))
	assert.NoFileExists(t, cfg.Paths.SpendXLSX)
}

func TestExport_UpsertsDownstreamRows(t *testing.T) {
	cfg := testConfig(t)
	writeDataset(t, cfg.Paths.Dataset,
		record("illa", "2025-04-07", "c1", 5),
		record("illapa", "2025-04-07", "c1", 6), // folds onto the row above
		record("tla", "2025-04-07", "c2", 7),
	)

	pool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer pool.Close()

	pool.ExpectQuery("to_regclass").WithArgs("campaign_daily").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
	pool.ExpectExec(`CREATE TABLE IF NOT EXISTS "campaign_daily"`).WillReturnResult(pgxmock.NewResult("CREATE", 0))
	pool.ExpectBegin()
	pool.ExpectExec("CREATE TEMP TABLE").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	pool.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_campaign_daily"}, transform.Columns).WillReturnResult(2)
	pool.ExpectExec("INSERT INTO").WillReturnResult(pgxmock.NewResult("INSERT", 2))
	pool.ExpectCommit()

	p := New(cfg, newTestStore(t), nil, pool, nil)
	res, err := p.Export(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, res.ExportedRows)
	assert.NoError(t, pool.ExpectationsWereMet())
}

func TestExport_ExistingTableIsNotRecreated(t *testing.T) {
	cfg := testConfig(t)
	writeDataset(t, cfg.Paths.Dataset, record("tla", "2025-04-07", "c1", 5))

	pool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer pool.Close()

	pool.ExpectQuery("to_regclass").WithArgs("campaign_daily").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
	pool.ExpectBegin()
	pool.ExpectExec("CREATE TEMP TABLE").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	pool.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_campaign_daily"}, transform.Columns).WillReturnResult(1)
	pool.ExpectExec("INSERT INTO").WillReturnResult(pgxmock.NewResult("INSERT", 1))
	pool.ExpectCommit()

	p := New(cfg, newTestStore(t), nil, pool, nil)
	res, err := p.Export(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.ExportedRows)
	assert.NoError(t, pool.ExpectationsWereMet())
}

func TestExport_NoPoolIsPrecondition(t *testing.T) {
	cfg := testConfig(t)
	writeDataset(t, cfg.Paths.Dataset, record("tla", "2025-04-07", "c1", 5))

	p := New(cfg, newTestStore(t), nil, nil, nil)
	_, err := p.Export(context.Background())
	require.Error(t, err)
	assert.True(t, IsPrecondition(err))
}

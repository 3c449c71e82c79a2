package render

import (
	"bytes"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/adreport-cli/internal/compare"
	"github.com/sells-group/adreport-cli/internal/period"
)

func sampleTable() compare.Table {
	nan := math.NaN()
	return compare.Table{
		Period:  "2024_enero_semana2",
		Columns: []string{compare.ColMetric, compare.ColCurrent, compare.ColChangePrevious, compare.ColChangeLastMonth, compare.ColChangeLastYear},
		Rows: []compare.Row{
			{Metric: period.Spend, Values: []float64{1234.5, 50, nan, nan}},
			{Metric: period.CTR, Values: []float64{0.0213, -12.5, nan, nan}},
			{Metric: compare.RatioMetric, Values: []float64{2, -33.33, nan, nan}},
		},
	}
}

func TestFormatCell(t *testing.T) {
	assert.Equal(t, "1,234.50", FormatCell(period.Spend, compare.ColCurrent, 1234.5))
	assert.Equal(t, "1,500.00%", FormatCell(period.Spend, compare.ColChangePrevious, 1500))
	assert.Equal(t, "2.13%", FormatCell(period.CTR, compare.ColCurrent, 0.0213))
	assert.Equal(t, "-12.50%", FormatCell(period.CTR, compare.ColChangePrevious, -12.5))
	assert.Equal(t, "", FormatCell(period.Spend, compare.ColCurrent, math.NaN()))
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "Total Spend", DisplayName(period.Spend))
	assert.Equal(t, "WhatsApp Leads", DisplayName(period.MessagingStarted))
	assert.Equal(t, "CTR (todos / links)", DisplayName(compare.RatioMetric))
	assert.Equal(t, "other", DisplayName("other"))
}

func TestCells(t *testing.T) {
	cells := Cells(sampleTable())
	require.Len(t, cells, 4)
	assert.Equal(t, compare.ColMetric, cells[0][0])
	assert.Equal(t, []string{"Total Spend", "1,234.50", "50.00%", "", ""}, cells[1])
	assert.Equal(t, []string{"CTR (todos)", "2.13%", "-12.50%", "", ""}, cells[2])
	assert.Equal(t, []string{"CTR (todos / links)", "2.00", "-33.33%", "", ""}, cells[3])
}

func TestImage_Dimensions(t *testing.T) {
	opts := ImageOptions{PadX: 10, RowHeight: 20, Scale: 1}
	img := Image(sampleTable(), opts)
	assert.Equal(t, 4*20+1, img.Bounds().Dy())
	assert.Greater(t, img.Bounds().Dx(), 5*20)

	scaled := Image(sampleTable(), ImageOptions{PadX: 10, RowHeight: 20, Scale: 2})
	assert.Equal(t, 2*img.Bounds().Dx(), scaled.Bounds().Dx())
	assert.Equal(t, 2*img.Bounds().Dy(), scaled.Bounds().Dy())
}

func TestWriteReport(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "insight")
	pctPath, valPath, err := WriteReport(dir, sampleTable(), sampleTable(), DefaultImageOptions())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "tabla_variaciones.png"), pctPath)
	assert.Equal(t, filepath.Join(dir, "tabla_valores.png"), valPath)

	for _, p := range []string{pctPath, valPath} {
		raw, err := os.ReadFile(p)
		require.NoError(t, err)
		_, err = png.Decode(bytes.NewReader(raw))
		assert.NoError(t, err, p)
	}
}

func TestConsole(t *testing.T) {
	var buf bytes.Buffer
	Console(&buf, sampleTable())

	out := buf.String()
	assert.Contains(t, out, "2024_enero_semana2")
	assert.Contains(t, out, "Total Spend")
	assert.Contains(t, out, "1,234.50")
	assert.Contains(t, out, "CTR (todos / links)")
}

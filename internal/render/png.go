package render

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/sells-group/adreport-cli/internal/compare"
)

// Output file names inside the insight directory.
const (
	PercentFile = "tabla_variaciones.png"
	ValuesFile  = "tabla_valores.png"
)

var (
	colBackground = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	colHeader     = color.RGBA{R: 0xe8, G: 0xec, B: 0xf1, A: 0xff}
	colGrid       = color.RGBA{R: 0x99, G: 0x99, B: 0x99, A: 0xff}
	colText       = color.RGBA{R: 0x11, G: 0x11, B: 0x11, A: 0xff}
)

// ImageOptions controls the table raster.
type ImageOptions struct {
	PadX      int // horizontal cell padding in pixels, before scaling
	RowHeight int // before scaling
	Scale     int // integer upscale factor applied to the finished raster
}

// DefaultImageOptions matches the density of the historical report images.
func DefaultImageOptions() ImageOptions {
	return ImageOptions{PadX: 10, RowHeight: 22, Scale: 2}
}

// Image rasterises t as a centred text grid.
func Image(t compare.Table, opts ImageOptions) image.Image {
	if opts.RowHeight <= 0 {
		opts = DefaultImageOptions()
	}
	face := basicfont.Face7x13
	cells := Cells(t)

	widths := make([]int, len(t.Columns))
	for _, row := range cells {
		for i, s := range row {
			if i >= len(widths) {
				break
			}
			if w := font.MeasureString(face, s).Ceil() + 2*opts.PadX; w > widths[i] {
				widths[i] = w
			}
		}
	}
	total := 1
	for _, w := range widths {
		total += w
	}
	height := len(cells)*opts.RowHeight + 1

	img := image.NewRGBA(image.Rect(0, 0, total, height))
	draw.Draw(img, img.Bounds(), image.NewUniform(colBackground), image.Point{}, draw.Src)
	draw.Draw(img, image.Rect(0, 0, total, opts.RowHeight), image.NewUniform(colHeader), image.Point{}, draw.Src)

	d := &font.Drawer{Dst: img, Src: image.NewUniform(colText), Face: face}
	ascent := face.Metrics().Ascent.Ceil()
	descent := face.Metrics().Descent.Ceil()

	for r, row := range cells {
		top := r * opts.RowHeight
		baseline := top + (opts.RowHeight+ascent-descent)/2
		x := 0
		for i, w := range widths {
			if i < len(row) && row[i] != "" {
				tw := font.MeasureString(face, row[i]).Ceil()
				d.Dot = fixed.P(x+(w-tw)/2, baseline)
				d.DrawString(row[i])
			}
			x += w
		}
	}

	hline := func(y int) { draw.Draw(img, image.Rect(0, y, total, y+1), image.NewUniform(colGrid), image.Point{}, draw.Src) }
	vline := func(x int) { draw.Draw(img, image.Rect(x, 0, x+1, height), image.NewUniform(colGrid), image.Point{}, draw.Src) }
	for r := 0; r <= len(cells); r++ {
		hline(min(r*opts.RowHeight, height-1))
	}
	x := 0
	vline(x)
	for _, w := range widths {
		x += w
		vline(min(x, total-1))
	}

	if opts.Scale <= 1 {
		return img
	}
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx()*opts.Scale, b.Dy()*opts.Scale))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}

// WritePNG renders t into path, creating parent directories.
func WritePNG(path string, t compare.Table, opts ImageOptions) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrapf(err, "render: create dir for %s", path)
	}
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "render: create %s", path)
	}
	if err := png.Encode(f, Image(t, opts)); err != nil {
		f.Close() //nolint:errcheck
		return eris.Wrapf(err, "render: encode %s", path)
	}
	return eris.Wrapf(f.Close(), "render: close %s", path)
}

// WriteReport writes both comparison images into dir and returns their
// paths.
func WriteReport(dir string, pct, values compare.Table, opts ImageOptions) (string, string, error) {
	pctPath := filepath.Join(dir, PercentFile)
	valPath := filepath.Join(dir, ValuesFile)
	if err := WritePNG(pctPath, pct, opts); err != nil {
		return "", "", err
	}
	if err := WritePNG(valPath, values, opts); err != nil {
		return "", "", err
	}
	return pctPath, valPath, nil
}

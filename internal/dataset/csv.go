package dataset

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"

	"github.com/sells-group/adreport-cli/internal/model"
)

// ErrMissing is returned when a dataset that must pre-exist is absent.
var ErrMissing = eris.New("dataset: file does not exist")

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// LoadRecords reads the campaign dataset. The file must exist.
func LoadRecords(path string) ([]model.PerformanceRecord, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, eris.Wrapf(ErrMissing, "dataset: %s", path)
		}
		return nil, eris.Wrapf(err, "dataset: stat %s", path)
	}
	return ReadFile[model.PerformanceRecord](path)
}

// LoadVideo reads the ad-level video dataset. A missing file is an empty
// dataset; the first successful sync creates it.
func LoadVideo(path string) ([]model.VideoRecord, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	return ReadFile[model.VideoRecord](path)
}

// ReadFile decodes every row of a headed CSV file into T.
func ReadFile[T any](path string) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "dataset: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	rows, err := Decode[T](f)
	if err != nil {
		return nil, eris.Wrapf(err, "dataset: read %s", path)
	}
	return rows, nil
}

// Decode reads a headed CSV stream into T. A leading UTF-8 byte order
// mark is skipped and an empty stream yields no rows.
func Decode[T any](r io.Reader) ([]T, error) {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}

	dec, err := csvutil.NewDecoder(csv.NewReader(br))
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "dataset: read header")
	}

	var out []T
	for {
		var row T
		if err := dec.Decode(&row); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, eris.Wrapf(err, "dataset: decode line %d", len(out)+2)
		}
		out = append(out, row)
	}
	return out, nil
}

// Encode writes rows as a headed CSV stream. The header is written even
// when rows is empty. Floats use the shortest plain decimal form.
func Encode[T any](w io.Writer, rows []T) error {
	cw := csv.NewWriter(w)
	enc := csvutil.NewEncoder(cw)
	enc.AutoHeader = false
	enc.Register(func(f float64) ([]byte, error) {
		return strconv.AppendFloat(nil, f, 'f', -1, 64), nil
	})

	var zero T
	if err := enc.EncodeHeader(zero); err != nil {
		return eris.Wrap(err, "dataset: encode header")
	}
	for i := range rows {
		if err := enc.Encode(rows[i]); err != nil {
			return eris.Wrapf(err, "dataset: encode row %d", i)
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "dataset: flush")
}

// WriteFile rewrites path with rows. The new content is written to a
// sibling temp file first and renamed over the target. Files carry a
// UTF-8 byte order mark so spreadsheet tools pick the right encoding.
func WriteFile[T any](path string, rows []T) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrapf(err, "dataset: create dir %s", dir)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return eris.Wrapf(err, "dataset: create temp for %s", path)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	w := bufio.NewWriter(tmp)
	if _, err := w.Write(utf8BOM); err != nil {
		tmp.Close() //nolint:errcheck
		return eris.Wrap(err, "dataset: write bom")
	}
	if err := Encode(w, rows); err != nil {
		tmp.Close() //nolint:errcheck
		return err
	}
	if err := w.Flush(); err != nil {
		tmp.Close() //nolint:errcheck
		return eris.Wrap(err, "dataset: flush temp")
	}
	if err := tmp.Close(); err != nil {
		return eris.Wrap(err, "dataset: close temp")
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return eris.Wrapf(err, "dataset: replace %s", path)
	}
	return nil
}

// BackupPath returns where Backup copies path to.
func BackupPath(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + "_backup_before_append.csv"
}

// Backup copies the current dataset next to itself before it is
// overwritten. Callers treat a failure as a warning.
func Backup(path string) (string, error) {
	dst := BackupPath(path)
	src, err := os.Open(path)
	if err != nil {
		return "", eris.Wrapf(err, "dataset: open %s for backup", path)
	}
	defer src.Close() //nolint:errcheck

	out, err := os.Create(dst)
	if err != nil {
		return "", eris.Wrapf(err, "dataset: create backup %s", dst)
	}
	if _, err := io.Copy(out, src); err != nil {
		out.Close() //nolint:errcheck
		return "", eris.Wrapf(err, "dataset: copy backup %s", dst)
	}
	return dst, eris.Wrap(out.Close(), "dataset: close backup")
}

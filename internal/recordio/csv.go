// Package recordio reads and writes stage record sets as CSV and XLSX.
package recordio

import (
	"bytes"
	"encoding/csv"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
)

var utf8BOM = []byte("\xef\xbb\xbf")

// ReadFile loads records from path, choosing the format by extension.
// A missing file yields an error matching fs.ErrNotExist.
func ReadFile[T any](path string) ([]T, error) {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return ReadXLSX[T](path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "recordio: read %s", path)
	}
	records, err := DecodeCSV[T](bytes.NewReader(data))
	if err != nil {
		return nil, eris.Wrapf(err, "recordio: decode %s", path)
	}
	return records, nil
}

// ExtraColumns is implemented by record pointers that keep header columns
// their struct does not declare, so those columns survive a rewrite.
type ExtraColumns interface {
	ExtraColumns() (names, values []string)
	SetExtraColumns(names, values []string)
}

// DecodeCSV decodes every row of r into T by header name. Columns missing
// from the header stay zero and short rows are padded with empty cells.
// Columns T does not declare are handed to ExtraColumns when *T
// implements it and ignored otherwise.
func DecodeCSV[T any](r io.Reader) ([]T, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, eris.Wrap(err, "recordio: read csv")
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	cr := csv.NewReader(bytes.NewReader(data))
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1

	dec, err := csvutil.NewDecoder(cr)
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "recordio: read csv header")
	}
	dec.AlignRecord = true
	header := dec.Header()

	var out []T
	for {
		var v T
		if err := dec.Decode(&v); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, eris.Wrapf(err, "recordio: decode row %d", len(out)+1)
		}
		if ec, ok := any(&v).(ExtraColumns); ok {
			if unused := dec.Unused(); len(unused) > 0 {
				row := dec.Record()
				names := make([]string, len(unused))
				values := make([]string, len(unused))
				for j, idx := range unused {
					names[j] = header[idx]
					values[j] = row[idx]
				}
				ec.SetExtraColumns(names, values)
			}
		}
		out = append(out, v)
	}
	return out, nil
}

// rowBuffer captures the single row csvutil encodes for one record.
type rowBuffer struct {
	row []string
}

func (b *rowBuffer) Write(row []string) error {
	b.row = append(b.row[:0], row...)
	return nil
}

// EncodeCSV writes a header row followed by one row per record. Extra
// columns follow the declared ones, in the order they were first seen.
func EncodeCSV[T any](w io.Writer, records []T) error {
	var zero T
	header, err := csvutil.Header(zero, "csv")
	if err != nil {
		return eris.Wrap(err, "recordio: encode header")
	}

	declared := make(map[string]bool, len(header))
	for _, name := range header {
		declared[name] = true
	}
	var extraNames []string
	extraIndex := make(map[string]int)
	for i := range records {
		ec, ok := any(&records[i]).(ExtraColumns)
		if !ok {
			break
		}
		names, _ := ec.ExtraColumns()
		for _, name := range names {
			if _, seen := extraIndex[name]; seen || declared[name] {
				continue
			}
			extraIndex[name] = len(extraNames)
			extraNames = append(extraNames, name)
		}
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(append(header, extraNames...)); err != nil {
		return eris.Wrap(err, "recordio: write header")
	}

	buf := &rowBuffer{}
	enc := csvutil.NewEncoder(buf)
	enc.AutoHeader = false
	for i := range records {
		if err := enc.Encode(records[i]); err != nil {
			return eris.Wrapf(err, "recordio: encode row %d", i+1)
		}
		row := buf.row
		if len(extraNames) > 0 {
			extras := make([]string, len(extraNames))
			names, values := any(&records[i]).(ExtraColumns).ExtraColumns()
			for j, name := range names {
				if k, ok := extraIndex[name]; ok {
					extras[k] = values[j]
				}
			}
			row = append(row, extras...)
		}
		if err := cw.Write(row); err != nil {
			return eris.Wrapf(err, "recordio: write row %d", i+1)
		}
	}

	cw.Flush()
	return eris.Wrap(cw.Error(), "recordio: flush csv")
}

// WriteFileAtomic writes records to path as CSV through a temporary file
// in the same directory that is renamed over path once fully written.
// Readers see either the previous file or the new one, never a mix.
func WriteFileAtomic[T any](path string, records []T) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrapf(err, "recordio: create dir %s", dir)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return eris.Wrapf(err, "recordio: create temp file in %s", dir)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			tmp.Close()        //nolint:errcheck
			os.Remove(tmpName) //nolint:errcheck
		}
	}()

	if err := EncodeCSV(tmp, records); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return eris.Wrap(err, "recordio: sync temp file")
	}
	if err := tmp.Close(); err != nil {
		return eris.Wrap(err, "recordio: close temp file")
	}
	if err := os.Rename(tmpName, path); err != nil {
		return eris.Wrapf(err, "recordio: replace %s", path)
	}
	committed = true
	return nil
}

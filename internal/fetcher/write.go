package fetcher

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"io"
	"path/filepath"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
	"github.com/spf13/afero"

	"github.com/sells-group/catalog-reconcile/internal/model"
)

// WriteAtomic writes a file through a temporary sibling and renames it into
// place, so readers only ever see complete files. The temp file is removed
// when write fails.
func WriteAtomic(fs afero.Fs, path string, write func(w io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrapf(err, "write: mkdir %s", dir)
	}

	tmp, err := afero.TempFile(fs, dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return eris.Wrapf(err, "write: temp file for %s", path)
	}
	tmpName := tmp.Name()

	bw := bufio.NewWriter(tmp)
	if err := write(bw); err != nil {
		tmp.Close()        //nolint:errcheck
		fs.Remove(tmpName) //nolint:errcheck
		return err
	}
	if err := bw.Flush(); err != nil {
		tmp.Close()        //nolint:errcheck
		fs.Remove(tmpName) //nolint:errcheck
		return eris.Wrapf(err, "write: flush %s", path)
	}
	if err := tmp.Close(); err != nil {
		fs.Remove(tmpName) //nolint:errcheck
		return eris.Wrapf(err, "write: close %s", path)
	}
	if err := fs.Rename(tmpName, path); err != nil {
		fs.Remove(tmpName) //nolint:errcheck
		return eris.Wrapf(err, "write: rename into %s", path)
	}
	return nil
}

// WriteTable writes a table as CSV with a header row.
func WriteTable(fs afero.Fs, path string, t *model.Table) error {
	return WriteAtomic(fs, path, func(w io.Writer) error {
		cw := csv.NewWriter(w)
		if err := cw.WriteAll(t.Strings()); err != nil {
			return eris.Wrapf(err, "write: csv %s", path)
		}
		return nil
	})
}

// WriteRecords writes typed rows as CSV using their csv struct tags. The
// header is written even when rows is empty.
func WriteRecords[T any](fs afero.Fs, path string, rows []T) error {
	return WriteAtomic(fs, path, func(w io.Writer) error {
		cw := csv.NewWriter(w)
		enc := csvutil.NewEncoder(cw)
		var zero T
		if err := enc.EncodeHeader(zero); err != nil {
			return eris.Wrapf(err, "write: csv header %s", path)
		}
		if len(rows) > 0 {
			if err := enc.Encode(rows); err != nil {
				return eris.Wrapf(err, "write: csv rows %s", path)
			}
		}
		cw.Flush()
		return eris.Wrapf(cw.Error(), "write: csv flush %s", path)
	})
}

// ReadRecords decodes a CSV written by WriteRecords.
func ReadRecords[T any](fs afero.Fs, path string) ([]T, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "read: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	data, err := io.ReadAll(skipBOM(f))
	if err != nil {
		return nil, eris.Wrapf(err, "read: %s", path)
	}
	var out []T
	if err := csvutil.Unmarshal(data, &out); err != nil {
		return nil, eris.Wrapf(err, "read: decode %s", path)
	}
	return out, nil
}

// WriteJSON writes v as indented JSON.
func WriteJSON(fs afero.Fs, path string, v any) error {
	return WriteAtomic(fs, path, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return eris.Wrapf(enc.Encode(v), "write: json %s", path)
	})
}

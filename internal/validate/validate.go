package validate

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/rotisserie/eris"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/sells-group/catalog-reconcile/internal/model"
)

// Reasons a file fails validation.
const (
	ReasonEmpty     = "empty file"
	ReasonMissing   = "missing required column"
	ReasonAllNull   = "numeric column is entirely null"
	ReasonNotNumber = "numeric column holds non-numeric value"
	ReasonForbidden = "forbidden value"
)

// Violation is a file-level schema failure. Row is -1 when the failure is
// not tied to one row.
type Violation struct {
	File   string `json:"file"`
	Column string `json:"column,omitempty"`
	Reason string `json:"reason"`
	Row    int    `json:"row"`
	Value  string `json:"value,omitempty"`
}

func (v *Violation) Error() string {
	msg := fmt.Sprintf("validate: %s: %s", v.File, v.Reason)
	if v.Column != "" {
		msg += fmt.Sprintf(" (column %q)", v.Column)
	}
	if v.Row >= 0 {
		msg += fmt.Sprintf(" at row %d", v.Row)
	}
	if v.Value != "" {
		msg += fmt.Sprintf(": %s", v.Value)
	}
	return msg
}

// Fields renders the violation as log fields.
func (v *Violation) Fields() []zap.Field {
	return []zap.Field{
		zap.String("file", v.File),
		zap.String("column", v.Column),
		zap.String("reason", v.Reason),
		zap.Int("row", v.Row),
		zap.String("value", v.Value),
	}
}

// Check validates t against s and returns the first violation found, in
// this order: no data rows, missing required columns, numeric columns,
// forbidden values.
func Check(t *model.Table, s Schema) error {
	if len(t.Rows) == 0 {
		return &Violation{File: t.Name, Reason: ReasonEmpty, Row: -1}
	}

	for _, col := range s.Required {
		if !t.HasColumn(col) {
			return &Violation{File: t.Name, Column: col, Reason: ReasonMissing, Row: -1}
		}
	}

	for _, col := range s.Numeric {
		if !t.HasColumn(col) {
			continue
		}
		allNull := true
		for r := range t.Rows {
			c := t.Get(r, col)
			switch c.Kind {
			case model.CellNull:
			case model.CellNumber:
				allNull = false
			default:
				return &Violation{File: t.Name, Column: col, Reason: ReasonNotNumber, Row: r, Value: c.String()}
			}
		}
		if allNull {
			return &Violation{File: t.Name, Column: col, Reason: ReasonAllNull, Row: -1}
		}
	}

	cols := make([]string, 0, len(s.Forbidden))
	for col := range s.Forbidden {
		cols = append(cols, col)
	}
	sort.Strings(cols)
	for _, col := range cols {
		if !t.HasColumn(col) {
			continue
		}
		for r := range t.Rows {
			c := t.Get(r, col)
			for _, v := range s.Forbidden[col] {
				if matches(c, v) {
					return &Violation{File: t.Name, Column: col, Reason: ReasonForbidden, Row: r, Value: v.String()}
				}
			}
		}
	}
	return nil
}

func matches(c model.Cell, v Value) bool {
	if v.Null {
		return c.IsNull()
	}
	f, ok := c.Float()
	return ok && f == v.Number
}

// Quarantine moves path into rejectedDir and returns the new location.
func Quarantine(fs afero.Fs, path, rejectedDir string) (string, error) {
	if _, err := fs.Stat(path); err != nil {
		return "", eris.Wrapf(err, "validate: stat %s", path)
	}
	if err := fs.MkdirAll(rejectedDir, 0o755); err != nil {
		return "", eris.Wrapf(err, "validate: create %s", rejectedDir)
	}
	dest := filepath.Join(rejectedDir, filepath.Base(path))
	if err := fs.Rename(path, dest); err != nil {
		return "", eris.Wrapf(err, "validate: move %s", path)
	}
	zap.L().Warn("validate: file quarantined", zap.String("file", path), zap.String("dest", dest))
	return dest, nil
}

// AsViolation unwraps err into a Violation when it is one.
func AsViolation(err error) (*Violation, bool) {
	var v *Violation
	if errors.As(err, &v) {
		return v, true
	}
	return nil, false
}

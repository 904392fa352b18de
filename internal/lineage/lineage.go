// Package lineage records where every staged row ended up: which dataset
// row it became, why it was rejected, and which later steps rewrote it.
package lineage

import (
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// Operations.
const (
	OpValidate = "validate"
	OpResolve  = "resolve"
)

// StatusSuccess marks a row that moved on. Rejections carry
// "rejected: <reason>".
const StatusSuccess = "success"

const rejectedPrefix = "rejected: "

// Row is a dataset row index. Negative means the row has none.
type Row int

// NoRow is the output row of a rejected source row.
const NoRow Row = -1

// MarshalText renders NoRow as REJECTED.
func (r Row) MarshalText() ([]byte, error) {
	if r < 0 {
		return []byte("REJECTED"), nil
	}
	return []byte(strconv.Itoa(int(r))), nil
}

// UnmarshalText parses what MarshalText writes.
func (r *Row) UnmarshalText(b []byte) error {
	s := string(b)
	if s == "REJECTED" || s == "" {
		*r = NoRow
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return eris.Wrapf(err, "lineage: output row %q", s)
	}
	*r = Row(n)
	return nil
}

// Entry is one step of one source row. OutputRow indexes the validated
// dataset, before opening receipts are merged into the purchases.
type Entry struct {
	SourceFile string    `json:"source_file" csv:"source_file"`
	SourceRow  int       `json:"source_row" csv:"source_row"`
	Dataset    string    `json:"dataset" csv:"dataset"`
	OutputRow  Row       `json:"output_row" csv:"output_row"`
	Operation  string    `json:"operation" csv:"operation"`
	Status     string    `json:"status" csv:"status"`
	Detail     string    `json:"detail" csv:"detail"`
	Timestamp  time.Time `json:"timestamp" csv:"timestamp"`
}

// Rejected reports whether the entry records a rejection.
func (e Entry) Rejected() bool { return strings.HasPrefix(e.Status, rejectedPrefix) }

// Summary counts a ledger's entries.
type Summary struct {
	Accepted    int     `json:"accepted"`
	Rejected    int     `json:"rejected"`
	Changed     int     `json:"changed"`
	SuccessRate float64 `json:"success_rate"`
}

type origin struct {
	file string
	row  int
}

// Ledger collects entries for one run. It is not safe for concurrent use.
type Ledger struct {
	now     func() time.Time
	entries []Entry
	origins map[string][]origin
}

// New creates an empty ledger. A nil clock selects time.Now.
func New(now func() time.Time) *Ledger {
	if now == nil {
		now = time.Now
	}
	return &Ledger{now: now, origins: make(map[string][]origin)}
}

// Accept records that row srcRow of file became row outRow of dataset.
func (l *Ledger) Accept(file string, srcRow int, dataset string, outRow int) {
	rows := l.origins[dataset]
	for len(rows) <= outRow {
		rows = append(rows, origin{row: -1})
	}
	rows[outRow] = origin{file: file, row: srcRow}
	l.origins[dataset] = rows
	l.add(Entry{
		SourceFile: file,
		SourceRow:  srcRow,
		Dataset:    dataset,
		OutputRow:  Row(outRow),
		Operation:  OpValidate,
		Status:     StatusSuccess,
	})
}

// Reject records that row srcRow of file was dropped for reason.
func (l *Ledger) Reject(file string, srcRow int, reason string) {
	l.add(Entry{
		SourceFile: file,
		SourceRow:  srcRow,
		OutputRow:  NoRow,
		Operation:  OpValidate,
		Status:     rejectedPrefix + reason,
	})
}

// Change records that op rewrote row outRow of dataset. The entry points
// back at the source row Accept placed there, if any.
func (l *Ledger) Change(dataset string, outRow int, op, detail string) {
	o := origin{row: -1}
	if rows := l.origins[dataset]; outRow >= 0 && outRow < len(rows) {
		o = rows[outRow]
	}
	l.add(Entry{
		SourceFile: o.file,
		SourceRow:  o.row,
		Dataset:    dataset,
		OutputRow:  Row(outRow),
		Operation:  op,
		Status:     StatusSuccess,
		Detail:     detail,
	})
}

func (l *Ledger) add(e Entry) {
	e.Timestamp = l.now().UTC()
	l.entries = append(l.entries, e)
}

// Entries returns the recorded entries in order. Never nil.
func (l *Ledger) Entries() []Entry {
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Summary counts accepted and rejected source rows and rewrites.
// SuccessRate is the accepted share of validated rows, in percent.
func (l *Ledger) Summary() Summary {
	var s Summary
	for _, e := range l.entries {
		switch {
		case e.Rejected():
			s.Rejected++
		case e.Operation == OpValidate:
			s.Accepted++
		default:
			s.Changed++
		}
	}
	if total := s.Accepted + s.Rejected; total > 0 {
		s.SuccessRate = float64(s.Accepted) / float64(total) * 100
	}
	return s
}

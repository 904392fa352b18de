// Package schema flattens stacked spreadsheet header rows into column names.
package schema

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/unicode/norm"
)

// Placeholder names a column whose header cells are all blank.
const Placeholder = "unnamed_col"

// Override renames a three-level column when the combined upper label
// contains Contains and the third-row label equals Sub.
type Override struct {
	Contains string
	Sub      string
	Name     string
}

// Overrides split the combined out-quantity header into retail and
// wholesale columns.
var Overrides = []Override{
	{Contains: "xuất_trong_kỳ_số_lượng", Sub: "lẻ", Name: "xuất_trong_kỳ_lẻ"},
	{Contains: "xuất_trong_kỳ_số_lượng", Sub: "lẽ", Name: "xuất_trong_kỳ_lẻ"},
	{Contains: "xuất_trong_kỳ_số_lượng", Sub: "sỉ", Name: "xuất_trong_kỳ_sỉ"},
}

var spaceRun = regexp.MustCompile(`\s+`)

// CleanHeader normalizes one header label: trimmed, NFC, no line breaks,
// whitespace runs joined with underscores, lowercase.
func CleanHeader(s string) string {
	s = norm.NFC.String(s)
	s = strings.ReplaceAll(s, "\u00a0", " ")
	s = strings.ReplaceAll(s, "\r", "")
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.TrimSpace(s)
	s = spaceRun.ReplaceAllString(s, "_")
	return strings.ToLower(s)
}

// Combine flattens header rows into exactly max(width, longest row) unique
// names. The first row is forward-filled; each following row is joined
// to the running label with an underscore. Rows past the second are
// checked against Overrides. It fails only when rows is empty.
func Combine(rows [][]string, width int) ([]string, error) {
	if len(rows) == 0 {
		return nil, eris.New("schema: no header rows")
	}
	for _, r := range rows {
		if len(r) > width {
			width = len(r)
		}
	}

	cleaned := make([][]string, len(rows))
	for i, r := range rows {
		cleaned[i] = pad(r, width)
	}

	names := forwardFill(cleaned[0])
	for level := 1; level < len(cleaned); level++ {
		sub := cleaned[level]
		for c := range names {
			names[c] = join(names[c], sub[c], level >= 2)
		}
	}
	return Dedupe(names), nil
}

func pad(r []string, width int) []string {
	out := make([]string, width)
	for i := range out {
		if i < len(r) {
			out[i] = CleanHeader(r[i])
		}
	}
	return out
}

func forwardFill(r []string) []string {
	out := make([]string, len(r))
	last := ""
	for i, h := range r {
		if h != "" {
			last = h
		}
		out[i] = last
	}
	return out
}

func join(upper, sub string, overrides bool) string {
	if overrides {
		for _, o := range Overrides {
			if sub == o.Sub && strings.Contains(upper, o.Contains) {
				return o.Name
			}
		}
	}
	switch {
	case upper != "" && sub != "":
		return upper + "_" + sub
	case upper != "":
		return upper
	default:
		return sub
	}
}

// Dedupe replaces blank names with Placeholder and suffixes repeats with
// _1, _2, ... until every name is unique.
func Dedupe(names []string) []string {
	out := make([]string, len(names))
	used := make(map[string]bool, len(names))
	counts := make(map[string]int, len(names))
	for i, n := range names {
		if n == "" {
			n = Placeholder
		}
		name := n
		for used[name] {
			counts[n]++
			name = n + "_" + strconv.Itoa(counts[n])
		}
		used[name] = true
		out[i] = name
	}
	return out
}

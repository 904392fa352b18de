// Package standardize converts raw spreadsheet strings into typed cells.
package standardize

import (
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/sells-group/catalog-reconcile/internal/model"
)

var nullTokens = map[string]bool{
	"nan":  true,
	"nat":  true,
	"none": true,
	"null": true,
	"<na>": true,
}

// CleanString trims a raw value, normalizes it to NFC and replaces
// non-breaking spaces.
func CleanString(s string) string {
	s = norm.NFC.String(s)
	s = strings.ReplaceAll(s, "\u00a0", " ")
	return strings.TrimSpace(s)
}

// Clean returns a text cell, or a null cell for empty and NaN-like input.
func Clean(s string) model.Cell {
	s = CleanString(s)
	if s == "" || nullTokens[strings.ToLower(s)] {
		return model.Null()
	}
	return model.Text(s)
}

var parenNegative = regexp.MustCompile(`^\((.*)\)$`)

// ParseLocaleNumber parses a number written with dots as thousands
// separators and a comma as the decimal mark. Parenthesized values are
// negative and a lone dash is zero. Unparsable input yields a null cell.
func ParseLocaleNumber(s string) model.Cell {
	c := Clean(s)
	if c.IsNull() {
		return c
	}
	v := c.Text
	if v == "-" {
		return model.Number(0)
	}
	neg := false
	if m := parenNegative.FindStringSubmatch(v); m != nil {
		neg = true
		v = strings.TrimSpace(m[1])
	}
	v = strings.ReplaceAll(v, " ", "")
	v = strings.ReplaceAll(v, ".", "")
	v = strings.ReplaceAll(v, ",", ".")
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return model.Null()
	}
	if neg {
		f = -f
	}
	return model.Number(f)
}

// ParseNumber parses a machine-formatted number such as those in staged
// CSV files. Unparsable input yields a null cell.
func ParseNumber(s string) model.Cell {
	c := Clean(s)
	if c.IsNull() {
		return c
	}
	f, err := strconv.ParseFloat(c.Text, 64)
	if err != nil {
		return model.Null()
	}
	return model.Number(f)
}

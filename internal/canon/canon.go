// Package canon rewrites free-text product names into one canonical form.
package canon

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// maxPasses bounds how many times the rewrite pipeline is rerun while
// the output is still changing.
const maxPasses = 4

// Rule is one named rewrite step.
type Rule struct {
	Name string
	re   *regexp.Regexp
	repl string
	fn   func(*regexp.Regexp, string) string
}

func (r Rule) apply(s string) string {
	if r.fn != nil {
		return r.fn(r.re, s)
	}
	return r.re.ReplaceAllString(s, r.repl)
}

func rule(name, pattern, repl string) Rule {
	return Rule{Name: name, re: regexp.MustCompile(pattern), repl: repl}
}

// fixpoint reapplies a replacement until it stops changing the string, so
// overlapping matches such as "1 / 2 / 3" are fully rewritten.
func fixpoint(re *regexp.Regexp, repl string) func(*regexp.Regexp, string) string {
	return func(_ *regexp.Regexp, s string) string {
		for i := 0; i < 8; i++ {
			next := re.ReplaceAllString(s, repl)
			if next == s {
				break
			}
			s = next
		}
		return s
	}
}

var digitSeparator = regexp.MustCompile(`(\d)\s*([/\-*.])\s*(\d)`)

// SpacingRules normalize whitespace around separators.
var SpacingRules = []Rule{
	{Name: "digit-separator", re: digitSeparator, fn: fixpoint(digitSeparator, "${1}${2}${3}")},
	rule("letter-slash", `(\p{L})\s*/\s*(\p{L})`, "${1}/${2}"),
	rule("letter-dot", `(\p{L})\.\s+`, "${1}."),
	rule("paren-open", `\(\s+`, "("),
	rule("paren-close", `\s+\)`, ")"),
	rule("comma", `\s*,\s*`, ","),
}

// DimensionRules rewrite size notations into W/H-D, W.D-D and NxM forms.
var DimensionRules = []Rule{
	rule("leading-unit-letter", `(^|\s)L\.?\s*(\d)`, "${1}${2}"),
	rule("triple-part", `(\d+)/(\d+)/(\d+)`, "${1}/${2}-${3}"),
	rule("spaced-rim", `(\d+)/(\d+)\s+(\d+)`, "${1}/${2}-${3}"),
	rule("bicycle", `(\d+)\s*[*xX]\s*(\d+[A-Z]?)`, "${1}x${2}"),
}

var regionGroup = regexp.MustCompile(`\(([\p{Lu}]+(?:,[\p{Lu}]+)+)\)`)

// TypeRules normalize construction, ply and region markers.
var TypeRules = []Rule{
	rule("tubeless-spaced", `(?i)\bT\s+L\b`, "T/L"),
	rule("tubeless", `(?i)\bTL\b`, "T/L"),
	rule("tubed", `\bTT\b`, "T/T"),
	rule("ply-spacing", `(\d+)\s+PR\b`, "${1}PR"),
	{Name: "region", re: regionGroup, fn: func(re *regexp.Regexp, s string) string {
		return re.ReplaceAllStringFunc(s, func(m string) string {
			inner := re.FindStringSubmatch(m)[1]
			return "-" + strings.ReplaceAll(inner, ",", "/")
		})
	}},
}

var whitespace = regexp.MustCompile(`\s+`)

// Canonicalizer applies the rewrite pipeline with a fixed dictionary.
type Canonicalizer struct {
	typos    []typoRule
	variants map[string]Brand
	types    map[string]bool
}

type typoRule struct {
	re     *regexp.Regexp
	to     string
	suffix string
}

// New builds a canonicalizer from d.
func New(d Dictionary) *Canonicalizer {
	c := &Canonicalizer{
		variants: make(map[string]Brand),
		types:    make(map[string]bool, len(d.ProductTypes)),
	}
	for _, t := range d.Typos {
		from := strings.ToUpper(t.From)
		to := strings.ToUpper(t.To)
		tr := typoRule{re: regexp.MustCompile(`(?i)` + regexp.QuoteMeta(from)), to: to}
		if strings.HasPrefix(to, from) {
			tr.suffix = to[len(from):]
		}
		c.typos = append(c.typos, tr)
	}
	for _, b := range d.Brands {
		b.Name = strings.ToUpper(b.Name)
		c.variants[b.Name] = b
		for _, v := range b.Variants {
			c.variants[strings.ToUpper(v)] = b
		}
	}
	for _, p := range d.ProductTypes {
		c.types[strings.ToUpper(strings.TrimSpace(p))] = true
	}
	return c
}

// Default returns a canonicalizer over DefaultDictionary.
func Default() *Canonicalizer { return New(DefaultDictionary()) }

// Canonicalize rewrites a product name. It never fails: every input has
// exactly one output, and the output is a fixed point of Canonicalize.
func (c *Canonicalizer) Canonicalize(name string) string {
	s := norm.NFC.String(name)
	for i := 0; i < maxPasses; i++ {
		next := c.pass(s)
		if next == s {
			break
		}
		s = next
	}
	return s
}

func (c *Canonicalizer) pass(s string) string {
	s = collapse(s)
	// Type markers go before dimensions: the L of a spaced "T L" is not a
	// leading unit letter.
	for _, group := range [][]Rule{SpacingRules, TypeRules, DimensionRules} {
		for _, r := range group {
			s = r.apply(s)
		}
		s = collapse(s)
	}
	s = c.FixTypos(s)
	return c.unifyBrand(s)
}

// FixTypos replaces known misspellings, matching case-insensitively. A
// match already followed by the rest of its correction is left alone.
func (c *Canonicalizer) FixTypos(s string) string {
	for _, t := range c.typos {
		locs := t.re.FindAllStringIndex(s, -1)
		if len(locs) == 0 {
			continue
		}
		var b strings.Builder
		last := 0
		for _, loc := range locs {
			if t.suffix != "" && strings.HasPrefix(strings.ToUpper(s[loc[1]:]), t.suffix) {
				continue
			}
			b.WriteString(s[last:loc[0]])
			b.WriteString(t.to)
			last = loc[1]
		}
		b.WriteString(s[last:])
		s = b.String()
	}
	return s
}

// brandPosition returns the index of the word that carries the brand: the
// first word, or the second when the first is a product-type keyword.
func (c *Canonicalizer) brandPosition(words []string) int {
	if len(words) == 0 {
		return -1
	}
	if c.types[strings.ToUpper(words[0])] {
		if len(words) > 1 {
			return 1
		}
		return -1
	}
	return 0
}

func (c *Canonicalizer) unifyBrand(s string) string {
	words := strings.Split(s, " ")
	i := c.brandPosition(words)
	if i < 0 {
		return s
	}
	b, ok := c.variants[strings.ToUpper(words[i])]
	if !ok || words[i] == b.Name {
		return s
	}
	words[i] = b.Name
	return strings.Join(words, " ")
}

// Brand returns the canonical brand carried by name, if any.
func (c *Canonicalizer) Brand(name string) (Brand, bool) {
	words := strings.Fields(strings.TrimSpace(name))
	i := c.brandPosition(words)
	if i < 0 {
		return Brand{}, false
	}
	b, ok := c.variants[strings.ToUpper(words[i])]
	return b, ok
}

// IsProductType reports whether word is a generic product-type keyword.
func (c *Canonicalizer) IsProductType(word string) bool {
	return c.types[strings.ToUpper(word)]
}

var codeJunk = regexp.MustCompile(`[^A-Za-z0-9\-]`)

// CleanCode strips everything but letters, digits and hyphens from a
// product code and uppercases it.
func CleanCode(code string) string {
	return strings.ToUpper(codeJunk.ReplaceAllString(code, ""))
}

func collapse(s string) string {
	return strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
}

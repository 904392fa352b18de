package canon

import (
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Typo is a known misspelling and its correction.
type Typo struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

// Brand is a canonical brand token with its spelling variants.
type Brand struct {
	Name     string   `yaml:"name"`
	Category string   `yaml:"category"`
	Variants []string `yaml:"variants"`
}

// Dictionary holds the fixed rewrite tables used by the canonicalizer.
type Dictionary struct {
	Typos        []Typo   `yaml:"typos"`
	Brands       []Brand  `yaml:"brands"`
	ProductTypes []string `yaml:"product_types"`
}

// Brand categories.
const (
	CategoryTire    = "tire"
	CategoryBattery = "battery"
	CategoryOil     = "oil"
	CategoryOther   = "other"
)

// DefaultDictionary returns the built-in tables.
func DefaultDictionary() Dictionary {
	return Dictionary{
		Typos: []Typo{
			{From: "BIAGO", To: "PIAGIO"},
			{From: "YOKO", To: "YOKOHAMA"},
			{From: "MICHENLIN", To: "MICHELIN"},
		},
		Brands: []Brand{
			{Name: "GLOBE", Category: CategoryOther, Variants: []string{"LOBE"}},
			{Name: "INOUE", Category: CategoryTire, Variants: []string{"INU", "INOU"}},
			{Name: "CHENGSHIN", Category: CategoryTire, Variants: []string{"CHENGSIN"}},
			{Name: "CAMEL", Category: CategoryTire, Variants: []string{"CHEETAH"}},
			{Name: "MAXXIS", Category: CategoryTire, Variants: []string{"MAXIS"}},
			{Name: "KENDA", Category: CategoryTire},
			{Name: "MICHELIN", Category: CategoryTire, Variants: []string{"MICHELLIN", "MICHENLIN"}},
			{Name: "DUNLOP", Category: CategoryTire},
			{Name: "YOKOHAMA", Category: CategoryTire, Variants: []string{"YOKO"}},
			{Name: "CASUMINA", Category: CategoryTire},
			{Name: "CONTINENTAL", Category: CategoryTire},
			{Name: "PIRELLI", Category: CategoryTire},
			{Name: "BRIDGESTONE", Category: CategoryTire},
			{Name: "GOODYEAR", Category: CategoryTire},
			{Name: "HANKOOK", Category: CategoryTire},
			{Name: "WAVE", Category: CategoryBattery},
			{Name: "DREAM", Category: CategoryBattery},
			{Name: "GS", Category: CategoryBattery},
			{Name: "TITAN", Category: CategoryBattery},
			{Name: "VINFAST", Category: CategoryBattery},
			{Name: "YAMAHA", Category: CategoryOil},
			{Name: "CASTROL", Category: CategoryOil},
			{Name: "SHELL", Category: CategoryOil},
			{Name: "MOTUL", Category: CategoryOil},
			{Name: "TOTAL", Category: CategoryOil},
		},
		ProductTypes: []string{"VỎ", "VO", "LỐP", "RUỘT", "SĂM", "BÌNH", "NHỚT"},
	}
}

// LoadDictionary reads extra entries from YAML and merges them over the
// built-in tables.
func LoadDictionary(r io.Reader) (Dictionary, error) {
	var extra Dictionary
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&extra); err != nil && err != io.EOF {
		return Dictionary{}, eris.Wrap(err, "canon: decode dictionary")
	}
	for _, t := range extra.Typos {
		if strings.TrimSpace(t.From) == "" || strings.TrimSpace(t.To) == "" {
			return Dictionary{}, eris.Errorf("canon: typo entry %q -> %q is incomplete", t.From, t.To)
		}
	}
	return Merge(DefaultDictionary(), extra), nil
}

// Merge appends extra entries to base. A brand already present in base
// gains the extra variants.
func Merge(base, extra Dictionary) Dictionary {
	out := Dictionary{
		Typos:        append(append([]Typo(nil), base.Typos...), extra.Typos...),
		ProductTypes: append(append([]string(nil), base.ProductTypes...), extra.ProductTypes...),
	}
	idx := make(map[string]int, len(base.Brands))
	for _, b := range base.Brands {
		b.Variants = append([]string(nil), b.Variants...)
		idx[strings.ToUpper(b.Name)] = len(out.Brands)
		out.Brands = append(out.Brands, b)
	}
	for _, b := range extra.Brands {
		if i, ok := idx[strings.ToUpper(b.Name)]; ok {
			out.Brands[i].Variants = append(out.Brands[i].Variants, b.Variants...)
			continue
		}
		idx[strings.ToUpper(b.Name)] = len(out.Brands)
		out.Brands = append(out.Brands, b)
	}
	return out
}

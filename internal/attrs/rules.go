// Package attrs extracts structured attributes from canonical product names.
package attrs

import (
	"fmt"
	"regexp"
	"strings"
)

// Attribute keys in extraction order.
const (
	KeyDimension   = "Kích thước"
	KeyTireType    = "Loại vỏ"
	KeyPosition    = "Vị trí"
	KeyPly         = "Chỉ số PR"
	KeyLoadIndex   = "Chỉ số tải"
	KeyRegion      = "Khu vực"
	KeyBatteryCode = "Mã bình"
	KeyVoltage     = "Điện áp"
	KeyOilVolume   = "Dung tích nhớt"
	KeyOilBrand    = "Thương hiệu nhớt"
	KeyBeltLength  = "Chiều dây curoa"
)

// Attribute values.
const (
	Tubeless = "Không ruột"
	Tubed    = "Có ruột"
	Front    = "Vỏ trước"
	Rear     = "Vỏ sau"
)

// DimensionRule recognizes one size notation. Rules are evaluated in
// order and the first match wins.
type DimensionRule struct {
	Name    string
	Pattern *regexp.Regexp
	// Format renders the matched groups as the attribute value.
	Format func(m []string) string
	// Explain renders the matched groups as a description sentence.
	Explain func(m []string) string
}

func commaDecimal(s string) string { return strings.ReplaceAll(s, ".", ",") }

var dimensionRules = []DimensionRule{
	{
		Name:    "fractional",
		Pattern: regexp.MustCompile(`\b(\d+)/(\d+)-(\d+)\b`),
		Format:  func(m []string) string { return fmt.Sprintf("%s/%s-%s", m[1], m[2], m[3]) },
		Explain: func(m []string) string {
			return fmt.Sprintf("Kích thước lốp: rộng %s milimét, cao %s milimét, đường kính %s insơ", m[1], m[2], m[3])
		},
	},
	{
		Name:    "triple",
		Pattern: regexp.MustCompile(`\b(\d+)/(\d+)/(\d+)\b`),
		Format:  func(m []string) string { return fmt.Sprintf("%s/%s/%s", m[1], m[2], m[3]) },
		Explain: func(m []string) string {
			return fmt.Sprintf("Kích thước lốp: rộng %s milimét, cao %s milimét, đường kính %s insơ", m[1], m[2], m[3])
		},
	},
	{
		Name:    "tube-range",
		Pattern: regexp.MustCompile(`\b(\d+\.\d+)/(\d+\.\d+)-(\d+)\b`),
		Format:  func(m []string) string { return fmt.Sprintf("%s/%s-%s", m[1], m[2], m[3]) },
		Explain: func(m []string) string {
			return fmt.Sprintf("Kích thước ruột: rộng %s đến %s insơ, đường kính %s insơ", commaDecimal(m[1]), commaDecimal(m[2]), m[3])
		},
	},
	{
		Name:    "decimal",
		Pattern: regexp.MustCompile(`\b(\d+\.\d+)-(\d+)\b`),
		Format:  func(m []string) string { return fmt.Sprintf("%s-%s", m[1], m[2]) },
		Explain: func(m []string) string {
			return fmt.Sprintf("Kích thước lốp: rộng %s insơ, đường kính %s insơ", commaDecimal(m[1]), m[2])
		},
	},
	{
		Name:    "french",
		Pattern: regexp.MustCompile(`\b(\d+)x(\d+(?:\.\d+)?)([A-Z]?)\b`),
		Format:  func(m []string) string { return fmt.Sprintf("%sx%s%s", m[1], m[2], m[3]) },
		Explain: func(m []string) string {
			return fmt.Sprintf("Kích thước lốp: đường kính %s insơ, rộng %s insơ", m[1], commaDecimal(m[2]))
		},
	},
	{
		Name:    "american",
		Pattern: regexp.MustCompile(`\b(\d+)-(\d+)-(\d+)\b`),
		Format:  func(m []string) string { return fmt.Sprintf("%s-%s-%s", m[1], m[2], m[3]) },
		Explain: func(m []string) string {
			return fmt.Sprintf("Kích thước lốp: rộng %s insơ, đường kính %s insơ, mẫu %s", m[1], m[2], m[3])
		},
	},
	{
		Name:    "tube-simple",
		Pattern: regexp.MustCompile(`\b(\d{2,3})-(\d{2})\b`),
		Format:  func(m []string) string { return fmt.Sprintf("%s-%s", m[1], m[2]) },
		Explain: func(m []string) string {
			return fmt.Sprintf("Kích thước lốp: rộng %s milimét, đường kính %s insơ", m[1], m[2])
		},
	},
	{
		Name:    "bolt",
		Pattern: regexp.MustCompile(`\b(\d+)[xX-](\d+)\b`),
		Format:  func(m []string) string { return fmt.Sprintf("%sx%s", m[1], m[2]) },
		Explain: func(m []string) string {
			return fmt.Sprintf("Kích thước lốp: mẫu %s, đường kính %s milimét", m[1], m[2])
		},
	},
}

// Rules returns the dimension rules in priority order.
func Rules() []DimensionRule {
	return append([]DimensionRule(nil), dimensionRules...)
}

// RuleNames returns the dimension rule names in priority order.
func RuleNames() []string {
	names := make([]string, len(dimensionRules))
	for i, r := range dimensionRules {
		names[i] = r.Name
	}
	return names
}

// matchDimension returns the first rule that matches s with its groups.
func matchDimension(s string) (*DimensionRule, []string) {
	for i := range dimensionRules {
		if m := dimensionRules[i].Pattern.FindStringSubmatch(s); m != nil {
			return &dimensionRules[i], m
		}
	}
	return nil, nil
}

// word wraps p so it only matches as a whole word. Letters outside ASCII
// count as word characters.
func word(p string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)(?:^|[^\p{L}\p{N}_])(?:` + p + `)(?:[^\p{L}\p{N}_]|$)`)
}

var (
	tireKeyword = regexp.MustCompile(`(?i)vỏ|lốp|tyre|tire`)
	tubelessRe  = regexp.MustCompile(`(?i)\bT/?L\b`)
	tubedRe     = regexp.MustCompile(`\bT/?T\b`)
	tubedTRRe   = regexp.MustCompile(`(?i)\bTR\b`)

	frontRe = []*regexp.Regexp{word(`trước`), word(`front`), word(`F`)}
	rearRe  = []*regexp.Regexp{word(`sau`), word(`rear`), word(`R`)}

	plyRe        = regexp.MustCompile(`(?i)(\d+)PR`)
	loadIndexRe  = regexp.MustCompile(`(?:^|[^\p{L}\p{N}_])(\d+)(\p{Lu})(?:[^\p{L}\p{N}_]|$)`)
	regionDashRe = regexp.MustCompile(`-(\p{Lu}+(?:/\p{Lu}+)*)(?:[^\p{L}\p{N}_]|$)`)
	regionParRe  = regexp.MustCompile(`\(\s*(\p{Lu}+(?:\s*,\s*\p{Lu}+)+)\s*\)`)
	batteryRe    = regexp.MustCompile(`(?i)\b((?:YTZ|WTZ|WP|YB\dL|YB\d)[0-9A-Z-]*)\b`)
	voltageRe    = regexp.MustCompile(`(\d+)[vV](?:[^\p{L}\p{N}_]|$)`)
	oilVolumeRe  = regexp.MustCompile(`(?i)(\d+(?:[.,]\d+)?)\s*(ml|l)(?:[^\p{L}\p{N}_]|$)`)
	beltRe       = regexp.MustCompile(`(?i)(?:dây\s*curoa|curoa|dây\s*passer|dây\s*ga).*?(\d{3,4})\b`)
	spaceCommaRe = regexp.MustCompile(`\s*,\s*`)
)

// OilBrands are matched as substrings in this order.
var OilBrands = []string{
	"HONDA", "YAMAHA", "PIAGIO", "SUZUKI", "CASTROL", "SHELL", "MOTUL",
	"TOTAL", "THẮNG MEKONG", "VISTRA", "POWER", "TABET", "ACTIVE",
}

package attrs

import "regexp"

// Parent product groups.
const (
	ParentTire    = "Vỏ"
	ParentTube    = "Ruột"
	ParentOil     = "Nhớt"
	ParentBattery = "Bình"
	ParentOther   = "Phụ tùng khác"
)

// Child vehicle groups.
const (
	ChildMotorbike = "Xe máy"
	ChildBicycle   = "Xe đạp"
	ChildOther     = "Xe khác"
)

// Class is the two-level product group of a name.
type Class struct {
	Parent   string `json:"parent"`
	Child    string `json:"child"`
	Position string `json:"position,omitempty"`
}

// String renders the class as "parent>>child".
func (c Class) String() string { return c.Parent + ">>" + c.Child }

type parentRule struct {
	parent   string
	patterns []*regexp.Regexp
}

var parentRules = []parentRule{
	{ParentTube, []*regexp.Regexp{word(`săm`), word(`tube`), word(`ruột`)}},
	{ParentTire, []*regexp.Regexp{word(`vỏ`), word(`lốp`), word(`tyre`), word(`tire`)}},
	{ParentOil, []*regexp.Regexp{word(`nhớt`), word(`dầu`), word(`oil`)}},
	{ParentBattery, []*regexp.Regexp{word(`bình`), word(`ắc quy`), word(`battery`)}},
	{ParentOther, []*regexp.Regexp{
		word(`dây`), word(`curoa`), word(`passer`), word(`phanh`), word(`brake`), word(`keo`),
		word(`mâm`), word(`nồi`), word(`xích`), word(`trục`), word(`đĩa`), word(`cốt`), word(`niền`),
	}},
}

var (
	dimensionHint = regexp.MustCompile(`\b\d+[-/.*x]\d+\b`)
	bicycleHint   = []*regexp.Regexp{word(`xe đạp`), regexp.MustCompile(`\b(?:700|650|600)x\w+`), regexp.MustCompile(`\b\d{2}x\d+(?:\.\d+)?\b`)}
	motoBattery   = regexp.MustCompile(`(?i)\b(?:YTZ|WTZ|WP|YB\dL|YB\d)`)
	motoOil       = regexp.MustCompile(`(?i)(?:HONDA|YAMAHA|PIAGIO|SUZUKI|DREAM|WAVE|VISION)\s*NHỚT|NHỚT\s*(?:HONDA|YAMAHA|PIAGIO|SUZUKI)`)
)

// Classify assigns the parent and child product group. Explicit keywords
// win over dimension hints; tube keywords are checked before tire keywords
// since tube names also carry tire sizes.
func Classify(name string) Class {
	parent := classifyParent(name)
	c := Class{Parent: parent, Child: classifyChild(name, parent)}
	if parent == ParentTire || parent == ParentTube {
		c.Position = position(name)
	}
	return c
}

func classifyParent(name string) string {
	for _, r := range parentRules {
		for _, re := range r.patterns {
			if re.MatchString(name) {
				return r.parent
			}
		}
	}
	if dimensionHint.MatchString(name) {
		return ParentTire
	}
	return ParentOther
}

func classifyChild(name, parent string) string {
	switch parent {
	case ParentTire, ParentTube:
		for _, re := range bicycleHint {
			if re.MatchString(name) {
				return ChildBicycle
			}
		}
		return ChildMotorbike
	case ParentBattery:
		if motoBattery.MatchString(name) {
			return ChildMotorbike
		}
		return ChildOther
	case ParentOil:
		if motoOil.MatchString(name) {
			return ChildMotorbike
		}
		return ChildOther
	default:
		return ChildOther
	}
}

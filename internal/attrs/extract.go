package attrs

import "strings"

// Pair is one extracted attribute.
type Pair struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// AttributeSet is the ordered result of extraction. It is derived from a
// name once and not modified afterwards.
type AttributeSet struct {
	Pairs       []Pair `json:"pairs"`
	Description string `json:"description"`
	// DimensionRule names the dimension rule that matched, if any.
	DimensionRule string `json:"dimension_rule,omitempty"`
}

// Get returns the value for key.
func (a AttributeSet) Get(key string) (string, bool) {
	for _, p := range a.Pairs {
		if p.Key == key {
			return p.Value, true
		}
	}
	return "", false
}

// Empty reports whether nothing was extracted.
func (a AttributeSet) Empty() bool { return len(a.Pairs) == 0 }

// String renders the set as key:value pairs joined by "|".
func (a AttributeSet) String() string {
	parts := make([]string, len(a.Pairs))
	for i, p := range a.Pairs {
		parts[i] = p.Key + ":" + p.Value
	}
	return strings.Join(parts, "|")
}

type builder struct {
	pairs []Pair
	desc  []string
}

func (b *builder) add(key, value, sentence string) {
	b.pairs = append(b.pairs, Pair{Key: key, Value: value})
	b.desc = append(b.desc, sentence)
}

// Extract pulls every recognizable attribute out of name. Unrecognized
// names yield an empty set and an empty description.
func Extract(name string) AttributeSet {
	name = strings.TrimSpace(name)
	var out AttributeSet
	if name == "" {
		return out
	}
	b := &builder{}

	rule, m := matchDimension(name)
	if rule != nil {
		out.DimensionRule = rule.Name
		b.add(KeyDimension, rule.Format(m), rule.Explain(m))
	}

	tire := rule != nil || tireKeyword.MatchString(name)
	if v := tireType(name, tire); v != "" {
		b.add(KeyTireType, v, "Loại lốp: "+v)
	}
	if v := position(name); v != "" {
		b.add(KeyPosition, v, "Vị trí: "+v)
	}
	if m := plyRe.FindStringSubmatch(name); m != nil {
		b.add(KeyPly, m[1]+"PR", "Chỉ số chịu tải: "+m[1]+" lớp")
	}
	if v := loadIndex(name, tire); v != "" {
		b.add(KeyLoadIndex, v, "Chỉ số tải: "+v)
	}
	if v := region(name); v != "" {
		b.add(KeyRegion, v, "Khu vực: "+strings.ReplaceAll(v, "/", " và "))
	}
	if m := batteryRe.FindStringSubmatch(name); m != nil {
		v := strings.ToUpper(m[1])
		b.add(KeyBatteryCode, v, "Mã bình: "+v)
	}
	if m := voltageRe.FindStringSubmatch(name); m != nil {
		v := m[1] + "V"
		b.add(KeyVoltage, v, "Điện áp: "+v)
	}
	if m := oilVolumeRe.FindStringSubmatch(name); m != nil {
		unit := strings.ToUpper(m[2])
		spoken := " lít"
		if unit == "ML" {
			spoken = " mililít"
		}
		b.add(KeyOilVolume, m[1]+unit, "Dung tích: "+m[1]+spoken)
	}
	if v := oilBrand(name); v != "" {
		b.add(KeyOilBrand, v, "Thương hiệu: "+v)
	}
	if m := beltRe.FindStringSubmatch(name); m != nil {
		b.add(KeyBeltLength, m[1], "Chiều dài dây curoa: "+m[1])
	}

	out.Pairs = b.pairs
	out.Description = strings.Join(b.desc, ". ")
	return out
}

// tireType infers tube construction only for names that look like tires.
func tireType(name string, tire bool) string {
	if !tire {
		return ""
	}
	switch {
	case tubelessRe.MatchString(name):
		return Tubeless
	case tubedRe.MatchString(name), tubedTRRe.MatchString(name):
		return Tubed
	}
	return ""
}

func position(name string) string {
	for _, re := range frontRe {
		if re.MatchString(name) {
			return Front
		}
	}
	for _, re := range rearRe {
		if re.MatchString(name) {
			return Rear
		}
	}
	return ""
}

// loadIndex finds a standalone number directly followed by one capital
// letter, such as 38P, on tire names. Voltages are excluded; ply ratings
// never match since PR is two letters.
func loadIndex(name string, tire bool) string {
	if !tire {
		return ""
	}
	for _, m := range loadIndexRe.FindAllStringSubmatch(name, -1) {
		if m[2] == "V" {
			continue
		}
		return m[1] + m[2]
	}
	return ""
}

func region(name string) string {
	if m := regionDashRe.FindStringSubmatch(name); m != nil {
		return m[1]
	}
	if m := regionParRe.FindStringSubmatch(name); m != nil {
		return spaceCommaRe.ReplaceAllString(m[1], "/")
	}
	return ""
}

func oilBrand(name string) string {
	upper := strings.ToUpper(name)
	for _, b := range OilBrands {
		if strings.Contains(upper, b) {
			return b
		}
	}
	return ""
}

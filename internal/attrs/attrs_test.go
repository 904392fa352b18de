package attrs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRuleOrder(t *testing.T) {
	assert.Equal(t, []string{
		"fractional",
		"triple",
		"tube-range",
		"decimal",
		"french",
		"american",
		"tube-simple",
		"bolt",
	}, RuleNames())
}

func TestDimensionRules(t *testing.T) {
	tests := []struct {
		name string
		in   string
		rule string
		want string
	}{
		{"fractional", "VỎ 80/90-17", "fractional", "80/90-17"},
		{"triple", "VỎ 80/90/17", "triple", "80/90/17"},
		{"tube range beats decimal", "RUỘT 2.25/2.50-17", "tube-range", "2.25/2.50-17"},
		{"decimal", "VỎ 2.50-17", "decimal", "2.50-17"},
		{"french", "VỎ 700x23C", "french", "700x23C"},
		{"french decimal", "LỐP 26x1.95", "french", "26x1.95"},
		{"american", "VỎ 1-50-17", "american", "1-50-17"},
		{"tube simple beats bolt", "RUỘT 250-17", "tube-simple", "250-17"},
		{"bolt", "ĐĨA 4-100", "bolt", "4x100"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Extract(tt.in)
			assert.Equal(t, tt.rule, got.DimensionRule)
			v, ok := got.Get(KeyDimension)
			require.True(t, ok)
			assert.Equal(t, tt.want, v)
		})
	}
}

func TestRuleOrderMatters(t *testing.T) {
	// Each input would also match a later, looser rule.
	cases := map[string]string{
		"RUỘT 2.25/2.50-17": "decimal",
		"RUỘT 250-17":       "bolt",
	}
	rules := Rules()
	for in, looser := range cases {
		matchedLooser := false
		for _, r := range rules {
			if r.Name == looser && r.Pattern.MatchString(in) {
				matchedLooser = true
			}
		}
		assert.True(t, matchedLooser, "%q should also match %s", in, looser)
		assert.NotEqual(t, looser, Extract(in).DimensionRule)
	}
}

func TestExtract_FullTire(t *testing.T) {
	got := Extract("VỎ MAXXIS 110/70-12 T/L 6PR 47P -N/S TRƯỚC")

	assert.Equal(t,
		"Kích thước:110/70-12|Loại vỏ:Không ruột|Vị trí:Vỏ trước|Chỉ số PR:6PR|Chỉ số tải:47P|Khu vực:N/S",
		got.String())
	assert.Equal(t,
		"Kích thước lốp: rộng 110 milimét, cao 70 milimét, đường kính 12 insơ. Loại lốp: Không ruột. "+
			"Vị trí: Vỏ trước. Chỉ số chịu tải: 6 lớp. Chỉ số tải: 47P. Khu vực: N và S",
		got.Description)
}

func TestExtract_TireTypeNeedsTireContext(t *testing.T) {
	got := Extract("KEO DÁN TL")
	_, ok := got.Get(KeyTireType)
	assert.False(t, ok)

	got = Extract("VỎ SAU T/T")
	v, ok := got.Get(KeyTireType)
	require.True(t, ok)
	assert.Equal(t, Tubed, v)
	v, _ = got.Get(KeyPosition)
	assert.Equal(t, Rear, v)

	got = Extract("80/90-17 TT")
	v, _ = got.Get(KeyTireType)
	assert.Equal(t, Tubed, v)
}

func TestExtract_Battery(t *testing.T) {
	got := Extract("BÌNH GS WTZ5S 12V")
	v, _ := got.Get(KeyBatteryCode)
	assert.Equal(t, "WTZ5S", v)
	v, _ = got.Get(KeyVoltage)
	assert.Equal(t, "12V", v)
	_, ok := got.Get(KeyLoadIndex)
	assert.False(t, ok)
	assert.Contains(t, got.Description, "Mã bình: WTZ5S. Điện áp: 12V")
}

func TestExtract_Oil(t *testing.T) {
	got := Extract("NHỚT CASTROL 0.8L")
	assert.Equal(t, "Dung tích nhớt:0.8L|Thương hiệu nhớt:CASTROL", got.String())
	assert.Equal(t, "Dung tích: 0.8 lít. Thương hiệu: CASTROL", got.Description)

	got = Extract("NHỚT HỘP SỐ YAMAHA 120ml")
	v, _ := got.Get(KeyOilVolume)
	assert.Equal(t, "120ML", v)
	assert.Contains(t, got.Description, "Dung tích: 120 mililít")
}

func TestExtract_Belt(t *testing.T) {
	got := Extract("DÂY CUROA VISION 1025")
	v, ok := got.Get(KeyBeltLength)
	require.True(t, ok)
	assert.Equal(t, "1025", v)
	assert.Contains(t, got.Description, "Chiều dài dây curoa: 1025")
}

func TestExtract_Empty(t *testing.T) {
	for _, in := range []string{"", "   ", "ỐC VÍT"} {
		got := Extract(in)
		assert.True(t, got.Empty(), in)
		assert.Equal(t, "", got.Description)
		assert.Equal(t, "", got.String())
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		in   string
		want string
		pos  string
	}{
		{"VỎ MAXXIS 80/90-17 SAU", "Vỏ>>Xe máy", Rear},
		{"RUỘT 250-17", "Ruột>>Xe máy", ""},
		{"LỐP XE ĐẠP 26x1.95", "Vỏ>>Xe đạp", ""},
		{"BÌNH GS YTZ5S", "Bình>>Xe máy", ""},
		{"BÌNH 6V", "Bình>>Xe khác", ""},
		{"NHỚT HONDA 0.8L", "Nhớt>>Xe máy", ""},
		{"DẦU THẮNG", "Nhớt>>Xe khác", ""},
		{"DÂY CUROA 1025", "Phụ tùng khác>>Xe khác", ""},
		{"CHENGSHIN 80/90-17", "Vỏ>>Xe máy", ""},
		{"ỐC VÍT", "Phụ tùng khác>>Xe khác", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := Classify(tt.in)
			assert.Equal(t, tt.want, got.String())
			assert.Equal(t, tt.pos, got.Position)
		})
	}
}

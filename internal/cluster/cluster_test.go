package cluster

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, Similarity("VỎ MAXXIS 80/90-17", "vỏ maxxis 80/90-17"))
	assert.Equal(t, 1.0, Similarity("", ""))
	assert.Equal(t, 0.0, Similarity("ABC", ""))
	assert.InDelta(t, 0.2857, Similarity("VỎ MAXXIS 80/90-17", "NHỚT CASTROL 0.8L"), 0.001)
	assert.InDelta(t, 0.8462, Similarity("BÌNH GS 12V", "BÌNH GS 12V 5AH"), 0.001)
}

func TestGroup_Trivial(t *testing.T) {
	assert.Nil(t, Group(nil, DefaultThreshold))
	assert.Equal(t, [][]int{{0}}, Group([]string{"VỎ"}, DefaultThreshold))
}

func TestGroup_ChainIsTransitive(t *testing.T) {
	a := "VO MAXXIS 80/90-17 TL"
	b := "VO MAXXIS 80/90-17 TT 6PR"
	c := "VO MAXXIS 80/90-14 TT 6PR 47P"
	require.GreaterOrEqual(t, Similarity(a, b), DefaultThreshold)
	require.GreaterOrEqual(t, Similarity(b, c), DefaultThreshold)
	require.Less(t, Similarity(a, c), DefaultThreshold)

	assert.Equal(t, [][]int{{0, 1, 2}}, Group([]string{a, b, c}, DefaultThreshold))
	// Order of discovery does not break the chain.
	assert.Equal(t, [][]int{{0, 2, 1}}, Group([]string{a, c, b}, DefaultThreshold))
}

func TestGroup_BelowThresholdSplits(t *testing.T) {
	names := []string{"VỎ MAXXIS 80/90-17", "NHỚT CASTROL 0.8L"}
	assert.Equal(t, [][]int{{0}, {1}}, Group(names, DefaultThreshold))
}

func TestGroup_OrderedByFirstMember(t *testing.T) {
	names := []string{
		"VỎ CASUMINA 70/90-17",
		"NHỚT SHELL 1L",
		"VỎ CASUMINA 70/90-17 TL",
		"BÌNH GS WTZ5S",
		"NHỚT SHELL 0.8L",
	}
	groups := Group(names, DefaultThreshold)
	assert.Equal(t, [][]int{{0, 2}, {1, 4}, {3}}, groups)
	assert.Equal(t, [][]string{
		{"VỎ CASUMINA 70/90-17", "VỎ CASUMINA 70/90-17 TL"},
		{"NHỚT SHELL 1L", "NHỚT SHELL 0.8L"},
		{"BÌNH GS WTZ5S"},
	}, Names(names, groups))
}

func TestGroup_PartitionProperty(t *testing.T) {
	names := []string{"A1", "A2", "B1", "ZZZZ", "A1", "B2"}
	seen := map[int]bool{}
	for _, g := range Group(names, 0.5) {
		for _, idx := range g {
			assert.False(t, seen[idx], "index %d in two clusters", idx)
			seen[idx] = true
		}
	}
	assert.Len(t, seen, len(names))
}

// Package cluster groups the name variants observed for one product code
// into connected components of mutually similar names.
package cluster

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// DefaultThreshold is the minimum similarity for two names to be linked.
const DefaultThreshold = 0.8

// Similarity returns the matching-blocks ratio of the upper-cased names,
// in [0, 1]. Two empty names are identical.
func Similarity(a, b string) float64 {
	ra, rb := runes(strings.ToUpper(a)), runes(strings.ToUpper(b))
	if len(ra) == 0 && len(rb) == 0 {
		return 1
	}
	return difflib.NewMatcher(ra, rb).Ratio()
}

// runes splits s into one-rune strings so the matcher compares characters
// rather than lines.
func runes(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}

// Group partitions names into clusters and returns the member indexes of
// each. Clusters are ordered by their lowest member index and members are
// in breadth-first visiting order from that index.
func Group(names []string, threshold float64) [][]int {
	n := len(names)
	switch n {
	case 0:
		return nil
	case 1:
		return [][]int{{0}}
	}

	adj := make([][]int, n)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if Similarity(names[i], names[j]) >= threshold {
				adj[i] = append(adj[i], j)
				adj[j] = append(adj[j], i)
			}
		}
	}

	visited := make([]bool, n)
	var groups [][]int
	for start := 0; start < n; start++ {
		if visited[start] {
			continue
		}
		visited[start] = true
		queue := []int{start}
		var members []int
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			members = append(members, cur)
			for _, next := range adj[cur] {
				if !visited[next] {
					visited[next] = true
					queue = append(queue, next)
				}
			}
		}
		groups = append(groups, members)
	}
	return groups
}

// Names resolves the index groups returned by Group back to names.
func Names(names []string, groups [][]int) [][]string {
	out := make([][]string, len(groups))
	for i, g := range groups {
		for _, idx := range g {
			out[i] = append(out[i], names[idx])
		}
	}
	return out
}

// Package disambig decides, per product code, whether the observed name
// variants are one product or several, and builds the code mapping that
// every dataset in a run is rewritten with.
package disambig

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/catalog-reconcile/internal/canon"
	"github.com/sells-group/catalog-reconcile/internal/cluster"
	"github.com/sells-group/catalog-reconcile/internal/model"
)

// Action is the outcome for one code.
type Action string

const (
	// ActionKept means the code had a single name.
	ActionKept Action = "kept"
	// ActionNormalized means every variant was unified to one name.
	ActionNormalized Action = "normalized"
	// ActionSplit means the code was split into suffixed codes.
	ActionSplit Action = "split"
)

// Options controls mapping construction.
type Options struct {
	// Threshold is the minimum similarity for two names to be linked.
	// Zero selects cluster.DefaultThreshold.
	Threshold float64
	// Canon, when set, canonicalizes names before clustering and
	// corrects typos in the chosen names.
	Canon *canon.Canonicalizer
}

// Decision records what happened to one code.
type Decision struct {
	Code     string             `json:"code"`
	Action   Action             `json:"action"`
	Clusters [][]string         `json:"clusters"`
	Targets  []model.CodeTarget `json:"targets"`
}

// Stats summarizes a set of decisions.
type Stats struct {
	Codes      int `json:"codes"`
	Normalized int `json:"normalized"`
	Split      int `json:"split"`
	NewCodes   int `json:"new_codes"`
}

// Summarize counts decisions by action.
func Summarize(decisions []Decision) Stats {
	s := Stats{Codes: len(decisions)}
	for _, d := range decisions {
		switch d.Action {
		case ActionNormalized:
			s.Normalized++
		case ActionSplit:
			s.Split++
			s.NewCodes += len(d.Targets) - 1
		}
	}
	return s
}

// variant is one distinct cleaned name under a code.
type variant struct {
	name   string
	index  int
	newest time.Time
	keys   []model.CodeKey
}

type codeGroup struct {
	code     string
	variants []*variant
	byName   map[string]*variant
}

// Build computes the mapping from the union of all observed records.
// Codes appear in first-seen order and so do the names under each code;
// that order fixes which cluster keeps the bare code.
func Build(records []model.ProductNameRecord, opts Options) (*model.CodeMapping, []Decision) {
	threshold := opts.Threshold
	if threshold <= 0 {
		threshold = cluster.DefaultThreshold
	}

	var groups []*codeGroup
	byCode := make(map[string]*codeGroup)
	seen := make(map[model.CodeKey]bool)

	for _, r := range records {
		code := strings.TrimSpace(r.Code)
		if code == "" {
			continue
		}
		key := model.CodeKey{Code: r.Code, Name: r.Name}

		g, ok := byCode[code]
		if !ok {
			g = &codeGroup{code: code, byName: make(map[string]*variant)}
			byCode[code] = g
			groups = append(groups, g)
		}

		name := r.Name
		if opts.Canon != nil {
			name = opts.Canon.Canonicalize(name)
		}
		v, ok := g.byName[name]
		if !ok {
			v = &variant{name: name, index: len(g.variants)}
			g.byName[name] = v
			g.variants = append(g.variants, v)
		}
		if r.ObservedAt != nil && r.ObservedAt.After(v.newest) {
			v.newest = *r.ObservedAt
		}
		if !seen[key] {
			seen[key] = true
			v.keys = append(v.keys, key)
		}
	}

	var (
		keys      []model.CodeKey
		targets   []model.CodeTarget
		decisions []Decision
	)
	for _, g := range groups {
		clusters := clusterMembers(g, threshold)
		d := decide(g, clusters, opts.Canon)
		for i, members := range clusters {
			for _, v := range members {
				for _, k := range v.keys {
					keys = append(keys, k)
					targets = append(targets, d.Targets[i])
				}
			}
		}
		if d.Action != ActionKept {
			zap.L().Debug("disambig: code resolved",
				zap.String("code", d.Code),
				zap.String("action", string(d.Action)),
				zap.Int("clusters", len(d.Clusters)),
			)
			decisions = append(decisions, d)
		}
	}
	return model.NewCodeMapping(keys, targets), decisions
}

func clusterMembers(g *codeGroup, threshold float64) [][]*variant {
	names := make([]string, len(g.variants))
	for i, v := range g.variants {
		names[i] = v.name
	}
	idx := cluster.Group(names, threshold)
	out := make([][]*variant, len(idx))
	for i, members := range idx {
		for _, m := range members {
			out[i] = append(out[i], g.variants[m])
		}
	}
	return out
}

func decide(g *codeGroup, clusters [][]*variant, c *canon.Canonicalizer) Decision {
	d := Decision{Code: g.code}

	for i, members := range clusters {
		names := make([]string, len(members))
		for j, v := range members {
			names[j] = v.name
		}
		d.Clusters = append(d.Clusters, names)

		code := g.code
		if i > 0 {
			code = fmt.Sprintf("%s-%02d", g.code, i)
		}
		d.Targets = append(d.Targets, model.CodeTarget{Code: code, Name: newest(members, c)})
	}

	switch {
	case len(clusters) > 1:
		d.Action = ActionSplit
	case len(g.variants) > 1:
		d.Action = ActionNormalized
	default:
		d.Action = ActionKept
	}
	return d
}

// newest picks the most recently observed name of a cluster. Ties keep
// the earliest discovered name, whatever order the cluster lists them in.
func newest(members []*variant, c *canon.Canonicalizer) string {
	best := members[0]
	for _, v := range members[1:] {
		switch {
		case v.newest.After(best.newest):
			best = v
		case v.newest.Equal(best.newest) && v.index < best.index:
			best = v
		}
	}
	if c != nil {
		return c.FixTypos(best.name)
	}
	return best.name
}

package model

// CodeKey identifies an observed code/name pair.
type CodeKey struct {
	Code string `json:"original_code" csv:"original_code"`
	Name string `json:"original_name" csv:"original_name"`
}

// CodeTarget is the canonical code/name a key resolves to.
type CodeTarget struct {
	Code string `json:"final_code" csv:"final_code"`
	Name string `json:"final_name" csv:"final_name"`
}

// CodeMapping is the single code/name mapping applied to every dataset in
// a run. It is built once and never mutated after construction.
type CodeMapping struct {
	entries map[CodeKey]CodeTarget
	order   []CodeKey
}

// NewCodeMapping builds an immutable mapping from ordered entries. Later
// duplicates of a key are ignored.
func NewCodeMapping(keys []CodeKey, targets []CodeTarget) *CodeMapping {
	m := &CodeMapping{entries: make(map[CodeKey]CodeTarget, len(keys))}
	for i, k := range keys {
		if _, ok := m.entries[k]; ok {
			continue
		}
		m.entries[k] = targets[i]
		m.order = append(m.order, k)
	}
	return m
}

// Lookup resolves a key. Unknown keys resolve to themselves.
func (m *CodeMapping) Lookup(k CodeKey) (CodeTarget, bool) {
	t, ok := m.entries[k]
	if !ok {
		return CodeTarget{Code: k.Code, Name: k.Name}, false
	}
	return t, true
}

// Len returns the number of mapped keys.
func (m *CodeMapping) Len() int { return len(m.order) }

// MappingRow is the flat form of one mapping entry.
type MappingRow struct {
	CodeKey
	CodeTarget
}

// Rows returns the mapping in insertion order.
func (m *CodeMapping) Rows() []MappingRow {
	out := make([]MappingRow, 0, len(m.order))
	for _, k := range m.order {
		out = append(out, MappingRow{CodeKey: k, CodeTarget: m.entries[k]})
	}
	return out
}

// Changed reports entries whose code or name differs from the original.
func (m *CodeMapping) Changed() []MappingRow {
	var out []MappingRow
	for _, r := range m.Rows() {
		if r.CodeKey.Code != r.CodeTarget.Code || r.CodeKey.Name != r.CodeTarget.Name {
			out = append(out, r)
		}
	}
	return out
}

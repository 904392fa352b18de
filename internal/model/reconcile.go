package model

// ReconciliationResult is the outcome of one cross-source check.
type ReconciliationResult struct {
	Check        string   `json:"check"`
	SourceATotal float64  `json:"source_a_total"`
	SourceBTotal float64  `json:"source_b_total"`
	Difference   float64  `json:"difference"`
	AffectedKeys []string `json:"affected_keys"`
	Tolerance    float64  `json:"tolerance"`
}

// Passed reports whether no key exceeded the tolerance.
func (r ReconciliationResult) Passed() bool { return len(r.AffectedKeys) == 0 }

// Package tokenaudit summarizes blind-token state for administrative
// oversight. Purely observational: it never transitions token state and
// never sees how a token maps to a choice.
package tokenaudit

// TokenRecord is the subset of a persisted blind token the ledger inspects.
type TokenRecord struct {
	ID         int64
	ElectionID int64
	Signed     bool
	Used       bool
}

// Summary counts tokens by state. UnsignedAnomalous tokens should never
// persist past issuance; their presence signals an institution-key failure
// and is reported distinctly rather than folded into a "pending" bucket.
type Summary struct {
	Total             int `json:"total"`
	Signed            int `json:"signed"`
	Used              int `json:"used"`
	UnsignedAnomalous int `json:"unsigned_anomalous"`
}

// Summarize classifies each token record. A token is either unsigned
// (anomalous), signed-unused, or signed-used; Signed counts both of the
// signed states, Used only the consumed ones.
func Summarize(records []TokenRecord) Summary {
	var s Summary
	for _, r := range records {
		s.Total++
		if !r.Signed {
			s.UnsignedAnomalous++
			continue
		}
		s.Signed++
		if r.Used {
			s.Used++
		}
	}
	return s
}

// ByElection groups records by election id and summarizes each group.
func ByElection(records []TokenRecord) map[int64]Summary {
	grouped := make(map[int64][]TokenRecord)
	for _, r := range records {
		grouped[r.ElectionID] = append(grouped[r.ElectionID], r)
	}
	out := make(map[int64]Summary, len(grouped))
	for id, rs := range grouped {
		out[id] = Summarize(rs)
	}
	return out
}

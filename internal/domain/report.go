package domain

import "fmt"

// Outcome is the report producer's vocabulary. It is translated to a
// TransactionStatus and never stored as-is.
type Outcome string

const (
	OutcomeSuccess Outcome = "SUCCESS"
	OutcomeFail    Outcome = "FAIL"
)

// ParseOutcome accepts the exact, case-sensitive outcome tokens only.
func ParseOutcome(s string) (Outcome, error) {
	switch Outcome(s) {
	case OutcomeSuccess, OutcomeFail:
		return Outcome(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownOutcome, s)
	}
}

type ReportEntry struct {
	TransactionID string  `json:"transaction_id"`
	Outcome       Outcome `json:"outcome"`
}

// Report is a parsed settlement report. Entries keep payload order and ids
// are unique.
type Report struct {
	Entries []ReportEntry
	index   map[string]Outcome
}

// NewReport builds a report from entries. A repeated id keeps its last
// outcome; the parser rejects duplicates before getting here.
func NewReport(entries []ReportEntry) *Report {
	idx := make(map[string]Outcome, len(entries))
	for _, e := range entries {
		idx[e.TransactionID] = e.Outcome
	}
	return &Report{Entries: entries, index: idx}
}

func (r *Report) Len() int {
	return len(r.Entries)
}

// IDs returns the transaction ids in payload order.
func (r *Report) IDs() []string {
	ids := make([]string, 0, len(r.Entries))
	for _, e := range r.Entries {
		ids = append(ids, e.TransactionID)
	}
	return ids
}

func (r *Report) Outcome(id string) (Outcome, bool) {
	o, ok := r.index[id]
	return o, ok
}

package ingestion

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/wakala/status-reconciler/internal/domain"
)

// ParseReport decodes a settlement report of the form
//
//	{"<transaction id>": "SUCCESS" | "FAIL", ...}
//
// Entries keep the order they have in the payload. Anything that is not a
// flat object of string values, a repeated id, or an unknown outcome token
// fails with domain.ErrMalformedReport and nothing is returned.
func ParseReport(data []byte) (*domain.Report, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return nil, malformed("read start: %v", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, malformed("expected a JSON object, got %v", tok)
	}

	var entries []domain.ReportEntry
	seen := make(map[string]struct{})

	for dec.More() {
		tok, err = dec.Token()
		if err != nil {
			return nil, malformed("read key %d: %v", len(entries), err)
		}
		id, _ := tok.(string)
		if id == "" {
			return nil, malformed("entry %d has an empty transaction id", len(entries))
		}
		if _, dup := seen[id]; dup {
			return nil, malformed("duplicate transaction id %q", id)
		}
		seen[id] = struct{}{}

		tok, err = dec.Token()
		if err != nil {
			return nil, malformed("read value for %q: %v", id, err)
		}
		raw, ok := tok.(string)
		if !ok {
			return nil, malformed("value for %q is not a string", id)
		}

		outcome, err := domain.ParseOutcome(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: transaction %q: %w", domain.ErrMalformedReport, id, err)
		}
		entries = append(entries, domain.ReportEntry{TransactionID: id, Outcome: outcome})
	}

	if _, err := dec.Token(); err != nil {
		return nil, malformed("read end: %v", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, malformed("trailing data after report object")
	}

	return domain.NewReport(entries), nil
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", domain.ErrMalformedReport, fmt.Sprintf(format, args...))
}

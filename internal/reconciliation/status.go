package reconciliation

import (
	"fmt"

	"github.com/wakala/status-reconciler/internal/domain"
)

// MapOutcome translates a reported outcome into the store's status
// vocabulary. An outcome it does not know is a contract break with the
// report producer and is returned as domain.ErrUnknownOutcome.
func MapOutcome(outcome domain.Outcome) (domain.TransactionStatus, error) {
	switch outcome {
	case domain.OutcomeSuccess:
		return domain.StatusSuccess, nil
	case domain.OutcomeFail:
		return domain.StatusFailure, nil
	default:
		return "", fmt.Errorf("%w: %q", domain.ErrUnknownOutcome, string(outcome))
	}
}

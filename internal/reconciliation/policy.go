package reconciliation

import "github.com/wakala/status-reconciler/internal/domain"

// Resolve returns the status a transaction should move to given its reported
// outcome. A failed credit goes back to WAITING_TO_BE_SENT to be submitted
// again; credits are safe to retry, debits are not.
func Resolve(tx domain.Transaction, outcome domain.Outcome) (domain.TransactionStatus, error) {
	if tx.Direction == domain.DirectionCredit && outcome == domain.OutcomeFail {
		return domain.StatusWaitingToBeSent, nil
	}
	return MapOutcome(outcome)
}

package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Direction string

const (
	DirectionDebit  Direction = "DEBIT"
	DirectionCredit Direction = "CREDIT"
)

type TransactionStatus string

const (
	StatusWaitingToBeSent TransactionStatus = "WAITING_TO_BE_SENT"
	StatusSent            TransactionStatus = "SENT"
	StatusSuccess         TransactionStatus = "SUCCESS"
	StatusFailure         TransactionStatus = "FAILURE"
)

// StatusEligible is the only status a settlement report may move a
// transaction out of.
const StatusEligible = StatusSent

// Transaction is a locally recorded transaction. Direction never changes
// after creation; Status is owned by the submission path up to SENT and by
// the reconciler afterwards.
type Transaction struct {
	ID        string            `json:"id"`
	Direction Direction         `json:"direction"`
	Amount    decimal.Decimal   `json:"amount"`
	Currency  string            `json:"currency"`
	Status    TransactionStatus `json:"status"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

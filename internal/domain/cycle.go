package domain

import "time"

type CycleStatus string

const (
	CycleCompleted CycleStatus = "COMPLETED"
	CycleFailed    CycleStatus = "FAILED"
)

// Cycle summarises one reconciliation run.
type Cycle struct {
	ID            string                    `json:"id"`
	StartedAt     time.Time                 `json:"started_at"`
	FinishedAt    time.Time                 `json:"finished_at"`
	Status        CycleStatus               `json:"status"`
	ReportEntries int                       `json:"report_entries"`
	Matched       int                       `json:"matched"`
	Updated       int                       `json:"updated"`
	Unchanged     int                       `json:"unchanged"`
	UnmatchedIDs  []string                  `json:"unmatched_ids,omitempty"`
	Transitions   map[TransactionStatus]int `json:"transitions,omitempty"`
	Error         string                    `json:"error,omitempty"`

	// Err is the failure that aborted the cycle, nil when it completed.
	Err error `json:"-"`
}

func (c *Cycle) Failed() bool {
	return c.Status == CycleFailed
}

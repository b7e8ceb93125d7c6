package reconciliation

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wakala/status-reconciler/internal/domain"
	"github.com/wakala/status-reconciler/internal/ingestion"
)

// CycleRecorder stores finished cycles. Recording is best-effort: a failure
// is logged and does not change the cycle's outcome.
type CycleRecorder interface {
	RecordCycle(ctx context.Context, c *domain.Cycle) error
}

// Engine runs reconciliation cycles: download the settlement report, match
// it against transactions in SENT status and move each one to the status
// the report implies.
type Engine struct {
	source   domain.ReportSource
	store    domain.TransactionStore
	recorder CycleRecorder
	logger   *log.Logger
	verbose  bool
	now      func() time.Time
}

type Option func(*Engine)

func WithRecorder(r CycleRecorder) Option {
	return func(e *Engine) { e.recorder = r }
}

func WithLogger(l *log.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithVerbose logs every matched report entry and every updated id.
func WithVerbose(v bool) Option {
	return func(e *Engine) { e.verbose = v }
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine creates a reconciliation engine.
func NewEngine(source domain.ReportSource, store domain.TransactionStore, opts ...Option) *Engine {
	e := &Engine{
		source: source,
		store:  store,
		logger: log.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run performs one reconciliation cycle. It never panics and never leaves a
// partial update behind: every failure, including a panic below it, ends
// the cycle as FAILED with the store untouched. The next scheduled run is
// the retry.
func (e *Engine) Run(ctx context.Context) (cycle *domain.Cycle) {
	cycle = &domain.Cycle{ID: uuid.NewString(), StartedAt: e.now()}
	e.logger.Printf("[reconciliation] cycle %s: downloading report of transaction results", cycle.ID)

	defer func() {
		if p := recover(); p != nil {
			e.fail(cycle, fmt.Errorf("panic: %v", p))
		}
		cycle.FinishedAt = e.now()
		e.record(ctx, cycle)
	}()

	if err := e.reconcile(ctx, cycle); err != nil {
		e.fail(cycle, err)
		return cycle
	}

	cycle.Status = domain.CycleCompleted
	e.logSummary(cycle)
	return cycle
}

// cyclePlan is the set of changes computed under the lock.
type cyclePlan struct {
	matched     map[string]struct{}
	changed     []domain.Transaction
	unchanged   int
	transitions map[domain.TransactionStatus]int
}

func (e *Engine) reconcile(ctx context.Context, cycle *domain.Cycle) error {
	raw, err := e.source.FetchReport(ctx)
	if err != nil {
		if !errors.Is(err, domain.ErrReportFetch) {
			err = fmt.Errorf("%w: %w", domain.ErrReportFetch, err)
		}
		return err
	}

	report, err := ingestion.ParseReport(raw)
	if err != nil {
		return err
	}
	cycle.ReportEntries = report.Len()
	if report.Len() == 0 {
		return nil
	}

	var plan *cyclePlan
	err = e.store.WithinLock(ctx, func(l domain.LockedTransactions) error {
		txns, err := l.FindEligibleByIDs(ctx, report.IDs())
		if err != nil {
			return fmt.Errorf("find eligible transactions: %w", err)
		}

		plan, err = e.plan(report, txns)
		if err != nil {
			return err
		}

		if err := l.SaveAll(ctx, plan.changed); err != nil {
			return fmt.Errorf("save transactions: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	cycle.Matched = len(plan.matched)
	cycle.Updated = len(plan.changed)
	cycle.Unchanged = plan.unchanged
	if len(plan.transitions) > 0 {
		cycle.Transitions = plan.transitions
	}
	for _, id := range report.IDs() {
		if _, ok := plan.matched[id]; !ok {
			cycle.UnmatchedIDs = append(cycle.UnmatchedIDs, id)
		}
	}

	if e.verbose {
		ids := make([]string, 0, len(plan.changed))
		for _, tx := range plan.changed {
			ids = append(ids, tx.ID)
		}
		e.logger.Printf("[reconciliation] cycle %s: updated transactions: %s", cycle.ID, strings.Join(ids, ", "))
	}
	return nil
}

// plan resolves the new status of every fetched record. Only records whose
// status actually changes end up in the save batch. An outcome the policy
// cannot map aborts the whole plan.
func (e *Engine) plan(report *domain.Report, txns []domain.Transaction) (*cyclePlan, error) {
	p := &cyclePlan{
		matched:     make(map[string]struct{}, len(txns)),
		transitions: make(map[domain.TransactionStatus]int),
	}
	now := e.now()

	for _, tx := range txns {
		outcome, ok := report.Outcome(tx.ID)
		if !ok {
			continue
		}
		p.matched[tx.ID] = struct{}{}
		if e.verbose {
			e.logger.Printf("[reconciliation] the transaction result of %s is %s", tx.ID, outcome)
		}

		next, err := Resolve(tx, outcome)
		if err != nil {
			return nil, fmt.Errorf("transaction %s: %w", tx.ID, err)
		}
		if next == tx.Status {
			p.unchanged++
			continue
		}

		tx.Status = next
		tx.UpdatedAt = now
		p.changed = append(p.changed, tx)
		p.transitions[next]++
	}

	return p, nil
}

func (e *Engine) fail(cycle *domain.Cycle, err error) {
	cycle.Status = domain.CycleFailed
	cycle.Err = err
	cycle.Error = err.Error()
	cycle.Matched, cycle.Updated, cycle.Unchanged = 0, 0, 0
	cycle.UnmatchedIDs, cycle.Transitions = nil, nil

	switch {
	case errors.Is(err, domain.ErrReportFetch):
		e.logger.Printf("[reconciliation] ERROR: cycle %s: could not download the report: %v", cycle.ID, err)
	case errors.Is(err, domain.ErrMalformedReport):
		e.logger.Printf("[reconciliation] ERROR: cycle %s: could not parse the report: %v", cycle.ID, err)
	case errors.Is(err, domain.ErrUnknownOutcome):
		e.logger.Printf("[reconciliation] ERROR: cycle %s: report contains an unknown outcome: %v", cycle.ID, err)
	default:
		e.logger.Printf("[reconciliation] ERROR: cycle %s: unexpected error while updating transaction statuses: %v",
			cycle.ID, err)
	}
}

func (e *Engine) logSummary(cycle *domain.Cycle) {
	if cycle.Updated == 0 {
		e.logger.Printf("[reconciliation] cycle %s: no transaction updated (report entries=%d, matched=%d)",
			cycle.ID, cycle.ReportEntries, cycle.Matched)
		return
	}

	statuses := make([]string, 0, len(cycle.Transitions))
	for status := range cycle.Transitions {
		statuses = append(statuses, string(status))
	}
	sort.Strings(statuses)
	parts := make([]string, 0, len(statuses))
	for _, s := range statuses {
		parts = append(parts, fmt.Sprintf("%s=%d", s, cycle.Transitions[domain.TransactionStatus(s)]))
	}

	e.logger.Printf("[reconciliation] cycle %s: updated %d transactions according to the report (report entries=%d, unmatched=%d, %s)",
		cycle.ID, cycle.Updated, cycle.ReportEntries, len(cycle.UnmatchedIDs), strings.Join(parts, ", "))
}

func (e *Engine) record(ctx context.Context, cycle *domain.Cycle) {
	if e.recorder == nil {
		return
	}
	if err := e.recorder.RecordCycle(context.WithoutCancel(ctx), cycle); err != nil {
		e.logger.Printf("[reconciliation] WARNING: failed to record cycle %s: %v", cycle.ID, err)
	}
}

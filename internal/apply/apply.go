// Package apply executes reconciliation plans against the CRM database.
package apply

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/crm-sync/internal/db"
	"github.com/sells-group/crm-sync/internal/plan"
)

var errDryRun = eris.New("apply: dry run")

// ApplyOpts controls plan execution.
type ApplyOpts struct {
	// DryRun executes every statement and then rolls back.
	DryRun bool
}

// Report summarizes an executed plan.
type Report struct {
	Statements   int                 `json:"statements"`
	RowsAffected map[plan.Kind]int64 `json:"rows_affected"`
	Total        int64               `json:"total"`
	DryRun       bool                `json:"dry_run"`
	Committed    bool                `json:"committed"`
	Duration     time.Duration       `json:"duration"`
}

// Executor runs plans in a single transaction.
type Executor struct {
	pool db.Pool
}

// NewExecutor creates an Executor on pool.
func NewExecutor(pool db.Pool) *Executor {
	return &Executor{pool: pool}
}

// Apply executes the plan's statements in order with bound parameters.
// Any failure rolls the whole plan back.
func (e *Executor) Apply(ctx context.Context, p *plan.Plan, opts ApplyOpts) (*Report, error) {
	log := zap.L().With(zap.String("component", "apply"), zap.String("run_id", p.RunID))
	start := time.Now()

	report := &Report{
		RowsAffected: make(map[plan.Kind]int64, 4),
		DryRun:       opts.DryRun,
	}
	stmts := p.Statements()

	err := db.InTx(ctx, e.pool, func(tx pgx.Tx) error {
		for i, s := range stmts {
			tag, err := tx.Exec(ctx, s.SQL, s.Args...)
			if err != nil {
				return eris.Wrapf(err, "apply: statement %d (%s %s %s)", i+1, s.Kind, s.Entity, s.ExternalID)
			}
			n := tag.RowsAffected()
			report.RowsAffected[s.Kind] += n
			report.Total += n
			report.Statements++
			log.Debug("statement executed",
				zap.String("kind", string(s.Kind)),
				zap.String("entity", string(s.Entity)),
				zap.String("record", s.ExternalID),
				zap.Int64("rows", n),
			)
		}
		if opts.DryRun {
			return errDryRun
		}
		return nil
	})
	report.Duration = time.Since(start)

	switch {
	case errors.Is(err, errDryRun):
		log.Info("dry run rolled back", zap.Int("statements", report.Statements), zap.Int64("rows", report.Total))
		return report, nil
	case err != nil:
		log.Error("plan rolled back", zap.Error(err))
		return nil, err
	}

	report.Committed = true
	log.Info("plan applied",
		zap.Int("statements", report.Statements),
		zap.Int64("rows", report.Total),
		zap.Duration("duration", report.Duration),
	)
	return report, nil
}

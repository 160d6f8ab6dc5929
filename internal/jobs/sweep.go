// Package jobs holds the background work scheduled with cron.
package jobs

import (
	"context"
	"time"

	"credhealth/internal/domain/loan"
	"credhealth/internal/domain/user"

	"go.uber.org/zap"
)

const defaultSweepBatch = 100

// LoanSweeper is the slice of the loan usecase the sweeper needs.
type LoanSweeper interface {
	ListOverdue(ctx context.Context, term time.Duration, limit int) ([]loan.Loan, error)
	MarkDefaulted(ctx context.Context, c user.Caller, loanID string) (*loan.Loan, error)
}

// DefaultSweep moves DISBURSED loans past the repayment term to DEFAULTED.
type DefaultSweep struct {
	loans   LoanSweeper
	term    time.Duration
	batch   int
	timeout time.Duration
	logger  *zap.Logger
}

func NewDefaultSweep(loans LoanSweeper, term time.Duration, logger *zap.Logger) *DefaultSweep {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DefaultSweep{loans: loans, term: term, batch: defaultSweepBatch, timeout: 5 * time.Minute, logger: logger}
}

// Run defaults every overdue loan it can and returns how many it moved. A failure on one loan
// is logged and the run goes on; only a failed listing aborts it.
func (s *DefaultSweep) Run(ctx context.Context) (int, error) {
	total := 0
	for {
		overdue, err := s.loans.ListOverdue(ctx, s.term, s.batch)
		if err != nil {
			return total, err
		}
		moved := 0
		for _, l := range overdue {
			if ctx.Err() != nil {
				return total, ctx.Err()
			}
			if _, err := s.loans.MarkDefaulted(ctx, user.System, l.LoanID); err != nil {
				s.logger.Warn("default sweep: loan skipped", zap.String("loan_id", l.LoanID), zap.Error(err))
				continue
			}
			moved++
		}
		total += moved
		// a short page is the last one; a page with no progress would repeat forever
		if len(overdue) < s.batch || moved == 0 {
			return total, nil
		}
	}
}

// Sweep is the cron entry point.
func (s *DefaultSweep) Sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	start := time.Now()
	n, err := s.Run(ctx)
	if err != nil {
		s.logger.Error("default sweep failed", zap.Int("defaulted", n), zap.Error(err))
		return
	}
	s.logger.Info("default sweep finished", zap.Int("defaulted", n), zap.Duration("took", time.Since(start)))
}

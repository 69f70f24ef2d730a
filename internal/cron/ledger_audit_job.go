package cron

import (
	"context"
	"fmt"

	"github.com/angelmondragon/bundlehub-backend/internal/ledger"
	"github.com/angelmondragon/bundlehub-backend/pkg/logger"
)

type projectionVerifier interface {
	VerifyProjection(ctx context.Context) ([]ledger.ProjectionMismatch, error)
}

type LedgerAuditJobParams struct {
	Logger   *logger.Logger
	Verifier projectionVerifier
}

// NewLedgerAuditJob builds the job that compares cached wallet balances with
// the ledger. The mismatch gauge is maintained by the ledger service itself.
func NewLedgerAuditJob(params LedgerAuditJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Verifier == nil {
		return nil, fmt.Errorf("projection verifier required")
	}
	return &ledgerAuditJob{logg: params.Logger, verifier: params.Verifier}, nil
}

type ledgerAuditJob struct {
	logg     *logger.Logger
	verifier projectionVerifier
}

func (j *ledgerAuditJob) Name() string { return "ledger-projection-audit" }

func (j *ledgerAuditJob) Run(ctx context.Context) error {
	mismatches, err := j.verifier.VerifyProjection(ctx)
	if err != nil {
		return fmt.Errorf("ledger projection audit: %w", err)
	}
	for _, m := range mismatches {
		logCtx := j.logg.WithUserID(ctx, m.UserID.String())
		logCtx = j.logg.WithFields(logCtx, map[string]any{
			"cached_balance": m.LoanBalance.StringFixed(2),
			"ledger_balance": m.LedgerAmount.StringFixed(2),
		})
		j.logg.Warn(logCtx, "wallet balance differs from ledger")
	}
	j.logg.Info(j.logg.WithField(ctx, "mismatches", len(mismatches)), "ledger projection audit complete")
	return nil
}

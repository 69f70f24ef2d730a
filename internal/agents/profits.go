package agents

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/bundlehub-backend/internal/ledger"
	"github.com/angelmondragon/bundlehub-backend/internal/notifier"
	"github.com/angelmondragon/bundlehub-backend/pkg/db/models"
	"github.com/angelmondragon/bundlehub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bundlehub-backend/pkg/errors"
)

// AgentSummary is the contact card attached to admin profit rows.
type AgentSummary struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
	Phone *string   `json:"phone,omitempty"`
}

// ProfitView is a profit row with its agent.
type ProfitView struct {
	models.AgentProfit
	Agent *AgentSummary `json:"agent"`
}

// AdminProfitStats totals agent profits by payout status.
type AdminProfitStats struct {
	TotalProfit     decimal.Decimal `json:"totalProfit"`
	PendingProfit   decimal.Decimal `json:"pendingProfit"`
	DepositedProfit decimal.Decimal `json:"depositedProfit"`
	SentProfit      decimal.Decimal `json:"sentProfit"`
	TotalOrders     int64           `json:"totalOrders"`
}

func (s *service) ListProfits(ctx context.Context, filter ProfitFilter) ([]ProfitView, error) {
	if filter.Status != nil && !filter.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid profit status")
	}
	rows, err := s.repo.ListProfits(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list agent profits")
	}

	seen := map[uuid.UUID]struct{}{}
	ids := make([]uuid.UUID, 0, len(rows))
	for _, p := range rows {
		if _, ok := seen[p.AgentID]; ok {
			continue
		}
		seen[p.AgentID] = struct{}{}
		ids = append(ids, p.AgentID)
	}
	agents, err := s.users.FindByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load agents")
	}

	out := make([]ProfitView, 0, len(rows))
	for _, p := range rows {
		view := ProfitView{AgentProfit: p}
		if u, ok := agents[p.AgentID]; ok {
			view.Agent = &AgentSummary{ID: u.ID, Name: u.Name, Email: u.Email, Phone: u.Phone}
		}
		out = append(out, view)
	}
	return out, nil
}

func (s *service) AdminProfitStats(ctx context.Context) (*AdminProfitStats, error) {
	totals, err := s.repo.ProfitTotals(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "aggregate agent profits")
	}
	stats := &AdminProfitStats{
		TotalProfit:     decimal.Zero,
		PendingProfit:   decimal.Zero,
		DepositedProfit: decimal.Zero,
		SentProfit:      decimal.Zero,
	}
	for _, t := range totals {
		stats.TotalProfit = stats.TotalProfit.Add(t.Total)
		stats.TotalOrders += t.Count
		switch t.Status {
		case enums.AgentProfitPending:
			stats.PendingProfit = t.Total
		case enums.AgentProfitDeposited:
			stats.DepositedProfit = t.Total
		case enums.AgentProfitSent:
			stats.SentProfit = t.Total
		}
	}
	return stats, nil
}

// DepositProfit credits the profit to the agent's wallet. The status flip and
// the ledger entry commit together, so a profit is paid at most once.
func (s *service) DepositProfit(ctx context.Context, profitID uuid.UUID) (*models.AgentProfit, error) {
	var (
		profit *models.AgentProfit
		entry  *models.LedgerEntry
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		profit, err = s.settleProfit(ctx, s.repo.WithTx(tx), profitID, enums.AgentProfitDeposited)
		if err != nil {
			return err
		}
		entry, err = s.ledger.Record(ctx, tx, ledger.RecordInput{
			UserID:      profit.AgentID,
			Amount:      profit.Profit,
			Type:        enums.LedgerEntryAgentProfitDeposit,
			Description: fmt.Sprintf("Agent profit deposited for order %s", profit.OrderReference),
			Reference:   ledger.AgentProfitRef(profit.ID),
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithUserID(ctx, profit.AgentID.String())
	s.logg.Info(s.logg.WithField(logCtx, "amount", profit.Profit.StringFixed(2)), "agent profit deposited")
	s.notify.Publish(ctx, notifier.EventTransactionUpdate, "Agent profit deposited", entry, notifier.RefreshTransaction)
	return profit, nil
}

// SendCashProfit records a payout made outside the wallet. No ledger entry.
func (s *service) SendCashProfit(ctx context.Context, profitID uuid.UUID) (*models.AgentProfit, error) {
	profit, err := s.settleProfit(ctx, s.repo, profitID, enums.AgentProfitSent)
	if err != nil {
		return nil, err
	}
	s.logg.Info(s.logg.WithUserID(ctx, profit.AgentID.String()), "agent profit sent as cash")
	return profit, nil
}

func (s *service) settleProfit(ctx context.Context, repo Repository, profitID uuid.UUID, to enums.AgentProfitStatus) (*models.AgentProfit, error) {
	profit, err := repo.FindProfit(ctx, profitID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load agent profit")
	}
	if profit == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "Profit record not found")
	}
	won, err := repo.TransitionProfit(ctx, profit.ID, enums.AgentProfitPending, to)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update agent profit")
	}
	if !won {
		return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, ErrAlreadyProcessed, "Profit already processed").
			WithDetails(map[string]any{"status": profit.Status})
	}
	profit.Status = to
	return profit, nil
}

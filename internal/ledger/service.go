package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/bundlehub-backend/internal/users"
	"github.com/angelmondragon/bundlehub-backend/pkg/db"
	"github.com/angelmondragon/bundlehub-backend/pkg/db/models"
	"github.com/angelmondragon/bundlehub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bundlehub-backend/pkg/errors"
	"github.com/angelmondragon/bundlehub-backend/pkg/logger"
	"github.com/angelmondragon/bundlehub-backend/pkg/metrics"
	"github.com/angelmondragon/bundlehub-backend/pkg/pagination"
)

// ErrDuplicateReference reports that an entry with the same (type, reference) exists.
var ErrDuplicateReference = errors.New("ledger entry already recorded for reference")

// Service records balance-affecting events and serves ledger reads.
type Service interface {
	Record(ctx context.Context, tx *gorm.DB, input RecordInput) (*models.LedgerEntry, error)
	RecordOnce(ctx context.Context, tx *gorm.DB, input RecordInput) (*models.LedgerEntry, bool, error)
	FindByReference(ctx context.Context, tx *gorm.DB, entryType enums.LedgerEntryType, reference string) (*models.LedgerEntry, error)
	ListForUser(ctx context.Context, userID uuid.UUID, filter ListFilter, params pagination.Params) (*EntryList, error)
	ListAll(ctx context.Context, filter ListFilter, params pagination.Params) (*EntryList, error)
	BalanceSummary(ctx context.Context, userID uuid.UUID) (*BalanceSummary, error)
	VerifyProjection(ctx context.Context) ([]ProjectionMismatch, error)
}

// RecordInput describes one ledger write. Amount is signed: debits are negative.
type RecordInput struct {
	UserID      uuid.UUID
	Amount      decimal.Decimal
	Type        enums.LedgerEntryType
	Description string
	Reference   string
}

// BalanceSummary is a user's wallet overview.
type BalanceSummary struct {
	Balance decimal.Decimal `json:"balance"`
	Credits decimal.Decimal `json:"credits"`
	Debits  decimal.Decimal `json:"debits"`
	ByType  []TypeTotal     `json:"byType"`
	Count   int64           `json:"count"`
}

// ProjectionMismatch is a user whose cached balance disagrees with the ledger.
type ProjectionMismatch struct {
	UserID       uuid.UUID       `json:"userId"`
	LoanBalance  decimal.Decimal `json:"loanBalance"`
	LedgerAmount decimal.Decimal `json:"ledgerAmount"`
}

type service struct {
	repo    Repository
	users   *users.Repository
	metrics *metrics.LedgerMetrics
	logg    *logger.Logger
}

// NewService wires a ledger service. metrics may be nil.
func NewService(repo Repository, usersRepo *users.Repository, m *metrics.LedgerMetrics, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if usersRepo == nil {
		return nil, fmt.Errorf("users repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, users: usersRepo, metrics: m, logg: logg}, nil
}

// Record appends an entry and moves the user's balance inside tx. The user row
// is locked first, so concurrent writers for one user serialize.
func (s *service) Record(ctx context.Context, tx *gorm.DB, input RecordInput) (*models.LedgerEntry, error) {
	entry, existing, err := s.record(ctx, tx, input)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, ErrDuplicateReference,
			fmt.Sprintf("%s already recorded for %s", input.Type, input.Reference))
	}
	return entry, nil
}

// RecordOnce behaves like Record but treats an existing (type, reference) as
// success, returning the stored entry and created=false.
func (s *service) RecordOnce(ctx context.Context, tx *gorm.DB, input RecordInput) (*models.LedgerEntry, bool, error) {
	entry, existing, err := s.record(ctx, tx, input)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}
	return entry, true, nil
}

func (s *service) record(ctx context.Context, tx *gorm.DB, input RecordInput) (*models.LedgerEntry, *models.LedgerEntry, error) {
	if tx == nil {
		return nil, nil, pkgerrors.New(pkgerrors.CodeInternal, "ledger writes require a transaction")
	}
	if err := input.validate(); err != nil {
		return nil, nil, err
	}

	usersRepo := s.users.WithTx(tx)
	entries := s.repo.WithTx(tx)

	user, err := usersRepo.LockByID(ctx, input.UserID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lock user balance")
	}

	existing, err := entries.FindByReference(ctx, input.Type, input.Reference)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup ledger reference")
	}
	if existing != nil {
		s.metrics.IncDuplicate(input.Type.String())
		return nil, existing, nil
	}

	previous := user.LoanBalance
	after := previous.Add(input.Amount)
	entry := &models.LedgerEntry{
		UserID:          input.UserID,
		Amount:          input.Amount,
		BalanceAfter:    after,
		PreviousBalance: previous,
		Type:            input.Type,
		Description:     input.Description,
		Reference:       input.Reference,
	}
	if err := entries.Create(ctx, entry); err != nil {
		// the pre-check runs under the user lock, so this only fires when another
		// user already owns the same pair; postgres has aborted tx by now
		if db.IsUniqueViolation(err, "") {
			s.metrics.IncDuplicate(input.Type.String())
			return nil, nil, pkgerrors.Wrap(pkgerrors.CodeConflict, ErrDuplicateReference,
				fmt.Sprintf("%s already recorded for %s", input.Type, input.Reference))
		}
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "insert ledger entry")
	}
	if err := usersRepo.SetBalance(ctx, input.UserID, after); err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update balance projection")
	}

	s.metrics.IncRecorded(input.Type.String())
	s.logg.Debug(s.logg.WithFields(ctx, map[string]any{
		"user_id":   input.UserID.String(),
		"type":      input.Type.String(),
		"reference": input.Reference,
		"amount":    input.Amount.StringFixed(2),
	}), "ledger entry recorded")
	return entry, nil, nil
}

func (in *RecordInput) validate() error {
	if in.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if !in.Type.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid ledger entry type %q", in.Type))
	}
	in.Reference = strings.TrimSpace(in.Reference)
	if in.Reference == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "reference is required")
	}
	if strings.TrimSpace(in.Description) == "" {
		in.Description = in.Type.String()
	}
	return nil
}

func (s *service) FindByReference(ctx context.Context, tx *gorm.DB, entryType enums.LedgerEntryType, reference string) (*models.LedgerEntry, error) {
	entry, err := s.repo.WithTx(tx).FindByReference(ctx, entryType, reference)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup ledger reference")
	}
	if entry == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "ledger entry not found")
	}
	return entry, nil
}

func (s *service) ListForUser(ctx context.Context, userID uuid.UUID, filter ListFilter, params pagination.Params) (*EntryList, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	filter.UserID = &userID
	return s.ListAll(ctx, filter, params)
}

func (s *service) ListAll(ctx context.Context, filter ListFilter, params pagination.Params) (*EntryList, error) {
	if filter.Type != nil && !filter.Type.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid transaction type")
	}
	list, err := s.repo.List(ctx, filter, params)
	switch {
	case errors.Is(err, pagination.ErrBadCursor):
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	case err != nil:
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list transactions")
	}
	return list, nil
}

func (s *service) BalanceSummary(ctx context.Context, userID uuid.UUID) (*BalanceSummary, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user")
	}

	totals, err := s.repo.TotalsByType(ctx, ListFilter{UserID: &userID})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "sum transactions")
	}

	credits, err := s.repo.TotalsByType(ctx, ListFilter{UserID: &userID, Direction: DirectionCredit})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "sum credits")
	}
	debits, err := s.repo.TotalsByType(ctx, ListFilter{UserID: &userID, Direction: DirectionDebit})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "sum debits")
	}

	summary := &BalanceSummary{
		Balance: user.LoanBalance,
		Credits: sumTotals(credits),
		Debits:  sumTotals(debits).Abs(),
		ByType:  totals,
	}
	for _, t := range totals {
		summary.Count += t.Count
	}
	return summary, nil
}

func sumTotals(totals []TypeTotal) decimal.Decimal {
	sum := decimal.Zero
	for _, t := range totals {
		sum = sum.Add(t.Total)
	}
	return sum
}

// VerifyProjection lists users whose cached balance differs from SUM(amount).
func (s *service) VerifyProjection(ctx context.Context) ([]ProjectionMismatch, error) {
	sums, err := s.repo.UserSums(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "sum ledger per user")
	}
	var out []ProjectionMismatch
	for _, row := range sums {
		if !row.LoanBalance.Round(2).Equal(row.LedgerAmount.Round(2)) {
			out = append(out, ProjectionMismatch(row))
		}
	}
	s.metrics.SetProjectionMismatches(len(out))
	return out, nil
}

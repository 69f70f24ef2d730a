package ledger

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/bundlehub-backend/pkg/db/models"
	"github.com/angelmondragon/bundlehub-backend/pkg/enums"
	"github.com/angelmondragon/bundlehub-backend/pkg/pagination"
)

// Direction narrows listings to credits or debits.
type Direction string

const (
	DirectionAny    Direction = ""
	DirectionCredit Direction = "credit"
	DirectionDebit  Direction = "debit"
)

// ListFilter narrows ledger listings. Zero values mean "no constraint".
type ListFilter struct {
	UserID    *uuid.UUID
	Type      *enums.LedgerEntryType
	From      *time.Time
	To        *time.Time
	Search    string
	Direction Direction
}

// EntryList is one cursor page of ledger entries, newest first.
type EntryList struct {
	Entries    []models.LedgerEntry `json:"transactions"`
	NextCursor string               `json:"nextCursor,omitempty"`
}

// TypeTotal aggregates entries of one type.
type TypeTotal struct {
	Type  enums.LedgerEntryType `json:"type"`
	Total decimal.Decimal       `json:"total"`
	Count int64                 `json:"count"`
}

// UserSum pairs a user's cached balance with the sum of their entries.
type UserSum struct {
	UserID       uuid.UUID
	LoanBalance  decimal.Decimal
	LedgerAmount decimal.Decimal
}

// Repository manages persistence for ledger entries.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, entry *models.LedgerEntry) error
	FindByReference(ctx context.Context, entryType enums.LedgerEntryType, reference string) (*models.LedgerEntry, error)
	List(ctx context.Context, filter ListFilter, params pagination.Params) (*EntryList, error)
	TotalsByType(ctx context.Context, filter ListFilter) ([]TypeTotal, error)
	UserSums(ctx context.Context) ([]UserSum, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, entry *models.LedgerEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// FindByReference returns nil, nil when no entry exists for the pair.
func (r *repository) FindByReference(ctx context.Context, entryType enums.LedgerEntryType, reference string) (*models.LedgerEntry, error) {
	var entry models.LedgerEntry
	err := r.db.WithContext(ctx).
		Where("type = ? AND reference = ?", entryType, reference).
		First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *repository) List(ctx context.Context, filter ListFilter, params pagination.Params) (*EntryList, error) {
	page, err := params.Scope()
	if err != nil {
		return nil, err
	}
	var rows []models.LedgerEntry
	if err := applyFilter(r.db.WithContext(ctx).Model(&models.LedgerEntry{}), filter).
		Scopes(page).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	entries, next := pagination.Page(rows, params.Limit, func(e models.LedgerEntry) pagination.Cursor {
		return pagination.Cursor{CreatedAt: e.CreatedAt, ID: e.ID}
	})
	return &EntryList{Entries: entries, NextCursor: next}, nil
}

func (r *repository) TotalsByType(ctx context.Context, filter ListFilter) ([]TypeTotal, error) {
	var totals []TypeTotal
	err := applyFilter(r.db.WithContext(ctx).Model(&models.LedgerEntry{}), filter).
		Select("type, COALESCE(SUM(amount), 0) AS total, COUNT(*) AS count").
		Group("type").
		Order("type").
		Scan(&totals).Error
	return totals, err
}

func (r *repository) UserSums(ctx context.Context) ([]UserSum, error) {
	var sums []UserSum
	err := r.db.WithContext(ctx).
		Table("users AS u").
		Select("u.id AS user_id, u.loan_balance AS loan_balance, COALESCE(SUM(t.amount), 0) AS ledger_amount").
		Joins("LEFT JOIN transactions t ON t.user_id = u.id").
		Group("u.id, u.loan_balance").
		Scan(&sums).Error
	return sums, err
}

func applyFilter(q *gorm.DB, f ListFilter) *gorm.DB {
	if f.UserID != nil {
		q = q.Where("user_id = ?", *f.UserID)
	}
	if f.Type != nil {
		q = q.Where("type = ?", *f.Type)
	}
	if f.From != nil {
		q = q.Where("created_at >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("created_at <= ?", *f.To)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		q = q.Where("(LOWER(description) LIKE ? OR LOWER(reference) LIKE ?)", like, like)
	}
	switch f.Direction {
	case DirectionCredit:
		q = q.Where("amount > 0")
	case DirectionDebit:
		q = q.Where("amount < 0")
	}
	return q
}

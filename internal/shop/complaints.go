package shop

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/bundlehub-backend/pkg/db"
	"github.com/angelmondragon/bundlehub-backend/pkg/db/models"
	"github.com/angelmondragon/bundlehub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bundlehub-backend/pkg/errors"
)

// ComplaintInput is a guest complaint about a settled shop order.
type ComplaintInput struct {
	FullName      string
	MobileNumber  string
	ProductName   string
	ProductCost   decimal.Decimal
	TransactionID string
	Complaint     string
	OrderTime     time.Time
}

func (s *service) FileComplaint(ctx context.Context, input ComplaintInput) (*models.Complaint, error) {
	c := &models.Complaint{
		FullName:      strings.TrimSpace(input.FullName),
		MobileNumber:  strings.TrimSpace(input.MobileNumber),
		ProductName:   strings.TrimSpace(input.ProductName),
		ProductCost:   input.ProductCost,
		TransactionID: strings.TrimSpace(input.TransactionID),
		Complaint:     strings.TrimSpace(input.Complaint),
		OrderTime:     input.OrderTime.UTC(),
		Status:        enums.ComplaintPending,
	}
	if c.FullName == "" || c.MobileNumber == "" || c.ProductName == "" || c.TransactionID == "" ||
		c.Complaint == "" || input.OrderTime.IsZero() || !c.ProductCost.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "All fields are required")
	}

	order, err := s.repo.FindByReference(ctx, c.TransactionID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup shop order")
	}
	if order == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "No order found with this transaction ID. Please verify your transaction ID.")
	}

	if err := s.complaints.Create(ctx, c); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create complaint")
	}
	s.logg.Info(s.logg.WithTransactionID(ctx, c.TransactionID), "complaint filed")
	return c, nil
}

func (s *service) ListComplaints(ctx context.Context) ([]models.Complaint, error) {
	rows, err := s.complaints.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list complaints")
	}
	return rows, nil
}

func (s *service) PendingComplaintsCount(ctx context.Context) (int64, error) {
	n, err := s.complaints.CountByStatus(ctx, enums.ComplaintPending)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count complaints")
	}
	return n, nil
}

func (s *service) UpdateComplaintStatus(ctx context.Context, id uuid.UUID, status enums.ComplaintStatus) (*models.Complaint, error) {
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid complaint status")
	}
	n, err := s.complaints.UpdateStatus(ctx, id, status)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update complaint")
	}
	if n == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "complaint not found")
	}
	c, err := s.complaints.FindByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "complaint not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load complaint")
	}
	return c, nil
}

func (s *service) DeleteComplaint(ctx context.Context, id uuid.UUID) error {
	n, err := s.complaints.Delete(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete complaint")
	}
	if n == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "complaint not found")
	}
	return nil
}

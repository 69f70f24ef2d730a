package products

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/angelmondragon/bundlehub-backend/pkg/db"
	"github.com/angelmondragon/bundlehub-backend/pkg/db/models"
	"github.com/angelmondragon/bundlehub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bundlehub-backend/pkg/errors"
)

// Service serves catalog reads scoped to the caller's reseller tier.
type Service interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Product, error)
	ListForRole(ctx context.Context, role enums.UserRole) ([]models.Product, error)
	ListShop(ctx context.Context) ([]models.Product, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("products repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
	}
	return product, nil
}

// ListForRole lists the in-stock products of the category mapped to role.
// Roles without a catalog category (ADMIN) get a validation error.
func (s *service) ListForRole(ctx context.Context, role enums.UserRole) ([]models.Product, error) {
	category, ok := role.ProductCategory()
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("role %s has no product category", role))
	}
	rows, err := s.repo.ListInStockByCategory(ctx, category)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list products")
	}
	return rows, nil
}

func (s *service) ListShop(ctx context.Context) ([]models.Product, error) {
	rows, err := s.repo.ListShop(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list shop products")
	}
	return rows, nil
}

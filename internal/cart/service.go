package cart

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/bundlehub-backend/internal/products"
	"github.com/angelmondragon/bundlehub-backend/pkg/db"
	"github.com/angelmondragon/bundlehub-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/bundlehub-backend/pkg/errors"
	"github.com/angelmondragon/bundlehub-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service manages a user's cart: the scratch state SubmitCart turns into an order.
type Service interface {
	Get(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	AddItem(ctx context.Context, userID uuid.UUID, input AddItemInput) (*models.Cart, error)
	RemoveItem(ctx context.Context, userID, itemID uuid.UUID) (*models.Cart, error)
	AddOrMergeTx(ctx context.Context, tx *gorm.DB, input MergeInput) (*models.CartItem, error)
}

// AddItemInput is a user adding a catalog product to their cart.
type AddItemInput struct {
	ProductID    uuid.UUID
	Quantity     int
	MobileNumber *string
}

// MergeInput adds a line at an explicit price, merging into an identical
// product+mobile line when one exists.
type MergeInput struct {
	UserID       uuid.UUID
	ProductID    uuid.UUID
	Quantity     int
	Price        decimal.Decimal
	MobileNumber *string
}

type service struct {
	repo     Repository
	products products.Repository
	tx       txRunner
	logg     *logger.Logger
}

func NewService(repo Repository, productsRepo products.Repository, tx txRunner, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if productsRepo == nil {
		return nil, fmt.Errorf("products repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, products: productsRepo, tx: tx, logg: logg}, nil
}

// Get returns the user's cart, or an empty one if none exists yet.
func (s *service) Get(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	cart, err := s.repo.FindByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
	}
	if cart == nil {
		return &models.Cart{UserID: userID, Items: []models.CartItem{}}, nil
	}
	return cart, nil
}

// AddItem snapshots the live product price onto the line.
func (s *service) AddItem(ctx context.Context, userID uuid.UUID, input AddItemInput) (*models.Cart, error) {
	if input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		product, err := s.products.WithTx(tx).FindByID(ctx, input.ProductID)
		if err != nil {
			if db.IsNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
		}
		if product.Stock <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "product is out of stock")
		}
		_, err = s.AddOrMergeTx(ctx, tx, MergeInput{
			UserID:       userID,
			ProductID:    product.ID,
			Quantity:     input.Quantity,
			Price:        product.Price,
			MobileNumber: input.MobileNumber,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, userID)
}

func (s *service) RemoveItem(ctx context.Context, userID, itemID uuid.UUID) (*models.Cart, error) {
	cart, err := s.repo.FindByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
	}
	if cart == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
	}
	deleted, err := s.repo.DeleteItem(ctx, cart.ID, itemID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "remove cart item")
	}
	if !deleted {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
	}
	return s.Get(ctx, userID)
}

// AddOrMergeTx runs inside the caller's transaction and creates the cart on demand.
func (s *service) AddOrMergeTx(ctx context.Context, tx *gorm.DB, input MergeInput) (*models.CartItem, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	if input.Price.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must not be negative")
	}
	mobile := normalizeMobile(input.MobileNumber)
	repo := s.repo.WithTx(tx)

	cart, err := repo.GetOrCreate(ctx, input.UserID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
	}

	line, err := repo.FindLine(ctx, cart.ID, input.ProductID, mobile)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup cart line")
	}
	if line != nil {
		line.Quantity += input.Quantity
		if err := repo.SetQuantity(ctx, line.ID, line.Quantity); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "merge cart line")
		}
		return line, nil
	}

	line = &models.CartItem{
		CartID:       cart.ID,
		ProductID:    input.ProductID,
		Quantity:     input.Quantity,
		Price:        input.Price,
		MobileNumber: mobile,
	}
	if err := repo.CreateItem(ctx, line); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "add cart line")
	}
	s.logg.Debug(s.logg.WithFields(ctx, map[string]any{
		"user_id":    input.UserID.String(),
		"product_id": input.ProductID.String(),
	}), "cart line added")
	return line, nil
}

func normalizeMobile(mobile *string) *string {
	if mobile == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*mobile)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

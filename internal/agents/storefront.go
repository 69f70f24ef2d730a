package agents

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/bundlehub-backend/pkg/db"
	"github.com/angelmondragon/bundlehub-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/bundlehub-backend/pkg/errors"
)

// StorefrontInput creates or renames a storefront. Nil momo fields are left
// untouched on update.
type StorefrontInput struct {
	StoreName  string
	MomoNumber *string
	MomoName   *string
}

// ListingInput puts a catalog product on the storefront at the agent's price.
type ListingInput struct {
	ProductID   uuid.UUID
	CustomPrice decimal.Decimal
}

// PublicStore is what customers see at /store/{slug}. Payment goes to the
// platform account, not the agent's.
type PublicStore struct {
	Storefront PublicStorefront `json:"storefront"`
	Products   []PublicListing  `json:"products"`
}

type PublicStorefront struct {
	ID         uuid.UUID `json:"id"`
	AgentID    uuid.UUID `json:"agentId"`
	StoreName  string    `json:"storeName"`
	StoreSlug  string    `json:"storeSlug"`
	MomoNumber string    `json:"momoNumber"`
	MomoName   string    `json:"momoName"`
}

type PublicListing struct {
	ID          uuid.UUID       `json:"id"`
	ProductID   uuid.UUID       `json:"productId"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	CustomPrice decimal.Decimal `json:"customPrice"`
	Stock       int             `json:"stock"`
}

var slugSeparators = regexp.MustCompile(`[^a-z0-9]+`)

// Slug derives a store slug from its name, suffixed with the creation time in
// base 36 so renamed and regenerated links never collide.
func Slug(name string, at time.Time) string {
	base := slugSeparators.ReplaceAllString(strings.ToLower(name), "-")
	base = strings.Trim(base, "-")
	return base + "-" + strconv.FormatInt(at.UnixMilli(), 36)
}

func storefrontMissing() error {
	return pkgerrors.New(pkgerrors.CodeNotFound, "Storefront not found. Please set up your storefront first.")
}

func (s *service) requireStorefront(ctx context.Context, repo Repository, agentID uuid.UUID) (*models.AgentStorefront, error) {
	store, err := repo.FindStorefrontByAgent(ctx, agentID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load storefront")
	}
	if store == nil {
		return nil, storefrontMissing()
	}
	return store, nil
}

func (s *service) GetStorefront(ctx context.Context, agentID uuid.UUID) (*models.AgentStorefront, error) {
	store, err := s.requireStorefront(ctx, s.repo, agentID)
	if err != nil {
		return nil, err
	}
	listings, err := s.repo.ListListings(ctx, store.ID, false)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load storefront products")
	}
	store.Products = listings
	return store, nil
}

func (s *service) GetStorefrontBySlug(ctx context.Context, slug string) (*models.AgentStorefront, error) {
	store, err := s.repo.FindStorefrontBySlug(ctx, strings.TrimSpace(slug))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load storefront")
	}
	if store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "store not found")
	}
	listings, err := s.repo.ListListings(ctx, store.ID, false)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load storefront products")
	}
	store.Products = listings
	return store, nil
}

func (s *service) SaveStorefront(ctx context.Context, agentID uuid.UUID, input StorefrontInput) (*models.AgentStorefront, error) {
	name := strings.TrimSpace(input.StoreName)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store name is required")
	}
	momoNumber := trimmedOrNil(input.MomoNumber)
	momoName := trimmedOrNil(input.MomoName)

	existing, err := s.repo.FindStorefrontByAgent(ctx, agentID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load storefront")
	}

	if existing != nil {
		fields := map[string]any{"store_name": name}
		if input.MomoNumber != nil {
			fields["momo_number"] = momoNumber
			existing.MomoNumber = momoNumber
		}
		if input.MomoName != nil {
			fields["momo_name"] = momoName
			existing.MomoName = momoName
		}
		if err := s.repo.UpdateStorefront(ctx, existing.ID, fields); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update storefront")
		}
		existing.StoreName = name
		return existing, nil
	}

	if _, err := s.users.FindByID(ctx, agentID); err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "agent not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load agent")
	}

	store := &models.AgentStorefront{
		AgentID:    agentID,
		StoreName:  name,
		StoreSlug:  Slug(name, s.now()),
		MomoNumber: momoNumber,
		MomoName:   momoName,
		IsActive:   true,
	}
	if err := s.repo.CreateStorefront(ctx, store); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "storefront already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create storefront")
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"agent_id":   agentID.String(),
		"store_slug": store.StoreSlug,
	}), "storefront created")
	return store, nil
}

func (s *service) RegenerateLink(ctx context.Context, agentID uuid.UUID) (*models.AgentStorefront, error) {
	store, err := s.requireStorefront(ctx, s.repo, agentID)
	if err != nil {
		return nil, err
	}
	slug := Slug(store.StoreName, s.now())
	if slug == store.StoreSlug {
		slug = Slug(store.StoreName, s.now().Add(time.Millisecond))
	}
	if err := s.repo.UpdateStorefront(ctx, store.ID, map[string]any{"store_slug": slug}); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "store link already taken, try again")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "regenerate store link")
	}
	store.StoreSlug = slug
	return store, nil
}

// AvailableProducts lists the in-stock products the agent's role may resell.
func (s *service) AvailableProducts(ctx context.Context, agentID uuid.UUID) ([]models.Product, error) {
	agent, err := s.users.FindByID(ctx, agentID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "agent not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load agent")
	}
	category, ok := agent.Role.ProductCategory()
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "role has no product catalog")
	}
	rows, err := s.products.ListInStockByCategory(ctx, category)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list available products")
	}
	return rows, nil
}

func belowCost(product models.Product, price decimal.Decimal) error {
	return pkgerrors.New(pkgerrors.CodeValidation, "custom price cannot be below the product price").
		WithDetails(map[string]any{
			"productId":    product.ID,
			"productPrice": product.Price,
			"customPrice":  price,
		})
}

// upsertListing adds product to the storefront or reprices and reactivates
// the existing listing.
func (s *service) upsertListing(ctx context.Context, repo Repository, storeID uuid.UUID, product models.Product, price decimal.Decimal) (*models.AgentStorefrontProduct, error) {
	if price.LessThan(product.Price) {
		return nil, belowCost(product, price)
	}
	existing, err := repo.FindListing(ctx, storeID, product.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load listing")
	}
	if existing != nil {
		if err := repo.UpdateListing(ctx, existing.ID, map[string]any{"custom_price": price, "is_active": true}); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update listing")
		}
		existing.CustomPrice = price
		existing.IsActive = true
		return existing, nil
	}
	listing := &models.AgentStorefrontProduct{
		StorefrontID: storeID,
		ProductID:    product.ID,
		CustomPrice:  price,
		IsActive:     true,
	}
	if err := repo.CreateListing(ctx, listing); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create listing")
	}
	return listing, nil
}

func (s *service) AddProduct(ctx context.Context, agentID uuid.UUID, input ListingInput) (*models.AgentStorefrontProduct, error) {
	store, err := s.requireStorefront(ctx, s.repo, agentID)
	if err != nil {
		return nil, err
	}
	product, err := s.products.FindByID(ctx, input.ProductID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
	}
	return s.upsertListing(ctx, s.repo, store.ID, *product, input.CustomPrice)
}

// AddProducts upserts every known product in one transaction. Unknown
// products are skipped; one price below cost rejects the whole batch.
func (s *service) AddProducts(ctx context.Context, agentID uuid.UUID, inputs []ListingInput) ([]models.AgentStorefrontProduct, error) {
	if len(inputs) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "products are required")
	}
	ids := make([]uuid.UUID, 0, len(inputs))
	for _, in := range inputs {
		ids = append(ids, in.ProductID)
	}

	var out []models.AgentStorefrontProduct
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		store, err := s.requireStorefront(ctx, repo, agentID)
		if err != nil {
			return err
		}
		catalog, err := s.products.WithTx(tx).FindByIDs(ctx, ids)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load products")
		}
		for _, in := range inputs {
			product, ok := catalog[in.ProductID]
			if !ok {
				continue
			}
			listing, err := s.upsertListing(ctx, repo, store.ID, product, in.CustomPrice)
			if err != nil {
				return err
			}
			out = append(out, *listing)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *service) UpdateProductPrice(ctx context.Context, agentID, listingID uuid.UUID, customPrice decimal.Decimal) (*models.AgentStorefrontProduct, error) {
	store, err := s.requireStorefront(ctx, s.repo, agentID)
	if err != nil {
		return nil, err
	}
	listing, err := s.repo.FindListingByID(ctx, store.ID, listingID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load listing")
	}
	if listing == nil || listing.Product == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "Product not found in your storefront")
	}
	if customPrice.LessThan(listing.Product.Price) {
		return nil, belowCost(*listing.Product, customPrice)
	}
	if err := s.repo.UpdateListing(ctx, listing.ID, map[string]any{"custom_price": customPrice}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update listing")
	}
	listing.CustomPrice = customPrice
	return listing, nil
}

func (s *service) RemoveProduct(ctx context.Context, agentID, listingID uuid.UUID) error {
	store, err := s.requireStorefront(ctx, s.repo, agentID)
	if err != nil {
		return err
	}
	listing, err := s.repo.FindListingByID(ctx, store.ID, listingID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load listing")
	}
	if listing == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, "Product not found in your storefront")
	}
	if err := s.repo.DeleteListing(ctx, listing.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "remove listing")
	}
	return nil
}

// ListProducts returns an empty list for agents without a storefront.
func (s *service) ListProducts(ctx context.Context, agentID uuid.UUID) ([]models.AgentStorefrontProduct, error) {
	store, err := s.repo.FindStorefrontByAgent(ctx, agentID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load storefront")
	}
	if store == nil {
		return []models.AgentStorefrontProduct{}, nil
	}
	rows, err := s.repo.ListListings(ctx, store.ID, false)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list listings")
	}
	return rows, nil
}

func (s *service) activeStore(ctx context.Context, slug string) (*models.AgentStorefront, error) {
	store, err := s.repo.FindStorefrontBySlug(ctx, strings.TrimSpace(slug))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load storefront")
	}
	if store == nil || !store.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "Store not found or inactive")
	}
	return store, nil
}

func (s *service) PublicStore(ctx context.Context, slug string) (*PublicStore, error) {
	store, err := s.activeStore(ctx, slug)
	if err != nil {
		return nil, err
	}
	listings, err := s.repo.ListListings(ctx, store.ID, true)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list listings")
	}

	out := &PublicStore{
		Storefront: PublicStorefront{
			ID:         store.ID,
			AgentID:    store.AgentID,
			StoreName:  store.StoreName,
			StoreSlug:  store.StoreSlug,
			MomoNumber: s.payment.PaymentNumber,
			MomoName:   s.payment.PaymentName,
		},
		Products: []PublicListing{},
	}
	for _, l := range listings {
		if l.Product == nil || l.Product.Stock <= 0 {
			continue
		}
		out.Products = append(out.Products, PublicListing{
			ID:          l.ID,
			ProductID:   l.ProductID,
			Name:        l.Product.Name,
			Description: l.Product.Description,
			CustomPrice: l.CustomPrice,
			Stock:       l.Product.Stock,
		})
	}
	return out, nil
}

func trimmedOrNil(v *string) *string {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	if t == "" {
		return nil
	}
	return &t
}

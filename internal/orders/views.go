package orders

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/bundlehub-backend/pkg/db/models"
	"github.com/angelmondragon/bundlehub-backend/pkg/enums"
)

// OrderKind tags which table an OrderView came from.
type OrderKind string

const (
	OrderKindRegular OrderKind = "regular"
	OrderKindShop    OrderKind = "shop"
)

// OrderLine is the common shape of a line across both order kinds.
type OrderLine struct {
	ID           uuid.UUID         `json:"id"`
	ProductID    *uuid.UUID        `json:"productId"`
	ProductName  string            `json:"productName"`
	Description  string            `json:"description,omitempty"`
	Quantity     int               `json:"quantity"`
	UnitPrice    decimal.Decimal   `json:"unitPrice"`
	MobileNumber *string           `json:"mobileNumber,omitempty"`
	Status       enums.OrderStatus `json:"status"`
}

// Customer identifies who placed the order. Guest shop orders carry no user id.
type Customer struct {
	ID    *uuid.UUID `json:"id"`
	Name  string     `json:"name"`
	Email string     `json:"email,omitempty"`
	Phone *string    `json:"phone,omitempty"`
}

// OrderView is either a regular cart order or a guest shop order. Exactly one
// of the two sources is set; callers only use the accessors.
type OrderView struct {
	regular *models.Order
	shop    *models.ShopOrder
}

func RegularView(order models.Order) OrderView {
	return OrderView{regular: &order}
}

func ShopView(order models.ShopOrder) OrderView {
	return OrderView{shop: &order}
}

func (v OrderView) Kind() OrderKind {
	if v.shop != nil {
		return OrderKindShop
	}
	return OrderKindRegular
}

func (v OrderView) ID() uuid.UUID {
	if v.shop != nil {
		return v.shop.ID
	}
	return v.regular.ID
}

// CreatedAt is the order creation time; for shop orders the payment order time.
func (v OrderView) CreatedAt() time.Time {
	if v.shop != nil {
		return v.shop.OrderTime
	}
	return v.regular.CreatedAt
}

// Status is the shop order status, or the first item's status for regular orders.
func (v OrderView) Status() enums.OrderStatus {
	if v.shop != nil {
		return v.shop.Status
	}
	if len(v.regular.Items) == 0 {
		return enums.OrderStatusPending
	}
	return v.regular.Items[0].Status
}

func (v OrderView) MobileNumber() *string {
	if v.shop != nil {
		phone := v.shop.PhoneNumber
		return &phone
	}
	return v.regular.MobileNumber
}

func (v OrderView) Customer() Customer {
	if v.shop != nil {
		phone := v.shop.PhoneNumber
		return Customer{Name: "shop", Phone: &phone}
	}
	c := Customer{ID: &v.regular.UserID}
	if u := v.regular.User; u != nil {
		c.Name = u.Name
		c.Email = u.Email
		c.Phone = u.Phone
	}
	return c
}

func (v OrderView) Lines() []OrderLine {
	if v.shop != nil {
		s := v.shop
		name := s.ProductName
		if name == "" {
			name = "Shop Product"
		}
		desc := s.ProductDescription
		if desc == "" {
			desc = "Transaction: " + s.Reference
		}
		price := s.ProductPrice
		if price.IsZero() {
			price = s.Amount
		}
		phone := s.PhoneNumber
		return []OrderLine{{
			ID:           s.ID,
			ProductID:    s.ProductID,
			ProductName:  name,
			Description:  desc,
			Quantity:     1,
			UnitPrice:    price,
			MobileNumber: &phone,
			Status:       s.Status,
		}}
	}
	lines := make([]OrderLine, 0, len(v.regular.Items))
	for _, item := range v.regular.Items {
		productID := item.ProductID
		lines = append(lines, OrderLine{
			ID:           item.ID,
			ProductID:    &productID,
			ProductName:  item.ProductName,
			Quantity:     item.Quantity,
			UnitPrice:    item.UnitPrice,
			MobileNumber: item.MobileNumber,
			Status:       item.Status,
		})
	}
	return lines
}

func (v OrderView) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID           uuid.UUID         `json:"id"`
		Kind         OrderKind         `json:"kind"`
		CreatedAt    time.Time         `json:"createdAt"`
		Status       enums.OrderStatus `json:"status"`
		MobileNumber *string           `json:"mobileNumber,omitempty"`
		User         Customer          `json:"user"`
		Items        []OrderLine       `json:"items"`
	}{
		ID:           v.ID(),
		Kind:         v.Kind(),
		CreatedAt:    v.CreatedAt(),
		Status:       v.Status(),
		MobileNumber: v.MobileNumber(),
		User:         v.Customer(),
		Items:        v.Lines(),
	})
}

// mergeViews interleaves two newest-first lists into one newest-first list.
func mergeViews(regular []models.Order, shop []models.ShopOrder) []OrderView {
	out := make([]OrderView, 0, len(regular)+len(shop))
	i, j := 0, 0
	for i < len(regular) || j < len(shop) {
		switch {
		case j >= len(shop):
			out = append(out, RegularView(regular[i]))
			i++
		case i >= len(regular):
			out = append(out, ShopView(shop[j]))
			j++
		case !shop[j].OrderTime.After(regular[i].CreatedAt):
			out = append(out, RegularView(regular[i]))
			i++
		default:
			out = append(out, ShopView(shop[j]))
			j++
		}
	}
	return out
}

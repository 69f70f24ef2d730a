package enums

import "fmt"

// ProductCategory tags catalog items with the reseller tier allowed to list them.
type ProductCategory string

const (
	ProductCategoryGeneral ProductCategory = "GENERAL"
	ProductCategoryNormal  ProductCategory = "NORMAL"
	ProductCategorySuper   ProductCategory = "SUPER"
	ProductCategoryPremium ProductCategory = "PREMIUM"
	ProductCategoryOther   ProductCategory = "OTHER"
)

var validProductCategories = []ProductCategory{
	ProductCategoryGeneral,
	ProductCategoryNormal,
	ProductCategorySuper,
	ProductCategoryPremium,
	ProductCategoryOther,
}

// IsValid reports whether the value matches a known product category.
func (v ProductCategory) IsValid() bool {
	for _, candidate := range validProductCategories {
		if candidate == v {
			return true
		}
	}
	return false
}

func (v ProductCategory) String() string {
	return string(v)
}

// ParseProductCategory converts raw input into ProductCategory.
func ParseProductCategory(value string) (ProductCategory, error) {
	for _, candidate := range validProductCategories {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid product category %q", value)
}

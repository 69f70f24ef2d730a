package enums

import "fmt"

// UserRole is the account tier of a platform user.
type UserRole string

const (
	UserRoleUser    UserRole = "USER"
	UserRoleNormal  UserRole = "NORMAL"
	UserRoleSuper   UserRole = "SUPER"
	UserRolePremium UserRole = "PREMIUM"
	UserRoleOther   UserRole = "OTHER"
	UserRoleAdmin   UserRole = "ADMIN"
)

var validUserRoles = []UserRole{
	UserRoleUser,
	UserRoleNormal,
	UserRoleSuper,
	UserRolePremium,
	UserRoleOther,
	UserRoleAdmin,
}

// roleCategories resolves which catalog category a reseller tier may list.
var roleCategories = map[UserRole]ProductCategory{
	UserRoleUser:    ProductCategoryGeneral,
	UserRoleNormal:  ProductCategoryNormal,
	UserRoleSuper:   ProductCategorySuper,
	UserRolePremium: ProductCategoryPremium,
	UserRoleOther:   ProductCategoryOther,
}

func (r UserRole) String() string {
	return string(r)
}

// IsValid reports whether the value is a known UserRole.
func (r UserRole) IsValid() bool {
	for _, candidate := range validUserRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// ProductCategory returns the catalog category the role may resell.
func (r UserRole) ProductCategory() (ProductCategory, bool) {
	category, ok := roleCategories[r]
	return category, ok
}

// ParseUserRole converts raw input into a UserRole.
func ParseUserRole(value string) (UserRole, error) {
	for _, candidate := range validUserRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid user role %q", value)
}

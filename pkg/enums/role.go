package enums

import "fmt"

// Role is the coarse actor role carried in access-token claims.
type Role string

const (
	RoleCustomer  Role = "customer"
	RoleStaff     Role = "staff"
	RoleAdmin     Role = "admin"
	RoleShopOwner Role = "shop_owner"
)

var validRoles = []Role{RoleCustomer, RoleStaff, RoleAdmin, RoleShopOwner}

// IsValid reports whether the value matches the canonical role enum.
func (r Role) IsValid() bool {
	for _, candidate := range validRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// IsStaff reports whether the role grants access to admin dashboards.
func (r Role) IsStaff() bool {
	switch r {
	case RoleStaff, RoleAdmin, RoleShopOwner:
		return true
	default:
		return false
	}
}

// ParseRole converts the raw string to Role.
func ParseRole(value string) (Role, error) {
	for _, candidate := range validRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid role %q", value)
}

package domain

import "strings"

// Role is the closed set of account roles.
type Role uint8

const (
	// RoleUnknown marks a missing or corrupt stored role. It is never granted access.
	RoleUnknown Role = iota
	RoleAdmin
	RoleVendor
	RoleEmployee
)

var roleNames = map[Role]string{
	RoleAdmin:    "admin",
	RoleVendor:   "vendor",
	RoleEmployee: "employee",
}

// ParseRole maps a stored role string to a Role.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "admin":
		return RoleAdmin, nil
	case "vendor":
		return RoleVendor, nil
	case "employee":
		return RoleEmployee, nil
	}
	return RoleUnknown, ErrInvalidRole
}

func (r Role) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return "unknown"
}

// Valid reports whether r is one of admin, vendor or employee.
func (r Role) Valid() bool {
	_, ok := roleNames[r]
	return ok
}

// MarshalText encodes the role by name. Unknown roles encode as "unknown".
func (r Role) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText decodes a role name. Unrecognized names decode to RoleUnknown
// so a corrupt value can still be loaded and then denied.
func (r *Role) UnmarshalText(text []byte) error {
	parsed, err := ParseRole(string(text))
	if err != nil {
		*r = RoleUnknown
		return nil
	}
	*r = parsed
	return nil
}

// LandingPath returns where a freshly authenticated user of this role is sent.
func (r Role) LandingPath() string {
	switch r {
	case RoleAdmin:
		return "/admin/manage_users"
	case RoleVendor:
		return "/vendor/product_dashboard"
	case RoleEmployee:
		return "/user/manage_products"
	}
	return "/login"
}

// RoleSet is an allow-list of roles.
type RoleSet uint8

// Roles builds a RoleSet. Invalid roles are ignored.
func Roles(roles ...Role) RoleSet {
	var s RoleSet
	for _, r := range roles {
		if r.Valid() {
			s |= 1 << r
		}
	}
	return s
}

// AllRoles allows every valid role.
var AllRoles = Roles(RoleAdmin, RoleVendor, RoleEmployee)

// Contains reports whether r is in the set. RoleUnknown is never contained.
func (s RoleSet) Contains(r Role) bool {
	if !r.Valid() {
		return false
	}
	return s&(1<<r) != 0
}

func (s RoleSet) String() string {
	var names []string
	for _, r := range []Role{RoleAdmin, RoleVendor, RoleEmployee} {
		if s.Contains(r) {
			names = append(names, r.String())
		}
	}
	return strings.Join(names, ",")
}

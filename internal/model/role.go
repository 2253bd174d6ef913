package model

import (
	"fmt"
	"strings"
)

// Role is the authorization level of a user. The zero value is RoleUser.
type Role uint8

const (
	RoleUser Role = iota
	RoleDriver
	RoleManager
)

// rank defines the hierarchy USER < DRIVER < MANAGER. Unknown values rank
// below every real role so they never satisfy a guard.
func (r Role) rank() int {
	switch r {
	case RoleUser:
		return 1
	case RoleDriver:
		return 2
	case RoleManager:
		return 3
	}
	return 0
}

// AtLeast reports whether r is the same as or above other in the hierarchy.
func (r Role) AtLeast(other Role) bool {
	return r.Valid() && r.rank() >= other.rank()
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool { return r.rank() > 0 }

func (r Role) String() string {
	switch r {
	case RoleUser:
		return "USER"
	case RoleDriver:
		return "DRIVER"
	case RoleManager:
		return "MANAGER"
	}
	return fmt.Sprintf("Role(%d)", uint8(r))
}

// ParseRole accepts the role name in any case.
func ParseRole(s string) (Role, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "USER":
		return RoleUser, nil
	case "DRIVER":
		return RoleDriver, nil
	case "MANAGER":
		return RoleManager, nil
	}
	return 0, fmt.Errorf("unknown role %q", s)
}

func (r Role) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("invalid role %d", uint8(r))
	}
	return []byte(r.String()), nil
}

func (r *Role) UnmarshalText(b []byte) error {
	v, err := ParseRole(string(b))
	if err != nil {
		return err
	}
	*r = v
	return nil
}

package models

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Role is the closed set of caller roles carried in the access token
type Role string

const (
	RolePassenger Role = "passenger"
	RoleDriver    Role = "driver"
	RoleAdmin     Role = "admin"
)

// ParseRole converts a claim value into a Role
func ParseRole(value string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(value))) {
	case RolePassenger:
		return RolePassenger, nil
	case RoleDriver:
		return RoleDriver, nil
	case RoleAdmin:
		return RoleAdmin, nil
	default:
		return "", fmt.Errorf("unknown role %q", value)
	}
}

// CanOfferRides reports whether the role may publish and manage ride offers
func (r Role) CanOfferRides() bool {
	switch r {
	case RoleDriver, RoleAdmin:
		return true
	case RolePassenger:
		return false
	default:
		return false
	}
}

// CanModerate reports whether the role may act on rides it does not own
func (r Role) CanModerate() bool {
	switch r {
	case RoleAdmin:
		return true
	case RoleDriver, RolePassenger:
		return false
	default:
		return false
	}
}

// Actor is the verified caller identity supplied by the auth middleware
type Actor struct {
	UserID uuid.UUID `json:"user_id"`
	Role   Role      `json:"role"`
}

// ID returns the user id in the string form stored in the database
func (a Actor) ID() string {
	return a.UserID.String()
}

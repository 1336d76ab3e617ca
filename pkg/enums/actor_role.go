package enums

import (
	"fmt"
	"strings"
)

// ActorRole identifies who is acting on the dispatch engine. Roles are
// resolved by the external auth service and carried on the access token.
type ActorRole string

const (
	ActorRoleDispatcher ActorRole = "dispatcher"
	ActorRoleCarrier    ActorRole = "carrier"
	ActorRoleDriver     ActorRole = "driver"
	ActorRoleShipper    ActorRole = "shipper"
	ActorRoleAdmin      ActorRole = "admin"
	ActorRoleSystem     ActorRole = "system"
)

var validActorRoles = []ActorRole{
	ActorRoleDispatcher,
	ActorRoleCarrier,
	ActorRoleDriver,
	ActorRoleShipper,
	ActorRoleAdmin,
	ActorRoleSystem,
}

func (r ActorRole) String() string {
	return string(r)
}

func (r ActorRole) IsValid() bool {
	for _, candidate := range validActorRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// IsStaff reports whether the role may drive any dispatch operation.
func (r ActorRole) IsStaff() bool {
	return r == ActorRoleDispatcher || r == ActorRoleAdmin
}

func ParseActorRole(value string) (ActorRole, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for _, candidate := range validActorRoles {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid actor role %q", value)
}

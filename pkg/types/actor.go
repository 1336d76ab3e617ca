package types

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/freightdispatch-backend/pkg/enums"
)

// Actor identifies the authenticated caller of a dispatch operation.
// CompanyID is the carrier (or shipper) the user acts for; staff roles may
// leave it nil.
type Actor struct {
	UserID    uuid.UUID       `json:"user_id"`
	CompanyID *uuid.UUID      `json:"company_id,omitempty"`
	Role      enums.ActorRole `json:"role"`
}

// SystemActor is used by workers and cron jobs.
var SystemActor = Actor{Role: enums.ActorRoleSystem}

// IsStaff reports whether the actor is a dispatcher or admin.
func (a Actor) IsStaff() bool {
	return a.Role.IsStaff()
}

// ActsFor reports whether the actor represents the given company.
func (a Actor) ActsFor(companyID uuid.UUID) bool {
	return a.CompanyID != nil && *a.CompanyID == companyID
}

// UserRef returns a pointer to the user id, or nil for anonymous system actors.
func (a Actor) UserRef() *uuid.UUID {
	if a.UserID == uuid.Nil {
		return nil
	}
	id := a.UserID
	return &id
}

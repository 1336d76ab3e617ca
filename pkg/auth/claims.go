package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/freightdispatch-backend/pkg/enums"
	"github.com/angelmondragon/freightdispatch-backend/pkg/types"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID    uuid.UUID
	CompanyID *uuid.UUID
	Role      enums.ActorRole
	TTL       time.Duration
}

// AccessTokenClaims represents the typed JWT presented by callers.
type AccessTokenClaims struct {
	UserID    uuid.UUID       `json:"user_id"`
	CompanyID *uuid.UUID      `json:"company_id,omitempty"`
	Role      enums.ActorRole `json:"role"`
	jwt.RegisteredClaims
}

// Actor converts verified claims into the request actor.
func (c *AccessTokenClaims) Actor() types.Actor {
	return types.Actor{
		UserID:    c.UserID,
		CompanyID: c.CompanyID,
		Role:      c.Role,
	}
}

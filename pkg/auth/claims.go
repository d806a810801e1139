package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/thanhcle/lunaria-backend/pkg/enums"
)

// AccessTokenPayload captures the data available when minting a JWT.
// Username is the staff display name; customer tokens leave it empty.
type AccessTokenPayload struct {
	UserID   uuid.UUID
	Username string
	Role     enums.Role
	JTI      string
}

// AccessTokenClaims represents the typed JWT issued to clients.
type AccessTokenClaims struct {
	UserID   uuid.UUID  `json:"user_id"`
	Username string     `json:"username,omitempty"`
	Role     enums.Role `json:"role"`
	jwt.RegisteredClaims
}

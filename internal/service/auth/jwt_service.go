// Package auth verifies the bearer tokens issued by the external
// identity provider. This service never issues end-user credentials;
// it only validates tokens and extracts the owner ID that scopes every
// downstream operation.
package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// JWTService defines operations for working with JWT bearer tokens.
type JWTService interface {
	// ValidateToken validates the provided token string and extracts the
	// claims. Returns the claims if the token is valid, or an error if
	// validation fails (expired, invalid signature, malformed).
	ValidateToken(ctx context.Context, tokenString string) (*Claims, error)

	// GenerateToken creates a signed token for the given owner. Used by
	// operational tooling and tests; production tokens come from the
	// identity provider.
	GenerateToken(ctx context.Context, ownerID uuid.UUID) (string, error)
}

// Claims represents the claims carried by a verified token.
type Claims struct {
	// OwnerID is the unique identifier of the account the token was
	// issued for.
	OwnerID uuid.UUID `json:"uid,omitempty"`

	// Standard registered JWT claims
	Subject   string    `json:"sub,omitempty"`
	IssuedAt  time.Time `json:"iat,omitempty"`
	ExpiresAt time.Time `json:"exp,omitempty"`
	ID        string    `json:"jti,omitempty"`
}

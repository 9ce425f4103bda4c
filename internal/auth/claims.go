package auth

import "github.com/golang-jwt/jwt/v5"

// SignerClaims are the claims carried by editor and signer session tokens.
// Subject is the user or party id; Role distinguishes full editors from
// recipients who may only fill values and sign.
type SignerClaims struct {
	Role  string `json:"role"`
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Roles accepted by the verifier.
const (
	RoleEditor = "editor"
	RoleSigner = "signer"
)

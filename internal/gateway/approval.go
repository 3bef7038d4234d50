package gateway

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ApprovalVerifier validates supervisor-approval tokens. Approvals are
// short-lived HS256 JWTs issued by the supervisor workflow; only a token
// that verifies here reaches the policy engine as an approval reference.
type ApprovalVerifier struct {
	key []byte
}

// NewApprovalVerifier builds a verifier over the shared signing key.
func NewApprovalVerifier(signingKey string) (*ApprovalVerifier, error) {
	if signingKey == "" {
		return nil, fmt.Errorf("approval signing key is required")
	}
	return &ApprovalVerifier{key: []byte(signingKey)}, nil
}

// Verify checks signature and expiry and returns the approval reference
// (the token's jti claim).
func (v *ApprovalVerifier) Verify(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{},
		func(t *jwt.Token) (any, error) { return v.key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return "", fmt.Errorf("verify approval token: %w", err)
	}
	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.ID == "" {
		return "", fmt.Errorf("approval token missing id claim")
	}
	return claims.ID, nil
}

// Issue signs an approval token. Used by the supervisor workflow and tests.
func (v *ApprovalVerifier) Issue(approvalID, approverID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		ID:        approvalID,
		Subject:   approverID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(v.key)
	if err != nil {
		return "", fmt.Errorf("sign approval token: %w", err)
	}
	return signed, nil
}

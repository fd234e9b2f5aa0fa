// Package auth implements the Session & Authorization layer of spec.md
// §4.9 (component E): login/logout with the single-session-per-user rule,
// membership identification, and the role/ownership checks every
// dispatcher action enforces, plus the JWT-signed QR payload of
// SPEC_FULL.md §4.9+.
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	berrors "bistro-server/pkg/errors"
)

// membershipClaims carries a MEMBER's membership code inside a signed,
// short-lived token (SPEC_FULL.md §4.9+'s tamper-evident QR payload).
type membershipClaims struct {
	MembershipCode int `json:"membershipCode"`
	jwt.RegisteredClaims
}

// QRSigner signs and verifies the membership-code QR payload. It does not
// change spec.md's data model: the membership code is still the unique
// 6-digit `users.member_code` column, the JWT is only a transport-layer
// encoding of it.
type QRSigner struct {
	secret []byte
	ttl    time.Duration
	issuer string
}

// NewQRSigner builds a signer bound to secret (HS256) with the given token
// lifetime.
func NewQRSigner(secret string, ttl time.Duration) *QRSigner {
	return &QRSigner{secret: []byte(secret), ttl: ttl, issuer: "bistro-server"}
}

// Sign issues a short-lived JWT encoding membershipCode, suitable for a
// tamper-evident QR code. REGISTER_CLIENT's reply does not include such a
// token; it carries the user record only.
func (s *QRSigner) Sign(membershipCode int) (string, error) {
	claims := membershipClaims{
		MembershipCode: membershipCode,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    s.issuer,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Verify parses and validates a previously-signed token, returning the
// membership code it carries.
func (s *QRSigner) Verify(tokenString string) (int, error) {
	token, err := jwt.ParseWithClaims(tokenString, &membershipClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return 0, berrors.ErrInvalidToken
	}
	claims, ok := token.Claims.(*membershipClaims)
	if !ok || !token.Valid {
		return 0, berrors.ErrInvalidToken
	}
	return claims.MembershipCode, nil
}

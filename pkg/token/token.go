package token

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrInvalidToken = fmt.Errorf("invalid or expired token")

// Signer issues and verifies HS256 tokens with a shared secret.
type Signer struct {
	secret []byte
	now    func() time.Time
}

func NewSigner(secret string) *Signer {
	return &Signer{secret: []byte(secret), now: time.Now}
}

// Sign stamps iat and, when ttl is positive, exp onto claims.
func (s *Signer) Sign(claims Claims, ttl time.Duration) (string, error) {
	now := s.now()
	rc := claims.registered()
	rc.IssuedAt = jwt.NewNumericDate(now)
	if ttl > 0 {
		rc.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Parse verifies raw and decodes it into claims.
func (s *Signer) Parse(raw string, claims Claims) error {
	tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now), jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !tok.Valid {
		return fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return nil
}

// Claims is any claim set built on jwt.RegisteredClaims.
type Claims interface {
	jwt.Claims
	registered() *jwt.RegisteredClaims
}

// APIClaims identify the caller of the REST API.
type APIClaims struct {
	jwt.RegisteredClaims
	TenantID    uuid.UUID `json:"tenantId"`
	UserID      uuid.UUID `json:"userId"`
	Roles       []string  `json:"roles,omitempty"`
	Permissions []string  `json:"permissions,omitempty"`
}

func (c *APIClaims) registered() *jwt.RegisteredClaims { return &c.RegisteredClaims }

// Registered lets other packages embed RegisteredClaims and satisfy Claims.
type Registered struct {
	jwt.RegisteredClaims
}

func (r *Registered) registered() *jwt.RegisteredClaims { return &r.RegisteredClaims }

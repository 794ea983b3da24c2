package oauth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/crowd-dev/crowd-api/pkg/token"
)

// State is carried through the provider round trip in the state parameter.
type State struct {
	token.Registered
	TenantID    uuid.UUID `json:"tenantId"`
	UserID      uuid.UUID `json:"userId"`
	Roles       []string  `json:"roles,omitempty"`
	RedirectURL string    `json:"redirectUrl"`
	Platform    string    `json:"platform"`
}

// StateCodec signs and verifies State blobs.
type StateCodec struct {
	signer *token.Signer
	secret []byte
	ttl    time.Duration
}

func NewStateCodec(secret string, ttl time.Duration) *StateCodec {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &StateCodec{signer: token.NewSigner(secret), secret: []byte(secret), ttl: ttl}
}

func (c *StateCodec) Encode(s *State) (string, error) {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return c.signer.Sign(s, c.ttl)
}

func (c *StateCodec) Decode(raw string) (*State, error) {
	var s State
	if err := c.signer.Parse(raw, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Verifier derives the PKCE verifier for a state from its jti, so nothing
// has to be stored between the redirect and the callback.
func (c *StateCodec) Verifier(s *State) string {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write([]byte("pkce:" + s.ID))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// ErrorRedirect appends error=<platform>auth to redirectURL, or to fallback
// when redirectURL is empty.
func ErrorRedirect(redirectURL, fallback, platform string) string {
	target := strings.TrimSpace(redirectURL)
	if target == "" {
		target = fallback
	}
	sep := "?"
	if strings.Contains(target, "?") {
		sep = "&"
	}
	return target + sep + "error=" + url.QueryEscape(platform+"auth")
}

var _ jwt.Claims = (*State)(nil)

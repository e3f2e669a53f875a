// Package auth issues and verifies the bearer credentials returned by login.
// A credential is a signed JWT carrying the account id and wa_id; expiry and
// signature are the only validity checks, there is no revocation list.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken covers missing, malformed, expired and badly signed
	// credentials alike; callers treat them all as unauthorized.
	ErrInvalidToken = errors.New("invalid or expired token")
)

// Identity is the verified content of a bearer credential.
type Identity struct {
	AccountID string
	WaID      string
}

type claims struct {
	AccountID string `json:"account_id"`
	WaID      string `json:"wa_id"`
	jwt.RegisteredClaims
}

// Signer issues and verifies tokens with a server-held HMAC secret.
type Signer struct {
	secret []byte
	ttl    time.Duration
}

// NewSigner creates a Signer. ttl bounds credential validity; zero means the
// default 7 days.
func NewSigner(secret string, ttl time.Duration) *Signer {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &Signer{secret: []byte(secret), ttl: ttl}
}

// Issue signs a credential for the given account.
func (s *Signer) Issue(accountID, waID string) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		AccountID: accountID,
		WaID:      waID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	})
	return token.SignedString(s.secret)
}

// Verify decodes and checks a credential. Side-effect-free.
func (s *Signer) Verify(tokenString string) (*Identity, error) {
	if tokenString == "" {
		return nil, ErrInvalidToken
	}

	parsed, err := jwt.ParseWithClaims(tokenString, &claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}

	c, ok := parsed.Claims.(*claims)
	if !ok || c.WaID == "" {
		return nil, ErrInvalidToken
	}

	return &Identity{AccountID: c.AccountID, WaID: c.WaID}, nil
}

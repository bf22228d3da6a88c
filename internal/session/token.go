package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token is a signed HS256 session token and its expiry.
type Token struct {
	Token string
	Exp   time.Time
}

type claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Signer issues and verifies session tokens with a shared secret.
type Signer struct {
	secret []byte
	now    func() time.Time
}

// NewSigner returns a signer for secret.
func NewSigner(secret string) *Signer {
	return &Signer{secret: []byte(secret), now: func() time.Time { return time.Now().UTC() }}
}

// Issue signs a token for userID with role that expires after ttl.  The
// token carries the standard sub, exp and iat claims plus role.
func (s *Signer) Issue(userID, role string, ttl time.Duration) (Token, error) {
	if userID == "" {
		return Token{}, errors.New("session: empty user id")
	}
	now := s.now()
	exp := now.Add(ttl)
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	})
	signed, err := t.SignedString(s.secret)
	if err != nil {
		return Token{}, err
	}
	return Token{Token: signed, Exp: exp}, nil
}

// Verify checks the signature and expiry of raw and returns the
// identity it names.  Only HMAC-SHA256 tokens are accepted.
func (s *Signer) Verify(raw string) (Identity, error) {
	var c claims
	tok, err := jwt.ParseWithClaims(raw, &c, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	if !tok.Valid || c.Subject == "" {
		return Identity{}, ErrUnauthenticated
	}
	return Identity{UserID: c.Subject, Role: c.Role}, nil
}

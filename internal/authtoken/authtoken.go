// Package authtoken issues and verifies the JWT that stands in for the
// compile-time "is this process a supervisor controller" flag the
// original C API reads from a linker define. A Go library embedded in
// arbitrary controller binaries has no such compile-time hook, so the
// claim instead is carried as a signed token. supervisorctl's connect
// and serve commands mint tokens with Issuer; nothing in this module
// calls Verifier, which is left to whatever verifies on the simulator
// side.
package authtoken

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNotSupervisor is returned by Verify when the token is well-formed
// and correctly signed but does not carry the supervisor claim.
var ErrNotSupervisor = errors.New("authtoken: token does not claim supervisor privilege")

// Claims is the JWT payload a supervisor controller presents. Only the
// Supervisor flag is specific to this domain; the rest are the standard
// registered claims golang-jwt already models.
type Claims struct {
	Supervisor bool `json:"supervisor"`
	jwt.RegisteredClaims
}

// Issuer mints supervisor tokens signed with a single HMAC secret.
// The teacher's pkg/auth chains multiple providers (password, API key,
// OIDC); this engine recognizes exactly one caller identity model, so
// the chaining collapses to one provider (see DESIGN.md).
type Issuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

// NewIssuer builds an Issuer. ttl is the validity window of freshly
// minted tokens; it does not bound verification of tokens minted
// elsewhere with a longer expiry.
func NewIssuer(secret []byte, issuer string, ttl time.Duration) *Issuer {
	return &Issuer{secret: secret, issuer: issuer, ttl: ttl}
}

// Issue mints a signed supervisor token for subject (typically a
// controller or robot name).
func (i *Issuer) Issue(subject string) (string, error) {
	now := time.Now()
	claims := Claims{
		Supervisor: true,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    i.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString(i.secret)
}

// Verifier checks a presented token and extracts its claims.
type Verifier struct {
	secret []byte
	issuer string
}

// NewVerifier builds a Verifier for tokens signed with secret. issuer,
// when non-empty, is checked against the token's "iss" claim.
func NewVerifier(secret []byte, issuer string) *Verifier {
	return &Verifier{secret: secret, issuer: issuer}
}

// Verify parses and validates tokenString, returning ErrNotSupervisor if
// the token is valid but lacks the supervisor claim.
func (v *Verifier) Verify(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("authtoken: unexpected signing method %v", t.Header["alg"])
		}
		return v.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("authtoken: %w", err)
	}
	if !tok.Valid {
		return nil, fmt.Errorf("authtoken: token invalid")
	}
	if !claims.Supervisor {
		return nil, ErrNotSupervisor
	}
	return claims, nil
}

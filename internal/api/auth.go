package api

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MicahParks/keyfunc"
	"github.com/golang-jwt/jwt/v4"
)

var (
	errMissingAuthorization = errors.New("missing authorization header")
	errBadAuthorization     = errors.New("malformed authorization header")
)

// Principal is the authenticated caller of a request.
type Principal struct {
	Subject string
	Roles   []string
}

// WithPrincipal returns a context carrying p.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFrom returns the caller stored by Auth. ok is false when the
// server runs without authentication.
func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey).(Principal)
	return p, ok
}

// Authenticator validates JWT bearer tokens signed either with a shared
// HS256 secret or with RS256 keys published as a JWKS.
type Authenticator struct {
	secret   []byte
	jwks     *keyfunc.JWKS
	audience string
	issuer   string
	parser   *jwt.Parser
}

// NewHMACAuthenticator validates HS256 tokens signed with secret.
func NewHMACAuthenticator(secret, audience, issuer string) *Authenticator {
	return &Authenticator{
		secret:   []byte(secret),
		audience: audience,
		issuer:   issuer,
		parser:   jwt.NewParser(jwt.WithValidMethods([]string{"HS256"})),
	}
}

// NewJWKSAuthenticator validates RS256 tokens against keys from jwks.
func NewJWKSAuthenticator(jwks *keyfunc.JWKS, audience, issuer string) *Authenticator {
	return &Authenticator{
		jwks:     jwks,
		audience: audience,
		issuer:   issuer,
		parser:   jwt.NewParser(jwt.WithValidMethods([]string{"RS256"})),
	}
}

func (a *Authenticator) keyFor(t *jwt.Token) (any, error) {
	if a.jwks != nil {
		return a.jwks.Keyfunc(t)
	}
	if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, errors.New("invalid signing method")
	}
	return a.secret, nil
}

// Authenticate parses the Authorization header and returns the caller.
func (a *Authenticator) Authenticate(header string) (Principal, error) {
	if header == "" {
		return Principal{}, errMissingAuthorization
	}
	raw, ok := bearerToken(header)
	if !ok || raw == "" {
		return Principal{}, errBadAuthorization
	}

	token, err := a.parser.Parse(raw, a.keyFor)
	if err != nil {
		return Principal{}, fmt.Errorf("parse token: %w", err)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Principal{}, errors.New("invalid claims")
	}

	now := time.Now().Unix()
	if !claims.VerifyExpiresAt(now, false) {
		return Principal{}, errors.New("token expired")
	}
	if a.audience != "" && !claims.VerifyAudience(a.audience, true) {
		return Principal{}, errors.New("invalid audience")
	}
	if a.issuer != "" && !claims.VerifyIssuer(a.issuer, true) {
		return Principal{}, errors.New("invalid issuer")
	}

	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return Principal{}, errors.New("missing sub")
	}
	return Principal{Subject: sub, Roles: rolesClaim(claims["roles"])}, nil
}

func rolesClaim(v any) []string {
	switch roles := v.(type) {
	case []any:
		out := make([]string, 0, len(roles))
		for _, r := range roles {
			if s, ok := r.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	case string:
		if roles != "" {
			return []string{roles}
		}
	}
	return nil
}

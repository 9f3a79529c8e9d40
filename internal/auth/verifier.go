// Package auth provides JWT verification helpers.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Verifier validates bearer tokens and extracts tenant/role claims.
// Supports modes: dev (token is "tenant:role", no signature) and hmac (HS256).
type Verifier struct {
	Mode        string
	HMACSecret  []byte
	TenantClaim string
	RoleClaim   string
}

type Principal struct {
	Tenant  string
	Role    string
	Subject string
}

var ErrUnauthorized = errors.New("unauthorized")

func NewVerifier(mode, secret string) *Verifier {
	mode = strings.ToLower(strings.TrimSpace(mode))
	if mode == "" {
		mode = "dev"
	}
	return &Verifier{Mode: mode, HMACSecret: []byte(secret), TenantClaim: "tenant", RoleClaim: "role"}
}

func (v *Verifier) Verify(token string) (Principal, error) {
	switch v.Mode {
	case "dev":
		tenant, role, ok := strings.Cut(token, ":")
		if !ok || tenant == "" {
			return Principal{}, fmt.Errorf("%w: invalid dev token; expected tenant:role", ErrUnauthorized)
		}
		return Principal{Tenant: tenant, Role: role}, nil
	case "hmac":
		return v.verifyHMAC(token)
	}
	return Principal{}, fmt.Errorf("%w: unsupported auth mode %q", ErrUnauthorized, v.Mode)
}

func (v *Verifier) verifyHMAC(token string) (Principal, error) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return v.HMACSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return Principal{}, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	p := Principal{}
	p.Tenant, _ = claims[v.TenantClaim].(string)
	p.Role, _ = claims[v.RoleClaim].(string)
	p.Subject, _ = claims.GetSubject()
	if p.Tenant == "" {
		return Principal{}, fmt.Errorf("%w: missing %s claim", ErrUnauthorized, v.TenantClaim)
	}
	return p, nil
}

// Issue signs an HS256 token for p valid for ttl. Used by tooling and tests.
func (v *Verifier) Issue(p Principal, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		v.TenantClaim: p.Tenant,
		v.RoleClaim:   p.Role,
		"iat":         now.Unix(),
		"exp":         now.Add(ttl).Unix(),
	}
	if p.Subject != "" {
		claims["sub"] = p.Subject
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.HMACSecret)
}

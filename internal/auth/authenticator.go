// Package auth validates HS256 access tokens and issues them for local tooling.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	pkgerrors "codearena/pkg/errors"

	"github.com/golang-jwt/jwt/v5"
)

const tokenTypeAccess = "access"

// Identity is the authenticated caller.
type Identity struct {
	UserID int64
	Role   string
}

// Config holds token settings.
type Config struct {
	Secret    string        `yaml:"secret"`
	Issuer    string        `yaml:"issuer"`
	AccessTTL time.Duration `yaml:"accessTTL"`
}

// Authenticator verifies access tokens.
type Authenticator struct {
	secret    []byte
	issuer    string
	accessTTL time.Duration
	now       func() time.Time
}

type tokenClaims struct {
	Role      string `json:"role"`
	TokenType string `json:"typ"`
	jwt.RegisteredClaims
}

// NewAuthenticator creates an authenticator. The secret must not be empty.
func NewAuthenticator(cfg Config) (*Authenticator, error) {
	if cfg.Secret == "" {
		return nil, fmt.Errorf("jwt secret is required")
	}
	ttl := cfg.AccessTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Authenticator{
		secret:    []byte(cfg.Secret),
		issuer:    cfg.Issuer,
		accessTTL: ttl,
		now:       time.Now,
	}, nil
}

// Authenticate parses a raw bearer token.
func (a *Authenticator) Authenticate(ctx context.Context, raw string) (Identity, error) {
	if raw == "" {
		return Identity{}, pkgerrors.New(pkgerrors.TokenInvalid)
	}
	claims, err := a.parseToken(raw)
	if err != nil {
		return Identity{}, err
	}
	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return Identity{}, pkgerrors.New(pkgerrors.TokenInvalid)
	}
	return Identity{UserID: userID, Role: claims.Role}, nil
}

// IssueToken signs an access token for userID.
func (a *Authenticator) IssueToken(userID int64, role string) (string, error) {
	if userID <= 0 {
		return "", pkgerrors.ValidationError("user_id", "required")
	}
	now := a.now()
	claims := tokenClaims{
		Role:      role,
		TokenType: tokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			Issuer:    a.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.accessTTL)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", pkgerrors.Wrapf(err, pkgerrors.InternalServerError, "sign token failed")
	}
	return signed, nil
}

func (a *Authenticator) parseToken(raw string) (*tokenClaims, error) {
	parsed, err := jwt.ParseWithClaims(raw, &tokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.secret, nil
	}, jwt.WithTimeFunc(a.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, pkgerrors.New(pkgerrors.TokenExpired)
		}
		return nil, pkgerrors.New(pkgerrors.TokenInvalid)
	}
	claims, ok := parsed.Claims.(*tokenClaims)
	if !ok || !parsed.Valid {
		return nil, pkgerrors.New(pkgerrors.TokenInvalid)
	}
	if a.issuer != "" && claims.Issuer != a.issuer {
		return nil, pkgerrors.New(pkgerrors.TokenInvalid)
	}
	if claims.TokenType != tokenTypeAccess || claims.Subject == "" {
		return nil, pkgerrors.New(pkgerrors.TokenInvalid)
	}
	return claims, nil
}

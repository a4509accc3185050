package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/roach88/mallstore/internal/model"
)

// Provider yields the current owner id. Implementations return a
// model.ErrCodeAuthenticationRequired error when no owner is available.
type Provider interface {
	CurrentOwner(ctx context.Context) (string, error)
}

// Static always yields the same owner. The zero value is unauthenticated.
type Static struct {
	OwnerID string
}

// CurrentOwner implements Provider.
func (s Static) CurrentOwner(context.Context) (string, error) {
	if s.OwnerID == "" {
		return "", model.NewAuthenticationRequiredError()
	}
	return s.OwnerID, nil
}

type tokenKey struct{}

// WithToken returns a context carrying a raw bearer token. A leading
// "Bearer " prefix is stripped.
func WithToken(ctx context.Context, token string) context.Context {
	token = strings.TrimSpace(token)
	if len(token) > 7 && strings.EqualFold(token[:7], "bearer ") {
		token = token[7:]
	}
	return context.WithValue(ctx, tokenKey{}, token)
}

// TokenFromContext returns the token stored by WithToken.
func TokenFromContext(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(tokenKey{}).(string)
	return token, ok && token != ""
}

// JWTProvider resolves the owner from an HS256-signed token on the context.
type JWTProvider struct {
	secret []byte
	now    func() time.Time
}

// NewJWTProvider creates a provider verifying tokens with secret.
func NewJWTProvider(secret []byte) (*JWTProvider, error) {
	if len(secret) == 0 {
		return nil, errors.New("jwt secret is required")
	}
	return &JWTProvider{secret: secret, now: time.Now}, nil
}

// CurrentOwner implements Provider.
func (p *JWTProvider) CurrentOwner(ctx context.Context) (string, error) {
	raw, ok := TokenFromContext(ctx)
	if !ok {
		return "", model.NewAuthenticationRequiredError()
	}

	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (any, error) {
		return p.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(p.now),
	)
	if err != nil {
		authErr := model.NewAuthenticationRequiredError()
		authErr.Err = err
		return "", authErr
	}

	if claims.Subject == "" {
		authErr := model.NewAuthenticationRequiredError()
		authErr.Err = errors.New("token has no subject")
		return "", authErr
	}
	return claims.Subject, nil
}

// Issue signs a token for ownerID valid for ttl.
func (p *JWTProvider) Issue(ownerID string, ttl time.Duration) (string, error) {
	now := p.now()
	claims := jwt.RegisteredClaims{
		Subject:   ownerID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Package token issues and verifies HS256 bearer tokens.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/99minutos/user-service/internal/core/domain"
)

const (
	DefaultAccessLifespan  = 24 * time.Hour
	DefaultRefreshLifespan = 30 * 24 * time.Hour
)

// Claims is the signed token payload.
type Claims struct {
	RefreshExpiresAt int64    `json:"rf_exp"`
	Roles            []string `json:"rls,omitempty"`
	jwt.RegisteredClaims
}

// Config holds the signing key and lifespans.
type Config struct {
	Secret          []byte
	Issuer          string
	AccessLifespan  time.Duration
	RefreshLifespan time.Duration
}

type Option func(*JWTCodec)

// WithClock replaces time.Now for issuing and validating tokens.
func WithClock(now func() time.Time) Option {
	return func(c *JWTCodec) { c.now = now }
}

// JWTCodec implements ports.TokenCodec.
type JWTCodec struct {
	secret  []byte
	issuer  string
	access  time.Duration
	refresh time.Duration
	now     func() time.Time
}

func NewJWTCodec(cfg Config, opts ...Option) (*JWTCodec, error) {
	if len(cfg.Secret) == 0 {
		return nil, errors.New("token: empty signing secret")
	}
	c := &JWTCodec{
		secret:  cfg.Secret,
		issuer:  cfg.Issuer,
		access:  cfg.AccessLifespan,
		refresh: cfg.RefreshLifespan,
		now:     time.Now,
	}
	if c.access <= 0 {
		c.access = DefaultAccessLifespan
	}
	if c.refresh <= 0 {
		c.refresh = DefaultRefreshLifespan
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *JWTCodec) Issue(user *domain.User) (string, error) {
	if user == nil || user.ID == "" {
		return "", errors.New("token: user has no id")
	}
	now := c.now().UTC()
	claims := Claims{
		RefreshExpiresAt: now.Add(c.refresh).Unix(),
		Roles:            user.Roles,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   user.ID,
			Issuer:    c.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.access)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (c *JWTCodec) Decode(raw string) (domain.Identity, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	}
	if c.issuer != "" {
		opts = append(opts, jwt.WithIssuer(c.issuer))
	}

	claims, err := c.parse(raw, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return domain.Identity{}, domain.ErrTokenExpired
		}
		return domain.Identity{}, fmt.Errorf("%w: %v", domain.ErrTokenInvalid, err)
	}
	return identityFrom(claims), nil
}

func (c *JWTCodec) DecodeForRefresh(raw string) (domain.Identity, error) {
	claims, err := c.parse(raw,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("%w: %v", domain.ErrTokenInvalid, err)
	}
	if c.issuer != "" && claims.Issuer != c.issuer {
		return domain.Identity{}, fmt.Errorf("%w: unexpected issuer", domain.ErrTokenInvalid)
	}
	if claims.RefreshExpiresAt == 0 {
		return domain.Identity{}, fmt.Errorf("%w: missing refresh expiry", domain.ErrTokenInvalid)
	}
	if c.now().After(time.Unix(claims.RefreshExpiresAt, 0)) {
		return domain.Identity{}, domain.ErrTokenExpired
	}
	return identityFrom(claims), nil
}

func (c *JWTCodec) parse(raw string, opts ...jwt.ParserOption) (*Claims, error) {
	claims := &Claims{}
	tkn, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return c.secret, nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	if !tkn.Valid {
		return nil, jwt.ErrTokenUnverifiable
	}
	if claims.Subject == "" {
		return nil, errors.New("missing subject")
	}
	return claims, nil
}

func identityFrom(claims *Claims) domain.Identity {
	id := domain.Identity{
		UserID:           claims.Subject,
		Roles:            domain.Roles(claims.Roles),
		RefreshExpiresAt: time.Unix(claims.RefreshExpiresAt, 0).UTC(),
	}
	if claims.IssuedAt != nil {
		id.IssuedAt = claims.IssuedAt.UTC()
	}
	if claims.ExpiresAt != nil {
		id.ExpiresAt = claims.ExpiresAt.UTC()
	}
	return id
}

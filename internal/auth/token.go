package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/KromaEnergia/api-marketplace/internal/apperr"
	"github.com/KromaEnergia/api-marketplace/internal/config"
	"github.com/KromaEnergia/api-marketplace/internal/models"
)

// Claims do access token: id do usuário e papel no marketplace.
type Claims struct {
	UserID string      `json:"userId"`
	Role   models.Role `json:"role"`
	jwt.RegisteredClaims
}

// TokenIssuer emite e valida access tokens HS256.
type TokenIssuer struct {
	secret    []byte
	issuer    string
	accessTTL time.Duration
	now       func() time.Time
}

func NewTokenIssuer(cfg config.AuthConfig) *TokenIssuer {
	ttl := cfg.AccessTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &TokenIssuer{
		secret:    []byte(cfg.JWTSecret),
		issuer:    cfg.Issuer,
		accessTTL: ttl,
		now:       time.Now,
	}
}

func (t *TokenIssuer) AccessTTL() time.Duration { return t.accessTTL }

func (t *TokenIssuer) GenerateAccessToken(userID string, role models.Role) (string, error) {
	if len(t.secret) == 0 {
		return "", errors.New("auth: jwt secret not configured")
	}
	now := t.now()
	claims := &Claims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    t.issuer,
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(t.accessTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now.Add(-1 * time.Minute)),
			ID:        uuid.NewString(),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}

// Valida assinatura, método, iss e exp
func (t *TokenIssuer) ParseAndValidate(tokenStr string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	}
	if t.issuer != "" {
		opts = append(opts, jwt.WithIssuer(t.issuer))
	}

	tok, err := jwt.NewParser(opts...).ParseWithClaims(tokenStr, &Claims{}, func(*jwt.Token) (interface{}, error) {
		return t.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("token inválido ou expirado: %w", err)
	}
	c, ok := tok.Claims.(*Claims)
	if !ok || !tok.Valid {
		return nil, errors.New("claims inválidas")
	}
	if c.UserID == "" || !c.Role.Valid() {
		return nil, errors.New("claims incompletas")
	}
	return c, nil
}

// Authenticate lê o header Authorization: Bearer e devolve a identidade.
// Qualquer falha vira Unauthenticated.
func (t *TokenIssuer) Authenticate(r *http.Request) (models.Identity, error) {
	h := r.Header.Get("Authorization")
	if h == "" || !strings.HasPrefix(h, "Bearer ") {
		return models.Identity{}, apperr.Unauthenticated("missing bearer token")
	}
	claims, err := t.ParseAndValidate(strings.TrimPrefix(h, "Bearer "))
	if err != nil {
		return models.Identity{}, apperr.Wrap(err, apperr.KindUnauthenticated, "invalid token")
	}
	return models.Identity{UserID: claims.UserID, Role: claims.Role}, nil
}

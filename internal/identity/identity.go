// Package identity resolves bearer tokens to viewer ids. Tokens are issued by
// the external session service and signed with a shared HMAC secret.
package identity

import (
	"errors"
	"strings"
	"time"

	"pawfeed/internal/config"
	"pawfeed/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Anonymous is the viewer id of an unauthenticated request.
const Anonymous = ""

var (
	errMissingSubject = errors.New("missing subject")
	errBadSubject     = errors.New("subject is not a profile id")
)

// Provider verifies tokens.
type Provider struct {
	secret   []byte
	issuer   string
	audience string
}

// NewProvider builds a Provider from cfg.
func NewProvider(cfg *config.Config) *Provider {
	return &Provider{
		secret:   []byte(cfg.JWTSecret),
		issuer:   cfg.JWTIssuer,
		audience: cfg.JWTAudience,
	}
}

// FromHeader extracts the token of an "Authorization: Bearer <token>" header.
// ok is false when the header is absent; a present but malformed header is an
// error.
func FromHeader(header string) (token string, ok bool, err error) {
	if header == "" {
		return "", false, nil
	}
	parts := strings.Split(header, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", true, models.NewUnauthorizedError("Invalid authorization header format")
	}
	return parts[1], true, nil
}

// Resolve validates token and returns the viewer id from its subject claim.
func (p *Provider) Resolve(token string) (string, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{
		jwt.SigningMethodHS256.Alg(),
		jwt.SigningMethodHS384.Alg(),
		jwt.SigningMethodHS512.Alg(),
	})}
	if p.issuer != "" {
		opts = append(opts, jwt.WithIssuer(p.issuer))
	}
	if p.audience != "" {
		opts = append(opts, jwt.WithAudience(p.audience))
	}

	parsed, err := jwt.ParseWithClaims(token, &jwt.RegisteredClaims{}, func(*jwt.Token) (interface{}, error) {
		return p.secret, nil
	}, opts...)
	if err != nil || !parsed.Valid {
		return "", &models.AppError{Code: models.CodeUnauthorized, Message: "Invalid or expired token", Err: err}
	}

	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return "", &models.AppError{Code: models.CodeUnauthorized, Message: "Invalid token structure - missing subject", Err: errMissingSubject}
	}
	if _, err := uuid.Parse(claims.Subject); err != nil {
		return "", &models.AppError{Code: models.CodeUnauthorized, Message: "Invalid user ID in token", Err: errBadSubject}
	}
	return claims.Subject, nil
}

// Issue signs a token for subject. The session service owns issuance in
// production; this is used by the seed command and tests.
func (p *Provider) Issue(subject string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	if p.issuer != "" {
		claims.Issuer = p.issuer
	}
	if p.audience != "" {
		claims.Audience = jwt.ClaimStrings{p.audience}
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
}

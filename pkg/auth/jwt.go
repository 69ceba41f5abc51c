package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aquaticgg/krepo/config"
	"github.com/aquaticgg/krepo/config/configkey"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	issuer         = "krepo"
	minSecretBytes = 32
)

// ErrInvalidToken indicates the bearer token failed validation.
var ErrInvalidToken = errors.New("invalid token")

// TokenService signs and verifies the HS256 bearer tokens handed out at login.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenService(secret string, ttl time.Duration) (*TokenService, error) {
	if len(secret) < minSecretBytes {
		return nil, fmt.Errorf("jwt secret must be at least %d bytes", minSecretBytes)
	}
	if ttl <= 0 {
		return nil, errors.New("jwt expiration must be greater than zero")
	}

	return &TokenService{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

func NewTokenServiceFromConfig() (*TokenService, error) {
	return NewTokenService(config.MustGetString(configkey.JWTSecret), config.MustGetDuration(configkey.JWTExpiration))
}

// Generate signs a token for username and returns it with its expiry.
func (s *TokenService) Generate(username string) (string, time.Time, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return "", time.Time{}, errors.New("username is required")
	}

	now := s.now().UTC()
	expires := now.Add(s.ttl)
	claims := jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   username,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
		ID:        uuid.NewString(),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}

	return signed, expires, nil
}

// Parse verifies signature, issuer and expiry and returns the claims.
func (s *TokenService) Parse(tokenString string) (*jwt.RegisteredClaims, error) {
	claims, err := s.parse(tokenString, false)
	if err != nil {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Expiry returns the expiry claim of a correctly signed token even when the
// token has already expired.
func (s *TokenService) Expiry(tokenString string) (time.Time, error) {
	claims, err := s.parse(tokenString, true)
	if err != nil {
		return time.Time{}, ErrInvalidToken
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, ErrInvalidToken
	}
	return claims.ExpiresAt.Time, nil
}

func (s *TokenService) parse(tokenString string, skipValidation bool) (*jwt.RegisteredClaims, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return nil, ErrInvalidToken
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	}
	if skipValidation {
		opts = append(opts, jwt.WithoutClaimsValidation())
	} else {
		opts = append(opts, jwt.WithIssuer(issuer), jwt.WithExpirationRequired(), jwt.WithTimeFunc(s.now))
	}

	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	if !parsed.Valid || strings.TrimSpace(claims.Subject) == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

package service

import (
	"fmt"
	"time"

	"github.com/glowlabs/glowlabs/internal/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
)

// TokenService signs and verifies the three token classes. Each class has its
// own secret, so an access token can never pass as a refresh or display token
// no matter how its claims are shaped.
type TokenService struct {
	accessSecret  []byte
	refreshSecret []byte
	displaySecret []byte
	logger        *logrus.Logger
}

func NewTokenService(cfg *config.JWTConfig, logger *logrus.Logger) (*TokenService, error) {
	for name, secret := range map[string]string{
		"access":  cfg.AccessSecret,
		"refresh": cfg.RefreshSecret,
		"display": cfg.DisplaySecret,
	} {
		if len(secret) < 32 {
			return nil, fmt.Errorf("%s secret key must be at least 32 bytes", name)
		}
	}

	return &TokenService{
		accessSecret:  []byte(cfg.AccessSecret),
		refreshSecret: []byte(cfg.RefreshSecret),
		displaySecret: []byte(cfg.DisplaySecret),
		logger:        logger,
	}, nil
}

// AccessClaims is the short-lived proof of authentication. Customer tokens
// carry contact fields, staff tokens carry Role; PrincipalID is always set.
type AccessClaims struct {
	PrincipalID string `json:"pid"`
	Email       string `json:"email,omitempty"`
	PhoneNumber string `json:"phone_number,omitempty"`
	FirstName   string `json:"first_name,omitempty"`
	LastName    string `json:"last_name,omitempty"`
	Role        string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// RefreshClaims embeds the tokenCount current at issuance. Verification of
// the signature alone is not enough: the embedded count must still equal the
// principal's stored count, which is the sole revocation mechanism.
type RefreshClaims struct {
	PrincipalID string `json:"pid"`
	TokenCount  int    `json:"token_count"`
	jwt.RegisteredClaims
}

// DisplayClaims carry only UI-safe fields. The display cookie is readable by
// the browser and never authorizes anything.
type DisplayClaims struct {
	PrincipalID string `json:"pid"`
	Picture     string `json:"picture,omitempty"`
	Role        string `json:"role,omitempty"`
	Auth        bool   `json:"auth"`
	jwt.RegisteredClaims
}

func (s *TokenService) MintAccess(claims AccessClaims, ttl time.Duration) (string, error) {
	now := time.Now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		Subject:   claims.PrincipalID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.accessSecret)
	if err != nil {
		s.logger.WithError(err).Error("Failed to sign access token")
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}

	return signed, nil
}

func (s *TokenService) MintRefresh(principalID string, tokenCount int, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := RefreshClaims{
		PrincipalID: principalID,
		TokenCount:  tokenCount,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   principalID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.refreshSecret)
	if err != nil {
		s.logger.WithError(err).Error("Failed to sign refresh token")
		return "", fmt.Errorf("failed to sign refresh token: %w", err)
	}

	return signed, nil
}

func (s *TokenService) MintDisplay(claims DisplayClaims, ttl time.Duration) (string, error) {
	now := time.Now()
	claims.Auth = true
	claims.RegisteredClaims = jwt.RegisteredClaims{
		Subject:   claims.PrincipalID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.displaySecret)
	if err != nil {
		s.logger.WithError(err).Error("Failed to sign display token")
		return "", fmt.Errorf("failed to sign display token: %w", err)
	}

	return signed, nil
}

func (s *TokenService) VerifyAccess(tokenString string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := s.verify(tokenString, claims, s.accessSecret); err != nil {
		return nil, err
	}
	return claims, nil
}

func (s *TokenService) VerifyRefresh(tokenString string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := s.verify(tokenString, claims, s.refreshSecret); err != nil {
		return nil, err
	}
	return claims, nil
}

func (s *TokenService) VerifyDisplay(tokenString string) (*DisplayClaims, error) {
	claims := &DisplayClaims{}
	if err := s.verify(tokenString, claims, s.displaySecret); err != nil {
		return nil, err
	}
	return claims, nil
}

func (s *TokenService) verify(tokenString string, claims jwt.Claims, secret []byte) error {
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	if !token.Valid {
		return ErrTokenInvalid
	}

	return nil
}

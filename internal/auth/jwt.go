package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Issuer is stamped into every token and required on validation.
const Issuer = "pdf-text-extractor"

// JWT errors
var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
	ErrMissingID    = errors.New("client id is required")
)

// JWTClaims identifies the client calling the extraction API
type JWTClaims struct {
	ClientID string `json:"client_id"`
	jwt.RegisteredClaims
}

// JWTManager issues and checks HS256 client tokens. The server only
// validates; tokens are issued offline with `pdftext token`.
type JWTManager struct {
	secretKey []byte
	ttl       time.Duration
	parser    *jwt.Parser
}

// NewJWTManager creates a new JWT manager
func NewJWTManager(secretKey string, ttl time.Duration) *JWTManager {
	return &JWTManager{
		secretKey: []byte(secretKey),
		ttl:       ttl,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithIssuer(Issuer),
			jwt.WithExpirationRequired(),
			jwt.WithLeeway(30*time.Second),
		),
	}
}

// GenerateToken issues a token for clientID valid for the manager's TTL
func (m *JWTManager) GenerateToken(clientID string) (string, error) {
	clientID = strings.TrimSpace(clientID)
	if clientID == "" {
		return "", ErrMissingID
	}

	now := time.Now()
	claims := JWTClaims{
		ClientID: clientID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			Subject:   clientID,
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secretKey)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken returns the claims of a token issued by GenerateToken
func (m *JWTManager) ValidateToken(tokenString string) (*JWTClaims, error) {
	claims := &JWTClaims{}
	_, err := m.parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return m.secretKey, nil
	})
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrExpiredToken
	case err != nil:
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	case claims.ClientID == "":
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, ErrMissingID)
	}
	return claims, nil
}

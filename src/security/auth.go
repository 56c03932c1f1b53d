package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Roles carried by API tokens.
const (
	RoleWebhook  = "webhook"  // Taxiye platform pushing trips and payments
	RoleOperator = "operator" // finance staff running sequence syncs and settlements
)

var ErrInvalidToken = errors.New("invalid token")

// APIClaims identify an API client.
type APIClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

type AuthService struct {
	JWTSecret   string
	TokenExpiry time.Duration
	now         func() time.Time
}

func NewAuthService(secret string, expiry time.Duration) *AuthService {
	return &AuthService{
		JWTSecret:   secret,
		TokenExpiry: expiry,
		now:         time.Now,
	}
}

// GenerateToken issues an HS256 token for an API client.
func (a *AuthService) GenerateToken(subject, role string) (string, error) {
	if subject == "" {
		return "", errors.New("token subject is required")
	}
	if role != RoleWebhook && role != RoleOperator {
		return "", fmt.Errorf("unknown role %q", role)
	}
	now := a.now()
	claims := APIClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.TokenExpiry)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(a.JWTSecret))
}

// ValidateToken returns the claims of a valid, unexpired token.
func (a *AuthService) ValidateToken(tokenString string) (*APIClaims, error) {
	claims := &APIClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(a.JWTSecret), nil
	}, jwt.WithTimeFunc(a.now))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: 'sub' claim missing", ErrInvalidToken)
	}
	if claims.Role != RoleWebhook && claims.Role != RoleOperator {
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidToken, claims.Role)
	}
	return claims, nil
}

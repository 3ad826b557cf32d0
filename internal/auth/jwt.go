// Package auth implements printer-token JWT issuance and validation,
// grounded on the original daemon's JWTManager/PrinterClaims.
package auth

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims identify a paired restaurant/location and what the token may
// be used for.
type Claims struct {
	RestaurantID string   `json:"restaurant_id"`
	LocationID   string   `json:"location_id,omitempty"`
	Permissions  []string `json:"permissions"`
	jwt.RegisteredClaims
}

// NewClaims builds Claims with a default 24-hour expiry.
func NewClaims(restaurantID, locationID string, permissions []string) Claims {
	now := time.Now()
	return Claims{
		RestaurantID: restaurantID,
		LocationID:   locationID,
		Permissions:  permissions,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(24 * time.Hour)),
		},
	}
}

func (c Claims) HasPermission(permission string) bool {
	for _, p := range c.Permissions {
		if p == permission {
			return true
		}
	}
	return false
}

// Manager signs and validates printer tokens with an HS256 secret.
type Manager struct {
	secret []byte
}

func NewManager(secret string) *Manager {
	return &Manager{secret: []byte(secret)}
}

func (m *Manager) GenerateToken(claims Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (m *Manager) ValidateToken(tokenString string) (Claims, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		return m.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return Claims{}, fmt.Errorf("invalid token: %w", err)
	}
	if !token.Valid {
		return Claims{}, fmt.Errorf("invalid token")
	}
	return claims, nil
}

func (m *Manager) ValidateWithPermission(tokenString, permission string) (Claims, error) {
	claims, err := m.ValidateToken(tokenString)
	if err != nil {
		return Claims{}, err
	}
	if !claims.HasPermission(permission) {
		return Claims{}, fmt.Errorf("insufficient permissions: missing %q", permission)
	}
	return claims, nil
}

func (m *Manager) ValidateForRestaurant(tokenString, restaurantID string) (Claims, error) {
	claims, err := m.ValidateToken(tokenString)
	if err != nil {
		return Claims{}, err
	}
	if claims.RestaurantID != restaurantID {
		return Claims{}, fmt.Errorf("restaurant id mismatch: token=%s expected=%s", claims.RestaurantID, restaurantID)
	}
	return claims, nil
}

// ExtractBearerToken strips the "Bearer " prefix from an Authorization
// header value.
func ExtractBearerToken(authHeader string) (string, error) {
	const prefix = "Bearer "
	if !strings.HasPrefix(authHeader, prefix) {
		return "", fmt.Errorf("invalid authorization header format")
	}
	return strings.TrimPrefix(authHeader, prefix), nil
}

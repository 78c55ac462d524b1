package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"gacha-summon/internal/shopify"
)

const (
	RoleOrder = "order"
	RoleAdmin = "admin"
)

// Claims bind a session to one claimed order and the Discord user who
// claimed it. Admin tokens carry no order.
type Claims struct {
	Order         shopify.OrderNumber `json:"order,omitempty"`
	DiscordUserID string              `json:"discordUserId,omitempty"`
	Role          string              `json:"role"`
	jwt.RegisteredClaims
}

type Manager struct {
	secret []byte
	issuer string
}

func NewManager(secret, issuer string) *Manager {
	return &Manager{
		secret: []byte(secret),
		issuer: issuer,
	}
}

func (m *Manager) IssueToken(order shopify.OrderNumber, discordUserID, role string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		Order:         order,
		DiscordUserID: discordUserID,
		Role:          role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   discordUserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

func (m *Manager) Parse(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.secret, nil
	}, jwt.WithIssuer(m.issuer))
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}
	return nil, errors.New("invalid token")
}

// Package auth issues and verifies the bearer tokens used by the HTTP API.
// Three roles exist: admin, village-admin, and donor.
package auth

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"monthlyaid/internal/core"
)

const (
	RoleAdmin        = "admin"
	RoleVillageAdmin = "village-admin"
	RoleDonor        = "donor"
)

// Principal is the identity carried by a verified token.
type Principal struct {
	Role      string
	SubjectID string
	Name      string
	VillageID int64
}

type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &TokenIssuer{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue signs an HS256 token for the principal.
func (t *TokenIssuer) Issue(p Principal) (string, error) {
	claims := jwt.MapClaims{
		"sub":  p.SubjectID,
		"name": p.Name,
		"role": p.Role,
		"exp":  t.now().Add(t.ttl).Unix(),
		"iat":  t.now().Unix(),
	}
	if p.VillageID != 0 {
		claims["village_id"] = p.VillageID
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify parses a signed token and returns its principal.
func (t *TokenIssuer) Verify(tokenString string) (Principal, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrInvalidKeyType
		}
		return t.secret, nil
	})
	if err != nil || !token.Valid {
		return Principal{}, core.Authenticationf("invalid token")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Principal{}, core.Authenticationf("invalid claims")
	}

	p := Principal{}
	p.SubjectID, _ = claims["sub"].(string)
	p.Name, _ = claims["name"].(string)
	p.Role, _ = claims["role"].(string)
	if v, ok := claims["village_id"].(float64); ok {
		p.VillageID = int64(v)
	}
	if p.Role == "" {
		return Principal{}, core.Authenticationf("token has no role")
	}
	return p, nil
}

// FromAuthorizationHeader extracts and verifies the bearer token.
func (t *TokenIssuer) FromAuthorizationHeader(header string) (Principal, error) {
	if header == "" || !strings.HasPrefix(header, "Bearer ") {
		return Principal{}, core.Authenticationf("missing or invalid Authorization header")
	}
	return t.Verify(strings.TrimPrefix(header, "Bearer "))
}

// Package auth issues and validates the bearer tokens organizations use to
// call this node.
package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the JWT claims the node expects.
type Claims struct {
	jwt.RegisteredClaims
	OrganizationID int64 `json:"organization_id"`
}

// Authority signs and checks HS256 tokens bound to one issuer.
type Authority struct {
	secret []byte
	issuer string
}

func NewAuthority(secret, issuer string) *Authority {
	return &Authority{secret: []byte(secret), issuer: issuer}
}

// Issue returns a token for organizationID that expires after ttl.
func (a *Authority) Issue(organizationID int64, ttl time.Duration) (string, error) {
	if organizationID <= 0 {
		return "", fmt.Errorf("invalid organization id %d", organizationID)
	}
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    a.issuer,
			Subject:   strconv.FormatInt(organizationID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		OrganizationID: organizationID,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// Validate parses tokenStr and returns its claims. The token must be HS256,
// unexpired, from this authority's issuer and carry an organization id.
func (a *Authority) Validate(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims,
		func(*jwt.Token) (any, error) { return a.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(a.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("token validation failed: %w", err)
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.OrganizationID <= 0 {
		return nil, errors.New("token carries no organization")
	}
	return claims, nil
}

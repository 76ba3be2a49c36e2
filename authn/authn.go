// Package authn issues and verifies the signed bearer tokens the
// management endpoints (/refreshrules, /readconf, /updateconf,
// /flushcache) accept as an alternative to the plain `token=` query match
// (spec §6.1/§7's Unauthorized kind). Grounded on
// authn/utils.go's DecryptToken/jwt.Parse HMAC-verification pattern, pared
// down from AIStore's full user/role/cluster-ACL claims to the one claim
// this server actually needs: an expiry.
package authn

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// ErrInvalidToken/ErrTokenExpired mirror the two failure modes
// DecryptToken distinguished: signature/shape failure vs. a token that
// verified but has lapsed.
var (
	ErrInvalidToken = errors.New("authn: invalid token")
	ErrTokenExpired = errors.New("authn: token expired")
)

type claims struct {
	jwt.RegisteredClaims
}

// IssueToken signs a bearer token good for ttl, HMAC-keyed by secret (the
// same secret value configured as Settings.Token).
func IssueToken(secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	c := claims{jwt.RegisteredClaims{
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte(secret))
}

// VerifyToken checks tokenStr's HMAC signature against secret and that it
// hasn't expired, the same two checks DecryptToken performs.
func VerifyToken(tokenStr, secret string) error {
	token, err := jwt.ParseWithClaims(tokenStr, &claims{}, func(tk *jwt.Token) (interface{}, error) {
		if _, ok := tk.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return ErrInvalidToken
	}
	c, ok := token.Claims.(*claims)
	if !ok {
		return ErrInvalidToken
	}
	if c.ExpiresAt != nil && c.ExpiresAt.Before(time.Now()) {
		return ErrTokenExpired
	}
	return nil
}

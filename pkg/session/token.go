package session

import (
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the claims of a user token.
type Claims struct {
	Email       string `json:"email"`
	SyncVersion string `json:"sync_version"`
	jwt.RegisteredClaims
}

// deviceToken returns device_<code>_<unix ms>.
func deviceToken(code string, now time.Time) string {
	return "device_" + code + "_" + strconv.FormatInt(now.UnixMilli(), 10)
}

// signUserToken mints an HS256 user token for code and profile.
func signUserToken(secret []byte, code string, profile Profile, now time.Time) (string, error) {
	claims := Claims{
		Email:       profile.Email,
		SyncVersion: profile.SyncVersion,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  code,
			IssuedAt: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign user token: %w", err)
	}
	return signed, nil
}

// parseUserToken decodes a stored user token without checking its signature.
//
// Tokens are only ever minted by this process and persisted next to the
// profile they describe; the signing secret may have changed across restarts,
// so a restored token is checked for shape and claims, not for its signature.
func parseUserToken(raw string) (*Claims, error) {
	claims := &Claims{}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if _, _, err := parser.ParseUnverified(raw, claims); err != nil {
		return nil, fmt.Errorf("malformed user token: %w", err)
	}
	if claims.Subject == "" || claims.Email == "" {
		return nil, fmt.Errorf("user token is missing claims")
	}
	return claims, nil
}

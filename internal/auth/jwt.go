package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	AccessTokenTTL  = 12 * time.Hour
	RefreshTokenTTL = 7 * 24 * time.Hour
)

// Claims identifies a logged-in terminal session. There are no user accounts:
// a session is a role unlocked by PIN on a named terminal.
type Claims struct {
	SessionID uuid.UUID `json:"session_id"`
	Terminal  string    `json:"terminal"`
	Role      string    `json:"role"`
	jwt.RegisteredClaims
}

func GenerateToken(secret string, sessionID uuid.UUID, terminal, role string) (string, error) {
	now := time.Now()
	claims := Claims{
		SessionID: sessionID,
		Terminal:  terminal,
		Role:      role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(AccessTokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// GenerateRefreshToken carries the role in Subject and the terminal in the
// audience so a refresh can reissue an access token without the PIN.
func GenerateRefreshToken(secret string, sessionID uuid.UUID, terminal, role string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		ID:        sessionID.String(),
		Subject:   role,
		Audience:  jwt.ClaimStrings{terminal},
		ExpiresAt: jwt.NewNumericDate(now.Add(RefreshTokenTTL)),
		IssuedAt:  jwt.NewNumericDate(now),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func ValidateToken(secret, tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, keyFunc(secret))
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	if claims.Role == "" {
		return nil, fmt.Errorf("token has no role")
	}
	return claims, nil
}

// ValidateRefreshToken returns the session, terminal and role stored in a
// refresh token.
func ValidateRefreshToken(secret, tokenStr string) (uuid.UUID, string, string, error) {
	rc := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, rc, keyFunc(secret))
	if err != nil {
		return uuid.Nil, "", "", err
	}
	if !token.Valid || rc.Subject == "" {
		return uuid.Nil, "", "", fmt.Errorf("invalid refresh token")
	}
	sid, err := uuid.Parse(rc.ID)
	if err != nil {
		return uuid.Nil, "", "", fmt.Errorf("invalid refresh token: %w", err)
	}
	var terminal string
	if len(rc.Audience) > 0 {
		terminal = rc.Audience[0]
	}
	return sid, terminal, rc.Subject, nil
}

func keyFunc(secret string) jwt.Keyfunc {
	return func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	}
}

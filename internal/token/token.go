package token

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Issuer mints signed completion tokens. Each token carries the room, the
// user and the end status, so the payout pipeline can verify how a player's
// session ended without consulting the bot.
type Issuer struct {
	secret []byte
	ttl    time.Duration
}

func NewIssuer(secret string, ttl time.Duration) *Issuer {
	if ttl <= 0 {
		ttl = 14 * 24 * time.Hour
	}
	return &Issuer{secret: []byte(secret), ttl: ttl}
}

func (i *Issuer) Issue(roomID, userID, status string) (string, error) {
	now := time.Now()
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"room":   roomID,
		"user":   userID,
		"status": status,
		"jti":    uuid.NewString(),
		"iat":    now.Unix(),
		"exp":    now.Add(i.ttl).Unix(),
	})
	return t.SignedString(i.secret)
}

// Verify parses a token and returns its claims, rejecting bad signatures,
// unexpected signing methods and expired tokens.
func (i *Issuer) Verify(tok string) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(tok, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return i.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !parsed.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}

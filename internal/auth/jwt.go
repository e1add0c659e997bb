// Package auth turns Telegram WebApp init data into a player id and issues
// the bearer token the API expects.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken    = errors.New("invalid token")
	ErrInvalidInitData = errors.New("invalid or stale telegram data")
)

const defaultTokenTTL = 24 * time.Hour

type Authenticator struct {
	secret   []byte
	botToken string
	devMode  bool
	ttl      time.Duration
	now      func() time.Time
}

func New(jwtSecret, botToken string, devMode bool) *Authenticator {
	return &Authenticator{
		secret:   []byte(jwtSecret),
		botToken: botToken,
		devMode:  devMode,
		ttl:      defaultTokenTTL,
		now:      time.Now,
	}
}

func (a *Authenticator) DevMode() bool { return a.devMode }

type claims struct {
	PlayerID int64 `json:"player_id"`
	jwt.RegisteredClaims
}

func (a *Authenticator) IssueToken(playerID int64) (string, error) {
	now := a.now()
	c := claims{
		PlayerID: playerID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	return token.SignedString(a.secret)
}

func (a *Authenticator) ParseToken(tokenString string) (int64, error) {
	var c claims
	token, err := jwt.ParseWithClaims(tokenString, &c, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return a.secret, nil
	}, jwt.WithTimeFunc(a.now))
	if err != nil || !token.Valid {
		return 0, ErrInvalidToken
	}
	if c.PlayerID <= 0 {
		return 0, ErrInvalidToken
	}
	return c.PlayerID, nil
}

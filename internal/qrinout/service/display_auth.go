package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/qrinout/server/internal/qrinout/store"
)

var (
	ErrBadCredentials = errors.New("invalid checkpoint or password")
	ErrInvalidSession = errors.New("invalid display session")
)

// displayClaims binds a session to one checkpoint.
type displayClaims struct {
	CheckpointID string `json:"checkpoint_id"`
	jwt.RegisteredClaims
}

// DisplayAuth authenticates operator display sessions. The checkpoint's
// password hash is bcrypt (constant-time verification by construction); the
// session itself is a short-lived HS256 JWT bound to that checkpoint.
type DisplayAuth struct {
	checkpoints store.CheckpointStore
	secret      []byte
	ttl         time.Duration
}

func NewDisplayAuth(checkpoints store.CheckpointStore, secret string, ttl time.Duration) *DisplayAuth {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &DisplayAuth{checkpoints: checkpoints, secret: []byte(secret), ttl: ttl}
}

// HashSecret produces the at-rest hash for a display password.
func HashSecret(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash display secret: %w", err)
	}
	return string(b), nil
}

// Login verifies the password against the checkpoint's stored hash and
// returns a session token. Unknown and removed checkpoints fail the same
// way as a wrong password.
func (a *DisplayAuth) Login(ctx context.Context, checkpointID, password string) (string, time.Time, error) {
	cp, err := a.checkpoints.GetCheckpoint(ctx, checkpointID)
	if errors.Is(err, store.ErrNotFound) {
		return "", time.Time{}, ErrBadCredentials
	}
	if err != nil {
		return "", time.Time{}, fmt.Errorf("load checkpoint: %w", err)
	}
	if !cp.Active() {
		return "", time.Time{}, ErrBadCredentials
	}

	if bcrypt.CompareHashAndPassword([]byte(cp.SecretHash), []byte(password)) != nil {
		return "", time.Time{}, ErrBadCredentials
	}

	expiresAt := time.Now().Add(a.ttl)
	claims := displayClaims{
		CheckpointID: cp.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   cp.ID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign display session: %w", err)
	}
	return signed, expiresAt, nil
}

// Verify parses a session token and returns the checkpoint it is bound to.
func (a *DisplayAuth) Verify(tokenString string) (string, error) {
	tok, err := jwt.ParseWithClaims(tokenString, &displayClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidSession
		}
		return a.secret, nil
	})
	if err != nil {
		return "", ErrInvalidSession
	}
	claims, ok := tok.Claims.(*displayClaims)
	if !ok || !tok.Valid || claims.CheckpointID == "" {
		return "", ErrInvalidSession
	}
	return claims.CheckpointID, nil
}

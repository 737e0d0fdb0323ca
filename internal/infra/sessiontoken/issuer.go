package sessiontoken

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/hkdf"

	apperrors "github.com/yanqian/ai-travel-planner/pkg/errors"
)

const (
	issuer    = "travel-planner"
	keyInfo   = "travel-planner session token v1"
	keyLength = 32
)

// Issuer signs and verifies session tokens. A token only proves which session the
// caller holds; it carries no user identity.
type Issuer struct {
	key []byte
	now func() time.Time
}

type sessionClaims struct {
	jwt.RegisteredClaims
	SessionID string `json:"sid"`
}

// NewIssuer derives the HMAC key from secret. An empty secret yields a random key,
// which invalidates tokens on restart.
func NewIssuer(secret string) (*Issuer, error) {
	ikm := []byte(secret)
	if len(ikm) == 0 {
		ikm = make([]byte, keyLength)
		if _, err := rand.Read(ikm); err != nil {
			return nil, fmt.Errorf("generate token secret: %w", err)
		}
	}
	key := make([]byte, keyLength)
	if _, err := io.ReadFull(hkdf.New(sha256.New, ikm, nil, []byte(keyInfo)), key); err != nil {
		return nil, fmt.Errorf("derive token key: %w", err)
	}
	return &Issuer{key: key, now: time.Now}, nil
}

// Issue returns a signed token for sessionID and its expiry.
func (i *Issuer) Issue(sessionID string, ttl time.Duration) (string, time.Time, error) {
	if sessionID == "" {
		return "", time.Time{}, apperrors.Wrap(apperrors.CodeInvalidInput, "session id is required", nil)
	}
	now := i.now()
	expiresAt := now.Add(ttl)
	claims := sessionClaims{
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   sessionID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.key)
	if err != nil {
		return "", time.Time{}, apperrors.Wrap(apperrors.CodeInvalidToken, "failed to sign session token", err)
	}
	return signed, expiresAt, nil
}

// Parse validates token and returns the session id it names.
func (i *Issuer) Parse(token string) (string, error) {
	if token == "" {
		return "", apperrors.Wrap(apperrors.CodeInvalidToken, "session token is required", nil)
	}
	parsed, err := jwt.ParseWithClaims(token, &sessionClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %s", t.Method.Alg())
		}
		return i.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return "", apperrors.Wrap(apperrors.CodeInvalidToken, "session token validation failed", err)
	}
	claims, ok := parsed.Claims.(*sessionClaims)
	if !ok || !parsed.Valid || claims.SessionID == "" {
		return "", apperrors.Wrap(apperrors.CodeInvalidToken, "session token validation failed", errors.New("invalid claims"))
	}
	return claims.SessionID, nil
}

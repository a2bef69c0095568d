package auth

import (
	"errors"
	"strconv"
	"time"

	"github.com/Valerijkk/defect-tracker-lite/internal/domain/user"
	"github.com/golang-jwt/jwt/v5"
)

// Validation failures are reported as one of these so the HTTP layer can
// name the precise 401 cause instead of a bare boolean.
var (
	ErrTokenExpired      = errors.New("token expired")
	ErrTokenMalformed    = errors.New("token malformed")
	ErrTokenBadSignature = errors.New("token signature invalid")
)

// Identity is what a validated token asserts about the caller.
type Identity struct {
	Subject string
	Role    string
}

type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

type Manager struct {
	secret []byte
	ttl    time.Duration
}

// NewManager builds a token manager around an injected secret. The secret
// lives here and nowhere else, so tests can run with distinct secrets.
func NewManager(secret string, ttl time.Duration) *Manager {
	return &Manager{
		secret: []byte(secret),
		ttl:    ttl,
	}
}

// Issue signs an identity assertion for the user. The subject is always the
// stringified numeric id: some JWT libraries reject numeric "sub" values.
func (m *Manager) Issue(u user.User) (string, error) {
	now := time.Now().UTC()

	claims := Claims{
		Role: u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(u.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	return token.SignedString(m.secret)
}

// Validate verifies signature and expiry. All parse failures are converted to
// one of the sentinel errors above; nothing escapes as a panic.
func (m *Manager) Validate(raw string) (Identity, error) {
	token, err := jwt.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		// Enforce HS256

		_, ok := t.Method.(*jwt.SigningMethodHMAC)

		if !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.secret, nil
	})

	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return Identity{}, ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return Identity{}, ErrTokenBadSignature
		default:
			return Identity{}, ErrTokenMalformed
		}
	}

	claims, ok := token.Claims.(*Claims)

	if !ok || !token.Valid {
		return Identity{}, ErrTokenMalformed
	}

	return Identity{Subject: claims.Subject, Role: claims.Role}, nil
}

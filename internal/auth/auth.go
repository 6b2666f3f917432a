// Package auth hashes passwords and issues signed session tokens.
package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jonboulle/clockwork"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidSession     = errors.New("invalid or expired session")
)

// Hasher hashes and verifies passwords with bcrypt.
type Hasher struct {
	cost int
}

// NewHasher returns a Hasher using cost, or bcrypt.DefaultCost when cost is 0.
func NewHasher(cost int) *Hasher {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &Hasher{cost: cost}
}

func (h *Hasher) Hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// Verify returns ErrInvalidCredentials when password does not match hash.
func (h *Hasher) Verify(hash, password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// Session identifies the logged-in user carried by a token.
type Session struct {
	UserID uint
	Name   string
	Email  string
}

type sessionClaims struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Sessions signs and parses HS256 session tokens.
type Sessions struct {
	secret []byte
	ttl    time.Duration
	clock  clockwork.Clock
}

func NewSessions(secret string, ttl time.Duration, clock clockwork.Clock) *Sessions {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Sessions{secret: []byte(secret), ttl: ttl, clock: clock}
}

// TTL is the lifetime of issued tokens.
func (s *Sessions) TTL() time.Duration { return s.ttl }

// Issue signs a token for sess that expires after the configured TTL.
func (s *Sessions) Issue(sess Session) (string, error) {
	now := s.clock.Now()
	claims := sessionClaims{
		Name:  sess.Name,
		Email: sess.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(sess.UserID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign session: %w", err)
	}
	return token, nil
}

// Parse validates token and returns its session. Any signature, algorithm,
// or expiry problem is ErrInvalidSession.
func (s *Sessions) Parse(token string) (Session, error) {
	claims := &sessionClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.clock.Now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return Session{}, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}

	id, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil {
		return Session{}, fmt.Errorf("%w: bad subject %q", ErrInvalidSession, claims.Subject)
	}
	return Session{UserID: uint(id), Name: claims.Name, Email: claims.Email}, nil
}

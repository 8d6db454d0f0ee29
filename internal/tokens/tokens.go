// Package tokens issues and verifies the signed, time-bounded identity
// tokens handed out on register and login.
package tokens

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const DefaultTTL = 5 * time.Hour

var (
	ErrMalformed        = errors.New("token malformed")
	ErrExpired          = errors.New("token expired")
	ErrInvalidSignature = errors.New("token signature invalid")
)

type Claims struct {
	jwt.RegisteredClaims
}

// Service signs tokens with a process-wide HS256 secret. It never consults
// revocation; callers do that before Verify.
type Service struct {
	Secret []byte
	TTL    time.Duration
	Now    func() time.Time
}

func NewService(secret []byte, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Service{Secret: secret, TTL: ttl, Now: time.Now}
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

func (s *Service) Issue(userID uint) (string, error) {
	now := s.now()
	ttl := s.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(userID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.Secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return token, nil
}

func (s *Service) Verify(tokenStr string) (uint, error) {
	var claims Claims
	tkn, err := jwt.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, errors.New("unexpected sign method")
		}
		return s.Secret, nil
	},
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return 0, classify(err)
	}
	if !tkn.Valid {
		return 0, ErrInvalidSignature
	}

	id, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("%w: bad subject %q", ErrMalformed, claims.Subject)
	}
	return uint(id), nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %v", ErrExpired, err)
	case errors.Is(err, jwt.ErrTokenMalformed):
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	default:
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
}

package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Sentinel errors returned by TokenService.Verify. Expiry and signature
// failure are distinct cases: the middleware clears the session cookie on
// expiry (a legitimate session ran out) but leaves it alone on signature
// failure (ambiguous or corrupt input).
var (
	// ErrTokenExpired means the token was validly signed but its expiry
	// has passed.
	ErrTokenExpired = errors.New("session token expired")

	// ErrTokenInvalid means the signature does not match, the encoding is
	// malformed, or the claims are unusable.
	ErrTokenInvalid = errors.New("session token invalid")
)

// TokenService signs and verifies session tokens. It is stateless: a
// token's validity is purely a function of the signing key, the clock,
// and the token itself, so the service is safe for unlimited concurrent
// use and scales horizontally. The tradeoff is that there is no
// revocation list -- see Logout on AuthService.
type TokenService struct {
	secret   []byte
	lifetime time.Duration

	// now is the clock; overridable in tests to walk tokens across
	// their expiry boundary.
	now func() time.Time
}

// NewTokenService creates a token service signing with the given secret.
// Issued tokens are valid for lifetime from the moment of issue.
func NewTokenService(secret []byte, lifetime time.Duration) *TokenService {
	return &TokenService{
		secret:   secret,
		lifetime: lifetime,
		now:      time.Now,
	}
}

// Issue produces a signed HS256 JWT with the given subject (the user's
// email), issued now and expiring after the configured lifetime.
func (s *TokenService) Issue(subject string) (string, error) {
	now := s.now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.lifetime)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}

	return signed, nil
}

// Verify checks the signature and expiry of a token string and returns
// its subject. Returns ErrTokenExpired when the expiry has passed and
// ErrTokenInvalid for every other failure mode, so callers cannot treat
// the two alike by accident.
func (s *TokenService) Verify(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (any, error) {
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrTokenExpired
		}
		return "", ErrTokenInvalid
	}

	if !token.Valid || claims.Subject == "" {
		return "", ErrTokenInvalid
	}

	return claims.Subject, nil
}

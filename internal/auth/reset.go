package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// resetKeyPrefix is the Redis key prefix for password reset tokens.
// Full key format: reset_token:<token> -> email.
const resetKeyPrefix = "reset_token:"

// resetTokenBytes is the number of random bytes in a reset token.
// 32 bytes = 256 bits of entropy, hex-encoded to 64 characters. Well
// above the 128 bits needed to make collisions and guessing negligible.
const resetTokenBytes = 32

// Sentinel errors returned by the reset token store.
var (
	// ErrResetTokenNotFound means the token does not exist, was already
	// consumed, or its TTL expired. The three cases are indistinguishable
	// on purpose.
	ErrResetTokenNotFound = errors.New("reset token invalid or expired")

	// ErrStoreUnavailable means the Redis round trip failed. Callers must
	// surface this as an infrastructure failure, never as "token invalid".
	ErrStoreUnavailable = errors.New("token store unavailable")
)

// ResetTokenStore is a TTL-bound, single-use mapping from random token to
// email, backed by the shared Redis cache. Expiry is enforced by Redis
// itself; single-key operations are atomic on the server, so no client
// side locking is needed.
type ResetTokenStore struct {
	redis   *redis.Client
	ttl     time.Duration
	timeout time.Duration
}

// NewResetTokenStore creates a reset token store. Entries live for ttl;
// each Redis round trip is bounded by timeout so a partitioned cache
// fails the request instead of hanging it.
func NewResetTokenStore(rdb *redis.Client, ttl, timeout time.Duration) *ResetTokenStore {
	return &ResetTokenStore{
		redis:   rdb,
		ttl:     ttl,
		timeout: timeout,
	}
}

// Create generates a cryptographically random token, stores token->email
// with the configured TTL, and returns the token.
func (s *ResetTokenStore) Create(ctx context.Context, email string) (string, error) {
	token, err := generateResetToken()
	if err != nil {
		return "", fmt.Errorf("generating reset token: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.redis.Set(ctx, resetKeyPrefix+token, email, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("%w: storing reset token: %v", ErrStoreUnavailable, err)
	}

	return token, nil
}

// Resolve returns the email associated with a token if the entry exists
// and has not expired. It is a read-only lookup and never consumes the
// entry: the reset page calls it to render the form and the submission
// handler calls it again to defend against expiry between render and
// submit.
func (s *ResetTokenStore) Resolve(ctx context.Context, token string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	email, err := s.redis.Get(ctx, resetKeyPrefix+token).Result()
	if err == redis.Nil {
		return "", ErrResetTokenNotFound
	}
	if err != nil {
		return "", fmt.Errorf("%w: reading reset token: %v", ErrStoreUnavailable, err)
	}

	return email, nil
}

// Consume deletes the entry so the token cannot be used again. Idempotent:
// deleting an absent key is not an error.
func (s *ResetTokenStore) Consume(ctx context.Context, token string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.redis.Del(ctx, resetKeyPrefix+token).Err(); err != nil {
		return fmt.Errorf("%w: deleting reset token: %v", ErrStoreUnavailable, err)
	}

	return nil
}

// generateResetToken creates a cryptographically random hex-encoded token.
func generateResetToken() (string, error) {
	b := make([]byte, resetTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

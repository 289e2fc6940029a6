package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/parleychat/parley/internal/apperror"
	"github.com/parleychat/parley/internal/mailer"
)

// AuthService defines the business logic contract for authentication.
// Handlers call these methods -- they never touch the repository, token
// service, or reset store directly.
type AuthService interface {
	// Login verifies credentials and issues a session token. Unknown
	// email and wrong password produce the same error, so the response
	// never reveals whether the account exists.
	Login(ctx context.Context, input LoginInput) (token string, user *User, err error)

	// Register creates a new user account.
	Register(ctx context.Context, input RegisterInput) (*User, error)

	// Whoami verifies a session token and resolves its subject against
	// the user directory. Backs GET /auth/status.
	Whoami(ctx context.Context, token string) (*User, error)

	// InitiatePasswordReset creates a reset token for the email and
	// dispatches the reset link. When the email is not registered it does
	// nothing and still returns nil: the response must be uniform either way.
	InitiatePasswordReset(ctx context.Context, email string) error

	// ValidateResetToken returns the email bound to a live reset token
	// without consuming it.
	ValidateResetToken(ctx context.Context, token string) (email string, err error)

	// ResetPassword re-resolves the token, hashes the submitted new
	// password, persists it, and consumes the token so it cannot be reused.
	ResetPassword(ctx context.Context, token, newPassword string) error
}

// authService implements AuthService on top of the user directory, the
// stateless token service, and the Redis reset token store.
type authService struct {
	directory UserRepository
	tokens    *TokenService
	resets    *ResetTokenStore
	mail      mailer.Mailer

	// baseURL is the public origin used to build reset links.
	baseURL string

	// lookupTimeout bounds each directory call so a slow database fails
	// the request instead of hanging it.
	lookupTimeout time.Duration
}

// NewAuthService creates a new auth service with the given dependencies.
func NewAuthService(directory UserRepository, tokens *TokenService, resets *ResetTokenStore, mail mailer.Mailer, baseURL string, lookupTimeout time.Duration) AuthService {
	return &authService{
		directory:     directory,
		tokens:        tokens,
		resets:        resets,
		mail:          mail,
		baseURL:       strings.TrimRight(baseURL, "/"),
		lookupTimeout: lookupTimeout,
	}
}

// Login authenticates a user by email and password and issues a session
// token with the configured lifetime.
func (s *authService) Login(ctx context.Context, input LoginInput) (string, *User, error) {
	email := normalizeEmail(input.Email)

	user, err := s.findByEmail(ctx, email)
	if err != nil {
		if isNotFound(err) {
			// Don't reveal whether the email exists -- use generic message.
			return "", nil, apperror.NewUnauthorized("invalid email or password")
		}
		return "", nil, apperror.NewUnavailable("user directory unavailable", err)
	}

	// Verify the password against the stored argon2id hash.
	if !verifyPassword(input.Password, user.PasswordHash) {
		return "", nil, apperror.NewUnauthorized("invalid email or password")
	}

	token, err := s.tokens.Issue(user.Email)
	if err != nil {
		return "", nil, apperror.NewInternal(fmt.Errorf("issuing session token: %w", err))
	}

	// Update the user's last login timestamp (fire-and-forget, non-critical).
	if err := s.directory.UpdateLastLogin(ctx, user.ID); err != nil {
		slog.Warn("failed to update last login",
			slog.Int64("user_id", user.ID),
			slog.Any("error", err),
		)
	}

	slog.Info("user logged in",
		slog.Int64("user_id", user.ID),
		slog.String("email", user.Email),
	)

	return token, user, nil
}

// Register creates a new user account. It validates uniqueness, hashes the
// password with argon2id, and persists the user.
func (s *authService) Register(ctx context.Context, input RegisterInput) (*User, error) {
	email := normalizeEmail(input.Email)

	// Check if email is already taken before doing expensive hashing.
	lctx, cancel := context.WithTimeout(ctx, s.lookupTimeout)
	exists, err := s.directory.EmailExists(lctx, email)
	cancel()
	if err != nil {
		return nil, apperror.NewUnavailable("user directory unavailable", err)
	}
	if exists {
		return nil, apperror.NewBadRequest("email is already registered")
	}

	hash, err := hashPassword(input.Password)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("hashing password: %w", err))
	}

	user := &User{
		Username:     strings.TrimSpace(input.Username),
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.directory.Create(ctx, user); err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("creating user: %w", err))
	}

	slog.Info("user registered",
		slog.Int64("user_id", user.ID),
		slog.String("email", user.Email),
	)

	return user, nil
}

// Whoami verifies a session token and returns the user it belongs to.
func (s *authService) Whoami(ctx context.Context, token string) (*User, error) {
	subject, err := s.tokens.Verify(token)
	if err != nil {
		// Expired and invalid collapse to the same response here; the
		// distinction only matters to the middleware's cookie handling.
		return nil, apperror.NewUnauthorized("invalid or expired token")
	}

	user, err := s.findByEmail(ctx, subject)
	if err != nil {
		if isNotFound(err) {
			return nil, apperror.NewUnauthorized("invalid or expired token")
		}
		return nil, apperror.NewUnavailable("user directory unavailable", err)
	}

	return user, nil
}

// InitiatePasswordReset starts the reset flow for an email address.
func (s *authService) InitiatePasswordReset(ctx context.Context, email string) error {
	email = normalizeEmail(email)

	user, err := s.findByEmail(ctx, email)
	if err != nil {
		if isNotFound(err) {
			// Unknown email: do nothing, create no cache entry, and let the
			// handler return the same response as for a registered address.
			slog.Info("password reset requested for unknown email")
			return nil
		}
		return apperror.NewUnavailable("user directory unavailable", err)
	}

	token, err := s.resets.Create(ctx, user.Email)
	if err != nil {
		if errors.Is(err, ErrStoreUnavailable) {
			return apperror.NewUnavailable("token store unavailable", err)
		}
		return apperror.NewInternal(err)
	}

	link := s.baseURL + "/auth/reset-password?token=" + token
	if err := s.mail.SendPasswordReset(ctx, user.Email, link); err != nil {
		// The entry exists but the user never received the link; surface
		// the failure so the client can retry the request.
		return apperror.NewInternal(fmt.Errorf("sending reset mail: %w", err))
	}

	slog.Info("password reset initiated",
		slog.Int64("user_id", user.ID),
	)

	return nil
}

// ValidateResetToken resolves a reset token without consuming it.
func (s *authService) ValidateResetToken(ctx context.Context, token string) (string, error) {
	email, err := s.resets.Resolve(ctx, token)
	if err != nil {
		if errors.Is(err, ErrResetTokenNotFound) {
			return "", apperror.NewBadRequest("invalid or expired reset token")
		}
		return "", apperror.NewUnavailable("token store unavailable", err)
	}
	return email, nil
}

// ResetPassword completes the reset flow: the token is resolved again at
// submission time (it may have expired between page render and submit),
// the submitted new password is hashed and persisted, and the token is
// consumed so it cannot be reused.
func (s *authService) ResetPassword(ctx context.Context, token, newPassword string) error {
	email, err := s.resets.Resolve(ctx, token)
	if err != nil {
		if errors.Is(err, ErrResetTokenNotFound) {
			return apperror.NewBadRequest("invalid or expired reset token")
		}
		return apperror.NewUnavailable("token store unavailable", err)
	}

	user, err := s.findByEmail(ctx, email)
	if err != nil {
		if isNotFound(err) {
			// The account vanished while the token was live.
			return apperror.NewBadRequest("invalid or expired reset token")
		}
		return apperror.NewUnavailable("user directory unavailable", err)
	}

	hash, err := hashPassword(newPassword)
	if err != nil {
		return apperror.NewInternal(fmt.Errorf("hashing new password: %w", err))
	}

	if err := s.directory.UpdatePassword(ctx, user.ID, hash); err != nil {
		return apperror.NewInternal(fmt.Errorf("persisting new password: %w", err))
	}

	if err := s.resets.Consume(ctx, token); err != nil {
		// The password did change; failing here leaves the token live for
		// its remaining TTL. Surface the failure rather than pretending
		// the single-use guarantee held.
		return apperror.NewUnavailable("token store unavailable", err)
	}

	slog.Info("password reset completed",
		slog.Int64("user_id", user.ID),
	)

	return nil
}

// --- Helpers ---

// findByEmail wraps the directory lookup in the bounded timeout.
func (s *authService) findByEmail(ctx context.Context, email string) (*User, error) {
	ctx, cancel := context.WithTimeout(ctx, s.lookupTimeout)
	defer cancel()
	return s.directory.FindByEmail(ctx, email)
}

// normalizeEmail lowercases and trims an email address so lookups and
// stored values always agree.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// isNotFound checks if an error is an apperror with a 404 code, which the
// repository uses for "no such row". Anything else is a transport failure.
func isNotFound(err error) bool {
	var appErr *apperror.AppError
	return errors.As(err, &appErr) && appErr.Code == http.StatusNotFound
}

package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/parleychat/parley/internal/apperror"
)

// newHandlerTestServer wires the real handler, service, token service, and
// reset store (over miniredis) behind the registered routes, with only the
// user directory mocked.
func newHandlerTestServer(t *testing.T, repo *mockUserRepo) (*echo.Echo, *serviceFixture) {
	t.Helper()
	fx := newServiceFixture(t, repo)

	e := echo.New()
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		_ = c.JSON(apperror.SafeCode(err), map[string]string{"message": apperror.SafeMessage(err)})
	}

	h := NewHandler(fx.service, 24*time.Hour, http.SameSiteStrictMode)
	RegisterRoutes(e, h)
	return e, fx
}

func postJSON(e *echo.Echo, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestHandlerLogin_SetsCookieAndReturnsToken(t *testing.T) {
	user := testUser(t)
	repo := &mockUserRepo{
		findByEmailFn: func(ctx context.Context, email string) (*User, error) {
			if email == "alice@example.com" {
				return user, nil
			}
			return nil, apperror.NewNotFound("user not found")
		},
		updateLastLoginFn: func(ctx context.Context, id int64) error { return nil },
	}
	e, fx := newHandlerTestServer(t, repo)

	rec := postJSON(e, "/auth/login", `{"email":"alice@example.com","password":"secret"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}
	if _, err := fx.tokens.Verify(body["token"]); err != nil {
		t.Errorf("returned token does not verify: %v", err)
	}

	cookie := jwtResponseCookie(rec)
	if cookie == nil {
		t.Fatal("expected jwt cookie on login response")
	}
	if cookie.Value != body["token"] {
		t.Error("cookie and body should carry the same token")
	}
	if !cookie.HttpOnly {
		t.Error("session cookie must be HttpOnly")
	}
	if cookie.MaxAge != int((24 * time.Hour).Seconds()) {
		t.Errorf("expected cookie MaxAge to match token lifetime, got %d", cookie.MaxAge)
	}
	if cookie.SameSite != http.SameSiteStrictMode {
		t.Errorf("expected SameSite=Strict, got %v", cookie.SameSite)
	}
}

func TestHandlerLogin_Validation(t *testing.T) {
	e, _ := newHandlerTestServer(t, &mockUserRepo{})

	tests := []struct {
		name string
		body string
	}{
		{"missing email", `{"password":"secret"}`},
		{"missing password", `{"email":"alice@example.com"}`},
		{"empty body", `{}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postJSON(e, "/auth/login", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", rec.Code)
			}
		})
	}
}

func TestHandlerLogin_BadCredentials(t *testing.T) {
	repo := &mockUserRepo{
		findByEmailFn: func(ctx context.Context, email string) (*User, error) {
			return nil, apperror.NewNotFound("user not found")
		},
	}
	e, _ := newHandlerTestServer(t, repo)

	rec := postJSON(e, "/auth/login", `{"email":"nobody@example.com","password":"whatever"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if jwtResponseCookie(rec) != nil {
		t.Error("failed login must not set a session cookie")
	}
}

func TestHandlerStatus(t *testing.T) {
	user := testUser(t)
	repo := &mockUserRepo{
		findByEmailFn: func(ctx context.Context, email string) (*User, error) {
			if email == "alice@example.com" {
				return user, nil
			}
			return nil, apperror.NewNotFound("user not found")
		},
	}
	e, fx := newHandlerTestServer(t, repo)

	token, err := fx.tokens.Issue("alice@example.com")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/auth/status", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}
	if body["email"] != "alice@example.com" || body["username"] != "alice" {
		t.Errorf("unexpected identity payload: %v", body)
	}
	if body["userId"] != float64(user.ID) {
		t.Errorf("expected userId %d, got %v", user.ID, body["userId"])
	}

	// The status contract is header-only: a cookie alone does not count.
	req = httptest.NewRequest(http.MethodGet, "/auth/status", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: token})
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for cookie-only status check, got %d", rec.Code)
	}
}

func TestHandlerLogout_ClearsCookie(t *testing.T) {
	e, _ := newHandlerTestServer(t, &mockUserRepo{})

	rec := postJSON(e, "/auth/logout", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	cookie := jwtResponseCookie(rec)
	if cookie == nil {
		t.Fatal("expected jwt cookie deletion on logout")
	}
	if cookie.MaxAge >= 0 || cookie.Value != "" {
		t.Errorf("expected cleared cookie, got MaxAge=%d Value=%q", cookie.MaxAge, cookie.Value)
	}
}

func TestHandlerRegister_Validation(t *testing.T) {
	e, _ := newHandlerTestServer(t, &mockUserRepo{})

	tests := []struct {
		name string
		body string
	}{
		{"missing username", `{"email":"a@b.com","password":"longenough"}`},
		{"missing email", `{"username":"bob","password":"longenough"}`},
		{"missing password", `{"username":"bob","email":"a@b.com"}`},
		{"short password", `{"username":"bob","email":"a@b.com","password":"short"}`},
		{"overlong password", `{"username":"bob","email":"a@b.com","password":"` + strings.Repeat("x", 129) + `"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postJSON(e, "/auth/register", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestHandlerForgotPassword_UniformResponse(t *testing.T) {
	user := testUser(t)
	repo := &mockUserRepo{
		findByEmailFn: func(ctx context.Context, email string) (*User, error) {
			if email == "alice@example.com" {
				return user, nil
			}
			return nil, apperror.NewNotFound("user not found")
		},
	}
	e, fx := newHandlerTestServer(t, repo)

	known := postJSON(e, "/auth/forgot-password", `{"email":"alice@example.com"}`)
	unknown := postJSON(e, "/auth/forgot-password", `{"email":"nobody@example.com"}`)

	if known.Code != http.StatusOK || unknown.Code != http.StatusOK {
		t.Fatalf("expected 200/200, got %d/%d", known.Code, unknown.Code)
	}
	// Identical bodies either way, so the endpoint can't enumerate accounts.
	if known.Body.String() != unknown.Body.String() {
		t.Errorf("responses differ: %q vs %q", known.Body.String(), unknown.Body.String())
	}

	// But only the registered address produced a mail and a cache entry.
	if len(fx.mail.sent) != 1 {
		t.Errorf("expected one mail, got %d", len(fx.mail.sent))
	}
	if keys := fx.redis.Keys(); len(keys) != 1 {
		t.Errorf("expected one cache entry, got %v", keys)
	}
}

func TestHandlerResetPasswordForm(t *testing.T) {
	user := testUser(t)
	repo := &mockUserRepo{
		findByEmailFn: func(ctx context.Context, email string) (*User, error) {
			if email == "alice@example.com" {
				return user, nil
			}
			return nil, apperror.NewNotFound("user not found")
		},
	}
	e, fx := newHandlerTestServer(t, repo)

	if err := fx.service.InitiatePasswordReset(context.Background(), "alice@example.com"); err != nil {
		t.Fatalf("InitiatePasswordReset failed: %v", err)
	}
	link := fx.mail.sent[0].link
	token := link[strings.Index(link, "token=")+len("token="):]

	// Live token renders the submission form bound to it.
	req := httptest.NewRequest(http.MethodGet, "/auth/reset-password?token="+token, nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), token) {
		t.Error("form should post back to the token-bound action URL")
	}

	// Unknown token gets the error page.
	req = httptest.NewRequest(http.MethodGet, "/auth/reset-password?token=bogus", nil)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bogus token, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Invalid or expired") {
		t.Errorf("unexpected error page: %s", rec.Body.String())
	}

	// Missing token entirely.
	req = httptest.NewRequest(http.MethodGet, "/auth/reset-password", nil)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for missing token, got %d", rec.Code)
	}
}

func TestHandlerResetPassword_Validation(t *testing.T) {
	e, _ := newHandlerTestServer(t, &mockUserRepo{})

	tests := []struct {
		name string
		path string
		body string
	}{
		{"missing token", "/auth/reset-password", `{"newPassword":"longenough"}`},
		{"missing password", "/auth/reset-password?token=tok", `{}`},
		{"short password", "/auth/reset-password?token=tok", `{"newPassword":"short"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postJSON(e, tt.path, tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
		})
	}
}

package app

import (
	"context"
	"net/http"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/pasinduf/blog-platform/internal/store"
)

func TestRegisterCreatesPendingAccount(t *testing.T) {
	var created *store.User
	env := newTestEnv(&fakeStore{
		createUserFn: func(ctx context.Context, user store.User) error {
			created = &user
			return nil
		},
	})

	recorder := env.request(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"firstName": "  Avery ",
		"lastName":  "Reed",
		"email":     "Avery@Example.com",
		"password":  "sunrise42",
	})

	if recorder.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%s)", recorder.Code, recorder.Body.String())
	}
	if created == nil {
		t.Fatal("expected user to be created")
	}
	if created.Status != "PENDING" {
		t.Errorf("expected PENDING status, got %s", created.Status)
	}
	if created.Role != "USER" {
		t.Errorf("expected USER role, got %s", created.Role)
	}
	if created.Email != "avery@example.com" {
		t.Errorf("expected lowercased email, got %s", created.Email)
	}
	if created.FirstName != "Avery" {
		t.Errorf("expected trimmed first name, got %q", created.FirstName)
	}
}

func TestRegisterWeakPasswordWritesNothing(t *testing.T) {
	writes := 0
	env := newTestEnv(&fakeStore{
		createUserFn: func(ctx context.Context, user store.User) error {
			writes++
			return nil
		},
	})

	recorder := env.request(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"firstName": "Avery",
		"lastName":  "Reed",
		"email":     "avery@example.com",
		"password":  "short1",
	})

	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", recorder.Code)
	}
	if writes != 0 {
		t.Errorf("expected no user writes, got %d", writes)
	}
}

func TestLoginRejectsPendingAccount(t *testing.T) {
	hash, _ := bcrypt.GenerateFromPassword([]byte("sunrise42"), bcrypt.MinCost)
	env := newTestEnv(&fakeStore{
		getUserByEmailFn: func(ctx context.Context, email string) (store.User, error) {
			return store.User{
				ID:           "usr_1",
				Email:        email,
				PasswordHash: string(hash),
				Status:       "PENDING",
			}, nil
		},
	})

	recorder := env.request(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    "avery@example.com",
		"password": "sunrise42",
	})

	if recorder.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", recorder.Code)
	}
	payload := decodeResponse(t, recorder)
	if payload["error"] != "Account pending approval" {
		t.Errorf("unexpected error message: %v", payload["error"])
	}
}

func TestLoginSetsSessionCookie(t *testing.T) {
	hash, _ := bcrypt.GenerateFromPassword([]byte("sunrise42"), bcrypt.MinCost)
	env := newTestEnv(&fakeStore{
		getUserByEmailFn: func(ctx context.Context, email string) (store.User, error) {
			return store.User{
				ID:           "usr_1",
				FirstName:    "Avery",
				LastName:     "Reed",
				Email:        email,
				PasswordHash: string(hash),
				Role:         "USER",
				Status:       "APPROVED",
			}, nil
		},
	})

	recorder := env.request(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    "avery@example.com",
		"password": "sunrise42",
	})

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", recorder.Code, recorder.Body.String())
	}

	var cookie *http.Cookie
	for _, c := range recorder.Result().Cookies() {
		if c.Name == sessionCookieName {
			cookie = c
		}
	}
	if cookie == nil {
		t.Fatal("expected session cookie")
	}
	if !cookie.HttpOnly {
		t.Error("expected httpOnly cookie")
	}
	if cookie.SameSite != http.SameSiteLaxMode {
		t.Error("expected SameSite=Lax cookie")
	}
	if cookie.Value == "" {
		t.Error("expected non-empty cookie value")
	}

	// The cookie authenticates follow-up requests.
	sessionRec := env.request(t, http.MethodGet, "/api/session", cookie.Value, nil)
	payload := decodeResponse(t, sessionRec)
	if payload["authenticated"] != true {
		t.Errorf("expected authenticated session, got %v", payload)
	}
}

func TestLogoutRevokesSession(t *testing.T) {
	env := newTestEnv(&fakeStore{})
	token := env.loginAs(t, store.User{ID: "usr_1", Email: "avery@example.com", Role: "USER"})

	recorder := env.request(t, http.MethodPost, "/api/auth/logout", token, nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", recorder.Code)
	}

	// The token is signed and unexpired but its registry entry is gone.
	if _, err := env.service.SessionFromToken(context.Background(), token); err == nil {
		t.Error("expected revoked session to fail lookup")
	}
	after := env.request(t, http.MethodGet, "/api/profile", token, nil)
	if after.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 after logout, got %d", after.Code)
	}
}

func TestForgotPasswordDoesNotRevealAccounts(t *testing.T) {
	env := newTestEnv(&fakeStore{})

	recorder := env.request(t, http.MethodPost, "/api/auth/forgot-password", "", map[string]string{
		"email": "nobody@example.com",
	})

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200 for unknown email, got %d", recorder.Code)
	}
	payload := decodeResponse(t, recorder)
	if _, leaked := payload["devResetToken"]; leaked {
		t.Error("expected no token for unknown email")
	}
}

func TestForgotPasswordIssuesToken(t *testing.T) {
	var saved *store.PasswordResetToken
	env := newTestEnv(&fakeStore{
		getUserByEmailFn: func(ctx context.Context, email string) (store.User, error) {
			return store.User{ID: "usr_1", Email: email, FirstName: "Avery"}, nil
		},
		createPasswordResetTokenFn: func(ctx context.Context, token store.PasswordResetToken) error {
			saved = &token
			return nil
		},
	})

	recorder := env.request(t, http.MethodPost, "/api/auth/forgot-password", "", map[string]string{
		"email": "avery@example.com",
	})

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", recorder.Code)
	}
	if saved == nil {
		t.Fatal("expected reset token to be stored")
	}
	if saved.ExpiresAt.Before(time.Now().Add(50 * time.Minute)) {
		t.Error("expected roughly one hour of validity")
	}
	payload := decodeResponse(t, recorder)
	if payload["devResetToken"] != saved.Token {
		t.Error("expected dev token in response when SMTP is unconfigured")
	}
}

func TestResetPasswordRejectsExpiredToken(t *testing.T) {
	env := newTestEnv(&fakeStore{
		getPasswordResetTokenFn: func(ctx context.Context, token string) (store.PasswordResetToken, error) {
			return store.PasswordResetToken{
				UserID:    "usr_1",
				Token:     token,
				ExpiresAt: time.Now().Add(-time.Minute),
			}, nil
		},
		resetUserPasswordFn: func(ctx context.Context, userID, hash string) error {
			t.Error("expected no password write for expired token")
			return nil
		},
	})

	recorder := env.request(t, http.MethodPost, "/api/auth/reset-password", "", map[string]string{
		"token":           "tok",
		"newPassword":     "sunrise42",
		"confirmPassword": "sunrise42",
	})

	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", recorder.Code)
	}
}

func TestChangePasswordRequiresCurrentPassword(t *testing.T) {
	hash, _ := bcrypt.GenerateFromPassword([]byte("password1"), bcrypt.MinCost)
	env := newTestEnv(&fakeStore{
		getUserByIDFn: func(ctx context.Context, userID string) (store.User, error) {
			return store.User{ID: userID, PasswordHash: string(hash)}, nil
		},
	})
	token := env.loginAs(t, store.User{ID: "usr_1", Email: "avery@example.com", Role: "USER"})

	recorder := env.request(t, http.MethodPost, "/api/auth/change-password", token, map[string]string{
		"currentPassword": "wrong-password",
		"newPassword":     "sunrise42",
		"confirmPassword": "sunrise42",
	})

	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", recorder.Code)
	}
	payload := decodeResponse(t, recorder)
	if payload["error"] != "Current password is incorrect" {
		t.Errorf("unexpected error: %v", payload["error"])
	}
}

func TestSessionEndpointWithoutToken(t *testing.T) {
	env := newTestEnv(&fakeStore{})
	recorder := env.request(t, http.MethodGet, "/api/session", "", nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", recorder.Code)
	}
	payload := decodeResponse(t, recorder)
	if payload["authenticated"] != false {
		t.Errorf("expected unauthenticated, got %v", payload)
	}
}

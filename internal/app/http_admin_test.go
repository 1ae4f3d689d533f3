package app

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/pasinduf/blog-platform/internal/store"
)

func TestAdminRoutesForbiddenForUsers(t *testing.T) {
	env := newTestEnv(&fakeStore{})
	token := env.loginAs(t, store.User{ID: "usr_1", Email: "avery@example.com", Role: "USER"})

	paths := []string{
		"/api/admin/review-queue",
		"/api/admin/leaderboard",
		"/api/admin/users",
		"/api/admin/settings",
	}
	for _, path := range paths {
		recorder := env.request(t, http.MethodGet, path, token, nil)
		if recorder.Code != http.StatusForbidden {
			t.Errorf("%s: expected 403 for USER role, got %d", path, recorder.Code)
		}
	}
}

func TestApproveUserSendsWelcomeEmail(t *testing.T) {
	var statusSet string
	env := newTestEnv(&fakeStore{
		getUserByIDFn: func(ctx context.Context, userID string) (store.User, error) {
			return store.User{ID: userID, Email: "new@example.com", FirstName: "Blair", Status: "PENDING"}, nil
		},
		updateUserStatusFn: func(ctx context.Context, userID, status string) error {
			statusSet = status
			return nil
		},
	})
	env.mail.configured = true
	token := env.loginAs(t, store.User{ID: "usr_admin", Email: "admin@example.com", Role: "ADMIN"})

	recorder := env.request(t, http.MethodPost, "/api/admin/users/usr_2/approve", token, nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", recorder.Code, recorder.Body.String())
	}
	if statusSet != "APPROVED" {
		t.Errorf("expected APPROVED status write, got %q", statusSet)
	}

	// The welcome email is fire-and-forget.
	deadline := time.Now().Add(time.Second)
	for {
		env.mail.mu.Lock()
		sent := len(env.mail.welcomes)
		env.mail.mu.Unlock()
		if sent == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("expected welcome email to be sent")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestDemoteLastAdminRejected(t *testing.T) {
	env := newTestEnv(&fakeStore{
		getUserByIDFn: func(ctx context.Context, userID string) (store.User, error) {
			return store.User{ID: userID, Role: "ADMIN"}, nil
		},
		countAdminsFn: func(ctx context.Context) (int, error) {
			return 1, nil
		},
		updateUserRoleFn: func(ctx context.Context, userID, role string) error {
			t.Error("expected no role write")
			return nil
		},
	})
	token := env.loginAs(t, store.User{ID: "usr_admin", Email: "admin@example.com", Role: "ADMIN"})

	recorder := env.request(t, http.MethodPost, "/api/admin/users/usr_admin/demote", token, nil)
	if recorder.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", recorder.Code)
	}
	payload := decodeResponse(t, recorder)
	if payload["error"] != "Cannot demote the last admin" {
		t.Errorf("unexpected error: %v", payload["error"])
	}
}

func TestDemoteAdminWithAnotherRemaining(t *testing.T) {
	var roleSet string
	env := newTestEnv(&fakeStore{
		getUserByIDFn: func(ctx context.Context, userID string) (store.User, error) {
			return store.User{ID: userID, Role: "ADMIN"}, nil
		},
		countAdminsFn: func(ctx context.Context) (int, error) {
			return 2, nil
		},
		updateUserRoleFn: func(ctx context.Context, userID, role string) error {
			roleSet = role
			return nil
		},
	})
	token := env.loginAs(t, store.User{ID: "usr_admin", Email: "admin@example.com", Role: "ADMIN"})

	recorder := env.request(t, http.MethodPost, "/api/admin/users/usr_2/demote", token, nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", recorder.Code)
	}
	if roleSet != "USER" {
		t.Errorf("expected USER role write, got %q", roleSet)
	}
}

func TestLeaderboardRanksRows(t *testing.T) {
	env := newTestEnv(&fakeStore{
		leaderboardFn: func(ctx context.Context, limit int) ([]store.LeaderboardRow, error) {
			if limit != 10 {
				t.Errorf("expected top-10 limit, got %d", limit)
			}
			return []store.LeaderboardRow{
				{UserID: "usr_1", FirstName: "Avery", LastName: "Reed", PublishedCount: 3, TotalScore: 240, AverageScore: 80},
				{UserID: "usr_2", FirstName: "Blair", LastName: "Quinn", PublishedCount: 1, TotalScore: 95, AverageScore: 95},
			}, nil
		},
	})
	token := env.loginAs(t, store.User{ID: "usr_admin", Email: "admin@example.com", Role: "ADMIN"})

	payload := decodeResponse(t, env.request(t, http.MethodGet, "/api/admin/leaderboard", token, nil))
	rows := payload["leaderboard"].([]any)
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	first := rows[0].(map[string]any)
	if first["rank"] != float64(1) || first["name"] != "Avery Reed" {
		t.Errorf("unexpected first row: %v", first)
	}
}

func TestSettingsMaskAPIKey(t *testing.T) {
	updater := "usr_admin"
	env := newTestEnv(&fakeStore{
		listSettingsFn: func(ctx context.Context) ([]store.Setting, error) {
			return []store.Setting{
				{ID: "set_key", Name: "AI_API_KEY", Description: "API key for the generative text service", Value: "sk-abcdef1234"},
				{ID: "set_coach", Name: "WRITING_COACH", Value: "Review this draft.", UpdatedBy: &updater, UpdatedByName: "Admin Adams"},
			}, nil
		},
	})
	token := env.loginAs(t, store.User{ID: "usr_admin", Email: "admin@example.com", Role: "ADMIN"})

	payload := decodeResponse(t, env.request(t, http.MethodGet, "/api/admin/settings", token, nil))
	settings := payload["settings"].([]any)
	for _, entry := range settings {
		setting := entry.(map[string]any)
		if setting["name"] == "AI_API_KEY" {
			if setting["value"] != "****1234" {
				t.Errorf("expected masked key, got %v", setting["value"])
			}
			if setting["description"] != "API key for the generative text service" {
				t.Errorf("expected description, got %v", setting["description"])
			}
		}
		if setting["name"] == "WRITING_COACH" {
			if setting["value"] != "Review this draft." {
				t.Errorf("expected prompt untouched, got %v", setting["value"])
			}
			if setting["updatedBy"] != "usr_admin" || setting["updatedByName"] != "Admin Adams" {
				t.Errorf("expected updater surfaced, got %v / %v", setting["updatedBy"], setting["updatedByName"])
			}
		}
	}
}

func TestUpdateSettingRecordsUpdater(t *testing.T) {
	var savedValue, savedBy string
	env := newTestEnv(&fakeStore{
		updateSettingFn: func(ctx context.Context, settingID, value, updatedBy string) error {
			savedValue = value
			savedBy = updatedBy
			return nil
		},
	})
	token := env.loginAs(t, store.User{ID: "usr_admin", Email: "admin@example.com", Role: "ADMIN"})

	recorder := env.request(t, http.MethodPut, "/api/admin/settings/set_coach", token, map[string]string{"value": "Be kind."})
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", recorder.Code, recorder.Body.String())
	}
	if savedValue != "Be kind." {
		t.Errorf("expected value write, got %q", savedValue)
	}
	if savedBy != "usr_admin" {
		t.Errorf("expected caller recorded as updater, got %q", savedBy)
	}
}

func TestUpdateSettingRejectsEmptyValue(t *testing.T) {
	env := newTestEnv(&fakeStore{})
	token := env.loginAs(t, store.User{ID: "usr_admin", Email: "admin@example.com", Role: "ADMIN"})

	recorder := env.request(t, http.MethodPut, "/api/admin/settings/set_coach", token, map[string]string{"value": "  "})
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", recorder.Code)
	}
}

func TestGenerateSummaryStoresVersionedPayload(t *testing.T) {
	var saved store.AdminSummary
	env := newTestEnv(&fakeStore{
		getBlogFn: func(ctx context.Context, blogID string) (store.Blog, error) {
			return store.Blog{ID: blogID, AuthorID: "usr_1", Title: "Post", Content: "body", Status: "SUBMITTED"}, nil
		},
		setAdminSummaryFn: func(ctx context.Context, blogID string, summary store.AdminSummary) error {
			saved = summary
			return nil
		},
	})
	token := env.loginAs(t, store.User{ID: "usr_admin", Email: "admin@example.com", Role: "ADMIN"})

	recorder := env.request(t, http.MethodPost, "/api/blogs/blg_1/summary", token, nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", recorder.Code, recorder.Body.String())
	}
	if saved.SchemaVersion != store.PayloadSchemaVersion {
		t.Errorf("expected versioned summary, got %d", saved.SchemaVersion)
	}
	if saved.Summary == "" {
		t.Error("expected summary text")
	}
}

func TestHealthAndReady(t *testing.T) {
	env := newTestEnv(&fakeStore{})

	health := env.request(t, http.MethodGet, "/api/health", "", nil)
	if health.Code != http.StatusOK {
		t.Errorf("expected 200 from health, got %d", health.Code)
	}

	ready := decodeResponse(t, env.request(t, http.MethodGet, "/api/ready", "", nil))
	if ready["ok"] != true {
		t.Errorf("expected ready, got %v", ready)
	}
}

func TestReadyReportsDatabaseFailure(t *testing.T) {
	env := newTestEnv(&fakeStore{
		pingFn: func(ctx context.Context) error {
			return context.DeadlineExceeded
		},
	})

	recorder := env.request(t, http.MethodGet, "/api/ready", "", nil)
	if recorder.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", recorder.Code)
	}
	payload := decodeResponse(t, recorder)
	if payload["ok"] != false {
		t.Errorf("expected not ready, got %v", payload)
	}
}

package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	"github.com/custodia-labs/userstore/internal/adapters/driven/redis"
	"github.com/custodia-labs/userstore/internal/core/domain"
	"github.com/custodia-labs/userstore/internal/core/services"
)

// setupStack wires the real record store, rate limiter and repository
// against an in-process Redis, returning the assembled request pipeline.
func setupStack(t *testing.T, rateLimit int64) (http.Handler, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	store := redis.NewRecordStore(client)
	limiter := redis.NewRateLimiter(client, rateLimit, time.Minute)
	svc := services.NewUserService(store, discardLogger())

	cfg := DefaultConfig()
	cfg.AuthToken = testToken
	srv := NewServer(cfg, svc, limiter, store, discardLogger())

	return srv.Handler(), mr
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, bytes.NewBufferString(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	req.Header.Set("Authorization", "Bearer "+testToken)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestIntegration_UserLifecycle(t *testing.T) {
	h, _ := setupStack(t, 100)

	// Create
	rr := do(t, h, "POST", "/users", `{"name":"Jimmy Cruz","email":"jimmy@example.com"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	var created domain.User
	if err := json.NewDecoder(rr.Body).Decode(&created); err != nil {
		t.Fatalf("create: failed to decode body: %v", err)
	}
	if created.ID != 1 {
		t.Errorf("create: expected first id 1, got %d", created.ID)
	}
	if loc := rr.Header().Get("Location"); loc != fmt.Sprintf("/users/%d", created.ID) {
		t.Errorf("create: unexpected Location %q", loc)
	}

	// Read back
	rr = do(t, h, "GET", fmt.Sprintf("/users/%d", created.ID), "")
	if rr.Code != http.StatusOK {
		t.Fatalf("get: expected 200, got %d", rr.Code)
	}
	var got domain.User
	if err := json.NewDecoder(rr.Body).Decode(&got); err != nil {
		t.Fatalf("get: failed to decode body: %v", err)
	}
	if got != created {
		t.Errorf("get: expected %+v, got %+v", created, got)
	}

	// Replace
	rr = do(t, h, "PUT", fmt.Sprintf("/users/%d", created.ID), `{"name":"James Cruz"}`)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("update: expected 204, got %d: %s", rr.Code, rr.Body.String())
	}
	rr = do(t, h, "GET", fmt.Sprintf("/users/%d", created.ID), "")
	var updated domain.User
	if err := json.NewDecoder(rr.Body).Decode(&updated); err != nil {
		t.Fatalf("get after update: failed to decode body: %v", err)
	}
	if updated.Name != "James Cruz" || updated.Email != "" {
		t.Errorf("update should overwrite the whole record, got %+v", updated)
	}

	// Delete, then 404
	rr = do(t, h, "DELETE", fmt.Sprintf("/users/%d", created.ID), "")
	if rr.Code != http.StatusNoContent {
		t.Fatalf("delete: expected 204, got %d", rr.Code)
	}
	rr = do(t, h, "GET", fmt.Sprintf("/users/%d", created.ID), "")
	if rr.Code != http.StatusNotFound {
		t.Errorf("get after delete: expected 404, got %d", rr.Code)
	}
}

func TestIntegration_ListAndSearch(t *testing.T) {
	h, _ := setupStack(t, 100)

	for _, name := range []string{"Ada Lovelace", "Grace Hopper", "Jimmy Cruz"} {
		rr := do(t, h, "POST", "/users", fmt.Sprintf(`{"name":%q}`, name))
		if rr.Code != http.StatusCreated {
			t.Fatalf("create %s: expected 201, got %d", name, rr.Code)
		}
	}

	rr := do(t, h, "GET", "/users", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("list: expected 200, got %d", rr.Code)
	}
	var users []*domain.User
	if err := json.NewDecoder(rr.Body).Decode(&users); err != nil {
		t.Fatalf("list: failed to decode body: %v", err)
	}
	if len(users) != 3 {
		t.Fatalf("list: expected 3 users, got %d", len(users))
	}
	for i := 1; i < len(users); i++ {
		if users[i-1].ID >= users[i].ID {
			t.Errorf("list: not ordered by id: %v", users)
		}
	}

	rr = do(t, h, "GET", "/users/search?name=ace", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("search: expected 200, got %d", rr.Code)
	}
	users = nil
	if err := json.NewDecoder(rr.Body).Decode(&users); err != nil {
		t.Fatalf("search: failed to decode body: %v", err)
	}
	if len(users) != 2 {
		t.Errorf("search ace: expected Ada Lovelace and Grace Hopper, got %v", users)
	}
}

func TestIntegration_IDsSurviveDeletion(t *testing.T) {
	h, _ := setupStack(t, 100)

	rr := do(t, h, "POST", "/users", `{"name":"First"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rr.Code)
	}
	rr = do(t, h, "DELETE", "/users/1", "")
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rr.Code)
	}

	rr = do(t, h, "POST", "/users", `{"name":"Second"}`)
	var second domain.User
	if err := json.NewDecoder(rr.Body).Decode(&second); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if second.ID != 2 {
		t.Errorf("expected id 2 after deleting id 1, got %d", second.ID)
	}
}

func TestIntegration_RateLimitEnforced(t *testing.T) {
	h, mr := setupStack(t, 3)

	for i := 0; i < 3; i++ {
		rr := do(t, h, "GET", "/users", "")
		if rr.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, rr.Code)
		}
	}

	rr := do(t, h, "GET", "/users", "")
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 over quota, got %d", rr.Code)
	}

	// Health stays reachable while the user routes are throttled
	rr = do(t, h, "GET", "/health", "")
	if rr.Code != http.StatusOK {
		t.Errorf("health: expected 200, got %d", rr.Code)
	}

	// Quota recovers once the window elapses
	mr.FastForward(2 * time.Minute)
	rr = do(t, h, "GET", "/users", "")
	if rr.Code != http.StatusOK {
		t.Errorf("expected 200 after window expiry, got %d", rr.Code)
	}
}

func TestIntegration_RoutesThrottleIndependently(t *testing.T) {
	h, _ := setupStack(t, 1)

	if rr := do(t, h, "GET", "/users", ""); rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if rr := do(t, h, "GET", "/users", ""); rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rr.Code)
	}

	// A different route keeps its own quota
	if rr := do(t, h, "POST", "/users", `{"name":"Jimmy Cruz"}`); rr.Code != http.StatusCreated {
		t.Errorf("expected 201 on a fresh route quota, got %d", rr.Code)
	}
}

func TestIntegration_ValidationErrors(t *testing.T) {
	h, _ := setupStack(t, 100)

	tests := []struct {
		name string
		body string
		want string
	}{
		{"blank name", `{"name":"   "}`, "name is required"},
		{"invalid email", `{"name":"Jimmy Cruz","email":"not-an-email"}`, "email is not a valid address"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, h, "POST", "/users", tt.body)
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rr.Code)
			}
			var body ErrorResponse
			if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
				t.Fatalf("failed to decode body: %v", err)
			}
			if body.Error != tt.want {
				t.Errorf("expected %q, got %q", tt.want, body.Error)
			}
		})
	}
}

func TestIntegration_HealthReflectsStore(t *testing.T) {
	h, mr := setupStack(t, 100)

	rr := do(t, h, "GET", "/health", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}

	mr.Close()

	rr = do(t, h, "GET", "/health", "")
	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 with store down, got %d", rr.Code)
	}
}

package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/portale-hq/portale/internal/config"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// testConfig returns a minimal config for testing (in-memory storage)
func testConfig() *config.Config {
	return &config.Config{
		Port:               "0",
		Env:                "development",
		LogLevel:           "error",
		SessionTTL:         time.Hour,
		AdminSecret:        "test-admin-secret",
		EligibleVoterFloor: 10,
		FinalizeInterval:   time.Minute,
		RateLimitRPM:       1000,
	}
}

// newTestServer creates a server backed by in-memory stores
func newTestServer(t *testing.T) *Server {
	t.Helper()
	s, err := New(testConfig())
	if err != nil {
		t.Fatalf("Failed to create server: %v", err)
	}
	return s
}

func doJSON(t *testing.T, s *Server, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	s.router.ServeHTTP(w, req)
	return w
}

// ---------------------------------------------------------------------------
// Health endpoint tests
// ---------------------------------------------------------------------------

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t)

	w := doJSON(t, s, "GET", "/health", "", nil)
	if w.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", w.Code)
	}

	var resp map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}

	if resp["status"] != "healthy" {
		t.Errorf("Expected status 'healthy', got %v", resp["status"])
	}
}

func TestLivenessEndpoint(t *testing.T) {
	s := newTestServer(t)

	w := doJSON(t, s, "GET", "/health/live", "", nil)
	if w.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", w.Code)
	}
}

func TestReadinessEndpoint(t *testing.T) {
	s := newTestServer(t)

	w := doJSON(t, s, "GET", "/health/ready", "", nil)
	// Server hasn't called Run() so ready is false
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503 (not ready), got %d", w.Code)
	}
}

// ---------------------------------------------------------------------------
// Route registration tests
// ---------------------------------------------------------------------------

func TestCoreRoutesRegistered(t *testing.T) {
	s := newTestServer(t)

	routes := s.router.Routes()
	expected := []string{
		"GET:/health",
		"GET:/health/live",
		"GET:/health/ready",
		"GET:/metrics",
		"GET:/v1/ws",
		"POST:/v1/auth/login",
		"GET:/v1/users/:id",
		"GET:/v1/users/:id/stats",
		"GET:/v1/platform",
	}

	routeSet := make(map[string]bool)
	for _, route := range routes {
		routeSet[route.Method+":"+route.Path] = true
	}

	for _, e := range expected {
		if !routeSet[e] {
			t.Errorf("Core route %s not registered", e)
		}
	}
}

func TestDomainRoutesRegistered(t *testing.T) {
	s := newTestServer(t)

	routes := s.router.Routes()
	expected := []string{
		"GET:/v1/missions",
		"POST:/v1/missions/:id/start",
		"POST:/v1/missions/:id/complete",
		"GET:/v1/proposals",
		"POST:/v1/proposals",
		"POST:/v1/proposals/:id/votes",
		"GET:/v1/proposals/:id/results",
		"GET:/v1/leaderboard",
		"GET:/v1/users/:id/rank",
		"GET:/v1/me/wallet",
		"POST:/v1/me/stake",
		"GET:/v1/activity",
		"POST:/v1/admin/users",
		"POST:/v1/admin/missions",
		"POST:/v1/admin/users/:id/access-codes",
		"POST:/v1/admin/users/:id/rank-bonus",
		"POST:/v1/admin/proposals/:id/implement",
		"POST:/v1/admin/proposals/:id/cancel",
	}

	routeSet := make(map[string]bool)
	for _, route := range routes {
		routeSet[route.Method+":"+route.Path] = true
	}

	for _, e := range expected {
		if !routeSet[e] {
			t.Errorf("Route %s not registered", e)
		}
	}
}

// ---------------------------------------------------------------------------
// Auth flow
// ---------------------------------------------------------------------------

func TestProtectedRoutesRequireSession(t *testing.T) {
	s := newTestServer(t)

	w := doJSON(t, s, "GET", "/v1/me/wallet", "", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 without session, got %d", w.Code)
	}
}

func TestAdminRoutesRequireSecret(t *testing.T) {
	s := newTestServer(t)

	body := `{"username":"alice","email":"alice@example.com"}`
	w := doJSON(t, s, "POST", "/v1/admin/users", body, nil)
	if w.Code != http.StatusForbidden {
		t.Errorf("Expected 403 without admin secret, got %d", w.Code)
	}
}

// TestLoginFlow walks the full provisioning path: admin creates a user,
// issues an access code, the user logs in and reads their own profile.
func TestLoginFlow(t *testing.T) {
	s := newTestServer(t)
	adminHeaders := map[string]string{"X-Admin-Secret": "test-admin-secret"}

	// Create user
	w := doJSON(t, s, "POST", "/v1/admin/users",
		`{"username":"alice","email":"alice@example.com"}`, adminHeaders)
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201 creating user, got %d: %s", w.Code, w.Body.String())
	}
	var created struct {
		User struct {
			ID string `json:"id"`
		} `json:"user"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("Failed to parse create response: %v", err)
	}
	if created.User.ID == "" {
		t.Fatal("Expected user id in create response")
	}

	// Issue access code
	w = doJSON(t, s, "POST", "/v1/admin/users/"+created.User.ID+"/access-codes", "", adminHeaders)
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201 issuing access code, got %d: %s", w.Code, w.Body.String())
	}
	var issued struct {
		AccessCode string `json:"access_code"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &issued); err != nil {
		t.Fatalf("Failed to parse access code response: %v", err)
	}
	if issued.AccessCode == "" {
		t.Fatal("Expected access_code in response")
	}

	// Login
	w = doJSON(t, s, "POST", "/v1/auth/login",
		`{"access_code":"`+issued.AccessCode+`"}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200 logging in, got %d: %s", w.Code, w.Body.String())
	}
	var login struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &login); err != nil {
		t.Fatalf("Failed to parse login response: %v", err)
	}
	if !strings.HasPrefix(login.Token, "st_") {
		t.Fatalf("Expected session token with st_ prefix, got %q", login.Token)
	}

	// Authenticated request
	w = doJSON(t, s, "GET", "/v1/me/wallet", "", map[string]string{
		"Authorization": "Bearer " + login.Token,
	})
	if w.Code != http.StatusOK {
		t.Errorf("Expected 200 reading own wallet, got %d: %s", w.Code, w.Body.String())
	}
}

// ---------------------------------------------------------------------------
// Misc
// ---------------------------------------------------------------------------

func TestPlatformEndpoint(t *testing.T) {
	s := newTestServer(t)

	w := doJSON(t, s, "GET", "/v1/platform", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	var resp map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if resp["platform"] == nil {
		t.Error("Expected platform block in response")
	}
}

func TestRequestIDHeader(t *testing.T) {
	s := newTestServer(t)

	w := doJSON(t, s, "GET", "/health", "", nil)
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("Expected X-Request-ID header on response")
	}
}

func TestNotFoundRoute(t *testing.T) {
	s := newTestServer(t)

	w := doJSON(t, s, "GET", "/v1/nonexistent", "", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", w.Code)
	}
}

// TestRankBonusFlow pays a leaderboard bonus through the admin endpoint and
// reads it back from the wallet.
func TestRankBonusFlow(t *testing.T) {
	s := newTestServer(t)
	adminHeaders := map[string]string{"X-Admin-Secret": "test-admin-secret"}

	w := doJSON(t, s, "POST", "/v1/admin/users",
		`{"username":"ranked","email":"ranked@example.com"}`, adminHeaders)
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201 creating user, got %d: %s", w.Code, w.Body.String())
	}
	var created struct {
		User struct {
			ID string `json:"id"`
		} `json:"user"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("Failed to parse create response: %v", err)
	}

	w = doJSON(t, s, "POST", "/v1/admin/users/"+created.User.ID+"/rank-bonus",
		`{"rank":50}`, adminHeaders)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200 awarding bonus, got %d: %s", w.Code, w.Body.String())
	}
	var award struct {
		Bonus int `json:"bonus"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &award); err != nil {
		t.Fatalf("Failed to parse award response: %v", err)
	}
	if award.Bonus != 50 {
		t.Errorf("Expected top-100 bonus of 50, got %d", award.Bonus)
	}

	// Missing rank is rejected.
	w = doJSON(t, s, "POST", "/v1/admin/users/"+created.User.ID+"/rank-bonus",
		`{}`, adminHeaders)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 without rank, got %d", w.Code)
	}
}

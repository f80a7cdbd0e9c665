package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/foxzi/phishguard/internal/campaign"
	"github.com/foxzi/phishguard/internal/catalog"
	"github.com/foxzi/phishguard/internal/config"
	"github.com/foxzi/phishguard/internal/delivery"
	"github.com/foxzi/phishguard/internal/stats"
	"github.com/foxzi/phishguard/internal/store"
	"github.com/foxzi/phishguard/internal/tracker"
)

func setupTestServer(t *testing.T, apiKey string) (*Server, *delivery.Storage) {
	t.Helper()

	st, err := store.NewBoltStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	queue, err := delivery.NewStorage(st.DB())
	if err != nil {
		t.Fatalf("Failed to create delivery storage: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cat := catalog.New()
	cm := campaign.NewManager(st, cat, queue, "http://localhost:8080", logger)
	tr := tracker.New(st, logger)
	ag := stats.New(st)

	cfg := &config.APIConfig{
		ListenAddr: ":8080",
		APIKey:     apiKey,
	}

	return NewServer(cm, tr, ag, cat, cfg, logger), queue
}

// setupCompany registers a company through the API and returns its ID
func setupCompany(t *testing.T, server *Server) string {
	t.Helper()

	body := `{"company_name":"Acme Corp","admin_email":"admin@acme.test","employee_count":50}`
	req := httptest.NewRequest("POST", "/api/setup", bytes.NewBufferString(body))
	w := httptest.NewRecorder()
	server.router.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("Setup status = %d, want %d. Body: %s", w.Code, http.StatusCreated, w.Body.String())
	}

	var resp SetupResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	return resp.CompanyID
}

// launchCampaign launches a campaign through the API and returns its ID
func launchCampaign(t *testing.T, server *Server, companyID string) string {
	t.Helper()

	body := `{
		"company_id": "` + companyID + `",
		"campaign_name": "Q3 Awareness Test",
		"template_id": "it_password",
		"employees": [
			{"name": "Alice", "email": "alice@acme.test"},
			{"name": "Bob", "email": "bob@acme.test"}
		]
	}`
	req := httptest.NewRequest("POST", "/api/campaign/launch", bytes.NewBufferString(body))
	w := httptest.NewRecorder()
	server.router.ServeHTTP(w, req)

	if w.Code != http.StatusAccepted {
		t.Fatalf("Launch status = %d, want %d. Body: %s", w.Code, http.StatusAccepted, w.Body.String())
	}

	var resp LaunchResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	return resp.CampaignID
}

func TestHealthEndpoint(t *testing.T) {
	server, _ := setupTestServer(t, "")

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()

	server.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Status = %d, want %d", w.Code, http.StatusOK)
	}

	var resp HealthResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if resp.Status != "ok" {
		t.Errorf("Status = %q, want %q", resp.Status, "ok")
	}
}

func TestSetupEndpoint(t *testing.T) {
	server, _ := setupTestServer(t, "")

	id := setupCompany(t, server)
	if len(id) != 8 {
		t.Errorf("Company ID length = %d, want 8", len(id))
	}
}

func TestSetupEndpointValidation(t *testing.T) {
	server, _ := setupTestServer(t, "")

	tests := []struct {
		name string
		body string
		want int
	}{
		{"missing name", `{"admin_email":"a@b.com","employee_count":10}`, http.StatusBadRequest},
		{"bad email", `{"company_name":"Acme","admin_email":"not-an-email","employee_count":10}`, http.StatusBadRequest},
		{"negative count", `{"company_name":"Acme","admin_email":"a@b.com","employee_count":-1}`, http.StatusBadRequest},
		{"invalid json", `{invalid}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/api/setup", bytes.NewBufferString(tt.body))
			w := httptest.NewRecorder()

			server.router.ServeHTTP(w, req)

			if w.Code != tt.want {
				t.Errorf("Status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestLaunchEndpoint(t *testing.T) {
	server, queue := setupTestServer(t, "")
	companyID := setupCompany(t, server)

	body := `{
		"company_id": "` + companyID + `",
		"campaign_name": "Test Campaign",
		"template_id": "hr_benefits",
		"employees": [{"name": "Alice", "email": "alice@acme.test"}]
	}`
	req := httptest.NewRequest("POST", "/api/campaign/launch", bytes.NewBufferString(body))
	w := httptest.NewRecorder()

	server.router.ServeHTTP(w, req)

	if w.Code != http.StatusAccepted {
		t.Fatalf("Status = %d, want %d. Body: %s", w.Code, http.StatusAccepted, w.Body.String())
	}

	var resp LaunchResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if !resp.Success {
		t.Error("Success = false, want true")
	}
	if resp.EmployeesTargeted != 1 {
		t.Errorf("EmployeesTargeted = %d, want 1", resp.EmployeesTargeted)
	}
	if resp.Template != "hr_benefits" {
		t.Errorf("Template = %q, want %q", resp.Template, "hr_benefits")
	}

	// Verify the delivery job was queued
	qstats, err := queue.Stats(context.Background())
	if err != nil {
		t.Fatalf("Failed to get queue stats: %v", err)
	}
	if qstats.Pending != 1 {
		t.Errorf("Pending jobs = %d, want 1", qstats.Pending)
	}
}

func TestLaunchEndpointErrors(t *testing.T) {
	server, _ := setupTestServer(t, "")
	companyID := setupCompany(t, server)

	tests := []struct {
		name string
		body string
		want int
	}{
		{
			"unknown company",
			`{"company_id":"deadbeef","campaign_name":"X","template_id":"hr_benefits","employees":[{"name":"A","email":"a@b.com"}]}`,
			http.StatusNotFound,
		},
		{
			"unknown template",
			`{"company_id":"` + companyID + `","campaign_name":"X","template_id":"nope","employees":[{"name":"A","email":"a@b.com"}]}`,
			http.StatusNotFound,
		},
		{
			"no employees",
			`{"company_id":"` + companyID + `","campaign_name":"X","template_id":"hr_benefits","employees":[]}`,
			http.StatusBadRequest,
		},
		{
			"bad employee email",
			`{"company_id":"` + companyID + `","campaign_name":"X","template_id":"hr_benefits","employees":[{"name":"A","email":"nope"}]}`,
			http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/api/campaign/launch", bytes.NewBufferString(tt.body))
			w := httptest.NewRecorder()

			server.router.ServeHTTP(w, req)

			if w.Code != tt.want {
				t.Errorf("Status = %d, want %d. Body: %s", w.Code, tt.want, w.Body.String())
			}
		})
	}
}

func TestTrackEndpoint(t *testing.T) {
	server, queue := setupTestServer(t, "")
	companyID := setupCompany(t, server)
	campaignID := launchCampaign(t, server, companyID)

	// Pull a real token from the queued delivery job
	job, err := queue.Dequeue(context.Background())
	if err != nil || job == nil {
		t.Fatalf("Failed to dequeue job: %v", err)
	}

	req := httptest.NewRequest("GET", "/track/"+job.Token, nil)
	req.Header.Set("User-Agent", "test-browser")
	w := httptest.NewRecorder()

	server.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Status = %d, want %d", w.Code, http.StatusOK)
	}
	if !strings.Contains(w.Body.String(), "You've Been Phished!") {
		t.Error("Training page should contain the reveal headline")
	}

	// Second visit returns the same page but does not double count
	w2 := httptest.NewRecorder()
	server.router.ServeHTTP(w2, httptest.NewRequest("GET", "/track/"+job.Token, nil))

	if w2.Code != http.StatusOK {
		t.Errorf("Repeat status = %d, want %d", w2.Code, http.StatusOK)
	}
	if w2.Body.String() != w.Body.String() {
		t.Error("Repeat visit should render the identical page")
	}

	// Results must show exactly one click
	rw := httptest.NewRecorder()
	server.router.ServeHTTP(rw, httptest.NewRequest("GET", "/api/campaign/"+campaignID+"/results", nil))

	var results stats.CampaignStats
	if err := json.NewDecoder(rw.Body).Decode(&results); err != nil {
		t.Fatalf("Failed to decode results: %v", err)
	}
	if results.TotalClicked != 1 {
		t.Errorf("TotalClicked = %d, want 1", results.TotalClicked)
	}
}

func TestTrackEndpointInvalidToken(t *testing.T) {
	server, _ := setupTestServer(t, "")

	req := httptest.NewRequest("GET", "/track/no-such-token", nil)
	w := httptest.NewRecorder()

	server.router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("Status = %d, want %d", w.Code, http.StatusNotFound)
	}
	if !strings.Contains(w.Body.String(), "Invalid link") {
		t.Error("Expected invalid link page")
	}
}

func TestResultsEndpoint(t *testing.T) {
	server, _ := setupTestServer(t, "")
	companyID := setupCompany(t, server)
	campaignID := launchCampaign(t, server, companyID)

	req := httptest.NewRequest("GET", "/api/campaign/"+campaignID+"/results", nil)
	w := httptest.NewRecorder()

	server.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Status = %d, want %d", w.Code, http.StatusOK)
	}

	var resp stats.CampaignStats
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode results: %v", err)
	}

	if resp.TotalSent != 2 {
		t.Errorf("TotalSent = %d, want 2", resp.TotalSent)
	}
	if resp.SafeCount != 2 {
		t.Errorf("SafeCount = %d, want 2", resp.SafeCount)
	}
	if len(resp.Recipients) != 2 {
		t.Errorf("Recipients = %d, want 2", len(resp.Recipients))
	}
}

func TestResultsEndpointNotFound(t *testing.T) {
	server, _ := setupTestServer(t, "")

	req := httptest.NewRequest("GET", "/api/campaign/nonexistent/results", nil)
	w := httptest.NewRecorder()

	server.router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("Status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestDashboardEndpoint(t *testing.T) {
	server, _ := setupTestServer(t, "")
	companyID := setupCompany(t, server)
	launchCampaign(t, server, companyID)

	req := httptest.NewRequest("GET", "/api/company/"+companyID+"/dashboard", nil)
	w := httptest.NewRecorder()

	server.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Status = %d, want %d", w.Code, http.StatusOK)
	}

	var resp stats.Dashboard
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode dashboard: %v", err)
	}

	if resp.CampaignsRun != 1 {
		t.Errorf("CampaignsRun = %d, want 1", resp.CampaignsRun)
	}
	if resp.TotalSent != 2 {
		t.Errorf("TotalSent = %d, want 2", resp.TotalSent)
	}
}

func TestDashboardEndpointNotFound(t *testing.T) {
	server, _ := setupTestServer(t, "")

	req := httptest.NewRequest("GET", "/api/company/nonexistent/dashboard", nil)
	w := httptest.NewRecorder()

	server.router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("Status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestTemplatesEndpoint(t *testing.T) {
	server, _ := setupTestServer(t, "")

	req := httptest.NewRequest("GET", "/api/templates", nil)
	w := httptest.NewRecorder()

	server.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Status = %d, want %d", w.Code, http.StatusOK)
	}

	var resp TemplatesResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode templates: %v", err)
	}

	if len(resp.Templates) != 4 {
		t.Errorf("Templates = %d, want 4", len(resp.Templates))
	}
}

func TestAuthMiddleware(t *testing.T) {
	server, _ := setupTestServer(t, "secret-key")

	tests := []struct {
		name    string
		auth    string
		xAPIKey string
		want    int
	}{
		{"no auth", "", "", http.StatusUnauthorized},
		{"wrong key", "Bearer wrong-key", "", http.StatusUnauthorized},
		{"correct key", "Bearer secret-key", "", http.StatusOK},
		{"x-api-key header", "", "secret-key", http.StatusOK},
		{"authorization wins over x-api-key", "Bearer wrong-key", "secret-key", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/api/templates", nil)
			if tt.auth != "" {
				req.Header.Set("Authorization", tt.auth)
			}
			if tt.xAPIKey != "" {
				req.Header.Set("X-API-Key", tt.xAPIKey)
			}
			w := httptest.NewRecorder()

			server.router.ServeHTTP(w, req)

			if w.Code != tt.want {
				t.Errorf("Status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestTrackBypassesAuth(t *testing.T) {
	server, _ := setupTestServer(t, "secret-key")

	// No credentials: the tracking endpoint must still answer
	req := httptest.NewRequest("GET", "/track/some-token", nil)
	w := httptest.NewRecorder()

	server.router.ServeHTTP(w, req)

	if w.Code == http.StatusUnauthorized {
		t.Error("Tracking endpoint must not require auth")
	}
}

package stats

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/foxzi/phishguard/internal/store"
)

func newTestStore(t *testing.T) *store.BoltStore {
	t.Helper()
	s, err := store.NewBoltStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewBoltStore() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func seedCampaign(t *testing.T, s *store.BoltStore, companyID, campaignID string, total int) []string {
	t.Helper()
	ctx := context.Background()

	if c, _ := s.GetCompany(ctx, companyID); c == nil {
		company := &store.Company{
			ID:            companyID,
			Name:          "Acme Corp",
			AdminEmail:    "admin@acme.test",
			EmployeeCount: 100,
			CreatedAt:     time.Now(),
		}
		if err := s.CreateCompany(ctx, company); err != nil {
			t.Fatalf("CreateCompany() error = %v", err)
		}
	}

	tokens := make([]string, total)
	clicks := make([]*store.ClickRecord, total)
	for i := range tokens {
		tokens[i] = fmt.Sprintf("%s-tok-%d", campaignID, i)
		clicks[i] = &store.ClickRecord{
			Token:         tokens[i],
			CampaignID:    campaignID,
			CompanyID:     companyID,
			EmployeeName:  fmt.Sprintf("Employee %d", i),
			EmployeeEmail: fmt.Sprintf("employee%d@acme.test", i),
			Delivery:      store.DeliverySent,
		}
	}
	campaign := &store.Campaign{
		ID:         campaignID,
		CompanyID:  companyID,
		Name:       campaignID,
		TemplateID: "hr_benefits",
		LaunchedAt: time.Now(),
		TotalSent:  total,
		Tokens:     tokens,
	}
	if err := s.CreateCampaign(ctx, campaign, clicks); err != nil {
		t.Fatalf("CreateCampaign() error = %v", err)
	}
	return tokens
}

func click(t *testing.T, s *store.BoltStore, token string) {
	t.Helper()
	if _, _, err := s.ResolveClick(context.Background(), token, store.ClickMeta{}); err != nil {
		t.Fatalf("ResolveClick(%s) error = %v", token, err)
	}
}

func TestCampaignStats(t *testing.T) {
	s := newTestStore(t)
	agg := New(s)
	ctx := context.Background()

	tokens := seedCampaign(t, s, "comp-1", "camp-1", 8)
	for _, tok := range tokens[:3] {
		click(t, s, tok)
	}

	result, err := agg.CampaignStats(ctx, "camp-1")
	if err != nil {
		t.Fatalf("CampaignStats() error = %v", err)
	}
	if result == nil {
		t.Fatal("CampaignStats() returned nil")
	}

	if result.TotalSent != 8 {
		t.Errorf("TotalSent = %d, want 8", result.TotalSent)
	}
	if result.TotalClicked != 3 {
		t.Errorf("TotalClicked = %d, want 3", result.TotalClicked)
	}
	if result.SafeCount != 5 {
		t.Errorf("SafeCount = %d, want 5", result.SafeCount)
	}
	if result.ClickRate != 37.5 {
		t.Errorf("ClickRate = %v, want 37.5", result.ClickRate)
	}
	if len(result.Recipients) != 8 {
		t.Fatalf("len(Recipients) = %d, want 8", len(result.Recipients))
	}

	clicked := 0
	for _, r := range result.Recipients {
		if r.Clicked {
			clicked++
			if r.ClickTime == nil {
				t.Error("clicked recipient should have a click time")
			}
		} else if r.ClickTime != nil {
			t.Error("unclicked recipient should have no click time")
		}
	}
	if clicked != 3 {
		t.Errorf("clicked recipients = %d, want 3", clicked)
	}
}

func TestCampaignStatsUnknown(t *testing.T) {
	s := newTestStore(t)
	agg := New(s)

	result, err := agg.CampaignStats(context.Background(), "nonexistent")
	if err != nil {
		t.Fatalf("CampaignStats() error = %v", err)
	}
	if result != nil {
		t.Error("CampaignStats() should return nil for unknown campaign")
	}
}

func TestCompanyDashboard(t *testing.T) {
	s := newTestStore(t)
	agg := New(s)
	ctx := context.Background()

	tokens1 := seedCampaign(t, s, "comp-1", "camp-1", 4)
	seedCampaign(t, s, "comp-1", "camp-2", 6)
	click(t, s, tokens1[0])

	dash, err := agg.CompanyDashboard(ctx, "comp-1")
	if err != nil {
		t.Fatalf("CompanyDashboard() error = %v", err)
	}
	if dash == nil {
		t.Fatal("CompanyDashboard() returned nil")
	}

	if dash.CampaignsRun != 2 {
		t.Errorf("CampaignsRun = %d, want 2", dash.CampaignsRun)
	}
	if dash.TotalSent != 10 {
		t.Errorf("TotalSent = %d, want 10", dash.TotalSent)
	}
	if dash.TotalClicked != 1 {
		t.Errorf("TotalClicked = %d, want 1", dash.TotalClicked)
	}
	if dash.OverallClickRate != 10.0 {
		t.Errorf("OverallClickRate = %v, want 10.0", dash.OverallClickRate)
	}
	if len(dash.RecentCampaigns) != 2 {
		t.Errorf("len(RecentCampaigns) = %d, want 2", len(dash.RecentCampaigns))
	}
}

func TestCompanyDashboardRecentFive(t *testing.T) {
	s := newTestStore(t)
	agg := New(s)

	for i := 1; i <= 7; i++ {
		seedCampaign(t, s, "comp-1", fmt.Sprintf("camp-%d", i), 1)
	}

	dash, err := agg.CompanyDashboard(context.Background(), "comp-1")
	if err != nil {
		t.Fatalf("CompanyDashboard() error = %v", err)
	}

	if dash.CampaignsRun != 7 {
		t.Errorf("CampaignsRun = %d, want 7", dash.CampaignsRun)
	}
	if len(dash.RecentCampaigns) != 5 {
		t.Fatalf("len(RecentCampaigns) = %d, want 5", len(dash.RecentCampaigns))
	}
	// The five most recent, still in launch order
	for i, want := range []string{"camp-3", "camp-4", "camp-5", "camp-6", "camp-7"} {
		if dash.RecentCampaigns[i].CampaignID != want {
			t.Errorf("RecentCampaigns[%d] = %s, want %s", i, dash.RecentCampaigns[i].CampaignID, want)
		}
	}
}

func TestCompanyDashboardUnknown(t *testing.T) {
	s := newTestStore(t)
	agg := New(s)

	dash, err := agg.CompanyDashboard(context.Background(), "nonexistent")
	if err != nil {
		t.Fatalf("CompanyDashboard() error = %v", err)
	}
	if dash != nil {
		t.Error("CompanyDashboard() should return nil for unknown company")
	}
}

func TestClickRate(t *testing.T) {
	tests := []struct {
		clicked, sent int
		want          float64
	}{
		{0, 0, 0},
		{5, 0, 0},
		{0, 10, 0},
		{3, 8, 37.5},
		{1, 3, 33.3},
		{2, 3, 66.7},
		{10, 10, 100},
	}

	for _, tt := range tests {
		if got := ClickRate(tt.clicked, tt.sent); got != tt.want {
			t.Errorf("ClickRate(%d, %d) = %v, want %v", tt.clicked, tt.sent, got, tt.want)
		}
	}
}

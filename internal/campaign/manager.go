// Package campaign creates companies and launches phishing test campaigns.
package campaign

import (
	"context"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/foxzi/phishguard/internal/catalog"
	"github.com/foxzi/phishguard/internal/delivery"
	"github.com/foxzi/phishguard/internal/metrics"
	"github.com/foxzi/phishguard/internal/store"
)

// ValidationError reports malformed setup or launch input
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Recipient is one employee targeted by a campaign
type Recipient struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Sender is the spoofed identity simulation mail appears to come from
type Sender struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// LaunchRequest contains everything needed to launch a campaign
type LaunchRequest struct {
	CompanyID  string
	Name       string
	TemplateID string
	Recipients []Recipient
	Sender     Sender
}

// LaunchResult confirms a launched campaign to the caller
type LaunchResult struct {
	CampaignID string
	Targeted   int
	TemplateID string
}

// Manager creates companies and campaigns and hands deliveries to the queue
type Manager struct {
	store   store.Store
	catalog *catalog.Catalog
	queue   *delivery.Storage
	baseURL string
	logger  *slog.Logger
}

// NewManager creates a campaign manager
func NewManager(st store.Store, cat *catalog.Catalog, queue *delivery.Storage, baseURL string, logger *slog.Logger) *Manager {
	return &Manager{
		store:   st,
		catalog: cat,
		queue:   queue,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		logger:  logger,
	}
}

// SetupCompany registers a new company account and returns its ID
func (m *Manager) SetupCompany(ctx context.Context, name, adminEmail string, employeeCount int) (*store.Company, error) {
	if strings.TrimSpace(name) == "" {
		return nil, &ValidationError{Field: "company_name", Reason: "must not be empty"}
	}
	if _, err := mail.ParseAddress(adminEmail); err != nil {
		return nil, &ValidationError{Field: "admin_email", Reason: "malformed address"}
	}
	if employeeCount < 0 {
		return nil, &ValidationError{Field: "employee_count", Reason: "must not be negative"}
	}

	company := &store.Company{
		ID:            uuid.New().String()[:8],
		Name:          name,
		AdminEmail:    adminEmail,
		EmployeeCount: employeeCount,
		CreatedAt:     time.Now(),
	}

	if err := m.store.CreateCompany(ctx, company); err != nil {
		return nil, fmt.Errorf("failed to create company: %w", err)
	}

	m.logger.Info("company registered", "company_id", company.ID, "name", company.Name)
	return company, nil
}

// LaunchCampaign creates the campaign and its per-recipient tracking state,
// then enqueues one delivery job per recipient. The campaign and all click
// records are durable before the first delivery is dispatched, so a click
// arriving mid-send always resolves.
func (m *Manager) LaunchCampaign(ctx context.Context, req LaunchRequest) (*LaunchResult, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, &ValidationError{Field: "campaign_name", Reason: "must not be empty"}
	}
	if len(req.Recipients) == 0 {
		return nil, &ValidationError{Field: "employees", Reason: "must not be empty"}
	}
	for _, r := range req.Recipients {
		if _, err := mail.ParseAddress(r.Email); err != nil {
			return nil, &ValidationError{Field: "employees", Reason: fmt.Sprintf("malformed address %q", r.Email)}
		}
	}

	company, err := m.store.GetCompany(ctx, req.CompanyID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up company: %w", err)
	}
	if company == nil {
		return nil, fmt.Errorf("company %s: %w", req.CompanyID, store.ErrNotFound)
	}

	tmpl := m.catalog.Get(req.TemplateID)
	if tmpl == nil {
		return nil, fmt.Errorf("template %s: %w", req.TemplateID, store.ErrNotFound)
	}

	sender := req.Sender
	if sender.Name == "" {
		sender.Name = "Security Team"
	}
	if sender.Email == "" {
		sender.Email = "security@phishguard-test.com"
	}

	campaign := &store.Campaign{
		ID:         uuid.New().String(),
		CompanyID:  company.ID,
		Name:       req.Name,
		TemplateID: tmpl.ID,
		LaunchedAt: time.Now(),
		TotalSent:  len(req.Recipients),
		Tokens:     make([]string, 0, len(req.Recipients)),
	}

	clicks := make([]*store.ClickRecord, 0, len(req.Recipients))
	for _, r := range req.Recipients {
		// Random v4 tokens: not derivable from each other or from the
		// recipient, so one leaked link can't be turned into another.
		token := uuid.New().String()
		campaign.Tokens = append(campaign.Tokens, token)
		clicks = append(clicks, &store.ClickRecord{
			Token:         token,
			CampaignID:    campaign.ID,
			CompanyID:     company.ID,
			EmployeeName:  r.Name,
			EmployeeEmail: r.Email,
			Delivery:      store.DeliveryQueued,
		})
	}

	if err := m.store.CreateCampaign(ctx, campaign, clicks); err != nil {
		return nil, fmt.Errorf("failed to create campaign: %w", err)
	}

	for i, r := range req.Recipients {
		token := campaign.Tokens[i]
		job := &delivery.Job{
			ID:         uuid.New().String(),
			CampaignID: campaign.ID,
			Token:      token,
			ToName:     r.Name,
			ToEmail:    r.Email,
			FromName:   sender.Name,
			FromEmail:  sender.Email,
			Subject:    tmpl.Subject,
			HTML:       tmpl.Render(m.TrackingURL(token)),
			Status:     delivery.StatusPending,
			CreatedAt:  time.Now(),
			UpdatedAt:  time.Now(),
		}

		if err := m.queue.Enqueue(ctx, job); err != nil {
			// The recipient simply never receives the email; the campaign
			// and every other recipient are unaffected
			m.logger.Error("failed to enqueue delivery",
				"campaign_id", campaign.ID,
				"recipient", r.Email,
				"error", err,
			)
			if serr := m.store.SetDeliveryState(ctx, token, store.DeliveryFailed, err.Error()); serr != nil {
				m.logger.Error("failed to record delivery failure", "error", serr)
			}
		}
	}

	metrics.IncCampaignsLaunched(campaign.TotalSent)

	m.logger.Info("campaign launched",
		"campaign_id", campaign.ID,
		"company_id", company.ID,
		"template_id", tmpl.ID,
		"targeted", campaign.TotalSent,
	)

	return &LaunchResult{
		CampaignID: campaign.ID,
		Targeted:   campaign.TotalSent,
		TemplateID: tmpl.ID,
	}, nil
}

// TrackingURL builds the public tracking link for a token
func (m *Manager) TrackingURL(token string) string {
	return m.baseURL + "/track/" + token
}

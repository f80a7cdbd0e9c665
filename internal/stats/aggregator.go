// Package stats derives campaign and company click statistics. Pure read
// path: every call reflects whatever the tracker has committed by then.
package stats

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/foxzi/phishguard/internal/store"
)

// RecipientResult is the per-recipient view in campaign results
type RecipientResult struct {
	Name          string     `json:"name"`
	Email         string     `json:"email"`
	Clicked       bool       `json:"clicked"`
	ClickTime     *time.Time `json:"click_time,omitempty"`
	Delivery      string     `json:"delivery"`
	DeliveryError string     `json:"delivery_error,omitempty"`
}

// CampaignStats summarizes one campaign
type CampaignStats struct {
	CampaignID   string            `json:"campaign_id"`
	Name         string            `json:"name"`
	TemplateID   string            `json:"template_id"`
	LaunchedAt   time.Time         `json:"launched_at"`
	TotalSent    int               `json:"total_sent"`
	TotalClicked int               `json:"total_clicked"`
	ClickRate    float64           `json:"click_rate"`
	SafeCount    int               `json:"safe_count"`
	Recipients   []RecipientResult `json:"employees"`
}

// CampaignSummary is the dashboard view of one campaign
type CampaignSummary struct {
	CampaignID   string    `json:"campaign_id"`
	Name         string    `json:"name"`
	TemplateID   string    `json:"template_id"`
	LaunchedAt   time.Time `json:"launched_at"`
	TotalSent    int       `json:"total_sent"`
	TotalClicked int       `json:"total_clicked"`
}

// Dashboard summarizes a company across all of its campaigns
type Dashboard struct {
	CompanyID        string            `json:"company_id"`
	CompanyName      string            `json:"company_name"`
	EmployeeCount    int               `json:"employee_count"`
	CampaignsRun     int               `json:"campaigns_run"`
	TotalSent        int               `json:"total_emails_sent"`
	TotalClicked     int               `json:"total_clicks"`
	OverallClickRate float64           `json:"overall_click_rate"`
	RecentCampaigns  []CampaignSummary `json:"recent_campaigns"`
}

// Aggregator computes statistics from stored state
type Aggregator struct {
	store store.Store
}

// New creates a stats aggregator
func New(st store.Store) *Aggregator {
	return &Aggregator{store: st}
}

// CampaignStats returns results for one campaign.
// Returns nil, nil if the campaign does not exist.
func (a *Aggregator) CampaignStats(ctx context.Context, campaignID string) (*CampaignStats, error) {
	campaign, err := a.store.GetCampaign(ctx, campaignID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up campaign: %w", err)
	}
	if campaign == nil {
		return nil, nil
	}

	clicks, err := a.store.ListClicksByCampaign(ctx, campaign.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list click records: %w", err)
	}

	recipients := make([]RecipientResult, 0, len(clicks))
	for _, c := range clicks {
		recipients = append(recipients, RecipientResult{
			Name:          c.EmployeeName,
			Email:         c.EmployeeEmail,
			Clicked:       c.Clicked,
			ClickTime:     c.ClickedAt,
			Delivery:      string(c.Delivery),
			DeliveryError: c.DeliveryError,
		})
	}

	return &CampaignStats{
		CampaignID:   campaign.ID,
		Name:         campaign.Name,
		TemplateID:   campaign.TemplateID,
		LaunchedAt:   campaign.LaunchedAt,
		TotalSent:    campaign.TotalSent,
		TotalClicked: campaign.TotalClicked,
		ClickRate:    ClickRate(campaign.TotalClicked, campaign.TotalSent),
		SafeCount:    campaign.TotalSent - campaign.TotalClicked,
		Recipients:   recipients,
	}, nil
}

// CompanyDashboard returns company-wide totals and the last 5 campaigns.
// Returns nil, nil if the company does not exist.
func (a *Aggregator) CompanyDashboard(ctx context.Context, companyID string) (*Dashboard, error) {
	company, err := a.store.GetCompany(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up company: %w", err)
	}
	if company == nil {
		return nil, nil
	}

	campaigns, err := a.store.ListCampaignsByCompany(ctx, company.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list campaigns: %w", err)
	}

	dashboard := &Dashboard{
		CompanyID:     company.ID,
		CompanyName:   company.Name,
		EmployeeCount: company.EmployeeCount,
		CampaignsRun:  len(campaigns),
	}

	for _, c := range campaigns {
		dashboard.TotalSent += c.TotalSent
		dashboard.TotalClicked += c.TotalClicked
	}
	dashboard.OverallClickRate = ClickRate(dashboard.TotalClicked, dashboard.TotalSent)

	// Most recent 5 in launch order
	recent := campaigns
	if len(recent) > 5 {
		recent = recent[len(recent)-5:]
	}
	for _, c := range recent {
		dashboard.RecentCampaigns = append(dashboard.RecentCampaigns, CampaignSummary{
			CampaignID:   c.ID,
			Name:         c.Name,
			TemplateID:   c.TemplateID,
			LaunchedAt:   c.LaunchedAt,
			TotalSent:    c.TotalSent,
			TotalClicked: c.TotalClicked,
		})
	}

	return dashboard, nil
}

// ClickRate returns the click-through percentage rounded to one decimal.
// Zero sent means zero rate, not a division error.
func ClickRate(clicked, sent int) float64 {
	if sent <= 0 {
		return 0
	}
	return math.Round(float64(clicked)/float64(sent)*1000) / 10
}

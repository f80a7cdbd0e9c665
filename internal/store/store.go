package store

import (
	"context"
	"errors"
	"time"

	bolt "go.etcd.io/bbolt"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// DeliveryState tracks the delivery outcome for a single recipient
type DeliveryState string

const (
	DeliveryQueued DeliveryState = "queued"
	DeliverySent   DeliveryState = "sent"
	DeliveryFailed DeliveryState = "failed"
)

// Company represents a registered company account
type Company struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	AdminEmail    string    `json:"admin_email"`
	EmployeeCount int       `json:"employee_count"`
	CreatedAt     time.Time `json:"created_at"`
	Campaigns     []string  `json:"campaigns"` // campaign IDs in launch order
}

// Campaign represents one phishing test campaign.
// TotalSent is fixed at creation; TotalClicked only ever grows and always
// equals the number of this campaign's click records with Clicked set.
type Campaign struct {
	ID           string    `json:"id"`
	CompanyID    string    `json:"company_id"`
	Name         string    `json:"name"`
	TemplateID   string    `json:"template_id"`
	LaunchedAt   time.Time `json:"launched_at"`
	TotalSent    int       `json:"total_sent"`
	TotalClicked int       `json:"total_clicked"`
	Tokens       []string  `json:"tokens"` // tracking tokens in recipient order
}

// ClickRecord tracks a single recipient's link. The token is the record key
// and the only thing embedded in the emailed URL. Clicked transitions
// false->true at most once; ClickedAt and the captured metadata are set in
// the same transaction and never change afterwards.
type ClickRecord struct {
	Token         string        `json:"token"`
	CampaignID    string        `json:"campaign_id"`
	CompanyID     string        `json:"company_id"`
	EmployeeName  string        `json:"employee_name"`
	EmployeeEmail string        `json:"employee_email"`
	Clicked       bool          `json:"clicked"`
	ClickedAt     *time.Time    `json:"click_time,omitempty"`
	SourceAddr    string        `json:"ip_address,omitempty"`
	UserAgent     string        `json:"user_agent,omitempty"`
	Delivery      DeliveryState `json:"delivery"`
	DeliveryError string        `json:"delivery_error,omitempty"`
}

// ClickMeta is the requester metadata captured on the first click
type ClickMeta struct {
	SourceAddr string
	UserAgent  string
}

// Counts contains record totals across the store
type Counts struct {
	Companies int64 `json:"companies"`
	Campaigns int64 `json:"campaigns"`
	Targets   int64 `json:"targets"`
	Clicked   int64 `json:"clicked"`
}

// Store defines the persistence operations the services need
type Store interface {
	// CreateCompany writes a new company record
	CreateCompany(ctx context.Context, c *Company) error

	// GetCompany retrieves a company by ID
	// Returns nil, nil if the company does not exist
	GetCompany(ctx context.Context, id string) (*Company, error)

	// CreateCampaign durably writes the campaign, all of its click records
	// and the company campaign-list append as a single transaction
	CreateCampaign(ctx context.Context, campaign *Campaign, clicks []*ClickRecord) error

	// GetCampaign retrieves a campaign by ID
	// Returns nil, nil if the campaign does not exist
	GetCampaign(ctx context.Context, id string) (*Campaign, error)

	// ListCampaignsByCompany returns the company's campaigns in launch order
	ListCampaignsByCompany(ctx context.Context, companyID string) ([]*Campaign, error)

	// GetClick retrieves a click record by tracking token
	// Returns nil, nil if the token is unknown
	GetClick(ctx context.Context, token string) (*ClickRecord, error)

	// ListClicksByCampaign returns the campaign's click records in recipient order
	ListClicksByCampaign(ctx context.Context, campaignID string) ([]*ClickRecord, error)

	// ResolveClick performs the first-click transition for a token: flips the
	// record, captures meta and increments the owning campaign's counter in
	// one atomic transaction. The bool result reports whether this call was
	// the first resolution. Returns nil, false, nil for an unknown token.
	ResolveClick(ctx context.Context, token string, meta ClickMeta) (*ClickRecord, bool, error)

	// SetDeliveryState records the delivery outcome for a recipient
	SetDeliveryState(ctx context.Context, token string, state DeliveryState, errMsg string) error

	// Counts returns record totals
	Counts(ctx context.Context) (*Counts, error)

	// Close closes the storage
	Close() error
}

// BoltDB exposes the underlying bolt handle for components that share the
// database file (delivery queue, metrics collector).
type BoltDB interface {
	DB() *bolt.DB
}

// Package delivery dispatches simulation emails in the background. Jobs are
// persisted before the launch call returns, so a restart never loses
// undelivered mail, and a recipient that can't be reached stays a valid
// terminal state instead of failing the campaign.
package delivery

import (
	"time"
)

// Status represents the state of a delivery job
type Status string

const (
	StatusPending  Status = "pending"
	StatusSending  Status = "sending"
	StatusSent     Status = "sent"
	StatusFailed   Status = "failed"
	StatusDeferred Status = "deferred"
)

// Job is one recipient's pending simulation email. The message content is
// rendered at enqueue time so delivery does not depend on the catalog.
type Job struct {
	ID          string    `json:"id"`
	CampaignID  string    `json:"campaign_id"`
	Token       string    `json:"token"`
	ToName      string    `json:"to_name"`
	ToEmail     string    `json:"to_email"`
	FromName    string    `json:"from_name"`
	FromEmail   string    `json:"from_email"`
	Subject     string    `json:"subject"`
	HTML        string    `json:"html"`
	Status      Status    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	NextRetryAt time.Time `json:"next_retry_at"`
	RetryCount  int       `json:"retry_count"`
	LastError   string    `json:"last_error,omitempty"`
}

// Stats represents delivery queue statistics
type Stats struct {
	Pending  int64 `json:"pending"`
	Sending  int64 `json:"sending"`
	Sent     int64 `json:"sent"`
	Failed   int64 `json:"failed"`
	Deferred int64 `json:"deferred"`
	Total    int64 `json:"total"`
}

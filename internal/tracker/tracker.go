// Package tracker resolves tracking tokens into training catch events.
package tracker

import (
	"context"
	"log/slog"

	"github.com/foxzi/phishguard/internal/store"
)

// Outcome classifies a token resolution. Callers render the same training
// page for Caught and AlreadyClicked; the distinction exists for logging,
// metrics and tests, not for the person who clicked.
type Outcome string

const (
	OutcomeCaught         Outcome = "caught"
	OutcomeAlreadyClicked Outcome = "already_clicked"
	OutcomeInvalidToken   Outcome = "invalid_token"
)

// Result is the outcome of resolving one inbound click
type Result struct {
	Outcome Outcome
	Record  *store.ClickRecord
}

// Tracker is the first-arrival counter behind the tracking endpoint. A
// resolved token proves the link was fetched, not that a human clicked it:
// mail gateways prefetch links, so Resolve must stay safe under any number
// of repeat calls.
type Tracker struct {
	store  store.Store
	logger *slog.Logger
}

// New creates a click tracker
func New(st store.Store, logger *slog.Logger) *Tracker {
	return &Tracker{store: st, logger: logger}
}

// Resolve processes one inbound click. Only the first resolution of a token
// mutates state; replays and unknown tokens mutate nothing. Internal
// failures degrade to InvalidToken so the endpoint never leaks errors to
// whoever holds the link.
func (t *Tracker) Resolve(ctx context.Context, token string, meta store.ClickMeta) Result {
	record, first, err := t.store.ResolveClick(ctx, token, meta)
	if err != nil {
		t.logger.Error("click resolution failed", "error", err)
		return Result{Outcome: OutcomeInvalidToken}
	}
	if record == nil {
		return Result{Outcome: OutcomeInvalidToken}
	}

	if first {
		t.logger.Info("click tracked",
			"campaign_id", record.CampaignID,
			"employee", record.EmployeeEmail,
		)
		return Result{Outcome: OutcomeCaught, Record: record}
	}

	return Result{Outcome: OutcomeAlreadyClicked, Record: record}
}

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/foxzi/phishguard/internal/campaign"
	"github.com/foxzi/phishguard/internal/catalog"
	"github.com/foxzi/phishguard/internal/store"
)

// SetupRequest is the request body for POST /api/setup
type SetupRequest struct {
	CompanyName   string `json:"company_name"`
	AdminEmail    string `json:"admin_email"`
	EmployeeCount int    `json:"employee_count"`
}

// SetupResponse is the response for POST /api/setup
type SetupResponse struct {
	Success   bool   `json:"success"`
	CompanyID string `json:"company_id"`
	Message   string `json:"message"`
}

// LaunchRequest is the request body for POST /api/campaign/launch
type LaunchRequest struct {
	CompanyID    string               `json:"company_id"`
	CampaignName string               `json:"campaign_name"`
	TemplateID   string               `json:"template_id"`
	Employees    []campaign.Recipient `json:"employees"`
	FromName     string               `json:"from_name,omitempty"`
	FromEmail    string               `json:"from_email,omitempty"`
}

// LaunchResponse is the response for POST /api/campaign/launch
type LaunchResponse struct {
	Success           bool   `json:"success"`
	CampaignID        string `json:"campaign_id"`
	Message           string `json:"message"`
	EmployeesTargeted int    `json:"employees_targeted"`
	Template          string `json:"template"`
}

// TemplatesResponse is the response for GET /api/templates
type TemplatesResponse struct {
	Templates []catalog.Summary `json:"templates"`
}

// HealthResponse is the response for GET /health
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`
}

// ErrorResponse is the error response
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// handleSetup handles POST /api/setup
func (s *Server) handleSetup(w http.ResponseWriter, r *http.Request) {
	var req SetupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	company, err := s.campaigns.SetupCompany(r.Context(), req.CompanyName, req.AdminEmail, req.EmployeeCount)
	if err != nil {
		s.sendCampaignError(w, err, "Failed to setup company")
		return
	}

	s.logger.Info("company registered",
		"company_id", company.ID,
		"name", company.Name,
	)

	s.sendJSON(w, http.StatusCreated, SetupResponse{
		Success:   true,
		CompanyID: company.ID,
		Message:   fmt.Sprintf("Company '%s' setup complete", company.Name),
	})
}

// handleLaunch handles POST /api/campaign/launch
func (s *Server) handleLaunch(w http.ResponseWriter, r *http.Request) {
	var req LaunchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := s.campaigns.LaunchCampaign(r.Context(), campaign.LaunchRequest{
		CompanyID:  req.CompanyID,
		Name:       req.CampaignName,
		TemplateID: req.TemplateID,
		Recipients: req.Employees,
		Sender: campaign.Sender{
			Name:  req.FromName,
			Email: req.FromEmail,
		},
	})
	if err != nil {
		s.sendCampaignError(w, err, "Failed to launch campaign")
		return
	}

	s.sendJSON(w, http.StatusAccepted, LaunchResponse{
		Success:           true,
		CampaignID:        result.CampaignID,
		Message:           fmt.Sprintf("Campaign launched! Sending %d phishing test emails.", result.Targeted),
		EmployeesTargeted: result.Targeted,
		Template:          result.TemplateID,
	})
}

// handleResults handles GET /api/campaign/{id}/results
func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	result, err := s.stats.CampaignStats(r.Context(), id)
	if err != nil {
		s.logger.Error("failed to get campaign results", "campaign_id", id, "error", err)
		s.sendError(w, http.StatusInternalServerError, "Failed to get campaign results")
		return
	}

	if result == nil {
		s.sendError(w, http.StatusNotFound, "Campaign not found")
		return
	}

	s.sendJSON(w, http.StatusOK, result)
}

// handleDashboard handles GET /api/company/{id}/dashboard
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	dash, err := s.stats.CompanyDashboard(r.Context(), id)
	if err != nil {
		s.logger.Error("failed to get dashboard", "company_id", id, "error", err)
		s.sendError(w, http.StatusInternalServerError, "Failed to get dashboard")
		return
	}

	if dash == nil {
		s.sendError(w, http.StatusNotFound, "Company not found")
		return
	}

	s.sendJSON(w, http.StatusOK, dash)
}

// handleTemplates handles GET /api/templates
func (s *Server) handleTemplates(w http.ResponseWriter, r *http.Request) {
	s.sendJSON(w, http.StatusOK, TemplatesResponse{
		Templates: s.catalog.List(),
	})
}

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.sendJSON(w, http.StatusOK, HealthResponse{
		Status:  "ok",
		Version: "0.1.0",
		Uptime:  time.Since(s.startTime).String(),
	})
}

// sendCampaignError maps manager errors to HTTP statuses
func (s *Server) sendCampaignError(w http.ResponseWriter, err error, fallback string) {
	var verr *campaign.ValidationError
	switch {
	case errors.As(err, &verr):
		s.sendError(w, http.StatusBadRequest, verr.Error())
	case errors.Is(err, store.ErrNotFound):
		s.sendError(w, http.StatusNotFound, err.Error())
	default:
		s.logger.Error("campaign operation failed", "error", err)
		s.sendError(w, http.StatusInternalServerError, fallback)
	}
}

// sendJSON sends a JSON response
func (s *Server) sendJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// sendError sends an error response
func (s *Server) sendError(w http.ResponseWriter, status int, message string) {
	s.sendJSON(w, status, ErrorResponse{Success: false, Error: message})
}

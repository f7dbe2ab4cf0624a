package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/avery/hireflow/internal/api/dto"
	"github.com/avery/hireflow/internal/api/middleware"
	"github.com/avery/hireflow/internal/api/validation"
	"github.com/avery/hireflow/internal/application"
	"github.com/avery/hireflow/internal/database/models"
	"github.com/avery/hireflow/internal/job"
	"github.com/avery/hireflow/internal/membership"
)

const maxResumeSize = 10 << 20 // 10 MiB

type ApplicationHandler struct {
	apps   *application.Service
	jobs   *job.Service
	ledger *membership.Service
}

func NewApplicationHandler(apps *application.Service, jobs *job.Service, ledger *membership.Service) *ApplicationHandler {
	return &ApplicationHandler{apps: apps, jobs: jobs, ledger: ledger}
}

// Submit handles POST /postings/{slug}/apply, the public candidate endpoint.
// The body is a multipart form: candidate_name, candidate_email, and an
// optional resume file.
func (h *ApplicationHandler) Submit(w http.ResponseWriter, r *http.Request) {
	posting, err := h.jobs.GetBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		writeError(w, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxResumeSize)
	if err := r.ParseMultipartForm(maxResumeSize); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid multipart form"})
		return
	}

	name := validation.SanitizeString(r.FormValue("candidate_name"))
	email := strings.TrimSpace(r.FormValue("candidate_email"))

	errs := make(map[string]string)
	if name == "" {
		errs["candidate_name"] = "Name is required"
	}
	if !validation.IsValidEmail(email) {
		errs["candidate_email"] = "A valid email address is required"
	}
	if len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: errs})
		return
	}

	var resume []byte
	var contentType string
	if file, header, err := r.FormFile("resume"); err == nil {
		defer file.Close()
		resume, err = io.ReadAll(file)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Failed to read resume"})
			return
		}
		contentType = header.Header.Get("Content-Type")
	}

	app, err := h.apps.Submit(r.Context(), application.SubmitInput{
		JobID:             posting.ID,
		CandidateName:     name,
		CandidateEmail:    email,
		Resume:            resume,
		ResumeContentType: contentType,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, app)
}

// ListForJob handles GET /api/v1/jobs/{id}/applications.
func (h *ApplicationHandler) ListForJob(w http.ResponseWriter, r *http.Request) {
	jobID, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	// Ownership check: the job must belong to the caller's company.
	if _, err := h.jobs.Get(r.Context(), middleware.GetCompanyID(r.Context()), jobID); err != nil {
		writeError(w, err)
		return
	}

	apps, err := h.apps.ListForJob(r.Context(), jobID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, apps)
}

// Get handles GET /api/v1/applications/{id}.
func (h *ApplicationHandler) Get(w http.ResponseWriter, r *http.Request) {
	app, ok := h.loadForCompany(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, app)
}

type MoveStageRequest struct {
	StageID string `json:"stage_id"`
}

// MoveStage handles POST /api/v1/applications/{id}/move.
func (h *ApplicationHandler) MoveStage(w http.ResponseWriter, r *http.Request) {
	app, ok := h.loadForCompany(w, r)
	if !ok {
		return
	}
	actor, ok := h.resolveActor(w, r)
	if !ok {
		return
	}

	var req MoveStageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}
	stageID, err := uuid.Parse(req.StageID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid stage ID"})
		return
	}

	moved, err := h.apps.MoveToStage(r.Context(), app.ID, stageID, actor.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, moved)
}

// Reject handles POST /api/v1/applications/{id}/reject.
func (h *ApplicationHandler) Reject(w http.ResponseWriter, r *http.Request) {
	app, ok := h.loadForCompany(w, r)
	if !ok {
		return
	}
	actor, ok := h.resolveActor(w, r)
	if !ok {
		return
	}

	rejected, err := h.apps.Reject(r.Context(), app.ID, actor.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rejected)
}

type AssignRequest struct {
	MembershipID *string `json:"membership_id"` // null clears the assignment
}

// Assign handles PUT /api/v1/applications/{id}/assign.
func (h *ApplicationHandler) Assign(w http.ResponseWriter, r *http.Request) {
	app, ok := h.loadForCompany(w, r)
	if !ok {
		return
	}
	actor, ok := h.resolveActor(w, r)
	if !ok {
		return
	}

	var req AssignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}

	var membershipID *uuid.UUID
	if req.MembershipID != nil {
		id, err := uuid.Parse(*req.MembershipID)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid membership ID"})
			return
		}
		membershipID = &id
	}

	assigned, err := h.apps.Assign(r.Context(), app.ID, membershipID, actor.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, assigned)
}

type NoteRequest struct {
	Text string `json:"text"`
}

// AddNote handles POST /api/v1/applications/{id}/notes.
func (h *ApplicationHandler) AddNote(w http.ResponseWriter, r *http.Request) {
	app, ok := h.loadForCompany(w, r)
	if !ok {
		return
	}
	actor, ok := h.resolveActor(w, r)
	if !ok {
		return
	}

	var req NoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}

	note, err := h.apps.AddNote(r.Context(), app.ID, actor.ID, validation.SanitizeString(req.Text))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, note)
}

// ListActivity handles GET /api/v1/applications/{id}/activity.
func (h *ApplicationHandler) ListActivity(w http.ResponseWriter, r *http.Request) {
	app, ok := h.loadForCompany(w, r)
	if !ok {
		return
	}

	activity, err := h.apps.ListActivity(r.Context(), app.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, activity)
}

// loadForCompany loads the application and enforces tenancy: applications of
// another company's jobs read as not found.
func (h *ApplicationHandler) loadForCompany(w http.ResponseWriter, r *http.Request) (*models.Application, bool) {
	appID, ok := parseIDParam(w, r, "id")
	if !ok {
		return nil, false
	}

	app, err := h.apps.Get(r.Context(), appID)
	if err != nil {
		writeError(w, err)
		return nil, false
	}
	if app.Job == nil || app.Job.CompanyID != middleware.GetCompanyID(r.Context()) {
		writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Application not found"})
		return nil, false
	}
	return app, true
}

// resolveActor maps the authenticated user onto their active membership, the
// identity application mutations are attributed to.
func (h *ApplicationHandler) resolveActor(w http.ResponseWriter, r *http.Request) (*models.Membership, bool) {
	actor, err := h.ledger.ActiveForUser(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeError(w, err)
		return nil, false
	}
	if actor == nil || actor.CompanyID != middleware.GetCompanyID(r.Context()) {
		writeJSON(w, http.StatusForbidden, dto.ErrorResponse{Error: "No active membership"})
		return nil, false
	}
	return actor, true
}

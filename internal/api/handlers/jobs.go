package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/avery/hireflow/internal/api/dto"
	"github.com/avery/hireflow/internal/api/middleware"
	"github.com/avery/hireflow/internal/api/validation"
	"github.com/avery/hireflow/internal/database/models"
	"github.com/avery/hireflow/internal/job"
	"github.com/avery/hireflow/internal/pipeline"
)

type JobHandler struct {
	jobs      *job.Service
	pipelines *pipeline.Service
}

func NewJobHandler(jobs *job.Service, pipelines *pipeline.Service) *JobHandler {
	return &JobHandler{jobs: jobs, pipelines: pipelines}
}

type StageRequest struct {
	Name  string `json:"name"`
	Order int    `json:"order"`
}

type CreateJobRequest struct {
	Title           string         `json:"title"`
	Description     string         `json:"description,omitempty"`
	Location        string         `json:"location,omitempty"`
	ExperienceLevel string         `json:"experience_level,omitempty"`
	PipelineName    string         `json:"pipeline_name,omitempty"`
	Stages          []StageRequest `json:"stages,omitempty"`
}

func (r CreateJobRequest) Validate() map[string]string {
	errors := make(map[string]string)
	if strings.TrimSpace(r.Title) == "" {
		errors["title"] = "Title is required"
	}
	if r.ExperienceLevel != "" && !validation.IsValidExperienceLevel(r.ExperienceLevel) {
		errors["experience_level"] = "Invalid experience level"
	}
	return errors
}

func stageSpecs(stages []StageRequest) []pipeline.StageSpec {
	specs := make([]pipeline.StageSpec, len(stages))
	for i, st := range stages {
		specs[i] = pipeline.StageSpec{Name: st.Name, Order: st.Order}
	}
	return specs
}

// Create handles POST /api/v1/jobs.
func (h *JobHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}
	if errors := req.Validate(); len(errors) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: errors})
		return
	}

	created, err := h.jobs.Create(r.Context(), job.CreateInput{
		CompanyID:       middleware.GetCompanyID(r.Context()),
		Title:           req.Title,
		Description:     req.Description,
		Location:        req.Location,
		ExperienceLevel: models.ExperienceLevel(req.ExperienceLevel),
		PipelineName:    req.PipelineName,
		Stages:          stageSpecs(req.Stages),
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

// List handles GET /api/v1/jobs.
func (h *JobHandler) List(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.jobs.List(r.Context(), middleware.GetCompanyID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, jobs)
}

// Get handles GET /api/v1/jobs/{id}.
func (h *JobHandler) Get(w http.ResponseWriter, r *http.Request) {
	jobID, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	found, err := h.jobs.Get(r.Context(), middleware.GetCompanyID(r.Context()), jobID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, found)
}

// GetBySlug handles GET /postings/{slug}, the public candidate view.
func (h *JobHandler) GetBySlug(w http.ResponseWriter, r *http.Request) {
	found, err := h.jobs.GetBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, found)
}

type UpdateJobRequest struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Location    *string `json:"location,omitempty"`
}

// Update handles PUT /api/v1/jobs/{id}.
func (h *JobHandler) Update(w http.ResponseWriter, r *http.Request) {
	jobID, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	var req UpdateJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}

	updated, err := h.jobs.Update(r.Context(), middleware.GetCompanyID(r.Context()), jobID, job.UpdateInput{
		Title:       req.Title,
		Description: req.Description,
		Location:    req.Location,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// Close handles POST /api/v1/jobs/{id}/close.
func (h *JobHandler) Close(w http.ResponseWriter, r *http.Request) {
	jobID, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	closed, err := h.jobs.Close(r.Context(), middleware.GetCompanyID(r.Context()), jobID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, closed)
}

type ReplaceStagesRequest struct {
	Stages []StageRequest `json:"stages"`
}

// ReplaceStages handles PUT /api/v1/jobs/{id}/stages.
func (h *JobHandler) ReplaceStages(w http.ResponseWriter, r *http.Request) {
	jobID, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	// Ownership check before touching the stage list.
	if _, err := h.jobs.Get(r.Context(), middleware.GetCompanyID(r.Context()), jobID); err != nil {
		writeError(w, err)
		return
	}

	var req ReplaceStagesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}

	stages, err := h.pipelines.ReplaceStages(r.Context(), jobID, stageSpecs(req.Stages))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stages)
}

// ListPipelines handles GET /api/v1/pipelines.
func (h *JobHandler) ListPipelines(w http.ResponseWriter, r *http.Request) {
	names, err := h.pipelines.ListPipelineNames(r.Context(), middleware.GetCompanyID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"pipelines": names})
}

// PipelineStages handles GET /api/v1/pipelines/{name}.
func (h *JobHandler) PipelineStages(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	stages, err := h.pipelines.StagesForPipelineName(r.Context(), middleware.GetCompanyID(r.Context()), name)
	if err != nil {
		writeError(w, err)
		return
	}
	if stages == nil {
		writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Pipeline not found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"name": name, "stages": stages})
}

func parseIDParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid ID"})
		return uuid.Nil, false
	}
	return id, true
}

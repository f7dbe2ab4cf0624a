package handlers_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avery/hireflow/internal/api/handlers"
	"github.com/avery/hireflow/internal/api/middleware"
	"github.com/avery/hireflow/internal/database/models"
	"github.com/avery/hireflow/internal/job"
	"github.com/avery/hireflow/internal/pipeline"
	"github.com/avery/hireflow/internal/testutil"
)

func setupJobTestRouter(t *testing.T) (*chi.Mux, *testutil.TestSetup) {
	tc := testutil.NewTestContext(t)

	pipelineSvc := pipeline.NewService(tc.DB, discardLogger())
	jobSvc := job.NewService(tc.DB, discardLogger(), pipelineSvc)
	handler := handlers.NewJobHandler(jobSvc, pipelineSvc)

	r := chi.NewRouter()
	r.Get("/postings/{slug}", handler.GetBySlug)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(tc.JWTService))
		r.Use(middleware.RequireCompany)

		r.Get("/api/v1/jobs", handler.List)
		r.Get("/api/v1/jobs/{id}", handler.Get)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(models.RoleAdmin, models.RoleHR))
			r.Post("/api/v1/jobs", handler.Create)
			r.Put("/api/v1/jobs/{id}", handler.Update)
			r.Post("/api/v1/jobs/{id}/close", handler.Close)
			r.Put("/api/v1/jobs/{id}/stages", handler.ReplaceStages)
			r.Get("/api/v1/pipelines", handler.ListPipelines)
			r.Get("/api/v1/pipelines/{name}", handler.PipelineStages)
		})
	})

	return r, tc
}

func TestJobHandler_Create(t *testing.T) {
	router, tc := setupJobTestRouter(t)
	defer tc.Cleanup()

	tests := []struct {
		name       string
		body       map[string]interface{}
		wantStatus int
	}{
		{
			name: "with explicit stages and pipeline name",
			body: map[string]interface{}{
				"title":         "Backend Engineer",
				"pipeline_name": "Engineering",
				"stages": []map[string]interface{}{
					{"name": "Applied", "order": 0},
					{"name": "Onsite", "order": 1},
				},
			},
			wantStatus: http.StatusCreated,
		},
		{
			name:       "defaults without stages",
			body:       map[string]interface{}{"title": "Designer"},
			wantStatus: http.StatusCreated,
		},
		{
			name:       "missing title",
			body:       map[string]interface{}{"description": "no title"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "broken stage orders",
			body: map[string]interface{}{
				"title": "Broken",
				"stages": []map[string]interface{}{
					{"name": "A", "order": 0},
					{"name": "B", "order": 4},
				},
			},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "bad experience level",
			body: map[string]interface{}{
				"title":            "Weird",
				"experience_level": "wizard",
			},
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := testutil.AuthenticatedRequest(t, "POST", "/api/v1/jobs", tt.body, tc.Token)
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			assert.Equal(t, tt.wantStatus, rr.Code, "Body: %s", rr.Body.String())
		})
	}

	// The named pipeline is now listed.
	req := testutil.AuthenticatedRequest(t, "GET", "/api/v1/pipelines", nil, tc.Token)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var listed map[string][]string
	testutil.ParseJSONResponse(t, rr, &listed)
	assert.Equal(t, []string{"Engineering"}, listed["pipelines"])
}

func TestJobHandler_PipelineStages(t *testing.T) {
	router, tc := setupJobTestRouter(t)
	defer tc.Cleanup()

	req := testutil.AuthenticatedRequest(t, "POST", "/api/v1/jobs", map[string]interface{}{
		"title":         "AE",
		"pipeline_name": "Sales",
		"stages": []map[string]interface{}{
			{"name": "Applied", "order": 0},
			{"name": "Demo", "order": 1},
		},
	}, tc.Token)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusCreated, rr.Code, "Body: %s", rr.Body.String())

	req = testutil.AuthenticatedRequest(t, "GET", "/api/v1/pipelines/Sales", nil, tc.Token)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)

	req = testutil.AuthenticatedRequest(t, "GET", "/api/v1/pipelines/Unknown", nil, tc.Token)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestJobHandler_ReplaceStagesAndPublicView(t *testing.T) {
	router, tc := setupJobTestRouter(t)
	defer tc.Cleanup()

	req := testutil.AuthenticatedRequest(t, "POST", "/api/v1/jobs",
		map[string]interface{}{"title": "Support Lead"}, tc.Token)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusCreated, rr.Code, "Body: %s", rr.Body.String())

	var created models.Job
	testutil.ParseJSONResponse(t, rr, &created)

	req = testutil.AuthenticatedRequest(t, "PUT", "/api/v1/jobs/"+created.ID.String()+"/stages",
		map[string]interface{}{
			"stages": []map[string]interface{}{
				{"name": "Intake", "order": 0},
				{"name": "Trial", "order": 1},
				{"name": "Decision", "order": 2},
			},
		}, tc.Token)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code, "Body: %s", rr.Body.String())

	// The public posting shows the new topology without authentication.
	req = testutil.UnauthenticatedRequest(t, "GET", "/postings/"+created.Slug, nil)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var posting models.Job
	testutil.ParseJSONResponse(t, rr, &posting)
	require.Len(t, posting.Stages, 3)
	assert.Equal(t, "Intake", posting.Stages[0].Name)
}

func TestJobHandler_Tenancy(t *testing.T) {
	router, tc := setupJobTestRouter(t)
	defer tc.Cleanup()

	req := testutil.AuthenticatedRequest(t, "POST", "/api/v1/jobs",
		map[string]interface{}{"title": "Private Role"}, tc.Token)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusCreated, rr.Code)

	var created models.Job
	testutil.ParseJSONResponse(t, rr, &created)

	// A member of another company cannot see or edit it.
	otherCompany := testutil.CreateTestCompany(t, tc.DB)
	outsider := testutil.CreateTestUser(t, tc.DB, "")
	testutil.CreateTestMembership(t, tc.DB, outsider, otherCompany, models.RoleAdmin)
	token := testutil.GenerateTestToken(t, tc.JWTService, outsider, otherCompany.ID, models.RoleAdmin)

	req = testutil.AuthenticatedRequest(t, "GET", "/api/v1/jobs/"+created.ID.String(), nil, token)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	req = testutil.AuthenticatedRequest(t, "PUT", "/api/v1/jobs/"+created.ID.String()+"/stages",
		map[string]interface{}{
			"stages": []map[string]interface{}{{"name": "Hijack", "order": 0}},
		}, token)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

package job_test

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avery/hireflow/internal/apperr"
	"github.com/avery/hireflow/internal/database/models"
	"github.com/avery/hireflow/internal/job"
	"github.com/avery/hireflow/internal/pipeline"
	"github.com/avery/hireflow/internal/testutil"
)

func newService(t *testing.T) (*job.Service, *pipeline.Service, *testutil.TestSetup) {
	t.Helper()
	tc := testutil.NewTestContext(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	pipelineSvc := pipeline.NewService(tc.DB, logger)
	return job.NewService(tc.DB, logger, pipelineSvc), pipelineSvc, tc
}

func TestCreateWithDefaults(t *testing.T) {
	svc, _, tc := newService(t)
	defer tc.Cleanup()
	ctx := testutil.TestContext(t)

	created, err := svc.Create(ctx, job.CreateInput{
		CompanyID:       tc.Company.ID,
		Title:           "Backend Engineer",
		ExperienceLevel: models.ExperienceSenior,
	})
	require.NoError(t, err)
	assert.Equal(t, models.JobOpen, created.Status)
	assert.Equal(t, "backend-engineer-senior", created.Slug)
	require.Len(t, created.Stages, 2)
	assert.Equal(t, "Applied", created.Stages[0].Name)
	assert.Equal(t, "Screening", created.Stages[1].Name)
}

func TestCreateRecordsPipelineTemplate(t *testing.T) {
	svc, _, tc := newService(t)
	defer tc.Cleanup()
	ctx := testutil.TestContext(t)

	stages := []pipeline.StageSpec{
		{Name: "Applied", Order: 0},
		{Name: "Onsite", Order: 1},
		{Name: "Offer", Order: 2},
	}

	created, err := svc.Create(ctx, job.CreateInput{
		CompanyID:    tc.Company.ID,
		Title:        "Account Executive",
		PipelineName: "Sales",
		Stages:       stages,
	})
	require.NoError(t, err)
	require.Len(t, created.Stages, 3)
	require.NotNil(t, created.PipelineTemplateID)

	// A second job created by name alone gets the same topology.
	sibling, err := svc.Create(ctx, job.CreateInput{
		CompanyID:    tc.Company.ID,
		Title:        "Sales Manager",
		PipelineName: "Sales",
	})
	require.NoError(t, err)
	require.Len(t, sibling.Stages, 3)
	assert.Equal(t, "Onsite", sibling.Stages[1].Name)
	assert.Equal(t, created.PipelineTemplateID, sibling.PipelineTemplateID)
}

func TestCreateValidatesStages(t *testing.T) {
	svc, _, tc := newService(t)
	defer tc.Cleanup()
	ctx := testutil.TestContext(t)

	_, err := svc.Create(ctx, job.CreateInput{
		CompanyID: tc.Company.ID,
		Title:     "Broken",
		Stages: []pipeline.StageSpec{
			{Name: "A", Order: 0},
			{Name: "B", Order: 5},
		},
	})
	require.Error(t, err)
	assert.Equal(t, apperr.CodeValidation, apperr.CodeOf(err))

	_, err = svc.Create(ctx, job.CreateInput{CompanyID: tc.Company.ID, Title: "   "})
	require.Error(t, err)
	assert.Equal(t, apperr.CodeValidation, apperr.CodeOf(err))
}

func TestSlugCollision(t *testing.T) {
	svc, _, tc := newService(t)
	defer tc.Cleanup()
	ctx := testutil.TestContext(t)

	first, err := svc.Create(ctx, job.CreateInput{
		CompanyID: tc.Company.ID,
		Title:     "Designer",
	})
	require.NoError(t, err)

	second, err := svc.Create(ctx, job.CreateInput{
		CompanyID: tc.Company.ID,
		Title:     "Designer",
	})
	require.NoError(t, err)

	assert.NotEqual(t, first.Slug, second.Slug)
	assert.Contains(t, second.Slug, "designer")
}

func TestUpdateAndClose(t *testing.T) {
	svc, _, tc := newService(t)
	defer tc.Cleanup()
	ctx := testutil.TestContext(t)

	created, err := svc.Create(ctx, job.CreateInput{
		CompanyID: tc.Company.ID,
		Title:     "Ops Engineer",
	})
	require.NoError(t, err)

	title := "Platform Engineer"
	location := "Berlin"
	updated, err := svc.Update(ctx, tc.Company.ID, created.ID, job.UpdateInput{
		Title:    &title,
		Location: &location,
	})
	require.NoError(t, err)
	assert.Equal(t, "Platform Engineer", updated.Title)
	assert.Equal(t, "Berlin", updated.Location)
	// The slug never changes after creation.
	assert.Equal(t, created.Slug, updated.Slug)

	closed, err := svc.Close(ctx, tc.Company.ID, created.ID)
	require.NoError(t, err)
	assert.True(t, closed.IsClosed)
	assert.Equal(t, models.JobClosed, closed.Status)

	// Closing twice is a no-op.
	_, err = svc.Close(ctx, tc.Company.ID, created.ID)
	require.NoError(t, err)
}

func TestTenancy(t *testing.T) {
	svc, _, tc := newService(t)
	defer tc.Cleanup()
	ctx := testutil.TestContext(t)

	created, err := svc.Create(ctx, job.CreateInput{
		CompanyID: tc.Company.ID,
		Title:     "Analyst",
	})
	require.NoError(t, err)

	other := testutil.CreateTestCompany(t, tc.DB)
	_, err = svc.Get(ctx, other.ID, created.ID)
	require.Error(t, err)
	assert.Equal(t, apperr.CodeNotFound, apperr.CodeOf(err))

	jobs, err := svc.List(ctx, other.ID)
	require.NoError(t, err)
	assert.Empty(t, jobs)
}

func TestGetBySlug(t *testing.T) {
	svc, _, tc := newService(t)
	defer tc.Cleanup()
	ctx := testutil.TestContext(t)

	created, err := svc.Create(ctx, job.CreateInput{
		CompanyID: tc.Company.ID,
		Title:     "Writer",
	})
	require.NoError(t, err)

	found, err := svc.GetBySlug(ctx, created.Slug)
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)
	assert.Len(t, found.Stages, 2)

	_, err = svc.GetBySlug(ctx, "no-such-job")
	require.Error(t, err)
	assert.Equal(t, apperr.CodeNotFound, apperr.CodeOf(err))
}

package application_test

import (
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avery/hireflow/internal/apperr"
	"github.com/avery/hireflow/internal/application"
	"github.com/avery/hireflow/internal/database/models"
	"github.com/avery/hireflow/internal/storage"
	"github.com/avery/hireflow/internal/testutil"
)

func newService(t *testing.T) (*application.Service, *storage.MemoryStore, *testutil.TestSetup) {
	t.Helper()
	tc := testutil.NewTestContext(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	resumes := storage.NewMemoryStore()
	return application.NewService(tc.DB, logger, resumes, nil), resumes, tc
}

func TestStatusEmailFailureNeverBlocksMove(t *testing.T) {
	tc := testutil.NewTestContext(t)
	defer tc.Cleanup()
	ctx := testutil.TestContext(t)

	// A queue client pointing at nothing: every enqueue fails, and the
	// failure must stay on the log, not on the transition.
	broken := asynq.NewClient(asynq.RedisClientOpt{Addr: "127.0.0.1:1"})
	defer broken.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := application.NewService(tc.DB, logger, storage.NewMemoryStore(), broken)

	job := testutil.CreateTestJob(t, tc.DB, tc.Company.ID, "Applied", "Screening")
	app := testutil.CreateTestApplication(t, tc.DB, job)

	moved, err := svc.MoveToStage(ctx, app.ID, job.Stages[1].ID, tc.Membership.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationScreening, moved.Status)

	rejected, err := svc.Reject(ctx, moved.ID, tc.Membership.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationRejected, rejected.Status)
}

func TestSubmit(t *testing.T) {
	svc, resumes, tc := newService(t)
	defer tc.Cleanup()
	ctx := testutil.TestContext(t)

	job := testutil.CreateTestJob(t, tc.DB, tc.Company.ID, "Applied", "Screening")

	app, err := svc.Submit(ctx, application.SubmitInput{
		JobID:             job.ID,
		CandidateName:     "Dana Brooks",
		CandidateEmail:    "dana@example.com",
		Resume:            []byte("resume bytes"),
		ResumeContentType: "application/pdf",
	})
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationApplied, app.Status)
	require.NotNil(t, app.PipelineStageID)
	assert.Equal(t, job.Stages[0].ID, *app.PipelineStageID)
	assert.NotEmpty(t, app.ResumeKey)
	assert.Equal(t, 1, resumes.Len())

	// Submission is recorded in the activity log with no actor.
	var activities []models.Activity
	require.NoError(t, tc.DB.Where("application_id = ?", app.ID).Find(&activities).Error)
	require.Len(t, activities, 1)
	assert.Equal(t, models.ActivitySubmitted, activities[0].Kind)
	assert.Nil(t, activities[0].ActorID)
}

func TestSubmitClosedJob(t *testing.T) {
	svc, _, tc := newService(t)
	defer tc.Cleanup()
	ctx := testutil.TestContext(t)

	job := testutil.CreateTestJob(t, tc.DB, tc.Company.ID)
	require.NoError(t, tc.DB.Model(job).Updates(map[string]interface{}{
		"status": models.JobClosed, "is_closed": true,
	}).Error)

	_, err := svc.Submit(ctx, application.SubmitInput{
		JobID:          job.ID,
		CandidateName:  "Late Candidate",
		CandidateEmail: "late@example.com",
	})
	require.Error(t, err)
	assert.Equal(t, apperr.CodeValidation, apperr.CodeOf(err))
}

func TestMoveToStage(t *testing.T) {
	svc, _, tc := newService(t)
	defer tc.Cleanup()
	ctx := testutil.TestContext(t)

	job := testutil.CreateTestJob(t, tc.DB, tc.Company.ID, "Applied", "Screening", "Offer")
	app := testutil.CreateTestApplication(t, tc.DB, job)

	moved, err := svc.MoveToStage(ctx, app.ID, job.Stages[1].ID, tc.Membership.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationScreening, moved.Status)
	assert.Equal(t, job.Stages[1].ID, *moved.PipelineStageID)

	// Backwards moves are legitimate recruiter actions.
	back, err := svc.MoveToStage(ctx, app.ID, job.Stages[0].ID, tc.Membership.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationApplied, back.Status)

	// Skipping ahead is fine too; adjacency is not a server rule.
	ahead, err := svc.MoveToStage(ctx, app.ID, job.Stages[2].ID, tc.Membership.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationShortlisted, ahead.Status)
}

func TestMoveToStageForeignStage(t *testing.T) {
	svc, _, tc := newService(t)
	defer tc.Cleanup()
	ctx := testutil.TestContext(t)

	job := testutil.CreateTestJob(t, tc.DB, tc.Company.ID)
	other := testutil.CreateTestJob(t, tc.DB, tc.Company.ID)
	app := testutil.CreateTestApplication(t, tc.DB, job)

	// A stage of another job is refused even within the same company.
	_, err := svc.MoveToStage(ctx, app.ID, other.Stages[0].ID, tc.Membership.ID)
	require.Error(t, err)
	assert.Equal(t, apperr.CodeValidation, apperr.CodeOf(err))

	_, err = svc.MoveToStage(ctx, app.ID, uuid.New(), tc.Membership.ID)
	require.Error(t, err)
	assert.Equal(t, apperr.CodeValidation, apperr.CodeOf(err))
}

func TestRejectIsTerminalAndIdempotent(t *testing.T) {
	svc, _, tc := newService(t)
	defer tc.Cleanup()
	ctx := testutil.TestContext(t)

	job := testutil.CreateTestJob(t, tc.DB, tc.Company.ID)
	app := testutil.CreateTestApplication(t, tc.DB, job)

	rejected, err := svc.Reject(ctx, app.ID, tc.Membership.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationRejected, rejected.Status)

	// Rejecting again is a no-op, not an error.
	again, err := svc.Reject(ctx, app.ID, tc.Membership.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationRejected, again.Status)

	// Exactly one rejection entry in the log.
	var count int64
	tc.DB.Model(&models.Activity{}).
		Where("application_id = ? AND kind = ?", app.ID, models.ActivityRejected).
		Count(&count)
	assert.EqualValues(t, 1, count)

	// No stage moves or reassignment out of the terminal state.
	_, err = svc.MoveToStage(ctx, app.ID, job.Stages[1].ID, tc.Membership.ID)
	require.Error(t, err)
	assert.Equal(t, apperr.CodeValidation, apperr.CodeOf(err))

	_, err = svc.Assign(ctx, app.ID, &tc.Membership.ID, tc.Membership.ID)
	require.Error(t, err)
	assert.Equal(t, apperr.CodeValidation, apperr.CodeOf(err))
}

func TestAssignmentGate(t *testing.T) {
	svc, _, tc := newService(t)
	defer tc.Cleanup()
	ctx := testutil.TestContext(t)

	job := testutil.CreateTestJob(t, tc.DB, tc.Company.ID, "Applied", "Screening")
	app := testutil.CreateTestApplication(t, tc.DB, job)

	reviewer := testutil.CreateTestUser(t, tc.DB, "")
	reviewerMember := testutil.CreateTestMembership(t, tc.DB, reviewer, tc.Company, models.RoleInterviewer)

	_, err := svc.Assign(ctx, app.ID, &reviewerMember.ID, tc.Membership.ID)
	require.NoError(t, err)

	// A different member can no longer move or reject it.
	_, err = svc.MoveToStage(ctx, app.ID, job.Stages[1].ID, tc.Membership.ID)
	require.Error(t, err)
	assert.Equal(t, apperr.CodeUnauthorized, apperr.CodeOf(err))

	_, err = svc.Reject(ctx, app.ID, tc.Membership.ID)
	require.Error(t, err)
	assert.Equal(t, apperr.CodeUnauthorized, apperr.CodeOf(err))

	// The assigned reviewer can.
	moved, err := svc.MoveToStage(ctx, app.ID, job.Stages[1].ID, reviewerMember.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationScreening, moved.Status)

	// Assignment itself stays open: anyone can hand the gate over.
	_, err = svc.Assign(ctx, app.ID, &tc.Membership.ID, tc.Membership.ID)
	require.NoError(t, err)

	_, err = svc.Reject(ctx, app.ID, tc.Membership.ID)
	require.NoError(t, err)
}

func TestAssignUnassign(t *testing.T) {
	svc, _, tc := newService(t)
	defer tc.Cleanup()
	ctx := testutil.TestContext(t)

	job := testutil.CreateTestJob(t, tc.DB, tc.Company.ID)
	app := testutil.CreateTestApplication(t, tc.DB, job)

	assigned, err := svc.Assign(ctx, app.ID, &tc.Membership.ID, tc.Membership.ID)
	require.NoError(t, err)
	require.NotNil(t, assigned.AssignedMembershipID)

	cleared, err := svc.Assign(ctx, app.ID, nil, tc.Membership.ID)
	require.NoError(t, err)
	assert.Nil(t, cleared.AssignedMembershipID)

	var kinds []models.ActivityKind
	require.NoError(t, tc.DB.Model(&models.Activity{}).
		Where("application_id = ?", app.ID).
		Order("created_at ASC").
		Pluck("kind", &kinds).Error)
	assert.Contains(t, kinds, models.ActivityAssigned)
	assert.Contains(t, kinds, models.ActivityUnassigned)
}

func TestAssignForeignMembership(t *testing.T) {
	svc, _, tc := newService(t)
	defer tc.Cleanup()
	ctx := testutil.TestContext(t)

	job := testutil.CreateTestJob(t, tc.DB, tc.Company.ID)
	app := testutil.CreateTestApplication(t, tc.DB, job)

	// A membership of another company cannot hold the gate.
	otherCompany := testutil.CreateTestCompany(t, tc.DB)
	outsider := testutil.CreateTestUser(t, tc.DB, "")
	outsiderMember := testutil.CreateTestMembership(t, tc.DB, outsider, otherCompany, models.RoleRecruiter)

	_, err := svc.Assign(ctx, app.ID, &outsiderMember.ID, tc.Membership.ID)
	require.Error(t, err)
	assert.Equal(t, apperr.CodeNotFound, apperr.CodeOf(err))
}

func TestNotesAndActivity(t *testing.T) {
	svc, _, tc := newService(t)
	defer tc.Cleanup()
	ctx := testutil.TestContext(t)

	job := testutil.CreateTestJob(t, tc.DB, tc.Company.ID)
	app := testutil.CreateTestApplication(t, tc.DB, job)

	_, err := svc.AddNote(ctx, app.ID, tc.Membership.ID, "")
	require.Error(t, err)

	note, err := svc.AddNote(ctx, app.ID, tc.Membership.ID, "strong phone screen")
	require.NoError(t, err)
	assert.Equal(t, models.ActivityNote, note.Kind)

	activities, err := svc.ListActivity(ctx, app.ID)
	require.NoError(t, err)
	require.Len(t, activities, 1)
	assert.Equal(t, "strong phone screen", activities[0].Message)
}

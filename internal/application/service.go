// Package application owns the state machine for candidate applications:
// pipeline position, terminal rejection, and reviewer assignment. Once an
// application has an assigned reviewer, only that reviewer may move or
// reject it; assignment itself stays open so the gate can change hands.
package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"gorm.io/gorm"

	"github.com/avery/hireflow/internal/apperr"
	"github.com/avery/hireflow/internal/database/models"
	"github.com/avery/hireflow/internal/storage"
	"github.com/avery/hireflow/internal/tasks"
)

type Service struct {
	db          *gorm.DB
	logger      *slog.Logger
	resumes     storage.ResumeStore
	asynqClient *asynq.Client
}

func NewService(db *gorm.DB, logger *slog.Logger, resumes storage.ResumeStore, asynqClient *asynq.Client) *Service {
	return &Service{db: db, logger: logger, resumes: resumes, asynqClient: asynqClient}
}

type SubmitInput struct {
	JobID             uuid.UUID
	CandidateName     string
	CandidateEmail    string
	Resume            []byte
	ResumeContentType string
}

// Submit records a candidate's application against an open job, placing it
// at the job's first pipeline stage.
func (s *Service) Submit(ctx context.Context, input SubmitInput) (*models.Application, error) {
	var job models.Job
	err := s.db.WithContext(ctx).Preload("Stages", func(db *gorm.DB) *gorm.DB {
		return db.Order("stage_order ASC")
	}).First(&job, input.JobID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("job not found")
	}
	if err != nil {
		return nil, apperr.Persistence(err)
	}
	if job.IsClosed || job.Status == models.JobClosed {
		return nil, apperr.Validation("this job is no longer accepting applications")
	}
	if len(job.Stages) == 0 {
		return nil, apperr.Validation("job has no pipeline stages")
	}

	app := models.Application{
		JobID:          job.ID,
		CandidateName:  input.CandidateName,
		CandidateEmail: input.CandidateEmail,
		Status:         models.ApplicationApplied,
	}
	firstStage := job.Stages[0]
	app.PipelineStageID = &firstStage.ID

	if len(input.Resume) > 0 && s.resumes != nil {
		obj, err := s.resumes.Store(ctx, input.Resume, input.ResumeContentType)
		if err != nil {
			return nil, apperr.Persistence(err)
		}
		app.ResumeKey = obj.Key
		app.ResumeURL = obj.URL
	}

	if err := s.db.WithContext(ctx).Create(&app).Error; err != nil {
		return nil, apperr.Persistence(err)
	}

	s.recordActivity(ctx, app.ID, nil, models.ActivitySubmitted,
		fmt.Sprintf("%s applied for %s", input.CandidateName, job.Title))

	s.logger.Info("application submitted",
		"application_id", app.ID, "job_id", job.ID, "candidate", input.CandidateEmail)
	return &app, nil
}

// MoveToStage moves an application to any stage of its own job. Adjacency
// is a client-side convenience, not a server rule: re-opening a candidate at
// an earlier or later stage is a legitimate recruiter action, so the engine
// only insists the stage belongs to the job.
func (s *Service) MoveToStage(ctx context.Context, applicationID, targetStageID, actorMembershipID uuid.UUID) (*models.Application, error) {
	app, err := s.load(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if app.Status.Terminal() {
		return nil, apperr.ValidationField("status",
			fmt.Sprintf("a %s application cannot be moved", app.Status))
	}
	if err := s.checkGate(app, actorMembershipID); err != nil {
		return nil, err
	}

	var stage models.PipelineStage
	err = s.db.WithContext(ctx).
		Where("id = ? AND job_id = ?", targetStageID, app.JobID).
		First(&stage).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.ValidationField("stage", "stage does not belong to this job")
	}
	if err != nil {
		return nil, apperr.Persistence(err)
	}

	newStatus := models.StatusForStageOrder(stage.Order)
	if !app.Status.CanTransitionTo(newStatus) {
		return nil, apperr.ValidationField("status",
			fmt.Sprintf("application cannot move from %s to %s", app.Status, newStatus))
	}

	updates := map[string]interface{}{
		"pipeline_stage_id": stage.ID,
		"status":            newStatus,
	}
	if err := s.db.WithContext(ctx).Model(app).Updates(updates).Error; err != nil {
		return nil, apperr.Persistence(err)
	}
	app.PipelineStageID = &stage.ID
	app.Status = newStatus

	s.recordActivity(ctx, app.ID, &actorMembershipID, models.ActivityStageMoved,
		fmt.Sprintf("moved to stage %s", stage.Name))
	s.enqueueStatusEmail(ctx, app, stage.Name)

	s.logger.Info("application moved",
		"application_id", app.ID, "stage", stage.Name, "status", newStatus)
	return app, nil
}

// Reject puts an application into its terminal state. Rejecting an already
// rejected application is a no-op returning the unchanged terminal state.
func (s *Service) Reject(ctx context.Context, applicationID, actorMembershipID uuid.UUID) (*models.Application, error) {
	app, err := s.load(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if app.Status == models.ApplicationRejected {
		return app, nil
	}
	if !app.Status.CanTransitionTo(models.ApplicationRejected) {
		return nil, apperr.ValidationField("status",
			fmt.Sprintf("a %s application cannot be rejected", app.Status))
	}
	if err := s.checkGate(app, actorMembershipID); err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Model(app).
		Update("status", models.ApplicationRejected).Error; err != nil {
		return nil, apperr.Persistence(err)
	}
	app.Status = models.ApplicationRejected

	s.recordActivity(ctx, app.ID, &actorMembershipID, models.ActivityRejected,
		"application rejected")
	s.enqueueStatusEmail(ctx, app, "")

	s.logger.Info("application rejected", "application_id", app.ID)
	return app, nil
}

// Assign sets or clears the reviewer gate. Assignment is never gated
// itself; reassigning is how the gate changes hands.
func (s *Service) Assign(ctx context.Context, applicationID uuid.UUID, membershipID *uuid.UUID, actorMembershipID uuid.UUID) (*models.Application, error) {
	app, err := s.load(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if app.Status.Terminal() {
		return nil, apperr.ValidationField("status",
			fmt.Sprintf("a %s application cannot be reassigned", app.Status))
	}

	var memberName string
	if membershipID != nil {
		var job models.Job
		if err := s.db.WithContext(ctx).First(&job, app.JobID).Error; err != nil {
			return nil, apperr.Persistence(err)
		}

		var member models.Membership
		err := s.db.WithContext(ctx).
			Preload("User").
			Where("id = ? AND company_id = ? AND status = ?",
				*membershipID, job.CompanyID, models.MembershipActive).
			First(&member).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("member not found in this company")
		}
		if err != nil {
			return nil, apperr.Persistence(err)
		}
		if member.User != nil {
			memberName = member.User.Name
		}
	}

	if err := s.db.WithContext(ctx).Model(app).
		Update("assigned_membership_id", membershipID).Error; err != nil {
		return nil, apperr.Persistence(err)
	}
	app.AssignedMembershipID = membershipID

	if membershipID != nil {
		if memberName == "" {
			memberName = membershipID.String()
		}
		s.recordActivity(ctx, app.ID, &actorMembershipID, models.ActivityAssigned,
			fmt.Sprintf("assigned to %s", memberName))
	} else {
		s.recordActivity(ctx, app.ID, &actorMembershipID, models.ActivityUnassigned,
			"unassigned")
	}

	s.logger.Info("application assignment changed",
		"application_id", app.ID, "assigned_to", membershipID)
	return app, nil
}

// AddNote appends a manual note to the application's activity log.
func (s *Service) AddNote(ctx context.Context, applicationID, actorMembershipID uuid.UUID, text string) (*models.Activity, error) {
	if text == "" {
		return nil, apperr.ValidationField("text", "note text is required")
	}
	if _, err := s.load(ctx, applicationID); err != nil {
		return nil, err
	}

	activity := models.Activity{
		ApplicationID: applicationID,
		ActorID:       &actorMembershipID,
		Kind:          models.ActivityNote,
		Message:       text,
	}
	if err := s.db.WithContext(ctx).Create(&activity).Error; err != nil {
		return nil, apperr.Persistence(err)
	}
	return &activity, nil
}

// ListActivity returns the application's audit log, newest first.
func (s *Service) ListActivity(ctx context.Context, applicationID uuid.UUID) ([]models.Activity, error) {
	if _, err := s.load(ctx, applicationID); err != nil {
		return nil, err
	}
	var activities []models.Activity
	err := s.db.WithContext(ctx).
		Where("application_id = ?", applicationID).
		Order("created_at DESC").
		Find(&activities).Error
	if err != nil {
		return nil, apperr.Persistence(err)
	}
	return activities, nil
}

// ListForJob returns a job's applications with their stages.
func (s *Service) ListForJob(ctx context.Context, jobID uuid.UUID) ([]models.Application, error) {
	var apps []models.Application
	err := s.db.WithContext(ctx).
		Preload("PipelineStage").
		Where("job_id = ?", jobID).
		Order("created_at DESC").
		Find(&apps).Error
	if err != nil {
		return nil, apperr.Persistence(err)
	}
	return apps, nil
}

// Get returns one application with its job and stage.
func (s *Service) Get(ctx context.Context, applicationID uuid.UUID) (*models.Application, error) {
	var app models.Application
	err := s.db.WithContext(ctx).
		Preload("Job").
		Preload("PipelineStage").
		First(&app, applicationID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("application not found")
	}
	if err != nil {
		return nil, apperr.Persistence(err)
	}
	return &app, nil
}

func (s *Service) load(ctx context.Context, applicationID uuid.UUID) (*models.Application, error) {
	var app models.Application
	err := s.db.WithContext(ctx).First(&app, applicationID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("application not found")
	}
	if err != nil {
		return nil, apperr.Persistence(err)
	}
	return &app, nil
}

// checkGate enforces the assignment gate: with a reviewer assigned, only
// that reviewer may mutate the application.
func (s *Service) checkGate(app *models.Application, actorMembershipID uuid.UUID) error {
	if app.AssignedMembershipID == nil {
		return nil
	}
	if *app.AssignedMembershipID != actorMembershipID {
		return apperr.Unauthorized("this application is assigned to another reviewer")
	}
	return nil
}

// recordActivity appends an audit entry outside the mutation's transaction.
// The audit trail is best effort: a failed write is logged, never rolled
// back into the state change that already committed.
func (s *Service) recordActivity(ctx context.Context, applicationID uuid.UUID, actorID *uuid.UUID, kind models.ActivityKind, message string) {
	activity := models.Activity{
		ApplicationID: applicationID,
		ActorID:       actorID,
		Kind:          kind,
		Message:       message,
	}
	if err := s.db.WithContext(ctx).Create(&activity).Error; err != nil {
		s.logger.Error("failed to record activity",
			"application_id", applicationID, "kind", kind, "error", err)
	}
}

func (s *Service) enqueueStatusEmail(ctx context.Context, app *models.Application, stageName string) {
	if s.asynqClient == nil {
		return
	}

	jobTitle := ""
	var job models.Job
	if err := s.db.WithContext(ctx).First(&job, app.JobID).Error; err == nil {
		jobTitle = job.Title
	}

	task, err := tasks.NewApplicationStatusEmailTask(tasks.ApplicationStatusEmailPayload{
		Email:         app.CandidateEmail,
		CandidateName: app.CandidateName,
		JobTitle:      jobTitle,
		StageName:     stageName,
		Status:        string(app.Status),
	})
	if err == nil {
		_, err = s.asynqClient.Enqueue(task)
	}
	if err != nil {
		s.logger.Warn("failed to enqueue status email",
			"application_id", app.ID, "error", err)
	}
}

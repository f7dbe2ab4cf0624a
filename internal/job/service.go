// Package job manages postings and ties them to the pipeline catalog: a job
// created against a pipeline name records its own copy of the resolved
// stages, so later template edits never rewrite a running pipeline.
package job

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/avery/hireflow/internal/apperr"
	"github.com/avery/hireflow/internal/database/models"
	"github.com/avery/hireflow/internal/pipeline"
	"github.com/avery/hireflow/pkg/util"
)

type Service struct {
	db       *gorm.DB
	logger   *slog.Logger
	pipeline *pipeline.Service
}

func NewService(db *gorm.DB, logger *slog.Logger, pipelineSvc *pipeline.Service) *Service {
	return &Service{db: db, logger: logger, pipeline: pipelineSvc}
}

type CreateInput struct {
	CompanyID       uuid.UUID
	Title           string
	Description     string
	Location        string
	ExperienceLevel models.ExperienceLevel
	PipelineName    string
	Stages          []pipeline.StageSpec
}

// Create resolves the pipeline topology and creates the job with its own
// stage copy in one transaction.
func (s *Service) Create(ctx context.Context, input CreateInput) (*models.Job, error) {
	if strings.TrimSpace(input.Title) == "" {
		return nil, apperr.ValidationField("title", "title is required")
	}

	stages, err := s.pipeline.ResolveStages(ctx, input.CompanyID, input.PipelineName, input.Stages)
	if err != nil {
		return nil, err
	}

	pipelineName := strings.TrimSpace(input.PipelineName)
	var templateID *uuid.UUID
	if pipelineName != "" {
		var tpl models.PipelineTemplate
		err := s.db.WithContext(ctx).
			Where("company_id = ? AND name = ?", input.CompanyID, pipelineName).
			First(&tpl).Error
		if err == nil {
			templateID = &tpl.ID
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.Persistence(err)
		}
	}

	job := models.Job{
		CompanyID:          input.CompanyID,
		Title:              input.Title,
		Slug:               s.uniqueSlug(ctx, input.Title, string(input.ExperienceLevel)),
		Description:        input.Description,
		Location:           input.Location,
		ExperienceLevel:    input.ExperienceLevel,
		PipelineName:       pipelineName,
		PipelineTemplateID: templateID,
		Status:             models.JobOpen,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&job).Error; err != nil {
			return apperr.Persistence(err)
		}
		rows, err := s.pipeline.WithTx(tx).CreateJobStages(ctx, job.ID, stages)
		if err != nil {
			return err
		}
		job.Stages = rows
		return nil
	})
	if err != nil {
		var e *apperr.Error
		if errors.As(err, &e) {
			return nil, e
		}
		return nil, apperr.Persistence(err)
	}

	s.logger.Info("job created",
		"job_id", job.ID, "company_id", job.CompanyID, "slug", job.Slug, "stages", len(job.Stages))
	return &job, nil
}

type UpdateInput struct {
	Title       *string
	Description *string
	Location    *string
}

// Update edits a job's descriptive fields. The slug is fixed at creation.
func (s *Service) Update(ctx context.Context, companyID, jobID uuid.UUID, input UpdateInput) (*models.Job, error) {
	job, err := s.byCompany(ctx, companyID, jobID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if input.Title != nil {
		if strings.TrimSpace(*input.Title) == "" {
			return nil, apperr.ValidationField("title", "title is required")
		}
		updates["title"] = *input.Title
	}
	if input.Description != nil {
		updates["description"] = *input.Description
	}
	if input.Location != nil {
		updates["location"] = *input.Location
	}
	if len(updates) == 0 {
		return job, nil
	}

	if err := s.db.WithContext(ctx).Model(job).Updates(updates).Error; err != nil {
		return nil, apperr.Persistence(err)
	}
	return s.byCompany(ctx, companyID, jobID)
}

// Close stops a job from accepting applications.
func (s *Service) Close(ctx context.Context, companyID, jobID uuid.UUID) (*models.Job, error) {
	job, err := s.byCompany(ctx, companyID, jobID)
	if err != nil {
		return nil, err
	}
	if job.IsClosed {
		return job, nil
	}

	updates := map[string]interface{}{
		"status":    models.JobClosed,
		"is_closed": true,
	}
	if err := s.db.WithContext(ctx).Model(job).Updates(updates).Error; err != nil {
		return nil, apperr.Persistence(err)
	}
	job.Status = models.JobClosed
	job.IsClosed = true

	s.logger.Info("job closed", "job_id", job.ID)
	return job, nil
}

// Get returns one of the company's jobs with its ordered stages.
func (s *Service) Get(ctx context.Context, companyID, jobID uuid.UUID) (*models.Job, error) {
	return s.byCompany(ctx, companyID, jobID)
}

// GetBySlug looks a job up by its public slug, for the candidate-facing
// application endpoint.
func (s *Service) GetBySlug(ctx context.Context, slug string) (*models.Job, error) {
	var job models.Job
	err := s.db.WithContext(ctx).
		Preload("Stages", func(db *gorm.DB) *gorm.DB {
			return db.Order("stage_order ASC")
		}).
		Where("slug = ?", slug).
		First(&job).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("job not found")
	}
	if err != nil {
		return nil, apperr.Persistence(err)
	}
	return &job, nil
}

// List returns the company's jobs, newest first.
func (s *Service) List(ctx context.Context, companyID uuid.UUID) ([]models.Job, error) {
	var jobs []models.Job
	err := s.db.WithContext(ctx).
		Preload("Stages", func(db *gorm.DB) *gorm.DB {
			return db.Order("stage_order ASC")
		}).
		Where("company_id = ?", companyID).
		Order("created_at DESC").
		Find(&jobs).Error
	if err != nil {
		return nil, apperr.Persistence(err)
	}
	return jobs, nil
}

func (s *Service) byCompany(ctx context.Context, companyID, jobID uuid.UUID) (*models.Job, error) {
	var job models.Job
	err := s.db.WithContext(ctx).
		Preload("Stages", func(db *gorm.DB) *gorm.DB {
			return db.Order("stage_order ASC")
		}).
		Where("id = ? AND company_id = ?", jobID, companyID).
		First(&job).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("job not found")
	}
	if err != nil {
		return nil, apperr.Persistence(err)
	}
	return &job, nil
}

// uniqueSlug derives the public slug from title and experience level,
// appending a timestamp only when the plain form is taken.
func (s *Service) uniqueSlug(ctx context.Context, parts ...string) string {
	slug := util.Slugify(parts...)
	var count int64
	s.db.WithContext(ctx).Model(&models.Job{}).Where("slug = ?", slug).Count(&count)
	if count > 0 {
		return util.UniqueSlug(parts...)
	}
	return slug
}

// Package pipeline owns stage topologies: the named templates a company
// reuses across jobs, and the per-job stage lists copied from them. Stage
// orders within a job are always exactly {0..n-1}.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/avery/hireflow/internal/apperr"
	"github.com/avery/hireflow/internal/database/models"
)

// StageSpec is a name+order pair, the unit pipelines are defined in.
type StageSpec struct {
	Name  string `json:"name"`
	Order int    `json:"order"`
}

// DefaultStages is the fallback topology for jobs created with neither a
// pipeline name nor explicit stages.
func DefaultStages() []StageSpec {
	return []StageSpec{
		{Name: "Applied", Order: 0},
		{Name: "Screening", Order: 1},
	}
}

type Service struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewService(db *gorm.DB, logger *slog.Logger) *Service {
	return &Service{db: db, logger: logger}
}

// WithTx returns a copy of the service bound to tx.
func (s *Service) WithTx(tx *gorm.DB) *Service {
	c := *s
	c.db = tx
	return &c
}

// ValidateStages checks that orders are exactly {0..n-1} with no duplicates
// and every stage is named.
func ValidateStages(stages []StageSpec) error {
	if len(stages) == 0 {
		return apperr.ValidationField("stages", "at least one stage is required")
	}
	seen := make(map[int]bool, len(stages))
	for _, st := range stages {
		if strings.TrimSpace(st.Name) == "" {
			return apperr.ValidationField("stages", "every stage needs a name")
		}
		if st.Order < 0 || st.Order >= len(stages) {
			return apperr.ValidationField("stages",
				fmt.Sprintf("stage order %d is outside 0..%d", st.Order, len(stages)-1))
		}
		if seen[st.Order] {
			return apperr.ValidationField("stages",
				fmt.Sprintf("duplicate stage order %d", st.Order))
		}
		seen[st.Order] = true
	}
	return nil
}

// ResolveStages determines the topology a job should be created with. A
// pipeline name resolves through the company's template of that name; when
// explicit stages are also given they overwrite the template, so the latest
// definition wins for future jobs. Without a name, the explicit stages are
// used as given, or the system default when none are supplied.
func (s *Service) ResolveStages(ctx context.Context, companyID uuid.UUID, pipelineName string, explicit []StageSpec) ([]StageSpec, error) {
	pipelineName = strings.TrimSpace(pipelineName)

	if pipelineName == "" {
		if len(explicit) == 0 {
			return DefaultStages(), nil
		}
		if err := ValidateStages(explicit); err != nil {
			return nil, err
		}
		return sorted(explicit), nil
	}

	if len(explicit) > 0 {
		if err := ValidateStages(explicit); err != nil {
			return nil, err
		}
		if err := s.upsertTemplate(ctx, companyID, pipelineName, explicit); err != nil {
			return nil, err
		}
		return sorted(explicit), nil
	}

	stages, err := s.StagesForPipelineName(ctx, companyID, pipelineName)
	if err != nil {
		return nil, err
	}
	if stages == nil {
		return DefaultStages(), nil
	}
	return stages, nil
}

// CreateJobStages copies the resolved topology onto a job.
func (s *Service) CreateJobStages(ctx context.Context, jobID uuid.UUID, stages []StageSpec) ([]models.PipelineStage, error) {
	rows := make([]models.PipelineStage, len(stages))
	for i, st := range sorted(stages) {
		rows[i] = models.PipelineStage{JobID: jobID, Name: st.Name, Order: st.Order}
	}
	if err := s.db.WithContext(ctx).Create(&rows).Error; err != nil {
		return nil, apperr.Persistence(err)
	}
	return rows, nil
}

// ReplaceStages swaps a job's stage list for a new one in a single
// transaction. Applications pointing at a deleted stage are re-pointed to
// the new first stage, with an activity entry recording the move, so no
// application is ever left referencing a stage its job no longer has.
func (s *Service) ReplaceStages(ctx context.Context, jobID uuid.UUID, stages []StageSpec) ([]models.PipelineStage, error) {
	if err := ValidateStages(stages); err != nil {
		return nil, err
	}

	var rows []models.PipelineStage
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var job models.Job
		err := tx.First(&job, jobID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("job not found")
		}
		if err != nil {
			return apperr.Persistence(err)
		}

		if err := tx.Unscoped().
			Where("job_id = ?", jobID).
			Delete(&models.PipelineStage{}).Error; err != nil {
			return apperr.Persistence(err)
		}

		rows = make([]models.PipelineStage, len(stages))
		for i, st := range sorted(stages) {
			rows[i] = models.PipelineStage{JobID: jobID, Name: st.Name, Order: st.Order}
		}
		if err := tx.Create(&rows).Error; err != nil {
			return apperr.Persistence(err)
		}

		return s.repointOrphanedApplications(tx, jobID, rows)
	})
	if err != nil {
		var e *apperr.Error
		if errors.As(err, &e) {
			return nil, e
		}
		return nil, apperr.Persistence(err)
	}

	s.logger.Info("job stages replaced", "job_id", jobID, "stages", len(rows))
	return rows, nil
}

// repointOrphanedApplications moves applications whose stage was deleted to
// the new order-0 stage.
func (s *Service) repointOrphanedApplications(tx *gorm.DB, jobID uuid.UUID, newStages []models.PipelineStage) error {
	first := newStages[0]
	validIDs := make([]uuid.UUID, len(newStages))
	for i, st := range newStages {
		validIDs[i] = st.ID
	}

	var orphaned []models.Application
	if err := tx.
		Where("job_id = ? AND pipeline_stage_id IS NOT NULL AND pipeline_stage_id NOT IN ?",
			jobID, validIDs).
		Find(&orphaned).Error; err != nil {
		return apperr.Persistence(err)
	}

	for i := range orphaned {
		app := &orphaned[i]
		if err := tx.Model(app).Update("pipeline_stage_id", first.ID).Error; err != nil {
			return apperr.Persistence(err)
		}
		activity := models.Activity{
			ApplicationID: app.ID,
			Kind:          models.ActivityStageMoved,
			Message:       fmt.Sprintf("moved to stage %s after pipeline edit", first.Name),
		}
		if err := tx.Create(&activity).Error; err != nil {
			return apperr.Persistence(err)
		}
	}
	return nil
}

// ListPipelineNames returns the company's distinct template names, ascending.
func (s *Service) ListPipelineNames(ctx context.Context, companyID uuid.UUID) ([]string, error) {
	var names []string
	err := s.db.WithContext(ctx).
		Model(&models.PipelineTemplate{}).
		Where("company_id = ?", companyID).
		Order("name ASC").
		Pluck("name", &names).Error
	if err != nil {
		return nil, apperr.Persistence(err)
	}
	return names, nil
}

// StagesForPipelineName returns the template's topology, or nil when the
// company has no template of that name. Nil means "no such pipeline", not
// "pipeline with zero stages".
func (s *Service) StagesForPipelineName(ctx context.Context, companyID uuid.UUID, name string) ([]StageSpec, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}

	var tpl models.PipelineTemplate
	err := s.db.WithContext(ctx).
		Preload("Stages", func(db *gorm.DB) *gorm.DB {
			return db.Order("stage_order ASC")
		}).
		Where("company_id = ? AND name = ?", companyID, name).
		First(&tpl).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Persistence(err)
	}
	if len(tpl.Stages) == 0 {
		return nil, nil
	}

	stages := make([]StageSpec, len(tpl.Stages))
	for i, st := range tpl.Stages {
		stages[i] = StageSpec{Name: st.Name, Order: st.Order}
	}
	return stages, nil
}

// upsertTemplate records the latest definition of a named pipeline.
func (s *Service) upsertTemplate(ctx context.Context, companyID uuid.UUID, name string, stages []StageSpec) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var tpl models.PipelineTemplate
		err := tx.Where("company_id = ? AND name = ?", companyID, name).First(&tpl).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			tpl = models.PipelineTemplate{CompanyID: companyID, Name: name}
			if err := tx.Create(&tpl).Error; err != nil {
				return apperr.Persistence(err)
			}
		} else if err != nil {
			return apperr.Persistence(err)
		} else {
			if err := tx.Unscoped().
				Where("template_id = ?", tpl.ID).
				Delete(&models.TemplateStage{}).Error; err != nil {
				return apperr.Persistence(err)
			}
		}

		rows := make([]models.TemplateStage, len(stages))
		for i, st := range sorted(stages) {
			rows[i] = models.TemplateStage{TemplateID: tpl.ID, Name: st.Name, Order: st.Order}
		}
		if err := tx.Create(&rows).Error; err != nil {
			return apperr.Persistence(err)
		}
		return nil
	})
}

func sorted(stages []StageSpec) []StageSpec {
	out := make([]StageSpec, len(stages))
	copy(out, stages)
	sort.Slice(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

package models

import "github.com/google/uuid"

type JobStatus string

const (
	JobOpen   JobStatus = "open"
	JobClosed JobStatus = "close"
)

type ExperienceLevel string

const (
	ExperienceIntern ExperienceLevel = "intern"
	ExperienceJunior ExperienceLevel = "junior"
	ExperienceMid    ExperienceLevel = "mid"
	ExperienceSenior ExperienceLevel = "senior"
	ExperienceLead   ExperienceLevel = "lead"
)

// Job is a posting owned by a company. Its hiring pipeline is a copy of the
// stages resolved at creation time; later template edits never alter it.
type Job struct {
	Base
	CompanyID          uuid.UUID       `gorm:"type:uuid;not null;index" json:"company_id"`
	Title              string          `gorm:"not null" json:"title"`
	Slug               string          `gorm:"uniqueIndex;not null" json:"slug"`
	Description        string          `json:"description"`
	Location           string          `json:"location"`
	ExperienceLevel    ExperienceLevel `json:"experience_level"`
	PipelineName       string          `gorm:"index" json:"pipeline_name,omitempty"`
	PipelineTemplateID *uuid.UUID      `gorm:"type:uuid;index" json:"pipeline_template_id,omitempty"`
	Status             JobStatus       `gorm:"not null;default:'open'" json:"status"`
	IsClosed           bool            `gorm:"default:false" json:"is_closed"`

	// Relationships
	Company      *Company        `gorm:"foreignKey:CompanyID" json:"company,omitempty"`
	Stages       []PipelineStage `gorm:"foreignKey:JobID" json:"stages,omitempty"`
	Applications []Application   `gorm:"foreignKey:JobID" json:"-"`
}

func (Job) TableName() string {
	return "jobs"
}

// PipelineStage is one named step in a job's hiring pipeline. Order is
// zero-based and contiguous within a job; ascending means later in the funnel.
type PipelineStage struct {
	Base
	JobID uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:idx_stages_job_order" json:"job_id"`
	Name  string    `gorm:"not null" json:"name"`
	Order int       `gorm:"column:stage_order;not null;uniqueIndex:idx_stages_job_order" json:"order"`
}

func (PipelineStage) TableName() string {
	return "pipeline_stages"
}

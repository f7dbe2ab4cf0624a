package models

import "github.com/google/uuid"

// PipelineTemplate is a company-owned, named stage topology. Jobs created
// against a template record their own copy of its stages, so editing a
// template only affects jobs created afterwards.
type PipelineTemplate struct {
	Base
	CompanyID uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:idx_templates_company_name" json:"company_id"`
	Name      string    `gorm:"not null;uniqueIndex:idx_templates_company_name" json:"name"`

	// Relationships
	Company *Company        `gorm:"foreignKey:CompanyID" json:"company,omitempty"`
	Stages  []TemplateStage `gorm:"foreignKey:TemplateID" json:"stages,omitempty"`
}

func (PipelineTemplate) TableName() string {
	return "pipeline_templates"
}

// TemplateStage is one step of a pipeline template, ordered like
// PipelineStage but not tied to any job.
type TemplateStage struct {
	Base
	TemplateID uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:idx_template_stages_order" json:"template_id"`
	Name       string    `gorm:"not null" json:"name"`
	Order      int       `gorm:"column:stage_order;not null;uniqueIndex:idx_template_stages_order" json:"order"`
}

func (TemplateStage) TableName() string {
	return "pipeline_template_stages"
}

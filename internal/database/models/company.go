package models

type Company struct {
	Base
	Name string `gorm:"not null" json:"name"`
	Slug string `gorm:"uniqueIndex;not null" json:"slug"`

	// Relationships
	Memberships       []Membership       `gorm:"foreignKey:CompanyID" json:"-"`
	Jobs              []Job              `gorm:"foreignKey:CompanyID" json:"-"`
	Invitations       []Invitation       `gorm:"foreignKey:CompanyID" json:"-"`
	PipelineTemplates []PipelineTemplate `gorm:"foreignKey:CompanyID" json:"-"`
}

func (Company) TableName() string {
	return "companies"
}

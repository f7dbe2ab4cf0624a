package models

import "github.com/google/uuid"

type ApplicationStatus string

const (
	ApplicationApplied     ApplicationStatus = "applied"
	ApplicationScreening   ApplicationStatus = "screening"
	ApplicationShortlisted ApplicationStatus = "shortlisted"
	ApplicationInterview   ApplicationStatus = "interview"
	ApplicationOffer       ApplicationStatus = "offer"
	ApplicationHired       ApplicationStatus = "hired"
	ApplicationRejected    ApplicationStatus = "rejected"
	ApplicationWithdrawn   ApplicationStatus = "withdrawn"
)

// funnelStatuses maps ascending pipeline stage order onto the status ladder.
// Stage names are company-defined strings; the engine only cares about the
// ordered index. Jobs with more stages than ladder entries clamp at hired.
var funnelStatuses = []ApplicationStatus{
	ApplicationApplied,
	ApplicationScreening,
	ApplicationShortlisted,
	ApplicationInterview,
	ApplicationOffer,
	ApplicationHired,
}

// StatusForStageOrder returns the funnel status for a zero-based stage order.
func StatusForStageOrder(order int) ApplicationStatus {
	if order < 0 {
		order = 0
	}
	if order >= len(funnelStatuses) {
		order = len(funnelStatuses) - 1
	}
	return funnelStatuses[order]
}

// applicationTransitions is the explicit transition table. Stage moves are
// transitions between funnel statuses in either direction; rejected and
// withdrawn are terminal exits reachable from any non-terminal status.
var applicationTransitions = map[ApplicationStatus]map[ApplicationStatus]bool{}

func init() {
	for _, from := range funnelStatuses {
		applicationTransitions[from] = map[ApplicationStatus]bool{
			ApplicationRejected:  true,
			ApplicationWithdrawn: true,
		}
		for _, to := range funnelStatuses {
			applicationTransitions[from][to] = true
		}
	}
	applicationTransitions[ApplicationRejected] = map[ApplicationStatus]bool{}
	applicationTransitions[ApplicationWithdrawn] = map[ApplicationStatus]bool{}
}

// CanTransitionTo reports whether the transition table permits moving from s
// to target.
func (s ApplicationStatus) CanTransitionTo(target ApplicationStatus) bool {
	return applicationTransitions[s][target]
}

// Terminal reports whether no further stage or assignment mutation is
// permitted.
func (s ApplicationStatus) Terminal() bool {
	return len(applicationTransitions[s]) == 0
}

// Application tracks a candidate's position in a job's hiring pipeline.
type Application struct {
	Base
	JobID                uuid.UUID         `gorm:"type:uuid;not null;index" json:"job_id"`
	CandidateName        string            `gorm:"not null" json:"candidate_name"`
	CandidateEmail       string            `gorm:"not null;index" json:"candidate_email"`
	Status               ApplicationStatus `gorm:"not null;default:'applied';index" json:"status"`
	PipelineStageID      *uuid.UUID        `gorm:"type:uuid;index" json:"pipeline_stage_id,omitempty"`
	AssignedMembershipID *uuid.UUID        `gorm:"type:uuid;index" json:"assigned_membership_id,omitempty"`
	ResumeKey            string            `json:"-"`
	ResumeURL            string            `json:"resume_url,omitempty"`

	// Relationships
	Job                *Job           `gorm:"foreignKey:JobID" json:"job,omitempty"`
	PipelineStage      *PipelineStage `gorm:"foreignKey:PipelineStageID" json:"pipeline_stage,omitempty"`
	AssignedMembership *Membership    `gorm:"foreignKey:AssignedMembershipID" json:"assigned_membership,omitempty"`
	Activities         []Activity     `gorm:"foreignKey:ApplicationID" json:"-"`
}

func (Application) TableName() string {
	return "applications"
}

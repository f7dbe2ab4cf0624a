package tasks

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

// Task type names
const (
	TypeInvitationEmail        = "email:invitation"
	TypeWelcomeEmail           = "email:welcome"
	TypeApplicationStatusEmail = "email:application_status"
)

// InvitationEmailPayload carries everything needed to render the invite mail.
type InvitationEmailPayload struct {
	Email       string `json:"email"`
	CompanyName string `json:"company_name"`
	Role        string `json:"role"`
	AcceptURL   string `json:"accept_url"`
	ExpiresDays int    `json:"expires_days"`
}

func NewInvitationEmailTask(payload InvitationEmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeInvitationEmail, data), nil
}

// WelcomeEmailPayload is sent after registration or invitation acceptance.
type WelcomeEmailPayload struct {
	Email       string `json:"email"`
	Name        string `json:"name"`
	CompanyName string `json:"company_name"`
}

func NewWelcomeEmailTask(payload WelcomeEmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeWelcomeEmail, data), nil
}

// ApplicationStatusEmailPayload notifies a candidate of a pipeline move.
type ApplicationStatusEmailPayload struct {
	Email         string `json:"email"`
	CandidateName string `json:"candidate_name"`
	JobTitle      string `json:"job_title"`
	StageName     string `json:"stage_name,omitempty"`
	Status        string `json:"status"`
}

func NewApplicationStatusEmailTask(payload ApplicationStatusEmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeApplicationStatusEmail, data), nil
}

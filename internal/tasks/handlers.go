package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/avery/hireflow/internal/mailer"
)

type Handler struct {
	logger *slog.Logger
	mail   mailer.Mailer
}

func NewHandler(logger *slog.Logger, mail mailer.Mailer) *Handler {
	return &Handler{logger: logger, mail: mail}
}

func (h *Handler) RegisterHandlers(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeInvitationEmail, h.HandleInvitationEmail)
	mux.HandleFunc(TypeWelcomeEmail, h.HandleWelcomeEmail)
	mux.HandleFunc(TypeApplicationStatusEmail, h.HandleApplicationStatusEmail)
}

func (h *Handler) HandleInvitationEmail(ctx context.Context, t *asynq.Task) error {
	var payload InvitationEmailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	body := fmt.Sprintf(
		"You have been invited to join %s as %s.\n\n"+
			"Accept the invitation here:\n%s\n\n"+
			"The link expires in %d days and can be used once.\n",
		payload.CompanyName, payload.Role, payload.AcceptURL, payload.ExpiresDays,
	)

	err := h.mail.Send(ctx, mailer.Message{
		To:      payload.Email,
		Subject: fmt.Sprintf("Invitation to join %s", payload.CompanyName),
		Body:    body,
	})
	if err != nil {
		h.logger.Error("invitation email failed", "to", payload.Email, "error", err)
		return err
	}

	h.logger.Info("invitation email sent", "to", payload.Email, "company", payload.CompanyName)
	return nil
}

func (h *Handler) HandleWelcomeEmail(ctx context.Context, t *asynq.Task) error {
	var payload WelcomeEmailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	body := fmt.Sprintf(
		"Hi %s,\n\nYour account is ready and you are now part of %s on Hireflow.\n",
		payload.Name, payload.CompanyName,
	)

	err := h.mail.Send(ctx, mailer.Message{
		To:      payload.Email,
		Subject: fmt.Sprintf("Welcome to %s", payload.CompanyName),
		Body:    body,
	})
	if err != nil {
		h.logger.Error("welcome email failed", "to", payload.Email, "error", err)
		return err
	}

	h.logger.Info("welcome email sent", "to", payload.Email)
	return nil
}

func (h *Handler) HandleApplicationStatusEmail(ctx context.Context, t *asynq.Task) error {
	var payload ApplicationStatusEmailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	var body string
	if payload.StageName != "" {
		body = fmt.Sprintf(
			"Hi %s,\n\nYour application for %s has moved to the %s stage.\n",
			payload.CandidateName, payload.JobTitle, payload.StageName,
		)
	} else {
		body = fmt.Sprintf(
			"Hi %s,\n\nThere is an update on your application for %s: %s.\n",
			payload.CandidateName, payload.JobTitle, payload.Status,
		)
	}

	err := h.mail.Send(ctx, mailer.Message{
		To:      payload.Email,
		Subject: fmt.Sprintf("Update on your application for %s", payload.JobTitle),
		Body:    body,
	})
	if err != nil {
		h.logger.Error("application status email failed", "to", payload.Email, "error", err)
		return err
	}

	h.logger.Info("application status email sent",
		"to", payload.Email, "job", payload.JobTitle, "status", payload.Status)
	return nil
}

// Package invitation issues, validates, and consumes single-use, time-boxed
// invitation tokens. Together with the membership ledger it guarantees that
// a user never ends up active in two companies, no matter how invitations
// and acceptances interleave.
package invitation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"gorm.io/gorm"

	"github.com/avery/hireflow/internal/apperr"
	"github.com/avery/hireflow/internal/auth"
	"github.com/avery/hireflow/internal/database/models"
	"github.com/avery/hireflow/internal/membership"
	"github.com/avery/hireflow/internal/tasks"
	"github.com/avery/hireflow/pkg/crypto"
)

type Service struct {
	db          *gorm.DB
	logger      *slog.Logger
	ledger      *membership.Service
	asynqClient *asynq.Client
	ttl         time.Duration
	baseURL     string
}

func NewService(db *gorm.DB, logger *slog.Logger, ledger *membership.Service, asynqClient *asynq.Client, ttl time.Duration, baseURL string) *Service {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &Service{
		db:          db,
		logger:      logger,
		ledger:      ledger,
		asynqClient: asynqClient,
		ttl:         ttl,
		baseURL:     baseURL,
	}
}

type InviteInput struct {
	Email     string
	Role      models.Role
	CompanyID uuid.UUID
	InvitedBy uuid.UUID
}

// InviteResult carries the plaintext token. It is returned exactly once;
// only the hash is stored.
type InviteResult struct {
	Token       string      `json:"token"`
	Email       string      `json:"email"`
	CompanyName string      `json:"company_name"`
	Role        models.Role `json:"role"`
	ExpiresAt   time.Time   `json:"expires_at"`
}

// Invite creates a pending invitation for an email address. At most one
// unexpired pending invitation may exist per (email, company), and the
// target must not already hold an active membership anywhere.
func (s *Service) Invite(ctx context.Context, input InviteInput) (*InviteResult, error) {
	if !validEmail(input.Email) {
		return nil, apperr.ValidationField("email", "a valid email address is required")
	}
	if !models.AssignableRoles[input.Role] {
		return nil, apperr.ValidationField("role", "role must be one of hr, recruiter, interviewer")
	}

	var company models.Company
	err := s.db.WithContext(ctx).First(&company, input.CompanyID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("company not found")
	}
	if err != nil {
		return nil, apperr.Persistence(err)
	}

	// Refuse when the email already resolves to a user active somewhere.
	var user models.User
	err = s.db.WithContext(ctx).Where("email = ?", input.Email).First(&user).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.Persistence(err)
	}
	if err == nil {
		active, lerr := s.ledger.ActiveForUser(ctx, user.ID)
		if lerr != nil {
			return nil, lerr
		}
		if active != nil {
			if active.CompanyID == input.CompanyID {
				return nil, apperr.Conflict(fmt.Sprintf("%s is already a member of %s", input.Email, company.Name))
			}
			return nil, apperr.Conflict(fmt.Sprintf("%s already belongs to %s", input.Email, activeCompanyName(active)))
		}
	}

	token, err := crypto.GenerateToken()
	if err != nil {
		return nil, apperr.Persistence(err)
	}

	now := time.Now()
	expiresAt := now.Add(s.ttl)
	inv := models.Invitation{
		Email:       input.Email,
		CompanyID:   input.CompanyID,
		Role:        input.Role,
		Token:       token,
		HashedToken: crypto.HashToken(token),
		Status:      models.InvitationPending,
		ExpiresAt:   &expiresAt,
		InvitedBy:   input.InvitedBy,
	}

	// The duplicate-pending check runs inside the insert transaction; the
	// partial unique index on pending (email, company_id) rows backstops it
	// when two concurrent invites both pass the read.
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var pending []models.Invitation
		if err := tx.
			Where("email = ? AND company_id = ? AND status = ?",
				input.Email, input.CompanyID, models.InvitationPending).
			Find(&pending).Error; err != nil {
			return apperr.Persistence(err)
		}
		for i := range pending {
			if !pending[i].Expired(now) {
				return apperr.Conflict(fmt.Sprintf(
					"A pending invitation already exists for %s at %s", input.Email, company.Name))
			}
			// Lapsed rows are marked here; expiry has no background sweeper.
			if err := tx.Model(&pending[i]).Update("status", models.InvitationExpired).Error; err != nil {
				return apperr.Persistence(err)
			}
		}
		if err := tx.Create(&inv).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperr.Conflict(fmt.Sprintf(
					"A pending invitation already exists for %s at %s", input.Email, company.Name))
			}
			return apperr.Persistence(err)
		}
		return nil
	})
	if err != nil {
		var e *apperr.Error
		if errors.As(err, &e) {
			return nil, e
		}
		return nil, apperr.Persistence(err)
	}

	s.logger.Info("invitation created",
		"email", input.Email, "company_id", input.CompanyID, "role", input.Role)

	s.enqueueInvitationEmail(&inv, company.Name)

	return &InviteResult{
		Token:       token,
		Email:       input.Email,
		CompanyName: company.Name,
		Role:        input.Role,
		ExpiresAt:   expiresAt,
	}, nil
}

// TokenInfo is what a candidate sees before accepting.
type TokenInfo struct {
	ID          uuid.UUID   `json:"id"`
	Email       string      `json:"email"`
	Role        models.Role `json:"role"`
	CompanyID   uuid.UUID   `json:"company_id"`
	CompanyName string      `json:"company_name"`
}

// CheckToken validates a plaintext token against the stored hash. Unknown
// and expired tokens produce the same error so the endpoint cannot be used
// as a token-guessing oracle.
func (s *Service) CheckToken(ctx context.Context, token string) (*TokenInfo, error) {
	var inv models.Invitation
	err := s.db.WithContext(ctx).
		Preload("Company").
		Where("hashed_token = ? AND status = ? AND expires_at >= ?",
			crypto.HashToken(token), models.InvitationPending, time.Now()).
		First(&inv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.Validation("This invitation link is invalid or has expired")
	}
	if err != nil {
		return nil, apperr.Persistence(err)
	}

	info := &TokenInfo{
		ID:        inv.ID,
		Email:     inv.Email,
		Role:      inv.Role,
		CompanyID: inv.CompanyID,
	}
	if inv.Company != nil {
		info.CompanyName = inv.Company.Name
	}
	return info, nil
}

type AcceptInput struct {
	Name     string
	Password string
}

// Accept redeems a token: it resolves or creates the user, re-checks the
// single-active-membership rule, grants the membership, and consumes the
// invitation — all in one transaction. A second accept with the same token
// fails because the token fields are nulled on the first.
func (s *Service) Accept(ctx context.Context, input AcceptInput, token string) (*models.User, error) {
	var user models.User
	var companyName string

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var inv models.Invitation
		err := tx.Preload("Company").
			Where("token = ? AND status = ?", token, models.InvitationPending).
			First(&inv).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("invitation not found")
		}
		if err != nil {
			return apperr.Persistence(err)
		}
		if inv.Expired(time.Now()) {
			return apperr.Validation("This invitation link is invalid or has expired")
		}
		if inv.Company != nil {
			companyName = inv.Company.Name
		}

		// Resolve the user: an existing account is reused, otherwise a
		// password is required to create one.
		err = tx.Where("email = ?", inv.Email).First(&user).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			if input.Password == "" {
				return apperr.NotFound("password required to create an account")
			}
			hash, herr := auth.HashPassword(input.Password)
			if herr != nil {
				return apperr.Persistence(herr)
			}
			user = models.User{
				Email:         inv.Email,
				PasswordHash:  hash,
				Name:          input.Name,
				EmailVerified: true,
			}
			if err := tx.Create(&user).Error; err != nil {
				return apperr.Persistence(err)
			}
		case err != nil:
			return apperr.Persistence(err)
		}

		// Re-check membership uniqueness with the invitation's company.
		active, lerr := s.ledger.WithTx(tx).ActiveForUser(ctx, user.ID)
		if lerr != nil {
			return lerr
		}
		if active != nil && active.CompanyID != inv.CompanyID {
			return apperr.Conflict(fmt.Sprintf(
				"%s already belongs to %s", user.Email, activeCompanyName(active)))
		}

		if _, err := s.ledger.WithTx(tx).Grant(ctx, user.ID, inv.CompanyID, inv.Role); err != nil {
			return err
		}

		// Consume the token. The status guard makes this a compare-and-swap:
		// of two concurrent accepts, exactly one flips the row.
		now := time.Now()
		res := tx.Model(&models.Invitation{}).
			Where("id = ? AND status = ?", inv.ID, models.InvitationPending).
			Updates(map[string]interface{}{
				"status":       models.InvitationAccepted,
				"token":        "",
				"hashed_token": "",
				"expires_at":   nil,
				"accepted_at":  now,
			})
		if res.Error != nil {
			return apperr.Persistence(res.Error)
		}
		if res.RowsAffected == 0 {
			return apperr.Conflict("invitation was already accepted")
		}
		return nil
	})
	if err != nil {
		var e *apperr.Error
		if errors.As(err, &e) {
			return nil, e
		}
		return nil, apperr.Persistence(err)
	}

	s.logger.Info("invitation accepted", "email", user.Email, "company", companyName)

	s.enqueueWelcomeEmail(&user, companyName)

	return &user, nil
}

func (s *Service) enqueueInvitationEmail(inv *models.Invitation, companyName string) {
	if s.asynqClient == nil {
		return
	}
	task, err := tasks.NewInvitationEmailTask(tasks.InvitationEmailPayload{
		Email:       inv.Email,
		CompanyName: companyName,
		Role:        string(inv.Role),
		AcceptURL:   fmt.Sprintf("%s/invitations/accept?token=%s", s.baseURL, inv.Token),
		ExpiresDays: int(s.ttl.Hours() / 24),
	})
	if err == nil {
		_, err = s.asynqClient.Enqueue(task)
	}
	if err != nil {
		s.logger.Warn("failed to enqueue invitation email", "email", inv.Email, "error", err)
	}
}

func (s *Service) enqueueWelcomeEmail(user *models.User, companyName string) {
	if s.asynqClient == nil {
		return
	}
	task, err := tasks.NewWelcomeEmailTask(tasks.WelcomeEmailPayload{
		Email:       user.Email,
		Name:        user.Name,
		CompanyName: companyName,
	})
	if err == nil {
		_, err = s.asynqClient.Enqueue(task)
	}
	if err != nil {
		s.logger.Warn("failed to enqueue welcome email", "email", user.Email, "error", err)
	}
}

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

func validEmail(email string) bool {
	return len(email) <= 254 && emailRegex.MatchString(email)
}

func activeCompanyName(m *models.Membership) string {
	if m.Company != nil {
		return m.Company.Name
	}
	return "another company"
}

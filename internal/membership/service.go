// Package membership is the ledger of company memberships. It owns the
// single-active-membership rule: a user belongs to at most one company at a
// time, whatever mixture of registrations and invitations got them there.
package membership

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/avery/hireflow/internal/apperr"
	"github.com/avery/hireflow/internal/database/models"
)

type Service struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewService(db *gorm.DB, logger *slog.Logger) *Service {
	return &Service{db: db, logger: logger}
}

// WithTx returns a copy of the service bound to tx, so ledger operations can
// join a caller's transaction.
func (s *Service) WithTx(tx *gorm.DB) *Service {
	c := *s
	c.db = tx
	return &c
}

// ActiveForUser returns the user's active membership with its company, or
// nil when the user belongs to no company.
func (s *Service) ActiveForUser(ctx context.Context, userID uuid.UUID) (*models.Membership, error) {
	var m models.Membership
	err := s.db.WithContext(ctx).
		Preload("Company").
		Where("user_id = ? AND status = ?", userID, models.MembershipActive).
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Persistence(err)
	}
	return &m, nil
}

// CreateOwnerMembership records the admin membership created at company
// registration. It is called exactly once per company.
func (s *Service) CreateOwnerMembership(ctx context.Context, userID, companyID uuid.UUID) (*models.Membership, error) {
	existing, err := s.ActiveForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperr.Conflict(fmt.Sprintf("user already belongs to %s", companyName(existing)))
	}

	m := models.Membership{
		UserID:    userID,
		CompanyID: companyID,
		Role:      models.RoleAdmin,
		Status:    models.MembershipActive,
	}
	if err := s.db.WithContext(ctx).Create(&m).Error; err != nil {
		return nil, apperr.Persistence(err)
	}

	s.logger.Info("membership created",
		"user_id", userID, "company_id", companyID, "role", m.Role, "status", m.Status)
	return &m, nil
}

// ChangeRole updates a member's role to one of the assignable roles. The
// admin membership is immutable through this path.
func (s *Service) ChangeRole(ctx context.Context, companyID, membershipID uuid.UUID, newRole models.Role) (*models.Membership, error) {
	if !models.AssignableRoles[newRole] {
		return nil, apperr.ValidationField("role", "role must be one of hr, recruiter, interviewer")
	}

	var m models.Membership
	err := s.db.WithContext(ctx).
		Where("id = ? AND company_id = ?", membershipID, companyID).
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("member not found")
	}
	if err != nil {
		return nil, apperr.Persistence(err)
	}

	if m.Role == models.RoleAdmin {
		return nil, apperr.Unauthorized("the admin membership cannot be modified")
	}

	if err := s.db.WithContext(ctx).Model(&m).Update("role", newRole).Error; err != nil {
		return nil, apperr.Persistence(err)
	}
	m.Role = newRole

	s.logger.Info("membership role changed",
		"membership_id", m.ID, "company_id", companyID, "role", newRole)
	return &m, nil
}

// Suspend moves a member's membership to suspended. Admins cannot be
// suspended.
func (s *Service) Suspend(ctx context.Context, companyID, userID uuid.UUID) error {
	m, err := s.byUserAndCompany(ctx, userID, companyID)
	if err != nil {
		return err
	}
	if m.Role == models.RoleAdmin {
		return apperr.ValidationField("role", "admins cannot be suspended")
	}
	return s.transition(ctx, m, models.MembershipSuspended)
}

// Unsuspend restores a suspended membership to active.
func (s *Service) Unsuspend(ctx context.Context, companyID, userID uuid.UUID) error {
	m, err := s.byUserAndCompany(ctx, userID, companyID)
	if err != nil {
		return err
	}
	return s.transition(ctx, m, models.MembershipActive)
}

// Remove ends a membership. The row stays for auditability and can be
// reactivated by a later invitation.
func (s *Service) Remove(ctx context.Context, companyID, membershipID uuid.UUID) error {
	var m models.Membership
	err := s.db.WithContext(ctx).
		Where("id = ? AND company_id = ?", membershipID, companyID).
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound("member not found")
	}
	if err != nil {
		return apperr.Persistence(err)
	}
	if m.Role == models.RoleAdmin {
		return apperr.ValidationField("role", "the admin membership cannot be removed")
	}
	return s.transition(ctx, &m, models.MembershipRemoved)
}

// Grant upserts the membership for (userID, companyID) with the given role:
// a removed membership is reactivated, an absent one is created. Used by
// invitation acceptance inside its transaction.
func (s *Service) Grant(ctx context.Context, userID, companyID uuid.UUID, role models.Role) (*models.Membership, error) {
	var m models.Membership
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND company_id = ?", userID, companyID).
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		m = models.Membership{
			UserID:    userID,
			CompanyID: companyID,
			Role:      role,
			Status:    models.MembershipActive,
		}
		if err := s.db.WithContext(ctx).Create(&m).Error; err != nil {
			return nil, apperr.Persistence(err)
		}
		s.logger.Info("membership created",
			"user_id", userID, "company_id", companyID, "role", role, "status", m.Status)
		return &m, nil
	}
	if err != nil {
		return nil, apperr.Persistence(err)
	}

	if m.Status == models.MembershipActive {
		return &m, nil
	}
	if !m.Status.CanTransitionTo(models.MembershipActive) {
		return nil, apperr.Conflict("membership cannot be reactivated")
	}

	updates := map[string]interface{}{"status": models.MembershipActive, "role": role}
	if err := s.db.WithContext(ctx).Model(&m).Updates(updates).Error; err != nil {
		return nil, apperr.Persistence(err)
	}
	s.logger.Info("membership reactivated",
		"membership_id", m.ID, "company_id", companyID, "role", role)
	m.Status = models.MembershipActive
	m.Role = role
	return &m, nil
}

// ListMembers returns the company's non-removed memberships with their users.
func (s *Service) ListMembers(ctx context.Context, companyID uuid.UUID) ([]models.Membership, error) {
	var members []models.Membership
	err := s.db.WithContext(ctx).
		Preload("User").
		Where("company_id = ? AND status IN ?", companyID,
			[]models.MembershipStatus{models.MembershipActive, models.MembershipSuspended}).
		Order("created_at ASC").
		Find(&members).Error
	if err != nil {
		return nil, apperr.Persistence(err)
	}
	return members, nil
}

// MemberRow is one line of the team view: either a member or an outstanding
// invitation, deduplicated by email.
type MemberRow struct {
	Email          string                  `json:"email"`
	Name           string                  `json:"name,omitempty"`
	Role           models.Role             `json:"role"`
	Status         string                  `json:"status"`
	MembershipID   *uuid.UUID              `json:"membership_id,omitempty"`
	InvitationID   *uuid.UUID              `json:"invitation_id,omitempty"`
	LastActivityAt *time.Time              `json:"last_activity_at,omitempty"`
	MemberStatus   models.MembershipStatus `json:"-"`
}

// ListMembersWithPendingInvites merges the company's non-admin members with
// its outstanding invitations. A member row wins over an invite row for the
// same email; rows sort by most recent activity, timestamp-less rows last.
func (s *Service) ListMembersWithPendingInvites(ctx context.Context, companyID uuid.UUID) ([]MemberRow, error) {
	members, err := s.ListMembers(ctx, companyID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	var invites []models.Invitation
	err = s.db.WithContext(ctx).
		Where("company_id = ? AND status = ? AND expires_at >= ?",
			companyID, models.InvitationPending, now).
		Find(&invites).Error
	if err != nil {
		return nil, apperr.Persistence(err)
	}

	seen := make(map[string]bool)
	rows := make([]MemberRow, 0, len(members)+len(invites))
	for i := range members {
		m := &members[i]
		if m.Role == models.RoleAdmin {
			continue
		}
		row := MemberRow{
			Role:         m.Role,
			Status:       string(m.Status),
			MembershipID: &m.ID,
			MemberStatus: m.Status,
		}
		if m.User != nil {
			row.Email = m.User.Email
			row.Name = m.User.Name
		}
		updated := m.UpdatedAt
		if !updated.IsZero() {
			row.LastActivityAt = &updated
		}
		seen[row.Email] = true
		rows = append(rows, row)
	}
	for i := range invites {
		inv := &invites[i]
		if seen[inv.Email] {
			continue
		}
		created := inv.CreatedAt
		row := MemberRow{
			Email:        inv.Email,
			Role:         inv.Role,
			Status:       "invited",
			InvitationID: &inv.ID,
		}
		if !created.IsZero() {
			row.LastActivityAt = &created
		}
		rows = append(rows, row)
	}

	sortMemberRows(rows)
	return rows, nil
}

func sortMemberRows(rows []MemberRow) {
	// Most recent activity first; rows without a timestamp sink to the end.
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		switch {
		case a.LastActivityAt == nil:
			return false
		case b.LastActivityAt == nil:
			return true
		default:
			return a.LastActivityAt.After(*b.LastActivityAt)
		}
	})
}

func (s *Service) byUserAndCompany(ctx context.Context, userID, companyID uuid.UUID) (*models.Membership, error) {
	var m models.Membership
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND company_id = ?", userID, companyID).
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("member not found")
	}
	if err != nil {
		return nil, apperr.Persistence(err)
	}
	return &m, nil
}

// transition applies a lifecycle edge, rejecting anything outside the table.
func (s *Service) transition(ctx context.Context, m *models.Membership, to models.MembershipStatus) error {
	if m.Status == to {
		return nil
	}
	if !m.Status.CanTransitionTo(to) {
		return apperr.ValidationField("status",
			fmt.Sprintf("membership cannot move from %s to %s", m.Status, to))
	}
	if err := s.db.WithContext(ctx).Model(m).Update("status", to).Error; err != nil {
		return apperr.Persistence(err)
	}
	s.logger.Info("membership status changed",
		"membership_id", m.ID, "company_id", m.CompanyID, "from", m.Status, "to", to)
	m.Status = to
	return nil
}

func companyName(m *models.Membership) string {
	if m.Company != nil {
		return m.Company.Name
	}
	return "another company"
}

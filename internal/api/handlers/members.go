package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/avery/hireflow/internal/api/dto"
	"github.com/avery/hireflow/internal/api/middleware"
	"github.com/avery/hireflow/internal/api/validation"
	"github.com/avery/hireflow/internal/database/models"
	"github.com/avery/hireflow/internal/membership"
)

type MemberHandler struct {
	db     *gorm.DB
	ledger *membership.Service
}

func NewMemberHandler(db *gorm.DB, ledger *membership.Service) *MemberHandler {
	return &MemberHandler{db: db, ledger: ledger}
}

// List handles GET /api/v1/members. It returns the team view: members and
// outstanding invitations merged, most recent activity first.
func (h *MemberHandler) List(w http.ResponseWriter, r *http.Request) {
	companyID := middleware.GetCompanyID(r.Context())

	rows, err := h.ledger.ListMembersWithPendingInvites(r.Context(), companyID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, rows)
}

type ChangeRoleRequest struct {
	Role string `json:"role"`
}

func (r ChangeRoleRequest) Validate() map[string]string {
	errors := make(map[string]string)
	if !validation.IsValidRole(r.Role) {
		errors["role"] = "Role must be one of hr, recruiter, interviewer"
	}
	return errors
}

// ChangeRole handles PUT /api/v1/members/{id}/role.
func (h *MemberHandler) ChangeRole(w http.ResponseWriter, r *http.Request) {
	companyID := middleware.GetCompanyID(r.Context())

	membershipID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid member ID"})
		return
	}

	var req ChangeRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}
	if errors := req.Validate(); len(errors) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: errors})
		return
	}

	m, err := h.ledger.ChangeRole(r.Context(), companyID, membershipID, models.Role(req.Role))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, m)
}

// Suspend handles POST /api/v1/members/{id}/suspend.
func (h *MemberHandler) Suspend(w http.ResponseWriter, r *http.Request) {
	h.changeStatus(w, r, h.ledger.Suspend)
}

// Unsuspend handles POST /api/v1/members/{id}/unsuspend.
func (h *MemberHandler) Unsuspend(w http.ResponseWriter, r *http.Request) {
	h.changeStatus(w, r, h.ledger.Unsuspend)
}

// Remove handles DELETE /api/v1/members/{id}. The membership row is kept in
// the removed state, not deleted.
func (h *MemberHandler) Remove(w http.ResponseWriter, r *http.Request) {
	companyID := middleware.GetCompanyID(r.Context())

	membershipID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid member ID"})
		return
	}

	if err := h.ledger.Remove(r.Context(), companyID, membershipID); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.SuccessResponse{Message: "Member removed"})
}

func (h *MemberHandler) changeStatus(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, companyID, userID uuid.UUID) error) {
	companyID := middleware.GetCompanyID(r.Context())

	membershipID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid member ID"})
		return
	}

	var m models.Membership
	err = h.db.WithContext(r.Context()).
		Where("id = ? AND company_id = ?", membershipID, companyID).
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Member not found"})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to load member"})
		return
	}

	if err := op(r.Context(), companyID, m.UserID); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.SuccessResponse{Message: "Member updated"})
}

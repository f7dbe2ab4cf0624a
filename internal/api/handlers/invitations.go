package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/avery/hireflow/internal/api/dto"
	"github.com/avery/hireflow/internal/api/middleware"
	"github.com/avery/hireflow/internal/api/validation"
	"github.com/avery/hireflow/internal/database/models"
	"github.com/avery/hireflow/internal/invitation"
)

type InvitationHandler struct {
	invitations *invitation.Service
}

func NewInvitationHandler(invitations *invitation.Service) *InvitationHandler {
	return &InvitationHandler{invitations: invitations}
}

type InviteRequest struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

func (r InviteRequest) Validate() map[string]string {
	errors := make(map[string]string)
	if !validation.IsValidEmail(r.Email) {
		errors["email"] = "A valid email address is required"
	}
	if !validation.IsValidRole(r.Role) {
		errors["role"] = "Role must be one of hr, recruiter, interviewer"
	}
	return errors
}

// Invite handles POST /api/v1/invitations.
func (h *InvitationHandler) Invite(w http.ResponseWriter, r *http.Request) {
	var req InviteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}
	if errors := req.Validate(); len(errors) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: errors})
		return
	}

	result, err := h.invitations.Invite(r.Context(), invitation.InviteInput{
		Email:     req.Email,
		Role:      models.Role(req.Role),
		CompanyID: middleware.GetCompanyID(r.Context()),
		InvitedBy: middleware.GetUserID(r.Context()),
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

// Check handles GET /api/v1/invitations/check?token=... It is public: the
// token itself is the credential.
func (h *InvitationHandler) Check(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Token is required"})
		return
	}

	info, err := h.invitations.CheckToken(r.Context(), token)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, info)
}

type AcceptRequest struct {
	Token    string `json:"token"`
	Name     string `json:"name,omitempty"`
	Password string `json:"password,omitempty"`
}

func (r AcceptRequest) Validate() map[string]string {
	errors := make(map[string]string)
	if r.Token == "" {
		errors["token"] = "Token is required"
	}
	if r.Password != "" {
		if ok, msg := validation.IsValidPassword(r.Password); !ok {
			errors["password"] = msg
		}
	}
	return errors
}

// Accept handles POST /api/v1/invitations/accept.
func (h *InvitationHandler) Accept(w http.ResponseWriter, r *http.Request) {
	var req AcceptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}
	if errors := req.Validate(); len(errors) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: errors})
		return
	}

	user, err := h.invitations.Accept(r.Context(), invitation.AcceptInput{
		Name:     req.Name,
		Password: req.Password,
	}, req.Token)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.UserDTO{
		ID:    user.ID.String(),
		Email: user.Email,
		Name:  user.Name,
	})
}

package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "freedash/internal/errors"
	"freedash/internal/models"
	"freedash/internal/pagination"
	"freedash/internal/services"
)

// UserHandler handles identity sync, the caller's own profile and the
// admin user listing.
type UserHandler struct {
	userService  services.UserServicer
	auditService services.AuditServicer
	adminRole    string
}

// NewUserHandler creates a new UserHandler. Holders of adminRole may manage
// every user through /users.
func NewUserHandler(userService services.UserServicer, auditService services.AuditServicer, adminRole string) *UserHandler {
	return &UserHandler{userService: userService, auditService: auditService, adminRole: adminRole}
}

// SyncRequest carries optional profile fields used on first contact.
type SyncRequest struct {
	Email           string `json:"email" binding:"omitempty,email,max=255"`
	Name            string `json:"name" binding:"max=100"`
	Timezone        string `json:"timezone" binding:"omitempty,timezone"`
	DefaultCurrency string `json:"default_currency" binding:"omitempty,iso4217"`
}

// SyncResponse is returned by POST /sync.
type SyncResponse struct {
	User      *models.User `json:"user"`
	IsNewUser bool         `json:"isNewUser"`
}

// UpdatePreferencesRequest represents changes to the caller's preferences.
type UpdatePreferencesRequest struct {
	WeeklyReport  *bool    `json:"weekly_report"`
	TaxRate       *float64 `json:"tax_rate" binding:"omitempty,gte=0,lte=100"`
	ClearTaxRate  bool     `json:"clear_tax_rate"`
	BusinessHours []int64  `json:"business_hours" binding:"omitempty,business_hours"`
}

// UpdateUserRequest represents a partial profile update.
type UpdateUserRequest struct {
	Name             *string                   `json:"name" binding:"omitempty,max=100"`
	Timezone         *string                   `json:"timezone" binding:"omitempty,timezone"`
	DefaultCurrency  *string                   `json:"default_currency" binding:"omitempty,iso4217"`
	OnboardingStatus *string                   `json:"onboarding_status" binding:"omitempty,onboarding_status"`
	Preferences      *UpdatePreferencesRequest `json:"preferences"`
}

func (r UpdateUserRequest) toUpdate() services.UserUpdate {
	update := services.UserUpdate{
		Name:            r.Name,
		Timezone:        r.Timezone,
		DefaultCurrency: r.DefaultCurrency,
	}
	if r.OnboardingStatus != nil {
		status := models.OnboardingStatus(*r.OnboardingStatus)
		update.OnboardingStatus = &status
	}
	if p := r.Preferences; p != nil {
		update.Preferences = &services.PreferencesUpdate{
			WeeklyReport:  p.WeeklyReport,
			TaxRate:       p.TaxRate,
			ClearTaxRate:  p.ClearTaxRate,
			BusinessHours: p.BusinessHours,
		}
	}
	return update
}

// Sync resolves the verified caller to a local user, creating it on first contact.
// @Summary     Sync the authenticated identity
// @Description Return the local user for the bearer token subject, creating it with default preferences on first contact
// @Tags        user
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body SyncRequest false "Optional profile fields"
// @Success     201 {object} SyncResponse "User created"
// @Success     200 {object} SyncResponse "Existing user"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     409 {object} ErrorResponse "Email belongs to another account"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /sync [post]
func (h *UserHandler) Sync(c *gin.Context) {
	id, err := getIdentity(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	// Returning users get their stored record; the profile only seeds a new one.
	existing, err := h.userService.GetUserBySubject(c.Request.Context(), id.Subject)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, SyncResponse{User: existing, IsNewUser: false})
		return
	case !errors.Is(err, apperrors.ErrUserNotFound):
		respondWithError(c, err)
		return
	}

	var req SyncRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	user, isNew, err := h.userService.ResolveUser(c.Request.Context(), id, services.SyncProfile{
		Email:           req.Email,
		Name:            req.Name,
		Timezone:        req.Timezone,
		DefaultCurrency: req.DefaultCurrency,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	status := http.StatusOK
	if isNew {
		status = http.StatusCreated
		h.auditService.Log(user.ID, services.AuditSyncUserCreated, "user", user.ID, c.ClientIP(),
			map[string]any{"email": user.Email})
	}
	c.JSON(status, SyncResponse{User: user, IsNewUser: isNew})
}

// GetMe returns the caller's profile.
// @Summary     Get current user
// @Description Get the authenticated user's profile and preferences
// @Tags        user
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} models.User "User profile"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "User not found"
// @Router      /me [get]
func (h *UserHandler) GetMe(c *gin.Context) {
	user, err := currentUser(c, h.userService)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// UpdateMe applies a partial update to the caller's profile.
// @Summary     Update current user
// @Description Update the authenticated user's profile and preferences
// @Tags        user
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body UpdateUserRequest true "Fields to change"
// @Success     200 {object} models.User "Updated user"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "User not found"
// @Router      /me [patch]
func (h *UserHandler) UpdateMe(c *gin.Context) {
	user, err := currentUser(c, h.userService)
	if err != nil {
		respondWithError(c, err)
		return
	}
	h.update(c, user.ID, user.ID)
}

// DeleteMe removes the caller and everything the caller owns.
// @Summary     Delete current user
// @Description Delete the authenticated user with all linked items, accounts and transactions
// @Tags        user
// @Security    BearerAuth
// @Success     204 "Deleted"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "User not found"
// @Router      /me [delete]
func (h *UserHandler) DeleteMe(c *gin.Context) {
	user, err := currentUser(c, h.userService)
	if err != nil {
		respondWithError(c, err)
		return
	}
	h.delete(c, user.ID, user.ID)
}

// ListUsers returns one page of users.
// @Summary     List users
// @Description List all users (admin role required)
// @Tags        users
// @Produce     json
// @Security    BearerAuth
// @Param       page      query int false "Page number"
// @Param       page_size query int false "Page size (max 100)"
// @Success     200 {object} pagination.Page[models.User] "Users"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Forbidden"
// @Router      /users [get]
func (h *UserHandler) ListUsers(c *gin.Context) {
	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	result, err := h.userService.ListUsers(c.Request.Context(), page)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetUser returns one user.
// @Summary     Get user
// @Description Get a user by ID (self or admin)
// @Tags        users
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "User ID"
// @Success     200 {object} models.User "User"
// @Failure     400 {object} ErrorResponse "Invalid ID"
// @Failure     403 {object} ErrorResponse "Forbidden"
// @Failure     404 {object} ErrorResponse "User not found"
// @Router      /users/{id} [get]
func (h *UserHandler) GetUser(c *gin.Context) {
	targetID, _, ok := h.authorizeTarget(c)
	if !ok {
		return
	}

	user, err := h.userService.GetUserByID(c.Request.Context(), targetID)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// UpdateUser applies a partial update to one user.
// @Summary     Update user
// @Description Update a user by ID (self or admin)
// @Tags        users
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string            true "User ID"
// @Param       request body UpdateUserRequest true "Fields to change"
// @Success     200 {object} models.User "Updated user"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     403 {object} ErrorResponse "Forbidden"
// @Failure     404 {object} ErrorResponse "User not found"
// @Router      /users/{id} [patch]
func (h *UserHandler) UpdateUser(c *gin.Context) {
	targetID, actorID, ok := h.authorizeTarget(c)
	if !ok {
		return
	}
	h.update(c, actorID, targetID)
}

// DeleteUser removes one user and everything the user owns.
// @Summary     Delete user
// @Description Delete a user by ID (self or admin)
// @Tags        users
// @Security    BearerAuth
// @Param       id path string true "User ID"
// @Success     204 "Deleted"
// @Failure     403 {object} ErrorResponse "Forbidden"
// @Failure     404 {object} ErrorResponse "User not found"
// @Router      /users/{id} [delete]
func (h *UserHandler) DeleteUser(c *gin.Context) {
	targetID, actorID, ok := h.authorizeTarget(c)
	if !ok {
		return
	}
	h.delete(c, actorID, targetID)
}

// authorizeTarget parses the :id parameter and checks that the caller is
// that user or holds the admin role. It writes the error response itself.
// actorID is empty for admins without a local user.
func (h *UserHandler) authorizeTarget(c *gin.Context) (targetID, actorID string, ok bool) {
	id, err := getIdentity(c)
	if err != nil {
		respondWithError(c, err)
		return "", "", false
	}
	targetID, err = parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return "", "", false
	}

	me, err := h.userService.GetUserBySubject(c.Request.Context(), id.Subject)
	switch {
	case err == nil:
		actorID = me.ID
	case !errors.Is(err, apperrors.ErrUserNotFound):
		respondWithError(c, err)
		return "", "", false
	}

	if actorID != targetID && !id.HasAnyRole(h.adminRole) {
		respondWithError(c, apperrors.ErrForbidden)
		return "", "", false
	}
	return targetID, actorID, true
}

func (h *UserHandler) update(c *gin.Context, actorID, targetID string) {
	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	user, err := h.userService.UpdateUser(c.Request.Context(), targetID, req.toUpdate())
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(auditActor(actorID, targetID), services.AuditUpdateUser, "user", targetID, c.ClientIP(), updateChanges(req))
	c.JSON(http.StatusOK, gin.H{"user": user})
}

func (h *UserHandler) delete(c *gin.Context, actorID, targetID string) {
	if err := h.userService.DeleteUser(c.Request.Context(), targetID); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(auditActor(actorID, targetID), services.AuditDeleteUser, "user", targetID, c.ClientIP(), nil)
	c.Status(http.StatusNoContent)
}

// auditActor attributes admin actions by callers without a local user to
// the target.
func auditActor(actorID, targetID string) string {
	if actorID == "" {
		return targetID
	}
	return actorID
}

// updateChanges lists the fields a request touched, for the audit trail.
func updateChanges(req UpdateUserRequest) map[string]any {
	changes := map[string]any{}
	if req.Name != nil {
		changes["name"] = *req.Name
	}
	if req.Timezone != nil {
		changes["timezone"] = *req.Timezone
	}
	if req.DefaultCurrency != nil {
		changes["default_currency"] = *req.DefaultCurrency
	}
	if req.OnboardingStatus != nil {
		changes["onboarding_status"] = *req.OnboardingStatus
	}
	if req.Preferences != nil {
		changes["preferences"] = true
	}
	return changes
}

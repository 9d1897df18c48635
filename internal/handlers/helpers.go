package handlers

import (
	"github.com/gin-gonic/gin"

	"freedash/internal/auth"
	apperrors "freedash/internal/errors"
	"freedash/internal/middleware"
	"freedash/internal/models"
	"freedash/internal/services"
	"freedash/internal/uuid"
)

// ErrorDetail represents the inner error object in an error response.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// getIdentity extracts the verified identity from the Gin context, then from
// the request context. Returns ErrUnauthorized if neither carries one.
func getIdentity(c *gin.Context) (*auth.Identity, error) {
	if id, ok := middleware.IdentityFrom(c); ok {
		return id, nil
	}
	if id, ok := auth.FromContext(c.Request.Context()); ok {
		return id, nil
	}
	return nil, apperrors.ErrUnauthorized
}

// currentUser resolves the verified identity to its local user. A subject
// that never called POST /sync yields ErrUserNotFound.
func currentUser(c *gin.Context, users services.UserServicer) (*models.User, error) {
	id, err := getIdentity(c)
	if err != nil {
		return nil, err
	}
	return users.GetUserBySubject(c.Request.Context(), id.Subject)
}

// parsePathID parses a UUID path parameter.
// Returns ErrInvalidInput if the parameter is not a valid UUID.
//
//nolint:unparam // param is intentionally generic for reuse across handlers with different path params
func parsePathID(c *gin.Context, param string) (string, error) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		return "", apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid "+param)
	}
	return id, nil
}

// respondWithError attaches err to the request and aborts the chain.
// middleware.ErrorHandler renders it as the standard error body.
func respondWithError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

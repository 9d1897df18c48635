package services

import (
	"encoding/json"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"freedash/internal/logger"
	"freedash/internal/models"
)

// Audit actions.
const (
	AuditSyncUserCreated = "SYNC_USER_CREATED"
	AuditPlaidItemLinked = "PLAID_ITEM_LINKED"
	AuditUpdateUser      = "UPDATE_USER"
	AuditDeleteUser      = "DELETE_USER"
)

// auditService handles audit log recording.
type auditService struct {
	db *gorm.DB
}

// NewAuditService creates a new AuditServicer.
func NewAuditService(db *gorm.DB) AuditServicer {
	return &auditService{db: db}
}

// Log records an audit event. Failures are logged and swallowed so the audited
// operation is never reported as failed after it committed.
func (s *auditService) Log(userID, action, resourceType, resourceID, ipAddress string, changes map[string]any) {
	log := logger.With("user_id", userID, "action", action, "resource_type", resourceType, "resource_id", resourceID)

	entry := &models.AuditLog{
		UserID:       userID,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		IPAddress:    ipAddress,
		Changes:      encodeChanges(changes, log),
	}
	if err := s.db.Create(entry).Error; err != nil {
		log.Errorw("failed to create audit log entry", "error", err)
	}
}

// encodeChanges renders the change set as JSON. A nil set stays empty.
func encodeChanges(changes map[string]any, log *zap.SugaredLogger) string {
	if changes == nil {
		return ""
	}
	data, err := json.Marshal(changes)
	if err != nil {
		log.Errorw("failed to marshal audit log changes", "error", err)
		return "{}"
	}
	return string(data)
}

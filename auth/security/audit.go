// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package security

import (
	"encoding/json"
	"time"

	"github.com/gofiber/fiber/v2"
	log "github.com/qolzam/inkwell/internal/pkg/log"
)

// SecurityEvent represents a security-related event for audit logging
type SecurityEvent struct {
	Timestamp time.Time `json:"timestamp"`
	EventType string    `json:"eventType"`
	UserID    string    `json:"userId,omitempty"`
	ActorID   string    `json:"actorId,omitempty"`
	IPAddress string    `json:"ipAddress"`
	UserAgent string    `json:"userAgent"`
	Success   bool      `json:"success"`
	ErrorCode string    `json:"errorCode,omitempty"`
	Details   string    `json:"details,omitempty"`
}

// LogSecurityEvent logs a security event to the audit system
func LogSecurityEvent(event SecurityEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	eventJSON, err := json.Marshal(event)
	if err != nil {
		log.Error("Failed to serialize security event: %v", err)
		return
	}
	log.Info("[AUDIT] auth_security_event: %s", string(eventJSON))
}

// Predefined event types for consistency
const (
	EventTypeLoginSuccess        = "login_success"
	EventTypeLoginFailure        = "login_failure"
	EventTypeRegisterSuccess     = "register_success"
	EventTypeRegisterFailure     = "register_failure"
	EventTypePasswordChange      = "password_change"
	EventTypePasswordResetSent   = "password_reset_requested"
	EventTypePasswordReset       = "password_reset"
	EventTypePrivilegeEscalation = "privilege_escalation"
	EventTypeAccountBlocked      = "account_blocked"
	EventTypeAccountUnblocked    = "account_unblocked"
	EventTypeAccountDeleted      = "account_deleted"
)

// Record logs an event for the request in c. userID is the account the
// event is about; actorID, when different, is the admin acting on it.
func Record(c *fiber.Ctx, eventType, userID, actorID string, success bool, errorCode string) {
	LogSecurityEvent(SecurityEvent{
		EventType: eventType,
		UserID:    userID,
		ActorID:   actorID,
		IPAddress: c.IP(),
		UserAgent: c.Get(fiber.HeaderUserAgent),
		Success:   success,
		ErrorCode: errorCode,
	})
}

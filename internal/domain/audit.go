package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuditEntry is an append-only security/compliance record. Checksum covers
// every other field; the entry must not be mutated once it is set.
type AuditEntry struct {
	ID             uuid.UUID      `json:"id"                       validate:"required"`
	Timestamp      time.Time      `json:"timestamp"                validate:"required"`
	EventType      EventType      `json:"eventType"                validate:"required,eventtype"`
	Severity       Severity       `json:"severity"                 validate:"required,severity"`
	UserID         *string        `json:"userId"                   validate:"omitempty,max=128"`
	SessionID      *string        `json:"sessionId"                validate:"omitempty,max=128"`
	UserAgent      string         `json:"userAgent,omitempty"      validate:"max=512"`
	ResourceType   string         `json:"resourceType,omitempty"   validate:"max=64"`
	ResourceID     string         `json:"resourceId,omitempty"     validate:"max=128"`
	Action         string         `json:"action"                   validate:"required,max=256"`
	Outcome        Outcome        `json:"outcome"                  validate:"required,outcome"`
	PreviousValue  any            `json:"previousValue,omitempty"`
	NewValue       any            `json:"newValue,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	Classification DataClass      `json:"dataClassification"       validate:"required,dataclass"`
	ContainsPHI    bool           `json:"containsPHI"`
	ContainsPII    bool           `json:"containsPII"`
	Checksum       string         `json:"checksum"                 validate:"required"`
}

// AuditEvent is what callers hand to the audit logger. Everything not set
// here is filled in from ambient state when the entry is built.
type AuditEvent struct {
	Type          EventType
	Severity      Severity // empty means "use the event-type default"
	Action        string
	Outcome       Outcome // empty means SUCCESS
	ResourceType  string
	ResourceID    string
	UserID        *string
	PreviousValue any
	NewValue      any
	Metadata      map[string]any
	ContainsPHI   bool
	ContainsPII   bool
}

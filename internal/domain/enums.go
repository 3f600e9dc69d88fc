package domain

import "strings"

// MessageRole identifies the author of a chat message.
type MessageRole string

const (
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
	MessageRoleSystem    MessageRole = "system"
)

func (r MessageRole) String() string { return string(r) }

func (r MessageRole) IsValid() bool {
	switch r {
	case MessageRoleUser, MessageRoleAssistant, MessageRoleSystem:
		return true
	}
	return false
}

// Sensitivity is the ordered handling level of a piece of content.
type Sensitivity string

const (
	SensitivityPublic       Sensitivity = "PUBLIC"
	SensitivityInternal     Sensitivity = "INTERNAL"
	SensitivityConfidential Sensitivity = "CONFIDENTIAL"
	SensitivityRestricted   Sensitivity = "RESTRICTED"
	SensitivityCritical     Sensitivity = "CRITICAL"
)

func (s Sensitivity) String() string { return string(s) }

func (s Sensitivity) IsValid() bool {
	return s.Rank() >= 0
}

// Rank returns the position of s in the ordering, or -1 for unknown values.
func (s Sensitivity) Rank() int {
	switch s {
	case SensitivityPublic:
		return 0
	case SensitivityInternal:
		return 1
	case SensitivityConfidential:
		return 2
	case SensitivityRestricted:
		return 3
	case SensitivityCritical:
		return 4
	}
	return -1
}

// AtLeast reports whether s is at or above other.
func (s Sensitivity) AtLeast(other Sensitivity) bool {
	return s.Rank() >= other.Rank()
}

// MaxSensitivity returns the higher of a and b.
func MaxSensitivity(a, b Sensitivity) Sensitivity {
	if b.Rank() > a.Rank() {
		return b
	}
	return a
}

// Category names a family of sensitive content.
type Category string

const (
	CategoryGeneral     Category = "GENERAL"
	CategoryPHI         Category = "PHI"
	CategoryPII         Category = "PII"
	CategoryCredentials Category = "CREDENTIALS"
	CategoryResearch    Category = "RESEARCH"
	CategoryKeyword     Category = "KEYWORD"
)

func (c Category) String() string { return string(c) }

func (c Category) IsValid() bool {
	switch c {
	case CategoryGeneral, CategoryPHI, CategoryPII, CategoryCredentials, CategoryResearch, CategoryKeyword:
		return true
	}
	return false
}

// Severity of an audit entry.
type Severity string

const (
	SeverityDebug    Severity = "DEBUG"
	SeverityInfo     Severity = "INFO"
	SeverityWarning  Severity = "WARNING"
	SeverityError    Severity = "ERROR"
	SeverityCritical Severity = "CRITICAL"
)

func (s Severity) String() string { return string(s) }

func (s Severity) IsValid() bool {
	switch s {
	case SeverityDebug, SeverityInfo, SeverityWarning, SeverityError, SeverityCritical:
		return true
	}
	return false
}

// Outcome of an audited action.
type Outcome string

const (
	OutcomeSuccess Outcome = "SUCCESS"
	OutcomeFailure Outcome = "FAILURE"
	OutcomePending Outcome = "PENDING"
)

func (o Outcome) String() string { return string(o) }

func (o Outcome) IsValid() bool {
	switch o {
	case OutcomeSuccess, OutcomeFailure, OutcomePending:
		return true
	}
	return false
}

// DataClass is the classification tag stamped on every audit entry.
type DataClass string

const (
	DataClassPublic       DataClass = "PUBLIC"
	DataClassInternal     DataClass = "INTERNAL"
	DataClassConfidential DataClass = "CONFIDENTIAL"
	DataClassRestricted   DataClass = "RESTRICTED"
)

func (d DataClass) String() string { return string(d) }

func (d DataClass) IsValid() bool {
	switch d {
	case DataClassPublic, DataClassInternal, DataClassConfidential, DataClassRestricted:
		return true
	}
	return false
}

// EventType identifies an audit event. Values are prefixed by family.
type EventType string

const (
	EventAuthLogin         EventType = "auth.login"
	EventAuthLogout        EventType = "auth.logout"
	EventAuthAccessGranted EventType = "auth.access_granted"
	EventAuthAccessDenied  EventType = "auth.access_denied"

	EventChatMessageSent     EventType = "chat.message_sent"
	EventChatMessageReceived EventType = "chat.message_received"
	EventChatMessageEdited   EventType = "chat.message_edited"
	EventChatThreadCreated   EventType = "chat.thread_created"
	EventChatThreadRenamed   EventType = "chat.thread_renamed"
	EventChatThreadCleared   EventType = "chat.thread_cleared"
	EventChatThreadDeleted   EventType = "chat.thread_deleted"
	EventChatThreadSwitched  EventType = "chat.thread_switched"
	EventChatThreadArchived  EventType = "chat.thread_archived"
	EventChatSearch          EventType = "chat.search"

	EventDataRead          EventType = "data.read"
	EventDataExport        EventType = "data.export"
	EventDataPersistFailed EventType = "data.persist_failed"

	EventIntegrationConnected    EventType = "integration.connected"
	EventIntegrationDisconnected EventType = "integration.disconnected"

	EventSecurityIncident         EventType = "security.incident"
	EventSecurityRateLimited      EventType = "security.rate_limited"
	EventSecurityValidationFailed EventType = "security.validation_failed"

	EventSystemStartup     EventType = "system.startup"
	EventSystemShutdown    EventType = "system.shutdown"
	EventSystemFlushFailed EventType = "system.flush_failed"
)

var eventTypes = map[EventType]struct{}{
	EventAuthLogin: {}, EventAuthLogout: {}, EventAuthAccessGranted: {}, EventAuthAccessDenied: {},
	EventChatMessageSent: {}, EventChatMessageReceived: {}, EventChatMessageEdited: {},
	EventChatThreadCreated: {}, EventChatThreadRenamed: {}, EventChatThreadCleared: {},
	EventChatThreadDeleted: {}, EventChatThreadSwitched: {}, EventChatThreadArchived: {},
	EventChatSearch: {},
	EventDataRead: {}, EventDataExport: {}, EventDataPersistFailed: {},
	EventIntegrationConnected: {}, EventIntegrationDisconnected: {},
	EventSecurityIncident: {}, EventSecurityRateLimited: {}, EventSecurityValidationFailed: {},
	EventSystemStartup: {}, EventSystemShutdown: {}, EventSystemFlushFailed: {},
}

func (e EventType) String() string { return string(e) }

func (e EventType) IsValid() bool {
	_, ok := eventTypes[e]
	return ok
}

// Family returns the prefix before the first dot ("chat", "auth", ...).
func (e EventType) Family() string {
	family, _, _ := strings.Cut(string(e), ".")
	return family
}

// Role is an authorization role held by a user.
type Role string

const (
	RoleViewer     Role = "viewer"
	RoleTechnician Role = "technician"
	RoleScientist  Role = "scientist"
	RoleLabManager Role = "lab_manager"
	RoleAdmin      Role = "admin"
)

// RolesAscending lists every role from least to most privileged.
var RolesAscending = []Role{RoleViewer, RoleTechnician, RoleScientist, RoleLabManager, RoleAdmin}

func (r Role) String() string { return string(r) }

func (r Role) IsValid() bool {
	switch r {
	case RoleViewer, RoleTechnician, RoleScientist, RoleLabManager, RoleAdmin:
		return true
	}
	return false
}

func (r Role) IsAdmin() bool {
	return r == RoleAdmin
}

package domain

import (
	"time"

	"github.com/google/uuid"
)

// UserAttributes is the closed attribute schema used by attribute-based
// authorization rules.
type UserAttributes struct {
	Department string      `json:"department,omitempty"`
	Site       string      `json:"site,omitempty"`
	Clearance  Sensitivity `json:"clearance,omitempty"`
}

// UserContext is the authenticated principal as seen by authorization.
type UserContext struct {
	ID         uuid.UUID      `json:"id"`
	Email      string         `json:"email,omitempty"`
	Roles      []Role         `json:"roles"`
	Attributes UserAttributes `json:"attributes"`
}

// HasRole reports whether the user holds r.
func (u UserContext) HasRole(r Role) bool {
	for _, got := range u.Roles {
		if got == r {
			return true
		}
	}
	return false
}

// ResourceContext carries the attributes of the resource being accessed.
type ResourceContext struct {
	OwnerID        *uuid.UUID `json:"ownerId,omitempty"`
	Department     string     `json:"department,omitempty"`
	TimeRestricted bool       `json:"timeRestricted,omitempty"`
}

// Resource is a protected UI surface or data kind.
type Resource string

const (
	ResourceAssistant    Resource = "assistant"
	ResourceThreads      Resource = "threads"
	ResourceRuns         Resource = "runs"
	ResourceInstruments  Resource = "instruments"
	ResourceIntegrations Resource = "integrations"
	ResourceAuditLogs    Resource = "audit_logs"
	ResourceUsers        Resource = "users"
	ResourceSettings     Resource = "settings"
	ResourceReports      Resource = "reports"
)

func (r Resource) String() string { return string(r) }

func (r Resource) IsValid() bool {
	switch r {
	case ResourceAssistant, ResourceThreads, ResourceRuns, ResourceInstruments, ResourceIntegrations,
		ResourceAuditLogs, ResourceUsers, ResourceSettings, ResourceReports:
		return true
	}
	return false
}

// Action is an operation on a Resource.
type Action string

const (
	ActionView    Action = "view"
	ActionCreate  Action = "create"
	ActionUpdate  Action = "update"
	ActionDelete  Action = "delete"
	ActionExecute Action = "execute"
	ActionExport  Action = "export"
	ActionManage  Action = "manage"
)

func (a Action) String() string { return string(a) }

func (a Action) IsValid() bool {
	switch a {
	case ActionView, ActionCreate, ActionUpdate, ActionDelete, ActionExecute, ActionExport, ActionManage:
		return true
	}
	return false
}

// Permission is a resource:action pair.
type Permission struct {
	Resource Resource
	Action   Action
}

func (p Permission) String() string { return string(p.Resource) + ":" + string(p.Action) }

// AccessRequest is the input of an authorization check.
type AccessRequest struct {
	User     UserContext
	Resource Resource
	Action   Action
	Context  ResourceContext
}

// Decision is the (possibly cached) result of an authorization check.
type Decision struct {
	Allowed      bool          `json:"allowed"`
	Reason       string        `json:"reason"`
	GrantedBy    string        `json:"grantedBy,omitempty"`
	RequiredRole *Role         `json:"requiredRole,omitempty"`
	Latency      time.Duration `json:"-"`
}

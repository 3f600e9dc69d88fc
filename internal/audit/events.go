package audit

import (
	"context"
	"strings"

	"github.com/heartmarshall/labassist-backend/internal/domain"
)

const (
	resourceMessage    = "message"
	resourceThread     = "thread"
	resourcePermission = "permission"
)

// MessageEvent records a message lifecycle event. Content is never logged;
// the verdict supplies the PHI/PII flags and sensitivity.
func (l *Logger) MessageEvent(ctx context.Context, typ domain.EventType, threadID, messageID string, role domain.MessageRole, v *domain.Verdict) {
	meta := map[string]any{
		"threadId": threadID,
		"role":     role.String(),
	}
	ev := domain.AuditEvent{
		Type:         typ,
		Action:       actionFor(typ),
		ResourceType: resourceMessage,
		ResourceID:   messageID,
		Metadata:     meta,
	}
	if v != nil {
		meta["sensitivity"] = v.Sensitivity.String()
		ev.ContainsPHI = v.ContainsRegulated
		ev.ContainsPII = v.ContainsPersonal
	}
	l.Log(ctx, ev)
}

// ThreadEvent records a thread lifecycle event with optional before/after
// snapshots.
func (l *Logger) ThreadEvent(ctx context.Context, typ domain.EventType, threadID string, prev, next any, meta map[string]any) {
	l.Log(ctx, domain.AuditEvent{
		Type:          typ,
		Action:        actionFor(typ),
		ResourceType:  resourceThread,
		ResourceID:    threadID,
		PreviousValue: prev,
		NewValue:      next,
		Metadata:      meta,
	})
}

// SecurityIncident records a security incident. Severity defaults to
// CRITICAL when empty.
func (l *Logger) SecurityIncident(ctx context.Context, action string, severity domain.Severity, meta map[string]any) {
	l.Log(ctx, domain.AuditEvent{
		Type:     domain.EventSecurityIncident,
		Severity: severity,
		Action:   action,
		Outcome:  domain.OutcomeFailure,
		Metadata: meta,
	})
}

// AccessDecision records the outcome of an authorization check.
func (l *Logger) AccessDecision(ctx context.Context, req domain.AccessRequest, d domain.Decision) {
	typ := domain.EventAuthAccessGranted
	outcome := domain.OutcomeSuccess
	if !d.Allowed {
		typ = domain.EventAuthAccessDenied
		outcome = domain.OutcomeFailure
	}

	roles := make([]string, len(req.User.Roles))
	for i, r := range req.User.Roles {
		roles[i] = r.String()
	}
	meta := map[string]any{
		"permission": domain.Permission{Resource: req.Resource, Action: req.Action}.String(),
		"roles":      roles,
		"reason":     d.Reason,
		"latencyMs":  float64(d.Latency.Microseconds()) / 1000,
	}
	if d.GrantedBy != "" {
		meta["grantedBy"] = d.GrantedBy
	}
	if d.RequiredRole != nil {
		meta["requiredRole"] = d.RequiredRole.String()
	}

	uid := req.User.ID.String()
	l.Log(ctx, domain.AuditEvent{
		Type:         typ,
		Action:       actionFor(typ),
		Outcome:      outcome,
		ResourceType: resourcePermission,
		ResourceID:   string(req.Resource),
		UserID:       &uid,
		Metadata:     meta,
	})
}

// DataAccess records a read, export or persistence event on a resource.
func (l *Logger) DataAccess(ctx context.Context, typ domain.EventType, resourceType, resourceID string, outcome domain.Outcome, meta map[string]any) {
	l.Log(ctx, domain.AuditEvent{
		Type:         typ,
		Action:       actionFor(typ),
		Outcome:      outcome,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Metadata:     meta,
	})
}

// actionFor turns "chat.thread_created" into "thread created".
func actionFor(t domain.EventType) string {
	_, name, _ := strings.Cut(t.String(), ".")
	return strings.ReplaceAll(name, "_", " ")
}

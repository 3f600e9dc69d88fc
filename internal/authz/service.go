// Package authz decides whether a user may perform an action on a
// resource. Decisions come from a static role matrix with attribute-based
// fallbacks, are cached briefly, and are always audited.
package authz

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/jonboulle/clockwork"

	"github.com/heartmarshall/labassist-backend/internal/domain"
	"github.com/heartmarshall/labassist-backend/internal/metrics"
)

type decisionAuditor interface {
	AccessDecision(ctx context.Context, req domain.AccessRequest, d domain.Decision)
}

// Config controls the decision cache and business-hours window.
type Config struct {
	CacheTTL  time.Duration
	CacheSize int
	// Business hours are [HoursStart, HoursEnd) in Location, Monday to Friday.
	HoursStart int
	HoursEnd   int
	Location   *time.Location
}

func (c Config) withDefaults() Config {
	if c.CacheTTL <= 0 {
		c.CacheTTL = 60 * time.Second
	}
	if c.CacheSize <= 0 {
		c.CacheSize = 4096
	}
	if c.HoursStart == 0 && c.HoursEnd == 0 {
		c.HoursStart, c.HoursEnd = 7, 19
	}
	if c.Location == nil {
		c.Location = time.UTC
	}
	return c
}

// Service implements authorization checks.
type Service struct {
	cfg   Config
	log   *slog.Logger
	audit decisionAuditor
	clock clockwork.Clock
	cache *expirable.LRU[string, domain.Decision]
}

// NewService creates a Service. auditor may be nil; a nil clock means the
// real clock.
func NewService(cfg Config, auditor decisionAuditor, clock clockwork.Clock, log *slog.Logger) *Service {
	cfg = cfg.withDefaults()
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Service{
		cfg:   cfg,
		log:   log.With("service", "authz"),
		audit: auditor,
		clock: clock,
		cache: expirable.NewLRU[string, domain.Decision](cfg.CacheSize, nil, cfg.CacheTTL),
	}
}

// Can decides req. It never fails: a denial is a normal result.
func (s *Service) Can(ctx context.Context, req domain.AccessRequest) domain.Decision {
	start := s.clock.Now()
	key := cacheKey(req)

	d, hit := s.cache.Get(key)
	source := "cache"
	if !hit {
		d = s.evaluate(req)
		s.cache.Add(key, d)
		source = "evaluated"
	}
	d.Latency = s.clock.Since(start)

	metrics.AuthzDecisions.WithLabelValues(strconv.FormatBool(d.Allowed), source).Inc()
	if !d.Allowed {
		s.log.Debug("access denied",
			slog.String("user_id", req.User.ID.String()),
			slog.String("permission", permissionOf(req).String()),
			slog.String("reason", d.Reason),
		)
	}
	if s.audit != nil {
		s.audit.AccessDecision(ctx, req, d)
	}
	return d
}

// Invalidate drops every cached decision for userID and returns how many
// were removed. Callers use it after changing a user's roles.
func (s *Service) Invalidate(userID uuid.UUID) int {
	prefix := userID.String() + "|"
	removed := 0
	for _, k := range s.cache.Keys() {
		if strings.HasPrefix(k, prefix) && s.cache.Remove(k) {
			removed++
		}
	}
	return removed
}

func (s *Service) evaluate(req domain.AccessRequest) domain.Decision {
	p := permissionOf(req)

	for _, r := range req.User.Roles {
		if r.IsAdmin() {
			return domain.Decision{Allowed: true, Reason: "wildcard role", GrantedBy: "role:" + r.String()}
		}
	}

	for _, r := range req.User.Roles {
		if Grants(r, p) {
			return domain.Decision{Allowed: true, Reason: "granted by role", GrantedBy: "role:" + r.String()}
		}
	}

	required := LowestGrantingRole(p)

	if req.Context.TimeRestricted && !s.withinBusinessHours() {
		return domain.Decision{Allowed: false, Reason: "outside business hours", RequiredRole: required}
	}
	if rule, ok := matchRule(req); ok {
		return domain.Decision{Allowed: true, Reason: rule.reason, GrantedBy: "rule:" + rule.name}
	}

	return domain.Decision{
		Allowed:      false,
		Reason:       fmt.Sprintf("no role grants %s", p),
		RequiredRole: required,
	}
}

func (s *Service) withinBusinessHours() bool {
	now := s.clock.Now().In(s.cfg.Location)
	if now.Weekday() == time.Saturday || now.Weekday() == time.Sunday {
		return false
	}
	h := now.Hour()
	return h >= s.cfg.HoursStart && h < s.cfg.HoursEnd
}

type rule struct {
	name   string
	reason string
	match  func(req domain.AccessRequest) bool
}

var rules = []rule{
	{
		name:   "owner",
		reason: "owner may view own resource",
		match: func(req domain.AccessRequest) bool {
			return req.Action == domain.ActionView &&
				req.Context.OwnerID != nil && *req.Context.OwnerID == req.User.ID
		},
	},
	{
		name:   "department",
		reason: "same department may view",
		match: func(req domain.AccessRequest) bool {
			return req.Action == domain.ActionView &&
				req.Context.Department != "" &&
				strings.EqualFold(req.Context.Department, req.User.Attributes.Department)
		},
	},
}

func matchRule(req domain.AccessRequest) (rule, bool) {
	for _, r := range rules {
		if r.match(req) {
			return r, true
		}
	}
	return rule{}, false
}

func permissionOf(req domain.AccessRequest) domain.Permission {
	return domain.Permission{Resource: req.Resource, Action: req.Action}
}

// cacheKey is user|resource|action|context-hash. Roles are not part of the
// key: a role change takes effect when the entry expires or Invalidate is
// called.
func cacheKey(req domain.AccessRequest) string {
	ctxJSON, _ := json.Marshal(req.Context)
	return fmt.Sprintf("%s|%s|%s|%x", req.User.ID, req.Resource, req.Action, xxhash.Sum64(ctxJSON))
}

package authz

import "github.com/heartmarshall/labassist-backend/internal/domain"

func perms(r domain.Resource, actions ...domain.Action) []domain.Permission {
	out := make([]domain.Permission, len(actions))
	for i, a := range actions {
		out[i] = domain.Permission{Resource: r, Action: a}
	}
	return out
}

func join(sets ...[]domain.Permission) []domain.Permission {
	var out []domain.Permission
	for _, s := range sets {
		out = append(out, s...)
	}
	return out
}

var (
	viewerPermissions = join(
		perms(domain.ResourceAssistant, domain.ActionView),
		perms(domain.ResourceThreads, domain.ActionView),
		perms(domain.ResourceRuns, domain.ActionView),
		perms(domain.ResourceInstruments, domain.ActionView),
		perms(domain.ResourceReports, domain.ActionView),
	)

	technicianPermissions = join(
		viewerPermissions,
		perms(domain.ResourceAssistant, domain.ActionExecute),
		perms(domain.ResourceThreads, domain.ActionCreate, domain.ActionUpdate),
		perms(domain.ResourceRuns, domain.ActionCreate, domain.ActionExecute),
		perms(domain.ResourceInstruments, domain.ActionExecute),
	)

	scientistPermissions = join(
		technicianPermissions,
		perms(domain.ResourceThreads, domain.ActionDelete, domain.ActionExport),
		perms(domain.ResourceRuns, domain.ActionUpdate, domain.ActionExport),
		perms(domain.ResourceReports, domain.ActionCreate, domain.ActionExport),
		perms(domain.ResourceIntegrations, domain.ActionView),
	)

	labManagerPermissions = join(
		scientistPermissions,
		perms(domain.ResourceRuns, domain.ActionDelete),
		perms(domain.ResourceInstruments, domain.ActionUpdate, domain.ActionManage),
		perms(domain.ResourceIntegrations, domain.ActionCreate, domain.ActionUpdate, domain.ActionDelete),
		perms(domain.ResourceAuditLogs, domain.ActionView),
		perms(domain.ResourceUsers, domain.ActionView, domain.ActionUpdate),
		perms(domain.ResourceSettings, domain.ActionView),
		perms(domain.ResourceReports, domain.ActionManage),
	)
)

// matrix maps every non-wildcard role to its permission set. admin is not
// listed: it is granted everything.
var matrix = map[domain.Role]map[domain.Permission]struct{}{
	domain.RoleViewer:     toSet(viewerPermissions),
	domain.RoleTechnician: toSet(technicianPermissions),
	domain.RoleScientist:  toSet(scientistPermissions),
	domain.RoleLabManager: toSet(labManagerPermissions),
}

func toSet(ps []domain.Permission) map[domain.Permission]struct{} {
	set := make(map[domain.Permission]struct{}, len(ps))
	for _, p := range ps {
		set[p] = struct{}{}
	}
	return set
}

// Grants reports whether role holds p.
func Grants(role domain.Role, p domain.Permission) bool {
	if role.IsAdmin() {
		return true
	}
	_, ok := matrix[role][p]
	return ok
}

// Permissions returns the explicit permissions of role. It returns nil for
// admin, whose grant is implicit.
func Permissions(role domain.Role) []domain.Permission {
	set := matrix[role]
	if set == nil {
		return nil
	}
	out := make([]domain.Permission, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	return out
}

// LowestGrantingRole returns the least privileged role that holds p, or nil
// for an unknown resource or action.
func LowestGrantingRole(p domain.Permission) *domain.Role {
	if !p.Resource.IsValid() || !p.Action.IsValid() {
		return nil
	}
	for _, r := range domain.RolesAscending {
		if Grants(r, p) {
			role := r
			return &role
		}
	}
	return nil
}

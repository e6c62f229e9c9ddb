// Package policy answers whether a role may perform an action on a subject.
package policy

import "github.com/userhub/user-api/internal/core/domain"

type Action string

const (
	ActionGet    Action = "get"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	ActionManage Action = "manage"
)

type Subject string

const (
	SubjectUser Subject = "user"
	SubjectAll  Subject = "all"
)

type rule struct {
	action  Action
	subject Subject
}

// manage covers every action and all covers every subject.
var rolePermissions = map[string][]rule{
	domain.RoleAdmin: {{ActionManage, SubjectAll}},
}

// Roles without an entry fall back to read-only access on users.
var defaultPermissions = []rule{{ActionGet, SubjectUser}}

// Can reports whether role may perform action on subject.
func Can(role string, action Action, subject Subject) bool {
	rules, ok := rolePermissions[role]
	if !ok {
		rules = defaultPermissions
	}
	for _, r := range rules {
		if (r.action == ActionManage || r.action == action) &&
			(r.subject == SubjectAll || r.subject == subject) {
			return true
		}
	}
	return false
}

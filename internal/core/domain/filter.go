package domain

import "strings"

// UserFilter selects users for a collection read. It is immutable once
// built; a non-empty name takes precedence over role.
type UserFilter struct {
	name string
	role string
}

func NewUserFilter(name, role string) UserFilter {
	return UserFilter{name: strings.TrimSpace(name), role: strings.TrimSpace(role)}
}

func (f UserFilter) Name() string { return f.name }
func (f UserFilter) Role() string { return f.role }

// ByName reports whether the filter matches on exact name.
func (f UserFilter) ByName() bool { return f.name != "" }

// ByRole reports whether the filter matches on role; false when a name is set.
func (f UserFilter) ByRole() bool { return f.name == "" && f.role != "" }

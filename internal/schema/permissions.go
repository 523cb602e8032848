package schema

import (
	"slices"

	"github.com/hlop3z/ercat/internal/decl"
)

// access holds the action to groups mapping shared by entity and relation
// schemas.
type access struct {
	actions []decl.Action
	groups  decl.Permissions
}

// Permissions returns a copy of the permission map.
func (a *access) Permissions() decl.Permissions {
	return a.groups.Clone()
}

// Groups returns the groups allowed to perform action.
func (a *access) Groups(action decl.Action) []string {
	return slices.Clone(a.groups[action])
}

// SetGroups replaces the groups allowed to perform action.
func (a *access) SetGroups(action decl.Action, groups []string) error {
	p := decl.Permissions{action: groups}
	if err := p.Validate(a.actions); err != nil {
		return err
	}
	if a.groups == nil {
		a.groups = decl.Permissions{}
	}
	a.groups[action] = slices.Clone(groups)
	return nil
}

// HasGroup reports whether group may perform action.
func (a *access) HasGroup(action decl.Action, group string) bool {
	return slices.Contains(a.groups[action], group)
}

// HasAccess reports whether a user belonging to userGroups may perform
// action.
func (a *access) HasAccess(userGroups []string, action decl.Action) bool {
	for _, g := range userGroups {
		if a.HasGroup(action, g) {
			return true
		}
	}
	return false
}

package decl

import (
	"maps"
	"slices"
	"strings"

	"github.com/hlop3z/ercat/internal/alerr"
	"github.com/hlop3z/ercat/internal/validate"
)

// Action is a permission verb.
type Action string

const (
	Read   Action = "read"
	Add    Action = "add"
	Update Action = "update"
	Delete Action = "delete"
)

// Actions accepted by entity and relation permission maps.
var (
	EntityActions   = []Action{Read, Add, Update, Delete}
	RelationActions = []Action{Read, Add, Delete}
)

// Permissions maps an action to the groups allowed to perform it.
// A nil map means "not set"; defaults are assigned when the catalog is
// finalized.
type Permissions map[Action][]string

// Clone returns a deep copy.
func (p Permissions) Clone() Permissions {
	if p == nil {
		return nil
	}
	out := make(Permissions, len(p))
	for a, groups := range p {
		out[a] = slices.Clone(groups)
	}
	return out
}

// Equal compares actions and group lists.
func (p Permissions) Equal(o Permissions) bool {
	return maps.EqualFunc(p, o, slices.Equal[[]string])
}

// Groups returns the groups allowed to perform a.
func (p Permissions) Groups(a Action) []string {
	return p[a]
}

// Validate checks that every action is in allowed and every group name is
// an identifier.
func (p Permissions) Validate(allowed []Action) error {
	for _, a := range slices.Sorted(maps.Keys(p)) {
		if !slices.Contains(allowed, a) {
			names := make([]string, len(allowed))
			for i, x := range allowed {
				names[i] = string(x)
			}
			return alerr.New(alerr.ErrInvalidPermission, "unknown permission action").
				With("action", string(a)).
				With("allowed", strings.Join(names, ", ")).
				WithHelp(alerr.SuggestSimilar(string(a), names))
		}
		for _, g := range p[a] {
			if err := validate.GroupName(g); err != nil {
				return err
			}
		}
	}
	return nil
}

// String renders actions in sorted order, e.g. "add=managers read=managers,users".
func (p Permissions) String() string {
	actions := slices.Sorted(maps.Keys(p))
	parts := make([]string, len(actions))
	for i, a := range actions {
		parts[i] = string(a) + "=" + strings.Join(p[a], ",")
	}
	return strings.Join(parts, " ")
}

func groups(names ...string) []string { return names }

var (
	managersUsersGuests = groups("managers", "users", "guests")
	managersUsers       = groups("managers", "users")
	managersOwners      = groups("managers", "owners")
	managers            = groups("managers")
)

// Preset is a named permission set applied explicitly to a declaration.
type Preset struct {
	Name        string
	Permissions Permissions
	Meta        bool
	// Relation is set for presets that target relation types.
	Relation bool
}

// Preset names understood by LookupPreset.
const (
	PresetMeta             = "meta"
	PresetRestricted       = "restricted"
	PresetUser             = "user"
	PresetMetaUser         = "meta_user"
	PresetMetaRelation     = "meta_relation"
	PresetUserRelation     = "user_relation"
	PresetMetaUserRelation = "meta_user_relation"
	PresetAttribute        = "attribute"
	PresetMetaAttribute    = "meta_attribute"
)

var presets = map[string]Preset{
	PresetMeta: {Meta: true, Permissions: Permissions{
		Read: managersUsersGuests, Add: managers, Delete: managers, Update: managersOwners,
	}},
	PresetRestricted: {Meta: true, Permissions: Permissions{
		Read: managersUsers, Add: managers, Delete: managers, Update: managersOwners,
	}},
	PresetUser: {Permissions: Permissions{
		Read: managersUsersGuests, Add: managersUsers, Delete: managersOwners, Update: managersOwners,
	}},
	PresetMetaUser: {Meta: true, Permissions: Permissions{
		Read: managersUsersGuests, Add: managersUsers, Delete: managersOwners, Update: managersOwners,
	}},
	PresetMetaRelation: {Relation: true, Meta: true, Permissions: Permissions{
		Read: managersUsersGuests, Add: managers, Delete: managers,
	}},
	PresetUserRelation: {Relation: true, Permissions: Permissions{
		Read: managersUsersGuests, Add: managersUsers, Delete: managersUsers,
	}},
	PresetMetaUserRelation: {Relation: true, Meta: true, Permissions: Permissions{
		Read: managersUsersGuests, Add: managersUsers, Delete: managersUsers,
	}},
	// attribute presets leave permissions unset so defaults apply
	PresetAttribute:     {Relation: true},
	PresetMetaAttribute: {Relation: true, Meta: true},
}

// PresetNames returns the known preset names, sorted.
func PresetNames() []string {
	return slices.Sorted(maps.Keys(presets))
}

// LookupPreset returns a copy of the named preset.
func LookupPreset(name string) (Preset, error) {
	p, ok := presets[name]
	if !ok {
		return Preset{}, alerr.New(alerr.ErrInvalidPermission, "unknown permission preset").
			With("preset", name).
			WithHelp(alerr.SuggestSimilar(name, PresetNames()))
	}
	p.Name = name
	p.Permissions = p.Permissions.Clone()
	return p, nil
}

// EntityDefaults returns the permissions given to an entity type that has
// none: final types are open to authenticated users, meta types are tighter.
func EntityDefaults(final, meta bool) Permissions {
	switch {
	case final:
		return Permissions{Read: managersUsersGuests, Update: managersUsers, Delete: managersUsers, Add: managersUsers}.Clone()
	case meta:
		return Permissions{Read: managersUsersGuests, Update: managersOwners, Delete: managers, Add: managers}.Clone()
	}
	return Permissions{Read: managersUsersGuests, Update: managersOwners, Delete: managersOwners, Add: managersUsers}.Clone()
}

// RelationDefaults returns the permissions given to a relation type or
// relation pair that has none.
func RelationDefaults(final, meta bool) Permissions {
	switch {
	case final:
		return Permissions{Read: managersUsersGuests, Delete: managersUsersGuests, Add: managersUsersGuests}.Clone()
	case meta:
		return Permissions{Read: managersUsersGuests, Delete: managers, Add: managers}.Clone()
	}
	return Permissions{Read: managersUsersGuests, Delete: managersUsers, Add: managersUsers}.Clone()
}

package policy

import (
	"errors"

	"github.com/JonGarbayo/o-network-api/pkg/onetwork/models"
)

// ErrForbidden is returned for every denied decision. Callers translate it
// to a 403 (or a 404 on organization-nested routes, where a cross-tenant
// lookup must be indistinguishable from a missing record).
var ErrForbidden = errors.New("forbidden")

// Action is an authorization action. Beyond the CRUD verbs there are two
// scoped listing actions, parameterized by a parent entity instead of a
// target instance: plain viewAny alone cannot distinguish "list everything"
// (never allowed in this product) from "list the children of parent X"
// (allowed for members of X's organization).
type Action string

const (
	ActionView    Action = "view"
	ActionViewAny Action = "viewAny"
	ActionCreate  Action = "create"
	ActionUpdate  Action = "update"
	ActionDelete  Action = "delete"

	// ActionViewAnyFromOrganization lists the children of an organization
	// (its users, its posts, its reactions).
	ActionViewAnyFromOrganization Action = "viewAnyFromOrganization"

	// ActionViewAnyFromPost lists the children of a post (its comments,
	// its reactions), scoped by the post's derived organization.
	ActionViewAnyFromPost Action = "viewAnyFromPost"
)

// Entity identifies the record type a decision is about.
type Entity string

const (
	EntityOrganization Entity = "organization"
	EntityUser         Entity = "user"
	EntityPost         Entity = "post"
	EntityComment      Entity = "comment"
	EntityReaction     Entity = "reaction"
)

// Actor is the authenticated user a decision is evaluated for. Routes that
// accept unauthenticated requests (organization and user creation) never
// consult the engine: a nil actor always denies.
type Actor struct {
	ID             uint
	OrganizationID uint
	Role           models.Role
}

// IsAdmin reports whether the actor holds the elevated role.
func (a Actor) IsAdmin() bool {
	return a.Role == models.RoleAdmin
}

// Target carries the two facts a rule can depend on: the record's owning
// organization (derived through the author for posts, comments and
// reactions) and the record's owner. For user records the owner is the
// user themself.
type Target struct {
	OrganizationID uint
	OwnerID        uint
}

// Ruleset is the capability set one entity type implements. Every decision
// is pure over the actor and target; no ruleset touches storage.
type Ruleset interface {
	CanView(a Actor, t Target) bool
	CanCreate(a Actor) bool
	CanUpdate(a Actor, t Target) bool
	CanDelete(a Actor, t Target) bool
	// CanViewScoped decides the scoped listing actions, given the parent's
	// (derived) organization.
	CanViewScoped(a Actor, parentOrgID uint) bool
}

// abilities is the static table of actions the engine enforces per entity
// type. Create is deliberately absent for organizations and users: both must
// be creatable without a session (open signup, first user of a new
// organization), and a policy decision requires an authenticated actor. The
// gate for those two creations is structural, at route registration, not
// here. Actions missing from an entity's row always deny.
var abilities = map[Entity][]Action{
	EntityOrganization: {ActionView, ActionViewAny, ActionUpdate, ActionDelete},
	EntityUser:         {ActionView, ActionViewAny, ActionUpdate, ActionDelete, ActionViewAnyFromOrganization},
	EntityPost:         {ActionView, ActionViewAny, ActionCreate, ActionUpdate, ActionDelete, ActionViewAnyFromOrganization},
	EntityComment:      {ActionView, ActionViewAny, ActionCreate, ActionUpdate, ActionDelete, ActionViewAnyFromPost},
	EntityReaction:     {ActionView, ActionViewAny, ActionCreate, ActionUpdate, ActionDelete, ActionViewAnyFromOrganization, ActionViewAnyFromPost},
}

var rulesets = map[Entity]Ruleset{
	EntityOrganization: organizationRules{},
	EntityUser:         userRules{},
	EntityPost:         contentRules{},
	EntityComment:      contentRules{},
	EntityReaction:     contentRules{},
}

func enforceable(entity Entity, action Action) bool {
	for _, a := range abilities[entity] {
		if a == action {
			return true
		}
	}
	return false
}

// Authorize evaluates (actor, action, target) for instance-level actions and
// for viewAny. It is a pure decision function: allow is a nil error, every
// deny is ErrForbidden.
func Authorize(actor *Actor, entity Entity, action Action, t Target) error {
	if actor == nil {
		return ErrForbidden
	}
	if !enforceable(entity, action) {
		return ErrForbidden
	}

	// Unscoped listing never exists in this product, for any role. Kept as
	// an engine-level rule so adding roles cannot loosen it.
	if action == ActionViewAny {
		return ErrForbidden
	}

	rules := rulesets[entity]
	var ok bool
	switch action {
	case ActionView:
		ok = rules.CanView(*actor, t)
	case ActionCreate:
		ok = rules.CanCreate(*actor)
	case ActionUpdate:
		ok = rules.CanUpdate(*actor, t)
	case ActionDelete:
		ok = rules.CanDelete(*actor, t)
	}
	if !ok {
		return ErrForbidden
	}
	return nil
}

// AuthorizeScoped evaluates the two parent-scoped listing actions against
// the parent's (derived) organization.
func AuthorizeScoped(actor *Actor, entity Entity, action Action, parentOrgID uint) error {
	if actor == nil {
		return ErrForbidden
	}
	if action != ActionViewAnyFromOrganization && action != ActionViewAnyFromPost {
		return ErrForbidden
	}
	if !enforceable(entity, action) {
		return ErrForbidden
	}
	if !rulesets[entity].CanViewScoped(*actor, parentOrgID) {
		return ErrForbidden
	}
	return nil
}

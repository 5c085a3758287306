package policy

// organizationRules scope every decision about an organization record to its
// own members. Mutation additionally requires the elevated role.
type organizationRules struct{}

func (organizationRules) CanView(a Actor, t Target) bool {
	return a.OrganizationID == t.OrganizationID
}

func (organizationRules) CanCreate(a Actor) bool {
	// Never consulted: organization creation is an unauthenticated route.
	return false
}

func (organizationRules) CanUpdate(a Actor, t Target) bool {
	return a.OrganizationID == t.OrganizationID && a.IsAdmin()
}

func (organizationRules) CanDelete(a Actor, t Target) bool {
	return a.OrganizationID == t.OrganizationID && a.IsAdmin()
}

func (organizationRules) CanViewScoped(a Actor, parentOrgID uint) bool {
	return a.OrganizationID == parentOrgID
}

// userRules govern user records. The owner of a user record is the user
// themself, so self-service updates pass without the elevated role.
type userRules struct{}

func (userRules) CanView(a Actor, t Target) bool {
	return a.OrganizationID == t.OrganizationID
}

func (userRules) CanCreate(a Actor) bool {
	// Never consulted: signup is an unauthenticated route.
	return false
}

func (userRules) CanUpdate(a Actor, t Target) bool {
	if a.ID == t.OwnerID {
		return true
	}
	return a.OrganizationID == t.OrganizationID && a.IsAdmin()
}

func (userRules) CanDelete(a Actor, t Target) bool {
	return a.OrganizationID == t.OrganizationID && a.IsAdmin()
}

func (userRules) CanViewScoped(a Actor, parentOrgID uint) bool {
	return a.OrganizationID == parentOrgID
}

// contentRules cover posts, comments and reactions, which all share the same
// shape: visible within the author's organization, mutable by the author, and
// mutable by an organization admin for other members' records.
type contentRules struct{}

func (contentRules) CanView(a Actor, t Target) bool {
	return a.OrganizationID == t.OrganizationID
}

func (contentRules) CanCreate(a Actor) bool {
	// Any authenticated member may author content; the handler additionally
	// checks that the parent (organization or post) is the actor's own.
	return true
}

func (contentRules) CanUpdate(a Actor, t Target) bool {
	if a.ID == t.OwnerID {
		return true
	}
	return a.OrganizationID == t.OrganizationID && a.IsAdmin()
}

func (contentRules) CanDelete(a Actor, t Target) bool {
	if a.ID == t.OwnerID {
		return true
	}
	return a.OrganizationID == t.OrganizationID && a.IsAdmin()
}

func (contentRules) CanViewScoped(a Actor, parentOrgID uint) bool {
	return a.OrganizationID == parentOrgID
}

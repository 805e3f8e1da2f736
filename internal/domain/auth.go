package domain

// Actor identifies the authenticated caller of an engine operation.
type Actor struct {
	ID   string
	Role Role
}

// IsAdmin reports whether the actor acts with administrative authority.
func (a Actor) IsAdmin() bool {
	return a.Role.IsAdmin()
}

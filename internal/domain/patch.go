package domain

// Patch holds one field of a partial update: absent, explicitly null, or a value.
type Patch[T any] struct {
	set   bool
	null  bool
	value T
}

// Set returns a patch carrying v.
func Set[T any](v T) Patch[T] {
	return Patch[T]{set: true, value: v}
}

// Null returns a patch that clears the field.
func Null[T any]() Patch[T] {
	return Patch[T]{set: true, null: true}
}

// IsSet reports whether the field was present in the input.
func (p Patch[T]) IsSet() bool { return p.set }

// IsNull reports whether the field was present and null.
func (p Patch[T]) IsNull() bool { return p.set && p.null }

// Get returns the value when present and non-null.
func (p Patch[T]) Get() (T, bool) {
	if !p.set || p.null {
		var zero T
		return zero, false
	}
	return p.value, true
}

// ComplaintPatch lists the complaint fields a caller may change.
type ComplaintPatch struct {
	Title       Patch[string]
	Description Patch[string]
	Category    Patch[ComplaintCategory]
	Address     Patch[string]
	Priority    Patch[ComplaintPriority]
	Status      Patch[ComplaintStatus]
	AdminNotes  Patch[string]
}

// TouchesAdminFields reports whether the patch sets admin-only fields.
func (p ComplaintPatch) TouchesAdminFields() bool {
	return p.Status.IsSet() || p.AdminNotes.IsSet()
}

// UserPatch lists the profile fields a caller may change.
type UserPatch struct {
	Name     Patch[string]
	Email    Patch[string]
	Password Patch[string]
	Role     Patch[Role]
}

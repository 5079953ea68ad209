package session

import "github.com/campus-events/eventhub-api/internal/domain"

// Optional is a tri-state field used to distinguish:
// - unspecified (omitted)
// - specified as null
// - specified with a value
type Optional[T any] struct {
	specified bool
	isNull    bool
	value     T
}

func Unspecified[T any]() Optional[T] { return Optional[T]{} }
func Null[T any]() Optional[T]        { return Optional[T]{specified: true, isNull: true} }
func Some[T any](v T) Optional[T]     { return Optional[T]{specified: true, value: v} }

func (o Optional[T]) IsSpecified() bool { return o.specified }
func (o Optional[T]) IsNull() bool      { return o.specified && o.isNull }
func (o Optional[T]) Value() T          { return o.value }

// SignupProfile is the profile written alongside a new account.
// An empty Role means domain.RoleUser.
type SignupProfile struct {
	Name     string
	Phone    string
	Location string
	Bio      string
	Role     domain.Role
}

// ProfilePatch is a partial profile update. Null clears a field.
// The role is not patchable; PromoteToAdmin is the only way to change it.
type ProfilePatch struct {
	Name     Optional[string]
	Phone    Optional[string]
	Location Optional[string]
	Bio      Optional[string]
}

func (p ProfilePatch) IsEmpty() bool {
	return !p.Name.IsSpecified() && !p.Phone.IsSpecified() && !p.Location.IsSpecified() && !p.Bio.IsSpecified()
}

package session

import (
	"github.com/campus-events/eventhub-api/internal/domain"
	"github.com/campus-events/eventhub-api/internal/ports/out/docstore"
)

// UsersCollection holds one profile document per principal, keyed by principal id.
const UsersCollection = "users"

func profileFields(u domain.User) docstore.Fields {
	return docstore.Fields{
		"email":     u.Email,
		"name":      u.Name,
		"phone":     u.Phone,
		"location":  u.Location,
		"bio":       u.Bio,
		"role":      string(u.Role),
		"createdAt": domain.FormatTimestamp(u.CreatedAt),
	}
}

// UserFromDocument decodes a profile document.
func UserFromDocument(d docstore.Document) domain.User {
	f := d.Fields
	u := domain.User{
		ID:       domain.UserID(d.ID),
		Email:    f.String("email"),
		Name:     f.String("name"),
		Phone:    f.String("phone"),
		Location: f.String("location"),
		Bio:      f.String("bio"),
		Role:     domain.Role(f.String("role")),
	}
	u.CreatedAt, _ = domain.ParseTimestamp(f.String("createdAt"))
	return u
}

func patchFields(p ProfilePatch) docstore.Fields {
	out := docstore.Fields{}
	set := func(key string, o Optional[string]) {
		if !o.IsSpecified() {
			return
		}
		if o.IsNull() {
			out[key] = ""
			return
		}
		out[key] = o.Value()
	}
	set("name", p.Name)
	set("phone", p.Phone)
	set("location", p.Location)
	set("bio", p.Bio)
	return out
}

func applyPatch(u *domain.User, p ProfilePatch) {
	apply := func(dst *string, o Optional[string]) {
		if !o.IsSpecified() {
			return
		}
		if o.IsNull() {
			*dst = ""
			return
		}
		*dst = o.Value()
	}
	apply(&u.Name, p.Name)
	apply(&u.Phone, p.Phone)
	apply(&u.Location, p.Location)
	apply(&u.Bio, p.Bio)
}

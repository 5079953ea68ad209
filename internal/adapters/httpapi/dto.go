package httpapi

import (
	"time"

	"github.com/oapi-codegen/nullable"
	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/campus-events/eventhub-api/internal/domain"
	"github.com/campus-events/eventhub-api/internal/ports/out/identity"
)

type SignupRequest struct {
	Email    openapi_types.Email `json:"email"`
	Password string              `json:"password"`
	Name     string              `json:"name"`
	Phone    string              `json:"phone,omitempty"`
	Location string              `json:"location,omitempty"`
	Bio      string              `json:"bio,omitempty"`
	Role     string              `json:"role,omitempty"`
}

type LoginRequest struct {
	Email    openapi_types.Email `json:"email"`
	Password string              `json:"password"`
}

type SessionResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      MeUser    `json:"user"`
}

type TokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type MeResponse struct {
	User MeUser `json:"user"`
}

// MeUser is the resolved session user. Profile is absent when no profile document exists.
type MeUser struct {
	ID          string   `json:"id"`
	Email       string   `json:"email"`
	DisplayName string   `json:"displayName"`
	Role        string   `json:"role"`
	IsAdmin     bool     `json:"isAdmin"`
	Profile     *Profile `json:"profile,omitempty"`
}

type Profile struct {
	ID        string     `json:"id"`
	Email     string     `json:"email"`
	Name      string     `json:"name"`
	Phone     string     `json:"phone"`
	Location  string     `json:"location"`
	Bio       string     `json:"bio"`
	Role      string     `json:"role"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
}

// UpdateMeRequest is a partial update: omitted fields are unchanged, null clears.
type UpdateMeRequest struct {
	Name     nullable.Nullable[string] `json:"name,omitempty"`
	Phone    nullable.Nullable[string] `json:"phone,omitempty"`
	Location nullable.Nullable[string] `json:"location,omitempty"`
	Bio      nullable.Nullable[string] `json:"bio,omitempty"`
}

type CreateEventRequest struct {
	Title           string  `json:"title"`
	Description     string  `json:"description"`
	Date            string  `json:"date"`
	Time            string  `json:"time"`
	Location        string  `json:"location"`
	Club            string  `json:"club"`
	Category        string  `json:"category"`
	Price           float64 `json:"price"`
	MaxParticipants int     `json:"maxParticipants"`
	ImageURL        string  `json:"imageUrl,omitempty"`
}

type Event struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	Date            string    `json:"date"`
	Time            string    `json:"time"`
	Location        string    `json:"location"`
	Club            string    `json:"club"`
	Category        string    `json:"category"`
	Price           float64   `json:"price"`
	MaxParticipants int       `json:"maxParticipants"`
	ImageURL        string    `json:"imageUrl,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
	RegisteredUsers []string  `json:"registeredUsers"`
	RegisteredCount int       `json:"registeredCount"`
}

type EventResponse struct {
	Event Event `json:"event"`
}

type EventListResponse struct {
	Events []Event `json:"events"`
}

type CreateClubRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type Club struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
}

type ClubResponse struct {
	Club Club `json:"club"`
}

type ClubListResponse struct {
	Clubs []Club `json:"clubs"`
}

type UserListResponse struct {
	Users []Profile `json:"users"`
}

type Principal struct {
	UID           string                    `json:"uid"`
	Email         string                    `json:"email"`
	DisplayName   string                    `json:"displayName"`
	EmailVerified bool                      `json:"emailVerified"`
	Disabled      bool                      `json:"disabled"`
	Metadata      PrincipalMetadata         `json:"metadata"`
	CustomClaims  nullable.Nullable[Claims] `json:"customClaims,omitempty"`
}

type PrincipalMetadata struct {
	CreationTime   *time.Time `json:"creationTime,omitempty"`
	LastSignInTime *time.Time `json:"lastSignInTime,omitempty"`
}

type Claims struct {
	Role  string `json:"role,omitempty"`
	Admin bool   `json:"admin,omitempty"`
}

type PrincipalListResponse struct {
	Users []Principal `json:"users"`
}

type ElevateResponse struct {
	Message string `json:"message"`
}

func meUserFromDomain(u domain.ResolvedUser) MeUser {
	out := MeUser{
		ID:          string(u.ID),
		Email:       u.Email,
		DisplayName: u.Name(),
		Role:        string(u.Role),
		IsAdmin:     u.IsAdmin(),
	}
	if u.Profile != nil {
		p := profileFromDomain(*u.Profile)
		out.Profile = &p
	}
	return out
}

func profileFromDomain(u domain.User) Profile {
	out := Profile{
		ID:       string(u.ID),
		Email:    u.Email,
		Name:     u.Name,
		Phone:    u.Phone,
		Location: u.Location,
		Bio:      u.Bio,
		Role:     string(u.Role),
	}
	if !u.CreatedAt.IsZero() {
		t := u.CreatedAt.UTC()
		out.CreatedAt = &t
	}
	return out
}

func eventFromDomain(e domain.Event) Event {
	users := make([]string, 0, len(e.RegisteredUsers))
	for _, id := range e.RegisteredUsers {
		users = append(users, string(id))
	}
	return Event{
		ID:              string(e.ID),
		Title:           e.Title,
		Description:     e.Description,
		Date:            e.Date,
		Time:            e.Time,
		Location:        e.Location,
		Club:            e.Club,
		Category:        e.Category,
		Price:           e.Price,
		MaxParticipants: e.MaxParticipants,
		ImageURL:        e.ImageURL,
		CreatedAt:       e.CreatedAt.UTC(),
		RegisteredUsers: users,
		RegisteredCount: len(users),
	}
}

func eventsFromDomain(es []domain.Event) []Event {
	out := make([]Event, 0, len(es))
	for _, e := range es {
		out = append(out, eventFromDomain(e))
	}
	return out
}

func clubFromDomain(c domain.Club) Club {
	return Club{
		ID:          string(c.ID),
		Name:        c.Name,
		Description: c.Description,
		CreatedAt:   c.CreatedAt.UTC(),
	}
}

func principalFromRecord(r identity.PrincipalRecord) Principal {
	out := Principal{
		UID:           string(r.ID),
		Email:         r.Email,
		DisplayName:   r.DisplayName,
		EmailVerified: r.EmailVerified,
		Disabled:      r.Disabled,
	}
	if !r.CreatedAt.IsZero() {
		t := r.CreatedAt.UTC()
		out.Metadata.CreationTime = &t
	}
	if !r.LastSignInAt.IsZero() {
		t := r.LastSignInAt.UTC()
		out.Metadata.LastSignInTime = &t
	}
	if r.CustomClaims.Role != "" || r.CustomClaims.Admin {
		out.CustomClaims = nullable.NewNullableWithValue(Claims{Role: string(r.CustomClaims.Role), Admin: r.CustomClaims.Admin})
	} else {
		out.CustomClaims = nullable.NewNullNullable[Claims]()
	}
	return out
}

package events

import "github.com/campus-events/eventhub-api/internal/domain"

// Collection holds one document per event.
const Collection = "events"

// CreateInput carries the caller-supplied event fields. The registry does not validate
// them; the HTTP layer does.
type CreateInput struct {
	Title           string
	Description     string
	Date            string
	Time            string
	Location        string
	Club            string
	Category        string
	Price           float64
	MaxParticipants int
	ImageURL        string
}

type ChangeKind string

const (
	ChangeRefreshed ChangeKind = "refreshed"
	ChangeCreated   ChangeKind = "created"
	ChangeUpdated   ChangeKind = "updated"
	ChangeDeleted   ChangeKind = "deleted"
)

// Change describes one local snapshot mutation. Event is nil for ChangeRefreshed.
type Change struct {
	Kind  ChangeKind
	Event *domain.Event
}

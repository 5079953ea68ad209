package domain

import (
	"slices"
	"time"
)

// Event is a scheduled activity users can register for.
//
// RegisteredUsers keeps insertion order and holds each user id at most once.
type Event struct {
	ID              EventID
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
	CreatedAt       time.Time
	RegisteredUsers []UserID
}

func (e Event) Clone() Event {
	e.RegisteredUsers = slices.Clone(e.RegisteredUsers)
	if e.RegisteredUsers == nil {
		e.RegisteredUsers = []UserID{}
	}
	return e
}

func (e Event) IsRegistered(id UserID) bool {
	return slices.Contains(e.RegisteredUsers, id)
}

// WithRegistrant returns a copy with id appended. The receiver is not modified.
func (e Event) WithRegistrant(id UserID) Event {
	out := e.Clone()
	if !out.IsRegistered(id) {
		out.RegisteredUsers = append(out.RegisteredUsers, id)
	}
	return out
}

// WithoutRegistrant returns a copy with every occurrence of id removed.
func (e Event) WithoutRegistrant(id UserID) Event {
	out := e.Clone()
	out.RegisteredUsers = slices.DeleteFunc(out.RegisteredUsers, func(u UserID) bool { return u == id })
	return out
}

// EventFilter narrows an event listing. Zero-valued fields match everything.
type EventFilter struct {
	// Query matches title or description, case-insensitively.
	Query    string
	// Category matches the event category, ignoring case and surrounding whitespace.
	Category string
	// Club matches the event club name, ignoring case.
	Club     string
}

func (f EventFilter) IsZero() bool {
	return f.Query == "" && f.Category == "" && f.Club == ""
}

func (f EventFilter) Matches(e Event) bool {
	if f.Category != "" && FoldName(e.Category) != FoldName(f.Category) {
		return false
	}
	if f.Club != "" && FoldName(e.Club) != FoldName(f.Club) {
		return false
	}
	return ContainsFold(e.Title, f.Query) || ContainsFold(e.Description, f.Query)
}

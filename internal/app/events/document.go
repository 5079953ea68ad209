package events

import (
	"github.com/campus-events/eventhub-api/internal/domain"
	"github.com/campus-events/eventhub-api/internal/ports/out/docstore"
)

func eventFields(e domain.Event) docstore.Fields {
	return docstore.Fields{
		"title":           e.Title,
		"description":     e.Description,
		"date":            e.Date,
		"time":            e.Time,
		"location":        e.Location,
		"club":            e.Club,
		"category":        e.Category,
		"price":           e.Price,
		"maxParticipants": e.MaxParticipants,
		"imageUrl":        e.ImageURL,
		"createdAt":       domain.FormatTimestamp(e.CreatedAt),
		"registeredUsers": registrantFields(e.RegisteredUsers),
	}
}

func registrantFields(ids []domain.UserID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, string(id))
	}
	return out
}

func eventFromDocument(d docstore.Document) domain.Event {
	f := d.Fields
	e := domain.Event{
		ID:              domain.EventID(d.ID),
		Title:           f.String("title"),
		Description:     f.String("description"),
		Date:            f.String("date"),
		Time:            f.String("time"),
		Location:        f.String("location"),
		Club:            f.String("club"),
		Category:        f.String("category"),
		Price:           f.Float("price"),
		MaxParticipants: f.Int("maxParticipants"),
		ImageURL:        f.String("imageUrl"),
		RegisteredUsers: []domain.UserID{},
	}
	e.CreatedAt, _ = domain.ParseTimestamp(f.String("createdAt"))
	seen := make(map[domain.UserID]struct{})
	for _, s := range f.Strings("registeredUsers") {
		id := domain.UserID(s)
		if _, dup := seen[id]; dup || id == "" {
			continue
		}
		seen[id] = struct{}{}
		e.RegisteredUsers = append(e.RegisteredUsers, id)
	}
	return e
}

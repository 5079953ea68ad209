package domain

import "time"

// Club is a student organisation. Names are unique under FoldName.
type Club struct {
	ID          ClubID
	Name        string
	Description string
	CreatedAt   time.Time
}

func (c Club) Matches(query string) bool {
	return ContainsFold(c.Name, query) || ContainsFold(c.Description, query)
}

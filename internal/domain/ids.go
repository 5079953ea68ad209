package domain

// UserID is the identity-provider principal id. User profile documents are keyed by it.
// We model it as an opaque identifier: its format is controlled by the identity provider.
type UserID string

// EventID identifies an event document.
type EventID string

// ClubID identifies a club document.
type ClubID string

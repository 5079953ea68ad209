package clock

import "time"

// Clock provides time to the application.
// Registries and the identity provider stamp createdAt and token lifetimes through it.
type Clock interface {
	Now() time.Time
}

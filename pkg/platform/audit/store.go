package audit

import "context"

// Store persists audit events. Implementations must not mutate the event.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByToken(ctx context.Context, token string) ([]Event, error)
}

package session

import "context"

// AuthPort is the backend authentication service.
//
// SignIn, SignUp and SignOut return the event they caused so the caller can
// apply it immediately; asynchronous changes (token expiry, refresh) are
// delivered on Events. Both share one sequence.
type AuthPort interface {
	CurrentUser(ctx context.Context) (Session, error)
	SignIn(ctx context.Context, c Credentials) (Event, error)
	SignUp(ctx context.Context, c Credentials) (Event, error)
	SignOut(ctx context.Context) (Event, error)
	Events() <-chan Event
}

package interfaces

import (
	"context"
	"time"
)

// -----------------------------------------------------------------------------
// IOperatingWindow gates the supervisor by time of day.
// -----------------------------------------------------------------------------

type IOperatingWindow interface {
	GetOperatingWindow(now time.Time) (start time.Time, end time.Time)
	IsWithinWindow(now time.Time) bool
}

// -----------------------------------------------------------------------------
// IAuthenticator gates session start on a valid brokerage token.
// -----------------------------------------------------------------------------

type IAuthenticator interface {
	IsAuthenticated(ctx context.Context) bool
	Reauthenticate(ctx context.Context) error
	AccessToken() string
}

// -----------------------------------------------------------------------------
// ITokenStore accepts a freshly issued access token from an operator.
// -----------------------------------------------------------------------------

type ITokenStore interface {
	SaveToken(token string) error
}

package service

import (
	"context"

	"github.com/bravo68web/gitolfs/internal/domain/models"
)

// TokenService defines the durable bearer-token store interface.
// One token file exists per user; writes are atomic so concurrent
// readers never observe partial contents.
type TokenService interface {
	// LoadOrCreate returns a valid token for user, minting a fresh one
	// when none exists or the stored one has expired. Expired files are
	// deleted before the replacement is created.
	LoadOrCreate(user string) (*models.Token, error)

	// Load returns the token only when the file exists, has not
	// expired, and password matches. Failures surface as
	// errors.ErrInvalidCredentials / ErrTokenExpired.
	Load(user, password string) (*models.Token, error)

	// ExtendTTL pushes the expiry to now + ttl and persists
	ExtendTTL(t *models.Token) error

	// Revalidate re-queries the oracle for every grant the token
	// carries, drops grants that no longer pass, then extends the TTL.
	Revalidate(ctx context.Context, t *models.Token, oracle AccessService) error

	// Flush persists the token to disk
	Flush(t *models.Token) error

	// Delete removes the token file for user if present
	Delete(user string) error

	// Prune deletes every expired token file and reports how many were removed
	Prune() (int, error)
}

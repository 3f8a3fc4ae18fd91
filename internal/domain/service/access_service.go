package service

import (
	"context"

	"github.com/bravo68web/gitolfs/internal/domain/models"
)

// AccessService answers whether a user may perform an action on a
// repository. The reference implementation shells out to gitolite; the
// interface exists so the decision procedure can be swapped (and faked
// in tests).
type AccessService interface {
	// PrepareRepoName canonicalizes a raw repository name: strips a
	// trailing ".git" and normalizes path separators. Idempotent.
	PrepareRepoName(raw string) string

	// HasAccess consults the external source of truth. It returns
	// false, never an error, when the oracle is unreachable: access
	// checks fail closed.
	HasAccess(ctx context.Context, repo, user string, action models.Action) bool
}

package tokens

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bravo68web/gitolfs/internal/config"
	"github.com/bravo68web/gitolfs/internal/domain/models"
	apperrors "github.com/bravo68web/gitolfs/pkg/errors"
)

// stubOracle answers access checks from a fixed allow set
type stubOracle struct {
	allowed map[string]bool
}

func (o *stubOracle) PrepareRepoName(raw string) string { return raw }

func (o *stubOracle) HasAccess(ctx context.Context, repo, user string, action models.Action) bool {
	return o.allowed[repo+"|"+action.String()]
}

func newTestTokenStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(&config.TokenConfig{
		Dir:            t.TempDir(),
		TTLSeconds:     7200,
		PasswordLength: 24,
	})
	require.NoError(t, err)
	return store
}

func TestStoreLoadOrCreateMintsAndPersists(t *testing.T) {
	store := newTestTokenStore(t)

	tok, err := store.LoadOrCreate("alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", tok.User)
	assert.Len(t, tok.Password, 24)
	assert.True(t, tok.ExpiresAt.After(time.Now()))

	// Second call returns the same token, not a new one
	again, err := store.LoadOrCreate("alice")
	require.NoError(t, err)
	assert.Equal(t, tok.Password, again.Password)

	// The file round-trips through Load with the right password
	loaded, err := store.Load("alice", tok.Password)
	require.NoError(t, err)
	assert.Equal(t, tok.User, loaded.User)
}

func TestStoreGeneratedPasswordAlphabet(t *testing.T) {
	store := newTestTokenStore(t)

	for i := 0; i < 10; i++ {
		pw, err := store.generatePassword()
		require.NoError(t, err)
		assert.Len(t, pw, 24)
		for _, c := range pw {
			assert.Contains(t, passwordAlphabet, string(c))
		}
	}
}

func TestStoreLoadRejectsBadCredentials(t *testing.T) {
	store := newTestTokenStore(t)

	_, err := store.Load("nobody", "anything")
	assert.True(t, apperrors.IsUnauthorized(err))

	tok, err := store.LoadOrCreate("alice")
	require.NoError(t, err)

	_, err = store.Load("alice", tok.Password+"x")
	assert.True(t, apperrors.IsUnauthorized(err))
}

func TestStoreExpiredTokenIsReaped(t *testing.T) {
	store := newTestTokenStore(t)

	tok, err := store.LoadOrCreate("alice")
	require.NoError(t, err)

	// Jump past the expiry
	store.now = func() time.Time { return tok.ExpiresAt.Add(time.Minute) }

	_, err = store.Load("alice", tok.Password)
	assert.True(t, apperrors.IsUnauthorized(err))
	assert.ErrorIs(t, err, apperrors.ErrTokenExpired)

	// The expired file is gone
	_, statErr := os.Stat(filepath.Join(store.dir, "alice"))
	assert.True(t, os.IsNotExist(statErr))

	// LoadOrCreate mints a replacement with a fresh password
	fresh, err := store.LoadOrCreate("alice")
	require.NoError(t, err)
	assert.NotEqual(t, tok.Password, fresh.Password)
}

func TestStoreFlushPersistsPrivileges(t *testing.T) {
	store := newTestTokenStore(t)

	tok, err := store.LoadOrCreate("alice")
	require.NoError(t, err)

	tok.AddPrivilege("proj/repo", models.ActionUpload)
	require.NoError(t, store.Flush(tok))

	loaded, err := store.Load("alice", tok.Password)
	require.NoError(t, err)
	assert.True(t, loaded.HasPrivilege("proj/repo", models.ActionUpload))
	assert.False(t, loaded.HasPrivilege("proj/repo", models.ActionDownload))
}

func TestStoreRevalidateDropsRevokedGrants(t *testing.T) {
	store := newTestTokenStore(t)

	tok, err := store.LoadOrCreate("alice")
	require.NoError(t, err)
	tok.AddPrivilege("kept/repo", models.ActionDownload)
	tok.AddPrivilege("lost/repo", models.ActionUpload)
	require.NoError(t, store.Flush(tok))

	oracle := &stubOracle{allowed: map[string]bool{"kept/repo|download": true}}
	before := tok.ExpiresAt
	time.Sleep(10 * time.Millisecond)
	require.NoError(t, store.Revalidate(context.Background(), tok, oracle))

	assert.True(t, tok.HasPrivilege("kept/repo", models.ActionDownload))
	assert.False(t, tok.HasPrivilege("lost/repo", models.ActionUpload))
	assert.True(t, tok.ExpiresAt.After(before), "revalidation extends the TTL")

	// The dropped grant is gone from disk too
	loaded, err := store.Load("alice", tok.Password)
	require.NoError(t, err)
	assert.False(t, loaded.HasPrivilege("lost/repo", models.ActionUpload))
}

func TestStoreRejectsHostileUserNames(t *testing.T) {
	store := newTestTokenStore(t)

	for _, user := range []string{"", ".", "..", "a/b", `a\b`} {
		_, err := store.LoadOrCreate(user)
		assert.True(t, apperrors.IsUnauthorized(err), "user %q must be rejected", user)
	}
}

func TestStoreDiscardsCorruptTokenFile(t *testing.T) {
	store := newTestTokenStore(t)

	path := filepath.Join(store.dir, "mallory")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := store.Load("mallory", "pw")
	assert.True(t, apperrors.IsUnauthorized(err))

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "corrupt file is removed")
}

func TestStorePrune(t *testing.T) {
	store := newTestTokenStore(t)

	live, err := store.LoadOrCreate("alive")
	require.NoError(t, err)

	expired := models.NewToken("stale", strings.Repeat("x", 24), time.Now().Add(-time.Hour))
	require.NoError(t, store.Flush(expired))

	removed, err := store.Prune()
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = store.Load("alive", live.Password)
	assert.NoError(t, err)
	_, statErr := os.Stat(filepath.Join(store.dir, "stale"))
	assert.True(t, os.IsNotExist(statErr))
}

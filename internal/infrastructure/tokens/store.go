package tokens

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bravo68web/gitolfs/internal/config"
	"github.com/bravo68web/gitolfs/internal/domain/models"
	"github.com/bravo68web/gitolfs/internal/domain/service"
	apperrors "github.com/bravo68web/gitolfs/pkg/errors"
	"github.com/bravo68web/gitolfs/pkg/logger"
)

// passwordAlphabet is the 62-character alphanumeric alphabet used for
// generated token secrets
const passwordAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// Store implements the TokenService interface with one JSON file per
// user in a configured directory. Every write goes through a tempfile
// and an atomic rename, so concurrent readers never observe a
// half-written token.
type Store struct {
	dir         string
	ttl         time.Duration
	passwordLen int
	log         *logger.Logger

	// now is swappable for expiry tests
	now func() time.Time
}

// NewStore creates a token store rooted at the configured directory
func NewStore(cfg *config.TokenConfig) (*Store, error) {
	dir := cfg.Directory()
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create token directory: %w", err)
	}

	passwordLen := cfg.PasswordLength
	if passwordLen == 0 {
		passwordLen = 24
	}
	ttl := cfg.TTL()
	if ttl == 0 {
		ttl = 7200 * time.Second
	}

	return &Store{
		dir:         dir,
		ttl:         ttl,
		passwordLen: passwordLen,
		log:         logger.Get().WithFields(logger.Component("token-store")),
		now:         time.Now,
	}, nil
}

// tokenPath returns the file path for a user's token, rejecting user
// names that could escape the token directory
func (s *Store) tokenPath(user string) (string, error) {
	if user == "" || strings.ContainsAny(user, "/\\") || user == "." || user == ".." {
		return "", apperrors.Unauthorized("invalid user name", apperrors.ErrInvalidCredentials)
	}
	return filepath.Join(s.dir, user), nil
}

// generatePassword draws passwordLen characters uniformly from the
// alphanumeric alphabet using a cryptographically secure source.
// Rejection sampling keeps the distribution unbiased.
func (s *Store) generatePassword() (string, error) {
	out := make([]byte, 0, s.passwordLen)
	buf := make([]byte, s.passwordLen*2)
	// 248 is the largest multiple of 62 below 256
	const limit = 248
	for len(out) < s.passwordLen {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("failed to read random bytes: %w", err)
		}
		for _, b := range buf {
			if b >= limit {
				continue
			}
			out = append(out, passwordAlphabet[int(b)%len(passwordAlphabet)])
			if len(out) == s.passwordLen {
				break
			}
		}
	}
	return string(out), nil
}

// read loads and decodes a token file; the boolean reports presence
func (s *Store) read(user string) (*models.Token, bool, error) {
	path, err := s.tokenPath(user)
	if err != nil {
		return nil, false, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, apperrors.InternalError("failed to read token file", err)
	}

	var t models.Token
	if err := json.Unmarshal(data, &t); err != nil {
		// A corrupt token file is unusable; treat as absent
		s.log.Warn("discarding unparseable token file",
			logger.User(user),
			logger.Error(err),
		)
		_ = os.Remove(path)
		return nil, false, nil
	}
	if t.Privileges == nil {
		t.Privileges = make(map[string][]models.Action)
	}
	return &t, true, nil
}

// LoadOrCreate returns a valid token for user, minting a fresh one when
// none exists or the stored one has expired
func (s *Store) LoadOrCreate(user string) (*models.Token, error) {
	t, ok, err := s.read(user)
	if err != nil {
		return nil, err
	}
	if ok && !t.Expired(s.now()) {
		return t, nil
	}
	if ok {
		// Expired: reap before minting a replacement
		if err := s.Delete(user); err != nil {
			return nil, err
		}
	}

	password, err := s.generatePassword()
	if err != nil {
		return nil, apperrors.InternalError("failed to generate token password", err)
	}

	t = models.NewToken(user, password, s.now().Add(s.ttl))
	if err := s.Flush(t); err != nil {
		return nil, err
	}

	s.log.Info("minted token",
		logger.User(user),
		logger.Time("expires_at", t.ExpiresAt),
	)
	return t, nil
}

// Load returns the token only when the file exists, has not expired,
// and password matches in constant time
func (s *Store) Load(user, password string) (*models.Token, error) {
	t, ok, err := s.read(user)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.Unauthorized("", apperrors.ErrInvalidCredentials)
	}
	if t.Expired(s.now()) {
		_ = s.Delete(user)
		return nil, apperrors.Unauthorized("", apperrors.ErrTokenExpired)
	}
	if !t.CheckPassword(password) {
		return nil, apperrors.Unauthorized("", apperrors.ErrInvalidCredentials)
	}
	return t, nil
}

// ExtendTTL pushes the expiry to now + ttl and persists
func (s *Store) ExtendTTL(t *models.Token) error {
	t.ExpiresAt = s.now().Add(s.ttl)
	return s.Flush(t)
}

// Revalidate re-queries the oracle for every grant the token carries,
// drops grants that no longer pass, then extends the TTL
func (s *Store) Revalidate(ctx context.Context, t *models.Token, oracle service.AccessService) error {
	for _, g := range t.Grants() {
		if !oracle.HasAccess(ctx, g.Repo, t.User, g.Action) {
			s.log.Info("dropping revoked privilege",
				logger.User(t.User),
				logger.Repository(g.Repo),
				logger.Action(g.Action.String()),
			)
			t.RemovePrivilege(g.Repo, g.Action)
		}
	}
	return s.ExtendTTL(t)
}

// Flush persists the token with a tempfile + atomic rename. The file is
// pretty-printed for operational inspection.
func (s *Store) Flush(t *models.Token) error {
	path, err := s.tokenPath(t.User)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return apperrors.InternalError("failed to encode token", err)
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(s.dir, t.User+".tmp-*")
	if err != nil {
		return apperrors.InternalError("failed to create token tempfile", err)
	}
	tmpName := tmp.Name()

	_, werr := tmp.Write(data)
	if cerr := tmp.Close(); werr == nil {
		werr = cerr
	}
	if werr == nil {
		werr = os.Chmod(tmpName, 0o600)
	}
	if werr == nil {
		werr = os.Rename(tmpName, path)
	}
	if werr != nil {
		_ = os.Remove(tmpName)
		return apperrors.InternalError("failed to write token file", werr)
	}
	return nil
}

// Delete removes the token file for user if present
func (s *Store) Delete(user string) error {
	path, err := s.tokenPath(user)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return apperrors.InternalError("failed to delete token file", err)
	}
	return nil
}

// Prune deletes every expired token file and reports how many were removed
func (s *Store) Prune() (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, apperrors.InternalError("failed to list token directory", err)
	}

	removed := 0
	for _, e := range entries {
		if e.IsDir() || strings.Contains(e.Name(), ".tmp-") {
			continue
		}
		t, ok, err := s.read(e.Name())
		if err != nil || !ok {
			continue
		}
		if t.Expired(s.now()) {
			if err := s.Delete(e.Name()); err == nil {
				removed++
			}
		}
	}
	return removed, nil
}

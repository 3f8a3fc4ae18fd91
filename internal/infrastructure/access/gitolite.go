package access

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/bravo68web/gitolfs/internal/domain/models"
	"github.com/bravo68web/gitolfs/pkg/logger"
)

// GitoliteOracle implements the AccessService interface by invoking the
// gitolite binary:
//
//	gitolite access -q <repo> <user> <R|W>
//
// Exit status 0 means allowed; anything else means denied. The binary
// is spawned argv-style, never through a shell, so repo and user names
// cannot smuggle shell metacharacters.
type GitoliteOracle struct {
	binDir string
	log    *logger.Logger
}

// NewGitoliteOracle creates an oracle using the gitolite binary found
// in binDir. An empty binDir means every access check fails closed.
func NewGitoliteOracle(binDir string) *GitoliteOracle {
	return &GitoliteOracle{
		binDir: binDir,
		log:    logger.Get().WithFields(logger.Component("gitolite-oracle")),
	}
}

// PrepareRepoName canonicalizes a raw repository name: strips a
// trailing ".git" and normalizes backslashes to forward slashes.
// Applying it twice is the same as applying it once.
func (o *GitoliteOracle) PrepareRepoName(raw string) string {
	repo := strings.ReplaceAll(raw, "\\", "/")
	repo = strings.TrimSuffix(repo, ".git")
	return repo
}

// permFor maps an LFS action onto gitolite's permission letters
func permFor(action models.Action) string {
	if action == models.ActionUpload {
		return "W"
	}
	return "R"
}

// HasAccess asks gitolite whether (user, repo, action) is permitted.
// Any failure to run the binary denies access.
func (o *GitoliteOracle) HasAccess(ctx context.Context, repo, user string, action models.Action) bool {
	if o.binDir == "" {
		o.log.Error("gitolite binary directory not configured; denying access",
			logger.Repository(repo),
			logger.User(user),
		)
		return false
	}

	bin := filepath.Join(o.binDir, "gitolite")
	if info, err := os.Stat(bin); err != nil || info.IsDir() {
		o.log.Error("gitolite binary not found; denying access",
			logger.String("path", bin),
			logger.Error(err),
		)
		return false
	}

	cmd := exec.CommandContext(ctx, bin, "access", "-q", repo, user, permFor(action))
	err := cmd.Run()
	if err != nil {
		if _, isExit := err.(*exec.ExitError); !isExit {
			o.log.Error("failed to invoke gitolite; denying access",
				logger.String("path", bin),
				logger.Error(err),
			)
		}
		return false
	}
	return true
}

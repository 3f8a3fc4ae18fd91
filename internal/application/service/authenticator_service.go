package service

import (
	"context"

	"github.com/bravo68web/gitolfs/internal/config"
	"github.com/bravo68web/gitolfs/internal/domain/models"
	domainservice "github.com/bravo68web/gitolfs/internal/domain/service"
	apperrors "github.com/bravo68web/gitolfs/pkg/errors"
	"github.com/bravo68web/gitolfs/pkg/logger"
)

// AuthenticatorService implements the SSH forced-command workflow: a
// trusted transport has already authenticated the user; this service
// verifies the requested (repo, action) against the oracle, refreshes
// the user's token, and returns the credential block the git client
// forwards to its HTTP layer.
type AuthenticatorService struct {
	cfg    *config.Config
	tokens domainservice.TokenService
	oracle domainservice.AccessService
	log    *logger.Logger
}

// NewAuthenticatorService creates a new authenticator service
func NewAuthenticatorService(
	cfg *config.Config,
	tokens domainservice.TokenService,
	oracle domainservice.AccessService,
) *AuthenticatorService {
	return &AuthenticatorService{
		cfg:    cfg,
		tokens: tokens,
		oracle: oracle,
		log:    logger.Get().WithFields(logger.Component("authenticator")),
	}
}

// Authenticate runs the per-invocation protocol and returns the
// credential block on success.
func (s *AuthenticatorService) Authenticate(ctx context.Context, user, rawRepo, rawAction string) (models.Credentials, error) {
	if user == "" {
		return models.Credentials{}, apperrors.Unauthorized("no authenticated user in environment", apperrors.ErrMissingCredentials)
	}

	repo := s.oracle.PrepareRepoName(rawRepo)
	if !s.cfg.AllowsRepository(repo) {
		s.log.Warn("repository not in allowlist",
			logger.User(user),
			logger.Repository(repo),
		)
		return models.Credentials{}, apperrors.NotFound("repository", apperrors.ErrUnknownRepo)
	}

	action, err := models.ParseAction(rawAction)
	if err != nil {
		return models.Credentials{}, apperrors.Validation("action must be download or upload", apperrors.ErrInvalidAction)
	}

	token, err := s.tokens.LoadOrCreate(user)
	if err != nil {
		return models.Credentials{}, err
	}

	// Strip grants the oracle no longer honors; extends the TTL
	if err := s.tokens.Revalidate(ctx, token, s.oracle); err != nil {
		return models.Credentials{}, err
	}

	if !s.oracle.HasAccess(ctx, repo, user, action) {
		// Defensive: make sure a stale grant cannot linger
		token.RemovePrivilege(repo, action)
		if err := s.tokens.Flush(token); err != nil {
			return models.Credentials{}, err
		}
		s.log.Warn("access denied by oracle",
			logger.User(user),
			logger.Repository(repo),
			logger.Action(action.String()),
		)
		return models.Credentials{}, apperrors.Forbidden("access denied", apperrors.ErrNoPrivilege)
	}

	token.AddPrivilege(repo, action)
	if err := s.tokens.Flush(token); err != nil {
		return models.Credentials{}, err
	}

	s.log.Info("authenticated",
		logger.User(user),
		logger.Repository(repo),
		logger.Action(action.String()),
		logger.Time("expires_at", token.ExpiresAt),
	)
	return token.Credentials(), nil
}

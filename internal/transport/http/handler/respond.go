package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/bravo68web/gitolfs/internal/application/dto"
	"github.com/bravo68web/gitolfs/internal/config"
	domainservice "github.com/bravo68web/gitolfs/internal/domain/service"
	"github.com/bravo68web/gitolfs/internal/transport/http/middleware"
	apperrors "github.com/bravo68web/gitolfs/pkg/errors"
)

// respondError writes the JSON error body. Internal detail is logged
// by callers, never returned to the client.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	message := "an internal error occurred"

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		status = appErr.HTTPStatus()
		message = appErr.Message
	}

	c.AbortWithStatusJSON(status, dto.ErrorResponse{
		Message:   message,
		RequestID: middleware.GetRequestID(c),
	})
}

// abortWithStatus writes an error body for a fixed status and message
func abortWithStatus(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, dto.ErrorResponse{
		Message:   message,
		RequestID: middleware.GetRequestID(c),
	})
}

// repoFromParams canonicalizes the :owner/:repo route parameters and
// checks them against the configured allowlist. The allowlist check
// runs before anything touches the filesystem, so a hostile repo name
// never reaches a path operation.
func repoFromParams(c *gin.Context, oracle domainservice.AccessService, cfg *config.Config) (string, error) {
	raw := c.Param("owner") + "/" + c.Param("repo")
	repo := oracle.PrepareRepoName(raw)
	if !cfg.AllowsRepository(repo) {
		return "", apperrors.NotFound("repository", apperrors.ErrUnknownRepo)
	}
	return repo, nil
}

// requestBaseURL reconstructs scheme://host from the request, honoring
// a fronting proxy's X-Forwarded-Proto
func requestBaseURL(c *gin.Context) string {
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	if proto := c.GetHeader("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	return scheme + "://" + c.Request.Host
}

// hasLFSMediaType reports whether the header value names the git-lfs
// JSON media type; a substring match tolerates parameters like charset
func hasLFSMediaType(value string) bool {
	return strings.Contains(value, dto.MediaType)
}

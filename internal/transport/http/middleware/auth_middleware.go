package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bravo68web/gitolfs/internal/application/dto"
	"github.com/bravo68web/gitolfs/internal/domain/models"
	domainservice "github.com/bravo68web/gitolfs/internal/domain/service"
	"github.com/bravo68web/gitolfs/pkg/logger"
)

// TokenContextKey is the gin context key for the authenticated token
const TokenContextKey = "lfs_token"

// BasicRealm is the challenge sent on authentication failures. git-lfs
// reads the LFS-Authenticate echo of the same value.
const BasicRealm = `Basic realm="Git LFS"`

// AuthMiddleware authenticates every request against the token store
// using HTTP Basic credentials. Transfers are stateless: each request
// re-authenticates.
type AuthMiddleware struct {
	tokens domainservice.TokenService
	log    *logger.Logger
}

// NewAuthMiddleware creates a new AuthMiddleware instance
func NewAuthMiddleware(tokens domainservice.TokenService) *AuthMiddleware {
	return &AuthMiddleware{
		tokens: tokens,
		log:    logger.Get().WithFields(logger.Component("auth-middleware")),
	}
}

// RequireToken rejects requests without a valid, unexpired token
func (m *AuthMiddleware) RequireToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, password, ok := c.Request.BasicAuth()
		if !ok {
			m.challenge(c, "credentials required")
			return
		}

		token, err := m.tokens.Load(user, password)
		if err != nil {
			m.log.Warn("token authentication failed",
				logger.User(user),
				logger.Path(c.Request.URL.Path),
				logger.Error(err),
			)
			m.challenge(c, "invalid credentials")
			return
		}

		c.Set(TokenContextKey, token)
		c.Next()
	}
}

// challenge aborts with 401 and the Basic challenge headers
func (m *AuthMiddleware) challenge(c *gin.Context, message string) {
	c.Header("WWW-Authenticate", BasicRealm)
	c.Header("LFS-Authenticate", BasicRealm)
	c.AbortWithStatusJSON(http.StatusUnauthorized, dto.ErrorResponse{
		Message:   message,
		RequestID: GetRequestID(c),
	})
}

// TokenFromContext returns the authenticated token set by RequireToken
func TokenFromContext(c *gin.Context) (*models.Token, bool) {
	v, ok := c.Get(TokenContextKey)
	if !ok {
		return nil, false
	}
	t, ok := v.(*models.Token)
	return t, ok
}

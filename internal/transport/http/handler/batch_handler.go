package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bravo68web/gitolfs/internal/application/dto"
	"github.com/bravo68web/gitolfs/internal/application/service"
	"github.com/bravo68web/gitolfs/internal/config"
	"github.com/bravo68web/gitolfs/internal/domain/models"
	domainservice "github.com/bravo68web/gitolfs/internal/domain/service"
	"github.com/bravo68web/gitolfs/internal/transport/http/middleware"
	"github.com/bravo68web/gitolfs/pkg/logger"
)

// BatchHandler serves the LFS batch negotiation endpoint:
// POST /:owner/:repo/info/lfs/objects/batch
type BatchHandler struct {
	cfg    *config.Config
	oracle domainservice.AccessService
	batch  *service.BatchService
	log    *logger.Logger
}

// NewBatchHandler creates a new batch handler
func NewBatchHandler(
	cfg *config.Config,
	oracle domainservice.AccessService,
	batch *service.BatchService,
) *BatchHandler {
	return &BatchHandler{
		cfg:    cfg,
		oracle: oracle,
		batch:  batch,
		log:    logger.Get().WithFields(logger.Component("batch-handler")),
	}
}

// Batch handles the batch negotiation request
func (h *BatchHandler) Batch(c *gin.Context) {
	if !hasLFSMediaType(c.GetHeader("Accept")) {
		abortWithStatus(c, http.StatusNotAcceptable, "Accept header must be "+dto.MediaType)
		return
	}
	if !hasLFSMediaType(c.GetHeader("Content-Type")) {
		abortWithStatus(c, http.StatusNotAcceptable, "Content-Type header must be "+dto.MediaType)
		return
	}

	var req dto.BatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithStatus(c, http.StatusUnprocessableEntity, "malformed batch request body")
		return
	}
	if len(req.Objects) == 0 {
		abortWithStatus(c, http.StatusUnprocessableEntity, "batch request carries no objects")
		return
	}

	repo, err := repoFromParams(c, h.oracle, h.cfg)
	if err != nil {
		respondError(c, err)
		return
	}

	token, ok := middleware.TokenFromContext(c)
	if !ok {
		abortWithStatus(c, http.StatusUnauthorized, "authentication required")
		return
	}

	// The operation set is closed by construction: anything outside it
	// is a protocol version we do not speak.
	operation, err := models.ParseAction(req.Operation)
	if err != nil {
		abortWithStatus(c, http.StatusNotImplemented, "unknown batch operation")
		return
	}

	if !token.HasPrivilege(repo, operation) {
		h.log.Warn("privilege missing for batch",
			logger.User(token.User),
			logger.Repository(repo),
			logger.Action(operation.String()),
		)
		if operation == models.ActionUpload {
			// Writers learn the repo exists; readers do not
			abortWithStatus(c, http.StatusForbidden, "upload not permitted")
		} else {
			abortWithStatus(c, http.StatusNotFound, "repository not found")
		}
		return
	}

	objects := h.batch.Plan(c.Request.Context(), service.PlanInput{
		BaseURL:    requestBaseURL(c),
		Repo:       repo,
		Operation:  operation,
		AuthHeader: token.AuthHeader(),
		ExpiresAt:  token.ExpiresAt,
		Objects:    req.Objects,
	})

	c.Header("Content-Type", dto.MediaType)
	c.JSON(http.StatusOK, dto.BatchResponse{
		Transfer: dto.TransferBasic,
		Objects:  objects,
	})
}

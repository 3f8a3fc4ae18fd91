package handler

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/bravo68web/gitolfs/internal/application/dto"
	"github.com/bravo68web/gitolfs/internal/config"
	"github.com/bravo68web/gitolfs/internal/domain/models"
	domainservice "github.com/bravo68web/gitolfs/internal/domain/service"
	"github.com/bravo68web/gitolfs/internal/transport/http/middleware"
	apperrors "github.com/bravo68web/gitolfs/pkg/errors"
	"github.com/bravo68web/gitolfs/pkg/logger"
)

// TransferHandler serves the basic-adapter transfer endpoints under
// /:owner/:repo/info/lfs/objects/: upload (PUT), download (GET), and
// verify (POST). Every request re-authenticates through the Basic auth
// middleware; verify rides on the upload privilege.
type TransferHandler struct {
	cfg     *config.Config
	oracle  domainservice.AccessService
	content domainservice.ContentService
	log     *logger.Logger
}

// NewTransferHandler creates a new transfer handler
func NewTransferHandler(
	cfg *config.Config,
	oracle domainservice.AccessService,
	content domainservice.ContentService,
) *TransferHandler {
	return &TransferHandler{
		cfg:     cfg,
		oracle:  oracle,
		content: content,
		log:     logger.Get().WithFields(logger.Component("transfer-handler")),
	}
}

// authorize resolves the repo and checks the token privilege. Denials
// follow the batch policy: 403 when the intent is a write, 404 when it
// is a read (repository existence is not disclosed to readers).
func (h *TransferHandler) authorize(c *gin.Context, privilege models.Action) (repo string, token *models.Token, ok bool) {
	repo, err := repoFromParams(c, h.oracle, h.cfg)
	if err != nil {
		respondError(c, err)
		return "", nil, false
	}

	token, found := middleware.TokenFromContext(c)
	if !found {
		abortWithStatus(c, http.StatusUnauthorized, "authentication required")
		return "", nil, false
	}

	if !token.HasPrivilege(repo, privilege) {
		h.log.Warn("privilege missing for transfer",
			logger.User(token.User),
			logger.Repository(repo),
			logger.Action(privilege.String()),
		)
		if privilege == models.ActionUpload {
			abortWithStatus(c, http.StatusForbidden, "upload not permitted")
		} else {
			abortWithStatus(c, http.StatusNotFound, "repository not found")
		}
		return "", nil, false
	}
	return repo, token, true
}

// pointerFromQuery parses and validates the oid and size query params
func pointerFromQuery(c *gin.Context) (models.Pointer, bool) {
	oid := c.Query("oid")
	size, err := strconv.ParseInt(c.Query("size"), 10, 64)
	if err != nil || size < 0 || !models.ValidOID(oid) {
		abortWithStatus(c, http.StatusUnprocessableEntity, "invalid oid or size")
		return models.Pointer{}, false
	}
	return models.Pointer{OID: oid, Size: size}, true
}

// Upload streams the request body into the content store.
// PUT /:owner/:repo/info/lfs/objects/upload?oid=&size=
func (h *TransferHandler) Upload(c *gin.Context) {
	repo, token, ok := h.authorize(c, models.ActionUpload)
	if !ok {
		return
	}
	ptr, ok := pointerFromQuery(c)
	if !ok {
		return
	}

	if err := h.content.Put(c.Request.Context(), repo, ptr.OID, ptr.Size, c.Request.Body); err != nil {
		h.log.Error("upload failed",
			logger.User(token.User),
			logger.Repository(repo),
			logger.OID(ptr.OID),
			logger.Size(ptr.Size),
			logger.Error(err),
		)
		respondError(c, err)
		return
	}

	h.log.Info("object stored",
		logger.User(token.User),
		logger.Repository(repo),
		logger.OID(ptr.OID),
		logger.Size(ptr.Size),
	)
	c.Status(http.StatusOK)
}

// Download streams the object to the client.
// GET /:owner/:repo/info/lfs/objects/download?oid=&size=
func (h *TransferHandler) Download(c *gin.Context) {
	repo, token, ok := h.authorize(c, models.ActionDownload)
	if !ok {
		return
	}
	ptr, ok := pointerFromQuery(c)
	if !ok {
		return
	}

	rc, size, err := h.content.Get(c.Request.Context(), repo, ptr.OID)
	if err != nil {
		respondError(c, err)
		return
	}
	defer rc.Close()

	c.Header("Content-Type", "application/octet-stream")
	// Keep proxies from buffering large objects
	c.Header("X-Accel-Buffering", "no")
	if size != domainservice.SizeUnknown {
		c.Header("Content-Length", strconv.FormatInt(size, 10))
	}
	c.Status(http.StatusOK)

	buf := make([]byte, 32*1024)
	if _, err := io.CopyBuffer(c.Writer, rc, buf); err != nil {
		// Client went away mid-stream; nothing sensible left to send
		h.log.Warn("download aborted",
			logger.User(token.User),
			logger.Repository(repo),
			logger.OID(ptr.OID),
			logger.Error(err),
		)
	}
}

// Verify confirms an uploaded object is present with the declared size.
// POST /:owner/:repo/info/lfs/objects/verify
func (h *TransferHandler) Verify(c *gin.Context) {
	repo, _, ok := h.authorize(c, models.ActionUpload)
	if !ok {
		return
	}

	var req dto.VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithStatus(c, http.StatusUnprocessableEntity, "malformed verify request body")
		return
	}
	if !models.ValidOID(req.OID) || req.Size < 0 {
		abortWithStatus(c, http.StatusUnprocessableEntity, "invalid oid or size")
		return
	}

	exists, err := h.content.Exists(c.Request.Context(), repo, req.OID, req.Size)
	if err != nil {
		respondError(c, err)
		return
	}
	if !exists {
		respondError(c, apperrors.NotFound("object", apperrors.ErrObjectNotFound))
		return
	}

	c.JSON(http.StatusOK, models.Pointer{OID: req.OID, Size: req.Size})
}

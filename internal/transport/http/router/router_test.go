package router_test

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bravo68web/gitolfs/internal/application/dto"
	appservice "github.com/bravo68web/gitolfs/internal/application/service"
	"github.com/bravo68web/gitolfs/internal/config"
	"github.com/bravo68web/gitolfs/internal/domain/models"
	"github.com/bravo68web/gitolfs/internal/infrastructure/storage"
	"github.com/bravo68web/gitolfs/internal/infrastructure/tokens"
	"github.com/bravo68web/gitolfs/internal/transport/http/handler"
	"github.com/bravo68web/gitolfs/internal/transport/http/middleware"
	"github.com/bravo68web/gitolfs/internal/transport/http/router"
)

// grantOracle answers access checks from a fixed allow set
type grantOracle struct {
	allowed map[string]bool
}

func (o *grantOracle) PrepareRepoName(raw string) string {
	return strings.TrimSuffix(strings.ReplaceAll(raw, `\`, "/"), ".git")
}

func (o *grantOracle) HasAccess(ctx context.Context, repo, user string, action models.Action) bool {
	return o.allowed[repo+"|"+action.String()]
}

type fixture struct {
	engine *gin.Engine
	tokens *tokens.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		Repositories: []string{"proj/repo"},
		Tokens: config.TokenConfig{
			Dir:            t.TempDir(),
			TTLSeconds:     7200,
			PasswordLength: 24,
		},
	}

	content, err := storage.NewFilesystemStore(storage.FilesystemConfig{
		Root:   t.TempDir(),
		Verify: true,
	})
	require.NoError(t, err)

	tokenStore, err := tokens.NewStore(&cfg.Tokens)
	require.NoError(t, err)

	oracle := &grantOracle{allowed: map[string]bool{}}

	engine := gin.New()
	router.Register(engine, router.Handlers{
		Auth:     middleware.NewAuthMiddleware(tokenStore),
		Batch:    handler.NewBatchHandler(cfg, oracle, appservice.NewBatchService(content)),
		Transfer: handler.NewTransferHandler(cfg, oracle, content),
		Health:   handler.NewHealthHandler(),
	})

	return &fixture{engine: engine, tokens: tokenStore}
}

// mintToken creates a token for user carrying the given grants
func (f *fixture) mintToken(t *testing.T, user string, grants ...models.Grant) *models.Token {
	t.Helper()
	tok, err := f.tokens.LoadOrCreate(user)
	require.NoError(t, err)
	for _, g := range grants {
		tok.AddPrivilege(g.Repo, g.Action)
	}
	require.NoError(t, f.tokens.Flush(tok))
	return tok
}

func (f *fixture) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	return w
}

func batchRequest(t *testing.T, tok *models.Token, operation string, objects ...models.Pointer) *http.Request {
	t.Helper()
	body, err := json.Marshal(dto.BatchRequest{Operation: operation, Objects: objects})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/proj/repo/info/lfs/objects/batch", bytes.NewReader(body))
	req.Header.Set("Accept", dto.MediaType)
	req.Header.Set("Content-Type", dto.MediaType)
	if tok != nil {
		req.SetBasicAuth(tok.User, tok.Password)
	}
	return req
}

func digestOf(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

func TestHealthEndpoints(t *testing.T) {
	f := newFixture(t)

	w := f.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = f.do(httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestBatchRequiresCredentials(t *testing.T) {
	f := newFixture(t)

	w := f.do(batchRequest(t, nil, "download"))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, middleware.BasicRealm, w.Header().Get("WWW-Authenticate"))
	assert.Equal(t, middleware.BasicRealm, w.Header().Get("LFS-Authenticate"))

	var body dto.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.NotEmpty(t, body.Message)
}

func TestBatchRejectsBadCredentials(t *testing.T) {
	f := newFixture(t)
	tok := f.mintToken(t, "alice")

	req := batchRequest(t, tok, "download")
	req.SetBasicAuth("alice", tok.Password+"x")
	w := f.do(req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestBatchRequiresLFSMediaType(t *testing.T) {
	f := newFixture(t)
	tok := f.mintToken(t, "alice", models.Grant{Repo: "proj/repo", Action: models.ActionDownload})

	req := batchRequest(t, tok, "download")
	req.Header.Set("Accept", "application/json")
	assert.Equal(t, http.StatusNotAcceptable, f.do(req).Code)

	req = batchRequest(t, tok, "download")
	req.Header.Set("Content-Type", "application/json")
	assert.Equal(t, http.StatusNotAcceptable, f.do(req).Code)
}

func TestBatchRejectsMalformedBody(t *testing.T) {
	f := newFixture(t)
	tok := f.mintToken(t, "alice", models.Grant{Repo: "proj/repo", Action: models.ActionDownload})

	req := httptest.NewRequest(http.MethodPost, "/proj/repo/info/lfs/objects/batch",
		strings.NewReader("{not json"))
	req.Header.Set("Accept", dto.MediaType)
	req.Header.Set("Content-Type", dto.MediaType)
	req.SetBasicAuth(tok.User, tok.Password)
	assert.Equal(t, http.StatusUnprocessableEntity, f.do(req).Code)

	// Well-formed but empty object list
	w := f.do(batchRequest(t, tok, "download"))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestBatchUnknownRepository(t *testing.T) {
	f := newFixture(t)
	tok := f.mintToken(t, "alice")

	body, _ := json.Marshal(dto.BatchRequest{
		Operation: "download",
		Objects:   []models.Pointer{{OID: strings.Repeat("ab", 32), Size: 1}},
	})
	req := httptest.NewRequest(http.MethodPost, "/secret/repo/info/lfs/objects/batch", bytes.NewReader(body))
	req.Header.Set("Accept", dto.MediaType)
	req.Header.Set("Content-Type", dto.MediaType)
	req.SetBasicAuth(tok.User, tok.Password)

	assert.Equal(t, http.StatusNotFound, f.do(req).Code)
}

func TestBatchUnknownOperation(t *testing.T) {
	f := newFixture(t)
	tok := f.mintToken(t, "alice", models.Grant{Repo: "proj/repo", Action: models.ActionDownload})

	w := f.do(batchRequest(t, tok, "delete", models.Pointer{OID: strings.Repeat("ab", 32), Size: 1}))
	assert.Equal(t, http.StatusNotImplemented, w.Code)
}

func TestBatchPrivilegePolicy(t *testing.T) {
	f := newFixture(t)
	tok := f.mintToken(t, "alice")
	ptr := models.Pointer{OID: strings.Repeat("ab", 32), Size: 1}

	// Missing upload privilege discloses the denial
	w := f.do(batchRequest(t, tok, "upload", ptr))
	assert.Equal(t, http.StatusForbidden, w.Code)

	// Missing download privilege hides the repository
	w = f.do(batchRequest(t, tok, "download", ptr))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUploadDownloadVerifyFlow(t *testing.T) {
	f := newFixture(t)
	tok := f.mintToken(t, "alice",
		models.Grant{Repo: "proj/repo", Action: models.ActionUpload},
		models.Grant{Repo: "proj/repo", Action: models.ActionDownload},
	)

	content := []byte("the object payload")
	oid := digestOf(content)
	ptr := models.Pointer{OID: oid, Size: int64(len(content))}

	// Batch negotiation offers upload and verify links
	w := f.do(batchRequest(t, tok, "upload", ptr))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), dto.MediaType)

	var resp dto.BatchResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, dto.TransferBasic, resp.Transfer)
	require.Len(t, resp.Objects, 1)
	require.NotNil(t, resp.Objects[0].Actions)
	require.NotNil(t, resp.Objects[0].Actions.Upload)
	require.NotNil(t, resp.Objects[0].Actions.Verify)

	// Upload the bytes
	uploadPath := fmt.Sprintf("/proj/repo/info/lfs/objects/upload?oid=%s&size=%d", oid, ptr.Size)
	req := httptest.NewRequest(http.MethodPut, uploadPath, bytes.NewReader(content))
	req.SetBasicAuth(tok.User, tok.Password)
	require.Equal(t, http.StatusOK, f.do(req).Code)

	// Verify confirms presence
	verifyBody, _ := json.Marshal(dto.VerifyRequest{OID: oid, Size: ptr.Size})
	req = httptest.NewRequest(http.MethodPost, "/proj/repo/info/lfs/objects/verify", bytes.NewReader(verifyBody))
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(tok.User, tok.Password)
	require.Equal(t, http.StatusOK, f.do(req).Code)

	// A second upload negotiation skips the stored object
	w = f.do(batchRequest(t, tok, "upload", ptr))
	require.Equal(t, http.StatusOK, w.Code)
	resp = dto.BatchResponse{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Objects, 1)
	assert.Nil(t, resp.Objects[0].Actions)
	assert.Nil(t, resp.Objects[0].Error)

	// Download returns the exact bytes
	downloadPath := fmt.Sprintf("/proj/repo/info/lfs/objects/download?oid=%s&size=%d", oid, ptr.Size)
	req = httptest.NewRequest(http.MethodGet, downloadPath, nil)
	req.SetBasicAuth(tok.User, tok.Password)
	w = f.do(req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/octet-stream", w.Header().Get("Content-Type"))
	assert.Equal(t, fmt.Sprint(len(content)), w.Header().Get("Content-Length"))
	assert.Equal(t, content, w.Body.Bytes())
}

func TestVerifyMissingObject(t *testing.T) {
	f := newFixture(t)
	tok := f.mintToken(t, "alice", models.Grant{Repo: "proj/repo", Action: models.ActionUpload})

	body, _ := json.Marshal(dto.VerifyRequest{OID: strings.Repeat("ab", 32), Size: 5})
	req := httptest.NewRequest(http.MethodPost, "/proj/repo/info/lfs/objects/verify", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(tok.User, tok.Password)

	assert.Equal(t, http.StatusNotFound, f.do(req).Code)
}

func TestTransferRejectsInvalidQuery(t *testing.T) {
	f := newFixture(t)
	tok := f.mintToken(t, "alice",
		models.Grant{Repo: "proj/repo", Action: models.ActionUpload},
		models.Grant{Repo: "proj/repo", Action: models.ActionDownload},
	)

	for _, path := range []string{
		"/proj/repo/info/lfs/objects/download?oid=nothex&size=5",
		"/proj/repo/info/lfs/objects/download?oid=" + strings.Repeat("ab", 32),
		"/proj/repo/info/lfs/objects/download?oid=" + strings.Repeat("ab", 32) + "&size=-2",
	} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.SetBasicAuth(tok.User, tok.Password)
		assert.Equal(t, http.StatusUnprocessableEntity, f.do(req).Code, "path %s", path)
	}
}

func TestTransferPrivilegePolicy(t *testing.T) {
	f := newFixture(t)
	reader := f.mintToken(t, "reader", models.Grant{Repo: "proj/repo", Action: models.ActionDownload})

	oid := strings.Repeat("ab", 32)

	// Reader may not upload
	req := httptest.NewRequest(http.MethodPut,
		fmt.Sprintf("/proj/repo/info/lfs/objects/upload?oid=%s&size=1", oid),
		strings.NewReader("x"))
	req.SetBasicAuth(reader.User, reader.Password)
	assert.Equal(t, http.StatusForbidden, f.do(req).Code)

	// Writer without read privilege cannot see the repo on download
	writer := f.mintToken(t, "writer", models.Grant{Repo: "proj/repo", Action: models.ActionUpload})
	req = httptest.NewRequest(http.MethodGet,
		fmt.Sprintf("/proj/repo/info/lfs/objects/download?oid=%s&size=1", oid), nil)
	req.SetBasicAuth(writer.User, writer.Password)
	assert.Equal(t, http.StatusNotFound, f.do(req).Code)
}

func TestUploadRejectsDigestMismatch(t *testing.T) {
	f := newFixture(t)
	tok := f.mintToken(t, "alice", models.Grant{Repo: "proj/repo", Action: models.ActionUpload})

	// Claimed oid does not match the uploaded bytes
	oid := digestOf([]byte("expected"))
	req := httptest.NewRequest(http.MethodPut,
		fmt.Sprintf("/proj/repo/info/lfs/objects/upload?oid=%s&size=6", oid),
		strings.NewReader("actual"))
	req.SetBasicAuth(tok.User, tok.Password)

	assert.Equal(t, http.StatusUnprocessableEntity, f.do(req).Code)
}

func TestUnknownRouteAndMethod(t *testing.T) {
	f := newFixture(t)

	w := f.do(httptest.NewRequest(http.MethodGet, "/no/such/route", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(httptest.NewRequest(http.MethodDelete, "/proj/repo/info/lfs/objects/batch", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

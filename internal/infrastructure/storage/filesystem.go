package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/bravo68web/gitolfs/internal/domain/models"
	"github.com/bravo68web/gitolfs/internal/domain/service"
	apperrors "github.com/bravo68web/gitolfs/pkg/errors"
	"github.com/bravo68web/gitolfs/pkg/logger"
)

// copyBufferSize bounds per-request memory regardless of object size
const copyBufferSize = 32 * 1024

// FilesystemStore implements the ContentService interface on a local
// filesystem. Objects live under a five-level 256-ary fan-out:
//
//	<root>/<repo>/ab/cd/ef/01/23/abcdef0123...<full 64-char oid>
//
// which bounds any single directory at 256 entries.
type FilesystemStore struct {
	root     string
	dirMode  os.FileMode
	fileMode os.FileMode
	verify   bool
	log      *logger.Logger
}

// FilesystemConfig holds configuration for the filesystem store
type FilesystemConfig struct {
	Root     string
	DirMode  os.FileMode
	FileMode os.FileMode

	// Verify recomputes the SHA-256 of received bytes and rejects a
	// digest mismatch before the object is committed
	Verify bool
}

// NewFilesystemStore creates a new filesystem store instance
func NewFilesystemStore(cfg FilesystemConfig) (*FilesystemStore, error) {
	if cfg.Root == "" {
		return nil, fmt.Errorf("storage root is required")
	}
	if cfg.DirMode == 0 {
		cfg.DirMode = 0o700
	}
	if cfg.FileMode == 0 {
		cfg.FileMode = 0o600
	}

	if err := os.MkdirAll(cfg.Root, cfg.DirMode); err != nil {
		return nil, fmt.Errorf("failed to create storage root: %w", err)
	}

	absRoot, err := filepath.Abs(cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve storage root: %w", err)
	}

	return &FilesystemStore{
		root:     absRoot,
		dirMode:  cfg.DirMode,
		fileMode: cfg.FileMode,
		verify:   cfg.Verify,
		log:      logger.Get().WithFields(logger.Component("filesystem-store")),
	}, nil
}

// objectPath computes the fan-out path for (repo, oid). The oid must
// already be validated; repo must be a clean relative path.
func (s *FilesystemStore) objectPath(repo, oid string) string {
	return filepath.Join(
		s.root,
		filepath.FromSlash(repo),
		oid[0:2], oid[2:4], oid[4:6], oid[6:8], oid[8:10],
		oid,
	)
}

// checkKey validates (repo, oid) before any filesystem access
func (s *FilesystemStore) checkKey(repo, oid string) error {
	if !models.ValidOID(oid) {
		return apperrors.Validation("invalid object id", apperrors.ErrInvalidOid)
	}
	if repo == "" || strings.HasPrefix(repo, "/") || strings.Contains(repo, "..") {
		return apperrors.NotFound("repository", apperrors.ErrUnknownRepo)
	}
	return nil
}

// Exists reports whether the object is present, with an optional size check
func (s *FilesystemStore) Exists(ctx context.Context, repo, oid string, size int64) (bool, error) {
	if err := s.checkKey(repo, oid); err != nil {
		return false, err
	}

	info, err := os.Stat(s.objectPath(repo, oid))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, apperrors.StorageError("stat", err)
	}

	if size != service.SizeUnknown && info.Size() != size {
		// Stale or truncated object: report missing so the client
		// re-uploads. The file is left in place.
		return false, nil
	}
	return true, nil
}

// Put streams the object body to a temporary file in the terminal
// directory, then commits it with an atomic rename. Readers see either
// no object or the complete object, never a partial write.
func (s *FilesystemStore) Put(ctx context.Context, repo, oid string, size int64, r io.Reader) error {
	if err := s.checkKey(repo, oid); err != nil {
		return err
	}

	target := s.objectPath(repo, oid)
	if err := os.MkdirAll(filepath.Dir(target), s.dirMode); err != nil {
		return apperrors.StorageError("mkdir", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), oid+".tmp-*")
	if err != nil {
		return apperrors.StorageError("create", err)
	}
	tmpName := tmp.Name()

	written, digest, err := s.copyBody(ctx, tmp, r)
	if cerr := tmp.Close(); err == nil && cerr != nil {
		err = apperrors.StorageError("close", cerr)
	}
	if err != nil {
		_ = os.Remove(tmpName)
		return err
	}

	if size != service.SizeUnknown && written != size {
		_ = os.Remove(tmpName)
		return apperrors.Validation(
			fmt.Sprintf("expected %d bytes, received %d", size, written),
			apperrors.ErrInvalidInput,
		)
	}
	if s.verify && digest != oid {
		_ = os.Remove(tmpName)
		s.log.Warn("digest mismatch on upload",
			logger.Repository(repo),
			logger.OID(oid),
			logger.String("received_digest", digest),
		)
		return apperrors.Validation("content digest does not match oid", apperrors.ErrInvalidOid)
	}

	if err := os.Chmod(tmpName, s.fileMode); err != nil {
		_ = os.Remove(tmpName)
		return apperrors.StorageError("chmod", err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		_ = os.Remove(tmpName)
		return apperrors.StorageError("rename", err)
	}

	return nil
}

// copyBody copies r into w in bounded chunks, honoring ctx cancellation
// between chunks, and returns the byte count and hex digest.
func (s *FilesystemStore) copyBody(ctx context.Context, w io.Writer, r io.Reader) (int64, string, error) {
	var h hash.Hash
	dst := w
	if s.verify {
		h = sha256.New()
		dst = io.MultiWriter(w, h)
	}

	buf := make([]byte, copyBufferSize)
	var written int64
	for {
		select {
		case <-ctx.Done():
			return written, "", apperrors.StorageError("write", ctx.Err())
		default:
		}

		n, rerr := r.Read(buf)
		if n > 0 {
			if _, werr := dst.Write(buf[:n]); werr != nil {
				return written, "", apperrors.StorageError("write", werr)
			}
			written += int64(n)
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return written, "", apperrors.StorageError("read", rerr)
		}
	}

	digest := ""
	if h != nil {
		digest = hex.EncodeToString(h.Sum(nil))
	}
	return written, digest, nil
}

// Get opens the object for reading and returns its stored size
func (s *FilesystemStore) Get(ctx context.Context, repo, oid string) (io.ReadCloser, int64, error) {
	if err := s.checkKey(repo, oid); err != nil {
		return nil, 0, err
	}

	f, err := os.Open(s.objectPath(repo, oid))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, 0, apperrors.NotFound("object", apperrors.ErrObjectNotFound)
		}
		return nil, 0, apperrors.StorageError("open", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, apperrors.StorageError("stat", err)
	}

	return f, info.Size(), nil
}

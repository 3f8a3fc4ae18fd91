package storage

import (
	"context"
	"fmt"
	"os"

	"github.com/bravo68web/gitolfs/internal/config"
	"github.com/bravo68web/gitolfs/internal/domain/service"
)

// StorageType represents the type of storage backend
type StorageType string

const (
	// StorageTypeFilesystem represents local filesystem storage
	StorageTypeFilesystem StorageType = "filesystem"

	// StorageTypeS3 represents AWS S3 storage
	StorageTypeS3 StorageType = "s3"
)

// Factory creates storage backends based on configuration
type Factory struct {
	config *config.StorageConfig
}

// NewFactory creates a new storage factory
func NewFactory(cfg *config.StorageConfig) *Factory {
	return &Factory{
		config: cfg,
	}
}

// Create creates a new storage backend based on the configuration
func (f *Factory) Create(ctx context.Context) (service.ContentService, error) {
	storageType := StorageType(f.config.Type)

	switch storageType {
	case StorageTypeFilesystem, "":
		return NewFilesystemStore(FilesystemConfig{
			Root:     f.config.DataRoot,
			DirMode:  os.FileMode(f.config.DirMode),
			FileMode: os.FileMode(f.config.FileMode),
			Verify:   f.config.VerifyWrites,
		})

	case StorageTypeS3:
		return NewS3Store(ctx, S3Config{
			Bucket:    f.config.S3Bucket,
			Region:    f.config.S3Region,
			AccessKey: f.config.S3AccessKey,
			SecretKey: f.config.S3SecretKey,
			Endpoint:  f.config.S3Endpoint,
			Prefix:    f.config.S3Prefix,
		})

	default:
		return nil, fmt.Errorf("unknown storage type: %s", f.config.Type)
	}
}

package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/bravo68web/gitolfs/internal/domain/models"
	"github.com/bravo68web/gitolfs/internal/domain/service"
	apperrors "github.com/bravo68web/gitolfs/pkg/errors"
	"github.com/bravo68web/gitolfs/pkg/logger"
)

// S3Store implements the ContentService interface on AWS S3 (or an
// S3-compatible service such as MinIO). Object keys mirror the
// filesystem fan-out so the two backends are interchangeable.
type S3Store struct {
	client *s3.Client
	bucket string
	prefix string
	log    *logger.Logger
}

// S3Config holds configuration for S3 storage
type S3Config struct {
	Bucket       string
	Region       string
	AccessKey    string
	SecretKey    string
	Endpoint     string // Optional: for S3-compatible services like MinIO
	UsePathStyle bool   // Optional: use path-style addressing
	Prefix       string // Base prefix for all objects
}

// NewS3Store creates a new S3 store instance
func NewS3Store(ctx context.Context, cfg S3Config) (*S3Store, error) {
	var configOpts []func(*awsconfig.LoadOptions) error
	configOpts = append(configOpts, awsconfig.WithRegion(cfg.Region))

	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		configOpts = append(configOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, configOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = cfg.UsePathStyle
		})
	}

	prefix := cfg.Prefix
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	return &S3Store{
		client: s3.NewFromConfig(awsCfg, s3Opts...),
		bucket: cfg.Bucket,
		prefix: prefix,
		log:    logger.Get().WithFields(logger.Component("s3-store")),
	}, nil
}

// objectKey mirrors the filesystem fan-out layout
func (s *S3Store) objectKey(repo, oid string) string {
	return fmt.Sprintf("%s%s/%s/%s/%s/%s/%s/%s",
		s.prefix, repo,
		oid[0:2], oid[2:4], oid[4:6], oid[6:8], oid[8:10],
		oid,
	)
}

func (s *S3Store) checkKey(repo, oid string) error {
	if !models.ValidOID(oid) {
		return apperrors.Validation("invalid object id", apperrors.ErrInvalidOid)
	}
	if repo == "" || strings.HasPrefix(repo, "/") || strings.Contains(repo, "..") {
		return apperrors.NotFound("repository", apperrors.ErrUnknownRepo)
	}
	return nil
}

// Exists reports whether the object is present, with an optional size check
func (s *S3Store) Exists(ctx context.Context, repo, oid string, size int64) (bool, error) {
	if err := s.checkKey(repo, oid); err != nil {
		return false, err
	}

	head, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(repo, oid)),
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return false, nil
		}
		return false, apperrors.StorageError("head", err)
	}

	if size != service.SizeUnknown && head.ContentLength != nil && *head.ContentLength != size {
		return false, nil
	}
	return true, nil
}

// Put streams the object body to S3. S3 commits atomically on its own,
// so no tempfile dance is needed here.
func (s *S3Store) Put(ctx context.Context, repo, oid string, size int64, r io.Reader) error {
	if err := s.checkKey(repo, oid); err != nil {
		return err
	}

	input := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.objectKey(repo, oid)),
		Body:        r,
		ContentType: aws.String("application/octet-stream"),
	}
	if size != service.SizeUnknown {
		input.ContentLength = aws.Int64(size)
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		return apperrors.StorageError("put", err)
	}
	return nil
}

// Get opens the object for reading and returns its stored size
func (s *S3Store) Get(ctx context.Context, repo, oid string) (io.ReadCloser, int64, error) {
	if err := s.checkKey(repo, oid); err != nil {
		return nil, 0, err
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(repo, oid)),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, 0, apperrors.NotFound("object", apperrors.ErrObjectNotFound)
		}
		return nil, 0, apperrors.StorageError("get", err)
	}

	size := service.SizeUnknown
	if out.ContentLength != nil {
		size = *out.ContentLength
	}
	return out.Body, size, nil
}

// Package s3 implements pkg/blob over an S3 bucket using the AWS SDK.
package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"go.uber.org/zap"

	"github.com/sudo-OMsharma/personabrain/pkg/blob"
)

// Config holds connection settings for the S3 store.
type Config struct {
	Bucket string
	Region string

	// Endpoint overrides the S3 endpoint, for MinIO and other
	// S3-compatible servers. Empty means AWS.
	Endpoint string
}

// Store implements blob.Store over one S3 bucket.
type Store struct {
	client *s3.Client
	bucket string
	logger *zap.Logger
}

// NewStore loads AWS credentials from the environment and returns a store
// over cfg.Bucket.
func NewStore(ctx context.Context, cfg Config, logger *zap.Logger) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("bucket is required")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &Store{client: client, bucket: cfg.Bucket, logger: logger}, nil
}

// Upload stores the contents of srcPath under key.
func (s *Store) Upload(ctx context.Context, key, srcPath string) error {
	f, err := os.Open(srcPath)
	if err != nil {
		return fmt.Errorf("opening %s: %w", srcPath, err)
	}
	defer f.Close()

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   f,
	})
	if err != nil {
		return fmt.Errorf("uploading %s: %w", key, err)
	}

	s.logger.Debug("object uploaded", zap.String("key", key))
	return nil
}

// Download writes the object at key to destPath.
func (s *Store) Download(ctx context.Context, key, destPath string) error {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return fmt.Errorf("%w: %s", blob.ErrObjectNotFound, key)
		}
		return fmt.Errorf("downloading %s: %w", key, err)
	}
	defer out.Body.Close()

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return fmt.Errorf("creating dir for %s: %w", destPath, err)
	}

	f, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("creating %s: %w", destPath, err)
	}
	defer f.Close()

	if _, err := io.Copy(f, out.Body); err != nil {
		return fmt.Errorf("writing %s: %w", destPath, err)
	}
	return nil
}

// UploadPrefix uploads every file under srcDir keyed relative to prefix.
func (s *Store) UploadPrefix(ctx context.Context, prefix, srcDir string) error {
	return filepath.WalkDir(srcDir, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(srcDir, p)
		if err != nil {
			return err
		}
		return s.Upload(ctx, path.Join(prefix, filepath.ToSlash(rel)), p)
	})
}

// DownloadPrefix mirrors every object under prefix into destDir.
func (s *Store) DownloadPrefix(ctx context.Context, prefix, destDir string) error {
	keys, err := s.list(ctx, prefix)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return fmt.Errorf("%w: prefix %s", blob.ErrObjectNotFound, prefix)
	}

	base := strings.TrimSuffix(prefix, "/") + "/"
	for _, key := range keys {
		rel := strings.TrimPrefix(key, base)
		if rel == "" {
			continue
		}
		if err := s.Download(ctx, key, filepath.Join(destDir, filepath.FromSlash(rel))); err != nil {
			return err
		}
	}
	return nil
}

// Exists reports whether at least one object lives under prefix.
func (s *Store) Exists(ctx context.Context, prefix string) (bool, error) {
	out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(s.bucket),
		Prefix:  aws.String(prefix),
		MaxKeys: aws.Int32(1),
	})
	if err != nil {
		return false, fmt.Errorf("checking prefix %s: %w", prefix, err)
	}
	return len(out.Contents) > 0, nil
}

// Delete removes the object at key. S3 deletes are idempotent, so an absent
// key is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("deleting %s: %w", key, err)
	}
	return nil
}

// DeletePrefix removes every object under prefix.
func (s *Store) DeletePrefix(ctx context.Context, prefix string) error {
	keys, err := s.list(ctx, prefix)
	if err != nil {
		return err
	}

	for _, key := range keys {
		if err := s.Delete(ctx, key); err != nil {
			return err
		}
	}

	s.logger.Debug("prefix deleted",
		zap.String("prefix", prefix),
		zap.Int("objects", len(keys)),
	)
	return nil
}

// CopyPrefix copies every object under srcPrefix to destPrefix server-side.
func (s *Store) CopyPrefix(ctx context.Context, srcPrefix, destPrefix string) error {
	keys, err := s.list(ctx, srcPrefix)
	if err != nil {
		return err
	}

	base := strings.TrimSuffix(srcPrefix, "/") + "/"
	for _, key := range keys {
		rel := strings.TrimPrefix(key, base)
		if rel == "" {
			continue
		}
		_, err := s.client.CopyObject(ctx, &s3.CopyObjectInput{
			Bucket:     aws.String(s.bucket),
			CopySource: aws.String(s.bucket + "/" + key),
			Key:        aws.String(path.Join(destPrefix, rel)),
		})
		if err != nil {
			return fmt.Errorf("copying %s: %w", key, err)
		}
	}
	return nil
}

// Close is a no-op, the SDK client holds no long-lived connections.
func (s *Store) Close() error {
	return nil
}

func (s *Store) list(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(strings.TrimSuffix(prefix, "/") + "/"),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing prefix %s: %w", prefix, err)
		}
		for _, obj := range page.Contents {
			keys = append(keys, aws.ToString(obj.Key))
		}
	}
	return keys, nil
}

var _ blob.Store = (*Store)(nil)

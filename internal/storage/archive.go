// Package storage archives generated report documents to S3-compatible
// object storage.
package storage

import (
	"context"
	"fmt"
	"mime"
	"path"
	"path/filepath"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"lechuga_bot_backend/platform/config"
	"lechuga_bot_backend/platform/logger"
)

// Archive uploads report files to a MinIO bucket.
type Archive struct {
	client *minio.Client
	bucket string
	log    *logger.Logger
}

// NewArchive creates the report archive. Returns nil when MinIO is not
// configured; archival is then skipped.
func NewArchive(cfg config.MinIOConfig, log *logger.Logger) (*Archive, error) {
	if !cfg.IsMinIOEnabled() {
		return nil, nil
	}

	client, err := minio.New(cfg.GetMinIOEndpoint(), &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.GetMinIOAccessKey(), cfg.GetMinIOSecretKey(), ""),
		Secure: cfg.GetMinIOUseSSL(),
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	return &Archive{
		client: client,
		bucket: cfg.GetMinioBucketReportArchive(),
		log:    log,
	}, nil
}

// EnsureBucket creates the archive bucket if it does not exist.
func (a *Archive) EnsureBucket(ctx context.Context) error {
	if a == nil {
		return nil
	}
	exists, err := a.client.BucketExists(ctx, a.bucket)
	if err != nil {
		return fmt.Errorf("check bucket existence: %w", err)
	}
	if !exists {
		if err := a.client.MakeBucket(ctx, a.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("create bucket %s: %w", a.bucket, err)
		}
	}
	return nil
}

// StoreReport uploads a local report file under reports/{userID}/{filename}
// and returns the object key.
func (a *Archive) StoreReport(ctx context.Context, userID int64, localPath string) (string, error) {
	if a == nil {
		return "", nil
	}

	name := filepath.Base(localPath)
	key := path.Join("reports", fmt.Sprintf("%d", userID), name)

	contentType := mime.TypeByExtension(filepath.Ext(name))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	if _, err := a.client.FPutObject(ctx, a.bucket, key, localPath, minio.PutObjectOptions{
		ContentType: contentType,
	}); err != nil {
		return "", fmt.Errorf("upload report %s: %w", key, err)
	}

	a.log.Info("report archived", "user_id", userID, "key", key)
	return key, nil
}

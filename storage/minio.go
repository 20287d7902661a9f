package storage

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/DucAnhBoDoi/Music-App/config"
	"github.com/DucAnhBoDoi/Music-App/logger"
)

var (
	minioClient *minio.Client
	minioBucket string
)

// InitMinio initializes the optional MinIO client used as a durable mirror
// for warmed artwork. When no endpoint is configured the daemon runs with
// the Redis cache only.
func InitMinio(cfg *config.Config) error {
	if cfg.MinioEndpoint == "" {
		logger.Info("MinIO not configured, artwork mirror disabled")
		return nil
	}

	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
	})
	if err != nil {
		return fmt.Errorf("failed to create MinIO client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, cfg.MinioBucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket %s: %w", cfg.MinioBucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.MinioBucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", cfg.MinioBucket, err)
		}
	}

	minioClient = client
	minioBucket = cfg.MinioBucket
	logger.Info("MinIO initialized", logger.String("bucket", minioBucket))
	return nil
}

// GetMinioClient returns the client, or nil when MinIO is not configured.
func GetMinioClient() *minio.Client {
	return minioClient
}

// PutArtwork stores cover-art bytes under artwork/{trackID}. No-op when
// MinIO is not configured.
func PutArtwork(ctx context.Context, trackID string, data []byte, contentType string) error {
	if minioClient == nil {
		return nil
	}
	objectName := fmt.Sprintf("artwork/%s", trackID)
	opts := minio.PutObjectOptions{ContentType: contentType, DisableMultipart: true}
	_, err := minioClient.PutObject(ctx, minioBucket, objectName, bytes.NewReader(data), int64(len(data)), opts)
	if err != nil {
		return fmt.Errorf("failed to upload artwork %s: %w", trackID, err)
	}
	return nil
}

// GetArtwork fetches cover-art bytes previously mirrored for trackID.
// Returns nil, nil on miss or when MinIO is not configured.
func GetArtwork(ctx context.Context, trackID string) ([]byte, error) {
	if minioClient == nil {
		return nil, nil
	}
	objectName := fmt.Sprintf("artwork/%s", trackID)
	obj, err := minioClient.GetObject(ctx, minioBucket, objectName, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get artwork %s: %w", trackID, err)
	}
	defer obj.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(obj); err != nil {
		// minio returns NoSuchKey only on first read
		return nil, nil
	}
	return buf.Bytes(), nil
}

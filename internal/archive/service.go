// Package archive stores immutable JSON snapshots of published quarters in
// S3-compatible object storage.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Config holds object storage configuration.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// Service writes and reads published-quarter snapshots.
type Service struct {
	client *minio.Client
	bucket string
}

// Snapshot identifies one stored snapshot object.
type Snapshot struct {
	Key        string    `json:"key"`
	Size       int64     `json:"size"`
	UploadedAt time.Time `json:"uploadedAt"`
}

func NewService(cfg Config) (*Service, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create object storage client: %w", err)
	}
	return &Service{client: client, bucket: cfg.Bucket}, nil
}

// EnsureBucket creates the snapshot bucket if it does not exist yet.
func (s *Service) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", s.bucket, err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("create bucket %s: %w", s.bucket, err)
	}
	return nil
}

// PutQuarterSnapshot uploads the published roadmap payload for a quarter.
// Each publish overwrites the previous snapshot for the same quarter.
func (s *Service) PutQuarterSnapshot(ctx context.Context, productID string, year, quarter int, payload []byte) (Snapshot, error) {
	key := snapshotKey(productID, year, quarter)
	info, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(payload), int64(len(payload)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return Snapshot{}, fmt.Errorf("upload snapshot %s: %w", key, err)
	}
	return Snapshot{Key: key, Size: info.Size, UploadedAt: time.Now()}, nil
}

// GetQuarterSnapshot downloads the stored payload for a published quarter.
func (s *Service) GetQuarterSnapshot(ctx context.Context, productID string, year, quarter int) ([]byte, error) {
	key := snapshotKey(productID, year, quarter)
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("open snapshot %s: %w", key, err)
	}
	defer obj.Close()

	payload, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("read snapshot %s: %w", key, err)
	}
	return payload, nil
}

// ListProductSnapshots lists stored snapshots for a product, most recent
// upload metadata included.
func (s *Service) ListProductSnapshots(ctx context.Context, productID string) ([]Snapshot, error) {
	prefix := fmt.Sprintf("snapshots/%s/", productID)
	snapshots := []Snapshot{}
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("list snapshots for %s: %w", productID, obj.Err)
		}
		snapshots = append(snapshots, Snapshot{Key: obj.Key, Size: obj.Size, UploadedAt: obj.LastModified})
	}
	return snapshots, nil
}

func snapshotKey(productID string, year, quarter int) string {
	return fmt.Sprintf("snapshots/%s/%d-Q%d.json", productID, year, quarter)
}

package store

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/Aleph-Alpha/workbench/v1/logger"
)

const bucketCheckTimeout = 10 * time.Second

// ObjectStore persists records as one JSON document in an S3-compatible
// bucket, so a workspace can follow the user across machines. The last
// Save wins; concurrent writers on different machines are not merged.
type ObjectStore[T Record] struct {
	client *minio.Client
	bucket string
	key    string
	logger logger.Logger

	saveMu  sync.Mutex
	pending *pending[T]
}

var _ RecordStore[Record] = (*ObjectStore[Record])(nil)

// NewObjectStore returns a store for the object key in bucket.
func NewObjectStore[T Record](client *minio.Client, bucket, key string, log logger.Logger) *ObjectStore[T] {
	return &ObjectStore[T]{client: client, bucket: bucket, key: key, logger: log, pending: newPending[T]()}
}

func (s *ObjectStore[T]) LoadAll(ctx context.Context) ([]T, error) {
	persisted, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	return apply(persisted, s.pending.snapshot()), nil
}

func (s *ObjectStore[T]) Upsert(ctx context.Context, rec T) error {
	s.pending.upsert(rec)
	return nil
}

func (s *ObjectStore[T]) Delete(ctx context.Context, id string) error {
	s.pending.remove(id)
	return nil
}

// Save re-reads the object, applies the buffered changes and uploads the
// result.
func (s *ObjectStore[T]) Save(ctx context.Context) error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	changes := s.pending.snapshot()
	if len(changes) == 0 {
		return nil
	}

	persisted, err := s.read(ctx)
	if err != nil {
		return err
	}
	records := apply(persisted, changes)
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].RecordID() < records[j].RecordID()
	})

	data, err := encodeDocument(records)
	if err != nil {
		return err
	}
	_, err = s.client.PutObject(ctx, s.bucket, s.key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return fmt.Errorf("store: uploading %s: %w", s.location(), err)
	}

	s.pending.commit(changes)
	s.logger.Debug("record store saved", nil, map[string]interface{}{
		"backend": BackendObject,
		"object":  s.location(),
		"records": len(records),
		"changes": len(changes),
	})
	return nil
}

func (s *ObjectStore[T]) read(ctx context.Context) ([]T, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, s.key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("store: reading %s: %w", s.location(), err)
	}
	defer func() { _ = obj.Close() }()

	data, err := io.ReadAll(obj)
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, nil
		}
		return nil, fmt.Errorf("store: reading %s: %w", s.location(), err)
	}
	return decodeDocument[T](data, s.location())
}

func (s *ObjectStore[T]) location() string {
	return s.bucket + "/" + s.key
}

// OpenObjectClient connects to the S3-compatible endpoint in cfg and makes
// sure the bucket exists, creating it when CreateBucket is set.
func OpenObjectClient(ctx context.Context, cfg ObjectConfig) (*minio.Client, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("%w: object endpoint cannot be empty", ErrInvalidConfig)
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("%w: object bucket cannot be empty", ErrInvalidConfig)
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("store: creating object client: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, bucketCheckTimeout)
	defer cancel()

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("store: checking bucket %s: %w", cfg.Bucket, err)
	}
	if exists {
		return client, nil
	}
	if !cfg.CreateBucket {
		return nil, fmt.Errorf("%w: bucket %s does not exist", ErrInvalidConfig, cfg.Bucket)
	}
	if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
		return nil, fmt.Errorf("store: creating bucket %s: %w", cfg.Bucket, err)
	}
	return client, nil
}

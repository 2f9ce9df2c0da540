package store

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/vanshika/kgharvest/internal/kg"
)

// ObjectPutter is the subset of *minio.Client used by ObjectStore.
type ObjectPutter interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// ObjectStoreOptions configures NewObjectStore.
type ObjectStoreOptions struct {
	Endpoint  string
	Bucket    string
	AccessKey string
	SecretKey string
	UseSSL    bool
}

// ObjectStore uploads each graph to <bucket>/<category>/<name>.n3.
type ObjectStore struct {
	client ObjectPutter
	bucket string
}

// NewObjectStore connects to an S3-compatible endpoint.
func NewObjectStore(opts ObjectStoreOptions) (*ObjectStore, error) {
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create object store client: %w", err)
	}
	return NewObjectStoreWithClient(client, opts.Bucket), nil
}

// NewObjectStoreWithClient wraps an existing client.
func NewObjectStoreWithClient(client ObjectPutter, bucket string) *ObjectStore {
	return &ObjectStore{client: client, bucket: bucket}
}

// Name implements Sink.
func (s *ObjectStore) Name() string {
	return "s3"
}

// Key returns the object key of graph name in category.
func (s *ObjectStore) Key(category, name string) (string, error) {
	if err := CheckCategory(category); err != nil {
		return "", err
	}
	base, err := FileName(name)
	if err != nil {
		return "", err
	}
	return path.Join(category, base+n3Ext), nil
}

// Publish implements Sink.
func (s *ObjectStore) Publish(ctx context.Context, category string, g *kg.Graph) error {
	key, err := s.Key(category, g.Name())
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := g.WriteN3(&buf); err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}

	_, err = s.client.PutObject(ctx, s.bucket, key, &buf, int64(buf.Len()), minio.PutObjectOptions{
		ContentType: "text/n3; charset=utf-8",
	})
	if err != nil {
		return fmt.Errorf("put %s/%s: %w", s.bucket, key, err)
	}
	return nil
}

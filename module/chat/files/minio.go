package files

import (
	"context"
	"io"

	"chatline/tools/errs"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioStore backs attachments with an S3-compatible bucket.
type MinioStore struct {
	cli    *minio.Client
	bucket string
}

func NewMinioStore(ctx context.Context, endpoint, accessKey, secretKey, bucket string, useSSL bool) (*MinioStore, error) {
	cli, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, errs.ErrDependency.WrapMsg("minio connect", "endpoint", endpoint, "err", err)
	}
	exists, err := cli.BucketExists(ctx, bucket)
	if err != nil {
		return nil, errs.ErrDependency.WrapMsg("minio bucket check", "bucket", bucket, "err", err)
	}
	if !exists {
		if err := cli.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, errs.ErrDependency.WrapMsg("minio make bucket", "bucket", bucket, "err", err)
		}
	}
	return &MinioStore{cli: cli, bucket: bucket}, nil
}

func (m *MinioStore) Put(ctx context.Context, name string, r io.Reader, size int64, contentType string) error {
	_, err := m.cli.PutObject(ctx, m.bucket, name, r, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return errs.ErrDependency.WrapMsg("minio put", "name", name, "err", err)
	}
	return nil
}

func (m *MinioStore) Get(ctx context.Context, name string) (io.ReadCloser, error) {
	obj, err := m.cli.GetObject(ctx, m.bucket, name, minio.GetObjectOptions{})
	if err != nil {
		return nil, errs.ErrDependency.WrapMsg("minio get", "name", name, "err", err)
	}
	// GetObject is lazy; a missing key only surfaces on first read.
	if _, err := obj.Stat(); err != nil {
		_ = obj.Close()
		resp := minio.ToErrorResponse(err)
		if resp.Code == "NoSuchKey" {
			return nil, errs.ErrNotFound.WrapMsg("file", "name", name)
		}
		return nil, errs.ErrDependency.WrapMsg("minio stat", "name", name, "err", err)
	}
	return obj, nil
}

func (m *MinioStore) Delete(ctx context.Context, name string) error {
	if err := m.cli.RemoveObject(ctx, m.bucket, name, minio.RemoveObjectOptions{}); err != nil {
		return errs.ErrDependency.WrapMsg("minio remove", "name", name, "err", err)
	}
	return nil
}

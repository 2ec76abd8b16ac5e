// Package storage adapts Cloud Storage to shared.BlobStore.
package storage

import (
	"context"
	"io"

	"cloud.google.com/go/storage"

	hubErrors "github.com/xpayn3/cyclinghub-server/pkg/errors"
	"github.com/xpayn3/cyclinghub-server/pkg/types"
)

// StorageAdapter reads and writes export artifacts in GCS.
type StorageAdapter struct {
	Client *storage.Client
}

func (a *StorageAdapter) Write(ctx context.Context, bucketName, objectName string, data []byte) error {
	wc := a.Client.Bucket(bucketName).Object(objectName).NewWriter(ctx)
	wc.ContentType = types.ContentTypeFor(objectName)
	if _, err := wc.Write(data); err != nil {
		wc.Close()
		return hubErrors.ErrStorageError.WithMessagef("write gs://%s/%s", bucketName, objectName).WithCause(err)
	}
	if err := wc.Close(); err != nil {
		return hubErrors.ErrStorageError.WithMessagef("close gs://%s/%s", bucketName, objectName).WithCause(err)
	}
	return nil
}

func (a *StorageAdapter) Read(ctx context.Context, bucketName, objectName string) ([]byte, error) {
	rc, err := a.Client.Bucket(bucketName).Object(objectName).NewReader(ctx)
	if err != nil {
		return nil, hubErrors.ErrStorageError.WithMessagef("open gs://%s/%s", bucketName, objectName).WithCause(err)
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

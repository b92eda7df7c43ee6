// Package docsource loads documents named on the command line, either from
// the local filesystem or from MinIO.
package docsource

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"docqa/src/core/docqa"
	"docqa/src/fsutil"
	"docqa/src/storage/minioctrl"
)

// ObjectGetter is the part of MinioService used here.
type ObjectGetter interface {
	GetObject(ctx context.Context, bucketName, objectName string, maxBytes int64) ([]byte, error)
}

type Fetcher struct {
	files    fsutil.FileStore
	objects  ObjectGetter
	maxBytes int64
}

// NewFetcher creates a fetcher. objects may be nil when MinIO is not
// configured.
func NewFetcher(files fsutil.FileStore, objects ObjectGetter, maxBytes int64) *Fetcher {
	return &Fetcher{files: files, objects: objects, maxBytes: maxBytes}
}

// Fetch loads ref, a local path or minio://bucket/object.
func (f *Fetcher) Fetch(ctx context.Context, ref string) (docqa.Upload, error) {
	if strings.HasPrefix(ref, minioctrl.URLScheme) {
		return f.fetchObject(ctx, ref)
	}

	size, err := f.files.Size(ref)
	if err != nil {
		return docqa.Upload{}, fmt.Errorf("failed to stat %s: %w", ref, err)
	}
	if f.maxBytes > 0 && size > f.maxBytes {
		return docqa.Upload{}, fmt.Errorf("%w: %s is %d bytes, limit is %d", docqa.ErrUploadTooLarge, ref, size, f.maxBytes)
	}
	data, err := f.files.ReadFile(ref)
	if err != nil {
		return docqa.Upload{}, fmt.Errorf("failed to read %s: %w", ref, err)
	}
	return docqa.Upload{Name: filepath.Base(ref), Data: data}, nil
}

func (f *Fetcher) fetchObject(ctx context.Context, ref string) (docqa.Upload, error) {
	if f.objects == nil {
		return docqa.Upload{}, fmt.Errorf("cannot fetch %s: minio is not configured", ref)
	}
	bucket, object := minioctrl.ParseObjectURL(ref)
	if bucket == "" {
		return docqa.Upload{}, fmt.Errorf("invalid object reference %q", ref)
	}
	data, err := f.objects.GetObject(ctx, bucket, object, f.maxBytes)
	if err != nil {
		return docqa.Upload{}, fmt.Errorf("failed to fetch %s: %w", ref, err)
	}
	return docqa.Upload{Name: path.Base(object), Data: data}, nil
}

package minioctrl

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// URLScheme prefixes document references stored in MinIO:
// minio://bucket/object.
const URLScheme = "minio://"

type MinioService struct {
	client *minio.Client
}

func NewMinioService(endpoint, accessKeyID, secretAccessKey string, useSSL bool) (*MinioService, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKeyID, secretAccessKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	return &MinioService{
		client: client,
	}, nil
}

// GetObject reads an object, refusing objects larger than maxBytes when
// maxBytes is positive.
func (s *MinioService) GetObject(ctx context.Context, bucketName, objectName string, maxBytes int64) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, bucketName, objectName, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get object: %w", err)
	}
	defer obj.Close()

	if maxBytes > 0 {
		info, err := obj.Stat()
		if err != nil {
			return nil, fmt.Errorf("failed to stat object: %w", err)
		}
		if info.Size > maxBytes {
			return nil, fmt.Errorf("object %s/%s is %d bytes, limit is %d", bucketName, objectName, info.Size, maxBytes)
		}
	}

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("failed to read object data: %w", err)
	}

	return data, nil
}

// ParseObjectURL splits minio://bucket/object, or bucket/object, into its
// parts. Both are empty when the reference has no object part.
func ParseObjectURL(ref string) (string, string) {
	ref = strings.TrimPrefix(ref, URLScheme)
	parts := strings.SplitN(ref, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", ""
	}
	return parts[0], parts[1]
}

package service

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"go-tasklist/pkg/apierror"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

const maxImageSize = 10 << 20

// ImageService stores task images in a MinIO/S3 bucket under random object
// names so uploaded filenames never collide or leak into storage paths.
type ImageService struct {
	client *minio.Client
	bucket string
}

func NewImageService(ctx context.Context, endpoint string, accessKey string, secretKey string, bucket string, useSSL bool) (*ImageService, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %q: %w", bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %q: %w", bucket, err)
		}
	}

	return &ImageService{client: client, bucket: bucket}, nil
}

// Upload validates that the payload decodes as an image before storing it.
// Returns the generated object name.
func (s *ImageService) Upload(ctx context.Context, filename string, r io.Reader) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxImageSize+1))
	if err != nil {
		return "", fmt.Errorf("read image payload: %w", err)
	}

	if len(data) > maxImageSize {
		return "", apierror.BadRequest("image exceeds maximum size", fmt.Sprintf("limit %d bytes", maxImageSize))
	}

	if _, _, err := image.DecodeConfig(bytes.NewReader(data)); err != nil {
		return "", apierror.BadRequest("unsupported image format", filename)
	}

	objectName := uuid.NewString() + strings.ToLower(filepath.Ext(filename))
	_, err = s.client.PutObject(ctx, s.bucket, objectName, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: http.DetectContentType(data),
	})
	if err != nil {
		return "", fmt.Errorf("store image %q: %w", objectName, err)
	}

	return objectName, nil
}

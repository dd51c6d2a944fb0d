package filestorage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"path"
	"path/filepath"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"
)

// GCSStorage keeps uploads in a Google Cloud Storage bucket. Stored paths
// have the form gs://bucket/object.
type GCSStorage struct {
	client *storage.Client
	bucket string
	logger zerolog.Logger
}

// NewGCSStorage opens a client. credentialsFile may be empty to use
// application default credentials.
func NewGCSStorage(ctx context.Context, bucket, credentialsFile string, logger zerolog.Logger) (*GCSStorage, error) {
	if bucket == "" {
		return nil, fmt.Errorf("gcs bucket name is required")
	}

	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	return &GCSStorage{client: client, bucket: bucket, logger: logger}, nil
}

func (g *GCSStorage) SaveFileWithPath(ctx context.Context, fileHeader *multipart.FileHeader, subPath string) (string, error) {
	if fileHeader == nil {
		return "", nil
	}

	file, err := fileHeader.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer file.Close()

	key := path.Join(strings.Trim(subPath, "/"), uuid.New().String()+strings.ToLower(filepath.Ext(fileHeader.Filename)))

	w := g.client.Bucket(g.bucket).Object(key).NewWriter(ctx)
	w.ContentType = fileHeader.Header.Get("Content-Type")
	if _, err := io.Copy(w, file); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize upload %s: %w", key, err)
	}

	g.logger.Info().Str("bucket", g.bucket).Str("object", key).Msg("File uploaded")
	return "gs://" + g.bucket + "/" + key, nil
}

func (g *GCSStorage) DeleteFile(ctx context.Context, filePath string) error {
	if filePath == "" {
		return nil
	}
	key := strings.TrimPrefix(filePath, "gs://"+g.bucket+"/")
	err := g.client.Bucket(g.bucket).Object(key).Delete(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil
	}
	return err
}

// Close releases the underlying client
func (g *GCSStorage) Close() error {
	return g.client.Close()
}

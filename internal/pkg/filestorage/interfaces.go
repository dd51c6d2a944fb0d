package filestorage

import (
	"context"
	"mime/multipart"
)

// FileStorage defines the interface for file storage operations
type FileStorage interface {
	// SaveFileWithPath stores the upload under subPath and returns its stored path
	SaveFileWithPath(ctx context.Context, fileHeader *multipart.FileHeader, subPath string) (string, error)

	// DeleteFile removes a stored file; a missing file is not an error
	DeleteFile(ctx context.Context, filePath string) error
}

// AllowedDocumentTypes lists the extensions accepted for admission documents
var AllowedDocumentTypes = map[string]bool{
	".pdf":  true,
	".jpg":  true,
	".jpeg": true,
	".png":  true,
}

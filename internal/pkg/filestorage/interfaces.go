package filestorage

import (
	"errors"
	"mime/multipart"
)

// Storage errors
var (
	ErrFileTooLarge = errors.New("file exceeds the upload limit")
	ErrInvalidPath  = errors.New("invalid file path")
)

// StoredFile describes a file written to storage
type StoredFile struct {
	Name     string // original file name
	Path     string // path relative to the storage root
	URL      string // public or API URL
	Size     int64
	MimeType string
}

// FileStorage defines the interface for file storage operations
type FileStorage interface {
	// Save writes the upload into subDir under a generated name
	Save(fileHeader *multipart.FileHeader, subDir string) (*StoredFile, error)

	// Delete removes a stored file; a missing file is not an error
	Delete(path string) error

	// FullPath resolves a stored relative path to the filesystem
	FullPath(path string) (string, error)
}

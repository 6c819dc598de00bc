package filestorage

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/yigit/madrasa/internal/pkg/logger"
)

// LocalStorage handles saving files to the local filesystem.
type LocalStorage struct {
	basePath string // root directory of stored files
	baseURL  string // prefix for generated URLs
	maxSize  int64  // bytes, 0 means unlimited
	log      zerolog.Logger
}

// NewLocalStorage creates the base directory when needed.
func NewLocalStorage(basePath, baseURL string, maxSize int64) (*LocalStorage, error) {
	log := logger.Component("filestorage")
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		log.Error().Err(err).Str("path", basePath).Msg("Failed to create storage directory")
		return nil, fmt.Errorf("failed to create storage directory %s: %w", basePath, err)
	}
	log.Info().Str("path", basePath).Msg("Local storage directory ensured")

	return &LocalStorage{
		basePath: basePath,
		baseURL:  strings.TrimRight(baseURL, "/"),
		maxSize:  maxSize,
		log:      log,
	}, nil
}

// Save writes the upload under subDir with a uuid name keeping the extension.
func (ls *LocalStorage) Save(fileHeader *multipart.FileHeader, subDir string) (*StoredFile, error) {
	if fileHeader == nil {
		return nil, fmt.Errorf("%w: no file", ErrInvalidPath)
	}
	if ls.maxSize > 0 && fileHeader.Size > ls.maxSize {
		return nil, fmt.Errorf("%w: %d bytes, limit %d", ErrFileTooLarge, fileHeader.Size, ls.maxSize)
	}

	subDir = path.Clean("/" + filepath.ToSlash(subDir))[1:]
	dir := filepath.Join(ls.basePath, filepath.FromSlash(subDir))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create subdirectory: %w", err)
	}

	src, err := fileHeader.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer src.Close()

	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	name := uuid.New().String() + ext
	rel := path.Join(subDir, name)
	dstPath := filepath.Join(dir, name)

	dst, err := os.OpenFile(dstPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to create destination file: %w", err)
	}

	// sniff from the first bytes before copying the rest
	head := make([]byte, 512)
	n, _ := io.ReadFull(src, head)
	head = head[:n]

	written, err := io.Copy(dst, io.MultiReader(bytes.NewReader(head), src))
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(dstPath)
		return nil, fmt.Errorf("failed to save file content: %w", err)
	}

	stored := &StoredFile{
		Name:     filepath.Base(fileHeader.Filename),
		Path:     rel,
		URL:      ls.baseURL + "/" + rel,
		Size:     written,
		MimeType: detectMimeType(fileHeader, ext, head),
	}
	ls.log.Info().Str("filename", stored.Name).Str("path", rel).Int64("size", written).Msg("File saved")
	return stored, nil
}

func detectMimeType(fh *multipart.FileHeader, ext string, head []byte) string {
	if ct := fh.Header.Get("Content-Type"); ct != "" && ct != "application/octet-stream" {
		return ct
	}
	if byExt := mime.TypeByExtension(ext); byExt != "" {
		return byExt
	}
	return http.DetectContentType(head)
}

// FullPath resolves path inside the storage root, refusing anything that escapes it.
func (ls *LocalStorage) FullPath(p string) (string, error) {
	clean := path.Clean("/" + filepath.ToSlash(p))
	if clean == "/" || strings.Contains(p, "..") {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, p)
	}
	return filepath.Join(ls.basePath, filepath.FromSlash(clean[1:])), nil
}

// Delete removes a stored file. Deleting a missing file succeeds.
func (ls *LocalStorage) Delete(p string) error {
	if p == "" {
		return nil
	}
	full, err := ls.FullPath(p)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			ls.log.Warn().Str("path", p).Msg("File to delete does not exist")
			return nil
		}
		return fmt.Errorf("failed to delete file: %w", err)
	}
	ls.log.Info().Str("path", p).Msg("File deleted")
	return nil
}

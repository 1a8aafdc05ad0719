// Package blob stores uploaded clipboard files on the local filesystem,
// one file per blob, named by a generated identifier.
package blob

import (
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"clipsync-server-go/internal/platform/errors"
)

// Info describes a stored blob.
type Info struct {
	ID       string
	Size     int64
	MimeType string
}

// Store writes blobs under a single directory. Identifiers keep the original
// file extension so MIME types survive a round trip.
type Store struct {
	dir string
}

// NewStore creates the upload directory if needed.
func NewStore(dir string) (*Store, error) {
	const op = "blob.new_store"
	if dir == "" {
		return nil, errors.New(errors.KindConfig, op, "upload directory not configured")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(errors.KindStorage, op, "create upload directory", err)
	}
	return &Store{dir: dir}, nil
}

// Save streams src into a new blob and returns its metadata.
func (s *Store) Save(src io.Reader, originalName string) (*Info, error) {
	const op = "blob.save"

	ext := strings.ToLower(filepath.Ext(originalName))
	id := uuid.NewString() + ext

	file, err := os.Create(filepath.Join(s.dir, id))
	if err != nil {
		return nil, errors.Wrap(errors.KindStorage, op, "create blob file", err)
	}
	size, err := io.Copy(file, src)
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(filepath.Join(s.dir, id))
		return nil, errors.Wrap(errors.KindStorage, op, "write blob file", err)
	}

	mimeType := mime.TypeByExtension(ext)
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	return &Info{ID: id, Size: size, MimeType: mimeType}, nil
}

// Path resolves a blob identifier to its file path, rejecting identifiers
// that escape the upload directory.
func (s *Store) Path(blobID string) (string, error) {
	const op = "blob.path"
	if blobID == "" || blobID == "." || blobID == ".." || blobID != filepath.Base(blobID) {
		return "", errors.New(errors.KindDomain, op, "invalid blob identifier")
	}
	return filepath.Join(s.dir, blobID), nil
}

// Open returns the blob's content and its size. Missing blobs surface
// ErrNotFound.
func (s *Store) Open(blobID string) (*os.File, *Info, error) {
	const op = "blob.open"

	path, err := s.Path(blobID)
	if err != nil {
		return nil, nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, errors.Wrap(errors.KindStorage, op, "blob not found", errors.ErrNotFound)
		}
		return nil, nil, errors.Wrap(errors.KindStorage, op, "open blob file", err)
	}
	stat, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, nil, errors.Wrap(errors.KindStorage, op, "stat blob file", err)
	}

	mimeType := mime.TypeByExtension(strings.ToLower(filepath.Ext(blobID)))
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	return file, &Info{ID: blobID, Size: stat.Size(), MimeType: mimeType}, nil
}

// DeleteIfExists removes the blob and reports whether it was present.
func (s *Store) DeleteIfExists(blobID string) (bool, error) {
	const op = "blob.delete"

	path, err := s.Path(blobID)
	if err != nil {
		return false, err
	}
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, errors.Wrap(errors.KindStorage, op, "remove blob file", err)
	}
	return true, nil
}

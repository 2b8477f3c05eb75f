package attachments

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrBlobNotFound is returned when a handle does not resolve to a blob.
var ErrBlobNotFound = errors.New("blob not found")

// BlobInfo describes a stored blob.
type BlobInfo struct {
	Handle   string
	Size     int64
	Modified time.Time
}

// BlobStore is the opaque store uploaded files live in.
type BlobStore interface {
	// Put stores r under a new unique handle derived from name.
	Put(ctx context.Context, name string, r io.Reader, size int64, mimeType string) (string, error)

	// Open returns a reader over the blob.
	Open(ctx context.Context, handle string) (io.ReadCloser, error)

	// Stat returns the blob's size and modification time.
	Stat(ctx context.Context, handle string) (*BlobInfo, error)

	// Delete removes the blob. Deleting a missing blob is not an error.
	Delete(ctx context.Context, handle string) error

	// List returns every blob last modified before cutoff.
	List(ctx context.Context, cutoff time.Time) ([]BlobInfo, error)
}

// NewBlobName returns a unique stored name that keeps the original extension.
func NewBlobName(original string) string {
	ext := strings.ToLower(filepath.Ext(original))
	if len(ext) > 16 || strings.ContainsAny(ext, `/\`) {
		ext = ""
	}
	return uuid.NewString() + ext
}

// LocalStore keeps blobs as files in one directory. Handles are file names
// relative to that directory.
type LocalStore struct {
	dir string
}

// NewLocalStore creates the directory if needed.
func NewLocalStore(dir string) (*LocalStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("upload directory cannot be empty")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &LocalStore{dir: dir}, nil
}

// Dir returns the upload directory.
func (s *LocalStore) Dir() string {
	return s.dir
}

func (s *LocalStore) path(handle string) (string, error) {
	clean := filepath.Base(filepath.Clean(handle))
	if clean != handle || clean == "." || clean == ".." {
		return "", fmt.Errorf("invalid blob handle %q", handle)
	}
	return filepath.Join(s.dir, clean), nil
}

// Put writes r to a new file.
func (s *LocalStore) Put(_ context.Context, name string, r io.Reader, _ int64, _ string) (string, error) {
	handle := NewBlobName(name)
	p, err := s.path(handle)
	if err != nil {
		return "", err
	}

	f, err := os.OpenFile(p, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o640)
	if err != nil {
		return "", fmt.Errorf("failed to create blob: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(p)
		return "", fmt.Errorf("failed to write blob: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(p)
		return "", fmt.Errorf("failed to write blob: %w", err)
	}
	return handle, nil
}

// Open opens the file.
func (s *LocalStore) Open(_ context.Context, handle string) (io.ReadCloser, error) {
	p, err := s.path(handle)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrBlobNotFound
	}
	return f, err
}

// Stat stats the file.
func (s *LocalStore) Stat(_ context.Context, handle string) (*BlobInfo, error) {
	p, err := s.path(handle)
	if err != nil {
		return nil, err
	}
	fi, err := os.Stat(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrBlobNotFound
	}
	if err != nil {
		return nil, err
	}
	return &BlobInfo{Handle: handle, Size: fi.Size(), Modified: fi.ModTime()}, nil
}

// Delete removes the file.
func (s *LocalStore) Delete(_ context.Context, handle string) error {
	p, err := s.path(handle)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// List walks the directory.
func (s *LocalStore) List(_ context.Context, cutoff time.Time) ([]BlobInfo, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	var out []BlobInfo
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		fi, err := e.Info()
		if err != nil {
			continue
		}
		if fi.ModTime().Before(cutoff) {
			out = append(out, BlobInfo{Handle: e.Name(), Size: fi.Size(), Modified: fi.ModTime()})
		}
	}
	return out, nil
}

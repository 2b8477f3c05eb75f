package attachments

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// Registry tracks the uploads that belong to each session so they can be
// removed with it.
type Registry struct {
	mu    sync.Mutex
	files map[string][]UploadedFile
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{files: make(map[string][]UploadedFile)}
}

// Add records files under sessionID.
func (r *Registry) Add(sessionID string, files ...UploadedFile) {
	if len(files) == 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.files[sessionID] = append(r.files[sessionID], files...)
}

// Files returns the uploads recorded for sessionID.
func (r *Registry) Files(sessionID string) []UploadedFile {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]UploadedFile(nil), r.files[sessionID]...)
}

// Remove forgets sessionID and deletes its blobs. Every blob is attempted;
// the errors are joined.
func (r *Registry) Remove(ctx context.Context, sessionID string, blobs BlobStore) error {
	r.mu.Lock()
	files := r.files[sessionID]
	delete(r.files, sessionID)
	r.mu.Unlock()

	var errs []error
	for _, f := range files {
		if err := blobs.Delete(ctx, f.StorageHandle); err != nil {
			errs = append(errs, err)
		}
	}
	if len(files) > 0 {
		slog.DebugContext(ctx, "session uploads removed", "session_id", sessionID, "count", len(files))
	}
	return errors.Join(errs...)
}

// Forget drops handles from every session (after the blobs were pruned).
func (r *Registry) Forget(handles ...string) {
	if len(handles) == 0 {
		return
	}
	gone := make(map[string]struct{}, len(handles))
	for _, h := range handles {
		gone[h] = struct{}{}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for id, files := range r.files {
		kept := files[:0]
		for _, f := range files {
			if _, ok := gone[f.StorageHandle]; !ok {
				kept = append(kept, f)
			}
		}
		if len(kept) == 0 {
			delete(r.files, id)
		} else {
			r.files[id] = kept
		}
	}
}

// Sessions returns the number of sessions with recorded uploads.
func (r *Registry) Sessions() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.files)
}

package attachments

import (
	"fmt"
	"strings"

	"mercator-hq/parley/pkg/providers"
)

// UploadedFile describes one stored upload. The processor references it; the
// blob behind StorageHandle is owned by the BlobStore.
type UploadedFile struct {
	// FileName is the stored name (unique per upload).
	FileName string `json:"fileName"`

	// OriginalName is the client-supplied file name.
	OriginalName string `json:"originalName"`

	// MimeType is the declared content type.
	MimeType string `json:"mimeType"`

	// SizeBytes is the upload size, or 0 when unknown.
	SizeBytes int64 `json:"sizeBytes"`

	// StorageHandle locates the blob in its store.
	StorageHandle string `json:"storageHandle"`
}

// IsImage reports whether the file is classified as an image.
func (f UploadedFile) IsImage() bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(f.MimeType)), "image/")
}

// DisplayName returns the name shown to the model.
func (f UploadedFile) DisplayName() string {
	if f.OriginalName != "" {
		return f.OriginalName
	}
	return f.FileName
}

// Document is the text rendition of one non-image file.
type Document struct {
	Name      string
	Text      string
	Truncated bool

	// Failed is set when Text is a read-failure placeholder.
	Failed bool
}

// Result is the output of Process.
type Result struct {
	// Images are the image parts in input order.
	Images []providers.ContentPart

	// Documents are the document renditions in input order.
	Documents []Document

	// Dropped lists files excluded from the request.
	Dropped []*AttachmentError
}

// Text renders the documents as one prose block, or "" when there are none.
func (r *Result) Text() string {
	if r == nil || len(r.Documents) == 0 {
		return ""
	}
	var b strings.Builder
	for i, d := range r.Documents {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "--- %s ---\n%s", d.Name, d.Text)
	}
	return b.String()
}

// Usable reports whether any file produced content. Unreadable documents
// still count: their placeholder tells the model about the failure.
func (r *Result) Usable() bool {
	return r != nil && (len(r.Images) > 0 || len(r.Documents) > 0)
}

// AttachmentError describes why one file was dropped.
type AttachmentError struct {
	// File is the display name of the file.
	File string

	// Reason is a short machine-friendly cause (oversized, unreadable, ...).
	Reason string

	// Err is the underlying error, if any.
	Err error
}

// Attachment drop reasons.
const (
	ReasonOversized  = "oversized"
	ReasonUnreadable = "unreadable"
	ReasonEmpty      = "empty"
	ReasonNoContent  = "no_content"
)

// Error implements the error interface.
func (e *AttachmentError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("attachment %q %s: %v", e.File, e.Reason, e.Err)
	}
	return fmt.Sprintf("attachment %q %s", e.File, e.Reason)
}

// Unwrap returns the underlying error.
func (e *AttachmentError) Unwrap() error {
	return e.Err
}

package attachments

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"mercator-hq/parley/pkg/providers"
)

// Processor converts uploaded files into provider-agnostic content.
// It is safe for concurrent use.
type Processor struct {
	blobs  BlobStore
	limits Limits
	logger *slog.Logger
}

// NewProcessor creates a processor reading from blobs.
func NewProcessor(blobs BlobStore, limits Limits) *Processor {
	return &Processor{
		blobs:  blobs,
		limits: limits,
		logger: slog.Default().With("component", "attachments.processor"),
	}
}

// Limits returns the thresholds the processor enforces.
func (p *Processor) Limits() Limits {
	return p.limits
}

// Process classifies and reads files for the target provider. It never
// fails: files that cannot be used are listed in Result.Dropped.
func (p *Processor) Process(ctx context.Context, files []UploadedFile, provider string) *Result {
	res := &Result{}
	for _, f := range files {
		if f.IsImage() {
			part, aerr := p.readImage(ctx, f, provider)
			if aerr != nil {
				p.drop(ctx, res, aerr, provider)
				continue
			}
			res.Images = append(res.Images, part)
			continue
		}
		res.Documents = append(res.Documents, p.readDocument(ctx, f))
	}
	return res
}

func (p *Processor) drop(ctx context.Context, res *Result, aerr *AttachmentError, provider string) {
	res.Dropped = append(res.Dropped, aerr)
	p.logger.WarnContext(ctx, "attachment dropped",
		"file", aerr.File,
		"reason", aerr.Reason,
		"provider", provider,
		"error", aerr.Err,
	)
}

// size returns the declared size, asking the blob store when it is unknown.
func (p *Processor) size(ctx context.Context, f UploadedFile) (int64, error) {
	if f.SizeBytes > 0 {
		return f.SizeBytes, nil
	}
	info, err := p.blobs.Stat(ctx, f.StorageHandle)
	if err != nil {
		return 0, err
	}
	return info.Size, nil
}

func (p *Processor) readImage(ctx context.Context, f UploadedFile, provider string) (providers.ContentPart, *AttachmentError) {
	name := f.DisplayName()
	ceiling := p.limits.ImageCeiling(provider)

	size, err := p.size(ctx, f)
	if err != nil {
		return providers.ContentPart{}, &AttachmentError{File: name, Reason: ReasonUnreadable, Err: err}
	}
	if ceiling > 0 && size > ceiling {
		return providers.ContentPart{}, &AttachmentError{
			File:   name,
			Reason: ReasonOversized,
			Err:    fmt.Errorf("%d bytes exceeds the %d byte image limit for %s", size, ceiling, provider),
		}
	}

	rc, err := p.blobs.Open(ctx, f.StorageHandle)
	if err != nil {
		return providers.ContentPart{}, &AttachmentError{File: name, Reason: ReasonUnreadable, Err: err}
	}
	defer rc.Close()

	var r io.Reader = rc
	if ceiling > 0 {
		r = io.LimitReader(rc, ceiling+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return providers.ContentPart{}, &AttachmentError{File: name, Reason: ReasonUnreadable, Err: err}
	}
	if ceiling > 0 && int64(len(data)) > ceiling {
		return providers.ContentPart{}, &AttachmentError{
			File:   name,
			Reason: ReasonOversized,
			Err:    fmt.Errorf("blob exceeds the %d byte image limit for %s", ceiling, provider),
		}
	}
	if len(data) == 0 {
		return providers.ContentPart{}, &AttachmentError{File: name, Reason: ReasonEmpty}
	}

	mime := strings.ToLower(strings.TrimSpace(f.MimeType))
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = strings.TrimSpace(mime[:i])
	}
	return providers.ImagePart(mime, data), nil
}

func (p *Processor) readDocument(ctx context.Context, f UploadedFile) Document {
	name := f.DisplayName()
	doc := Document{Name: name}

	fail := func(err error) Document {
		reason := err.Error()
		if errors.Is(err, ErrBlobNotFound) {
			reason = "file not found"
		}
		p.logger.WarnContext(ctx, "attachment unreadable", "file", name, "error", err)
		doc.Failed = true
		doc.Text = fmt.Sprintf("[Unable to read file %q: %s]", name, reason)
		return doc
	}

	size, err := p.size(ctx, f)
	if err != nil {
		return fail(err)
	}

	limit := size
	if size > p.limits.DocumentFullReadBytes {
		limit = p.limits.DocumentPreviewBytes
		doc.Truncated = true
	}

	rc, err := p.blobs.Open(ctx, f.StorageHandle)
	if err != nil {
		return fail(err)
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, limit))
	if err != nil {
		return fail(err)
	}

	doc.Text = strings.ToValidUTF8(string(data), "�")
	if doc.Truncated {
		doc.Text += fmt.Sprintf("\n\n[... truncated: showing first %d of %d bytes ...]", len(data), size)
	}
	return doc
}

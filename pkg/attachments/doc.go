// Package attachments turns uploaded files into provider-agnostic content.
//
// Files are classified by mime type: anything under image/ is an image, the
// rest are documents. Documents are read as UTF-8 text (in full up to 1 MiB,
// otherwise a 100 KiB preview with a truncation marker) and images become
// providers.ContentPart values carrying raw bytes. Image size ceilings depend
// on the target provider and are enforced before any byte is read.
//
// Processing fails soft. A file that cannot be read or is too large is
// dropped and reported in Result.Dropped; the remaining files are still
// processed. Documents that cannot be read are replaced by a placeholder so
// the model is told the file existed.
//
// Uploaded bytes live in a BlobStore (local directory or S3 bucket). The
// Registry tracks which blobs belong to which session, and the retention
// Scheduler prunes old blobs on a cron schedule.
package attachments

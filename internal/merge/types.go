// Package merge implements the file-merge pipeline: it reconciles the
// client-declared ordering against the uploads actually received, converts
// raster images into single-page PDF documents, and concatenates everything
// into one page-ordered output PDF. The package is transport-agnostic; the
// HTTP layer feeds it UploadedFile values and streams back whatever bytes or
// error it produces.
package merge

import "strings"

// Kind classifies an upload once at ingestion so the engine never has to
// re-inspect content types mid-merge.
type Kind int

const (
	KindPDF Kind = iota
	KindImage
)

// UploadedFile describes one upload owned by the current merge request.
// StorageID is the handle under which the blob lives in the ephemeral store;
// it is generated as "<sanitized client name>-<uuid>" so that order
// descriptor entries prefix-match exactly one stored blob.
type UploadedFile struct {
	StorageID   string
	OrigName    string
	ContentType string
	Size        int64
	Kind        Kind
}

// allowedTypes maps the supported upload MIME types to their kind.
var allowedTypes = map[string]Kind{
	"application/pdf": KindPDF,
	"image/png":       KindImage,
	"image/jpeg":      KindImage,
	"image/jpg":       KindImage,
	"image/webp":      KindImage,
}

// KindForContentType returns the pipeline kind for a declared MIME type.
// The second return value is false for anything outside the supported set;
// such uploads must be rejected before they reach the engine.
func KindForContentType(contentType string) (Kind, bool) {
	ct := strings.TrimSpace(strings.ToLower(contentType))
	if i := strings.Index(ct, ";"); i > 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	k, ok := allowedTypes[ct]
	return k, ok
}

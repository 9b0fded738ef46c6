// validation.go - upload validation and filename sanitization helpers
package server

import (
	"fmt"
	"mime"
	"path/filepath"
	"strings"

	"pdfcollate/internal/merge"
)

// validateUpload checks a file part against the supported input set before
// any bytes are processed: application/pdf, image/png, image/jpeg,
// image/jpg, image/webp. Anything else is rejected with a ValidationError;
// nothing outside this set may reach the merge engine.
//
// When the client declares no useful type (empty or octet-stream), the
// filename extension decides.
func validateUpload(filename, contentType string) (merge.Kind, error) {
	if filename == "" {
		return 0, &merge.ValidationError{Reason: "upload is missing a filename"}
	}

	kind, ok := merge.KindForContentType(contentType)
	if !ok {
		ct := strings.TrimSpace(strings.ToLower(contentType))
		if i := strings.Index(ct, ";"); i > 0 {
			ct = strings.TrimSpace(ct[:i])
		}
		if ct == "" || ct == "application/octet-stream" {
			byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(filename)))
			kind, ok = merge.KindForContentType(byExt)
		}
	}
	if !ok {
		return 0, &merge.ValidationError{
			Reason: fmt.Sprintf("unsupported file type %q for %q", contentType, filename),
		}
	}
	return kind, nil
}

// sanitizeFilename reduces a client-supplied filename to a storage-safe name.
// The result doubles as the prefix of the file's storage identifier, so the
// character set must match what the store accepts and what order descriptor
// entries will be matched against.
func sanitizeFilename(filename string) string {
	var b strings.Builder
	for _, r := range filename {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == '_' || r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}

	s := strings.Trim(b.String(), ". ")

	if len(s) > 100 {
		ext := filepath.Ext(s)
		if len(ext) > 20 {
			ext = ""
		}
		s = s[:100-len(ext)] + ext
	}

	if s == "" {
		s = "unnamed"
	}
	return s
}

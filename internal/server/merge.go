package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"pdfcollate/internal/merge"
)

// errorResp is the JSON body returned for any failed merge request. The
// message names the offending input file when the failure is attributable
// to one.
type errorResp struct {
	Error string `json:"error"`
}

// handleMerge handles POST /api/merge: a multipart request with repeated
// "files" parts plus an optional "order" field (JSON array of identifiers,
// each a prefix of one upload's storage identifier).
//
// Every accepted upload is persisted to the ephemeral store for the duration
// of the request and removed again on every exit path. On success the merged
// PDF is persisted, streamed back as an attachment, and deleted after the
// configured grace window so slow downloads can finish.
func (s *Server) handleMerge(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	start := time.Now()
	ctx := r.Context()

	// Hard cap on the whole request body; per-file ceilings are enforced
	// again while each part is stored.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxFileBytes*int64(s.cfg.MaxFiles)+(1<<20))

	mr, err := r.MultipartReader()
	if err != nil {
		s.mergeFail(w, r, &merge.ValidationError{Reason: "bad multipart request"})
		return
	}

	var (
		uploads []merge.UploadedFile
		order   []string
	)

	// The request exclusively owns its uploads: whatever got stored is
	// removed when the handler returns, success or failure.
	defer func() {
		for _, u := range uploads {
			s.store.Remove(context.Background(), u.StorageID)
		}
	}()

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			s.mergeFail(w, r, &merge.ValidationError{Reason: "bad multipart request"})
			return
		}

		switch part.FormName() {
		case "order":
			raw, err := io.ReadAll(io.LimitReader(part, 64<<10))
			part.Close()
			if err != nil {
				s.mergeFail(w, r, &merge.ValidationError{Reason: "unreadable order field"})
				return
			}
			order = parseOrder(raw)

		case "files", "file":
			if len(uploads) >= s.cfg.MaxFiles {
				part.Close()
				s.mergeFail(w, r, &merge.ValidationError{
					Reason: fmt.Sprintf("too many files: limit is %d per request", s.cfg.MaxFiles),
				})
				return
			}
			up, err := s.storeUpload(ctx, part)
			part.Close()
			if err != nil {
				s.mergeFail(w, r, err)
				return
			}
			uploads = append(uploads, up)

		default:
			// Unknown fields are ignored.
			part.Close()
		}
	}

	if len(uploads) == 0 {
		s.mergeFail(w, r, &merge.ValidationError{Reason: "no files uploaded"})
		return
	}

	resolved := merge.Resolve(order, uploads)

	out, err := s.engine.Merge(ctx, resolved)
	if err != nil {
		s.mergeFail(w, r, err)
		return
	}

	outHandle, err := s.store.Put(ctx, "merged", "application/pdf", bytes.NewReader(out))
	if err != nil {
		s.mergeFail(w, r, &merge.StorageError{Op: "put", Err: err})
		return
	}
	// Fire-and-forget: the grace window keeps the artifact alive until the
	// response has drained on slow links. The sweeper covers a crash inside
	// the window.
	s.store.RemoveAfter(outHandle, s.cfg.OutputGrace)

	rc, err := s.store.Open(ctx, outHandle)
	if err != nil {
		s.mergeFail(w, r, &merge.StorageError{Op: "open", Err: err})
		return
	}
	defer rc.Close()

	pages, err := merge.PageCount(out)
	if err != nil {
		pages = 0
	}

	name := fmt.Sprintf("merged-%s.pdf", time.Now().UTC().Format("20060102-150405"))
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Length", strconv.Itoa(len(out)))
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename=%q`, name))
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, rc)

	s.metrics.mergesTotal.WithLabelValues("ok").Inc()
	s.metrics.mergeDuration.Observe(time.Since(start).Seconds())
	s.metrics.mergeInputFiles.Observe(float64(len(uploads)))
	s.metrics.mergePagesTotal.Add(float64(pages))

	Info("merge_complete", map[string]any{
		"request_id": RequestIDFromContext(ctx),
		"files":      len(uploads),
		"pages":      pages,
		"bytes":      len(out),
		"ms":         time.Since(start).Milliseconds(),
	})
}

// storeUpload validates one multipart file part and streams it into the
// ephemeral store. The part's kind (PDF vs image) is decided here, once, so
// the engine never re-inspects content types.
func (s *Server) storeUpload(ctx context.Context, part *multipart.Part) (merge.UploadedFile, error) {
	origName := sanitizeFilename(part.FileName())
	contentType := part.Header.Get("Content-Type")

	kind, err := validateUpload(origName, contentType)
	if err != nil {
		return merge.UploadedFile{}, err
	}

	// Stream at most one byte over the ceiling so oversize uploads are
	// detected without buffering the whole part.
	cr := &countingReader{r: io.LimitReader(part, s.cfg.MaxFileBytes+1)}
	handle, err := s.store.Put(ctx, origName, contentType, cr)
	if err != nil {
		return merge.UploadedFile{}, &merge.StorageError{Op: "put", Err: err}
	}

	if cr.n > s.cfg.MaxFileBytes {
		s.store.Remove(ctx, handle)
		return merge.UploadedFile{}, &merge.ValidationError{
			Reason: fmt.Sprintf("file %q exceeds the %d byte limit", origName, s.cfg.MaxFileBytes),
		}
	}
	if cr.n == 0 {
		s.store.Remove(ctx, handle)
		return merge.UploadedFile{}, &merge.ValidationError{
			Reason: fmt.Sprintf("file %q is empty", origName),
		}
	}

	return merge.UploadedFile{
		StorageID:   handle,
		OrigName:    origName,
		ContentType: contentType,
		Size:        cr.n,
		Kind:        kind,
	}, nil
}

// mergeFail translates a pipeline error into the response the client sees
// and records it. Validation problems are the client's fault, processing
// problems are the input's fault, storage problems are ours.
func (s *Server) mergeFail(w http.ResponseWriter, r *http.Request, err error) {
	var (
		vErr *merge.ValidationError
		pErr *merge.ProcessingError
		sErr *merge.StorageError
	)

	status := http.StatusInternalServerError
	class := "internal"
	switch {
	case errors.As(err, &vErr):
		status, class = http.StatusBadRequest, "validation"
	case errors.As(err, &pErr):
		status, class = http.StatusUnprocessableEntity, "processing"
	case errors.As(err, &sErr):
		status, class = http.StatusBadGateway, "storage"
	}

	s.metrics.mergesTotal.WithLabelValues(class).Inc()
	Error("merge_failed", map[string]any{
		"request_id": RequestIDFromContext(r.Context()),
		"class":      class,
	}, err)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorResp{Error: err.Error()})
}

// parseOrder decodes the order descriptor. The UI sends a JSON array; a
// plain comma-separated list is accepted as a fallback. Malformed input
// degenerates to an empty descriptor, which resolves to receipt order.
//
// Entries are client filenames, but uploads are stored under the sanitized
// name plus a uuid suffix, so each entry is sanitized the same way here or
// names with spaces or non-ASCII characters would never prefix-match their
// storage identifiers.
func parseOrder(raw []byte) []string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil
	}

	var ids []string
	if err := json.Unmarshal(raw, &ids); err != nil {
		for _, p := range strings.Split(string(raw), ",") {
			ids = append(ids, p)
		}
	}

	out := ids[:0]
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		out = append(out, sanitizeFilename(id))
	}
	return out
}

// countingReader tracks how many bytes passed through.
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

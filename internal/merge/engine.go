package merge

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"golang.org/x/sync/errgroup"
)

// BlobSource hands the engine read access to stored upload blobs.
// It is satisfied by store.Store.
type BlobSource interface {
	Open(ctx context.Context, handle string) (io.ReadCloser, error)
}

// Engine assembles one merged PDF from an ordered sequence of uploads.
// Native PDFs contribute their pages verbatim (copied, not re-rendered);
// images are routed through NormalizeImage and contribute one page each.
type Engine struct {
	blobs   BlobSource
	workers int
	conf    *model.Configuration
}

// NewEngine returns an engine that preprocesses up to workers inputs
// concurrently.
func NewEngine(blobs BlobSource, workers int) *Engine {
	if workers < 1 {
		workers = 1
	}
	return &Engine{blobs: blobs, workers: workers, conf: newConfiguration()}
}

// Merge produces the serialized output PDF for the given resolved sequence.
// The concatenation order of pages exactly matches the sequence order; a
// multi-page input contributes a contiguous run of pages at its position.
//
// Merge is fail-fast and all-or-nothing: if any single input cannot be
// parsed or embedded, no output is returned and the error names the
// offending file. The engine performs no cleanup of its own; blob lifecycle
// belongs to the caller and the ephemeral store.
func (e *Engine) Merge(ctx context.Context, files []UploadedFile) ([]byte, error) {
	if len(files) == 0 {
		return nil, &ValidationError{Reason: "nothing to merge"}
	}

	// Inputs are independent, so preprocessing runs concurrently, but the
	// results land in a slice indexed by sequence position: page order must
	// follow the resolved sequence, never completion order.
	parts := make([][]byte, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i := range files {
		g.Go(func() error {
			data, err := e.readBlob(gctx, files[i])
			if err != nil {
				return err
			}
			switch files[i].Kind {
			case KindPDF:
				if err := api.Validate(bytes.NewReader(data), e.conf); err != nil {
					return &ProcessingError{Filename: files[i].OrigName, Err: fmt.Errorf("invalid pdf: %w", err)}
				}
				parts[i] = data
			default:
				pdf, err := NormalizeImage(data, files[i].OrigName)
				if err != nil {
					return err
				}
				parts[i] = pdf
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	rs := make([]io.ReadSeeker, len(parts))
	for i, p := range parts {
		rs[i] = bytes.NewReader(p)
	}

	var buf bytes.Buffer
	if err := api.MergeRaw(rs, &buf, false, e.conf); err != nil {
		return nil, &ProcessingError{Err: fmt.Errorf("assembling output: %w", err)}
	}
	return buf.Bytes(), nil
}

func (e *Engine) readBlob(ctx context.Context, f UploadedFile) ([]byte, error) {
	rc, err := e.blobs.Open(ctx, f.StorageID)
	if err != nil {
		return nil, &StorageError{Op: "open", Err: fmt.Errorf("%s: %w", f.StorageID, err)}
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, &StorageError{Op: "read", Err: fmt.Errorf("%s: %w", f.StorageID, err)}
	}
	return data, nil
}

// PageCount reports the number of pages in a serialized PDF document.
func PageCount(pdf []byte) (int, error) {
	return api.PageCount(bytes.NewReader(pdf), newConfiguration())
}

// PageDims reports the media box dimensions, in points, of every page of a
// serialized PDF document, in page order.
func PageDims(pdf []byte) ([]types.Dim, error) {
	return api.PageDims(bytes.NewReader(pdf), newConfiguration())
}

func newConfiguration() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

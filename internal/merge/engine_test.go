package merge

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
)

// memBlobs is an in-memory BlobSource for engine tests.
type memBlobs map[string][]byte

func (m memBlobs) Open(ctx context.Context, handle string) (io.ReadCloser, error) {
	data, ok := m[handle]
	if !ok {
		return nil, fmt.Errorf("no such blob %q", handle)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// sizedPagePDF builds a real single-page PDF whose page measures w x h
// points, via the image importer. Distinct sizes make pages traceable to
// their input in merged output.
func sizedPagePDF(t *testing.T, w, h int) []byte {
	t.Helper()
	pdf, err := NormalizeImage(pngBytes(t, w, h), "fixture.png")
	if err != nil {
		t.Fatalf("building pdf fixture: %v", err)
	}
	return pdf
}

// multiPagePDF merges single-page fixtures of the given sizes into one
// document, one page per size.
func multiPagePDF(t *testing.T, sizes ...[2]int) []byte {
	t.Helper()
	blobs := memBlobs{}
	files := make([]UploadedFile, len(sizes))
	for i, wh := range sizes {
		id := fmt.Sprintf("p%d", i)
		blobs[id] = sizedPagePDF(t, wh[0], wh[1])
		files[i] = UploadedFile{StorageID: id, OrigName: id + ".pdf", Kind: KindPDF}
	}
	e := NewEngine(blobs, 1)
	out, err := e.Merge(context.Background(), files)
	if err != nil {
		t.Fatalf("building multi-page fixture: %v", err)
	}
	return out
}

func TestMergeConcatenatesPages(t *testing.T) {
	blobs := memBlobs{
		"doc.pdf-1":   multiPagePDF(t, [2]int{70, 70}, [2]int{80, 80}),
		"photo.png-2": pngBytes(t, 120, 60),
		"scan.jpg-3":  jpegBytes(t, 50, 50),
	}
	e := NewEngine(blobs, 4)

	out, err := e.Merge(context.Background(), []UploadedFile{
		{StorageID: "doc.pdf-1", OrigName: "doc.pdf", Kind: KindPDF},
		{StorageID: "photo.png-2", OrigName: "photo.png", Kind: KindImage},
		{StorageID: "scan.jpg-3", OrigName: "scan.jpg", Kind: KindImage},
	})
	if err != nil {
		t.Fatalf("Merge() error = %v", err)
	}
	if !bytes.HasPrefix(out, []byte("%PDF-")) {
		t.Fatal("output does not start with a PDF header")
	}

	pages, err := PageCount(out)
	if err != nil {
		t.Fatalf("PageCount() error = %v", err)
	}
	if pages != 4 {
		t.Errorf("PageCount() = %d, want 4 (2 from pdf + 1 per image)", pages)
	}

	// The pdf contributes its contiguous page run at position one, then each
	// image contributes its own page, in sequence order.
	assertPageDims(t, out, [][2]float64{{70, 70}, {80, 80}, {120, 60}, {50, 50}})
}

func TestMergeSingleInput(t *testing.T) {
	blobs := memBlobs{"only.pdf-1": sizedPagePDF(t, 80, 80)}
	e := NewEngine(blobs, 2)

	out, err := e.Merge(context.Background(), []UploadedFile{
		{StorageID: "only.pdf-1", OrigName: "only.pdf", Kind: KindPDF},
	})
	if err != nil {
		t.Fatalf("Merge() error = %v", err)
	}
	pages, err := PageCount(out)
	if err != nil {
		t.Fatalf("PageCount() error = %v", err)
	}
	if pages != 1 {
		t.Errorf("PageCount() = %d, want 1", pages)
	}
}

func TestMergeEmptySequence(t *testing.T) {
	e := NewEngine(memBlobs{}, 2)
	_, err := e.Merge(context.Background(), nil)

	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("error = %T (%v), want *ValidationError", err, err)
	}
}

func TestMergeCorruptPDFNamesFile(t *testing.T) {
	blobs := memBlobs{
		"good.pdf-1": sizedPagePDF(t, 80, 80),
		"bad.pdf-2":  []byte("%PDF-1.7 this is not a real document"),
	}
	e := NewEngine(blobs, 2)

	_, err := e.Merge(context.Background(), []UploadedFile{
		{StorageID: "good.pdf-1", OrigName: "good.pdf", Kind: KindPDF},
		{StorageID: "bad.pdf-2", OrigName: "bad.pdf", Kind: KindPDF},
	})
	if err == nil {
		t.Fatal("Merge() accepted a corrupt pdf")
	}

	var pErr *ProcessingError
	if !errors.As(err, &pErr) {
		t.Fatalf("error = %T (%v), want *ProcessingError", err, err)
	}
	if pErr.Filename != "bad.pdf" {
		t.Errorf("error names %q, want %q", pErr.Filename, "bad.pdf")
	}
	if !strings.Contains(err.Error(), "bad.pdf") {
		t.Errorf("error message %q does not name the offending file", err.Error())
	}
}

func TestMergeMissingBlob(t *testing.T) {
	e := NewEngine(memBlobs{}, 2)
	_, err := e.Merge(context.Background(), []UploadedFile{
		{StorageID: "gone.pdf-1", OrigName: "gone.pdf", Kind: KindPDF},
	})

	var sErr *StorageError
	if !errors.As(err, &sErr) {
		t.Fatalf("error = %T (%v), want *StorageError", err, err)
	}
}

func TestMergePreservesSequenceOrderAcrossWorkers(t *testing.T) {
	// Every input page has a distinct size, so any permutation of pages by
	// worker scheduling would show up in the dimension sequence.
	blobs := memBlobs{
		"a-1": sizedPagePDF(t, 10, 10),
		"b-2": multiPagePDF(t, [2]int{20, 20}, [2]int{30, 30}),
		"c-3": pngBytes(t, 40, 40),
	}
	e := NewEngine(blobs, 3)

	seq := []UploadedFile{
		{StorageID: "a-1", OrigName: "a.pdf", Kind: KindPDF},
		{StorageID: "b-2", OrigName: "b.pdf", Kind: KindPDF},
		{StorageID: "c-3", OrigName: "c.png", Kind: KindImage},
	}

	for run := 0; run < 3; run++ {
		out, err := e.Merge(context.Background(), seq)
		if err != nil {
			t.Fatalf("run %d: Merge() error = %v", run, err)
		}
		assertPageDims(t, out, [][2]float64{{10, 10}, {20, 20}, {30, 30}, {40, 40}})
	}
}

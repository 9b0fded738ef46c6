package merge

import (
	"bytes"
	"encoding/hex"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"
)

// pngBytes encodes a solid-color PNG of the given pixel dimensions.
func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 120, B: 40, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encoding png fixture: %v", err)
	}
	return buf.Bytes()
}

func jpegBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("encoding jpeg fixture: %v", err)
	}
	return buf.Bytes()
}

// assertPageDims checks a document's page dimensions, in points, page by page.
func assertPageDims(t *testing.T, pdf []byte, want [][2]float64) {
	t.Helper()
	dims, err := PageDims(pdf)
	if err != nil {
		t.Fatalf("PageDims() error = %v", err)
	}
	if len(dims) != len(want) {
		t.Fatalf("PageDims() returned %d pages, want %d", len(dims), len(want))
	}
	for i, d := range dims {
		if d.Width != want[i][0] || d.Height != want[i][1] {
			t.Errorf("page %d dims = %.2fx%.2f, want %.0fx%.0f",
				i+1, d.Width, d.Height, want[i][0], want[i][1])
		}
	}
}

func TestNormalizeImagePNG(t *testing.T) {
	pdf, err := NormalizeImage(pngBytes(t, 200, 100), "photo.png")
	if err != nil {
		t.Fatalf("NormalizeImage() error = %v", err)
	}
	if !bytes.HasPrefix(pdf, []byte("%PDF-")) {
		t.Fatalf("output does not start with a PDF header")
	}

	pages, err := PageCount(pdf)
	if err != nil {
		t.Fatalf("PageCount() error = %v", err)
	}
	if pages != 1 {
		t.Errorf("PageCount() = %d, want 1", pages)
	}

	// One pixel is one point: a 200x100 image fills a 200x100 point page.
	assertPageDims(t, pdf, [][2]float64{{200, 100}})
}

func TestNormalizeImageJPEG(t *testing.T) {
	pdf, err := NormalizeImage(jpegBytes(t, 64, 48), "scan.jpg")
	if err != nil {
		t.Fatalf("NormalizeImage() error = %v", err)
	}
	pages, err := PageCount(pdf)
	if err != nil {
		t.Fatalf("PageCount() error = %v", err)
	}
	if pages != 1 {
		t.Errorf("PageCount() = %d, want 1", pages)
	}
	assertPageDims(t, pdf, [][2]float64{{64, 48}})
}

// webpFixture is a minimal lossless WEBP: a 16x8 opaque black image encoded
// as a VP8L bitstream with single-symbol code trees. x/image carries no WEBP
// encoder, so the fixture is checked in as bytes.
const webpFixture = "5249464616000000574542505650384c090000002f0fc001008888fe0700"

func webpBytes(t *testing.T) []byte {
	t.Helper()
	data, err := hex.DecodeString(webpFixture)
	if err != nil {
		t.Fatalf("decoding webp fixture: %v", err)
	}
	return data
}

func TestNormalizeImageWEBP(t *testing.T) {
	pdf, err := NormalizeImage(webpBytes(t), "sticker.webp")
	if err != nil {
		t.Fatalf("NormalizeImage() error = %v", err)
	}
	pages, err := PageCount(pdf)
	if err != nil {
		t.Fatalf("PageCount() error = %v", err)
	}
	if pages != 1 {
		t.Errorf("PageCount() = %d, want 1", pages)
	}
	// The transcoded PNG keeps the WEBP's pixel dimensions.
	assertPageDims(t, pdf, [][2]float64{{16, 8}})
}

func TestNormalizeImageGarbage(t *testing.T) {
	_, err := NormalizeImage([]byte("definitely not pixels"), "junk.png")
	if err == nil {
		t.Fatal("NormalizeImage() accepted garbage input")
	}

	var pErr *ProcessingError
	if !errors.As(err, &pErr) {
		t.Fatalf("error = %T, want *ProcessingError", err)
	}
	if pErr.Filename != "junk.png" {
		t.Errorf("error names %q, want %q", pErr.Filename, "junk.png")
	}
}

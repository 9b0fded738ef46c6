package merge

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"io"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"golang.org/x/image/webp"
)

// NormalizeImage converts a raster image into a single-page PDF document.
// The page is sized to the image's pixel dimensions interpreted as PDF
// points (1 pixel = 1 point, the 72-DPI assumption) and the image is drawn
// to fill the page exactly.
//
// The embedding step only supports true PNG or JPEG pixel data, so WEBP
// uploads are decoded and re-encoded as PNG first. Anything undecodable
// yields a ProcessingError naming the offending file. NormalizeImage only
// reads the given bytes; the caller owns all blob lifecycle.
func NormalizeImage(data []byte, origName string) ([]byte, error) {
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, &ProcessingError{Filename: origName, Err: fmt.Errorf("unreadable image: %w", err)}
	}

	switch format {
	case "png", "jpeg":
		// Embedded as-is.
	case "webp":
		data, err = webpToPNG(data)
		if err != nil {
			return nil, &ProcessingError{Filename: origName, Err: err}
		}
	default:
		return nil, &ProcessingError{Filename: origName, Err: fmt.Errorf("unsupported image format %q", format)}
	}

	var buf bytes.Buffer
	err = api.ImportImages(nil, &buf, []io.Reader{bytes.NewReader(data)}, pdfcpu.DefaultImportConfig(), newConfiguration())
	if err != nil {
		return nil, &ProcessingError{Filename: origName, Err: fmt.Errorf("embedding image: %w", err)}
	}
	return buf.Bytes(), nil
}

// webpToPNG transcodes WEBP pixel data to PNG for embedding.
func webpToPNG(data []byte) ([]byte, error) {
	img, err := webp.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding webp: %w", err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("re-encoding webp as png: %w", err)
	}
	return buf.Bytes(), nil
}

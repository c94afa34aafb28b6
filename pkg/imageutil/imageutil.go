// Package imageutil provides the image codec helpers used at the provider
// and transport boundaries: MIME sniffing, base64 data URLs, and size-limit
// compression for tool results.
package imageutil

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
)

// DetectMIMEBytes sniffs the image MIME type from header bytes. It inspects
// magic bytes rather than any file extension, so the result reflects the
// true encoding of the data.
func DetectMIMEBytes(data []byte) string {
	if len(data) >= 8 && bytes.Equal(data[:8], []byte("\x89PNG\r\n\x1a\n")) {
		return "image/png"
	}
	if len(data) >= 2 && data[0] == 0xff && data[1] == 0xd8 {
		return "image/jpeg"
	}
	if len(data) >= 12 && bytes.Equal(data[:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WEBP")) {
		return "image/webp"
	}
	if len(data) >= 4 && bytes.Equal(data[:4], []byte("GIF8")) {
		return "image/gif"
	}
	if len(data) >= 2 && data[0] == 'B' && data[1] == 'M' {
		return "image/bmp"
	}
	if len(data) >= 4 && (bytes.Equal(data[:4], []byte("II\x2a\x00")) || bytes.Equal(data[:4], []byte("MM\x00\x2a"))) {
		return "image/tiff"
	}
	return ""
}

// DetectMIME sniffs the MIME type of an image file, falling back to an
// extension-based guess when the header is unrecognized.
func DetectMIME(path string) string {
	header := make([]byte, 12)
	f, err := os.Open(path)
	if err == nil {
		n, _ := f.Read(header)
		f.Close()
		if m := DetectMIMEBytes(header[:n]); m != "" {
			return m
		}
	}
	if m := mime.TypeByExtension(filepath.Ext(path)); m != "" {
		return m
	}
	return "application/octet-stream"
}

// DataURL encodes raw image bytes as a base64 data URL suitable for
// OpenAI-style image_url content parts.
func DataURL(data []byte) string {
	mimeType := DetectMIMEBytes(data)
	if mimeType == "" {
		mimeType = "image/png"
	}
	return fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(data))
}

// Save writes encoded image bytes to path, creating parent directories.
func Save(data []byte, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Load reads an image file into memory.
func Load(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// Compression parameters for FitUnder. The quality ladder is tried first;
// when even the lowest quality does not fit, the image is downscaled.
var (
	jpegQualities  = []int{85, 70, 50}
	downscaleSteps = []float64{0.75, 0.5}
)

// FitUnder returns the path and format of an image that fits within
// maxBytes. If the file at path already fits it is returned as-is.
// Otherwise the image is re-encoded as JPEG next to the original, walking
// down a quality ladder and then downscaling. As a last resort the smallest
// attempt is written even if it still exceeds the limit.
func FitUnder(path string, maxBytes int64) (string, string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", "", err
	}

	mimeType := DetectMIME(path)
	format := strings.TrimPrefix(mimeType, "image/")

	if info.Size() <= maxBytes {
		return path, format, nil
	}

	img, err := imaging.Open(path)
	if err != nil {
		return "", "", fmt.Errorf("decode %s: %w", path, err)
	}

	compressedPath := strings.TrimSuffix(path, filepath.Ext(path)) + ".transport.jpg"

	var last []byte
	for _, quality := range jpegQualities {
		data, err := encodeJPEG(img, quality)
		if err != nil {
			return "", "", err
		}
		last = data
		if int64(len(data)) <= maxBytes {
			return compressedPath, "jpeg", os.WriteFile(compressedPath, data, 0o644)
		}
	}

	bounds := img.Bounds()
	for _, scale := range downscaleSteps {
		resized := imaging.Resize(img, int(float64(bounds.Dx())*scale), int(float64(bounds.Dy())*scale), imaging.Lanczos)
		data, err := encodeJPEG(resized, 70)
		if err != nil {
			return "", "", err
		}
		last = data
		if int64(len(data)) <= maxBytes {
			return compressedPath, "jpeg", os.WriteFile(compressedPath, data, 0o644)
		}
	}

	// Give up gracefully: ship the smallest attempt.
	return compressedPath, "jpeg", os.WriteFile(compressedPath, last, 0o644)
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

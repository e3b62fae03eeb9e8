package util

import (
	"net/http"
	"strings"
)

// SniffFormat detects the image format from magic bytes. Returns the short
// format name ("jpg", "png", ...) and its MIME type, or ("", "") when the
// payload is not a recognized image.
func SniffFormat(b []byte) (format, mime string) {
	// JPEG: FF D8
	if len(b) >= 2 && b[0] == 0xFF && b[1] == 0xD8 {
		return "jpg", "image/jpeg"
	}
	// PNG: 89 50 4E 47 0D 0A 1A 0A
	if len(b) >= 8 &&
		b[0] == 0x89 && b[1] == 0x50 && b[2] == 0x4E && b[3] == 0x47 &&
		b[4] == 0x0D && b[5] == 0x0A && b[6] == 0x1A && b[7] == 0x0A {
		return "png", "image/png"
	}
	// BMP: "BM"
	if len(b) >= 2 && b[0] == 'B' && b[1] == 'M' {
		return "bmp", "image/bmp"
	}
	// TIFF: "II*\0" (little endian) or "MM\0*" (big endian)
	if len(b) >= 4 &&
		((b[0] == 'I' && b[1] == 'I' && b[2] == 0x2A && b[3] == 0x00) ||
			(b[0] == 'M' && b[1] == 'M' && b[2] == 0x00 && b[3] == 0x2A)) {
		return "tiff", "image/tiff"
	}
	// WEBP: "RIFF....WEBP"
	if len(b) >= 12 &&
		b[0] == 'R' && b[1] == 'I' && b[2] == 'F' && b[3] == 'F' &&
		b[8] == 'W' && b[9] == 'E' && b[10] == 'B' && b[11] == 'P' {
		return "webp", "image/webp"
	}
	// GIF: "GIF8" — recognized so the validator can name it in rejections
	if len(b) >= 4 && b[0] == 'G' && b[1] == 'I' && b[2] == 'F' && b[3] == '8' {
		return "gif", "image/gif"
	}
	return "", ""
}

// PickMIME prefers the sniffed MIME, then the declared one, then falls back
// to stdlib content detection.
func PickMIME(sniffed, declared string, data []byte) string {
	if s := strings.TrimSpace(sniffed); s != "" {
		return s
	}
	if d := strings.TrimSpace(declared); d != "" {
		if !strings.Contains(d, "/") {
			d = "image/" + strings.ToLower(d)
		}
		return d
	}
	if len(data) > 0 {
		return http.DetectContentType(data)
	}
	return "application/octet-stream"
}

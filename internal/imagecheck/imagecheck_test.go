package imagecheck

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var defaultFormats = []string{"jpg", "jpeg", "png", "bmp", "tiff", "webp"}

func jpegBytes() []byte  { return []byte{0xFF, 0xD8, 0xFF, 0xE0, 0, 0, 0, 0} }
func pngBytes() []byte   { return []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0, 0} }
func bmpBytes() []byte   { return []byte{'B', 'M', 0, 0, 0, 0} }
func tiffBytes() []byte  { return []byte{'I', 'I', 0x2A, 0x00, 0, 0} }
func webpBytes() []byte  { return append([]byte("RIFF\x00\x00\x00\x00WEBP"), 0) }
func gifBytes() []byte   { return []byte("GIF89a\x00\x00") }

func TestValidateAcceptsSupportedFormats(t *testing.T) {
	v := New(1024, defaultFormats)

	cases := map[string][]byte{
		"jpg":  jpegBytes(),
		"png":  pngBytes(),
		"bmp":  bmpBytes(),
		"tiff": tiffBytes(),
		"webp": webpBytes(),
	}
	for want, data := range cases {
		img, err := v.Validate(data, "", 42)
		require.NoError(t, err, want)
		assert.Equal(t, want, img.Format)
		assert.Equal(t, int64(42), img.ChatID)
	}
}

func TestValidateRejectsGIF(t *testing.T) {
	v := New(1024, defaultFormats)
	_, err := v.Validate(gifBytes(), "animation.gif", 1)
	assert.ErrorIs(t, err, ErrInvalidFormat)
}

func TestValidateRejectsOversized(t *testing.T) {
	v := New(16, defaultFormats)
	data := append(jpegBytes(), bytes.Repeat([]byte{0}, 32)...)
	_, err := v.Validate(data, "", 1)
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestValidateRejectsUnknownBytes(t *testing.T) {
	v := New(1024, defaultFormats)
	_, err := v.Validate([]byte("plain text, not an image"), "", 1)
	assert.ErrorIs(t, err, ErrInvalidFormat)
}

func TestValidateDeclaredFallback(t *testing.T) {
	v := New(1024, defaultFormats)

	// Bytes that sniff to nothing, but the transport declared a jpeg name.
	_, err := v.Validate([]byte{0x00, 0x01, 0x02, 0x03}, "scan.JPG", 1)
	assert.NoError(t, err)

	_, err = v.Validate([]byte{0x00, 0x01, 0x02, 0x03}, "image/webp", 1)
	assert.NoError(t, err)

	_, err = v.Validate([]byte{0x00, 0x01, 0x02, 0x03}, "notes.txt", 1)
	assert.ErrorIs(t, err, ErrInvalidFormat)
}

func TestValidateJpegJpegAliases(t *testing.T) {
	v := New(1024, []string{"jpeg", "png"})
	_, err := v.Validate(jpegBytes(), "", 1)
	assert.NoError(t, err)
}

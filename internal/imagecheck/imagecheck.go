// Package imagecheck gates inbound images before any OCR or model call.
package imagecheck

import (
	"errors"
	"fmt"
	"strings"

	"lens-bot/internal/util"
)

var (
	ErrTooLarge      = errors.New("image exceeds the size limit")
	ErrInvalidFormat = errors.New("unsupported image format")
)

// Image is a validated inbound payload. It lives for a single pipeline run
// and is never persisted.
type Image struct {
	Data   []byte
	Format string // short format name: jpg, png, ...
	MIME   string
	ChatID int64
}

type Validator struct {
	maxSize int64
	allowed map[string]bool
}

func New(maxSize int64, formats []string) *Validator {
	allowed := make(map[string]bool, len(formats))
	for _, f := range formats {
		allowed[strings.ToLower(strings.TrimSpace(f))] = true
	}
	return &Validator{maxSize: maxSize, allowed: allowed}
}

// Validate checks size and format. The declared format (file extension or
// MIME subtype from the transport) is only consulted when sniffing fails.
// No network or disk access.
func (v *Validator) Validate(data []byte, declared string, chatID int64) (Image, error) {
	if int64(len(data)) > v.maxSize {
		return Image{}, fmt.Errorf("%w: %d bytes (max %d)", ErrTooLarge, len(data), v.maxSize)
	}
	format, mime := util.SniffFormat(data)
	if format == "" {
		format = normalizeDeclared(declared)
	}
	if format == "" || !v.allowedFormat(format) {
		name := format
		if name == "" {
			name = "unknown"
		}
		return Image{}, fmt.Errorf("%w: %s", ErrInvalidFormat, name)
	}
	return Image{
		Data:   data,
		Format: format,
		MIME:   util.PickMIME(mime, declared, data),
		ChatID: chatID,
	}, nil
}

// allowedFormat treats jpg and jpeg as the same format.
func (v *Validator) allowedFormat(f string) bool {
	if v.allowed[f] {
		return true
	}
	if f == "jpg" {
		return v.allowed["jpeg"]
	}
	if f == "jpeg" {
		return v.allowed["jpg"]
	}
	return false
}

func normalizeDeclared(declared string) string {
	d := strings.ToLower(strings.TrimSpace(declared))
	d = strings.TrimPrefix(d, "image/")
	if i := strings.LastIndexByte(d, '.'); i >= 0 {
		d = d[i+1:]
	}
	return d
}

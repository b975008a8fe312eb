// Package media identifies and cleans image payloads before they reach object
// storage.
package media

import (
	"bytes"
	"errors"
	"mime"
	"strings"
)

type Format string

const (
	FormatJPEG Format = "jpeg"
	FormatPNG  Format = "png"
	FormatGIF  Format = "gif"
	FormatWEBP Format = "webp"
	FormatAVIF Format = "avif"
	FormatSVG  Format = "svg"
)

var ErrUnknownFormat = errors.New("unknown image format")

type Kind struct {
	Format Format
	MIME   string
}

// Ext is the object key extension for the format.
func (k Kind) Ext() string {
	if k.Format == FormatJPEG {
		return "jpg"
	}
	return string(k.Format)
}

// Raster reports whether the format decodes to pixels with the image
// decoders this module links.
func (k Kind) Raster() bool {
	return RasterMIME(k.MIME)
}

func RasterMIME(mimeType string) bool {
	switch mimeType {
	case "image/jpeg", "image/png", "image/gif":
		return true
	}
	return false
}

var pngMagic = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

// Sniff identifies an image from its leading bytes. Declared content types
// are never trusted.
func Sniff(head []byte) (Kind, error) {
	if len(head) > 512 {
		head = head[:512]
	}
	switch {
	case len(head) > 3 && head[0] == 0xff && head[1] == 0xd8 && head[2] == 0xff:
		return Kind{FormatJPEG, "image/jpeg"}, nil
	case bytes.HasPrefix(head, pngMagic):
		return Kind{FormatPNG, "image/png"}, nil
	case bytes.HasPrefix(head, []byte("GIF87a")), bytes.HasPrefix(head, []byte("GIF89a")):
		return Kind{FormatGIF, "image/gif"}, nil
	case len(head) >= 12 && bytes.Equal(head[:4], []byte("RIFF")) && bytes.Equal(head[8:12], []byte("WEBP")):
		return Kind{FormatWEBP, "image/webp"}, nil
	case len(head) >= 12 && string(head[4:8]) == "ftyp" && bytes.Contains(head[8:], []byte("avif")):
		return Kind{FormatAVIF, "image/avif"}, nil
	case isSVG(head):
		return Kind{FormatSVG, "image/svg+xml"}, nil
	}
	return Kind{}, ErrUnknownFormat
}

func isSVG(head []byte) bool {
	trimmed := bytes.TrimSpace(head)
	return bytes.HasPrefix(trimmed, []byte("<svg")) || bytes.HasPrefix(trimmed, []byte("<?xml"))
}

// DeclaredType returns the media type of a Content-Type header value without
// parameters, or "" when it cannot be parsed.
func DeclaredType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	return strings.ToLower(mt)
}

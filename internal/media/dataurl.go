package media

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

var ErrNotDataURL = errors.New("not a base64 image data url")

// DecodeDataURL extracts the payload of a data:image/...;base64, URL and
// checks that the bytes really are the declared kind of image.
func DecodeDataURL(raw string) ([]byte, Kind, error) {
	rest, ok := strings.CutPrefix(raw, "data:")
	if !ok {
		return nil, Kind{}, ErrNotDataURL
	}
	header, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, Kind{}, ErrNotDataURL
	}
	declared, encoding, _ := strings.Cut(header, ";")
	if !strings.HasPrefix(declared, "image/") || encoding != "base64" {
		return nil, Kind{}, ErrNotDataURL
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, Kind{}, fmt.Errorf("decode data url: %w", err)
	}

	kind, err := Sniff(data)
	if err != nil {
		return nil, Kind{}, err
	}
	if kind.MIME != strings.ToLower(declared) {
		return nil, Kind{}, fmt.Errorf("data url declares %s but holds %s", declared, kind.MIME)
	}
	return data, kind, nil
}

// EncodeDataURL is the inverse of DecodeDataURL.
func EncodeDataURL(mimeType string, data []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

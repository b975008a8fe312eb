package imagedata

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

var errMalformed = errors.New("malformed image collection")

// shortenerHosts only trigger a debug note; a shortened URL is still valid.
var shortenerHosts = []string{
	"bit.ly",
	"tinyurl.com",
	"t.co",
	"goo.gl",
	"ow.ly",
	"is.gd",
	"buff.ly",
}

// Normalizer parses persisted image collections. It is safe for concurrent use.
type Normalizer struct {
	log        zerolog.Logger
	production bool
}

func New(log zerolog.Logger, environment string) *Normalizer {
	return &Normalizer{
		log:        log.With().Str("component", "imagedata").Logger(),
		production: environment == "production",
	}
}

// IsValidURL reports whether an image URL can be persisted and shown.
// blob: URLs are session-local and never valid.
func IsValidURL(raw string) bool {
	if raw == "" {
		return false
	}
	if strings.HasPrefix(raw, "blob:") {
		return false
	}
	return strings.HasPrefix(raw, "http") ||
		strings.HasPrefix(raw, "/") ||
		strings.HasPrefix(raw, "data:image/")
}

// IsPlaceholder reports whether raw is one of the sentinel URLs.
func IsPlaceholder(raw string) bool {
	return strings.HasPrefix(raw, PlaceholderPath)
}

func isRealImage(raw string) bool {
	return IsValidURL(raw) && !IsPlaceholder(raw)
}

// ValidateURL is IsValidURL plus the shortener diagnostic outside production.
func (n *Normalizer) ValidateURL(raw string) bool {
	valid := IsValidURL(raw)
	if !n.production && valid {
		if host, ok := shortenerHost(raw); ok {
			n.log.Debug().Str("url", raw).Str("host", host).Msg("image url uses a link shortener")
		}
	}
	return valid
}

func shortenerHost(raw string) (string, bool) {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "", false
	}
	host := strings.ToLower(u.Hostname())
	for _, s := range shortenerHosts {
		if host == s || strings.HasSuffix(host, "."+s) {
			return s, true
		}
	}
	return "", false
}

// Parse decodes a persisted collection. It never fails: empty input yields an
// empty slice silently, malformed input yields an empty slice and a warning.
func (n *Normalizer) Parse(raw string) []ImageDescriptor {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return []ImageDescriptor{}
	}

	shape, entries, err := decodeEnvelope([]byte(trimmed))
	if err != nil {
		n.log.Warn().Err(err).Int("length", len(raw)).Msg("image collection could not be parsed")
		return []ImageDescriptor{}
	}

	images := make([]ImageDescriptor, 0, len(entries))
	for i, entry := range entries {
		img, err := n.normalizeEntry(entry)
		if err != nil {
			n.log.Warn().Err(err).Int("index", i).Str("shape", shape.String()).Msg("image collection could not be parsed")
			return []ImageDescriptor{}
		}
		images = append(images, img)
	}
	return images
}

type collectionShape int

const (
	shapeFlat collectionShape = iota + 1
	shapeNested
)

func (s collectionShape) String() string {
	switch s {
	case shapeFlat:
		return "flat"
	case shapeNested:
		return "nested"
	default:
		return "unknown"
	}
}

// decodeObject splits a JSON object into its members. Keys match exactly,
// case included, and a repeated key keeps its last value.
func decodeObject(data []byte) (map[string]json.RawMessage, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		return nil, errMalformed
	}
	var members map[string]json.RawMessage
	if err := json.Unmarshal(data, &members); err != nil {
		return nil, errors.Join(errMalformed, err)
	}
	return members, nil
}

// decodeEnvelope accepts {"images":[...]} and the legacy
// {"images":{"images":[...]}}; anything else is malformed.
func decodeEnvelope(data []byte) (collectionShape, []json.RawMessage, error) {
	outer, err := decodeObject(data)
	if err != nil {
		return 0, nil, err
	}

	inner := bytes.TrimSpace(outer["images"])
	if len(inner) == 0 {
		return 0, nil, errMalformed
	}

	switch inner[0] {
	case '[':
		entries, err := decodeEntries(inner)
		if err != nil {
			return 0, nil, err
		}
		return shapeFlat, entries, nil
	case '{':
		nested, err := decodeObject(inner)
		if err != nil {
			return 0, nil, err
		}
		list := bytes.TrimSpace(nested["images"])
		if len(list) == 0 || list[0] != '[' {
			return 0, nil, errMalformed
		}
		entries, err := decodeEntries(list)
		if err != nil {
			return 0, nil, err
		}
		return shapeNested, entries, nil
	default:
		return 0, nil, errMalformed
	}
}

func decodeEntries(data []byte) ([]json.RawMessage, error) {
	var entries []json.RawMessage
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, errors.Join(errMalformed, err)
	}
	return entries, nil
}

func (n *Normalizer) normalizeEntry(data json.RawMessage) (ImageDescriptor, error) {
	entry, err := decodeObject(data)
	if err != nil {
		return ImageDescriptor{}, err
	}

	img := ImageDescriptor{
		URL:        InvalidImageURL,
		Prompt:     DefaultPrompt,
		Order:      decodeOrder(entry["order"]),
		IsSelected: truthy(entry["isSelected"]),
		Metadata:   decodeMetadata(entry["metadata"]),
	}
	if u, ok := decodeString(entry["url"]); ok && n.ValidateURL(u) {
		img.URL = u
	}
	if p, ok := decodeString(entry["prompt"]); ok && p != "" {
		img.Prompt = p
	}
	return img, nil
}

func decodeString(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

func decodeOrder(raw json.RawMessage) int {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return 0
	}

	var f float64
	if raw[0] == '"' {
		s, _ := decodeString(raw)
		parsed, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return 0
		}
		f = parsed
	} else if err := json.Unmarshal(raw, &f); err != nil {
		return 0
	}

	return boundedInt(f)
}

// boundedInt truncates f, mapping NaN, negatives and anything beyond int32 to 0.
func boundedInt(f float64) int {
	if !(f >= 0 && f < math.MaxInt32) {
		return 0
	}
	return int(f)
}

// truthy follows the coercion the web client applied when it wrote rows:
// false, 0, "", null and absent are false, everything else is true.
func truthy(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return false
	}
	switch raw[0] {
	case 'n', 'f':
		return false
	case 't', '[', '{':
		return true
	case '"':
		s, _ := decodeString(raw)
		return s != ""
	default:
		var f float64
		if err := json.Unmarshal(raw, &f); err != nil {
			return false
		}
		return f != 0
	}
}

func decodeMetadata(raw json.RawMessage) *Metadata {
	m, err := decodeObject(raw)
	if err != nil {
		return DefaultMetadata()
	}

	meta := &Metadata{}
	meta.Style, _ = decodeString(m["style"])
	meta.Service, _ = decodeString(m["service"])
	meta.Width = decodeDimension(m["width"])
	meta.Height = decodeDimension(m["height"])
	return meta
}

func decodeDimension(raw json.RawMessage) *Dimension {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	var d Dimension
	if err := d.UnmarshalJSON(raw); err != nil {
		return nil
	}
	return &d
}

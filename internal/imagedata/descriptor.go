// Package imagedata converts between the JSON string a content post stores in
// its images column and a validated, defaulted list of image descriptors.
//
// Every function here is total: malformed input degrades to an empty or
// placeholder result instead of an error, because callers render historical
// data and must never fail on it.
package imagedata

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

const (
	// PlaceholderPath prefixes every sentinel URL produced by this package.
	PlaceholderPath = "/placeholder.svg"

	// InvalidImageURL replaces a descriptor URL that failed validation.
	InvalidImageURL = PlaceholderPath + "?text=Invalid+Image"

	// NoImageURL is the main image when nothing else qualifies.
	NoImageURL = PlaceholderPath + "?text=No+Valid+Image"

	DefaultPrompt = "Image"
	DefaultStyle  = "default"
)

type ImageDescriptor struct {
	URL        string    `json:"url"`
	Prompt     string    `json:"prompt"`
	Order      int       `json:"order"`
	IsSelected bool      `json:"isSelected"`
	Metadata   *Metadata `json:"metadata,omitempty"`
}

type Metadata struct {
	Style   string     `json:"style,omitempty"`
	Width   *Dimension `json:"width,omitempty"`
	Height  *Dimension `json:"height,omitempty"`
	Service string     `json:"service,omitempty"`
}

// DefaultMetadata mirrors what the first generation pipeline stored: a numeric
// width and a string height.
func DefaultMetadata() *Metadata {
	return &Metadata{
		Style:  DefaultStyle,
		Width:  NumericDimension(400),
		Height: TextDimension("300"),
	}
}

// Dimension is a width or height that historical rows store either as a JSON
// number or as a JSON string. The original form is kept so re-serialization
// does not rewrite rows it did not otherwise change.
type Dimension struct {
	Value   string
	Numeric bool
}

func NumericDimension(v int) *Dimension {
	return &Dimension{Value: strconv.Itoa(v), Numeric: true}
}

func TextDimension(v string) *Dimension {
	return &Dimension{Value: v}
}

// Int returns the dimension as an integer, or 0 when it is not numeric text
// or does not fit.
func (d *Dimension) Int() int {
	if d == nil {
		return 0
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(d.Value), 64)
	if err != nil {
		return 0
	}
	return boundedInt(f)
}

// MarshalJSON writes numeric dimensions back as the number token they were
// read from, even when it does not fit a float64.
func (d Dimension) MarshalJSON() ([]byte, error) {
	if d.Numeric && isNumberToken(d.Value) {
		return []byte(d.Value), nil
	}
	return json.Marshal(d.Value)
}

func isNumberToken(v string) bool {
	if v == "" || !(v[0] == '-' || (v[0] >= '0' && v[0] <= '9')) {
		return false
	}
	var n json.Number
	return json.Unmarshal([]byte(v), &n) == nil
}

func (d *Dimension) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*d = Dimension{Value: s}
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*d = Dimension{Value: n.String(), Numeric: true}
	return nil
}

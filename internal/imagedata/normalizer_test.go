package imagedata

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestNormalizer() *Normalizer {
	return New(zerolog.Nop(), "test")
}

func TestIsValidURL(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want bool
	}{
		{name: "empty", url: "", want: false},
		{name: "blob", url: "blob:http://localhost/abc", want: false},
		{name: "blob without origin", url: "blob:abc", want: false},
		{name: "http", url: "http://x/a.png", want: true},
		{name: "https", url: "https://cdn.example.com/a.png", want: true},
		{name: "site relative", url: "/images/a.png", want: true},
		{name: "inline image", url: "data:image/png;base64,AAAA", want: true},
		{name: "inline text", url: "data:text/plain;base64,AAAA", want: false},
		{name: "ftp", url: "ftp://example.com/a.png", want: false},
		{name: "relative without slash", url: "images/a.png", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsValidURL(tt.url))
		})
	}
}

func TestValidateURL_ShortenerDiagnostic(t *testing.T) {
	t.Run("logs outside production", func(t *testing.T) {
		var buf bytes.Buffer
		n := New(zerolog.New(&buf), "development")

		assert.True(t, n.ValidateURL("https://bit.ly/3abc"))
		assert.Contains(t, buf.String(), "link shortener")
	})

	t.Run("silent in production", func(t *testing.T) {
		var buf bytes.Buffer
		n := New(zerolog.New(&buf), "production")

		assert.True(t, n.ValidateURL("https://bit.ly/3abc"))
		assert.Empty(t, buf.String())
	})

	t.Run("does not match lookalike hosts", func(t *testing.T) {
		var buf bytes.Buffer
		n := New(zerolog.New(&buf), "development")

		assert.True(t, n.ValidateURL("https://notbit.ly.example.com/a.png"))
		assert.Empty(t, buf.String())
	})

	t.Run("invalid stays invalid", func(t *testing.T) {
		var buf bytes.Buffer
		n := New(zerolog.New(&buf), "development")

		assert.False(t, n.ValidateURL("blob:https://bit.ly/x"))
	})
}

func TestParse_Defaults(t *testing.T) {
	n := newTestNormalizer()

	images := n.Parse(`{"images":[{"url":"http://x/a.png"}]}`)
	require.Len(t, images, 1)

	want := ImageDescriptor{
		URL:        "http://x/a.png",
		Prompt:     DefaultPrompt,
		Order:      0,
		IsSelected: false,
		Metadata:   DefaultMetadata(),
	}
	if diff := cmp.Diff(want, images[0]); diff != "" {
		t.Errorf("descriptor mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_InvalidURLsBecomePlaceholder(t *testing.T) {
	n := newTestNormalizer()

	images := n.Parse(`{"images":[{"url":"blob:abc"},{"url":42},{},{"url":"ftp://x"}]}`)
	require.Len(t, images, 4)
	for _, img := range images {
		assert.Equal(t, InvalidImageURL, img.URL)
	}
}

func TestParse_Malformed(t *testing.T) {
	inputs := []string{
		"not json",
		`[]`,
		`[{"url":"http://x/a.png"}]`,
		`null`,
		`{}`,
		`{"images":null}`,
		`{"images":"http://x/a.png"}`,
		`{"images":{"images":"nope"}}`,
		`{"images":{"other":[]}}`,
		`{"images":[null]}`,
		`{"images":["http://x/a.png"]}`,
		`{"images":[{"url":"http://x/a.png"}`,
	}

	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			var buf bytes.Buffer
			n := New(zerolog.New(&buf), "test")

			images := n.Parse(in)
			assert.NotNil(t, images)
			assert.Empty(t, images)
			assert.Contains(t, buf.String(), "could not be parsed")
		})
	}
}

func TestParse_EmptyIsSilent(t *testing.T) {
	var buf bytes.Buffer
	n := New(zerolog.New(&buf), "test")

	assert.Empty(t, n.Parse(""))
	assert.Empty(t, n.Parse("   "))
	assert.Empty(t, buf.String())
}

func TestParse_NestedShapeMatchesFlat(t *testing.T) {
	n := newTestNormalizer()

	flat := n.Parse(`{"images":[{"url":"/p.png"}]}`)
	nested := n.Parse(`{"images":{"images":[{"url":"/p.png"}]}}`)

	require.Len(t, flat, 1)
	if diff := cmp.Diff(flat, nested); diff != "" {
		t.Errorf("nested shape differs (-flat +nested):\n%s", diff)
	}
}

func TestParse_Coercions(t *testing.T) {
	n := newTestNormalizer()

	raw := `{"images":[
		{"url":"/a.png","isSelected":true,"order":"3","prompt":""},
		{"url":"/b.png","isSelected":1,"order":-2},
		{"url":"/c.png","isSelected":"yes","order":1.7},
		{"url":"/d.png","isSelected":0,"order":"x"},
		{"url":"/e.png","isSelected":"","order":null},
		{"url":"/f.png","isSelected":null},
		{"url":"/g.png","isSelected":{}},
		{"url":"/h.png","order":"9.3e18"},
		{"url":"/i.png","order":1e300},
		{"url":"/j.png","order":"NaN"},
		{"url":"/k.png","order":"-Inf"}
	]}`

	images := n.Parse(raw)
	require.Len(t, images, 11)

	selected := []bool{true, true, true, false, false, false, true, false, false, false, false}
	orders := []int{3, 0, 1, 0, 0, 0, 0, 0, 0, 0, 0}
	for i, img := range images {
		assert.Equal(t, selected[i], img.IsSelected, "isSelected at %d", i)
		assert.Equal(t, orders[i], img.Order, "order at %d", i)
	}
	assert.Equal(t, DefaultPrompt, images[0].Prompt)
}

func TestParse_MetadataPreserved(t *testing.T) {
	n := newTestNormalizer()

	raw := `{"images":[
		{"url":"/a.png","metadata":{"style":"vivid","width":"1024","height":768,"service":"imagen"}},
		{"url":"/b.png","metadata":{"width":true}},
		{"url":"/c.png","metadata":"legacy"}
	]}`

	images := n.Parse(raw)
	require.Len(t, images, 3)

	first := images[0].Metadata
	require.NotNil(t, first)
	assert.Equal(t, "vivid", first.Style)
	assert.Equal(t, "imagen", first.Service)
	assert.Equal(t, &Dimension{Value: "1024"}, first.Width)
	assert.Equal(t, &Dimension{Value: "768", Numeric: true}, first.Height)
	assert.Equal(t, 1024, first.Width.Int())

	require.NotNil(t, images[1].Metadata)
	assert.Nil(t, images[1].Metadata.Width)

	assert.Equal(t, DefaultMetadata(), images[2].Metadata)
}

func TestParse_KeysAreCaseSensitive(t *testing.T) {
	n := newTestNormalizer()

	images := n.Parse(`{"images":[{"url":"http://x/a.png","URL":"blob:x","Prompt":"ignored","prompt":"kept"}]}`)
	require.Len(t, images, 1)
	assert.Equal(t, "http://x/a.png", images[0].URL)
	assert.Equal(t, "kept", images[0].Prompt)

	images = n.Parse(`{"images":[{"URL":"http://x/a.png","IsSelected":true}]}`)
	require.Len(t, images, 1)
	assert.Equal(t, InvalidImageURL, images[0].URL)
	assert.False(t, images[0].IsSelected)

	meta := n.Parse(`{"images":[{"url":"/a.png","metadata":{"Style":"loud","style":"calm"}}]}`)
	require.Len(t, meta, 1)
	assert.Equal(t, "calm", meta[0].Metadata.Style)

	for _, in := range []string{
		`{"IMAGES":[{"url":"/a.png"}]}`,
		`{"images":{"Images":[{"url":"/a.png"}]}}`,
	} {
		assert.Empty(t, n.Parse(in), in)
	}
}

func TestParse_RepeatedKeyKeepsLast(t *testing.T) {
	n := newTestNormalizer()

	images := n.Parse(`{"images":[{"url":"blob:x","url":"/a.png"}]}`)
	require.Len(t, images, 1)
	assert.Equal(t, "/a.png", images[0].URL)
}

func TestDimension_Int(t *testing.T) {
	tests := []struct {
		dim  *Dimension
		want int
	}{
		{dim: nil, want: 0},
		{dim: NumericDimension(640), want: 640},
		{dim: TextDimension("480"), want: 480},
		{dim: TextDimension("12.9"), want: 12},
		{dim: TextDimension("auto"), want: 0},
		{dim: TextDimension("-5"), want: 0},
		{dim: TextDimension("9.3e18"), want: 0},
		{dim: &Dimension{Value: "1e400", Numeric: true}, want: 0},
		{dim: TextDimension("NaN"), want: 0},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.dim.Int(), "%+v", tt.dim)
	}
}

func TestSerialize_KeepsHugeNumericDimensions(t *testing.T) {
	n := newTestNormalizer()

	once := n.Parse(`{"images":[{"url":"/a.png","metadata":{"width":1e400,"height":-0.5}}]}`)
	require.Len(t, once, 1)
	assert.Equal(t, &Dimension{Value: "1e400", Numeric: true}, once[0].Metadata.Width)

	out := Serialize(once)
	assert.Contains(t, out, `"width":1e400`)
	assert.Contains(t, out, `"height":-0.5`)

	twice := n.Parse(out)
	if diff := cmp.Diff(once, twice); diff != "" {
		t.Errorf("round trip not stable (-once +twice):\n%s", diff)
	}
}

func TestDimension_MarshalNonNumberStaysString(t *testing.T) {
	out := Serialize([]ImageDescriptor{{
		URL:      "/a.png",
		Prompt:   "p",
		Metadata: &Metadata{Width: &Dimension{Value: "wide", Numeric: true}},
	}})
	assert.Contains(t, out, `"width":"wide"`)
}

func TestSerialize_RewritesOrder(t *testing.T) {
	images := []ImageDescriptor{
		{URL: "/a.png", Prompt: "a", Order: 7},
		{URL: "/b.png", Prompt: "b", Order: 7},
		{URL: "/c.png", Prompt: "c", Order: 0},
	}

	out := Serialize(images)
	parsed := newTestNormalizer().Parse(out)

	require.Len(t, parsed, 3)
	for i, img := range parsed {
		assert.Equal(t, i, img.Order)
	}
	assert.Equal(t, 7, images[0].Order, "input must not be mutated")
}

func TestSerialize_Empty(t *testing.T) {
	assert.Equal(t, `{"images":[]}`, Serialize(nil))
	assert.Equal(t, EmptyCollection(), Serialize([]ImageDescriptor{}))
}

func TestSerialize_DoesNotEscapeQueryStrings(t *testing.T) {
	out := Serialize([]ImageDescriptor{{URL: "/img?a=1&b=2", Prompt: "p"}})
	assert.True(t, strings.Contains(out, "/img?a=1&b=2"), out)
}

func TestSerialize_IsIdempotentOnceNormalized(t *testing.T) {
	n := newTestNormalizer()
	inputs := []string{
		`{"images":[{"url":"http://x/a.png","isSelected":true,"order":4},{"url":"blob:abc","order":1}]}`,
		`{"images":{"images":[{"url":"/p.png","metadata":{"width":"10","height":20}}]}}`,
		`{"images":[{"url":"data:image/png;base64,AAAA","prompt":"sunset","metadata":{}}]}`,
		`{"images":[]}`,
		"not json",
	}

	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			once := n.Parse(Serialize(n.Parse(in)))
			twice := n.Parse(Serialize(once))
			if diff := cmp.Diff(once, twice); diff != "" {
				t.Errorf("round trip not stable (-once +twice):\n%s", diff)
			}
			assert.Equal(t, Serialize(once), Serialize(twice))
		})
	}
}

func TestParse_RoundTripWithContiguousOrder(t *testing.T) {
	n := newTestNormalizer()
	in := `{"images":[{"url":"/a.png","order":0,"isSelected":true},{"url":"/b.png","order":1,"metadata":{"style":"flat"}}]}`

	first := n.Parse(in)
	again := n.Parse(Serialize(first))
	if diff := cmp.Diff(first, again); diff != "" {
		t.Errorf("parse(serialize(parse(s))) != parse(s) (-first +again):\n%s", diff)
	}
}

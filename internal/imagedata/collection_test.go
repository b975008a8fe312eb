package imagedata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveMainImage_Scenarios(t *testing.T) {
	n := newTestNormalizer()

	tests := []struct {
		name     string
		raw      string
		fallback string
		want     string
	}{
		{
			name: "selected image wins",
			raw:  `{"images":[{"url":"http://x/a.png","isSelected":true}]}`,
			want: "http://x/a.png",
		},
		{
			name:     "fallback field when collection empty",
			raw:      `{"images":[]}`,
			fallback: "http://x/b.png",
			want:     "http://x/b.png",
		},
		{
			name: "blob only yields sentinel",
			raw:  `{"images":[{"url":"blob:abc"}]}`,
			want: NoImageURL,
		},
		{
			name: "malformed yields sentinel",
			raw:  "not json",
			want: NoImageURL,
		},
		{
			name:     "selected beats fallback",
			raw:      `{"images":[{"url":"/a.png"},{"url":"/b.png","isSelected":true}]}`,
			fallback: "http://x/legacy.png",
			want:     "/b.png",
		},
		{
			name:     "fallback beats unselected",
			raw:      `{"images":[{"url":"/a.png"}]}`,
			fallback: "http://x/legacy.png",
			want:     "http://x/legacy.png",
		},
		{
			name:     "first real image when fallback invalid",
			raw:      `{"images":[{"url":"blob:zzz"},{"url":"/a.png"},{"url":"/b.png"}]}`,
			fallback: "blob:legacy",
			want:     "/a.png",
		},
		{
			name: "selected placeholder is skipped",
			raw:  `{"images":[{"url":"blob:zzz","isSelected":true},{"url":"/b.png"}]}`,
			want: "/b.png",
		},
		{
			name: "first of several selected",
			raw:  `{"images":[{"url":"/a.png","isSelected":true},{"url":"/b.png","isSelected":true}]}`,
			want: "/a.png",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveMainImage(n.Parse(tt.raw), tt.fallback)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveMainImage_NeverEmpty(t *testing.T) {
	fallbacks := []string{"", "blob:x", "nope"}
	collections := [][]ImageDescriptor{
		nil,
		{},
		{{URL: ""}},
		{{URL: InvalidImageURL, IsSelected: true}},
	}

	for _, fb := range fallbacks {
		for _, images := range collections {
			assert.NotEmpty(t, ResolveMainImage(images, fb))
		}
	}
}

func TestHasRealImages(t *testing.T) {
	n := newTestNormalizer()

	assert.False(t, HasRealImages(n.Parse("not json")))
	assert.False(t, HasRealImages(n.Parse(`{"images":[{"url":"blob:abc"}]}`)))
	assert.False(t, HasRealImages([]ImageDescriptor{{URL: NoImageURL}}))
	assert.True(t, HasRealImages(n.Parse(`{"images":[{"url":"blob:abc"},{"url":"/ok.png"}]}`)))
}

func TestCountSelected(t *testing.T) {
	images := []ImageDescriptor{
		{URL: "/a.png", IsSelected: true},
		{URL: "/b.png"},
		{URL: "/c.png", IsSelected: true},
	}

	assert.Equal(t, 2, CountSelected(images))
	assert.Equal(t, 0, CountSelected(nil))
	assert.Len(t, SelectedImages(images), 2)
}

func TestAppend(t *testing.T) {
	existing := []ImageDescriptor{{URL: "/a.png", Order: 0}}
	out := Append(existing, ImageDescriptor{URL: "/b.png", Order: 9}, ImageDescriptor{URL: "/c.png"})

	require.Len(t, out, 3)
	assert.Equal(t, "/a.png", out[0].URL)
	assert.Equal(t, 1, out[1].Order)
	assert.Equal(t, 2, out[2].Order)
	assert.Len(t, existing, 1)
}

func TestReorder(t *testing.T) {
	images := []ImageDescriptor{{URL: "/a.png"}, {URL: "/b.png"}, {URL: "/c.png"}}

	out, ok := Reorder(images, []int{2, 0, 1})
	require.True(t, ok)
	assert.Equal(t, []string{"/c.png", "/a.png", "/b.png"}, urls(out))
	for i, img := range out {
		assert.Equal(t, i, img.Order)
	}

	_, ok = Reorder(images, []int{0, 0, 1})
	assert.False(t, ok, "duplicate index")
	_, ok = Reorder(images, []int{0, 1})
	assert.False(t, ok, "short permutation")
	_, ok = Reorder(images, []int{0, 1, 3})
	assert.False(t, ok, "out of range")
}

func TestSetSelected(t *testing.T) {
	images := []ImageDescriptor{{URL: "/a.png"}, {URL: "/b.png"}}

	out, ok := SetSelected(images, 1, true)
	require.True(t, ok)
	assert.True(t, out[1].IsSelected)
	assert.False(t, images[1].IsSelected, "input must not be mutated")

	_, ok = SetSelected(images, 2, true)
	assert.False(t, ok)
}

func TestRemove(t *testing.T) {
	images := []ImageDescriptor{{URL: "/a.png", Order: 0}, {URL: "/b.png", Order: 1}, {URL: "/c.png", Order: 2}}

	out, ok := Remove(images, 0)
	require.True(t, ok)
	assert.Equal(t, []string{"/b.png", "/c.png"}, urls(out))
	assert.Equal(t, 0, out[0].Order)
	assert.Equal(t, 1, out[1].Order)
	assert.Len(t, images, 3)

	_, ok = Remove(images, -1)
	assert.False(t, ok)
}

func TestSummarize(t *testing.T) {
	n := newTestNormalizer()

	s := n.Summarize(`{"images":[{"url":"/a.png"},{"url":"/b.png","isSelected":true}]}`, "")
	assert.Equal(t, "/b.png", s.MainImage)
	assert.True(t, s.HasRealImages)
	assert.Equal(t, 1, s.SelectedCount)
	assert.Len(t, s.Images, 2)

	empty := n.Summarize("", "")
	assert.Equal(t, NoImageURL, empty.MainImage)
	assert.False(t, empty.HasRealImages)
	assert.NotNil(t, empty.Images)
}

func urls(images []ImageDescriptor) []string {
	out := make([]string, 0, len(images))
	for _, img := range images {
		out = append(out, img.URL)
	}
	return out
}

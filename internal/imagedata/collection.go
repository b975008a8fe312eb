package imagedata

import (
	"bytes"
	"encoding/json"
)

const emptyCollection = `{"images":[]}`

type serializedCollection struct {
	Images []ImageDescriptor `json:"images"`
}

// Serialize renders the canonical flat form with order rewritten to each
// descriptor's position. The descriptors are trusted as given.
func Serialize(images []ImageDescriptor) string {
	out := serializedCollection{Images: make([]ImageDescriptor, len(images))}
	for i, img := range images {
		img.Order = i
		out.Images[i] = img
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(out); err != nil {
		return emptyCollection
	}
	return string(bytes.TrimRight(buf.Bytes(), "\n"))
}

// EmptyCollection is what a freshly generated post stores.
func EmptyCollection() string {
	return emptyCollection
}

// ResolveMainImage picks the display image: the first selected real image,
// then a valid fallback, then the first real image, then NoImageURL.
func ResolveMainImage(images []ImageDescriptor, fallback string) string {
	for _, img := range images {
		if img.IsSelected && isRealImage(img.URL) {
			return img.URL
		}
	}
	if IsValidURL(fallback) {
		return fallback
	}
	for _, img := range images {
		if isRealImage(img.URL) {
			return img.URL
		}
	}
	return NoImageURL
}

func HasRealImages(images []ImageDescriptor) bool {
	for _, img := range images {
		if isRealImage(img.URL) {
			return true
		}
	}
	return false
}

func CountSelected(images []ImageDescriptor) int {
	count := 0
	for _, img := range images {
		if img.IsSelected {
			count++
		}
	}
	return count
}

func SelectedImages(images []ImageDescriptor) []ImageDescriptor {
	selected := make([]ImageDescriptor, 0, len(images))
	for _, img := range images {
		if img.IsSelected {
			selected = append(selected, img)
		}
	}
	return selected
}

// Append returns a new slice with added placed after existing; existing
// candidates are never replaced.
func Append(existing []ImageDescriptor, added ...ImageDescriptor) []ImageDescriptor {
	out := make([]ImageDescriptor, 0, len(existing)+len(added))
	out = append(out, existing...)
	for _, img := range added {
		img.Order = len(out)
		out = append(out, img)
	}
	return out
}

// Reorder applies a permutation: result[i] = images[perm[i]]. It returns false
// when perm is not a permutation of 0..len(images)-1.
func Reorder(images []ImageDescriptor, perm []int) ([]ImageDescriptor, bool) {
	if len(perm) != len(images) {
		return nil, false
	}
	seen := make([]bool, len(images))
	out := make([]ImageDescriptor, len(images))
	for i, idx := range perm {
		if idx < 0 || idx >= len(images) || seen[idx] {
			return nil, false
		}
		seen[idx] = true
		img := images[idx]
		img.Order = i
		out[i] = img
	}
	return out, true
}

func SetSelected(images []ImageDescriptor, index int, selected bool) ([]ImageDescriptor, bool) {
	if index < 0 || index >= len(images) {
		return nil, false
	}
	out := make([]ImageDescriptor, len(images))
	copy(out, images)
	out[index].IsSelected = selected
	return out, true
}

func Remove(images []ImageDescriptor, index int) ([]ImageDescriptor, bool) {
	if index < 0 || index >= len(images) {
		return nil, false
	}
	out := make([]ImageDescriptor, 0, len(images)-1)
	out = append(out, images[:index]...)
	out = append(out, images[index+1:]...)
	for i := range out {
		out[i].Order = i
	}
	return out, true
}

// Summary is the read model UI consumers render a post's gallery from.
type Summary struct {
	Images        []ImageDescriptor `json:"images"`
	MainImage     string            `json:"mainImage"`
	HasRealImages bool              `json:"hasRealImages"`
	SelectedCount int               `json:"selectedCount"`
}

func (n *Normalizer) Summarize(raw string, fallback string) Summary {
	images := n.Parse(raw)
	return Summary{
		Images:        images,
		MainImage:     ResolveMainImage(images, fallback),
		HasRealImages: HasRealImages(images),
		SelectedCount: CountSelected(images),
	}
}

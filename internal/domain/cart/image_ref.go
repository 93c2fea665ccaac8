package cart

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
)

var ErrInvalidImageRef = errors.New("cart: image_url must be a string or an array of strings")

// ImageRef is the image field of a cart line.
// Older snapshots store a single URL string, newer ones an array; the value
// re-encodes in the shape it was decoded from.
type ImageRef struct {
	urls []string
	many bool
}

// SingleImage returns a ref that encodes as a JSON string.
func SingleImage(url string) ImageRef {
	u := strings.TrimSpace(url)
	if u == "" {
		return ImageRef{}
	}
	return ImageRef{urls: []string{u}}
}

// ImageList returns a ref that encodes as a JSON array.
func ImageList(urls ...string) ImageRef {
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		if u = strings.TrimSpace(u); u != "" {
			out = append(out, u)
		}
	}
	return ImageRef{urls: out, many: true}
}

// URLs returns a copy of the referenced URLs.
func (r ImageRef) URLs() []string {
	if len(r.urls) == 0 {
		return []string{}
	}
	cp := make([]string, len(r.urls))
	copy(cp, r.urls)
	return cp
}

// First returns the display image, or "" when there is none.
func (r ImageRef) First() string {
	if len(r.urls) == 0 {
		return ""
	}
	return r.urls[0]
}

// IsList reports whether the ref was given as an array.
func (r ImageRef) IsList() bool { return r.many }

func (r ImageRef) IsZero() bool { return len(r.urls) == 0 && !r.many }

func (r ImageRef) MarshalJSON() ([]byte, error) {
	if r.many {
		return json.Marshal(r.URLs())
	}
	return json.Marshal(r.First())
}

func (r *ImageRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*r = ImageRef{}
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*r = SingleImage(s)
		return nil
	case '[':
		var xs []string
		if err := json.Unmarshal(data, &xs); err != nil {
			return ErrInvalidImageRef
		}
		*r = ImageList(xs...)
		return nil
	default:
		return ErrInvalidImageRef
	}
}

// ImageRefFromAny builds a ref from a loosely typed value
// (string, []string or []any), as returned by document stores.
func ImageRefFromAny(v any) ImageRef {
	switch t := v.(type) {
	case nil:
		return ImageRef{}
	case string:
		return SingleImage(t)
	case []string:
		return ImageList(t...)
	case []any:
		xs := make([]string, 0, len(t))
		for _, x := range t {
			if s, ok := x.(string); ok {
				xs = append(xs, s)
			}
		}
		return ImageList(xs...)
	default:
		return ImageRef{}
	}
}

// Any is the inverse of ImageRefFromAny.
func (r ImageRef) Any() any {
	if r.many {
		return r.URLs()
	}
	return r.First()
}

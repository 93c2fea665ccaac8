// internal/domain/tracking/viewed.go
package tracking

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

var ErrInvalidViewedSet = errors.New("tracking: viewed ids must be a JSON array")

// ViewedSet holds the ids of orders whose tracking number the shopper
// has already seen.
type ViewedSet struct {
	ids map[string]struct{}
}

func NewViewedSet(ids ...string) ViewedSet {
	s := ViewedSet{ids: make(map[string]struct{}, len(ids))}
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			s.ids[id] = struct{}{}
		}
	}
	return s
}

func (s ViewedSet) Contains(id string) bool {
	_, ok := s.ids[strings.TrimSpace(id)]
	return ok
}

func (s ViewedSet) Len() int { return len(s.ids) }

// IDs returns the members in ascending order.
func (s ViewedSet) IDs() []string {
	out := make([]string, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (s ViewedSet) Encode() ([]byte, error) {
	return json.Marshal(s.IDs())
}

// DecodeViewedSet parses the persisted array. Numeric ids (rows created by
// the legacy serial-id schema) are accepted and kept as their decimal text.
func DecodeViewedSet(data []byte) (ViewedSet, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw []any
	if err := dec.Decode(&raw); err != nil {
		return ViewedSet{}, fmt.Errorf("%w: %v", ErrInvalidViewedSet, err)
	}
	ids := make([]string, 0, len(raw))
	for _, v := range raw {
		switch t := v.(type) {
		case string:
			ids = append(ids, t)
		case json.Number:
			ids = append(ids, t.String())
		default:
			return ViewedSet{}, ErrInvalidViewedSet
		}
	}
	return NewViewedSet(ids...), nil
}

// HasUnseen reports whether some tracked order id is not in viewed.
func HasUnseen(tracked []string, viewed ViewedSet) bool {
	for _, id := range tracked {
		if !viewed.Contains(id) {
			return true
		}
	}
	return false
}

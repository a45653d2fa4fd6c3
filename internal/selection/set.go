// Package selection tracks which files of a gallery a visitor has selected
// for export or picked as favourites.
package selection

import (
	"encoding/json"

	"gallerylinks/internal/models"
)

// Set is an insertion-ordered set of file IDs.
type Set struct {
	ids   []string
	index map[string]int
}

// NewSet returns a set holding ids, duplicates dropped.
func NewSet(ids ...string) *Set {
	s := &Set{index: make(map[string]int, len(ids))}
	for _, id := range ids {
		s.add(id)
	}
	return s
}

func (s *Set) add(id string) {
	if s.index == nil {
		s.index = make(map[string]int)
	}
	if _, ok := s.index[id]; ok {
		return
	}
	s.index[id] = len(s.ids)
	s.ids = append(s.ids, id)
}

func (s *Set) remove(id string) {
	i, ok := s.index[id]
	if !ok {
		return
	}
	s.ids = append(s.ids[:i], s.ids[i+1:]...)
	delete(s.index, id)
	for j := i; j < len(s.ids); j++ {
		s.index[s.ids[j]] = j
	}
}

// Toggle flips membership of id and reports whether it is now a member.
func (s *Set) Toggle(id string) bool {
	if s.Has(id) {
		s.remove(id)
		return false
	}
	s.add(id)
	return true
}

// Has reports membership.
func (s *Set) Has(id string) bool {
	if s == nil {
		return false
	}
	_, ok := s.index[id]
	return ok
}

// Len returns the number of members.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.ids)
}

// IDs returns a copy of the members in insertion order.
func (s *Set) IDs() []string {
	if s == nil {
		return []string{}
	}
	return append([]string{}, s.ids...)
}

// Clear empties the set.
func (s *Set) Clear() {
	s.ids = nil
	s.index = make(map[string]int)
}

// Filter returns the files that are members, in the files' own order.
// IDs that are not in files are ignored.
func (s *Set) Filter(files []models.File) []models.File {
	out := make([]models.File, 0, s.Len())
	for _, f := range files {
		if s.Has(f.ID) {
			out = append(out, f)
		}
	}
	return out
}

func (s *Set) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.IDs())
}

func (s *Set) UnmarshalJSON(data []byte) error {
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return err
	}
	s.Clear()
	for _, id := range ids {
		s.add(id)
	}
	return nil
}

// SelectedKey is the session key holding the selection for one gallery.
func SelectedKey(shortID string) string {
	return "selected_" + shortID
}

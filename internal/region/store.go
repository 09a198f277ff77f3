package region

import (
	"fmt"
	"image"
)

// Store holds the regions of one camera, indexed by frame. Frame i blurs
// exactly the regions stored at i; nothing carries over between frames.
// The number of frames is fixed when the store is created.
type Store struct {
	frames [][]Region
}

// NewStore returns an empty store for n frames.
func NewStore(n int) *Store {
	if n < 0 {
		n = 0
	}
	return &Store{frames: make([][]Region, n)}
}

// Len is the number of frames the store covers.
func (s *Store) Len() int { return len(s.frames) }

// Count is the total number of regions across all frames.
func (s *Store) Count() int {
	n := 0
	for _, f := range s.frames {
		n += len(f)
	}
	return n
}

// At returns a copy of the regions on frame i in append order.
func (s *Store) At(i int) []Region {
	if i < 0 || i >= len(s.frames) || len(s.frames[i]) == 0 {
		return nil
	}
	out := make([]Region, len(s.frames[i]))
	copy(out, s.frames[i])
	return out
}

// Empty reports whether frame i has no regions.
func (s *Store) Empty(i int) bool {
	return i < 0 || i >= len(s.frames) || len(s.frames[i]) == 0
}

// Append adds r to frame i.
func (s *Store) Append(i int, r Region) error {
	if i < 0 || i >= len(s.frames) {
		return fmt.Errorf("frame %d out of range [0, %d)", i, len(s.frames))
	}
	s.frames[i] = append(s.frames[i], r)
	return nil
}

// RemoveAt deletes the most recently added region on frame i that contains p.
// At most one region is removed.
func (s *Store) RemoveAt(i int, p image.Point) bool {
	if i < 0 || i >= len(s.frames) {
		return false
	}
	regions := s.frames[i]
	for j := len(regions) - 1; j >= 0; j-- {
		if regions[j].Contains(p.X, p.Y) {
			s.frames[i] = append(regions[:j:j], regions[j+1:]...)
			return true
		}
	}
	return false
}

// Replace swaps in the contents of other. Both stores must cover the same
// number of frames.
func (s *Store) Replace(other *Store) error {
	if other.Len() != s.Len() {
		return fmt.Errorf("store covers %d frames, replacement covers %d", s.Len(), other.Len())
	}
	frames := make([][]Region, len(other.frames))
	for i, f := range other.frames {
		if len(f) > 0 {
			frames[i] = append([]Region(nil), f...)
		}
	}
	s.frames = frames
	return nil
}

// Each visits every region in frame order, then append order.
func (s *Store) Each(fn func(frame int, r Region)) {
	for i, f := range s.frames {
		for _, r := range f {
			fn(i, r)
		}
	}
}

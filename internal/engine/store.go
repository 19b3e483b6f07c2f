package engine

import (
	"sort"

	"github.com/tapin/server/internal/models"
)

// PhotoStore holds the full historical set of photo records for one
// posting surface. Records are never deleted; insertion order is
// preserved. Not safe for concurrent use on its own; the Engine
// serializes access.
type PhotoStore struct {
	photos []*models.Photo
	index  map[string]int // PhotoID -> position in photos
}

// NewPhotoStore creates an empty store.
func NewPhotoStore() *PhotoStore {
	return &PhotoStore{index: make(map[string]int)}
}

// Append adds a record. Idempotent under PhotoID collision: an
// id-identical record replaces the stored one in place, which lets an
// optimistic append be confirmed later without duplicating.
func (s *PhotoStore) Append(photo *models.Photo) {
	if i, ok := s.index[photo.PhotoID]; ok {
		s.photos[i] = photo
		return
	}
	s.index[photo.PhotoID] = len(s.photos)
	s.photos = append(s.photos, photo)
}

// Get returns the record with the given id, or nil.
func (s *PhotoStore) Get(photoID string) *models.Photo {
	if i, ok := s.index[photoID]; ok {
		return s.photos[i]
	}
	return nil
}

// ForGroupAndCycle returns Today photos matching both keys, in
// insertion order.
func (s *PhotoStore) ForGroupAndCycle(groupID, dateKey string) []*models.Photo {
	out := []*models.Photo{}
	for _, p := range s.photos {
		if p.GroupID == groupID && p.DateKey == dateKey {
			out = append(out, p)
		}
	}
	return out
}

// ForRound returns Blitz photos for a group's round, in insertion
// order.
func (s *PhotoStore) ForRound(groupID, roundID string) []*models.Photo {
	out := []*models.Photo{}
	for _, p := range s.photos {
		if p.GroupID == groupID && p.RoundID == roundID {
			out = append(out, p)
		}
	}
	return out
}

// ForDateKey returns all photos carrying the given date key.
func (s *PhotoStore) ForDateKey(dateKey string) []*models.Photo {
	out := []*models.Photo{}
	for _, p := range s.photos {
		if p.DateKey == dateKey {
			out = append(out, p)
		}
	}
	return out
}

// DateKeys returns the distinct date keys present, newest first.
func (s *PhotoStore) DateKeys() []string {
	seen := make(map[string]bool)
	keys := []string{}
	for _, p := range s.photos {
		if p.DateKey != "" && !seen[p.DateKey] {
			seen[p.DateKey] = true
			keys = append(keys, p.DateKey)
		}
	}
	// Reverse-lexicographic order puts the most recent day first.
	sort.Sort(sort.Reverse(sort.StringSlice(keys)))
	return keys
}

// UpdatePosition moves a photo on the canvas. A missing id is a
// silent no-op: the UI only repositions photos it has already
// observed, so absence is accepted behavior rather than an error.
// Returns true when a record was updated.
func (s *PhotoStore) UpdatePosition(photoID string, x, y float64, zIndex int) bool {
	i, ok := s.index[photoID]
	if !ok {
		return false
	}
	p := s.photos[i]
	p.X = x
	p.Y = y
	p.ZIndex = zIndex
	return true
}

// All returns the backing slice in insertion order. Callers must not
// mutate it.
func (s *PhotoStore) All() []*models.Photo {
	return s.photos
}

// Len returns the number of records held.
func (s *PhotoStore) Len() int {
	return len(s.photos)
}

// Replace swaps the store's contents for the given records, rebuilding
// the id index. Used after a merge pass.
func (s *PhotoStore) Replace(photos []*models.Photo) {
	s.photos = photos
	s.index = make(map[string]int, len(photos))
	for i, p := range photos {
		s.index[p.PhotoID] = i
	}
}

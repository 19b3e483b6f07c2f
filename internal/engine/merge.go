package engine

import (
	"sort"

	"github.com/tapin/server/internal/models"
)

// MergePhotos reconciles a freshly observed set of photo records with
// a previously known set. Union by PhotoID, incoming wins on id
// collision, and nothing present in either input is dropped. An empty
// incoming set against a non-empty existing set returns existing
// unchanged, so a failed or partial read is never mistaken for "no
// data" and allowed to wipe state. The result is sorted by CreatedAt
// ascending so read order is stable across reloads.
func MergePhotos(existing, incoming []*models.Photo) []*models.Photo {
	if len(incoming) == 0 && len(existing) > 0 {
		return existing
	}

	index := make(map[string]int, len(existing)+len(incoming))
	merged := make([]*models.Photo, 0, len(existing)+len(incoming))

	for _, p := range existing {
		if i, ok := index[p.PhotoID]; ok {
			merged[i] = p
			continue
		}
		index[p.PhotoID] = len(merged)
		merged = append(merged, p)
	}
	for _, p := range incoming {
		if i, ok := index[p.PhotoID]; ok {
			merged[i] = p
			continue
		}
		index[p.PhotoID] = len(merged)
		merged = append(merged, p)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].CreatedAt.Before(merged[j].CreatedAt)
	})

	return merged
}

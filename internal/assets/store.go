package assets

import (
	"log/slog"

	"github.com/lehigh-university-libraries/albumgen/internal/models"
)

// DefaultCapacity bounds the analysis and generation payload size.
const DefaultCapacity = 5

// Store holds the ordered reference assets of the active session.
// Across a non-empty store exactly one asset is primary.
//
// Store is not safe for concurrent use; the session engine owns it.
type Store struct {
	assets   []models.ReferenceAsset
	capacity int
}

// NewStore creates an empty store. A capacity <= 0 uses DefaultCapacity.
func NewStore(capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Store{capacity: capacity}
}

// Add appends an asset. The first asset added to an empty store becomes primary.
// Exceeding the capacity leaves the store unchanged and returns ErrCapacityReached.
func (s *Store) Add(asset models.ReferenceAsset) error {
	if len(s.assets) >= s.capacity {
		slog.Warn("Reference asset capacity reached, asset not added", "capacity", s.capacity, "asset_id", asset.ID)
		return models.ErrCapacityReached
	}
	asset.IsPrimary = len(s.assets) == 0
	s.assets = append(s.assets, asset)
	return nil
}

// Remove deletes the asset with the given id. Removing the primary promotes
// the new first element.
func (s *Store) Remove(id string) bool {
	idx := s.indexOf(id)
	if idx < 0 {
		return false
	}
	wasPrimary := s.assets[idx].IsPrimary
	s.assets = append(s.assets[:idx:idx], s.assets[idx+1:]...)
	if wasPrimary && len(s.assets) > 0 {
		s.assets[0].IsPrimary = true
	}
	return true
}

// Primary returns the anchor asset.
func (s *Store) Primary() (models.ReferenceAsset, bool) {
	for _, a := range s.assets {
		if a.IsPrimary {
			return a, true
		}
	}
	return models.ReferenceAsset{}, false
}

// All returns a copy of the assets in order.
func (s *Store) All() []models.ReferenceAsset {
	out := make([]models.ReferenceAsset, len(s.assets))
	copy(out, s.assets)
	return out
}

// Anchors returns the primary asset first followed by the remaining assets
// in order, at most limit entries.
func (s *Store) Anchors(limit int) []models.ReferenceAsset {
	if limit <= 0 || len(s.assets) == 0 {
		return nil
	}
	out := make([]models.ReferenceAsset, 0, min(limit, len(s.assets)))
	if primary, ok := s.Primary(); ok {
		out = append(out, primary)
	}
	for _, a := range s.assets {
		if len(out) >= limit {
			break
		}
		if a.IsPrimary {
			continue
		}
		out = append(out, a)
	}
	return out
}

// Replace swaps the whole collection, used by restore and startup load.
// Input is expected to be normalized; the primary invariant is enforced anyway.
func (s *Store) Replace(assets []models.ReferenceAsset) {
	s.assets = make([]models.ReferenceAsset, len(assets))
	copy(s.assets, assets)
	EnsurePrimary(s.assets)
}

func (s *Store) Clear() {
	s.assets = nil
}

func (s *Store) Len() int {
	return len(s.assets)
}

func (s *Store) Capacity() int {
	return s.capacity
}

func (s *Store) indexOf(id string) int {
	for i, a := range s.assets {
		if a.ID == id {
			return i
		}
	}
	return -1
}

// EnsurePrimary enforces the single-primary invariant in place: the first
// flagged asset stays primary, any others are cleared, and an unflagged
// non-empty list promotes its first element.
func EnsurePrimary(list []models.ReferenceAsset) {
	found := false
	for i := range list {
		if list[i].IsPrimary && !found {
			found = true
			continue
		}
		list[i].IsPrimary = false
	}
	if !found && len(list) > 0 {
		list[0].IsPrimary = true
	}
}

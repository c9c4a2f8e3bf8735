// Package state persists the per-tracker signup status between cycles.
package state

import "trackerwatch/internal/model"

// Store is the interface for loading and saving tracker state.
// Load with no prior state returns an empty map, not an error.
// Save persists the full mapping and must never leave a corrupt file
// behind, whatever happens mid-write.
type Store interface {
	Load() (map[string]model.TargetState, error)
	Save(states map[string]model.TargetState) error
}

// Package live maintains the latest market prices and keeps cashout
// figures current against them.
package live

import (
	"sync"

	"github.com/yourusername/dutch-trader/internal/metrics"
	"github.com/yourusername/dutch-trader/internal/models"
)

// PriceBuffer holds the most recent price snapshot per selection. Stream
// updates overwrite in place; readers always see the latest complete
// snapshot. Older ticks are not retained, the cashout display only ever
// needs the current book.
type PriceBuffer struct {
	mu        sync.RWMutex
	snapshots map[uint64]models.PriceSnapshot
}

// NewPriceBuffer creates an empty price buffer
func NewPriceBuffer() *PriceBuffer {
	return &PriceBuffer{
		snapshots: make(map[uint64]models.PriceSnapshot),
	}
}

// Update stores the latest snapshot for a selection
func (b *PriceBuffer) Update(snapshot models.PriceSnapshot) {
	b.mu.Lock()
	b.snapshots[snapshot.SelectionID] = snapshot
	size := len(b.snapshots)
	b.mu.Unlock()

	metrics.UpdateTrackedSelections(float64(size))
}

// Get returns the latest snapshot for a selection
func (b *PriceBuffer) Get(selectionID uint64) (models.PriceSnapshot, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	snap, ok := b.snapshots[selectionID]
	return snap, ok
}

// Snapshot returns a copy of the full buffer keyed by selection, in the
// shape the multi-cashout calculator consumes.
func (b *PriceBuffer) Snapshot() map[uint64]models.PriceSnapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make(map[uint64]models.PriceSnapshot, len(b.snapshots))
	for id, snap := range b.snapshots {
		out[id] = snap
	}
	return out
}

// Len returns the number of tracked selections
func (b *PriceBuffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.snapshots)
}

// Clear drops all tracked snapshots
func (b *PriceBuffer) Clear() {
	b.mu.Lock()
	b.snapshots = make(map[uint64]models.PriceSnapshot)
	b.mu.Unlock()

	metrics.UpdateTrackedSelections(0)
}

package runtime

import (
	"sync"

	"github.com/arborworks/arbor/internal/pkg/options"
	"github.com/arborworks/arbor/pkg/logger"
)

// PriceTable maps model IDs to per-million-token prices. It is an external
// configuration input and may be swapped at runtime when the config file
// changes, so lookups take a read lock.
type PriceTable struct {
	mu    sync.RWMutex
	costs map[string]options.ModelCost
}

// NewPriceTable builds a table from the configured provider catalogs.
func NewPriceTable(mo *options.ModelOptions) *PriceTable {
	t := &PriceTable{costs: map[string]options.ModelCost{}}
	if mo != nil {
		t.Update(mo)
	}
	return t
}

// Update replaces the table contents from a fresh model catalog.
func (t *PriceTable) Update(mo *options.ModelOptions) {
	costs := map[string]options.ModelCost{}
	for _, p := range mo.Providers {
		for _, m := range p.Models {
			costs[m.ID] = m.Cost
		}
	}
	t.mu.Lock()
	t.costs = costs
	t.mu.Unlock()
	logger.DebugX("engine", "price table updated, %d models", len(costs))
}

// Cost prices one usage sample in dollars. Models without a price entry
// cost 0; the iteration cap backstops runs against unpriced models.
func (t *PriceTable) Cost(modelID string, inputTokens, outputTokens int64) float64 {
	t.mu.RLock()
	c, ok := t.costs[modelID]
	t.mu.RUnlock()
	if !ok {
		return 0
	}
	return float64(inputTokens)/1e6*c.Input + float64(outputTokens)/1e6*c.Output
}

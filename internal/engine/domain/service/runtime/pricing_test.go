package runtime

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arborworks/arbor/internal/pkg/options"
)

func TestPriceTableCost(t *testing.T) {
	table := pricedTable("gpt-4o-mini", 0.15, 0.60)

	// 1M input + 1M output at ($0.15, $0.60) per million.
	require.InDelta(t, 0.75, table.Cost("gpt-4o-mini", 1_000_000, 1_000_000), 1e-9)
	require.InDelta(t, 0.00015, table.Cost("gpt-4o-mini", 1000, 0), 1e-9)
}

func TestPriceTableUnknownModelIsFree(t *testing.T) {
	table := pricedTable("known", 1, 1)
	require.Zero(t, table.Cost("unknown", 1_000_000, 1_000_000))
}

func TestPriceTableUpdateSwapsCatalog(t *testing.T) {
	table := pricedTable("m1", 1, 1)
	require.Positive(t, table.Cost("m1", 1000, 1000))

	mo := options.NewModelOptions()
	mo.Providers["p"] = &options.ProviderConfig{
		Models: []options.ModelDefinition{
			{ID: "m2", Cost: options.ModelCost{Input: 2, Output: 4}},
		},
	}
	table.Update(mo)

	// The old entry is gone, the new one priced.
	require.Zero(t, table.Cost("m1", 1000, 1000))
	require.InDelta(t, 6.0, table.Cost("m2", 1_000_000, 1_000_000), 1e-9)
}

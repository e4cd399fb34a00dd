package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rishav/xchange-engine/internal/wire"
)

func TestPartitionOfSplitsAtM(t *testing.T) {
	assert.Equal(t, PartitionAM, PartitionOf(wire.SymbolFrom("AAPL")))
	assert.Equal(t, PartitionAM, PartitionOf(wire.SymbolFrom("MSFT")))
	assert.Equal(t, PartitionNZ, PartitionOf(wire.SymbolFrom("NVDA")))
	assert.Equal(t, PartitionNZ, PartitionOf(wire.SymbolFrom("ZYNX")))
}

func TestPartitionOfIsCaseFolded(t *testing.T) {
	assert.Equal(t, PartitionOf(wire.SymbolFrom("ibm")), PartitionOf(wire.SymbolFrom("IBM")))
}

func TestPartitionOfNonLetterFallsToAM(t *testing.T) {
	assert.Equal(t, PartitionAM, PartitionOf(wire.SymbolFrom("1ABC")))
	assert.Equal(t, PartitionAM, PartitionOf(wire.Symbol{}))
}

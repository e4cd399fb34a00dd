package matching

import "github.com/rishav/xchange-engine/internal/wire"

// Partition identifies one of the two independent processing lanes a
// symbol is assigned to. There is no synchronization between partitions:
// each owns a disjoint set of symbols and its own Engine, queues, and
// goroutine.
type Partition int

const (
	// PartitionAM handles symbols whose first letter case-folds to A-M.
	PartitionAM Partition = 0
	// PartitionNZ handles symbols whose first letter case-folds to N-Z.
	PartitionNZ Partition = 1
)

// PartitionCount is the fixed number of partitions.
const PartitionCount = 2

// PartitionOf returns which partition owns symbol, by its first letter
// case-folded to upper case. A symbol with no letter in its first byte
// (digit, punctuation, empty) falls into PartitionAM.
func PartitionOf(symbol wire.Symbol) Partition {
	s := symbol.String()
	if len(s) == 0 {
		return PartitionAM
	}
	c := s[0]
	if c >= 'a' && c <= 'z' {
		c -= 'a' - 'A'
	}
	if c >= 'N' && c <= 'Z' {
		return PartitionNZ
	}
	return PartitionAM
}

// Package matching hosts one partition's worth of order books and the
// single-threaded processor that drives them from a queue of decoded
// client messages.
//
// Architecture: single-threaded core, one goroutine per partition.
//
// Each partition's Engine is touched by exactly one goroutine (its
// Processor's run loop), so no locking is needed around order book
// mutation — the same determinism/no-locks rationale the teacher's
// disruptor-driven engine relies on, here achieved by static symbol
// partitioning instead of a single global ring buffer.
package matching

import (
	"github.com/rishav/xchange-engine/internal/book"
	"github.com/rishav/xchange-engine/internal/wire"
)

// Engine owns every order book for the symbols assigned to one partition,
// creating a book lazily the first time a symbol is referenced.
type Engine struct {
	partition Partition
	books     map[wire.Symbol]*book.OrderBook
}

// NewEngine creates an empty engine for the given partition.
func NewEngine(partition Partition) *Engine {
	return &Engine{
		partition: partition,
		books:     make(map[wire.Symbol]*book.OrderBook),
	}
}

// Partition reports which partition this engine serves.
func (e *Engine) Partition() Partition {
	return e.partition
}

// bookFor returns the order book for symbol, creating it on first
// reference. Caller must already have confirmed symbol belongs to this
// engine's partition.
func (e *Engine) bookFor(symbol wire.Symbol) *book.OrderBook {
	b, ok := e.books[symbol]
	if !ok {
		b = book.NewOrderBook(symbol)
		e.books[symbol] = b
	}
	return b
}

// Symbols returns every symbol this engine has created a book for.
func (e *Engine) Symbols() []wire.Symbol {
	out := make([]wire.Symbol, 0, len(e.books))
	for s := range e.books {
		out = append(out, s)
	}
	return out
}

// Book returns the order book for symbol if one has been created, or nil.
func (e *Engine) Book(symbol wire.Symbol) *book.OrderBook {
	return e.books[symbol]
}

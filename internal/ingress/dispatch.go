// Package ingress accepts TCP and UDP client connections, detects and
// decodes each client's chosen wire protocol, and dispatches decoded
// messages onto the correct partition's input queue.
package ingress

import (
	"sync"
	"sync/atomic"

	"github.com/rishav/xchange-engine/internal/matching"
	"github.com/rishav/xchange-engine/internal/queue"
	"github.com/rishav/xchange-engine/internal/registry"
	"github.com/rishav/xchange-engine/internal/wire"
)

// Dispatcher routes decoded messages to the partition(s) responsible for
// them. A NewOrder goes to the single partition owning its symbol; Cancel
// and Flush carry no symbol, so they are delivered to every partition —
// each partition's Processor silently ignores a Cancel for an order it
// doesn't hold, and Flush is defined to apply to every book regardless of
// partition.
type Dispatcher struct {
	inputs   [matching.PartitionCount]*queue.Ring[queue.InEnvelope]
	users    *registry.UserClientMap
	sequence uint64

	// mu serialises pushes: Dispatch is called from every TCP connection's
	// goroutine and from the UDP receiver, while each input Ring accepts
	// only one producer at a time.
	mu sync.Mutex
}

// NewDispatcher wires a dispatcher to the given per-partition input
// queues. len(inputs) must equal matching.PartitionCount. users records
// which client last submitted an order for a given user_id, so the output
// router can later address that user's trade fills back to a connection.
func NewDispatcher(inputs [matching.PartitionCount]*queue.Ring[queue.InEnvelope], users *registry.UserClientMap) *Dispatcher {
	return &Dispatcher{inputs: inputs, users: users}
}

// Dispatch enqueues msg, stamping it with the next global acceptance
// sequence number and the given arrival timestamp. It reports false if any
// target partition's queue was full — the caller decides whether that
// means dropping the message or applying its own retry policy.
func (d *Dispatcher) Dispatch(client queue.ClientID, msg wire.Message, timestamp uint64) bool {
	seq := atomic.AddUint64(&d.sequence, 1)
	env := queue.InEnvelope{Client: client, Message: msg, Timestamp: timestamp, Sequence: seq}

	d.mu.Lock()
	defer d.mu.Unlock()
	switch m := msg.(type) {
	case *wire.NewOrder:
		d.users.Set(m.UserID, client)
		return d.inputs[matching.PartitionOf(m.Symbol)].Push(env)
	case *wire.Cancel, *wire.Flush:
		ok := true
		for _, q := range d.inputs {
			if !q.Push(env) {
				ok = false
			}
		}
		return ok
	default:
		return false
	}
}

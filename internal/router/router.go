// Package router drains the matching engine's output queues and delivers
// each message to the client(s) it's addressed to, plus always to the
// multicast feed.
package router

import (
	"time"

	"github.com/rishav/xchange-engine/internal/matching"
	"github.com/rishav/xchange-engine/internal/queue"
	"github.com/rishav/xchange-engine/internal/registry"
	"github.com/rishav/xchange-engine/internal/wire"
)

// drainBatchSize bounds how many messages Drain pulls from one partition's
// output queue per call, keeping the round-robin over partitions fair
// rather than letting one partition's backlog starve the other.
const drainBatchSize = 64

// Sender abstracts delivering an already-framed message to one client and
// to the multicast feed. Production wiring uses *Publisher (publisher.go
// in this package); tests substitute a recording fake.
type Sender interface {
	SendToClient(c *registry.Client, m wire.Message)
	SendMulticast(m wire.Message)
}

// OutputRouter drains every partition's output queue in round-robin order
// and addresses each message per spec: Ack/CancelAck to the originating
// client, Trade to the buyer and the seller, TopOfBook to every registered
// client — always, in addition, to the multicast feed.
type OutputRouter struct {
	outputs  []*queue.Ring[queue.OutEnvelope]
	registry *registry.Registry
	users    *registry.UserClientMap
	sender   Sender
}

// NewOutputRouter wires a router over one output queue per partition.
func NewOutputRouter(outputs []*queue.Ring[queue.OutEnvelope], reg *registry.Registry, users *registry.UserClientMap, sender Sender) *OutputRouter {
	return &OutputRouter{outputs: outputs, registry: reg, users: users, sender: sender}
}

// Drain pulls up to drainBatchSize messages from each partition's output
// queue, round-robin, and routes every one. It returns the total number of
// messages routed; a zero return across every partition means all queues
// were empty.
func (r *OutputRouter) Drain() int {
	total := 0
	for _, q := range r.outputs {
		for i := 0; i < drainBatchSize; i++ {
			env, ok := q.Pop()
			if !ok {
				break
			}
			r.route(env)
			total++
		}
	}
	return total
}

func (r *OutputRouter) route(env queue.OutEnvelope) {
	switch m := env.Message.(type) {
	case *wire.Ack:
		r.toOrigin(env)
	case *wire.CancelAck:
		r.toOrigin(env)
	case *wire.Trade:
		r.toTradeParties(m)
		r.sender.SendMulticast(m)
	case *wire.TopOfBook:
		r.broadcast(m)
	}
}

func (r *OutputRouter) toOrigin(env queue.OutEnvelope) {
	if c, ok := r.registry.Get(env.Origin); ok {
		r.sender.SendToClient(c, env.Message)
	}
	r.sender.SendMulticast(env.Message)
}

// toTradeParties delivers m to the buyer's and the seller's clients,
// deduplicating when both users resolve to the same client so that case
// (e.g. a self-trade, or two user ids sharing one connection) receives the
// trade once rather than twice.
func (r *OutputRouter) toTradeParties(m *wire.Trade) {
	buyer, buyerOK := r.users.Lookup(m.BuyUser)
	seller, sellerOK := r.users.Lookup(m.SellUser)

	if buyerOK {
		r.toClient(buyer, m)
	}
	if sellerOK && (!buyerOK || seller != buyer) {
		r.toClient(seller, m)
	}
}

func (r *OutputRouter) toClient(clientID registry.ClientID, m wire.Message) {
	if c, ok := r.registry.Get(clientID); ok {
		r.sender.SendToClient(c, m)
	}
}

func (r *OutputRouter) broadcast(m wire.Message) {
	for _, c := range r.registry.All() {
		r.sender.SendToClient(c, m)
	}
	r.sender.SendMulticast(m)
}

// RunForever loops Drain until stop reports true, sleeping briefly between
// empty passes so an idle router doesn't spin a core.
func RunForever(r *OutputRouter, stop func() bool) {
	for !stop() {
		if r.Drain() == 0 {
			time.Sleep(time.Millisecond)
		}
	}
}

// PartitionOutputs is a convenience alias so callers constructing the
// fixed-size per-partition output array don't need to import matching
// just for the count.
const PartitionOutputs = matching.PartitionCount

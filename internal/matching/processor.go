package matching

import (
	"time"

	"github.com/rishav/xchange-engine/internal/queue"
	"github.com/rishav/xchange-engine/internal/wire"
)

// inputBatchSize bounds how many envelopes Run drains per iteration before
// yielding, so one partition's processor doesn't starve output draining
// indefinitely under a sustained flood (mirrors the teacher's disruptor
// consumer processing one claimed range at a time rather than looping
// forever on an unbounded backlog).
const inputBatchSize = 32

// Processor drives one partition's Engine from its input queue, emitting
// every message the engine produces onto the output queue. Run must only
// ever be called from one goroutine — that goroutine is this partition's
// owner, mirroring the teacher's single-threaded EventProcessor.
type Processor struct {
	engine *Engine
	in     *queue.Ring[queue.InEnvelope]
	out    *queue.Ring[queue.OutEnvelope]
}

// NewProcessor builds a processor wiring engine between in and out.
func NewProcessor(engine *Engine, in *queue.Ring[queue.InEnvelope], out *queue.Ring[queue.OutEnvelope]) *Processor {
	return &Processor{engine: engine, in: in, out: out}
}

// Drain processes up to inputBatchSize queued envelopes and reports how
// many it handled. Callers loop on Drain; a zero return means the input
// queue was empty.
func (p *Processor) Drain() int {
	n := 0
	for ; n < inputBatchSize; n++ {
		env, ok := p.in.Pop()
		if !ok {
			break
		}
		p.process(env)
	}
	return n
}

func (p *Processor) process(env queue.InEnvelope) {
	switch m := env.Message.(type) {
	case *wire.NewOrder:
		p.processNewOrder(env, m)
	case *wire.Cancel:
		p.processCancel(env, m)
	case *wire.Flush:
		p.processFlush(env)
	}
}

func (p *Processor) processNewOrder(env queue.InEnvelope, m *wire.NewOrder) {
	b := p.engine.bookFor(m.Symbol)
	o, err := b.NewRestingOrder(m.UserID, m.Price, m.Quantity, m.Side, m.UserOrderID, env.Timestamp, env.Sequence)
	if err != nil {
		// Arena exhaustion is fatal for this partition; the caller of
		// Drain surfaces it via a panic/crash path appropriate to the
		// supervisor, not a per-message error.
		panic(err)
	}
	p.emit(env.Client, b.Add(o))
}

func (p *Processor) processCancel(env queue.InEnvelope, m *wire.Cancel) {
	for _, sym := range p.engine.Symbols() {
		b := p.engine.Book(sym)
		if out := b.Cancel(m.UserID, m.UserOrderID); out != nil {
			p.emit(env.Client, out)
			return
		}
	}
}

func (p *Processor) processFlush(env queue.InEnvelope) {
	for _, sym := range p.engine.Symbols() {
		b := p.engine.Book(sym)
		p.emit(env.Client, b.Flush())
	}
}

// RunForever loops Drain on its own goroutine until stop reports true,
// sleeping briefly between empty passes. Each partition's Processor must
// be driven by exactly one such loop to preserve the single-threaded,
// deterministic processing the teacher's EventProcessor relies on.
func RunForever(p *Processor, stop func() bool) {
	for !stop() {
		if p.Drain() == 0 {
			time.Sleep(time.Millisecond)
		}
	}
}

func (p *Processor) emit(origin queue.ClientID, msgs []wire.Message) {
	for _, m := range msgs {
		for !p.out.Push(queue.OutEnvelope{Origin: origin, Message: m}) {
			// Output queue back-pressure: the router is expected to drain
			// faster than any single partition can produce, per spec.
			// Spinning here keeps the ordering contract (Ack, then trades,
			// then top-of-book, with nothing from another input
			// interleaved) intact rather than dropping mid-sequence.
		}
	}
}

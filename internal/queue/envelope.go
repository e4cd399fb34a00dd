// Package queue implements the bounded single-producer/single-consumer
// ring buffers that connect ingress, the matching processors, and the
// output router. Back-pressure is returned to the caller, never absorbed
// by blocking.
package queue

import "github.com/rishav/xchange-engine/internal/wire"

// ClientID identifies a registered client connection (see internal/registry).
type ClientID uint32

// InEnvelope carries one decoded input message plus the provenance needed
// to address its output: which client sent it, and when it was accepted
// (for the order's arrival-order tiebreak).
type InEnvelope struct {
	Client    ClientID
	Message   wire.Message
	Timestamp uint64
	Sequence  uint64
}

// OutEnvelope carries one produced output message plus enough addressing
// information for the output router to decide who receives it.
type OutEnvelope struct {
	Origin  ClientID // client whose input produced this message
	Message wire.Message
}

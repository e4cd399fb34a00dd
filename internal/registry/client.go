// Package registry tracks connected clients (TCP and UDP), their detected
// wire protocol, and the mapping from exchange user IDs to the client
// connection that should receive that user's output — the bookkeeping the
// teacher's stateless HTTP handlers never needed.
package registry

import (
	"net"
	"net/netip"
	"sync"

	"github.com/rishav/xchange-engine/internal/queue"
	"github.com/rishav/xchange-engine/internal/wire"
)

// ClientID is a stable handle for one connection, assigned once at
// registration and never reused for the life of the process. It is an
// alias of queue.ClientID so envelopes flowing through the queues can
// carry the same handle the registry hands out, without a conversion at
// every boundary.
type ClientID = queue.ClientID

// Transport distinguishes how a client's output is delivered.
type Transport int

const (
	TransportTCP Transport = iota
	TransportUDP
)

// Framing selects how binary output is delimited on the wire for a client
// that is using the binary protocol.
type Framing int

const (
	// FramingRaw relies on each message's fixed, self-describing size —
	// the default.
	FramingRaw Framing = iota
	// FramingLengthPrefixed prepends a 4-byte big-endian length before
	// every message, the optional variant spec.md §9 leaves open.
	FramingLengthPrefixed
)

// Client describes one registered connection.
type Client struct {
	ID        ClientID
	Transport Transport
	Protocol  wire.Protocol // detected on first message; ProtocolUnknown until then
	Framing   Framing

	Conn    net.Conn       // set when Transport == TransportTCP
	UDPAddr netip.AddrPort // set when Transport == TransportUDP
}

// Registry is the set of currently connected clients, keyed by ClientID,
// plus the reverse lookup from UDP peer address to ClientID needed because
// UDP has no persistent connection object to hang state off of.
type Registry struct {
	mu      sync.RWMutex
	clients map[ClientID]*Client
	byUDP   map[netip.AddrPort]ClientID
	nextID  uint32
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		clients: make(map[ClientID]*Client),
		byUDP:   make(map[netip.AddrPort]ClientID),
	}
}

// RegisterTCP assigns a new ClientID to an accepted TCP connection.
func (r *Registry) RegisterTCP(conn net.Conn) *Client {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	c := &Client{ID: ClientID(r.nextID), Transport: TransportTCP, Conn: conn}
	r.clients[c.ID] = c
	return c
}

// RegisterUDP assigns a new ClientID to a UDP peer address the first time
// a datagram arrives from it.
func (r *Registry) RegisterUDP(addr netip.AddrPort) *Client {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	c := &Client{ID: ClientID(r.nextID), Transport: TransportUDP, UDPAddr: addr}
	r.clients[c.ID] = c
	r.byUDP[addr] = c.ID
	return c
}

// LookupUDP returns the client previously registered for addr, if any.
func (r *Registry) LookupUDP(addr netip.AddrPort) (*Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byUDP[addr]
	if !ok {
		return nil, false
	}
	return r.clients[id], true
}

// Get returns the client for id, if still registered.
func (r *Registry) Get(id ClientID) (*Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.clients[id]
	return c, ok
}

// SetProtocol records the protocol detected for a client's first message.
// Framing is meaningful only when protocol is ProtocolBinary.
func (r *Registry) SetProtocol(id ClientID, protocol wire.Protocol, framing Framing) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.clients[id]; ok {
		c.Protocol = protocol
		c.Framing = framing
	}
}

// Remove deregisters a client (TCP disconnect, or UDP LRU eviction).
func (r *Registry) Remove(id ClientID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.clients[id]
	if !ok {
		return
	}
	delete(r.clients, id)
	if c.Transport == TransportUDP {
		delete(r.byUDP, c.UDPAddr)
	}
}

// All returns a snapshot slice of every currently registered client, for
// broadcast fan-out (TopOfBook) and multicast-adjacent bookkeeping.
func (r *Registry) All() []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Client, 0, len(r.clients))
	for _, c := range r.clients {
		out = append(out, c)
	}
	return out
}

// Count reports the number of currently registered clients.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}

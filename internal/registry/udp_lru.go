package registry

import (
	"container/list"
	"net/netip"
	"sync"
)

// DefaultUDPCapacity bounds how many distinct UDP peers are tracked at
// once. UDP has no connection teardown to signal "this client is gone", so
// without a bound a process fed a stream of spoofed or one-shot source
// addresses would grow the client table without limit.
const DefaultUDPCapacity = 4096

// UDPLRU tracks UDP peer activity and reports the least-recently-used
// address to evict once the table is full, freeing its Registry entry.
type UDPLRU struct {
	mu       sync.Mutex
	capacity int
	order    *list.List // front = most recently used
	elems    map[netip.AddrPort]*list.Element
}

// NewUDPLRU creates an eviction tracker with the given capacity.
func NewUDPLRU(capacity int) *UDPLRU {
	if capacity <= 0 {
		capacity = DefaultUDPCapacity
	}
	return &UDPLRU{
		capacity: capacity,
		order:    list.New(),
		elems:    make(map[netip.AddrPort]*list.Element),
	}
}

// Touch records activity from addr, marking it most-recently-used. If
// admitting addr as a new entry would exceed capacity, Touch evicts and
// returns the least-recently-used address; didEvict reports false
// otherwise.
func (l *UDPLRU) Touch(addr netip.AddrPort) (evicted netip.AddrPort, didEvict bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if e, ok := l.elems[addr]; ok {
		l.order.MoveToFront(e)
		return netip.AddrPort{}, false
	}

	e := l.order.PushFront(addr)
	l.elems[addr] = e

	if l.order.Len() <= l.capacity {
		return netip.AddrPort{}, false
	}

	back := l.order.Back()
	evictedAddr := back.Value.(netip.AddrPort)
	l.order.Remove(back)
	delete(l.elems, evictedAddr)
	return evictedAddr, true
}

// Remove drops addr from the tracker, e.g. on an explicit TCP-style
// teardown signal if the transport ever provides one.
func (l *UDPLRU) Remove(addr netip.AddrPort) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if e, ok := l.elems[addr]; ok {
		l.order.Remove(e)
		delete(l.elems, addr)
	}
}

// Len reports the number of tracked addresses.
func (l *UDPLRU) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.order.Len()
}

package registry

import "sync"

// UserClientMap maps an exchange user_id to the ClientID currently
// responsible for receiving that user's output. Last writer wins: if a
// user submits orders from more than one connection, whichever connection
// most recently submitted a NewOrder for that user (the ingress dispatcher
// calls Set only for NewOrder) becomes the delivery target.
type UserClientMap struct {
	mu   sync.RWMutex
	byID map[uint32]ClientID
}

// NewUserClientMap creates an empty map.
func NewUserClientMap() *UserClientMap {
	return &UserClientMap{byID: make(map[uint32]ClientID)}
}

// Set records that userID's output should now go to client.
func (m *UserClientMap) Set(userID uint32, client ClientID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[userID] = client
}

// Lookup returns the client currently associated with userID.
func (m *UserClientMap) Lookup(userID uint32) (ClientID, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.byID[userID]
	return c, ok
}

// Forget removes any association recorded for client, e.g. on disconnect,
// so a later lookup can't route output to a stale connection. Since the
// map is keyed by user not by client, this scans every entry under the
// write lock — an O(n) sweep, acceptable because deregistration happens
// rarely compared to lookups.
func (m *UserClientMap) Forget(client ClientID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for user, c := range m.byID {
		if c == client {
			delete(m.byID, user)
		}
	}
}

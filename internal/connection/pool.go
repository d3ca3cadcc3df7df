// SPDX-License-Identifier: MIT
// Copyright © 2024–2026 Alexander Demin

package connection

import (
	"math/rand"
	"sync"
)

// Pool is a set of Connections keyed by broker address, generalizing the
// teacher's infra.Router map-of-string pattern from routing keys to broker
// addresses. Addresses are unique; iteration order can be shuffled in
// place to randomize publish load across nodes (spec §4.4 step 1).
type Pool struct {
	mu      sync.RWMutex
	byAddr  map[string]*Connection
	byID    map[string]*Connection
	ordered []*Connection
}

// NewPool returns an empty connection pool.
func NewPool() *Pool {
	return &Pool{
		byAddr: make(map[string]*Connection),
		byID:   make(map[string]*Connection),
	}
}

// Add registers conn in the pool. A conn already present at the same
// address is replaced and closed — the pool owns every socket it holds,
// so a replaced entry must not leak its connection.
func (p *Pool) Add(conn *Connection) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if old, ok := p.byAddr[conn.Addr]; ok {
		p.remove(old)
		old.Close()
	}

	p.byAddr[conn.Addr] = conn
	p.byID[conn.ID] = conn
	p.ordered = append(p.ordered, conn)
}

// Remove drops conn from the pool without closing it.
func (p *Pool) Remove(conn *Connection) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.remove(conn)
}

func (p *Pool) remove(conn *Connection) {
	delete(p.byAddr, conn.Addr)
	delete(p.byID, conn.ID)

	for i, c := range p.ordered {
		if c == conn {
			p.ordered = append(p.ordered[:i], p.ordered[i+1:]...)
			break
		}
	}
}

// FindByAddr looks up a Connection by its "host:port" identity.
func (p *Pool) FindByAddr(addr string) (*Connection, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	c, ok := p.byAddr[addr]
	return c, ok
}

// FindByID looks up a Connection by its stable, reconnect-surviving
// identity — the replacement the spec's Open Question (b) calls for in
// place of keying on a raw, reusable OS socket handle.
func (p *Pool) FindByID(id string) (*Connection, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	c, ok := p.byID[id]
	return c, ok
}

// Count returns the number of connections currently in the pool.
func (p *Pool) Count() int {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return len(p.ordered)
}

// Shuffle permutes the pool's iteration order in place (spec §4.4 step 1:
// publish randomizes node order to spread load).
func (p *Pool) Shuffle() {
	p.mu.Lock()
	defer p.mu.Unlock()

	rand.Shuffle(len(p.ordered), func(i, j int) {
		p.ordered[i], p.ordered[j] = p.ordered[j], p.ordered[i]
	})
}

// All returns a snapshot of the pool's connections in current iteration
// order. Mutating the returned slice does not affect the pool.
func (p *Pool) All() []*Connection {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]*Connection, len(p.ordered))
	copy(out, p.ordered)

	return out
}

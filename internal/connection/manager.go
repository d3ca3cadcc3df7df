// SPDX-License-Identifier: MIT
// Copyright © 2024–2026 Alexander Demin

package connection

import "sync"

// manager is the process-global publish-side pool. The source this client
// is modeled on deliberately shares one publisher connection pool across
// every client instance in a process (spec §5 "Shared-resource policy");
// gonsq preserves that, but behind Manager()/ResetManager() so tests can
// isolate themselves instead of leaking connections across test cases.
var (
	managerOnce sync.Once
	managerPool *Pool
	managerMu   sync.Mutex
)

// Manager returns the process-wide publish-side Pool, creating it on first
// use. Every Client in the process that calls PublishTo shares this same
// Pool and therefore the same broker connections by address.
func Manager() *Pool {
	managerMu.Lock()
	defer managerMu.Unlock()

	managerOnce.Do(func() {
		managerPool = NewPool()
	})

	return managerPool
}

// ResetManager discards the process-wide publish pool. It exists for
// tests; production callers never need it.
func ResetManager() {
	managerMu.Lock()
	defer managerMu.Unlock()

	managerOnce = sync.Once{}
	managerPool = nil
}

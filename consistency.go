// SPDX-License-Identifier: MIT
// Copyright © 2024–2026 Alexander Demin

package gonsq

// Consistency selects how many broker nodes must confirm a publish before
// it is considered successful (spec §4.4, §6). QUORUM is a sentinel value
// whose actual required count is computed from the live pool size as
// N/2+1 with integer division (a strict majority: 2 of 3, 3 of 4), not
// from the constant itself.
type Consistency int

const (
	ConsistencyOne     Consistency = 1
	ConsistencyTwo     Consistency = 2
	ConsistencyQuorum  Consistency = 5
)

// requiredFor resolves a Consistency into the number of successful PUBs
// required out of n currently pooled nodes.
func requiredFor(level Consistency, n int) (int, error) {
	switch level {
	case ConsistencyOne:
		return 1, nil
	case ConsistencyTwo:
		return 2, nil
	case ConsistencyQuorum:
		return n/2 + 1, nil
	default:
		return 0, &ConfigurationError{Reason: "invalid consistency level"}
	}
}

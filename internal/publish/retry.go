// SPDX-License-Identifier: MIT
// Copyright © 2024–2026 Alexander Demin

package publish

import "github.com/icyxp/gonsq/internal/connection"

// tryFunc is the retry helper from spec §4.6: invoke f(conn) at most
// tries+1 times, reconnecting unconditionally between attempts (to
// recover from half-open TCP state as well as application-level
// errors), returning on first success or re-raising the last error once
// the budget is exhausted.
func tryFunc(conn *connection.Connection, tries int, f func(*connection.Connection) error) error {
	var lastErr error

	for attempt := 0; attempt <= tries; attempt++ {
		lastErr = f(conn)
		if lastErr == nil {
			return nil
		}

		if err := conn.Reconnect(); err != nil {
			lastErr = err
		}
	}

	return lastErr
}

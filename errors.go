// SPDX-License-Identifier: MIT
// Copyright © 2024–2026 Alexander Demin

package gonsq

import (
	"fmt"

	"github.com/icyxp/gonsq/internal/wire"
)

// Error kinds, each distinct and test-distinguishable per spec §7. They
// follow the teacher's zero-field struct-with-Error()-method shape
// (pkg/adapter/errors.go's ConnClosedError, PublisherClosedError, ...),
// generalized from "closed" conditions to the NSQ client's full error
// taxonomy.

// ProtocolError wraps an unexpected, malformed, or error-tagged frame
// received where the dispatch loop expected a well-formed one.
type ProtocolError struct {
	Conn  string
	Frame *wire.Frame
	Err   error
}

func (e *ProtocolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("gonsq: protocol error on %s: %v", e.Conn, e.Err)
	}
	if e.Frame != nil && e.Frame.IsError() {
		return fmt.Sprintf("gonsq: protocol error on %s: broker returned %q", e.Conn, string(e.Frame.Body))
	}
	return fmt.Sprintf("gonsq: protocol error on %s: unexpected frame", e.Conn)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// PublishError is raised when a publish call's consistency floor is
// missed. It carries the required and achieved success counts and every
// per-node error collected along the way.
type PublishError struct {
	Required int
	Achieved int
	Errors   error // combined via go.uber.org/multierr
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("gonsq: publish failed: required %d, achieved %d: %v", e.Required, e.Achieved, e.Errors)
}

func (e *PublishError) Unwrap() error { return e.Errors }

// LookupError wraps a failure from the configured LookupService.
type LookupError struct {
	Topic string
	Err   error
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("gonsq: lookup failed for topic %q: %v", e.Topic, e.Err)
}

func (e *LookupError) Unwrap() error { return e.Err }

// ConfigurationError signals a caller error: invalid consistency level,
// unachievable consistency, a non-invocable callback, or a subscribe call
// with no LookupService configured.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("gonsq: configuration error: %s", e.Reason)
}

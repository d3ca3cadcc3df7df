// SPDX-License-Identifier: MIT
// Copyright © 2024–2026 Alexander Demin

// Package requeue provides a default RequeueStrategy: exponential
// backoff capped at a maximum delay, dropping a message once it has been
// attempted too many times. Requeue policy is explicitly an external
// collaborator (spec §1, §6) — this package is one concrete
// implementation of that seam.
package requeue

import (
	"time"

	"github.com/icyxp/gonsq"
)

// ExponentialBackoff requeues a failed message with a delay that doubles
// per attempt, capped at Max, and drops the message (returns nil,
// meaning "do not requeue") once Attempts() reaches MaxAttempts. The
// doubling-with-cap shape follows the teacher's own backoff math
// (pkg/adapter/publisherconf.go's firstDelay/maxDelayMask bit trick for
// ConfirmerPublisher retries), expressed here as a left shift of the
// Initial time.Duration clamped to Max rather than a bitmask.
type ExponentialBackoff struct {
	Initial     time.Duration
	Max         time.Duration
	MaxAttempts uint16
}

// NewExponentialBackoff returns a strategy starting at 1s, doubling up
// to a 5-minute cap, dropping messages after 15 attempts — conservative
// defaults suitable for most at-least-once processing pipelines.
func NewExponentialBackoff() *ExponentialBackoff {
	return &ExponentialBackoff{
		Initial:     time.Second,
		Max:         5 * time.Minute,
		MaxAttempts: 15,
	}
}

// ShouldRequeue implements gonsq.RequeueStrategy.
func (e *ExponentialBackoff) ShouldRequeue(msg *gonsq.Message) *time.Duration {
	if msg.Attempts() >= e.MaxAttempts {
		return nil
	}

	delay := e.Initial << (msg.Attempts() - 1)
	if delay > e.Max || delay <= 0 {
		delay = e.Max
	}

	return &delay
}

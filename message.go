// SPDX-License-Identifier: MIT
// Copyright © 2024–2026 Alexander Demin

package gonsq

import (
	"time"

	"github.com/icyxp/gonsq/internal/wire"
)

// Message is an immutable value carrying everything the broker sent with
// a MESSAGE frame. It is built once, by fromFrame, and lives for the
// duration of one callback invocation plus its ack/requeue — a caller
// that retains it past the Handler's return cannot rely on ack/requeue
// semantics any longer (spec §3 "Ownership").
type Message struct {
	id        wire.MessageID
	timestamp int64
	attempts  uint16
	body      []byte
}

// ID returns the message's 16-byte broker-assigned identifier, rendered
// as a string (NSQ ids are already ASCII-safe hex-like bytes on the
// wire, so no further encoding is applied).
func (m *Message) ID() string {
	return m.id.String()
}

// Timestamp returns the broker's send time for this message.
func (m *Message) Timestamp() time.Time {
	return time.Unix(0, m.timestamp)
}

// Attempts returns how many times the broker has now delivered this
// message (starts at 1).
func (m *Message) Attempts() uint16 {
	return m.attempts
}

// Body returns the opaque message payload.
func (m *Message) Body() []byte {
	return m.body
}

func fromFrame(f *wire.Frame) *Message {
	return &Message{
		id:        f.ID,
		timestamp: f.Timestamp,
		attempts:  f.Attempts,
		body:      f.Body,
	}
}

// SPDX-License-Identifier: MIT
// Copyright © 2024–2026 Alexander Demin

// Package wire implements the NSQ TCP frame protocol: the fixed binary
// encoding of inbound frames and outbound commands described by the NSQ
// protocol spec. It has no knowledge of connections, pools, or dispatch —
// only bytes in, bytes out.
package wire

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// Kind tags the three frame types NSQ puts on the wire. Heartbeat is not
// its own wire tag — it is a Response whose payload equals heartbeatBody.
type Kind int32

const (
	KindResponse Kind = 0
	KindError    Kind = 1
	KindMessage  Kind = 2
)

const heartbeatBody = "_heartbeat_"

// MsgIDLength is the fixed size, in bytes, of an NSQ message id.
const MsgIDLength = 16

// MessageID is the broker-assigned identifier carried by every MESSAGE
// frame. It is always exactly MsgIDLength bytes.
type MessageID [MsgIDLength]byte

func (id MessageID) String() string {
	return string(id[:])
}

// Frame is a single decoded inbound frame. For KindMessage, Timestamp,
// Attempts, and ID are populated from the payload header; Body holds the
// remainder. For KindResponse and KindError, Body holds the raw payload
// and the Message fields are zero.
type Frame struct {
	Kind      Kind
	Body      []byte
	Timestamp int64
	Attempts  uint16
	ID        MessageID
}

// IsHeartbeat reports whether f is the Response frame a broker sends in
// lieu of any real traffic, requiring a NOP in reply.
func (f *Frame) IsHeartbeat() bool {
	return f.Kind == KindResponse && string(f.Body) == heartbeatBody
}

// IsResponse reports whether f is a Response frame whose payload equals text.
func (f *Frame) IsResponse(text string) bool {
	return f.Kind == KindResponse && string(f.Body) == text
}

// IsOK reports whether f is the Response("OK") frame the broker sends to
// acknowledge SUB, PUB, IDENTIFY (without negotiation), and RDY.
func (f *Frame) IsOK() bool {
	return f.IsResponse("OK")
}

// IsMessage reports whether f carries an application message.
func (f *Frame) IsMessage() bool {
	return f.Kind == KindMessage
}

// IsError reports whether f is an Error frame.
func (f *Frame) IsError() bool {
	return f.Kind == KindError
}

// Decode reads exactly one frame from r, blocking until the full frame
// has arrived or r returns an error. Every byte Decode consumes belongs
// to the frame it returns or to the error it reports — callers must
// never call Decode against a reader whose deadline can expire mid-frame,
// since there is no way to resume a partially consumed frame afterward.
func Decode(r io.Reader) (*Frame, error) {
	var header [8]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, fmt.Errorf("wire: read frame header: %w", err)
	}

	size := binary.BigEndian.Uint32(header[0:4])
	kind := Kind(binary.BigEndian.Uint32(header[4:8]))

	if size < 4 {
		return nil, fmt.Errorf("wire: invalid frame size %d", size)
	}

	payload := make([]byte, size-4)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("wire: read frame payload: %w", err)
	}

	return decodeBody(kind, payload)
}

func decodeBody(kind Kind, payload []byte) (*Frame, error) {
	f := &Frame{Kind: kind}

	switch kind {
	case KindResponse, KindError:
		f.Body = payload
	case KindMessage:
		if len(payload) < 8+2+MsgIDLength {
			return nil, fmt.Errorf("wire: message frame too short: %d bytes", len(payload))
		}

		f.Timestamp = int64(binary.BigEndian.Uint64(payload[0:8]))
		f.Attempts = binary.BigEndian.Uint16(payload[8:10])
		copy(f.ID[:], payload[10:10+MsgIDLength])
		f.Body = payload[10+MsgIDLength:]
	default:
		return nil, fmt.Errorf("wire: unknown frame type %d", kind)
	}

	return f, nil
}

// Encode renders a decoded frame back into its exact wire bytes. It is the
// inverse of Decode and exists primarily so the round-trip law
// (encode(decode(b)) == b) is a property the codec can be tested against.
func Encode(f *Frame) []byte {
	var payload []byte

	switch f.Kind {
	case KindResponse, KindError:
		payload = f.Body
	case KindMessage:
		payload = make([]byte, 0, 8+2+MsgIDLength+len(f.Body))
		var ts [8]byte
		binary.BigEndian.PutUint64(ts[:], uint64(f.Timestamp))
		payload = append(payload, ts[:]...)
		var at [2]byte
		binary.BigEndian.PutUint16(at[:], f.Attempts)
		payload = append(payload, at[:]...)
		payload = append(payload, f.ID[:]...)
		payload = append(payload, f.Body...)
	}

	buf := new(bytes.Buffer)
	var header [8]byte
	binary.BigEndian.PutUint32(header[0:4], uint32(len(payload)+4))
	binary.BigEndian.PutUint32(header[4:8], uint32(f.Kind))
	buf.Write(header[:])
	buf.Write(payload)

	return buf.Bytes()
}

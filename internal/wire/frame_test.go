// SPDX-License-Identifier: MIT
// Copyright © 2024–2026 Alexander Demin

package wire

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeResponseFrame(t *testing.T) {
	raw := Encode(&Frame{Kind: KindResponse, Body: []byte("OK")})

	f, err := Decode(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.True(t, f.IsResponse("OK"))
	assert.True(t, f.IsOK())
	assert.False(t, f.IsHeartbeat())
	assert.False(t, f.IsMessage())
	assert.False(t, f.IsError())
}

func TestDecodeHeartbeat(t *testing.T) {
	raw := Encode(&Frame{Kind: KindResponse, Body: []byte(heartbeatBody)})

	f, err := Decode(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.True(t, f.IsHeartbeat())
	assert.False(t, f.IsOK())
}

func TestDecodeErrorFrame(t *testing.T) {
	raw := Encode(&Frame{Kind: KindError, Body: []byte("E_BAD_TOPIC")})

	f, err := Decode(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.True(t, f.IsError())
	assert.Equal(t, "E_BAD_TOPIC", string(f.Body))
}

func TestDecodeMessageFrame(t *testing.T) {
	var id MessageID
	copy(id[:], "0123456789abcdef")

	want := &Frame{
		Kind:      KindMessage,
		Timestamp: 1234567890,
		Attempts:  3,
		ID:        id,
		Body:      []byte("hello world"),
	}

	raw := Encode(want)

	got, err := Decode(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, want.Timestamp, got.Timestamp)
	assert.Equal(t, want.Attempts, got.Attempts)
	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, want.Body, got.Body)
	assert.True(t, got.IsMessage())
}

func TestRoundTripEncodeDecode(t *testing.T) {
	var id MessageID
	copy(id[:], "fedcba9876543210")

	frames := []*Frame{
		{Kind: KindResponse, Body: []byte("OK")},
		{Kind: KindResponse, Body: []byte(heartbeatBody)},
		{Kind: KindError, Body: []byte("E_INVALID")},
		{Kind: KindMessage, Timestamp: 42, Attempts: 1, ID: id, Body: []byte("payload")},
	}

	for _, f := range frames {
		raw := Encode(f)
		got, err := Decode(bytes.NewReader(raw))
		require.NoError(t, err)
		assert.Equal(t, Encode(got), raw)
	}
}

func TestDecodeMessageFrameTooShort(t *testing.T) {
	raw := Encode(&Frame{Kind: KindMessage, Body: nil})
	// corrupt: cut the frame off 4 bytes into its payload while the size
	// header still announces the full 26-byte message header, so Decode
	// hits EOF before the message payload is complete.
	raw = raw[:8+4]

	_, err := Decode(bytes.NewReader(raw))
	assert.Error(t, err)
}

func TestDecodeUnknownFrameType(t *testing.T) {
	raw := Encode(&Frame{Kind: KindResponse, Body: []byte("x")})
	raw[7] = 9 // mangle the frame-type tag to an unknown value

	_, err := Decode(bytes.NewReader(raw))
	assert.Error(t, err)
}

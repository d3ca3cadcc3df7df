// SPDX-License-Identifier: MIT
// Copyright © 2024–2026 Alexander Demin

package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCommandEncoders(t *testing.T) {
	var id MessageID
	copy(id[:], "0123456789abcdef")

	assert.Equal(t, []byte("  V2"), []byte(Magic))
	assert.Equal(t, []byte("SUB topic channel\n"), Sub("topic", "channel"))
	assert.Equal(t, []byte("RDY 1\n"), Rdy(1))
	assert.Equal(t, []byte("FIN 0123456789abcdef\n"), Fin(id))
	assert.Equal(t, []byte("REQ 0123456789abcdef 500\n"), Req(id, 500))
	assert.Equal(t, []byte("NOP\n"), Nop())
	assert.Equal(t, []byte("CLS\n"), Cls())
}

func TestPubCommand(t *testing.T) {
	got := Pub("t", []byte("hello"))
	want := append([]byte("PUB t\n\x00\x00\x00\x05"), []byte("hello")...)
	assert.Equal(t, want, got)
}

func TestIdentifyCommand(t *testing.T) {
	params := []byte(`{"client_id":"x"}`)
	got := Identify(params)

	assert.Equal(t, byte(0), got[9])
	assert.Equal(t, byte(0), got[10])
	assert.Equal(t, byte(0), got[11])
	assert.Equal(t, byte(len(params)), got[12])
	assert.Equal(t, params, got[13:])
}

// SPDX-License-Identifier: MIT
// Copyright © 2024–2026 Alexander Demin

package connection

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/icyxp/gonsq/internal/wire"
)

// fakeBroker accepts one connection and lets the test script bytes back
// and forth, standing in for a real nsqd the way the teacher's own
// integration test (pkg/adapter/rabbit_test.go) stands in for a real
// RabbitMQ broker behind an env-var gate — but here fully in-process, so
// it runs unconditionally.
func fakeBroker(t *testing.T) (addr string, accept func() net.Conn) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	t.Cleanup(func() { ln.Close() })

	connCh := make(chan net.Conn, 1)
	go func() {
		c, err := ln.Accept()
		if err == nil {
			connCh <- c
		}
	}()

	return ln.Addr().String(), func() net.Conn {
		select {
		case c := <-connCh:
			return c
		case <-time.After(2 * time.Second):
			t.Fatal("fakeBroker: no connection accepted in time")
			return nil
		}
	}
}

func TestConnectionSendsMagicOnConnect(t *testing.T) {
	addr, accept := fakeBroker(t)

	var gotMagic string
	c, err := New(addr, Options{
		OnConnect: func(c *Connection) error {
			return c.Write([]byte(wire.Magic))
		},
	})
	require.NoError(t, err)
	defer c.Close()

	server := accept()
	defer server.Close()

	buf := make([]byte, len(wire.Magic))
	_, err = server.Read(buf)
	require.NoError(t, err)
	gotMagic = string(buf)

	assert.Equal(t, wire.Magic, gotMagic)
}

func TestConnectionReadFrameWaitsForFullFrame(t *testing.T) {
	addr, accept := fakeBroker(t)

	c, err := New(addr, Options{ReadWaitTimeout: time.Second})
	require.NoError(t, err)
	defer c.Close()

	server := accept()
	defer server.Close()

	encoded := wire.Encode(&wire.Frame{Kind: wire.KindResponse, Body: []byte("OK")})

	// Write the frame in two halves, with a pause in between, to
	// demonstrate ReadFrame does not time out or desync when a frame
	// arrives split across multiple TCP segments.
	go func() {
		server.Write(encoded[:len(encoded)/2])
		time.Sleep(20 * time.Millisecond)
		server.Write(encoded[len(encoded)/2:])
	}()

	f, err := c.ReadFrame()
	require.NoError(t, err)
	assert.True(t, f.IsOK())
}

func TestConnectionReadFrameTimesOutOnSilence(t *testing.T) {
	addr, accept := fakeBroker(t)

	c, err := New(addr, Options{ReadWaitTimeout: 20 * time.Millisecond})
	require.NoError(t, err)
	defer c.Close()

	server := accept()
	defer server.Close()

	_, err = c.ReadFrame()
	assert.Error(t, err)
}

func TestConnectionInterruptUnblocksReadFrame(t *testing.T) {
	addr, accept := fakeBroker(t)

	c, err := New(addr, Options{ReadWaitTimeout: 10 * time.Second})
	require.NoError(t, err)
	defer c.Close()

	server := accept()
	defer server.Close()

	done := make(chan error, 1)
	go func() {
		_, err := c.ReadFrame()
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	c.Interrupt()

	select {
	case err := <-done:
		assert.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Interrupt did not unblock ReadFrame")
	}
}

func TestConnectionCloseIsIdempotent(t *testing.T) {
	addr, accept := fakeBroker(t)

	c, err := New(addr, Options{})
	require.NoError(t, err)

	server := accept()
	defer server.Close()

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
	assert.True(t, c.Closed())
}

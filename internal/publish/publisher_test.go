// SPDX-License-Identifier: MIT
// Copyright © 2024–2026 Alexander Demin

package publish

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/icyxp/gonsq/internal/connection"
	"github.com/icyxp/gonsq/internal/wire"
)

// scriptedBroker accepts connections and runs a fixed response script
// per accepted connection: the i-th connection (counting reconnects) is
// handled by responses[i], and every connection after the last entry is
// handled by the last entry again. It stands
// in for a real nsqd the way the teacher's fakes stand in for RabbitMQ.
type scriptedBroker struct {
	ln net.Listener
}

func newScriptedBroker(t *testing.T, responses ...func(net.Conn)) *scriptedBroker {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	b := &scriptedBroker{ln: ln}

	go func() {
		i := 0
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}

			idx := i
			if idx >= len(responses) {
				idx = len(responses) - 1
			}
			i++

			go func(c net.Conn, respond func(net.Conn)) {
				buf := make([]byte, 4)
				io := c
				_, _ = io.Read(buf) // magic
				respond(c)
			}(conn, responses[idx])
		}
	}()

	t.Cleanup(func() { ln.Close() })

	return b
}

func (b *scriptedBroker) addr() string { return b.ln.Addr().String() }

func okOnPub(c net.Conn) {
	readPub(c)
	c.Write(wire.Encode(&wire.Frame{Kind: wire.KindResponse, Body: []byte("OK")}))
}

func heartbeatThenOK(c net.Conn) {
	readPub(c)
	c.Write(wire.Encode(&wire.Frame{Kind: wire.KindResponse, Body: []byte("_heartbeat_")}))
	buf := make([]byte, 4) // NOP\n
	c.Read(buf)
	c.Write(wire.Encode(&wire.Frame{Kind: wire.KindResponse, Body: []byte("OK")}))
}

func alwaysError(c net.Conn) {
	for {
		if !readPub(c) {
			return
		}
		c.Write(wire.Encode(&wire.Frame{Kind: wire.KindError, Body: []byte("E_BAD")}))
	}
}

// readPub drains one PUB command + body off the wire. Returns false on
// read failure (peer closed).
func readPub(c net.Conn) bool {
	line := make([]byte, 0, 64)
	b := make([]byte, 1)
	for {
		if _, err := c.Read(b); err != nil {
			return false
		}
		line = append(line, b[0])
		if b[0] == '\n' {
			break
		}
	}

	sizeBuf := make([]byte, 4)
	if _, err := c.Read(sizeBuf); err != nil {
		return false
	}

	size := int(sizeBuf[0])<<24 | int(sizeBuf[1])<<16 | int(sizeBuf[2])<<8 | int(sizeBuf[3])
	body := make([]byte, size)
	_, err := c.Read(body)
	return err == nil
}

func TestPublishOneNodeSuccess(t *testing.T) {
	b := newScriptedBroker(t, okOnPub)

	pool := connection.NewPool()
	p := New(pool, connection.Options{ConnectTimeout: time.Second, ReadWaitTimeout: time.Second}, nil)

	require.NoError(t, p.EnsureNodes([]string{b.addr()}))

	success, err := p.Publish("t", []byte("hello"), 1)
	assert.NoError(t, err)
	assert.Equal(t, 1, success)
}

func TestPublishHeartbeatBeforeOK(t *testing.T) {
	b := newScriptedBroker(t, heartbeatThenOK)

	pool := connection.NewPool()
	p := New(pool, connection.Options{ConnectTimeout: time.Second, ReadWaitTimeout: time.Second}, nil)

	require.NoError(t, p.EnsureNodes([]string{b.addr()}))

	success, err := p.Publish("t", []byte("hello"), 1)
	assert.NoError(t, err)
	assert.Equal(t, 1, success)
}

func TestPublishQuorumTwoOfThree(t *testing.T) {
	b1 := newScriptedBroker(t, okOnPub)
	b2 := newScriptedBroker(t, okOnPub)
	b3 := newScriptedBroker(t, alwaysError)

	pool := connection.NewPool()
	p := New(pool, connection.Options{ConnectTimeout: time.Second, ReadWaitTimeout: time.Second}, nil)

	require.NoError(t, p.EnsureNodes([]string{b1.addr(), b2.addr(), b3.addr()}))

	success, err := p.Publish("t", []byte("hello"), 2)
	assert.NoError(t, err)
	assert.GreaterOrEqual(t, success, 2)
}

func TestPublishAllFail(t *testing.T) {
	b1 := newScriptedBroker(t, alwaysError)
	b2 := newScriptedBroker(t, alwaysError)

	pool := connection.NewPool()
	p := New(pool, connection.Options{ConnectTimeout: time.Second, ReadWaitTimeout: time.Second}, nil)

	require.NoError(t, p.EnsureNodes([]string{b1.addr(), b2.addr()}))

	success, err := p.Publish("t", []byte("hello"), 2)
	assert.Error(t, err)
	assert.Equal(t, 0, success)
}

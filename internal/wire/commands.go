// SPDX-License-Identifier: MIT
// Copyright © 2024–2026 Alexander Demin

package wire

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Magic is the fixed byte sequence a client must send as the very first
// bytes of every new connection, and again immediately after a reconnect,
// before any other command.
const Magic = "  V2"

// Identify renders the IDENTIFY command: the literal "IDENTIFY\n" followed
// by a 4-byte big-endian length and the JSON-encoded parameter object.
func Identify(params []byte) []byte {
	buf := new(bytes.Buffer)
	buf.WriteString("IDENTIFY\n")

	var size [4]byte
	binary.BigEndian.PutUint32(size[:], uint32(len(params)))
	buf.Write(size[:])
	buf.Write(params)

	return buf.Bytes()
}

// Sub renders SUB <topic> <channel>\n.
func Sub(topic, channel string) []byte {
	return []byte(fmt.Sprintf("SUB %s %s\n", topic, channel))
}

// Pub renders PUB <topic>\n followed by the 4-byte big-endian body length
// and the body itself.
func Pub(topic string, body []byte) []byte {
	buf := new(bytes.Buffer)
	buf.WriteString(fmt.Sprintf("PUB %s\n", topic))

	var size [4]byte
	binary.BigEndian.PutUint32(size[:], uint32(len(body)))
	buf.Write(size[:])
	buf.Write(body)

	return buf.Bytes()
}

// Rdy renders RDY <n>\n.
func Rdy(n int) []byte {
	return []byte(fmt.Sprintf("RDY %d\n", n))
}

// Fin renders FIN <message-id>\n.
func Fin(id MessageID) []byte {
	return []byte(fmt.Sprintf("FIN %s\n", id))
}

// Req renders REQ <message-id> <delay-ms>\n.
func Req(id MessageID, delayMs int64) []byte {
	return []byte(fmt.Sprintf("REQ %s %d\n", id, delayMs))
}

// Nop renders NOP\n.
func Nop() []byte {
	return []byte("NOP\n")
}

// Cls renders CLS\n.
func Cls() []byte {
	return []byte("CLS\n")
}

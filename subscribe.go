// SPDX-License-Identifier: MIT
// Copyright © 2024–2026 Alexander Demin

package gonsq

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/icyxp/gonsq/internal/connection"
	"github.com/icyxp/gonsq/internal/wire"
)

// topicChannelPattern matches the NSQ naming rule from spec §3.
var topicChannelPattern = regexp.MustCompile(`^[.a-zA-Z0-9_-]{2,32}$`)

// Subscribe discovers the broker endpoints currently serving topic (via
// the configured LookupService, called exactly once per spec §4.5), opens
// one connection per endpoint, and starts a per-connection dispatch
// goroutine enforcing the RDY-1 discipline.
//
// Per spec §5, a single-threaded cooperative event loop is the source's
// scheduling model; this client instead gives each connection its own
// goroutine, reading strictly serially (one message in flight, exactly
// as RDY-1 enforces) — the alternative the spec itself sanctions for
// languages with native threads ("a per-connection actor/goroutine
// reading sequentially is acceptable").
func (c *Client) Subscribe(topic, channel string, handler Handler) error {
	if c.cfg.Lookup == nil {
		return &ConfigurationError{Reason: "missing lookup service"}
	}
	if handler == nil {
		return &ConfigurationError{Reason: "invalid callback"}
	}
	if !topicChannelPattern.MatchString(topic) {
		return &ConfigurationError{Reason: fmt.Sprintf("invalid topic name %q", topic)}
	}
	if !topicChannelPattern.MatchString(channel) {
		return &ConfigurationError{Reason: fmt.Sprintf("invalid channel name %q", channel)}
	}

	hosts, err := c.cfg.Lookup.LookupHosts(topic)
	if err != nil {
		return &LookupError{Topic: topic, Err: err}
	}

	for _, addr := range hosts {
		if err := c.addSubscription(addr, topic, channel, handler); err != nil {
			return err
		}
	}

	return nil
}

func (c *Client) addSubscription(addr, topic, channel string, handler Handler) error {
	identifyPayload, err := json.Marshal(c.cfg.Identify)
	if err != nil {
		return fmt.Errorf("gonsq: encode identify payload: %w", err)
	}

	opts := connection.Options{
		ConnectTimeout:   c.cfg.ConnectionTimeout,
		ReadWriteTimeout: c.cfg.ReadWriteTimeout,
		ReadWaitTimeout:  subscribeReadWaitTimeout(c.cfg),
		OnConnect: func(conn *connection.Connection) error {
			if err := conn.Write([]byte(wire.Magic)); err != nil {
				return err
			}
			return conn.Write(wire.Identify(identifyPayload))
		},
	}

	conn, err := connection.New(addr, opts)
	if err != nil {
		return err
	}

	// Only register conn once SUB/RDY have succeeded — a connection added
	// to subPool before then, with no dispatchLoop ever started, would sit
	// there unread and unclosed until Client.Close happened to sweep it.
	if err := conn.Write(wire.Sub(topic, channel)); err != nil {
		conn.Close()
		return err
	}
	if err := conn.Write(wire.Rdy(1)); err != nil {
		conn.Close()
		return err
	}

	c.subPool.Add(conn)

	c.wg.Add(1)
	go c.dispatchLoop(conn, topic, channel, handler)

	return nil
}

// subscribeReadWaitTimeout bounds ReadFrame on a subscribe-side
// connection. It must exceed the broker's configured heartbeat interval
// with margin, or ReadFrame would time out — and surface as a spurious
// SocketError — between two perfectly healthy heartbeats.
func subscribeReadWaitTimeout(cfg Config) time.Duration {
	heartbeat := time.Duration(cfg.Identify.HeartbeatInterval) * time.Millisecond

	readWait := cfg.ReadWaitTimeout
	if margin := heartbeat * 2; margin > readWait {
		readWait = margin
	}

	return readWait
}

// dispatchLoop is the per-connection protocol handler: it reads one
// frame at a time and dispatches by kind, per spec §4.5. It exits when
// the Client is stopped or the connection hits a transport/protocol
// failure it cannot recover from.
//
// A blocking ReadFrame can't itself poll c.ctx, so a watcher goroutine
// calls conn.Interrupt once the Client is stopped, unblocking whichever
// ReadFrame call is in flight; the loop then finds ctx already done and
// returns instead of treating the resulting timeout as a real failure.
func (c *Client) dispatchLoop(conn *connection.Connection, topic, channel string, handler Handler) {
	defer c.wg.Done()

	stopWatch := make(chan struct{})
	defer close(stopWatch)
	go func() {
		select {
		case <-c.ctx.Done():
			conn.Interrupt()
		case <-stopWatch:
		}
	}()

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		f, err := conn.ReadFrame()
		if err != nil {
			select {
			case <-c.ctx.Done():
				return
			default:
			}

			c.reportError(fmt.Errorf("gonsq: connection %s: %w", conn.Addr, err))
			return
		}

		switch {
		case f.IsHeartbeat():
			if err := conn.Write(wire.Nop()); err != nil {
				c.reportError(fmt.Errorf("gonsq: connection %s: nop reply: %w", conn.Addr, err))
				return
			}
		case f.IsOK():
			c.cfg.Logger.Debug(fmt.Sprintf("gonsq: ok response on %s", conn.Addr))
		case f.IsMessage():
			c.handleMessage(conn, topic, channel, handler, f)
		default:
			protoErr := &ProtocolError{Conn: conn.Addr, Frame: f}
			c.reportError(protoErr)
			return
		}
	}
}

// handleMessage runs the message pipeline from spec §4.5: dedup check,
// callback invocation, and ack/requeue — exactly one of FIN/REQ per
// message, always followed by RDY 1.
func (c *Client) handleMessage(conn *connection.Connection, topic, channel string, handler Handler, f *wire.Frame) {
	msg := fromFrame(f)

	if c.cfg.Dedupe != nil {
		seen, err := c.cfg.Dedupe.ContainsAndAdd(topic, channel, msg)
		if err != nil {
			c.cfg.Logger.Warn(fmt.Sprintf("gonsq: dedupe check failed for %s: %v", msg.ID(), err))
		} else if seen {
			c.cfg.Logger.Info(fmt.Sprintf("gonsq: deduplicating message %s", msg.ID()))
			c.finAndReady(conn, msg)
			return
		}
	}

	err := handler(msg)
	if err == nil {
		c.finAndReady(conn, msg)
		return
	}

	var expired ExpiredMessage
	if errors.As(err, &expired) {
		c.cfg.Logger.Info(fmt.Sprintf("gonsq: message %s expired", msg.ID()))
		c.finAndReady(conn, msg)
		return
	}

	var rq RequeueMessage
	if errors.As(err, &rq) {
		c.eraseDedupe(topic, channel, msg)
		c.requeue(conn, msg, rq.Delay)
		return
	}

	c.cfg.Logger.Warn(fmt.Sprintf("gonsq: handler failed for %s: %v", msg.ID(), err))
	c.eraseDedupe(topic, channel, msg)

	if c.cfg.RequeueStrategy != nil {
		if delay := c.cfg.RequeueStrategy.ShouldRequeue(msg); delay != nil {
			c.requeue(conn, msg, *delay)
			return
		}
	}

	c.cfg.Logger.Debug(fmt.Sprintf("gonsq: not requeuing message %s", msg.ID()))
	c.finAndReady(conn, msg)
}

func (c *Client) eraseDedupe(topic, channel string, msg *Message) {
	if c.cfg.Dedupe == nil {
		return
	}

	if err := c.cfg.Dedupe.Erase(topic, channel, msg); err != nil {
		c.cfg.Logger.Warn(fmt.Sprintf("gonsq: dedupe erase failed for %s: %v", msg.ID(), err))
	}
}

func (c *Client) finAndReady(conn *connection.Connection, msg *Message) {
	if err := conn.Write(wire.Fin(msg.id)); err != nil {
		c.reportError(fmt.Errorf("gonsq: connection %s: fin: %w", conn.Addr, err))
		return
	}
	if err := conn.Write(wire.Rdy(1)); err != nil {
		c.reportError(fmt.Errorf("gonsq: connection %s: rdy: %w", conn.Addr, err))
	}
}

func (c *Client) requeue(conn *connection.Connection, msg *Message, delay time.Duration) {
	if delay < 0 {
		delay = 0
	}

	if err := conn.Write(wire.Req(msg.id, delay.Milliseconds())); err != nil {
		c.reportError(fmt.Errorf("gonsq: connection %s: req: %w", conn.Addr, err))
		return
	}
	if err := conn.Write(wire.Rdy(1)); err != nil {
		c.reportError(fmt.Errorf("gonsq: connection %s: rdy: %w", conn.Addr, err))
	}
}

// reportError records the first protocol/transport-level error a
// dispatch loop could not recover from, for Run to surface once every
// subscription goroutine has exited (spec §7: "surfaces protocol-level
// errors as ProtocolError out of the event loop").
func (c *Client) reportError(err error) {
	c.cfg.Logger.Warn(err.Error())

	c.mu.Lock()
	if c.lastErr == nil {
		c.lastErr = err
	}
	c.mu.Unlock()
}

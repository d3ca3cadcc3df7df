// SPDX-License-Identifier: MIT
// Copyright © 2024–2026 Alexander Demin

// Package publish implements the fan-out publish path: given a pool of
// broker connections and a required-success count, it writes PUB frames
// to each node in turn, retries per node, and stops once the consistency
// floor is met. It generalizes the teacher's pkg/adapter/publisher.go
// (one AMQP channel, one exchange/routing key) to many interchangeable
// NSQ broker connections with a tunable success requirement.
package publish

import (
	"fmt"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/multierr"

	"github.com/icyxp/gonsq/internal/connection"
	"github.com/icyxp/gonsq/internal/wire"
)

// Logger is the minimal sink Publisher reports through. It is satisfied
// structurally by the root package's Logger interface without either
// package importing the other.
type Logger interface {
	Debug(string)
	Info(string)
	Warn(string)
}

type nopLogger struct{}

func (nopLogger) Debug(string) {}
func (nopLogger) Info(string)  {}
func (nopLogger) Warn(string)  {}

// Publisher fans a publish out across a connection.Pool with per-node
// retry, stopping as soon as the required success count is reached
// (spec §4.4).
type Publisher struct {
	pool   *connection.Pool
	opts   connection.Options
	logger Logger
}

// New returns a Publisher writing through pool, dialing new nodes (via
// EnsureNodes) with opts, and reporting through logger. A nil logger is
// replaced with a no-op.
func New(pool *connection.Pool, opts connection.Options, logger Logger) *Publisher {
	if logger == nil {
		logger = nopLogger{}
	}

	return &Publisher{pool: pool, opts: opts, logger: logger}
}

// EnsureNodes dials and adds to the pool every address not already
// present, each with the on-connect hook that sends MAGIC (spec §4.4
// step 1: "For each address not already in the singleton pool...").
func (p *Publisher) EnsureNodes(addrs []string) error {
	for _, addr := range addrs {
		if _, ok := p.pool.FindByAddr(addr); ok {
			continue
		}

		opts := p.opts
		opts.OnConnect = func(c *connection.Connection) error {
			return c.Write([]byte(wire.Magic))
		}

		conn, err := connection.New(addr, opts)
		if err != nil {
			return err
		}

		p.pool.Add(conn)
	}

	return nil
}

// Publish shuffles the pool to spread load, then writes topic/body to
// nodes in turn — each attempt run under the retry helper (retry.go) —
// stopping as soon as success reaches required. It returns the number of
// nodes that confirmed OK and, when that number falls short of required,
// the combined per-node error list; once required is reached the error is
// nil even if some nodes failed along the way.
func (p *Publisher) Publish(topic string, body []byte, required int) (int, error) {
	p.pool.Shuffle()

	var (
		success int
		errs    error
	)

	for _, conn := range p.pool.All() {
		if success >= required {
			break
		}

		err := tryFunc(conn, 2, func(c *connection.Connection) error {
			return publishOnce(c, topic, body, p.logger)
		})
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", conn.Addr, err))
			continue
		}

		success++
	}

	if success >= required {
		return success, nil
	}

	return success, errs
}

// publishOnce writes one PUB command and consumes frames until an OK or
// an Error arrives, replying NOP to any heartbeats along the way (spec
// §4.4 step 3).
func publishOnce(c *connection.Connection, topic string, body []byte, logger Logger) error {
	logger.Debug(fmt.Sprintf("publish: %d bytes (%s) to topic %q via %s", len(body), mimetype.Detect(body).String(), topic, c.Addr))

	if err := c.Write(wire.Pub(topic, body)); err != nil {
		return err
	}

	for {
		f, err := c.ReadFrame()
		if err != nil {
			return err
		}

		if f.IsHeartbeat() {
			if err := c.Write(wire.Nop()); err != nil {
				return err
			}
			continue
		}

		if f.IsOK() {
			return nil
		}

		if f.IsError() {
			return fmt.Errorf("broker returned %s", string(f.Body))
		}

		return fmt.Errorf("unexpected frame kind %d", f.Kind)
	}
}

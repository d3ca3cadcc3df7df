// SPDX-License-Identifier: MIT
// Copyright © 2024–2026 Alexander Demin

// Package gonsq is a client library for an NSQ-style distributed message
// broker: publish to one or more broker nodes with tunable
// write-consistency, and subscribe to topic/channel pairs across a
// dynamically discovered set of broker nodes, dispatching each received
// message to a user callback with explicit acknowledgement, requeue, and
// deduplication semantics.
//
// Broker discovery, deduplication, and requeue policy are external
// collaborators the Client consumes through the LookupService,
// DedupeService, and RequeueStrategy interfaces — gonsq does not
// implement a broker, persist messages, route between brokers, or
// preserve cross-broker ordering.
package gonsq

import (
	"context"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/icyxp/gonsq/internal/connection"
	"github.com/icyxp/gonsq/internal/publish"
)

const defaultPort = "4150"

// Client wires the Frame Codec, Connection Pool, Publisher, and
// subscription dispatch loop together (spec §4.7). Zero value is not
// usable; construct with New.
type Client struct {
	cfg Config

	subPool *connection.Pool

	mu              sync.Mutex
	publisher       *publish.Publisher
	publishRequired int

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	lastErr error
}

// New constructs a Client. The publish-side connection pool is a
// process-global singleton (connection.Manager) obtained lazily on the
// first PublishTo call; the subscribe-side pool below is private to this
// Client, per spec §3 "Ownership".
func New(opts ...ClientOption) *Client {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Client{
		cfg:     cfg,
		subPool: connection.NewPool(),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// parseHosts accepts either a single comma-separated string or a slice of
// host strings, defaulting a missing port to 4150 (spec §3
// "BrokerAddress").
func parseHosts(hosts any) ([]string, error) {
	var raw []string

	switch v := hosts.(type) {
	case string:
		for _, h := range strings.Split(v, ",") {
			h = strings.TrimSpace(h)
			if h != "" {
				raw = append(raw, h)
			}
		}
	case []string:
		raw = append(raw, v...)
	default:
		return nil, &ConfigurationError{Reason: fmt.Sprintf("unsupported hosts type %T", hosts)}
	}

	if len(raw) == 0 {
		return nil, &ConfigurationError{Reason: "no hosts provided"}
	}

	out := make([]string, 0, len(raw))
	for _, h := range raw {
		out = append(out, withDefaultPort(h))
	}

	return out, nil
}

func withDefaultPort(addr string) string {
	if _, _, err := splitHostPort(addr); err == nil {
		return addr
	}
	if ip := net.ParseIP(addr); ip != nil && ip.To4() == nil {
		return "[" + addr + "]:" + defaultPort
	}
	return addr + ":" + defaultPort
}

// splitHostPort reports whether addr already carries an explicit port,
// deferring to net.SplitHostPort so bracketed and bare IPv6 hosts (e.g.
// "::1") are parsed correctly instead of split on the wrong colon.
func splitHostPort(addr string) (host, port string, err error) {
	host, port, err = net.SplitHostPort(addr)
	if err == nil {
		return host, port, nil
	}

	if net.ParseIP(addr) != nil {
		return "", "", fmt.Errorf("no port")
	}

	return "", "", err
}

// PublishTo configures the publish plan (spec §4.4): it parses hosts,
// dials and pools any not already present in the process-global publish
// pool, and resolves the consistency level into a required success
// count against the pool's current size.
func (c *Client) PublishTo(hosts any, level Consistency) error {
	addrs, err := parseHosts(hosts)
	if err != nil {
		return err
	}

	pool := connection.Manager()

	c.mu.Lock()
	if c.publisher == nil {
		c.publisher = publish.New(pool, connection.Options{
			ConnectTimeout:   c.cfg.ConnectionTimeout,
			ReadWriteTimeout: c.cfg.ReadWriteTimeout,
			ReadWaitTimeout:  c.cfg.ReadWaitTimeout,
		}, publisherLoggerAdapter{c.cfg.Logger})
	}
	pub := c.publisher
	c.mu.Unlock()

	if err := pub.EnsureNodes(addrs); err != nil {
		return err
	}

	n := pool.Count()

	required, err := requiredFor(level, n)
	if err != nil {
		return err
	}

	if required > n {
		return &ConfigurationError{Reason: fmt.Sprintf("cannot achieve desired consistency with %d nodes", n)}
	}

	c.mu.Lock()
	c.publishRequired = required
	c.mu.Unlock()

	return nil
}

// Publish writes message to the plan configured by PublishTo, retrying
// per node, and fails with PublishError only if fewer than the required
// number of nodes confirmed OK (spec §4.4 steps 2-5).
func (c *Client) Publish(topic string, message []byte) error {
	c.mu.Lock()
	pub := c.publisher
	required := c.publishRequired
	c.mu.Unlock()

	if pub == nil {
		return &ConfigurationError{Reason: "PublishTo must be called before Publish"}
	}

	success, errs := pub.Publish(topic, message, required)
	if success < required {
		return &PublishError{Required: required, Achieved: success, Errors: errs}
	}

	return nil
}

// Run drives the subscription dispatch loop until Stop is called or, if
// timeout is positive, until timeout elapses — at which point Stop is
// called automatically (spec §4.7). It returns the first unrecovered
// protocol/transport error any subscription's dispatch loop surfaced, or
// nil if the run ended cleanly.
func (c *Client) Run(timeout time.Duration) error {
	if timeout > 0 {
		go func() {
			select {
			case <-time.After(timeout):
				c.Stop()
			case <-c.ctx.Done():
			}
		}()
	}

	<-c.ctx.Done()
	c.wg.Wait()

	c.mu.Lock()
	defer c.mu.Unlock()

	return c.lastErr
}

// Stop halts the dispatch loop but does not close any socket (spec
// §4.7, §5). It is safe to call more than once.
func (c *Client) Stop() {
	c.cancel()
}

// Close sends CLS to every subscribe-side connection, fire-and-forget,
// and closes their sockets. Go has no destructors, so Close stands in
// for the source's __destruct (spec §9 Open Question (c)): the CLS write
// is not waited on for a reply.
func (c *Client) Close() error {
	c.Stop()

	var firstErr error
	for _, conn := range c.subPool.All() {
		if err := conn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}

// publisherLoggerAdapter lets internal/publish report through the
// public Logger interface without that package importing this one.
type publisherLoggerAdapter struct{ Logger }

// SPDX-License-Identifier: MIT
// Copyright © 2024–2026 Alexander Demin

package gonsq

import (
	"os"
	"time"

	"github.com/google/uuid"
)

// IdentifyConfig is the JSON-encoded parameter object sent with the
// IDENTIFY command (spec §4.1, §4.5). Its field set follows the shape
// documented for nsq.Config in the pack's reference client
// (other_examples/youzan-go-nsq__doc.go) — client_id/hostname/user_agent
// identification plus the heartbeat interval the broker should use on
// this connection.
type IdentifyConfig struct {
	ClientID          string `json:"client_id"`
	Hostname          string `json:"hostname"`
	UserAgent         string `json:"user_agent"`
	HeartbeatInterval int64  `json:"heartbeat_interval"` // milliseconds
	FeatureNegotiation bool  `json:"feature_negotiation"`
}

func defaultIdentifyConfig() IdentifyConfig {
	host, _ := os.Hostname()

	return IdentifyConfig{
		ClientID:           uuid.NewString(),
		Hostname:           host,
		UserAgent:          "gonsq/1.0",
		HeartbeatInterval:  30000,
		FeatureNegotiation: false,
	}
}

// Config holds the Client's tunables, mirroring spec §6's recognised
// constructor options and the teacher's tag-driven struct style
// (pkg/adapter/config.go's Client/ConsumerConfig/PublisherConfig).
type Config struct {
	Lookup          LookupService   `yaml:"-"`
	Dedupe          DedupeService   `yaml:"-"`
	RequeueStrategy RequeueStrategy `yaml:"-"`
	Logger          Logger          `yaml:"-"`

	ConnectionTimeout time.Duration `env:"CONNECT_TIMEOUT" yaml:"connection_timeout"`
	ReadWriteTimeout  time.Duration `env:"RW_TIMEOUT" yaml:"read_write_timeout"`
	ReadWaitTimeout   time.Duration `env:"READ_WAIT_TIMEOUT" yaml:"read_wait_timeout"`

	Identify IdentifyConfig `yaml:"identify"`
}

func defaultConfig() Config {
	return Config{
		Logger:            noopLogger{},
		ConnectionTimeout: 3 * time.Second,
		ReadWriteTimeout:  3 * time.Second,
		ReadWaitTimeout:   15 * time.Second,
		Identify:          defaultIdentifyConfig(),
	}
}

// ClientOption configures a Client at construction time.
type ClientOption func(*Config)

// WithLookup sets the broker discovery collaborator. Required before
// calling Subscribe (spec §4.5).
func WithLookup(l LookupService) ClientOption {
	return func(c *Config) { c.Lookup = l }
}

// WithDedupe sets the deduplication collaborator.
func WithDedupe(d DedupeService) ClientOption {
	return func(c *Config) { c.Dedupe = d }
}

// WithRequeueStrategy sets the policy consulted when a Handler fails
// without explicitly signalling RequeueMessage.
func WithRequeueStrategy(r RequeueStrategy) ClientOption {
	return func(c *Config) { c.RequeueStrategy = r }
}

// WithLogger overrides the default no-op Logger.
func WithLogger(l Logger) ClientOption {
	return func(c *Config) { c.Logger = l }
}

// WithConnectionTimeout overrides the default 3s TCP connect timeout.
func WithConnectionTimeout(d time.Duration) ClientOption {
	return func(c *Config) { c.ConnectionTimeout = d }
}

// WithReadWriteTimeout overrides the default 3s read/write deadline.
func WithReadWriteTimeout(d time.Duration) ClientOption {
	return func(c *Config) { c.ReadWriteTimeout = d }
}

// WithReadWaitTimeout overrides the default 15s per-read wait bound.
func WithReadWaitTimeout(d time.Duration) ClientOption {
	return func(c *Config) { c.ReadWaitTimeout = d }
}

// WithIdentify overrides the default IDENTIFY payload.
func WithIdentify(id IdentifyConfig) ClientOption {
	return func(c *Config) { c.Identify = id }
}

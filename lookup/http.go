// SPDX-License-Identifier: MIT
// Copyright © 2024–2026 Alexander Demin

// Package lookup provides a default LookupService that queries an
// nsqlookupd-style HTTP endpoint. Broker discovery is explicitly an
// external collaborator (spec §1, §6) — this package is one concrete
// implementation of that seam.
package lookup

import (
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// producer is the shape of one entry in nsqlookupd's
// GET /lookup?topic=<topic> response: {"producers": [{"broadcast_address":
// "...", "tcp_port": N}, ...]}.
type producer struct {
	BroadcastAddress string `json:"broadcast_address"`
	TCPPort          int    `json:"tcp_port"`
}

type lookupResponse struct {
	Producers []producer `json:"producers"`
}

// HTTP is a LookupService backed by resty, the HTTP client the pack
// already carries as a dependency (go-resty/resty/v2, pulled in
// indirectly by dapr-components-contrib/go.mod) rather than a hand-rolled
// net/http call, matching the project's deps-first-reach posture.
type HTTP struct {
	client   *resty.Client
	endpoint string
}

// New returns a LookupService that queries endpoint (an nsqlookupd base
// URL, e.g. "http://127.0.0.1:4161") for each topic's producers.
func New(endpoint string) *HTTP {
	client := resty.New().SetTimeout(5 * time.Second)

	return &HTTP{client: client, endpoint: endpoint}
}

// LookupHosts implements gonsq.LookupService.
func (h *HTTP) LookupHosts(topic string) ([]string, error) {
	var body lookupResponse

	resp, err := h.client.R().
		SetQueryParam("topic", topic).
		SetResult(&body).
		Get(h.endpoint + "/lookup")
	if err != nil {
		return nil, fmt.Errorf("lookup: query %s: %w", h.endpoint, err)
	}

	if resp.IsError() {
		return nil, fmt.Errorf("lookup: %s returned %s", h.endpoint, resp.Status())
	}

	hosts := make([]string, 0, len(body.Producers))
	for _, p := range body.Producers {
		hosts = append(hosts, fmt.Sprintf("%s:%d", p.BroadcastAddress, p.TCPPort))
	}

	return hosts, nil
}

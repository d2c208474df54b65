// Copyright © by Jeff Foley 2017-2025. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.
// SPDX-License-Identifier: Apache-2.0

package servers

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/miekg/dns"
	"github.com/owasp-amass/nsecwalk/utils"
)

// DefaultTimeout is the duration waited until a DNS query expires.
const DefaultTimeout = 2 * time.Second

// ErrClosed is returned when a query is sent to a closed Nameserver.
var ErrClosed = errors.New("the nameserver has been closed")

// NewNameserver returns a Nameserver for the provided address, adding port 53 when
// none is given. Nil is returned when the address is invalid.
func NewNameserver(addr string, timeout time.Duration, tcpOnly bool) *Nameserver {
	if _, _, err := net.SplitHostPort(addr); err != nil {
		// Add the default port number to the IP address
		addr = net.JoinHostPort(addr, "53")
	}

	host, _, err := net.SplitHostPort(addr)
	if err != nil || host == "" {
		return nil
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Nameserver{
		done:    make(chan struct{}),
		addr:    addr,
		tcpOnly: tcpOnly,
		udp: &dns.Client{
			Net:     "udp",
			UDPSize: utils.EDNS0BufferSize,
			Timeout: timeout,
		},
		tcp: &dns.Client{
			Net:     "tcp",
			Timeout: timeout,
		},
		rate: newRateTrack(),
	}
}

// Address returns the host:port of the nameserver.
func (ns *Nameserver) Address() string { return ns.addr }

// String implements the fmt.Stringer interface.
func (ns *Nameserver) String() string {
	if ns.tcpOnly {
		return "tcp://" + ns.addr
	}
	return "udp://" + ns.addr
}

// Close stops the nameserver from sending any further queries.
func (ns *Nameserver) Close() {
	select {
	case <-ns.done:
		return
	default:
	}
	close(ns.done)
}

// Closed returns true after Close has been called.
func (ns *Nameserver) Closed() bool {
	select {
	case <-ns.done:
		return true
	default:
	}
	return false
}

// Exchange sends the message to the nameserver and returns the response. Truncated
// UDP responses are retried over TCP.
func (ns *Nameserver) Exchange(ctx context.Context, msg *dns.Msg) (*dns.Msg, error) {
	if msg == nil || len(msg.Question) == 0 {
		return nil, errors.New("the message has no question")
	}
	if ns.Closed() {
		return nil, ErrClosed
	}
	if err := ns.rate.Take(ctx); err != nil {
		return nil, err
	}

	if ns.tcpOnly {
		return ns.exchange(ctx, ns.tcp, msg)
	}

	resp, err := ns.exchange(ctx, ns.udp, msg)
	if err == nil && resp.Truncated {
		return ns.exchange(ctx, ns.tcp, msg)
	}
	return resp, err
}

func (ns *Nameserver) exchange(ctx context.Context, client *dns.Client, msg *dns.Msg) (*dns.Msg, error) {
	resp, rtt, err := client.ExchangeContext(ctx, msg.Copy(), ns.addr)
	if err != nil {
		return nil, err
	}

	ns.rate.ReportRTT(rtt)
	return resp, nil
}

// Copyright © by Jeff Foley 2017-2025. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.
// SPDX-License-Identifier: Apache-2.0

package selectors

import (
	"context"
	"sync"
	"time"

	"github.com/owasp-amass/nsecwalk/servers"
)

type Selector interface {
	// Get returns a nameserver managed by the selector that can answer for the fqdn.
	Get(ctx context.Context, fqdn string) *servers.Nameserver

	// All returns all the nameservers currently managed by the selector.
	All() []*servers.Nameserver

	// Close releases all resources allocated by the selector.
	Close()
}

type Single struct {
	sync.Mutex
	server *servers.Nameserver
}

type Random struct {
	sync.Mutex
	list   []*servers.Nameserver
	lookup map[string]*servers.Nameserver
}

type Authoritative struct {
	sync.Mutex
	bootstrap  *servers.Nameserver
	timeout    time.Duration
	tcpOnly    bool
	port       string
	list       []*servers.Nameserver
	lookup     map[string]*servers.Nameserver
	fqdnToNSs  map[string][]*servers.Nameserver
	serverToNS map[string][]*servers.Nameserver
}

// Copyright © by Jeff Foley 2017-2025. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.
// SPDX-License-Identifier: Apache-2.0

package servers

import (
	"sync"
	"time"

	"github.com/miekg/dns"
	"golang.org/x/time/rate"
)

// Nameserver is a single DNS server queried over UDP, or TCP when requested.
type Nameserver struct {
	done    chan struct{}
	addr    string
	tcpOnly bool
	udp     *dns.Client
	tcp     *dns.Client
	rate    *rateTrack
}

type rateTrack struct {
	sync.Mutex
	limiter *rate.Limiter
	avg     time.Duration
	count   int
	first   bool
}

// Copyright © by Jeff Foley 2017-2025. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.
// SPDX-License-Identifier: Apache-2.0

package nsecwalk

import (
	"context"

	"github.com/miekg/dns"
)

// Resolver is the name resolution capability used to walk a zone.
// Lookup returns the records of type qtype found at name. When the query was answered,
// but no such records exist, the returned error should wrap ErrNoRecords.
type Resolver interface {
	Lookup(ctx context.Context, name Name, qtype uint16) ([]dns.RR, error)
}

// ResolverFunc is an adapter allowing ordinary functions to be used as a Resolver.
type ResolverFunc func(ctx context.Context, name Name, qtype uint16) ([]dns.RR, error)

// Lookup calls f(ctx, name, qtype).
func (f ResolverFunc) Lookup(ctx context.Context, name Name, qtype uint16) ([]dns.RR, error) {
	return f(ctx, name, qtype)
}

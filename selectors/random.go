// Copyright © by Jeff Foley 2017-2025. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.
// SPDX-License-Identifier: Apache-2.0

package selectors

import (
	"context"
	"math/rand"

	"github.com/owasp-amass/nsecwalk/servers"
)

// NewRandom returns a selector that picks one of the provided nameservers for each query.
func NewRandom(list ...*servers.Nameserver) *Random {
	r := &Random{lookup: make(map[string]*servers.Nameserver)}

	for _, ns := range list {
		r.Add(ns)
	}
	return r
}

// Get performs random selection on the pool of nameservers.
func (r *Random) Get(ctx context.Context, fqdn string) *servers.Nameserver {
	r.Lock()
	defer r.Unlock()

	if l := len(r.list); l == 0 {
		return nil
	} else if l == 1 {
		return r.list[0]
	}

	sel := rand.Intn(len(r.list))
	return r.list[sel]
}

// Add hands the nameserver over to the selector. A nameserver with an address already
// in the pool is closed.
func (r *Random) Add(ns *servers.Nameserver) {
	if ns == nil {
		return
	}

	r.Lock()
	defer r.Unlock()

	addrstr := ns.Address()
	if existing, found := r.lookup[addrstr]; found {
		if existing != ns {
			ns.Close()
		}
		return
	}

	r.list = append(r.list, ns)
	r.lookup[addrstr] = ns
}

func (r *Random) Remove(ns *servers.Nameserver) {
	if ns == nil {
		return
	}

	r.Lock()
	defer r.Unlock()

	addrstr := ns.Address()
	if _, found := r.lookup[addrstr]; found {
		delete(r.lookup, addrstr)

		for i, n := range r.list {
			if n == ns {
				r.list = append(r.list[:i], r.list[i+1:]...)
				break
			}
		}
	}
}

func (r *Random) All() []*servers.Nameserver {
	r.Lock()
	defer r.Unlock()

	all := make([]*servers.Nameserver, len(r.list))
	_ = copy(all, r.list)
	return all
}

func (r *Random) Close() {
	for _, ns := range r.All() {
		r.Remove(ns)
		ns.Close()
	}
}

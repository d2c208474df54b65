// Copyright © by Jeff Foley 2017-2025. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.
// SPDX-License-Identifier: Apache-2.0

package selectors

import (
	"context"
	"math/rand"
	"net"
	"strings"
	"time"

	"github.com/miekg/dns"
	"github.com/owasp-amass/nsecwalk"
	"github.com/owasp-amass/nsecwalk/servers"
	"github.com/owasp-amass/nsecwalk/utils"
)

const (
	defaultPort       = "53"
	bootstrapAttempts = 3
)

// NewAuthoritative returns a selector that discovers the authoritative nameservers of
// the zones it is asked about. The bootstrap nameserver must provide recursion and is
// owned by the selector after this call.
func NewAuthoritative(bootstrap *servers.Nameserver, timeout time.Duration, tcpOnly bool) *Authoritative {
	return &Authoritative{
		bootstrap:  bootstrap,
		timeout:    timeout,
		tcpOnly:    tcpOnly,
		port:       defaultPort,
		lookup:     make(map[string]*servers.Nameserver),
		fqdnToNSs:  make(map[string][]*servers.Nameserver),
		serverToNS: make(map[string][]*servers.Nameserver),
	}
}

// Get returns a nameserver of the closest enclosing zone already discovered. When no
// zone enclosing the fqdn is known, discovery starts at the fqdn and removes labels
// until a name with NS records is found.
func (r *Authoritative) Get(ctx context.Context, fqdn string) *servers.Nameserver {
	r.Lock()
	defer r.Unlock()

	name := strings.ToLower(utils.RemoveLastDot(fqdn))
	if ns := r.checkAncestors(name); ns != nil {
		return ns
	}

	r.populateAuthServers(ctx, name)
	return r.checkAncestors(name)
}

func (r *Authoritative) checkAncestors(name string) *servers.Nameserver {
	var ns *servers.Nameserver

	traverse(name, func(domain string) bool {
		if servs, found := r.fqdnToNSs[domain]; found {
			ns = pickOneServer(servs)
			return true
		}
		return false
	})
	return ns
}

// addEntry returns the managed nameserver for the address of ns, closing ns when
// another one already serves that address.
func (r *Authoritative) addEntry(ns *servers.Nameserver) *servers.Nameserver {
	addrstr := ns.Address()
	if existing, found := r.lookup[addrstr]; found {
		if existing != ns {
			ns.Close()
		}
		return existing
	}

	r.list = append(r.list, ns)
	r.lookup[addrstr] = ns
	return ns
}

func (r *Authoritative) Remove(ns *servers.Nameserver) {
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

func (r *Authoritative) All() []*servers.Nameserver {
	r.Lock()
	defer r.Unlock()

	all := make([]*servers.Nameserver, len(r.list))
	_ = copy(all, r.list)
	return all
}

func (r *Authoritative) Close() {
	for _, ns := range r.All() {
		r.Remove(ns)
		ns.Close()
	}

	r.Lock()
	defer r.Unlock()

	if r.bootstrap != nil {
		r.bootstrap.Close()
	}
	r.fqdnToNSs = make(map[string][]*servers.Nameserver)
	r.serverToNS = make(map[string][]*servers.Nameserver)
}

func (r *Authoritative) populateAuthServers(ctx context.Context, fqdn string) {
	if r.bootstrap == nil {
		return
	}

	traverse(fqdn, func(name string) bool {
		hosts := r.getNameServers(ctx, name)
		if len(hosts) == 0 {
			return ctx.Err() != nil
		}

		type servres struct {
			server string
			nss    []*servers.Nameserver
		}
		results := make(chan *servres, len(hosts))
		defer close(results)

		for _, host := range hosts {
			if nss, found := r.serverToNS[host]; found {
				results <- &servres{server: host, nss: nss}
				continue
			}

			go func(n string) {
				results <- &servres{server: n, nss: r.serverNameToNameservers(ctx, n)}
			}(host)
		}

		var servset []*servers.Nameserver
		for i := 0; i < len(hosts); i++ {
			result := <-results
			if result == nil || len(result.nss) == 0 {
				continue
			}

			var kept []*servers.Nameserver
			for _, ns := range result.nss {
				kept = append(kept, r.addEntry(ns))
			}
			r.serverToNS[result.server] = kept
			servset = append(servset, kept...)
		}

		if len(servset) > 0 {
			r.fqdnToNSs[name] = servset
		}
		// the closest zone cut was found, even when none of its servers resolved
		return true
	})
}

func (r *Authoritative) serverNameToNameservers(ctx context.Context, server string) []*servers.Nameserver {
	var nss []*servers.Nameserver

	for _, qtype := range []uint16{dns.TypeA, dns.TypeAAAA} {
		for _, rr := range r.bootstrapQuery(ctx, server, qtype) {
			var ip net.IP

			switch record := rr.(type) {
			case *dns.A:
				ip = record.A
			case *dns.AAAA:
				ip = record.AAAA
			default:
				continue
			}

			addr := net.JoinHostPort(ip.String(), r.port)
			if ns := servers.NewNameserver(addr, r.timeout, r.tcpOnly); ns != nil {
				nss = append(nss, ns)
			}
		}
	}
	return nss
}

func (r *Authoritative) getNameServers(ctx context.Context, fqdn string) []string {
	var hosts []string

	for _, rr := range r.bootstrapQuery(ctx, fqdn, dns.TypeNS) {
		if record, ok := rr.(*dns.NS); ok {
			hosts = append(hosts, strings.ToLower(utils.RemoveLastDot(record.Ns)))
		}
	}
	return hosts
}

func (r *Authoritative) bootstrapQuery(ctx context.Context, name string, qtype uint16) []dns.RR {
	for i := 0; i < bootstrapAttempts; i++ {
		m, err := r.bootstrap.Exchange(ctx, utils.QueryMsg(name, qtype))
		if err != nil {
			if ctx.Err() != nil || err == servers.ErrClosed {
				break
			}
			continue
		}
		if m.Rcode == dns.RcodeSuccess {
			return utils.AnswersByType(m, qtype)
		}
		if m.Rcode == dns.RcodeNameError {
			break
		}
	}
	return nil
}

// traverse executes the callback for the name and each of its ancestors, ending
// with the root zone, until the callback returns true.
func traverse(name string, callback func(domain string) bool) {
	if name != "" && name != "." {
		var done bool

		labels := strings.Split(name, ".")
		nsecwalk.FQDNToRegistered(name, labels[len(labels)-1], func(domain string) bool {
			done = callback(domain)
			return done
		})
		if done {
			return
		}
	}
	_ = callback(".")
}

func pickOneServer(list []*servers.Nameserver) *servers.Nameserver {
	if l := len(list); l > 0 {
		return list[rand.Intn(l)]
	}
	return nil
}

// Copyright © by Jeff Foley 2017-2025. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.
// SPDX-License-Identifier: Apache-2.0

package selectors

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/caffix/stringset"
	"github.com/miekg/dns"
	"github.com/owasp-amass/nsecwalk/servers"
)

func TestSingle(t *testing.T) {
	ns := servers.NewNameserver("192.168.1.1", time.Second, false)
	sel := NewSingle(ns)

	if got := sel.Get(context.Background(), "walk.com"); got != ns {
		t.Errorf("the single selector did not return its nameserver")
	}
	if all := sel.All(); len(all) != 1 {
		t.Errorf("Got %d nameservers; Expected %d", len(all), 1)
	}

	sel.Close()
	if !ns.Closed() || sel.Get(context.Background(), "walk.com") != nil {
		t.Errorf("the single selector did not release its nameserver")
	}
}

func TestRandom(t *testing.T) {
	addrs := []string{"192.168.1.1:53", "192.168.1.2:53", "192.168.1.3:53"}

	var list []*servers.Nameserver
	for _, addr := range addrs {
		list = append(list, servers.NewNameserver(addr, time.Second, false))
	}
	sel := NewRandom(list...)
	defer sel.Close()

	// duplicates are released and ignored
	dup := servers.NewNameserver(addrs[0], time.Second, false)
	sel.Add(dup)
	if all := sel.All(); len(all) != len(addrs) {
		t.Fatalf("Got %d nameservers; Expected %d", len(all), len(addrs))
	}
	if !dup.Closed() || list[0].Closed() {
		t.Errorf("the duplicate nameserver was not closed in place of the original")
	}
	// adding a managed nameserver again keeps it open
	sel.Add(list[0])
	if list[0].Closed() {
		t.Errorf("the managed nameserver was closed when added again")
	}

	seen := stringset.New()
	defer seen.Close()

	for i := 0; i < 100; i++ {
		if ns := sel.Get(context.Background(), "walk.com"); ns != nil {
			seen.Insert(ns.Address())
		}
	}
	expected := stringset.New(addrs...)
	defer expected.Close()

	expected.Subtract(seen)
	if expected.Len() != 0 {
		t.Errorf("the random selector never returned %v", expected.Slice())
	}

	sel.Remove(list[1])
	defer list[1].Close()
	for _, ns := range sel.All() {
		if ns == list[1] {
			t.Errorf("the nameserver was not removed")
		}
	}
	if len(sel.All()) != len(addrs)-1 {
		t.Errorf("Got %d nameservers; Expected %d", len(sel.All()), len(addrs)-1)
	}
}

func TestRandomEmpty(t *testing.T) {
	sel := NewRandom()
	defer sel.Close()

	if ns := sel.Get(context.Background(), "walk.com"); ns != nil {
		t.Errorf("the empty selector returned a nameserver")
	}
}

func TestRandomClose(t *testing.T) {
	ns := servers.NewNameserver("192.168.1.1", time.Second, false)
	sel := NewRandom(ns)

	sel.Close()
	if !ns.Closed() || len(sel.All()) != 0 {
		t.Errorf("the random selector did not release its nameservers")
	}
}

func TestTraverse(t *testing.T) {
	var got []string
	traverse("www.walk.com", func(domain string) bool {
		got = append(got, domain)
		return false
	})

	expected := []string{"www.walk.com", "walk.com", "com", "."}
	if len(got) != len(expected) {
		t.Fatalf("Got %v; Expected %v", got, expected)
	}
	for i := range expected {
		if got[i] != expected[i] {
			t.Errorf("Got %v; Expected %v", got, expected)
		}
	}
}

func TestAuthoritative(t *testing.T) {
	dns.HandleFunc(".", bootstrapHandler)
	defer dns.HandleRemove(".")

	s, addrstr, err := runLocalUDPServer("localhost:0")
	if err != nil {
		t.Fatalf("unable to run test server: %v", err)
	}
	defer func() { _ = s.Shutdown() }()

	sel := NewAuthoritative(servers.NewNameserver(addrstr, time.Second, false), time.Second, true)
	defer sel.Close()

	ns := sel.Get(context.Background(), "www.Walk.com.")
	if ns == nil {
		t.Fatalf("the authoritative selector failed to discover the nameservers")
	}
	if addr := ns.Address(); addr != "192.0.2.53:53" && addr != "[2001:db8::53]:53" {
		t.Errorf("the authoritative selector returned an unexpected nameserver: %s", addr)
	}
	if ns.String() != "tcp://"+ns.Address() {
		t.Errorf("the discovered nameserver did not keep the TCP setting")
	}
	if all := sel.All(); len(all) != 2 {
		t.Errorf("Got %d nameservers; Expected %d", len(all), 2)
	}

	queries := bootstrapQueries()
	// names within the zone are served without further discovery
	if sel.Get(context.Background(), "a.b.walk.com") == nil || bootstrapQueries() != queries {
		t.Errorf("the authoritative selector repeated the discovery for a name within the zone")
	}
}

func TestAuthoritativeSharedAddresses(t *testing.T) {
	dns.HandleFunc(".", bootstrapHandler)
	defer dns.HandleRemove(".")

	s, addrstr, err := runLocalUDPServer("localhost:0")
	if err != nil {
		t.Fatalf("unable to run test server: %v", err)
	}
	defer func() { _ = s.Shutdown() }()

	sel := NewAuthoritative(servers.NewNameserver(addrstr, time.Second, false), time.Second, false)
	defer sel.Close()

	ns := sel.Get(context.Background(), "shared.com")
	if ns == nil {
		t.Fatalf("the authoritative selector failed to discover the nameservers")
	}
	if ns.Closed() {
		t.Errorf("the selector returned a closed nameserver")
	}
	// both hosts resolve to the same address
	if all := sel.All(); len(all) != 1 {
		t.Errorf("Got %d nameservers; Expected %d", len(all), 1)
	}
}

func TestAuthoritativeAddEntry(t *testing.T) {
	sel := NewAuthoritative(nil, time.Second, false)
	defer sel.Close()

	first := servers.NewNameserver("192.0.2.54", time.Second, false)
	second := servers.NewNameserver("192.0.2.54:53", time.Second, false)

	if got := sel.addEntry(first); got != first {
		t.Errorf("the first nameserver for the address was not kept")
	}
	if got := sel.addEntry(second); got != first {
		t.Errorf("the duplicate replaced the managed nameserver")
	}
	if !second.Closed() || first.Closed() {
		t.Errorf("the duplicate nameserver was not closed in place of the original")
	}
}

func TestAuthoritativeNoZone(t *testing.T) {
	dns.HandleFunc(".", bootstrapHandler)
	defer dns.HandleRemove(".")

	s, addrstr, err := runLocalUDPServer("localhost:0")
	if err != nil {
		t.Fatalf("unable to run test server: %v", err)
	}
	defer func() { _ = s.Shutdown() }()

	sel := NewAuthoritative(servers.NewNameserver(addrstr, time.Second, false), time.Second, false)
	defer sel.Close()

	if ns := sel.Get(context.Background(), "missing.org"); ns != nil {
		t.Errorf("the authoritative selector returned %s for a name without nameservers", ns)
	}
}

var (
	bootstrapLock  sync.Mutex
	bootstrapCount int
)

func bootstrapQueries() int {
	bootstrapLock.Lock()
	defer bootstrapLock.Unlock()

	return bootstrapCount
}

func bootstrapHandler(w dns.ResponseWriter, req *dns.Msg) {
	bootstrapLock.Lock()
	bootstrapCount++
	bootstrapLock.Unlock()

	m := new(dns.Msg)
	m.SetReply(req)

	q := req.Question[0]
	hdr := dns.RR_Header{Name: q.Name, Rrtype: q.Qtype, Class: dns.ClassINET, Ttl: 0}
	switch {
	case q.Qtype == dns.TypeNS && q.Name == "walk.com.":
		m.Answer = append(m.Answer, &dns.NS{Hdr: hdr, Ns: "ns1.walk.com."})
	case q.Qtype == dns.TypeA && q.Name == "ns1.walk.com.":
		m.Answer = append(m.Answer, &dns.A{Hdr: hdr, A: net.ParseIP("192.0.2.53")})
	case q.Qtype == dns.TypeAAAA && q.Name == "ns1.walk.com.":
		m.Answer = append(m.Answer, &dns.AAAA{Hdr: hdr, AAAA: net.ParseIP("2001:db8::53")})
	case q.Qtype == dns.TypeNS && q.Name == "shared.com.":
		m.Answer = append(m.Answer,
			&dns.NS{Hdr: hdr, Ns: "ns1.shared.com."},
			&dns.NS{Hdr: hdr, Ns: "ns2.shared.com."},
		)
	case q.Qtype == dns.TypeA && (q.Name == "ns1.shared.com." || q.Name == "ns2.shared.com."):
		m.Answer = append(m.Answer, &dns.A{Hdr: hdr, A: net.ParseIP("192.0.2.54")})
	case q.Name == "missing.org.":
		m.Rcode = dns.RcodeNameError
	}
	_ = w.WriteMsg(m)
}

func runLocalUDPServer(laddr string) (*dns.Server, string, error) {
	pc, err := net.ListenPacket("udp", laddr)
	if err != nil {
		return nil, "", err
	}

	server := &dns.Server{
		PacketConn:   pc,
		ReadTimeout:  time.Hour,
		WriteTimeout: time.Hour,
	}

	waitLock := sync.Mutex{}
	waitLock.Lock()
	server.NotifyStartedFunc = waitLock.Unlock

	go func() {
		_ = server.ActivateAndServe()
		pc.Close()
	}()

	waitLock.Lock()
	return server, pc.LocalAddr().String(), nil
}

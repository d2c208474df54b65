// Copyright © by Jeff Foley 2017-2025. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.
// SPDX-License-Identifier: Apache-2.0

package utils

import (
	"net"
	"testing"

	"github.com/miekg/dns"
)

func TestRemoveLastDot(t *testing.T) {
	for input, expected := range map[string]string{
		"walk.com.": "walk.com",
		"walk.com":  "walk.com",
		".":         "",
		"":          "",
	} {
		if got := RemoveLastDot(input); got != expected {
			t.Errorf("Got: %s; Expected: %s", got, expected)
		}
	}
}

func TestWalkMsg(t *testing.T) {
	for _, recursion := range []bool{false, true} {
		m := WalkMsg("Walk.com", dns.TypeNSEC, recursion)

		if q := m.Question[0]; q.Name != "Walk.com." || q.Qtype != dns.TypeNSEC {
			t.Errorf("The question was not built correctly: %v", q)
		}
		if m.RecursionDesired != recursion {
			t.Errorf("The recursion desired flag was %t and expected %t", m.RecursionDesired, recursion)
		}

		opt := m.IsEdns0()
		if opt == nil {
			t.Fatalf("The walk message did not include an EDNS0 OPT record")
		}
		if !opt.Do() {
			t.Errorf("The walk message did not set the DNSSEC OK bit")
		}
		if size := opt.UDPSize(); size != EDNS0BufferSize {
			t.Errorf("Got a UDP size of %d; Expected: %d", size, EDNS0BufferSize)
		}
	}
}

func TestQueryMsg(t *testing.T) {
	m := QueryMsg("walk.com", dns.TypeNS)

	if !m.RecursionDesired {
		t.Errorf("The query message did not request recursion")
	}
	if opt := m.IsEdns0(); opt == nil || opt.Do() {
		t.Errorf("The query message should carry EDNS0 without the DNSSEC OK bit")
	}
}

func TestAnswersByType(t *testing.T) {
	data := []string{"192.168.1.1", "192.168.1.1", "2001:db8:0:1:1:1:1:1"}
	m := new(dns.Msg)
	m.SetReply(QueryMsg("test.caffix.net", dns.TypeA))
	m.Answer = make([]dns.RR, 3)
	m.Answer[0] = &dns.A{Hdr: dns.RR_Header{Name: m.Question[0].Name, Rrtype: dns.TypeA, Class: dns.ClassINET}, A: net.ParseIP(data[0])}
	m.Answer[1] = &dns.A{Hdr: dns.RR_Header{Name: m.Question[0].Name, Rrtype: dns.TypeA, Class: dns.ClassINET}, A: net.ParseIP(data[1])}
	m.Answer[2] = &dns.AAAA{Hdr: dns.RR_Header{Name: m.Question[0].Name, Rrtype: dns.TypeAAAA, Class: dns.ClassINET}, AAAA: net.ParseIP(data[2])}

	ans := AnswersByType(m, dns.TypeA)
	if l := len(ans); l != 2 {
		t.Errorf("Returned %d answers and expected %d", l, 2)
		return
	}
	if ans := AnswersByType(nil, dns.TypeA); len(ans) != 0 {
		t.Errorf("Returned %d answers for a nil message", len(ans))
	}
}

func TestAuthorityByOwner(t *testing.T) {
	m := new(dns.Msg)
	m.SetReply(WalkMsg("a.walk.com", dns.TypeNSEC, false))
	m.Ns = []dns.RR{
		&dns.NSEC{Hdr: dns.RR_Header{Name: "walk.com.", Rrtype: dns.TypeNSEC, Class: dns.ClassINET}, NextDomain: "0.walk.com."},
		&dns.NSEC{Hdr: dns.RR_Header{Name: "A.walk.com.", Rrtype: dns.TypeNSEC, Class: dns.ClassINET}, NextDomain: "b.walk.com."},
		&dns.SOA{Hdr: dns.RR_Header{Name: "a.walk.com.", Rrtype: dns.TypeSOA, Class: dns.ClassINET}},
	}

	rrs := AuthorityByOwner(m, "a.walk.com", dns.TypeNSEC)
	if len(rrs) != 1 {
		t.Fatalf("Returned %d records and expected %d", len(rrs), 1)
	}
	if next := rrs[0].(*dns.NSEC).NextDomain; next != "b.walk.com." {
		t.Errorf("Got: %s; Expected: %s", next, "b.walk.com.")
	}
}

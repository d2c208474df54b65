// Copyright © by Jeff Foley 2017-2025. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.
// SPDX-License-Identifier: Apache-2.0

package utils

import (
	"strings"

	"github.com/miekg/dns"
)

// EDNS0BufferSize is the UDP payload size advertised in walk queries.
const EDNS0BufferSize = 4096

// RemoveLastDot removes the '.' at the end of the provided FQDN.
func RemoveLastDot(name string) string {
	sz := len(name)
	if sz > 0 && name[sz-1] == '.' {
		return name[:sz-1]
	}
	return name
}

// QueryMsg generates a message used for a recursive forward DNS query.
func QueryMsg(name string, qtype uint16) *dns.Msg {
	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(name), qtype)
	m.RecursionDesired = true
	m.SetEdns0(dns.DefaultMsgSize, false)
	return m
}

// WalkMsg generates a message used for a NSEC walk query. The DNSSEC OK bit is set so
// servers include the NSEC records, and recursion is only requested when asked for.
func WalkMsg(name string, qtype uint16, recursion bool) *dns.Msg {
	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(name), qtype)
	m.RecursionDesired = recursion
	m.SetEdns0(EDNS0BufferSize, true)
	return m
}

// AnswersByType returns only the answers from the DNS Answer section matching the provided type.
func AnswersByType(msg *dns.Msg, qtype uint16) []dns.RR {
	var subset []dns.RR

	if msg == nil || len(msg.Answer) == 0 {
		return subset
	}

	for _, a := range msg.Answer {
		if a.Header().Rrtype == qtype {
			subset = append(subset, a)
		}
	}

	return subset
}

// AuthorityByOwner returns the records of the provided type from the Authority section
// that are owned by the provided name.
func AuthorityByOwner(msg *dns.Msg, name string, qtype uint16) []dns.RR {
	var subset []dns.RR

	if msg == nil {
		return subset
	}

	owner := strings.ToLower(dns.Fqdn(name))
	for _, rr := range msg.Ns {
		if hdr := rr.Header(); hdr.Rrtype == qtype && strings.ToLower(hdr.Name) == owner {
			subset = append(subset, rr)
		}
	}

	return subset
}

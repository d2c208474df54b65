// Copyright © by Jeff Foley 2017-2025. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.
// SPDX-License-Identifier: Apache-2.0

package nsecwalk

import (
	"strings"

	"github.com/miekg/dns"
)

// FQDNToRegistered executes the provided callback routine for domain names, starting
// with the FQDN to the registered domain name, removing one label with each execution.
// The process stops if the callback routine returns true, indicating completion.
// Escaped dots are not treated as label separators.
func FQDNToRegistered(fqdn, registered string, callback func(domain string) bool) {
	base := dns.CountLabel(dns.Fqdn(registered))
	labels := dns.SplitDomainName(fqdn)

	for i := 0; i <= len(labels)-base; i++ {
		if callback(strings.Join(labels[i:], ".")) {
			break
		}
	}
}

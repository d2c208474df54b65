// Copyright © by Jeff Foley 2017-2025. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.
// SPDX-License-Identifier: Apache-2.0

package nsecwalk

import (
	"strings"
	"unicode/utf8"

	"github.com/miekg/dns"
	"golang.org/x/net/idna"
)

const (
	maxLabelLen = 63
	maxNameLen  = 255
)

// Name is a fully qualified domain name that compares by its canonical form.
// The zero value is not a valid name.
type Name struct {
	fqdn  string
	canon string
}

// ParseName validates the provided string and returns the Name it represents.
// Names containing non-ASCII characters are converted to their IDNA form.
func ParseName(s string) (Name, error) {
	name := strings.TrimSpace(s)
	if name == "" {
		return Name{}, &NameSyntaxError{Input: s, Reason: "the name is empty"}
	}

	if !isASCII(name) {
		ascii, err := idna.Lookup.ToASCII(name)
		if err != nil {
			return Name{}, &NameSyntaxError{Input: s, Reason: err.Error()}
		}
		name = ascii
	}

	fqdn := dns.Fqdn(name)
	if reason := checkLabels(fqdn); reason != "" {
		return Name{}, &NameSyntaxError{Input: s, Reason: reason}
	}
	if _, ok := dns.IsDomainName(fqdn); !ok {
		return Name{}, &NameSyntaxError{Input: s, Reason: "not a valid domain name"}
	}

	return Name{fqdn: fqdn, canon: dns.CanonicalName(fqdn)}, nil
}

func checkLabels(fqdn string) string {
	if fqdn == "." {
		return ""
	}

	// the wire form adds a length octet per label and the root label
	wire := 1
	for _, label := range dns.SplitDomainName(fqdn) {
		l := labelLen(label)

		if l == 0 {
			return "the name contains an empty label"
		}
		if l > maxLabelLen {
			return "the label " + label + " exceeds 63 octets"
		}
		wire += l + 1
	}
	if wire > maxNameLen {
		return "the name exceeds 255 octets"
	}
	return ""
}

// labelLen counts the octets of a presentation format label, so \DDD and \X escapes count once.
func labelLen(label string) int {
	var n int

	for i := 0; i < len(label); i++ {
		if label[i] == '\\' {
			if i+3 < len(label) && isDigit(label[i+1]) && isDigit(label[i+2]) && isDigit(label[i+3]) {
				i += 3
			} else {
				i++
			}
		}
		n++
	}
	return n
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

// String returns the fully qualified presentation form of the name.
func (n Name) String() string { return n.fqdn }

// Canonical returns the lowercase fully qualified form used for comparisons.
func (n Name) Canonical() string { return n.canon }

// IsZero returns true when the Name was never successfully parsed.
func (n Name) IsZero() bool { return n.canon == "" }

// Equal reports whether both names are the same in canonical form.
func (n Name) Equal(o Name) bool { return n.canon == o.canon }

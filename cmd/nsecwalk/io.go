// Copyright © by Jeff Foley 2017-2025. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"os"
	"strings"

	"github.com/caffix/stringset"
	"github.com/miekg/dns"
	"github.com/owasp-amass/nsecwalk/utils"
)

// NameserverFileList returns the nameserver addresses found in the file at p.
func NameserverFileList(p string) ([]string, error) {
	input, err := os.Open(p)
	if err != nil {
		return nil, fmt.Errorf("failed to open the nameserver file %s: %w", p, err)
	}
	defer input.Close()

	return uniqueLines(input, func(str string) string { return str })
}

// InputDomainNames returns the domain names read from input in their original order,
// without duplicates.
func InputDomainNames(input io.Reader) ([]string, error) {
	return uniqueLines(input, func(str string) string {
		return strings.ToLower(utils.RemoveLastDot(str))
	})
}

func uniqueLines(input io.Reader, key func(string) string) ([]string, error) {
	set := stringset.New()
	defer set.Close()

	var lines []string
	err := ExtractLines(input, func(str string) error {
		if k := key(str); !set.Has(k) {
			set.Insert(k)
			lines = append(lines, str)
		}
		return nil
	})
	return lines, err
}

// ExtractLines executes the callback for each line of the reader, skipping blank lines
// and comments.
func ExtractLines(reader io.Reader, cb func(str string) error) error {
	scanner := bufio.NewScanner(reader)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if err := cb(line); err != nil {
			return err
		}
	}
	return scanner.Err()
}

// SystemNameservers returns the nameservers of the resolv.conf file at p.
func SystemNameservers(p string) ([]string, error) {
	conf, err := dns.ClientConfigFromFile(p)
	if err != nil {
		return nil, fmt.Errorf("failed to read the system nameservers: %w", err)
	}

	var list []string
	for _, s := range conf.Servers {
		list = append(list, net.JoinHostPort(s, conf.Port))
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("no nameservers were found in %s", p)
	}
	return list, nil
}

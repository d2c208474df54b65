// Copyright © by Jeff Foley 2017-2025. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.
// SPDX-License-Identifier: Apache-2.0

package selectors

import (
	"context"

	"github.com/owasp-amass/nsecwalk/servers"
)

// NewSingle returns a selector that always provides the same nameserver.
func NewSingle(serv *servers.Nameserver) *Single {
	return &Single{server: serv}
}

func (s *Single) Get(ctx context.Context, fqdn string) *servers.Nameserver {
	s.Lock()
	defer s.Unlock()

	return s.server
}

func (s *Single) All() []*servers.Nameserver {
	s.Lock()
	defer s.Unlock()

	if s.server == nil {
		return nil
	}
	return []*servers.Nameserver{s.server}
}

func (s *Single) Close() {
	s.Lock()
	defer s.Unlock()

	if s.server != nil {
		s.server.Close()
	}
	s.server = nil
}

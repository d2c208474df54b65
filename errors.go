// Copyright © by Jeff Foley 2017-2025. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.
// SPDX-License-Identifier: Apache-2.0

package nsecwalk

import (
	"errors"
	"fmt"
)

// ErrNoRecords is returned by a Resolver when the query was answered, but no records
// of the requested type exist at the name.
var ErrNoRecords = errors.New("no records found")

// NameSyntaxError is returned when a string cannot be parsed into a Name.
type NameSyntaxError struct {
	Input  string
	Reason string
}

func (e *NameSyntaxError) Error() string {
	return fmt.Sprintf("invalid domain name %q: %s", e.Input, e.Reason)
}

// ResolutionError indicates the Resolver failed to complete the query for Name.
type ResolutionError struct {
	Name Name
	Err  error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("the NSEC query for %s failed: %v", e.Name, e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// NoNsecRecordError indicates the query for Name was answered without a usable NSEC record.
type NoNsecRecordError struct {
	Name Name
	// Records is the number of records returned by the Resolver.
	Records int
	Reason  string
}

func (e *NoNsecRecordError) Error() string {
	msg := fmt.Sprintf("no NSEC record found for %s", e.Name)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

// ChainLoopError indicates the NSEC chain did not close on the starting name.
type ChainLoopError struct {
	Name  Name
	Steps int
	// Exceeded is true when the walk stopped on the maximum number of steps
	// instead of a previously visited name.
	Exceeded bool
}

func (e *ChainLoopError) Error() string {
	if e.Exceeded {
		return fmt.Sprintf("the NSEC chain did not close within %d steps", e.Steps)
	}
	return fmt.Sprintf("the NSEC chain revisited %s after %d steps without closing", e.Name, e.Steps)
}

// SyntheticChainError indicates the zone answers with NSEC records generated on-line,
// which always point to the immediate successor of the queried name.
type SyntheticChainError struct {
	Name Name
	Next Name
}

func (e *SyntheticChainError) Error() string {
	return fmt.Sprintf("the zone appears to use on-line signing: %s points to %s", e.Name, e.Next)
}

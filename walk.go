// Copyright © by Jeff Foley 2017-2025. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.
// SPDX-License-Identifier: Apache-2.0

package nsecwalk

import (
	"context"
	"errors"
	"iter"

	"github.com/miekg/dns"
)

// State describes where a Walker is in its traversal.
type State int

const (
	// StateActive means more names may be produced.
	StateActive State = iota
	// StateClosed means the chain returned to the starting name.
	StateClosed
	// StateFailed means the walk stopped on an error.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateClosed:
		return "closed"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// Option configures a Walker.
type Option func(*Walker)

// WithMaxSteps bounds the number of NSEC queries performed by the walk.
// Zero or a negative value leaves the walk unbounded.
func WithMaxSteps(n int) Option {
	return func(w *Walker) {
		w.maxSteps = n
	}
}

// Walker enumerates the owner names of a zone by following its NSEC chain.
// A Walker is single-pass and must not be used concurrently.
type Walker struct {
	resolver Resolver
	start    Name
	current  Name
	name     Name
	state    State
	err      error
	steps    int
	maxSteps int
	visited  map[string]struct{}
}

// NewWalker returns a Walker that starts at the provided name and performs queries using r.
// The Walker does not take ownership of r.
func NewWalker(r Resolver, start string, opts ...Option) (*Walker, error) {
	if r == nil {
		return nil, errors.New("the resolver is nil")
	}

	name, err := ParseName(start)
	if err != nil {
		return nil, err
	}

	w := &Walker{
		resolver: r,
		start:    name,
		current:  name,
		visited:  map[string]struct{}{name.Canonical(): {}},
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Start returns the name the walk began at.
func (w *Walker) Start() Name { return w.start }

// Current returns the name that will be queried by the next step.
func (w *Walker) Current() Name { return w.current }

// State returns the current traversal state.
func (w *Walker) State() State { return w.state }

// Steps returns the number of NSEC queries performed.
func (w *Walker) Steps() int { return w.steps }

// Name returns the name produced by the most recent successful call to Next.
func (w *Walker) Name() Name { return w.name }

// Err returns the error that stopped the walk. It is nil when the chain closed.
func (w *Walker) Err() error { return w.err }

// Next advances the walk to the following name in the NSEC chain. It returns false
// when the chain closes or an error occurs, and then Err distinguishes the two.
func (w *Walker) Next(ctx context.Context) bool {
	if w.state != StateActive {
		return false
	}
	if w.maxSteps > 0 && w.steps >= w.maxSteps {
		return w.fail(&ChainLoopError{Name: w.current, Steps: w.steps, Exceeded: true})
	}

	w.steps++
	rrs, err := w.resolver.Lookup(ctx, w.current, dns.TypeNSEC)
	if err != nil {
		if errors.Is(err, ErrNoRecords) {
			return w.fail(&NoNsecRecordError{Name: w.current, Reason: err.Error()})
		}
		return w.fail(&ResolutionError{Name: w.current, Err: err})
	}

	nsec := selectNSEC(w.current, rrs)
	if nsec == nil {
		return w.fail(&NoNsecRecordError{Name: w.current, Records: len(rrs)})
	}

	next, err := ParseName(nsec.NextDomain)
	if err != nil {
		return w.fail(&NoNsecRecordError{
			Name:    w.current,
			Records: len(rrs),
			Reason:  "the next domain name is malformed",
		})
	}

	if next.Equal(w.start) {
		w.state = StateClosed
		w.name = Name{}
		return false
	}
	if isSynthetic(w.current, next) {
		return w.fail(&SyntheticChainError{Name: w.current, Next: next})
	}
	if _, found := w.visited[next.Canonical()]; found {
		return w.fail(&ChainLoopError{Name: next, Steps: w.steps})
	}

	w.visited[next.Canonical()] = struct{}{}
	w.current = next
	w.name = next
	return true
}

// Names returns an iterator over the remaining names of the walk. When the walk
// fails, the final pair holds a zero Name and the error.
func (w *Walker) Names(ctx context.Context) iter.Seq2[Name, error] {
	return func(yield func(Name, error) bool) {
		for w.Next(ctx) {
			if !yield(w.name, nil) {
				return
			}
		}
		if w.err != nil {
			yield(Name{}, w.err)
		}
	}
}

func (w *Walker) fail(err error) bool {
	w.state = StateFailed
	w.err = err
	w.name = Name{}
	return false
}

// Walk performs the NSEC walk starting at start and returns the names discovered.
// The names found before a failure are returned along with the error.
func Walk(ctx context.Context, r Resolver, start string, opts ...Option) ([]Name, error) {
	w, err := NewWalker(r, start, opts...)
	if err != nil {
		return nil, err
	}

	var results []Name
	for w.Next(ctx) {
		results = append(results, w.Name())
	}
	return results, w.Err()
}

// selectNSEC prefers the NSEC record owned by the queried name.
func selectNSEC(owner Name, rrs []dns.RR) *dns.NSEC {
	var first *dns.NSEC

	for _, rr := range rrs {
		nsec, ok := rr.(*dns.NSEC)
		if !ok {
			continue
		}
		if dns.CanonicalName(nsec.Hdr.Name) == owner.Canonical() {
			return nsec
		}
		if first == nil {
			first = nsec
		}
	}
	return first
}

// isSynthetic detects the \000 successor used by zones signed on-line.
func isSynthetic(current, next Name) bool {
	prefix := `\000.`
	if current.Canonical() == "." {
		return next.Canonical() == prefix
	}
	return next.Canonical() == prefix+current.Canonical()
}

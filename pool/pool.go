// Copyright © by Jeff Foley 2017-2025. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.
// SPDX-License-Identifier: Apache-2.0

package pool

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	retry "github.com/avast/retry-go/v4"
	lru "github.com/hashicorp/golang-lru"
	"github.com/miekg/dns"
	"github.com/owasp-amass/nsecwalk"
	"github.com/owasp-amass/nsecwalk/log"
	"github.com/owasp-amass/nsecwalk/selectors"
	"github.com/owasp-amass/nsecwalk/servers"
	"github.com/owasp-amass/nsecwalk/utils"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	DefaultRetries  uint = 3
	DefaultDelay         = 250 * time.Millisecond
	DefaultMaxDelay      = 2 * time.Second
)

var (
	// ErrStopped is returned by a pool after Stop has been called.
	ErrStopped = errors.New("the pool has been stopped")
	// ErrNoNameserver is returned when the selector has no nameserver for the name.
	ErrNoNameserver = errors.New("no nameserver is available for the name")
	// ErrTruncated is returned when the response remained truncated.
	ErrTruncated = errors.New("the response was truncated")
)

// RcodeError is returned when a nameserver answered with a response code other than
// NOERROR and NXDOMAIN.
type RcodeError struct {
	Name  string
	Rcode int
}

func (e *RcodeError) Error() string {
	return fmt.Sprintf("the query for %s returned %s", e.Name, dns.RcodeToString[e.Rcode])
}

// Temporary returns true when another attempt could be answered differently.
func (e *RcodeError) Temporary() bool {
	return e.Rcode == dns.RcodeServerFailure || e.Rcode == dns.RcodeRefused
}

// Stats counts the work performed by a pool.
type Stats struct {
	Queries   uint64
	Retries   uint64
	CacheHits uint64
}

// Pool is a managed pool of DNS nameservers that answers the lookups of walkers.
type Pool struct {
	done      chan struct{}
	log       *logrus.Entry
	selector  selectors.Selector
	rate      *rate.Limiter
	retries   uint
	delay     time.Duration
	maxDelay  time.Duration
	recursion bool
	cacheSize int
	cache     *lru.Cache
	queries   uint64
	retried   uint64
	hits      uint64
}

// Option configures a Pool.
type Option func(*Pool)

// WithQPS limits the number of queries sent per second across all nameservers.
// Values of zero or less remove the limit.
func WithQPS(qps int) Option {
	return func(p *Pool) {
		limit := rate.Inf
		if qps > 0 {
			limit = rate.Limit(qps)
		}
		p.rate = rate.NewLimiter(limit, 1)
	}
}

// WithRetries sets the number of additional attempts made after a transient failure.
func WithRetries(n uint) Option {
	return func(p *Pool) { p.retries = n }
}

// WithBackoff sets the base and maximum delays between attempts.
func WithBackoff(delay, max time.Duration) Option {
	return func(p *Pool) {
		p.delay = delay
		p.maxDelay = max
	}
}

// WithCacheSize keeps up to n answers in memory. Zero disables the cache.
func WithCacheSize(n int) Option {
	return func(p *Pool) { p.cacheSize = n }
}

// WithLogger sets the logger used when the context does not carry one.
func WithLogger(l *logrus.Entry) Option {
	return func(p *Pool) {
		if l != nil {
			p.log = l
		}
	}
}

// WithRecursion sets the recursion desired bit on the queries. It is only useful when
// the nameservers are recursive resolvers.
func WithRecursion(rd bool) Option {
	return func(p *Pool) { p.recursion = rd }
}

// New initializes a DNS nameserver pool over the selector.
func New(sel selectors.Selector, opts ...Option) (*Pool, error) {
	if sel == nil {
		return nil, errors.New("the pool requires a nameserver selector")
	}

	p := &Pool{
		done:     make(chan struct{}),
		log:      log.Discard(),
		selector: sel,
		rate:     rate.NewLimiter(rate.Inf, 1),
		retries:  DefaultRetries,
		delay:    DefaultDelay,
		maxDelay: DefaultMaxDelay,
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.cacheSize > 0 {
		cache, err := lru.New(p.cacheSize)
		if err != nil {
			return nil, fmt.Errorf("failed to create the answer cache: %w", err)
		}
		p.cache = cache
	}
	return p, nil
}

// Stop will release resources used by the pool, including the selector nameservers.
func (p *Pool) Stop() {
	select {
	case <-p.done:
		return
	default:
	}
	close(p.done)
	p.selector.Close()
}

// Stopped returns true after Stop has been called.
func (p *Pool) Stopped() bool {
	select {
	case <-p.done:
		return true
	default:
	}
	return false
}

// Stats returns the counters of the pool.
func (p *Pool) Stats() Stats {
	return Stats{
		Queries:   atomic.LoadUint64(&p.queries),
		Retries:   atomic.LoadUint64(&p.retried),
		CacheHits: atomic.LoadUint64(&p.hits),
	}
}

type cacheEntry struct {
	rrs   []dns.RR
	empty bool
}

// Lookup implements the nsecwalk.Resolver interface. It returns the records of the
// requested type owned by the name, or an error wrapping nsecwalk.ErrNoRecords when
// the name has none.
func (p *Pool) Lookup(ctx context.Context, name nsecwalk.Name, qtype uint16) ([]dns.RR, error) {
	if p.Stopped() {
		return nil, ErrStopped
	}

	key := cacheKey(name, qtype)
	if p.cache != nil {
		if v, found := p.cache.Get(key); found {
			atomic.AddUint64(&p.hits, 1)

			entry := v.(*cacheEntry)
			if entry.empty {
				return nil, nsecwalk.ErrNoRecords
			}
			return append([]dns.RR(nil), entry.rrs...), nil
		}
	}

	logger := log.FromCtxOr(ctx, p.log).WithFields(logrus.Fields{
		"name":  name.String(),
		"qtype": dns.TypeToString[qtype],
	})

	var rrs []dns.RR
	var tries uint
	var last error
	err := retry.Do(
		func() error {
			if tries > 0 {
				atomic.AddUint64(&p.retried, 1)
				logger.WithField("attempt", fmt.Sprintf("%d/%d", tries+1, p.retries+1)).Debugf("Retrying the query: %v", last)
			}
			tries++

			var err error
			rrs, err = p.attempt(ctx, logger, name, qtype)
			last = err
			return err
		},
		append(p.delayOptions(),
			retry.Context(ctx),
			retry.Attempts(p.retries+1),
			retry.LastErrorOnly(true),
			retry.RetryIf(transient),
		)...,
	)

	if p.cache != nil {
		if err == nil {
			p.cache.Add(key, &cacheEntry{rrs: rrs})
		} else if errors.Is(err, nsecwalk.ErrNoRecords) {
			p.cache.Add(key, &cacheEntry{empty: true})
		}
	}
	if err != nil {
		return nil, err
	}
	return append([]dns.RR(nil), rrs...), nil
}

func (p *Pool) attempt(ctx context.Context, logger *logrus.Entry, name nsecwalk.Name, qtype uint16) ([]dns.RR, error) {
	select {
	case <-p.done:
		return nil, ErrStopped
	default:
	}

	if err := p.rate.Wait(ctx); err != nil {
		return nil, err
	}

	ns := p.selector.Get(ctx, name.String())
	if ns == nil {
		return nil, ErrNoNameserver
	}

	start := time.Now()
	atomic.AddUint64(&p.queries, 1)
	resp, err := ns.Exchange(ctx, utils.WalkMsg(name.String(), qtype, p.recursion))

	logger = logger.WithFields(logrus.Fields{
		"server": ns.String(),
		"rtt":    time.Since(start).String(),
	})
	if err != nil {
		logger.Debugf("The query failed: %v", err)
		return nil, err
	}

	logger.WithField("rcode", dns.RcodeToString[resp.Rcode]).Debug("Received a response")
	return classify(resp, name, qtype)
}

func classify(resp *dns.Msg, name nsecwalk.Name, qtype uint16) ([]dns.RR, error) {
	if resp.Truncated {
		return nil, ErrTruncated
	}

	switch resp.Rcode {
	case dns.RcodeSuccess:
	case dns.RcodeNameError:
		return nil, fmt.Errorf("%s returned NXDOMAIN: %w", name, nsecwalk.ErrNoRecords)
	default:
		return nil, &RcodeError{Name: name.String(), Rcode: resp.Rcode}
	}

	rrs := utils.AnswersByType(resp, qtype)
	rrs = append(rrs, utils.AuthorityByOwner(resp, name.String(), qtype)...)
	if len(rrs) == 0 {
		return nil, fmt.Errorf("%s has no %s records: %w", name, dns.TypeToString[qtype], nsecwalk.ErrNoRecords)
	}
	return rrs, nil
}

func transient(err error) bool {
	var rcodeErr *RcodeError

	switch {
	case errors.Is(err, nsecwalk.ErrNoRecords),
		errors.Is(err, ErrStopped),
		errors.Is(err, ErrNoNameserver),
		errors.Is(err, servers.ErrClosed),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return false
	case errors.As(err, &rcodeErr):
		return rcodeErr.Temporary()
	}
	// timeouts, network errors and truncated responses
	return true
}

// delayOptions returns exponential delays starting at p.delay with up to p.delay of jitter,
// truncated at p.maxDelay when it is above zero.
func (p *Pool) delayOptions() []retry.Option {
	if p.delay <= 0 {
		return []retry.Option{retry.Delay(0), retry.DelayType(retry.FixedDelay)}
	}

	opts := []retry.Option{
		retry.Delay(p.delay),
		retry.MaxJitter(p.delay),
		retry.DelayType(retry.CombineDelay(retry.BackOffDelay, retry.RandomDelay)),
	}
	if p.maxDelay > 0 {
		opts = append(opts, retry.MaxDelay(p.maxDelay))
	}
	return opts
}

func cacheKey(name nsecwalk.Name, qtype uint16) string {
	return name.Canonical() + "/" + dns.Type(qtype).String()
}

// Copyright © by Jeff Foley 2017-2025. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/caffix/queue"
	"github.com/hako/durafmt"
	"github.com/hashicorp/go-multierror"
	"github.com/owasp-amass/nsecwalk"
	"github.com/owasp-amass/nsecwalk/config"
	"github.com/owasp-amass/nsecwalk/log"
	"github.com/owasp-amass/nsecwalk/pool"
	"github.com/owasp-amass/nsecwalk/selectors"
	"github.com/owasp-amass/nsecwalk/servers"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var errNoNames = errors.New("no names were discovered")

// resolvConf provides the nameservers when none are configured
var resolvConf = "/etc/resolv.conf"

type params struct {
	cfgPath       string
	input         string
	output        string
	nsFile        string
	nameservers   []string
	tcp           bool
	authoritative bool
	recursion     bool
	timeout       time.Duration
	retries       uint
	qps           int
	maxSteps      int
	cacheSize     int
	logLevel      string
	logFormat     string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := Execute(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)

	stop()
	os.Exit(code)
}

// Execute runs the command with the provided arguments and returns the exit code.
func Execute(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	cmd := NewRootCommand()
	cmd.SetArgs(args)
	cmd.SetIn(stdin)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// NewRootCommand returns the nsecwalk command.
func NewRootCommand() *cobra.Command {
	p := new(params)

	cmd := &cobra.Command{
		Use:   "nsecwalk [flags] <domain> [domain...]",
		Short: "nsecwalk enumerates the names of DNSSEC signed zones",
		Long: `Enumerate the owner names of DNSSEC signed zones by following their NSEC chain.

Each discovered name is written on its own line in the order of the chain.
The exit code is zero when at least one name was discovered.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := p.config(cmd)
			if err != nil {
				return err
			}

			log.SetOutput(cmd.ErrOrStderr())
			if err := log.Configure(cfg.Log); err != nil {
				return err
			}

			zones, err := p.zones(cmd, args)
			if err != nil {
				return err
			}
			if len(zones) == 0 {
				return errors.New("no domain names were provided")
			}

			if p.output == "" {
				return run(cmd.Context(), cfg, zones, cmd.OutOrStdout())
			}

			f, err := os.Create(p.output)
			if err != nil {
				return fmt.Errorf("failed to open the output file %s: %w", p.output, err)
			}

			err = run(cmd.Context(), cfg, zones, f)
			if cerr := f.Close(); cerr != nil && err == nil {
				err = fmt.Errorf("failed to close the output file %s: %w", p.output, cerr)
			}
			return err
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&p.cfgPath, "config", "c", "", "path to the YAML configuration file")
	flags.StringVarP(&p.input, "input", "i", "", "file with a domain name on each line ('-' for stdin)")
	flags.StringVarP(&p.output, "output", "o", "", "file receiving the discovered names (default stdout)")
	flags.StringSliceVarP(&p.nameservers, "nameserver", "s", nil, "nameserver addresses, repeated or comma-separated")
	flags.StringVar(&p.nsFile, "nameserver-file", "", "file with a nameserver address on each line")
	flags.BoolVar(&p.tcp, "tcp", false, "send the queries over TCP")
	flags.BoolVar(&p.authoritative, "authoritative", false, "discover and query the authoritative nameservers of each zone")
	flags.BoolVar(&p.recursion, "recursion", false, "request recursion from the configured nameservers")
	flags.DurationVar(&p.timeout, "timeout", 2*time.Second, "time waited for each response")
	flags.UintVar(&p.retries, "retries", pool.DefaultRetries, "additional attempts after a transient failure")
	flags.IntVar(&p.qps, "qps", 0, "maximum queries sent per second (0 for no limit)")
	flags.IntVar(&p.maxSteps, "max-steps", 0, "maximum NSEC queries performed for each zone (0 for no limit)")
	flags.IntVar(&p.cacheSize, "cache-size", 0, "number of answers kept in memory (0 disables the cache)")
	flags.StringVar(&p.logLevel, "log-level", "info", "log level: trace, debug, info, warn or error")
	flags.StringVar(&p.logFormat, "log-format", "text", "log format: text or json")
	return cmd
}

// config builds the configuration from the file and the flags set on the command line.
func (p *params) config(cmd *cobra.Command) (*config.Config, error) {
	var err error
	var cfg *config.Config

	if p.cfgPath != "" {
		cfg, err = config.Load(p.cfgPath)
	} else {
		cfg, err = config.New()
	}
	if err != nil {
		return nil, err
	}

	changed := cmd.Flags().Changed
	if changed("nameserver") {
		cfg.Nameservers = p.nameservers
	}
	if p.nsFile != "" {
		list, err := NameserverFileList(p.nsFile)
		if err != nil {
			return nil, err
		}
		cfg.Nameservers = append(cfg.Nameservers, list...)
	}
	if changed("tcp") {
		cfg.Protocol = config.ProtocolUDP
		if p.tcp {
			cfg.Protocol = config.ProtocolTCP
		}
	}
	if changed("authoritative") {
		cfg.Authoritative = p.authoritative
	}
	if changed("recursion") {
		cfg.Recursion = p.recursion
	}
	if changed("timeout") {
		cfg.Timeout = config.Duration(p.timeout)
	}
	if changed("retries") {
		cfg.Retries = p.retries
	}
	if changed("qps") {
		cfg.QPS = p.qps
	}
	if changed("max-steps") {
		cfg.MaxSteps = p.maxSteps
	}
	if changed("cache-size") {
		cfg.CacheSize = p.cacheSize
	}
	if changed("log-level") {
		cfg.Log.Level = p.logLevel
	}
	if changed("log-format") {
		cfg.Log.Format = log.FormatType(p.logFormat)
	}
	return cfg, cfg.Validate()
}

// zones returns the domain names of the arguments followed by those of the input file.
func (p *params) zones(cmd *cobra.Command, args []string) ([]string, error) {
	readers := []io.Reader{strings.NewReader(strings.Join(args, "\n") + "\n")}

	switch p.input {
	case "":
	case "-":
		readers = append(readers, cmd.InOrStdin())
	default:
		f, err := os.Open(p.input)
		if err != nil {
			return nil, fmt.Errorf("failed to open the input file %s: %w", p.input, err)
		}
		defer f.Close()
		readers = append(readers, f)
	}

	return InputDomainNames(io.MultiReader(readers...))
}

func run(ctx context.Context, cfg *config.Config, zones []string, out io.Writer) error {
	logger := log.PrefixedLog("nsecwalk")
	ctx, _ = log.NewCtx(ctx, logger)

	p, err := newPool(cfg, logger)
	if err != nil {
		return err
	}
	defer p.Stop()

	q := queue.NewQueue()
	for _, zone := range zones {
		q.Append(zone)
	}

	var total int
	var errs *multierror.Error
	for ctx.Err() == nil {
		element, found := q.Next()
		if !found {
			break
		}

		zone, ok := element.(string)
		if !ok {
			continue
		}

		n, err := walkZone(ctx, p, zone, cfg.MaxSteps, out)
		total += n
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("%s: %w", zone, err))
		}
	}
	if err := ctx.Err(); err != nil {
		errs = multierror.Append(errs, err)
	}

	st := p.Stats()
	logger.WithFields(logrus.Fields{
		"zones":     len(zones),
		"names":     total,
		"queries":   st.Queries,
		"retries":   st.Retries,
		"cacheHits": st.CacheHits,
	}).Debug("Finished walking the zones")

	if total == 0 {
		if err := errs.ErrorOrNil(); err != nil {
			return err
		}
		return errNoNames
	}
	if errs.ErrorOrNil() != nil {
		logger.Warnf("%d of %d zones could not be walked completely", errs.Len(), len(zones))
	}
	return nil
}

func walkZone(ctx context.Context, r nsecwalk.Resolver, zone string, maxSteps int, out io.Writer) (int, error) {
	ctx, logger := log.CtxWithFields(ctx, logrus.Fields{"zone": log.EscapeInput(zone)})

	w, err := nsecwalk.NewWalker(r, zone, nsecwalk.WithMaxSteps(maxSteps))
	if err != nil {
		logger.WithError(err).Error("The domain name cannot be walked")
		return 0, err
	}

	start := time.Now()
	var found int
	for name, err := range w.Names(ctx) {
		if err != nil {
			break
		}
		if _, err := fmt.Fprintln(out, name.String()); err != nil {
			return found, fmt.Errorf("failed to write the output: %w", err)
		}
		found++
	}

	logger = logger.WithFields(logrus.Fields{
		"names":   found,
		"queries": w.Steps(),
		"elapsed": durafmt.Parse(time.Since(start)).LimitFirstN(2).String(),
	})

	switch err := w.Err(); {
	case err != nil:
		logger.WithError(err).Error(describe(err))
		return found, err
	case found == 0:
		logger.Warn("The NSEC chain closed immediately")
	default:
		logger.Info("The NSEC chain was walked")
	}
	return found, nil
}

func describe(err error) string {
	var synthetic *nsecwalk.SyntheticChainError
	var noNSEC *nsecwalk.NoNsecRecordError
	var loop *nsecwalk.ChainLoopError
	var resolution *nsecwalk.ResolutionError

	switch {
	case errors.As(err, &synthetic):
		return "The zone synthesizes its NSEC records and cannot be walked"
	case errors.As(err, &noNSEC):
		return "The zone did not provide a usable NSEC record"
	case errors.As(err, &loop):
		return "The NSEC chain did not return to its starting name"
	case errors.As(err, &resolution):
		return "The NSEC query failed"
	}
	return "The walk stopped"
}

func newPool(cfg *config.Config, logger *logrus.Entry) (*pool.Pool, error) {
	timeout := cfg.Timeout.ToDuration()
	recursion := cfg.Recursion

	list := cfg.Nameservers
	if len(list) == 0 {
		sys, err := SystemNameservers(resolvConf)
		if err != nil {
			return nil, err
		}
		list = sys
		recursion = true
	}

	var nss []*servers.Nameserver
	for _, addr := range list {
		ns := servers.NewNameserver(addr, timeout, cfg.TCP())
		if ns == nil {
			for _, n := range nss {
				n.Close()
			}
			return nil, fmt.Errorf("invalid nameserver address: %s", addr)
		}
		nss = append(nss, ns)
	}

	var sel selectors.Selector
	switch {
	case cfg.Authoritative:
		// the first nameserver bootstraps the discovery
		for _, ns := range nss[1:] {
			ns.Close()
		}
		sel = selectors.NewAuthoritative(nss[0], timeout, cfg.TCP())
		recursion = false
	case len(nss) == 1:
		sel = selectors.NewSingle(nss[0])
	default:
		sel = selectors.NewRandom(nss...)
	}

	logger.WithFields(logrus.Fields{
		"nameservers":   len(sel.All()),
		"authoritative": cfg.Authoritative,
		"recursion":     recursion,
		"protocol":      cfg.Protocol,
		"timeout":       cfg.Timeout.String(),
	}).Debug("Configured the nameservers")

	p, err := pool.New(sel,
		pool.WithQPS(cfg.QPS),
		pool.WithRetries(cfg.Retries),
		pool.WithCacheSize(cfg.CacheSize),
		pool.WithLogger(logger),
		pool.WithRecursion(recursion),
	)
	if err != nil {
		sel.Close()
		return nil, err
	}
	return p, nil
}

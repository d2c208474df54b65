// Copyright © by Jeff Foley 2017-2025. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/creasty/defaults"
	"github.com/owasp-amass/nsecwalk/log"
	"gopkg.in/yaml.v2"
)

const (
	ProtocolUDP = "udp"
	ProtocolTCP = "tcp"
)

// Config holds the settings of a walk run.
type Config struct {
	Nameservers   []string   `yaml:"nameservers"`
	Protocol      string     `yaml:"protocol" default:"udp"`
	Authoritative bool       `yaml:"authoritative" default:"false"`
	Recursion     bool       `yaml:"recursion" default:"false"`
	Timeout       Duration   `yaml:"timeout" default:"2s"`
	Retries       uint       `yaml:"retries" default:"3"`
	QPS           int        `yaml:"qps" default:"0"`
	MaxSteps      int        `yaml:"maxSteps" default:"0"`
	CacheSize     int        `yaml:"cacheSize" default:"0"`
	Log           log.Config `yaml:"log"`
}

// New returns a configuration holding the default values.
func New() (*Config, error) {
	cfg := new(Config)

	if err := defaults.Set(cfg); err != nil {
		return nil, fmt.Errorf("can't apply default values: %w", err)
	}
	return cfg, nil
}

// Load reads the YAML file at path on top of the default values.
func Load(path string) (*Config, error) {
	cfg, err := New()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("can't read config file: %w", err)
	}

	if err := cfg.Unmarshal(data); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Unmarshal applies the YAML document to the configuration and validates the result.
func (c *Config) Unmarshal(data []byte) error {
	if err := yaml.UnmarshalStrict(data, c); err != nil {
		return fmt.Errorf("wrong file structure: %w", err)
	}
	return c.Validate()
}

// Validate checks the values that cannot be expressed with the YAML types.
func (c *Config) Validate() error {
	c.Protocol = strings.ToLower(strings.TrimSpace(c.Protocol))

	switch {
	case c.Protocol != ProtocolUDP && c.Protocol != ProtocolTCP:
		return fmt.Errorf("protocol should be '%s' or '%s'", ProtocolUDP, ProtocolTCP)
	case !c.Timeout.IsAboveZero():
		return errors.New("timeout must be greater than zero")
	case c.QPS < 0:
		return errors.New("qps must not be negative")
	case c.MaxSteps < 0:
		return errors.New("maxSteps must not be negative")
	case c.CacheSize < 0:
		return errors.New("cacheSize must not be negative")
	}

	if f := log.FormatType(strings.ToLower(string(c.Log.Format))); f != log.FormatTypeText && f != log.FormatTypeJSON {
		return fmt.Errorf("log format should be '%s' or '%s'", log.FormatTypeText, log.FormatTypeJSON)
	}
	return nil
}

// TCP returns true when the nameservers are only reached over TCP.
func (c *Config) TCP() bool {
	return c.Protocol == ProtocolTCP
}

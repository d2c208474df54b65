// Copyright © by Jeff Foley 2017-2025. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/owasp-amass/nsecwalk/log"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg, err := New()
	require.NoError(t, err)

	require.Empty(t, cfg.Nameservers)
	require.Equal(t, ProtocolUDP, cfg.Protocol)
	require.False(t, cfg.Authoritative)
	require.False(t, cfg.Recursion)
	require.Equal(t, 2*time.Second, cfg.Timeout.ToDuration())
	require.Equal(t, uint(3), cfg.Retries)
	require.Zero(t, cfg.QPS)
	require.Zero(t, cfg.MaxSteps)
	require.Zero(t, cfg.CacheSize)
	require.Equal(t, "info", cfg.Log.Level)
	require.Equal(t, log.FormatTypeText, cfg.Log.Format)
	require.True(t, cfg.Log.Timestamp)
	require.NoError(t, cfg.Validate())
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(`
nameservers:
  - 192.0.2.53
  - "[2001:db8::53]:5353"
protocol: TCP
recursion: true
timeout: 500ms
retries: 1
qps: 20
maxSteps: 1000
log:
  level: debug
  format: json
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, []string{"192.0.2.53", "[2001:db8::53]:5353"}, cfg.Nameservers)
	require.True(t, cfg.TCP())
	require.True(t, cfg.Recursion)
	require.Equal(t, 500*time.Millisecond, cfg.Timeout.ToDuration())
	require.Equal(t, uint(1), cfg.Retries)
	require.Equal(t, 20, cfg.QPS)
	require.Equal(t, 1000, cfg.MaxSteps)
	require.Equal(t, "debug", cfg.Log.Level)
	require.Equal(t, log.FormatTypeJSON, cfg.Log.Format)
	// values missing from the file keep their defaults
	require.Zero(t, cfg.CacheSize)
	require.True(t, cfg.Log.Timestamp)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yml"))
	require.Error(t, err)
}

func TestUnmarshalErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{
			name: "Unknown key",
			data: "nameserver: 192.0.2.53",
		},
		{
			name: "Unknown protocol",
			data: "protocol: quic",
		},
		{
			name: "Zero timeout",
			data: "timeout: 0s",
		},
		{
			name: "Invalid timeout",
			data: "timeout: soon",
		},
		{
			name: "Negative qps",
			data: "qps: -1",
		},
		{
			name: "Negative max steps",
			data: "maxSteps: -5",
		},
		{
			name: "Negative cache size",
			data: "cacheSize: -5",
		},
		{
			name: "Unknown log format",
			data: "log:\n  format: xml",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := New()
			require.NoError(t, err)
			require.Error(t, cfg.Unmarshal([]byte(tt.data)))
		})
	}
}

func TestDuration(t *testing.T) {
	var d Duration

	require.NoError(t, d.UnmarshalText([]byte("5")))
	require.Equal(t, 5*time.Second, d.ToDuration())

	require.NoError(t, d.UnmarshalText([]byte("1m30s")))
	require.Equal(t, 90*time.Second, d.ToDuration())
	require.Equal(t, "1 minute 30 seconds", d.String())

	require.Error(t, d.UnmarshalText([]byte("later")))
}

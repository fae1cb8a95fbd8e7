// Copyright 2026 The Zaparoo Project Contributors.
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	pn532 "github.com/ZaparooProject/go-pn532-i2c"
	"github.com/mitchellh/go-homedir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Full(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
bus: /dev/i2c-3
address: 0x25
timeout: 500ms
passiveTargetTimeout: 2s
key: "A0:A1:A2:A3:A4:A5"
keyType: B
retries: 5
metricsAddr: ":9100"
debug: true
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/dev/i2c-3", cfg.Bus)
	assert.Equal(t, uint16(0x25), cfg.Address)
	assert.Equal(t, 500*time.Millisecond, cfg.Timeout)
	assert.Equal(t, 2*time.Second, cfg.PassiveTargetTimeout)
	assert.Equal(t, pn532.Key{0xA0, 0xA1, 0xA2, 0xA3, 0xA4, 0xA5}, cfg.Key)
	assert.Equal(t, pn532.KeyTypeB, cfg.KeyType)
	assert.Equal(t, 5, cfg.Retries)
	assert.Equal(t, 6, cfg.Attempts())
	assert.Equal(t, ":9100", cfg.MetricsAddr)
	assert.True(t, cfg.Debug)
	assert.Equal(t, path, cfg.Path)
}

func TestLoad_PartialKeepsDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load(writeConfig(t, "bus: /dev/i2c-0\n"))
	require.NoError(t, err)

	want := Default()
	assert.Equal(t, "/dev/i2c-0", cfg.Bus)
	assert.Equal(t, want.Address, cfg.Address)
	assert.Equal(t, want.Timeout, cfg.Timeout)
	assert.Equal(t, want.Key, cfg.Key)
	assert.Equal(t, want.KeyType, cfg.KeyType)
	assert.Equal(t, pn532.DefaultRetryAttempts, cfg.Attempts())
}

func TestConfig_AttemptsCountsTheFirstTry(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Retries = 0
	assert.Equal(t, 1, cfg.Attempts())
	cfg.Retries = 1
	assert.Equal(t, 2, cfg.Attempts())
}

func TestLoad_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "bad timeout", body: "timeout: soon\n", want: "timeout"},
		{name: "negative timeout", body: "timeout: -1s\n", want: "positive"},
		{name: "short key", body: "key: FFFF\n", want: "key"},
		{name: "bad key type", body: "keyType: C\n", want: "keyType"},
		{name: "address too large", body: "address: 0x80\n", want: "7-bit"},
		{name: "empty bus", body: "bus: \"\"\n", want: "bus"},
		{name: "negative retries", body: "retries: -1\n", want: "retries"},
		{name: "not yaml", body: "bus: [\n", want: "cannot parse"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Load(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad_ExplicitPathMustExist(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoad_MissingDefaultUsesDefaults(t *testing.T) {
	homedir.DisableCache = true
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_ExpandsHome(t *testing.T) {
	homedir.DisableCache = true
	home := t.TempDir()
	t.Setenv("HOME", home)

	dir := filepath.Join(home, ".config", "pn532")
	require.NoError(t, os.MkdirAll(dir, 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("logDir: ~/pn532-logs\n"), 0o600))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "pn532-logs"), cfg.LogDir)
	assert.Equal(t, filepath.Join(dir, "config.yaml"), cfg.Path)
}

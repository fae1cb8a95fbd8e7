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
	"errors"
	"fmt"
	"os"
	"time"

	pn532 "github.com/ZaparooProject/go-pn532-i2c"
	"github.com/mitchellh/go-homedir"
	"gopkg.in/yaml.v3"
)

// DefaultPath is where the CLI looks for its configuration
const DefaultPath = "~/.config/pn532/config.yaml"

// Config holds the CLI settings. Command line flags override file values.
type Config struct {
	Bus                  string        `yaml:"bus"`
	LogDir               string        `yaml:"logDir"`
	MetricsAddr          string        `yaml:"metricsAddr"`
	Timeout              time.Duration `yaml:"-"`
	PassiveTargetTimeout time.Duration `yaml:"-"`
	Retries              int           `yaml:"retries"`
	Address              uint16        `yaml:"address"`
	Key                  pn532.Key     `yaml:"-"`
	KeyType              pn532.KeyType `yaml:"-"`
	Debug                bool          `yaml:"debug"`

	// Path is the file the config was read from, empty for defaults
	Path string `yaml:"-"`
}

// Default returns the settings used when no file exists
func Default() *Config {
	return &Config{
		Bus:                  "/dev/i2c-1",
		Address:              0x24,
		Timeout:              pn532.DefaultReadyTimeout,
		PassiveTargetTimeout: pn532.DefaultPassiveTargetTimeout,
		Retries:              pn532.DefaultRetryAttempts - 1,
		Key:                  pn532.DefaultKeyA,
		KeyType:              pn532.KeyTypeA,
	}
}

// UnmarshalYAML reads durations and keys from their string forms
func (c *Config) UnmarshalYAML(value *yaml.Node) error {
	type tmp Config
	var s struct {
		tmp                  `yaml:",inline"`
		Timeout              string `yaml:"timeout"`
		PassiveTargetTimeout string `yaml:"passiveTargetTimeout"`
		Key                  string `yaml:"key"`
		KeyType              string `yaml:"keyType"`
	}
	s.tmp = tmp(*c)

	if err := value.Decode(&s); err != nil {
		return err
	}
	*c = Config(s.tmp)

	if s.Timeout != "" {
		d, err := parsePositiveDuration(s.Timeout)
		if err != nil {
			return fmt.Errorf("timeout: %w", err)
		}
		c.Timeout = d
	}
	if s.PassiveTargetTimeout != "" {
		d, err := parsePositiveDuration(s.PassiveTargetTimeout)
		if err != nil {
			return fmt.Errorf("passiveTargetTimeout: %w", err)
		}
		c.PassiveTargetTimeout = d
	}
	if s.Key != "" {
		key, err := pn532.ParseKey(s.Key)
		if err != nil {
			return fmt.Errorf("key: %w", err)
		}
		c.Key = key
	}
	if s.KeyType != "" {
		kt, err := pn532.ParseKeyType(s.KeyType)
		if err != nil {
			return fmt.Errorf("keyType: %w", err)
		}
		c.KeyType = kt
	}
	return nil
}

func parsePositiveDuration(s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("%q must be positive", s)
	}
	return d, nil
}

// Load reads the file at path over the defaults. An empty path means
// DefaultPath, which may be missing; an explicit path must exist.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}

	expanded, err := homedir.Expand(path)
	if err != nil {
		return nil, fmt.Errorf("failed to expand %q: %w", path, err)
	}

	cfg := Default()
	raw, err := os.ReadFile(expanded) //nolint:gosec // path is chosen by the user
	switch {
	case err == nil:
	case errors.Is(err, os.ErrNotExist) && !explicit:
		return cfg, nil
	default:
		return nil, fmt.Errorf("cannot read config file: %w", err)
	}

	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("cannot parse %s: %w", expanded, err)
	}
	cfg.Path = expanded

	if cfg.LogDir != "" {
		if cfg.LogDir, err = homedir.Expand(cfg.LogDir); err != nil {
			return nil, fmt.Errorf("failed to expand logDir: %w", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Attempts is the total number of tries for a command: the first one plus Retries
func (c *Config) Attempts() int {
	return c.Retries + 1
}

// Validate rejects settings the driver cannot use
func (c *Config) Validate() error {
	if c.Bus == "" {
		return errors.New("bus must be set")
	}
	if c.Address == 0 || c.Address > 0x7F {
		return fmt.Errorf("address 0x%02X is not a 7-bit I2C address", c.Address)
	}
	if c.Retries < 0 {
		return fmt.Errorf("retries must not be negative, got %d", c.Retries)
	}
	return nil
}

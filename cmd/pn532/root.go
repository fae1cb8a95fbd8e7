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

package main

import (
	"fmt"
	"io"
	"time"

	pn532 "github.com/ZaparooProject/go-pn532-i2c"
	"github.com/ZaparooProject/go-pn532-i2c/internal/config"
	"github.com/spf13/cobra"
)

// simBus selects the built-in simulator with a MIFARE Classic 1K card
const simBus = "sim"

type cli struct {
	settings   *config.Config
	errOut     io.Writer
	configPath string
	bus        string
	logDir     string
	key        string
	keyType    string
	timeout    time.Duration
	debug      bool
}

func newRootCmd() *cobra.Command {
	return (&cli{}).rootCmd()
}

func (c *cli) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "pn532",
		Short: "Talk to a PN532 NFC module over I2C.",
		Long: `pn532 drives a PN532 on an I2C bus: firmware and status queries, card
detection and MIFARE Classic block access. Settings are read from
` + config.DefaultPath + ` and overridden by flags.
Use --bus auto to take the first module found, or --bus sim to run
against a simulated module.`,
		SilenceErrors:     true,
		SilenceUsage:      true,
		PersistentPreRunE: c.loadSettings,
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&c.bus, "bus", "b", "", "I2C bus, e.g. /dev/i2c-1, \"auto\" or \"sim\"")
	flags.StringVarP(&c.configPath, "config", "c", "", "Configuration file (default "+config.DefaultPath+")")
	flags.BoolVarP(&c.debug, "debug", "d", false, "Debug logging (trace) to stderr")
	flags.StringVar(&c.logDir, "log-file", "", "Write a session log into this directory (\"\" for the current one)")
	flags.DurationVarP(&c.timeout, "timeout", "t", 0, "Response timeout")
	flags.StringVarP(&c.key, "key", "k", "", "MIFARE key as 12 hex digits")
	flags.StringVar(&c.keyType, "key-type", "", "MIFARE key type, A or B")

	root.AddCommand(
		c.newFirmwareCmd(),
		c.newStatusCmd(),
		c.newDetectCmd(),
		c.newScanCmd(),
		c.newReadCmd(),
		c.newWriteCmd(),
		c.newSleepCmd(),
	)
	return root
}

// loadSettings reads the config file and applies flags on top
func (c *cli) loadSettings(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("bus") {
		cfg.Bus = c.bus
	}
	if flags.Changed("debug") {
		cfg.Debug = c.debug
	}
	if flags.Changed("log-file") {
		cfg.LogDir = c.logDir
		if cfg.LogDir == "" {
			cfg.LogDir = "."
		}
	}
	if flags.Changed("timeout") {
		if c.timeout <= 0 {
			return fmt.Errorf("timeout must be positive, got %v", c.timeout)
		}
		cfg.Timeout = c.timeout
	}
	if flags.Changed("key") {
		if cfg.Key, err = pn532.ParseKey(c.key); err != nil {
			return err
		}
	}
	if flags.Changed("key-type") {
		if cfg.KeyType, err = pn532.ParseKeyType(c.keyType); err != nil {
			return err
		}
	}

	c.settings = cfg
	c.errOut = cmd.ErrOrStderr()
	return cfg.Validate()
}

// printFailure reports a command error. With debug on, the wire trace of
// the failed transaction follows it.
func (c *cli) printFailure(w io.Writer, err error) {
	_, _ = fmt.Fprintf(w, "Error: %v\n", err)
	if c.settings == nil || !c.settings.Debug {
		return
	}
	if te := pn532.GetTrace(err); te != nil {
		_, _ = fmt.Fprint(w, te.FormatTrace())
	}
}

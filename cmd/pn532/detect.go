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
	"context"
	"fmt"
	"strings"

	"github.com/ZaparooProject/go-pn532-i2c/detection"
	simtest "github.com/ZaparooProject/go-pn532-i2c/internal/testing"
	"github.com/spf13/cobra"
	periphi2c "periph.io/x/conn/v3/i2c"
)

// autoBus makes openSession use the first module detection finds
const autoBus = "auto"

func parseMode(s string) (detection.Mode, error) {
	switch strings.ToLower(s) {
	case "passive":
		return detection.Passive, nil
	case "safe":
		return detection.Safe, nil
	case "full":
		return detection.Full, nil
	default:
		return 0, fmt.Errorf("unknown detection mode %q (want passive, safe or full)", s)
	}
}

// detectOptions builds detection options from the settings. With --bus sim
// only the simulator is probed.
func (c *cli) detectOptions(mode detection.Mode, ignore []string) *detection.Options {
	opts := detection.DefaultOptions()
	opts.Mode = mode
	opts.Address = c.settings.Address
	opts.ProbeTimeout = c.settings.Timeout
	opts.IgnorePaths = ignore
	if c.settings.Bus == simBus {
		opts.Buses = []string{simBus}
		opts.Open = func(string) (periphi2c.BusCloser, error) {
			sim := simtest.NewVirtualPN532()
			sim.SetAddress(c.settings.Address)
			return sim, nil
		}
	}
	return &opts
}

// detectBus returns the path of the first module that answers
func (c *cli) detectBus(ctx context.Context) (string, error) {
	devices, err := detection.Detect(ctx, c.detectOptions(detection.Safe, nil))
	if err != nil {
		return "", fmt.Errorf("auto-detect: %w", err)
	}
	return devices[0].Path, nil
}

func (c *cli) newDetectCmd() *cobra.Command {
	var (
		mode   string
		ignore []string
	)

	cmd := &cobra.Command{
		Use:   "detect",
		Short: "Probe I2C buses for a PN532",
		Long: `detect asks every I2C bus periph knows about for a PN532 at the configured
address. passive only lists buses, safe sends GetFirmwareVersion and full
also runs SAMConfiguration.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := parseMode(mode)
			if err != nil {
				return err
			}

			devices, err := detection.Detect(cmd.Context(), c.detectOptions(m, ignore))
			if err != nil {
				return err
			}
			for _, d := range devices {
				okColor.Fprintln(cmd.OutOrStdout(), d.String())
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&mode, "mode", "safe", "Detection mode: passive, safe or full")
	cmd.Flags().StringSliceVar(&ignore, "ignore", nil, "Bus paths to skip")
	return cmd
}

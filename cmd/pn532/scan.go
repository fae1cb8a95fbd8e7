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
	"net"
	"time"

	pn532 "github.com/ZaparooProject/go-pn532-i2c"
	"github.com/ZaparooProject/go-pn532-i2c/metrics"
	"github.com/ZaparooProject/go-pn532-i2c/polling"
	"github.com/spf13/cobra"
)

func (c *cli) newScanCmd() *cobra.Command {
	var (
		watch       bool
		interval    time.Duration
		metricsAddr string
	)

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Look for a MIFARE card",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if watch && interval <= 0 {
				return fmt.Errorf("interval must be positive, got %v", interval)
			}
			addr := metricsAddr
			if !cmd.Flags().Changed("metrics-addr") {
				addr = c.settings.MetricsAddr
			}

			var m metrics.Metrics
			if addr != "" {
				var (
					ln  net.Listener
					err error
				)
				if m, ln, err = serveMetrics(addr); err != nil {
					return err
				}
				defer func() { _ = ln.Close() }()
				infoColor.Fprintf(cmd.ErrOrStderr(), "Serving metrics on %s/metrics\n", ln.Addr())
			}

			s, err := c.openSession(cmd, m)
			if err != nil {
				return err
			}
			defer s.Close()

			if !watch {
				target, err := s.firstTarget(cmd.Context())
				if err != nil {
					return err
				}
				printTarget(s, target)
				return nil
			}
			return c.watch(cmd.Context(), s, interval)
		},
	}

	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Keep scanning and report cards as they come and go")
	cmd.Flags().DurationVar(&interval, "interval", 250*time.Millisecond, "Pause between scans with --watch")
	cmd.Flags().StringVarP(&metricsAddr, "metrics-addr", "m", "", "Serve Prometheus metrics on this address")
	return cmd
}

// watch reports cards as they come and go until ctx ends
func (c *cli) watch(ctx context.Context, s *session, interval time.Duration) error {
	cfg := polling.DefaultConfig()
	cfg.PollInterval = interval
	cfg.PollTimeout = c.settings.PassiveTargetTimeout
	cfg.CardRemovalTimeout = max(cfg.CardRemovalTimeout, 2*interval)

	watcher := polling.NewSession(s.device, cfg, polling.WithLogger(s.log))
	defer func() { _ = watcher.Close() }()

	watcher.OnCardDetected = func(t *pn532.Target) error {
		s.metrics.TargetDetected(s.bus)
		printTarget(s, t)
		return nil
	}
	watcher.OnCardRemoved = func() {
		_, _ = fmt.Fprintln(s.out, "Card removed")
	}
	watcher.OnPollError = func(err error) {
		warnColor.Fprintf(s.out, "Scan failed: %v\n", err)
	}

	infoColor.Fprintln(s.out, "Watching for cards. Press Ctrl+C to stop...")
	return watcher.Start(ctx)
}

func printTarget(s *session, t *pn532.Target) {
	okColor.Fprintf(s.out, "Found %s\n", t)
	if m := t.Manufacturer(); m != pn532.ManufacturerUnknown {
		_, _ = fmt.Fprintf(s.out, "  manufacturer: %s\n", m)
	}
	if !t.IsMifareClassic() {
		warnColor.Fprintln(s.out, "  not a MIFARE Classic card; block commands will fail")
	}
}

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
	"io"
	"net"
	"net/http"

	pn532 "github.com/ZaparooProject/go-pn532-i2c"
	simtest "github.com/ZaparooProject/go-pn532-i2c/internal/testing"
	"github.com/ZaparooProject/go-pn532-i2c/metrics"
	pn532prom "github.com/ZaparooProject/go-pn532-i2c/metrics/prometheus"
	"github.com/ZaparooProject/go-pn532-i2c/transport/i2c"
	"github.com/fatih/color"
	"github.com/loopholelabs/logging/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

var (
	okColor   = color.New(color.FgHiGreen)
	warnColor = color.New(color.FgYellow)
	infoColor = color.New(color.FgCyan)
)

// session is one open module plus everything that has to be closed with it
type session struct {
	device  *pn532.Device
	metrics metrics.Metrics
	log     types.Logger
	out     io.Writer
	bus     string
	closers []func() error
}

// openSession opens the configured bus and initialises the module
func (c *cli) openSession(cmd *cobra.Command, m metrics.Metrics) (*session, error) {
	cfg := c.settings
	if m == nil {
		m = metrics.Noop{}
	}
	s := &session{metrics: m, out: cmd.OutOrStdout(), bus: cfg.Bus}

	var log types.Logger
	if cfg.Debug {
		log = pn532.NewDebugLogger(cmd.ErrOrStderr())
	}
	if cfg.LogDir != "" {
		sl, err := pn532.OpenSessionLog(cfg.LogDir)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, sl.Close)
		log = sl.Logger()
		infoColor.Fprintf(cmd.ErrOrStderr(), "Session log: %s\n", sl.Path())
	}

	s.log = log

	tcfg := i2c.DefaultConfig()
	tcfg.Timeout = cfg.Timeout
	tcfg.Address = cfg.Address
	opts := []i2c.Option{i2c.WithConfig(tcfg), i2c.WithMetrics(m)}
	if log != nil {
		opts = append(opts, i2c.WithLogger(log))
	}

	if cfg.Bus == autoBus {
		bus, err := c.detectBus(cmd.Context())
		if err != nil {
			s.Close()
			return nil, err
		}
		infoColor.Fprintf(cmd.ErrOrStderr(), "Using %s\n", bus)
		s.bus = bus
	}

	var tr *i2c.Transport
	if cfg.Bus == simBus {
		sim := simtest.NewVirtualPN532()
		sim.SetAddress(cfg.Address)
		sim.SetTag(simtest.NewVirtualMIFARE1K(nil))
		tr = i2c.NewWithBus(sim, opts...)
	} else {
		var err error
		if tr, err = i2c.New(s.bus, opts...); err != nil {
			s.Close()
			return nil, err
		}
	}

	device, err := pn532.New(tr,
		pn532.WithLogger(log),
		pn532.WithPassiveTargetTimeout(cfg.PassiveTargetTimeout),
	)
	if err != nil {
		_ = tr.Close()
		s.Close()
		return nil, err
	}
	s.device = device
	s.closers = append([]func() error{device.Close}, s.closers...)

	if err := c.retry(cmd.Context(), device.Init); err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to initialise PN532 on %s: %w", s.bus, err)
	}
	return s, nil
}

// Close releases the module, then the session log
func (s *session) Close() {
	for _, closeFn := range s.closers {
		_ = closeFn()
	}
	s.closers = nil
}

// retry runs fn under the configured retry budget. NACKs and timeouts are
// retried; card errors are not.
func (c *cli) retry(ctx context.Context, fn pn532.RetryableFunc) error {
	rc := pn532.DefaultRetryConfig()
	rc.MaxAttempts = c.settings.Attempts()
	rc.OnRetry = func(attempt int, err error) {
		warnColor.Fprintf(c.errOut, "Retrying after attempt %d: %v\n", attempt, err)
	}
	return pn532.RetryWithConfig(ctx, rc, fn)
}

// firstTarget waits for a card and returns it
func (s *session) firstTarget(ctx context.Context) (*pn532.Target, error) {
	targets, err := s.device.ListPassiveTarget(ctx, 0)
	if err != nil {
		return nil, err
	}
	if len(targets) == 0 {
		return nil, fmt.Errorf("no card found on %s", s.bus)
	}
	s.metrics.TargetDetected(s.bus)
	return targets[0], nil
}

// serveMetrics registers the driver metrics on a private registry and
// serves it on addr in the background. Closing the listener stops serving.
func serveMetrics(addr string) (metrics.Metrics, net.Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, nil, fmt.Errorf("metrics listener: %w", err)
	}

	reg := prometheus.NewRegistry()
	m := pn532prom.New(reg, pn532prom.DefaultConfig())

	// Add the default go metrics
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(
		reg,
		promhttp.HandlerOpts{
			EnableOpenMetrics: true,
			Registry:          reg,
		},
	))

	go func() {
		_ = http.Serve(ln, mux) //nolint:gosec // local metrics endpoint
	}()
	return m, ln, nil
}

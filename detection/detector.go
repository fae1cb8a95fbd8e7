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

// Package detection finds PN532 modules on the host's I2C buses.
package detection

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	pn532 "github.com/ZaparooProject/go-pn532-i2c"
	"github.com/ZaparooProject/go-pn532-i2c/transport/i2c"
	periphi2c "periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

// Mode represents the level of invasiveness for device detection
type Mode int

const (
	// Passive lists buses without putting anything on the wire
	Passive Mode = iota
	// Safe sends GetFirmwareVersion
	Safe
	// Full also runs SAMConfiguration, which turns the RF field on
	Full
)

// Confidence represents the confidence level of device detection
type Confidence int

const (
	// Low means the bus exists but nothing was asked
	Low Confidence = iota
	// Medium means something at the address answered GetFirmwareVersion
	Medium
	// High means the answer names a PN532 that accepted SAM configuration
	High
)

func (c Confidence) String() string {
	switch c {
	case Low:
		return "low"
	case Medium:
		return "medium"
	case High:
		return "high"
	default:
		return "unknown"
	}
}

// DeviceInfo represents a detected PN532 device
type DeviceInfo struct {
	Firmware *pn532.FirmwareVersion
	// Path is the bus name as accepted by i2c.New, e.g. "/dev/i2c-1"
	Path       string
	Address    uint16
	Confidence Confidence
}

func (d DeviceInfo) String() string {
	s := fmt.Sprintf("i2c device at %s:0x%02X (confidence: %s)", d.Path, d.Address, d.Confidence)
	if d.Firmware != nil {
		s += fmt.Sprintf(" PN5%02x firmware %s", d.Firmware.IC, d.Firmware.Version())
	}
	return s
}

// Opener opens a bus by name
type Opener func(name string) (periphi2c.BusCloser, error)

// Options configures the detection behavior
type Options struct {
	// Open defaults to i2creg.Open after host.Init
	Open Opener
	// Buses to probe. Empty means every bus periph has registered.
	Buses []string
	// IgnorePaths are skipped, matched after cleaning
	IgnorePaths []string
	// Timeout bounds the whole detection run
	Timeout time.Duration
	// ProbeTimeout bounds each PN532 command
	ProbeTimeout time.Duration
	CacheTTL     time.Duration
	Mode         Mode
	Address      uint16
	EnableCache  bool
}

// DefaultOptions returns sensible default detection options
func DefaultOptions() Options {
	return Options{
		Mode:         Safe,
		Address:      i2c.Address,
		Timeout:      5 * time.Second,
		ProbeTimeout: 200 * time.Millisecond,
		EnableCache:  true,
		CacheTTL:     30 * time.Second,
	}
}

var (
	// ErrNoDevicesFound indicates no PN532 devices were detected
	ErrNoDevicesFound = errors.New("no PN532 devices found")
	// ErrDetectionTimeout indicates detection timed out
	ErrDetectionTimeout = errors.New("detection timeout")
)

type probeResult struct {
	err    error
	device *DeviceInfo
	index  int
}

// Detect probes each bus in parallel and returns what answered, in bus
// order. Probe failures on individual buses are only returned when nothing
// was found anywhere.
func Detect(ctx context.Context, opts *Options) ([]DeviceInfo, error) {
	if opts == nil {
		def := DefaultOptions()
		opts = &def
	}
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	buses, err := busNames(opts)
	if err != nil {
		return nil, err
	}

	var (
		found   = make([]*DeviceInfo, len(buses))
		errs    []error
		pending int
		results = make(chan probeResult, len(buses))
	)
	for i, name := range buses {
		if IsPathIgnored(name, opts.IgnorePaths) {
			continue
		}
		if opts.EnableCache && opts.Mode != Passive {
			if d, ok := getCached(name, opts); ok {
				found[i] = d
				continue
			}
		}
		pending++
		go func() {
			d, err := probe(ctx, name, opts)
			results <- probeResult{index: i, device: d, err: err}
		}()
	}

	for range pending {
		select {
		case res := <-results:
			name := buses[res.index]
			switch {
			case res.err != nil:
				errs = append(errs, fmt.Errorf("%s: %w", name, res.err))
				clearCached(name, opts)
			case res.device != nil:
				found[res.index] = res.device
				if opts.EnableCache && opts.Mode != Passive {
					setCached(name, opts, res.device)
				}
			default:
				clearCached(name, opts)
			}
		case <-ctx.Done():
			return nil, ErrDetectionTimeout
		}
	}

	var devices []DeviceInfo
	for _, d := range found {
		if d != nil {
			devices = append(devices, *d)
		}
	}
	if len(devices) > 0 {
		return devices, nil
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return nil, ErrNoDevicesFound
}

func busNames(opts *Options) ([]string, error) {
	if len(opts.Buses) > 0 {
		return opts.Buses, nil
	}
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialise periph host: %w", err)
	}
	refs := i2creg.All()
	names := make([]string, 0, len(refs))
	for _, ref := range refs {
		names = append(names, ref.Name)
	}
	return names, nil
}

// probe returns a nil device when the bus opened but nothing PN532-like
// answered at the address.
func probe(ctx context.Context, name string, opts *Options) (*DeviceInfo, error) {
	info := &DeviceInfo{Path: name, Address: opts.Address, Confidence: Low}
	if opts.Mode == Passive {
		return info, nil
	}

	open := opts.Open
	if open == nil {
		open = func(name string) (periphi2c.BusCloser, error) {
			if _, err := host.Init(); err != nil {
				return nil, err
			}
			return i2creg.Open(name)
		}
	}
	bus, err := open(name)
	if err != nil {
		return nil, err
	}
	defer func() { _ = bus.Close() }()

	cfg := i2c.DefaultConfig()
	cfg.Address = opts.Address
	cfg.Timeout = opts.ProbeTimeout
	cfg.AckRetries = 2
	device, err := pn532.New(i2c.NewWithBus(bus, i2c.WithConfig(cfg)))
	if err != nil {
		return nil, err
	}

	fw, err := device.FirmwareVersion(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		// Silence or garbage at the address is not a PN532.
		return nil, nil //nolint:nilnil // no device is not an error
	}
	info.Firmware = fw
	info.Confidence = Medium

	if opts.Mode == Full && fw.IsPN532() {
		if err := device.SetMode(ctx, pn532.SAMModeNormal); err == nil {
			info.Confidence = High
		}
	}
	return info, nil
}

// IsPathIgnored reports whether devicePath matches one of ignorePaths after cleaning
func IsPathIgnored(devicePath string, ignorePaths []string) bool {
	if devicePath == "" {
		return false
	}
	clean := filepath.Clean(devicePath)
	for _, p := range ignorePaths {
		if p != "" && (p == devicePath || filepath.Clean(p) == clean) {
			return true
		}
	}
	return false
}

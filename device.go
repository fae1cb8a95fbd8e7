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

package pn532

import (
	"context"
	"fmt"
	"time"

	"github.com/ZaparooProject/go-pn532-i2c/internal/syncutil"
	"github.com/loopholelabs/logging/types"
)

// DeviceConfig contains configuration options for the Device
type DeviceConfig struct {
	// PassiveTargetTimeout bounds ListPassiveTarget when it is called with a zero timeout
	PassiveTargetTimeout time.Duration
	// WakeupDelay is how long Wakeup waits for the oscillator to settle
	WakeupDelay time.Duration
	// SAMMode is the mode Init configures
	SAMMode SAMMode
}

// DefaultDeviceConfig returns default device configuration
func DefaultDeviceConfig() *DeviceConfig {
	return &DeviceConfig{
		PassiveTargetTimeout: DefaultPassiveTargetTimeout,
		WakeupDelay:          DefaultWakeupDelay,
		SAMMode:              SAMModeNormal,
	}
}

// Device is a session with one PN532.
//
// Device is meant to be driven by a single goroutine. The power-down flag is
// guarded so that misuse from several goroutines stays memory safe, but
// commands from concurrent callers interleave on the bus in no particular order.
type Device struct {
	transport Transport
	config    *DeviceConfig
	log       types.Logger
	firmware  *FirmwareVersion
	sleep     func(ctx context.Context, d time.Duration) error
	mu        syncutil.Mutex
	asleep    bool
}

// New creates a new PN532 device with the given transport. The device owns
// the transport and closes it in Close.
func New(transport Transport, opts ...Option) (*Device, error) {
	if transport == nil {
		return nil, fmt.Errorf("pn532: %w", ErrTransportClosed)
	}

	device := &Device{
		transport: transport,
		config:    DefaultDeviceConfig(),
		sleep:     sleepContext,
	}

	for _, opt := range opts {
		if err := opt(device); err != nil {
			return nil, err
		}
	}

	return device, nil
}

// Transport returns the underlying transport
func (d *Device) Transport() Transport {
	return d.transport
}

// Firmware returns the version cached by Init, or nil before Init
func (d *Device) Firmware() *FirmwareVersion {
	return d.firmware
}

// Asleep reports whether the module was put in power down and not woken yet
func (d *Device) Asleep() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.asleep
}

func (d *Device) setAsleep(v bool) {
	d.mu.Lock()
	d.asleep = v
	d.mu.Unlock()
}

// SetTimeout sets the default response timeout on the transport
func (d *Device) SetTimeout(timeout time.Duration) error {
	if err := d.transport.SetTimeout(timeout); err != nil {
		return fmt.Errorf("failed to set timeout on transport: %w", err)
	}
	return nil
}

// Close closes the device connection
func (d *Device) Close() error {
	if d.transport != nil {
		if err := d.transport.Close(); err != nil {
			return fmt.Errorf("failed to close transport: %w", err)
		}
	}
	return nil
}

// exchange runs one command cycle. It refuses to touch the bus while the
// module is powered down. A zero timeout uses the transport default.
func (d *Device) exchange(ctx context.Context, cmd Command, args []byte, timeout time.Duration) ([]byte, error) {
	if d.Asleep() {
		return nil, fmt.Errorf("%s: %w", cmd, ErrDeviceAsleep)
	}

	d.logCommand(cmd, args)

	var (
		payload []byte
		err     error
	)
	if timeout > 0 {
		payload, err = d.transport.SendCommandWithTimeout(ctx, cmd, args, timeout)
	} else {
		payload, err = d.transport.SendCommand(ctx, cmd, args)
	}

	d.logResult(cmd, payload, err)
	return payload, err
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if !sleepWithContext(ctx, d) {
		return ctx.Err()
	}
	return nil
}

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

// Package i2c provides the I2C transport for the PN532.
//
// Every command runs as one transaction through an explicit state machine:
//
//	Idle -> Sent -> AwaitingAck -> Polling -> FrameReceived
//	                     any step -> Failed
//
// The PN532 prefixes every I2C read with a status byte whose bit 0 signals
// that output is ready, and restarts its output buffer on each read
// transaction, so frames are always read in a single transaction.
package i2c

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	pn532 "github.com/ZaparooProject/go-pn532-i2c"
	"github.com/ZaparooProject/go-pn532-i2c/internal/syncutil"
	"github.com/ZaparooProject/go-pn532-i2c/metrics"
	"github.com/loopholelabs/logging/types"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"
)

const (
	// Address is the PN532 7-bit I2C address. The datasheet's 0x48 is the
	// 8-bit write address; periph.io and the Linux kernel expect 0x48 >> 1.
	Address = 0x24

	// MaxSpeed is the fastest clock the PN532 accepts
	MaxSpeed = 400 * physic.KiloHertz

	statusReady = 0x01
)

// Config holds the engine's timing and sizing
type Config struct {
	// Timeout bounds WaitReady for commands sent without an explicit timeout
	Timeout time.Duration
	// AckRetries is how many status+ACK reads are attempted before ErrAckTimeout
	AckRetries int
	// AckRetryDelay is the fixed pause between ACK reads
	AckRetryDelay time.Duration
	// PollInterval is the pause between ready-status polls
	PollInterval time.Duration
	// MaxResponseLength is the largest response payload read in one go
	MaxResponseLength int
	// Speed is applied to the bus on construction; zero leaves it alone
	Speed physic.Frequency
	// Address is the 7-bit device address
	Address uint16
}

// DefaultConfig returns the engine defaults
func DefaultConfig() Config {
	return Config{
		Timeout:           pn532.DefaultReadyTimeout,
		AckRetries:        pn532.DefaultAckRetries,
		AckRetryDelay:     pn532.DefaultAckRetryDelay,
		PollInterval:      pn532.DefaultReadyPollInterval,
		MaxResponseLength: pn532.DefaultResponseLength,
		Speed:             MaxSpeed,
		Address:           Address,
	}
}

// Option configures a Transport
type Option func(*Transport)

// WithConfig replaces the engine configuration
func WithConfig(cfg Config) Option {
	return func(t *Transport) {
		t.config = cfg
	}
}

// WithTimeout sets the default response timeout
func WithTimeout(d time.Duration) Option {
	return func(t *Transport) {
		t.config.Timeout = d
	}
}

// WithClock replaces the time source, mainly for tests
func WithClock(c Clock) Option {
	return func(t *Transport) {
		t.clock = c
	}
}

// WithLogger logs every state transition at debug level
func WithLogger(log types.Logger) Option {
	return func(t *Transport) {
		t.log = log
	}
}

// WithMetrics reports transaction events to m
func WithMetrics(m metrics.Metrics) Option {
	return func(t *Transport) {
		t.metrics = m
	}
}

// Transport implements pn532.Transport over an I2C bus
type Transport struct {
	dev     *i2c.Dev
	closer  io.Closer // set when the transport opened the bus itself
	clock   Clock
	log     types.Logger
	metrics metrics.Metrics
	busName string
	last    []State
	config  Config
	mu      syncutil.Mutex
	closed  bool
}

// parseI2CPath splits "/dev/i2c-1:0x24" into the bus and a 7-bit address.
// The address is 0 when the path has no suffix.
func parseI2CPath(path string) (string, uint16, error) {
	bus, suffix, found := strings.Cut(path, ":")
	if !found {
		return bus, 0, nil
	}
	addr, err := strconv.ParseUint(suffix, 0, 7)
	if err != nil || addr == 0 {
		return "", 0, fmt.Errorf("invalid I2C address %q in %q", suffix, path)
	}
	return bus, uint16(addr), nil
}

// New opens the named bus through periph.io and returns a transport that
// owns it. An address suffix on busName overrides Config.Address.
func New(busName string, opts ...Option) (*Transport, error) {
	name, addr, err := parseI2CPath(busName)
	if err != nil {
		return nil, err
	}
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize periph host: %w", err)
	}

	bus, err := i2creg.Open(name)
	if err != nil {
		return nil, fmt.Errorf("failed to open I2C bus %s: %w", busName, err)
	}

	t := NewWithBus(bus, opts...)
	if addr != 0 {
		t.config.Address = addr
		t.dev.Addr = addr
	}
	t.closer = bus
	t.busName = busName
	return t, nil
}

// NewWithBus returns a transport on an already open bus. Close does not
// close the bus.
func NewWithBus(bus i2c.Bus, opts ...Option) *Transport {
	t := &Transport{
		clock:   systemClock{},
		metrics: metrics.Noop{},
		config:  DefaultConfig(),
		busName: bus.String(),
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.metrics == nil {
		t.metrics = metrics.Noop{}
	}
	if t.config.Address == 0 {
		t.config.Address = Address
	}

	t.dev = &i2c.Dev{Addr: t.config.Address, Bus: bus}

	if t.config.Speed > 0 {
		// Not every bus supports changing speed; the default is fine.
		if err := bus.SetSpeed(t.config.Speed); err != nil && t.log != nil {
			t.log.Debug().Str("bus", t.busName).Err(err).Msg("bus speed unchanged")
		}
	}
	return t
}

// SendCommand implements pn532.Transport
func (t *Transport) SendCommand(ctx context.Context, cmd pn532.Command, args []byte) ([]byte, error) {
	return t.SendCommandWithTimeout(ctx, cmd, args, 0)
}

// SendCommandWithTimeout implements pn532.Transport. A zero timeout uses Config.Timeout.
func (t *Transport) SendCommandWithTimeout(
	ctx context.Context, cmd pn532.Command, args []byte, timeout time.Duration,
) ([]byte, error) {
	if !cmd.Valid() {
		return nil, pn532.NewEncodingError("SendCommand", fmt.Sprintf("invalid command %v", cmd))
	}
	if timeout <= 0 {
		timeout = t.config.Timeout
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil, pn532.ErrTransportClosed
	}
	return t.run(ctx, cmd, args, timeout)
}

// SendACK writes a raw ACK frame
func (t *Transport) SendACK(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return pn532.ErrTransportClosed
	}
	if t.log != nil {
		t.log.Debug().Str("bus", t.busName).Msg("writing ACK")
	}
	if err := t.dev.Tx(ackFrame(), nil); err != nil {
		return pn532.NewTransportError("SendACK", t.busName, err, pn532.ErrorTypeTransient)
	}
	return nil
}

// WaitReady polls the status byte every retryDelay until bit 0 is set or
// timeout elapses. It never fails; a cancelled ctx reads as not ready.
func (t *Transport) WaitReady(ctx context.Context, timeout, retryDelay time.Duration) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return false
	}
	return t.waitReady(ctx, timeout, retryDelay)
}

// SetTimeout sets the default response timeout
func (t *Transport) SetTimeout(timeout time.Duration) error {
	if timeout <= 0 {
		return fmt.Errorf("invalid timeout %v", timeout)
	}
	t.mu.Lock()
	t.config.Timeout = timeout
	t.mu.Unlock()
	return nil
}

// Close releases the bus when the transport opened it
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}
	t.closed = true
	if t.closer != nil {
		if err := t.closer.Close(); err != nil {
			return fmt.Errorf("failed to close I2C bus: %w", err)
		}
	}
	return nil
}

// IsConnected returns true until Close
func (t *Transport) IsConnected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return !t.closed
}

// Name returns the bus name used in errors, logs and metrics
func (t *Transport) Name() string {
	return t.busName
}

// LastTransaction returns the states the most recent command passed through
func (t *Transport) LastTransaction() []State {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]State, len(t.last))
	copy(out, t.last)
	return out
}

var _ pn532.Transport = (*Transport)(nil)

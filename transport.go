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
)

// Transport runs PN532 command/response cycles over a bus.
// transport/i2c provides the I2C implementation.
type Transport interface {
	// SendCommand runs one full command cycle and returns the response
	// payload with the TFI and response code stripped.
	SendCommand(ctx context.Context, cmd Command, args []byte) ([]byte, error)

	// SendCommandWithTimeout is SendCommand with an explicit bound on how
	// long to wait for the module to become ready with its response.
	SendCommandWithTimeout(ctx context.Context, cmd Command, args []byte, timeout time.Duration) ([]byte, error)

	// SendACK writes a raw ACK frame. The PN532 treats it as an abort of the
	// command in progress, and it wakes the chip from power down.
	SendACK(ctx context.Context) error

	// SetTimeout sets the default response timeout
	SetTimeout(timeout time.Duration) error

	// Close releases the bus
	Close() error

	// IsConnected returns true until Close is called
	IsConnected() bool
}

// MockTransport is an in-memory Transport for exercising the command layer
// without a bus. Responses are payloads as SendCommand would return them.
type MockTransport struct {
	responses map[Command][]byte
	errorMap  map[Command]error
	calls     []MockCall
	acks      int
	timeout   time.Duration
	mu        syncutil.Mutex
	connected bool
}

// MockCall records one SendCommand invocation
type MockCall struct {
	Args    []byte
	Cmd     Command
	Timeout time.Duration
}

// NewMockTransport creates a new mock transport
func NewMockTransport() *MockTransport {
	return &MockTransport{
		connected: true,
		timeout:   time.Second,
		responses: make(map[Command][]byte),
		errorMap:  make(map[Command]error),
	}
}

// SendCommand implements Transport
func (m *MockTransport) SendCommand(ctx context.Context, cmd Command, args []byte) ([]byte, error) {
	return m.SendCommandWithTimeout(ctx, cmd, args, 0)
}

// SendCommandWithTimeout implements Transport
func (m *MockTransport) SendCommandWithTimeout(
	ctx context.Context, cmd Command, args []byte, timeout time.Duration,
) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.connected {
		return nil, ErrTransportClosed
	}
	if !cmd.Valid() {
		return nil, NewEncodingError("SendCommand", fmt.Sprintf("invalid command %v", cmd))
	}

	argsCopy := make([]byte, len(args))
	copy(argsCopy, args)
	m.calls = append(m.calls, MockCall{Cmd: cmd, Args: argsCopy, Timeout: timeout})

	if err, ok := m.errorMap[cmd]; ok {
		return nil, err
	}
	if resp, ok := m.responses[cmd]; ok {
		out := make([]byte, len(resp))
		copy(out, resp)
		return out, nil
	}
	return []byte{}, nil
}

// SendACK implements Transport
func (m *MockTransport) SendACK(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.connected {
		return ErrTransportClosed
	}
	m.acks++
	return nil
}

// SetTimeout implements Transport
func (m *MockTransport) SetTimeout(timeout time.Duration) error {
	m.mu.Lock()
	m.timeout = timeout
	m.mu.Unlock()
	return nil
}

// Close implements Transport
func (m *MockTransport) Close() error {
	m.mu.Lock()
	m.connected = false
	m.mu.Unlock()
	return nil
}

// IsConnected implements Transport
func (m *MockTransport) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

// SetResponse configures the payload returned for a command
func (m *MockTransport) SetResponse(cmd Command, response []byte) {
	m.mu.Lock()
	m.responses[cmd] = response
	m.mu.Unlock()
}

// SetError configures an error to be returned for a command
func (m *MockTransport) SetError(cmd Command, err error) {
	m.mu.Lock()
	m.errorMap[cmd] = err
	m.mu.Unlock()
}

// ClearError removes error injection for a command
func (m *MockTransport) ClearError(cmd Command) {
	m.mu.Lock()
	delete(m.errorMap, cmd)
	m.mu.Unlock()
}

// Calls returns every recorded SendCommand call in order
func (m *MockTransport) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MockCall, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallCount returns how many times a command was sent
func (m *MockTransport) CallCount(cmd Command) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if c.Cmd == cmd {
			n++
		}
	}
	return n
}

// ACKCount returns how many raw ACK frames were written
func (m *MockTransport) ACKCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.acks
}

var _ Transport = (*MockTransport)(nil)

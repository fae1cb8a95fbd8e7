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

package i2c

import (
	"context"
	"errors"
	"fmt"
	"time"

	pn532 "github.com/ZaparooProject/go-pn532-i2c"
	"github.com/ZaparooProject/go-pn532-i2c/internal/frame"
)

// State is a step of the command transaction
type State int

const (
	StateIdle State = iota
	StateSent
	StateAwaitingAck
	StatePolling
	StateFrameReceived
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSent:
		return "sent"
	case StateAwaitingAck:
		return "awaiting-ack"
	case StatePolling:
		return "polling"
	case StateFrameReceived:
		return "frame-received"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ackReadLength is the status byte plus a 6-byte ACK frame
const ackReadLength = 1 + 6

func ackFrame() []byte {
	out := make([]byte, len(frame.AckFrame))
	copy(out, frame.AckFrame)
	return out
}

// transaction carries the per-command bookkeeping. Callers hold t.mu.
type transaction struct {
	t     *Transport
	trace *pn532.TraceBuffer
	cmd   pn532.Command
}

func (tx *transaction) enter(s State) {
	tx.t.last = append(tx.t.last, s)
	if tx.t.log != nil {
		tx.t.log.Debug().
			Str("bus", tx.t.busName).
			Str("command", tx.cmd.String()).
			Str("state", s.String()).
			Msg("transaction state")
	}
}

// run drives one command through the state machine
func (t *Transport) run(ctx context.Context, cmd pn532.Command, args []byte, timeout time.Duration) ([]byte, error) {
	t.last = t.last[:0]
	tx := &transaction{t: t, cmd: cmd, trace: pn532.NewTraceBuffer(t.busName, 16, t.clock.Now)}
	tx.enter(StateIdle)

	start := t.clock.Now()
	t.metrics.CommandSent(t.busName, cmd.String())

	payload, err := t.transact(ctx, tx, args, timeout)
	t.metrics.TransactionDuration(t.busName, cmd.String(), t.clock.Now().Sub(start))
	if err != nil {
		tx.enter(StateFailed)
		t.metrics.CommandFailed(t.busName, cmd.String(), failureReason(err))
		return nil, tx.trace.WrapError(err)
	}
	return payload, nil
}

func (t *Transport) transact(
	ctx context.Context, tx *transaction, args []byte, timeout time.Duration,
) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	raw, err := frame.Encode(tx.cmd.Code(), args)
	if err != nil {
		return nil, err
	}

	if err := t.send(tx, raw, args); err != nil {
		return nil, err
	}
	if err := t.awaitAck(ctx, tx); err != nil {
		return nil, err
	}

	if !t.waitReady(ctx, timeout, t.config.PollInterval) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		tx.trace.RecordTimeout(fmt.Sprintf("no response after %v", timeout))
		return nil, pn532.NewReadTimeoutError("waitReady", t.busName)
	}

	return t.readResponse(tx)
}

func (t *Transport) send(tx *transaction, raw, args []byte) error {
	if off, ok := pn532.AuthKeyOffset(tx.cmd, args); ok {
		from := frame.ParamsOffset + off
		tx.trace.RecordTXMasked(raw, tx.cmd.String(), from, from+pn532.MifareKeySize)
	} else {
		tx.trace.RecordTX(raw, tx.cmd.String())
	}
	if err := t.dev.Tx(raw, nil); err != nil {
		return pn532.NewTransportError("send", t.busName, err, pn532.ErrorTypeTransient)
	}
	tx.enter(StateSent)
	return nil
}

// awaitAck reads status+ACK up to AckRetries times. A NACK fails at once;
// anything else that is not an ACK is retried.
func (t *Transport) awaitAck(ctx context.Context, tx *transaction) error {
	tx.enter(StateAwaitingAck)

	attempts := t.config.AckRetries
	if attempts < 1 {
		attempts = 1
	}

	buf := make([]byte, ackReadLength)
	for i := 0; i < attempts; i++ {
		if i > 0 {
			t.metrics.AckRetry(t.busName)
			if err := t.clock.Sleep(ctx, t.config.AckRetryDelay); err != nil {
				return err
			}
		}

		clear(buf)
		if err := t.dev.Tx(nil, buf); err != nil {
			tx.trace.RecordRX(nil, fmt.Sprintf("ACK read error: %v", err))
			continue
		}
		tx.trace.RecordRX(buf, "ACK")

		if buf[0]&statusReady == 0 {
			continue
		}
		reply := buf[1:]
		if frame.IsAck(reply) {
			tx.enter(StatePolling)
			return nil
		}
		if frame.IsNack(reply) {
			t.metrics.Nack(t.busName)
			return pn532.NewNegativeAckError("awaitAck", t.busName)
		}
	}

	tx.trace.RecordTimeout(fmt.Sprintf("no ACK after %d reads", attempts))
	return pn532.NewAckTimeoutError("awaitAck", t.busName)
}

// waitReady checks the status byte first and sleeps between checks, so an
// already ready chip costs one read. Read errors count as not ready.
func (t *Transport) waitReady(ctx context.Context, timeout, retryDelay time.Duration) bool {
	deadline := t.clock.Now().Add(timeout)
	status := make([]byte, 1)

	for {
		if ctx.Err() != nil {
			return false
		}
		status[0] = 0
		if err := t.dev.Tx(nil, status); err == nil && status[0]&statusReady != 0 {
			return true
		}
		if !t.clock.Now().Before(deadline) {
			return false
		}
		if err := t.clock.Sleep(ctx, retryDelay); err != nil {
			return false
		}
	}
}

// readResponse reads the whole response frame in one transaction
func (t *Transport) readResponse(tx *transaction) ([]byte, error) {
	size := 1 + t.config.MaxResponseLength + frame.Overhead + 1
	buf := frame.GetBuffer(size)
	defer frame.PutBuffer(buf)

	if err := t.dev.Tx(nil, buf); err != nil {
		return nil, pn532.NewTransportError("readResponse", t.busName, err, pn532.ErrorTypeTransient)
	}
	tx.trace.RecordRX(buf, "response")

	if buf[0]&statusReady == 0 {
		return nil, pn532.NewReadTimeoutError("readResponse", t.busName)
	}

	raw, err := frame.Locate(buf[1:])
	if err != nil {
		t.metrics.FrameError(t.busName)
		return nil, err
	}

	code, payload, err := frame.Decode(raw)
	if err != nil {
		if errors.Is(err, pn532.ErrFrameCorrupt) {
			t.metrics.FrameError(t.busName)
		}
		return nil, err
	}

	if code != tx.cmd.Response() {
		return nil, pn532.NewInvalidResponseError("readResponse",
			fmt.Sprintf("response code 0x%02X, want 0x%02X", code, tx.cmd.Response()))
	}

	tx.enter(StateFrameReceived)
	return payload, nil
}

// failureReason maps an error to a low-cardinality metrics label
func failureReason(err error) string {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	case errors.Is(err, pn532.ErrNegativeAck):
		return "nack"
	case errors.Is(err, pn532.ErrAckTimeout):
		return "ack_timeout"
	case errors.Is(err, pn532.ErrReadTimeout):
		return "read_timeout"
	case errors.Is(err, pn532.ErrFrameCorrupt):
		return "frame_corrupt"
	case errors.Is(err, pn532.ErrUnexpectedDirection):
		return "direction"
	case errors.Is(err, pn532.ErrInvalidResponse):
		return "invalid_response"
	case errors.Is(err, pn532.ErrCommandFailed):
		return "error_frame"
	case errors.Is(err, pn532.ErrEncoding):
		return "encoding"
	default:
		return "bus"
	}
}

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
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	pn532 "github.com/ZaparooProject/go-pn532-i2c"
	"github.com/ZaparooProject/go-pn532-i2c/internal/frame"
	simtest "github.com/ZaparooProject/go-pn532-i2c/internal/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder counts metric events
type recorder struct {
	failures map[string]int
	mu       sync.Mutex
	sent     int
	retries  int
	nacks    int
	frames   int
	timings  int
}

func newRecorder() *recorder {
	return &recorder{failures: make(map[string]int)}
}

func (r *recorder) CommandSent(string, string) {
	r.mu.Lock()
	r.sent++
	r.mu.Unlock()
}

func (r *recorder) CommandFailed(_, _, reason string) {
	r.mu.Lock()
	r.failures[reason]++
	r.mu.Unlock()
}

func (r *recorder) AckRetry(string) {
	r.mu.Lock()
	r.retries++
	r.mu.Unlock()
}

func (r *recorder) Nack(string) {
	r.mu.Lock()
	r.nacks++
	r.mu.Unlock()
}

func (r *recorder) FrameError(string) {
	r.mu.Lock()
	r.frames++
	r.mu.Unlock()
}

func (r *recorder) TransactionDuration(string, string, time.Duration) {
	r.mu.Lock()
	r.timings++
	r.mu.Unlock()
}

func (*recorder) TargetDetected(string) {}

func newSimTransport(t *testing.T, opts ...Option) (*Transport, *simtest.VirtualPN532, *simtest.FakeClock) {
	t.Helper()
	sim := simtest.NewVirtualPN532()
	clock := simtest.NewFakeClock()
	opts = append([]Option{WithClock(clock)}, opts...)
	tr := NewWithBus(sim, opts...)
	t.Cleanup(func() { _ = tr.Close() })
	return tr, sim, clock
}

func totalSleep(clock *simtest.FakeClock) time.Duration {
	var d time.Duration
	for _, s := range clock.Sleeps() {
		d += s
	}
	return d
}

func TestSendCommand_FirmwareVersion(t *testing.T) {
	t.Parallel()

	tr, sim, _ := newSimTransport(t)

	payload, err := tr.SendCommand(context.Background(), pn532.CmdGetFirmwareVersion, nil)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x32, 0x01, 0x06, 0x07}, payload)

	assert.Equal(t, []State{StateIdle, StateSent, StateAwaitingAck, StatePolling, StateFrameReceived},
		tr.LastTransaction())

	writes := sim.Writes()
	require.Len(t, writes, 1, "no ACK is sent after the response")
	assert.Equal(t, []byte{0x00, 0x00, 0xFF, 0x02, 0xFE, 0xD4, 0x02, 0x2A, 0x00}, writes[0])
}

func TestSendCommand_ListPassiveTargetFrame(t *testing.T) {
	t.Parallel()

	tr, sim, _ := newSimTransport(t)
	sim.SetTag(simtest.NewVirtualMIFARE1K(nil))

	_, err := tr.SendCommand(context.Background(), pn532.CmdInListPassiveTarget, []byte{0x01, 0x00})
	require.NoError(t, err)

	want := []byte{0x00, 0x00, 0xFF, 0x04, 0xFC, 0xD4, 0x4A, 0x01, 0x00, 0xE1, 0x00}
	assert.Equal(t, want, sim.Writes()[0])
}

func TestSendCommand_SlowResponse(t *testing.T) {
	t.Parallel()

	tr, sim, clock := newSimTransport(t)
	sim.SetResponseDelay(4)

	_, err := tr.SendCommand(context.Background(), pn532.CmdGetFirmwareVersion, nil)
	require.NoError(t, err)
	assert.Equal(t, 4*pn532.DefaultReadyPollInterval, totalSleep(clock))
}

func TestSendCommand_NACKFailsWithoutRetry(t *testing.T) {
	t.Parallel()

	rec := newRecorder()
	tr, sim, clock := newSimTransport(t, WithMetrics(rec))
	sim.InjectNACK()

	_, err := tr.SendCommand(context.Background(), pn532.CmdGetFirmwareVersion, nil)
	require.ErrorIs(t, err, pn532.ErrNegativeAck)
	assert.True(t, pn532.IsRetryable(err))
	assert.Empty(t, clock.Sleeps())
	assert.Len(t, sim.Writes(), 1)
	assert.Equal(t, StateFailed, tr.LastTransaction()[len(tr.LastTransaction())-1])

	assert.Equal(t, 1, rec.nacks)
	assert.Equal(t, 1, rec.failures["nack"])
}

func TestSendCommand_AckTimeout(t *testing.T) {
	t.Parallel()

	rec := newRecorder()
	tr, sim, clock := newSimTransport(t, WithMetrics(rec))
	sim.DropNextACK()

	_, err := tr.SendCommand(context.Background(), pn532.CmdGetFirmwareVersion, nil)
	require.ErrorIs(t, err, pn532.ErrAckTimeout)

	// Six reads, five pauses between them.
	assert.Len(t, clock.Sleeps(), pn532.DefaultAckRetries-1)
	for _, d := range clock.Sleeps() {
		assert.Equal(t, pn532.DefaultAckRetryDelay, d)
	}
	assert.Equal(t, pn532.DefaultAckRetries-1, rec.retries)
	assert.Equal(t, 1, rec.failures["ack_timeout"])

	// Trace offsets follow the injected clock.
	trace := pn532.GetTrace(err)
	require.NotNil(t, trace)
	require.NotEmpty(t, trace.Trace)
	assert.Zero(t, trace.Trace[0].Offset)
	last := trace.Trace[len(trace.Trace)-1]
	assert.Equal(t, pn532.TraceTimeout, last.Direction)
	assert.Equal(t, totalSleep(clock), last.Offset)
}

func TestSendCommand_AckReadErrorsAreRetried(t *testing.T) {
	t.Parallel()

	tr, sim, clock := newSimTransport(t)
	sim.InjectReadErrors(2)

	payload, err := tr.SendCommand(context.Background(), pn532.CmdGetFirmwareVersion, nil)
	require.NoError(t, err)
	assert.Len(t, payload, 4)
	assert.Len(t, clock.Sleeps(), 2)
}

func TestSendCommand_ReadTimeout(t *testing.T) {
	t.Parallel()

	rec := newRecorder()
	tr, _, clock := newSimTransport(t, WithMetrics(rec))

	// No card: the chip ACKs and then never becomes ready.
	_, err := tr.SendCommandWithTimeout(context.Background(), pn532.CmdInListPassiveTarget,
		[]byte{0x01, 0x00}, 100*time.Millisecond)
	require.ErrorIs(t, err, pn532.ErrReadTimeout)
	assert.GreaterOrEqual(t, totalSleep(clock), 100*time.Millisecond)
	assert.Equal(t, 1, rec.failures["read_timeout"])

	trace := pn532.GetTrace(err)
	require.NotNil(t, trace)
	assert.Equal(t, "sim-i2c", trace.Bus)
	assert.Contains(t, trace.FormatTrace(), "TIMEOUT")
}

func TestSendCommand_DefaultTimeout(t *testing.T) {
	t.Parallel()

	tr, _, clock := newSimTransport(t, WithTimeout(40*time.Millisecond))

	_, err := tr.SendCommand(context.Background(), pn532.CmdInListPassiveTarget, []byte{0x01, 0x00})
	require.ErrorIs(t, err, pn532.ErrReadTimeout)
	assert.Less(t, totalSleep(clock), time.Second)
}

func TestSendCommand_BadResponses(t *testing.T) {
	t.Parallel()

	hostFrame, err := frame.Encode(0x03, []byte{0x32, 0x01, 0x06, 0x07})
	require.NoError(t, err)
	wrongCode, err := frame.EncodeResponse(0x05, []byte{0x00, 0x00, 0x00})
	require.NoError(t, err)

	tests := []struct {
		setup   func(*simtest.VirtualPN532)
		wantErr error
		name    string
		reason  string
	}{
		{
			name:    "checksum",
			setup:   func(s *simtest.VirtualPN532) { s.InjectChecksumError() },
			wantErr: pn532.ErrFrameCorrupt,
			reason:  "frame_corrupt",
		},
		{
			name:    "host direction",
			setup:   func(s *simtest.VirtualPN532) { s.InjectResponse(hostFrame) },
			wantErr: pn532.ErrUnexpectedDirection,
			reason:  "direction",
		},
		{
			name:    "error frame",
			setup:   func(s *simtest.VirtualPN532) { s.InjectResponse([]byte{0x00, 0x00, 0xFF, 0x01, 0xFF, 0x7F, 0x81, 0x00}) },
			wantErr: pn532.ErrCommandFailed,
			reason:  "error_frame",
		},
		{
			name:    "wrong response code",
			setup:   func(s *simtest.VirtualPN532) { s.InjectResponse(wrongCode) },
			wantErr: pn532.ErrInvalidResponse,
			reason:  "invalid_response",
		},
		{
			name:    "truncated",
			setup:   func(s *simtest.VirtualPN532) { s.InjectResponse([]byte{0x00, 0x00, 0xFF, 0x40, 0xC0, 0xD5}) },
			wantErr: pn532.ErrFrameCorrupt,
			reason:  "frame_corrupt",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec := newRecorder()
			tr, sim, _ := newSimTransport(t, WithMetrics(rec))
			tt.setup(sim)

			_, err := tr.SendCommand(context.Background(), pn532.CmdGetFirmwareVersion, nil)
			require.ErrorIs(t, err, tt.wantErr)
			assert.False(t, pn532.IsRetryable(err))
			assert.Equal(t, 1, rec.failures[tt.reason])
			assert.NotNil(t, pn532.GetTrace(err))
		})
	}
}

func TestSendCommand_ErrorFrameIsPN532Error(t *testing.T) {
	t.Parallel()

	tr, _, _ := newSimTransport(t)

	// An out-of-range SAM mode draws a syntax error frame.
	_, err := tr.SendCommand(context.Background(), pn532.CmdSAMConfiguration, []byte{0x09})
	var pe *pn532.PN532Error
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, byte(0x7F), pe.ErrorCode)
}

func TestSendCommand_InvalidCommand(t *testing.T) {
	t.Parallel()

	tr, sim, _ := newSimTransport(t)
	_, err := tr.SendCommand(context.Background(), pn532.Command{}, nil)
	require.ErrorIs(t, err, pn532.ErrEncoding)
	assert.Empty(t, sim.Writes())
}

func TestSendCommand_TooManyParams(t *testing.T) {
	t.Parallel()

	tr, sim, _ := newSimTransport(t)
	_, err := tr.SendCommand(context.Background(), pn532.CmdInDataExchange, make([]byte, 300))
	require.ErrorIs(t, err, pn532.ErrEncoding)
	assert.Empty(t, sim.Writes())
}

func TestSendCommand_Cancelled(t *testing.T) {
	t.Parallel()

	tr, sim, _ := newSimTransport(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := tr.SendCommand(ctx, pn532.CmdGetFirmwareVersion, nil)
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, sim.Writes())
}

func TestSendCommand_Logging(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	tr, _, _ := newSimTransport(t, WithLogger(pn532.NewDebugLogger(&buf)))

	_, err := tr.SendCommand(context.Background(), pn532.CmdGetFirmwareVersion, nil)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "awaiting-ack")
	assert.Contains(t, buf.String(), "frame-received")
}

func TestWaitReady(t *testing.T) {
	t.Parallel()

	t.Run("ready immediately", func(t *testing.T) {
		t.Parallel()
		tr, sim, clock := newSimTransport(t)
		raw, err := frame.Encode(0x02, nil)
		require.NoError(t, err)
		require.NoError(t, sim.Tx(simtest.DefaultAddress, raw, nil))

		assert.True(t, tr.WaitReady(context.Background(), time.Second, 5*time.Millisecond))
		assert.Empty(t, clock.Sleeps())
	})

	t.Run("never ready", func(t *testing.T) {
		t.Parallel()
		tr, sim, clock := newSimTransport(t)
		sim.SetStuck(true)

		assert.False(t, tr.WaitReady(context.Background(), 50*time.Millisecond, 5*time.Millisecond))
		assert.Len(t, clock.Sleeps(), 10)
	})

	t.Run("bus errors read as not ready", func(t *testing.T) {
		t.Parallel()
		tr, sim, _ := newSimTransport(t)
		sim.InjectReadErrors(100)
		assert.False(t, tr.WaitReady(context.Background(), 20*time.Millisecond, 5*time.Millisecond))
	})

	t.Run("cancelled", func(t *testing.T) {
		t.Parallel()
		tr, _, _ := newSimTransport(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		assert.False(t, tr.WaitReady(ctx, time.Second, 5*time.Millisecond))
	})
}

func TestState_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "awaiting-ack", StateAwaitingAck.String())
	assert.Equal(t, "state(42)", State(42).String())
}

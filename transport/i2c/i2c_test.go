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
	"testing"
	"time"

	pn532 "github.com/ZaparooProject/go-pn532-i2c"
	"github.com/ZaparooProject/go-pn532-i2c/internal/frame"
	simtest "github.com/ZaparooProject/go-pn532-i2c/internal/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/physic"
)

func TestParseI2CPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input   string
		bus     string
		addr    uint16
		wantErr bool
	}{
		{input: "/dev/i2c-1", bus: "/dev/i2c-1"},
		{input: "/dev/i2c-1:0x24", bus: "/dev/i2c-1", addr: 0x24},
		{input: "/dev/i2c-1:36", bus: "/dev/i2c-1", addr: 0x24},
		{input: "1", bus: "1"},
		{input: "", bus: ""},
		{input: "/dev/i2c-1:0x80", wantErr: true},
		{input: "/dev/i2c-1:0", wantErr: true},
		{input: "/dev/i2c-1:pn", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			bus, addr, err := parseI2CPath(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.bus, bus)
			assert.Equal(t, tt.addr, addr)
		})
	}
}

func TestNew_BadAddressSuffix(t *testing.T) {
	t.Parallel()

	_, err := New("/dev/i2c-1:0x99")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid I2C address")
}

func TestNewWithBus(t *testing.T) {
	t.Parallel()

	sim := simtest.NewVirtualPN532()
	tr := NewWithBus(sim)

	assert.Equal(t, MaxSpeed, sim.Speed())
	assert.Equal(t, "sim-i2c", tr.Name())
	assert.True(t, tr.IsConnected())
	assert.Equal(t, DefaultConfig(), tr.config)
}

func TestNewWithBus_CustomAddressAndSpeed(t *testing.T) {
	t.Parallel()

	sim := simtest.NewVirtualPN532()
	sim.SetAddress(0x25)
	cfg := DefaultConfig()
	cfg.Address = 0x25
	cfg.Speed = 100 * physic.KiloHertz
	tr := NewWithBus(sim, WithConfig(cfg), WithClock(simtest.NewFakeClock()))

	assert.Equal(t, 100*physic.KiloHertz, sim.Speed())
	_, err := tr.SendCommand(context.Background(), pn532.CmdGetFirmwareVersion, nil)
	require.NoError(t, err)
}

func TestSetTimeout(t *testing.T) {
	t.Parallel()

	tr, _, _ := newSimTransport(t)
	require.NoError(t, tr.SetTimeout(250*time.Millisecond))
	assert.Equal(t, 250*time.Millisecond, tr.config.Timeout)
	require.Error(t, tr.SetTimeout(0))
	require.Error(t, tr.SetTimeout(-time.Second))
}

func TestClose(t *testing.T) {
	t.Parallel()

	tr, sim, _ := newSimTransport(t)
	require.NoError(t, tr.Close())
	require.NoError(t, tr.Close(), "second close is a no-op")
	assert.False(t, tr.IsConnected())

	_, err := tr.SendCommand(context.Background(), pn532.CmdGetFirmwareVersion, nil)
	require.ErrorIs(t, err, pn532.ErrTransportClosed)
	require.ErrorIs(t, tr.SendACK(context.Background()), pn532.ErrTransportClosed)
	assert.False(t, tr.WaitReady(context.Background(), time.Second, time.Millisecond))

	// A bus passed in by the caller stays open.
	require.NoError(t, sim.Tx(simtest.DefaultAddress, nil, make([]byte, 1)))
}

func TestClose_OwnedBus(t *testing.T) {
	t.Parallel()

	sim := simtest.NewVirtualPN532()
	tr := NewWithBus(sim)
	tr.closer = sim

	require.NoError(t, tr.Close())
	require.Error(t, sim.Tx(simtest.DefaultAddress, nil, make([]byte, 1)))
}

func TestSendACK(t *testing.T) {
	t.Parallel()

	tr, sim, _ := newSimTransport(t)
	require.NoError(t, tr.SendACK(context.Background()))

	writes := sim.Writes()
	require.Len(t, writes, 1)
	assert.Equal(t, frame.AckFrame, writes[0])

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, tr.SendACK(ctx), context.Canceled)
}

func TestJitteryBus_AckRetriesAbsorbGlitches(t *testing.T) {
	t.Parallel()

	sim := simtest.NewVirtualPN532()
	bus := simtest.NewJitteryBus(sim, simtest.JitterConfig{FailFirstReads: 3, Seed: 99})
	rec := newRecorder()
	tr := NewWithBus(bus, WithClock(simtest.NewFakeClock()), WithMetrics(rec))

	payload, err := tr.SendCommand(context.Background(), pn532.CmdGetFirmwareVersion, nil)
	require.NoError(t, err)
	assert.Len(t, payload, 4)
	assert.Equal(t, 3, rec.retries)
	assert.Equal(t, 3, bus.Failures())
}

func TestJitteryBus_DeadBus(t *testing.T) {
	t.Parallel()

	sim := simtest.NewVirtualPN532()
	bus := simtest.NewJitteryBus(sim, simtest.JitterConfig{ReadFailureRate: 1, Seed: 99})
	tr := NewWithBus(bus, WithClock(simtest.NewFakeClock()))

	_, err := tr.SendCommand(context.Background(), pn532.CmdGetFirmwareVersion, nil)
	require.ErrorIs(t, err, pn532.ErrAckTimeout)
}

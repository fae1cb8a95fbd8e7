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

package testing

import (
	"testing"

	"github.com/ZaparooProject/go-pn532-i2c/internal/frame"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/physic"
)

func TestJitteryBus_PassThrough(t *testing.T) {
	t.Parallel()

	sim := NewVirtualPN532()
	bus := NewJitteryBus(sim, JitterConfig{Seed: 12345})

	raw, err := frame.Encode(0x02, nil)
	require.NoError(t, err)
	require.NoError(t, bus.Tx(DefaultAddress, raw, nil))

	ack := make([]byte, 7)
	require.NoError(t, bus.Tx(DefaultAddress, nil, ack))
	assert.Equal(t, frame.AckFrame, ack[1:])
	assert.Equal(t, 0, bus.Failures())
	assert.Equal(t, "jittery(sim-i2c)", bus.String())
}

func TestJitteryBus_FailFirstReads(t *testing.T) {
	t.Parallel()

	sim := NewVirtualPN532()
	bus := NewJitteryBus(sim, JitterConfig{FailFirstReads: 2, Seed: 1})
	buf := make([]byte, 1)

	require.ErrorIs(t, bus.Tx(DefaultAddress, nil, buf), ErrJitter)
	require.ErrorIs(t, bus.Tx(DefaultAddress, nil, buf), ErrJitter)
	require.NoError(t, bus.Tx(DefaultAddress, nil, buf))
	assert.Equal(t, 2, bus.Failures())
}

func TestJitteryBus_FailedWriteNeverReachesBackend(t *testing.T) {
	t.Parallel()

	sim := NewVirtualPN532()
	bus := NewJitteryBus(sim, JitterConfig{WriteFailureRate: 1, Seed: 7})

	raw, err := frame.Encode(0x02, nil)
	require.NoError(t, err)
	require.ErrorIs(t, bus.Tx(DefaultAddress, raw, nil), ErrJitter)
	assert.Empty(t, sim.Writes())
}

func TestJitteryBus_SeededPatternRepeats(t *testing.T) {
	t.Parallel()

	pattern := func() []bool {
		bus := NewJitteryBus(NewVirtualPN532(), JitterConfig{ReadFailureRate: 0.5, Seed: 42})
		out := make([]bool, 32)
		for i := range out {
			out[i] = bus.Tx(DefaultAddress, nil, make([]byte, 1)) != nil
		}
		return out
	}

	assert.Equal(t, pattern(), pattern())
}

func TestJitteryBus_SetSpeed(t *testing.T) {
	t.Parallel()

	sim := NewVirtualPN532()
	bus := NewJitteryBus(sim, DefaultJitterConfig())
	require.NoError(t, bus.SetSpeed(100*physic.KiloHertz))
	assert.Equal(t, 100*physic.KiloHertz, sim.Speed())
}

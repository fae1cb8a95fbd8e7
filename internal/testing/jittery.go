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
	"errors"
	"math/rand/v2"
	"time"

	"github.com/ZaparooProject/go-pn532-i2c/internal/syncutil"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
)

// ErrJitter is returned for transactions the JitteryBus chooses to fail
var ErrJitter = errors.New("simulated bus glitch")

// JitterConfig configures the behavior of JitteryBus
type JitterConfig struct {
	// MaxLatency adds a random real delay before each transaction
	MaxLatency time.Duration
	// ReadFailureRate is the chance, 0 to 1, that a read fails
	ReadFailureRate float64
	// WriteFailureRate is the chance, 0 to 1, that a write fails
	WriteFailureRate float64
	// FailFirstReads fails that many reads before the random rates apply
	FailFirstReads int
	// Seed makes the failure pattern repeatable when non-zero
	Seed uint64
}

// DefaultJitterConfig returns light noise: occasional read glitches, no latency
func DefaultJitterConfig() JitterConfig {
	return JitterConfig{
		ReadFailureRate: 0.05,
	}
}

// JitteryBus wraps an i2c.Bus to simulate a noisy bus: long wires, missing
// pull-ups or clock stretching the host controller does not handle. A
// failed transaction never reaches the backend.
type JitteryBus struct {
	backend i2c.Bus
	rng     *rand.Rand
	config  JitterConfig
	mu      syncutil.Mutex
	reads   int
	failed  int
}

// NewJitteryBus wraps backend with jitter simulation
func NewJitteryBus(backend i2c.Bus, config JitterConfig) *JitteryBus {
	var rng *rand.Rand
	if config.Seed != 0 {
		rng = rand.New(rand.NewPCG(config.Seed, config.Seed^0xDEADBEEF)) //nolint:gosec // Test code, not crypto
	} else {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())) //nolint:gosec // Test code, not crypto
	}

	return &JitteryBus{
		backend: backend,
		config:  config,
		rng:     rng,
	}
}

// String implements i2c.Bus
func (j *JitteryBus) String() string {
	return "jittery(" + j.backend.String() + ")"
}

// SetSpeed implements i2c.Bus
func (j *JitteryBus) SetSpeed(f physic.Frequency) error {
	return j.backend.SetSpeed(f) //nolint:wrapcheck // Pass-through wrapper
}

// Tx implements i2c.Bus
func (j *JitteryBus) Tx(addr uint16, w, r []byte) error {
	j.mu.Lock()
	delay := time.Duration(0)
	if j.config.MaxLatency > 0 {
		delay = time.Duration(j.rng.Int64N(int64(j.config.MaxLatency) + 1))
	}
	fail := j.shouldFail(len(w) > 0, len(r) > 0)
	if fail {
		j.failed++
	}
	j.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	if fail {
		return ErrJitter
	}
	return j.backend.Tx(addr, w, r) //nolint:wrapcheck // Pass-through wrapper
}

func (j *JitteryBus) shouldFail(write, read bool) bool {
	if read {
		j.reads++
		if j.reads <= j.config.FailFirstReads {
			return true
		}
		if j.config.ReadFailureRate > 0 && j.rng.Float64() < j.config.ReadFailureRate {
			return true
		}
	}
	if write && j.config.WriteFailureRate > 0 && j.rng.Float64() < j.config.WriteFailureRate {
		return true
	}
	return false
}

// Failures returns how many transactions were failed
func (j *JitteryBus) Failures() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.failed
}

var _ i2c.Bus = (*JitteryBus)(nil)

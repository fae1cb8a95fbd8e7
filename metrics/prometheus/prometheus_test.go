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

package prometheus

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gather(t *testing.T, reg *prometheus.Registry) map[string]float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)

	out := make(map[string]float64)
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			switch {
			case m.GetCounter() != nil:
				out[mf.GetName()] += m.GetCounter().GetValue()
			case m.GetHistogram() != nil:
				out[mf.GetName()] += float64(m.GetHistogram().GetSampleCount())
			}
		}
	}
	return out
}

func TestMetrics(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	met := New(reg, nil)

	met.CommandSent("/dev/i2c-1", "GetFirmwareVersion")
	met.CommandSent("/dev/i2c-1", "InListPassiveTarget")
	met.CommandFailed("/dev/i2c-1", "InListPassiveTarget", "timeout")
	met.AckRetry("/dev/i2c-1")
	met.AckRetry("/dev/i2c-1")
	met.Nack("/dev/i2c-1")
	met.FrameError("/dev/i2c-1")
	met.TargetDetected("/dev/i2c-1")
	met.TransactionDuration("/dev/i2c-1", "GetFirmwareVersion", 3*time.Millisecond)

	got := gather(t, reg)
	assert.InDelta(t, 2, got["pn532_i2c_commands_total"], 0)
	assert.InDelta(t, 1, got["pn532_i2c_command_errors_total"], 0)
	assert.InDelta(t, 2, got["pn532_i2c_ack_retries_total"], 0)
	assert.InDelta(t, 1, got["pn532_i2c_nacks_total"], 0)
	assert.InDelta(t, 1, got["pn532_i2c_frame_errors_total"], 0)
	assert.InDelta(t, 1, got["pn532_i2c_targets_detected_total"], 0)
	assert.InDelta(t, 1, got["pn532_i2c_transaction_duration_seconds"], 0)
}

func TestNew_CustomNamespace(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	cfg := DefaultConfig()
	cfg.Namespace = "reader"
	met := New(reg, cfg)
	met.Nack("sim")

	got := gather(t, reg)
	assert.InDelta(t, 1, got["reader_i2c_nacks_total"], 0)
}

func TestNew_DoubleRegisterPanics(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	New(reg, nil)
	assert.Panics(t, func() { New(reg, nil) })
}

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

package polling

import (
	"context"

	pn532 "github.com/ZaparooProject/go-pn532-i2c"
	"github.com/ZaparooProject/go-pn532-i2c/internal/syncutil"
)

// DeviceRecoverer brings the module back into a usable state after the host
// slept or the bus misbehaved.
type DeviceRecoverer interface {
	AttemptRecovery(ctx context.Context) error
}

// DefaultRecoverer re-runs Device.Init, waking the module first if the
// driver still believes it is powered down.
type DefaultRecoverer struct {
	device *pn532.Device
	clock  Clock
	config SleepRecoveryConfig
	mu     syncutil.Mutex
}

// NewDefaultRecoverer returns a recoverer for device. Non-positive attempt
// and backoff values fall back to DefaultSleepRecoveryConfig.
func NewDefaultRecoverer(device *pn532.Device, cfg SleepRecoveryConfig, clock Clock) *DefaultRecoverer {
	def := DefaultSleepRecoveryConfig()
	if cfg.MaxRecoveryAttempts <= 0 {
		cfg.MaxRecoveryAttempts = def.MaxRecoveryAttempts
	}
	if cfg.RecoveryBackoff <= 0 {
		cfg.RecoveryBackoff = def.RecoveryBackoff
	}
	if clock == nil {
		clock = systemClock{}
	}
	return &DefaultRecoverer{device: device, config: cfg, clock: clock}
}

// AttemptRecovery tries up to MaxRecoveryAttempts times and returns the last error
func (r *DefaultRecoverer) AttemptRecovery(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var lastErr error
	for attempt := range r.config.MaxRecoveryAttempts {
		if attempt > 0 {
			if err := r.clock.Sleep(ctx, r.config.RecoveryBackoff); err != nil {
				return err
			}
		}

		if r.device.Asleep() {
			if err := r.device.Wakeup(ctx); err != nil {
				lastErr = err
				continue
			}
		}
		if lastErr = r.device.Init(ctx); lastErr == nil {
			return nil
		}
	}
	return lastErr
}

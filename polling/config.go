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

import "time"

// SleepRecoveryConfig configures re-initialisation after the host has been
// suspended. A gap between polls much longer than PollInterval means the
// module may have lost power or its SAM configuration in the meantime.
type SleepRecoveryConfig struct {
	Enabled bool

	// TimeDiscontinuityThreshold is how far past PollInterval a gap must run
	// before it counts as a sleep.
	TimeDiscontinuityThreshold time.Duration

	MaxRecoveryAttempts int
	RecoveryBackoff     time.Duration
}

// DefaultSleepRecoveryConfig returns the defaults used by DefaultConfig
func DefaultSleepRecoveryConfig() SleepRecoveryConfig {
	return SleepRecoveryConfig{
		Enabled:                    true,
		TimeDiscontinuityThreshold: 2 * time.Second,
		MaxRecoveryAttempts:        3,
		RecoveryBackoff:            500 * time.Millisecond,
	}
}

// DetectSleep reports whether elapsed exceeds pollInterval by more than the threshold
func (cfg SleepRecoveryConfig) DetectSleep(elapsed, pollInterval time.Duration) bool {
	if !cfg.Enabled {
		return false
	}
	return elapsed > pollInterval+cfg.TimeDiscontinuityThreshold
}

// Config holds polling configuration options
type Config struct {
	// PollInterval is the pause between two InListPassiveTarget calls
	PollInterval time.Duration
	// PollTimeout bounds each InListPassiveTarget. Zero uses the device default.
	PollTimeout time.Duration
	// CardRemovalTimeout is how long a card may go unseen before it is
	// reported as removed.
	CardRemovalTimeout time.Duration
	SleepRecovery      SleepRecoveryConfig
}

// DefaultConfig returns the default polling configuration
func DefaultConfig() *Config {
	return &Config{
		PollInterval:       250 * time.Millisecond,
		PollTimeout:        500 * time.Millisecond,
		CardRemovalTimeout: 600 * time.Millisecond,
		SleepRecovery:      DefaultSleepRecoveryConfig(),
	}
}

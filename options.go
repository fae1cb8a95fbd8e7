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
	"errors"
	"time"

	"github.com/loopholelabs/logging/types"
)

// Option configures a Device at construction
type Option func(*Device) error

// WithLogger sets the logger used for command tracing. A nil logger is silent.
func WithLogger(log types.Logger) Option {
	return func(d *Device) error {
		d.log = log
		return nil
	}
}

// WithDebug logs every command to stderr at trace level
func WithDebug(enabled bool) Option {
	return func(d *Device) error {
		if enabled {
			d.log = NewDebugLogger(nil)
		}
		return nil
	}
}

// WithConfig replaces the device configuration
func WithConfig(cfg *DeviceConfig) Option {
	return func(d *Device) error {
		if cfg == nil {
			return errors.New("device config is nil")
		}
		c := *cfg
		d.config = &c
		return nil
	}
}

// WithPassiveTargetTimeout sets how long ListPassiveTarget waits for a card
// when called with a zero timeout
func WithPassiveTargetTimeout(timeout time.Duration) Option {
	return func(d *Device) error {
		if timeout <= 0 {
			return errors.New("passive target timeout must be positive")
		}
		d.config.PassiveTargetTimeout = timeout
		return nil
	}
}

// WithSleep replaces the function used to wait after a wakeup
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(dev *Device) error {
		dev.sleep = sleep
		return nil
	}
}

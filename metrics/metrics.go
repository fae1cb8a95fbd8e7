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

// Package metrics defines the counters the I2C transaction engine reports.
package metrics

import "time"

// Metrics receives transaction events. Implementations must be safe for
// concurrent use.
type Metrics interface {
	CommandSent(bus, cmd string)
	CommandFailed(bus, cmd, reason string)
	AckRetry(bus string)
	Nack(bus string)
	FrameError(bus string)
	TransactionDuration(bus, cmd string, d time.Duration)
	TargetDetected(bus string)
}

// Noop discards every event
type Noop struct{}

func (Noop) CommandSent(string, string) {}
func (Noop) CommandFailed(string, string, string) {}
func (Noop) AckRetry(string) {}
func (Noop) Nack(string) {}
func (Noop) FrameError(string) {}
func (Noop) TransactionDuration(string, string, time.Duration) {}
func (Noop) TargetDetected(string) {}

var _ Metrics = Noop{}

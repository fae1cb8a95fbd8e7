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

import "time"

// Transaction engine defaults. Internal retries are fixed-count with a fixed
// delay so an unresponsive chip always surfaces an error.
const (
	// DefaultAckRetries is the number of status+ACK reads before giving up.
	DefaultAckRetries = 6
	// DefaultAckRetryDelay is the pause between ACK reads.
	DefaultAckRetryDelay = 10 * time.Millisecond
	// DefaultReadyTimeout bounds the wait for a response to become ready.
	DefaultReadyTimeout = 1 * time.Second
	// DefaultReadyPollInterval is the pause between status byte polls.
	DefaultReadyPollInterval = 5 * time.Millisecond
	// DefaultResponseLength is the payload room read in one bus transaction.
	// The largest response used here is a 16-byte block read plus status.
	DefaultResponseLength = 64
)

// Command layer defaults.
const (
	// DefaultPassiveTargetTimeout bounds InListPassiveTarget when no card is present.
	DefaultPassiveTargetTimeout = 3 * time.Second
	// DefaultWakeupDelay is the settle time after the wakeup ACK.
	DefaultWakeupDelay = 50 * time.Millisecond
)

// Application level retry defaults used by RetryWithConfig.
const (
	// DefaultRetryAttempts is the number of attempts for a retryable command.
	DefaultRetryAttempts = 3
	// DefaultRetryBackoff is the delay before the first retry.
	DefaultRetryBackoff = 50 * time.Millisecond
	// DefaultRetryMaxBackoff caps the delay between attempts.
	DefaultRetryMaxBackoff = 500 * time.Millisecond
	// DefaultRetryTimeout is the overall budget for all attempts.
	DefaultRetryTimeout = 10 * time.Second
)

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

//go:build !deadlock

// Package syncutil provides the mutex used for bus and session state.
// Release builds get sync.Mutex; -tags=deadlock swaps in go-deadlock so a
// caller that holds the bus across a blocking call shows up in tests.
package syncutil

import "sync"

// Mutex guards bus transactions and the device power state.
//
//nolint:gocritic // embedding exposes Lock/Unlock/TryLock directly
type Mutex struct {
	sync.Mutex
}

// Detecting reports whether deadlock detection is compiled in.
func Detecting() bool {
	return false
}

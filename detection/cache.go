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

package detection

import (
	"fmt"
	"time"

	"github.com/ZaparooProject/go-pn532-i2c/internal/syncutil"
)

type cacheEntry struct {
	timestamp time.Time
	device    DeviceInfo
}

// detectionCache remembers positive probes per bus and address
type detectionCache struct {
	entries map[string]cacheEntry
	mu      syncutil.Mutex
}

var cache = &detectionCache{
	entries: make(map[string]cacheEntry),
}

// cacheKey includes the mode so a Safe result never answers a Full request
func cacheKey(bus string, opts *Options) string {
	return fmt.Sprintf("%s:0x%02X:%d", bus, opts.Address, opts.Mode)
}

// getCached returns a copy of the cached device if it is younger than opts.CacheTTL
func getCached(bus string, opts *Options) (*DeviceInfo, bool) {
	cache.mu.Lock()
	defer cache.mu.Unlock()

	entry, ok := cache.entries[cacheKey(bus, opts)]
	if !ok || time.Since(entry.timestamp) > opts.CacheTTL {
		return nil, false
	}
	d := entry.device
	return &d, true
}

func setCached(bus string, opts *Options, d *DeviceInfo) {
	cache.mu.Lock()
	defer cache.mu.Unlock()
	cache.entries[cacheKey(bus, opts)] = cacheEntry{device: *d, timestamp: time.Now()}
}

// clearCached drops a bus whose module stopped answering, so callers are
// not sent to a dead path until the TTL runs out.
func clearCached(bus string, opts *Options) {
	cache.mu.Lock()
	defer cache.mu.Unlock()
	delete(cache.entries, cacheKey(bus, opts))
}

// ClearDetectionCache removes all cached detection results
func ClearDetectionCache() {
	cache.mu.Lock()
	defer cache.mu.Unlock()
	cache.entries = make(map[string]cacheEntry)
}

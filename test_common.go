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

//go:build !prod

package pn532

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// createMockDeviceWithTransport creates a device with a mock transport for testing.
// Wakeup waits are skipped.
func createMockDeviceWithTransport(t *testing.T, opts ...Option) (*Device, *MockTransport) {
	t.Helper()
	mockTransport := NewMockTransport()
	opts = append([]Option{WithSleep(noSleep)}, opts...)
	device, err := New(mockTransport, opts...)
	require.NoError(t, err)
	return device, mockTransport
}

func noSleep(context.Context, time.Duration) error { return nil }

// buildTargetPayload builds an InListPassiveTarget payload for a single
// Type A target with ATQA 0x0004
func buildTargetPayload(sak byte, uid []byte) []byte {
	payload := []byte{0x01, 0x01, 0x00, 0x04, sak, byte(len(uid))}
	return append(payload, uid...)
}

// buildReadPayload builds a successful InDataExchange read payload
func buildReadPayload(data []byte) []byte {
	return append([]byte{0x00}, data...)
}

// testBlockData returns 16 bytes counting up from start
func testBlockData(start byte) []byte {
	data := make([]byte, MifareBlockSize)
	for i := range data {
		data[i] = start + byte(i)
	}
	return data
}

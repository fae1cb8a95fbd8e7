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
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedactArgs(t *testing.T) {
	t.Parallel()

	auth := []byte{0x01, 0x60, 0x04, 0xA0, 0xA1, 0xA2, 0xA3, 0xA4, 0xA5, 0xDE, 0xAD, 0xBE, 0xEF}
	got := redactArgs(CmdInDataExchange, auth)
	assert.Equal(t, "01 60 04 ** ** ** ** ** ** DE AD BE EF", got)
	assert.NotContains(t, got, "A0")

	read := []byte{0x01, 0x30, 0x04}
	assert.Equal(t, "01 30 04", redactArgs(CmdInDataExchange, read))
	assert.Equal(t, "01 00", redactArgs(CmdInListPassiveTarget, []byte{0x01, 0x00}))
}

func TestDebugLogger_DoesNotLeakKeys(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	device, mock := createMockDeviceWithTransport(t, WithLogger(NewDebugLogger(&buf)))
	mock.SetResponse(CmdInDataExchange, []byte{0x00})

	key := Key{0x12, 0x34, 0x56, 0x78, 0x9A, 0xBC}
	require.NoError(t, device.MifareClassicAuth(context.Background(), []byte{1, 2, 3, 4}, 1, key, KeyTypeA, 4))

	assert.NotContains(t, buf.String(), "12 34 56 78 9A BC")
	assert.Contains(t, buf.String(), "**")
}

func TestSessionLog(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	session, err := OpenSessionLog(dir)
	require.NoError(t, err)

	assert.Equal(t, dir, filepath.Dir(session.Path()))
	assert.True(t, strings.HasPrefix(filepath.Base(session.Path()), "pn532_"))
	assert.True(t, strings.HasSuffix(session.Path(), ".log"))

	device, mock := createMockDeviceWithTransport(t, WithLogger(session.Logger()))
	mock.SetResponse(CmdGetFirmwareVersion, []byte{0x32, 0x01, 0x06, 0x07})
	_, err = device.FirmwareVersion(context.Background())
	require.NoError(t, err)

	require.NoError(t, session.Close())
	require.NoError(t, session.Close())

	data, err := os.ReadFile(session.Path())
	require.NoError(t, err)
	content := string(data)
	assert.True(t, strings.HasPrefix(content, "=== PN532 Debug Session Log ==="))
	assert.Contains(t, content, "GetFirmwareVersion")
	assert.Contains(t, content, "=== Session ended ===")
}

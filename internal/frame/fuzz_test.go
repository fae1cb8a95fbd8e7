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

package frame

import (
	"errors"
	"testing"

	pn532 "github.com/ZaparooProject/go-pn532-i2c"
)

func FuzzDecode(f *testing.F) {
	f.Add([]byte{0x00, 0x00, 0xFF, 0x06, 0xFA, 0xD5, 0x03, 0x32, 0x01, 0x06, 0x07, 0xE8, 0x00})
	f.Add([]byte{0x00, 0x00, 0xFF, 0x00, 0xFF, 0x00})
	f.Add([]byte{0x00, 0x00, 0xFF, 0x01, 0xFF, 0x7F, 0x81, 0x00})
	f.Add([]byte{0x00, 0x00, 0xFF, 0x02, 0xFE, 0xD4, 0x02, 0x2A, 0x00})
	f.Add([]byte{})

	f.Fuzz(func(t *testing.T, raw []byte) {
		code, payload, err := Decode(raw)
		if err != nil {
			if !errors.Is(err, pn532.ErrFrameCorrupt) &&
				!errors.Is(err, pn532.ErrUnexpectedDirection) &&
				!errors.Is(err, pn532.ErrCommandFailed) {
				t.Fatalf("unexpected error class: %v", err)
			}
			return
		}

		// Anything that decodes must re-encode to the same bytes.
		if len(payload) > MaxParamsLength {
			return
		}
		again, encErr := EncodeResponse(code, payload)
		if encErr != nil {
			t.Fatalf("re-encode failed: %v", encErr)
		}
		if string(again) != string(raw) {
			t.Fatalf("re-encode mismatch: % X != % X", again, raw)
		}
	})
}

func FuzzLocate(f *testing.F) {
	f.Add([]byte{0x01, 0x00, 0x00, 0xFF, 0x02, 0xFE, 0xD5, 0x15, 0x16, 0x00})
	f.Add([]byte{0x00, 0xFF})
	f.Add([]byte{0x00, 0x00, 0xFF, 0xFF})
	f.Add([]byte{})

	f.Fuzz(func(t *testing.T, buf []byte) {
		frm, err := Locate(buf)
		if err != nil {
			return
		}
		if len(frm) < Overhead {
			t.Fatalf("located frame shorter than overhead: %d", len(frm))
		}
	})
}

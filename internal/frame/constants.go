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

// Package frame encodes and decodes PN532 normal information frames
// (PN532 User Manual §6.2.1).
package frame

// Direction tags (TFI)
const (
	HostToPn532   = 0xD4 // Commands from host to PN532
	Pn532ToHost   = 0xD5 // Responses from PN532 to host
	ErrorFrameTFI = 0x7F // Application level error frame
)

// Frame markers
const (
	Preamble   = 0x00
	StartCode1 = 0x00
	StartCode2 = 0xFF
	Postamble  = 0x00
)

const (
	// MaxParamsLength is the largest parameter block Encode accepts.
	MaxParamsLength = 252
	// Overhead is the number of framing bytes around TFI+command+payload:
	// preamble, two start codes, LEN, LCS, DCS, postamble.
	Overhead = 7
	// MinFrameLength is the shortest decodable frame (LEN=1, TFI only).
	MinFrameLength = Overhead + 1
	// ParamsOffset is where the parameters start in an encoded frame:
	// preamble, start codes, LEN, LCS, TFI, command.
	ParamsOffset = 7
)

var (
	AckFrame  = []byte{0x00, 0x00, 0xFF, 0x00, 0xFF, 0x00}
	NackFrame = []byte{0x00, 0x00, 0xFF, 0xFF, 0x00, 0x00}
)

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
	"bytes"
	"fmt"

	pn532 "github.com/ZaparooProject/go-pn532-i2c"
)

// Encode builds a host-to-module frame for cmd and params.
func Encode(cmd byte, params []byte) ([]byte, error) {
	if len(params) > MaxParamsLength {
		return nil, pn532.NewEncodingError("encode",
			fmt.Sprintf("%d parameter bytes exceeds limit of %d", len(params), MaxParamsLength))
	}
	return build(HostToPn532, cmd, params), nil
}

// EncodeResponse builds a module-to-host frame carrying a response code and payload.
func EncodeResponse(code byte, payload []byte) ([]byte, error) {
	if len(payload) > MaxParamsLength {
		return nil, pn532.NewEncodingError("encodeResponse",
			fmt.Sprintf("%d payload bytes exceeds limit of %d", len(payload), MaxParamsLength))
	}
	return build(Pn532ToHost, code, payload), nil
}

func build(tfi, code byte, payload []byte) []byte {
	dataLen := 2 + len(payload)
	frm := make([]byte, 0, Overhead+dataLen)

	frm = append(frm, Preamble, StartCode1, StartCode2)
	frm = append(frm, byte(dataLen), Complement(byte(dataLen)))
	frm = append(frm, tfi, code)
	frm = append(frm, payload...)

	sum := tfi + code + CalculateChecksum(payload)
	frm = append(frm, Complement(sum), Postamble)
	return frm
}

// IsAck reports whether raw is exactly the ACK frame.
func IsAck(raw []byte) bool {
	return bytes.Equal(raw, AckFrame)
}

// IsNack reports whether raw is exactly the NACK frame.
func IsNack(raw []byte) bool {
	return bytes.Equal(raw, NackFrame)
}

// Locate finds the first frame in buf and returns it from the preamble through
// the postamble. Leading garbage is skipped; trailing bytes are ignored.
func Locate(buf []byte) ([]byte, error) {
	start := -1
	for i := 1; i+1 < len(buf); i++ {
		if buf[i] == StartCode1 && buf[i+1] == StartCode2 {
			start = i - 1 // preamble
			break
		}
	}
	if start < 0 {
		return nil, pn532.NewFrameCorruptError("locate", "no start code")
	}

	lenIdx := start + 3
	if lenIdx >= len(buf) {
		return nil, pn532.NewFrameCorruptError("locate", "missing length byte")
	}

	total := Overhead + int(buf[lenIdx])
	if start+total > len(buf) {
		return nil, pn532.NewFrameCorruptError("locate",
			fmt.Sprintf("frame needs %d bytes, %d available", total, len(buf)-start))
	}
	return buf[start : start+total], nil
}

// Decode validates a module-to-host frame and returns its response code and
// payload. raw must start at the preamble and end at the postamble.
//
// An application error frame (TFI 0x7F) decodes to a *pn532.PN532Error.
func Decode(raw []byte) (code byte, payload []byte, err error) {
	if len(raw) < MinFrameLength {
		return 0, nil, pn532.NewFrameCorruptError("decode", fmt.Sprintf("frame too short: %d bytes", len(raw)))
	}
	if raw[0] != Preamble || raw[1] != StartCode1 || raw[2] != StartCode2 {
		return 0, nil, pn532.NewFrameCorruptError("decode", "bad preamble or start code")
	}

	length := int(raw[3])
	if raw[3]+raw[4] != 0 {
		return 0, nil, pn532.NewFrameCorruptError("decode", "length checksum mismatch")
	}
	if length == 0 || len(raw) != Overhead+length {
		return 0, nil, pn532.NewFrameCorruptError("decode",
			fmt.Sprintf("length %d does not match %d frame bytes", length, len(raw)))
	}

	data := raw[5 : 5+length]
	if CalculateChecksum(data)+raw[5+length] != 0 {
		return 0, nil, pn532.NewFrameCorruptError("decode", "data checksum mismatch")
	}
	if raw[6+length] != Postamble {
		return 0, nil, pn532.NewFrameCorruptError("decode", "bad postamble")
	}

	switch data[0] {
	case Pn532ToHost:
	case ErrorFrameTFI:
		return 0, nil, decodeErrorFrame(data)
	default:
		return 0, nil, pn532.NewUnexpectedDirectionError("decode", data[0])
	}

	if length < 2 {
		return 0, nil, pn532.NewFrameCorruptError("decode", "missing response code")
	}

	payload = make([]byte, length-2)
	copy(payload, data[2:])
	return data[1], payload, nil
}

func decodeErrorFrame(data []byte) error {
	// A syntax error frame carries no error code: 00 00 FF 01 FF 7F 81 00.
	code := byte(ErrorFrameTFI)
	if len(data) > 1 {
		code = data[1]
	}
	return &pn532.PN532Error{
		Err:       pn532.ErrCommandFailed,
		Command:   "error frame",
		ErrorCode: code,
	}
}

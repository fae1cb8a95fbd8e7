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

import "fmt"

// Support bits of GetFirmwareVersion
const (
	SupportISO14443A = 0x01
	SupportISO14443B = 0x02
	SupportISO18092  = 0x04
)

// FirmwareVersion contains PN532 firmware information
type FirmwareVersion struct {
	IC      byte // 0x32 for a PN532
	Ver     byte
	Rev     byte
	Support byte
}

// Version returns the firmware version as "ver.rev"
func (f *FirmwareVersion) Version() string {
	return fmt.Sprintf("%d.%d", f.Ver, f.Rev)
}

// IsPN532 reports whether the IC byte names a PN532 rather than a sibling chip
func (f *FirmwareVersion) IsPN532() bool {
	return f.IC == 0x32
}

// SupportsISO14443A reports whether the firmware handles ISO/IEC 14443 Type A
func (f *FirmwareVersion) SupportsISO14443A() bool {
	return f.Support&SupportISO14443A != 0
}

func (f *FirmwareVersion) String() string {
	return fmt.Sprintf("Found chip PN5%02x Firmware ver. %d.%d (support 0x%02X)", f.IC, f.Ver, f.Rev, f.Support)
}

func parseFirmwareVersion(payload []byte) (*FirmwareVersion, error) {
	if len(payload) != 4 {
		return nil, fmt.Errorf("%w: expected 4 bytes, got %d", ErrFirmwareRead, len(payload))
	}
	return &FirmwareVersion{
		IC:      payload[0],
		Ver:     payload[1],
		Rev:     payload[2],
		Support: payload[3],
	}, nil
}

// GeneralStatus contains PN532 general status information
type GeneralStatus struct {
	Targets      []TargetStatus
	LastError    byte
	FieldPresent bool
	SAMStatus    byte
}

// TargetStatus describes one target the PN532 is currently handling
type TargetStatus struct {
	Number         byte
	RxBitRate      byte
	TxBitRate      byte
	ModulationType byte
}

// parseGeneralStatus decodes Err, Field, NbTg, NbTg*(Tg, BrRx, BrTx, Type), SAM.
// SAM is missing on some firmware, in which case SAMStatus stays zero.
func parseGeneralStatus(payload []byte) (*GeneralStatus, error) {
	if len(payload) < 3 {
		return nil, NewInvalidResponseError("GetGeneralStatus", fmt.Sprintf("short response: %d bytes", len(payload)))
	}

	count := int(payload[2])
	end := 3 + 4*count
	if len(payload) < end {
		return nil, NewInvalidResponseError("GetGeneralStatus",
			fmt.Sprintf("%d targets need %d bytes, got %d", count, end, len(payload)))
	}

	status := &GeneralStatus{
		LastError:    payload[0],
		FieldPresent: payload[1] == 0x01,
		Targets:      make([]TargetStatus, 0, count),
	}
	for off := 3; off < end; off += 4 {
		status.Targets = append(status.Targets, TargetStatus{
			Number:         payload[off],
			RxBitRate:      payload[off+1],
			TxBitRate:      payload[off+2],
			ModulationType: payload[off+3],
		})
	}
	if len(payload) > end {
		status.SAMStatus = payload[end]
	}
	return status, nil
}

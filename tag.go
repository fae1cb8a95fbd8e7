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
	"encoding/hex"
	"fmt"
	"strings"
)

// Target is a card found by InListPassiveTarget. It is only meaningful until
// the next discovery; the driver does not keep it.
type Target struct {
	UID     []byte
	SensRes uint16 // SENS_RES / ATQA, big endian as sent by the module
	Number  byte   // logical target number assigned by the PN532
	SelRes  byte   // SEL_RES / SAK
}

// UIDString returns the UID as lowercase hex
func (t *Target) UIDString() string {
	return hex.EncodeToString(t.UID)
}

// Manufacturer returns the chip manufacturer identified from the UID
func (t *Target) Manufacturer() Manufacturer {
	return GetManufacturer(t.UID)
}

// Variant returns the MIFARE Classic variant indicated by the SAK
func (t *Target) Variant() ClassicVariant {
	switch t.SelRes {
	case 0x09:
		return ClassicMini
	case 0x08, 0x88:
		return Classic1K
	case 0x18:
		return Classic4K
	default:
		return ClassicNone
	}
}

// IsMifareClassic reports whether the SAK identifies a MIFARE Classic card
func (t *Target) IsMifareClassic() bool {
	return t.Variant() != ClassicNone
}

func (t *Target) String() string {
	return fmt.Sprintf("target %d uid=%s atqa=0x%04X sak=0x%02X (%s)",
		t.Number, formatUID(t.UID), t.SensRes, t.SelRes, t.Variant())
}

// ClassicVariant identifies a MIFARE Classic memory layout
type ClassicVariant string

const (
	ClassicNone ClassicVariant = "not MIFARE Classic"
	ClassicMini ClassicVariant = "MIFARE Mini"
	Classic1K   ClassicVariant = "MIFARE Classic 1K"
	Classic4K   ClassicVariant = "MIFARE Classic 4K"
)

// Blocks returns the number of 16-byte blocks on the card
func (v ClassicVariant) Blocks() int {
	switch v {
	case ClassicMini:
		return 20
	case Classic1K:
		return 64
	case Classic4K:
		return 256
	default:
		return 0
	}
}

// IsTrailerBlock reports whether block holds a sector's keys and access bits.
// Sectors 0-31 have 4 blocks, sectors 32-39 (4K only) have 16.
func IsTrailerBlock(block byte) bool {
	if block < 128 {
		return block%4 == 3
	}
	return block%16 == 15
}

// SectorOf returns the sector that contains block
func SectorOf(block byte) byte {
	if block < 128 {
		return block / 4
	}
	return 32 + (block-128)/16
}

// Manufacturer represents the chip manufacturer identified from the UID.
// The first byte of a 7-byte UID contains the manufacturer code per ISO/IEC 7816-6.
type Manufacturer string

const (
	ManufacturerNXP      Manufacturer = "NXP"
	ManufacturerST       Manufacturer = "STMicroelectronics"
	ManufacturerInfineon Manufacturer = "Infineon"
	ManufacturerTI       Manufacturer = "Texas Instruments"
	// ManufacturerUnknown covers unrecognized codes and random 4-byte UIDs.
	ManufacturerUnknown Manufacturer = "Unknown"
)

// GetManufacturer returns the chip manufacturer based on the UID's first byte.
// 4-byte MIFARE Classic UIDs are usually random, so only 7 and 10 byte UIDs
// are identified.
func GetManufacturer(uid []byte) Manufacturer {
	if len(uid) < 7 {
		return ManufacturerUnknown
	}

	switch uid[0] {
	case 0x04:
		return ManufacturerNXP
	case 0x02:
		return ManufacturerST
	case 0x05:
		return ManufacturerInfineon
	case 0x07:
		return ManufacturerTI
	default:
		return ManufacturerUnknown
	}
}

// parseTargets decodes an InListPassiveTarget payload for 106 kbps Type A:
// NbTg, then per target Tg, SENS_RES(2), SEL_RES, NFCIDLength, NFCID[...].
func parseTargets(payload []byte) ([]*Target, error) {
	if len(payload) < 1 {
		return nil, NewInvalidResponseError("InListPassiveTarget", "empty response")
	}

	count := int(payload[0])
	if count == 0 {
		return []*Target{}, nil
	}
	if count > 1 {
		return nil, NewInvalidResponseError("InListPassiveTarget",
			fmt.Sprintf("asked for one target, module reported %d", count))
	}

	const header = 6 // NbTg, Tg, SENS_RES(2), SEL_RES, NFCIDLength
	if len(payload) < header {
		return nil, NewInvalidResponseError("InListPassiveTarget",
			fmt.Sprintf("target data too short: %d bytes", len(payload)))
	}

	uidLen := int(payload[5])
	if uidLen == 0 || uidLen > 10 {
		return nil, NewInvalidResponseError("InListPassiveTarget", fmt.Sprintf("invalid UID length %d", uidLen))
	}
	if len(payload) < header+uidLen {
		return nil, NewInvalidResponseError("InListPassiveTarget",
			fmt.Sprintf("UID truncated: want %d bytes, have %d", uidLen, len(payload)-header))
	}

	uid := make([]byte, uidLen)
	copy(uid, payload[header:header+uidLen])

	return []*Target{{
		Number:  payload[1],
		SensRes: uint16(payload[2])<<8 | uint16(payload[3]),
		SelRes:  payload[4],
		UID:     uid,
	}}, nil
}

// formatUID returns the UID as colon separated hex, the way card readers print it
func formatUID(uid []byte) string {
	parts := make([]string, len(uid))
	for i, b := range uid {
		parts[i] = fmt.Sprintf("%02X", b)
	}
	return strings.Join(parts, ":")
}

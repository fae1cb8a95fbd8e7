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

package testing

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"

	pn532 "github.com/ZaparooProject/go-pn532-i2c"
)

// Sample UIDs for tests
var (
	// TestMIFARE1KUID is a random 4-byte MIFARE Classic 1K UID
	TestMIFARE1KUID = []byte{0x12, 0x34, 0x56, 0x78}

	// TestMIFARE4KUID is a random 4-byte MIFARE Classic 4K UID
	TestMIFARE4KUID = []byte{0xAB, 0xCD, 0xEF, 0x01}

	// TestMIFARE7ByteUID is an NXP double size UID
	TestMIFARE7ByteUID = []byte{0x04, 0xAB, 0xCD, 0xEF, 0x12, 0x34, 0x56}
)

// Transport access bits FF 07 80 with GPB 69, as shipped from the factory
var factoryAccessBits = []byte{0xFF, 0x07, 0x80, 0x69}

var (
	errTagAbsent  = errors.New("tag not present")
	errAuthFailed = errors.New("authentication failed")
	errNotAuthed  = errors.New("sector not authenticated")
	errBadBlock   = errors.New("block out of range")
	errNoTransfer = errors.New("transfer buffer empty")
)

// VirtualTag is a simulated MIFARE Classic card. Keys live in the sector
// trailers exactly as on a real card, so writing a trailer changes them.
type VirtualTag struct {
	UID     []byte
	blocks  [][]byte
	ATQA    uint16
	SAK     byte
	Present bool

	authSector int // -1 when not authenticated
	transfer   *int32
}

// NewVirtualMIFARE1K creates a 1K card with factory default keys
func NewVirtualMIFARE1K(uid []byte) *VirtualTag {
	if uid == nil {
		uid = TestMIFARE1KUID
	}
	return newVirtualClassic(uid, 0x08, pn532.Classic1K.Blocks())
}

// NewVirtualMIFARE4K creates a 4K card with factory default keys
func NewVirtualMIFARE4K(uid []byte) *VirtualTag {
	if uid == nil {
		uid = TestMIFARE4KUID
	}
	return newVirtualClassic(uid, 0x18, pn532.Classic4K.Blocks())
}

func newVirtualClassic(uid []byte, sak byte, blocks int) *VirtualTag {
	tag := &VirtualTag{
		UID:        append([]byte(nil), uid...),
		ATQA:       0x0004,
		SAK:        sak,
		Present:    true,
		blocks:     make([][]byte, blocks),
		authSector: -1,
	}
	if len(uid) == 7 {
		tag.ATQA = 0x0044
	}

	for i := range tag.blocks {
		tag.blocks[i] = make([]byte, pn532.MifareBlockSize)
		if pn532.IsTrailerBlock(byte(i)) {
			tag.setTrailer(i, pn532.DefaultKeyA, pn532.DefaultKeyB)
		}
	}

	// Manufacturer block: UID, BCC for 4-byte UIDs, then filler.
	copy(tag.blocks[0], uid)
	if len(uid) == 4 {
		tag.blocks[0][4] = uid[0] ^ uid[1] ^ uid[2] ^ uid[3]
	}
	return tag
}

func (v *VirtualTag) setTrailer(block int, keyA, keyB pn532.Key) {
	t := v.blocks[block]
	copy(t[0:6], keyA[:])
	copy(t[6:10], factoryAccessBits)
	copy(t[10:16], keyB[:])
}

// SetSectorKeys replaces both keys of sector
func (v *VirtualTag) SetSectorKeys(sector int, keyA, keyB pn532.Key) error {
	trailer, err := v.trailerOf(sector)
	if err != nil {
		return err
	}
	v.setTrailer(trailer, keyA, keyB)
	return nil
}

// GetUIDString returns the UID as lowercase hex
func (v *VirtualTag) GetUIDString() string {
	return hex.EncodeToString(v.UID)
}

// Remove takes the card out of the field
func (v *VirtualTag) Remove() {
	v.Present = false
	v.ResetAuthentication()
}

// Insert puts the card back
func (v *VirtualTag) Insert() {
	v.Present = true
}

// ResetAuthentication drops the crypto session, as a reselect does
func (v *VirtualTag) ResetAuthentication() {
	v.authSector = -1
	v.transfer = nil
}

// IsAuthenticated reports whether sector has an open session
func (v *VirtualTag) IsAuthenticated(sector int) bool {
	return v.authSector >= 0 && v.authSector == sector
}

// Authenticate checks key against the trailer of the sector holding block.
// A wrong key closes any open session.
func (v *VirtualTag) Authenticate(block byte, keyType pn532.KeyType, key, uid []byte) error {
	if !v.Present {
		return errTagAbsent
	}
	if int(block) >= len(v.blocks) {
		return errBadBlock
	}

	sector := int(pn532.SectorOf(block))
	trailer, err := v.trailerOf(sector)
	if err != nil {
		return err
	}

	var want []byte
	switch keyType {
	case pn532.KeyTypeA:
		want = v.blocks[trailer][0:6]
	case pn532.KeyTypeB:
		want = v.blocks[trailer][10:16]
	default:
		return fmt.Errorf("invalid key type 0x%02X", byte(keyType))
	}

	if !bytes.Equal(key, want) || !bytes.Equal(uid, v.uidTail()) {
		v.ResetAuthentication()
		return errAuthFailed
	}
	v.authSector = sector
	return nil
}

// ReadBlock returns a copy of block. Trailer key A reads back as zeros.
func (v *VirtualTag) ReadBlock(block byte) ([]byte, error) {
	if err := v.checkAccess(block); err != nil {
		return nil, err
	}
	out := append([]byte(nil), v.blocks[block]...)
	if pn532.IsTrailerBlock(block) {
		clear(out[0:6])
	}
	return out, nil
}

// WriteBlock stores 16 bytes in block
func (v *VirtualTag) WriteBlock(block byte, data []byte) error {
	if err := v.checkAccess(block); err != nil {
		return err
	}
	if len(data) != pn532.MifareBlockSize {
		return fmt.Errorf("block data must be %d bytes, got %d", pn532.MifareBlockSize, len(data))
	}
	copy(v.blocks[block], data)
	return nil
}

// Block returns the raw contents of block, bypassing authentication
func (v *VirtualTag) Block(block byte) []byte {
	return append([]byte(nil), v.blocks[block]...)
}

// SetBlock overwrites block, bypassing authentication
func (v *VirtualTag) SetBlock(block byte, data []byte) {
	copy(v.blocks[block], data)
}

// Increment loads a value block into the transfer buffer plus delta
func (v *VirtualTag) Increment(block byte, delta int32) error {
	return v.loadValue(block, delta)
}

// Decrement loads a value block into the transfer buffer minus delta
func (v *VirtualTag) Decrement(block byte, delta int32) error {
	return v.loadValue(block, -delta)
}

func (v *VirtualTag) loadValue(block byte, delta int32) error {
	if err := v.checkAccess(block); err != nil {
		return err
	}
	value, _, err := pn532.DecodeValueBlock(v.blocks[block])
	if err != nil {
		return err
	}
	value += delta
	v.transfer = &value
	return nil
}

// Transfer writes the transfer buffer into block as a value block
func (v *VirtualTag) Transfer(block byte) error {
	if err := v.checkAccess(block); err != nil {
		return err
	}
	if v.transfer == nil {
		return errNoTransfer
	}
	copy(v.blocks[block], pn532.EncodeValueBlock(*v.transfer, block))
	v.transfer = nil
	return nil
}

func (v *VirtualTag) checkAccess(block byte) error {
	if !v.Present {
		return errTagAbsent
	}
	if int(block) >= len(v.blocks) {
		return errBadBlock
	}
	if !v.IsAuthenticated(int(pn532.SectorOf(block))) {
		return errNotAuthed
	}
	return nil
}

func (v *VirtualTag) trailerOf(sector int) (int, error) {
	switch {
	case sector < 0:
	case sector < 32:
		if t := sector*4 + 3; t < len(v.blocks) {
			return t, nil
		}
	default:
		if t := 128 + (sector-32)*16 + 15; t < len(v.blocks) {
			return t, nil
		}
	}
	return 0, fmt.Errorf("sector %d out of range", sector)
}

// uidTail is the part of the UID the reader sends with an auth request
func (v *VirtualTag) uidTail() []byte {
	return v.UID[len(v.UID)-4:]
}

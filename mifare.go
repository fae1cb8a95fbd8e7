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
	"context"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"
)

// MIFARE Classic memory structure
const (
	MifareBlockSize = 16
	MifareKeySize   = 6
)

// Key is a MIFARE Classic sector key
type Key [MifareKeySize]byte

var (
	// DefaultKeyA is the factory transport key A
	DefaultKeyA = Key{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}
	// DefaultKeyB is the factory transport key B
	DefaultKeyB = Key{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}

	// CommonKeys are keys frequently found on deployed cards
	CommonKeys = []Key{
		DefaultKeyA,
		{0x00, 0x00, 0x00, 0x00, 0x00, 0x00},
		{0xA0, 0xA1, 0xA2, 0xA3, 0xA4, 0xA5}, // MAD
		{0xD3, 0xF7, 0xD3, 0xF7, 0xD3, 0xF7}, // NDEF
		{0xB0, 0xB1, 0xB2, 0xB3, 0xB4, 0xB5},
	}
)

// ParseKey parses 12 hex digits, optionally separated by colons or spaces
func ParseKey(s string) (Key, error) {
	var k Key
	clean := strings.NewReplacer(":", "", " ", "", "-", "").Replace(s)
	raw, err := hex.DecodeString(clean)
	if err != nil {
		return k, fmt.Errorf("invalid key %q: %w", s, err)
	}
	if len(raw) != MifareKeySize {
		return k, fmt.Errorf("invalid key %q: want %d bytes, got %d", s, MifareKeySize, len(raw))
	}
	copy(k[:], raw)
	return k, nil
}

func (k Key) String() string {
	return strings.ToUpper(hex.EncodeToString(k[:]))
}

// KeyType selects which sector key is used to authenticate
type KeyType byte

const (
	KeyTypeA KeyType = KeyType(mifareAuthA)
	KeyTypeB KeyType = KeyType(mifareAuthB)
)

// ParseKeyType accepts "A" or "B" in either case
func ParseKeyType(s string) (KeyType, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "A":
		return KeyTypeA, nil
	case "B":
		return KeyTypeB, nil
	default:
		return 0, fmt.Errorf("invalid key type %q: must be A or B", s)
	}
}

func (k KeyType) String() string {
	switch k {
	case KeyTypeA:
		return "A"
	case KeyTypeB:
		return "B"
	default:
		return fmt.Sprintf("KeyType(0x%02X)", byte(k))
	}
}

// MifareClassicAuth authenticates block's sector on target with key. The
// last four bytes of uid take part in the exchange, so 4, 7 and 10 byte
// UIDs are accepted. A rejection by the card is a *PN532Error wrapping
// ErrAuthentication.
func (d *Device) MifareClassicAuth(
	ctx context.Context, uid []byte, target byte, key Key, keyType KeyType, block byte,
) error {
	switch len(uid) {
	case 4, 7, 10:
	default:
		return NewEncodingError("MifareClassicAuth", fmt.Sprintf("invalid UID length %d", len(uid)))
	}
	if keyType != KeyTypeA && keyType != KeyTypeB {
		return NewEncodingError("MifareClassicAuth", fmt.Sprintf("invalid key type 0x%02X", byte(keyType)))
	}

	args := make([]byte, 0, 3+MifareKeySize+4)
	args = append(args, target, byte(keyType), block)
	args = append(args, key[:]...)
	args = append(args, uid[len(uid)-4:]...)
	defer clearKey(args[3 : 3+MifareKeySize])

	if _, err := d.dataExchange(ctx, "MifareClassicAuth", ErrAuthentication, args); err != nil {
		return err
	}
	return nil
}

// MifareClassicRead reads one 16-byte block. The sector must be authenticated.
func (d *Device) MifareClassicRead(ctx context.Context, target, block byte) ([]byte, error) {
	data, err := d.dataExchange(ctx, "MifareClassicRead", ErrBlockRead, []byte{target, mifareRead, block})
	if err != nil {
		return nil, err
	}
	if len(data) != MifareBlockSize {
		return nil, fmt.Errorf("%w: block %d returned %d bytes", ErrBlockRead, block, len(data))
	}
	return data, nil
}

// MifareClassicWrite writes exactly 16 bytes to block. Sector trailers and
// the manufacturer block are written like any other block.
func (d *Device) MifareClassicWrite(ctx context.Context, target, block byte, data []byte) error {
	if len(data) != MifareBlockSize {
		return fmt.Errorf("%w: need %d bytes, got %d", ErrInvalidBlockSize, MifareBlockSize, len(data))
	}

	args := make([]byte, 0, 3+MifareBlockSize)
	args = append(args, target, mifareWrite, block)
	args = append(args, data...)

	_, err := d.dataExchange(ctx, "MifareClassicWrite", ErrBlockWrite, args)
	return err
}

// MifareClassicIncrement adds delta to the value block into the card's
// transfer buffer. Call MifareClassicTransfer to store the result.
func (d *Device) MifareClassicIncrement(ctx context.Context, target, block byte, delta uint32) error {
	return d.valueOperation(ctx, "MifareClassicIncrement", target, mifareIncrement, block, delta)
}

// MifareClassicDecrement subtracts delta from the value block into the
// card's transfer buffer. Call MifareClassicTransfer to store the result.
func (d *Device) MifareClassicDecrement(ctx context.Context, target, block byte, delta uint32) error {
	return d.valueOperation(ctx, "MifareClassicDecrement", target, mifareDecrement, block, delta)
}

// MifareClassicTransfer writes the transfer buffer to block
func (d *Device) MifareClassicTransfer(ctx context.Context, target, block byte) error {
	_, err := d.dataExchange(ctx, "MifareClassicTransfer", ErrValueOperation, []byte{target, mifareTransfer, block})
	return err
}

func (d *Device) valueOperation(ctx context.Context, op string, target, opcode, block byte, delta uint32) error {
	args := []byte{target, opcode, block, 0, 0, 0, 0}
	binary.LittleEndian.PutUint32(args[3:], delta)
	_, err := d.dataExchange(ctx, op, ErrValueOperation, args)
	return err
}

// dataExchange runs InDataExchange and splits off the status byte. A non-zero
// status becomes a *PN532Error wrapping sentinel.
func (d *Device) dataExchange(ctx context.Context, op string, sentinel error, args []byte) ([]byte, error) {
	res, err := d.exchange(ctx, CmdInDataExchange, args, 0)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if len(res) < 1 {
		return nil, NewInvalidResponseError(op, "missing status byte")
	}
	if status := res[0] & statusMask; status != 0 {
		pe := NewPN532Error(sentinel, status, op, args[0])
		if len(args) > 2 {
			pe.Context = fmt.Sprintf("block %d", args[2])
		}
		return nil, pe
	}
	return res[1:], nil
}

// EncodeValueBlock builds a value block: the value, its inverse and the value
// again (little endian), then addr, ^addr, addr, ^addr.
func EncodeValueBlock(value int32, addr byte) []byte {
	block := make([]byte, MifareBlockSize)
	v := uint32(value)
	binary.LittleEndian.PutUint32(block[0:4], v)
	binary.LittleEndian.PutUint32(block[4:8], ^v)
	binary.LittleEndian.PutUint32(block[8:12], v)
	block[12], block[13], block[14], block[15] = addr, ^addr, addr, ^addr
	return block
}

// DecodeValueBlock validates a value block's redundancy and returns its value
// and address byte
func DecodeValueBlock(block []byte) (value int32, addr byte, err error) {
	if len(block) != MifareBlockSize {
		return 0, 0, fmt.Errorf("%w: need %d bytes, got %d", ErrInvalidBlockSize, MifareBlockSize, len(block))
	}
	v := binary.LittleEndian.Uint32(block[0:4])
	if binary.LittleEndian.Uint32(block[4:8]) != ^v || binary.LittleEndian.Uint32(block[8:12]) != v {
		return 0, 0, fmt.Errorf("%w: value copies disagree", ErrInvalidResponse)
	}
	a := block[12]
	if block[13] != ^a || block[14] != a || block[15] != ^a {
		return 0, 0, fmt.Errorf("%w: address copies disagree", ErrInvalidResponse)
	}
	return int32(v), a, nil
}

// clearKey zeroes key material after use
func clearKey(key []byte) {
	clear(key)
}

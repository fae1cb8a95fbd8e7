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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTarget_Variant(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		want    ClassicVariant
		blocks  int
		sak     byte
		classic bool
	}{
		{name: "1K", sak: 0x08, want: Classic1K, blocks: 64, classic: true},
		{name: "1K_Infineon", sak: 0x88, want: Classic1K, blocks: 64, classic: true},
		{name: "4K", sak: 0x18, want: Classic4K, blocks: 256, classic: true},
		{name: "Mini", sak: 0x09, want: ClassicMini, blocks: 20, classic: true},
		{name: "Ultralight", sak: 0x00, want: ClassicNone, blocks: 0},
		{name: "DESFire", sak: 0x20, want: ClassicNone, blocks: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			target := &Target{SelRes: tt.sak}
			assert.Equal(t, tt.want, target.Variant())
			assert.Equal(t, tt.blocks, target.Variant().Blocks())
			assert.Equal(t, tt.classic, target.IsMifareClassic())
		})
	}
}

func TestTarget_Strings(t *testing.T) {
	t.Parallel()

	target := &Target{Number: 1, SensRes: 0x0004, SelRes: 0x08, UID: []byte{0xDE, 0xAD, 0xBE, 0xEF}}
	assert.Equal(t, "deadbeef", target.UIDString())
	assert.Equal(t, "target 1 uid=DE:AD:BE:EF atqa=0x0004 sak=0x08 (MIFARE Classic 1K)", target.String())
	assert.Equal(t, ManufacturerUnknown, target.Manufacturer())
}

func TestGetManufacturer(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		want Manufacturer
		uid  []byte
	}{
		{name: "NXP", uid: []byte{0x04, 1, 2, 3, 4, 5, 6}, want: ManufacturerNXP},
		{name: "ST", uid: []byte{0x02, 1, 2, 3, 4, 5, 6}, want: ManufacturerST},
		{name: "Infineon", uid: []byte{0x05, 1, 2, 3, 4, 5, 6}, want: ManufacturerInfineon},
		{name: "TI", uid: []byte{0x07, 1, 2, 3, 4, 5, 6}, want: ManufacturerTI},
		{name: "Unknown_Code", uid: []byte{0x99, 1, 2, 3, 4, 5, 6}, want: ManufacturerUnknown},
		{name: "Random_4_Byte", uid: []byte{0x04, 1, 2, 3}, want: ManufacturerUnknown},
		{name: "Empty", uid: nil, want: ManufacturerUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, GetManufacturer(tt.uid))
		})
	}
}

func TestSectorLayout(t *testing.T) {
	t.Parallel()

	assert.True(t, IsTrailerBlock(3))
	assert.True(t, IsTrailerBlock(127))
	assert.False(t, IsTrailerBlock(128))
	assert.True(t, IsTrailerBlock(143))
	assert.True(t, IsTrailerBlock(255))
	assert.False(t, IsTrailerBlock(4))

	assert.Equal(t, byte(0), SectorOf(0))
	assert.Equal(t, byte(1), SectorOf(7))
	assert.Equal(t, byte(31), SectorOf(127))
	assert.Equal(t, byte(32), SectorOf(128))
	assert.Equal(t, byte(39), SectorOf(255))
}

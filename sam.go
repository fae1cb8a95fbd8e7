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

// SAMMode represents the SAM configuration mode
type SAMMode byte

const (
	// SAMModeNormal - normal mode (default)
	SAMModeNormal SAMMode = 0x01
	// SAMModeVirtualCard - Virtual Card mode
	SAMModeVirtualCard SAMMode = 0x02
	// SAMModeWiredCard - Wired Card mode
	SAMModeWiredCard SAMMode = 0x03
	// SAMModeDualCard - Dual Card mode
	SAMModeDualCard SAMMode = 0x04
)

// Valid reports whether m is a mode the PN532 accepts.
func (m SAMMode) Valid() bool {
	return m >= SAMModeNormal && m <= SAMModeDualCard
}

func (m SAMMode) String() string {
	switch m {
	case SAMModeNormal:
		return "normal"
	case SAMModeVirtualCard:
		return "virtual-card"
	case SAMModeWiredCard:
		return "wired-card"
	case SAMModeDualCard:
		return "dual-card"
	default:
		return fmt.Sprintf("SAMMode(0x%02X)", byte(m))
	}
}

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

// Command is a PN532 command identifier. The set is closed: the only valid
// values are the Cmd* variables below, so an arbitrary opcode can never reach
// the bus. The zero value is invalid.
type Command struct {
	code byte
}

// Commands supported by the driver (PN532 User Manual §7, Table 12).
var (
	CmdGetFirmwareVersion  = Command{code: 0x02}
	CmdGetGeneralStatus    = Command{code: 0x04}
	CmdSAMConfiguration    = Command{code: 0x14}
	CmdPowerDown           = Command{code: 0x16}
	CmdInDataExchange      = Command{code: 0x40}
	CmdInListPassiveTarget = Command{code: 0x4A}
)

var commandNames = map[byte]string{
	0x02: "GetFirmwareVersion",
	0x04: "GetGeneralStatus",
	0x14: "SAMConfiguration",
	0x16: "PowerDown",
	0x40: "InDataExchange",
	0x4A: "InListPassiveTarget",
}

// Code returns the command byte sent after the TFI.
func (c Command) Code() byte {
	return c.code
}

// Response returns the response code the module echoes for this command.
func (c Command) Response() byte {
	return c.code + 1
}

// Valid reports whether c is one of the named commands.
func (c Command) Valid() bool {
	_, ok := commandNames[c.code]
	return ok
}

func (c Command) String() string {
	if name, ok := commandNames[c.code]; ok {
		return name
	}
	return fmt.Sprintf("Command(0x%02X)", c.code)
}

// MIFARE Classic opcodes carried inside InDataExchange.
const (
	mifareAuthA     byte = 0x60
	mifareAuthB     byte = 0x61
	mifareRead      byte = 0x30
	mifareWrite     byte = 0xA0
	mifareIncrement byte = 0xC1
	mifareDecrement byte = 0xC0
	mifareTransfer  byte = 0xB0
)

// Baud rate / modulation types for InListPassiveTarget.
const (
	// BaudRate106kbpsTypeA selects ISO14443 Type A at 106 kbps (MIFARE).
	BaudRate106kbpsTypeA byte = 0x00
)

// PowerDownWakeupFlags provides constants for PowerDown wake-up sources
const (
	WakeupHSU     byte = 0x01 // Wake-up by High Speed UART
	WakeupSPI     byte = 0x02 // Wake-up by SPI
	WakeupI2C     byte = 0x04 // Wake-up by I2C
	WakeupGPIOP32 byte = 0x08 // Wake-up by GPIO P32
	WakeupGPIOP34 byte = 0x10 // Wake-up by GPIO P34
	WakeupRF      byte = 0x20 // Wake-up by RF field
	WakeupINT1    byte = 0x80 // Wake-up by GPIO P72/INT1

	// DefaultWakeupCauses wakes on INT1 or P32.
	DefaultWakeupCauses = WakeupINT1 | WakeupGPIOP32
)

// statusMask isolates the error code in an InDataExchange/PowerDown status byte.
// Bits 6 and 7 carry the MI and NAD flags.
const statusMask byte = 0x3F

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

// Package testing provides a PN532 simulator for tests.
//
// VirtualPN532 implements periph.io's i2c.Bus and answers at the frame level
// the way the chip does on I2C: every read starts with a status byte, bit 0
// set when output is waiting, and a multi-byte read consumes the output.
// A command write is answered with an ACK; the response follows once the ACK
// has been read.
package testing

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	pn532 "github.com/ZaparooProject/go-pn532-i2c"
	"github.com/ZaparooProject/go-pn532-i2c/internal/frame"
	"github.com/ZaparooProject/go-pn532-i2c/internal/syncutil"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
)

// DefaultAddress is the PN532's 7-bit I2C address
const DefaultAddress = 0x24

// PN532 command codes the simulator answers
const (
	cmdGetFirmwareVersion  = 0x02
	cmdGetGeneralStatus    = 0x04
	cmdSAMConfiguration    = 0x14
	cmdPowerDown           = 0x16
	cmdInDataExchange      = 0x40
	cmdInListPassiveTarget = 0x4A
)

// MIFARE opcodes inside InDataExchange
const (
	mfAuthA     = 0x60
	mfAuthB     = 0x61
	mfRead      = 0x30
	mfWrite     = 0xA0
	mfIncrement = 0xC1
	mfDecrement = 0xC0
	mfTransfer  = 0xB0
)

// Status codes from the PN532 error table
const (
	errTimeout       = 0x01
	errInvalidParam  = 0x10
	errMifareAuth    = 0x14
	errCommand       = 0x27
	errCardGone      = 0x2B
	statusOK         = 0x00
	statusReadyFlag  = 0x01
	defaultSupport   = 0x07
	defaultFirmwareV = 0x01
	defaultFirmwareR = 0x06
)

// ErrBusFault is returned by Tx while read errors are injected
var ErrBusFault = errors.New("simulated bus fault")

// syntaxErrorFrame is the chip's answer to a command it does not know
var syntaxErrorFrame = []byte{0x00, 0x00, 0xFF, 0x01, 0xFF, 0x7F, 0x81, 0x00}

// SimulatorState is a snapshot of the chip state
type SimulatorState struct {
	SAMMode        byte
	Asleep         bool
	RFFieldOn      bool
	SelectedTarget int // 0 = none
}

// VirtualPN532 simulates a PN532 behind an I2C bus
type VirtualPN532 struct {
	tag       *VirtualTag
	out       []byte // output the status byte currently advertises
	next      []byte // response queued behind the ACK
	writes    [][]byte
	injected  []byte
	state     SimulatorState
	mu        syncutil.Mutex
	firmware  [4]byte
	addr      uint16
	busyPolls int
	delay     int
	readFails int
	lastError byte
	speed     physic.Frequency

	injectChecksumError bool
	injectNACK          bool
	dropNextACK         bool
	stuck               bool
	closed              bool
}

// NewVirtualPN532 creates a simulator with firmware 1.6 and no card
func NewVirtualPN532() *VirtualPN532 {
	return &VirtualPN532{
		addr:     DefaultAddress,
		firmware: [4]byte{0x32, defaultFirmwareV, defaultFirmwareR, defaultSupport},
	}
}

// String implements i2c.Bus
func (*VirtualPN532) String() string {
	return "sim-i2c"
}

// SetSpeed implements i2c.Bus
func (v *VirtualPN532) SetSpeed(f physic.Frequency) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.speed = f
	return nil
}

// Speed returns the last speed the host set
func (v *VirtualPN532) Speed() physic.Frequency {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.speed
}

// Close implements i2c.BusCloser
func (v *VirtualPN532) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.closed = true
	return nil
}

// Tx implements i2c.Bus. The write half runs before the read half.
func (v *VirtualPN532) Tx(addr uint16, w, r []byte) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.closed {
		return errors.New("bus closed")
	}
	if addr != v.addr {
		return fmt.Errorf("no device at address 0x%02X", addr)
	}
	if len(w) > 0 {
		v.writes = append(v.writes, append([]byte(nil), w...))
		v.handleWrite(w)
	}
	if len(r) > 0 {
		return v.handleRead(r)
	}
	return nil
}

// SetTag replaces the card in the field; nil removes it
func (v *VirtualPN532) SetTag(tag *VirtualTag) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.tag = tag
	v.state.SelectedTarget = 0
}

// RemoveAllTags empties the field
func (v *VirtualPN532) RemoveAllTags() {
	v.SetTag(nil)
}

// SetFirmwareVersion sets the GetFirmwareVersion answer
func (v *VirtualPN532) SetFirmwareVersion(ic, ver, rev, support byte) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.firmware = [4]byte{ic, ver, rev, support}
}

// SetAddress moves the chip to another bus address
func (v *VirtualPN532) SetAddress(addr uint16) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.addr = addr
}

// SetResponseDelay makes the status byte read not ready for n polls after
// the ACK is consumed
func (v *VirtualPN532) SetResponseDelay(n int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.delay = n
}

// SetStuck makes the status byte never report ready
func (v *VirtualPN532) SetStuck(stuck bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.stuck = stuck
}

// InjectChecksumError corrupts the DCS of the next response
func (v *VirtualPN532) InjectChecksumError() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.injectChecksumError = true
}

// InjectNACK answers the next command with a NACK
func (v *VirtualPN532) InjectNACK() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.injectNACK = true
}

// DropNextACK swallows the next command without answering
func (v *VirtualPN532) DropNextACK() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.dropNextACK = true
}

// InjectReadErrors fails the next n read transactions
func (v *VirtualPN532) InjectReadErrors(n int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.readFails = n
}

// InjectResponse replaces the next response with raw bytes
func (v *VirtualPN532) InjectResponse(raw []byte) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.injected = append([]byte(nil), raw...)
}

// GetState returns the chip state
func (v *VirtualPN532) GetState() SimulatorState {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

// Writes returns every write the host made, in order
func (v *VirtualPN532) Writes() [][]byte {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([][]byte, len(v.writes))
	copy(out, v.writes)
	return out
}

// HasPendingResponse reports whether output is waiting
func (v *VirtualPN532) HasPendingResponse() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.out != nil || v.next != nil
}

// Reset clears chip state and injected faults. The card stays.
func (v *VirtualPN532) Reset() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.out, v.next, v.injected, v.writes = nil, nil, nil, nil
	v.state = SimulatorState{}
	v.busyPolls, v.readFails, v.lastError = 0, 0, 0
	v.injectChecksumError, v.injectNACK, v.dropNextACK, v.stuck = false, false, false, false
}

func (v *VirtualPN532) handleRead(r []byte) error {
	if v.readFails > 0 {
		v.readFails--
		return ErrBusFault
	}

	clear(r)
	if v.stuck || v.out == nil {
		return nil
	}
	if v.busyPolls > 0 {
		v.busyPolls--
		return nil
	}

	r[0] = statusReadyFlag
	if len(r) == 1 {
		return nil
	}
	copy(r[1:], v.out)

	v.out, v.next = v.next, nil
	if v.out != nil {
		v.busyPolls = v.delay
	}
	return nil
}

func (v *VirtualPN532) handleWrite(w []byte) {
	if bytes.Equal(w, frame.AckFrame) {
		// An ACK from the host aborts the current command and wakes the chip.
		v.out, v.next = nil, nil
		v.state.Asleep = false
		return
	}
	if v.state.Asleep {
		return
	}

	code, params, ok := parseHostFrame(w)
	if !ok {
		v.out, v.next = frame.NackFrame, nil
		return
	}

	if v.dropNextACK {
		v.dropNextACK = false
		v.out, v.next = nil, nil
		return
	}
	if v.injectNACK {
		v.injectNACK = false
		v.out, v.next = frame.NackFrame, nil
		return
	}

	resp := v.respond(code, params)
	if v.injected != nil {
		resp, v.injected = v.injected, nil
	}
	if resp != nil && v.injectChecksumError {
		v.injectChecksumError = false
		resp = append([]byte(nil), resp...)
		resp[len(resp)-2]++
	}

	v.out, v.next = frame.AckFrame, resp
	v.busyPolls = 0
}

// parseHostFrame validates a D4 frame and returns its command and parameters
func parseHostFrame(w []byte) (code byte, params []byte, ok bool) {
	if len(w) < frame.Overhead+2 || w[0] != frame.Preamble || w[1] != frame.StartCode1 || w[2] != frame.StartCode2 {
		return 0, nil, false
	}
	n := int(w[3])
	if w[3]+w[4] != 0 || n < 2 || len(w) < frame.Overhead+n {
		return 0, nil, false
	}
	data := w[5 : 5+n]
	if frame.CalculateChecksum(data)+w[5+n] != 0 || data[0] != frame.HostToPn532 {
		return 0, nil, false
	}
	return data[1], data[2:], true
}

// respond runs a command and returns the framed response, or nil when the
// chip stays silent
func (v *VirtualPN532) respond(code byte, params []byte) []byte {
	var payload []byte
	switch code {
	case cmdGetFirmwareVersion:
		payload = v.firmware[:]
	case cmdGetGeneralStatus:
		payload = v.generalStatus()
	case cmdSAMConfiguration:
		if len(params) < 1 || params[0] < 0x01 || params[0] > 0x04 {
			return syntaxErrorFrame
		}
		v.state.SAMMode = params[0]
		v.state.RFFieldOn = true
	case cmdPowerDown:
		if len(params) < 1 {
			return syntaxErrorFrame
		}
		payload = []byte{statusOK}
		v.state.Asleep = true
		v.state.RFFieldOn = false
		v.state.SelectedTarget = 0
	case cmdInListPassiveTarget:
		var found bool
		payload, found = v.listPassiveTarget(params)
		if !found {
			// Without a card the chip keeps searching and never answers.
			return nil
		}
	case cmdInDataExchange:
		payload = v.dataExchange(params)
	default:
		return syntaxErrorFrame
	}

	raw, err := frame.EncodeResponse(code+1, payload)
	if err != nil {
		return syntaxErrorFrame
	}
	return raw
}

func (v *VirtualPN532) generalStatus() []byte {
	out := []byte{v.lastError, 0x00, 0x00}
	if v.state.RFFieldOn {
		out[1] = 0x01
	}
	if v.state.SelectedTarget != 0 {
		out[2] = 0x01
		out = append(out, byte(v.state.SelectedTarget), 0x00, 0x00, 0x00)
	}
	return append(out, 0x00)
}

func (v *VirtualPN532) listPassiveTarget(params []byte) ([]byte, bool) {
	if len(params) < 2 || params[1] != pn532.BaudRate106kbpsTypeA {
		return []byte{0x00}, true
	}
	if v.tag == nil || !v.tag.Present {
		return nil, false
	}

	v.tag.ResetAuthentication()
	v.state.SelectedTarget = 1
	v.state.RFFieldOn = true

	out := []byte{0x01, 0x01, byte(v.tag.ATQA >> 8), byte(v.tag.ATQA), v.tag.SAK, byte(len(v.tag.UID))}
	return append(out, v.tag.UID...), true
}

// dataExchange returns the status byte followed by any card data
func (v *VirtualPN532) dataExchange(params []byte) []byte {
	if len(params) < 3 {
		return v.fail(errInvalidParam)
	}
	if v.state.SelectedTarget == 0 || params[0] != byte(v.state.SelectedTarget) {
		return v.fail(errCommand)
	}
	if v.tag == nil || !v.tag.Present {
		return v.fail(errCardGone)
	}

	op, block, rest := params[1], params[2], params[3:]
	var err error
	var data []byte
	switch op {
	case mfAuthA, mfAuthB:
		if len(rest) != pn532.MifareKeySize+4 {
			return v.fail(errInvalidParam)
		}
		err = v.tag.Authenticate(block, pn532.KeyType(op), rest[:pn532.MifareKeySize], rest[pn532.MifareKeySize:])
	case mfRead:
		data, err = v.tag.ReadBlock(block)
	case mfWrite:
		if len(rest) != pn532.MifareBlockSize {
			return v.fail(errInvalidParam)
		}
		err = v.tag.WriteBlock(block, rest)
	case mfIncrement, mfDecrement:
		if len(rest) != 4 {
			return v.fail(errInvalidParam)
		}
		delta := int32(binary.LittleEndian.Uint32(rest))
		if op == mfIncrement {
			err = v.tag.Increment(block, delta)
		} else {
			err = v.tag.Decrement(block, delta)
		}
	case mfTransfer:
		err = v.tag.Transfer(block)
	default:
		return v.fail(errCommand)
	}

	switch {
	case err == nil:
		v.lastError = statusOK
		return append([]byte{statusOK}, data...)
	case errors.Is(err, errTagAbsent):
		return v.fail(errCardGone)
	case op == mfAuthA || op == mfAuthB:
		return v.fail(errMifareAuth)
	default:
		// The card NAKs; the chip reports it as a timeout on the RF side.
		return v.fail(errTimeout)
	}
}

func (v *VirtualPN532) fail(code byte) []byte {
	v.lastError = code
	return []byte{code}
}

var _ i2c.BusCloser = (*VirtualPN532)(nil)

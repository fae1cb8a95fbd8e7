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
	"errors"
	"fmt"
	"io"
)

// Protocol errors raised by the frame codec and the transaction engine.
var (
	// ErrEncoding reports a request that cannot be framed. Caller's fault, never retried.
	ErrEncoding = errors.New("frame encoding failed")
	// ErrFrameCorrupt reports a checksum or structural mismatch in a received frame.
	ErrFrameCorrupt = errors.New("frame corrupted")
	// ErrUnexpectedDirection reports a received frame tagged host-to-module.
	ErrUnexpectedDirection = errors.New("unexpected frame direction")
	// ErrNegativeAck reports a NACK from the module in place of an ACK.
	ErrNegativeAck = errors.New("NACK received")
	// ErrAckTimeout reports that no ACK arrived within the bounded retries.
	ErrAckTimeout = errors.New("no ACK received")
	// ErrReadTimeout reports that the module never signalled a ready response.
	ErrReadTimeout = errors.New("response read timeout")
	// ErrInvalidResponse reports a well-formed frame whose content does not fit the command.
	ErrInvalidResponse = errors.New("invalid response format")
	// ErrTransportClosed reports use of a transport after Close.
	ErrTransportClosed = errors.New("transport is closed")
)

// Command and card level errors.
var (
	ErrFirmwareRead     = errors.New("firmware version read failed")
	ErrAuthentication   = errors.New("MIFARE authentication failed")
	ErrBlockRead        = errors.New("MIFARE block read failed")
	ErrBlockWrite       = errors.New("MIFARE block write failed")
	ErrValueOperation   = errors.New("MIFARE value operation failed")
	ErrInvalidBlockSize = errors.New("invalid block size")
	ErrDeviceAsleep     = errors.New("device is powered down")
	ErrCommandFailed    = errors.New("command execution failed")
)

// ErrorType represents the category of error for retry logic
type ErrorType int

const (
	// ErrorTypeTransient indicates a potentially retryable error
	ErrorTypeTransient ErrorType = iota
	// ErrorTypePermanent indicates a non-retryable error
	ErrorTypePermanent
	// ErrorTypeTimeout indicates a timeout error (special handling)
	ErrorTypeTimeout
)

// TransportError wraps transport-level errors with additional context
type TransportError struct {
	Err       error     // Underlying error
	Op        string    // Operation that failed
	Port      string    // Bus identifier
	Type      ErrorType // Error category
	Retryable bool      // Whether the error is retryable
}

func (e *TransportError) Error() string {
	if e.Port != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Port, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// PN532Error carries a non-zero status byte reported by the module.
// Err is the sentinel for the operation (ErrAuthentication, ErrBlockRead, ...)
// so callers can match it with errors.Is.
type PN532Error struct {
	Err       error
	Command   string
	Context   string
	ErrorCode byte
	Target    byte
}

func (e *PN532Error) Error() string {
	meaning := pn532ErrorCodeMeaning(e.ErrorCode)
	base := fmt.Sprintf("%s error 0x%02X (%s)", e.Command, e.ErrorCode, meaning)
	if e.Context != "" {
		base += ": " + e.Context
	}
	if e.Target != 0 {
		base += fmt.Sprintf(" [target %d]", e.Target)
	}
	return base
}

func (e *PN532Error) Unwrap() error {
	return e.Err
}

// pn532ErrorCodeMeaning returns a human-readable meaning for PN532 error codes
// Error codes are from the PN532 User Manual section 7.1
func pn532ErrorCodeMeaning(code byte) string {
	meanings := map[byte]string{
		0x00: "success",
		0x01: "timeout",
		0x02: "CRC error",
		0x03: "parity error",
		0x04: "erroneous bit count during anti-collision",
		0x05: "framing error during mifare operation",
		0x06: "abnormal bit collision",
		0x07: "communication buffer size insufficient",
		0x09: "RF buffer overflow",
		0x0A: "RF field not activated in time",
		0x0B: "RF protocol error",
		0x0D: "overheating",
		0x0E: "internal buffer overflow",
		0x10: "invalid parameter",
		0x12: "DEP protocol not supported",
		0x13: "dataformat does not match",
		0x14: "authentication error",
		0x23: "UID check byte is wrong",
		0x25: "DEP invalid state",
		0x26: "operation not allowed",
		0x27: "wrong context for command",
		0x29: "target released by initiator",
		0x2A: "card ID mismatch",
		0x2B: "card disappeared",
		0x2C: "NFCID3 initiator/target mismatch",
		0x2D: "over-current event",
		0x2E: "NAD missing in DEP frame",
		0x7F: "syntax error frame",
		0x81: "command not supported",
	}
	if m, ok := meanings[code]; ok {
		return m
	}
	return "unknown error"
}

// IsAuthenticationError returns true if the module reported a MIFARE authentication error
func (e *PN532Error) IsAuthenticationError() bool {
	return e.ErrorCode == 0x14
}

// IsTimeoutError returns true if the module reported an RF timeout
func (e *PN532Error) IsTimeoutError() bool {
	return e.ErrorCode == 0x01
}

// IsRetryable returns true if the error is worth retrying at the application level.
// Card-level rejections and caller mistakes are not.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var te *TransportError
	if errors.As(err, &te) {
		return te.Retryable
	}

	switch {
	case errors.Is(err, ErrNegativeAck),
		errors.Is(err, ErrAckTimeout),
		errors.Is(err, ErrReadTimeout):
		return true
	default:
		return false
	}
}

// IsFatal returns true if the transport can no longer be used.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrTransportClosed) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrClosedPipe)
}

// IsCardError returns true for rejections reported by the card itself.
// These are expected in normal operation (wrong key, missing block).
func IsCardError(err error) bool {
	var pe *PN532Error
	return errors.As(err, &pe)
}

// NewPN532Error creates a PN532 error for a non-zero status byte
func NewPN532Error(sentinel error, errorCode byte, command string, target byte) *PN532Error {
	return &PN532Error{
		Err:       sentinel,
		ErrorCode: errorCode,
		Command:   command,
		Target:    target,
	}
}

// NewTransportError creates a standard transport error with consistent formatting
func NewTransportError(op, port string, err error, errType ErrorType) *TransportError {
	return &TransportError{
		Op:        op,
		Port:      port,
		Err:       err,
		Type:      errType,
		Retryable: errType == ErrorTypeTransient || errType == ErrorTypeTimeout,
	}
}

// NewEncodingError creates a permanent encoding error
func NewEncodingError(op, reason string) *TransportError {
	return NewTransportError(op, "", fmt.Errorf("%w: %s", ErrEncoding, reason), ErrorTypePermanent)
}

// NewFrameCorruptError creates a frame corruption error. Corrupt frames are
// surfaced immediately, so the error is permanent for this call.
func NewFrameCorruptError(op, reason string) *TransportError {
	return NewTransportError(op, "", fmt.Errorf("%w: %s", ErrFrameCorrupt, reason), ErrorTypePermanent)
}

// NewUnexpectedDirectionError creates an error for a frame with the wrong TFI
func NewUnexpectedDirectionError(op string, tfi byte) *TransportError {
	return NewTransportError(op, "", fmt.Errorf("%w: TFI 0x%02X", ErrUnexpectedDirection, tfi), ErrorTypePermanent)
}

// NewNegativeAckError creates a "NACK received" error
func NewNegativeAckError(op, port string) *TransportError {
	return NewTransportError(op, port, ErrNegativeAck, ErrorTypeTransient)
}

// NewAckTimeoutError creates a "no ACK received" error
func NewAckTimeoutError(op, port string) *TransportError {
	return NewTransportError(op, port, ErrAckTimeout, ErrorTypeTimeout)
}

// NewReadTimeoutError creates a response read timeout error
func NewReadTimeoutError(op, port string) *TransportError {
	return NewTransportError(op, port, ErrReadTimeout, ErrorTypeTimeout)
}

// NewInvalidResponseError creates an invalid response error (permanent)
func NewInvalidResponseError(op, reason string) *TransportError {
	return NewTransportError(op, "", fmt.Errorf("%w: %s", ErrInvalidResponse, reason), ErrorTypePermanent)
}

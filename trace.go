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
	"errors"
	"fmt"
	"strings"
	"time"
)

// hexPreview is how many bytes FormatHexBytes prints before eliding
const hexPreview = 32

// TraceDirection indicates what a trace entry records
type TraceDirection string

const (
	TraceTX      TraceDirection = "TX"
	TraceRX      TraceDirection = "RX"
	TraceTimeout TraceDirection = "TIMEOUT"
)

// TraceEntry is one bus read, bus write or expired wait within a transaction
type TraceEntry struct {
	Direction TraceDirection
	Note      string
	Data      []byte
	// Offset is the time since the trace buffer was created
	Offset time.Duration
	// Data[maskFrom:maskTo] was zeroed before recording and prints as **
	maskFrom, maskTo int
}

func (e TraceEntry) String() string {
	marker := map[TraceDirection]string{TraceTX: ">", TraceRX: "<", TraceTimeout: "!"}[e.Direction]
	line := fmt.Sprintf("%s +%-8v", marker, e.Offset.Round(time.Microsecond))
	if e.Direction == TraceTimeout {
		return line + " TIMEOUT " + e.Note
	}
	line += " " + formatHex(e.Data, e.maskFrom, e.maskTo)
	if e.Note != "" {
		line += " (" + e.Note + ")"
	}
	return line
}

// TraceableError carries the wire trace of the transaction that failed.
// Extract it with GetTrace or errors.As.
type TraceableError struct {
	Err   error
	Bus   string
	Trace []TraceEntry
}

func (e *TraceableError) Error() string {
	return e.Err.Error()
}

func (e *TraceableError) Unwrap() error {
	return e.Err
}

// FormatTrace renders the trace one entry per line under a bus header
func (e *TraceableError) FormatTrace() string {
	if len(e.Trace) == 0 {
		return fmt.Sprintf("[i2c:%s] (no trace data)", e.Bus)
	}

	var sb strings.Builder
	_, _ = fmt.Fprintf(&sb, "[i2c:%s] Wire trace (%d entries):\n", e.Bus, len(e.Trace))
	for _, entry := range e.Trace {
		_, _ = fmt.Fprintf(&sb, "  %s\n", entry)
	}
	return sb.String()
}

// FormatHexBytes renders bytes as uppercase space separated hex. Long
// slices are cut after 32 bytes with the total appended.
func FormatHexBytes(data []byte) string {
	return formatHex(data, 0, 0)
}

func formatHex(data []byte, maskFrom, maskTo int) string {
	if len(data) == 0 {
		return "(empty)"
	}
	shown := data
	if len(data) > hexPreview {
		shown = data[:hexPreview]
	}

	var sb strings.Builder
	for i, b := range shown {
		if i > 0 {
			sb.WriteByte(' ')
		}
		if i >= maskFrom && i < maskTo {
			sb.WriteString("**")
			continue
		}
		sb.WriteString(strings.ToUpper(hex.EncodeToString([]byte{b})))
	}
	if len(data) > hexPreview {
		_, _ = fmt.Fprintf(&sb, " ... (%d bytes total)", len(data))
	}
	return sb.String()
}

// TraceBuffer is a ring of the last maxSize entries of one transaction.
// It is not safe for concurrent use; the engine holds the bus lock while
// recording.
type TraceBuffer struct {
	now     func() time.Time
	start   time.Time
	bus     string
	entries []TraceEntry
	next    int
	full    bool
}

// NewTraceBuffer creates a buffer holding up to maxSize entries (16 if
// maxSize <= 0). Offsets are measured with now, or time.Now when nil.
func NewTraceBuffer(bus string, maxSize int, now func() time.Time) *TraceBuffer {
	if maxSize <= 0 {
		maxSize = 16
	}
	if now == nil {
		now = time.Now
	}
	return &TraceBuffer{
		now:     now,
		start:   now(),
		bus:     bus,
		entries: make([]TraceEntry, maxSize),
	}
}

// RecordTX records bytes written to the module
func (tb *TraceBuffer) RecordTX(data []byte, note string) {
	tb.record(TraceTX, data, note)
}

// RecordTXMasked records a write with data[from:to] blanked out, for
// frames that carry secrets such as MIFARE keys
func (tb *TraceBuffer) RecordTXMasked(data []byte, note string, from, to int) {
	from = max(0, min(from, len(data)))
	to = max(from, min(to, len(data)))
	tb.record(TraceTX, data, note)
	entry := &tb.entries[tb.last()]
	clear(entry.Data[from:to])
	entry.maskFrom, entry.maskTo = from, to
}

// RecordRX records bytes read from the module, status byte included
func (tb *TraceBuffer) RecordRX(data []byte, note string) {
	tb.record(TraceRX, data, note)
}

// RecordTimeout records a wait that ran out
func (tb *TraceBuffer) RecordTimeout(note string) {
	tb.record(TraceTimeout, nil, note)
}

func (tb *TraceBuffer) record(dir TraceDirection, data []byte, note string) {
	tb.entries[tb.next] = TraceEntry{
		Direction: dir,
		Data:      append([]byte(nil), data...),
		Note:      note,
		Offset:    tb.now().Sub(tb.start),
	}
	tb.next++
	if tb.next == len(tb.entries) {
		tb.next = 0
		tb.full = true
	}
}

func (tb *TraceBuffer) last() int {
	if tb.next == 0 {
		return len(tb.entries) - 1
	}
	return tb.next - 1
}

// Entries returns the recorded entries, oldest first
func (tb *TraceBuffer) Entries() []TraceEntry {
	if !tb.full {
		return append([]TraceEntry(nil), tb.entries[:tb.next]...)
	}
	out := make([]TraceEntry, 0, len(tb.entries))
	out = append(out, tb.entries[tb.next:]...)
	return append(out, tb.entries[:tb.next]...)
}

// WrapError attaches the trace to err. A nil err stays nil.
func (tb *TraceBuffer) WrapError(err error) error {
	if err == nil {
		return nil
	}
	return &TraceableError{Err: err, Bus: tb.bus, Trace: tb.Entries()}
}

// GetTrace returns the trace attached anywhere in err's chain, or nil
func GetTrace(err error) *TraceableError {
	var te *TraceableError
	if errors.As(err, &te) {
		return te
	}
	return nil
}

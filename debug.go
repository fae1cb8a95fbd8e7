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
	"io"
	"os"
	"strings"

	"github.com/loopholelabs/logging"
	"github.com/loopholelabs/logging/types"
)

// NewDebugLogger returns a zerolog-backed logger at trace level writing to w.
// A nil w writes to stderr.
func NewDebugLogger(w io.Writer) types.RootLogger {
	if w == nil {
		w = os.Stderr
	}
	log := logging.New(logging.Zerolog, "pn532", w)
	log.SetLevel(types.TraceLevel)
	return log
}

// logCommand logs an outgoing command when a logger is configured.
func (d *Device) logCommand(cmd Command, args []byte) {
	if d.log == nil {
		return
	}
	d.log.Debug().
		Str("cmd", cmd.String()).
		Str("args", redactArgs(cmd, args)).
		Msg("sending command")
}

// AuthKeyOffset reports where the MIFARE key sits in args when cmd is an
// InDataExchange authentication, so logs and traces can mask it.
func AuthKeyOffset(cmd Command, args []byte) (int, bool) {
	if cmd != CmdInDataExchange || len(args) < 3+MifareKeySize {
		return 0, false
	}
	if args[1] != mifareAuthA && args[1] != mifareAuthB {
		return 0, false
	}
	return 3, true
}

// redactArgs formats command arguments with MIFARE keys masked out
func redactArgs(cmd Command, args []byte) string {
	off, ok := AuthKeyOffset(cmd, args)
	if !ok {
		return FormatHexBytes(args)
	}
	parts := []string{FormatHexBytes(args[:off]), "** ** ** ** ** **"}
	if rest := args[off+MifareKeySize:]; len(rest) > 0 {
		parts = append(parts, FormatHexBytes(rest))
	}
	return strings.Join(parts, " ")
}

// logResult logs a command outcome when a logger is configured.
func (d *Device) logResult(cmd Command, payload []byte, err error) {
	if d.log == nil {
		return
	}
	if err != nil {
		d.log.Debug().
			Str("cmd", cmd.String()).
			Err(err).
			Msg("command failed")
		return
	}
	d.log.Debug().
		Str("cmd", cmd.String()).
		Str("payload", FormatHexBytes(payload)).
		Msg("command succeeded")
}

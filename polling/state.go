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

package polling

import (
	"time"

	pn532 "github.com/ZaparooProject/go-pn532-i2c"
)

// CardDetectionState is the presence state of the field
type CardDetectionState int

const (
	StateIdle CardDetectionState = iota
	StateTagDetected
)

func (s CardDetectionState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateTagDetected:
		return "tag-detected"
	default:
		return "unknown"
	}
}

// CardState tracks the card currently in the field
type CardState struct {
	LastSeenTime   time.Time
	Target         *pn532.Target
	LastUID        string
	DetectionState CardDetectionState
	Present        bool
}

// TransitionToDetected records target as present at now
func (cs *CardState) TransitionToDetected(target *pn532.Target, now time.Time) {
	cs.DetectionState = StateTagDetected
	cs.Present = true
	cs.Target = target
	cs.LastUID = target.UIDString()
	cs.LastSeenTime = now
}

// TransitionToIdle forgets the current card
func (cs *CardState) TransitionToIdle() {
	cs.DetectionState = StateIdle
	cs.Present = false
	cs.Target = nil
	cs.LastUID = ""
	cs.LastSeenTime = time.Time{}
}

// Expired reports whether a present card has gone unseen for longer than timeout
func (cs *CardState) Expired(now time.Time, timeout time.Duration) bool {
	return cs.Present && now.Sub(cs.LastSeenTime) >= timeout
}

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

// Package polling watches the RF field for MIFARE cards arriving and leaving.
package polling

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	pn532 "github.com/ZaparooProject/go-pn532-i2c"
	"github.com/ZaparooProject/go-pn532-i2c/internal/syncutil"
	"github.com/loopholelabs/logging/types"
)

// ErrSessionClosed is returned by Start and Poll after Close
var ErrSessionClosed = errors.New("polling session closed")

// Clock is the time source for poll pacing and removal detection
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SessionOption configures a Session
type SessionOption func(*Session)

// WithClock replaces the wall clock
func WithClock(c Clock) SessionOption {
	return func(s *Session) {
		s.clock = c
	}
}

// WithLogger logs poll failures and recoveries
func WithLogger(log types.Logger) SessionOption {
	return func(s *Session) {
		s.log = log
	}
}

// WithRecoverer replaces the default Init-based recovery
func WithRecoverer(r DeviceRecoverer) SessionOption {
	return func(s *Session) {
		s.recoverer = r
	}
}

// Session polls a Device and reports cards through its callbacks. Callbacks
// run on the polling goroutine; set them before Start.
type Session struct {
	// OnCardDetected runs when a card enters an empty field. An error stops Start.
	OnCardDetected func(target *pn532.Target) error
	// OnCardChanged runs when a different card replaces the current one.
	// When nil, OnCardRemoved and OnCardDetected run instead.
	OnCardChanged func(target *pn532.Target) error
	OnCardRemoved func()
	// OnPollError sees every failed poll that was not caused by ctx ending
	OnPollError func(err error)

	device    *pn532.Device
	config    *Config
	clock     Clock
	log       types.Logger
	recoverer DeviceRecoverer
	lastPoll  time.Time
	state     CardState
	stateMu   syncutil.Mutex
	closed    atomic.Bool
}

// NewSession creates a card monitoring session. A nil config uses DefaultConfig.
func NewSession(device *pn532.Device, config *Config, opts ...SessionOption) *Session {
	if config == nil {
		config = DefaultConfig()
	}
	s := &Session{
		device: device,
		config: config,
		clock:  systemClock{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.recoverer == nil {
		s.recoverer = NewDefaultRecoverer(device, config.SleepRecovery, s.clock)
	}
	return s
}

// Start polls until ctx ends, a callback fails or Close is called. It
// returns ctx.Err() on cancellation.
func (s *Session) Start(ctx context.Context) error {
	for {
		if err := s.Poll(ctx); err != nil {
			return err
		}
		if err := s.clock.Sleep(ctx, s.config.PollInterval); err != nil {
			return err
		}
	}
}

// Poll runs one detection cycle. Failed polls are reported to OnPollError
// and do not end the session; only ctx, Close and callback errors do.
func (s *Session) Poll(ctx context.Context) error {
	if s.closed.Load() {
		return ErrSessionClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.recoverAfterSleep(ctx)

	targets, err := s.device.ListPassiveTarget(ctx, s.config.PollTimeout)
	s.lastPoll = s.clock.Now()
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.handlePollingError(err)
		return nil
	}

	if len(targets) == 0 {
		s.stateMu.Lock()
		expired := s.state.Expired(s.lastPoll, s.config.CardRemovalTimeout)
		s.stateMu.Unlock()
		if expired {
			s.handleCardRemoval()
		}
		return nil
	}

	return s.processTarget(targets[0])
}

// State returns a copy of the current card state
func (s *Session) State() CardState {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.state
}

// Close stops the session. The device stays open.
func (s *Session) Close() error {
	s.closed.Store(true)
	return nil
}

func (s *Session) recoverAfterSleep(ctx context.Context) {
	if s.lastPoll.IsZero() {
		return
	}
	elapsed := s.clock.Now().Sub(s.lastPoll)
	if !s.config.SleepRecovery.DetectSleep(elapsed, s.config.PollInterval) {
		return
	}

	if s.log != nil {
		s.log.Info().Str("gap", elapsed.String()).Msg("host sleep detected, reinitialising module")
	}
	if err := s.recoverer.AttemptRecovery(ctx); err != nil && s.log != nil {
		s.log.Warn().Err(err).Msg("module recovery failed")
	}
	// The card we knew about may have left while we slept.
	s.handleCardRemoval()
}

func (s *Session) handlePollingError(err error) {
	if s.log != nil {
		s.log.Debug().Err(err).Msg("poll failed")
	}
	if s.OnPollError != nil {
		s.OnPollError(err)
	}
	// A fatal bus error means nothing in the field can still be trusted.
	if pn532.IsFatal(err) {
		s.handleCardRemoval()
	}
}

func (s *Session) handleCardRemoval() {
	s.stateMu.Lock()
	wasPresent := s.state.Present
	s.state.TransitionToIdle()
	s.stateMu.Unlock()

	if wasPresent && s.OnCardRemoved != nil {
		s.OnCardRemoved()
	}
}

func (s *Session) processTarget(target *pn532.Target) error {
	s.stateMu.Lock()
	prev := s.state
	s.state.TransitionToDetected(target, s.lastPoll)
	s.stateMu.Unlock()

	switch {
	case !prev.Present:
		return s.safeCallCallback(s.OnCardDetected, target, "OnCardDetected")
	case bytes.Equal(prev.Target.UID, target.UID):
		return nil
	case s.OnCardChanged != nil:
		return s.safeCallCallback(s.OnCardChanged, target, "OnCardChanged")
	default:
		if s.OnCardRemoved != nil {
			s.OnCardRemoved()
		}
		return s.safeCallCallback(s.OnCardDetected, target, "OnCardDetected")
	}
}

// safeCallCallback executes a callback with panic recovery
func (*Session) safeCallCallback(
	callback func(*pn532.Target) error,
	target *pn532.Target,
	name string,
) (err error) {
	if callback == nil {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s callback panicked: %v", name, r)
		}
	}()
	if cbErr := callback(target); cbErr != nil {
		return fmt.Errorf("%s callback failed: %w", name, cbErr)
	}
	return nil
}

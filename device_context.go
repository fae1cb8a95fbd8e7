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
	"errors"
	"fmt"
	"time"
)

// Init configures the SAM in the configured mode and reads the firmware
// version, which is cached for Firmware.
func (d *Device) Init(ctx context.Context) error {
	if err := d.SetMode(ctx, d.config.SAMMode); err != nil {
		return fmt.Errorf("init: %w", err)
	}

	fw, err := d.FirmwareVersion(ctx)
	if err != nil {
		return fmt.Errorf("init: %w", err)
	}
	d.firmware = fw

	if d.log != nil {
		d.log.Info().Str("firmware", fw.String()).Msg("PN532 initialised")
	}
	return nil
}

// FirmwareVersion reads the IC, version, revision and support bytes
func (d *Device) FirmwareVersion(ctx context.Context) (*FirmwareVersion, error) {
	res, err := d.exchange(ctx, CmdGetFirmwareVersion, nil, 0)
	if err != nil {
		if errors.Is(err, ErrDeviceAsleep) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrFirmwareRead, err)
	}
	return parseFirmwareVersion(res)
}

// GeneralStatus returns the last error, field state and the targets the
// module is handling
func (d *Device) GeneralStatus(ctx context.Context) (*GeneralStatus, error) {
	res, err := d.exchange(ctx, CmdGetGeneralStatus, nil, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to get general status: %w", err)
	}
	return parseGeneralStatus(res)
}

// SetMode sends SAMConfiguration with the given mode and no virtual card timeout
func (d *Device) SetMode(ctx context.Context, mode SAMMode) error {
	if !mode.Valid() {
		return NewEncodingError("SAMConfiguration", fmt.Sprintf("invalid SAM mode 0x%02X", byte(mode)))
	}
	if _, err := d.exchange(ctx, CmdSAMConfiguration, []byte{byte(mode), 0x00}, 0); err != nil {
		return fmt.Errorf("SAM configuration failed: %w", err)
	}
	return nil
}

// ListPassiveTarget looks for one ISO14443A card at 106 kbps. When no card
// answers within timeout the pending command is aborted and an empty slice is
// returned with a nil error. A zero timeout uses DeviceConfig.PassiveTargetTimeout.
func (d *Device) ListPassiveTarget(ctx context.Context, timeout time.Duration) ([]*Target, error) {
	if timeout <= 0 {
		timeout = d.config.PassiveTargetTimeout
	}

	res, err := d.exchange(ctx, CmdInListPassiveTarget, []byte{0x01, BaudRate106kbpsTypeA}, timeout)
	if err != nil {
		if errors.Is(err, ErrReadTimeout) {
			// The module keeps polling until told otherwise.
			if abortErr := d.transport.SendACK(ctx); abortErr != nil && d.log != nil {
				d.log.Debug().Err(abortErr).Msg("abort after passive target timeout failed")
			}
			return []*Target{}, nil
		}
		return nil, fmt.Errorf("passive target detection failed: %w", err)
	}

	targets, err := parseTargets(res)
	if err != nil {
		return nil, err
	}
	if d.log != nil {
		for _, t := range targets {
			d.log.Debug().Str("uid", t.UIDString()).Uint8("sak", t.SelRes).Msg("target found")
		}
	}
	return targets, nil
}

// PowerDown puts the module in power down. Until Wakeup is called every other
// command fails with ErrDeviceAsleep without touching the bus.
func (d *Device) PowerDown(ctx context.Context, wakeupCauses byte) error {
	res, err := d.exchange(ctx, CmdPowerDown, []byte{wakeupCauses}, 0)
	if err != nil {
		return fmt.Errorf("power down failed: %w", err)
	}
	if len(res) < 1 {
		return NewInvalidResponseError("PowerDown", "missing status byte")
	}
	if status := res[0] & statusMask; status != 0 {
		return NewPN532Error(ErrCommandFailed, status, "PowerDown", 0)
	}

	d.setAsleep(true)
	return nil
}

// Wakeup brings the module out of power down by writing an ACK frame and
// waiting for it to settle. It is also safe on an awake module.
func (d *Device) Wakeup(ctx context.Context) error {
	if err := d.transport.SendACK(ctx); err != nil {
		return fmt.Errorf("wakeup failed: %w", err)
	}
	if err := d.sleep(ctx, d.config.WakeupDelay); err != nil {
		return fmt.Errorf("wakeup interrupted: %w", err)
	}

	d.setAsleep(false)
	if d.log != nil {
		d.log.Debug().Msg("module awake")
	}
	return nil
}

// Abort writes an ACK frame, which makes the module drop the command in
// progress. The module may already have finished it.
func (d *Device) Abort(ctx context.Context) error {
	if d.Asleep() {
		return fmt.Errorf("abort: %w", ErrDeviceAsleep)
	}
	if err := d.transport.SendACK(ctx); err != nil {
		return fmt.Errorf("abort failed: %w", err)
	}
	return nil
}

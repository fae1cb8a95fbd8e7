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

package detection_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ZaparooProject/go-pn532-i2c/detection"
	simtest "github.com/ZaparooProject/go-pn532-i2c/internal/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	periphi2c "periph.io/x/conn/v3/i2c"
)

var errNoBus = errors.New("no such bus")

// simBuses opens a fresh simulator for "pn532" names and one listening on
// another address for "other" names. Anything else fails to open.
func simBuses(opened *[]*simtest.VirtualPN532) detection.Opener {
	return func(name string) (periphi2c.BusCloser, error) {
		sim := simtest.NewVirtualPN532()
		switch name {
		case "pn532", "/dev/i2c-1", "cached":
		case "other":
			sim.SetAddress(0x30)
		default:
			return nil, errNoBus
		}
		if opened != nil {
			*opened = append(*opened, sim)
		}
		return sim, nil
	}
}

func testOptions(mode detection.Mode, buses ...string) *detection.Options {
	opts := detection.DefaultOptions()
	opts.Mode = mode
	opts.Buses = buses
	opts.Open = simBuses(nil)
	opts.ProbeTimeout = 50 * time.Millisecond
	opts.EnableCache = false
	return &opts
}

func TestDetect_Safe(t *testing.T) {
	t.Parallel()

	devices, err := detection.Detect(context.Background(), testOptions(detection.Safe, "other", "pn532", "missing"))
	require.NoError(t, err)
	require.Len(t, devices, 1)

	d := devices[0]
	assert.Equal(t, "pn532", d.Path)
	assert.Equal(t, uint16(0x24), d.Address)
	assert.Equal(t, detection.Medium, d.Confidence)
	require.NotNil(t, d.Firmware)
	assert.Equal(t, "1.6", d.Firmware.Version())
	assert.Equal(t, "i2c device at pn532:0x24 (confidence: medium) PN532 firmware 1.6", d.String())
}

func TestDetect_Full(t *testing.T) {
	t.Parallel()

	var opened []*simtest.VirtualPN532
	opts := testOptions(detection.Full, "pn532")
	opts.Open = simBuses(&opened)

	devices, err := detection.Detect(context.Background(), opts)
	require.NoError(t, err)
	require.Len(t, devices, 1)
	assert.Equal(t, detection.High, devices[0].Confidence)

	require.Len(t, opened, 1)
	assert.Equal(t, byte(0x01), opened[0].GetState().SAMMode)
}

func TestDetect_Passive(t *testing.T) {
	t.Parallel()

	opts := testOptions(detection.Passive, "pn532", "missing")
	opts.Open = func(string) (periphi2c.BusCloser, error) {
		t.Error("passive detection opened a bus")
		return nil, errNoBus
	}

	devices, err := detection.Detect(context.Background(), opts)
	require.NoError(t, err)
	require.Len(t, devices, 2)
	for _, d := range devices {
		assert.Equal(t, detection.Low, d.Confidence)
		assert.Nil(t, d.Firmware)
	}
}

func TestDetect_NothingFound(t *testing.T) {
	t.Parallel()

	t.Run("silent address", func(t *testing.T) {
		t.Parallel()
		_, err := detection.Detect(context.Background(), testOptions(detection.Safe, "other"))
		require.ErrorIs(t, err, detection.ErrNoDevicesFound)
	})

	t.Run("bus errors are reported", func(t *testing.T) {
		t.Parallel()
		_, err := detection.Detect(context.Background(), testOptions(detection.Safe, "missing"))
		require.ErrorIs(t, err, errNoBus)
		assert.Contains(t, err.Error(), "missing:")
	})
}

func TestDetect_IgnorePaths(t *testing.T) {
	t.Parallel()

	opts := testOptions(detection.Safe, "/dev/i2c-1", "pn532")
	opts.IgnorePaths = []string{"/dev//i2c-1"}

	devices, err := detection.Detect(context.Background(), opts)
	require.NoError(t, err)
	require.Len(t, devices, 1)
	assert.Equal(t, "pn532", devices[0].Path)
}

func TestDetect_Cache(t *testing.T) {
	t.Parallel()
	defer detection.ClearDetectionCache()

	opts := testOptions(detection.Safe, "cached")
	opts.EnableCache = true

	devices, err := detection.Detect(context.Background(), opts)
	require.NoError(t, err)
	require.Len(t, devices, 1)

	opts.Open = func(string) (periphi2c.BusCloser, error) { return nil, errNoBus }
	devices, err = detection.Detect(context.Background(), opts)
	require.NoError(t, err, "second run should come from the cache")
	assert.Equal(t, "cached", devices[0].Path)

	full := *opts
	full.Mode = detection.Full
	_, err = detection.Detect(context.Background(), &full)
	require.ErrorIs(t, err, errNoBus, "a different mode is not served from the cache")
}

func TestIsPathIgnored(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		path   string
		ignore []string
		want   bool
	}{
		{name: "empty path", path: "", ignore: []string{""}, want: false},
		{name: "no list", path: "/dev/i2c-1", want: false},
		{name: "exact", path: "/dev/i2c-1", ignore: []string{"/dev/i2c-1"}, want: true},
		{name: "unclean", path: "/dev/i2c-1", ignore: []string{"/dev/./i2c-1"}, want: true},
		{name: "other bus", path: "/dev/i2c-1", ignore: []string{"/dev/i2c-10"}, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, detection.IsPathIgnored(tt.path, tt.ignore))
		})
	}
}

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

package main

import (
	"context"
	"fmt"
	"time"

	pn532 "github.com/ZaparooProject/go-pn532-i2c"
	"github.com/spf13/cobra"
)

func (c *cli) newFirmwareCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "firmware",
		Short: "Print the module's firmware version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := c.openSession(cmd, nil)
			if err != nil {
				return err
			}
			defer s.Close()

			// Init already read it.
			fw := s.device.Firmware()
			okColor.Fprintln(s.out, fw.String())
			if !fw.SupportsISO14443A() {
				warnColor.Fprintln(s.out, "Warning: module does not report ISO14443A support")
			}
			return nil
		},
	}
}

func (c *cli) newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print the module's general status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := c.openSession(cmd, nil)
			if err != nil {
				return err
			}
			defer s.Close()

			var status *pn532.GeneralStatus
			err = c.retry(cmd.Context(), func(ctx context.Context) error {
				var err error
				status, err = s.device.GeneralStatus(ctx)
				return err
			})
			if err != nil {
				return err
			}

			field := "off"
			if status.FieldPresent {
				field = "on"
			}
			_, _ = fmt.Fprintf(s.out, "RF field:   %s\n", field)
			_, _ = fmt.Fprintf(s.out, "Last error: 0x%02X\n", status.LastError)
			_, _ = fmt.Fprintf(s.out, "SAM status: 0x%02X\n", status.SAMStatus)
			_, _ = fmt.Fprintf(s.out, "Targets:    %d\n", len(status.Targets))
			for _, tg := range status.Targets {
				_, _ = fmt.Fprintf(s.out, "  target %d rx=0x%02X tx=0x%02X modulation=0x%02X\n",
					tg.Number, tg.RxBitRate, tg.TxBitRate, tg.ModulationType)
			}
			return nil
		},
	}
}

func (c *cli) newSleepCmd() *cobra.Command {
	var wakeAfter time.Duration

	cmd := &cobra.Command{
		Use:   "sleep",
		Short: "Put the module in power down",
		Long: `Put the module in power down. It wakes on INT1 or P32, or on the next
I2C access. With --wake-after the module is woken again and queried.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := c.openSession(cmd, nil)
			if err != nil {
				return err
			}
			defer s.Close()

			ctx := cmd.Context()
			if err := s.device.PowerDown(ctx, pn532.DefaultWakeupCauses); err != nil {
				return err
			}
			okColor.Fprintln(s.out, "Module powered down")

			if wakeAfter <= 0 {
				return nil
			}
			select {
			case <-time.After(wakeAfter):
			case <-ctx.Done():
				return ctx.Err()
			}
			if err := s.device.Wakeup(ctx); err != nil {
				return err
			}
			fw, err := s.device.FirmwareVersion(ctx)
			if err != nil {
				return err
			}
			okColor.Fprintf(s.out, "Module awake: %s\n", fw)
			return nil
		},
	}
	cmd.Flags().DurationVar(&wakeAfter, "wake-after", 0, "Wake the module again after this long")
	return cmd
}

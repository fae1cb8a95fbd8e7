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
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	pn532 "github.com/ZaparooProject/go-pn532-i2c"
	"github.com/spf13/cobra"
)

func parseBlock(s string) (byte, error) {
	n, err := strconv.ParseUint(s, 0, 8)
	if err != nil {
		return 0, fmt.Errorf("invalid block %q: %w", s, err)
	}
	return byte(n), nil
}

func parseBlockData(s string) ([]byte, error) {
	clean := strings.NewReplacer(":", "", " ", "", "-", "").Replace(s)
	data, err := hex.DecodeString(clean)
	if err != nil {
		return nil, fmt.Errorf("invalid block data: %w", err)
	}
	if len(data) != pn532.MifareBlockSize {
		return nil, fmt.Errorf("%w: need %d bytes, got %d", pn532.ErrInvalidBlockSize, pn532.MifareBlockSize, len(data))
	}
	return data, nil
}

// authenticate finds a card and opens block's sector with the configured key
func (c *cli) authenticate(ctx context.Context, s *session, block byte) (*pn532.Target, error) {
	target, err := s.firstTarget(ctx)
	if err != nil {
		return nil, err
	}
	if blocks := target.Variant().Blocks(); blocks > 0 && int(block) >= blocks {
		return nil, fmt.Errorf("block %d is beyond the %d blocks of a %s", block, blocks, target.Variant())
	}

	key, kt := c.settings.Key, c.settings.KeyType
	err = s.device.MifareClassicAuth(ctx, target.UID, target.Number, key, kt, block)
	if err != nil {
		return nil, fmt.Errorf("sector %d: %w", pn532.SectorOf(block), err)
	}
	return target, nil
}

func (c *cli) newReadCmd() *cobra.Command {
	var value bool

	cmd := &cobra.Command{
		Use:   "read <block>",
		Short: "Read a 16-byte MIFARE Classic block",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			block, err := parseBlock(args[0])
			if err != nil {
				return err
			}

			s, err := c.openSession(cmd, nil)
			if err != nil {
				return err
			}
			defer s.Close()

			ctx := cmd.Context()
			target, err := c.authenticate(ctx, s, block)
			if err != nil {
				return err
			}
			data, err := s.device.MifareClassicRead(ctx, target.Number, block)
			if err != nil {
				return err
			}

			okColor.Fprintf(s.out, "Block %d: %s\n", block, pn532.FormatHexBytes(data))
			if pn532.IsTrailerBlock(block) {
				infoColor.Fprintln(s.out, "  sector trailer: key A reads back as zeros")
			}
			if value {
				v, addr, err := pn532.DecodeValueBlock(data)
				if err != nil {
					return fmt.Errorf("block %d: %w", block, err)
				}
				_, _ = fmt.Fprintf(s.out, "  value %d (addr %d)\n", v, addr)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&value, "value", false, "Decode the block as a value block")
	return cmd
}

func (c *cli) newWriteCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "write <block> <hex>",
		Short: "Write 16 bytes to a MIFARE Classic block",
		Long: `Write 16 bytes, given as 32 hex digits, to a block. Block 0 and sector
trailers are refused without --force: a bad trailer locks the sector for good.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			block, err := parseBlock(args[0])
			if err != nil {
				return err
			}
			data, err := parseBlockData(args[1])
			if err != nil {
				return err
			}
			if (block == 0 || pn532.IsTrailerBlock(block)) && !force {
				return fmt.Errorf("refusing to write block %d without --force", block)
			}

			s, err := c.openSession(cmd, nil)
			if err != nil {
				return err
			}
			defer s.Close()

			ctx := cmd.Context()
			target, err := c.authenticate(ctx, s, block)
			if err != nil {
				return err
			}
			if err := s.device.MifareClassicWrite(ctx, target.Number, block, data); err != nil {
				return err
			}

			okColor.Fprintf(s.out, "Wrote block %d: %s\n", block, pn532.FormatHexBytes(data))
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Allow writing block 0 and sector trailers")
	return cmd
}

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

package testing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFakeClock(t *testing.T) {
	t.Parallel()

	clock := NewFakeClock()
	start := clock.Now()

	require.NoError(t, clock.Sleep(context.Background(), 5*time.Millisecond))
	clock.Advance(time.Second)
	assert.Equal(t, time.Second+5*time.Millisecond, clock.Now().Sub(start))
	assert.Equal(t, []time.Duration{5 * time.Millisecond}, clock.Sleeps())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, clock.Sleep(ctx, time.Second), context.Canceled)
	assert.Len(t, clock.Sleeps(), 1)
}

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

package prometheus

import (
	"time"

	"github.com/ZaparooProject/go-pn532-i2c/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

type MetricsConfig struct {
	Namespace string
	Subsystem string
	Buckets   []float64
}

func DefaultConfig() *MetricsConfig {
	return &MetricsConfig{
		Namespace: "pn532",
		Subsystem: "i2c",
		// 1ms .. ~4s, InListPassiveTarget can wait seconds for a card
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 13),
	}
}

type Metrics struct {
	commands       *prometheus.CounterVec
	commandErrors  *prometheus.CounterVec
	ackRetries     *prometheus.CounterVec
	nacks          *prometheus.CounterVec
	frameErrors    *prometheus.CounterVec
	targets        *prometheus.CounterVec
	transactionDur *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg
func New(reg prometheus.Registerer, config *MetricsConfig) *Metrics {
	if config == nil {
		config = DefaultConfig()
	}
	ns, sub := config.Namespace, config.Subsystem

	met := &Metrics{
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Subsystem: sub, Name: "commands_total", Help: "Commands sent"}, []string{"bus", "command"}),
		commandErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Subsystem: sub, Name: "command_errors_total", Help: "Commands that failed"}, []string{"bus", "command", "reason"}),
		ackRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Subsystem: sub, Name: "ack_retries_total", Help: "ACK read retries"}, []string{"bus"}),
		nacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Subsystem: sub, Name: "nacks_total", Help: "NACK frames received"}, []string{"bus"}),
		frameErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Subsystem: sub, Name: "frame_errors_total", Help: "Corrupt response frames"}, []string{"bus"}),
		targets: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Subsystem: sub, Name: "targets_detected_total", Help: "Cards found by passive target polling"}, []string{"bus"}),
		transactionDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns, Subsystem: sub, Name: "transaction_duration_seconds", Help: "Command cycle duration",
			Buckets: config.Buckets}, []string{"bus", "command"}),
	}

	reg.MustRegister(met.commands, met.commandErrors, met.ackRetries, met.nacks, met.frameErrors, met.targets, met.transactionDur)
	return met
}

func (m *Metrics) CommandSent(bus, cmd string) {
	m.commands.WithLabelValues(bus, cmd).Inc()
}

func (m *Metrics) CommandFailed(bus, cmd, reason string) {
	m.commandErrors.WithLabelValues(bus, cmd, reason).Inc()
}

func (m *Metrics) AckRetry(bus string) {
	m.ackRetries.WithLabelValues(bus).Inc()
}

func (m *Metrics) Nack(bus string) {
	m.nacks.WithLabelValues(bus).Inc()
}

func (m *Metrics) FrameError(bus string) {
	m.frameErrors.WithLabelValues(bus).Inc()
}

func (m *Metrics) TransactionDuration(bus, cmd string, d time.Duration) {
	m.transactionDur.WithLabelValues(bus, cmd).Observe(d.Seconds())
}

func (m *Metrics) TargetDetected(bus string) {
	m.targets.WithLabelValues(bus).Inc()
}

var _ metrics.Metrics = (*Metrics)(nil)

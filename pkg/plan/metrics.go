// Copyright 2023-2024 daviszhen
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package plan

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricsNamespace = "joinopt"
	metricsSubsystem = "optimizer"

	sourceLabelName = "source"
)

var (
	RecommendationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "recommendations_total",
			Help:      "Recommendations produced, by source.",
		}, []string{sourceLabelName})

	SolveDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "solve_duration_seconds",
			Help:      "Time spent in the solver, by source of the final recommendation.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 12),
		}, []string{sourceLabelName})

	CandidatesEnumerated = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "candidates_enumerated",
			Help:      "Join orders enumerated per run.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 9),
		})

	OptimizeFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "failures_total",
			Help:      "Runs aborted before selection, e.g. by missing statistics.",
		})
)

func RegisterMetrics(registry prometheus.Registerer) {
	registry.MustRegister(RecommendationsTotal)
	registry.MustRegister(SolveDuration)
	registry.MustRegister(CandidatesEnumerated)
	registry.MustRegister(OptimizeFailures)
}

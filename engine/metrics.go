// Copyright 2026 gorse Project Authors
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

package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const LabelStep = "step"

var (
	BuildSnapshotStepSecondsVec = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "cinematch",
		Subsystem: "engine",
		Name:      "build_snapshot_step_seconds",
	}, []string{LabelStep})
	BuildSnapshotSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "cinematch",
		Subsystem: "engine",
		Name:      "build_snapshot_seconds",
	})
	SnapshotVersion = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "cinematch",
		Subsystem: "engine",
		Name:      "snapshot_version",
	})
	MoviesTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "cinematch",
		Subsystem: "engine",
		Name:      "movies_total",
	})
	RatingsTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "cinematch",
		Subsystem: "engine",
		Name:      "ratings_total",
	})
	UsersTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "cinematch",
		Subsystem: "engine",
		Name:      "users_total",
	})
	ReloadFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "cinematch",
		Subsystem: "engine",
		Name:      "reload_failures_total",
	})
)

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

package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsTotalVec = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cinematch",
		Subsystem: "server",
		Name:      "requests_total",
	}, []string{"path", "status_code"})
	HybridRecommendSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "cinematch",
		Subsystem: "server",
		Name:      "hybrid_recommend_seconds",
	})
	ContentRecommendSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "cinematch",
		Subsystem: "server",
		Name:      "content_recommend_seconds",
	})
	CollaborativeRecommendSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "cinematch",
		Subsystem: "server",
		Name:      "collaborative_recommend_seconds",
	})
)

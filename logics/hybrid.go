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

package logics

import (
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/gorse-io/cinematch/base/log"
	"github.com/gorse-io/cinematch/common/heap"
	"github.com/gorse-io/cinematch/config"
	"github.com/juju/errors"
	"go.uber.org/zap"
)

// ContentRecommender recommends movies similar to a movie.
type ContentRecommender interface {
	Recommend(title string, n int) ([]Recommendation, error)
}

// CollaborativeRecommender recommends movies to a user.
type CollaborativeRecommender interface {
	Recommend(userId, n int) ([]Recommendation, error)
}

// HybridRecommendation is a fused recommendation with the score of each signal. A signal
// that did not return the movie contributes 0.
type HybridRecommendation struct {
	Recommendation
	ContentScore       float64 `json:"content_score"`
	CollaborativeScore float64 `json:"collaborative_score"`
}

// Hybrid fuses content-based and collaborative recommendations by a weighted sum.
type Hybrid struct {
	cfg           config.HybridConfig
	content       ContentRecommender
	collaborative CollaborativeRecommender
}

func NewHybrid(cfg config.HybridConfig, content ContentRecommender, collaborative CollaborativeRecommender) *Hybrid {
	return &Hybrid{
		cfg:           cfg,
		content:       content,
		collaborative: collaborative,
	}
}

// Recommend fetches candidates from both recommenders, outer joins them by title and
// returns at most n movies ordered by alpha * content + (1 - alpha) * collaborative.
func (h *Hybrid) Recommend(userId int, title string, alpha float64, n int) ([]HybridRecommendation, error) {
	if err := ValidateAlpha(alpha); err != nil {
		return nil, errors.Trace(err)
	}
	if err := ValidateN(n); err != nil {
		return nil, errors.Trace(err)
	}
	contentRecs, contentErr := h.content.Recommend(title, h.cfg.FetchSize)
	if contentErr != nil && !(h.cfg.AllowPartial && errors.Is(contentErr, errors.NotFound)) {
		return nil, errors.Trace(contentErr)
	}
	collaborativeRecs, collaborativeErr := h.collaborative.Recommend(userId, h.cfg.FetchSize)
	if collaborativeErr != nil && !(h.cfg.AllowPartial && errors.Is(collaborativeErr, errors.NotFound)) {
		return nil, errors.Trace(collaborativeErr)
	}
	if contentErr != nil && collaborativeErr != nil {
		return nil, errors.NotFoundf("movie %q and user %d", title, userId)
	} else if contentErr != nil {
		log.Logger().Debug("fall back to collaborative recommendation", zap.Error(contentErr))
	} else if collaborativeErr != nil {
		log.Logger().Debug("fall back to content-based recommendation", zap.Error(collaborativeErr))
	}

	// outer join by title, content-based candidates first
	joined := make([]HybridRecommendation, 0, len(contentRecs)+len(collaborativeRecs))
	positions := make(map[string]int, cap(joined))
	for _, rec := range contentRecs {
		if _, exist := positions[rec.Title]; exist {
			continue
		}
		positions[rec.Title] = len(joined)
		joined = append(joined, HybridRecommendation{Recommendation: rec, ContentScore: rec.Score})
	}
	joinedTitles := mapset.NewThreadUnsafeSet[string]()
	for _, rec := range collaborativeRecs {
		if !joinedTitles.Add(rec.Title) {
			continue
		}
		if pos, exist := positions[rec.Title]; exist {
			joined[pos].CollaborativeScore = rec.Score
			continue
		}
		positions[rec.Title] = len(joined)
		joined = append(joined, HybridRecommendation{Recommendation: rec, CollaborativeScore: rec.Score})
	}

	filter := heap.NewTopKFilter[int, float64](n)
	for i := range joined {
		joined[i].Score = alpha*joined[i].ContentScore + (1-alpha)*joined[i].CollaborativeScore
		filter.Push(i, joined[i].Score)
	}
	positionsByScore := filter.PopAllValues()
	results := make([]HybridRecommendation, len(positionsByScore))
	for i, pos := range positionsByScore {
		results[i] = joined[pos]
	}
	return results, nil
}

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
	"math"
	"reflect"
	"sort"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/gorse-io/cinematch/base/log"
	"github.com/gorse-io/cinematch/common/heap"
	"github.com/gorse-io/cinematch/config"
	"github.com/gorse-io/cinematch/storage/data"
	"github.com/juju/errors"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// PopularMovie is a movie ranked by its ratings.
type PopularMovie struct {
	MovieId      int     `json:"movie_id"`
	Title        string  `json:"title"`
	AvgRating    float64 `json:"avg_rating"`
	RatingsCount int     `json:"ratings_count"`
	Score        float64 `json:"popularity_score"`
}

type movieStats struct {
	sum   float64
	count int
}

// Popular ranks movies by an expression over the mean and the count of their ratings.
type Popular struct {
	scoreFunc  *vm.Program
	filterFunc *vm.Program
	movies     []PopularMovie
}

func popularEnv() map[string]any {
	return map[string]any{
		"mean":  float64(0),
		"count": 0,
		"movie": data.Movie{},
	}
}

// NewPopular aggregates ratings per movie. Ratings of unknown movies are ignored. When window
// is positive only ratings newer than now - window are counted.
func NewPopular(cfg config.PopularConfig, movies []data.Movie, ratings []data.Rating, now time.Time) (*Popular, error) {
	// Compile score expression
	scoreFunc, err := expr.Compile(cfg.Score, expr.Env(popularEnv()))
	if err != nil {
		return nil, errors.Annotatef(err, "compile score expression %q", cfg.Score)
	}
	switch scoreFunc.Node().Type().Kind() {
	case reflect.Float64, reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
	default:
		return nil, errors.NotValidf("score expression %q returning %v", cfg.Score, scoreFunc.Node().Type())
	}
	// Compile filter expression
	var filterFunc *vm.Program
	if cfg.Filter != "" {
		filterFunc, err = expr.Compile(cfg.Filter, expr.Env(popularEnv()), expr.AsBool())
		if err != nil {
			return nil, errors.Annotatef(err, "compile filter expression %q", cfg.Filter)
		}
	}

	stats := make(map[int]*movieStats)
	for _, rating := range ratings {
		if cfg.Window > 0 && (rating.Timestamp.IsZero() || now.Sub(rating.Timestamp) > cfg.Window) {
			continue
		}
		s, exist := stats[rating.MovieId]
		if !exist {
			s = &movieStats{}
			stats[rating.MovieId] = s
		}
		s.sum += rating.Rating
		s.count++
	}
	titles := make(map[int]data.Movie, len(movies))
	for _, movie := range movies {
		if _, exist := titles[movie.MovieId]; !exist {
			titles[movie.MovieId] = movie
		}
	}

	p := &Popular{scoreFunc: scoreFunc, filterFunc: filterFunc}
	movieIds := lo.Keys(stats)
	sort.Ints(movieIds)
	for _, movieId := range movieIds {
		movie, exist := titles[movieId]
		if !exist {
			continue
		}
		s := stats[movieId]
		env := map[string]any{
			"mean":  s.sum / float64(s.count),
			"count": s.count,
			"movie": movie,
		}
		// Evaluate filter function
		if p.filterFunc != nil {
			result, err := expr.Run(p.filterFunc, env)
			if err != nil {
				log.Logger().Error("evaluate filter function", zap.Error(err))
				continue
			}
			if !result.(bool) {
				continue
			}
		}
		// Evaluate score function
		result, err := expr.Run(p.scoreFunc, env)
		if err != nil {
			log.Logger().Error("evaluate score function", zap.Error(err))
			continue
		}
		score, ok := toFloat64(result)
		if !ok {
			log.Logger().Error("score function must return float64", zap.Any("result", result))
			continue
		}
		p.movies = append(p.movies, PopularMovie{
			MovieId:      movieId,
			Title:        movie.Title,
			AvgRating:    env["mean"].(float64),
			RatingsCount: s.count,
			Score:        score,
		})
	}
	return p, nil
}

func toFloat64(v any) (float64, bool) {
	switch typed := v.(type) {
	case float64:
		return typed, true
	case int:
		return float64(typed), true
	case int8:
		return float64(typed), true
	case int16:
		return float64(typed), true
	case int32:
		return float64(typed), true
	case int64:
		return float64(typed), true
	default:
		return 0, false
	}
}

// Recommend returns the n most popular movies. Mean ratings and scores are rounded to
// two decimals. Ties keep ascending movie ids.
func (p *Popular) Recommend(n int) ([]PopularMovie, error) {
	if err := ValidateN(n); err != nil {
		return nil, errors.Trace(err)
	}
	filter := heap.NewTopKFilter[int, float64](n)
	for i, movie := range p.movies {
		filter.Push(i, movie.Score)
	}
	return lo.Map(filter.PopAllValues(), func(i int, _ int) PopularMovie {
		movie := p.movies[i]
		movie.AvgRating = round2(movie.AvgRating)
		movie.Score = round2(movie.Score)
		return movie
	}), nil
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}

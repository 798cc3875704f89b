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
	"context"
	"sync"
	"time"

	"github.com/gorse-io/cinematch/base/log"
	"github.com/gorse-io/cinematch/config"
	"github.com/gorse-io/cinematch/dataset"
	"github.com/gorse-io/cinematch/logics"
	"github.com/gorse-io/cinematch/storage/data"
	"github.com/juju/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("github.com/gorse-io/cinematch/engine")

// Loader loads the movies and ratings datasets.
type Loader func(ctx context.Context) (*dataset.Dataset, error)

// Snapshot is an immutable build of every recommender over one load of the datasets.
type Snapshot struct {
	Version       int64
	Timestamp     time.Time
	Dataset       *dataset.Dataset
	Content       *logics.ContentBased
	Collaborative *logics.Collaborative
	Hybrid        *logics.Hybrid
	Popular       *logics.Popular
}

// Build builds recommenders over a dataset.
func Build(ctx context.Context, cfg *config.Config, ds *dataset.Dataset, version int64) (*Snapshot, error) {
	ctx, span := tracer.Start(ctx, "build snapshot")
	defer span.End()
	start := time.Now()
	snapshot := &Snapshot{
		Version:   version,
		Timestamp: start,
		Dataset:   ds,
	}

	var err error
	stepStart := time.Now()
	if snapshot.Content, err = logics.NewContentBased(ctx, cfg.Recommend.Content, ds.GetMovies(), cfg.Master.NumJobs); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, errors.Annotate(err, "build content-based recommender")
	}
	BuildSnapshotStepSecondsVec.WithLabelValues("content").Set(time.Since(stepStart).Seconds())

	stepStart = time.Now()
	if snapshot.Collaborative, err = logics.NewCollaborative(ctx, cfg.Recommend.Collaborative, ds.GetRatings(), ds, cfg.Master.NumJobs); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, errors.Annotate(err, "build collaborative recommender")
	}
	BuildSnapshotStepSecondsVec.WithLabelValues("collaborative").Set(time.Since(stepStart).Seconds())

	stepStart = time.Now()
	if snapshot.Popular, err = logics.NewPopular(cfg.Recommend.Popular, ds.GetMovies(), ds.GetRatings(), ds.GetTimestamp()); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, errors.Annotate(err, "build popular movies")
	}
	BuildSnapshotStepSecondsVec.WithLabelValues("popular").Set(time.Since(stepStart).Seconds())

	snapshot.Hybrid = logics.NewHybrid(cfg.Recommend.Hybrid, snapshot.Content, snapshot.Collaborative)
	span.SetAttributes(
		attribute.Int64("version", version),
		attribute.Int("n_movies", ds.CountMovies()),
		attribute.Int("n_ratings", ds.CountRatings()),
		attribute.Int("n_users", snapshot.Collaborative.CountUsers()))
	BuildSnapshotSeconds.Observe(time.Since(start).Seconds())
	log.Logger().Info("build snapshot complete",
		zap.Int64("version", version),
		zap.Duration("used_time", time.Since(start)))
	return snapshot, nil
}

// Engine serves recommendations from the latest snapshot. Readers never block: a reload
// builds a new snapshot aside and swaps it in once complete.
type Engine struct {
	cfg      *config.Config
	loader   Loader
	mu       sync.Mutex
	version  atomic.Int64
	snapshot atomic.Pointer[Snapshot]
}

// NewEngine creates an engine without a snapshot. A nil loader reads the configured sources.
func NewEngine(cfg *config.Config, loader Loader) *Engine {
	if loader == nil {
		loader = func(ctx context.Context) (*dataset.Dataset, error) {
			return dataset.Load(ctx, cfg)
		}
	}
	return &Engine{cfg: cfg, loader: loader}
}

// Reload loads the datasets and swaps in a new snapshot. Concurrent reloads are serialized.
// The current snapshot is kept if the reload fails.
func (e *Engine) Reload(ctx context.Context) (*Snapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	ds, err := e.loader(ctx)
	if err != nil {
		ReloadFailuresTotal.Inc()
		return nil, errors.Trace(err)
	}
	snapshot, err := Build(ctx, e.cfg, ds, e.version.Load()+1)
	if err != nil {
		ReloadFailuresTotal.Inc()
		return nil, errors.Trace(err)
	}
	e.version.Store(snapshot.Version)
	e.snapshot.Store(snapshot)
	SnapshotVersion.Set(float64(snapshot.Version))
	MoviesTotal.Set(float64(ds.CountMovies()))
	RatingsTotal.Set(float64(ds.CountRatings()))
	UsersTotal.Set(float64(snapshot.Collaborative.CountUsers()))
	return snapshot, nil
}

// Snapshot returns the current snapshot.
func (e *Engine) Snapshot() (*Snapshot, error) {
	snapshot := e.snapshot.Load()
	if snapshot == nil {
		return nil, errors.NotYetAvailablef("snapshot")
	}
	return snapshot, nil
}

// ContentRecommend returns movies similar to the movie with the title.
func (e *Engine) ContentRecommend(title string, n int) ([]logics.Recommendation, error) {
	if err := logics.ValidateN(n); err != nil {
		return nil, errors.Trace(err)
	}
	snapshot, err := e.Snapshot()
	if err != nil {
		return nil, errors.Trace(err)
	}
	return snapshot.Content.Recommend(title, n)
}

// CollaborativeRecommend returns movies rated highly by users similar to the user.
func (e *Engine) CollaborativeRecommend(userId, n int) ([]logics.Recommendation, error) {
	if err := logics.ValidateN(n); err != nil {
		return nil, errors.Trace(err)
	}
	snapshot, err := e.Snapshot()
	if err != nil {
		return nil, errors.Trace(err)
	}
	return snapshot.Collaborative.Recommend(userId, n)
}

// HybridRecommend fuses content-based and collaborative recommendations.
func (e *Engine) HybridRecommend(userId int, title string, alpha float64, n int) ([]logics.HybridRecommendation, error) {
	if err := logics.ValidateAlpha(alpha); err != nil {
		return nil, errors.Trace(err)
	}
	if err := logics.ValidateN(n); err != nil {
		return nil, errors.Trace(err)
	}
	snapshot, err := e.Snapshot()
	if err != nil {
		return nil, errors.Trace(err)
	}
	return snapshot.Hybrid.Recommend(userId, title, alpha, n)
}

// PopularMovies returns the most popular movies.
func (e *Engine) PopularMovies(n int) ([]logics.PopularMovie, error) {
	if err := logics.ValidateN(n); err != nil {
		return nil, errors.Trace(err)
	}
	snapshot, err := e.Snapshot()
	if err != nil {
		return nil, errors.Trace(err)
	}
	return snapshot.Popular.Recommend(n)
}

// SearchMovies searches movies by title and genre.
func (e *Engine) SearchMovies(query, genre string, n int) ([]data.Movie, error) {
	snapshot, err := e.Snapshot()
	if err != nil {
		return nil, errors.Trace(err)
	}
	return logics.SearchMovies(snapshot.Dataset.GetMovies(), query, genre, n)
}

// GenreMovies filters movies by genre.
func (e *Engine) GenreMovies(genre string, n int) ([]data.Movie, error) {
	snapshot, err := e.Snapshot()
	if err != nil {
		return nil, errors.Trace(err)
	}
	return logics.GenreMovies(snapshot.Dataset.GetMovies(), genre, n)
}

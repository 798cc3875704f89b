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

package dataset

import (
	"context"
	"io"
	"io/fs"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gorse-io/cinematch/base/log"
	"github.com/gorse-io/cinematch/config"
	"github.com/gorse-io/cinematch/storage"
	"github.com/gorse-io/cinematch/storage/blob"
	"github.com/gorse-io/cinematch/storage/data"
	"github.com/juju/errors"
	"go.uber.org/zap"
)

const (
	streamBatchSize = 10000
	openMaxTries    = 3
)

// retryOpen opens a remote source, retrying failures that may be transient.
func retryOpen[T any](ctx context.Context, source string, open func() (T, error)) (T, error) {
	return backoff.Retry(ctx, func() (T, error) {
		r, err := open()
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) || errors.Is(err, errors.NotValid) || errors.Is(err, errors.NotSupported) {
				return r, backoff.Permanent(err)
			}
			log.Logger().Warn("failed to open dataset source",
				zap.String("source", log.RedactSourceURL(source)), zap.Error(err))
		}
		return r, err
	}, backoff.WithBackOff(backoff.NewExponentialBackOff()), backoff.WithMaxTries(openMaxTries))
}

func openDatabase(ctx context.Context, cfg *config.Config, source string) (data.Database, error) {
	return retryOpen(ctx, source, func() (data.Database, error) {
		return data.Open(source, cfg.Database.TablePrefix)
	})
}

func openBlob(ctx context.Context, cfg *config.Config, source string) (io.ReadCloser, error) {
	if !blob.IsRemote(source) {
		return blob.Open(ctx, cfg.Blob, source)
	}
	return retryOpen(ctx, source, func() (io.ReadCloser, error) {
		return blob.Open(ctx, cfg.Blob, source)
	})
}

// Load reads the configured movies and ratings sources. A source is either a database URL,
// whose movies or ratings table is read, or a CSV file on a local or remote store.
func Load(ctx context.Context, cfg *config.Config) (*Dataset, error) {
	start := time.Now()
	dataset := NewDataset(start, 0, 0)
	if err := loadMovies(ctx, cfg, dataset); err != nil {
		return nil, errors.Trace(err)
	}
	if err := loadRatings(ctx, cfg, dataset); err != nil {
		return nil, errors.Trace(err)
	}
	log.Logger().Info("load dataset complete",
		zap.Int("n_movies", dataset.CountMovies()),
		zap.Int("n_ratings", dataset.CountRatings()),
		zap.Duration("used_time", time.Since(start)))
	return dataset, nil
}

func loadMovies(ctx context.Context, cfg *config.Config, dataset *Dataset) error {
	source := cfg.Database.Movies
	if storage.IsDatabase(source) {
		database, err := openDatabase(ctx, cfg, source)
		if err != nil {
			return NewDataLoadError(log.RedactSourceURL(source), err)
		}
		defer database.Close()
		movieChan, errChan := database.GetMovieStream(ctx, streamBatchSize)
		for movies := range movieChan {
			for _, movie := range movies {
				dataset.AddMovie(movie)
			}
		}
		if err = <-errChan; err != nil {
			return NewDataLoadError(log.RedactSourceURL(source), err)
		}
		return nil
	}
	r, err := openBlob(ctx, cfg, source)
	if err != nil {
		return NewDataLoadError(log.RedactSourceURL(source), err)
	}
	defer r.Close()
	return ReadMovies(dataset, log.RedactSourceURL(source), r)
}

func loadRatings(ctx context.Context, cfg *config.Config, dataset *Dataset) error {
	source := cfg.Database.Ratings
	if storage.IsDatabase(source) {
		database, err := openDatabase(ctx, cfg, source)
		if err != nil {
			return NewDataLoadError(log.RedactSourceURL(source), err)
		}
		defer database.Close()
		ratingChan, errChan := database.GetRatingStream(ctx, streamBatchSize)
		for ratings := range ratingChan {
			for _, rating := range ratings {
				dataset.AddRating(rating)
			}
		}
		if err = <-errChan; err != nil {
			return NewDataLoadError(log.RedactSourceURL(source), err)
		}
		return nil
	}
	r, err := openBlob(ctx, cfg, source)
	if err != nil {
		return NewDataLoadError(log.RedactSourceURL(source), err)
	}
	defer r.Close()
	return ReadRatings(dataset, log.RedactSourceURL(source), r)
}

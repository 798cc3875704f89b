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

package main

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gorse-io/cinematch/config"
	"github.com/gorse-io/cinematch/dataset"
	"github.com/gorse-io/cinematch/logics"
	"github.com/gorse-io/cinematch/storage/data"
	"github.com/stretchr/testify/assert"
)

func TestImportDataset(t *testing.T) {
	ctx := context.Background()
	ds, err := dataset.LoadCSV(
		strings.NewReader("movieId,title,genres\n1,A,Comedy\n2,B,Drama\n"),
		strings.NewReader("userId,movieId,rating\n1,1,5\n1,2,3\n2,1,4\n"))
	assert.NoError(t, err)

	path := fmt.Sprintf("sqlite://%s/cinematch.db", t.TempDir())
	database, err := data.Open(path, "")
	assert.NoError(t, err)
	assert.NoError(t, importDataset(ctx, database, ds, false))
	// importing again with purge replaces the rows
	assert.NoError(t, importDataset(ctx, database, ds, true))
	assert.NoError(t, database.Close())

	cfg := config.GetDefaultConfig()
	cfg.Database.Movies = path
	cfg.Database.Ratings = path
	loaded, err := dataset.Load(ctx, cfg)
	assert.NoError(t, err)
	assert.Equal(t, ds.GetMovies(), loaded.GetMovies())
	assert.Equal(t, 3, loaded.CountRatings())
}

func TestRenderRecommendations(t *testing.T) {
	var buf bytes.Buffer
	err := renderRecommendations(&buf, []logics.Recommendation{
		{MovieId: 2, Title: "Jumanji (1995)", Score: 0.5},
		{MovieId: 4, Title: "Heat (1995)", Score: 0.25},
	})
	assert.NoError(t, err)
	assert.Contains(t, buf.String(), "Jumanji (1995)")
	assert.Contains(t, buf.String(), "0.2500")
	assert.Less(t, strings.Index(buf.String(), "Jumanji"), strings.Index(buf.String(), "Heat"))
}

func TestRenderPopularMovies(t *testing.T) {
	var buf bytes.Buffer
	err := renderPopularMovies(&buf, []logics.PopularMovie{
		{MovieId: 1, Title: "Toy Story (1995)", AvgRating: 4.5, RatingsCount: 2, Score: 9},
	})
	assert.NoError(t, err)
	assert.Contains(t, buf.String(), "Toy Story (1995)")
	assert.Contains(t, buf.String(), "4.50")
}

func TestExportDataset(t *testing.T) {
	ctx := context.Background()
	ds, err := dataset.LoadCSV(
		strings.NewReader("movieId,title,genres\n1,A,Comedy\n2,\"B, The\",Drama\n"),
		strings.NewReader("userId,movieId,rating,timestamp\n1,1,5,964982703\n2,2,3.5,\n"))
	assert.NoError(t, err)

	dir := t.TempDir()
	moviesPath := filepath.Join(dir, "out", "movies.csv")
	ratingsPath := "file://" + filepath.Join(dir, "out", "ratings.csv")
	assert.NoError(t, exportDataset(ctx, config.BlobConfig{}, ds, moviesPath, ratingsPath))

	cfg := config.GetDefaultConfig()
	cfg.Database.Movies = moviesPath
	cfg.Database.Ratings = ratingsPath
	loaded, err := dataset.Load(ctx, cfg)
	assert.NoError(t, err)
	assert.Equal(t, ds.GetMovies(), loaded.GetMovies())
	assert.Equal(t, ds.GetRatings(), loaded.GetRatings())
}

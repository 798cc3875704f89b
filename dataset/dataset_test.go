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
	"fmt"
	"testing"
	"time"

	"github.com/gorse-io/cinematch/storage/data"
	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
)

func TestDataset_AddMovie(t *testing.T) {
	dataSet := NewDataset(time.Now(), 3, 0)
	dataSet.AddMovie(data.Movie{MovieId: 10, Title: "A", Genres: "Comedy"})
	dataSet.AddMovie(data.Movie{MovieId: 20, Title: "B", Genres: "Comedy"})
	dataSet.AddMovie(data.Movie{MovieId: 10, Title: "A (duplicate)", Genres: "Drama"})
	assert.Equal(t, 3, dataSet.CountMovies())

	// first movie wins the index
	index, ok := dataSet.MovieIndex(10)
	assert.True(t, ok)
	assert.Equal(t, 0, index)
	movie, err := dataSet.GetMovie(10)
	assert.NoError(t, err)
	assert.Equal(t, "A", movie.Title)

	// unknown movie
	_, ok = dataSet.MovieIndex(30)
	assert.False(t, ok)
	_, err = dataSet.GetMovie(30)
	assert.True(t, errors.Is(err, errors.NotFound))
}

func TestDataset_AddRating(t *testing.T) {
	dataSet := NewDataset(time.Now(), 0, 2)
	dataSet.AddRating(data.Rating{UserId: 1, MovieId: 10, Rating: 4})
	dataSet.AddRating(data.Rating{UserId: 2, MovieId: 10, Rating: 3})
	assert.Equal(t, 2, dataSet.CountRatings())
	assert.Equal(t, 3.0, dataSet.GetRatings()[1].Rating)
}

func TestDataLoadError(t *testing.T) {
	err := NewDataLoadError("movies.csv", errors.NotFoundf("column genres"))
	assert.True(t, IsDataLoadError(err))
	assert.True(t, IsDataLoadError(errors.Trace(err)))
	assert.True(t, IsDataLoadError(fmt.Errorf("startup: %w", err)))
	assert.False(t, IsDataLoadError(errors.New("other")))
	assert.Contains(t, err.Error(), "movies.csv")
	assert.True(t, errors.Is(err, errors.NotFound))
}

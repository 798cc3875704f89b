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
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/gorse-io/cinematch/storage/data"
	"github.com/stretchr/testify/assert"
)

const moviesCSV = `movieId,title,genres
1,Toy Story (1995),Adventure|Animation|Children|Comedy|Fantasy
2,Jumanji (1995),Adventure|Children|Fantasy
3,"American President, The (1995)",Comedy|Drama|Romance
4,Untitled,
`

const ratingsCSV = `userId,movieId,rating,timestamp
1,1,4.0,964982703
1,3,4.0,964981247
2,2,3.5,
`

func TestLoadCSV(t *testing.T) {
	dataSet, err := LoadCSV(strings.NewReader(moviesCSV), strings.NewReader(ratingsCSV))
	assert.NoError(t, err)
	assert.Equal(t, []data.Movie{
		{MovieId: 1, Title: "Toy Story (1995)", Genres: "Adventure|Animation|Children|Comedy|Fantasy"},
		{MovieId: 2, Title: "Jumanji (1995)", Genres: "Adventure|Children|Fantasy"},
		{MovieId: 3, Title: "American President, The (1995)", Genres: "Comedy|Drama|Romance"},
		{MovieId: 4, Title: "Untitled", Genres: ""},
	}, dataSet.GetMovies())
	assert.Equal(t, []data.Rating{
		{UserId: 1, MovieId: 1, Rating: 4, Timestamp: time.Unix(964982703, 0).UTC()},
		{UserId: 1, MovieId: 3, Rating: 4, Timestamp: time.Unix(964981247, 0).UTC()},
		{UserId: 2, MovieId: 2, Rating: 3.5},
	}, dataSet.GetRatings())
}

func TestLoadCSVColumnOrder(t *testing.T) {
	movies := "\ufeffgenres,title,movieId\nDrama,Heat (1995),6\n"
	ratings := "rating,movieId,userId\n5,6,9\n"
	dataSet, err := LoadCSV(strings.NewReader(movies), strings.NewReader(ratings))
	assert.NoError(t, err)
	assert.Equal(t, []data.Movie{{MovieId: 6, Title: "Heat (1995)", Genres: "Drama"}}, dataSet.GetMovies())
	assert.Equal(t, []data.Rating{{UserId: 9, MovieId: 6, Rating: 5}}, dataSet.GetRatings())
}

func TestLoadCSVMissingColumn(t *testing.T) {
	_, err := LoadCSV(strings.NewReader("movieId,title\n1,A\n"), strings.NewReader(ratingsCSV))
	assert.True(t, IsDataLoadError(err))
	assert.ErrorContains(t, err, "genres")

	_, err = LoadCSV(strings.NewReader(moviesCSV), strings.NewReader("userId,movieId\n1,1\n"))
	assert.True(t, IsDataLoadError(err))
	assert.ErrorContains(t, err, "rating")
}

func TestLoadCSVEmptySource(t *testing.T) {
	_, err := LoadCSV(strings.NewReader(""), strings.NewReader(ratingsCSV))
	assert.True(t, IsDataLoadError(err))
}

func TestLoadCSVMalformed(t *testing.T) {
	_, err := LoadCSV(strings.NewReader("movieId,title,genres\nx,A,Comedy\n"), strings.NewReader(ratingsCSV))
	assert.True(t, IsDataLoadError(err))
	assert.ErrorContains(t, err, "line 2")

	_, err = LoadCSV(strings.NewReader(moviesCSV), strings.NewReader("userId,movieId,rating\n1,1,good\n"))
	assert.True(t, IsDataLoadError(err))
	assert.ErrorContains(t, err, "rating")

	_, err = LoadCSV(strings.NewReader(moviesCSV), strings.NewReader("userId,movieId,rating\n1,1\n"))
	assert.True(t, IsDataLoadError(err))
}

func TestParseTimestamp(t *testing.T) {
	ts, err := ParseTimestamp("964982703")
	assert.NoError(t, err)
	assert.Equal(t, time.Unix(964982703, 0).UTC(), ts)
	ts, err = ParseTimestamp("2000-07-30 18:45:03")
	assert.NoError(t, err)
	assert.Equal(t, time.Date(2000, 7, 30, 18, 45, 3, 0, time.UTC), ts)
	ts, err = ParseTimestamp("  ")
	assert.NoError(t, err)
	assert.True(t, ts.IsZero())
	_, err = ParseTimestamp("yesterday-ish")
	assert.Error(t, err)
}

func TestWriteCSV(t *testing.T) {
	ds, err := LoadCSV(strings.NewReader(moviesCSV), strings.NewReader(ratingsCSV))
	assert.NoError(t, err)

	var movies, ratings bytes.Buffer
	assert.NoError(t, WriteMovies(&movies, ds.GetMovies()))
	assert.NoError(t, WriteRatings(&ratings, ds.GetRatings()))
	assert.Equal(t, moviesCSV, movies.String())
	assert.Equal(t, `userId,movieId,rating,timestamp
1,1,4,964982703
1,3,4,964981247
2,2,3.5,
`, ratings.String())

	// written files load back to the same dataset
	loaded, err := LoadCSV(&movies, &ratings)
	assert.NoError(t, err)
	assert.Equal(t, ds.GetMovies(), loaded.GetMovies())
	assert.Equal(t, ds.GetRatings(), loaded.GetRatings())
}

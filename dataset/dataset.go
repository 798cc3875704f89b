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
	"time"

	"github.com/gorse-io/cinematch/storage/data"
	"github.com/juju/errors"
	"modernc.org/strutil"
)

// Dataset holds movies and ratings in the order they were read. Movie order is the
// corpus order used to break ties in content recommendations.
type Dataset struct {
	timestamp  time.Time
	movies     []data.Movie
	ratings    []data.Rating
	movieIndex map[int]int
	genres     *strutil.Pool
}

func NewDataset(timestamp time.Time, movieCount, ratingCount int) *Dataset {
	return &Dataset{
		timestamp:  timestamp,
		movies:     make([]data.Movie, 0, movieCount),
		ratings:    make([]data.Rating, 0, ratingCount),
		movieIndex: make(map[int]int, movieCount),
		genres:     strutil.NewPool(),
	}
}

// GetTimestamp returns the time the dataset was loaded.
func (d *Dataset) GetTimestamp() time.Time {
	return d.timestamp
}

func (d *Dataset) GetMovies() []data.Movie {
	return d.movies
}

func (d *Dataset) CountMovies() int {
	return len(d.movies)
}

func (d *Dataset) GetRatings() []data.Rating {
	return d.ratings
}

func (d *Dataset) CountRatings() int {
	return len(d.ratings)
}

// AddMovie appends a movie. Genre strings repeat heavily across a catalog so they are interned.
func (d *Dataset) AddMovie(movie data.Movie) {
	movie.Genres = d.genres.Align(movie.Genres)
	if _, exist := d.movieIndex[movie.MovieId]; !exist {
		d.movieIndex[movie.MovieId] = len(d.movies)
	}
	d.movies = append(d.movies, movie)
}

func (d *Dataset) AddRating(rating data.Rating) {
	d.ratings = append(d.ratings, rating)
}

// MovieIndex returns the position of the first movie with the given id.
func (d *Dataset) MovieIndex(movieId int) (int, bool) {
	index, ok := d.movieIndex[movieId]
	return index, ok
}

// GetMovie returns the first movie with the given id.
func (d *Dataset) GetMovie(movieId int) (data.Movie, error) {
	index, ok := d.movieIndex[movieId]
	if !ok {
		return data.Movie{}, errors.NotFoundf("movie %d", movieId)
	}
	return d.movies[index], nil
}

// DataLoadError reports an unreadable or malformed dataset source.
type DataLoadError struct {
	Source string
	Err    error
}

func NewDataLoadError(source string, err error) *DataLoadError {
	return &DataLoadError{Source: source, Err: err}
}

func (e *DataLoadError) Error() string {
	return fmt.Sprintf("failed to load %s: %v", e.Source, e.Err)
}

func (e *DataLoadError) Unwrap() error {
	return e.Err
}

// IsDataLoadError reports whether any error in err's chain is a DataLoadError.
func IsDataLoadError(err error) bool {
	var target *DataLoadError
	return errors.As(err, &target)
}

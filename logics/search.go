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
	"strings"

	"github.com/gorse-io/cinematch/storage/data"
	"github.com/juju/errors"
)

// SearchMovies returns at most n movies in corpus order whose title contains query and whose
// genres contain genre. Matching ignores case and an empty argument matches everything.
func SearchMovies(movies []data.Movie, query, genre string, n int) ([]data.Movie, error) {
	if err := ValidateN(n); err != nil {
		return nil, errors.Trace(err)
	}
	query, genre = strings.ToLower(query), strings.ToLower(genre)
	results := make([]data.Movie, 0)
	for _, movie := range movies {
		if len(results) >= n {
			break
		}
		if query != "" && !strings.Contains(strings.ToLower(movie.Title), query) {
			continue
		}
		if genre != "" && !strings.Contains(strings.ToLower(movie.Genres), genre) {
			continue
		}
		results = append(results, movie)
	}
	return results, nil
}

// GenreMovies returns at most n movies in corpus order whose genres contain genre.
func GenreMovies(movies []data.Movie, genre string, n int) ([]data.Movie, error) {
	if strings.TrimSpace(genre) == "" {
		return nil, errors.NotValidf("empty genre")
	}
	return SearchMovies(movies, "", genre, n)
}

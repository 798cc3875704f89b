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
	"context"
	"sort"
	"time"

	"github.com/bits-and-blooms/bitset"
	"github.com/chewxy/math32"
	"github.com/gorse-io/cinematch/base/log"
	"github.com/gorse-io/cinematch/common/heap"
	"github.com/gorse-io/cinematch/common/parallel"
	"github.com/gorse-io/cinematch/config"
	"github.com/gorse-io/cinematch/storage/data"
	"github.com/juju/errors"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// MovieResolver resolves movie ids to movies.
type MovieResolver interface {
	GetMovie(movieId int) (data.Movie, error)
}

type ratingEntry struct {
	column int32
	rating float32
}

// Collaborative recommends movies rated highly by the most similar users. Users and movies
// are indexed in ascending order of their ids. Missing ratings are 0 in the user-item matrix.
type Collaborative struct {
	cfg        config.CollaborativeConfig
	resolver   MovieResolver
	userIds    []int
	movieIds   []int
	userIndex  map[int]int
	rows       [][]ratingEntry
	norms      []float32
	similarity [][]float32
}

// NewCollaborative pivots ratings into the user-item matrix and computes the cosine similarity
// between every pair of users. The similarity between a user and itself is 0.
func NewCollaborative(ctx context.Context, cfg config.CollaborativeConfig, ratings []data.Rating, resolver MovieResolver, jobs int) (*Collaborative, error) {
	start := time.Now()
	c := &Collaborative{cfg: cfg, resolver: resolver}
	c.userIds = lo.Uniq(lo.Map(ratings, func(r data.Rating, _ int) int { return r.UserId }))
	c.movieIds = lo.Uniq(lo.Map(ratings, func(r data.Rating, _ int) int { return r.MovieId }))
	sort.Ints(c.userIds)
	sort.Ints(c.movieIds)
	if len(c.userIds) > cfg.MaxUsers {
		return nil, errors.NotValidf("%d users exceed max_users = %d", len(c.userIds), cfg.MaxUsers)
	}
	c.userIndex = make(map[int]int, len(c.userIds))
	for i, userId := range c.userIds {
		c.userIndex[userId] = i
	}
	movieIndex := make(map[int]int32, len(c.movieIds))
	for i, movieId := range c.movieIds {
		movieIndex[movieId] = int32(i)
	}

	// pivot ratings, the last rating of a duplicated (user, movie) pair wins
	cells := make([]map[int32]float32, len(c.userIds))
	for i := range cells {
		cells[i] = make(map[int32]float32)
	}
	for _, r := range ratings {
		cells[c.userIndex[r.UserId]][movieIndex[r.MovieId]] = float32(r.Rating)
	}
	c.rows = make([][]ratingEntry, len(c.userIds))
	c.norms = make([]float32, len(c.userIds))
	for i, row := range cells {
		entries := make([]ratingEntry, 0, len(row))
		var sum float32
		for column, rating := range row {
			entries = append(entries, ratingEntry{column: column, rating: rating})
			sum += rating * rating
		}
		sort.Slice(entries, func(a, b int) bool {
			return entries[a].column < entries[b].column
		})
		c.rows[i] = entries
		c.norms[i] = math32.Sqrt(sum)
	}

	c.similarity = make([][]float32, len(c.userIds))
	if err := parallel.For(ctx, len(c.userIds), jobs, func(i int) {
		row := make([]float32, len(c.userIds))
		for j := range c.userIds {
			if i != j {
				row[j] = c.cosine(i, j)
			}
		}
		c.similarity[i] = row
	}); err != nil {
		return nil, errors.Trace(err)
	}
	log.Logger().Info("build collaborative recommender complete",
		zap.Int("n_users", len(c.userIds)),
		zap.Int("n_movies", len(c.movieIds)),
		zap.Int("n_ratings", len(ratings)),
		zap.Duration("used_time", time.Since(start)))
	return c, nil
}

func (c *Collaborative) cosine(i, j int) float32 {
	if c.norms[i] == 0 || c.norms[j] == 0 {
		return 0
	}
	var dot float32
	a, b := c.rows[i], c.rows[j]
	for p, q := 0, 0; p < len(a) && q < len(b); {
		switch {
		case a[p].column < b[q].column:
			p++
		case a[p].column > b[q].column:
			q++
		default:
			dot += a[p].rating * b[q].rating
			p++
			q++
		}
	}
	return dot / (c.norms[i] * c.norms[j])
}

// CountUsers returns the number of rows of the user-item matrix.
func (c *Collaborative) CountUsers() int {
	return len(c.userIds)
}

// CountMovies returns the number of columns of the user-item matrix.
func (c *Collaborative) CountMovies() int {
	return len(c.movieIds)
}

// Similarity returns the similarity between two users. Unknown users are not similar to anyone.
func (c *Collaborative) Similarity(userId, otherId int) float32 {
	i, ok := c.userIndex[userId]
	if !ok {
		return 0
	}
	j, ok := c.userIndex[otherId]
	if !ok {
		return 0
	}
	return c.similarity[i][j]
}

// Neighbors returns the ids of the most similar users, excluding the user itself.
func (c *Collaborative) Neighbors(userId int) ([]int, error) {
	i, ok := c.userIndex[userId]
	if !ok {
		return nil, errors.NotFoundf("user %d", userId)
	}
	return lo.Map(c.neighbors(i), func(j int, _ int) int { return c.userIds[j] }), nil
}

func (c *Collaborative) neighbors(i int) []int {
	filter := heap.NewTopKFilter[int, float32](c.cfg.Neighbors)
	for j, score := range c.similarity[i] {
		if j != i {
			filter.Push(j, score)
		}
	}
	return filter.PopAllValues()
}

// Recommend returns at most n movies the user has not rated, scored by the mean rating of
// the most similar users. Movies no neighbor rated score 0.
func (c *Collaborative) Recommend(userId, n int) ([]Recommendation, error) {
	if err := ValidateN(n); err != nil {
		return nil, errors.Trace(err)
	}
	i, ok := c.userIndex[userId]
	if !ok {
		return nil, errors.NotFoundf("user %d", userId)
	}
	neighbors := c.neighbors(i)
	sums := make([]float32, len(c.movieIds))
	for _, j := range neighbors {
		for _, entry := range c.rows[j] {
			sums[entry.column] += entry.rating
		}
	}
	rated := bitset.New(uint(len(c.movieIds)))
	for _, entry := range c.rows[i] {
		if entry.rating != 0 || c.cfg.DistinguishZeroRatings {
			rated.Set(uint(entry.column))
		}
	}
	filter := heap.NewTopKFilter[int, float32](n)
	for column, sum := range sums {
		if rated.Test(uint(column)) {
			continue
		}
		var mean float32
		if len(neighbors) > 0 {
			mean = sum / float32(len(neighbors))
		}
		filter.Push(column, mean)
	}
	elems := filter.PopAll()
	recommendations := make([]Recommendation, len(elems))
	for k, elem := range elems {
		movieId := c.movieIds[elem.Value]
		movie, err := c.resolver.GetMovie(movieId)
		if err != nil {
			// ratings reference a movie missing from the movies table
			return nil, errors.Errorf("movie %d without title: %v", movieId, err)
		}
		recommendations[k] = Recommendation{
			MovieId: movieId,
			Title:   movie.Title,
			Score:   float64(elem.Weight),
		}
	}
	return recommendations, nil
}

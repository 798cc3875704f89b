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
	"fmt"
	"math"
	"testing"

	"github.com/gorse-io/cinematch/config"
	"github.com/gorse-io/cinematch/storage/data"
	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
)

type mockResolver map[int]data.Movie

func (m mockResolver) GetMovie(movieId int) (data.Movie, error) {
	movie, ok := m[movieId]
	if !ok {
		return data.Movie{}, errors.NotFoundf("movie %d", movieId)
	}
	return movie, nil
}

func newMockResolver(movieIds ...int) mockResolver {
	m := make(mockResolver)
	for _, movieId := range movieIds {
		m[movieId] = data.Movie{MovieId: movieId, Title: fmt.Sprintf("m%d", movieId)}
	}
	return m
}

func newCollaborative(t *testing.T, cfg config.CollaborativeConfig, ratings []data.Rating, resolver MovieResolver) *Collaborative {
	c, err := NewCollaborative(context.Background(), cfg, ratings, resolver, 2)
	assert.NoError(t, err)
	return c
}

func TestCollaborative_Similarity(t *testing.T) {
	ratings := []data.Rating{
		{UserId: 1, MovieId: 1, Rating: 5},
		{UserId: 1, MovieId: 2, Rating: 1},
		{UserId: 2, MovieId: 1, Rating: 4},
		{UserId: 2, MovieId: 2, Rating: 5},
		{UserId: 3, MovieId: 1, Rating: 1},
	}
	c := newCollaborative(t, config.GetDefaultConfig().Recommend.Collaborative, ratings, newMockResolver(1, 2))
	assert.Equal(t, 3, c.CountUsers())
	assert.Equal(t, 2, c.CountMovies())
	for userId := 1; userId <= 3; userId++ {
		assert.Zero(t, c.Similarity(userId, userId))
	}
	assert.InDelta(t, 25/(math.Sqrt(26)*math.Sqrt(41)), c.Similarity(1, 2), 1e-6)
	assert.InDelta(t, 5/math.Sqrt(26), c.Similarity(1, 3), 1e-6)
	assert.Equal(t, c.Similarity(1, 2), c.Similarity(2, 1))
	assert.Zero(t, c.Similarity(1, 100))

	// fewer than five other users: every other user is a neighbor, never the user itself
	neighbors, err := c.Neighbors(1)
	assert.NoError(t, err)
	assert.Equal(t, []int{3, 2}, neighbors)
	_, err = c.Neighbors(100)
	assert.True(t, errors.Is(err, errors.NotFound))

	// every movie has been rated by user 1
	recommendations, err := c.Recommend(1, 1)
	assert.NoError(t, err)
	assert.Empty(t, recommendations)
}

func TestCollaborative_Recommend(t *testing.T) {
	ratings := []data.Rating{
		{UserId: 1, MovieId: 1, Rating: 5},
		{UserId: 1, MovieId: 2, Rating: 1},
		{UserId: 2, MovieId: 1, Rating: 4},
		{UserId: 2, MovieId: 2, Rating: 5},
		{UserId: 2, MovieId: 3, Rating: 4},
		{UserId: 3, MovieId: 1, Rating: 1},
		{UserId: 3, MovieId: 4, Rating: 5},
	}
	cfg := config.GetDefaultConfig().Recommend.Collaborative
	c := newCollaborative(t, cfg, ratings, newMockResolver(1, 2, 3, 4))
	recommendations, err := c.Recommend(1, 10)
	assert.NoError(t, err)
	assert.Equal(t, []Recommendation{
		{MovieId: 4, Title: "m4", Score: 2.5},
		{MovieId: 3, Title: "m3", Score: 2},
	}, recommendations)

	// only the most similar user
	cfg.Neighbors = 1
	c = newCollaborative(t, cfg, ratings, newMockResolver(1, 2, 3, 4))
	recommendations, err = c.Recommend(1, 1)
	assert.NoError(t, err)
	assert.Equal(t, []Recommendation{{MovieId: 3, Title: "m3", Score: 4}}, recommendations)

	// unknown user
	_, err = c.Recommend(100, 1)
	assert.True(t, errors.Is(err, errors.NotFound))
	_, err = c.Recommend(1, 0)
	assert.True(t, errors.Is(err, errors.NotValid))
}

func TestCollaborative_ZeroRatings(t *testing.T) {
	ratings := []data.Rating{
		{UserId: 1, MovieId: 1, Rating: 5},
		{UserId: 1, MovieId: 2, Rating: 0},
		{UserId: 2, MovieId: 1, Rating: 5},
		{UserId: 2, MovieId: 2, Rating: 3},
	}
	cfg := config.GetDefaultConfig().Recommend.Collaborative
	c := newCollaborative(t, cfg, ratings, newMockResolver(1, 2))
	recommendations, err := c.Recommend(1, 10)
	assert.NoError(t, err)
	assert.Equal(t, []Recommendation{{MovieId: 2, Title: "m2", Score: 3}}, recommendations)

	cfg.DistinguishZeroRatings = true
	c = newCollaborative(t, cfg, ratings, newMockResolver(1, 2))
	recommendations, err = c.Recommend(1, 10)
	assert.NoError(t, err)
	assert.Empty(t, recommendations)
}

func TestCollaborative_MissingTitle(t *testing.T) {
	ratings := []data.Rating{
		{UserId: 1, MovieId: 1, Rating: 5},
		{UserId: 2, MovieId: 1, Rating: 4},
		{UserId: 2, MovieId: 2, Rating: 5},
	}
	c := newCollaborative(t, config.GetDefaultConfig().Recommend.Collaborative, ratings, newMockResolver(1))
	_, err := c.Recommend(1, 1)
	assert.ErrorContains(t, err, "movie 2 without title")
	// inconsistent data is a server failure, neither a bad request nor a missing entity
	assert.False(t, errors.Is(err, errors.NotValid))
	assert.False(t, errors.Is(err, errors.NotFound))
}

func TestCollaborative_MaxUsers(t *testing.T) {
	cfg := config.GetDefaultConfig().Recommend.Collaborative
	cfg.MaxUsers = 1
	_, err := NewCollaborative(context.Background(), cfg, []data.Rating{
		{UserId: 1, MovieId: 1, Rating: 5},
		{UserId: 2, MovieId: 1, Rating: 4},
	}, newMockResolver(1), 1)
	assert.True(t, errors.Is(err, errors.NotValid))
}

func TestCollaborative_SingleUser(t *testing.T) {
	c := newCollaborative(t, config.GetDefaultConfig().Recommend.Collaborative, []data.Rating{
		{UserId: 1, MovieId: 1, Rating: 5},
	}, newMockResolver(1))
	neighbors, err := c.Neighbors(1)
	assert.NoError(t, err)
	assert.Empty(t, neighbors)
	recommendations, err := c.Recommend(1, 3)
	assert.NoError(t, err)
	assert.Empty(t, recommendations)
}

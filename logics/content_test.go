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
	"testing"

	"github.com/gorse-io/cinematch/config"
	"github.com/gorse-io/cinematch/storage/data"
	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

func TestTokenize(t *testing.T) {
	assert.Equal(t, []string{"adventure", "animation", "children"},
		Tokenize("Adventure|Animation|Children", EnglishStopWords()))
	assert.Equal(t, []string{"sci", "fi", "film", "noir"},
		Tokenize("Sci-Fi|Film-Noir", EnglishStopWords()))
	assert.Equal(t, []string{"genres", "listed"},
		Tokenize("(no genres listed)", EnglishStopWords()))
	assert.Equal(t, []string{"no", "genres", "listed"},
		Tokenize("(no genres listed)", nil))
	assert.Empty(t, Tokenize("", EnglishStopWords()))
}

type ContentBasedTestSuite struct {
	suite.Suite
	precompute bool
}

func (suite *ContentBasedTestSuite) newContentBased(movies []data.Movie) *ContentBased {
	cfg := config.GetDefaultConfig().Recommend.Content
	cfg.Precompute = suite.precompute
	cfg.RowCacheSize = 2
	c, err := NewContentBased(context.Background(), cfg, movies, 2)
	suite.NoError(err)
	return c
}

func (suite *ContentBasedTestSuite) TestRecommend() {
	c := suite.newContentBased([]data.Movie{
		{MovieId: 1, Title: "A", Genres: "Comedy"},
		{MovieId: 2, Title: "B", Genres: "Comedy"},
		{MovieId: 3, Title: "C", Genres: "Drama"},
	})
	recommendations, err := c.Recommend("A", 2)
	suite.NoError(err)
	suite.Len(recommendations, 2)
	suite.Equal("B", recommendations[0].Title)
	suite.Equal(2, recommendations[0].MovieId)
	suite.InDelta(1, recommendations[0].Score, 1e-6)
	suite.Equal("C", recommendations[1].Title)
	suite.InDelta(0, recommendations[1].Score, 1e-6)

	// at most n and never more than the other movies
	recommendations, err = c.Recommend("A", 10)
	suite.NoError(err)
	suite.Len(recommendations, 2)
}

func (suite *ContentBasedTestSuite) TestExcludeSelf() {
	var movies []data.Movie
	for i := 0; i < 10; i++ {
		movies = append(movies, data.Movie{MovieId: i, Title: fmt.Sprintf("movie %d", i), Genres: "Action|Thriller"})
	}
	c := suite.newContentBased(movies)
	for i := 0; i < 10; i++ {
		recommendations, err := c.Recommend(fmt.Sprintf("movie %d", i), 9)
		suite.NoError(err)
		suite.Len(recommendations, 9)
		for j, recommendation := range recommendations {
			suite.NotEqual(i, recommendation.MovieId)
			suite.InDelta(1, recommendation.Score, 1e-6)
			if j > 0 {
				// ties keep corpus order
				suite.Less(recommendations[j-1].MovieId, recommendation.MovieId)
			}
		}
	}
}

func (suite *ContentBasedTestSuite) TestTFIDF() {
	c := suite.newContentBased([]data.Movie{
		{MovieId: 1, Title: "A", Genres: "Action|Comedy"},
		{MovieId: 2, Title: "B", Genres: "Action|Drama"},
		{MovieId: 3, Title: "C", Genres: "Comedy"},
		{MovieId: 4, Title: "D", Genres: ""},
	})
	suite.Equal(3, c.Terms())
	// rare terms weigh more: comedy is shared with A, action is shared with B
	recommendations, err := c.Recommend("A", 3)
	suite.NoError(err)
	suite.Equal([]string{"C", "B", "D"}, []string{recommendations[0].Title, recommendations[1].Title, recommendations[2].Title})
	suite.Greater(recommendations[0].Score, recommendations[1].Score)
	// missing genres are a zero vector
	suite.Zero(recommendations[2].Score)
	for _, v := range c.Vector(3) {
		suite.Zero(v)
	}
	recommendations, err = c.Recommend("D", 3)
	suite.NoError(err)
	for _, recommendation := range recommendations {
		suite.Zero(recommendation.Score)
	}
}

func (suite *ContentBasedTestSuite) TestDuplicateTitles() {
	c := suite.newContentBased([]data.Movie{
		{MovieId: 1, Title: "A", Genres: "Comedy"},
		{MovieId: 2, Title: "A", Genres: "Drama"},
		{MovieId: 3, Title: "B", Genres: "Drama"},
	})
	index, ok := c.TitleIndex("A")
	suite.True(ok)
	suite.Equal(0, index)
	recommendations, err := c.Recommend("A", 2)
	suite.NoError(err)
	suite.Equal(2, recommendations[0].MovieId)
	suite.Equal(3, recommendations[1].MovieId)
}

func (suite *ContentBasedTestSuite) TestNotFound() {
	c := suite.newContentBased([]data.Movie{{MovieId: 1, Title: "A", Genres: "Comedy"}})
	recommendations, err := c.Recommend("Z", 5)
	suite.True(errors.Is(err, errors.NotFound))
	suite.Empty(recommendations)
	_, err = c.Recommend("A", 0)
	suite.True(errors.Is(err, errors.NotValid))
}

func TestContentBased(t *testing.T) {
	suite.Run(t, new(ContentBasedTestSuite))
}

func TestContentBasedPrecompute(t *testing.T) {
	suite.Run(t, &ContentBasedTestSuite{precompute: true})
}

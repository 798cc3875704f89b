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

package data

import (
	"context"
	"time"

	"github.com/stretchr/testify/suite"
)

type baseTestSuite struct {
	suite.Suite
	Database
}

func (suite *baseTestSuite) getMovies() []Movie {
	var movies []Movie
	movieChan, errChan := suite.Database.GetMovieStream(context.Background(), 2)
	for batch := range movieChan {
		suite.LessOrEqual(len(batch), 2)
		movies = append(movies, batch...)
	}
	suite.NoError(<-errChan)
	return movies
}

func (suite *baseTestSuite) getRatings() []Rating {
	var ratings []Rating
	ratingChan, errChan := suite.Database.GetRatingStream(context.Background(), 2)
	for batch := range ratingChan {
		suite.LessOrEqual(len(batch), 2)
		ratings = append(ratings, batch...)
	}
	suite.NoError(<-errChan)
	return ratings
}

func (suite *baseTestSuite) TestMovies() {
	ctx := context.Background()
	err := suite.Database.BatchInsertMovies(ctx, []Movie{
		{MovieId: 3, Title: "Grumpier Old Men (1995)", Genres: "Comedy|Romance"},
		{MovieId: 1, Title: "Toy Story (1995)", Genres: "Adventure|Animation|Children|Comedy|Fantasy"},
		{MovieId: 2, Title: "Jumanji (1995)", Genres: "Adventure|Children|Fantasy"},
	})
	suite.NoError(err)
	// overwrite
	err = suite.Database.BatchInsertMovies(ctx, []Movie{{MovieId: 2, Title: "Jumanji (1995)", Genres: "Adventure"}})
	suite.NoError(err)
	// empty batch
	suite.NoError(suite.Database.BatchInsertMovies(ctx, nil))

	movies := suite.getMovies()
	suite.Equal([]Movie{
		{MovieId: 1, Title: "Toy Story (1995)", Genres: "Adventure|Animation|Children|Comedy|Fantasy"},
		{MovieId: 2, Title: "Jumanji (1995)", Genres: "Adventure"},
		{MovieId: 3, Title: "Grumpier Old Men (1995)", Genres: "Comedy|Romance"},
	}, movies)
}

func (suite *baseTestSuite) TestRatings() {
	ctx := context.Background()
	timestamp := time.Date(2000, 7, 30, 18, 45, 3, 0, time.UTC)
	err := suite.Database.BatchInsertRatings(ctx, []Rating{
		{UserId: 2, MovieId: 1, Rating: 3.5},
		{UserId: 1, MovieId: 3, Rating: 4, Timestamp: timestamp},
		{UserId: 1, MovieId: 1, Rating: 4, Timestamp: timestamp},
		{UserId: 1, MovieId: 6, Rating: 4, Timestamp: timestamp},
	})
	suite.NoError(err)
	// overwrite
	err = suite.Database.BatchInsertRatings(ctx, []Rating{{UserId: 2, MovieId: 1, Rating: 5}})
	suite.NoError(err)

	ratings := suite.getRatings()
	if suite.Len(ratings, 4) {
		suite.Equal([]int{1, 1, 1, 2}, []int{ratings[0].UserId, ratings[1].UserId, ratings[2].UserId, ratings[3].UserId})
		suite.Equal([]int{1, 3, 6, 1}, []int{ratings[0].MovieId, ratings[1].MovieId, ratings[2].MovieId, ratings[3].MovieId})
		suite.Equal(5.0, ratings[3].Rating)
		suite.True(timestamp.Equal(ratings[0].Timestamp))
		suite.True(ratings[3].Timestamp.IsZero())
	}
}

func (suite *baseTestSuite) TestPurge() {
	ctx := context.Background()
	suite.NoError(suite.Database.BatchInsertMovies(ctx, []Movie{{MovieId: 1, Title: "Toy Story (1995)"}}))
	suite.NoError(suite.Database.BatchInsertRatings(ctx, []Rating{{UserId: 1, MovieId: 1, Rating: 4}}))
	suite.NoError(suite.Database.Purge())
	suite.Empty(suite.getMovies())
	suite.Empty(suite.getRatings())
}

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
	"database/sql"

	_ "github.com/go-sql-driver/mysql"
	"github.com/gorse-io/cinematch/storage"
	"github.com/juju/errors"
	_ "github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	_ "modernc.org/sqlite"
)

type SQLDriver int

const (
	MySQL SQLDriver = iota
	Postgres
	SQLite
)

// SQLDatabase stores movies and ratings in MySQL, Postgres or SQLite.
type SQLDatabase struct {
	storage.TablePrefix
	gormDB *gorm.DB
	client *sql.DB
	driver SQLDriver
}

// Init creates tables and indices.
func (d *SQLDatabase) Init() error {
	tx := d.gormDB
	if d.driver == MySQL {
		tx = tx.Set("gorm:table_options", "ENGINE=InnoDB")
	}
	if err := tx.Table(d.MoviesTable()).AutoMigrate(&Movie{}); err != nil {
		return errors.Trace(err)
	}
	if err := tx.Table(d.RatingsTable()).AutoMigrate(&Rating{}); err != nil {
		return errors.Trace(err)
	}
	return nil
}

func (d *SQLDatabase) Close() error {
	return d.client.Close()
}

// Purge deletes all movies and ratings.
func (d *SQLDatabase) Purge() error {
	for _, table := range []string{d.MoviesTable(), d.RatingsTable()} {
		if err := d.gormDB.Exec("DELETE FROM " + table).Error; err != nil {
			return errors.Trace(err)
		}
	}
	return nil
}

// BatchInsertMovies inserts movies, overwriting movies with the same id.
func (d *SQLDatabase) BatchInsertMovies(ctx context.Context, movies []Movie) error {
	if len(movies) == 0 {
		return nil
	}
	err := d.gormDB.WithContext(ctx).Table(d.MoviesTable()).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&movies).Error
	return errors.Trace(err)
}

// BatchInsertRatings inserts ratings, overwriting ratings of the same user and movie.
func (d *SQLDatabase) BatchInsertRatings(ctx context.Context, ratings []Rating) error {
	if len(ratings) == 0 {
		return nil
	}
	err := d.gormDB.WithContext(ctx).Table(d.RatingsTable()).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&ratings).Error
	return errors.Trace(err)
}

func (d *SQLDatabase) GetMovieStream(ctx context.Context, batchSize int) (chan []Movie, chan error) {
	movieChan := make(chan []Movie, 1)
	errChan := make(chan error, 1)
	go func() {
		defer close(movieChan)
		defer close(errChan)
		result, err := d.gormDB.WithContext(ctx).Table(d.MoviesTable()).
			Select("movie_id, title, genres").
			Order("movie_id").
			Rows()
		if err != nil {
			errChan <- errors.Trace(err)
			return
		}
		defer result.Close()
		movies := make([]Movie, 0, batchSize)
		for result.Next() {
			var movie Movie
			if err = d.gormDB.ScanRows(result, &movie); err != nil {
				errChan <- errors.Trace(err)
				return
			}
			movies = append(movies, movie)
			if len(movies) == batchSize {
				movieChan <- movies
				movies = make([]Movie, 0, batchSize)
			}
		}
		if err = result.Err(); err != nil {
			errChan <- errors.Trace(err)
			return
		}
		if len(movies) > 0 {
			movieChan <- movies
		}
		errChan <- nil
	}()
	return movieChan, errChan
}

func (d *SQLDatabase) GetRatingStream(ctx context.Context, batchSize int) (chan []Rating, chan error) {
	ratingChan := make(chan []Rating, 1)
	errChan := make(chan error, 1)
	go func() {
		defer close(ratingChan)
		defer close(errChan)
		result, err := d.gormDB.WithContext(ctx).Table(d.RatingsTable()).
			Select("user_id, movie_id, rating, time_stamp").
			Order("user_id, movie_id").
			Rows()
		if err != nil {
			errChan <- errors.Trace(err)
			return
		}
		defer result.Close()
		ratings := make([]Rating, 0, batchSize)
		for result.Next() {
			var rating Rating
			if err = d.gormDB.ScanRows(result, &rating); err != nil {
				errChan <- errors.Trace(err)
				return
			}
			ratings = append(ratings, rating)
			if len(ratings) == batchSize {
				ratingChan <- ratings
				ratings = make([]Rating, 0, batchSize)
			}
		}
		if err = result.Err(); err != nil {
			errChan <- errors.Trace(err)
			return
		}
		if len(ratings) > 0 {
			ratingChan <- ratings
		}
		errChan <- nil
	}()
	return ratingChan, errChan
}

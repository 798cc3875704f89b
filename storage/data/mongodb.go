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

	"github.com/gorse-io/cinematch/storage"
	"github.com/juju/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoDB stores movies and ratings in two collections.
type MongoDB struct {
	storage.TablePrefix
	client *mongo.Client
	dbName string
}

// Init creates collections and unique indices.
func (db *MongoDB) Init() error {
	ctx := context.Background()
	d := db.client.Database(db.dbName)
	collections, err := d.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		return errors.Trace(err)
	}
	var hasMovies, hasRatings bool
	for _, name := range collections {
		switch name {
		case db.MoviesTable():
			hasMovies = true
		case db.RatingsTable():
			hasRatings = true
		}
	}
	if !hasMovies {
		if err = d.CreateCollection(ctx, db.MoviesTable()); err != nil {
			return errors.Trace(err)
		}
	}
	if !hasRatings {
		if err = d.CreateCollection(ctx, db.RatingsTable()); err != nil {
			return errors.Trace(err)
		}
	}
	_, err = d.Collection(db.MoviesTable()).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.M{"movie_id": 1},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return errors.Trace(err)
	}
	_, err = d.Collection(db.RatingsTable()).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "movie_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return errors.Trace(err)
}

func (db *MongoDB) Close() error {
	return db.client.Disconnect(context.Background())
}

func (db *MongoDB) Purge() error {
	ctx := context.Background()
	for _, name := range []string{db.MoviesTable(), db.RatingsTable()} {
		if _, err := db.client.Database(db.dbName).Collection(name).DeleteMany(ctx, bson.M{}); err != nil {
			return errors.Trace(err)
		}
	}
	return nil
}

func (db *MongoDB) BatchInsertMovies(ctx context.Context, movies []Movie) error {
	if len(movies) == 0 {
		return nil
	}
	c := db.client.Database(db.dbName).Collection(db.MoviesTable())
	models := make([]mongo.WriteModel, 0, len(movies))
	for _, movie := range movies {
		models = append(models, mongo.NewUpdateOneModel().
			SetUpsert(true).
			SetFilter(bson.M{"movie_id": movie.MovieId}).
			SetUpdate(bson.M{"$set": movie}))
	}
	_, err := c.BulkWrite(ctx, models)
	return errors.Trace(err)
}

func (db *MongoDB) BatchInsertRatings(ctx context.Context, ratings []Rating) error {
	if len(ratings) == 0 {
		return nil
	}
	c := db.client.Database(db.dbName).Collection(db.RatingsTable())
	models := make([]mongo.WriteModel, 0, len(ratings))
	for _, rating := range ratings {
		models = append(models, mongo.NewUpdateOneModel().
			SetUpsert(true).
			SetFilter(bson.M{"user_id": rating.UserId, "movie_id": rating.MovieId}).
			SetUpdate(bson.M{"$set": rating}))
	}
	_, err := c.BulkWrite(ctx, models)
	return errors.Trace(err)
}

func (db *MongoDB) GetMovieStream(ctx context.Context, batchSize int) (chan []Movie, chan error) {
	return streamCollection[Movie](ctx, db.client.Database(db.dbName).Collection(db.MoviesTable()),
		bson.D{{Key: "movie_id", Value: 1}}, batchSize)
}

func (db *MongoDB) GetRatingStream(ctx context.Context, batchSize int) (chan []Rating, chan error) {
	return streamCollection[Rating](ctx, db.client.Database(db.dbName).Collection(db.RatingsTable()),
		bson.D{{Key: "user_id", Value: 1}, {Key: "movie_id", Value: 1}}, batchSize)
}

func streamCollection[T any](ctx context.Context, c *mongo.Collection, sort bson.D, batchSize int) (chan []T, chan error) {
	docChan := make(chan []T, 1)
	errChan := make(chan error, 1)
	go func() {
		defer close(docChan)
		defer close(errChan)
		opt := options.Find().SetSort(sort).SetProjection(bson.M{"_id": 0})
		r, err := c.Find(ctx, bson.M{}, opt)
		if err != nil {
			errChan <- errors.Trace(err)
			return
		}
		defer r.Close(ctx)
		docs := make([]T, 0, batchSize)
		for r.Next(ctx) {
			var doc T
			if err = r.Decode(&doc); err != nil {
				errChan <- errors.Trace(err)
				return
			}
			docs = append(docs, doc)
			if len(docs) == batchSize {
				docChan <- docs
				docs = make([]T, 0, batchSize)
			}
		}
		if err = r.Err(); err != nil {
			errChan <- errors.Trace(err)
			return
		}
		if len(docs) > 0 {
			docChan <- docs
		}
		errChan <- nil
	}()
	return docChan, errChan
}

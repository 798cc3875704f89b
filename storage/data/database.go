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
	"strings"
	"time"

	"github.com/XSAM/otelsql"
	"github.com/gorse-io/cinematch/storage"
	"github.com/juju/errors"
	"github.com/samber/lo"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/x/mongo/driver/connstring"
	"go.opentelemetry.io/contrib/instrumentation/go.mongodb.org/mongo-driver/mongo/otelmongo"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Movie is a row of the movies table.
type Movie struct {
	MovieId int    `gorm:"column:movie_id;primaryKey;autoIncrement:false" bson:"movie_id"`
	Title   string `gorm:"column:title" bson:"title"`
	Genres  string `gorm:"column:genres" bson:"genres"`
}

// Rating is a row of the ratings table. A zero Timestamp means the rating time is unknown.
type Rating struct {
	UserId    int       `gorm:"column:user_id;primaryKey;autoIncrement:false" bson:"user_id"`
	MovieId   int       `gorm:"column:movie_id;primaryKey;autoIncrement:false;index" bson:"movie_id"`
	Rating    float64   `gorm:"column:rating" bson:"rating"`
	Timestamp time.Time `gorm:"column:time_stamp" bson:"timestamp"`
}

// Database stores the movies and ratings datasets.
type Database interface {
	Init() error
	Close() error
	Purge() error
	BatchInsertMovies(ctx context.Context, movies []Movie) error
	BatchInsertRatings(ctx context.Context, ratings []Rating) error
	// GetMovieStream streams movies ordered by movie id.
	GetMovieStream(ctx context.Context, batchSize int) (chan []Movie, chan error)
	// GetRatingStream streams ratings ordered by user id and movie id.
	GetRatingStream(ctx context.Context, batchSize int) (chan []Rating, chan error)
}

// Open a connection to a database. Supported URLs are mysql://, postgres:// (or
// postgresql://), mongodb:// (or mongodb+srv://) and sqlite://.
func Open(path, tablePrefix string) (Database, error) {
	switch {
	case strings.HasPrefix(path, storage.MySQLPrefix):
		dsn, err := mysqlDSN(path[len(storage.MySQLPrefix):])
		if err != nil {
			return nil, errors.Trace(err)
		}
		return openSQL(MySQL, "mysql", dsn, tablePrefix, func(db *sql.DB) gorm.Dialector {
			return mysql.New(mysql.Config{Conn: db})
		})
	case strings.HasPrefix(path, storage.PostgresPrefix), strings.HasPrefix(path, storage.PostgreSQLPrefix):
		return openSQL(Postgres, "postgres", path, tablePrefix, func(db *sql.DB) gorm.Dialector {
			return postgres.New(postgres.Config{Conn: db})
		})
	case strings.HasPrefix(path, storage.SQLitePrefix):
		// concurrent readers wait for the loader instead of failing with SQLITE_BUSY
		withPragmas, err := storage.AppendURLParams(path, []lo.Tuple2[string, string]{
			{A: "_pragma", B: "busy_timeout(10000)"},
			{A: "_pragma", B: "journal_mode(wal)"},
		})
		if err != nil {
			return nil, errors.Trace(err)
		}
		return openSQL(SQLite, "sqlite", withPragmas[len(storage.SQLitePrefix):], tablePrefix, func(db *sql.DB) gorm.Dialector {
			return sqlite.Dialector{Conn: db}
		})
	case strings.HasPrefix(path, storage.MongoPrefix), strings.HasPrefix(path, storage.MongoSrvPrefix):
		return openMongo(path, tablePrefix)
	default:
		return nil, errors.NotSupportedf("database %s", path)
	}
}

// mysqlDSN appends strict mode, dirty reads and time parsing unless the DSN sets them.
func mysqlDSN(dsn string) (string, error) {
	isolation, err := storage.ProbeMySQLIsolationVariableName(dsn)
	if err != nil {
		return "", errors.Trace(err)
	}
	return storage.AppendMySQLParams(dsn, map[string]string{
		"sql_mode":  "'ONLY_FULL_GROUP_BY,STRICT_TRANS_TABLES,ERROR_FOR_DIVISION_BY_ZERO,NO_ENGINE_SUBSTITUTION'",
		isolation:   "'READ-UNCOMMITTED'",
		"parseTime": "true",
	})
}

// openSQL opens a traced connection pool and wraps it with gorm.
func openSQL(driver SQLDriver, driverName, dsn, tablePrefix string, dialector func(*sql.DB) gorm.Dialector) (Database, error) {
	system := driverName
	if driver == Postgres {
		system = "postgresql"
	}
	client, err := otelsql.Open(driverName, dsn,
		otelsql.WithAttributes(attribute.String("db.system", system)),
		otelsql.WithSpanOptions(otelsql.SpanOptions{DisableErrSkip: true}),
	)
	if err != nil {
		return nil, errors.Trace(err)
	}
	gormDB, err := gorm.Open(dialector(client), storage.NewGORMConfig(tablePrefix))
	if err != nil {
		_ = client.Close()
		return nil, errors.Trace(err)
	}
	return &SQLDatabase{
		TablePrefix: storage.TablePrefix(tablePrefix),
		gormDB:      gormDB,
		client:      client,
		driver:      driver,
	}, nil
}

func openMongo(uri, tablePrefix string) (Database, error) {
	cs, err := connstring.ParseAndValidate(uri)
	if err != nil {
		return nil, errors.Trace(err)
	}
	opts := options.Client().ApplyURI(uri)
	opts.Monitor = otelmongo.NewMonitor()
	client, err := mongo.Connect(context.Background(), opts)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return &MongoDB{
		TablePrefix: storage.TablePrefix(tablePrefix),
		client:      client,
		dbName:      cs.Database,
	}, nil
}

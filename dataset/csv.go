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
	"encoding/csv"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/gorse-io/cinematch/storage/data"
	"github.com/juju/errors"
)

const (
	ColumnMovieId   = "movieId"
	ColumnTitle     = "title"
	ColumnGenres    = "genres"
	ColumnUserId    = "userId"
	ColumnRating    = "rating"
	ColumnTimestamp = "timestamp"
)

// LoadCSV reads the movies and ratings tables from CSV sources with header rows.
func LoadCSV(movies, ratings io.Reader) (*Dataset, error) {
	dataset := NewDataset(time.Now(), 0, 0)
	if err := ReadMovies(dataset, "movies", movies); err != nil {
		return nil, errors.Trace(err)
	}
	if err := ReadRatings(dataset, "ratings", ratings); err != nil {
		return nil, errors.Trace(err)
	}
	return dataset, nil
}

// ReadMovies appends movies from a CSV source with columns movieId, title and genres.
func ReadMovies(dataset *Dataset, source string, r io.Reader) error {
	reader, columns, err := newReader(source, r, ColumnMovieId, ColumnTitle, ColumnGenres)
	if err != nil {
		return err
	}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			return nil
		} else if err != nil {
			return NewDataLoadError(source, err)
		}
		movieId, err := strconv.Atoi(strings.TrimSpace(record[columns[ColumnMovieId]]))
		if err != nil {
			return NewDataLoadError(source, lineError(reader, ColumnMovieId, err))
		}
		dataset.AddMovie(data.Movie{
			MovieId: movieId,
			Title:   record[columns[ColumnTitle]],
			Genres:  record[columns[ColumnGenres]],
		})
	}
}

// ReadRatings appends ratings from a CSV source with columns userId, movieId, rating and
// an optional timestamp.
func ReadRatings(dataset *Dataset, source string, r io.Reader) error {
	reader, columns, err := newReader(source, r, ColumnUserId, ColumnMovieId, ColumnRating)
	if err != nil {
		return err
	}
	timestampColumn, hasTimestamp := columns[ColumnTimestamp]
	for {
		record, err := reader.Read()
		if err == io.EOF {
			return nil
		} else if err != nil {
			return NewDataLoadError(source, err)
		}
		var rating data.Rating
		if rating.UserId, err = strconv.Atoi(strings.TrimSpace(record[columns[ColumnUserId]])); err != nil {
			return NewDataLoadError(source, lineError(reader, ColumnUserId, err))
		}
		if rating.MovieId, err = strconv.Atoi(strings.TrimSpace(record[columns[ColumnMovieId]])); err != nil {
			return NewDataLoadError(source, lineError(reader, ColumnMovieId, err))
		}
		if rating.Rating, err = strconv.ParseFloat(strings.TrimSpace(record[columns[ColumnRating]]), 64); err != nil {
			return NewDataLoadError(source, lineError(reader, ColumnRating, err))
		}
		if hasTimestamp {
			if rating.Timestamp, err = ParseTimestamp(record[timestampColumn]); err != nil {
				return NewDataLoadError(source, lineError(reader, ColumnTimestamp, err))
			}
		}
		dataset.AddRating(rating)
	}
}

// ParseTimestamp parses unix seconds or any layout dateparse recognizes. An empty string is the zero time.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if seconds, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(seconds, 0).UTC(), nil
	}
	t, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return time.Time{}, errors.Trace(err)
	}
	return t, nil
}

// WriteMovies writes movies as CSV with a movieId,title,genres header.
func WriteMovies(w io.Writer, movies []data.Movie) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{ColumnMovieId, ColumnTitle, ColumnGenres}); err != nil {
		return errors.Trace(err)
	}
	for _, movie := range movies {
		if err := writer.Write([]string{strconv.Itoa(movie.MovieId), movie.Title, movie.Genres}); err != nil {
			return errors.Trace(err)
		}
	}
	writer.Flush()
	return errors.Trace(writer.Error())
}

// WriteRatings writes ratings as CSV with a userId,movieId,rating,timestamp header. Unknown
// rating times are written as empty fields, others as unix seconds.
func WriteRatings(w io.Writer, ratings []data.Rating) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{ColumnUserId, ColumnMovieId, ColumnRating, ColumnTimestamp}); err != nil {
		return errors.Trace(err)
	}
	for _, rating := range ratings {
		var timestamp string
		if !rating.Timestamp.IsZero() {
			timestamp = strconv.FormatInt(rating.Timestamp.Unix(), 10)
		}
		if err := writer.Write([]string{
			strconv.Itoa(rating.UserId),
			strconv.Itoa(rating.MovieId),
			strconv.FormatFloat(rating.Rating, 'f', -1, 64),
			timestamp,
		}); err != nil {
			return errors.Trace(err)
		}
	}
	writer.Flush()
	return errors.Trace(writer.Error())
}

func newReader(source string, r io.Reader, required ...string) (*csv.Reader, map[string]int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil, NewDataLoadError(source, errors.New("empty source"))
	} else if err != nil {
		return nil, nil, NewDataLoadError(source, err)
	}
	columns := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		if _, exist := columns[name]; !exist {
			columns[name] = i
		}
	}
	for _, name := range required {
		if _, exist := columns[name]; !exist {
			return nil, nil, NewDataLoadError(source, errors.NotFoundf("column %s", name))
		}
	}
	reader.FieldsPerRecord = len(header)
	return reader, columns, nil
}

func lineError(reader *csv.Reader, column string, err error) error {
	line, _ := reader.FieldPos(0)
	return errors.Annotatef(err, "line %d: invalid %s", line, column)
}

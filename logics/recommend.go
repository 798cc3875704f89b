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
	"math"

	"github.com/juju/errors"
)

// Recommendation is a scored movie. Every recommender returns recommendations in
// descending order of score.
type Recommendation struct {
	MovieId int     `json:"movie_id"`
	Title   string  `json:"title"`
	Score   float64 `json:"score"`
}

// ValidateN checks the number of requested results.
func ValidateN(n int) error {
	if n < 1 {
		return errors.NotValidf("n = %d, n must be at least 1", n)
	}
	return nil
}

// ValidateAlpha checks the content-based weight of hybrid recommendations.
func ValidateAlpha(alpha float64) error {
	if math.IsNaN(alpha) || alpha < 0 || alpha > 1 {
		return errors.NotValidf("alpha = %v, alpha must be in [0, 1]", alpha)
	}
	return nil
}

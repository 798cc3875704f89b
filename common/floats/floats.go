// Copyright 2020 gorse Project Authors
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

package floats

import (
	"github.com/chewxy/math32"
)

// Zero sets all elements of a to zero.
func Zero(a []float32) {
	for i := range a {
		a[i] = 0
	}
}

// MulConst multiplies every element of dst by c.
func MulConst(dst []float32, c float32) {
	for i := range dst {
		dst[i] *= c
	}
}

// Dot returns the inner product of a and b.
func Dot(a, b []float32) (ret float32) {
	if len(a) != len(b) {
		panic("floats: slice lengths do not match")
	}
	for i := range a {
		ret += a[i] * b[i]
	}
	return
}

// Norm returns the euclidean norm of a.
func Norm(a []float32) float32 {
	var sum float32
	for _, v := range a {
		sum += v * v
	}
	return math32.Sqrt(sum)
}

// Normalize scales a to unit length. A zero vector is left unchanged.
func Normalize(a []float32) {
	norm := Norm(a)
	if norm > 0 {
		MulConst(a, 1/norm)
	}
}

// Cosine returns the cosine similarity between two dense vectors given their norms.
// It returns 0 when either vector is all-zero.
func Cosine(dot, normA, normB float32) float32 {
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (normA * normB)
}

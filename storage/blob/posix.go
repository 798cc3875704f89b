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

package blob

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/juju/errors"
)

// POSIX stores objects as files under a directory. An empty directory resolves names as
// given, relative to the working directory.
type POSIX struct {
	dir string
}

func NewPOSIX(dir string) *POSIX {
	return &POSIX{dir: dir}
}

func (p *POSIX) path(name string) string {
	if p.dir == "" {
		return name
	}
	return filepath.Join(p.dir, name)
}

func (p *POSIX) Open(_ context.Context, name string) (io.ReadCloser, error) {
	return os.Open(p.path(name))
}

// Create a file for writing. Missing parent directories are created.
func (p *POSIX) Create(_ context.Context, name string) (io.WriteCloser, error) {
	fullPath := p.path(name)
	if dir := filepath.Dir(fullPath); dir != "." {
		if err := os.MkdirAll(dir, os.ModePerm); err != nil {
			return nil, errors.Trace(err)
		}
	}
	file, err := os.Create(fullPath)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return file, nil
}

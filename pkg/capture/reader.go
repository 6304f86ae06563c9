/*
 Licensed under the Apache License, Version 2.0 (the "License");
 you may not use this file except in compliance with the License.
 You may obtain a copy of the License at

     https://www.apache.org/licenses/LICENSE-2.0

 Unless required by applicable law or agreed to in writing, software
 distributed under the License is distributed on an "AS IS" BASIS,
 WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 See the License for the specific language governing permissions and
 limitations under the License.
*/

package capture

import (
	"bufio"
	"compress/gzip"
	"io"
	"os"
	"strings"

	"jinr.ru/greenlab/go-ubx/pkg/log"
)

// Reader is the replay source. It reads a previously captured byte stream
// from a plain or gzip compressed file, selected once at open time from
// the file name suffix.
type Reader struct {
	file *os.File
	gzip *gzip.Reader
	buf *bufio.Reader
}

func NewReader(filename string) (*Reader, error) {
	file, err := os.Open(filename)
	if err != nil {
		log.Error("Error while opening file: %s", filename)
		return nil, err
	}
	r := &Reader{file: file}
	if strings.HasSuffix(filename, ".gz") {
		gz, err := gzip.NewReader(file)
		if err != nil {
			file.Close()
			return nil, err
		}
		r.gzip = gz
		r.buf = bufio.NewReader(gz)
	} else {
		r.buf = bufio.NewReader(file)
	}
	return r, nil
}

var _ io.Reader = &Reader{}

func (r *Reader) Read(p []byte) (int, error) {
	return r.buf.Read(p)
}

func (r *Reader) Close() error {
	var firstErr error
	if r.gzip != nil {
		if err := r.gzip.Close(); err != nil {
			firstErr = err
		}
	}
	if err := r.file.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

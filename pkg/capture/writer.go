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
	"os"
	"strings"

	"jinr.ru/greenlab/go-ubx/pkg/log"
)

// Writer is the capture sink. Validated frame bytes are buffered and
// written to a plain or gzip compressed file. Compression is selected once
// at open time from the file name suffix, never mid-stream.
type Writer struct {
	file *os.File
	gzip *gzip.Writer
	buf *bufio.Writer
}

func NewWriter(filename string) (*Writer, error) {
	file, err := os.Create(filename)
	if err != nil {
		log.Error("Error while creating file: %s", filename)
		return nil, err
	}
	w := &Writer{file: file}
	if strings.HasSuffix(filename, ".gz") {
		w.gzip = gzip.NewWriter(file)
		w.buf = bufio.NewWriter(w.gzip)
	} else {
		w.buf = bufio.NewWriter(file)
	}
	return w, nil
}

func (w *Writer) Write(buf []byte) (int, error) {
	return w.buf.Write(buf)
}

// Flush pushes buffered bytes through the compressor to disk without
// closing the sink
func (w *Writer) Flush() error {
	if err := w.buf.Flush(); err != nil {
		return err
	}
	if w.gzip != nil {
		if err := w.gzip.Flush(); err != nil {
			return err
		}
	}
	return w.file.Sync()
}

// Close flushes and closes the sink. It is safe on every exit path
// including failed captures.
func (w *Writer) Close() error {
	var firstErr error
	if err := w.buf.Flush(); err != nil {
		firstErr = err
	}
	if w.gzip != nil {
		if err := w.gzip.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if err := w.file.Sync(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := w.file.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

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

package scanner

import (
	"fmt"
)

// ErrChecksumMismatch returned when a frame candidate fails checksum
// validation. It is recoverable, the scanner has already dropped the sync
// bytes and resumed scanning.
type ErrChecksumMismatch struct {
	Offset uint64
	Class uint8
	ID uint8
}

func (e ErrChecksumMismatch) Error() string {
	return fmt.Sprintf("UBX checksum mismatch at offset %d (class 0x%02x id 0x%02x)", e.Offset, e.Class, e.ID)
}

// ErrTruncatedStream returned at end-of-stream when the buffer still holds
// the beginning of a frame whose remaining bytes never arrived
type ErrTruncatedStream struct {
	Offset uint64
	Buffered int
}

func (e ErrTruncatedStream) Error() string {
	return fmt.Sprintf("stream truncated mid-frame at offset %d, %d bytes buffered", e.Offset, e.Buffered)
}

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
	"encoding/binary"

	"jinr.ru/greenlab/go-ubx/pkg/layers"
	"jinr.ru/greenlab/go-ubx/pkg/log"
)

// Frame is a validated UBX frame extracted from the byte stream. Payload
// and Raw are copies, the frame stays valid after the scan buffer is reused.
type Frame struct {
	Class uint8
	ID uint8
	Payload []byte
	// Raw is the complete frame as it appeared on the wire including sync
	// bytes and checksum
	Raw []byte
	// Offset is the stream offset of the first sync byte
	Offset uint64
}

// ClassID returns the frame's lookup key in the message catalog
func (f *Frame) ClassID() layers.UBXClassID {
	return layers.ClassID(f.Class, f.ID)
}

// Stats aggregates the per-stream diagnostic counters
type Stats struct {
	Frames uint64 `json:"frames"`
	FrameBytes uint64 `json:"frameBytes"`
	ChecksumErrors uint64 `json:"checksumErrors"`
	Resyncs uint64 `json:"resyncs"`
	DiscardedBytes uint64 `json:"discardedBytes"`
}

// Scanner finds UBX frame boundaries in an unreliable byte stream. Bytes
// are appended with Consume and complete frames drained with Next. The
// scanner never fails on a short buffer, it suspends until more bytes
// arrive. Checksum failures and sync false positives drop the two sync
// bytes and rescan from the next byte so an overlapping real frame is not
// skipped.
type Scanner struct {
	buf []byte
	// offset is the stream offset of buf[0]
	offset uint64
	maxPayload int
	stats Stats
}

func NewScanner(maxPayloadSize int) *Scanner {
	if maxPayloadSize <= 0 || maxPayloadSize > layers.UBXMaxPayloadSize {
		maxPayloadSize = layers.UBXMaxPayloadSize
	}
	return &Scanner{
		maxPayload: maxPayloadSize,
	}
}

// Consume appends bytes from the stream to the scan buffer
func (s *Scanner) Consume(p []byte) {
	s.buf = append(s.buf, p...)
}

// Next returns the next validated frame. (nil, nil) means no complete
// frame is buffered and the caller should Consume more bytes. A returned
// *ErrChecksumMismatch is recoverable: the scanner has already
// resynchronized and the caller keeps draining.
func (s *Scanner) Next() (*Frame, error) {
	for {
		start := indexSync(s.buf)
		if start < 0 {
			// No sync pair. Keep a trailing first sync byte, its partner
			// may be in the next chunk.
			keep := 0
			if n := len(s.buf); n > 0 && s.buf[n-1] == layers.UBXSync1 {
				keep = 1
			}
			if dropped := len(s.buf) - keep; dropped > 0 {
				s.discard(dropped)
			}
			return nil, nil
		}
		if start > 0 {
			s.discard(start)
		}

		if len(s.buf) < layers.UBXHeaderSize {
			return nil, nil
		}

		payloadLen := int(binary.LittleEndian.Uint16(s.buf[4:6]))
		if payloadLen > s.maxPayload {
			// A declared length this large will never arrive. Treat the
			// sync match as a false positive instead of waiting forever.
			log.Warning("Implausible UBX payload length %d at offset %d, dropping sync", payloadLen, s.offset)
			s.stats.Resyncs++
			s.stats.DiscardedBytes += 2
			s.advance(2)
			continue
		}

		total := layers.UBXHeaderSize + payloadLen + layers.UBXChecksumSize
		if len(s.buf) < total {
			return nil, nil
		}

		ckA, ckB := layers.Checksum(s.buf[2 : total-2])
		if ckA != s.buf[total-2] || ckB != s.buf[total-1] {
			err := &ErrChecksumMismatch{
				Offset: s.offset,
				Class: s.buf[2],
				ID: s.buf[3],
			}
			s.stats.ChecksumErrors++
			s.stats.Resyncs++
			s.stats.DiscardedBytes += 2
			s.advance(2)
			return nil, err
		}

		frame := &Frame{
			Class: s.buf[2],
			ID: s.buf[3],
			Payload: append([]byte(nil), s.buf[layers.UBXHeaderSize:total-layers.UBXChecksumSize]...),
			Raw: append([]byte(nil), s.buf[:total]...),
			Offset: s.offset,
		}
		s.stats.Frames++
		s.stats.FrameBytes += uint64(total)
		s.advance(total)
		return frame, nil
	}
}

// Truncated reports an incomplete frame candidate left in the buffer. It
// is meant to be called once at end-of-stream.
func (s *Scanner) Truncated() *ErrTruncatedStream {
	start := indexSync(s.buf)
	if start < 0 {
		return nil
	}
	return &ErrTruncatedStream{
		Offset: s.offset + uint64(start),
		Buffered: len(s.buf) - start,
	}
}

// Buffered returns the number of bytes waiting in the scan buffer
func (s *Scanner) Buffered() int {
	return len(s.buf)
}

// Stats returns a copy of the diagnostic counters
func (s *Scanner) Stats() Stats {
	return s.stats
}

func (s *Scanner) advance(n int) {
	s.offset += uint64(n)
	s.buf = s.buf[n:]
}

func (s *Scanner) discard(n int) {
	log.Warning("Discarding %d bytes of garbage at offset %d", n, s.offset)
	s.stats.Resyncs++
	s.stats.DiscardedBytes += uint64(n)
	s.advance(n)
}

func indexSync(buf []byte) int {
	for i := 0; i+1 < len(buf); i++ {
		if buf[i] == layers.UBXSync1 && buf[i+1] == layers.UBXSync2 {
			return i
		}
	}
	return -1
}

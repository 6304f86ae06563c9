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
	"bytes"
	"testing"

	"jinr.ru/greenlab/go-ubx/pkg/layers"
)

func makeFrame(t *testing.T, class, id uint8, payload []byte) []byte {
	t.Helper()
	frame, err := layers.EncodeFrame(class, id, payload)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return frame
}

// drainAll keeps calling Next until the scanner suspends, ignoring
// recoverable diagnostics
func drainAll(t *testing.T, s *Scanner) []*Frame {
	t.Helper()
	var frames []*Frame
	for {
		frame, err := s.Next()
		if err != nil {
			if _, ok := err.(*ErrChecksumMismatch); !ok {
				t.Fatalf("unexpected error type: %v", err)
			}
			continue
		}
		if frame == nil {
			return frames
		}
		frames = append(frames, frame)
	}
}

func TestScanner_SingleFrame(t *testing.T) {
	payload := []byte{0x10, 0x20, 0x30}
	frame := makeFrame(t, layers.ClassNav, layers.IDNavStatus, payload)

	s := NewScanner(0)
	s.Consume(frame)
	frames := drainAll(t, s)
	if len(frames) != 1 {
		t.Fatalf("expected 1 frame, got %d", len(frames))
	}
	got := frames[0]
	if got.Class != layers.ClassNav || got.ID != layers.IDNavStatus {
		t.Fatalf("unexpected class/id 0x%02x 0x%02x", got.Class, got.ID)
	}
	if !bytes.Equal(got.Payload, payload) {
		t.Fatalf("payload mismatch: %x", got.Payload)
	}
	if !bytes.Equal(got.Raw, frame) {
		t.Fatalf("raw frame bytes mismatch")
	}
	if got.Offset != 0 {
		t.Fatalf("expected offset 0, got %d", got.Offset)
	}
	if s.Buffered() != 0 {
		t.Fatalf("expected empty buffer, %d bytes left", s.Buffered())
	}
}

func TestScanner_ChunkBoundaries(t *testing.T) {
	var stream []byte
	var want [][]byte
	for i := 0; i < 5; i++ {
		payload := bytes.Repeat([]byte{byte(i + 1)}, 4+i)
		frame := makeFrame(t, layers.ClassNav, layers.IDNavPosLLH, payload)
		stream = append(stream, frame...)
		want = append(want, payload)
	}

	// The frame sequence must survive any chunking of the byte stream
	for _, chunkSize := range []int{1, 2, 3, 5, 7, 16, len(stream)} {
		s := NewScanner(0)
		var frames []*Frame
		for start := 0; start < len(stream); start += chunkSize {
			end := start + chunkSize
			if end > len(stream) {
				end = len(stream)
			}
			s.Consume(stream[start:end])
			frames = append(frames, drainAll(t, s)...)
		}
		if len(frames) != len(want) {
			t.Fatalf("chunk size %d: expected %d frames, got %d", chunkSize, len(want), len(frames))
		}
		for i, frame := range frames {
			if !bytes.Equal(frame.Payload, want[i]) {
				t.Fatalf("chunk size %d: frame %d payload mismatch", chunkSize, i)
			}
		}
		if stats := s.Stats(); stats.Resyncs != 0 || stats.ChecksumErrors != 0 {
			t.Fatalf("chunk size %d: unexpected diagnostics %+v", chunkSize, stats)
		}
	}
}

func TestScanner_GarbageBetweenFrames(t *testing.T) {
	frame1 := makeFrame(t, layers.ClassNav, layers.IDNavStatus, []byte{0x01, 0x02})
	frame2 := makeFrame(t, layers.ClassNav, layers.IDNavStatus, []byte{0x03, 0x04})
	garbage := []byte{0x11, 0x22, 0x33, 0x44, 0x55, 0x66, 0x77}

	var stream []byte
	stream = append(stream, frame1...)
	stream = append(stream, garbage...)
	stream = append(stream, frame2...)

	s := NewScanner(0)
	s.Consume(stream)
	frames := drainAll(t, s)
	if len(frames) != 2 {
		t.Fatalf("expected exactly 2 frames, got %d", len(frames))
	}
	stats := s.Stats()
	if stats.Resyncs != 1 {
		t.Fatalf("expected exactly 1 resync, got %d", stats.Resyncs)
	}
	if stats.DiscardedBytes != uint64(len(garbage)) {
		t.Fatalf("expected %d discarded bytes, got %d", len(garbage), stats.DiscardedBytes)
	}
	if frames[1].Offset != uint64(len(frame1)+len(garbage)) {
		t.Fatalf("unexpected offset of second frame: %d", frames[1].Offset)
	}
}

func TestScanner_ChecksumMismatchResync(t *testing.T) {
	frame1 := makeFrame(t, layers.ClassNav, layers.IDNavStatus, []byte{0x01, 0x02, 0x03})
	corrupt := makeFrame(t, layers.ClassNav, layers.IDNavPosLLH, []byte{0x01, 0x02, 0x03, 0x04})
	corrupt[layers.UBXHeaderSize] ^= 0xFF
	frame2 := makeFrame(t, layers.ClassNav, layers.IDNavStatus, []byte{0x04, 0x05, 0x06})

	var stream []byte
	stream = append(stream, frame1...)
	stream = append(stream, corrupt...)
	stream = append(stream, frame2...)

	s := NewScanner(0)
	s.Consume(stream)

	first, err := s.Next()
	if err != nil || first == nil {
		t.Fatalf("expected first frame, got %v %v", first, err)
	}

	_, err = s.Next()
	mismatch, ok := err.(*ErrChecksumMismatch)
	if !ok {
		t.Fatalf("expected checksum mismatch, got %v", err)
	}
	if mismatch.Offset != uint64(len(frame1)) {
		t.Fatalf("mismatch reported at offset %d, want %d", mismatch.Offset, len(frame1))
	}

	frames := drainAll(t, s)
	if len(frames) != 1 {
		t.Fatalf("expected to recover 1 frame after mismatch, got %d", len(frames))
	}
	if !bytes.Equal(frames[0].Payload, []byte{0x04, 0x05, 0x06}) {
		t.Fatalf("recovered wrong frame: %x", frames[0].Payload)
	}
	stats := s.Stats()
	if stats.ChecksumErrors != 1 {
		t.Fatalf("expected 1 checksum error, got %d", stats.ChecksumErrors)
	}
	if stats.Frames != 2 {
		t.Fatalf("expected 2 validated frames, got %d", stats.Frames)
	}
}

func TestScanner_ImplausibleLengthIsFalsePositive(t *testing.T) {
	// Sync pair followed by a length no real message has. Waiting for that
	// payload would stall the stream forever.
	bogus := []byte{layers.UBXSync1, layers.UBXSync2, 0x01, 0x07, 0x00, 0x08} // declares 2048 bytes
	frame := makeFrame(t, layers.ClassAck, layers.IDAckAck, []byte{0x06, 0x01})

	s := NewScanner(1024)
	s.Consume(append(append([]byte{}, bogus...), frame...))
	frames := drainAll(t, s)
	if len(frames) != 1 {
		t.Fatalf("expected 1 frame, got %d", len(frames))
	}
	if frames[0].Class != layers.ClassAck {
		t.Fatalf("recovered wrong frame: class 0x%02x", frames[0].Class)
	}
	if stats := s.Stats(); stats.Resyncs == 0 {
		t.Fatalf("expected a resync diagnostic")
	}
}

func TestScanner_TruncatedFinalFrame(t *testing.T) {
	frame1 := makeFrame(t, layers.ClassNav, layers.IDNavStatus, []byte{0x01, 0x02, 0x03, 0x04})
	frame2 := makeFrame(t, layers.ClassNav, layers.IDNavStatus, []byte{0x05, 0x06, 0x07, 0x08})

	var stream []byte
	stream = append(stream, frame1...)
	stream = append(stream, frame2[:len(frame2)-5]...)

	s := NewScanner(0)
	s.Consume(stream)
	frames := drainAll(t, s)
	if len(frames) != 1 {
		t.Fatalf("expected 1 complete frame, got %d", len(frames))
	}
	truncated := s.Truncated()
	if truncated == nil {
		t.Fatalf("expected truncation diagnostic")
	}
	if truncated.Offset != uint64(len(frame1)) {
		t.Fatalf("truncation reported at offset %d, want %d", truncated.Offset, len(frame1))
	}
}

func TestScanner_NoTruncationAfterCleanStream(t *testing.T) {
	s := NewScanner(0)
	s.Consume(makeFrame(t, layers.ClassNav, layers.IDNavStatus, []byte{0x01}))
	drainAll(t, s)
	if truncated := s.Truncated(); truncated != nil {
		t.Fatalf("unexpected truncation diagnostic: %v", truncated)
	}
}

func TestScanner_SyncSplitAcrossChunks(t *testing.T) {
	garbage := []byte{0x42, 0x43, 0x44}
	frame := makeFrame(t, layers.ClassNav, layers.IDNavStatus, []byte{0x09})

	s := NewScanner(0)
	// First chunk ends on the first sync byte, its partner arrives later
	s.Consume(append(append([]byte{}, garbage...), frame[0]))
	if frames := drainAll(t, s); len(frames) != 0 {
		t.Fatalf("expected no frames yet")
	}
	s.Consume(frame[1:])
	frames := drainAll(t, s)
	if len(frames) != 1 {
		t.Fatalf("expected 1 frame, got %d", len(frames))
	}
	if frames[0].Offset != uint64(len(garbage)) {
		t.Fatalf("unexpected frame offset %d", frames[0].Offset)
	}
}

func TestScanner_PayloadCopyIndependentOfBuffer(t *testing.T) {
	frame := makeFrame(t, layers.ClassNav, layers.IDNavStatus, []byte{0xAA, 0xBB})
	s := NewScanner(0)
	s.Consume(frame)
	got := drainAll(t, s)[0]
	payload := append([]byte(nil), got.Payload...)
	// Reusing the scanner must not corrupt previously returned frames
	s.Consume(makeFrame(t, layers.ClassNav, layers.IDNavStatus, []byte{0xCC, 0xDD}))
	drainAll(t, s)
	if !bytes.Equal(got.Payload, payload) {
		t.Fatalf("payload mutated after buffer reuse")
	}
}

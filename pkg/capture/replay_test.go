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
	"bytes"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/gopacket"

	"jinr.ru/greenlab/go-ubx/pkg/config"
	"jinr.ru/greenlab/go-ubx/pkg/layers"
	"jinr.ru/greenlab/go-ubx/pkg/scanner"
)

// countingHandler records the class/id sequence it was handed
type countingHandler struct {
	classIDs []layers.UBXClassID
	offsets []uint64
}

func (h *countingHandler) Handle(frame *scanner.Frame, packet gopacket.Packet) {
	h.classIDs = append(h.classIDs, frame.ClassID())
	h.offsets = append(h.offsets, frame.Offset)
}

func captureFrame(t *testing.T, class, id uint8, payload []byte) []byte {
	t.Helper()
	frame, err := layers.EncodeFrame(class, id, payload)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return frame
}

func captureStream(t *testing.T) ([]byte, []layers.UBXClassID) {
	t.Helper()
	var stream []byte
	var want []layers.UBXClassID
	messages := []struct {
		class uint8
		id uint8
		payload []byte
	}{
		{layers.ClassNav, layers.IDNavStatus, make([]byte, layers.NavStatusSize)},
		{layers.ClassNav, layers.IDNavPosLLH, make([]byte, layers.NavPosLLHSize)},
		{layers.ClassAck, layers.IDAckAck, []byte{layers.ClassCfg, layers.IDCfgMsg}},
		{layers.ClassNav, layers.IDNavStatus, make([]byte, layers.NavStatusSize)},
	}
	for _, m := range messages {
		stream = append(stream, captureFrame(t, m.class, m.id, m.payload)...)
		want = append(want, layers.ClassID(m.class, m.id))
	}
	return stream, want
}

func writeCapture(t *testing.T, path string, stream []byte) {
	t.Helper()
	w, err := NewWriter(path)
	if err != nil {
		t.Fatalf("open writer: %v", err)
	}
	if _, err := w.Write(stream); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestReplay_PlainAndGzipDecodeIdentically(t *testing.T) {
	dir := t.TempDir()
	stream, want := captureStream(t)
	cfg := config.NewDefaultConfig()

	for _, name := range []string{"capture.ubx", "capture.ubx.gz"} {
		path := filepath.Join(dir, name)
		writeCapture(t, path, stream)

		handler := &countingHandler{}
		replay := NewReplay(cfg, path, handler)
		if err := replay.Run(); err != nil {
			t.Fatalf("%s: run: %v", name, err)
		}
		if replay.Messages() != uint64(len(want)) {
			t.Fatalf("%s: expected %d messages, got %d", name, len(want), replay.Messages())
		}
		for i, classID := range handler.classIDs {
			if classID != want[i] {
				t.Fatalf("%s: message %d is 0x%04x, want 0x%04x", name, i, uint16(classID), uint16(want[i]))
			}
		}
		for i := 1; i < len(handler.offsets); i++ {
			if handler.offsets[i] <= handler.offsets[i-1] {
				t.Fatalf("%s: offsets not increasing: %v", name, handler.offsets)
			}
		}
	}
}

func TestReplay_TruncatedCaptureKeepsCompleteFrames(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture.ubx")
	stream, want := captureStream(t)
	// Cut into the final frame, as a crashed recorder would leave it
	if err := ioutil.WriteFile(path, stream[:len(stream)-5], 0644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	handler := &countingHandler{}
	replay := NewReplay(config.NewDefaultConfig(), path, handler)
	if err := replay.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}
	if replay.Messages() != uint64(len(want)-1) {
		t.Fatalf("expected %d messages, got %d", len(want)-1, replay.Messages())
	}
}

func TestReplay_TruncatedGzipKeepsFlushedFrames(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture.ubx.gz")
	stream, want := captureStream(t)

	w, err := NewWriter(path)
	if err != nil {
		t.Fatalf("open writer: %v", err)
	}
	if _, err := w.Write(stream); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	flushed := info.Size()
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	// Drop the trailer, as a crashed recorder would
	if err := os.Truncate(path, flushed); err != nil {
		t.Fatalf("truncate: %v", err)
	}

	handler := &countingHandler{}
	replay := NewReplay(config.NewDefaultConfig(), path, handler)
	if err := replay.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}
	if replay.Messages() != uint64(len(want)) {
		t.Fatalf("expected %d messages, got %d", len(want), replay.Messages())
	}
}

func TestReplay_MissingSourceIsFatal(t *testing.T) {
	replay := NewReplay(config.NewDefaultConfig(), filepath.Join(t.TempDir(), "nope.ubx"), &countingHandler{})
	if err := replay.Run(); err == nil {
		t.Fatalf("expected error for missing source")
	}
}

func TestReplay_GarbageOnlySourceDecodesNothing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "noise.ubx")
	if err := ioutil.WriteFile(path, bytes.Repeat([]byte{0x55}, 300), 0644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	replay := NewReplay(config.NewDefaultConfig(), path, &countingHandler{})
	if err := replay.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}
	if replay.Messages() != 0 {
		t.Fatalf("expected no messages, got %d", replay.Messages())
	}
}

func TestPrinter_WritesHeaderPerMessage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture.ubx")
	stream, want := captureStream(t)
	writeCapture(t, path, stream)

	var out bytes.Buffer
	replay := NewReplay(config.NewDefaultConfig(), path, &Printer{Out: &out})
	if err := replay.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}
	if bytes.Count(out.Bytes(), []byte("class 0x")) != len(want) {
		t.Fatalf("expected %d header lines, got output:\n%s", len(want), out.String())
	}
}

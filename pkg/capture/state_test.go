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
	"strings"
	"testing"

	"jinr.ru/greenlab/go-ubx/pkg/config"
	"jinr.ru/greenlab/go-ubx/pkg/scanner"
)

func TestSessionState_PutList(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	cfg := config.NewDefaultConfig()

	state, err := NewSessionState(cfg)
	if err != nil {
		t.Fatalf("open session state: %v", err)
	}
	defer state.Close()

	records := []*SessionRecord{
		{
			Device: "/dev/ttyACM0",
			Output: "a.ubx.gz",
			Started: "2024-07-15T12:00:00Z",
			Finished: "2024-07-15T12:05:00Z",
			State: StateClosed,
			BytesRead: 12345,
			Stats: scanner.Stats{Frames: 100, ChecksumErrors: 1},
		},
		{
			Device: "/dev/ttyUSB1",
			Output: "b.ubx",
			Started: "2024-07-15T13:00:00Z",
			Finished: "2024-07-15T13:01:00Z",
			State: StateFailed,
			BytesRead: 42,
		},
	}
	for _, record := range records {
		if err := state.Put(record); err != nil {
			t.Fatalf("put: %v", err)
		}
	}

	got, err := state.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != len(records) {
		t.Fatalf("expected %d records, got %d", len(records), len(got))
	}
	// bbolt iterates keys in byte order, the start timestamp keys sort
	// chronologically
	for i, record := range got {
		if record.Started != records[i].Started {
			t.Fatalf("record %d out of order: %s", i, record.Started)
		}
	}
	if got[0].Frames != 100 || got[0].ChecksumErrors != 1 {
		t.Fatalf("stats do not round-trip: %+v", got[0].Stats)
	}
	if got[1].State != StateFailed {
		t.Fatalf("state does not round-trip: %s", got[1].State)
	}
}

func TestSessionState_PutOverwritesSameKey(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	state, err := NewSessionState(config.NewDefaultConfig())
	if err != nil {
		t.Fatalf("open session state: %v", err)
	}
	defer state.Close()

	record := &SessionRecord{Started: "2024-07-15T12:00:00Z", State: StateCapturing}
	if err := state.Put(record); err != nil {
		t.Fatalf("put: %v", err)
	}
	record.State = StateClosed
	if err := state.Put(record); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, err := state.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 record, got %d", len(got))
	}
	if got[0].State != StateClosed {
		t.Fatalf("expected final state, got %s", got[0].State)
	}
}

func TestSessionRecord_String(t *testing.T) {
	record := &SessionRecord{
		Device: "/dev/ttyACM0",
		Started: "2024-07-15T12:00:00Z",
		State: StateClosed,
	}
	s := record.String()
	if !strings.Contains(s, "/dev/ttyACM0") || !strings.Contains(s, string(StateClosed)) {
		t.Fatalf("unexpected rendering:\n%s", s)
	}
}

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
	"os"
	"path/filepath"

	"go.etcd.io/bbolt"
	"sigs.k8s.io/yaml"

	"jinr.ru/greenlab/go-ubx/pkg/config"
	"jinr.ru/greenlab/go-ubx/pkg/scanner"
)

const (
	SessionsBucket = "sessions"
)

// SessionRecord is the persisted summary of one capture run, keyed by its
// start timestamp
type SessionRecord struct {
	Device string `json:"device"`
	Output string `json:"output"`
	Started string `json:"started"`
	Finished string `json:"finished"`
	State State `json:"state"`
	BytesRead uint64 `json:"bytesRead"`
	scanner.Stats
}

func (r *SessionRecord) String() string {
	data, err := yaml.Marshal(r)
	if err != nil {
		return ""
	}
	return string(data)
}

// SessionState keeps capture session records in a bbolt database under the
// config directory
type SessionState struct {
	DB *bbolt.DB
}

func NewSessionState(cfg *config.Config) (*SessionState, error) {
	path := cfg.SessionDBPath()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, err
	}
	if err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(SessionsBucket))
		return err
	}); err != nil {
		db.Close()
		return nil, err
	}
	return &SessionState{
		DB: db,
	}, nil
}

func (s *SessionState) Close() {
	s.DB.Close()
}

// Put stores a session record keyed by its start timestamp
func (s *SessionState) Put(record *SessionRecord) error {
	data, err := yaml.Marshal(record)
	if err != nil {
		return err
	}
	return s.DB.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(SessionsBucket))
		return b.Put([]byte(record.Started), data)
	})
}

// List returns all stored session records in key order
func (s *SessionState) List() ([]*SessionRecord, error) {
	var records []*SessionRecord
	if err := s.DB.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(SessionsBucket))
		return b.ForEach(func(k, v []byte) error {
			record := &SessionRecord{}
			if err := yaml.Unmarshal(v, record); err != nil {
				return err
			}
			records = append(records, record)
			return nil
		})
	}); err != nil {
		return nil, err
	}
	return records, nil
}

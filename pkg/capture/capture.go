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
	"context"
	"fmt"
	"sync"
	"time"

	"jinr.ru/greenlab/go-ubx/pkg/config"
	"jinr.ru/greenlab/go-ubx/pkg/device"
	"jinr.ru/greenlab/go-ubx/pkg/layers"
	"jinr.ru/greenlab/go-ubx/pkg/log"
	"jinr.ru/greenlab/go-ubx/pkg/scanner"
)

const (
	// ReadChunkSize is the size of a single serial read
	ReadChunkSize = 2048
	// AckTimeout bounds the wait for an ACK-ACK after a CFG message
	AckTimeout = 3 * time.Second
)

// State of the capture loop
type State string

const (
	StateIdle State = "idle"
	StateCapturing State = "capturing"
	StateStopping State = "stopping"
	StateFailed State = "failed"
	StateClosed State = "closed"
)

// Status is the live view of a capture exposed by the API server
type Status struct {
	State State `json:"state"`
	Device string `json:"device"`
	Output string `json:"output"`
	Started string `json:"started,omitempty"`
	BytesRead uint64 `json:"bytesRead"`
	scanner.Stats
}

// Server drives the capture pipeline: read from the serial device, scan
// for frames, write validated frame bytes verbatim to the sink in arrival
// order. A single goroutine owns the device, the scanner and the writer,
// the only shared state is the status snapshot guarded by the mutex.
type Server struct {
	context.Context
	*config.Config
	cancel context.CancelFunc
	api *ApiServer

	device *device.Device
	writer *Writer
	scanner *scanner.Scanner

	mu sync.Mutex
	status Status

	// wmu serializes sink access between the capture loop and the API
	// flush handler
	wmu sync.Mutex
}

func NewServer(ctx context.Context, cfg *config.Config) *Server {
	ctx, cancel := context.WithCancel(ctx)
	s := &Server{
		Context: ctx,
		Config: cfg,
		cancel: cancel,
		scanner: scanner.NewScanner(cfg.MaxPayloadSize),
		status: Status{
			State: StateIdle,
			Device: cfg.Device,
			Output: cfg.Output,
		},
	}
	s.api = NewApiServer(cfg, s)
	return s
}

// Stop requests a clean shutdown. It is observed at the top of the next
// loop iteration, never mid-frame.
func (s *Server) Stop() {
	s.cancel()
}

// Status returns a snapshot of the capture state and counters
func (s *Server) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *Server) setState(state State) {
	s.mu.Lock()
	s.status.State = state
	s.mu.Unlock()
	log.Debug("Capture state: %s", state)
}

func (s *Server) updateStatus(bytesRead int) {
	s.mu.Lock()
	s.status.BytesRead += uint64(bytesRead)
	s.status.Stats = s.scanner.Stats()
	s.mu.Unlock()
}

// Run captures frames until the context is cancelled or the device is
// lost. The sink is flushed and closed on every exit path.
func (s *Server) Run() error {
	dev, err := device.Open(s.SerialConfig)
	if err != nil {
		return err
	}
	s.device = dev
	defer dev.Close()

	writer, err := NewWriter(s.Output)
	if err != nil {
		return err
	}
	s.writer = writer

	state, err := NewSessionState(s.Config)
	if err != nil {
		return err
	}
	defer state.Close()

	go func() {
		if err := s.api.Run(); err != nil {
			log.Error("API server stopped: %s", err)
		}
	}()

	started := time.Now()
	s.mu.Lock()
	s.status.Started = started.UTC().Format(time.RFC3339)
	s.mu.Unlock()

	if s.CaptureConfig.Configure {
		s.configureReceiver()
	}

	s.setState(StateCapturing)
	log.Info("Capturing from %s to %s", s.Device, s.Output)

	buf := make([]byte, ReadChunkSize)
	var runErr error

loop:
	for {
		select {
		case <-s.Done():
			s.setState(StateStopping)
			break loop
		default:
		}

		n, err := s.device.Read(buf)
		if err != nil {
			log.Error("Device read failed: %s", err)
			s.setState(StateFailed)
			runErr = ErrSourceUnavailable{Device: dev.Path(), Err: err}
			break loop
		}
		if n == 0 {
			// Bounded-wait timeout, loop around and re-check the stop flag
			continue
		}

		s.scanner.Consume(buf[:n])
		if err := s.drain(); err != nil {
			log.Error("Sink write failed: %s", err)
			s.setState(StateFailed)
			runErr = err
			break loop
		}
		s.updateStatus(n)
	}

	// Best-effort flush even after a failure
	s.wmu.Lock()
	closeErr := s.writer.Close()
	s.writer = nil
	s.wmu.Unlock()
	if err := closeErr; err != nil {
		log.Error("Error while closing capture file: %s", err)
		if runErr == nil {
			runErr = ErrSinkUnavailable{Path: s.Output, Err: err}
		}
	}

	status := s.Status()
	record := &SessionRecord{
		Device: s.Device,
		Output: s.Output,
		Started: status.Started,
		Finished: time.Now().UTC().Format(time.RFC3339),
		State: status.State,
		BytesRead: status.BytesRead,
		Stats: status.Stats,
	}
	if err := state.Put(record); err != nil {
		log.Warning("Could not persist capture session record: %s", err)
	}

	s.setState(StateClosed)
	stats := s.scanner.Stats()
	log.Info("Capture finished: %d frames, %d bytes, %d checksum errors, %d bytes discarded",
		stats.Frames, stats.FrameBytes, stats.ChecksumErrors, stats.DiscardedBytes)
	return runErr
}

// drain writes every complete frame the scanner can currently produce to
// the sink. Checksum mismatches are counted and logged, never fatal.
func (s *Server) drain() error {
	for {
		frame, err := s.scanner.Next()
		if err != nil {
			log.Warning("%s", err)
			continue
		}
		if frame == nil {
			return nil
		}
		if err := s.writeFrame(frame.Raw); err != nil {
			return err
		}
	}
}

func (s *Server) writeFrame(raw []byte) error {
	s.wmu.Lock()
	defer s.wmu.Unlock()
	if _, err := s.writer.Write(raw); err != nil {
		return ErrSinkUnavailable{Path: s.Output, Err: err}
	}
	return nil
}

// flush is called by the API server to push buffered frames to disk while
// the capture keeps running
func (s *Server) flush() error {
	s.wmu.Lock()
	defer s.wmu.Unlock()
	if s.writer == nil {
		return fmt.Errorf("capture not running")
	}
	return s.writer.Flush()
}

// configureReceiver puts UART1 into UBX-only 8N1 mode at the configured
// baud rate, enables NAV-PVT output on all serial ports and polls MON-VER
// so the capture starts with a version report. Failures are logged but
// never stop the capture, the receiver may simply already be configured.
func (s *Server) configureReceiver() {
	log.Info("Configuring UART1: %d baud, UBX in/out", s.Baud)
	if err := s.device.ConfigureUart(layers.PortIDUart1, uint32(s.Baud)); err != nil {
		log.Warning("Could not send CFG-PRT: %s", err)
		return
	}
	if err := s.waitForAck(layers.ClassCfg, layers.IDCfgPrt); err != nil {
		log.Warning("No acknowledgement for CFG-PRT: %s", err)
	}

	log.Info("Enabling NAV-PVT on UART1, UART2 and USB")
	if err := s.device.EnableMessageAllSerial(layers.ClassNav, layers.IDNavPvt); err != nil {
		log.Warning("Could not send CFG-MSG: %s", err)
		return
	}
	if err := s.waitForAck(layers.ClassCfg, layers.IDCfgMsg); err != nil {
		log.Warning("No acknowledgement for CFG-MSG: %s", err)
	}
	if err := s.device.Poll(layers.ClassMon, layers.IDMonVer); err != nil {
		log.Warning("Could not poll MON-VER: %s", err)
	}
}

// waitForAck reads frames until the receiver acknowledges the given CFG
// message or the timeout expires. Frames seen while waiting are already
// part of the capture and go to the sink in arrival order.
func (s *Server) waitForAck(class, id uint8) error {
	deadline := time.Now().Add(AckTimeout)
	buf := make([]byte, ReadChunkSize)
	for time.Now().Before(deadline) {
		n, err := s.device.Read(buf)
		if err != nil {
			return err
		}
		if n == 0 {
			continue
		}
		s.scanner.Consume(buf[:n])
		for {
			frame, err := s.scanner.Next()
			if err != nil {
				log.Warning("%s", err)
				continue
			}
			if frame == nil {
				break
			}
			if werr := s.writeFrame(frame.Raw); werr != nil {
				return werr
			}
			if frame.ClassID() == layers.ClassIDAckAck && len(frame.Payload) >= layers.AckSize &&
				frame.Payload[0] == class && frame.Payload[1] == id {
				return nil
			}
		}
		s.updateStatus(n)
	}
	return fmt.Errorf("timed out after %s", AckTimeout)
}

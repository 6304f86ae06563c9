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
	"errors"
	"fmt"
	"io"

	"github.com/google/gopacket"

	"jinr.ru/greenlab/go-ubx/pkg/config"
	"jinr.ru/greenlab/go-ubx/pkg/layers"
	"jinr.ru/greenlab/go-ubx/pkg/log"
	"jinr.ru/greenlab/go-ubx/pkg/scanner"
)

// Handler consumes decoded messages in stream order
type Handler interface {
	Handle(frame *scanner.Frame, packet gopacket.Packet)
}

// Printer writes one block per message: a header line with the stream
// offset and message name, then the decoded body
type Printer struct {
	Out io.Writer
}

func (p *Printer) Handle(frame *scanner.Frame, packet gopacket.Packet) {
	fmt.Fprintf(p.Out, "%d: %s (class 0x%02x id 0x%02x len %d)\n",
		frame.Offset, frame.ClassID(), frame.Class, frame.ID, len(frame.Payload))
	for _, layer := range packet.Layers() {
		if layer.LayerType() == layers.UBXLayerType {
			continue
		}
		if str, ok := layer.(fmt.Stringer); ok {
			fmt.Fprintln(p.Out, str.String())
		}
	}
}

// Replay runs the reader pipeline: pull the stored source through the
// scanner, decode every validated frame and hand it to the handler. Frame
// level errors never abort the replay, only a source that cannot be opened
// is fatal.
type Replay struct {
	*config.Config
	path string
	handler Handler
	scanner *scanner.Scanner
	messages uint64
}

func NewReplay(cfg *config.Config, path string, handler Handler) *Replay {
	return &Replay{
		Config: cfg,
		path: path,
		handler: handler,
		scanner: scanner.NewScanner(cfg.MaxPayloadSize),
	}
}

// Messages returns the number of decoded messages delivered to the handler
func (r *Replay) Messages() uint64 {
	return r.messages
}

func (r *Replay) Run() error {
	reader, err := NewReader(r.path)
	if err != nil {
		return err
	}
	defer reader.Close()

	buf := make([]byte, ReadChunkSize)
	for {
		n, err := reader.Read(buf)
		if n > 0 {
			r.scanner.Consume(buf[:n])
			r.drain()
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			if errors.Is(err, io.ErrUnexpectedEOF) {
				// A cut-off compressed stream is the same condition as a
				// cut-off frame: report, keep what was decoded.
				log.Warning("Compressed stream cut off mid-member: %s", err)
				break
			}
			return ErrSourceUnavailable{Device: r.path, Err: err}
		}
	}

	if truncated := r.scanner.Truncated(); truncated != nil {
		log.Warning("%s", truncated)
	}

	stats := r.scanner.Stats()
	log.Info("Replay finished: %d messages, %d checksum errors, %d resyncs, %d bytes discarded",
		r.messages, stats.ChecksumErrors, stats.Resyncs, stats.DiscardedBytes)
	return nil
}

func (r *Replay) drain() {
	for {
		frame, err := r.scanner.Next()
		if err != nil {
			log.Warning("%s", err)
			continue
		}
		if frame == nil {
			return
		}
		packet := gopacket.NewPacket(frame.Raw, layers.UBXLayerType, gopacket.NoCopy)
		r.messages++
		r.handler.Handle(frame, packet)
	}
}

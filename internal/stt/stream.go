// SPDX-License-Identifier: AGPL-3.0
// Copyright 2025 Kadir Pekel
//
// Licensed under the GNU Affero General Public License v3.0 (AGPL-3.0) (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.gnu.org/licenses/agpl-3.0.en.html
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package stt

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ConnState is the stream's reconnection state machine position.
type ConnState int

const (
	StateConnected ConnState = iota
	StateReconnecting
	StateFailed
	StateTerminal
)

// Stream drives one call's full-duplex STT session: PCM framing out,
// transcript/VAD demultiplexing in, and bounded reconnection.
type Stream struct {
	pool   *Pool
	cfg    StreamConfig
	logger *slog.Logger

	mu       sync.Mutex
	conn     *websocket.Conn
	state    ConnState
	attempts int
	isClosed bool

	Transcripts chan TranscriptEvent
	VADEvents   chan VADEvent
	Errors      chan error

	sessionDeadline time.Time
}

// NewStream acquires a connection from pool and starts the inbound
// demultiplexing loop.
func NewStream(ctx context.Context, pool *Pool, cfg StreamConfig, logger *slog.Logger) (*Stream, error) {
	if logger == nil {
		logger = slog.Default()
	}
	conn, err := pool.Get(ctx, cfg)
	if err != nil {
		return nil, err
	}

	s := &Stream{
		pool:            pool,
		cfg:             cfg,
		logger:          logger,
		conn:            conn,
		state:           StateConnected,
		Transcripts:     make(chan TranscriptEvent, 16),
		VADEvents:       make(chan VADEvent, 16),
		Errors:          make(chan error, 4),
		sessionDeadline: time.Now().Add(maxSessionDuration),
	}

	go s.readLoop(ctx)
	return s, nil
}

// SendAudio consumes samples from the caller, buffering and framing at
// CHUNK_DURATION_MS boundaries, and pauses (without dropping) while
// reconnecting.
func (s *Stream) SendAudio(ctx context.Context, frame AudioFrame) error {
	chunkSize := samplesPerChunk(s.cfg.SampleRate)

	for offset := 0; offset < len(frame.Samples); {
		for s.currentState() == StateReconnecting {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(pauseSleep):
			}
		}
		if s.currentState() == StateTerminal || s.currentState() == StateFailed {
			return nil
		}

		end := offset + chunkSize
		if end > len(frame.Samples) {
			end = len(frame.Samples)
		}
		payload, err := encodeAudioFrame(frame.Samples[offset:end], s.cfg.SampleRate)
		if err != nil {
			return err
		}

		s.mu.Lock()
		conn := s.conn
		s.mu.Unlock()
		if conn != nil {
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				s.handleWriteError(ctx, err)
			}
		}
		offset = end
	}
	return nil
}

func (s *Stream) currentState() ConnState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Stream) handleWriteError(ctx context.Context, err error) {
	s.mu.Lock()
	if s.isClosed {
		s.state = StateTerminal
		s.mu.Unlock()
		return
	}
	s.state = StateReconnecting
	s.mu.Unlock()

	go s.reconnectLoop(ctx)
}

func (s *Stream) reconnectLoop(ctx context.Context) {
	for {
		s.mu.Lock()
		if s.isClosed {
			s.state = StateTerminal
			s.mu.Unlock()
			return
		}
		attempts := s.attempts
		s.mu.Unlock()

		if attempts >= maxReconnectAttempts {
			s.mu.Lock()
			s.state = StateFailed
			s.mu.Unlock()
			s.Errors <- errReconnectExhausted{attempts: attempts}
			return
		}

		time.Sleep(reconnectDelay)

		conn, err := s.pool.connect(ctx, s.cfg)
		if err != nil {
			s.mu.Lock()
			s.attempts++
			s.mu.Unlock()
			continue
		}

		s.mu.Lock()
		s.conn = conn
		s.state = StateConnected
		s.attempts = 0
		s.mu.Unlock()
		go s.readLoop(ctx)
		return
	}
}

func (s *Stream) readLoop(ctx context.Context) {
	for {
		s.mu.Lock()
		conn := s.conn
		closed := s.isClosed
		s.mu.Unlock()
		if closed || conn == nil {
			return
		}

		_, raw, err := conn.ReadMessage()
		if err != nil {
			s.onReadError(ctx, err)
			return
		}

		var msg inboundMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			continue
		}

		switch msg.Type {
		case "data":
			var d inboundData
			if json.Unmarshal(msg.Data, &d) == nil {
				s.Transcripts <- TranscriptEvent{Transcript: d.Transcript, SpeechStartMs: d.SpeechStart, SpeechEndMs: d.SpeechEnd}
			}
		case "events":
			var e inboundEvent
			if json.Unmarshal(msg.Data, &e) == nil {
				s.VADEvents <- VADEvent{Signal: mapVADSignal(e.SignalType)}
			}
		case "error":
			var e inboundError
			if json.Unmarshal(msg.Data, &e) == nil {
				s.logger.Warn("stt: vendor error", "message", e.Message)
			}
		}
	}
}

func mapVADSignal(signalType string) VADSignal {
	switch signalType {
	case "START_SPEECH":
		return StartOfSpeech
	case "END_SPEECH":
		return EndOfSpeech
	default:
		return VADSignal(signalType)
	}
}

// onReadError implements the Connected->Reconnecting/Terminal
// transition: an unexpected close
// (1006) reconnects, a clean close (1000) or an already-closed stream
// is terminal.
func (s *Stream) onReadError(ctx context.Context, err error) {
	s.mu.Lock()
	if s.isClosed {
		s.state = StateTerminal
		s.mu.Unlock()
		return
	}
	clean := websocket.IsCloseError(err, websocket.CloseNormalClosure)
	s.mu.Unlock()

	if clean {
		s.mu.Lock()
		s.state = StateTerminal
		s.mu.Unlock()
		return
	}

	s.mu.Lock()
	s.state = StateReconnecting
	s.mu.Unlock()
	go s.reconnectLoop(ctx)
}

// Close idempotently terminates the stream: no further reconnection is
// attempted after Close.
func (s *Stream) Close() error {
	s.mu.Lock()
	if s.isClosed {
		s.mu.Unlock()
		return nil
	}
	s.isClosed = true
	s.state = StateTerminal
	conn := s.conn
	s.mu.Unlock()

	if conn == nil {
		return nil
	}
	if frame, err := endOfStreamFrame(); err == nil {
		_ = conn.WriteMessage(websocket.TextMessage, frame)
	}
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	return s.pool.Close(conn)
}

type errReconnectExhausted struct{ attempts int }

func (e errReconnectExhausted) Error() string {
	return "stt: reconnection failed after exhausting all attempts"
}

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

// Package stt implements C10: a full-duplex WebSocket client for a
// streaming speech-to-text vendor, with a connection pool keyed by
// (apiKey, language, model), PCM framing, and a bounded reconnection
// state machine.
//
// The WebSocket transport uses gorilla/websocket. The wire protocol
// (base64 PCM frames, data/events/error message discrimination) is
// vendor-specific; framing and reconnect state machine follow the
// module's own connection-pool conventions rather than any single
// upstream vendor's SDK.
package stt

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	chunkDurationMS    = 100
	maxSessionDuration = 300 * time.Second
	connectTimeout     = 10 * time.Second
	reconnectDelay     = 1 * time.Second
	maxReconnectAttempts = 3
	pauseSleep         = 100 * time.Millisecond
)

// VADSignal is a voice-activity-detection event.
type VADSignal string

const (
	StartOfSpeech VADSignal = "START_OF_SPEECH"
	EndOfSpeech   VADSignal = "END_OF_SPEECH"
)

// AudioFrame is one slice of caller PCM16 audio.
type AudioFrame struct {
	Samples []int16
}

// TranscriptEvent is a final transcript from the vendor.
type TranscriptEvent struct {
	Transcript string
	SpeechStartMs int64
	SpeechEndMs   int64
}

// VADEvent is a demultiplexed voice-activity event.
type VADEvent struct {
	Signal VADSignal
}

// StreamConfig parameterizes a single call's STT stream.
type StreamConfig struct {
	APIKey             string
	LanguageCode       string
	Model              string
	SampleRate         int
	VADSignals         bool
	HighVADSensitivity bool
}

func (c StreamConfig) poolKey() string {
	return c.APIKey + "|" + c.LanguageCode + "|" + c.Model
}

// Pool manages one set of idle WebSocket connections per
// (apiKey, language, model) key.
type Pool struct {
	baseURL string
	dialer  *websocket.Dialer
	logger  *slog.Logger

	mu   sync.Mutex
	idle map[string][]*websocket.Conn
}

// NewPool builds a Pool dialing baseURL for every connection.
func NewPool(baseURL string, logger *slog.Logger) *Pool {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pool{
		baseURL: baseURL,
		dialer:  &websocket.Dialer{HandshakeTimeout: connectTimeout},
		logger:  logger,
		idle:    make(map[string][]*websocket.Conn),
	}
}

// Prewarm eagerly opens n idle connections for cfg's pool key.
func (p *Pool) Prewarm(ctx context.Context, cfg StreamConfig, n int) error {
	for i := 0; i < n; i++ {
		conn, err := p.connect(ctx, cfg)
		if err != nil {
			return err
		}
		key := cfg.poolKey()
		p.mu.Lock()
		p.idle[key] = append(p.idle[key], conn)
		p.mu.Unlock()
	}
	return nil
}

// Get acquires a WebSocket for cfg, reusing an idle connection if one
// exists, else dialing a new one.
func (p *Pool) Get(ctx context.Context, cfg StreamConfig) (*websocket.Conn, error) {
	key := cfg.poolKey()
	p.mu.Lock()
	if conns := p.idle[key]; len(conns) > 0 {
		conn := conns[len(conns)-1]
		p.idle[key] = conns[:len(conns)-1]
		p.mu.Unlock()
		return conn, nil
	}
	p.mu.Unlock()

	return p.connect(ctx, cfg)
}

// Close closes ws. Pool-returned connections are never reused past a
// session boundary; the vendor expects one handshake per call.
func (p *Pool) Close(ws *websocket.Conn) error {
	return ws.Close()
}

func (p *Pool) connect(ctx context.Context, cfg StreamConfig) (*websocket.Conn, error) {
	u, err := url.Parse(p.baseURL)
	if err != nil {
		return nil, fmt.Errorf("stt: invalid base url: %w", err)
	}
	q := u.Query()
	q.Set("language-code", cfg.LanguageCode)
	q.Set("model", cfg.Model)
	q.Set("vad_signals", strconv.FormatBool(cfg.VADSignals))
	q.Set("sample_rate", strconv.Itoa(cfg.SampleRate))
	q.Set("high_vad_sensitivity", strconv.FormatBool(cfg.HighVADSensitivity))
	u.RawQuery = q.Encode()

	header := http.Header{}
	header.Set("api-subscription-key", cfg.APIKey)

	dialCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	conn, _, err := p.dialer.DialContext(dialCtx, u.String(), header)
	if err != nil {
		return nil, fmt.Errorf("stt: dial: %w", err)
	}
	return conn, nil
}

// audioMessage is the outbound wire frame; Type is omitted (empty
// string marshals as absent via json tag) for regular audio chunks and
// set to "end_of_stream" for the terminal frame.
type audioMessage struct {
	Type  string      `json:"type,omitempty"`
	Audio *audioBody  `json:"audio,omitempty"`
}

type audioBody struct {
	Data       string `json:"data"`
	Encoding   string `json:"encoding"`
	SampleRate int    `json:"sample_rate"`
}

type inboundMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type inboundData struct {
	Transcript  string `json:"transcript"`
	SpeechStart int64  `json:"speech_start"`
	SpeechEnd   int64  `json:"speech_end"`
}

type inboundEvent struct {
	SignalType string `json:"signal_type"`
}

type inboundError struct {
	Message string `json:"message"`
}

func encodeAudioFrame(samples []int16, sampleRate int) ([]byte, error) {
	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		buf[2*i] = byte(s)
		buf[2*i+1] = byte(s >> 8)
	}
	msg := audioMessage{Audio: &audioBody{
		Data:       base64.StdEncoding.EncodeToString(buf),
		Encoding:   "audio/wav",
		SampleRate: sampleRate,
	}}
	return json.Marshal(msg)
}

func endOfStreamFrame() ([]byte, error) {
	return json.Marshal(audioMessage{Type: "end_of_stream"})
}

func samplesPerChunk(sampleRate int) int {
	return int(float64(sampleRate) * (chunkDurationMS / 1000.0))
}

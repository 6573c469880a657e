/*
 *
 * Copyright 2025 the Virtual Audio Bridge authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package server exposes the user-space half of the audio bridge over HTTP:
// WebSocket endpoints that feed the virtual microphone and tap the virtual
// speaker, plus health and ring statistics endpoints.
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/CarstenMaul/mac-tts-stt-audio-bridge/internal/bridge"
	"github.com/CarstenMaul/mac-tts-stt-audio-bridge/internal/config"
	"github.com/gorilla/websocket"
)

// Server wraps the HTTP server and the bridge it fronts.
type Server struct {
	httpServer *http.Server
	bridge     *bridge.Bridge
	log        *slog.Logger
	upgrader   websocket.Upgrader

	channels     int
	tapFrames    int
	pumpInterval time.Duration
}

// New creates a server for the given bridge. The tap pump period matches
// the configured buffer period, so tap subscribers receive audio at the
// same cadence the driver produces it.
func New(cfg *config.Config, br *bridge.Bridge, logger *slog.Logger) *Server {
	s := &Server{
		bridge:    br,
		log:       logger,
		channels:  int(cfg.Audio.Channels),
		tapFrames: int(cfg.Audio.BufferFrames),
		pumpInterval: time.Duration(
			float64(cfg.Audio.BufferFrames) / cfg.Audio.SampleRate * float64(time.Second)),
		upgrader: websocket.Upgrader{
			// The daemon binds to loopback; origin checks add nothing there.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/ringz", s.handleRingStats)
	mux.HandleFunc("/ws/feed", s.handleFeed)
	mux.HandleFunc("/ws/tap", s.handleTap)

	s.httpServer = &http.Server{
		Addr:    cfg.Server.ListenAddr,
		Handler: mux,
	}
	return s
}

// Start begins serving requests and blocks until the server stops.
func (s *Server) Start() error {
	s.log.Info("bridge server listening", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Handler returns the server's HTTP handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func (s *Server) handleRingStats(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.bridge.Stats()); err != nil {
		s.log.Warn("failed to encode ring stats", "error", err)
	}
}

// handleFeed accepts binary little-endian float32 interleaved PCM messages
// and queues them as microphone input. Frames that do not fit in the mic
// feed ring are dropped; overruns are the sender pacing too fast, and
// blocking here would stall the WebSocket read loop instead of the audio.
func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	s.log.Info("feed client connected", "remote", conn.RemoteAddr())
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			s.log.Info("feed client disconnected", "remote", conn.RemoteAddr(), "reason", err)
			return
		}
		if msgType != websocket.BinaryMessage {
			continue
		}

		samples, err := decodePCM(data, s.channels)
		if err != nil {
			s.log.Warn("rejecting malformed feed message", "error", err)
			continue
		}

		frameCount := len(samples) / s.channels
		if written := s.bridge.FeedMic(samples); written < frameCount {
			s.log.Debug("mic feed overrun", "dropped_frames", frameCount-written)
		}
	}
}

// handleTap streams the speaker tap to the client as binary PCM messages,
// one pump period at a time. Periods in which the driver produced nothing
// send nothing; the client hears gaps as silence.
func (s *Server) handleTap(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	s.log.Info("tap client connected", "remote", conn.RemoteAddr())

	// The client never sends audio, but reading is still required to
	// observe close frames and connection errors.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(s.pumpInterval)
	defer ticker.Stop()

	frames := make([]float32, s.tapFrames*s.channels)
	var msg []byte
	for {
		select {
		case <-closed:
			s.log.Info("tap client disconnected", "remote", conn.RemoteAddr())
			return
		case <-ticker.C:
			got := s.bridge.TapSpeaker(frames)
			if got == 0 {
				continue
			}
			msg = encodePCM(msg, frames[:got*s.channels])
			if err := conn.WriteMessage(websocket.BinaryMessage, msg); err != nil {
				s.log.Info("tap client write failed", "remote", conn.RemoteAddr(), "reason", err)
				return
			}
		}
	}
}

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

// audiobridged is the user-space half of the virtual audio bridge. It
// attaches to the driver's shared memory rings and exposes them over
// WebSocket: synthesized speech goes in as microphone input, the speaker
// mix comes back out for transcription.
package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"

	"github.com/CarstenMaul/mac-tts-stt-audio-bridge/internal/bridge"
	"github.com/CarstenMaul/mac-tts-stt-audio-bridge/internal/config"
	"github.com/CarstenMaul/mac-tts-stt-audio-bridge/internal/server"
)

func main() {
	configPath := flag.String("config", "", "Path to configuration file (optional)")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			logger.Error("failed to load config", "path", *configPath, "error", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid config", "error", err)
		os.Exit(1)
	}

	br, err := bridge.Open(bridge.RoleHelper, bridge.Options{
		MicFeedName:    cfg.Rings.MicFeed,
		SpeakerTapName: cfg.Rings.SpeakerTap,
		Channels:       cfg.Audio.Channels,
		CapacityFrames: cfg.Rings.CapacityFrames,
	})
	if err != nil {
		logger.Error("failed to open bridge rings", "error", err)
		os.Exit(1)
	}
	defer br.Close()

	stats := br.Stats()
	logger.Info("bridge rings open",
		"mic_feed", stats.MicFeed.Path,
		"speaker_tap", stats.SpeakerTap.Path,
		"channels", cfg.Audio.Channels,
		"capacity_frames", cfg.Rings.CapacityFrames)

	srv := server.New(cfg, br, logger)
	shutdownHandler := server.NewShutdownHandler(srv, context.Background())

	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	if err := shutdownHandler.Wait(); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}
	logger.Info("server shut down cleanly")
}

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

// ringplay is a live monitor for the bridge: it plays the speaker tap ring
// on the default audio output and feeds the default input device into the
// mic feed ring, so the virtual device can be heard and spoken to with real
// hardware.
package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/CarstenMaul/mac-tts-stt-audio-bridge/internal/bridge"
	"github.com/CarstenMaul/mac-tts-stt-audio-bridge/internal/config"
	"github.com/gordonklaus/portaudio"
)

func main() {
	configPath := flag.String("config", "", "Path to configuration file (optional)")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		cfg = loaded
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	br, err := bridge.Open(bridge.RoleHelper, bridge.Options{
		MicFeedName:    cfg.Rings.MicFeed,
		SpeakerTapName: cfg.Rings.SpeakerTap,
		Channels:       cfg.Audio.Channels,
		CapacityFrames: cfg.Rings.CapacityFrames,
	})
	if err != nil {
		log.Fatalf("Failed to open bridge rings: %v", err)
	}
	defer br.Close()

	if err := portaudio.Initialize(); err != nil {
		log.Fatalf("PortAudio initialization error: %v", err)
	}
	defer portaudio.Terminate()

	channels := int(cfg.Audio.Channels)
	callback := func(in, out []float32) {
		// Hardware input becomes virtual microphone audio; whatever the
		// virtual speaker mixed comes back out of the hardware. Underruns
		// surface as silence, which is the bridge-wide policy.
		br.FeedMic(in)
		got := br.TapSpeaker(out)
		for i := got * channels; i < len(out); i++ {
			out[i] = 0
		}
	}

	stream, err := portaudio.OpenDefaultStream(
		channels,
		channels,
		cfg.Audio.SampleRate,
		int(cfg.Audio.BufferFrames),
		callback,
	)
	if err != nil {
		log.Fatalf("PortAudio open stream error: %v", err)
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		log.Fatalf("PortAudio start stream error: %v", err)
	}
	defer stream.Stop()

	log.Printf("Monitoring rings %s / %s at %.0f Hz, Ctrl-C to stop",
		cfg.Rings.MicFeed, cfg.Rings.SpeakerTap, cfg.Audio.SampleRate)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
}

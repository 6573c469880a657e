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

// Package config loads and validates the bridge daemon configuration.
package config

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the complete daemon configuration.
type Config struct {
	Audio  AudioConfig  `yaml:"audio"`
	Rings  RingsConfig  `yaml:"rings"`
	Server ServerConfig `yaml:"server"`
}

// AudioConfig describes the stream format shared with the audio driver.
type AudioConfig struct {
	SampleRate   float64 `yaml:"sample_rate"`   // Samples per second per channel
	Channels     uint32  `yaml:"channels"`      // Interleaved channel count
	BufferFrames uint32  `yaml:"buffer_frames"` // Host IO buffer period in frames
}

// RingsConfig names the two shared memory rings and sizes them.
type RingsConfig struct {
	MicFeed        string `yaml:"mic_feed"`        // Logical name of the mic feed ring
	SpeakerTap     string `yaml:"speaker_tap"`     // Logical name of the speaker tap ring
	CapacityFrames uint32 `yaml:"capacity_frames"` // Per-ring capacity in frames
}

// ServerConfig describes the helper daemon's HTTP surface.
type ServerConfig struct {
	ListenAddr string `yaml:"listen_addr"` // host:port for the WebSocket/health endpoints
}

// Load reads configuration from a YAML file, rejecting unknown fields.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)

	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	cfg.setDefaults()
	return &cfg, nil
}

// Default returns the configuration used when no file is given. The values
// mirror the audio driver's compiled-in constants, so a bare daemon talks
// to a stock driver out of the box.
func Default() *Config {
	cfg := &Config{}
	cfg.setDefaults()
	return cfg
}

// setDefaults applies explicit default values to unset fields.
func (c *Config) setDefaults() {
	if c.Audio.SampleRate == 0 {
		c.Audio.SampleRate = 48000
	}
	if c.Audio.Channels == 0 {
		c.Audio.Channels = 2
	}
	if c.Audio.BufferFrames == 0 {
		c.Audio.BufferFrames = 480
	}
	if c.Rings.MicFeed == "" {
		c.Rings.MicFeed = "/virtual_audio_bridge_mic_feed"
	}
	if c.Rings.SpeakerTap == "" {
		c.Rings.SpeakerTap = "/virtual_audio_bridge_speaker_tap"
	}
	if c.Rings.CapacityFrames == 0 {
		// One second of audio at the default rate.
		c.Rings.CapacityFrames = 48000
	}
	if c.Server.ListenAddr == "" {
		c.Server.ListenAddr = "127.0.0.1:8787"
	}
}

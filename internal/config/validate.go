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

package config

import "fmt"

// Validate checks that all configuration values are usable. Returns an
// error describing the first problem found.
func (c *Config) Validate() error {
	if err := c.Audio.Validate(); err != nil {
		return fmt.Errorf("audio config: %w", err)
	}
	if err := c.Rings.Validate(); err != nil {
		return fmt.Errorf("rings config: %w", err)
	}
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server config: %w", err)
	}
	return nil
}

// Validate checks the audio format values.
func (a *AudioConfig) Validate() error {
	if a.SampleRate <= 0 {
		return fmt.Errorf("sample_rate must be positive, got %v", a.SampleRate)
	}
	if a.Channels == 0 {
		return fmt.Errorf("channels must be positive")
	}
	if a.BufferFrames == 0 {
		return fmt.Errorf("buffer_frames must be positive")
	}
	return nil
}

// Validate checks the ring names and sizing.
func (r *RingsConfig) Validate() error {
	if r.MicFeed == "" {
		return fmt.Errorf("mic_feed name must not be empty")
	}
	if r.SpeakerTap == "" {
		return fmt.Errorf("speaker_tap name must not be empty")
	}
	if r.MicFeed == r.SpeakerTap {
		return fmt.Errorf("mic_feed and speaker_tap must name different rings, both are %q", r.MicFeed)
	}
	if r.CapacityFrames == 0 {
		return fmt.Errorf("capacity_frames must be positive")
	}
	return nil
}

// Validate checks the server listen address.
func (s *ServerConfig) Validate() error {
	if s.ListenAddr == "" {
		return fmt.Errorf("listen_addr must not be empty")
	}
	return nil
}

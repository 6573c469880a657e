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

// Package bridge pairs the two shared memory rings of a virtual audio
// device: the mic feed (helper writes, device reads and delivers as
// microphone input) and the speaker tap (device writes the output mix,
// helper reads it back out).
package bridge

import (
	"fmt"
	"sync"

	"github.com/CarstenMaul/mac-tts-stt-audio-bridge/internal/shm"
)

// Role selects which side of the bridge a process plays.
type Role int

const (
	// RoleDevice is the audio driver side. It creates both rings at
	// startup, wiping whatever an earlier instance left behind.
	RoleDevice Role = iota

	// RoleHelper is the user-space side. It attaches to existing rings
	// when it can, preserving buffered audio, and creates them only when
	// the device has not started yet.
	RoleHelper
)

// Options configures the ring pair.
type Options struct {
	MicFeedName    string
	SpeakerTapName string
	Channels       uint32
	CapacityFrames uint32
}

// Bridge owns one process's handles to both rings. The mutex serializes
// access to the pair from the host callback; the rings' own correctness
// does not depend on it.
type Bridge struct {
	mu         sync.Mutex
	micFeed    shm.Ring
	speakerTap shm.Ring
	channels   uint32
}

// Open maps both rings for the given role.
func Open(role Role, opts Options) (*Bridge, error) {
	if opts.Channels == 0 || opts.CapacityFrames == 0 {
		return nil, fmt.Errorf("bridge: channels and capacity must be positive, got %d/%d",
			opts.Channels, opts.CapacityFrames)
	}

	b := &Bridge{channels: opts.Channels}
	if err := b.openRing(&b.micFeed, opts.MicFeedName, role, opts); err != nil {
		return nil, err
	}
	if err := b.openRing(&b.speakerTap, opts.SpeakerTapName, role, opts); err != nil {
		b.micFeed.Close()
		return nil, err
	}
	return b, nil
}

func (b *Bridge) openRing(ring *shm.Ring, name string, role Role, opts Options) error {
	if role == RoleDevice {
		if !ring.Open(name, true, opts.Channels, opts.CapacityFrames) {
			return fmt.Errorf("bridge: failed to create ring %q", name)
		}
		return nil
	}

	// Helper: attach first so a running device's buffered audio survives,
	// create only when no ring exists yet.
	if ring.Open(name, false, opts.Channels, opts.CapacityFrames) {
		return nil
	}
	if !ring.Open(name, true, opts.Channels, opts.CapacityFrames) {
		return fmt.Errorf("bridge: failed to open ring %q", name)
	}
	return nil
}

// Channels returns the interleaved channel count shared by both rings.
func (b *Bridge) Channels() uint32 {
	return b.channels
}

// PullInput fills frames with microphone input for the device side. The
// shortfall past what the mic feed ring holds is zero-filled, so the caller
// always receives a full buffer of valid samples. Returns the number of
// frames that came from the ring.
func (b *Bridge) PullInput(frames []float32) int {
	frameCount := len(frames) / int(b.channels)

	b.mu.Lock()
	got := b.micFeed.Read(frames, frameCount)
	b.mu.Unlock()

	if got < frameCount {
		zero(frames[got*int(b.channels) : frameCount*int(b.channels)])
	}
	return got
}

// PushMix publishes the device's output mix to the speaker tap ring.
// Frames beyond the ring's free space are dropped.
func (b *Bridge) PushMix(frames []float32) int {
	frameCount := len(frames) / int(b.channels)

	b.mu.Lock()
	defer b.mu.Unlock()
	return b.speakerTap.Write(frames, frameCount)
}

// FeedMic queues frames for delivery as microphone input (helper side).
func (b *Bridge) FeedMic(frames []float32) int {
	frameCount := len(frames) / int(b.channels)

	b.mu.Lock()
	defer b.mu.Unlock()
	return b.micFeed.Write(frames, frameCount)
}

// TapSpeaker drains captured output mix frames (helper side). Returns how
// many frames were available; the buffer is not zero-filled.
func (b *Bridge) TapSpeaker(frames []float32) int {
	frameCount := len(frames) / int(b.channels)

	b.mu.Lock()
	defer b.mu.Unlock()
	return b.speakerTap.Read(frames, frameCount)
}

// RingStats is a point-in-time snapshot of one ring's occupancy.
type RingStats struct {
	Path           string `json:"path"`
	Channels       uint32 `json:"channels"`
	CapacityFrames uint32 `json:"capacity_frames"`
	BufferedFrames uint32 `json:"buffered_frames"`
	FreeFrames     uint32 `json:"free_frames"`
}

// Stats reports the occupancy of both rings.
type Stats struct {
	MicFeed    RingStats `json:"mic_feed"`
	SpeakerTap RingStats `json:"speaker_tap"`
}

// Stats snapshots both rings. The two rings are read under the pair lock
// but each snapshot is only as consistent as its atomic index reads.
func (b *Bridge) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Stats{
		MicFeed:    ringStats(&b.micFeed),
		SpeakerTap: ringStats(&b.speakerTap),
	}
}

func ringStats(r *shm.Ring) RingStats {
	return RingStats{
		Path:           r.Path(),
		Channels:       r.Channels(),
		CapacityFrames: r.CapacityFrames(),
		BufferedFrames: r.Buffered(),
		FreeFrames:     r.Free(),
	}
}

// Close unmaps both rings. The backing files and their contents persist for
// the peer process.
func (b *Bridge) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.micFeed.Close()
	b.speakerTap.Close()
}

func zero(samples []float32) {
	for i := range samples {
		samples[i] = 0
	}
}

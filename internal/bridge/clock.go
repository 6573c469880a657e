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

package bridge

import (
	"sync/atomic"
	"time"
)

// Clock is the bridge's virtual sample clock. The host asks it for "zero
// timestamps": the sample time of the most recently completed buffer
// period, quantized to whole periods, plus the host time that sample time
// corresponds to. Quantizing keeps the host's DMA-style timeline stable
// even though no hardware is ticking underneath.
//
// The clock also counts IO clients. The first StartIO anchors the timeline
// at the current host time and bumps the clock seed so the host discards
// timestamps from any earlier run.
type Clock struct {
	sampleRate   float64
	bufferFrames uint32

	ioClients   uint32
	seed        uint64
	anchorNanos int64

	// nowNanos is swapped out by tests.
	nowNanos func() int64
}

// NewClock creates a clock for the given sample rate and buffer period.
func NewClock(sampleRate float64, bufferFrames uint32) *Clock {
	return &Clock{
		sampleRate:   sampleRate,
		bufferFrames: bufferFrames,
		seed:         1,
		nowNanos:     func() int64 { return time.Now().UnixNano() },
	}
}

// StartIO registers an IO client. The first client re-anchors the timeline
// and advances the seed.
func (c *Clock) StartIO() {
	if atomic.AddUint32(&c.ioClients, 1) == 1 {
		atomic.StoreInt64(&c.anchorNanos, c.nowNanos())
		atomic.AddUint64(&c.seed, 1)
	}
}

// StopIO unregisters an IO client. Extra calls with no active client are
// ignored.
func (c *Clock) StopIO() {
	for {
		current := atomic.LoadUint32(&c.ioClients)
		if current == 0 {
			return
		}
		if atomic.CompareAndSwapUint32(&c.ioClients, current, current-1) {
			return
		}
	}
}

// IOActive reports whether at least one IO client is running.
func (c *Clock) IOActive() bool {
	return atomic.LoadUint32(&c.ioClients) != 0
}

// Seed returns the current clock seed.
func (c *Clock) Seed() uint64 {
	return atomic.LoadUint64(&c.seed)
}

// ZeroTimeStamp returns the quantized sample time of the last completed
// buffer period, the host time (in nanoseconds) that sample time maps to,
// and the clock seed.
func (c *Clock) ZeroTimeStamp() (sampleTime float64, hostTimeNanos int64, seed uint64) {
	now := c.nowNanos()

	anchor := atomic.LoadInt64(&c.anchorNanos)
	if anchor == 0 {
		anchor = now
		atomic.StoreInt64(&c.anchorNanos, anchor)
	}

	elapsedSeconds := float64(now-anchor) / float64(time.Second)
	elapsedSamples := elapsedSeconds * c.sampleRate

	periods := uint64(elapsedSamples) / uint64(c.bufferFrames)
	sampleTime = float64(periods * uint64(c.bufferFrames))
	hostTimeNanos = anchor + int64(sampleTime/c.sampleRate*float64(time.Second))
	seed = atomic.LoadUint64(&c.seed)
	return sampleTime, hostTimeNanos, seed
}

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

package shm

// Ring is a single-producer single-consumer audio frame ring over a shared
// memory mapping. One process writes interleaved float32 frames, another
// reads them; the only cross-process synchronization is the pair of atomic
// frame indices in the mapped header.
//
// Write and Read are wait-free and allocation-free. They may be called from
// a real-time audio callback. A Ring itself is not safe for use from more
// than one goroutine per side; the documented usage is one producer thread
// and one consumer thread, typically in different processes.
type Ring struct {
	seg            *segment
	hdr            *RingHeader
	data           []float32
	channels       uint32
	capacityFrames uint32
}

// Open maps the named ring, creating and sizing the backing file when
// create is true, and validates or (re)initializes the header. It reports
// whether the ring is ready for Write/Read.
//
// Opening with create=false and parameters matching the stored header
// attaches to the ring and preserves any buffered frames. Opening with
// create=true, or with a magic/version/channels/capacity mismatch, wipes
// the ring and resets both indices to zero.
//
// Two processes that concurrently open the same name with create=true are
// not mutually excluded: the last reset to complete wins and the other
// side's frames are discarded. The intended usage is a single creator and
// one later attacher, so this is tolerated rather than prevented.
func (r *Ring) Open(name string, create bool, channels, capacityFrames uint32) bool {
	r.Close()

	if name == "" || channels == 0 || capacityFrames == 0 {
		return false
	}

	seg, err := openSegment(name, create, channels, capacityFrames)
	if err != nil {
		return false
	}

	hdr := seg.header()
	if create ||
		hdr.Magic() != RingMagic ||
		hdr.Version() != RingVersion ||
		hdr.Channels() != channels ||
		hdr.CapacityFrames() != capacityFrames {
		seg.zero()
		hdr.SetMagic(RingMagic)
		hdr.SetVersion(RingVersion)
		hdr.SetChannels(channels)
		hdr.SetCapacityFrames(capacityFrames)
		hdr.SetWriteIndex(0)
		hdr.SetReadIndex(0)
	}

	r.seg = seg
	r.hdr = hdr
	r.data = seg.data(channels, capacityFrames)
	r.channels = channels
	r.capacityFrames = capacityFrames
	return true
}

// Close unmaps the ring and releases the backing file descriptor. The
// header content persists in the backing file for later attachers.
// Idempotent; Write and Read on a closed Ring return 0.
func (r *Ring) Close() {
	if r.seg != nil {
		r.seg.Close()
	}
	r.seg = nil
	r.hdr = nil
	r.data = nil
	r.channels = 0
	r.capacityFrames = 0
}

// Write copies up to frameCount interleaved frames into the ring and
// returns how many were accepted. Excess frames beyond the free space are
// dropped rather than blocking; a return value smaller than frameCount is
// the designed overrun behavior, not an error.
func (r *Ring) Write(frames []float32, frameCount int) int {
	if r.hdr == nil || frames == nil || frameCount <= 0 {
		return 0
	}
	channels := int(r.channels)
	if len(frames) < frameCount*channels {
		return 0
	}

	capacity := r.capacityFrames
	write := r.hdr.WriteIndex()
	read := r.hdr.ReadIndex()

	used := write - read
	if used > capacity {
		used = capacity
	}
	free := capacity - used

	toWrite := uint32(frameCount)
	if toWrite > free {
		toWrite = free
	}
	if toWrite == 0 {
		return 0
	}

	// One contiguous copy per frame. Addressing is per-frame so no copy
	// ever straddles the ring boundary.
	for frame := uint32(0); frame < toWrite; frame++ {
		dst := int((write+frame)%capacity) * channels
		src := int(frame) * channels
		copy(r.data[dst:dst+channels], frames[src:src+channels])
	}

	// Publishing the new index is what makes the frames above visible to
	// the reader; it must happen after the copies.
	r.hdr.SetWriteIndex(write + toWrite)
	return int(toWrite)
}

// Read copies up to frameCount interleaved frames out of the ring and
// returns how many were available. On underrun only the buffered frames are
// returned; filling the remainder (typically with silence) is the caller's
// job. Read never blocks and never fabricates samples.
func (r *Ring) Read(frames []float32, frameCount int) int {
	if r.hdr == nil || frames == nil || frameCount <= 0 {
		return 0
	}
	channels := int(r.channels)
	if len(frames) < frameCount*channels {
		return 0
	}

	capacity := r.capacityFrames
	write := r.hdr.WriteIndex()
	read := r.hdr.ReadIndex()

	available := write - read
	if available > capacity {
		available = capacity
	}

	toRead := uint32(frameCount)
	if toRead > available {
		toRead = available
	}
	if toRead == 0 {
		return 0
	}

	for frame := uint32(0); frame < toRead; frame++ {
		src := int((read+frame)%capacity) * channels
		dst := int(frame) * channels
		copy(frames[dst:dst+channels], r.data[src:src+channels])
	}

	// Publishing the new index releases the consumed slots to the writer;
	// it must happen after the copies.
	r.hdr.SetReadIndex(read + toRead)
	return int(toRead)
}

// Channels returns the ring's interleaved channel count, or 0 when closed.
func (r *Ring) Channels() uint32 {
	return r.channels
}

// CapacityFrames returns the ring capacity in frames, or 0 when closed.
func (r *Ring) CapacityFrames() uint32 {
	return r.capacityFrames
}

// IsOpen reports whether the ring is mapped and ready for transfer.
func (r *Ring) IsOpen() bool {
	return r.hdr != nil
}

// Buffered returns the number of frames currently waiting to be read.
func (r *Ring) Buffered() uint32 {
	if r.hdr == nil {
		return 0
	}
	return r.hdr.Used()
}

// Free returns the number of frames that can be written without dropping.
func (r *Ring) Free() uint32 {
	if r.hdr == nil {
		return 0
	}
	return r.hdr.Free()
}

// Path returns the backing file path, or "" when closed.
func (r *Ring) Path() string {
	if r.seg == nil {
		return ""
	}
	return r.seg.path
}

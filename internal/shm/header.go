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

import "sync/atomic"

// Binary layout constants. The layout is shared byte-for-byte with every
// process that maps the same ring, so none of these may change without
// bumping RingVersion.
const (
	// RingMagic tags a valid, compatible ring header ("SARB").
	RingMagic = uint32(0x53415242)

	// RingVersion is the current header layout version.
	RingVersion = uint32(1)

	// RingHeaderSize is the size of the RingHeader in bytes. Frame data
	// starts at this offset within the mapping.
	RingHeaderSize = 24

	// SampleSize is the size of one float32 sample in bytes.
	SampleSize = 4
)

// RingHeader is the fixed-size control block at offset 0 of a mapped ring.
//
//	offset 0:  magic           u32
//	offset 4:  version         u32
//	offset 8:  channels        u32
//	offset 12: capacityFrames  u32
//	offset 16: writeIndex      u32 (atomic)
//	offset 20: readIndex       u32 (atomic)
//
// The two indices count frames ever written/consumed and wrap modulo 2^32.
// They are the only fields mutated after initialization.
type RingHeader struct {
	magic          uint32
	version        uint32
	channels       uint32
	capacityFrames uint32
	writeIndex     uint32
	readIndex      uint32
}

// Magic returns the format tag.
func (h *RingHeader) Magic() uint32 {
	return atomic.LoadUint32(&h.magic)
}

// SetMagic sets the format tag.
func (h *RingHeader) SetMagic(magic uint32) {
	atomic.StoreUint32(&h.magic, magic)
}

// Version returns the layout version.
func (h *RingHeader) Version() uint32 {
	return atomic.LoadUint32(&h.version)
}

// SetVersion sets the layout version.
func (h *RingHeader) SetVersion(version uint32) {
	atomic.StoreUint32(&h.version, version)
}

// Channels returns the interleaved channel count.
func (h *RingHeader) Channels() uint32 {
	return atomic.LoadUint32(&h.channels)
}

// SetChannels sets the interleaved channel count.
func (h *RingHeader) SetChannels(channels uint32) {
	atomic.StoreUint32(&h.channels, channels)
}

// CapacityFrames returns the ring capacity in frames.
func (h *RingHeader) CapacityFrames() uint32 {
	return atomic.LoadUint32(&h.capacityFrames)
}

// SetCapacityFrames sets the ring capacity in frames.
func (h *RingHeader) SetCapacityFrames(capacity uint32) {
	atomic.StoreUint32(&h.capacityFrames, capacity)
}

// WriteIndex returns the monotonic write index (producer side).
func (h *RingHeader) WriteIndex() uint32 {
	return atomic.LoadUint32(&h.writeIndex)
}

// SetWriteIndex publishes the monotonic write index. Frame data written
// before this store is visible to a reader that observes the new value.
func (h *RingHeader) SetWriteIndex(idx uint32) {
	atomic.StoreUint32(&h.writeIndex, idx)
}

// ReadIndex returns the monotonic read index (consumer side).
func (h *RingHeader) ReadIndex() uint32 {
	return atomic.LoadUint32(&h.readIndex)
}

// SetReadIndex publishes the monotonic read index. Slots released by this
// store may be reused by a writer that observes the new value.
func (h *RingHeader) SetReadIndex(idx uint32) {
	atomic.StoreUint32(&h.readIndex, idx)
}

// Used returns the number of frames currently buffered. The subtraction is
// unsigned and modular, so it stays correct when the indices wrap past 2^32.
// The result is clamped to the capacity to tolerate a torn header produced
// by a racing reset.
func (h *RingHeader) Used() uint32 {
	w := atomic.LoadUint32(&h.writeIndex)
	r := atomic.LoadUint32(&h.readIndex)
	used := w - r
	if capacity := h.CapacityFrames(); used > capacity {
		used = capacity
	}
	return used
}

// Free returns the number of frames that can be written before the ring is
// full.
func (h *RingHeader) Free() uint32 {
	return h.CapacityFrames() - h.Used()
}

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

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unsafe"
)

// ringFileSuffix is appended to the sanitized ring name to form the backing
// file name.
const ringFileSuffix = ".ring"

// segment owns one process's mapping of a ring's backing file. The mapped
// region holds the RingHeader followed immediately by the frame buffer.
type segment struct {
	file *os.File
	mem  []byte
	path string
}

// ringPath derives the backing file path for a logical ring name. A single
// leading separator is stripped and every remaining separator becomes an
// underscore, so "/bridge/mic" and "bridge/mic" resolve to the same file.
func ringPath(name string) string {
	name = strings.TrimPrefix(name, "/")
	name = strings.ReplaceAll(name, "/", "_")
	return filepath.Join(os.TempDir(), name+ringFileSuffix)
}

// mappingSize returns the full size of the backing file in bytes.
func mappingSize(channels, capacityFrames uint32) int64 {
	return RingHeaderSize + SampleSize*int64(channels)*int64(capacityFrames)
}

// openSegment opens (creating if requested) and maps the backing file for a
// ring. The file is always resized to exactly the requested mapping size,
// even when it pre-existed with a different size; the header validation in
// Ring.Open is what makes a racing resize safe. On any failure every
// partially acquired resource is released before returning.
func openSegment(name string, create bool, channels, capacityFrames uint32) (*segment, error) {
	path := ringPath(name)

	flags := os.O_RDWR
	if create {
		flags |= os.O_CREATE
	}
	file, err := os.OpenFile(path, flags, 0666)
	if err != nil {
		return nil, fmt.Errorf("open ring file %s: %w", path, err)
	}

	// Force permissions regardless of umask. The two sides of a bridge may
	// run under different users (the audio daemon vs a user session), and
	// both need read/write access to the backing file.
	if err := forcePermissions(file); err != nil {
		file.Close()
		return nil, fmt.Errorf("chmod ring file %s: %w", path, err)
	}

	size := mappingSize(channels, capacityFrames)
	if err := file.Truncate(size); err != nil {
		file.Close()
		return nil, fmt.Errorf("resize ring file to %d bytes: %w", size, err)
	}

	mem, err := mmapFile(file, int(size))
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("mmap ring file: %w", err)
	}

	return &segment{file: file, mem: mem, path: path}, nil
}

// header returns the typed view of the ring header at the start of the
// mapping.
func (s *segment) header() *RingHeader {
	return (*RingHeader)(unsafe.Pointer(&s.mem[0]))
}

// data returns the frame buffer as a float32 slice covering exactly
// channels*capacityFrames samples after the header.
func (s *segment) data(channels, capacityFrames uint32) []float32 {
	n := int64(channels) * int64(capacityFrames)
	return unsafe.Slice((*float32)(unsafe.Pointer(&s.mem[RingHeaderSize])), int(n))
}

// zero clears the entire mapped region, header included.
func (s *segment) zero() {
	clear(s.mem)
}

// Close unmaps the region and closes the file. Safe to call more than once.
func (s *segment) Close() error {
	var firstErr error

	if s.mem != nil {
		if err := munmapFile(s.mem); err != nil && firstErr == nil {
			firstErr = err
		}
		s.mem = nil
	}

	if s.file != nil {
		if err := s.file.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		s.file = nil
	}

	return firstErr
}

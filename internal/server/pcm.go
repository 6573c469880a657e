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

package server

import (
	"encoding/binary"
	"fmt"
	"math"
)

// sampleBytes is the wire size of one float32 sample.
const sampleBytes = 4

// encodePCM serializes interleaved float32 samples as little-endian bytes,
// the same byte order the rings store. The dst slice is grown as needed and
// returned so callers can reuse it across messages.
func encodePCM(dst []byte, samples []float32) []byte {
	need := len(samples) * sampleBytes
	if cap(dst) < need {
		dst = make([]byte, need)
	}
	dst = dst[:need]
	for i, s := range samples {
		binary.LittleEndian.PutUint32(dst[i*sampleBytes:], math.Float32bits(s))
	}
	return dst
}

// decodePCM parses a binary message of little-endian float32 samples into
// whole interleaved frames. Messages that do not hold a whole number of
// frames are rejected.
func decodePCM(data []byte, channels int) ([]float32, error) {
	frameBytes := sampleBytes * channels
	if len(data) == 0 || len(data)%frameBytes != 0 {
		return nil, fmt.Errorf("pcm message of %d bytes is not a whole number of %d-byte frames",
			len(data), frameBytes)
	}

	samples := make([]float32, len(data)/sampleBytes)
	for i := range samples {
		samples[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*sampleBytes:]))
	}
	return samples, nil
}

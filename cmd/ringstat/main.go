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

// ringstat inspects and exercises a shared memory audio ring from the
// command line: print its occupancy, drain it, or fill it with a test tone.
package main

import (
	"flag"
	"fmt"
	"log"
	"math"

	"github.com/CarstenMaul/mac-tts-stt-audio-bridge/internal/shm"
)

func main() {
	name := flag.String("name", "/virtual_audio_bridge_mic_feed", "Logical ring name")
	channels := flag.Uint("channels", 2, "Interleaved channel count")
	capacity := flag.Uint("capacity", 48000, "Ring capacity in frames")
	create := flag.Bool("create", false, "Create/reset the ring instead of attaching")
	drain := flag.Bool("drain", false, "Drain all buffered frames and report the count")
	toneSeconds := flag.Float64("tone", 0, "Seconds of 440Hz test tone to write into the ring")
	sampleRate := flag.Float64("rate", 48000, "Sample rate used for tone generation")
	flag.Parse()

	ring := &shm.Ring{}
	if !ring.Open(*name, *create, uint32(*channels), uint32(*capacity)) {
		log.Fatalf("failed to open ring %q (channels=%d capacity=%d create=%v)",
			*name, *channels, *capacity, *create)
	}
	defer ring.Close()

	fmt.Printf("ring:      %s\n", *name)
	fmt.Printf("backing:   %s\n", ring.Path())
	fmt.Printf("channels:  %d\n", ring.Channels())
	fmt.Printf("capacity:  %d frames\n", ring.CapacityFrames())
	fmt.Printf("buffered:  %d frames\n", ring.Buffered())
	fmt.Printf("free:      %d frames\n", ring.Free())

	if *drain {
		drained := 0
		buf := make([]float32, 1024*ring.Channels())
		for {
			got := ring.Read(buf, 1024)
			if got == 0 {
				break
			}
			drained += got
		}
		fmt.Printf("drained:   %d frames\n", drained)
	}

	if *toneSeconds > 0 {
		frames := toneFrames(*toneSeconds, *sampleRate, int(ring.Channels()))
		written := ring.Write(frames, len(frames)/int(ring.Channels()))
		fmt.Printf("tone:      wrote %d of %d frames\n", written, len(frames)/int(ring.Channels()))
	}
}

// toneFrames builds a 440Hz sine at moderate level, duplicated across all
// channels.
func toneFrames(seconds, sampleRate float64, channels int) []float32 {
	frameCount := int(seconds * sampleRate)
	frames := make([]float32, frameCount*channels)
	for f := 0; f < frameCount; f++ {
		s := float32(0.2 * math.Sin(2*math.Pi*440*float64(f)/sampleRate))
		for c := 0; c < channels; c++ {
			frames[f*channels+c] = s
		}
	}
	return frames
}

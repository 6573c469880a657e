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
	"fmt"
	"os"
	"testing"
	"time"
)

func testOptions(t *testing.T, tag string) Options {
	t.Helper()
	stamp := time.Now().UnixNano()
	return Options{
		MicFeedName:    fmt.Sprintf("/bridge-test-%s-mic-%d", tag, stamp),
		SpeakerTapName: fmt.Sprintf("/bridge-test-%s-tap-%d", tag, stamp),
		Channels:       2,
		CapacityFrames: 256,
	}
}

func openTestBridge(t *testing.T, role Role, opts Options) *Bridge {
	t.Helper()
	b, err := Open(role, opts)
	if err != nil {
		t.Fatalf("failed to open bridge: %v", err)
	}
	t.Cleanup(func() {
		stats := b.Stats()
		b.Close()
		os.Remove(stats.MicFeed.Path)
		os.Remove(stats.SpeakerTap.Path)
	})
	return b
}

func TestOpenRejectsZeroParameters(t *testing.T) {
	if _, err := Open(RoleDevice, Options{MicFeedName: "/a", SpeakerTapName: "/b"}); err == nil {
		t.Fatal("Open with zero channels/capacity succeeded, want error")
	}
}

func TestFeedMicFlowsToPullInput(t *testing.T) {
	opts := testOptions(t, "feed")
	device := openTestBridge(t, RoleDevice, opts)
	helper := openTestBridge(t, RoleHelper, opts)

	const frameCount = 48
	channels := int(opts.Channels)
	in := make([]float32, frameCount*channels)
	for i := range in {
		in[i] = float32(i) * 0.25
	}

	if got := helper.FeedMic(in); got != frameCount {
		t.Fatalf("FeedMic returned %d, want %d", got, frameCount)
	}

	out := make([]float32, frameCount*channels)
	if got := device.PullInput(out); got != frameCount {
		t.Fatalf("PullInput returned %d, want %d", got, frameCount)
	}
	for i := range in {
		if out[i] != in[i] {
			t.Fatalf("sample %d: got %v, want %v", i, out[i], in[i])
		}
	}
}

func TestPullInputZeroFillsShortfall(t *testing.T) {
	opts := testOptions(t, "zerofill")
	device := openTestBridge(t, RoleDevice, opts)
	helper := openTestBridge(t, RoleHelper, opts)

	channels := int(opts.Channels)
	in := make([]float32, 10*channels)
	for i := range in {
		in[i] = 1
	}
	helper.FeedMic(in)

	// Ask for more than is buffered; the tail must come back silent.
	out := make([]float32, 30*channels)
	for i := range out {
		out[i] = -1 // poison
	}
	if got := device.PullInput(out); got != 10 {
		t.Fatalf("PullInput returned %d frames from ring, want 10", got)
	}
	for i := 0; i < 10*channels; i++ {
		if out[i] != 1 {
			t.Fatalf("sample %d: got %v, want 1", i, out[i])
		}
	}
	for i := 10 * channels; i < 30*channels; i++ {
		if out[i] != 0 {
			t.Fatalf("sample %d: got %v, want silence", i, out[i])
		}
	}
}

func TestPushMixFlowsToTapSpeaker(t *testing.T) {
	opts := testOptions(t, "mix")
	device := openTestBridge(t, RoleDevice, opts)
	helper := openTestBridge(t, RoleHelper, opts)

	const frameCount = 32
	channels := int(opts.Channels)
	mix := make([]float32, frameCount*channels)
	for i := range mix {
		mix[i] = float32(i%7) - 3
	}

	if got := device.PushMix(mix); got != frameCount {
		t.Fatalf("PushMix returned %d, want %d", got, frameCount)
	}

	out := make([]float32, frameCount*channels)
	if got := helper.TapSpeaker(out); got != frameCount {
		t.Fatalf("TapSpeaker returned %d, want %d", got, frameCount)
	}
	for i := range mix {
		if out[i] != mix[i] {
			t.Fatalf("sample %d: got %v, want %v", i, out[i], mix[i])
		}
	}
}

func TestHelperAttachPreservesBufferedAudio(t *testing.T) {
	opts := testOptions(t, "attach")
	device := openTestBridge(t, RoleDevice, opts)

	channels := int(opts.Channels)
	mix := make([]float32, 16*channels)
	for i := range mix {
		mix[i] = 2.5
	}
	device.PushMix(mix)

	// Helper arriving later must see the frames the device already wrote.
	helper := openTestBridge(t, RoleHelper, opts)
	if buffered := helper.Stats().SpeakerTap.BufferedFrames; buffered != 16 {
		t.Fatalf("helper sees %d buffered tap frames, want 16", buffered)
	}
}

func TestHelperCreatesWhenDeviceAbsent(t *testing.T) {
	opts := testOptions(t, "helperfirst")
	helper := openTestBridge(t, RoleHelper, opts)

	channels := int(opts.Channels)
	in := make([]float32, 8*channels)
	if got := helper.FeedMic(in); got != 8 {
		t.Fatalf("FeedMic on helper-created ring returned %d, want 8", got)
	}
}

func TestStatsReflectOccupancy(t *testing.T) {
	opts := testOptions(t, "stats")
	device := openTestBridge(t, RoleDevice, opts)
	helper := openTestBridge(t, RoleHelper, opts)

	channels := int(opts.Channels)
	helper.FeedMic(make([]float32, 24*channels))
	device.PushMix(make([]float32, 40*channels))

	stats := device.Stats()
	if stats.MicFeed.BufferedFrames != 24 {
		t.Errorf("mic feed buffered = %d, want 24", stats.MicFeed.BufferedFrames)
	}
	if stats.MicFeed.FreeFrames != opts.CapacityFrames-24 {
		t.Errorf("mic feed free = %d, want %d", stats.MicFeed.FreeFrames, opts.CapacityFrames-24)
	}
	if stats.SpeakerTap.BufferedFrames != 40 {
		t.Errorf("speaker tap buffered = %d, want 40", stats.SpeakerTap.BufferedFrames)
	}
	if stats.MicFeed.Channels != opts.Channels || stats.SpeakerTap.CapacityFrames != opts.CapacityFrames {
		t.Errorf("stats carry wrong geometry: %+v", stats)
	}
}

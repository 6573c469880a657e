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
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/CarstenMaul/mac-tts-stt-audio-bridge/internal/bridge"
	"github.com/CarstenMaul/mac-tts-stt-audio-bridge/internal/config"
	"github.com/gorilla/websocket"
)

// newTestServer builds a server over freshly created rings, plus a second
// bridge handle standing in for the audio driver on the other side.
func newTestServer(t *testing.T, tag string) (*Server, *bridge.Bridge, *httptest.Server) {
	t.Helper()
	stamp := time.Now().UnixNano()

	cfg := config.Default()
	cfg.Rings.MicFeed = fmt.Sprintf("/bridge-test-srv-%s-mic-%d", tag, stamp)
	cfg.Rings.SpeakerTap = fmt.Sprintf("/bridge-test-srv-%s-tap-%d", tag, stamp)
	cfg.Rings.CapacityFrames = 4096
	// A short pump period keeps the tap tests fast.
	cfg.Audio.BufferFrames = 48

	device, err := bridge.Open(bridge.RoleDevice, bridge.Options{
		MicFeedName:    cfg.Rings.MicFeed,
		SpeakerTapName: cfg.Rings.SpeakerTap,
		Channels:       cfg.Audio.Channels,
		CapacityFrames: cfg.Rings.CapacityFrames,
	})
	if err != nil {
		t.Fatalf("failed to open device bridge: %v", err)
	}

	helper, err := bridge.Open(bridge.RoleHelper, bridge.Options{
		MicFeedName:    cfg.Rings.MicFeed,
		SpeakerTapName: cfg.Rings.SpeakerTap,
		Channels:       cfg.Audio.Channels,
		CapacityFrames: cfg.Rings.CapacityFrames,
	})
	if err != nil {
		t.Fatalf("failed to open helper bridge: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := New(cfg, helper, logger)
	ts := httptest.NewServer(srv.Handler())

	t.Cleanup(func() {
		ts.Close()
		stats := device.Stats()
		helper.Close()
		device.Close()
		os.Remove(stats.MicFeed.Path)
		os.Remove(stats.SpeakerTap.Path)
	})
	return srv, device, ts
}

func wsURL(ts *httptest.Server, path string) string {
	return "ws" + strings.TrimPrefix(ts.URL, "http") + path
}

func TestHealthEndpoint(t *testing.T) {
	_, _, ts := newTestServer(t, "health")

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /healthz status = %d, want 200", resp.StatusCode)
	}
}

func TestRingStatsEndpoint(t *testing.T) {
	_, device, ts := newTestServer(t, "ringz")

	device.PushMix(make([]float32, 20*2))

	resp, err := http.Get(ts.URL + "/ringz")
	if err != nil {
		t.Fatalf("GET /ringz failed: %v", err)
	}
	defer resp.Body.Close()

	var stats bridge.Stats
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		t.Fatalf("failed to decode ring stats: %v", err)
	}
	if stats.SpeakerTap.BufferedFrames != 20 {
		t.Errorf("speaker tap buffered = %d, want 20", stats.SpeakerTap.BufferedFrames)
	}
	if stats.MicFeed.CapacityFrames != 4096 {
		t.Errorf("mic feed capacity = %d, want 4096", stats.MicFeed.CapacityFrames)
	}
}

func TestFeedEndpointWritesMicRing(t *testing.T) {
	_, device, ts := newTestServer(t, "feed")

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(ts, "/ws/feed"), nil)
	if err != nil {
		t.Fatalf("failed to dial feed endpoint: %v", err)
	}
	defer conn.Close()

	const frameCount = 120
	const channels = 2
	samples := make([]float32, frameCount*channels)
	for i := range samples {
		samples[i] = float32(i) / 100
	}
	if err := conn.WriteMessage(websocket.BinaryMessage, encodePCM(nil, samples)); err != nil {
		t.Fatalf("failed to send pcm message: %v", err)
	}

	// The feed is applied on the server's read loop; poll the device side.
	out := make([]float32, frameCount*channels)
	deadline := time.Now().Add(5 * time.Second)
	for device.Stats().MicFeed.BufferedFrames < frameCount {
		if time.Now().After(deadline) {
			t.Fatalf("mic ring never received %d frames", frameCount)
		}
		time.Sleep(time.Millisecond)
	}
	if got := device.PullInput(out); got != frameCount {
		t.Fatalf("PullInput returned %d, want %d", got, frameCount)
	}
	for i := range samples {
		if out[i] != samples[i] {
			t.Fatalf("sample %d: got %v, want %v", i, out[i], samples[i])
		}
	}
}

func TestFeedEndpointIgnoresMalformedMessages(t *testing.T) {
	_, device, ts := newTestServer(t, "feedbad")

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(ts, "/ws/feed"), nil)
	if err != nil {
		t.Fatalf("failed to dial feed endpoint: %v", err)
	}
	defer conn.Close()

	// Not a whole number of frames; must be dropped without killing the
	// connection.
	if err := conn.WriteMessage(websocket.BinaryMessage, []byte{1, 2, 3}); err != nil {
		t.Fatalf("failed to send malformed message: %v", err)
	}

	samples := make([]float32, 10*2)
	if err := conn.WriteMessage(websocket.BinaryMessage, encodePCM(nil, samples)); err != nil {
		t.Fatalf("failed to send valid message after malformed one: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for device.Stats().MicFeed.BufferedFrames < 10 {
		if time.Now().After(deadline) {
			t.Fatal("valid frames after a malformed message never arrived")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestTapEndpointStreamsMix(t *testing.T) {
	_, device, ts := newTestServer(t, "tap")

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(ts, "/ws/tap"), nil)
	if err != nil {
		t.Fatalf("failed to dial tap endpoint: %v", err)
	}
	defer conn.Close()

	const frameCount = 48
	const channels = 2
	mix := make([]float32, frameCount*channels)
	for i := range mix {
		mix[i] = float32(i%16) - 8
	}
	if got := device.PushMix(mix); got != frameCount {
		t.Fatalf("PushMix returned %d, want %d", got, frameCount)
	}

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	msgType, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("failed to read tap message: %v", err)
	}
	if msgType != websocket.BinaryMessage {
		t.Fatalf("tap message type = %d, want binary", msgType)
	}

	samples, err := decodePCM(data, channels)
	if err != nil {
		t.Fatalf("tap message malformed: %v", err)
	}
	if len(samples) != frameCount*channels {
		t.Fatalf("tap message holds %d samples, want %d", len(samples), frameCount*channels)
	}
	for i := range mix {
		if samples[i] != mix[i] {
			t.Fatalf("sample %d: got %v, want %v", i, samples[i], mix[i])
		}
	}
}

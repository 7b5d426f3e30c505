// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"go.astrophena.name/ytwatch/internal/cli"
	"go.astrophena.name/ytwatch/internal/config"
	"go.astrophena.name/ytwatch/internal/testutil"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func testClient(h http.Handler) *http.Client {
	return &http.Client{
		Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			w := httptest.NewRecorder()
			h.ServeHTTP(w, r)
			return w.Result(), nil
		}),
	}
}

var testNowValue = time.Date(2025, time.January, 15, 12, 0, 0, 0, time.UTC)

type testSub struct {
	channelID string
	title     string
}

type testVideo struct {
	id          string
	title       string
	publishedAt string
	thumbnail   string
}

type sentMessage struct {
	method string
	body   map[string]any
}

// testMux fakes the OAuth, YouTube Data and Telegram Bot APIs.
type testMux struct {
	mux *http.ServeMux

	mu        sync.Mutex
	subs      []testSub
	subsErr   bool
	videos    map[string]*testVideo // by channel ID
	videoErrs map[string]bool       // channel IDs whose lookup fails
	tgStatus  int                   // non-zero fails Telegram sends with this status
	tgBody    string
	sent      []sentMessage
}

func (tm *testMux) sentMessages() []sentMessage {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	return tm.sent
}

func newTestMux(t *testing.T) *testMux {
	tm := &testMux{
		mux:       http.NewServeMux(),
		videos:    make(map[string]*testVideo),
		videoErrs: make(map[string]bool),
	}

	tm.mux.HandleFunc("POST oauth2.googleapis.com/token", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"access_token":"test-token","expires_in":3600}`))
	})

	tm.mux.HandleFunc("GET www.googleapis.com/youtube/v3/subscriptions", func(w http.ResponseWriter, r *http.Request) {
		tm.mu.Lock()
		defer tm.mu.Unlock()
		if tm.subsErr {
			http.Error(w, "subscriptions unavailable", http.StatusInternalServerError)
			return
		}
		var resp struct {
			Items []map[string]any `json:"items"`
		}
		for _, sub := range tm.subs {
			resp.Items = append(resp.Items, map[string]any{
				"snippet": map[string]any{
					"title":      sub.title,
					"resourceId": map[string]any{"channelId": sub.channelID},
				},
			})
		}
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			t.Fatal(err)
		}
	})

	tm.mux.HandleFunc("GET www.googleapis.com/youtube/v3/channels", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("mine") == "true" {
			w.Write([]byte(`{"items": [{"snippet": {"title": "Test Account"}}]}`))
			return
		}
		channelID := r.URL.Query().Get("id")
		tm.mu.Lock()
		defer tm.mu.Unlock()
		if tm.videoErrs[channelID] {
			http.Error(w, "channel lookup failed", http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"items": [{"contentDetails": {"relatedPlaylists": {"uploads": "UU` + channelID + `"}}}]}`))
	})

	tm.mux.HandleFunc("GET www.googleapis.com/youtube/v3/playlistItems", func(w http.ResponseWriter, r *http.Request) {
		channelID := strings.TrimPrefix(r.URL.Query().Get("playlistId"), "UU")
		tm.mu.Lock()
		defer tm.mu.Unlock()
		video := tm.videos[channelID]
		if video == nil {
			w.Write([]byte(`{"items": []}`))
			return
		}
		resp := map[string]any{
			"items": []map[string]any{{
				"snippet": map[string]any{
					"title":       video.title,
					"publishedAt": video.publishedAt,
					"thumbnails":  map[string]any{"high": map[string]any{"url": video.thumbnail}},
				},
				"contentDetails": map[string]any{"videoId": video.id},
			}},
		}
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			t.Fatal(err)
		}
	})

	tm.mux.HandleFunc("GET api.telegram.org/{token}/getMe", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ok":true,"result":{"id":42,"username":"ytwatch_bot"}}`))
	})

	tm.mux.HandleFunc("POST api.telegram.org/{token}/{method}", func(w http.ResponseWriter, r *http.Request) {
		tm.mu.Lock()
		defer tm.mu.Unlock()
		if tm.tgStatus != 0 {
			w.WriteHeader(tm.tgStatus)
			w.Write([]byte(tm.tgBody))
			return
		}
		b, err := io.ReadAll(r.Body)
		if err != nil {
			t.Fatal(err)
		}
		var body map[string]any
		if err := json.Unmarshal(b, &body); err != nil {
			t.Fatal(err)
		}
		tm.sent = append(tm.sent, sentMessage{method: r.PathValue("method"), body: body})
		w.Write([]byte(`{"ok":true}`))
	})

	return tm
}

func testMonitor(t *testing.T, tm *testMux) *monitor {
	return &monitor{
		cfg:      config.Default(),
		stateDir: t.TempDir(),
		httpc:    testClient(tm.mux),
		now:      func() time.Time { return testNowValue },
	}
}

func testEnv() *cli.Env {
	return &cli.Env{
		Getenv: func(name string) string {
			switch name {
			case "YOUTUBE_CLIENT_ID":
				return "client-id"
			case "YOUTUBE_CLIENT_SECRET":
				return "client-secret"
			case "YOUTUBE_REFRESH_TOKEN":
				return "refresh-token"
			case "TELEGRAM_BOT_TOKEN":
				return "test-token"
			case "TELEGRAM_CHAT_ID":
				return "123456"
			}
			return ""
		},
		Stdout: io.Discard,
		Stderr: io.Discard,
	}
}

func TestMissingCredentials(t *testing.T) {
	t.Parallel()

	m := testMonitor(t, newTestMux(t))
	env := testEnv()
	env.Getenv = func(string) string { return "" }

	err := m.Run(context.Background(), env)
	if !errors.Is(err, errMissingCredentials) {
		t.Fatalf("want errMissingCredentials, got %v", err)
	}
}

func TestConnectivityCheck(t *testing.T) {
	t.Parallel()

	tm := newTestMux(t)
	m := testMonitor(t, tm)
	m.test = true

	var stderr bytes.Buffer
	env := testEnv()
	env.Stderr = &stderr

	if err := m.Run(context.Background(), env); err != nil {
		t.Fatal(err)
	}

	out := stderr.String()
	for _, want := range []string{"Test Account", "@ytwatch_bot", "Test message sent."} {
		if !strings.Contains(out, want) {
			t.Errorf("output doesn't mention %q:\n%s", want, out)
		}
	}

	sent := tm.sentMessages()
	if len(sent) != 1 {
		t.Fatalf("want 1 sent message, got %d", len(sent))
	}
	testutil.AssertEqual(t, sent[0].method, "sendMessage")
	testutil.AssertEqual(t, sent[0].body["text"], "✅ ytwatch connected successfully!")
}

func TestListChannels(t *testing.T) {
	t.Parallel()

	tm := newTestMux(t)
	tm.subs = []testSub{
		{channelID: "UC1", title: "Channel One"},
		{channelID: "UC2", title: "Channel Two"},
	}

	m := testMonitor(t, tm)
	m.channels = true

	var stdout bytes.Buffer
	env := testEnv()
	env.Stdout = &stdout

	if err := m.Run(context.Background(), env); err != nil {
		t.Fatal(err)
	}

	out := stdout.String()
	for _, want := range []string{"Channel One", "Channel Two", "never"} {
		if !strings.Contains(out, want) {
			t.Errorf("output doesn't mention %q:\n%s", want, out)
		}
	}
}

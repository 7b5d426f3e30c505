// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package main

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"go.astrophena.name/ytwatch/internal/api/youtube"
	"go.astrophena.name/ytwatch/internal/atomicio"
)

const stateVersion = "1.0.0"

// state is what ytwatch remembers between runs.
type state struct {
	Channels map[string]*channelState `json:"channels"`
	Metadata metadata                 `json:"metadata"`
}

type channelState struct {
	Name                 string `json:"name"`
	LatestVideoID        string `json:"latest_video_id"`
	LatestVideoTimestamp string `json:"latest_video_timestamp"`
	LastChecked          string `json:"last_checked"`
}

type metadata struct {
	LastRun                string `json:"last_run"`
	TotalNotificationsSent int    `json:"total_notifications_sent"`
	Version                string `json:"version"`
}

func defaultState() *state {
	return &state{
		Channels: make(map[string]*channelState),
		Metadata: metadata{Version: stateVersion},
	}
}

func (m *monitor) statePath() string { return filepath.Join(m.stateDir, "state.json") }
func (m *monitor) lockPath() string  { return filepath.Join(m.stateDir, "state.lock") }

// loadState reads the state file. Missing or unreadable state is not fatal:
// ytwatch starts fresh, which at worst re-sends a notification per channel.
func (m *monitor) loadState() *state {
	b, err := os.ReadFile(m.statePath())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			m.slog.Debug("no existing state, starting fresh", "path", m.statePath())
		} else {
			m.slog.Warn("failed to read state, starting fresh", "path", m.statePath(), "err", err)
		}
		return defaultState()
	}

	st := new(state)
	if err := json.Unmarshal(b, st); err != nil {
		m.slog.Warn("failed to parse state, starting fresh", "path", m.statePath(), "err", err)
		return defaultState()
	}
	if st.Channels == nil {
		st.Channels = make(map[string]*channelState)
	}
	if st.Metadata.Version == "" {
		st.Metadata.Version = stateVersion
	}
	return st
}

func (m *monitor) saveState(st *state) error {
	st.Metadata.LastRun = m.now().UTC().Format(time.RFC3339)

	b, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(m.stateDir, 0o700); err != nil {
		return err
	}
	return atomicio.WriteFile(m.statePath(), b, 0o600)
}

func (st *state) upsert(channelID, name string, video *youtube.Video, checkedAt time.Time) {
	cs := st.Channels[channelID]
	if cs == nil {
		cs = new(channelState)
		st.Channels[channelID] = cs
	}
	cs.Name = name
	cs.LatestVideoID = video.ID
	cs.LatestVideoTimestamp = video.PublishedAt
	cs.LastChecked = checkedAt.UTC().Format(time.RFC3339)
}

// isNewVideo reports whether the video differs from the latest one recorded
// for the channel.
func (st *state) isNewVideo(channelID, videoID string) bool {
	cs := st.Channels[channelID]
	return cs == nil || cs.LatestVideoID != videoID
}

// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"go.astrophena.name/ytwatch/internal/api/telegram"
	"go.astrophena.name/ytwatch/internal/api/youtube"
	"go.astrophena.name/ytwatch/internal/cli"
	"go.astrophena.name/ytwatch/internal/filelock"
)

var errAlreadyRunning = errors.New("another instance is already running")

func (m *monitor) run(ctx context.Context, env *cli.Env) error {
	if err := os.MkdirAll(m.stateDir, 0o700); err != nil {
		return err
	}
	lock, err := filelock.Acquire(m.lockPath(), strconv.Itoa(os.Getpid()))
	if err != nil {
		if errors.Is(err, filelock.ErrAlreadyLocked) {
			return errAlreadyRunning
		}
		return err
	}
	defer lock.Release()

	m.stats = &runStats{StartTime: m.now()}
	st := m.loadState()

	subs, err := m.yt.Subscriptions(ctx)
	if err != nil {
		// Without the subscription list there is nothing to check; bail out
		// before touching state.
		return fmt.Errorf("listing subscriptions failed: %w", err)
	}
	if len(subs) == 0 {
		env.Logf("No subscriptions found, nothing to do.")
		return nil
	}

	for _, sub := range subs {
		if err := m.checkChannel(ctx, env, st, sub); err != nil {
			m.stats.Errors++
			m.slog.Error("channel check failed", "channel", sub.Title, "channel_id", sub.ChannelID, "err", err)
		}
	}

	m.stats.Duration = m.now().Sub(m.stats.StartTime)
	m.printSummary(env)

	if m.dry {
		env.Logf("Dry run, not saving state.")
	} else if err := m.saveState(st); err != nil {
		return fmt.Errorf("saving state failed: %w", err)
	}

	// State is saved either way, but failed channels must show up in the exit
	// code.
	if m.stats.Errors > 0 {
		return fmt.Errorf("%d of %d channels failed", m.stats.Errors, m.stats.ChannelsChecked)
	}
	return nil
}

func (m *monitor) checkChannel(ctx context.Context, env *cli.Env, st *state, sub youtube.Subscription) error {
	m.stats.ChannelsChecked++

	video, err := m.yt.LatestVideo(ctx, sub.ChannelID)
	if err != nil {
		return err
	}
	if video == nil {
		m.slog.Debug("channel has no videos", "channel", sub.Title)
		return nil
	}

	if !m.isRecentEnough(video) {
		m.slog.Debug("video is too old", "channel", sub.Title, "video", video.Title, "published_at", video.PublishedAt)
		st.upsert(sub.ChannelID, sub.Title, video, m.now())
		return nil
	}
	if !st.isNewVideo(sub.ChannelID, video.ID) {
		return nil
	}

	m.stats.NewVideosFound++

	if m.dry {
		env.Logf("[dry run] Would notify about %q from %s.", video.Title, sub.Title)
		m.stats.NotificationsSent++
		return nil
	}

	if err := m.tg.Notify(ctx, telegram.Notification{
		ChannelName:  sub.Title,
		VideoTitle:   video.Title,
		VideoID:      video.ID,
		VideoURL:     video.URL,
		PublishedAt:  video.PublishedAt,
		ThumbnailURL: video.ThumbnailURL,
	}); err != nil {
		return fmt.Errorf("sending notification: %w", err)
	}

	// Record the video only after the notification went out, so a failed send
	// is retried on the next run.
	st.upsert(sub.ChannelID, sub.Title, video, m.now())
	st.Metadata.TotalNotificationsSent++
	m.stats.NotificationsSent++
	env.Logf("Notified about %q from %s.", video.Title, sub.Title)

	return nil
}

// isRecentEnough reports whether the video falls into the notification
// window. A video with an unparsable publish time is treated as recent, so a
// broken timestamp doesn't silently swallow notifications.
func (m *monitor) isRecentEnough(video *youtube.Video) bool {
	published, err := time.Parse(time.RFC3339, video.PublishedAt)
	if err != nil {
		m.slog.Warn("unparsable publish time", "video", video.ID, "published_at", video.PublishedAt)
		return true
	}
	return m.now().UTC().Sub(published) <= m.cfg.MaxVideoAge()
}

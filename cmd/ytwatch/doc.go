// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

/*
Ytwatch checks the YouTube channels you are subscribed to for new videos and
sends notifications about them to a Telegram chat.

Each run it fetches your subscriptions, looks up the latest video of every
channel, and notifies you about videos it hasn't seen before. The latest video
of each channel is remembered in a state file, so a video is notified about at
most once, and the state is updated only after the notification went out: a
failed send is retried on the next run. Videos older than a configurable
window (seven days by default) are recorded but never notified about.

Only the latest video per channel is tracked. If a channel publishes several
videos between runs, only the newest one triggers a notification.

Ytwatch expects credentials in the environment:

  - YOUTUBE_CLIENT_ID, YOUTUBE_CLIENT_SECRET, YOUTUBE_REFRESH_TOKEN: OAuth
    credentials of a Google account that granted the youtube.readonly scope.
  - TELEGRAM_BOT_TOKEN: the Telegram bot token.
  - TELEGRAM_CHAT_ID: the chat that receives notifications.

The rest of the configuration is read from a YAML file, config.yaml in the
current directory by default (see the -config flag):

	general:
	  dry_run: false
	youtube:
	  max_video_age_days: 7
	  prefer_rss: false
	telegram:
	  notification_template: "🎬 <b>{channel_name}</b>\n\n<a href=\"{video_url}\">{video_title}</a>\nPublished {time_ago}"
	  parse_mode: HTML
	  disable_web_page_preview: false

State is kept in $STATE_DIRECTORY if set, otherwise in
$XDG_STATE_HOME/ytwatch (~/.local/state/ytwatch by default). A lock file
there prevents two instances from running concurrently.

Run 'ytwatch -test' after setting up credentials to verify that both
connections work.
*/
package main

import (
	_ "embed"

	"go.astrophena.name/ytwatch/internal/cli"
)

//go:embed doc.go
var doc []byte

func init() { cli.SetDocComment(doc) }

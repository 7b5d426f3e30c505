// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package config loads the ytwatch configuration file.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the ytwatch configuration.
type Config struct {
	General  General  `yaml:"general"`
	YouTube  YouTube  `yaml:"youtube"`
	Telegram Telegram `yaml:"telegram"`
}

// General holds options that affect the whole run.
type General struct {
	// DryRun walks all checks but doesn't send notifications or save state.
	DryRun bool `yaml:"dry_run"`
}

// YouTube holds options of the video source.
type YouTube struct {
	// MaxVideoAgeDays is the notification window: videos older than this many
	// days are recorded but never notified. Defaults to 7.
	MaxVideoAgeDays int `yaml:"max_video_age_days"`
	// PreferRSS fetches the latest video from the channel's public Atom feed
	// instead of the Data API, avoiding a per-channel quota cost.
	PreferRSS bool `yaml:"prefer_rss"`
}

// Telegram holds options of the notification sink.
type Telegram struct {
	// NotificationTemplate is the message template. Recognized placeholders:
	// {channel_name}, {video_title}, {video_url}, {time_ago}.
	NotificationTemplate  string `yaml:"notification_template"`
	ParseMode             string `yaml:"parse_mode"`
	DisableWebPagePreview bool   `yaml:"disable_web_page_preview"`
}

// MaxVideoAge returns the notification window as a duration.
func (c *Config) MaxVideoAge() time.Duration {
	return time.Duration(c.YouTube.MaxVideoAgeDays) * 24 * time.Hour
}

// Default returns the configuration defaults.
func Default() *Config {
	return &Config{
		YouTube: YouTube{
			MaxVideoAgeDays: 7,
		},
		Telegram: Telegram{
			NotificationTemplate: "🎬 <b>{channel_name}</b>\n\n<a href=\"{video_url}\">{video_title}</a>\nPublished {time_ago}",
			ParseMode:            "HTML",
		},
	}
}

// Load reads the configuration file at path. A missing file is an error: the
// monitor refuses to run unconfigured.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	c := Default()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parsing config %q: %w", path, err)
	}

	if c.YouTube.MaxVideoAgeDays <= 0 {
		c.YouTube.MaxVideoAgeDays = 7
	}
	if c.Telegram.ParseMode == "" {
		c.Telegram.ParseMode = "HTML"
	}

	return c, nil
}

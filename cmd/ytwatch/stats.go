// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package main

import (
	"encoding/json"
	"fmt"
	"time"

	"go.astrophena.name/ytwatch/internal/cli"
)

// runStats counts what happened during a single run.
type runStats struct {
	ChannelsChecked   int       `json:"channels_checked"`
	NewVideosFound    int       `json:"new_videos_found"`
	NotificationsSent int       `json:"notifications_sent"`
	Errors            int       `json:"errors"`
	StartTime         time.Time `json:"start_time"`

	Duration time.Duration `json:"-"`
	// DurationSeconds mirrors Duration for the JSON summary.
	DurationSeconds float64 `json:"duration_seconds"`
}

func (m *monitor) printSummary(env *cli.Env) {
	m.stats.DurationSeconds = m.stats.Duration.Seconds()

	if m.jsonOutput {
		b, err := json.MarshalIndent(m.stats, "", "  ")
		if err != nil {
			env.Logf("Failed to marshal run summary: %v", err)
			return
		}
		fmt.Fprintln(env.Stdout, string(b))
		return
	}

	env.Logf(
		"Checked %d channels: %d new videos, %d notifications sent, %d errors in %v.",
		m.stats.ChannelsChecked,
		m.stats.NewVideosFound,
		m.stats.NotificationsSent,
		m.stats.Errors,
		m.stats.Duration.Truncate(time.Millisecond),
	)
}

// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package main

import (
	"cmp"
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"text/tabwriter"
	"time"

	"go.astrophena.name/ytwatch/internal/api/telegram"
	"go.astrophena.name/ytwatch/internal/api/youtube"
	"go.astrophena.name/ytwatch/internal/cli"
	"go.astrophena.name/ytwatch/internal/config"
	"go.astrophena.name/ytwatch/internal/request"
)

func main() { cli.Main(new(monitor)) }

type monitor struct {
	// Flags.
	configPath string
	test       bool
	debug      bool
	dry        bool
	channels   bool
	jsonOutput bool

	cfg      *config.Config
	stateDir string
	httpc    *http.Client
	slog     *slog.Logger
	logLevel *slog.LevelVar
	yt       *youtube.Client
	tg       *telegram.Client
	now      func() time.Time
	stats    *runStats

	init    sync.Once
	initErr error
}

func (m *monitor) Flags(fs *flag.FlagSet) {
	fs.StringVar(&m.configPath, "config", "config.yaml", "Load configuration from `path`.")
	fs.BoolVar(&m.test, "test", false, "Verify YouTube and Telegram connectivity, then exit.")
	fs.BoolVar(&m.debug, "debug", false, "Enable debug logging.")
	fs.BoolVar(&m.dry, "dry", false, "Check for new videos, but don't send notifications or save state.")
	fs.BoolVar(&m.channels, "channels", false, "List subscribed channels, then exit.")
	fs.BoolVar(&m.jsonOutput, "json", false, "Print the run summary as JSON.")
}

var errMissingCredentials = errors.New("missing credentials")

func (m *monitor) Run(ctx context.Context, env *cli.Env) error {
	m.init.Do(func() { m.initErr = m.doInit(env) })
	if m.initErr != nil {
		return m.initErr
	}

	switch {
	case m.test:
		return m.testConnections(ctx, env)
	case m.channels:
		return m.listChannels(ctx, env)
	}
	return m.run(ctx, env)
}

func (m *monitor) doInit(env *cli.Env) error {
	if m.now == nil {
		m.now = time.Now
	}
	if m.httpc == nil {
		m.httpc = request.DefaultClient
	}

	m.stateDir = cmp.Or(m.stateDir, env.Getenv("STATE_DIRECTORY"))
	if m.stateDir == "" {
		stateHome := env.Getenv("XDG_STATE_HOME")
		if stateHome == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return err
			}
			stateHome = filepath.Join(home, ".local", "state")
		}
		m.stateDir = filepath.Join(stateHome, "ytwatch")
	}

	if m.cfg == nil {
		cfg, err := config.Load(m.configPath)
		if err != nil {
			return err
		}
		m.cfg = cfg
	}
	if m.cfg.General.DryRun {
		m.dry = true
	}

	var (
		clientID     = env.Getenv("YOUTUBE_CLIENT_ID")
		clientSecret = env.Getenv("YOUTUBE_CLIENT_SECRET")
		refreshToken = env.Getenv("YOUTUBE_REFRESH_TOKEN")
		tgToken      = env.Getenv("TELEGRAM_BOT_TOKEN")
		tgChatID     = env.Getenv("TELEGRAM_CHAT_ID")
	)
	var missing []string
	for _, cred := range []struct{ name, value string }{
		{"YOUTUBE_CLIENT_ID", clientID},
		{"YOUTUBE_CLIENT_SECRET", clientSecret},
		{"YOUTUBE_REFRESH_TOKEN", refreshToken},
		{"TELEGRAM_BOT_TOKEN", tgToken},
		{"TELEGRAM_CHAT_ID", tgChatID},
	} {
		if cred.value == "" {
			missing = append(missing, cred.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s must be set in the environment", errMissingCredentials, strings.Join(missing, ", "))
	}

	scrubber := strings.NewReplacer(
		clientSecret, "[EXPUNGED]",
		refreshToken, "[EXPUNGED]",
		tgToken, "[EXPUNGED]",
	)

	m.logLevel = new(slog.LevelVar)
	if m.debug {
		m.logLevel.Set(slog.LevelDebug)
	}
	m.slog = slog.New(slog.NewTextHandler(env.Stderr, &slog.HandlerOptions{Level: m.logLevel}))

	m.yt = &youtube.Client{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RefreshToken: refreshToken,
		HTTPClient:   m.httpc,
		Scrubber:     scrubber,
		PreferRSS:    m.cfg.YouTube.PreferRSS,
	}
	m.tg = &telegram.Client{
		Token:                 tgToken,
		ChatID:                tgChatID,
		HTTPClient:            m.httpc,
		Scrubber:              scrubber,
		Template:              m.cfg.Telegram.NotificationTemplate,
		ParseMode:             m.cfg.Telegram.ParseMode,
		DisableWebPagePreview: m.cfg.Telegram.DisableWebPagePreview,
		Now:                   m.now,
	}

	return nil
}

func (m *monitor) testConnections(ctx context.Context, env *cli.Env) error {
	title, err := m.yt.TestConnection(ctx)
	if err != nil {
		return fmt.Errorf("YouTube connection failed: %w", err)
	}
	if title != "" {
		env.Logf("YouTube: authenticated as %s.", title)
	} else {
		env.Logf("YouTube: authenticated.")
	}

	me, err := m.tg.Me(ctx)
	if err != nil {
		return fmt.Errorf("Telegram connection failed: %w", err)
	}
	env.Logf("Telegram: connected as @%s.", me.Username)

	if err := m.tg.SendText(ctx, "✅ ytwatch connected successfully!"); err != nil {
		return fmt.Errorf("sending test message: %w", err)
	}
	env.Logf("Test message sent.")

	return nil
}

func (m *monitor) listChannels(ctx context.Context, env *cli.Env) error {
	subs, err := m.yt.Subscriptions(ctx)
	if err != nil {
		return fmt.Errorf("listing subscriptions failed: %w", err)
	}
	if len(subs) == 0 {
		env.Logf("No subscriptions found.")
		return nil
	}

	st := m.loadState()

	w := tabwriter.NewWriter(env.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CHANNEL\tLATEST VIDEO\tLAST CHECKED")
	for _, sub := range subs {
		latest, checked := "-", "never"
		if cs := st.Channels[sub.ChannelID]; cs != nil {
			if cs.LatestVideoID != "" {
				latest = cs.LatestVideoID
			}
			if cs.LastChecked != "" {
				checked = relativeTime(cs.LastChecked, m.now())
			}
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", sub.Title, latest, checked)
	}
	return w.Flush()
}

func relativeTime(ts string, now time.Time) string {
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return ts
	}
	return now.UTC().Sub(t).Truncate(time.Second).String() + " ago"
}

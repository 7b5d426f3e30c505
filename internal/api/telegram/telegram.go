// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package telegram provides a client for sending new video notifications via
// the Telegram Bot API.
package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.astrophena.name/ytwatch/internal/request"
)

const (
	api            = "https://api.telegram.org"
	sendRetryLimit = 5 // attempts to retry a rate-limited send
)

// Client is a Telegram Bot API client bound to a single chat.
type Client struct {
	// Token is the bot token used for authentication.
	Token string
	// ChatID is the chat that receives notifications.
	ChatID string
	// HTTPClient is an optional custom HTTP client object to use for requests.
	// If not provided, request.DefaultClient will be used.
	HTTPClient *http.Client
	// Scrubber is an optional strings.Replacer that scrubs unwanted data from
	// error messages.
	Scrubber *strings.Replacer

	// Template is the notification message template. Recognized placeholders:
	// {channel_name}, {video_title}, {video_url}, {time_ago}.
	Template              string
	ParseMode             string
	DisableWebPagePreview bool

	// Now acts as time.Now, but can be mocked for testing.
	Now func() time.Time
}

// Notification describes a new video to notify the chat about.
type Notification struct {
	ChannelName  string
	VideoTitle   string
	VideoID      string
	VideoURL     string
	PublishedAt  string
	ThumbnailURL string
}

// Notify sends a notification about a new video. When the video has a
// thumbnail, it is sent as a photo with the message as a caption.
func (c *Client) Notify(ctx context.Context, n Notification) error {
	text := c.render(n)

	if n.ThumbnailURL != "" {
		return c.call(ctx, "sendPhoto", &photo{
			ChatID:    c.ChatID,
			Photo:     n.ThumbnailURL,
			Caption:   text,
			ParseMode: c.ParseMode,
		})
	}

	msg := &message{
		ChatID:    c.ChatID,
		Text:      text,
		ParseMode: c.ParseMode,
	}
	msg.LinkPreviewOptions.IsDisabled = c.DisableWebPagePreview
	return c.call(ctx, "sendMessage", msg)
}

// SendText sends a plain text message to the chat.
func (c *Client) SendText(ctx context.Context, text string) error {
	return c.call(ctx, "sendMessage", &message{
		ChatID: c.ChatID,
		Text:   text,
	})
}

// User represents a Telegram bot account.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// Me returns the bot account the token belongs to.
func (c *Client) Me(ctx context.Context) (*User, error) {
	resp, err := request.MakeJSON[struct {
		Result *User `json:"result"`
	}](ctx, request.Params{
		Method:     http.MethodGet,
		URL:        api + "/bot" + c.Token + "/getMe",
		HTTPClient: c.HTTPClient,
		Scrubber:   c.Scrubber,
	})
	if err != nil {
		return nil, err
	}
	return resp.Result, nil
}

// https://core.telegram.org/bots/api#sendmessage
type message struct {
	ChatID             string `json:"chat_id"`
	Text               string `json:"text"`
	ParseMode          string `json:"parse_mode,omitempty"`
	LinkPreviewOptions struct {
		IsDisabled bool `json:"is_disabled"`
	} `json:"link_preview_options"`
}

// https://core.telegram.org/bots/api#sendphoto
type photo struct {
	ChatID    string `json:"chat_id"`
	Photo     string `json:"photo"`
	Caption   string `json:"caption"`
	ParseMode string `json:"parse_mode,omitempty"`
}

func (c *Client) call(ctx context.Context, method string, args any) error {
	var err error
	for range sendRetryLimit {
		_, err = request.MakeJSON[json.RawMessage](ctx, request.Params{
			Method:     http.MethodPost,
			URL:        api + "/bot" + c.Token + "/" + method,
			Body:       args,
			HTTPClient: c.HTTPClient,
			Scrubber:   c.Scrubber,
		})
		if err == nil {
			return nil
		}
		retryable, wait := isRateLimited(err)
		if !retryable {
			break
		}
		time.Sleep(wait)
	}
	return err
}

func isRateLimited(err error) (retryable bool, wait time.Duration) {
	var statusErr *request.StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusTooManyRequests {
		return false, 0
	}

	var errorResponse struct {
		Parameters struct {
			RetryAfter int `json:"retry_after"`
		} `json:"parameters"`
	}
	if err := json.Unmarshal(statusErr.Body, &errorResponse); err != nil {
		return false, 0
	}

	return true, time.Duration(errorResponse.Parameters.RetryAfter) * time.Second
}

func (c *Client) render(n Notification) string {
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	return strings.NewReplacer(
		"{channel_name}", n.ChannelName,
		"{video_title}", n.VideoTitle,
		"{video_url}", n.VideoURL,
		"{time_ago}", timeAgo(n.PublishedAt, now().UTC()),
	).Replace(c.Template)
}

// timeAgo renders the video age in a human-readable form. An unparsable
// timestamp renders as "recently" instead of failing the whole notification.
func timeAgo(publishedAt string, now time.Time) string {
	published, err := time.Parse(time.RFC3339, publishedAt)
	if err != nil {
		return "recently"
	}

	d := now.Sub(published)
	switch {
	case d >= 48*time.Hour:
		return fmt.Sprintf("%d days ago", int(d.Hours()/24))
	case d >= 24*time.Hour:
		return "1 day ago"
	case d >= 2*time.Hour:
		return fmt.Sprintf("%d hours ago", int(d.Hours()))
	case d >= time.Hour:
		return "1 hour ago"
	case d >= 2*time.Minute:
		return fmt.Sprintf("%d minutes ago", int(d.Minutes()))
	case d >= time.Minute:
		return "1 minute ago"
	default:
		return "just now"
	}
}

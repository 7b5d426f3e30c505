// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package youtube provides a client for the YouTube Data API.
//
// To use this package, you need to create a [Client] object with OAuth
// credentials of a user who granted the youtube.readonly scope. Access tokens
// are obtained from the refresh token and cached for the client's lifetime.
package youtube

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.astrophena.name/ytwatch/internal/request"
	"go.astrophena.name/ytwatch/internal/util/syncx"

	"github.com/mmcdole/gofeed"
)

const (
	api      = "https://www.googleapis.com/youtube/v3"
	tokenURL = "https://oauth2.googleapis.com/token"
)

// Client represents a YouTube Data API client.
type Client struct {
	// ClientID and ClientSecret identify the OAuth application.
	ClientID     string
	ClientSecret string
	// RefreshToken is the long-lived OAuth token used to obtain access tokens.
	RefreshToken string
	// HTTPClient is an optional custom HTTP client object to use for requests.
	// If not provided, request.DefaultClient will be used.
	HTTPClient *http.Client
	// Scrubber is an optional strings.Replacer that scrubs unwanted data from
	// error messages.
	Scrubber *strings.Replacer
	// PreferRSS fetches the latest video from the channel's public Atom feed
	// instead of the Data API. See [Client.LatestVideo].
	PreferRSS bool

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time

	parser syncx.Lazy[*gofeed.Parser]
}

// Subscription is a channel the authenticated user is subscribed to.
type Subscription struct {
	ChannelID string
	Title     string
}

// Video is a single published video.
type Video struct {
	ID           string
	Title        string
	URL          string
	PublishedAt  string // as reported by the API, ISO 8601
	ThumbnailURL string
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Renew a minute early so a token doesn't expire mid-call.
	if c.token != "" && time.Now().Before(c.tokenExpiry.Add(-time.Minute)) {
		return c.token, nil
	}

	resp, err := request.MakeJSON[tokenResponse](ctx, request.Params{
		Method: http.MethodPost,
		URL:    tokenURL,
		Form: url.Values{
			"client_id":     {c.ClientID},
			"client_secret": {c.ClientSecret},
			"refresh_token": {c.RefreshToken},
			"grant_type":    {"refresh_token"},
		},
		HTTPClient: c.HTTPClient,
		Scrubber:   c.Scrubber,
	})
	if err != nil {
		return "", err
	}

	c.token = resp.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(resp.ExpiresIn) * time.Second)
	return c.token, nil
}

func makeAPIRequest[Response any](ctx context.Context, c *Client, path string, query url.Values) (Response, error) {
	var resp Response
	tok, err := c.accessToken(ctx)
	if err != nil {
		return resp, err
	}
	return request.MakeJSON[Response](ctx, request.Params{
		Method: http.MethodGet,
		URL:    api + path + "?" + query.Encode(),
		Headers: map[string]string{
			"Authorization": "Bearer " + tok,
		},
		HTTPClient: c.HTTPClient,
		Scrubber:   c.Scrubber,
	})
}

type subscriptionsResponse struct {
	NextPageToken string `json:"nextPageToken"`
	Items         []struct {
		Snippet struct {
			Title      string `json:"title"`
			ResourceID struct {
				ChannelID string `json:"channelId"`
			} `json:"resourceId"`
		} `json:"snippet"`
	} `json:"items"`
}

// Subscriptions returns all channel subscriptions of the authenticated user.
func (c *Client) Subscriptions(ctx context.Context) ([]Subscription, error) {
	var (
		subs      []Subscription
		pageToken string
	)
	for {
		query := url.Values{
			"part":       {"snippet"},
			"mine":       {"true"},
			"maxResults": {"50"},
		}
		if pageToken != "" {
			query.Set("pageToken", pageToken)
		}

		resp, err := makeAPIRequest[subscriptionsResponse](ctx, c, "/subscriptions", query)
		if err != nil {
			return nil, err
		}

		for _, item := range resp.Items {
			subs = append(subs, Subscription{
				ChannelID: item.Snippet.ResourceID.ChannelID,
				Title:     item.Snippet.Title,
			})
		}

		pageToken = resp.NextPageToken
		if pageToken == "" {
			break
		}
	}
	return subs, nil
}

type channelsResponse struct {
	Items []struct {
		Snippet struct {
			Title string `json:"title"`
		} `json:"snippet"`
		ContentDetails struct {
			RelatedPlaylists struct {
				Uploads string `json:"uploads"`
			} `json:"relatedPlaylists"`
		} `json:"contentDetails"`
	} `json:"items"`
}

type playlistItemsResponse struct {
	Items []struct {
		Snippet struct {
			Title       string `json:"title"`
			PublishedAt string `json:"publishedAt"`
			Thumbnails  struct {
				High struct {
					URL string `json:"url"`
				} `json:"high"`
			} `json:"thumbnails"`
		} `json:"snippet"`
		ContentDetails struct {
			VideoID string `json:"videoId"`
		} `json:"contentDetails"`
	} `json:"items"`
}

// LatestVideo returns the most recently published video of the channel, or
// (nil, nil) if the channel has no videos.
func (c *Client) LatestVideo(ctx context.Context, channelID string) (*Video, error) {
	if c.PreferRSS {
		return c.latestFromFeed(ctx, channelID)
	}

	channels, err := makeAPIRequest[channelsResponse](ctx, c, "/channels", url.Values{
		"part": {"contentDetails"},
		"id":   {channelID},
	})
	if err != nil {
		return nil, err
	}
	if len(channels.Items) == 0 {
		return nil, nil
	}
	uploads := channels.Items[0].ContentDetails.RelatedPlaylists.Uploads

	items, err := makeAPIRequest[playlistItemsResponse](ctx, c, "/playlistItems", url.Values{
		"part":       {"snippet,contentDetails"},
		"playlistId": {uploads},
		"maxResults": {"1"},
	})
	if err != nil {
		return nil, err
	}
	if len(items.Items) == 0 {
		return nil, nil
	}

	item := items.Items[0]
	return &Video{
		ID:           item.ContentDetails.VideoID,
		Title:        item.Snippet.Title,
		URL:          "https://www.youtube.com/watch?v=" + item.ContentDetails.VideoID,
		PublishedAt:  item.Snippet.PublishedAt,
		ThumbnailURL: item.Snippet.Thumbnails.High.URL,
	}, nil
}

// TestConnection verifies that the OAuth credentials work by looking up the
// authenticated user's own channel. It returns the channel title, which may
// be empty if the account has no channel.
func (c *Client) TestConnection(ctx context.Context) (string, error) {
	resp, err := makeAPIRequest[channelsResponse](ctx, c, "/channels", url.Values{
		"part": {"snippet"},
		"mine": {"true"},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Items) == 0 {
		return "", nil
	}
	return resp.Items[0].Snippet.Title, nil
}

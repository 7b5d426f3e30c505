// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package youtube

import (
	"context"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
)

const feedURL = "https://www.youtube.com/feeds/videos.xml?channel_id="

// latestFromFeed fetches the latest video from the channel's public Atom
// feed. The feed requires no authentication and no API quota, but exposes
// only the 15 most recent videos and no thumbnail variants.
func (c *Client) latestFromFeed(ctx context.Context, channelID string) (*Video, error) {
	fp := c.parser.Get(func() *gofeed.Parser {
		p := gofeed.NewParser()
		p.Client = c.HTTPClient
		return p
	})

	feed, err := fp.ParseURLWithContext(feedURL+channelID, ctx)
	if err != nil {
		return nil, err
	}
	if len(feed.Items) == 0 {
		return nil, nil
	}

	item := feed.Items[0]
	v := &Video{
		ID:    strings.TrimPrefix(item.GUID, "yt:video:"),
		Title: item.Title,
		URL:   item.Link,
	}
	if item.PublishedParsed != nil {
		v.PublishedAt = item.PublishedParsed.UTC().Format(time.RFC3339)
	}
	if item.Image != nil {
		v.ThumbnailURL = item.Image.URL
	}
	return v, nil
}

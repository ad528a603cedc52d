package render

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/mmcdole/gofeed"

	"github.com/ignite/courier/internal/domain"
	"github.com/ignite/courier/internal/pkg/httpretry"
)

// FeedFetcher pulls an RSS or Atom feed and converts its items into
// campaign blocks, so a draft can be seeded from a blog in one call.
type FeedFetcher struct {
	client *httpretry.RetryClient
	parser *gofeed.Parser
}

// NewFeedFetcher builds a fetcher with retrying HTTP transport.
func NewFeedFetcher() *FeedFetcher {
	return &FeedFetcher{
		client: httpretry.NewRetryClient(nil, 3),
		parser: gofeed.NewParser(),
	}
}

// BlocksFromFeed fetches feedURL and returns up to maxItems feed entries
// as blocks: a text block with a linked title and summary per item, with
// separators between items.
func (f *FeedFetcher) BlocksFromFeed(ctx context.Context, feedURL string, maxItems int) (domain.Blocks, string, error) {
	if maxItems <= 0 {
		maxItems = 5
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("build feed request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("fetch feed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("fetch feed: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, "", fmt.Errorf("read feed: %w", err)
	}

	feed, err := f.parser.ParseString(string(body))
	if err != nil {
		return nil, "", fmt.Errorf("parse feed: %w", err)
	}

	var blocks domain.Blocks
	for i, item := range feed.Items {
		if i >= maxItems {
			break
		}
		if i > 0 {
			blocks = append(blocks, domain.Block{
				ID:   uuid.NewString(),
				Kind: domain.BlockSeparator,
			})
		}
		blocks = append(blocks, itemBlock(item))
	}
	return blocks, feed.Title, nil
}

func itemBlock(item *gofeed.Item) domain.Block {
	title := item.Title
	if item.Link != "" {
		title = fmt.Sprintf(`<a href=%q>%s</a>`, item.Link, item.Title)
	}
	content := fmt.Sprintf("<h3>%s</h3>", title)
	if item.Description != "" {
		content += fmt.Sprintf("<p>%s</p>", item.Description)
	}
	if item.PublishedParsed != nil {
		content += fmt.Sprintf(`<p class="pub-date">%s</p>`,
			item.PublishedParsed.Format(time.DateOnly))
	}
	return domain.Block{
		ID:      uuid.NewString(),
		Kind:    domain.BlockText,
		Content: content,
	}
}

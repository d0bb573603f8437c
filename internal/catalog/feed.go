package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

const maxFeedBytes = 16 << 20

var ErrLoad = errors.New("catalog load failed")

// LoadError wraps a failure to fetch or decode the catalog feed.
type LoadError struct {
	Source string
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load catalog from %s: %v", e.Source, e.Err)
}

func (e *LoadError) Unwrap() []error { return []error{ErrLoad, e.Err} }

// Feed supplies the full catalog. Implementations are read-only.
type Feed interface {
	Fetch(ctx context.Context) ([]Item, error)
	Source() string
}

type staticFeed []Item

// StaticFeed serves a fixed list of items.
func StaticFeed(items ...Item) Feed { return staticFeed(items) }

func (f staticFeed) Fetch(context.Context) ([]Item, error) {
	return append([]Item(nil), f...), nil
}

func (staticFeed) Source() string { return "static" }

// HTTPFeed GETs a JSON array of items.
type HTTPFeed struct {
	URL    string
	Client *http.Client
}

func NewHTTPFeed(url string) *HTTPFeed {
	return &HTTPFeed{
		URL:    url,
		Client: &http.Client{Timeout: 5 * time.Second},
	}
}

func (f *HTTPFeed) Source() string { return f.URL }

func (f *HTTPFeed) Fetch(ctx context.Context) ([]Item, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.URL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	return decodeItems(io.LimitReader(resp.Body, maxFeedBytes))
}

// FileFeed reads a JSON array of items from disk.
type FileFeed struct {
	Path string
}

func (f FileFeed) Source() string { return f.Path }

func (f FileFeed) Fetch(ctx context.Context) ([]Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fh, err := os.Open(f.Path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()

	return decodeItems(io.LimitReader(fh, maxFeedBytes))
}

func decodeItems(r io.Reader) ([]Item, error) {
	var items []Item
	if err := json.NewDecoder(r).Decode(&items); err != nil {
		return nil, fmt.Errorf("decode items: %w", err)
	}
	return items, nil
}

// FeedFor picks a feed from a source string: an http(s) URL or a file path.
func FeedFor(source string) Feed {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		return NewHTTPFeed(source)
	}
	return FileFeed{Path: source}
}

var ErrNotLoaded = errors.New("catalog not loaded")

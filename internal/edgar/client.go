// Package edgar implements the SEC EDGAR filing-index collaborator: CIK
// lookup, company submissions, filing index pages, attachment download and
// the per-company Atom feed.
//
// No API key required. Every request must carry a User-Agent naming the
// requester per SEC policy; the Getter passed to New is responsible for it.
// Rate limit: 10 requests/second per user-agent.
package edgar

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

const (
	// DefaultBaseURL hosts the archives, browse pages and tickers file.
	DefaultBaseURL = "https://www.sec.gov"
	// DefaultDataURL hosts the JSON data API.
	DefaultDataURL = "https://data.sec.gov"
)

// Request kinds, used as metric labels.
const (
	KindTickers     = "tickers"
	KindSubmissions = "submissions"
	KindIndex       = "index"
	KindAttachment  = "attachment"
	KindFeed        = "feed"
)

// Getter fetches raw response bodies. *infra.Fetcher implements it.
type Getter interface {
	Get(ctx context.Context, kind, url string) ([]byte, error)
}

// Client talks to EDGAR through a Getter.
type Client struct {
	get     Getter
	baseURL string
	dataURL string
	log     *zap.Logger
}

// New creates a Client. Empty URLs fall back to the public EDGAR hosts.
func New(get Getter, baseURL, dataURL string, log *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if dataURL == "" {
		dataURL = DefaultDataURL
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		get:     get,
		baseURL: strings.TrimRight(baseURL, "/"),
		dataURL: strings.TrimRight(dataURL, "/"),
		log:     log,
	}
}

// fetchJSON performs a GET request and decodes JSON into dest.
func (c *Client) fetchJSON(ctx context.Context, kind, url string, dest any) error {
	data, err := c.get.Get(ctx, kind, url)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("parse SEC JSON from %s: %w", url, err)
	}
	return nil
}

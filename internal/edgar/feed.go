package edgar

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/mmcdole/gofeed"

	"github.com/seenimoa/form13f/pkg/models"
	"github.com/seenimoa/form13f/pkg/utils"
)

// RecentFilings reads the company browse Atom feed of cik for formType
// (amendments included). The feed is limited to the 40 latest entries.
func (c *Client) RecentFilings(ctx context.Context, cik, formType string) ([]models.FeedEntry, error) {
	q := url.Values{}
	q.Set("action", "getcompany")
	q.Set("CIK", utils.PadCIK(cik))
	q.Set("type", formType)
	q.Set("dateb", "")
	q.Set("owner", "include")
	q.Set("count", "40")
	q.Set("output", "atom")
	u := c.baseURL + "/cgi-bin/browse-edgar?" + q.Encode()

	data, err := c.get.Get(ctx, KindFeed, u)
	if err != nil {
		return nil, fmt.Errorf("sec feed for %s: %w", cik, err)
	}

	feed, err := gofeed.NewParser().Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse SEC feed: %w", err)
	}

	entries := make([]models.FeedEntry, 0, len(feed.Items))
	for _, item := range feed.Items {
		e := models.FeedEntry{
			Title:       strings.TrimSpace(item.Title),
			FormType:    feedForm(item),
			AccessionNo: feedAccession(item.GUID),
			Link:        item.Link,
		}
		switch {
		case item.UpdatedParsed != nil:
			e.FilingDate = utils.Day(*item.UpdatedParsed)
		case item.PublishedParsed != nil:
			e.FilingDate = utils.Day(*item.PublishedParsed)
		}
		if formType != "" && e.FormType != formType && e.FormType != formType+"/A" {
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// feedForm prefers the entry category; the title starts with the form type
// otherwise ("13F-HR  - Quarterly report ...").
func feedForm(item *gofeed.Item) string {
	if len(item.Categories) > 0 && item.Categories[0] != "" {
		return strings.TrimSpace(item.Categories[0])
	}
	title := strings.TrimSpace(item.Title)
	if i := strings.Index(title, " "); i > 0 {
		return title[:i]
	}
	return title
}

// feedAccession extracts the accession number from an entry id such as
// "urn:tag:sec.gov,2008:accession-number=0001067983-24-000017".
func feedAccession(guid string) string {
	const marker = "accession-number="
	if i := strings.Index(guid, marker); i >= 0 {
		return guid[i+len(marker):]
	}
	return ""
}

package edgar

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"path"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/seenimoa/form13f/pkg/models"
)

// Attachment selection strategies.
const (
	// StrategyPosition picks the attachment at a fixed index. On EDGAR's
	// index page the third row of a 13F-HR filing is the information table,
	// usually its rendered copy, but that is an observed convention, not a
	// contract.
	StrategyPosition = "position"
	// StrategyType picks the first raw XML attachment typed INFORMATION
	// TABLE. It is the default.
	StrategyType = "type"
)

// Attachments returns the documents listed on a filing's index page, in page
// order.
func (c *Client) Attachments(ctx context.Context, f models.Filing) ([]models.Attachment, error) {
	u := fmt.Sprintf("%s/%s-index.htm", c.archiveDir(f), f.AccessionNo)
	data, err := c.get.Get(ctx, KindIndex, u)
	if err != nil {
		return nil, fmt.Errorf("sec filing index %s: %w", f.AccessionNo, err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse filing index HTML: %w", err)
	}
	return c.parseIndex(doc), nil
}

// parseIndex reads every row of the index page's document tables. Columns:
// Seq, Description, Document, Type, Size.
func (c *Client) parseIndex(doc *goquery.Document) []models.Attachment {
	var out []models.Attachment
	doc.Find("table.tableFile tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 4 {
			return // header row
		}
		link := cells.Eq(2).Find("a").First()
		href, _ := link.Attr("href")
		name := strings.TrimSpace(link.Text())
		if name == "" {
			name = strings.TrimSpace(cells.Eq(2).Text())
		}
		size, _ := strconv.ParseInt(strings.TrimSpace(cells.Eq(4).Text()), 10, 64)
		raw, rendered := unrender(href)

		out = append(out, models.Attachment{
			Sequence:    strings.TrimSpace(cells.Eq(0).Text()),
			Description: strings.TrimSpace(cells.Eq(1).Text()),
			Document:    name,
			Type:        strings.TrimSpace(cells.Eq(3).Text()),
			Size:        size,
			URL:         c.resolve(raw),
			Rendered:    rendered,
		})
	})
	return out
}

// unrender maps the link of an XSL-rendered copy
// (".../000095012324000001/xslForm13F_X02/46994.xml") to the raw document
// (".../000095012324000001/46994.xml").
func unrender(href string) (string, bool) {
	dir, file := path.Split(href)
	parent, last := path.Split(strings.TrimSuffix(dir, "/"))
	if !strings.HasPrefix(strings.ToLower(last), "xsl") {
		return href, false
	}
	return parent + file, true
}

// resolve turns an index-page href into an absolute URL, unwrapping inline
// XBRL viewer links.
func (c *Client) resolve(href string) string {
	href = strings.TrimPrefix(href, "/ix?doc=")
	if href == "" {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	base, err := url.Parse(c.baseURL + "/")
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}

// Download returns the raw content of an attachment.
func (c *Client) Download(ctx context.Context, a models.Attachment) ([]byte, error) {
	if a.URL == "" {
		return nil, fmt.Errorf("attachment %q has no URL", a.Document)
	}
	data, err := c.get.Get(ctx, KindAttachment, a.URL)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", a.Document, err)
	}
	return data, nil
}

// SelectInformationTable picks the holdings attachment from an index listing.
func SelectInformationTable(atts []models.Attachment, strategy string, index int) (models.Attachment, error) {
	switch strategy {
	case StrategyType, "":
		for _, a := range atts {
			if strings.EqualFold(a.Type, "INFORMATION TABLE") && !a.Rendered &&
				strings.HasSuffix(strings.ToLower(a.Document), ".xml") {
				return a, nil
			}
		}
		return models.Attachment{}, fmt.Errorf("no XML INFORMATION TABLE among %d attachments", len(atts))
	case StrategyPosition:
		if index < 0 || index >= len(atts) {
			return models.Attachment{}, fmt.Errorf("attachment index %d out of range (%d attachments)", index, len(atts))
		}
		return atts[index], nil
	default:
		return models.Attachment{}, fmt.Errorf("unknown attachment strategy %q", strategy)
	}
}

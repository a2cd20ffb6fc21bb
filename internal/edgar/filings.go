package edgar

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/seenimoa/form13f/pkg/models"
	"github.com/seenimoa/form13f/pkg/utils"
)

// Query filters a company's filings.
type Query struct {
	// FormType selects the form and its amendments ("13F-HR" also matches
	// "13F-HR/A").
	FormType string
	// Since drops filings whose report date is before it. Zero keeps all.
	Since time.Time
}

func (q Query) matches(form string) bool {
	return form == q.FormType || form == q.FormType+"/A"
}

// ListFilings returns the filings of cik matching q, in the order EDGAR lists
// them (newest first). The submissions document only carries the most recent
// filings inline; older ones are read from the history files it references.
func (c *Client) ListFilings(ctx context.Context, cik string, q Query) ([]models.Filing, error) {
	padded := utils.PadCIK(cik)
	u := fmt.Sprintf("%s/submissions/CIK%s.json", c.dataURL, padded)

	var resp submissionsResponse
	if err := c.fetchJSON(ctx, KindSubmissions, u, &resp); err != nil {
		return nil, fmt.Errorf("sec submissions for %s: %w", padded, err)
	}

	filings := c.collect(padded, resp.Name, resp.Filings.Recent, q)

	for _, hf := range resp.Filings.Files {
		if !q.Since.IsZero() && hf.FilingTo != "" {
			// Report dates precede filing dates, so a page filed entirely
			// before Since cannot hold a wanted filing.
			if to, err := utils.ParseDate(hf.FilingTo); err == nil && to.Before(q.Since) {
				continue
			}
		}
		var page filingSet
		hu := fmt.Sprintf("%s/submissions/%s", c.dataURL, hf.Name)
		if err := c.fetchJSON(ctx, KindSubmissions, hu, &page); err != nil {
			return nil, fmt.Errorf("sec submissions history %s: %w", hf.Name, err)
		}
		filings = append(filings, c.collect(padded, resp.Name, page, q)...)
	}

	return filings, nil
}

func (c *Client) collect(cik, name string, set filingSet, q Query) []models.Filing {
	var out []models.Filing
	for i, form := range set.Form {
		if !q.matches(form) {
			continue
		}
		acc := at(set.AccessionNumber, i)
		reportDate, err := utils.ParseDate(at(set.ReportDate, i))
		if err != nil {
			c.log.Warn("skipping filing without report date",
				zap.String("accession", acc), zap.String("form", form))
			continue
		}
		if !q.Since.IsZero() && reportDate.Before(q.Since) {
			continue
		}
		filingDate, err := utils.ParseDate(at(set.FilingDate, i))
		if err != nil {
			c.log.Warn("skipping filing without filing date",
				zap.String("accession", acc), zap.String("form", form))
			continue
		}
		out = append(out, models.Filing{
			AccessionNo:     acc,
			CIK:             cik,
			CompanyName:     name,
			FormType:        form,
			ReportDate:      reportDate,
			FilingDate:      filingDate,
			PrimaryDocument: at(set.PrimaryDocument, i),
		})
	}
	return out
}

// archiveDir is the EDGAR archive folder of one filing.
func (c *Client) archiveDir(f models.Filing) string {
	return fmt.Sprintf("%s/Archives/edgar/data/%s/%s",
		c.baseURL, utils.TrimCIK(f.CIK), strings.ReplaceAll(f.AccessionNo, "-", ""))
}

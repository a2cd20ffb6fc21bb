package edgar

import (
	"context"
	"fmt"
	"sort"

	"github.com/seenimoa/form13f/pkg/models"
	"github.com/seenimoa/form13f/pkg/utils"
)

// LookupTicker resolves a ticker symbol to its zero-padded CIK and company
// title using the SEC company tickers file.
func (c *Client) LookupTicker(ctx context.Context, ticker string) (models.CIKMapping, error) {
	u := c.baseURL + "/files/company_tickers.json"
	var tickers map[string]tickerEntry
	if err := c.fetchJSON(ctx, KindTickers, u, &tickers); err != nil {
		return models.CIKMapping{}, fmt.Errorf("fetch company tickers: %w", err)
	}

	sym := utils.NormalizeTicker(ticker)

	// Map iteration order is random; walk keys in order so duplicate tickers
	// resolve the same way every run.
	keys := make([]string, 0, len(tickers))
	for k := range tickers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		entry := tickers[k]
		if utils.NormalizeTicker(entry.Ticker) == sym {
			return models.CIKMapping{
				CIK:    utils.PadCIK(entry.CIK.String()),
				Symbol: sym,
				Name:   entry.Title,
			}, nil
		}
	}
	return models.CIKMapping{}, fmt.Errorf("CIK not found for symbol %s", ticker)
}

// ResolveCIK accepts either a CIK or a ticker and returns the padded CIK.
func (c *Client) ResolveCIK(ctx context.Context, cikOrTicker string) (string, error) {
	if utils.IsNumeric(cikOrTicker) {
		return utils.PadCIK(cikOrTicker), nil
	}
	m, err := c.LookupTicker(ctx, cikOrTicker)
	if err != nil {
		return "", err
	}
	return m.CIK, nil
}

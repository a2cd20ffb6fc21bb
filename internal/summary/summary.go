// Package summary totals consolidated holdings per issuer.
package summary

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"

	"github.com/seenimoa/form13f/pkg/models"
	"github.com/seenimoa/form13f/pkg/utils"
)

// Position is the total holding of one issuer in one period.
type Position struct {
	Issuer string
	Value  int64
	Shares int64
	Rows   int
	// Weight is the share of the period's total value, in percent, rounded
	// to two places.
	Weight decimal.Decimal
}

// Period is the per-issuer breakdown of one report date.
type Period struct {
	ReportDate time.Time
	Total      int64
	Positions  []Position
}

// Summarize groups rows by report date and issuer name. Unset values and
// share counts count as zero. Periods are newest first; positions are sorted
// by value descending, then issuer name.
func Summarize(rows []models.HoldingRow) []Period {
	type key struct {
		date   int64
		issuer string
	}
	totals := make(map[key]*Position)
	periods := make(map[int64]*Period)

	for _, r := range rows {
		issuer := ""
		if r.IssuerName != nil {
			issuer = *r.IssuerName
		}
		d := r.ReportDate.Unix()
		p, ok := periods[d]
		if !ok {
			p = &Period{ReportDate: r.ReportDate}
			periods[d] = p
		}
		k := key{d, issuer}
		pos, ok := totals[k]
		if !ok {
			pos = &Position{Issuer: issuer}
			totals[k] = pos
		}
		pos.Rows++
		if r.Value != nil {
			pos.Value += *r.Value
			p.Total += *r.Value
		}
		if r.ShareCount != nil {
			pos.Shares += *r.ShareCount
		}
	}

	for k, pos := range totals {
		p := periods[k.date]
		if p.Total != 0 {
			pos.Weight = decimal.NewFromInt(pos.Value).
				Mul(decimal.NewFromInt(100)).
				Div(decimal.NewFromInt(p.Total)).
				Round(2)
		}
		p.Positions = append(p.Positions, *pos)
	}

	out := make([]Period, 0, len(periods))
	for _, p := range periods {
		sort.Slice(p.Positions, func(i, j int) bool {
			a, b := p.Positions[i], p.Positions[j]
			if a.Value != b.Value {
				return a.Value > b.Value
			}
			return a.Issuer < b.Issuer
		})
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ReportDate.After(out[j].ReportDate)
	})
	return out
}

// Print writes the top positions of each period as an aligned table. top <= 0
// prints every position.
func Print(w io.Writer, periods []Period, top int) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	for _, p := range periods {
		fmt.Fprintf(tw, "%s\ttotal %d\t\t\t\n", utils.FormatDate(p.ReportDate), p.Total)
		fmt.Fprintln(tw, "issuer\tvalue\tshares\tweight %\t")
		for i, pos := range p.Positions {
			if top > 0 && i >= top {
				break
			}
			fmt.Fprintf(tw, "%s\t%d\t%d\t%s\t\n", pos.Issuer, pos.Value, pos.Shares, pos.Weight.StringFixed(2))
		}
		fmt.Fprintln(tw, "\t\t\t\t")
	}
	return tw.Flush()
}

package reconcile

import (
	"sort"

	"github.com/seenimoa/form13f/pkg/models"
)

// Group partitions filings by report date. Within a group filings are
// ordered by filing date, oldest first, with ties broken by accession
// number; groups are returned newest report date first. A repeated accession
// number keeps its first occurrence.
func Group(filings []models.Filing) ([]models.PeriodGroup, error) {
	if len(filings) == 0 {
		return nil, &InputError{Reason: "no filings found"}
	}

	seen := make(map[string]bool, len(filings))
	byDate := make(map[int64]*models.PeriodGroup)
	for _, f := range filings {
		if seen[f.AccessionNo] {
			continue
		}
		seen[f.AccessionNo] = true

		key := f.ReportDate.Unix()
		g, ok := byDate[key]
		if !ok {
			g = &models.PeriodGroup{ReportDate: f.ReportDate}
			byDate[key] = g
		}
		g.Filings = append(g.Filings, f)
	}

	groups := make([]models.PeriodGroup, 0, len(byDate))
	for _, g := range byDate {
		sort.SliceStable(g.Filings, func(i, j int) bool {
			a, b := g.Filings[i], g.Filings[j]
			if !a.FilingDate.Equal(b.FilingDate) {
				return a.FilingDate.Before(b.FilingDate)
			}
			return a.AccessionNo < b.AccessionNo
		})
		groups = append(groups, *g)
	}
	sort.Slice(groups, func(i, j int) bool {
		return groups[i].ReportDate.After(groups[j].ReportDate)
	})
	return groups, nil
}

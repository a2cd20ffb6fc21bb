package reconcile

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/seenimoa/form13f/pkg/models"
	"github.com/seenimoa/form13f/pkg/utils"
)

// Artifact is an ambiguous table written next to the consolidated output.
type Artifact struct {
	Name       string
	ReportDate time.Time
	Table      *models.HoldingTable
}

// Aggregate is the final output of a run.
type Aggregate struct {
	Rows      []models.HoldingRow
	Artifacts []Artifact
	Results   []*Result
}

// ArtifactName names the k-th (1-based) ambiguous table of a period. The
// extension of base, if any, is dropped.
func ArtifactName(base string, reportDate time.Time, k int) string {
	base = strings.TrimSuffix(base, filepath.Ext(base))
	name := fmt.Sprintf("%s_%s_decision", base, utils.FormatDate(reportDate))
	if k > 1 {
		name = fmt.Sprintf("%s_%d", name, k)
	}
	return name
}

// Combine concatenates the consolidated rows of every result, newest period
// first, and names the ambiguous tables after base. Identical input yields
// identical output.
func Combine(base string, results []*Result) *Aggregate {
	ordered := make([]*Result, 0, len(results))
	for _, r := range results {
		if r != nil {
			ordered = append(ordered, r)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Group.ReportDate.After(ordered[j].Group.ReportDate)
	})

	agg := &Aggregate{Results: ordered}
	for _, r := range ordered {
		agg.Rows = append(agg.Rows, r.Consolidated()...)
		for k, t := range r.Ambiguous {
			agg.Artifacts = append(agg.Artifacts, Artifact{
				Name:       ArtifactName(base, r.Group.ReportDate, k+1),
				ReportDate: r.Group.ReportDate,
				Table:      t,
			})
		}
	}
	return agg
}

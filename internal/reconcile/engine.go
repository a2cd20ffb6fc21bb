// Package reconcile consolidates the 13F filings of one manager into a single
// holdings table per reporting period.
//
// Within a period the first filing is the baseline. Every later filing is
// compared to the baseline row count only: one that is nearly as large
// replaces the main table, one that is small is appended as a patch, and
// anything in between is set aside as ambiguous. The bands are a heuristic.
// With the default thresholds they overlap for every positive baseline, so
// ambiguous is only reached by an empty baseline met by an empty amendment.
package reconcile

import (
	"fmt"

	"github.com/seenimoa/form13f/pkg/models"
)

// Default thresholds.
const (
	DefaultUpper = 0.8
	DefaultLower = 0.2
)

// Class is the outcome for one filing of a period.
type Class string

const (
	Baseline    Class = "baseline"
	Replacement Class = "replacement"
	Patch       Class = "patch"
	Ambiguous   Class = "ambiguous"
	// Failed marks a filing whose table could not be retrieved or extracted.
	// It is ambiguous by failure and leaves the rest of the period untouched.
	Failed Class = "failed"
)

// Classes lists every Class in a stable order.
var Classes = []Class{Baseline, Replacement, Patch, Ambiguous, Failed}

// Decision records how one filing was used.
type Decision struct {
	Filing models.Filing
	Class  Class
	Rows   int
	Err    error
}

// Result is the reconciled state of one period group.
type Result struct {
	Group        models.PeriodGroup
	BaselineRows int
	// Main is nil only when no filing of the period could be extracted.
	Main      *models.HoldingTable
	Patches   []*models.HoldingTable
	Ambiguous []*models.HoldingTable
	Decisions []Decision
}

// Consolidated returns main's rows followed by every patch's rows in append
// order, each tagged with the period's report date. Ambiguous tables are
// never included.
func (r *Result) Consolidated() []models.HoldingRow {
	n := r.Main.Rows()
	for _, p := range r.Patches {
		n += p.Rows()
	}
	rows := make([]models.HoldingRow, 0, n)
	add := func(t *models.HoldingTable) {
		if t == nil {
			return
		}
		for _, rec := range t.Records {
			rows = append(rows, models.HoldingRow{HoldingRecord: rec, ReportDate: r.Group.ReportDate})
		}
	}
	add(r.Main)
	for _, p := range r.Patches {
		add(p)
	}
	return rows
}

// MainDecision returns the decision of the filing that ended up as main.
func (r *Result) MainDecision() (Decision, bool) {
	if r.Main == nil {
		return Decision{}, false
	}
	for i := len(r.Decisions) - 1; i >= 0; i-- {
		d := r.Decisions[i]
		if d.Class == Replacement || d.Class == Baseline {
			return d, true
		}
	}
	return Decision{}, false
}

// Failures returns the decisions of filings that could not be extracted.
func (r *Result) Failures() []Decision {
	var out []Decision
	for _, d := range r.Decisions {
		if d.Class == Failed {
			out = append(out, d)
		}
	}
	return out
}

// TableFunc supplies the holding table of one filing. It is called once per
// filing, in filing date order, and must return the complete table.
type TableFunc func(models.Filing) (*models.HoldingTable, error)

// Engine classifies the filings of a period group.
type Engine struct {
	Upper float64
	Lower float64
}

// NewEngine returns an Engine with the given thresholds. Zero values fall
// back to the defaults.
func NewEngine(upper, lower float64) *Engine {
	if upper == 0 {
		upper = DefaultUpper
	}
	if lower == 0 {
		lower = DefaultLower
	}
	return &Engine{Upper: upper, Lower: lower}
}

// Classify decides how an amendment of n rows relates to a baseline of
// baseline rows. The comparisons are evaluated in order.
func (e *Engine) Classify(n, baseline int) Class {
	switch {
	case float64(n)*e.Upper > float64(baseline):
		return Replacement
	case float64(n)*e.Lower < float64(baseline):
		return Patch
	default:
		return Ambiguous
	}
}

// groupState is the classification state of one period. A fresh value is
// created for every group.
type groupState struct {
	baselineSet  bool
	baselineRows int
	main         *models.HoldingTable
	patches      []*models.HoldingTable
	ambiguous    []*models.HoldingTable
	decisions    []Decision
}

// Reconcile walks the filings of group in order and classifies each one.
// Filings whose table cannot be obtained are recorded as Failed; the first
// filing that does yield a table is the baseline.
func (e *Engine) Reconcile(group models.PeriodGroup, table TableFunc) (*Result, error) {
	if len(group.Filings) == 0 {
		return nil, &InternalError{ReportDate: group.ReportDate, Reason: "empty period group"}
	}

	st := &groupState{}
	for _, f := range group.Filings {
		if !f.ReportDate.Equal(group.ReportDate) {
			return nil, &InternalError{
				ReportDate: group.ReportDate,
				Reason:     fmt.Sprintf("filing %s belongs to another period", f.AccessionNo),
			}
		}

		t, err := table(f)
		if err == nil && t == nil {
			err = fmt.Errorf("no table for %s", f.AccessionNo)
		}
		if err != nil {
			st.decisions = append(st.decisions, Decision{Filing: f, Class: Failed, Err: err})
			continue
		}

		n := t.Rows()
		if !st.baselineSet {
			st.baselineSet = true
			st.baselineRows = n
			st.main = t
			st.decisions = append(st.decisions, Decision{Filing: f, Class: Baseline, Rows: n})
			continue
		}

		class := e.Classify(n, st.baselineRows)
		switch class {
		case Replacement:
			st.main = t
		case Patch:
			st.patches = append(st.patches, t)
		case Ambiguous:
			st.ambiguous = append(st.ambiguous, t)
		}
		st.decisions = append(st.decisions, Decision{Filing: f, Class: class, Rows: n})
	}

	return &Result{
		Group:        group,
		BaselineRows: st.baselineRows,
		Main:         st.main,
		Patches:      st.patches,
		Ambiguous:    st.ambiguous,
		Decisions:    st.decisions,
	}, nil
}

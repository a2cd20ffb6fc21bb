package reconcile

import (
	"errors"
	"fmt"
	"testing"

	"github.com/seenimoa/form13f/pkg/models"
)

// makeTable builds a table of n records whose issuer names carry tag.
func makeTable(f models.Filing, tag string, n int) *models.HoldingTable {
	recs := make([]models.HoldingRecord, n)
	for i := range recs {
		recs[i] = models.HoldingRecord{
			IssuerName: models.Ptr(fmt.Sprintf("%s-%d", tag, i)),
			Value:      models.Ptr(int64(i + 1)),
		}
	}
	return &models.HoldingTable{Filing: f, ReportDate: f.ReportDate, Records: recs}
}

// groupOf builds a period group with one filing per size, filed on
// consecutive days.
func groupOf(report string, sizes ...int) (models.PeriodGroup, map[string]*models.HoldingTable) {
	g := models.PeriodGroup{ReportDate: day(report)}
	tables := map[string]*models.HoldingTable{}
	for i, n := range sizes {
		f := filing(fmt.Sprintf("%s-w%d", report, i), report, "2024-01-01")
		f.FilingDate = f.FilingDate.AddDate(0, 0, i)
		g.Filings = append(g.Filings, f)
		tables[f.AccessionNo] = makeTable(f, f.AccessionNo, n)
	}
	return g, tables
}

func lookup(tables map[string]*models.HoldingTable) TableFunc {
	return func(f models.Filing) (*models.HoldingTable, error) {
		return tables[f.AccessionNo], nil
	}
}

func classes(r *Result) []Class {
	out := make([]Class, len(r.Decisions))
	for i, d := range r.Decisions {
		out[i] = d.Class
	}
	return out
}

func TestClassifyThresholds(t *testing.T) {
	e := NewEngine(DefaultUpper, DefaultLower)
	tests := []struct {
		n, baseline int
		want        Class
	}{
		{130, 100, Replacement}, // 104 > 100
		{80, 100, Patch},        // 64 <= 100, 16 < 100
		{125, 100, Patch},       // 100 is not > 100
		{126, 100, Replacement},
		{30, 100, Patch},
		{55, 100, Patch},
		{0, 100, Patch},
		{100, 100, Patch}, // same size as the baseline: 80 <= 100, 20 < 100
		{1, 0, Replacement},
		{0, 0, Ambiguous},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d_vs_%d", tt.n, tt.baseline), func(t *testing.T) {
			if got := e.Classify(tt.n, tt.baseline); got != tt.want {
				t.Errorf("Classify(%d, %d) = %s, want %s", tt.n, tt.baseline, got, tt.want)
			}
		})
	}
}

// With the default thresholds the replacement and patch bands cover every
// case except an empty amendment against an empty baseline.
func TestClassifyAmbiguousReachability(t *testing.T) {
	e := NewEngine(DefaultUpper, DefaultLower)
	for baseline := 0; baseline <= 300; baseline++ {
		for n := 0; n <= 300; n++ {
			got := e.Classify(n, baseline)
			if got == Ambiguous && (n != 0 || baseline != 0) {
				t.Fatalf("Classify(%d, %d) = ambiguous", n, baseline)
			}
		}
	}
	if got := e.Classify(0, 0); got != Ambiguous {
		t.Errorf("Classify(0, 0) = %s, want ambiguous", got)
	}

	// Thresholds configured with upper below lower open an ambiguous band.
	inverted := NewEngine(0.2, 0.8)
	if got := inverted.Classify(200, 100); got != Ambiguous {
		t.Errorf("inverted Classify(200, 100) = %s, want ambiguous", got)
	}
	if got := inverted.Classify(600, 100); got != Replacement {
		t.Errorf("inverted Classify(600, 100) = %s, want replacement", got)
	}
	if got := inverted.Classify(100, 100); got != Patch {
		t.Errorf("inverted Classify(100, 100) = %s, want patch", got)
	}
}

func TestReconcileSingleFiling(t *testing.T) {
	g, tables := groupOf("2023-12-31", 42)
	r, err := NewEngine(0, 0).Reconcile(g, lookup(tables))
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if r.Main != tables[g.Filings[0].AccessionNo] {
		t.Error("single filing should be main")
	}
	if len(r.Consolidated()) != 42 {
		t.Errorf("consolidated rows = %d", len(r.Consolidated()))
	}
	if len(r.Patches) != 0 || len(r.Ambiguous) != 0 {
		t.Error("expected no patches or ambiguous tables")
	}
}

func TestReconcileReplacement(t *testing.T) {
	g, tables := groupOf("2023-09-30", 100, 130)
	r, err := NewEngine(DefaultUpper, DefaultLower).Reconcile(g, lookup(tables))
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if r.Main != tables[g.Filings[1].AccessionNo] {
		t.Error("130-row amendment should replace main")
	}
	rows := r.Consolidated()
	if len(rows) != 130 {
		t.Fatalf("consolidated rows = %d, want 130", len(rows))
	}
	for _, row := range rows {
		if !row.ReportDate.Equal(g.ReportDate) {
			t.Fatalf("row tagged %v", row.ReportDate)
		}
	}
	// No rows of the superseded baseline survive.
	if *rows[0].IssuerName != g.Filings[1].AccessionNo+"-0" {
		t.Errorf("first row = %s", *rows[0].IssuerName)
	}
}

func TestReconcilePatchBelowUpper(t *testing.T) {
	g, tables := groupOf("2023-09-30", 100, 80)
	r, err := NewEngine(DefaultUpper, DefaultLower).Reconcile(g, lookup(tables))
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if got := classes(r); got[1] != Patch {
		t.Fatalf("classes = %v", got)
	}
	if len(r.Consolidated()) != 180 {
		t.Errorf("consolidated rows = %d, want 180", len(r.Consolidated()))
	}
}

func TestReconcilePatches(t *testing.T) {
	g, tables := groupOf("2023-06-30", 100, 90, 30)
	r, err := NewEngine(DefaultUpper, DefaultLower).Reconcile(g, lookup(tables))
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}

	want := []Class{Baseline, Patch, Patch}
	got := classes(r)
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("classes = %v, want %v", got, want)
		}
	}

	rows := r.Consolidated()
	if len(rows) != 220 {
		t.Fatalf("consolidated rows = %d, want 220", len(rows))
	}
	// Main first, then patches in append order.
	if *rows[0].IssuerName != g.Filings[0].AccessionNo+"-0" ||
		*rows[100].IssuerName != g.Filings[1].AccessionNo+"-0" ||
		*rows[190].IssuerName != g.Filings[2].AccessionNo+"-0" {
		t.Error("rows are not ordered main then patches")
	}
}

func TestReconcileFixedBaseline(t *testing.T) {
	// The 200-row replacement does not move the baseline: the 130-row filing
	// is still compared with 100 and replaces again.
	g, tables := groupOf("2023-03-31", 100, 200, 130, 55)
	r, err := NewEngine(DefaultUpper, DefaultLower).Reconcile(g, lookup(tables))
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	want := []Class{Baseline, Replacement, Replacement, Patch}
	got := classes(r)
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("classes = %v, want %v", got, want)
		}
	}
	if r.BaselineRows != 100 {
		t.Errorf("baseline rows = %d", r.BaselineRows)
	}
	if r.Main != tables[g.Filings[2].AccessionNo] {
		t.Error("last replacement should be main")
	}
	if len(r.Consolidated()) != 185 {
		t.Errorf("consolidated rows = %d, want 185", len(r.Consolidated()))
	}

	d, ok := r.MainDecision()
	if !ok || d.Filing.AccessionNo != g.Filings[2].AccessionNo {
		t.Errorf("main decision = %+v", d)
	}
}

func TestReconcileExactlyOneMain(t *testing.T) {
	for _, sizes := range [][]int{
		{10},
		{10, 20, 30, 40},
		{100, 10, 500, 3, 0},
		{0, 0, 0},
	} {
		g, tables := groupOf("2024-03-31", sizes...)
		r, err := NewEngine(DefaultUpper, DefaultLower).Reconcile(g, lookup(tables))
		if err != nil {
			t.Fatalf("Reconcile(%v): %v", sizes, err)
		}
		if r.Main == nil {
			t.Fatalf("Reconcile(%v): no main", sizes)
		}
		if len(r.Decisions) != len(sizes) {
			t.Errorf("Reconcile(%v): %d decisions", sizes, len(r.Decisions))
		}
		mains := 0
		for _, d := range r.Decisions {
			if d.Class == Baseline {
				mains++
			}
		}
		if mains != 1 {
			t.Errorf("Reconcile(%v): %d baselines", sizes, mains)
		}
	}
}

func TestReconcileAmbiguous(t *testing.T) {
	g, tables := groupOf("2022-12-31", 0, 0, 0)
	r, err := NewEngine(DefaultUpper, DefaultLower).Reconcile(g, lookup(tables))
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if len(r.Ambiguous) != 2 {
		t.Fatalf("ambiguous = %d, want 2", len(r.Ambiguous))
	}
	if r.Ambiguous[0].Filing.AccessionNo != g.Filings[1].AccessionNo {
		t.Error("ambiguous tables should keep filing order")
	}
	if r.Main != tables[g.Filings[0].AccessionNo] || len(r.Patches) != 0 {
		t.Error("ambiguous filings must not touch main or patches")
	}
}

func TestReconcileFailedFilings(t *testing.T) {
	g, tables := groupOf("2023-12-31", 5, 100, 60)
	broken := g.Filings[0].AccessionNo
	get := func(f models.Filing) (*models.HoldingTable, error) {
		if f.AccessionNo == broken {
			return nil, errors.New("malformed XML")
		}
		return tables[f.AccessionNo], nil
	}

	r, err := NewEngine(DefaultUpper, DefaultLower).Reconcile(g, get)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	want := []Class{Failed, Baseline, Patch}
	got := classes(r)
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("classes = %v, want %v", got, want)
		}
	}
	if r.BaselineRows != 100 {
		t.Errorf("baseline rows = %d, want 100", r.BaselineRows)
	}
	if len(r.Consolidated()) != 160 {
		t.Errorf("consolidated rows = %d", len(r.Consolidated()))
	}
	if f := r.Failures(); len(f) != 1 || f[0].Err == nil {
		t.Errorf("failures = %+v", f)
	}
}

func TestReconcileAllFailed(t *testing.T) {
	g, _ := groupOf("2023-12-31", 1, 2)
	r, err := NewEngine(0, 0).Reconcile(g, func(models.Filing) (*models.HoldingTable, error) {
		return nil, nil
	})
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if r.Main != nil || len(r.Consolidated()) != 0 {
		t.Error("expected no main table")
	}
	if len(r.Failures()) != 2 {
		t.Errorf("failures = %d", len(r.Failures()))
	}
	if _, ok := r.MainDecision(); ok {
		t.Error("no main decision expected")
	}
}

func TestReconcileInternalErrors(t *testing.T) {
	e := NewEngine(0, 0)

	_, err := e.Reconcile(models.PeriodGroup{ReportDate: day("2023-12-31")}, nil)
	var intErr *InternalError
	if !errors.As(err, &intErr) {
		t.Fatalf("empty group: expected *InternalError, got %v", err)
	}

	g, tables := groupOf("2023-12-31", 1)
	g.Filings = append(g.Filings, filing("stray", "2023-09-30", "2024-02-01"))
	if _, err := e.Reconcile(g, lookup(tables)); !errors.As(err, &intErr) {
		t.Fatalf("mixed group: expected *InternalError, got %v", err)
	}
}

func TestReconcileGroupsAreIndependent(t *testing.T) {
	e := NewEngine(DefaultUpper, DefaultLower)

	// A large first period must not leak its baseline into the next.
	g1, t1 := groupOf("2023-12-31", 1000, 10)
	g2, t2 := groupOf("2023-09-30", 10, 13)

	r1, err := e.Reconcile(g1, lookup(t1))
	if err != nil {
		t.Fatal(err)
	}
	r2, err := e.Reconcile(g2, lookup(t2))
	if err != nil {
		t.Fatal(err)
	}
	if classes(r1)[1] != Patch {
		t.Errorf("period 1 classes = %v", classes(r1))
	}
	if r2.BaselineRows != 10 || classes(r2)[1] != Replacement {
		t.Errorf("period 2 baseline = %d classes = %v", r2.BaselineRows, classes(r2))
	}
}

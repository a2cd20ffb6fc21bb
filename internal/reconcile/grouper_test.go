package reconcile

import (
	"errors"
	"testing"
	"time"

	"github.com/seenimoa/form13f/pkg/models"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func filing(acc, report, filed string) models.Filing {
	return models.Filing{
		AccessionNo: acc,
		CIK:         "0001067983",
		FormType:    "13F-HR",
		ReportDate:  day(report),
		FilingDate:  day(filed),
	}
}

func accessions(fs []models.Filing) []string {
	out := make([]string, len(fs))
	for i, f := range fs {
		out[i] = f.AccessionNo
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestGroupEmpty(t *testing.T) {
	_, err := Group(nil)
	var inErr *InputError
	if !errors.As(err, &inErr) {
		t.Fatalf("expected *InputError, got %v", err)
	}
}

func TestGroup(t *testing.T) {
	filings := []models.Filing{
		filing("a3", "2023-09-30", "2023-12-01"),
		filing("b1", "2023-12-31", "2024-02-14"),
		filing("a1", "2023-09-30", "2023-11-14"),
		filing("a2", "2023-09-30", "2023-11-20"),
		filing("c1", "2023-06-30", "2023-08-14"),
	}

	groups, err := Group(filings)
	if err != nil {
		t.Fatalf("Group: %v", err)
	}
	if len(groups) != 3 {
		t.Fatalf("got %d groups, want 3", len(groups))
	}

	wantDates := []string{"2023-12-31", "2023-09-30", "2023-06-30"}
	for i, g := range groups {
		if !g.ReportDate.Equal(day(wantDates[i])) {
			t.Errorf("group %d report date = %v, want %s", i, g.ReportDate, wantDates[i])
		}
		for _, f := range g.Filings {
			if !f.ReportDate.Equal(g.ReportDate) {
				t.Errorf("filing %s in wrong group", f.AccessionNo)
			}
		}
	}

	if got := accessions(groups[1].Filings); !equalStrings(got, []string{"a1", "a2", "a3"}) {
		t.Errorf("filing order = %v", got)
	}
}

func TestGroupPartition(t *testing.T) {
	filings := []models.Filing{
		filing("x1", "2022-03-31", "2022-05-16"),
		filing("x2", "2022-03-31", "2022-05-16"),
		filing("x1", "2022-03-31", "2022-06-01"), // duplicate accession
		filing("y1", "2021-12-31", "2022-02-14"),
	}

	groups, err := Group(filings)
	if err != nil {
		t.Fatalf("Group: %v", err)
	}

	total := 0
	seen := map[string]int{}
	for _, g := range groups {
		if len(g.Filings) == 0 {
			t.Error("empty group")
		}
		total += len(g.Filings)
		for _, f := range g.Filings {
			seen[f.AccessionNo]++
		}
	}
	if total != 3 {
		t.Errorf("total filings = %d, want 3", total)
	}
	for acc, n := range seen {
		if n != 1 {
			t.Errorf("accession %s appears %d times", acc, n)
		}
	}

	// Equal filing dates fall back to accession order; the first x1 is kept.
	first := groups[0].Filings
	if got := accessions(first); !equalStrings(got, []string{"x1", "x2"}) {
		t.Errorf("tie order = %v", got)
	}
	if !first[0].FilingDate.Equal(day("2022-05-16")) {
		t.Errorf("duplicate accession replaced the first occurrence")
	}
}

// Package output writes consolidated holdings as CSV files.
package output

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/seenimoa/form13f/internal/reconcile"
	"github.com/seenimoa/form13f/pkg/models"
	"github.com/seenimoa/form13f/pkg/utils"
)

// Header is the column order of every file written.
var Header = []string{
	"issuer_name",
	"security_class",
	"security_id",
	"value",
	"share_count",
	"share_type",
	"discretion_code",
	"report_date",
}

// Paths lists the files written by Write.
type Paths struct {
	Main      string
	Ambiguous []string
}

// Write stores the consolidated table at dir/name and each ambiguous table at
// dir/ambiguousDir/<artifact>.csv.
func Write(dir, name, ambiguousDir string, agg *reconcile.Aggregate) (Paths, error) {
	var paths Paths

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return paths, fmt.Errorf("create output dir: %w", err)
	}
	paths.Main = filepath.Join(dir, name)
	if err := WriteFile(paths.Main, agg.Rows); err != nil {
		return paths, err
	}

	if len(agg.Artifacts) == 0 {
		return paths, nil
	}
	sideDir := filepath.Join(dir, ambiguousDir)
	if err := os.MkdirAll(sideDir, 0o755); err != nil {
		return paths, fmt.Errorf("create ambiguous dir: %w", err)
	}
	for _, a := range agg.Artifacts {
		p := filepath.Join(sideDir, a.Name+".csv")
		if err := WriteFile(p, TableRows(a.Table)); err != nil {
			return paths, err
		}
		paths.Ambiguous = append(paths.Ambiguous, p)
	}
	return paths, nil
}

// WriteFile writes rows to path, replacing any existing file.
func WriteFile(path string, rows []models.HoldingRow) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := WriteCSV(f, rows); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

// WriteCSV writes the header and one line per row. Unset fields are empty
// cells.
func WriteCSV(w io.Writer, rows []models.HoldingRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, r := range rows {
		if err := cw.Write([]string{
			str(r.IssuerName),
			str(r.SecurityClass),
			str(r.SecurityID),
			num(r.Value),
			num(r.ShareCount),
			str(r.ShareType),
			str(r.DiscretionCode),
			utils.FormatDate(r.ReportDate),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// TableRows tags every record of t with its report date.
func TableRows(t *models.HoldingTable) []models.HoldingRow {
	if t == nil {
		return nil
	}
	rows := make([]models.HoldingRow, len(t.Records))
	for i, rec := range t.Records {
		rows[i] = models.HoldingRow{HoldingRecord: rec, ReportDate: t.ReportDate}
	}
	return rows
}

func str(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func num(n *int64) string {
	if n == nil {
		return ""
	}
	return strconv.FormatInt(*n, 10)
}

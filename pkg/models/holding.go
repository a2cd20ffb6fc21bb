package models

import "time"

// HoldingRecord is one reported position of an information table. A nil
// field means the source entry did not carry that node.
type HoldingRecord struct {
	IssuerName     *string `json:"issuer_name"`
	SecurityClass  *string `json:"security_class"`
	SecurityID     *string `json:"security_id"` // CUSIP
	Value          *int64  `json:"value"`       // whole dollars after normalization
	ShareCount     *int64  `json:"share_count"`
	ShareType      *string `json:"share_type"` // "SH" or "PRN"
	DiscretionCode *string `json:"discretion_code"`
}

// HoldingTable is the ordered list of records extracted from exactly one
// filing, tagged with that filing's report date.
type HoldingTable struct {
	Filing     Filing          `json:"filing"`
	ReportDate time.Time       `json:"report_date"`
	Records    []HoldingRecord `json:"records"`
}

// Rows returns the record count, records with unset fields included.
func (t *HoldingTable) Rows() int {
	if t == nil {
		return 0
	}
	return len(t.Records)
}

// PeriodGroup is the set of filings sharing one report date, oldest filing
// first.
type PeriodGroup struct {
	ReportDate time.Time `json:"report_date"`
	Filings    []Filing  `json:"filings"`
}

// HoldingRow is one consolidated output row: a record plus the report date of
// the period it was consolidated into.
type HoldingRow struct {
	HoldingRecord
	ReportDate time.Time `json:"report_date"`
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}

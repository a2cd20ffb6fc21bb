package models

import "time"

// --- SEC Filings ---

// Filing identifies one regulatory submission as listed by the EDGAR
// submissions index. Filings are read-only once listed.
type Filing struct {
	AccessionNo     string    `json:"accession_no"`
	CIK             string    `json:"cik"`
	CompanyName     string    `json:"company_name,omitempty"`
	FormType        string    `json:"form_type"` // "13F-HR", "13F-HR/A"
	ReportDate      time.Time `json:"report_date"`
	FilingDate      time.Time `json:"filing_date"`
	PrimaryDocument string    `json:"primary_document,omitempty"`
}

// IsAmendment reports whether the form type marks an amendment.
func (f Filing) IsAmendment() bool {
	n := len(f.FormType)
	return n >= 2 && f.FormType[n-2:] == "/A"
}

// Attachment is one document listed on a filing's index page, in the order
// EDGAR lists them.
type Attachment struct {
	Sequence    string `json:"sequence"`
	Description string `json:"description"`
	Document    string `json:"document"`
	Type        string `json:"type"`
	Size        int64  `json:"size"`
	URL         string `json:"url"`
	// Rendered marks an HTML copy EDGAR renders from an XML document with an
	// XSL stylesheet. URL then points at the raw XML it was rendered from.
	Rendered bool `json:"rendered,omitempty"`
}

// CIKMapping represents a mapping from ticker to CIK number.
type CIKMapping struct {
	CIK    string `json:"cik"`
	Symbol string `json:"symbol,omitempty"`
	Name   string `json:"name"`
}

// FeedEntry is one filing announced on a company's EDGAR Atom feed.
type FeedEntry struct {
	Title       string    `json:"title"`
	FormType    string    `json:"form_type"`
	AccessionNo string    `json:"accession_no,omitempty"`
	FilingDate  time.Time `json:"filing_date"`
	Link        string    `json:"link"`
}

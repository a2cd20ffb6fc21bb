package edgar

import "encoding/json"

// --- EDGAR Submissions (data.sec.gov/submissions) ---

// submissionsResponse is the response from the company submissions endpoint.
type submissionsResponse struct {
	CIK     string         `json:"cik"`
	Name    string         `json:"name"`
	Tickers []string       `json:"tickers"`
	Filings filingsSection `json:"filings"`
}

type filingsSection struct {
	Recent filingSet     `json:"recent"`
	Files  []historyFile `json:"files"`
}

// filingSet holds parallel arrays, one element per filing. History files
// use the same shape at their top level.
type filingSet struct {
	AccessionNumber []string `json:"accessionNumber"`
	FilingDate      []string `json:"filingDate"`
	ReportDate      []string `json:"reportDate"`
	Form            []string `json:"form"`
	PrimaryDocument []string `json:"primaryDocument"`
}

type historyFile struct {
	Name        string `json:"name"`
	FilingCount int    `json:"filingCount"`
	FilingFrom  string `json:"filingFrom"`
	FilingTo    string `json:"filingTo"`
}

// --- CIK / Ticker Mapping ---

// tickerEntry is a row from company_tickers.json, which is a map
// {"0": {cik_str, ticker, title}, ...}. cik_str is a JSON number.
type tickerEntry struct {
	CIK    json.Number `json:"cik_str"`
	Ticker string      `json:"ticker"`
	Title  string      `json:"title"`
}

// at returns element i of s, or "" when s is shorter.
func at(s []string, i int) string {
	if i < len(s) {
		return s[i]
	}
	return ""
}

// Package extract turns a 13F information table document into a
// HoldingTable.
package extract

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html/charset"

	"github.com/seenimoa/form13f/pkg/models"
)

// ThousandsCutoff is the first report date whose values are filed in whole
// dollars. Earlier filings report values in thousands.
var ThousandsCutoff = time.Date(2022, 10, 1, 0, 0, 0, 0, time.UTC)

// ExtractionError reports an attachment that could not be read as an
// information table.
type ExtractionError struct {
	AccessionNo string
	Reason      string
	Err         error
}

func (e *ExtractionError) Error() string {
	msg := fmt.Sprintf("extract %s: %s", e.AccessionNo, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// Element names are matched without namespace, so both plain documents and
// the prefixed ones EDGAR serves (ns1:infoTable) decode.
type informationTable struct {
	XMLName xml.Name    `xml:"informationTable"`
	Rows    []infoTable `xml:"infoTable"`
}

type infoTable struct {
	NameOfIssuer         *string `xml:"nameOfIssuer"`
	TitleOfClass         *string `xml:"titleOfClass"`
	Cusip                *string `xml:"cusip"`
	Value                *string `xml:"value"`
	SshPrnamt            *string `xml:"shrsOrPrnAmt>sshPrnamt"`
	SshPrnamtType        *string `xml:"shrsOrPrnAmt>sshPrnamtType"`
	InvestmentDiscretion *string `xml:"investmentDiscretion"`
}

// Extract parses data as the information table of f. Values of filings
// reported before ThousandsCutoff are scaled to dollars. Absent fields stay
// nil.
func Extract(f models.Filing, data []byte) (*models.HoldingTable, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, &ExtractionError{AccessionNo: f.AccessionNo, Reason: "empty document"}
	}

	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.CharsetReader = charset.NewReaderLabel

	var doc informationTable
	if err := dec.Decode(&doc); err != nil {
		reason := "malformed XML"
		var unexpected xml.UnmarshalError
		if errors.As(err, &unexpected) {
			reason = "missing informationTable root"
		}
		return nil, &ExtractionError{AccessionNo: f.AccessionNo, Reason: reason, Err: err}
	}

	scale := int64(1)
	if f.ReportDate.Before(ThousandsCutoff) {
		scale = 1000
	}

	records := make([]models.HoldingRecord, 0, len(doc.Rows))
	for i, row := range doc.Rows {
		value, err := parseAmount(row.Value)
		if err != nil {
			return nil, &ExtractionError{
				AccessionNo: f.AccessionNo,
				Reason:      fmt.Sprintf("infoTable %d: value", i+1),
				Err:         err,
			}
		}
		shares, err := parseAmount(row.SshPrnamt)
		if err != nil {
			return nil, &ExtractionError{
				AccessionNo: f.AccessionNo,
				Reason:      fmt.Sprintf("infoTable %d: sshPrnamt", i+1),
				Err:         err,
			}
		}
		if value != nil {
			if *value > math.MaxInt64/scale || *value < math.MinInt64/scale {
				return nil, &ExtractionError{
					AccessionNo: f.AccessionNo,
					Reason:      fmt.Sprintf("infoTable %d: value", i+1),
					Err:         fmt.Errorf("%d overflows when scaled by %d", *value, scale),
				}
			}
			*value *= scale
		}
		records = append(records, models.HoldingRecord{
			IssuerName:     text(row.NameOfIssuer),
			SecurityClass:  text(row.TitleOfClass),
			SecurityID:     text(row.Cusip),
			Value:          value,
			ShareCount:     shares,
			ShareType:      text(row.SshPrnamtType),
			DiscretionCode: text(row.InvestmentDiscretion),
		})
	}

	return &models.HoldingTable{
		Filing:     f,
		ReportDate: f.ReportDate,
		Records:    records,
	}, nil
}

// text trims an element's content. Missing and blank elements are unset.
func text(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func parseAmount(s *string) (*int64, error) {
	v := text(s)
	if v == nil {
		return nil, nil
	}
	n, err := strconv.ParseInt(strings.ReplaceAll(*v, ",", ""), 10, 64)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

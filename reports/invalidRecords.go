package reports

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/prpo_backend/models"
	"github.com/xuri/excelize/v2"
)

const invalidSheet = "Sheet1"

var invalidHeadings = []string{
	"PR #", "PR LINE #", "PO #", "PO LINE #", "AQ ID", "PRODUCT NAME", "SITE", "CATEGORY", "DESCRIPTION",
}

const XlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func invalidCellValues(r models.InvalidRecord) []interface{} {
	return []interface{}{
		r.PrNbr,
		r.PrLineNbr,
		r.PoNbr,
		r.PoLineNbr,
		r.AqId,
		r.ProductName,
		r.SiteName,
		string(r.Category),
		r.Description,
	}
}

// InvalidRecordsWorkbook renders the invalid records of one batch as an xlsx workbook.
func InvalidRecordsWorkbook(records []models.InvalidRecord) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetRow(invalidSheet, "A1", &invalidHeadings); err != nil {
		return nil, err
	}
	for i, r := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		values := invalidCellValues(r)
		if err := f.SetSheetRow(invalidSheet, cell, &values); err != nil {
			return nil, err
		}
	}
	if err := f.SetColWidth(invalidSheet, "A", "G", 16); err != nil {
		return nil, err
	}
	if err := f.SetColWidth(invalidSheet, "H", "I", 40); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// InvalidRecordsObjectName is where the workbook of a batch is archived.
func InvalidRecordsObjectName(doc models.DocumentType, label string, at time.Time) string {
	return fmt.Sprintf("invalid/%s/%s_%s.xlsx", strings.ToLower(string(doc)), label, at.Format("20060102T150405"))
}

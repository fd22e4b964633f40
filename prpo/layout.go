package prpo

import (
	"strconv"
	"time"

	"bitbucket.org/mmdatafocus/prpo_backend/models"
	"bitbucket.org/mmdatafocus/prpo_backend/utils"
)

var prHeaders = []string{
	"PURCHASE_REQUISITION_NBR", "PURCH_REQ_LINE_NBR", "PR_STATUS_DESCRIPTION", "COMPANY_CODE",
	"CURRENCY_CODE", "REQUEST_DATE", "MATERIAL_DESCRIPTION", "TOTAL_AMOUNT", "PRICE_PER_UNIT",
	"QUANTITY", "MODEL_NUMBER", "AQ_ID", "PROJECT_NBR", "SPEND_TYPE_CODE", "FUNCTIONAL_LOCATION_CODE",
	"SPEND_TYPE_DESCRIPTION", "FUNCTIONAL_LOCATION_DESCRIPTION", "DESTINATION", "VENDOR_NUMBER",
	"VENDOR_NAME", "INITIATOR", "COST_CENTER_NBR", "RECORD_TYPE",
}

var poHeaders = []string{
	"PURCHASE_ORDER_NUMBER", "PURCH_ORDER_LINE_NBR", "MATERIAL_DESCRIPTION", "COMPANY_CODE",
	"TRACKING_NO", "PO_QUANTITY", "NET_PRICE", "NET_VALUE", "EFFECTIVE_VALUE", "EAPPROVAL_PR_NBR",
	"EAPPROVAL_PR_LINE_NBR", "NAME_OF_INITIATOR", "VENDOR_NAME", "FUNCTIONAL_LOCATION", "PROJECT_NBR",
	"AQID", "PO_STATUS", "SPEND_TYPE_CODE", "SPEND_TYPE_DESC", "CURRENCY", "ORDER_UNIT",
	"ORDER_PRICE_UNIT", "GR_QUANTITY", "RECORD_TYPE", "PO_DATE", "PO_ITEM_DELETED_FLAG",
}

// lineRecords are the writes one row can cause.
type lineRecords struct {
	primary   models.LineItem
	staging   models.Record
	file      *models.PrPoFile
	prNbr     string
	prLineNbr string
	poNbr     string
	poLineNbr string
}

// layout is what differs between the two document types.
type layout struct {
	doc           models.DocumentType
	headers       []string
	numberCol     string
	lineCol       string
	productCol    string
	siteCol       string
	aqidCol       string
	spendTypeCol  string
	recordTypeCol string
	// a delete of a line never loaded is kept, already cancelled
	insertCancelledOnUnknownDelete bool
	build                          func(row Row, id models.Identity, res Resolved, rt models.RecordType, now time.Time) lineRecords
}

var prLayout = layout{
	doc:           models.DocumentTypePr,
	headers:       prHeaders,
	numberCol:     "PURCHASE_REQUISITION_NBR",
	lineCol:       "PURCH_REQ_LINE_NBR",
	productCol:    "PROJECT_NBR",
	siteCol:       "FUNCTIONAL_LOCATION_CODE",
	aqidCol:       "AQ_ID",
	spendTypeCol:  "SPEND_TYPE_DESCRIPTION",
	recordTypeCol: "RECORD_TYPE",
	build:         buildPr,
}

var poLayout = layout{
	doc:                            models.DocumentTypePo,
	headers:                        poHeaders,
	numberCol:                      "PURCHASE_ORDER_NUMBER",
	lineCol:                        "PURCH_ORDER_LINE_NBR",
	productCol:                     "PROJECT_NBR",
	siteCol:                        "FUNCTIONAL_LOCATION",
	aqidCol:                        "AQID",
	spendTypeCol:                   "SPEND_TYPE_DESC",
	recordTypeCol:                  "RECORD_TYPE",
	insertCancelledOnUnknownDelete: true,
	build:                          buildPo,
}

func layoutFor(doc models.DocumentType) layout {
	if doc == models.DocumentTypePo {
		return poLayout
	}
	return prLayout
}

// RequiredHeaders lists the columns a batch of the given type must carry.
func RequiredHeaders(doc models.DocumentType) []string {
	h := layoutFor(doc).headers
	out := make([]string, len(h))
	copy(out, h)
	return out
}

func checkHeaders(l layout, header []string) error {
	present := make(map[string]struct{}, len(header))
	for _, h := range header {
		present[h] = struct{}{}
	}
	var missing []string
	for _, h := range l.headers {
		if _, ok := present[h]; !ok {
			missing = append(missing, h)
		}
	}
	if len(missing) > 0 {
		return &HeaderMismatchError{DocumentType: l.doc, Missing: missing}
	}
	return nil
}

func (l layout) identity(row Row) (models.Identity, bool) {
	nbr := row.Get(l.numberCol)
	line, err := strconv.Atoi(row.Get(l.lineCol))
	if nbr == "" || err != nil {
		return models.Identity{}, false
	}
	return models.Identity{DocumentNumber: nbr, LineNumber: line}, true
}

func buildPr(row Row, id models.Identity, res Resolved, rt models.RecordType, now time.Time) lineRecords {
	line := models.PrLine{
		PrNbr:                         id.DocumentNumber,
		PrLineNbr:                     id.LineNumber,
		PrStatusDesc:                  row.Get("PR_STATUS_DESCRIPTION"),
		CompanyCode:                   row.Get("COMPANY_CODE"),
		CurrencyCode:                  row.Get("CURRENCY_CODE"),
		RequestDate:                   utils.ParseDate(row.Get("REQUEST_DATE")),
		MaterialDescription:           row.Get("MATERIAL_DESCRIPTION"),
		TotalAmount:                   utils.DecimalOrZero(row.Get("TOTAL_AMOUNT")),
		PricePerUnit:                  utils.DecimalOrZero(row.Get("PRICE_PER_UNIT")),
		Quantity:                      utils.DecimalOrZero(row.Get("QUANTITY")),
		ModelNumber:                   row.Get("MODEL_NUMBER"),
		AqId:                          row.Get("AQ_ID"),
		ProjectNbr:                    row.Get("PROJECT_NBR"),
		SpendTypeCode:                 row.Get("SPEND_TYPE_CODE"),
		FunctionalLocationCode:        row.Get("FUNCTIONAL_LOCATION_CODE"),
		SpendTypeDescription:          row.Get("SPEND_TYPE_DESCRIPTION"),
		FunctionalLocationDescription: row.Get("FUNCTIONAL_LOCATION_DESCRIPTION"),
		Destination:                   row.Get("DESTINATION"),
		VendorNumber:                  row.Get("VENDOR_NUMBER"),
		VendorName:                    row.Get("VENDOR_NAME"),
		Initiator:                     row.Get("INITIATOR"),
		CostCenterNbr:                 row.Get("COST_CENTER_NBR"),
		Resolution:                    res.resolution(rt, now),
	}
	return lineRecords{
		primary: &models.PrLineItem{PrLine: line, StatusId: models.StatusActive},
		staging: &models.PrRawLineItem{
			PrLine:        line,
			GhProductName: utils.NilIfEmpty(res.ProductName()),
			GhSite:        utils.NilIfEmpty(res.SiteName),
		},
		file: &models.PrPoFile{
			PrNbr:     id.DocumentNumber,
			PrLineNbr: row.Get("PURCH_REQ_LINE_NBR"),
			Created:   now,
		},
		prNbr:     id.DocumentNumber,
		prLineNbr: row.Get("PURCH_REQ_LINE_NBR"),
	}
}

func buildPo(row Row, id models.Identity, res Resolved, rt models.RecordType, now time.Time) lineRecords {
	line := models.PoLine{
		PoNbr:                id.DocumentNumber,
		PoLineNbr:            id.LineNumber,
		MaterialDescription:  row.Get("MATERIAL_DESCRIPTION"),
		CompanyCode:          row.Get("COMPANY_CODE"),
		TrackingNo:           row.Get("TRACKING_NO"),
		PoQuantity:           utils.DecimalOrZero(row.Get("PO_QUANTITY")),
		NetPrice:             utils.DecimalOrZero(row.Get("NET_PRICE")),
		NetValue:             utils.DecimalOrZero(row.Get("NET_VALUE")),
		EffectiveValue:       utils.DecimalOrZero(row.Get("EFFECTIVE_VALUE")),
		PrNbr:                row.Get("EAPPROVAL_PR_NBR"),
		PrLineNbr:            row.Get("EAPPROVAL_PR_LINE_NBR"),
		Initiator:            row.Get("NAME_OF_INITIATOR"),
		VendorName:           row.Get("VENDOR_NAME"),
		FunctionalLocation:   row.Get("FUNCTIONAL_LOCATION"),
		ProjectNbr:           row.Get("PROJECT_NBR"),
		AqId:                 row.Get("AQID"),
		PoStatus:             row.Get("PO_STATUS"),
		SpendTypeCode:        row.Get("SPEND_TYPE_CODE"),
		SpendTypeDescription: row.Get("SPEND_TYPE_DESC"),
		Currency:             row.Get("CURRENCY"),
		OrderUnit:            row.Get("ORDER_UNIT"),
		OrderPriceUnit:       utils.DecimalOrZero(row.Get("ORDER_PRICE_UNIT")),
		GrQuantity:           utils.DecimalOrZero(row.Get("GR_QUANTITY")),
		PoDate:               utils.ParseDate(row.Get("PO_DATE")),
		PoItemDeletedFlag:    row.Get("PO_ITEM_DELETED_FLAG"),
		Resolution:           res.resolution(rt, now),
	}
	return lineRecords{
		primary: &models.PoLineItem{PoLine: line, StatusId: models.StatusActive},
		staging: &models.PoRawLineItem{
			PoLine:        line,
			GhProductName: utils.NilIfEmpty(res.ProductName()),
			GhSite:        utils.NilIfEmpty(res.SiteName),
		},
		file: &models.PrPoFile{
			PoNbr:     id.DocumentNumber,
			PoLineNbr: row.Get("PURCH_ORDER_LINE_NBR"),
			PrNbr:     line.PrNbr,
			PrLineNbr: line.PrLineNbr,
			Created:   now,
		},
		prNbr:     line.PrNbr,
		prLineNbr: line.PrLineNbr,
		poNbr:     id.DocumentNumber,
		poLineNbr: row.Get("PURCH_ORDER_LINE_NBR"),
	}
}

package prpo

import (
	"context"
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/prpo_backend/models"
	"bitbucket.org/mmdatafocus/prpo_backend/prpo/prpotest"
	"github.com/sirupsen/logrus"
)

var fixedNow = time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)

// newFixtureStore holds one resolvable product, site and equipment:
// PRJ-5 -> 5, SITE-2 -> 2, 12345-01 -> (9, 1), with (5, 2) allowed.
func newFixtureStore() *prpotest.MemStore {
	store := prpotest.NewMemStore()
	store.AddProduct("PRJ-5", 5, "Product Five")
	store.AddSite("SITE-2", 2, "Site Two")
	store.AddEquipment(models.Aqid{BaseId: "12345", Version: "01"}, models.EquipmentRef{EquipmentId: 9, EquipmentDbId: 1})
	store.AllowSite(5, 2)
	store.Automation[5] = fixedNow.AddDate(1, 0, 0)
	return store
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func newTestProcessor(store Store) *Processor {
	return NewProcessor(store, WithClock(func() time.Time { return fixedNow }), WithLogger(quietLogger()))
}

func prRow(nbr string, line string, recordType string, overrides map[string]string) Row {
	row := Row{}
	for _, h := range prHeaders {
		row[h] = ""
	}
	row["PURCHASE_REQUISITION_NBR"] = nbr
	row["PURCH_REQ_LINE_NBR"] = line
	row["PR_STATUS_DESCRIPTION"] = "Approved"
	row["QUANTITY"] = "10"
	row["AQ_ID"] = "12345-01"
	row["PROJECT_NBR"] = "PRJ-5"
	row["FUNCTIONAL_LOCATION_CODE"] = "SITE-2"
	row["SPEND_TYPE_DESCRIPTION"] = "EQ"
	row["RECORD_TYPE"] = recordType
	for k, v := range overrides {
		row[k] = v
	}
	return row
}

func poRow(nbr string, line string, recordType string, overrides map[string]string) Row {
	row := Row{}
	for _, h := range poHeaders {
		row[h] = ""
	}
	row["PURCHASE_ORDER_NUMBER"] = nbr
	row["PURCH_ORDER_LINE_NBR"] = line
	row["PO_QUANTITY"] = "4"
	row["AQID"] = "12345-01"
	row["PROJECT_NBR"] = "PRJ-5"
	row["FUNCTIONAL_LOCATION"] = "SITE-2"
	row["SPEND_TYPE_DESC"] = "EQ"
	row["RECORD_TYPE"] = recordType
	for k, v := range overrides {
		row[k] = v
	}
	return row
}

func processPr(t *testing.T, store *prpotest.MemStore, rows ...Row) *FileResult {
	t.Helper()
	return processBatch(t, store, models.DocumentTypePr, rows...)
}

func processPo(t *testing.T, store *prpotest.MemStore, rows ...Row) *FileResult {
	t.Helper()
	return processBatch(t, store, models.DocumentTypePo, rows...)
}

func processBatch(t *testing.T, store *prpotest.MemStore, doc models.DocumentType, rows ...Row) *FileResult {
	t.Helper()
	batch := Batch{DocumentType: doc, Label: string(doc) + "_batch.txt", SourcePath: "/inbox/" + string(doc) + "_batch.txt"}
	result, err := newTestProcessor(store).ProcessFile(context.Background(), batch, NewSliceSource(RequiredHeaders(doc), rows...))
	if err != nil {
		t.Fatalf("ProcessFile: %v", err)
	}
	return result
}

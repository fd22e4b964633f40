package prpo

import (
	"context"
	"errors"
	"strings"
	"testing"

	"bitbucket.org/mmdatafocus/prpo_backend/models"
	"bitbucket.org/mmdatafocus/prpo_backend/prpo/prpotest"
	"github.com/shopspring/decimal"
)

func TestProcessFileInsertsEligibleRow(t *testing.T) {
	store := newFixtureStore()

	result := processPr(t, store, prRow("P100", "1", "I", nil))

	item := store.PrItem("P100", 1)
	if item == nil {
		t.Fatalf("expected line item P100:1 to be inserted")
	}
	if item.StatusId != models.StatusActive {
		t.Fatalf("status = %d, want %d", item.StatusId, models.StatusActive)
	}
	if *item.GhProductId != 5 || *item.GhSiteId != 2 || *item.GhEquipmentId != 9 || *item.GhEquipmentDbId != 1 {
		t.Fatalf("unexpected resolution %+v", item.Resolution)
	}
	if !item.Quantity.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("quantity = %s, want 10", item.Quantity)
	}
	if len(store.Ledger[models.DocumentTypePr]) != 0 {
		t.Fatalf("expected no ledger entries, got %d", len(store.Ledger[models.DocumentTypePr]))
	}
	if result.Counters.Loaded != 1 || result.Counters.Added != 1 || result.Counters.Issues != 0 {
		t.Fatalf("unexpected counters %+v", result.Counters)
	}
	if len(store.Logs) != 1 || store.Logs[0].NumNewRecsAdded != 1 {
		t.Fatalf("expected one process log with one added record, got %+v", store.Logs)
	}
	if len(store.Files) != 1 || store.Files[0].FileName != "PR_batch.txt" {
		t.Fatalf("expected one file record for PR_batch.txt, got %+v", store.Files)
	}
}

func TestProcessFileInvalidSiteCreatesLedgerEntry(t *testing.T) {
	store := newFixtureStore()
	delete(store.ValidSites, models.ProductSite{ProductId: 5, SiteId: 2})

	result := processPr(t, store, prRow("P100", "1", "I", nil))

	if store.PrItem("P100", 1) == nil {
		t.Fatalf("expected the line item to be written regardless of validity")
	}
	entry, ok := store.Ledger[models.DocumentTypePr][models.Identity{DocumentNumber: "P100", LineNumber: 1}]
	if !ok {
		t.Fatalf("expected a ledger entry")
	}
	if entry.Record.Category != models.InvalidCategoryProductSite || entry.Status != models.StatusActive {
		t.Fatalf("unexpected ledger entry %+v", entry)
	}
	if entry.Record.Description != "PRJ-5 and SITE-2 are not valid MP site in ghDS." {
		t.Fatalf("description = %q", entry.Record.Description)
	}
	if len(result.Invalid) != 1 || result.Invalid[0].ProductName != "Product Five" || result.Invalid[0].SiteName != "Site Two" {
		t.Fatalf("unexpected invalid report %+v", result.Invalid)
	}
	if result.Counters.InvalidAdded != 1 {
		t.Fatalf("InvalidAdded = %d, want 1", result.Counters.InvalidAdded)
	}
}

func TestProcessFileSiteRuleWinsOverRelease(t *testing.T) {
	store := newFixtureStore()
	delete(store.ValidSites, models.ProductSite{ProductId: 5, SiteId: 2})
	store.AddZeroRelease(models.ConsolidationKey{ProductId: 5, SiteId: 2, EquipmentId: 9, EquipmentDbId: 1})

	result := processPr(t, store, prRow("P100", "1", "I", nil))

	if len(result.Invalid) != 1 || result.Invalid[0].Category != models.InvalidCategoryProductSite {
		t.Fatalf("expected the site category, got %+v", result.Invalid)
	}
}

func TestProcessFileLedgerLifecycle(t *testing.T) {
	store := newFixtureStore()
	key := models.ConsolidationKey{ProductId: 5, SiteId: 2, EquipmentId: 9, EquipmentDbId: 1}
	store.AddZeroRelease(key)
	id := models.Identity{DocumentNumber: "P100", LineNumber: 1}

	processPr(t, store, prRow("P100", "1", "I", nil))
	entry := store.Ledger[models.DocumentTypePr][id]
	if entry == nil || entry.Record.Category != models.InvalidCategoryKprRelease {
		t.Fatalf("expected a release ledger entry, got %+v", entry)
	}
	if entry.Record.Description != "No KPR release for: 12345-01" {
		t.Fatalf("description = %q", entry.Record.Description)
	}

	// still invalid: the single entry is updated
	result := processPr(t, store, prRow("P100", "1", "U", nil))
	if result.Counters.InvalidUpdated != 1 || len(store.Ledger[models.DocumentTypePr]) != 1 {
		t.Fatalf("expected one updated ledger entry, counters %+v", result.Counters)
	}

	// valid again: the entry is resolved, not removed
	delete(store.Releases, key)
	result = processPr(t, store, prRow("P100", "1", "U", nil))
	entry = store.Ledger[models.DocumentTypePr][id]
	if entry == nil || entry.Status != models.StatusInactive {
		t.Fatalf("expected a resolved ledger entry, got %+v", entry)
	}
	if result.Counters.Resolved != 1 || len(result.Invalid) != 0 {
		t.Fatalf("unexpected result %+v", result.Counters)
	}

	// invalid once more: reactivated in place
	store.AddZeroRelease(key)
	processPr(t, store, prRow("P100", "1", "U", nil))
	if len(store.Ledger[models.DocumentTypePr]) != 1 || store.Ledger[models.DocumentTypePr][id].Status != models.StatusActive {
		t.Fatalf("expected the single ledger entry to be active again")
	}
}

func TestProcessFileReplayUpdates(t *testing.T) {
	store := newFixtureStore()

	processPr(t, store, prRow("P100", "1", "I", nil))
	result := processPr(t, store, prRow("P100", "1", "I", map[string]string{"QUANTITY": "12"}))

	if len(store.Items[models.DocumentTypePr]) != 1 {
		t.Fatalf("expected one line item, got %d", len(store.Items[models.DocumentTypePr]))
	}
	if result.Counters.Added != 0 || result.Counters.Updated != 1 {
		t.Fatalf("unexpected counters %+v", result.Counters)
	}
	item := store.PrItem("P100", 1)
	if !item.Quantity.Equal(decimal.NewFromInt(12)) || item.Updated == nil {
		t.Fatalf("expected the latest row to win, got qty %s updated %v", item.Quantity, item.Updated)
	}
	if result.Counters.RawUpdated != 1 || result.Counters.RawInserted != 0 {
		t.Fatalf("expected the staging copy to be updated, counters %+v", result.Counters)
	}
}

func TestProcessFileDuplicateIdentityInOneFile(t *testing.T) {
	store := newFixtureStore()

	result := processPr(t, store,
		prRow("P100", "1", "I", nil),
		prRow("P100", "1", "I", map[string]string{"QUANTITY": "7"}),
	)

	if len(store.Items[models.DocumentTypePr]) != 1 {
		t.Fatalf("expected one line item, got %d", len(store.Items[models.DocumentTypePr]))
	}
	if !store.PrItem("P100", 1).Quantity.Equal(decimal.NewFromInt(7)) {
		t.Fatalf("expected the second row to win")
	}
	if result.Counters.Added != 1 || result.Counters.Updated != 1 {
		t.Fatalf("unexpected counters %+v", result.Counters)
	}
	if len(store.Staging[models.DocumentTypePr]) != 1 {
		t.Fatalf("expected one staging row")
	}
}

func TestProcessFileCancelsKnownIdentity(t *testing.T) {
	store := newFixtureStore()

	processPr(t, store, prRow("P100", "1", "I", nil))
	result := processPr(t, store, prRow("P100", "1", "D", nil))

	item := store.PrItem("P100", 1)
	if item == nil {
		t.Fatalf("cancelled row must not be removed")
	}
	if item.StatusId != models.StatusInactive || item.RecordType != models.RecordTypeDelete {
		t.Fatalf("expected D/0, got %s/%d", item.RecordType, item.StatusId)
	}
	if result.Counters.Cancelled != 1 {
		t.Fatalf("Cancelled = %d, want 1", result.Counters.Cancelled)
	}
}

func TestProcessFileInsertThenDeleteInOneFile(t *testing.T) {
	store := newFixtureStore()

	result := processPr(t, store,
		prRow("P100", "1", "I", nil),
		prRow("P100", "1", "D", nil),
	)

	item := store.PrItem("P100", 1)
	if item == nil || item.StatusId != models.StatusInactive || item.RecordType != models.RecordTypeDelete {
		t.Fatalf("expected the later delete to cancel the row, got %+v", item)
	}
	if result.Counters.Added != 1 || result.Counters.Cancelled != 1 || result.Counters.IgnoredDeletes != 0 {
		t.Fatalf("unexpected counters %+v", result.Counters)
	}
}

func TestProcessFileInvalidThenValidInOneFile(t *testing.T) {
	store := newFixtureStore()
	store.AddSite("SITE-3", 3, "Site Three")
	id := models.Identity{DocumentNumber: "P100", LineNumber: 1}

	result := processPr(t, store,
		prRow("P100", "1", "I", map[string]string{"FUNCTIONAL_LOCATION_CODE": "SITE-3"}),
		prRow("P100", "1", "U", nil),
	)

	entry := store.Ledger[models.DocumentTypePr][id]
	if entry == nil || entry.Status != models.StatusInactive {
		t.Fatalf("expected the ledger entry to be resolved by the later row, got %+v", entry)
	}
	if result.Counters.InvalidAdded != 1 || result.Counters.Resolved != 1 {
		t.Fatalf("unexpected counters %+v", result.Counters)
	}
	if item := store.PrItem("P100", 1); item == nil || *item.GhSiteId != 2 {
		t.Fatalf("expected the later row to win, got %+v", item)
	}
}

func TestProcessFileUnknownDelete(t *testing.T) {
	store := newFixtureStore()

	prResult := processPr(t, store, prRow("P200", "1", "D", nil))
	if store.PrItem("P200", 1) != nil {
		t.Fatalf("PR delete of an unknown identity must be ignored")
	}
	if prResult.Counters.IgnoredDeletes != 1 {
		t.Fatalf("IgnoredDeletes = %d, want 1", prResult.Counters.IgnoredDeletes)
	}
	if len(store.Staging[models.DocumentTypePr]) != 1 {
		t.Fatalf("the staging copy is kept for every row")
	}

	processPo(t, store, poRow("4500", "10", "D", nil))
	item := store.PoItem("4500", 10)
	if item == nil || item.StatusId != models.StatusInactive {
		t.Fatalf("PO delete of an unknown identity must insert a cancelled row, got %+v", item)
	}
}

func TestProcessFileIneligibleRow(t *testing.T) {
	store := newFixtureStore()
	processPr(t, store, prRow("P100", "1", "I", nil))

	result := processPr(t, store,
		prRow("P100", "1", "U", map[string]string{"FUNCTIONAL_LOCATION_CODE": "NOWHERE"}),
		prRow("P300", "1", "I", map[string]string{"FUNCTIONAL_LOCATION_CODE": "NOWHERE"}),
	)

	item := store.PrItem("P100", 1)
	if item.StatusId != models.StatusInactive || item.RecordType != models.RecordTypeNoMatch {
		t.Fatalf("expected C/0 for a known ineligible row, got %s/%d", item.RecordType, item.StatusId)
	}
	if store.PrItem("P300", 1) != nil {
		t.Fatalf("an unknown ineligible row must not be inserted")
	}
	if result.Counters.NoMatch != 1 {
		t.Fatalf("NoMatch = %d, want 1", result.Counters.NoMatch)
	}
	if got := result.Diagnostics.Sites(); got != "NOWHERE (P100-1)\nNOWHERE (P300-1)\n" {
		t.Fatalf("site diagnostics = %q", got)
	}
	if len(store.Staging[models.DocumentTypePr]) != 2 {
		t.Fatalf("expected both rows staged, got %d", len(store.Staging[models.DocumentTypePr]))
	}
	if len(result.Invalid) != 0 {
		t.Fatalf("ineligible rows are not scored for validity")
	}
}

func TestProcessFileSiteSentinel(t *testing.T) {
	store := newFixtureStore()
	store.AllowSite(5, 0)

	processPr(t, store, prRow("P100", "1", "I", map[string]string{"FUNCTIONAL_LOCATION_CODE": SiteSentinel}))

	item := store.PrItem("P100", 1)
	if item == nil || *item.GhSiteId != 0 {
		t.Fatalf("expected site 0 for the sentinel, got %+v", item)
	}
}

func TestProcessFileEquipmentDiagnostics(t *testing.T) {
	store := newFixtureStore()
	store.AddEquipment(models.Aqid{BaseId: "777", Version: "02"},
		models.EquipmentRef{EquipmentId: 1, EquipmentDbId: 1},
		models.EquipmentRef{EquipmentId: 2, EquipmentDbId: 1},
	)

	result := processPr(t, store,
		prRow("P100", "1", "I", map[string]string{"AQ_ID": "777-02"}),
		prRow("P100", "2", "I", map[string]string{"AQ_ID": "BAD"}),
		prRow("P100", "3", "I", map[string]string{"AQ_ID": ""}),
		prRow("P100", "4", "I", map[string]string{"AQ_ID": "777-02"}),
	)

	if len(store.Items[models.DocumentTypePr]) != 0 {
		t.Fatalf("no row should be eligible")
	}
	want := "777-02 (P100-1)\nBAD (P100-2)\n777-02 (P100-4)\n"
	if got := result.Diagnostics.Equipment(); got != want {
		t.Fatalf("equipment diagnostics = %q, want %q", got, want)
	}
	if store.EquipmentLookups != 1 {
		t.Fatalf("expected one memoized lookup, got %d", store.EquipmentLookups)
	}
	if result.Counters.Issues != 1 {
		t.Fatalf("Issues = %d, want 1 for the empty AQ_ID", result.Counters.Issues)
	}
	if !strings.Contains(result.Log.Description, "aq_id not found in gh_bom_equipment:\n777-02 (P100-1)") {
		t.Fatalf("process log description = %q", result.Log.Description)
	}
}

func TestProcessFileRetroSuffix(t *testing.T) {
	store := newFixtureStore()
	store.AddEquipment(models.Aqid{BaseId: "12345", Version: "01", Type: "R"}, models.EquipmentRef{EquipmentId: 11, EquipmentDbId: 1})

	result := processPr(t, store, prRow("P100", "1", "I", map[string]string{"SPEND_TYPE_DESCRIPTION": "RETRO"}))

	item := store.PrItem("P100", 1)
	if item == nil || *item.GhEquipmentId != 11 {
		t.Fatalf("expected the retro equipment, got %+v", item)
	}
	if result.Counters.Added != 1 {
		t.Fatalf("unexpected counters %+v", result.Counters)
	}
}

func TestProcessFileSpendTypeNotAllowed(t *testing.T) {
	store := newFixtureStore()

	processPr(t, store, prRow("P100", "1", "I", map[string]string{"SPEND_TYPE_DESCRIPTION": "OPEX"}))

	if store.PrItem("P100", 1) != nil {
		t.Fatalf("a disallowed spend type must not create a line item")
	}
}

func TestProcessFileUnknownRecordType(t *testing.T) {
	store := newFixtureStore()

	result := processPr(t, store, prRow("P100", "1", "X", nil))

	if len(store.Items[models.DocumentTypePr]) != 0 || len(store.Staging[models.DocumentTypePr]) != 0 {
		t.Fatalf("an unknown record type must not be written")
	}
	if result.Counters.Issues != 1 {
		t.Fatalf("Issues = %d, want 1", result.Counters.Issues)
	}
}

func TestProcessFileHeaderMismatch(t *testing.T) {
	store := newFixtureStore()
	header := RequiredHeaders(models.DocumentTypePr)[1:]

	_, err := newTestProcessor(store).ProcessFile(context.Background(),
		Batch{DocumentType: models.DocumentTypePr, Label: "bad.txt"},
		NewSliceSource(header, prRow("P100", "1", "I", nil)))

	var mismatch *HeaderMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("expected HeaderMismatchError, got %v", err)
	}
	if len(mismatch.Missing) != 1 || mismatch.Missing[0] != "PURCHASE_REQUISITION_NBR" {
		t.Fatalf("missing = %v", mismatch.Missing)
	}
	if len(store.Staging[models.DocumentTypePr]) != 0 || len(store.Logs) != 0 {
		t.Fatalf("no row may be processed after a header mismatch")
	}
}

func TestProcessFileEmptyBatch(t *testing.T) {
	store := newFixtureStore()

	_, err := newTestProcessor(store).ProcessFile(context.Background(),
		Batch{DocumentType: models.DocumentTypePo, Label: "empty.txt"},
		NewDelimitedSource(strings.NewReader("")))

	if !errors.Is(err, ErrEmptyBatch) {
		t.Fatalf("expected ErrEmptyBatch, got %v", err)
	}
}

func TestProcessFilePersistenceFailureStopsFile(t *testing.T) {
	store := newFixtureStore()
	store.FailOn = func(op string, id models.Identity) bool {
		return op == "insert_line_item" && id.LineNumber == 2
	}

	result, err := newTestProcessor(store).ProcessFile(context.Background(),
		Batch{DocumentType: models.DocumentTypePr, Label: "PR_batch.txt"},
		NewSliceSource(RequiredHeaders(models.DocumentTypePr),
			prRow("P100", "1", "I", nil),
			prRow("P100", "2", "I", nil),
			prRow("P100", "3", "I", nil),
		))

	var perr *PersistenceError
	if !errors.As(err, &perr) || !errors.Is(err, prpotest.ErrInjected) {
		t.Fatalf("expected a PersistenceError wrapping the store failure, got %v", err)
	}
	if store.PrItem("P100", 1) == nil {
		t.Fatalf("rows committed before the failure must stand")
	}
	if store.PrItem("P100", 3) != nil {
		t.Fatalf("rows after the failure must not be processed")
	}
	if len(store.Logs) != 0 {
		t.Fatalf("no process log is written for an aborted file")
	}
	if result == nil || result.Counters.Loaded != 2 {
		t.Fatalf("expected a partial result with two loaded rows, got %+v", result)
	}
}

func TestProcessFileReadFailure(t *testing.T) {
	store := newFixtureStore()
	store.ReadErr = errors.New("connection refused")

	_, err := newTestProcessor(store).ProcessFile(context.Background(),
		Batch{DocumentType: models.DocumentTypePr, Label: "PR_batch.txt"},
		NewSliceSource(RequiredHeaders(models.DocumentTypePr), prRow("P100", "1", "I", nil)))

	var perr *PersistenceError
	if !errors.As(err, &perr) {
		t.Fatalf("expected a PersistenceError, got %v", err)
	}
}

func TestProcessFilePoLedgerCarriesPrReference(t *testing.T) {
	store := newFixtureStore()
	delete(store.ValidSites, models.ProductSite{ProductId: 5, SiteId: 2})

	result := processPo(t, store, poRow("4500", "10", "I", map[string]string{
		"EAPPROVAL_PR_NBR":      "P100",
		"EAPPROVAL_PR_LINE_NBR": "1",
	}))

	if len(result.Invalid) != 1 {
		t.Fatalf("expected one invalid record, got %d", len(result.Invalid))
	}
	rec := result.Invalid[0]
	if rec.PoNbr != "4500" || rec.PoLineNbr != "10" || rec.PrNbr != "P100" || rec.PrLineNbr != "1" {
		t.Fatalf("unexpected references %+v", rec)
	}
}

// Package prpotest holds an in-memory store for exercising the reconciliation engine.
package prpotest

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"bitbucket.org/mmdatafocus/prpo_backend/models"
)

// ErrInjected is returned by a write whose FailOn hook fired.
var ErrInjected = errors.New("injected store failure")

// LedgerEntry is the in-memory form of an invalid-ledger row.
type LedgerEntry struct {
	Record  models.InvalidRecord
	Status  int
	Updated time.Time
}

// MemStore keeps every table in maps. Duplicate inserts fail with
// models.ErrDuplicateIdentity, the way the MySQL store does on a 1062.
type MemStore struct {
	mu sync.Mutex

	Products   map[string]models.ProductRef
	Sites      map[string]models.SiteRef
	Equipment  map[models.Aqid][]models.EquipmentRef
	ValidSites map[models.ProductSite]struct{}
	Releases   map[models.ConsolidationKey]struct{}
	// product id -> automation end date
	Automation map[int]time.Time

	Items     map[models.DocumentType]map[models.Identity]models.LineItem
	Staging   map[models.DocumentType]map[models.Identity]models.Record
	Ledger    map[models.DocumentType]map[models.Identity]*LedgerEntry
	Files     []models.PrPoFile
	Logs      []models.FileProcessLog
	Summaries map[models.ConsolidationKey]*models.EquipmentSummary

	EquipmentLookups int
	// FailOn makes the named operation fail when it returns true
	FailOn func(op string, id models.Identity) bool
	// ReadErr fails every snapshot and reference read
	ReadErr error
}

func NewMemStore() *MemStore {
	return &MemStore{
		Products:   map[string]models.ProductRef{},
		Sites:      map[string]models.SiteRef{},
		Equipment:  map[models.Aqid][]models.EquipmentRef{},
		ValidSites: map[models.ProductSite]struct{}{},
		Releases:   map[models.ConsolidationKey]struct{}{},
		Automation: map[int]time.Time{},
		Items: map[models.DocumentType]map[models.Identity]models.LineItem{
			models.DocumentTypePr: {},
			models.DocumentTypePo: {},
		},
		Staging: map[models.DocumentType]map[models.Identity]models.Record{
			models.DocumentTypePr: {},
			models.DocumentTypePo: {},
		},
		Ledger: map[models.DocumentType]map[models.Identity]*LedgerEntry{
			models.DocumentTypePr: {},
			models.DocumentTypePo: {},
		},
		Summaries: map[models.ConsolidationKey]*models.EquipmentSummary{},
	}
}

func (m *MemStore) fail(op string, id models.Identity) error {
	if m.FailOn != nil && m.FailOn(op, id) {
		return ErrInjected
	}
	return nil
}

// Reference data setup

func (m *MemStore) AddProduct(code string, id int, name string) {
	m.Products[code] = models.ProductRef{ProductId: id, ProductCode: code, ProductName: name}
}

func (m *MemStore) AddSite(code string, id int, name string) {
	m.Sites[code] = models.SiteRef{SiteId: id, Site: name, SiteSapCode: code}
}

func (m *MemStore) AddEquipment(aqid models.Aqid, refs ...models.EquipmentRef) {
	m.Equipment[aqid] = append(m.Equipment[aqid], refs...)
}

func (m *MemStore) AllowSite(productId int, siteId int) {
	m.ValidSites[models.ProductSite{ProductId: productId, SiteId: siteId}] = struct{}{}
}

func (m *MemStore) AddZeroRelease(key models.ConsolidationKey) {
	m.Releases[key] = struct{}{}
}

// ReferenceReader

func (m *MemStore) ProductsByCode(ctx context.Context) (map[string]models.ProductRef, error) {
	if m.ReadErr != nil {
		return nil, m.ReadErr
	}
	out := make(map[string]models.ProductRef, len(m.Products))
	for k, v := range m.Products {
		out[k] = v
	}
	return out, nil
}

func (m *MemStore) SitesByCode(ctx context.Context) (map[string]models.SiteRef, error) {
	if m.ReadErr != nil {
		return nil, m.ReadErr
	}
	out := make(map[string]models.SiteRef, len(m.Sites))
	for k, v := range m.Sites {
		out[k] = v
	}
	return out, nil
}

func (m *MemStore) ValidProductSites(ctx context.Context) (map[models.ProductSite]struct{}, error) {
	if m.ReadErr != nil {
		return nil, m.ReadErr
	}
	out := make(map[models.ProductSite]struct{}, len(m.ValidSites))
	for k := range m.ValidSites {
		out[k] = struct{}{}
	}
	return out, nil
}

func (m *MemStore) ZeroReleases(ctx context.Context) (map[models.ConsolidationKey]struct{}, error) {
	if m.ReadErr != nil {
		return nil, m.ReadErr
	}
	out := make(map[models.ConsolidationKey]struct{}, len(m.Releases))
	for k := range m.Releases {
		out[k] = struct{}{}
	}
	return out, nil
}

func (m *MemStore) EquipmentByAqid(ctx context.Context, aqid models.Aqid) ([]models.EquipmentRef, error) {
	if m.ReadErr != nil {
		return nil, m.ReadErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.EquipmentLookups++
	return append([]models.EquipmentRef(nil), m.Equipment[aqid]...), nil
}

// SnapshotReader

func (m *MemStore) ExistingIdentities(ctx context.Context, doc models.DocumentType) (models.IdentitySet, error) {
	if m.ReadErr != nil {
		return nil, m.ReadErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	set := models.IdentitySet{}
	for id := range m.Items[doc] {
		set.Add(id)
	}
	return set, nil
}

func (m *MemStore) ExistingStagingIdentities(ctx context.Context, doc models.DocumentType) (models.IdentitySet, error) {
	if m.ReadErr != nil {
		return nil, m.ReadErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	set := models.IdentitySet{}
	for id := range m.Staging[doc] {
		set.Add(id)
	}
	return set, nil
}

func (m *MemStore) ExistingInvalidIdentities(ctx context.Context, doc models.DocumentType) (models.IdentitySet, error) {
	if m.ReadErr != nil {
		return nil, m.ReadErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	set := models.IdentitySet{}
	for id := range m.Ledger[doc] {
		set.Add(id)
	}
	return set, nil
}

// LineItemWriter

func (m *MemStore) InsertLineItem(ctx context.Context, item models.LineItem) error {
	id := item.Identity()
	if err := m.fail("insert_line_item", id); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	items := m.Items[item.DocumentType()]
	if _, ok := items[id]; ok {
		return models.ErrDuplicateIdentity
	}
	items[id] = item
	return nil
}

func (m *MemStore) UpdateLineItem(ctx context.Context, item models.LineItem) error {
	id := item.Identity()
	if err := m.fail("update_line_item", id); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Items[item.DocumentType()][id] = item
	return nil
}

func (m *MemStore) SetLineItemStatus(ctx context.Context, doc models.DocumentType, id models.Identity, recordType models.RecordType, status int, at time.Time) error {
	if err := m.fail("set_line_item_status", id); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	switch item := m.Items[doc][id].(type) {
	case *models.PrLineItem:
		item.RecordType = recordType
		item.StatusId = status
		item.SetUpdated(at)
	case *models.PoLineItem:
		item.RecordType = recordType
		item.StatusId = status
		item.SetUpdated(at)
	}
	return nil
}

func (m *MemStore) InsertStagingRow(ctx context.Context, row models.Record) error {
	id := row.Identity()
	if err := m.fail("insert_staging_row", id); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	rows := m.Staging[row.DocumentType()]
	if _, ok := rows[id]; ok {
		return models.ErrDuplicateIdentity
	}
	rows[id] = row
	return nil
}

func (m *MemStore) UpdateStagingRow(ctx context.Context, row models.Record) error {
	id := row.Identity()
	if err := m.fail("update_staging_row", id); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Staging[row.DocumentType()][id] = row
	return nil
}

func (m *MemStore) InsertFileRecord(ctx context.Context, file *models.PrPoFile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	file.ID = len(m.Files) + 1
	m.Files = append(m.Files, *file)
	return nil
}

// LedgerWriter

func (m *MemStore) InsertInvalid(ctx context.Context, rec models.InvalidRecord, at time.Time) error {
	if err := m.fail("insert_invalid", rec.Identity); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	ledger := m.Ledger[rec.DocumentType]
	if _, ok := ledger[rec.Identity]; ok {
		return models.ErrDuplicateIdentity
	}
	ledger[rec.Identity] = &LedgerEntry{Record: rec, Status: models.StatusActive, Updated: at}
	return nil
}

func (m *MemStore) UpdateInvalid(ctx context.Context, rec models.InvalidRecord, at time.Time) error {
	if err := m.fail("update_invalid", rec.Identity); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Ledger[rec.DocumentType][rec.Identity] = &LedgerEntry{Record: rec, Status: models.StatusActive, Updated: at}
	return nil
}

func (m *MemStore) ResolveInvalid(ctx context.Context, doc models.DocumentType, id models.Identity, at time.Time) error {
	if err := m.fail("resolve_invalid", id); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if entry, ok := m.Ledger[doc][id]; ok {
		entry.Status = models.StatusInactive
		entry.Updated = at
	}
	return nil
}

// ProcessLogWriter

func (m *MemStore) InsertProcessLog(ctx context.Context, log *models.FileProcessLog) error {
	if err := m.fail("insert_process_log", models.Identity{}); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	log.ID = len(m.Logs) + 1
	m.Logs = append(m.Logs, *log)
	return nil
}

func (m *MemStore) RecentProcessLogs(ctx context.Context, limit int) ([]models.FileProcessLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	logs := make([]models.FileProcessLog, 0, len(m.Logs))
	for i := len(m.Logs) - 1; i >= 0 && len(logs) < limit; i-- {
		logs = append(logs, m.Logs[i])
	}
	return logs, nil
}

// SummaryStore

func (m *MemStore) inWindow(productId *int, asOf time.Time) bool {
	if productId == nil {
		return false
	}
	end, ok := m.Automation[*productId]
	return ok && !end.Before(asOf)
}

func keyOf(r models.Resolution) (models.ConsolidationKey, bool) {
	if r.GhProductId == nil || r.GhSiteId == nil || r.GhEquipmentId == nil || r.GhEquipmentDbId == nil {
		return models.ConsolidationKey{}, false
	}
	return models.ConsolidationKey{
		ProductId:     *r.GhProductId,
		SiteId:        *r.GhSiteId,
		EquipmentId:   *r.GhEquipmentId,
		EquipmentDbId: *r.GhEquipmentDbId,
	}, true
}

func (m *MemStore) ActivePrDemand(ctx context.Context, asOf time.Time, excludedStatuses []string) ([]models.DemandLine, error) {
	if err := m.fail("active_pr_demand", models.Identity{}); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	excluded := map[string]struct{}{}
	for _, s := range excludedStatuses {
		excluded[s] = struct{}{}
	}
	var lines []models.DemandLine
	for _, li := range m.Items[models.DocumentTypePr] {
		item, ok := li.(*models.PrLineItem)
		if !ok || item.StatusId != models.StatusActive || !m.inWindow(item.GhProductId, asOf) {
			continue
		}
		if _, skip := excluded[item.PrStatusDesc]; skip {
			continue
		}
		key, ok := keyOf(item.Resolution)
		if !ok {
			continue
		}
		lines = append(lines, models.DemandLine{
			DocumentNumber: item.PrNbr,
			LineNumber:     item.PrLineNbr,
			Quantity:       item.Quantity,
			Key:            key,
		})
	}
	sortLines(lines)
	return lines, nil
}

func (m *MemStore) PrNumbersInPo(ctx context.Context) (map[string]struct{}, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[string]struct{}{}
	for _, li := range m.Items[models.DocumentTypePo] {
		if item, ok := li.(*models.PoLineItem); ok && item.PrNbr != "" {
			out[item.PrNbr] = struct{}{}
		}
	}
	return out, nil
}

func (m *MemStore) ActivePoDemand(ctx context.Context, asOf time.Time) ([]models.DemandLine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var lines []models.DemandLine
	for _, li := range m.Items[models.DocumentTypePo] {
		item, ok := li.(*models.PoLineItem)
		if !ok || item.StatusId != models.StatusActive || !m.inWindow(item.GhProductId, asOf) {
			continue
		}
		key, ok := keyOf(item.Resolution)
		if !ok {
			continue
		}
		lines = append(lines, models.DemandLine{
			DocumentNumber: item.PoNbr,
			LineNumber:     item.PoLineNbr,
			Quantity:       item.PoQuantity,
			Key:            key,
		})
	}
	sortLines(lines)
	return lines, nil
}

func sortLines(lines []models.DemandLine) {
	sort.Slice(lines, func(i, j int) bool {
		if lines[i].DocumentNumber != lines[j].DocumentNumber {
			return lines[i].DocumentNumber < lines[j].DocumentNumber
		}
		return lines[i].LineNumber < lines[j].LineNumber
	})
}

func (m *MemStore) SummaryKeys(ctx context.Context) (map[models.ConsolidationKey]struct{}, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[models.ConsolidationKey]struct{}, len(m.Summaries))
	for k := range m.Summaries {
		out[k] = struct{}{}
	}
	return out, nil
}

func (m *MemStore) InsertSummary(ctx context.Context, summary *models.EquipmentSummary) error {
	if err := m.fail("insert_summary", models.Identity{}); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := summary.Key()
	if _, ok := m.Summaries[key]; ok {
		return models.ErrDuplicateIdentity
	}
	row := *summary
	row.ID = len(m.Summaries) + 1
	m.Summaries[key] = &row
	return nil
}

func (m *MemStore) UpdateSummary(ctx context.Context, summary *models.EquipmentSummary) error {
	if err := m.fail("update_summary", models.Identity{}); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.Summaries[summary.Key()]
	if !ok {
		return nil
	}
	row.PrNewRequisitionQty = summary.PrNewRequisitionQty
	row.PoValidQty = summary.PoValidQty
	row.Updated = summary.Updated
	return nil
}

func (m *MemStore) ListSummaries(ctx context.Context) ([]models.EquipmentSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.EquipmentSummary, 0, len(m.Summaries))
	for _, row := range m.Summaries {
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// PrItem returns the stored PR line item, or nil.
func (m *MemStore) PrItem(nbr string, line int) *models.PrLineItem {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, _ := m.Items[models.DocumentTypePr][models.Identity{DocumentNumber: nbr, LineNumber: line}].(*models.PrLineItem)
	return item
}

func (m *MemStore) PoItem(nbr string, line int) *models.PoLineItem {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, _ := m.Items[models.DocumentTypePo][models.Identity{DocumentNumber: nbr, LineNumber: line}].(*models.PoLineItem)
	return item
}

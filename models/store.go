package models

import (
	"context"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/prpo_backend/config"
	"bitbucket.org/mmdatafocus/prpo_backend/utils"
	"gorm.io/gorm"
)

// GormStore persists line items, staging rows, the invalid ledger, the equipment summary
// and process logs. Every write commits on its own.
type GormStore struct {
	primary  func() *gorm.DB
	staging  func() *gorm.DB
	cache    ReferenceCache
	cacheTTL time.Duration
}

// NewGormStore reads the shared connections on every call, so a reconnect is picked up.
func NewGormStore() *GormStore {
	return &GormStore{
		primary:  config.GetDB,
		staging:  config.GetStagingDB,
		cache:    utils.RedisCache{},
		cacheTTL: utils.GetCacheLifespan(),
	}
}

// NewGormStoreWithDB binds the store to fixed connections and no cache.
func NewGormStoreWithDB(primary *gorm.DB, staging *gorm.DB) *GormStore {
	return &GormStore{
		primary: func() *gorm.DB { return primary },
		staging: func() *gorm.DB { return staging },
		cache:   noCache{},
	}
}

func identityWhere(db *gorm.DB, doc DocumentType, id Identity) *gorm.DB {
	numberCol, lineCol := doc.IdentityColumns()
	return db.Where(numberCol+" = ? AND "+lineCol+" = ?", id.DocumentNumber, id.LineNumber)
}

func loadIdentities(ctx context.Context, db *gorm.DB, doc DocumentType, table string) (IdentitySet, error) {
	numberCol, lineCol := doc.IdentityColumns()
	var rows []struct {
		DocumentNumber string
		LineNumber     int
	}
	err := db.WithContext(ctx).Table(table).
		Select(numberCol + " AS document_number, " + lineCol + " AS line_number").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("load %s identities: %w", table, err)
	}
	result := make(IdentitySet, len(rows))
	for _, row := range rows {
		result.Add(Identity{DocumentNumber: row.DocumentNumber, LineNumber: row.LineNumber})
	}
	return result, nil
}

// ExistingIdentities returns every identity in the primary store, cancelled rows included.
func (s *GormStore) ExistingIdentities(ctx context.Context, doc DocumentType) (IdentitySet, error) {
	return loadIdentities(ctx, s.primary(), doc, doc.LineItemTable())
}

func (s *GormStore) ExistingStagingIdentities(ctx context.Context, doc DocumentType) (IdentitySet, error) {
	return loadIdentities(ctx, s.staging(), doc, doc.LineItemTable())
}

func (s *GormStore) ExistingInvalidIdentities(ctx context.Context, doc DocumentType) (IdentitySet, error) {
	return loadIdentities(ctx, s.primary(), doc, doc.InvalidTable())
}

func (s *GormStore) InsertLineItem(ctx context.Context, item LineItem) error {
	return insertErr(s.primary().WithContext(ctx).Create(item).Error)
}

// UpdateLineItem overwrites every column except created.
func (s *GormStore) UpdateLineItem(ctx context.Context, item LineItem) error {
	db := identityWhere(s.primary().WithContext(ctx).Model(item), item.DocumentType(), item.Identity())
	return db.Select("*").Omit("created").Updates(item).Error
}

func (s *GormStore) SetLineItemStatus(ctx context.Context, doc DocumentType, id Identity, recordType RecordType, status int, at time.Time) error {
	db := identityWhere(s.primary().WithContext(ctx).Table(doc.LineItemTable()), doc, id)
	return db.Updates(map[string]interface{}{
		"record_type": recordType,
		"status_id":   status,
		"updated":     at,
	}).Error
}

func (s *GormStore) InsertStagingRow(ctx context.Context, row Record) error {
	return insertErr(s.staging().WithContext(ctx).Create(row).Error)
}

func (s *GormStore) UpdateStagingRow(ctx context.Context, row Record) error {
	db := identityWhere(s.staging().WithContext(ctx).Model(row), row.DocumentType(), row.Identity())
	return db.Select("*").Omit("created").Updates(row).Error
}

func (s *GormStore) InsertFileRecord(ctx context.Context, file *PrPoFile) error {
	return s.staging().WithContext(ctx).Create(file).Error
}

func (s *GormStore) InsertInvalid(ctx context.Context, rec InvalidRecord, at time.Time) error {
	return insertErr(s.primary().WithContext(ctx).Create(rec.LedgerRow(at)).Error)
}

// UpdateInvalid reactivates the ledger entry with the latest category and description.
func (s *GormStore) UpdateInvalid(ctx context.Context, rec InvalidRecord, at time.Time) error {
	db := identityWhere(s.primary().WithContext(ctx).Table(rec.DocumentType.InvalidTable()), rec.DocumentType, rec.Identity)
	return db.Updates(map[string]interface{}{
		"aq_id":              rec.AqId,
		"gh_product_id":      rec.ProductId,
		"gh_site_id":         rec.SiteId,
		"gh_equipment_id":    rec.EquipmentId,
		"gh_equipment_db_id": rec.EquipmentDbId,
		"category":           rec.Category,
		"description":        rec.Description,
		"status_id":          StatusActive,
		"updated":            at,
	}).Error
}

// ResolveInvalid keeps the ledger row and flips it inactive.
func (s *GormStore) ResolveInvalid(ctx context.Context, doc DocumentType, id Identity, at time.Time) error {
	db := identityWhere(s.primary().WithContext(ctx).Table(doc.InvalidTable()), doc, id)
	return db.Updates(map[string]interface{}{
		"status_id": StatusInactive,
		"updated":   at,
	}).Error
}

func (s *GormStore) InsertProcessLog(ctx context.Context, log *FileProcessLog) error {
	return s.primary().WithContext(ctx).Create(log).Error
}

func (s *GormStore) RecentProcessLogs(ctx context.Context, limit int) ([]FileProcessLog, error) {
	if limit <= 0 {
		limit = 20
	}
	var logs []FileProcessLog
	err := s.primary().WithContext(ctx).Order("loaded_date_time DESC, id DESC").Limit(limit).Find(&logs).Error
	return logs, err
}

package prpo

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/prpo_backend/models"
)

// ReferenceReader is read once per file, except equipment which is looked up per AQ_ID.
type ReferenceReader interface {
	ProductsByCode(ctx context.Context) (map[string]models.ProductRef, error)
	SitesByCode(ctx context.Context) (map[string]models.SiteRef, error)
	ValidProductSites(ctx context.Context) (map[models.ProductSite]struct{}, error)
	ZeroReleases(ctx context.Context) (map[models.ConsolidationKey]struct{}, error)
	EquipmentByAqid(ctx context.Context, aqid models.Aqid) ([]models.EquipmentRef, error)
}

type SnapshotReader interface {
	ExistingIdentities(ctx context.Context, doc models.DocumentType) (models.IdentitySet, error)
	ExistingStagingIdentities(ctx context.Context, doc models.DocumentType) (models.IdentitySet, error)
	ExistingInvalidIdentities(ctx context.Context, doc models.DocumentType) (models.IdentitySet, error)
}

// LineItemWriter covers the primary and the staging line-item tables.
// Inserts return models.ErrDuplicateIdentity when the identity already exists.
type LineItemWriter interface {
	InsertLineItem(ctx context.Context, item models.LineItem) error
	UpdateLineItem(ctx context.Context, item models.LineItem) error
	SetLineItemStatus(ctx context.Context, doc models.DocumentType, id models.Identity, recordType models.RecordType, status int, at time.Time) error
	InsertStagingRow(ctx context.Context, row models.Record) error
	UpdateStagingRow(ctx context.Context, row models.Record) error
	InsertFileRecord(ctx context.Context, file *models.PrPoFile) error
}

type LedgerWriter interface {
	InsertInvalid(ctx context.Context, rec models.InvalidRecord, at time.Time) error
	UpdateInvalid(ctx context.Context, rec models.InvalidRecord, at time.Time) error
	ResolveInvalid(ctx context.Context, doc models.DocumentType, id models.Identity, at time.Time) error
}

type ProcessLogWriter interface {
	InsertProcessLog(ctx context.Context, log *models.FileProcessLog) error
}

// Store is everything ProcessFile needs.
type Store interface {
	ReferenceReader
	SnapshotReader
	LineItemWriter
	LedgerWriter
	ProcessLogWriter
}

// SummaryStore is everything Consolidate needs.
type SummaryStore interface {
	ActivePrDemand(ctx context.Context, asOf time.Time, excludedStatuses []string) ([]models.DemandLine, error)
	PrNumbersInPo(ctx context.Context) (map[string]struct{}, error)
	ActivePoDemand(ctx context.Context, asOf time.Time) ([]models.DemandLine, error)
	SummaryKeys(ctx context.Context) (map[models.ConsolidationKey]struct{}, error)
	InsertSummary(ctx context.Context, summary *models.EquipmentSummary) error
	UpdateSummary(ctx context.Context, summary *models.EquipmentSummary) error
}

var (
	_ Store        = (*models.GormStore)(nil)
	_ SummaryStore = (*models.GormStore)(nil)
)

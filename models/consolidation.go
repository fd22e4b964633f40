package models

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// automation window: the product has an active automation row that has not ended yet
const automationWindowSql = `EXISTS (
	SELECT 1 FROM gh_product_prpo_automation au
	WHERE au.product_id = li.gh_product_id AND au.end_date >= ? AND au.status_id = 1)`

// automationCutoff renders asOf as a wall-clock literal in its own location.
// A bound time.Time would be converted to the connection's loc by the driver.
func automationCutoff(asOf time.Time) string {
	return asOf.Format("2006-01-02 15:04:05")
}

const keyNotNullSql = `li.gh_product_id IS NOT NULL AND li.gh_site_id IS NOT NULL
	AND li.gh_equipment_id IS NOT NULL AND li.gh_equipment_db_id IS NOT NULL`

type demandRow struct {
	DocumentNumber  string
	LineNumber      int
	Quantity        decimal.Decimal
	GhProductId     int
	GhSiteId        int
	GhEquipmentId   int
	GhEquipmentDbId int
}

func (r demandRow) line() DemandLine {
	return DemandLine{
		DocumentNumber: r.DocumentNumber,
		LineNumber:     r.LineNumber,
		Quantity:       r.Quantity,
		Key: ConsolidationKey{
			ProductId:     r.GhProductId,
			SiteId:        r.GhSiteId,
			EquipmentId:   r.GhEquipmentId,
			EquipmentDbId: r.GhEquipmentDbId,
		},
	}
}

// ActivePrDemand returns active PR lines inside the automation window whose status is not excluded.
func (s *GormStore) ActivePrDemand(ctx context.Context, asOf time.Time, excludedStatuses []string) ([]DemandLine, error) {
	var rows []demandRow
	db := s.primary().WithContext(ctx).Table(DocumentTypePr.LineItemTable()+" li").
		Select("li.pr_nbr AS document_number, li.pr_line_nbr AS line_number, li.quantity, li.gh_product_id, li.gh_site_id, li.gh_equipment_id, li.gh_equipment_db_id").
		Where("li.status_id = ?", StatusActive).
		Where(keyNotNullSql).
		Where(automationWindowSql, automationCutoff(asOf))
	if len(excludedStatuses) > 0 {
		db = db.Where("li.pr_status_desc NOT IN ?", excludedStatuses)
	}
	if err := db.Order("li.pr_nbr, li.pr_line_nbr").Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("load active pr demand: %w", err)
	}
	lines := make([]DemandLine, 0, len(rows))
	for _, row := range rows {
		lines = append(lines, row.line())
	}
	return lines, nil
}

// PrNumbersInPo returns every PR number referenced by any PO line, whatever its status.
func (s *GormStore) PrNumbersInPo(ctx context.Context) (map[string]struct{}, error) {
	var prNbrs []string
	err := s.primary().WithContext(ctx).Table(DocumentTypePo.LineItemTable()).
		Distinct("pr_nbr").
		Where("pr_nbr IS NOT NULL AND pr_nbr != ''").
		Pluck("pr_nbr", &prNbrs).Error
	if err != nil {
		return nil, fmt.Errorf("load pr numbers in po: %w", err)
	}
	result := make(map[string]struct{}, len(prNbrs))
	for _, nbr := range prNbrs {
		result[nbr] = struct{}{}
	}
	return result, nil
}

func (s *GormStore) ActivePoDemand(ctx context.Context, asOf time.Time) ([]DemandLine, error) {
	var rows []demandRow
	err := s.primary().WithContext(ctx).Table(DocumentTypePo.LineItemTable()+" li").
		Select("li.po_nbr AS document_number, li.po_line_nbr AS line_number, li.po_quantity AS quantity, li.gh_product_id, li.gh_site_id, li.gh_equipment_id, li.gh_equipment_db_id").
		Where("li.status_id = ?", StatusActive).
		Where(keyNotNullSql).
		Where(automationWindowSql, automationCutoff(asOf)).
		Order("li.po_nbr, li.po_line_nbr").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("load active po demand: %w", err)
	}
	lines := make([]DemandLine, 0, len(rows))
	for _, row := range rows {
		lines = append(lines, row.line())
	}
	return lines, nil
}

func (s *GormStore) SummaryKeys(ctx context.Context) (map[ConsolidationKey]struct{}, error) {
	var rows []EquipmentSummary
	err := s.primary().WithContext(ctx).Model(&EquipmentSummary{}).
		Select("product_id, site_id, equipment_id, equipment_db_id").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("load summary keys: %w", err)
	}
	result := make(map[ConsolidationKey]struct{}, len(rows))
	for _, row := range rows {
		result[row.Key()] = struct{}{}
	}
	return result, nil
}

func (s *GormStore) InsertSummary(ctx context.Context, summary *EquipmentSummary) error {
	return insertErr(s.primary().WithContext(ctx).Create(summary).Error)
}

func (s *GormStore) UpdateSummary(ctx context.Context, summary *EquipmentSummary) error {
	return s.primary().WithContext(ctx).Model(&EquipmentSummary{}).
		Where("product_id = ? AND site_id = ? AND equipment_id = ? AND equipment_db_id = ?",
			summary.ProductId, summary.SiteId, summary.EquipmentId, summary.EquipmentDbId).
		Updates(map[string]interface{}{
			"pr_new_requisition_qty": summary.PrNewRequisitionQty,
			"po_valid_qty":           summary.PoValidQty,
			"updated":                summary.Updated,
		}).Error
}

func (s *GormStore) ListSummaries(ctx context.Context) ([]EquipmentSummary, error) {
	var rows []EquipmentSummary
	err := s.primary().WithContext(ctx).
		Order("product_id, site_id, equipment_id, equipment_db_id").
		Find(&rows).Error
	return rows, err
}

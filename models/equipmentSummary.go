package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// EquipmentSummary is the consolidated PR/PO demand of one equipment at one site.
type EquipmentSummary struct {
	ID                  int             `gorm:"primary_key" json:"id"`
	ProductId           int             `gorm:"not null;index:uniq_equipment_summary,unique" json:"product_id"`
	SiteId              int             `gorm:"not null;index:uniq_equipment_summary,unique" json:"site_id"`
	EquipmentId         int             `gorm:"not null;index:uniq_equipment_summary,unique" json:"equipment_id"`
	EquipmentDbId       int             `gorm:"not null;index:uniq_equipment_summary,unique" json:"equipment_db_id"`
	PrNewRequisitionQty decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"pr_new_requisition_qty"`
	PoValidQty          decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"po_valid_qty"`
	Created             time.Time       `json:"created"`
	Updated             *time.Time      `json:"updated"`
}

func (EquipmentSummary) TableName() string { return "gh_pr_po_equipment_summary" }

func (s EquipmentSummary) Key() ConsolidationKey {
	return ConsolidationKey{
		ProductId:     s.ProductId,
		SiteId:        s.SiteId,
		EquipmentId:   s.EquipmentId,
		EquipmentDbId: s.EquipmentDbId,
	}
}

// DemandLine is one active line item feeding the consolidation.
type DemandLine struct {
	DocumentNumber string
	LineNumber     int
	Quantity       decimal.Decimal
	Key            ConsolidationKey
}

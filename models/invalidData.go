package models

import "time"

// InvalidRecord is a row that failed site or release validity, independent of document type.
// It is both the ledger payload and an entry in the invalid-record report.
type InvalidRecord struct {
	DocumentType  DocumentType    `json:"document_type"`
	Identity      Identity        `json:"identity"`
	PrNbr         string          `json:"pr_nbr"`
	PrLineNbr     string          `json:"pr_line_nbr"`
	PoNbr         string          `json:"po_nbr"`
	PoLineNbr     string          `json:"po_line_nbr"`
	AqId          string          `json:"aq_id"`
	ProductId     *int            `json:"product_id"`
	SiteId        *int            `json:"site_id"`
	EquipmentId   *int            `json:"equipment_id"`
	EquipmentDbId *int            `json:"equipment_db_id"`
	ProductName   string          `json:"product_name"`
	SiteName      string          `json:"site_name"`
	Category      InvalidCategory `json:"category"`
	Description   string          `json:"description"`
}

// InvalidDetail is shared by both ledger tables.
type InvalidDetail struct {
	AqId            string          `gorm:"size:64" json:"aq_id"`
	GhProductId     *int            `json:"gh_product_id"`
	GhSiteId        *int            `json:"gh_site_id"`
	GhEquipmentId   *int            `json:"gh_equipment_id"`
	GhEquipmentDbId *int            `json:"gh_equipment_db_id"`
	Category        InvalidCategory `gorm:"size:100" json:"category"`
	Description     string          `gorm:"type:text" json:"description"`
	StatusId        int             `gorm:"not null" json:"status_id"`
	Updated         time.Time       `json:"updated"`
}

type PrInvalidData struct {
	PrNbr     string `gorm:"primaryKey;size:20" json:"pr_nbr"`
	PrLineNbr int    `gorm:"primaryKey;autoIncrement:false" json:"pr_line_nbr"`
	InvalidDetail
}

func (PrInvalidData) TableName() string { return DocumentTypePr.InvalidTable() }

type PoInvalidData struct {
	PoNbr     string `gorm:"primaryKey;size:20" json:"po_nbr"`
	PoLineNbr int    `gorm:"primaryKey;autoIncrement:false" json:"po_line_nbr"`
	PrNbr     string `gorm:"size:20" json:"pr_nbr"`
	PrLineNbr string `gorm:"size:10" json:"pr_line_nbr"`
	InvalidDetail
}

func (PoInvalidData) TableName() string { return DocumentTypePo.InvalidTable() }

func (r InvalidRecord) detail(at time.Time) InvalidDetail {
	return InvalidDetail{
		AqId:            r.AqId,
		GhProductId:     r.ProductId,
		GhSiteId:        r.SiteId,
		GhEquipmentId:   r.EquipmentId,
		GhEquipmentDbId: r.EquipmentDbId,
		Category:        r.Category,
		Description:     r.Description,
		StatusId:        StatusActive,
		Updated:         at,
	}
}

// LedgerRow converts the record into the ledger row of its document type.
func (r InvalidRecord) LedgerRow(at time.Time) interface{} {
	if r.DocumentType == DocumentTypePo {
		return &PoInvalidData{
			PoNbr:         r.Identity.DocumentNumber,
			PoLineNbr:     r.Identity.LineNumber,
			PrNbr:         r.PrNbr,
			PrLineNbr:     r.PrLineNbr,
			InvalidDetail: r.detail(at),
		}
	}
	return &PrInvalidData{
		PrNbr:         r.Identity.DocumentNumber,
		PrLineNbr:     r.Identity.LineNumber,
		InvalidDetail: r.detail(at),
	}
}

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Record is a row keyed by document identity, written to the primary or the staging store.
type Record interface {
	DocumentType() DocumentType
	Identity() Identity
	SetUpdated(at time.Time)
}

// LineItem is a primary-store row with a lifecycle status.
type LineItem interface {
	Record
	SetStatus(status int)
	Status() int
}

// Resolution holds the reference ids resolved for a row and its lifecycle markers.
// Both stores carry these columns.
type Resolution struct {
	GhProductId     *int       `json:"gh_product_id"`
	GhSiteId        *int       `json:"gh_site_id"`
	GhEquipmentId   *int       `json:"gh_equipment_id"`
	GhEquipmentDbId *int       `json:"gh_equipment_db_id"`
	RecordType      RecordType `gorm:"size:1" json:"record_type"`
	Created         time.Time  `json:"created"`
	Updated         *time.Time `json:"updated"`
}

func (r *Resolution) SetUpdated(at time.Time) {
	r.Updated = &at
}

type PrLine struct {
	PrNbr                         string          `gorm:"primaryKey;size:20" json:"pr_nbr"`
	PrLineNbr                     int             `gorm:"primaryKey;autoIncrement:false" json:"pr_line_nbr"`
	PrStatusDesc                  string          `gorm:"size:100" json:"pr_status_desc"`
	CompanyCode                   string          `gorm:"size:20" json:"company_code"`
	CurrencyCode                  string          `gorm:"size:10" json:"currency_code"`
	RequestDate                   *time.Time      `gorm:"type:date" json:"request_date"`
	MaterialDescription           string          `gorm:"type:text" json:"material_description"`
	TotalAmount                   decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_amount"`
	PricePerUnit                  decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"price_per_unit"`
	Quantity                      decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"quantity"`
	ModelNumber                   string          `gorm:"size:100" json:"model_number"`
	AqId                          string          `gorm:"size:64" json:"aq_id"`
	ProjectNbr                    string          `gorm:"size:64" json:"project_nbr"`
	SpendTypeCode                 string          `gorm:"size:20" json:"spend_type_code"`
	FunctionalLocationCode        string          `gorm:"size:64" json:"functional_location_code"`
	SpendTypeDescription          string          `gorm:"size:100" json:"spend_type_description"`
	FunctionalLocationDescription string          `gorm:"size:255" json:"functional_location_description"`
	Destination                   string          `gorm:"size:255" json:"destination"`
	VendorNumber                  string          `gorm:"size:64" json:"vendor_number"`
	VendorName                    string          `gorm:"size:255" json:"vendor_name"`
	Initiator                     string          `gorm:"size:255" json:"initiator"`
	CostCenterNbr                 string          `gorm:"size:64" json:"cost_center_nbr"`
	Resolution
}

func (PrLine) DocumentType() DocumentType { return DocumentTypePr }

func (l PrLine) Identity() Identity {
	return Identity{DocumentNumber: l.PrNbr, LineNumber: l.PrLineNbr}
}

type PoLine struct {
	PoNbr                string          `gorm:"primaryKey;size:20" json:"po_nbr"`
	PoLineNbr            int             `gorm:"primaryKey;autoIncrement:false" json:"po_line_nbr"`
	MaterialDescription  string          `gorm:"type:text" json:"material_description"`
	CompanyCode          string          `gorm:"size:20" json:"company_code"`
	TrackingNo           string          `gorm:"size:64" json:"tracking_no"`
	PoQuantity           decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"po_quantity"`
	NetPrice             decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"net_price"`
	NetValue             decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"net_value"`
	EffectiveValue       decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"effective_value"`
	PrNbr                string          `gorm:"size:20;index" json:"pr_nbr"`
	PrLineNbr            string          `gorm:"size:10" json:"pr_line_nbr"`
	Initiator            string          `gorm:"size:255" json:"initiator"`
	VendorName           string          `gorm:"size:255" json:"vendor_name"`
	FunctionalLocation   string          `gorm:"size:64" json:"functional_location"`
	ProjectNbr           string          `gorm:"size:64" json:"project_nbr"`
	AqId                 string          `gorm:"size:64" json:"aq_id"`
	PoStatus             string          `gorm:"size:100" json:"po_status"`
	SpendTypeCode        string          `gorm:"size:20" json:"spend_type_code"`
	SpendTypeDescription string          `gorm:"size:100" json:"spend_type_description"`
	Currency             string          `gorm:"size:10" json:"currency"`
	OrderUnit            string          `gorm:"size:20" json:"order_unit"`
	OrderPriceUnit       decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"order_price_unit"`
	GrQuantity           decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"gr_quantity"`
	PoDate               *time.Time      `gorm:"type:date" json:"po_date"`
	PoItemDeletedFlag    string          `gorm:"size:10" json:"po_item_deleted_flag"`
	Resolution
}

func (PoLine) DocumentType() DocumentType { return DocumentTypePo }

func (l PoLine) Identity() Identity {
	return Identity{DocumentNumber: l.PoNbr, LineNumber: l.PoLineNbr}
}

// PrLineItem lives in the primary store.
type PrLineItem struct {
	PrLine
	StatusId int `gorm:"not null" json:"status_id"`
}

func (PrLineItem) TableName() string { return DocumentTypePr.LineItemTable() }

func (i *PrLineItem) SetStatus(status int) { i.StatusId = status }
func (i *PrLineItem) Status() int           { return i.StatusId }

type PoLineItem struct {
	PoLine
	StatusId int `gorm:"not null" json:"status_id"`
}

func (PoLineItem) TableName() string { return DocumentTypePo.LineItemTable() }

func (i *PoLineItem) SetStatus(status int) { i.StatusId = status }
func (i *PoLineItem) Status() int           { return i.StatusId }

// PrRawLineItem is the staging copy, kept for every row regardless of eligibility.
type PrRawLineItem struct {
	PrLine
	GhProductName *string `gorm:"size:255" json:"gh_product_name"`
	GhSite        *string `gorm:"column:gh_site;size:255" json:"gh_site"`
}

func (PrRawLineItem) TableName() string { return DocumentTypePr.LineItemTable() }

type PoRawLineItem struct {
	PoLine
	GhProductName *string `gorm:"size:255" json:"gh_product_name"`
	GhSite        *string `gorm:"column:gh_site;size:255" json:"gh_site"`
}

func (PoRawLineItem) TableName() string { return DocumentTypePo.LineItemTable() }

// PrPoFile records which batch file delivered a row. Staging store only.
type PrPoFile struct {
	ID        int       `gorm:"primary_key" json:"id"`
	PrNbr     string    `gorm:"size:20;index" json:"pr_nbr"`
	PrLineNbr string    `gorm:"size:10" json:"pr_line_nbr"`
	PoNbr     string    `gorm:"size:20;index" json:"po_nbr"`
	PoLineNbr string    `gorm:"size:10" json:"po_line_nbr"`
	FileName  string    `gorm:"size:255;not null" json:"file_name"`
	Created   time.Time `json:"created"`
}

func (PrPoFile) TableName() string { return "gh_pr_po_file" }

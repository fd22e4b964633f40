package models

import (
	"fmt"
	"strings"
)

type DocumentType string

const (
	DocumentTypePr DocumentType = "PR"
	DocumentTypePo DocumentType = "PO"
)

func ParseDocumentType(s string) (DocumentType, error) {
	switch DocumentType(strings.ToUpper(strings.TrimSpace(s))) {
	case DocumentTypePr:
		return DocumentTypePr, nil
	case DocumentTypePo:
		return DocumentTypePo, nil
	}
	return "", fmt.Errorf("unknown document type %q", s)
}

// LineItemTable is the same on the primary and the staging store.
func (d DocumentType) LineItemTable() string {
	if d == DocumentTypePo {
		return "gh_sap_po_line_item"
	}
	return "gh_eapproval_pr_line_item"
}

func (d DocumentType) InvalidTable() string {
	if d == DocumentTypePo {
		return "gh_po_invalid_data"
	}
	return "gh_pr_invalid_data"
}

// IdentityColumns returns the document number and line number columns.
func (d DocumentType) IdentityColumns() (string, string) {
	if d == DocumentTypePo {
		return "po_nbr", "po_line_nbr"
	}
	return "pr_nbr", "pr_line_nbr"
}

// RecordType is the instruction carried by a batch row, plus C for rows
// cancelled because they no longer match the eligibility criteria.
type RecordType string

const (
	RecordTypeInsert  RecordType = "I"
	RecordTypeUpdate  RecordType = "U"
	RecordTypeDelete  RecordType = "D"
	RecordTypeNoMatch RecordType = "C"
)

func (r RecordType) IsValid() bool {
	switch r {
	case RecordTypeInsert, RecordTypeUpdate, RecordTypeDelete:
		return true
	}
	return false
}

const (
	StatusInactive = 0
	StatusActive   = 1
)

type InvalidCategory string

const (
	InvalidCategoryProductSite InvalidCategory = "Invalid product and site"
	InvalidCategoryKprRelease  InvalidCategory = "No KPR release for AQ_ID"
)

// Identity is the composite key of a line item within one document type.
type Identity struct {
	DocumentNumber string
	LineNumber     int
}

func (i Identity) String() string {
	return fmt.Sprintf("%s:%d", i.DocumentNumber, i.LineNumber)
}

type ProductSite struct {
	ProductId int
	SiteId    int
}

// ConsolidationKey groups demand in the equipment summary.
type ConsolidationKey struct {
	ProductId     int
	SiteId        int
	EquipmentId   int
	EquipmentDbId int
}

func (k ConsolidationKey) ProductSite() ProductSite {
	return ProductSite{ProductId: k.ProductId, SiteId: k.SiteId}
}

type IdentitySet map[Identity]struct{}

func (s IdentitySet) Has(id Identity) bool {
	_, ok := s[id]
	return ok
}

func (s IdentitySet) Add(id Identity) {
	s[id] = struct{}{}
}

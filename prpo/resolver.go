package prpo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/prpo_backend/models"
)

const (
	// SiteSentinel resolves to site 0 without a reference row.
	SiteSentinel   = "LOCN-TBD1"
	retroSpendType = "RETRO"
	retroSuffix    = "-R"
)

var allowedSpendTypes = map[string]struct{}{
	"EQ":    {},
	"RETRO": {},
	"AOU":   {},
}

// Resolved is the reference resolution of one row.
type Resolved struct {
	Product   *models.ProductRef
	SiteId    *int
	SiteName  string
	Equipment *models.EquipmentRef
	// normalized AQ_ID, empty when the row has none
	Aqid      string
	SpendType string
}

func (r Resolved) ProductName() string {
	if r.Product == nil {
		return ""
	}
	return r.Product.ProductName
}

func (r Resolved) SpendTypeAllowed() bool {
	_, ok := allowedSpendTypes[r.SpendType]
	return ok
}

// Eligible reports whether the row may create or change an active line item.
func (r Resolved) Eligible() bool {
	return r.Product != nil && r.SpendTypeAllowed() && r.SiteId != nil && r.Equipment != nil
}

// Key is only meaningful for eligible rows.
func (r Resolved) Key() models.ConsolidationKey {
	key := models.ConsolidationKey{}
	if r.Product != nil {
		key.ProductId = r.Product.ProductId
	}
	if r.SiteId != nil {
		key.SiteId = *r.SiteId
	}
	if r.Equipment != nil {
		key.EquipmentId = r.Equipment.EquipmentId
		key.EquipmentDbId = r.Equipment.EquipmentDbId
	}
	return key
}

func (r Resolved) resolution(rt models.RecordType, now time.Time) models.Resolution {
	res := models.Resolution{
		RecordType: rt,
		Created:    now,
	}
	if r.Product != nil {
		id := r.Product.ProductId
		res.GhProductId = &id
	}
	if r.SiteId != nil {
		id := *r.SiteId
		res.GhSiteId = &id
	}
	if r.Equipment != nil {
		eq, db := r.Equipment.EquipmentId, r.Equipment.EquipmentDbId
		res.GhEquipmentId = &eq
		res.GhEquipmentDbId = &db
	}
	return res
}

// NormalizeAqid appends the retro suffix for RETRO spend when it is missing.
func NormalizeAqid(code string, spendTypeDescription string) string {
	if code == "" {
		return code
	}
	if spendTypeDescription == retroSpendType && !strings.HasSuffix(code, retroSuffix) {
		return code + retroSuffix
	}
	return code
}

// ParseAqid splits an AQ_ID into base id, version and optional type.
func ParseAqid(code string) (models.Aqid, error) {
	parts := strings.Split(code, "-")
	switch len(parts) {
	case 2:
		return models.Aqid{BaseId: parts[0], Version: parts[1]}, nil
	case 3:
		return models.Aqid{BaseId: parts[0], Version: parts[1], Type: parts[2]}, nil
	}
	return models.Aqid{}, &ParseError{Code: code}
}

type equipmentLookup struct {
	ref *models.EquipmentRef
	err error
}

// Resolver maps raw codes to reference ids for one file.
type Resolver struct {
	products  map[string]models.ProductRef
	sites     map[string]models.SiteRef
	refs      ReferenceReader
	equipment map[string]equipmentLookup
	diag      *Diagnostics
}

// NewResolver loads products and sites once. Unmatched codes are written to diag.
func NewResolver(ctx context.Context, refs ReferenceReader, diag *Diagnostics) (*Resolver, error) {
	products, err := refs.ProductsByCode(ctx)
	if err != nil {
		return nil, err
	}
	sites, err := refs.SitesByCode(ctx)
	if err != nil {
		return nil, err
	}
	if diag == nil {
		diag = &Diagnostics{}
	}
	return &Resolver{
		products:  products,
		sites:     sites,
		refs:      refs,
		equipment: map[string]equipmentLookup{},
		diag:      diag,
	}, nil
}

func (r *Resolver) ResolveProduct(code string) (models.ProductRef, bool) {
	p, ok := r.products[code]
	return p, ok
}

// ResolveSite returns the site id and name. rowRef identifies the row in diagnostics.
func (r *Resolver) ResolveSite(code string, rowRef string) (*int, string, bool) {
	if s, ok := r.sites[code]; ok {
		id := s.SiteId
		return &id, s.Site, true
	}
	if code == SiteSentinel {
		id := 0
		return &id, "", true
	}
	r.diag.AddSite(code, rowRef)
	return nil, "", false
}

// ResolveEquipment returns the normalized code and its single matching equipment.
// A ParseError or ErrResolutionAbsent leaves the row unresolved; any other error is a store failure.
func (r *Resolver) ResolveEquipment(ctx context.Context, rawCode string, spendTypeDescription string, rowRef string) (string, *models.EquipmentRef, error) {
	if rawCode == "" {
		return "", nil, ErrResolutionAbsent
	}
	code := NormalizeAqid(rawCode, spendTypeDescription)

	lookup, ok := r.equipment[code]
	if !ok {
		lookup = r.lookupEquipment(ctx, code)
		if lookup.err != nil && !isUnresolved(lookup.err) {
			return code, nil, lookup.err
		}
		r.equipment[code] = lookup
	}
	if lookup.err != nil {
		r.diag.AddEquipment(code, rowRef)
		return code, nil, lookup.err
	}
	ref := *lookup.ref
	return code, &ref, nil
}

func (r *Resolver) lookupEquipment(ctx context.Context, code string) equipmentLookup {
	aqid, err := ParseAqid(code)
	if err != nil {
		return equipmentLookup{err: err}
	}
	rows, err := r.refs.EquipmentByAqid(ctx, aqid)
	if err != nil {
		return equipmentLookup{err: fmt.Errorf("equipment lookup: %w", err)}
	}
	if len(rows) != 1 {
		return equipmentLookup{err: ErrResolutionAbsent}
	}
	return equipmentLookup{ref: &rows[0]}
}

func isUnresolved(err error) bool {
	var perr *ParseError
	return errors.Is(err, ErrResolutionAbsent) || errors.As(err, &perr)
}

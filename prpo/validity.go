package prpo

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/prpo_backend/models"
)

type Validity int

const (
	Valid Validity = iota
	InvalidSite
	InvalidRelease
)

func (v Validity) String() string {
	switch v {
	case InvalidSite:
		return "invalid_site"
	case InvalidRelease:
		return "invalid_release"
	}
	return "valid"
}

func (v Validity) Category() models.InvalidCategory {
	switch v {
	case InvalidSite:
		return models.InvalidCategoryProductSite
	case InvalidRelease:
		return models.InvalidCategoryKprRelease
	}
	return ""
}

// ValidityRules are the reference sets a row is scored against.
type ValidityRules struct {
	ValidProductSites map[models.ProductSite]struct{}
	ZeroReleases      map[models.ConsolidationKey]struct{}
}

func LoadValidityRules(ctx context.Context, refs ReferenceReader) (*ValidityRules, error) {
	sites, err := refs.ValidProductSites(ctx)
	if err != nil {
		return nil, err
	}
	releases, err := refs.ZeroReleases(ctx)
	if err != nil {
		return nil, err
	}
	return &ValidityRules{ValidProductSites: sites, ZeroReleases: releases}, nil
}

// Evaluate checks the site rule before the release rule; the first that fires wins.
func (r *ValidityRules) Evaluate(key models.ConsolidationKey) Validity {
	if _, ok := r.ValidProductSites[key.ProductSite()]; !ok {
		return InvalidSite
	}
	if _, ok := r.ZeroReleases[key]; ok {
		return InvalidRelease
	}
	return Valid
}

func invalidDescription(v Validity, row Row, l layout, aqid string) string {
	if v == InvalidSite {
		return row.Get(l.productCol) + " and " + row.Get(l.siteCol) + " are not valid MP site in ghDS."
	}
	return "No KPR release for: " + aqid
}

// ledgerOutcome is what applyValidity did to the ledger.
type ledgerOutcome int

const (
	ledgerNone ledgerOutcome = iota
	ledgerInserted
	ledgerUpdated
	ledgerResolved
)

// applyValidity drives the invalid ledger for one eligible row.
// rec is only used when the row is invalid.
func applyValidity(ctx context.Context, store LedgerWriter, snap *Snapshot, v Validity, rec models.InvalidRecord, now time.Time) (ledgerOutcome, error) {
	id := rec.Identity
	if v == Valid {
		if !snap.Invalid.Has(id) {
			return ledgerNone, nil
		}
		if err := store.ResolveInvalid(ctx, rec.DocumentType, id, now); err != nil {
			return ledgerNone, &PersistenceError{Op: "resolve invalid", Identity: id, Err: err}
		}
		return ledgerResolved, nil
	}

	if snap.Invalid.Has(id) {
		if err := store.UpdateInvalid(ctx, rec, now); err != nil {
			return ledgerNone, &PersistenceError{Op: "update invalid", Identity: id, Err: err}
		}
		return ledgerUpdated, nil
	}
	err := store.InsertInvalid(ctx, rec, now)
	if errors.Is(err, models.ErrDuplicateIdentity) {
		if err = store.UpdateInvalid(ctx, rec, now); err != nil {
			return ledgerNone, &PersistenceError{Op: "update invalid", Identity: id, Err: err}
		}
		return ledgerUpdated, nil
	}
	if err != nil {
		return ledgerNone, &PersistenceError{Op: "insert invalid", Identity: id, Err: err}
	}
	snap.Invalid.Add(id)
	return ledgerInserted, nil
}

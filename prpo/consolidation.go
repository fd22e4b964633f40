package prpo

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"bitbucket.org/mmdatafocus/prpo_backend/config"
	"bitbucket.org/mmdatafocus/prpo_backend/models"
	"bitbucket.org/mmdatafocus/prpo_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// ExcludedPrStatuses never count as PR demand.
var ExcludedPrStatuses = []string{"Cancelled", "Rejected", "New Requisition (Initiator)"}

// Demand is the summed quantity of both sides for one key.
type Demand struct {
	Pr decimal.Decimal
	Po decimal.Decimal
}

type ConsolidationResult struct {
	Keys     int
	Inserted int
	Updated  int
	// PR documents left out because a PO line references them
	ExcludedDocuments int
}

// SumPrDemand groups PR lines by key, skipping every line of a document that a PO references.
func SumPrDemand(lines []models.DemandLine, inPo map[string]struct{}) (map[models.ConsolidationKey]decimal.Decimal, int) {
	sums := map[models.ConsolidationKey]decimal.Decimal{}
	excluded := map[string]struct{}{}
	for _, line := range lines {
		if _, ok := inPo[line.DocumentNumber]; ok {
			excluded[line.DocumentNumber] = struct{}{}
			continue
		}
		sums[line.Key] = sums[line.Key].Add(line.Quantity)
	}
	return sums, len(excluded)
}

func SumPoDemand(lines []models.DemandLine) map[models.ConsolidationKey]decimal.Decimal {
	sums := map[models.ConsolidationKey]decimal.Decimal{}
	for _, line := range lines {
		sums[line.Key] = sums[line.Key].Add(line.Quantity)
	}
	return sums
}

// MergeDemand full-outer-joins both sides; the absent side is zero.
func MergeDemand(pr, po map[models.ConsolidationKey]decimal.Decimal) map[models.ConsolidationKey]Demand {
	merged := make(map[models.ConsolidationKey]Demand, len(pr)+len(po))
	for key, qty := range pr {
		d := merged[key]
		d.Pr = qty
		merged[key] = d
	}
	for key, qty := range po {
		d := merged[key]
		d.Po = qty
		merged[key] = d
	}
	return merged
}

func sortedKeys(merged map[models.ConsolidationKey]Demand) []models.ConsolidationKey {
	keys := make([]models.ConsolidationKey, 0, len(merged))
	for key := range merged {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.ProductId != b.ProductId {
			return a.ProductId < b.ProductId
		}
		if a.SiteId != b.SiteId {
			return a.SiteId < b.SiteId
		}
		if a.EquipmentId != b.EquipmentId {
			return a.EquipmentId < b.EquipmentId
		}
		return a.EquipmentDbId < b.EquipmentDbId
	})
	return keys
}

// Consolidate recomputes the equipment summary from active PR and PO demand.
// asOf bounds the automation window; now stamps created/updated.
// Keys without demand on either side are left as they are.
func Consolidate(ctx context.Context, store SummaryStore, asOf time.Time, now time.Time) (*ConsolidationResult, error) {
	ctx, span := tracer.Start(ctx, "prpo.Consolidate")
	defer span.End()

	result, err := consolidate(ctx, store, asOf, now)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return result, &AggregationError{Err: err}
	}
	span.SetAttributes(
		attribute.Int("prpo.summary_keys", result.Keys),
		attribute.Int("prpo.summary_inserted", result.Inserted),
		attribute.Int("prpo.summary_updated", result.Updated),
	)
	return result, nil
}

func consolidate(ctx context.Context, store SummaryStore, asOf time.Time, now time.Time) (*ConsolidationResult, error) {
	log := config.GetLogger().WithFields(utils.LogFields(ctx))
	result := &ConsolidationResult{}

	prLines, err := store.ActivePrDemand(ctx, asOf, ExcludedPrStatuses)
	if err != nil {
		return result, err
	}
	inPo, err := store.PrNumbersInPo(ctx)
	if err != nil {
		return result, err
	}
	poLines, err := store.ActivePoDemand(ctx, asOf)
	if err != nil {
		return result, err
	}
	existing, err := store.SummaryKeys(ctx)
	if err != nil {
		return result, err
	}

	prSums, excluded := SumPrDemand(prLines, inPo)
	result.ExcludedDocuments = excluded
	merged := MergeDemand(prSums, SumPoDemand(poLines))
	result.Keys = len(merged)

	for _, key := range sortedKeys(merged) {
		d := merged[key]
		summary := &models.EquipmentSummary{
			ProductId:           key.ProductId,
			SiteId:              key.SiteId,
			EquipmentId:         key.EquipmentId,
			EquipmentDbId:       key.EquipmentDbId,
			PrNewRequisitionQty: d.Pr,
			PoValidQty:          d.Po,
		}
		if _, ok := existing[key]; !ok {
			summary.Created = now
			err := store.InsertSummary(ctx, summary)
			if err == nil {
				result.Inserted++
				continue
			}
			if !errors.Is(err, models.ErrDuplicateIdentity) {
				return result, fmt.Errorf("insert summary %+v: %w", key, err)
			}
		}
		updated := now
		summary.Updated = &updated
		if err := store.UpdateSummary(ctx, summary); err != nil {
			return result, fmt.Errorf("update summary %+v: %w", key, err)
		}
		result.Updated++
	}

	log.WithFields(logrus.Fields{
		"pr_lines":           len(prLines),
		"po_lines":           len(poLines),
		"excluded_documents": result.ExcludedDocuments,
		"keys":               result.Keys,
		"inserted":           result.Inserted,
		"updated":            result.Updated,
	}).Info("consolidation complete")
	return result, nil
}

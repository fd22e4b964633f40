package models

import (
	"context"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/prpo_backend/utils"
)

type ProductRef struct {
	ProductId   int    `json:"product_id"`
	ProductCode string `json:"product_code"`
	ProductName string `json:"product_name"`
}

type SiteRef struct {
	SiteId      int    `json:"site_id"`
	Site        string `json:"site"`
	SiteSapCode string `json:"site_sap_code"`
}

type EquipmentRef struct {
	EquipmentId   int `json:"equipment_id"`
	EquipmentDbId int `json:"equipment_db_id"`
}

// Aqid is the parsed form of an AQ_ID: base id, version and optional type.
type Aqid struct {
	BaseId  string
	Version string
	Type    string
}

func (a Aqid) String() string {
	if a.Type == "" {
		return a.BaseId + "-" + a.Version
	}
	return a.BaseId + "-" + a.Version + "-" + a.Type
}

const (
	automationProductStage    = 138
	automationProductSubStage = ""
	automationScenario        = 450
)

const productsByCodeSql = `
SELECT pc.product_id, pc.product_code, p.product_name
FROM gh_product_codes pc
	INNER JOIN gh_product p ON (pc.product_id = p.product_id)
WHERE pc.status_id = 1`

const sitesByCodeSql = `
SELECT site_id, site, site_sap_code
FROM gh_sites
WHERE site_sap_code IS NOT NULL AND site_sap_code != '' AND status_id > 0`

const equipmentByAqidSql = `
SELECT equipment_id, db_id AS equipment_db_id
FROM gh_bom_equipment
WHERE apple_equipment_id = ?
	AND apple_equipment_version = ?
	AND IFNULL(apple_equipment_type, '') = ?`

const validProductSitesSql = `
SELECT DISTINCT m.product_id, m.site_id
FROM gh_model m
	INNER JOIN gh_product_prpo_automation a ON (m.product_id = a.product_id)
	INNER JOIN gh_sites s ON (m.site_id = s.site_id)
	INNER JOIN gh_product p ON (m.product_id = p.product_id)
WHERE m.product_stage = ?
	AND m.product_sub_stage = ?
	AND m.scenario = ?
	AND m.status_id = 1`

const zeroReleasesSql = `
SELECT m_rel.product_id, m_rel.site_id, mpe_rel.equipment_id, mpe_rel.equipment_db_id,
	SUM(IFNULL(rel.release_qty, 0)) AS sum_release_qty
FROM gh_model m_rel
	INNER JOIN gh_product_prpo_automation a ON (m_rel.product_id = a.product_id)
	INNER JOIN gh_mpintent_equipment mpe_rel ON (m_rel.model_id = mpe_rel.model_id AND m_rel.db_id = mpe_rel.model_db_id)
	INNER JOIN gh_mpintent_equipment_release rel ON (mpe_rel.mpintent_equipment_id = rel.mpintent_equipment_id AND mpe_rel.mpintent_equipment_db_id = rel.mpintent_equipment_db_id)
WHERE m_rel.product_stage = ?
	AND m_rel.product_sub_stage = ?
	AND m_rel.scenario = ?
	AND m_rel.status_id = 1
	AND a.status_id = 1
	AND mpe_rel.status_id = 1
	AND rel.status_id = 1
GROUP BY m_rel.product_id, m_rel.site_id, mpe_rel.equipment_id, mpe_rel.equipment_db_id
HAVING sum_release_qty = 0`

func (s *GormStore) ProductsByCode(ctx context.Context) (map[string]ProductRef, error) {
	var rows []ProductRef
	if err := s.primary().WithContext(ctx).Raw(productsByCodeSql).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}
	result := make(map[string]ProductRef, len(rows))
	for _, row := range rows {
		result[row.ProductCode] = row
	}
	return result, nil
}

func (s *GormStore) SitesByCode(ctx context.Context) (map[string]SiteRef, error) {
	var rows []SiteRef
	if err := s.primary().WithContext(ctx).Raw(sitesByCodeSql).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("load sites: %w", err)
	}
	result := make(map[string]SiteRef, len(rows))
	for _, row := range rows {
		result[row.SiteSapCode] = row
	}
	return result, nil
}

func (s *GormStore) ValidProductSites(ctx context.Context) (map[ProductSite]struct{}, error) {
	var rows []struct {
		ProductId int
		SiteId    int
	}
	err := s.primary().WithContext(ctx).
		Raw(validProductSitesSql, automationProductStage, automationProductSubStage, automationScenario).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("load valid product sites: %w", err)
	}
	result := make(map[ProductSite]struct{}, len(rows))
	for _, row := range rows {
		result[ProductSite{ProductId: row.ProductId, SiteId: row.SiteId}] = struct{}{}
	}
	return result, nil
}

func (s *GormStore) ZeroReleases(ctx context.Context) (map[ConsolidationKey]struct{}, error) {
	var rows []struct {
		ProductId     int
		SiteId        int
		EquipmentId   int
		EquipmentDbId int
	}
	err := s.primary().WithContext(ctx).
		Raw(zeroReleasesSql, automationProductStage, automationProductSubStage, automationScenario).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("load zero releases: %w", err)
	}
	result := make(map[ConsolidationKey]struct{}, len(rows))
	for _, row := range rows {
		result[ConsolidationKey{
			ProductId:     row.ProductId,
			SiteId:        row.SiteId,
			EquipmentId:   row.EquipmentId,
			EquipmentDbId: row.EquipmentDbId,
		}] = struct{}{}
	}
	return result, nil
}

// EquipmentByAqid returns every bom equipment row matching the parsed AQ_ID.
// A unique match is cached in redis for the batch in ctx; nothing is shared across batches.
func (s *GormStore) EquipmentByAqid(ctx context.Context, aqid Aqid) ([]EquipmentRef, error) {
	return cachedEquipment(ctx, s.cache, s.cacheTTL, aqid, func() ([]EquipmentRef, error) {
		var rows []EquipmentRef
		err := s.primary().WithContext(ctx).
			Raw(equipmentByAqidSql, aqid.BaseId, aqid.Version, aqid.Type).
			Scan(&rows).Error
		if err != nil {
			return nil, fmt.Errorf("lookup equipment %s: %w", aqid, err)
		}
		return rows, nil
	})
}

func equipmentCacheKey(ctx context.Context, aqid Aqid) (string, bool) {
	label, ok := utils.GetBatchLabelFromContext(ctx)
	if !ok || label == "" {
		return "", false
	}
	return "BomEquipment:" + label + ":" + aqid.String(), true
}

// cachedEquipment only stores single matches. Misses and ambiguous codes go to the
// database every time so a newly added equipment row is seen by the next batch.
func cachedEquipment(ctx context.Context, cache ReferenceCache, ttl time.Duration, aqid Aqid, load func() ([]EquipmentRef, error)) ([]EquipmentRef, error) {
	key, ok := equipmentCacheKey(ctx, aqid)
	if ok {
		var cached []EquipmentRef
		if hit, err := cache.Get(ctx, key, &cached); err == nil && hit && len(cached) == 1 {
			return cached, nil
		}
	}
	rows, err := load()
	if err != nil {
		return nil, err
	}
	if ok && len(rows) == 1 {
		_ = cache.Set(ctx, key, rows, ttl)
	}
	return rows, nil
}

// ReferenceCache is the optional read-through cache used for equipment lookups.
type ReferenceCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

type noCache struct{}

func (noCache) Get(context.Context, string, interface{}) (bool, error)      { return false, nil }
func (noCache) Set(context.Context, string, interface{}, time.Duration) error { return nil }

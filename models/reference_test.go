package models

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/prpo_backend/utils"
)

type mapCache struct {
	entries map[string][]byte
	sets    int
}

func (c *mapCache) Get(_ context.Context, key string, dest interface{}) (bool, error) {
	data, ok := c.entries[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(data, dest)
}

func (c *mapCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.entries[key] = data
	c.sets++
	return nil
}

func TestCachedEquipmentSkipsMisses(t *testing.T) {
	cache := &mapCache{entries: map[string][]byte{}}
	aqid := Aqid{BaseId: "12345", Version: "01"}
	var table []EquipmentRef
	loads := 0
	load := func() ([]EquipmentRef, error) {
		loads++
		return table, nil
	}

	first := utils.SetBatchLabelInContext(context.Background(), "PR_0001")
	rows, err := cachedEquipment(first, cache, time.Hour, aqid, load)
	if err != nil || len(rows) != 0 {
		t.Fatalf("expected a miss, got %v (%v)", rows, err)
	}
	if cache.sets != 0 {
		t.Fatalf("a miss must not be cached")
	}

	// the equipment row appears before the next batch
	table = []EquipmentRef{{EquipmentId: 9, EquipmentDbId: 1}}
	second := utils.SetBatchLabelInContext(context.Background(), "PR_0002")
	rows, err = cachedEquipment(second, cache, time.Hour, aqid, load)
	if err != nil || len(rows) != 1 || rows[0].EquipmentId != 9 {
		t.Fatalf("expected the new equipment row, got %v (%v)", rows, err)
	}
	if loads != 2 || cache.sets != 1 {
		t.Fatalf("loads = %d sets = %d, want 2 and 1", loads, cache.sets)
	}

	if _, err := cachedEquipment(second, cache, time.Hour, aqid, load); err != nil || loads != 2 {
		t.Fatalf("expected a cache hit within the batch, loads = %d (%v)", loads, err)
	}
	third := utils.SetBatchLabelInContext(context.Background(), "PR_0003")
	if _, err := cachedEquipment(third, cache, time.Hour, aqid, load); err != nil || loads != 3 {
		t.Fatalf("expected another batch to reload, loads = %d (%v)", loads, err)
	}
}

func TestCachedEquipmentSkipsAmbiguousAndUnlabelled(t *testing.T) {
	cache := &mapCache{entries: map[string][]byte{}}
	aqid := Aqid{BaseId: "12345", Version: "01"}
	ambiguous := func() ([]EquipmentRef, error) {
		return []EquipmentRef{{EquipmentId: 9, EquipmentDbId: 1}, {EquipmentId: 9, EquipmentDbId: 2}}, nil
	}
	unique := func() ([]EquipmentRef, error) {
		return []EquipmentRef{{EquipmentId: 9, EquipmentDbId: 1}}, nil
	}

	ctx := utils.SetBatchLabelInContext(context.Background(), "PR_0001")
	if _, err := cachedEquipment(ctx, cache, time.Hour, aqid, ambiguous); err != nil || cache.sets != 0 {
		t.Fatalf("ambiguous matches must not be cached, sets = %d (%v)", cache.sets, err)
	}
	if _, err := cachedEquipment(context.Background(), cache, time.Hour, aqid, unique); err != nil || cache.sets != 0 {
		t.Fatalf("lookups outside a batch must not be cached, sets = %d (%v)", cache.sets, err)
	}
}

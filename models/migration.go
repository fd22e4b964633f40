package models

import (
	"fmt"

	"bitbucket.org/mmdatafocus/prpo_backend/config"
	"gorm.io/gorm"
)

// MigrateTable creates or updates the tables this service owns.
// Reference tables (products, sites, models, bom equipment, releases) are read-only here.
func MigrateTable(primary *gorm.DB, staging *gorm.DB) error {
	if config.SkipMigrations() {
		config.GetLogger().Info("SKIP_MIGRATIONS set; not migrating tables")
		return nil
	}

	err := primary.AutoMigrate(
		&PrLineItem{}, &PoLineItem{},
		&PrInvalidData{}, &PoInvalidData{},
		&EquipmentSummary{},
		&FileProcessLog{},
	)
	if err != nil {
		return fmt.Errorf("migrate primary: %w", err)
	}

	err = staging.AutoMigrate(
		&PrRawLineItem{}, &PoRawLineItem{},
		&PrPoFile{},
	)
	if err != nil {
		return fmt.Errorf("migrate staging: %w", err)
	}
	return nil
}

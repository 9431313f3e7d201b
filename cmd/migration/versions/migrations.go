package versions

import (
	"log"

	"github.com/artesarh/rpb/reporting/schema"
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

func Migrations() []*gormigrate.Migration {
	return []*gormigrate.Migration{
		{
			// Placeholder for a database created by AutoMigrate before migrations were tracked.
			ID:      "0",
			Migrate: func(*gorm.DB) error { return nil },
		},
		{
			ID:       "1",
			Migrate:  Migration_1_query_indexes,
			Rollback: Rollback_1_query_indexes,
		},
	}
}

// InitSchema builds a clean database at the latest version. gormigrate marks
// every migration as applied after it runs.
func InitSchema(txn *gorm.DB) error {
	log.Println("clean database detected, running full schema initialization")

	if err := txn.AutoMigrate(schema.Tables...); err != nil {
		return err
	}
	return Migration_1_query_indexes(txn)
}

func New(db *gorm.DB) *gormigrate.Gormigrate {
	migration := gormigrate.New(db, gormigrate.DefaultOptions, Migrations())
	migration.InitSchema(InitSchema)
	return migration
}

package versions

import (
	"testing"

	"github.com/artesarh/rpb/reporting/schema"
	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func openDb(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDb, err := db.DB()
	require.NoError(t, err)
	sqlDb.SetMaxOpenConns(1)
	return db
}

func TestMigrateCleanDatabase(t *testing.T) {
	db := openDb(t)

	require.NoError(t, New(db).Migrate())

	for _, table := range schema.Tables {
		assert.True(t, db.Migrator().HasTable(table))
	}
	assert.True(t, db.Migrator().HasIndex("report_modifiers", "idx_report_modifiers_fx_date"))

	// running again is a no op
	require.NoError(t, New(db).Migrate())
}

func TestMigrateExistingDatabase(t *testing.T) {
	db := openDb(t)
	require.NoError(t, db.AutoMigrate(schema.Tables...))

	// a database created before migrations were tracked only has the baseline
	require.NoError(t, gormigrate.New(db, gormigrate.DefaultOptions, Migrations()).MigrateTo("0"))
	assert.False(t, db.Migrator().HasIndex("events", "idx_events_name"))

	require.NoError(t, New(db).Migrate())
	assert.True(t, db.Migrator().HasIndex("events", "idx_events_name"))

	require.NoError(t, New(db).RollbackLast())
	assert.False(t, db.Migrator().HasIndex("events", "idx_events_name"))
}

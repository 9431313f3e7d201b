package versions

import (
	"fmt"

	"gorm.io/gorm"
)

type queryIndex struct {
	name    string
	table   string
	columns string
}

// Columns used for ordering and filtering in the listing endpoints that are
// not already covered by the indexes from the gorm tags.
var queryIndexes = []queryIndex{
	{name: "idx_events_name", table: "events", columns: "name"},
	{name: "idx_event_groups_name", table: "event_groups", columns: "name"},
	{name: "idx_event_groups_created", table: "event_groups", columns: "created"},
	{name: "idx_reports_name", table: "reports", columns: "name"},
	{name: "idx_report_modifiers_fx_date", table: "report_modifiers", columns: "fx_date"},
	{name: "idx_geo_events_country", table: "geo_events", columns: "country"},
}

func Migration_1_query_indexes(txn *gorm.DB) error {
	for _, idx := range queryIndexes {
		stmt := fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (%s)", idx.name, idx.table, idx.columns)
		if err := txn.Exec(stmt).Error; err != nil {
			return fmt.Errorf("error creating index %v: %w", idx.name, err)
		}
	}
	return nil
}

func Rollback_1_query_indexes(txn *gorm.DB) error {
	for _, idx := range queryIndexes {
		if err := txn.Exec(fmt.Sprintf("DROP INDEX IF EXISTS %s", idx.name)).Error; err != nil {
			return fmt.Errorf("error dropping index %v: %w", idx.name, err)
		}
	}
	return nil
}

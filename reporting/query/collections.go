package query

import (
	"github.com/artesarh/rpb/reporting/schema"
	"gorm.io/gorm"
)

var Reports = Collection{
	Name: "reports",
	Base: func(db *gorm.DB) *gorm.DB {
		return db.Model(&schema.Report{}).Joins("LEFT JOIN event_groups ON event_groups.id = reports.event_group_id")
	},
	Select:   "reports.*",
	IdColumn: "reports.id",
	Filters: []Filter{
		{Param: "peril", Column: "reports.peril", Kind: String},
		{Param: "is_valid", Column: "reports.is_valid", Kind: Bool},
		{Param: "event_group", Column: "reports.event_group_id", Kind: Int},
		{Param: "priority", Column: "reports.priority", Kind: String},
		{Param: "loss_perspective", Column: "reports.loss_perspective", Kind: String},
	},
	Search: []string{"reports.name", "reports.peril", "event_groups.name"},
	Ordering: map[string]string{
		"name":     "reports.name",
		"peril":    "reports.peril",
		"created":  "reports.created",
		"updated":  "reports.updated",
		"priority": "reports.priority",
	},
	Default: []string{"-created"},
}

// ReportModifiers have neither a name nor a creation time, so they list by id.
var ReportModifiers = Collection{
	Name: "report-modifiers",
	Base: func(db *gorm.DB) *gorm.DB {
		return db.Model(&schema.ReportModifier{})
	},
	Select:   "report_modifiers.*",
	IdColumn: "report_modifiers.id",
	Filters: []Filter{
		{Param: "as_at_date", Column: "report_modifiers.as_at_date", Kind: Date},
		{Param: "fx_date", Column: "report_modifiers.fx_date", Kind: Date},
	},
	Ordering: map[string]string{
		"id":         "report_modifiers.id",
		"as_at_date": "report_modifiers.as_at_date",
		"fx_date":    "report_modifiers.fx_date",
	},
	Default: []string{"id"},
}

var Jobs = Collection{
	Name: "jobs",
	Base: func(db *gorm.DB) *gorm.DB {
		return db.Model(&schema.Job{})
	},
	Select:   "jobs.*",
	IdColumn: "jobs.id",
	Filters: []Filter{
		{Param: "report", Column: "jobs.report_id", Kind: Int},
		{Param: "report_modifier", Column: "jobs.report_modifier_id", Kind: Int},
		{Param: "fireant_jobid", Column: "jobs.fireant_jobid", Kind: Int},
	},
	Ordering: map[string]string{
		"created":       "jobs.created",
		"updated":       "jobs.updated",
		"fireant_jobid": "jobs.fireant_jobid",
	},
	Default: []string{"-created"},
}

var eventSearch = []string{"events.name", "events.description"}

var eventOrdering = map[string]string{
	"id":   "events.id",
	"name": "events.name",
}

func variantEvents(join string) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		q := db.Model(&schema.Event{})
		if join != "" {
			q = q.Joins(join)
		}
		return q
	}
}

var Events = Collection{
	Name:     "events",
	Base:     variantEvents(""),
	Preload:  schema.WithVariants,
	Select:   "events.*",
	IdColumn: "events.id",
	Filters: []Filter{
		{Param: "is_valid", Column: "events.is_valid", Kind: Bool},
		{Param: "name", Column: "events.name", Kind: String},
	},
	Search:   eventSearch,
	Ordering: eventOrdering,
	Default:  []string{"name"},
}

var RingEvents = Collection{
	Name:     "ring-events",
	Base:     variantEvents("JOIN ring_events ON ring_events.event_id = events.id"),
	Preload:  schema.WithVariants,
	Select:   "events.*",
	IdColumn: "events.id",
	Filters: []Filter{
		{Param: "is_valid", Column: "events.is_valid", Kind: Bool},
	},
	Search: eventSearch,
	Ordering: map[string]string{
		"id":        "events.id",
		"name":      "events.name",
		"radius":    "ring_events.radius",
		"latitude":  "ring_events.latitude",
		"longitude": "ring_events.longitude",
	},
	Default: []string{"name"},
}

var BoxEvents = Collection{
	Name:     "box-events",
	Base:     variantEvents("JOIN box_events ON box_events.event_id = events.id"),
	Preload:  schema.WithVariants,
	Select:   "events.*",
	IdColumn: "events.id",
	Filters: []Filter{
		{Param: "is_valid", Column: "events.is_valid", Kind: Bool},
	},
	Search:   eventSearch,
	Ordering: eventOrdering,
	Default:  []string{"name"},
}

var GeoEvents = Collection{
	Name:     "geo-events",
	Base:     variantEvents("JOIN geo_events ON geo_events.event_id = events.id"),
	Preload:  schema.WithVariants,
	Select:   "events.*",
	IdColumn: "events.id",
	Filters: []Filter{
		{Param: "is_valid", Column: "events.is_valid", Kind: Bool},
		{Param: "country", Column: "geo_events.country", Kind: String},
		{Param: "area", Column: "geo_events.area", Kind: String},
		{Param: "subarea", Column: "geo_events.subarea", Kind: String},
		{Param: "subarea2", Column: "geo_events.subarea2", Kind: String},
	},
	Search: []string{
		"events.name", "events.description",
		"geo_events.country", "geo_events.area", "geo_events.subarea", "geo_events.subarea2",
	},
	Ordering: map[string]string{
		"id":      "events.id",
		"name":    "events.name",
		"country": "geo_events.country",
	},
	Default: []string{"name"},
}

var EventGroups = Collection{
	Name: "event-groups",
	Base: func(db *gorm.DB) *gorm.DB {
		return db.Model(&schema.EventGroup{})
	},
	Preload:  schema.WithMembers,
	Select:   "event_groups.*",
	IdColumn: "event_groups.id",
	Filters: []Filter{
		{Param: "name", Column: "event_groups.name", Kind: String},
	},
	Search: []string{"event_groups.name"},
	Ordering: map[string]string{
		"name":    "event_groups.name",
		"created": "event_groups.created",
		"updated": "event_groups.updated",
	},
	Default: []string{"-created"},
}

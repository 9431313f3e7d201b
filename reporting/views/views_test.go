package views

import (
	"net/http"
	"testing"
	"time"

	"github.com/artesarh/rpb/reporting/schema"
	"github.com/artesarh/rpb/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupDb(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open("file::memory:?_foreign_keys=on"), &gorm.Config{})
	require.NoError(t, err)
	sqlDb, err := db.DB()
	require.NoError(t, err)
	sqlDb.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(schema.Tables...))
	return db
}

func date(year int, month time.Month, day int) *datatypes.Date {
	d := datatypes.Date(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
	return &d
}

func intPtr(v int) *int {
	return &v
}

func TestModifierDerivedFields(t *testing.T) {
	cases := []struct {
		asAt    *datatypes.Date
		quarter *int
		month   *int
	}{
		{asAt: date(2024, time.January, 15), quarter: intPtr(-1), month: intPtr(1)},
		{asAt: date(2024, time.March, 31), quarter: intPtr(0), month: intPtr(3)},
		{asAt: date(2024, time.July, 1), quarter: intPtr(1), month: intPtr(7)},
		{asAt: date(2024, time.November, 30), quarter: intPtr(2), month: intPtr(11)},
		{asAt: nil},
	}

	for _, c := range cases {
		view := NewModifier(schema.ReportModifier{Id: 1, AsAtDate: c.asAt, FxDate: date(2023, time.December, 31)})
		assert.Equal(t, c.quarter, view.Quarter)
		assert.Equal(t, c.month, view.Month)
		require.NotNil(t, view.FxDate)
		assert.Equal(t, "2023-12-31", *view.FxDate)
		if c.asAt == nil {
			assert.Nil(t, view.AsAtDate)
			assert.Nil(t, view.Year)
			assert.Nil(t, view.Day)
		} else {
			assert.Equal(t, intPtr(2024), view.Year)
		}
	}
}

func TestEventDetail(t *testing.T) {
	country := "JP"
	ring, err := NewEventDetail(schema.Event{Id: 1, Name: "ring", Ring: &schema.RingEvent{Radius: 5}})
	require.NoError(t, err)
	assert.IsType(t, RingEvent{}, ring)

	geo, err := NewEventDetail(schema.Event{Id: 2, Name: "geo", Geo: &schema.GeoEvent{Country: &country}})
	require.NoError(t, err)
	require.IsType(t, GeoEvent{}, geo)
	assert.Equal(t, schema.GeoEventType, geo.(GeoEvent).EventType)

	base, err := NewEventDetail(schema.Event{Id: 3, Name: "base"})
	require.NoError(t, err)
	assert.IsType(t, Event{}, base)

	_, err = NewEventDetail(schema.Event{Id: 4, Ring: &schema.RingEvent{}, Box: &schema.BoxEvent{}})
	assert.ErrorIs(t, err, schema.ErrAmbiguousEventVariant)
}

type viewFixture struct {
	db        *gorm.DB
	assembler *Assembler
	group     schema.EventGroup
	report    schema.Report
	linked    schema.ReportModifier
	unlinked  schema.ReportModifier
}

func setupViews(t *testing.T) viewFixture {
	db := setupDb(t)

	events := []schema.Event{
		{Name: "florida", Box: &schema.BoxEvent{MaxLat: 30, MinLat: 25, MaxLon: -80, MinLon: -87}},
		{Name: "gulf", Box: &schema.BoxEvent{MaxLat: 30, MinLat: 18, MaxLon: -82, MinLon: -98}},
	}
	require.NoError(t, db.Create(&events).Error)

	group := schema.EventGroup{Name: "atlantic"}
	require.NoError(t, db.Create(&group).Error)
	for _, e := range events {
		require.NoError(t, db.Create(&schema.EventGroupMember{EventGroupId: group.Id, EventId: e.Id}).Error)
	}

	report := schema.Report{Name: "wind", Peril: "WS", EventGroupId: group.Id, LossPerspective: "GR", Dr: 1}
	require.NoError(t, db.Create(&report).Error)

	linked := schema.ReportModifier{AsAtDate: date(2024, time.June, 30)}
	unlinked := schema.ReportModifier{}
	require.NoError(t, db.Create(&linked).Error)
	require.NoError(t, db.Create(&unlinked).Error)
	require.NoError(t, db.Create(&schema.ReportModifierLink{ReportId: report.Id, ReportModifierId: linked.Id}).Error)

	return viewFixture{db: db, assembler: NewAssembler(db), group: group, report: report, linked: linked, unlinked: unlinked}
}

func assertNotFound(t *testing.T, err error) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, utils.GetResponseCode(err))
}

func TestReportModifierViews(t *testing.T) {
	f := setupViews(t)

	view, err := f.assembler.ReportModifier(f.report.Id, f.linked.Id)
	require.NoError(t, err)
	assert.Equal(t, "wind", view.Report.Name)
	assert.Equal(t, f.linked.Id, view.Modifier.Id)
	assert.Equal(t, intPtr(0), view.Modifier.Quarter)

	_, err = f.assembler.ReportModifier(f.report.Id, f.unlinked.Id)
	assertNotFound(t, err)
	assert.ErrorIs(t, err, ErrModifierNotLinked)

	_, err = f.assembler.ReportModifier(f.report.Id+1, f.linked.Id)
	assertNotFound(t, err)
	assert.ErrorIs(t, err, schema.ErrReportNotFound)

	all, err := f.assembler.ReportModifiers(f.report.Id)
	require.NoError(t, err)
	require.Len(t, all.Modifiers, 1)

	require.NoError(t, f.db.Where("report_id = ?", f.report.Id).Delete(&schema.ReportModifierLink{}).Error)
	_, err = f.assembler.ReportModifiers(f.report.Id)
	assertNotFound(t, err)
	assert.ErrorIs(t, err, ErrNoModifiers)
}

func TestReportEventGroupViews(t *testing.T) {
	f := setupViews(t)

	view, err := f.assembler.ReportEventGroup(f.report.Id)
	require.NoError(t, err)
	assert.Equal(t, "atlantic", view.EventGroup.Name)
	require.Len(t, view.EventGroup.Events, 2)
	box, ok := view.EventGroup.Events[0].(BoxEvent)
	require.True(t, ok)
	assert.Equal(t, "florida", box.Name)
	assert.Equal(t, 25.0, box.MinLat)

	all, err := f.assembler.ReportAll(f.report.Id, f.linked.Id)
	require.NoError(t, err)
	assert.Equal(t, f.group.Id, all.EventGroup.Id)
	assert.Equal(t, f.linked.Id, all.Modifier.Id)

	_, err = f.assembler.ReportAll(f.report.Id, f.unlinked.Id)
	assert.ErrorIs(t, err, ErrModifierNotLinked)

	groups, err := f.assembler.EventEventGroups(box.Id)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Len(t, groups[0].Events, 2)

	_, err = f.assembler.EventEventGroups(box.Id + 100)
	assertNotFound(t, err)

	reports, err := f.assembler.EventGroupReports(f.group.Id)
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, f.report.Id, reports[0].Id)
}

func TestReportJobs(t *testing.T) {
	f := setupViews(t)

	first := schema.Job{ReportId: f.report.Id, FireantJobid: 1}
	require.NoError(t, f.db.Create(&first).Error)
	second := schema.Job{ReportId: f.report.Id, ReportModifierId: &f.linked.Id, FireantJobid: 2}
	require.NoError(t, f.db.Create(&second).Error)

	jobs, err := f.assembler.ReportJobs(f.report.Id)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, second.Id, jobs[0].Id)
	assert.Equal(t, &f.linked.Id, jobs[0].ReportModifier)

	_, err = f.assembler.ReportJobs(f.report.Id + 1)
	assertNotFound(t, err)
}

func TestWithModifierIds(t *testing.T) {
	f := setupViews(t)

	other := schema.Report{Name: "quake", Peril: "EQ", EventGroupId: f.group.Id, LossPerspective: "GR"}
	require.NoError(t, f.db.Create(&other).Error)

	out, err := WithModifierIds(f.db, []schema.Report{f.report, other})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, []uint{f.linked.Id}, out[0].Modifiers)
	assert.Equal(t, []uint{}, out[1].Modifiers)

	out, err = WithModifierIds(f.db, nil)
	require.NoError(t, err)
	assert.Empty(t, out)
}

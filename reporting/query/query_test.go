package query

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/artesarh/rpb/reporting/schema"
	"github.com/artesarh/rpb/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newRequest(query string) *http.Request {
	return httptest.NewRequest("GET", "/api/reports?"+query, nil)
}

func TestParse(t *testing.T) {
	f := NewFacade(10, 50)

	p, err := f.Parse(newRequest(""), Reports)
	require.NoError(t, err)
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 10, p.PageSize)
	assert.Empty(t, p.Ordering)
	assert.Empty(t, p.Filters)

	p, err = f.Parse(newRequest("page=3&page_size=500&search=+wind+&ordering=-created,name&peril=WS&unknown=1"), Reports)
	require.NoError(t, err)
	assert.Equal(t, 3, p.Page)
	assert.Equal(t, 50, p.PageSize)
	assert.Equal(t, "wind", p.Search)
	assert.Equal(t, []string{"-created", "name"}, p.Ordering)
	assert.Equal(t, map[string]string{"peril": "WS"}, p.Filters)

	p, err = f.Parse(newRequest("page_size=-3"), Reports)
	require.NoError(t, err)
	assert.Equal(t, 10, p.PageSize)

	_, err = f.Parse(newRequest("page=0"), Reports)
	assert.ErrorIs(t, err, ErrInvalidPage)
	assert.Equal(t, http.StatusNotFound, utils.GetResponseCode(err))

	_, err = f.Parse(newRequest("ordering=name,-secret"), Reports)
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, utils.GetResponseCode(err))
	assert.Contains(t, err.Error(), "'-secret'")
}

func TestNewFacadeDefaults(t *testing.T) {
	f := NewFacade(0, 0)
	assert.Equal(t, 100, f.PageSize)
	assert.Equal(t, 100, f.MaxPageSize)
}

func TestOrderClause(t *testing.T) {
	assert.Equal(t, "reports.created DESC, reports.id ASC", orderClause(Reports, nil))
	assert.Equal(t, "reports.peril ASC, reports.name DESC, reports.id ASC", orderClause(Reports, []string{"peril", "-name"}))
	assert.Equal(t, "report_modifiers.id ASC, report_modifiers.id ASC", orderClause(ReportModifiers, nil))
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `100\%`, escapeLike("100%"))
	assert.Equal(t, `a\_b`, escapeLike("a_b"))
	assert.Equal(t, `c:\\dir`, escapeLike(`c:\dir`))
}

func setupDb(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDb, err := db.DB()
	require.NoError(t, err)
	sqlDb.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(schema.Tables...))
	return db
}

func TestListEvents(t *testing.T) {
	db := setupDb(t)

	country := "FR"
	events := []schema.Event{
		{Name: "c ring", IsValid: true, Ring: &schema.RingEvent{Latitude: 1, Longitude: 1, Radius: 3}},
		{Name: "a ring", IsValid: false, Ring: &schema.RingEvent{Latitude: 1, Longitude: 1, Radius: 1}},
		{Name: "b geo 100%", IsValid: true, Geo: &schema.GeoEvent{Country: &country}},
		{Name: "d base", Description: "ring shaped", IsValid: true},
	}
	require.NoError(t, db.Create(&events).Error)

	var all []schema.Event
	page, err := List(db, Events, Params{Page: 1, PageSize: 3}, &all)
	require.NoError(t, err)
	assert.Equal(t, Pagination{Page: 1, PageSize: 3, TotalPages: 2, TotalCount: 4, HasNext: true}, page)
	require.Len(t, all, 3)
	assert.Equal(t, "a ring", all[0].Name)
	assert.NotNil(t, all[0].Ring, "variants should be preloaded")
	assert.NotNil(t, all[1].Geo)

	var rings []schema.Event
	page, err = List(db, RingEvents, Params{Page: 1, PageSize: 10, Ordering: []string{"-radius"}}, &rings)
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.TotalCount)
	assert.Equal(t, "c ring", rings[0].Name)

	var valid []schema.Event
	_, err = List(db, RingEvents, Params{Page: 1, PageSize: 10, Filters: map[string]string{"is_valid": "false"}}, &valid)
	require.NoError(t, err)
	require.Len(t, valid, 1)
	assert.Equal(t, "a ring", valid[0].Name)

	// search covers the description and treats wildcards literally
	var found []schema.Event
	_, err = List(db, Events, Params{Page: 1, PageSize: 10, Search: "RING"}, &found)
	require.NoError(t, err)
	assert.Len(t, found, 3)

	found = nil
	_, err = List(db, Events, Params{Page: 1, PageSize: 10, Search: "100%"}, &found)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "b geo 100%", found[0].Name)

	found = nil
	_, err = List(db, Events, Params{Page: 1, PageSize: 10, Search: "0%g"}, &found)
	require.NoError(t, err)
	assert.Len(t, found, 0)

	var none []schema.Event
	_, err = List(db, Events, Params{Page: 3, PageSize: 3}, &none)
	assert.ErrorIs(t, err, ErrInvalidPage)

	_, err = List(db, Events, Params{Page: 1, PageSize: 3, Filters: map[string]string{"is_valid": "perhaps"}}, &none)
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, utils.GetResponseCode(err))
}

func TestEmptyCollection(t *testing.T) {
	db := setupDb(t)

	var reports []schema.Report
	page, err := List(db, Reports, Params{Page: 1, PageSize: 10}, &reports)
	require.NoError(t, err)
	assert.Equal(t, 1, page.TotalPages)
	assert.False(t, page.HasNext)

	out := NewPage[int](newRequest("page_size=10"), page, nil)
	assert.NotNil(t, out.Data)
	assert.Nil(t, out.Links.Next)
	assert.Contains(t, out.Links.Self, "page=1")
	assert.Contains(t, out.Links.Self, "page_size=10")
}

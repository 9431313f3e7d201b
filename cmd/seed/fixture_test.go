package main

import (
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/artesarh/rpb/client"
	"github.com/artesarh/rpb/reporting/auth"
	"github.com/artesarh/rpb/reporting/schema"
	"github.com/artesarh/rpb/reporting/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const testFixture = `
events:
  - key: florida
    type: box
    name: Florida box
    max_lat: 31.0
    min_lat: 24.5
    max_lon: -80.0
    min_lon: -87.6
  - key: gulf
    type: box
    name: Gulf coast box
    max_lat: 30.5
    min_lat: 25.0
    max_lon: -88.0
    min_lon: -97.5
  - key: tokyo
    type: ring
    name: Tokyo ring
    latitude: 35.68
    longitude: 139.69
    radius: 50
  - key: france
    type: geo
    name: France
    country: FR
event_groups:
  - key: main
    name: Main group
    events: [florida, gulf]
  - key: japan
    name: Japan rings
    events: [tokyo]
modifiers:
  - key: q1
    as_at_date: "2024-03-31"
    fx_date: "2024-03-31"
  - key: q2
    as_at_date: "2024-06-30"
reports:
  - key: wind
    name: Wind report
    peril: WS
    event_group: main
    loss_perspective: GR
    cron: "0 1 * * *"
    modifiers: [q1, q2]
jobs:
  - report: wind
    modifier: q1
    fireant_jobid: 1001
  - report: wind
    fireant_jobid: 1002
`

func newTestServer(t *testing.T) string {
	db, err := gorm.Open(sqlite.Open("file::memory:?_foreign_keys=on"), &gorm.Config{})
	require.NoError(t, err)
	sqlDb, err := db.DB()
	require.NoError(t, err)
	sqlDb.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(schema.Tables...))

	identity, err := auth.NewBasicIdentityProvider(db, auth.NewAuditLogger(io.Discard), auth.BasicProviderArgs{
		Secret:          []byte("seed-test-secret"),
		AdminUsername:   "admin",
		AdminPassword:   "password",
		AccessTokenTtl:  time.Hour,
		RefreshTokenTtl: time.Hour,
	})
	require.NoError(t, err)

	reporting := services.NewReporting(db, identity, services.Options{PageSize: 10, MaxPageSize: 100})
	server := httptest.NewServer(reporting.Routes())
	t.Cleanup(server.Close)

	return server.URL
}

func writeFixture(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "fixture.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestSeedFixture(t *testing.T) {
	c := client.NewReportingClient(newTestServer(t))
	require.NoError(t, c.Login("admin", "password"))

	f, err := loadFixture(writeFixture(t, testFixture))
	require.NoError(t, err)

	s := newSeeder(c)
	counts, err := s.apply(f)
	require.NoError(t, err)
	assert.Equal(t, seedCounts{Events: 4, Groups: 2, Modifiers: 2, Reports: 1, Links: 2, Jobs: 2}, counts)

	detail, err := c.EventGroupDetail(s.groups["main"])
	require.NoError(t, err)
	assert.Len(t, detail.Events, 2)

	modifiers, err := c.ReportModifiers(s.reports["wind"])
	require.NoError(t, err)
	assert.Len(t, modifiers, 2)

	summary, err := c.LinkSummary()
	require.NoError(t, err)
	assert.Equal(t, int64(2), summary.TotalLinks)
	assert.Equal(t, int64(1), summary.ReportsWithModifiers)
}

func TestSeedUnknownReference(t *testing.T) {
	c := client.NewReportingClient(newTestServer(t))
	require.NoError(t, c.Login("admin", "password"))

	f, err := loadFixture(writeFixture(t, `
event_groups:
  - key: main
    name: Main group
    events: [missing]
`))
	require.NoError(t, err)

	_, err = newSeeder(c).apply(f)
	require.ErrorContains(t, err, "unknown event 'missing'")
}

func TestSeedInvalidEventType(t *testing.T) {
	c := client.NewReportingClient(newTestServer(t))
	require.NoError(t, c.Login("admin", "password"))

	_, err := newSeeder(c).apply(fixture{Events: []fixtureEvent{{Key: "x", Type: "polygon", Name: "x"}}})
	require.ErrorContains(t, err, "invalid event type 'polygon'")
}

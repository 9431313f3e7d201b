package tests

import (
	"bytes"
	"testing"
	"time"

	"github.com/artesarh/rpb/reporting/auth"
	"github.com/artesarh/rpb/reporting/schema"
	"github.com/artesarh/rpb/reporting/services"
	"github.com/go-chi/chi/v5"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type testEnv struct {
	db        *gorm.DB
	reporting services.Reporting
	api       chi.Router
	auditLog  *bytes.Buffer
}

const (
	adminUsername = "admin123"
	adminPassword = "admin_password123"

	testPageSize    = 5
	testMaxPageSize = 20
)

func setupTestEnv(t *testing.T) *testEnv {
	db, err := gorm.Open(sqlite.Open("file::memory:?_foreign_keys=on"), &gorm.Config{})
	if err != nil {
		t.Fatal(err)
	}

	// every connection to :memory: is its own database
	sqlDb, err := db.DB()
	if err != nil {
		t.Fatal(err)
	}
	sqlDb.SetMaxOpenConns(1)

	if err := db.AutoMigrate(schema.Tables...); err != nil {
		t.Fatal(err)
	}

	auditLog := new(bytes.Buffer)

	userAuth, err := auth.NewBasicIdentityProvider(
		db,
		auth.NewAuditLogger(auditLog),
		auth.BasicProviderArgs{
			Secret:          []byte("290zcv02ai249"),
			AdminUsername:   adminUsername,
			AdminPassword:   adminPassword,
			AccessTokenTtl:  time.Hour,
			RefreshTokenTtl: 24 * time.Hour,
		},
	)
	if err != nil {
		t.Fatal(err)
	}

	reporting := services.NewReporting(db, userAuth, services.Options{
		PageSize:    testPageSize,
		MaxPageSize: testMaxPageSize,
	})

	return &testEnv{db: db, reporting: reporting, api: reporting.Routes(), auditLog: auditLog}
}

func (t *testEnv) newClient() client {
	return client{api: t.api}
}

func (t *testEnv) adminClient() (client, error) {
	c := t.newClient()
	err := c.login(adminUsername, adminPassword)
	return c, err
}

func (t *testEnv) mustAdmin(tt *testing.T) client {
	c, err := t.adminClient()
	if err != nil {
		tt.Fatal(err)
	}
	return c
}

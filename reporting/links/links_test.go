package links

import (
	"net/http"
	"path/filepath"
	"sync"
	"testing"

	"github.com/artesarh/rpb/reporting/schema"
	"github.com/artesarh/rpb/reporting/validation"
	"github.com/artesarh/rpb/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type fixture struct {
	db        *gorm.DB
	manager   *Manager
	reports   []uint
	modifiers []uint
}

func setup(t *testing.T, nReports, nModifiers int) fixture {
	db, err := gorm.Open(sqlite.Open("file::memory:?_foreign_keys=on"), &gorm.Config{})
	require.NoError(t, err)
	sqlDb, err := db.DB()
	require.NoError(t, err)
	sqlDb.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(schema.Tables...))

	group := schema.EventGroup{Name: "group"}
	require.NoError(t, db.Create(&group).Error)

	f := fixture{db: db, manager: NewManager(db)}
	for i := 0; i < nReports; i++ {
		report := schema.Report{Name: "report", Peril: "WS", EventGroupId: group.Id, LossPerspective: "GR"}
		require.NoError(t, db.Create(&report).Error)
		f.reports = append(f.reports, report.Id)
	}
	for i := 0; i < nModifiers; i++ {
		modifier := schema.ReportModifier{}
		require.NoError(t, db.Create(&modifier).Error)
		f.modifiers = append(f.modifiers, modifier.Id)
	}
	return f
}

func (f fixture) countLinks(t *testing.T) int64 {
	var n int64
	require.NoError(t, f.db.Model(&schema.ReportModifierLink{}).Count(&n).Error)
	return n
}

func TestLinkIsIdempotent(t *testing.T) {
	f := setup(t, 1, 1)
	r, m := f.reports[0], f.modifiers[0]

	res, err := f.manager.Link(r, m)
	require.NoError(t, err)
	assert.Equal(t, Result{Status: StatusLinked, ReportId: r, ModifierId: m}, res)

	res, err = f.manager.Link(r, m)
	require.NoError(t, err)
	assert.Equal(t, StatusAlreadyLinked, res.Status)

	assert.Equal(t, int64(1), f.countLinks(t))
}

func TestConcurrentLinks(t *testing.T) {
	f := setup(t, 1, 1)

	statuses := make([]string, 8)
	errs := make([]error, 8)
	wg := sync.WaitGroup{}
	for i := range statuses {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := f.manager.Link(f.reports[0], f.modifiers[0])
			statuses[i], errs[i] = res.Status, err
		}(i)
	}
	wg.Wait()

	nLinked := 0
	for i := range statuses {
		require.NoError(t, errs[i])
		if statuses[i] == StatusLinked {
			nLinked++
		} else {
			assert.Equal(t, StatusAlreadyLinked, statuses[i])
		}
	}
	assert.Equal(t, 1, nLinked)
	assert.Equal(t, int64(1), f.countLinks(t))
}

func TestUnlink(t *testing.T) {
	f := setup(t, 1, 2)
	r := f.reports[0]

	_, err := f.manager.Link(r, f.modifiers[0])
	require.NoError(t, err)

	res, err := f.manager.Unlink(r, f.modifiers[0])
	require.NoError(t, err)
	assert.Equal(t, StatusUnlinked, res.Status)

	res, err = f.manager.Unlink(r, f.modifiers[0])
	require.NoError(t, err)
	assert.Equal(t, StatusNotLinked, res.Status)

	res, err = f.manager.Unlink(r, f.modifiers[1])
	require.NoError(t, err)
	assert.Equal(t, StatusNotLinked, res.Status)

	assert.Equal(t, int64(0), f.countLinks(t))
}

func TestUnknownIds(t *testing.T) {
	f := setup(t, 1, 1)

	_, err := f.manager.Link(f.reports[0]+10, f.modifiers[0])
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, utils.GetResponseCode(err))
	assert.ErrorIs(t, err, schema.ErrReportNotFound)

	_, err = f.manager.Unlink(f.reports[0], f.modifiers[0]+10)
	require.Error(t, err)
	assert.ErrorIs(t, err, schema.ErrModifierNotFound)

	_, err = f.manager.Link(f.reports[0]+10, f.modifiers[0]+10)
	require.Error(t, err)
	assert.ErrorIs(t, err, schema.ErrReportNotFound)
	assert.ErrorIs(t, err, schema.ErrModifierNotFound)
}

func TestLinkBulk(t *testing.T) {
	f := setup(t, 2, 2)

	_, err := f.manager.Link(f.reports[0], f.modifiers[1])
	require.NoError(t, err)

	res, err := f.manager.LinkBulk(f.reports, f.modifiers)
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, res.Status)
	assert.Equal(t, 3, res.NewlyLinked)
	assert.Equal(t, 1, res.AlreadyLinked)
	assert.Equal(t, 4, res.TotalCombinations)
	assert.Equal(t, int64(4), f.countLinks(t))

	// duplicate ids count against the existing link
	res, err = f.manager.LinkBulk([]uint{f.reports[0], f.reports[0]}, f.modifiers[:1])
	require.NoError(t, err)
	assert.Equal(t, 0, res.NewlyLinked)
	assert.Equal(t, 2, res.AlreadyLinked)
	assert.Equal(t, 2, res.TotalCombinations)
}

func TestLinkBulkIsAllOrNothing(t *testing.T) {
	f := setup(t, 2, 1)

	_, err := f.manager.LinkBulk([]uint{f.reports[0], f.reports[1] + 5}, f.modifiers)
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, utils.GetResponseCode(err))
	assert.Equal(t, int64(0), f.countLinks(t))

	_, err = f.manager.LinkBulk(nil, []uint{})
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, utils.GetResponseCode(err))
	var requiredErr *validation.RequiredError
	assert.ErrorAs(t, err, &requiredErr)
	assert.Contains(t, err.Error(), "reports")
	assert.Contains(t, err.Error(), "modifiers")
}

func TestSummary(t *testing.T) {
	f := setup(t, 3, 2)

	s, err := f.manager.Summary()
	require.NoError(t, err)
	assert.Equal(t, Summary{TotalReports: 3, TotalModifiers: 2, ReportsWithoutModifiers: 3, ModifiersWithoutReports: 2}, s)

	_, err = f.manager.LinkBulk(f.reports[:2], f.modifiers[:1])
	require.NoError(t, err)

	s, err = f.manager.Summary()
	require.NoError(t, err)
	assert.Equal(t, Summary{
		TotalReports:            3,
		TotalModifiers:          2,
		TotalLinks:              2,
		ReportsWithModifiers:    2,
		ReportsWithoutModifiers: 1,
		ModifiersWithReports:    1,
		ModifiersWithoutReports: 1,
	}, s)
}

// The in memory fixture serializes on one connection, this one runs the
// links against a pooled file database the way the server opens it.
func TestConcurrentLinksOnFileDatabase(t *testing.T) {
	db, err := schema.Open("sqlite://" + filepath.Join(t.TempDir(), "reports.sqlite"))
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(schema.Tables...))

	group := schema.EventGroup{Name: "group"}
	require.NoError(t, db.Create(&group).Error)

	manager := NewManager(db)

	const rounds, workers = 10, 16
	for round := 0; round < rounds; round++ {
		report := schema.Report{Name: "report", Peril: "WS", EventGroupId: group.Id, LossPerspective: "GR"}
		require.NoError(t, db.Create(&report).Error)
		modifier := schema.ReportModifier{}
		require.NoError(t, db.Create(&modifier).Error)

		statuses := make([]string, workers)
		errs := make([]error, workers)
		wg := sync.WaitGroup{}
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				res, err := manager.Link(report.Id, modifier.Id)
				statuses[i], errs[i] = res.Status, err
			}(i)
		}
		wg.Wait()

		nLinked := 0
		for i := 0; i < workers; i++ {
			require.NoError(t, errs[i], "round %d", round)
			if statuses[i] == StatusLinked {
				nLinked++
			}
		}
		assert.Equal(t, 1, nLinked, "round %d", round)

		var n int64
		require.NoError(t, db.Model(&schema.ReportModifierLink{}).Where("report_id = ?", report.Id).Count(&n).Error)
		assert.Equal(t, int64(1), n)
	}
}

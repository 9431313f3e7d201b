package tests

import (
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/artesarh/rpb/reporting/links"
	"github.com/artesarh/rpb/reporting/views"
)

func TestLinkIsIdempotent(t *testing.T) {
	env := setupTestEnv(t)
	c := env.mustAdmin(t)

	_, report, err := c.fixture("WS")
	if err != nil {
		t.Fatal(err)
	}
	modifier, err := c.createModifier("2024-03-31", "")
	if err != nil {
		t.Fatal(err)
	}

	res, err := c.link(report.Id, modifier.Id)
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != links.StatusLinked || res.ReportId != report.Id || res.ModifierId != modifier.Id {
		t.Fatalf("invalid link result %+v", res)
	}

	res, err = c.link(report.Id, modifier.Id)
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != links.StatusAlreadyLinked {
		t.Fatalf("second link should report already_linked: %+v", res)
	}

	var reloaded views.ReportWithModifiers
	if err := c.Get("/api/reports/" + itoa(report.Id)).Do(&reloaded); err != nil {
		t.Fatal(err)
	}
	if len(reloaded.Modifiers) != 1 || reloaded.Modifiers[0] != modifier.Id {
		t.Fatalf("report should list the modifier once: %+v", reloaded.Modifiers)
	}
}

func TestConcurrentLinks(t *testing.T) {
	env := setupTestEnv(t)
	c := env.mustAdmin(t)

	_, report, err := c.fixture("WS")
	if err != nil {
		t.Fatal(err)
	}
	modifier, err := c.createModifier("2024-03-31", "")
	if err != nil {
		t.Fatal(err)
	}

	const n = 8
	statuses := make(chan string, n)
	wg := sync.WaitGroup{}
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := c.link(report.Id, modifier.Id)
			if err != nil {
				t.Error(err)
				return
			}
			statuses <- res.Status
		}()
	}
	wg.Wait()
	close(statuses)

	linked := 0
	for status := range statuses {
		if status == links.StatusLinked {
			linked++
		}
	}
	if linked != 1 {
		t.Fatalf("exactly one concurrent link should create the pair, got %d", linked)
	}

	summary, err := c.linkSummary()
	if err != nil {
		t.Fatal(err)
	}
	if summary.TotalLinks != 1 {
		t.Fatalf("expected a single link %+v", summary)
	}
}

func TestUnlink(t *testing.T) {
	env := setupTestEnv(t)
	c := env.mustAdmin(t)

	_, report, err := c.fixture("WS")
	if err != nil {
		t.Fatal(err)
	}
	modifier, err := c.createModifier("", "2024-01-01")
	if err != nil {
		t.Fatal(err)
	}

	res, err := c.unlink(report.Id, modifier.Id)
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != links.StatusNotLinked {
		t.Fatalf("unlinking a missing pair should report not_linked: %+v", res)
	}

	if _, err := c.link(report.Id, modifier.Id); err != nil {
		t.Fatal(err)
	}
	res, err = c.unlink(report.Id, modifier.Id)
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != links.StatusUnlinked {
		t.Fatalf("expected unlinked: %+v", res)
	}

	// both entities survive the unlink
	if err := c.Get("/api/reports/" + itoa(report.Id)).Do(nil); err != nil {
		t.Fatal(err)
	}
	if err := c.Get("/api/report-modifiers/" + itoa(modifier.Id)).Do(nil); err != nil {
		t.Fatal(err)
	}
}

func TestLinkUnknownIds(t *testing.T) {
	env := setupTestEnv(t)
	c := env.mustAdmin(t)

	_, report, err := c.fixture("WS")
	if err != nil {
		t.Fatal(err)
	}

	_, err = c.link(report.Id, 77)
	if statusOf(err) != http.StatusNotFound || !strings.Contains(envelopeOf(err).Detail, "77") {
		t.Fatalf("unknown modifier should return 404: %v", err)
	}

	if _, err := c.unlink(99, 77); statusOf(err) != http.StatusNotFound {
		t.Fatalf("unknown ids should return 404 on unlink: %v", err)
	}

	err = c.Post("/api/link-modifier/single").Json(map[string]uint{"report_id": report.Id}).Do(nil)
	if statusOf(err) != http.StatusBadRequest || !strings.Contains(envelopeOf(err).Detail, "modifier_id is required") {
		t.Fatalf("missing modifier id should return 400: %v", err)
	}
}

func TestLinkBulk(t *testing.T) {
	env := setupTestEnv(t)
	c := env.mustAdmin(t)

	group, r1, err := c.fixture("WS")
	if err != nil {
		t.Fatal(err)
	}
	r2, err := c.createReport("second", "FL", group.Id)
	if err != nil {
		t.Fatal(err)
	}
	m1, err := c.createModifier("2024-03-31", "")
	if err != nil {
		t.Fatal(err)
	}
	m2, err := c.createModifier("2024-06-30", "")
	if err != nil {
		t.Fatal(err)
	}

	if _, err := c.link(r1.Id, m1.Id); err != nil {
		t.Fatal(err)
	}

	res, err := c.linkBulk([]uint{r1.Id, r2.Id}, []uint{m1.Id, m2.Id})
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != links.StatusSuccess || res.TotalCombinations != 4 || res.NewlyLinked != 3 || res.AlreadyLinked != 1 {
		t.Fatalf("invalid bulk result %+v", res)
	}

	res, err = c.linkBulk([]uint{r1.Id, r2.Id}, []uint{m1.Id, m2.Id})
	if err != nil {
		t.Fatal(err)
	}
	if res.NewlyLinked != 0 || res.AlreadyLinked != 4 {
		t.Fatalf("repeated bulk link should change nothing %+v", res)
	}

	if _, err := c.linkBulk(nil, []uint{m1.Id}); statusOf(err) != http.StatusBadRequest {
		t.Fatalf("empty report list should return 400: %v", err)
	}

	// one unknown id rejects the whole request
	m3, err := c.createModifier("2024-09-30", "")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.linkBulk([]uint{r1.Id, 404}, []uint{m3.Id}); statusOf(err) != http.StatusNotFound {
		t.Fatalf("unknown report should return 404: %v", err)
	}

	summary, err := c.linkSummary()
	if err != nil {
		t.Fatal(err)
	}
	expected := links.Summary{
		TotalReports: 2, TotalModifiers: 3, TotalLinks: 4,
		ReportsWithModifiers: 2, ReportsWithoutModifiers: 0,
		ModifiersWithReports: 2, ModifiersWithoutReports: 1,
	}
	if summary != expected {
		t.Fatalf("invalid summary %+v", summary)
	}
}

func TestDeleteCascadesLinks(t *testing.T) {
	env := setupTestEnv(t)
	c := env.mustAdmin(t)

	_, report, err := c.fixture("WS")
	if err != nil {
		t.Fatal(err)
	}
	modifier, err := c.createModifier("2024-03-31", "")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.link(report.Id, modifier.Id); err != nil {
		t.Fatal(err)
	}

	if err := c.Delete("/api/report-modifiers/" + itoa(modifier.Id)).Do(nil); err != nil {
		t.Fatal(err)
	}

	summary, err := c.linkSummary()
	if err != nil {
		t.Fatal(err)
	}
	if summary.TotalLinks != 0 || summary.TotalReports != 1 {
		t.Fatalf("deleting a modifier should remove its links only %+v", summary)
	}
}

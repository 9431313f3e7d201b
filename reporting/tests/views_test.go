package tests

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/artesarh/rpb/reporting/views"
)

type nested[T any] struct {
	Meta struct {
		ReportId       uint              `json:"report_id"`
		ModifierId     *uint             `json:"modifier_id"`
		EventGroupId   *uint             `json:"event_group_id"`
		ModifiersCount *int              `json:"modifiers_count"`
		JobsCount      *int              `json:"jobs_count"`
		Links          map[string]string `json:"links"`
	} `json:"meta"`
	Data T `json:"data"`
}

func TestReportModifierViews(t *testing.T) {
	env := setupTestEnv(t)
	c := env.mustAdmin(t)

	_, report, err := c.fixture("WS")
	if err != nil {
		t.Fatal(err)
	}
	linked, err := c.createModifier("2024-05-15", "2024-05-01")
	if err != nil {
		t.Fatal(err)
	}
	unlinked, err := c.createModifier("2024-06-30", "")
	if err != nil {
		t.Fatal(err)
	}

	if err := c.Get(fmt.Sprintf("/api/reports/%d/modifiers", report.Id)).Do(nil); statusOf(err) != http.StatusNotFound {
		t.Fatalf("report without modifiers should return 404: %v", err)
	}

	if _, err := c.link(report.Id, linked.Id); err != nil {
		t.Fatal(err)
	}

	var one nested[views.ReportModifier]
	if err := c.Get(fmt.Sprintf("/api/reports/%d/modifiers/%d", report.Id, linked.Id)).Do(&one); err != nil {
		t.Fatal(err)
	}
	if one.Data.Report.Id != report.Id || one.Data.Modifier.Id != linked.Id || *one.Meta.ModifierId != linked.Id {
		t.Fatalf("invalid report modifier view %+v", one)
	}
	if one.Meta.Links["modifier"] == "" || one.Meta.Links["report"] == "" {
		t.Fatalf("view should link to its parts %+v", one.Meta.Links)
	}

	// an existing modifier is only reachable through a link
	err = c.Get(fmt.Sprintf("/api/reports/%d/modifiers/%d", report.Id, unlinked.Id)).Do(nil)
	if statusOf(err) != http.StatusNotFound {
		t.Fatalf("unlinked modifier should return 404: %v", err)
	}

	var all nested[views.ReportModifiers]
	if err := c.Get(fmt.Sprintf("/api/reports/%d/modifiers", report.Id)).Do(&all); err != nil {
		t.Fatal(err)
	}
	if *all.Meta.ModifiersCount != 1 || len(all.Data.Modifiers) != 1 {
		t.Fatalf("invalid modifiers view %+v", all)
	}

	if err := c.Get(fmt.Sprintf("/api/reports/%d/modifiers", 999)).Do(nil); statusOf(err) != http.StatusNotFound {
		t.Fatalf("unknown report should return 404: %v", err)
	}
}

func TestReportEventGroupViews(t *testing.T) {
	env := setupTestEnv(t)
	c := env.mustAdmin(t)

	ring, err := c.createRingEvent("tokyo", 35.68, 139.69, 50)
	if err != nil {
		t.Fatal(err)
	}
	group, err := c.createEventGroup("japan", ring.Id)
	if err != nil {
		t.Fatal(err)
	}
	report, err := c.createReport("quake", "EQ", group.Id)
	if err != nil {
		t.Fatal(err)
	}
	modifier, err := c.createModifier("2024-03-31", "2024-03-31")
	if err != nil {
		t.Fatal(err)
	}

	var eg nested[views.ReportEventGroup]
	if err := c.Get(fmt.Sprintf("/api/reports/%d/event-group", report.Id)).Do(&eg); err != nil {
		t.Fatal(err)
	}
	if *eg.Meta.EventGroupId != group.Id || eg.Data.EventGroup.Name != "japan" || len(eg.Data.EventGroup.Events) != 1 {
		t.Fatalf("invalid event group view %+v", eg)
	}
	member := eg.Data.EventGroup.Events[0].(map[string]interface{})
	if member["radius"] != 50.0 || member["event_type"] != "ring" {
		t.Fatalf("members should be rendered as their variant %+v", member)
	}

	url := fmt.Sprintf("/api/reports/%d/modifier/%d/all", report.Id, modifier.Id)
	if err := c.Get(url).Do(nil); statusOf(err) != http.StatusNotFound {
		t.Fatalf("combined view needs a linked modifier: %v", err)
	}

	if _, err := c.link(report.Id, modifier.Id); err != nil {
		t.Fatal(err)
	}

	var all nested[views.ReportAll]
	if err := c.Get(url).Do(&all); err != nil {
		t.Fatal(err)
	}
	if all.Data.Report.Id != report.Id || all.Data.EventGroup.Id != group.Id || all.Data.Modifier.Id != modifier.Id {
		t.Fatalf("invalid combined view %+v", all.Data)
	}
	if len(all.Meta.Links) != 3 {
		t.Fatalf("combined view should link report, event group and modifier %+v", all.Meta.Links)
	}
}

func TestReportJobsView(t *testing.T) {
	env := setupTestEnv(t)
	c := env.mustAdmin(t)

	_, report, err := c.fixture("WS")
	if err != nil {
		t.Fatal(err)
	}

	var empty nested[[]views.Job]
	if err := c.Get(fmt.Sprintf("/api/reports/%d/jobs", report.Id)).Do(&empty); err != nil {
		t.Fatal(err)
	}
	if *empty.Meta.JobsCount != 0 || len(empty.Data) != 0 {
		t.Fatalf("report should have no jobs %+v", empty)
	}

	for _, id := range []int{101, 102} {
		if err := c.Post("/api/jobs").Json(map[string]interface{}{"report": report.Id, "fireant_jobid": id}).Do(nil); err != nil {
			t.Fatal(err)
		}
	}

	var jobs nested[[]views.Job]
	if err := c.Get(fmt.Sprintf("/api/reports/%d/jobs", report.Id)).Do(&jobs); err != nil {
		t.Fatal(err)
	}
	if *jobs.Meta.JobsCount != 2 || jobs.Data[0].FireantJobid != 102 {
		t.Fatalf("jobs should be listed newest first %+v", jobs.Data)
	}
}

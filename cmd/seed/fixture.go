package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/artesarh/rpb/client"
	"github.com/artesarh/rpb/reporting/store"
	"gopkg.in/yaml.v3"
)

// Entries refer to each other by key, ids are only known once the server has
// created the records.
type fixture struct {
	Events    []fixtureEvent    `yaml:"events"`
	Groups    []fixtureGroup    `yaml:"event_groups"`
	Modifiers []fixtureModifier `yaml:"modifiers"`
	Reports   []fixtureReport   `yaml:"reports"`
	Jobs      []fixtureJob      `yaml:"jobs"`
}

type fixtureEvent struct {
	Key         string `yaml:"key"`
	Type        string `yaml:"type"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	IsValid     *bool  `yaml:"is_valid"`

	Latitude  float64 `yaml:"latitude"`
	Longitude float64 `yaml:"longitude"`
	Radius    float64 `yaml:"radius"`

	MaxLat float64 `yaml:"max_lat"`
	MinLat float64 `yaml:"min_lat"`
	MaxLon float64 `yaml:"max_lon"`
	MinLon float64 `yaml:"min_lon"`

	Country  *string `yaml:"country"`
	Area     *string `yaml:"area"`
	Subarea  *string `yaml:"subarea"`
	Subarea2 *string `yaml:"subarea2"`
}

type fixtureGroup struct {
	Key    string   `yaml:"key"`
	Name   string   `yaml:"name"`
	Events []string `yaml:"events"`
}

type fixtureModifier struct {
	Key      string  `yaml:"key"`
	AsAtDate *string `yaml:"as_at_date"`
	FxDate   *string `yaml:"fx_date"`
}

type fixtureReport struct {
	Key             string   `yaml:"key"`
	Name            string   `yaml:"name"`
	Peril           string   `yaml:"peril"`
	Dr              *float64 `yaml:"dr"`
	EventGroup      string   `yaml:"event_group"`
	Cron            *string  `yaml:"cron"`
	Cob             *string  `yaml:"cob"`
	LossPerspective string   `yaml:"loss_perspective"`
	Priority        *string  `yaml:"priority"`
	Ncores          *int     `yaml:"ncores"`
	IsValid         *bool    `yaml:"is_valid"`
	Modifiers       []string `yaml:"modifiers"`
}

type fixtureJob struct {
	Report       string  `yaml:"report"`
	Modifier     *string `yaml:"modifier"`
	FireantJobid int     `yaml:"fireant_jobid"`
}

func loadFixture(path string) (fixture, error) {
	var f fixture

	data, err := os.ReadFile(path)
	if err != nil {
		return f, fmt.Errorf("error reading fixture file %v: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &f); err != nil {
		return f, fmt.Errorf("error parsing fixture file %v: %w", path, err)
	}

	return f, nil
}

type seedCounts struct {
	Events, Groups, Modifiers, Reports, Links, Jobs int
}

type seeder struct {
	client *client.ReportingClient

	events    map[string]uint
	groups    map[string]uint
	modifiers map[string]uint
	reports   map[string]uint
}

func newSeeder(c *client.ReportingClient) *seeder {
	return &seeder{
		client:    c,
		events:    map[string]uint{},
		groups:    map[string]uint{},
		modifiers: map[string]uint{},
		reports:   map[string]uint{},
	}
}

func lookup(ids map[string]uint, kind, key string) (uint, error) {
	id, ok := ids[key]
	if !ok {
		return 0, fmt.Errorf("fixture references unknown %v '%v'", kind, key)
	}
	return id, nil
}

func (s *seeder) createEvent(e fixtureEvent) (uint, error) {
	base := store.EventInput{Name: e.Name, Description: e.Description, IsValid: e.IsValid}

	switch e.Type {
	case "", "base":
		out, err := s.client.CreateEvent(base)
		return out.Id, err
	case "ring":
		out, err := s.client.CreateRingEvent(store.RingEventInput{EventInput: base, Latitude: e.Latitude, Longitude: e.Longitude, Radius: e.Radius})
		return out.Id, err
	case "box":
		out, err := s.client.CreateBoxEvent(store.BoxEventInput{EventInput: base, MaxLat: e.MaxLat, MinLat: e.MinLat, MaxLon: e.MaxLon, MinLon: e.MinLon})
		return out.Id, err
	case "geo":
		out, err := s.client.CreateGeoEvent(store.GeoEventInput{EventInput: base, Country: e.Country, Area: e.Area, Subarea: e.Subarea, Subarea2: e.Subarea2})
		return out.Id, err
	default:
		return 0, fmt.Errorf("invalid event type '%v' for event '%v', expected base, ring, box or geo", e.Type, e.Key)
	}
}

func (s *seeder) apply(f fixture) (seedCounts, error) {
	var counts seedCounts

	for _, e := range f.Events {
		id, err := s.createEvent(e)
		if err != nil {
			return counts, fmt.Errorf("error creating event '%v': %w", e.Key, err)
		}
		s.events[e.Key] = id
		counts.Events++
	}

	for _, g := range f.Groups {
		eventIds := make([]uint, 0, len(g.Events))
		for _, key := range g.Events {
			id, err := lookup(s.events, "event", key)
			if err != nil {
				return counts, err
			}
			eventIds = append(eventIds, id)
		}
		group, err := s.client.CreateEventGroup(store.EventGroupInput{Name: g.Name, EventIds: eventIds})
		if err != nil {
			return counts, fmt.Errorf("error creating event group '%v': %w", g.Key, err)
		}
		s.groups[g.Key] = group.Id
		counts.Groups++
	}

	for _, m := range f.Modifiers {
		modifier, err := s.client.CreateModifier(store.ModifierInput{AsAtDate: m.AsAtDate, FxDate: m.FxDate})
		if err != nil {
			return counts, fmt.Errorf("error creating modifier '%v': %w", m.Key, err)
		}
		s.modifiers[m.Key] = modifier.Id
		counts.Modifiers++
	}

	for _, r := range f.Reports {
		groupId, err := lookup(s.groups, "event group", r.EventGroup)
		if err != nil {
			return counts, err
		}
		report, err := s.client.CreateReport(store.ReportInput{
			Name:            r.Name,
			Peril:           r.Peril,
			Dr:              r.Dr,
			EventGroup:      groupId,
			Cron:            r.Cron,
			Cob:             r.Cob,
			LossPerspective: r.LossPerspective,
			Priority:        r.Priority,
			Ncores:          r.Ncores,
			IsValid:         r.IsValid,
		})
		if err != nil {
			return counts, fmt.Errorf("error creating report '%v': %w", r.Key, err)
		}
		s.reports[r.Key] = report.Id
		counts.Reports++

		for _, key := range r.Modifiers {
			modifierId, err := lookup(s.modifiers, "modifier", key)
			if err != nil {
				return counts, err
			}
			if _, err := s.client.Link(report.Id, modifierId); err != nil {
				return counts, fmt.Errorf("error linking report '%v' to modifier '%v': %w", r.Key, key, err)
			}
			counts.Links++
		}
	}

	for i, j := range f.Jobs {
		reportId, err := lookup(s.reports, "report", j.Report)
		if err != nil {
			return counts, err
		}
		in := store.JobInput{Report: reportId, FireantJobid: &j.FireantJobid}
		if j.Modifier != nil {
			modifierId, err := lookup(s.modifiers, "modifier", *j.Modifier)
			if err != nil {
				return counts, err
			}
			in.ReportModifier = &modifierId
		}
		if _, err := s.client.CreateJob(in); err != nil {
			return counts, fmt.Errorf("error creating job %d: %w", i, err)
		}
		counts.Jobs++
	}

	slog.Info("fixture applied", "events", counts.Events, "event_groups", counts.Groups, "modifiers", counts.Modifiers, "reports", counts.Reports, "links", counts.Links, "jobs", counts.Jobs)

	return counts, nil
}

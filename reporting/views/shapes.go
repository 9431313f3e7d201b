package views

import (
	"time"

	"github.com/artesarh/rpb/reporting/schema"
	"github.com/artesarh/rpb/reporting/store"
)

type Event struct {
	Id          uint             `json:"id"`
	Name        string           `json:"name"`
	Description string           `json:"description"`
	IsValid     bool             `json:"is_valid"`
	EventType   schema.EventType `json:"event_type"`
}

type RingEvent struct {
	Event
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Radius    float64 `json:"radius"`
}

type BoxEvent struct {
	Event
	MaxLat float64 `json:"max_lat"`
	MinLat float64 `json:"min_lat"`
	MaxLon float64 `json:"max_lon"`
	MinLon float64 `json:"min_lon"`
}

type GeoEvent struct {
	Event
	Country  *string `json:"country"`
	Area     *string `json:"area"`
	Subarea  *string `json:"subarea"`
	Subarea2 *string `json:"subarea2"`
}

type EventGroup struct {
	Id      uint      `json:"id"`
	Name    string    `json:"name"`
	Events  []Event   `json:"events"`
	Created time.Time `json:"created"`
	Updated time.Time `json:"updated"`
}

// EventGroupDetail carries each member in the shape of its own variant.
type EventGroupDetail struct {
	Id      uint          `json:"id"`
	Name    string        `json:"name"`
	Created time.Time     `json:"created"`
	Updated time.Time     `json:"updated"`
	Events  []interface{} `json:"events"`
}

type Report struct {
	Id uint `json:"id"`
	store.ReportInput
	Created time.Time `json:"created"`
	Updated time.Time `json:"updated"`
}

type ReportWithModifiers struct {
	Report
	Modifiers []uint `json:"modifiers"`
}

type Modifier struct {
	Id       uint    `json:"id"`
	AsAtDate *string `json:"as_at_date"`
	FxDate   *string `json:"fx_date"`
	Quarter  *int    `json:"quarter"`
	Year     *int    `json:"year"`
	Month    *int    `json:"month"`
	Day      *int    `json:"day"`
}

type Job struct {
	Id             uint      `json:"id"`
	Report         uint      `json:"report"`
	ReportModifier *uint     `json:"report_modifier"`
	FireantJobid   int       `json:"fireant_jobid"`
	Created        time.Time `json:"created"`
	Updated        time.Time `json:"updated"`
}

func NewEvent(e schema.Event) (Event, error) {
	variant, err := e.Variant()
	if err != nil {
		return Event{}, err
	}
	return Event{Id: e.Id, Name: e.Name, Description: e.Description, IsValid: e.IsValid, EventType: variant}, nil
}

// NewEventDetail renders the event in the shape of its resolved variant.
func NewEventDetail(e schema.Event) (interface{}, error) {
	base, err := NewEvent(e)
	if err != nil {
		return nil, err
	}

	switch base.EventType {
	case schema.RingEventType:
		return RingEvent{Event: base, Latitude: e.Ring.Latitude, Longitude: e.Ring.Longitude, Radius: e.Ring.Radius}, nil
	case schema.BoxEventType:
		return BoxEvent{Event: base, MaxLat: e.Box.MaxLat, MinLat: e.Box.MinLat, MaxLon: e.Box.MaxLon, MinLon: e.Box.MinLon}, nil
	case schema.GeoEventType:
		return GeoEvent{Event: base, Country: e.Geo.Country, Area: e.Geo.Area, Subarea: e.Geo.Subarea, Subarea2: e.Geo.Subarea2}, nil
	default:
		return base, nil
	}
}

func NewEvents(events []schema.Event) ([]Event, error) {
	out := make([]Event, 0, len(events))
	for _, e := range events {
		view, err := NewEvent(e)
		if err != nil {
			return nil, err
		}
		out = append(out, view)
	}
	return out, nil
}

func NewEventDetails(events []schema.Event) ([]interface{}, error) {
	out := make([]interface{}, 0, len(events))
	for _, e := range events {
		view, err := NewEventDetail(e)
		if err != nil {
			return nil, err
		}
		out = append(out, view)
	}
	return out, nil
}

func memberEvents(group schema.EventGroup) []schema.Event {
	events := make([]schema.Event, 0, len(group.Members))
	for _, m := range group.Members {
		if m.Event != nil {
			events = append(events, *m.Event)
		}
	}
	return events
}

// NewEventGroup expects the group to have been loaded with its members.
func NewEventGroup(group schema.EventGroup) (EventGroup, error) {
	events, err := NewEvents(memberEvents(group))
	if err != nil {
		return EventGroup{}, err
	}
	return EventGroup{Id: group.Id, Name: group.Name, Events: events, Created: group.Created, Updated: group.Updated}, nil
}

func NewEventGroupDetail(group schema.EventGroup) (EventGroupDetail, error) {
	events, err := NewEventDetails(memberEvents(group))
	if err != nil {
		return EventGroupDetail{}, err
	}
	return EventGroupDetail{Id: group.Id, Name: group.Name, Created: group.Created, Updated: group.Updated, Events: events}, nil
}

func NewReport(r schema.Report) Report {
	return Report{Id: r.Id, ReportInput: store.ReportInputFrom(r), Created: r.Created, Updated: r.Updated}
}

func NewModifier(m schema.ReportModifier) Modifier {
	return Modifier{
		Id:       m.Id,
		AsAtDate: store.FormatDate(m.AsAtDate),
		FxDate:   store.FormatDate(m.FxDate),
		Quarter:  m.Quarter(),
		Year:     m.Year(),
		Month:    m.Month(),
		Day:      m.Day(),
	}
}

func NewModifiers(modifiers []schema.ReportModifier) []Modifier {
	out := make([]Modifier, 0, len(modifiers))
	for _, m := range modifiers {
		out = append(out, NewModifier(m))
	}
	return out
}

func NewJob(j schema.Job) Job {
	return Job{Id: j.Id, Report: j.ReportId, ReportModifier: j.ReportModifierId, FireantJobid: j.FireantJobid, Created: j.Created, Updated: j.Updated}
}

func NewJobs(jobs []schema.Job) []Job {
	out := make([]Job, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, NewJob(j))
	}
	return out
}

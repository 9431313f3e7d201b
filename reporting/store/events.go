package store

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/artesarh/rpb/reporting/schema"
	"github.com/artesarh/rpb/reporting/validation"
	"github.com/artesarh/rpb/utils"
	"github.com/artesarh/rpb/utils/logging"
	"gorm.io/gorm"
)

type EventInput struct {
	Name        string `json:"name" validate:"required,max=255"`
	Description string `json:"description" validate:"max=255"`
	IsValid     *bool  `json:"is_valid"`
}

type RingEventInput struct {
	EventInput
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Radius    float64 `json:"radius"`
}

type BoxEventInput struct {
	EventInput
	MaxLat float64 `json:"max_lat"`
	MinLat float64 `json:"min_lat"`
	MaxLon float64 `json:"max_lon"`
	MinLon float64 `json:"min_lon"`
}

type GeoEventInput struct {
	EventInput
	Country  *string `json:"country" validate:"omitempty,max=255"`
	Area     *string `json:"area" validate:"omitempty,max=255"`
	Subarea  *string `json:"subarea" validate:"omitempty,max=255"`
	Subarea2 *string `json:"subarea2" validate:"omitempty,max=255"`
}

// eventWriter is implemented by the input of each event variant. apply copies
// the input onto the event, including the variant extension if there is one.
type eventWriter interface {
	variant() schema.EventType
	check() error
	apply(e *schema.Event)
}

func (in EventInput) variant() schema.EventType { return schema.BaseEventType }

func (in EventInput) check() error { return nil }

func (in EventInput) apply(e *schema.Event) {
	e.Name = in.Name
	e.Description = in.Description
	e.IsValid = *orDefault(in.IsValid, true)
}

func (in RingEventInput) variant() schema.EventType { return schema.RingEventType }

func (in RingEventInput) check() error {
	return validation.Ring(in.Latitude, in.Longitude, in.Radius)
}

func (in RingEventInput) apply(e *schema.Event) {
	in.EventInput.apply(e)
	e.Ring = &schema.RingEvent{EventId: e.Id, Latitude: in.Latitude, Longitude: in.Longitude, Radius: in.Radius}
}

func (in BoxEventInput) variant() schema.EventType { return schema.BoxEventType }

func (in BoxEventInput) check() error {
	return validation.Box(in.MaxLat, in.MinLat, in.MaxLon, in.MinLon)
}

func (in BoxEventInput) apply(e *schema.Event) {
	in.EventInput.apply(e)
	e.Box = &schema.BoxEvent{EventId: e.Id, MaxLat: in.MaxLat, MinLat: in.MinLat, MaxLon: in.MaxLon, MinLon: in.MinLon}
}

func (in GeoEventInput) variant() schema.EventType { return schema.GeoEventType }

func (in GeoEventInput) check() error { return nil }

func (in GeoEventInput) apply(e *schema.Event) {
	in.EventInput.apply(e)
	e.Geo = &schema.GeoEvent{EventId: e.Id, Country: in.Country, Area: in.Area, Subarea: in.Subarea, Subarea2: in.Subarea2}
}

func (s *Store) CreateEvent(in EventInput) (schema.Event, error) {
	return s.createEvent(in)
}

func (s *Store) CreateRingEvent(in RingEventInput) (schema.Event, error) {
	return s.createEvent(in)
}

func (s *Store) CreateBoxEvent(in BoxEventInput) (schema.Event, error) {
	return s.createEvent(in)
}

func (s *Store) CreateGeoEvent(in GeoEventInput) (schema.Event, error) {
	return s.createEvent(in)
}

// UpdateEvent only touches the shared fields, so it works for events of any
// variant and leaves their extension as is.
func (s *Store) UpdateEvent(eventId uint, in EventInput) (schema.Event, error) {
	return s.updateEvent(eventId, "", replaceWith(in))
}

func (s *Store) UpdateRingEvent(eventId uint, in RingEventInput) (schema.Event, error) {
	return s.updateEvent(eventId, schema.RingEventType, replaceWith(in))
}

func (s *Store) UpdateBoxEvent(eventId uint, in BoxEventInput) (schema.Event, error) {
	return s.updateEvent(eventId, schema.BoxEventType, replaceWith(in))
}

func (s *Store) UpdateGeoEvent(eventId uint, in GeoEventInput) (schema.Event, error) {
	return s.updateEvent(eventId, schema.GeoEventType, replaceWith(in))
}

// The Patch variants decode the body over the stored event inside the update
// transaction.

func (s *Store) PatchEvent(eventId uint, patch []byte) (schema.Event, error) {
	return s.updateEvent(eventId, "", patchWith(patch, EventInputFrom))
}

func (s *Store) PatchRingEvent(eventId uint, patch []byte) (schema.Event, error) {
	return s.updateEvent(eventId, schema.RingEventType, patchWith(patch, RingEventInputFrom))
}

func (s *Store) PatchBoxEvent(eventId uint, patch []byte) (schema.Event, error) {
	return s.updateEvent(eventId, schema.BoxEventType, patchWith(patch, BoxEventInputFrom))
}

func (s *Store) PatchGeoEvent(eventId uint, patch []byte) (schema.Event, error) {
	return s.updateEvent(eventId, schema.GeoEventType, patchWith(patch, GeoEventInputFrom))
}

type eventInputFunc func(existing schema.Event) (eventWriter, error)

func replaceWith(in eventWriter) eventInputFunc {
	return func(schema.Event) (eventWriter, error) {
		return in, nil
	}
}

func patchWith[In eventWriter](patch []byte, from func(schema.Event) In) eventInputFunc {
	return func(existing schema.Event) (eventWriter, error) {
		in := from(existing)
		if err := decodePatch(patch, &in); err != nil {
			return nil, err
		}
		return in, nil
	}
}

func (s *Store) createEvent(in eventWriter) (schema.Event, error) {
	if err := validate(in, in.check()); err != nil {
		return schema.Event{}, err
	}

	var event schema.Event
	in.apply(&event)

	err := s.db.Transaction(func(txn *gorm.DB) error {
		// the extension rows are created through the has-one associations
		if result := txn.Create(&event); result.Error != nil {
			return dbError("creating event", result.Error, "event_type", in.variant())
		}
		return nil
	})
	if err != nil {
		return schema.Event{}, err
	}

	slog.Info("created event", "event_id", event.Id, "event_type", in.variant(), "code", logging.DATA_CREATE)

	return event, nil
}

// GetEventOfType loads an event and checks it has the expected variant. An
// empty variant accepts any event.
func GetEventOfType(db *gorm.DB, eventId uint, variant schema.EventType) (schema.Event, error) {
	event, err := schema.GetEvent(eventId, db)
	if err != nil {
		return event, codeLookupError(err)
	}
	if variant == "" {
		return event, nil
	}
	actual, err := event.Variant()
	if err != nil {
		return event, utils.CodedError(err, http.StatusInternalServerError)
	}
	if actual != variant {
		return event, utils.CodedError(fmt.Errorf("%v event %d: %w", variant, eventId, schema.ErrEventNotFound), http.StatusNotFound)
	}
	return event, nil
}

func (s *Store) updateEvent(eventId uint, variant schema.EventType, input eventInputFunc) (schema.Event, error) {
	var event schema.Event
	err := s.db.Transaction(func(txn *gorm.DB) error {
		var err error
		event, err = GetEventOfType(txn, eventId, variant)
		if err != nil {
			return err
		}

		in, err := input(event)
		if err != nil {
			return err
		}
		if err := validate(in, in.check()); err != nil {
			return err
		}

		in.apply(&event)

		result := txn.Model(&schema.Event{Id: eventId}).Select("name", "description", "is_valid").Updates(schema.Event{
			Name: event.Name, Description: event.Description, IsValid: event.IsValid,
		})
		if result.Error != nil {
			return dbError("updating event", result.Error, "event_id", eventId)
		}

		var ext interface{}
		switch variant {
		case schema.RingEventType:
			ext = event.Ring
		case schema.BoxEventType:
			ext = event.Box
		case schema.GeoEventType:
			ext = event.Geo
		}
		if ext != nil {
			if result := txn.Save(ext); result.Error != nil {
				return dbError("updating event extension", result.Error, "event_id", eventId, "event_type", variant)
			}
		}
		return nil
	})
	if err != nil {
		return schema.Event{}, err
	}

	slog.Info("updated event", "event_id", eventId, "event_type", variant, "code", logging.DATA_UPDATE)

	return event, nil
}

// DeleteEvent removes the event with its extension and group memberships.
// A non empty variant restricts the delete to events of that variant.
func (s *Store) DeleteEvent(eventId uint, variant schema.EventType) error {
	err := s.db.Transaction(func(txn *gorm.DB) error {
		if _, err := GetEventOfType(txn, eventId, variant); err != nil {
			return err
		}

		for _, dependent := range []interface{}{&schema.RingEvent{}, &schema.BoxEvent{}, &schema.GeoEvent{}, &schema.EventGroupMember{}} {
			if result := txn.Where("event_id = ?", eventId).Delete(dependent); result.Error != nil {
				return dbError("deleting event dependents", result.Error, "event_id", eventId)
			}
		}

		if result := txn.Delete(&schema.Event{}, eventId); result.Error != nil {
			return dbError("deleting event", result.Error, "event_id", eventId)
		}
		return nil
	})
	if err != nil {
		return err
	}

	slog.Info("deleted event", "event_id", eventId, "code", logging.DATA_DELETE)
	return nil
}

func EventInputFrom(e schema.Event) EventInput {
	return EventInput{Name: e.Name, Description: e.Description, IsValid: ptr(e.IsValid)}
}

func RingEventInputFrom(e schema.Event) RingEventInput {
	in := RingEventInput{EventInput: EventInputFrom(e)}
	if e.Ring != nil {
		in.Latitude, in.Longitude, in.Radius = e.Ring.Latitude, e.Ring.Longitude, e.Ring.Radius
	}
	return in
}

func BoxEventInputFrom(e schema.Event) BoxEventInput {
	in := BoxEventInput{EventInput: EventInputFrom(e)}
	if e.Box != nil {
		in.MaxLat, in.MinLat, in.MaxLon, in.MinLon = e.Box.MaxLat, e.Box.MinLat, e.Box.MaxLon, e.Box.MinLon
	}
	return in
}

func GeoEventInputFrom(e schema.Event) GeoEventInput {
	in := GeoEventInput{EventInput: EventInputFrom(e)}
	if e.Geo != nil {
		in.Country, in.Area, in.Subarea, in.Subarea2 = e.Geo.Country, e.Geo.Area, e.Geo.Subarea, e.Geo.Subarea2
	}
	return in
}

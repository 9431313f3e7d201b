package schema

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

type EventType string

const (
	BaseEventType EventType = "base"
	RingEventType EventType = "ring"
	BoxEventType  EventType = "box"
	GeoEventType  EventType = "geo"
)

var ErrAmbiguousEventVariant = errors.New("event has more than one variant extension")

func CheckValidEventType(t string) error {
	switch EventType(t) {
	case BaseEventType, RingEventType, BoxEventType, GeoEventType:
		return nil
	}
	return fmt.Errorf("invalid event type '%v', must be one of base, ring, box, geo", t)
}

// Variant resolves which concrete event this row is. The event must have been
// loaded through WithVariants, otherwise every event resolves as base.
func (e *Event) Variant() (EventType, error) {
	found := make([]EventType, 0, 1)
	if e.Ring != nil {
		found = append(found, RingEventType)
	}
	if e.Box != nil {
		found = append(found, BoxEventType)
	}
	if e.Geo != nil {
		found = append(found, GeoEventType)
	}

	switch len(found) {
	case 0:
		return BaseEventType, nil
	case 1:
		return found[0], nil
	default:
		return "", fmt.Errorf("event %d: %w (%v)", e.Id, ErrAmbiguousEventVariant, found)
	}
}

func WithVariants(db *gorm.DB) *gorm.DB {
	return db.Preload("Ring").Preload("Box").Preload("Geo")
}

// WithMembers loads each event group's events with their variant extensions.
func WithMembers(db *gorm.DB) *gorm.DB {
	return db.Preload("Members", func(db *gorm.DB) *gorm.DB {
		return db.Order("event_id")
	}).Preload("Members.Event").Preload("Members.Event.Ring").Preload("Members.Event.Box").Preload("Members.Event.Geo")
}

// The derived date parts of a modifier are nil when as_at_date is not set.

func (m *ReportModifier) asAt() (time.Time, bool) {
	if m.AsAtDate == nil {
		return time.Time{}, false
	}
	return time.Time(*m.AsAtDate), true
}

// Quarter keeps the historical (month-3) floor-div 4 formula, which is not a
// calendar quarter: January gives -1, December gives 2.
func (m *ReportModifier) Quarter() *int {
	t, ok := m.asAt()
	if !ok {
		return nil
	}
	q := floorDiv(int(t.Month())-3, 4)
	return &q
}

func (m *ReportModifier) Year() *int {
	t, ok := m.asAt()
	if !ok {
		return nil
	}
	year := t.Year()
	return &year
}

func (m *ReportModifier) Month() *int {
	t, ok := m.asAt()
	if !ok {
		return nil
	}
	month := int(t.Month())
	return &month
}

func (m *ReportModifier) Day() *int {
	t, ok := m.asAt()
	if !ok {
		return nil
	}
	day := t.Day()
	return &day
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

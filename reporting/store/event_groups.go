package store

import (
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/artesarh/rpb/reporting/schema"
	"github.com/artesarh/rpb/reporting/validation"
	"github.com/artesarh/rpb/utils"
	"github.com/artesarh/rpb/utils/logging"
	"gorm.io/gorm"
)

type EventGroupInput struct {
	Name     string `json:"name" validate:"required,max=255"`
	EventIds []uint `json:"event_ids"`
}

func dedupe(ids []uint) []uint {
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}

// checkMembers resolves the events of a group and rejects the set if any id
// is unknown or the events do not all share one variant.
func checkMembers(txn *gorm.DB, eventIds []uint) error {
	events, missing, err := schema.GetEvents(eventIds, txn)
	if err != nil {
		return utils.CodedError(err, http.StatusInternalServerError)
	}
	if len(missing) > 0 {
		return utils.CodedError(fmt.Errorf("%w: %v", schema.ErrEventNotFound, missing), http.StatusNotFound)
	}

	types := make([]string, 0, len(events))
	for _, event := range events {
		variant, err := event.Variant()
		if err != nil {
			return utils.CodedError(err, http.StatusInternalServerError)
		}
		types = append(types, string(variant))
	}

	return codeValidationError(validation.SameType(types))
}

func replaceMembers(txn *gorm.DB, groupId uint, eventIds []uint) error {
	if result := txn.Where("eventgroup_id = ?", groupId).Delete(&schema.EventGroupMember{}); result.Error != nil {
		return dbError("clearing event group members", result.Error, "event_group_id", groupId)
	}
	if len(eventIds) == 0 {
		return nil
	}

	members := make([]schema.EventGroupMember, 0, len(eventIds))
	for _, id := range eventIds {
		members = append(members, schema.EventGroupMember{EventGroupId: groupId, EventId: id})
	}
	if result := txn.Create(&members); result.Error != nil {
		return dbError("adding event group members", result.Error, "event_group_id", groupId)
	}
	return nil
}

func (s *Store) CreateEventGroup(in EventGroupInput) (schema.EventGroup, error) {
	if err := validate(in); err != nil {
		return schema.EventGroup{}, err
	}
	eventIds := dedupe(in.EventIds)

	group := schema.EventGroup{Name: in.Name}

	err := s.db.Transaction(func(txn *gorm.DB) error {
		if err := checkMembers(txn, eventIds); err != nil {
			return err
		}

		if result := txn.Create(&group); result.Error != nil {
			return dbError("creating event group", result.Error)
		}

		return replaceMembers(txn, group.Id, eventIds)
	})
	if err != nil {
		return schema.EventGroup{}, err
	}

	slog.Info("created event group", "event_group_id", group.Id, "n_events", len(eventIds), "code", logging.DATA_CREATE)

	return group, nil
}

// UpdateEventGroup replaces the name and the full member set of the group.
func (s *Store) UpdateEventGroup(groupId uint, in EventGroupInput) (schema.EventGroup, error) {
	return s.updateEventGroup(groupId, func(schema.EventGroup) (EventGroupInput, error) {
		return in, nil
	})
}

// PatchEventGroup decodes patch over the stored name and members. A patch
// carrying event_ids still replaces the whole member set.
func (s *Store) PatchEventGroup(groupId uint, patch []byte) (schema.EventGroup, error) {
	return s.updateEventGroup(groupId, func(existing schema.EventGroup) (EventGroupInput, error) {
		in := EventGroupInputFrom(existing)
		if err := decodePatch(patch, &in); err != nil {
			return EventGroupInput{}, err
		}
		return in, nil
	})
}

func (s *Store) updateEventGroup(groupId uint, input func(schema.EventGroup) (EventGroupInput, error)) (schema.EventGroup, error) {
	var group schema.EventGroup
	var eventIds []uint

	err := s.db.Transaction(func(txn *gorm.DB) error {
		var err error
		group, err = schema.GetEventGroup(groupId, txn, true)
		if err != nil {
			return codeLookupError(err)
		}

		in, err := input(group)
		if err != nil {
			return err
		}
		if err := validate(in); err != nil {
			return err
		}
		eventIds = dedupe(in.EventIds)

		if err := checkMembers(txn, eventIds); err != nil {
			return err
		}

		group.Name = in.Name
		group.Updated = time.Now()
		group.Members = nil
		result := txn.Model(&group).Updates(map[string]interface{}{"name": group.Name, "updated": group.Updated})
		if result.Error != nil {
			return dbError("updating event group", result.Error, "event_group_id", groupId)
		}

		return replaceMembers(txn, groupId, eventIds)
	})
	if err != nil {
		return schema.EventGroup{}, err
	}

	slog.Info("updated event group", "event_group_id", groupId, "n_events", len(eventIds), "code", logging.DATA_UPDATE)

	return group, nil
}

// DeleteEventGroup is refused while any report still uses the group.
func (s *Store) DeleteEventGroup(groupId uint) error {
	err := s.db.Transaction(func(txn *gorm.DB) error {
		if _, err := schema.GetEventGroup(groupId, txn, false); err != nil {
			return codeLookupError(err)
		}

		var nReports int64
		if result := txn.Model(&schema.Report{}).Where("event_group_id = ?", groupId).Count(&nReports); result.Error != nil {
			return dbError("counting reports of event group", result.Error, "event_group_id", groupId)
		}
		if nReports > 0 {
			return utils.CodedError(fmt.Errorf("cannot delete event group %d: %w, it is used by %d report(s)", groupId, ErrInUse, nReports), http.StatusConflict)
		}

		if result := txn.Where("eventgroup_id = ?", groupId).Delete(&schema.EventGroupMember{}); result.Error != nil {
			return dbError("deleting event group members", result.Error, "event_group_id", groupId)
		}
		if result := txn.Delete(&schema.EventGroup{}, groupId); result.Error != nil {
			return dbError("deleting event group", result.Error, "event_group_id", groupId)
		}
		return nil
	})
	if err != nil {
		return err
	}

	slog.Info("deleted event group", "event_group_id", groupId, "code", logging.DATA_DELETE)
	return nil
}

// EventGroupInputFrom expects the group to have been loaded with its members.
func EventGroupInputFrom(group schema.EventGroup) EventGroupInput {
	ids := make([]uint, 0, len(group.Members))
	for _, m := range group.Members {
		ids = append(ids, m.EventId)
	}
	return EventGroupInput{Name: group.Name, EventIds: ids}
}

package schema

import (
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrEventNotFound      = errors.New("event not found")
	ErrEventGroupNotFound = errors.New("event group not found")
	ErrReportNotFound     = errors.New("report not found")
	ErrModifierNotFound   = errors.New("report modifier not found")
	ErrJobNotFound        = errors.New("job not found")
	ErrDbAccessFailed     = errors.New("db access failed")
)

func GetUser(userId uuid.UUID, db *gorm.DB) (User, error) {
	var user User

	result := db.First(&user, "id = ?", userId)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return user, ErrUserNotFound
		}
		slog.Error("sql error in get user", "user_id", userId, "error", result.Error)
		return user, ErrDbAccessFailed
	}

	return user, nil
}

func GetUserByUsername(username string, db *gorm.DB) (User, error) {
	var user User

	result := db.First(&user, "username = ?", username)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return user, ErrUserNotFound
		}
		slog.Error("sql error in get user by username", "username", username, "error", result.Error)
		return user, ErrDbAccessFailed
	}

	return user, nil
}

func GetEvent(eventId uint, db *gorm.DB) (Event, error) {
	var event Event

	result := WithVariants(db).First(&event, "id = ?", eventId)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return event, ErrEventNotFound
		}
		slog.Error("sql error in get event", "event_id", eventId, "error", result.Error)
		return event, ErrDbAccessFailed
	}

	return event, nil
}

// GetEvents loads the given events in id order. Ids that do not exist are
// returned as the second value rather than as an error.
func GetEvents(eventIds []uint, db *gorm.DB) ([]Event, []uint, error) {
	if len(eventIds) == 0 {
		return nil, nil, nil
	}

	var events []Event
	result := WithVariants(db).Where("id IN ?", eventIds).Order("id").Find(&events)
	if result.Error != nil {
		slog.Error("sql error in get events", "event_ids", eventIds, "error", result.Error)
		return nil, nil, ErrDbAccessFailed
	}

	found := make(map[uint]bool, len(events))
	for _, e := range events {
		found[e.Id] = true
	}
	missing := make([]uint, 0)
	for _, id := range eventIds {
		if !found[id] {
			missing = append(missing, id)
			found[id] = true
		}
	}

	return events, missing, nil
}

func GetEventGroup(groupId uint, db *gorm.DB, loadMembers bool) (EventGroup, error) {
	var group EventGroup

	var result *gorm.DB = db
	if loadMembers {
		result = WithMembers(result)
	}
	result = result.First(&group, "id = ?", groupId)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return group, ErrEventGroupNotFound
		}
		slog.Error("sql error in get event group", "event_group_id", groupId, "error", result.Error)
		return group, ErrDbAccessFailed
	}

	return group, nil
}

func GetReport(reportId uint, db *gorm.DB, loadGroup bool) (Report, error) {
	var report Report

	var result *gorm.DB = db
	if loadGroup {
		result = result.Preload("EventGroup")
	}
	result = result.First(&report, "id = ?", reportId)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return report, ErrReportNotFound
		}
		slog.Error("sql error in get report", "report_id", reportId, "error", result.Error)
		return report, ErrDbAccessFailed
	}

	return report, nil
}

func GetReportModifier(modifierId uint, db *gorm.DB) (ReportModifier, error) {
	var modifier ReportModifier

	result := db.First(&modifier, "id = ?", modifierId)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return modifier, ErrModifierNotFound
		}
		slog.Error("sql error in get report modifier", "modifier_id", modifierId, "error", result.Error)
		return modifier, ErrDbAccessFailed
	}

	return modifier, nil
}

func GetJob(jobId uint, db *gorm.DB) (Job, error) {
	var job Job

	result := db.First(&job, "id = ?", jobId)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return job, ErrJobNotFound
		}
		slog.Error("sql error in get job", "job_id", jobId, "error", result.Error)
		return job, ErrDbAccessFailed
	}

	return job, nil
}

// MissingIds returns the ids from the list that have no row in the given
// table, preserving the order they were given in.
func MissingIds(table string, ids []uint, db *gorm.DB) ([]uint, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var existing []uint
	result := db.Table(table).Where("id IN ?", ids).Pluck("id", &existing)
	if result.Error != nil {
		slog.Error("sql error checking ids exist", "table", table, "error", result.Error)
		return nil, ErrDbAccessFailed
	}

	found := make(map[uint]bool, len(existing))
	for _, id := range existing {
		found[id] = true
	}
	missing := make([]uint, 0)
	for _, id := range ids {
		if !found[id] {
			missing = append(missing, id)
			found[id] = true
		}
	}
	return missing, nil
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrUserNotFound) ||
		errors.Is(err, ErrEventNotFound) ||
		errors.Is(err, ErrEventGroupNotFound) ||
		errors.Is(err, ErrReportNotFound) ||
		errors.Is(err, ErrModifierNotFound) ||
		errors.Is(err, ErrJobNotFound)
}

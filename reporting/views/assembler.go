package views

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/artesarh/rpb/reporting/schema"
	"github.com/artesarh/rpb/utils"
	"gorm.io/gorm"
)

var (
	ErrModifierNotLinked = errors.New("modifier is not linked to report")
	ErrNoModifiers       = errors.New("no modifiers found for this report")
	ErrNoEventGroup      = errors.New("no event group associated with report")
)

type ReportModifier struct {
	Report   Report   `json:"report"`
	Modifier Modifier `json:"modifier"`
}

type ReportModifiers struct {
	Report    Report     `json:"report"`
	Modifiers []Modifier `json:"modifiers"`
}

type ReportEventGroup struct {
	Report     Report           `json:"report"`
	EventGroup EventGroupDetail `json:"eventgroup"`
}

type ReportAll struct {
	Report     Report           `json:"report"`
	EventGroup EventGroupDetail `json:"eventgroup"`
	Modifier   Modifier         `json:"modifier"`
}

// Assembler builds the nested read views. All reads for one view happen in a
// single transaction and nothing is written.
type Assembler struct {
	db *gorm.DB
}

func NewAssembler(db *gorm.DB) *Assembler {
	return &Assembler{db: db}
}

func codeLookupError(err error) error {
	if schema.IsNotFound(err) {
		return utils.CodedError(err, http.StatusNotFound)
	}
	return utils.CodedError(err, http.StatusInternalServerError)
}

func linkedModifiers(txn *gorm.DB, reportId uint) *gorm.DB {
	return txn.Model(&schema.ReportModifier{}).
		Joins("JOIN _jt_report_modifiers_reports ON _jt_report_modifiers_reports.reportmodifier_id = report_modifiers.id").
		Where("_jt_report_modifiers_reports.report_id = ?", reportId)
}

func getLinkedModifier(txn *gorm.DB, reportId, modifierId uint) (schema.ReportModifier, error) {
	var modifier schema.ReportModifier
	result := linkedModifiers(txn, reportId).Where("report_modifiers.id = ?", modifierId).Limit(1).Find(&modifier)
	if result.Error != nil {
		slog.Error("sql error getting linked modifier", "report_id", reportId, "modifier_id", modifierId, "error", result.Error)
		return modifier, utils.CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
	}
	if result.RowsAffected == 0 {
		return modifier, utils.CodedError(fmt.Errorf("%w: modifier %d, report %d", ErrModifierNotLinked, modifierId, reportId), http.StatusNotFound)
	}
	return modifier, nil
}

func getReportEventGroup(txn *gorm.DB, report schema.Report) (EventGroupDetail, error) {
	group, err := schema.GetEventGroup(report.EventGroupId, txn, true)
	if err != nil {
		if errors.Is(err, schema.ErrEventGroupNotFound) {
			return EventGroupDetail{}, utils.CodedError(fmt.Errorf("%w %d", ErrNoEventGroup, report.Id), http.StatusNotFound)
		}
		return EventGroupDetail{}, codeLookupError(err)
	}

	detail, err := NewEventGroupDetail(group)
	if err != nil {
		slog.Error("error resolving event variants", "event_group_id", group.Id, "error", err)
		return EventGroupDetail{}, utils.CodedError(err, http.StatusInternalServerError)
	}
	return detail, nil
}

func (a *Assembler) read(fn func(txn *gorm.DB) error) error {
	return a.db.Transaction(fn)
}

// ReportModifier resolves the modifier only through its link to the report.
func (a *Assembler) ReportModifier(reportId, modifierId uint) (ReportModifier, error) {
	var view ReportModifier
	err := a.read(func(txn *gorm.DB) error {
		report, err := schema.GetReport(reportId, txn, false)
		if err != nil {
			return codeLookupError(err)
		}
		modifier, err := getLinkedModifier(txn, reportId, modifierId)
		if err != nil {
			return err
		}
		view = ReportModifier{Report: NewReport(report), Modifier: NewModifier(modifier)}
		return nil
	})
	return view, err
}

// ReportModifiers lists every linked modifier. A report with none is
// reported as not found.
func (a *Assembler) ReportModifiers(reportId uint) (ReportModifiers, error) {
	var view ReportModifiers
	err := a.read(func(txn *gorm.DB) error {
		report, err := schema.GetReport(reportId, txn, false)
		if err != nil {
			return codeLookupError(err)
		}

		var modifiers []schema.ReportModifier
		if result := linkedModifiers(txn, reportId).Order("report_modifiers.id").Find(&modifiers); result.Error != nil {
			slog.Error("sql error listing linked modifiers", "report_id", reportId, "error", result.Error)
			return utils.CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}
		if len(modifiers) == 0 {
			return utils.CodedError(ErrNoModifiers, http.StatusNotFound)
		}

		view = ReportModifiers{Report: NewReport(report), Modifiers: NewModifiers(modifiers)}
		return nil
	})
	return view, err
}

func (a *Assembler) ReportEventGroup(reportId uint) (ReportEventGroup, error) {
	var view ReportEventGroup
	err := a.read(func(txn *gorm.DB) error {
		report, err := schema.GetReport(reportId, txn, false)
		if err != nil {
			return codeLookupError(err)
		}
		group, err := getReportEventGroup(txn, report)
		if err != nil {
			return err
		}
		view = ReportEventGroup{Report: NewReport(report), EventGroup: group}
		return nil
	})
	return view, err
}

// ReportAll combines the detailed event group with one linked modifier, both
// must be present.
func (a *Assembler) ReportAll(reportId, modifierId uint) (ReportAll, error) {
	var view ReportAll
	err := a.read(func(txn *gorm.DB) error {
		report, err := schema.GetReport(reportId, txn, false)
		if err != nil {
			return codeLookupError(err)
		}
		group, err := getReportEventGroup(txn, report)
		if err != nil {
			return err
		}
		modifier, err := getLinkedModifier(txn, reportId, modifierId)
		if err != nil {
			return err
		}
		view = ReportAll{Report: NewReport(report), EventGroup: group, Modifier: NewModifier(modifier)}
		return nil
	})
	return view, err
}

func (a *Assembler) ReportJobs(reportId uint) ([]Job, error) {
	var jobs []schema.Job
	err := a.read(func(txn *gorm.DB) error {
		if _, err := schema.GetReport(reportId, txn, false); err != nil {
			return codeLookupError(err)
		}
		if result := txn.Where("report_id = ?", reportId).Order("created DESC").Order("id DESC").Find(&jobs); result.Error != nil {
			slog.Error("sql error listing report jobs", "report_id", reportId, "error", result.Error)
			return utils.CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return NewJobs(jobs), nil
}

func (a *Assembler) EventGroupReports(groupId uint) ([]Report, error) {
	var reports []schema.Report
	err := a.read(func(txn *gorm.DB) error {
		if _, err := schema.GetEventGroup(groupId, txn, false); err != nil {
			return codeLookupError(err)
		}
		if result := txn.Where("event_group_id = ?", groupId).Order("created DESC").Order("id DESC").Find(&reports); result.Error != nil {
			slog.Error("sql error listing event group reports", "event_group_id", groupId, "error", result.Error)
			return utils.CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := make([]Report, 0, len(reports))
	for _, r := range reports {
		out = append(out, NewReport(r))
	}
	return out, nil
}

func (a *Assembler) EventEventGroups(eventId uint) ([]EventGroup, error) {
	var groups []schema.EventGroup
	err := a.read(func(txn *gorm.DB) error {
		if _, err := schema.GetEvent(eventId, txn); err != nil {
			return codeLookupError(err)
		}
		result := schema.WithMembers(txn).
			Joins("JOIN _jt_eventgroup_events ON _jt_eventgroup_events.eventgroup_id = event_groups.id").
			Where("_jt_eventgroup_events.event_id = ?", eventId).
			Order("event_groups.name").
			Find(&groups)
		if result.Error != nil {
			slog.Error("sql error listing event groups of event", "event_id", eventId, "error", result.Error)
			return utils.CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return NewEventGroups(groups)
}

func NewEventGroups(groups []schema.EventGroup) ([]EventGroup, error) {
	out := make([]EventGroup, 0, len(groups))
	for _, g := range groups {
		view, err := NewEventGroup(g)
		if err != nil {
			slog.Error("error resolving event variants", "event_group_id", g.Id, "error", err)
			return nil, utils.CodedError(err, http.StatusInternalServerError)
		}
		out = append(out, view)
	}
	return out, nil
}

// WithModifierIds pairs each report with the ids of its linked modifiers
// using one query over the link table.
func WithModifierIds(db *gorm.DB, reports []schema.Report) ([]ReportWithModifiers, error) {
	ids := make([]uint, 0, len(reports))
	for _, r := range reports {
		ids = append(ids, r.Id)
	}

	var links []schema.ReportModifierLink
	if len(ids) > 0 {
		if result := db.Where("report_id IN ?", ids).Order("reportmodifier_id").Find(&links); result.Error != nil {
			slog.Error("sql error listing report modifier links", "error", result.Error)
			return nil, utils.CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}
	}

	byReport := make(map[uint][]uint, len(reports))
	for _, l := range links {
		byReport[l.ReportId] = append(byReport[l.ReportId], l.ReportModifierId)
	}

	out := make([]ReportWithModifiers, 0, len(reports))
	for _, r := range reports {
		modifiers := byReport[r.Id]
		if modifiers == nil {
			modifiers = []uint{}
		}
		out = append(out, ReportWithModifiers{Report: NewReport(r), Modifiers: modifiers})
	}
	return out, nil
}

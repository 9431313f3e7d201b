package store

import (
	"log/slog"

	"github.com/artesarh/rpb/reporting/schema"
	"github.com/artesarh/rpb/reporting/validation"
	"github.com/artesarh/rpb/utils/logging"
	"gorm.io/gorm"
)

const (
	DefaultDr                           = 1.0
	DefaultPriority                     = "AboveNormal"
	DefaultNcores                       = 24
	DefaultLocationBreakoutMaxEvents    = 500000
	DefaultLocationBreakoutMaxLocations = 1000000
	DefaultRollupContextId              = 42
	DefaultDynamicRingLossThreshold     = 5000000
	DefaultBlastRadius                  = 50.0
)

// ReportInput is the writable shape of a report. Nil fields take their
// default on create and full update.
type ReportInput struct {
	Name            string   `json:"name" validate:"required,max=255"`
	Peril           string   `json:"peril" validate:"required,max=100"`
	Dr              *float64 `json:"dr"`
	EventGroup      uint     `json:"event_group" validate:"required"`
	Cron            *string  `json:"cron" validate:"omitempty,max=50,cron"`
	Cob             *string  `json:"cob" validate:"omitempty,max=50"`
	LossPerspective string   `json:"loss_perspective" validate:"required,max=20"`

	IsApplyCalibration    *bool `json:"is_apply_calibration"`
	IsApplyInflation      *bool `json:"is_apply_inflation"`
	IsTagOutwardsPtns     *bool `json:"is_tag_outwards_ptns"`
	IsLocationBreakout    *bool `json:"is_location_breakout"`
	IsIgnoreMissingLatLon *bool `json:"is_ignore_missing_lat_lon"`

	LocationBreakoutMaxEvents    *int    `json:"location_breakout_max_events"`
	LocationBreakoutMaxLocations *int    `json:"location_breakout_max_locations"`
	Priority                     *string `json:"priority" validate:"omitempty,max=50"`
	Ncores                       *int    `json:"ncores"`

	GrossNodeId              *int     `json:"gross_node_id"`
	NetNodeId                *int     `json:"net_node_id"`
	RollupContextId          *int     `json:"rollup_context_id"`
	DynamicRingLossThreshold *int     `json:"dynamic_ring_loss_threshold"`
	BlastRadius              *float64 `json:"blast_radius"`
	NoOverlapRadius          *float64 `json:"no_overlap_radius"`

	IsValid *bool `json:"is_valid"`
}

func (in ReportInput) withDefaults() ReportInput {
	if in.Cron != nil && *in.Cron == "" {
		in.Cron = nil
	}
	in.Dr = orDefault(in.Dr, DefaultDr)
	in.IsApplyCalibration = orDefault(in.IsApplyCalibration, true)
	in.IsApplyInflation = orDefault(in.IsApplyInflation, true)
	in.IsTagOutwardsPtns = orDefault(in.IsTagOutwardsPtns, false)
	in.IsLocationBreakout = orDefault(in.IsLocationBreakout, false)
	in.IsIgnoreMissingLatLon = orDefault(in.IsIgnoreMissingLatLon, true)
	in.LocationBreakoutMaxEvents = orDefault(in.LocationBreakoutMaxEvents, DefaultLocationBreakoutMaxEvents)
	in.LocationBreakoutMaxLocations = orDefault(in.LocationBreakoutMaxLocations, DefaultLocationBreakoutMaxLocations)
	in.Priority = orDefault(in.Priority, DefaultPriority)
	in.Ncores = orDefault(in.Ncores, DefaultNcores)
	in.RollupContextId = orDefault(in.RollupContextId, DefaultRollupContextId)
	in.DynamicRingLossThreshold = orDefault(in.DynamicRingLossThreshold, DefaultDynamicRingLossThreshold)
	in.BlastRadius = orDefault(in.BlastRadius, DefaultBlastRadius)
	in.IsValid = orDefault(in.IsValid, true)
	return in
}

// ReportInputFrom is the input that would recreate report as it is, partial
// updates decode the request over it.
func ReportInputFrom(report schema.Report) ReportInput {
	return ReportInput{
		Name:                         report.Name,
		Peril:                        report.Peril,
		Dr:                           ptr(report.Dr),
		EventGroup:                   report.EventGroupId,
		Cron:                         report.Cron,
		Cob:                          report.Cob,
		LossPerspective:              report.LossPerspective,
		IsApplyCalibration:           ptr(report.IsApplyCalibration),
		IsApplyInflation:             ptr(report.IsApplyInflation),
		IsTagOutwardsPtns:            ptr(report.IsTagOutwardsPtns),
		IsLocationBreakout:           ptr(report.IsLocationBreakout),
		IsIgnoreMissingLatLon:        ptr(report.IsIgnoreMissingLatLon),
		LocationBreakoutMaxEvents:    ptr(report.LocationBreakoutMaxEvents),
		LocationBreakoutMaxLocations: ptr(report.LocationBreakoutMaxLocations),
		Priority:                     ptr(report.Priority),
		Ncores:                       ptr(report.Ncores),
		GrossNodeId:                  report.GrossNodeId,
		NetNodeId:                    report.NetNodeId,
		RollupContextId:              report.RollupContextId,
		DynamicRingLossThreshold:     report.DynamicRingLossThreshold,
		BlastRadius:                  report.BlastRadius,
		NoOverlapRadius:              report.NoOverlapRadius,
		IsValid:                      ptr(report.IsValid),
	}
}

func (in ReportInput) toReport() schema.Report {
	return schema.Report{
		Name:                         in.Name,
		Peril:                        in.Peril,
		Dr:                           *in.Dr,
		EventGroupId:                 in.EventGroup,
		Cron:                         in.Cron,
		Cob:                          in.Cob,
		LossPerspective:              in.LossPerspective,
		IsApplyCalibration:           *in.IsApplyCalibration,
		IsApplyInflation:             *in.IsApplyInflation,
		IsTagOutwardsPtns:            *in.IsTagOutwardsPtns,
		IsLocationBreakout:           *in.IsLocationBreakout,
		IsIgnoreMissingLatLon:        *in.IsIgnoreMissingLatLon,
		LocationBreakoutMaxEvents:    *in.LocationBreakoutMaxEvents,
		LocationBreakoutMaxLocations: *in.LocationBreakoutMaxLocations,
		Priority:                     *in.Priority,
		Ncores:                       *in.Ncores,
		GrossNodeId:                  in.GrossNodeId,
		NetNodeId:                    in.NetNodeId,
		RollupContextId:              in.RollupContextId,
		DynamicRingLossThreshold:     in.DynamicRingLossThreshold,
		BlastRadius:                  in.BlastRadius,
		NoOverlapRadius:              in.NoOverlapRadius,
		IsValid:                      *in.IsValid,
	}
}

func validateReport(in ReportInput) error {
	return validate(in, validation.DecayRate(*in.Dr))
}

func (s *Store) CreateReport(in ReportInput) (schema.Report, error) {
	in = in.withDefaults()
	if err := validateReport(in); err != nil {
		return schema.Report{}, err
	}

	report := in.toReport()

	err := s.db.Transaction(func(txn *gorm.DB) error {
		if _, err := schema.GetEventGroup(in.EventGroup, txn, false); err != nil {
			return codeLookupError(err)
		}

		if result := txn.Create(&report); result.Error != nil {
			return dbError("creating report", result.Error)
		}
		return nil
	})
	if err != nil {
		return schema.Report{}, err
	}

	slog.Info("created report", "report_id", report.Id, "event_group_id", report.EventGroupId, "code", logging.DATA_CREATE)

	return report, nil
}

// UpdateReport overwrites every configuration field of the report. Nil
// fields in the input are reset to their defaults.
func (s *Store) UpdateReport(reportId uint, in ReportInput) (schema.Report, error) {
	return s.updateReport(reportId, func(schema.Report) (ReportInput, error) {
		return in, nil
	})
}

// PatchReport decodes patch over the stored report, fields the patch leaves
// out keep their stored value.
func (s *Store) PatchReport(reportId uint, patch []byte) (schema.Report, error) {
	return s.updateReport(reportId, func(existing schema.Report) (ReportInput, error) {
		in := ReportInputFrom(existing)
		if err := decodePatch(patch, &in); err != nil {
			return ReportInput{}, err
		}
		return in, nil
	})
}

// updateReport reads the report, builds the input from it and saves the
// result in one transaction, so a concurrent write is never lost in between.
func (s *Store) updateReport(reportId uint, input func(schema.Report) (ReportInput, error)) (schema.Report, error) {
	var report schema.Report

	err := s.db.Transaction(func(txn *gorm.DB) error {
		existing, err := schema.GetReport(reportId, txn, false)
		if err != nil {
			return codeLookupError(err)
		}

		in, err := input(existing)
		if err != nil {
			return err
		}
		in = in.withDefaults()
		if err := validateReport(in); err != nil {
			return err
		}

		if _, err := schema.GetEventGroup(in.EventGroup, txn, false); err != nil {
			return codeLookupError(err)
		}

		report = in.toReport()
		report.Id = existing.Id
		report.Created = existing.Created
		if result := txn.Save(&report); result.Error != nil {
			return dbError("updating report", result.Error, "report_id", reportId)
		}
		return nil
	})
	if err != nil {
		return schema.Report{}, err
	}

	slog.Info("updated report", "report_id", reportId, "code", logging.DATA_UPDATE)

	return report, nil
}

// DeleteReport removes the report together with its jobs and modifier links.
func (s *Store) DeleteReport(reportId uint) error {
	err := s.db.Transaction(func(txn *gorm.DB) error {
		if _, err := schema.GetReport(reportId, txn, false); err != nil {
			return codeLookupError(err)
		}

		if result := txn.Where("report_id = ?", reportId).Delete(&schema.Job{}); result.Error != nil {
			return dbError("deleting report jobs", result.Error, "report_id", reportId)
		}
		if result := txn.Where("report_id = ?", reportId).Delete(&schema.ReportModifierLink{}); result.Error != nil {
			return dbError("deleting report modifier links", result.Error, "report_id", reportId)
		}
		if result := txn.Delete(&schema.Report{}, reportId); result.Error != nil {
			return dbError("deleting report", result.Error, "report_id", reportId)
		}
		return nil
	})
	if err != nil {
		return err
	}

	slog.Info("deleted report", "report_id", reportId, "code", logging.DATA_DELETE)
	return nil
}

package store

import (
	"log/slog"

	"github.com/artesarh/rpb/reporting/schema"
	"github.com/artesarh/rpb/utils/logging"
	"gorm.io/gorm"
)

type JobInput struct {
	Report         uint  `json:"report" validate:"required"`
	ReportModifier *uint `json:"report_modifier"`
	FireantJobid   *int  `json:"fireant_jobid" validate:"required"`
}

func JobInputFrom(job schema.Job) JobInput {
	return JobInput{Report: job.ReportId, ReportModifier: job.ReportModifierId, FireantJobid: ptr(job.FireantJobid)}
}

func checkJobRefs(txn *gorm.DB, in JobInput) error {
	if err := checkExist(txn, "reports", []uint{in.Report}, schema.ErrReportNotFound); err != nil {
		return err
	}
	if in.ReportModifier != nil {
		return checkExist(txn, "report_modifiers", []uint{*in.ReportModifier}, schema.ErrModifierNotFound)
	}
	return nil
}

func (s *Store) CreateJob(in JobInput) (schema.Job, error) {
	if err := validate(in); err != nil {
		return schema.Job{}, err
	}

	job := schema.Job{ReportId: in.Report, ReportModifierId: in.ReportModifier, FireantJobid: *in.FireantJobid}

	err := s.db.Transaction(func(txn *gorm.DB) error {
		if err := checkJobRefs(txn, in); err != nil {
			return err
		}
		if result := txn.Create(&job); result.Error != nil {
			return dbError("creating job", result.Error)
		}
		return nil
	})
	if err != nil {
		return schema.Job{}, err
	}

	slog.Info("created job", "job_id", job.Id, "report_id", job.ReportId, "fireant_jobid", job.FireantJobid, "code", logging.DATA_CREATE)

	return job, nil
}

func (s *Store) UpdateJob(jobId uint, in JobInput) (schema.Job, error) {
	return s.updateJob(jobId, func(schema.Job) (JobInput, error) {
		return in, nil
	})
}

func (s *Store) PatchJob(jobId uint, patch []byte) (schema.Job, error) {
	return s.updateJob(jobId, func(existing schema.Job) (JobInput, error) {
		in := JobInputFrom(existing)
		if err := decodePatch(patch, &in); err != nil {
			return JobInput{}, err
		}
		return in, nil
	})
}

func (s *Store) updateJob(jobId uint, input func(schema.Job) (JobInput, error)) (schema.Job, error) {
	var job schema.Job
	err := s.db.Transaction(func(txn *gorm.DB) error {
		var err error
		job, err = schema.GetJob(jobId, txn)
		if err != nil {
			return codeLookupError(err)
		}

		in, err := input(job)
		if err != nil {
			return err
		}
		if err := validate(in); err != nil {
			return err
		}
		if err := checkJobRefs(txn, in); err != nil {
			return err
		}

		job.ReportId = in.Report
		job.ReportModifierId = in.ReportModifier
		job.FireantJobid = *in.FireantJobid
		if result := txn.Save(&job); result.Error != nil {
			return dbError("updating job", result.Error, "job_id", jobId)
		}
		return nil
	})
	if err != nil {
		return schema.Job{}, err
	}

	slog.Info("updated job", "job_id", jobId, "code", logging.DATA_UPDATE)

	return job, nil
}

func (s *Store) DeleteJob(jobId uint) error {
	err := s.db.Transaction(func(txn *gorm.DB) error {
		if _, err := schema.GetJob(jobId, txn); err != nil {
			return codeLookupError(err)
		}
		if result := txn.Delete(&schema.Job{}, jobId); result.Error != nil {
			return dbError("deleting job", result.Error, "job_id", jobId)
		}
		return nil
	})
	if err != nil {
		return err
	}

	slog.Info("deleted job", "job_id", jobId, "code", logging.DATA_DELETE)
	return nil
}

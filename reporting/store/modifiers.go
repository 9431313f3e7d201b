package store

import (
	"log/slog"
	"time"

	"github.com/artesarh/rpb/reporting/schema"
	"github.com/artesarh/rpb/reporting/validation"
	"github.com/artesarh/rpb/utils/logging"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const DateLayout = "2006-01-02"

type ModifierInput struct {
	AsAtDate *string `json:"as_at_date"`
	FxDate   *string `json:"fx_date"`
}

func ParseDate(field string, value *string) (*datatypes.Date, error) {
	if value == nil || *value == "" {
		return nil, nil
	}
	t, err := time.Parse(DateLayout, *value)
	if err != nil {
		return nil, &validation.FormatError{Field: field, Value: *value, Reason: "expected a date in the format " + DateLayout}
	}
	d := datatypes.Date(t)
	return &d, nil
}

func FormatDate(d *datatypes.Date) *string {
	if d == nil {
		return nil
	}
	s := time.Time(*d).Format(DateLayout)
	return &s
}

func ModifierInputFrom(modifier schema.ReportModifier) ModifierInput {
	return ModifierInput{AsAtDate: FormatDate(modifier.AsAtDate), FxDate: FormatDate(modifier.FxDate)}
}

func (in ModifierInput) toModifier() (schema.ReportModifier, error) {
	asAt, asAtErr := ParseDate("as_at_date", in.AsAtDate)
	fx, fxErr := ParseDate("fx_date", in.FxDate)
	if err := validate(in, asAtErr, fxErr); err != nil {
		return schema.ReportModifier{}, err
	}
	return schema.ReportModifier{AsAtDate: asAt, FxDate: fx}, nil
}

func (s *Store) CreateModifier(in ModifierInput) (schema.ReportModifier, error) {
	modifier, err := in.toModifier()
	if err != nil {
		return modifier, err
	}

	err = s.db.Transaction(func(txn *gorm.DB) error {
		if result := txn.Create(&modifier); result.Error != nil {
			return dbError("creating report modifier", result.Error)
		}
		return nil
	})
	if err != nil {
		return schema.ReportModifier{}, err
	}

	slog.Info("created report modifier", "modifier_id", modifier.Id, "code", logging.DATA_CREATE)

	return modifier, nil
}

func (s *Store) UpdateModifier(modifierId uint, in ModifierInput) (schema.ReportModifier, error) {
	return s.updateModifier(modifierId, func(schema.ReportModifier) (ModifierInput, error) {
		return in, nil
	})
}

func (s *Store) PatchModifier(modifierId uint, patch []byte) (schema.ReportModifier, error) {
	return s.updateModifier(modifierId, func(existing schema.ReportModifier) (ModifierInput, error) {
		in := ModifierInputFrom(existing)
		if err := decodePatch(patch, &in); err != nil {
			return ModifierInput{}, err
		}
		return in, nil
	})
}

func (s *Store) updateModifier(modifierId uint, input func(schema.ReportModifier) (ModifierInput, error)) (schema.ReportModifier, error) {
	var modifier schema.ReportModifier

	err := s.db.Transaction(func(txn *gorm.DB) error {
		existing, err := schema.GetReportModifier(modifierId, txn)
		if err != nil {
			return codeLookupError(err)
		}

		in, err := input(existing)
		if err != nil {
			return err
		}
		modifier, err = in.toModifier()
		if err != nil {
			return err
		}
		modifier.Id = modifierId

		result := txn.Model(&modifier).Select("as_at_date", "fx_date").Updates(&modifier)
		if result.Error != nil {
			return dbError("updating report modifier", result.Error, "modifier_id", modifierId)
		}
		return nil
	})
	if err != nil {
		return schema.ReportModifier{}, err
	}

	slog.Info("updated report modifier", "modifier_id", modifierId, "code", logging.DATA_UPDATE)

	return modifier, nil
}

// DeleteModifier removes the modifier, the jobs that ran under it and its
// links to reports.
func (s *Store) DeleteModifier(modifierId uint) error {
	err := s.db.Transaction(func(txn *gorm.DB) error {
		if _, err := schema.GetReportModifier(modifierId, txn); err != nil {
			return codeLookupError(err)
		}

		if result := txn.Where("report_modifier_id = ?", modifierId).Delete(&schema.Job{}); result.Error != nil {
			return dbError("deleting modifier jobs", result.Error, "modifier_id", modifierId)
		}
		if result := txn.Where("reportmodifier_id = ?", modifierId).Delete(&schema.ReportModifierLink{}); result.Error != nil {
			return dbError("deleting modifier links", result.Error, "modifier_id", modifierId)
		}
		if result := txn.Delete(&schema.ReportModifier{}, modifierId); result.Error != nil {
			return dbError("deleting report modifier", result.Error, "modifier_id", modifierId)
		}
		return nil
	})
	if err != nil {
		return err
	}

	slog.Info("deleted report modifier", "modifier_id", modifierId, "code", logging.DATA_DELETE)
	return nil
}

package links

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/artesarh/rpb/reporting/schema"
	"github.com/artesarh/rpb/reporting/validation"
	"github.com/artesarh/rpb/utils"
	"github.com/artesarh/rpb/utils/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	StatusLinked        = "linked"
	StatusAlreadyLinked = "already_linked"
	StatusUnlinked      = "unlinked"
	StatusNotLinked     = "not_linked"
	StatusSuccess       = "success"
)

var linkOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "reporting_link_outcomes_total",
	Help: "Outcomes of report modifier link and unlink operations",
}, []string{"status"})

type LinkRequest struct {
	ReportId   uint `json:"report_id" validate:"required"`
	ModifierId uint `json:"modifier_id" validate:"required"`
}

type LinkBulkRequest struct {
	Reports   []uint `json:"reports" validate:"required,min=1"`
	Modifiers []uint `json:"modifiers" validate:"required,min=1"`
}

type Result struct {
	Status     string `json:"status"`
	ReportId   uint   `json:"report_id"`
	ModifierId uint   `json:"modifier_id"`
}

type BulkResult struct {
	Status            string `json:"status"`
	Reports           []uint `json:"reports"`
	Modifiers         []uint `json:"modifiers"`
	NewlyLinked       int    `json:"newly_linked"`
	AlreadyLinked     int    `json:"already_linked"`
	TotalCombinations int    `json:"total_combinations"`
}

type Summary struct {
	TotalReports            int64 `json:"total_reports"`
	TotalModifiers          int64 `json:"total_modifiers"`
	TotalLinks              int64 `json:"total_links"`
	ReportsWithModifiers    int64 `json:"reports_with_modifiers"`
	ReportsWithoutModifiers int64 `json:"reports_without_modifiers"`
	ModifiersWithReports    int64 `json:"modifiers_with_reports"`
	ModifiersWithoutReports int64 `json:"modifiers_without_reports"`
}

// Manager owns the report to modifier relation. There is no in memory link
// state, every call reads and writes the join table inside one transaction.
type Manager struct {
	db *gorm.DB
}

func NewManager(db *gorm.DB) *Manager {
	return &Manager{db: db}
}

func checkExist(txn *gorm.DB, reportIds, modifierIds []uint) error {
	missingReports, err := schema.MissingIds("reports", reportIds, txn)
	if err != nil {
		return utils.CodedError(err, http.StatusInternalServerError)
	}
	missingModifiers, err := schema.MissingIds("report_modifiers", modifierIds, txn)
	if err != nil {
		return utils.CodedError(err, http.StatusInternalServerError)
	}

	switch {
	case len(missingReports) > 0 && len(missingModifiers) > 0:
		return utils.CodedError(fmt.Errorf("%w: %v; %w: %v", schema.ErrReportNotFound, missingReports, schema.ErrModifierNotFound, missingModifiers), http.StatusNotFound)
	case len(missingReports) > 0:
		return utils.CodedError(fmt.Errorf("%w: %v", schema.ErrReportNotFound, missingReports), http.StatusNotFound)
	case len(missingModifiers) > 0:
		return utils.CodedError(fmt.Errorf("%w: %v", schema.ErrModifierNotFound, missingModifiers), http.StatusNotFound)
	}
	return nil
}

// link inserts the pair unless it is already present. Adding an existing
// pair is a no op at the storage layer, so concurrent links of the same pair
// both succeed.
func link(txn *gorm.DB, reportId, modifierId uint) (bool, error) {
	row := schema.ReportModifierLink{ReportId: reportId, ReportModifierId: modifierId}
	result := txn.Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
	if result.Error != nil {
		slog.Error("sql error linking modifier to report", "report_id", reportId, "modifier_id", modifierId, "error", result.Error)
		return false, utils.CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
	}
	return result.RowsAffected > 0, nil
}

func (m *Manager) Link(reportId, modifierId uint) (Result, error) {
	res := Result{ReportId: reportId, ModifierId: modifierId}

	err := m.db.Transaction(func(txn *gorm.DB) error {
		if err := checkExist(txn, []uint{reportId}, []uint{modifierId}); err != nil {
			return err
		}

		created, err := link(txn, reportId, modifierId)
		if err != nil {
			return err
		}
		if created {
			res.Status = StatusLinked
		} else {
			res.Status = StatusAlreadyLinked
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	linkOutcomes.WithLabelValues(res.Status).Inc()
	slog.Info("link modifier", "report_id", reportId, "modifier_id", modifierId, "status", res.Status, "code", logging.LINK)

	return res, nil
}

func (m *Manager) Unlink(reportId, modifierId uint) (Result, error) {
	res := Result{ReportId: reportId, ModifierId: modifierId}

	err := m.db.Transaction(func(txn *gorm.DB) error {
		if err := checkExist(txn, []uint{reportId}, []uint{modifierId}); err != nil {
			return err
		}

		result := txn.Where("report_id = ? AND reportmodifier_id = ?", reportId, modifierId).Delete(&schema.ReportModifierLink{})
		if result.Error != nil {
			slog.Error("sql error unlinking modifier from report", "report_id", reportId, "modifier_id", modifierId, "error", result.Error)
			return utils.CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}
		if result.RowsAffected > 0 {
			res.Status = StatusUnlinked
		} else {
			res.Status = StatusNotLinked
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	linkOutcomes.WithLabelValues(res.Status).Inc()
	slog.Info("unlink modifier", "report_id", reportId, "modifier_id", modifierId, "status", res.Status, "code", logging.UNLINK)

	return res, nil
}

// LinkBulk links every pair of the cross product. It is all or nothing: if
// any id is unknown nothing is written.
func (m *Manager) LinkBulk(reportIds, modifierIds []uint) (BulkResult, error) {
	var missing []error
	if len(reportIds) == 0 {
		missing = append(missing, &validation.RequiredError{Field: "reports"})
	}
	if len(modifierIds) == 0 {
		missing = append(missing, &validation.RequiredError{Field: "modifiers"})
	}
	if err := validation.Join(missing...); err != nil {
		return BulkResult{}, utils.CodedError(err, http.StatusBadRequest)
	}

	res := BulkResult{
		Status:            StatusSuccess,
		Reports:           reportIds,
		Modifiers:         modifierIds,
		TotalCombinations: len(reportIds) * len(modifierIds),
	}

	err := m.db.Transaction(func(txn *gorm.DB) error {
		if err := checkExist(txn, reportIds, modifierIds); err != nil {
			return err
		}

		for _, r := range reportIds {
			for _, mod := range modifierIds {
				created, err := link(txn, r, mod)
				if err != nil {
					return err
				}
				if created {
					res.NewlyLinked++
				} else {
					res.AlreadyLinked++
				}
			}
		}
		return nil
	})
	if err != nil {
		return BulkResult{}, err
	}

	linkOutcomes.WithLabelValues(StatusLinked).Add(float64(res.NewlyLinked))
	linkOutcomes.WithLabelValues(StatusAlreadyLinked).Add(float64(res.AlreadyLinked))
	slog.Info("bulk link modifiers", "n_reports", len(reportIds), "n_modifiers", len(modifierIds), "newly_linked", res.NewlyLinked, "already_linked", res.AlreadyLinked, "code", logging.LINK)

	return res, nil
}

func (m *Manager) Summary() (Summary, error) {
	var s Summary

	counts := []struct {
		dest  *int64
		query func(txn *gorm.DB) *gorm.DB
	}{
		{&s.TotalReports, func(txn *gorm.DB) *gorm.DB { return txn.Model(&schema.Report{}) }},
		{&s.TotalModifiers, func(txn *gorm.DB) *gorm.DB { return txn.Model(&schema.ReportModifier{}) }},
		{&s.TotalLinks, func(txn *gorm.DB) *gorm.DB { return txn.Model(&schema.ReportModifierLink{}) }},
		{&s.ReportsWithModifiers, func(txn *gorm.DB) *gorm.DB {
			return txn.Model(&schema.ReportModifierLink{}).Distinct("report_id")
		}},
		{&s.ModifiersWithReports, func(txn *gorm.DB) *gorm.DB {
			return txn.Model(&schema.ReportModifierLink{}).Distinct("reportmodifier_id")
		}},
	}

	err := m.db.Transaction(func(txn *gorm.DB) error {
		for _, c := range counts {
			if result := c.query(txn).Count(c.dest); result.Error != nil {
				slog.Error("sql error computing link summary", "error", result.Error)
				return utils.CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
			}
		}
		return nil
	})
	if err != nil {
		return Summary{}, err
	}

	s.ReportsWithoutModifiers = s.TotalReports - s.ReportsWithModifiers
	s.ModifiersWithoutReports = s.TotalModifiers - s.ModifiersWithReports

	return s, nil
}

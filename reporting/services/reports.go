package services

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/artesarh/rpb/reporting/auth"
	"github.com/artesarh/rpb/reporting/query"
	"github.com/artesarh/rpb/reporting/schema"
	"github.com/artesarh/rpb/reporting/store"
	"github.com/artesarh/rpb/reporting/views"
	"github.com/artesarh/rpb/utils"
	"github.com/go-chi/chi/v5"
	"gorm.io/gorm"
)

type ReportService struct {
	db       *gorm.DB
	store    *store.Store
	views    *views.Assembler
	facade   query.Facade
	userAuth auth.IdentityProvider
}

func (s *ReportService) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(s.userAuth.AuthMiddleware()...)

	r.Get("/", s.List)
	r.Post("/", s.Create)
	r.Get("/summary", s.Summary)

	r.Route("/{report_id}", func(r chi.Router) {
		r.Get("/", s.Get)
		r.Put("/", s.Update)
		r.Patch("/", s.PartialUpdate)
		r.Delete("/", s.Delete)

		r.Get("/modifiers", s.Modifiers)
		r.Get("/modifiers/{modifier_id}", s.Modifier)
		r.Get("/modifier/{modifier_id}/all", s.All)
		r.Get("/event-group", s.EventGroup)
		r.Get("/jobs", s.Jobs)
	})

	return r
}

func (s *ReportService) render(reports []schema.Report) ([]views.ReportWithModifiers, error) {
	return views.WithModifierIds(s.db, reports)
}

func (s *ReportService) writeReport(w http.ResponseWriter, code int, report schema.Report) {
	out, err := s.render([]schema.Report{report})
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJsonResponseCode(w, code, out[0])
}

func (s *ReportService) List(w http.ResponseWriter, r *http.Request) {
	listHandler(s.db, s.facade, query.Reports, s.render)(w, r)
}

func (s *ReportService) Get(w http.ResponseWriter, r *http.Request) {
	reportId, err := utils.URLParamId(r, "report_id")
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	report, err := schema.GetReport(reportId, s.db, false)
	if err != nil {
		utils.WriteError(w, codeLookupError(err))
		return
	}

	s.writeReport(w, http.StatusOK, report)
}

func (s *ReportService) Create(w http.ResponseWriter, r *http.Request) {
	var params store.ReportInput
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	report, err := s.store.CreateReport(params)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	s.writeReport(w, http.StatusCreated, report)
}

func (s *ReportService) Update(w http.ResponseWriter, r *http.Request) {
	reportId, err := utils.URLParamId(r, "report_id")
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	var params store.ReportInput
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	report, err := s.store.UpdateReport(reportId, params)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	s.writeReport(w, http.StatusOK, report)
}

func (s *ReportService) PartialUpdate(w http.ResponseWriter, r *http.Request) {
	reportId, err := utils.URLParamId(r, "report_id")
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	patch, ok := utils.ReadRequestBody(w, r)
	if !ok {
		return
	}

	report, err := s.store.PatchReport(reportId, patch)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	s.writeReport(w, http.StatusOK, report)
}

func (s *ReportService) Delete(w http.ResponseWriter, r *http.Request) {
	reportId, err := utils.URLParamId(r, "report_id")
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	if err := s.store.DeleteReport(reportId); err != nil {
		utils.WriteError(w, err)
		return
	}

	utils.WriteNoContent(w)
}

type summaryMeta struct {
	Endpoint    string    `json:"endpoint"`
	GeneratedAt time.Time `json:"generated_at"`
}

type reportSummary struct {
	TotalReports   int64    `json:"total_reports"`
	ValidReports   int64    `json:"valid_reports"`
	InvalidReports int64    `json:"invalid_reports"`
	UniquePerils   []string `json:"unique_perils"`
	PerilsCount    int      `json:"perils_count"`
}

type summaryResponse struct {
	Meta summaryMeta   `json:"meta"`
	Data reportSummary `json:"data"`
}

// Summary honours the same filters and search as the report listing.
func (s *ReportService) Summary(w http.ResponseWriter, r *http.Request) {
	params, err := s.facade.Parse(r, query.Reports)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	q, err := query.Filtered(s.db, query.Reports, params)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	var data reportSummary
	if result := q.Count(&data.TotalReports); result.Error != nil {
		slog.Error("sql error counting reports", "error", result.Error)
		utils.WriteError(w, utils.CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError))
		return
	}
	if result := q.Where("reports.is_valid = ?", true).Count(&data.ValidReports); result.Error != nil {
		slog.Error("sql error counting valid reports", "error", result.Error)
		utils.WriteError(w, utils.CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError))
		return
	}
	data.UniquePerils = []string{}
	if result := q.Distinct("reports.peril").Order("reports.peril").Pluck("reports.peril", &data.UniquePerils); result.Error != nil {
		slog.Error("sql error listing report perils", "error", result.Error)
		utils.WriteError(w, utils.CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError))
		return
	}
	data.InvalidReports = data.TotalReports - data.ValidReports
	data.PerilsCount = len(data.UniquePerils)

	utils.WriteJsonResponse(w, summaryResponse{
		Meta: summaryMeta{Endpoint: "reports_summary", GeneratedAt: time.Now().UTC()},
		Data: data,
	})
}

type nestedMeta struct {
	ReportId       uint              `json:"report_id"`
	ModifierId     *uint             `json:"modifier_id,omitempty"`
	EventGroupId   *uint             `json:"event_group_id,omitempty"`
	ModifiersCount *int              `json:"modifiers_count,omitempty"`
	JobsCount      *int              `json:"jobs_count,omitempty"`
	Links          map[string]string `json:"links"`
}

type nestedResponse struct {
	Meta nestedMeta  `json:"meta"`
	Data interface{} `json:"data"`
}

func (s *ReportService) Modifier(w http.ResponseWriter, r *http.Request) {
	reportId, err := utils.URLParamId(r, "report_id")
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	modifierId, err := utils.URLParamId(r, "modifier_id")
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	view, err := s.views.ReportModifier(reportId, modifierId)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	utils.WriteJsonResponse(w, nestedResponse{
		Meta: nestedMeta{
			ReportId:   reportId,
			ModifierId: &modifierId,
			Links: map[string]string{
				"report":   apiUrl(r, "/reports/%d/", reportId),
				"modifier": apiUrl(r, "/report-modifiers/%d/", modifierId),
			},
		},
		Data: view,
	})
}

func (s *ReportService) Modifiers(w http.ResponseWriter, r *http.Request) {
	reportId, err := utils.URLParamId(r, "report_id")
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	view, err := s.views.ReportModifiers(reportId)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	count := len(view.Modifiers)
	utils.WriteJsonResponse(w, nestedResponse{
		Meta: nestedMeta{
			ReportId:       reportId,
			ModifiersCount: &count,
			Links:          map[string]string{"report": apiUrl(r, "/reports/%d/", reportId)},
		},
		Data: view,
	})
}

func (s *ReportService) EventGroup(w http.ResponseWriter, r *http.Request) {
	reportId, err := utils.URLParamId(r, "report_id")
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	view, err := s.views.ReportEventGroup(reportId)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	utils.WriteJsonResponse(w, nestedResponse{
		Meta: nestedMeta{
			ReportId:     reportId,
			EventGroupId: &view.EventGroup.Id,
			Links: map[string]string{
				"report":      apiUrl(r, "/reports/%d/", reportId),
				"event_group": apiUrl(r, "/event-groups/%d/", view.EventGroup.Id),
			},
		},
		Data: view,
	})
}

func (s *ReportService) All(w http.ResponseWriter, r *http.Request) {
	reportId, err := utils.URLParamId(r, "report_id")
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	modifierId, err := utils.URLParamId(r, "modifier_id")
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	view, err := s.views.ReportAll(reportId, modifierId)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	utils.WriteJsonResponse(w, nestedResponse{
		Meta: nestedMeta{
			ReportId:     reportId,
			EventGroupId: &view.EventGroup.Id,
			ModifierId:   &modifierId,
			Links: map[string]string{
				"report":      apiUrl(r, "/reports/%d/", reportId),
				"event_group": apiUrl(r, "/event-groups/%d/", view.EventGroup.Id),
				"modifier":    apiUrl(r, "/report-modifiers/%d/", modifierId),
			},
		},
		Data: view,
	})
}

func (s *ReportService) Jobs(w http.ResponseWriter, r *http.Request) {
	reportId, err := utils.URLParamId(r, "report_id")
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	jobs, err := s.views.ReportJobs(reportId)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	count := len(jobs)
	utils.WriteJsonResponse(w, nestedResponse{
		Meta: nestedMeta{
			ReportId:  reportId,
			JobsCount: &count,
			Links:     map[string]string{"report": apiUrl(r, "/reports/%d/", reportId)},
		},
		Data: jobs,
	})
}

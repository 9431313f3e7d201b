package services

import (
	"log/slog"
	"net/http"

	"github.com/artesarh/rpb/reporting/auth"
	"github.com/artesarh/rpb/reporting/query"
	"github.com/artesarh/rpb/reporting/schema"
	"github.com/artesarh/rpb/reporting/store"
	"github.com/artesarh/rpb/reporting/views"
	"github.com/artesarh/rpb/utils"
	"github.com/go-chi/chi/v5"
	"gorm.io/gorm"
)

type EventGroupService struct {
	db       *gorm.DB
	store    *store.Store
	views    *views.Assembler
	facade   query.Facade
	userAuth auth.IdentityProvider
}

func (s *EventGroupService) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(s.userAuth.AuthMiddleware()...)

	r.Get("/", s.List)
	r.Post("/", s.Create)

	r.Route("/{group_id}", func(r chi.Router) {
		r.Get("/", s.Get)
		r.Put("/", s.Update)
		r.Patch("/", s.PartialUpdate)
		r.Delete("/", s.Delete)

		r.Get("/detail", s.Detail)
		r.Get("/reports", s.Reports)
	})

	return r
}

func (s *EventGroupService) List(w http.ResponseWriter, r *http.Request) {
	listHandler(s.db, s.facade, query.EventGroups, views.NewEventGroups)(w, r)
}

// write reloads the group with its members so the response reflects what
// was committed.
func (s *EventGroupService) write(w http.ResponseWriter, code int, groupId uint) {
	group, err := schema.GetEventGroup(groupId, s.db, true)
	if err != nil {
		utils.WriteError(w, codeLookupError(err))
		return
	}

	view, err := views.NewEventGroup(group)
	if err != nil {
		slog.Error("error resolving event variants", "event_group_id", groupId, "error", err)
		utils.WriteError(w, utils.CodedError(err, http.StatusInternalServerError))
		return
	}

	utils.WriteJsonResponseCode(w, code, view)
}

func (s *EventGroupService) Get(w http.ResponseWriter, r *http.Request) {
	groupId, err := utils.URLParamId(r, "group_id")
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	s.write(w, http.StatusOK, groupId)
}

func (s *EventGroupService) Detail(w http.ResponseWriter, r *http.Request) {
	groupId, err := utils.URLParamId(r, "group_id")
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	group, err := schema.GetEventGroup(groupId, s.db, true)
	if err != nil {
		utils.WriteError(w, codeLookupError(err))
		return
	}

	view, err := views.NewEventGroupDetail(group)
	if err != nil {
		slog.Error("error resolving event variants", "event_group_id", groupId, "error", err)
		utils.WriteError(w, utils.CodedError(err, http.StatusInternalServerError))
		return
	}

	utils.WriteJsonResponse(w, view)
}

func (s *EventGroupService) Create(w http.ResponseWriter, r *http.Request) {
	var params store.EventGroupInput
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	group, err := s.store.CreateEventGroup(params)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	s.write(w, http.StatusCreated, group.Id)
}

func (s *EventGroupService) Update(w http.ResponseWriter, r *http.Request) {
	groupId, err := utils.URLParamId(r, "group_id")
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	var params store.EventGroupInput
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	s.update(w, groupId, params)
}

func (s *EventGroupService) PartialUpdate(w http.ResponseWriter, r *http.Request) {
	groupId, err := utils.URLParamId(r, "group_id")
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	patch, ok := utils.ReadRequestBody(w, r)
	if !ok {
		return
	}

	if _, err := s.store.PatchEventGroup(groupId, patch); err != nil {
		utils.WriteError(w, err)
		return
	}

	s.write(w, http.StatusOK, groupId)
}

func (s *EventGroupService) update(w http.ResponseWriter, groupId uint, params store.EventGroupInput) {
	if _, err := s.store.UpdateEventGroup(groupId, params); err != nil {
		utils.WriteError(w, err)
		return
	}

	s.write(w, http.StatusOK, groupId)
}

func (s *EventGroupService) Delete(w http.ResponseWriter, r *http.Request) {
	groupId, err := utils.URLParamId(r, "group_id")
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	if err := s.store.DeleteEventGroup(groupId); err != nil {
		utils.WriteError(w, err)
		return
	}

	utils.WriteNoContent(w)
}

func (s *EventGroupService) Reports(w http.ResponseWriter, r *http.Request) {
	groupId, err := utils.URLParamId(r, "group_id")
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	reports, err := s.views.EventGroupReports(groupId)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	utils.WriteJsonResponse(w, reports)
}

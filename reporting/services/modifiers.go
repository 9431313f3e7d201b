package services

import (
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

type ModifierService struct {
	db       *gorm.DB
	store    *store.Store
	facade   query.Facade
	userAuth auth.IdentityProvider
}

func (s *ModifierService) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(s.userAuth.AuthMiddleware()...)

	r.Get("/", s.List)
	r.Post("/", s.Create)

	r.Route("/{modifier_id}", func(r chi.Router) {
		r.Get("/", s.Get)
		r.Put("/", s.Update)
		r.Patch("/", s.PartialUpdate)
		r.Delete("/", s.Delete)
	})

	return r
}

func (s *ModifierService) List(w http.ResponseWriter, r *http.Request) {
	listHandler(s.db, s.facade, query.ReportModifiers, func(rows []schema.ReportModifier) ([]views.Modifier, error) {
		return views.NewModifiers(rows), nil
	})(w, r)
}

func (s *ModifierService) Get(w http.ResponseWriter, r *http.Request) {
	modifierId, err := utils.URLParamId(r, "modifier_id")
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	modifier, err := schema.GetReportModifier(modifierId, s.db)
	if err != nil {
		utils.WriteError(w, codeLookupError(err))
		return
	}

	utils.WriteJsonResponse(w, views.NewModifier(modifier))
}

func (s *ModifierService) Create(w http.ResponseWriter, r *http.Request) {
	var params store.ModifierInput
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	modifier, err := s.store.CreateModifier(params)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	writeCreated(w, views.NewModifier(modifier))
}

func (s *ModifierService) Update(w http.ResponseWriter, r *http.Request) {
	modifierId, err := utils.URLParamId(r, "modifier_id")
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	var params store.ModifierInput
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	s.update(w, modifierId, params)
}

func (s *ModifierService) PartialUpdate(w http.ResponseWriter, r *http.Request) {
	modifierId, err := utils.URLParamId(r, "modifier_id")
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	patch, ok := utils.ReadRequestBody(w, r)
	if !ok {
		return
	}

	modifier, err := s.store.PatchModifier(modifierId, patch)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	utils.WriteJsonResponse(w, views.NewModifier(modifier))
}

func (s *ModifierService) update(w http.ResponseWriter, modifierId uint, params store.ModifierInput) {
	modifier, err := s.store.UpdateModifier(modifierId, params)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	utils.WriteJsonResponse(w, views.NewModifier(modifier))
}

func (s *ModifierService) Delete(w http.ResponseWriter, r *http.Request) {
	modifierId, err := utils.URLParamId(r, "modifier_id")
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	if err := s.store.DeleteModifier(modifierId); err != nil {
		utils.WriteError(w, err)
		return
	}

	utils.WriteNoContent(w)
}

package services

import (
	"net/http"

	"github.com/artesarh/rpb/reporting/auth"
	"github.com/artesarh/rpb/reporting/links"
	"github.com/artesarh/rpb/reporting/validation"
	"github.com/artesarh/rpb/utils"
	"github.com/go-chi/chi/v5"
)

type LinkService struct {
	links    *links.Manager
	userAuth auth.IdentityProvider
}

func (s *LinkService) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(s.userAuth.AuthMiddleware()...)

	r.Post("/single", s.Link)
	r.Post("/unlink", s.Unlink)
	r.Post("/multiple", s.LinkBulk)
	r.Get("/summary", s.Summary)

	return r
}

func parseLinkRequest(w http.ResponseWriter, r *http.Request) (links.LinkRequest, bool) {
	var params links.LinkRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return params, false
	}
	if err := validation.Struct(params); err != nil {
		utils.WriteError(w, utils.CodedError(err, http.StatusBadRequest))
		return params, false
	}
	return params, true
}

func (s *LinkService) Link(w http.ResponseWriter, r *http.Request) {
	params, ok := parseLinkRequest(w, r)
	if !ok {
		return
	}

	res, err := s.links.Link(params.ReportId, params.ModifierId)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	utils.WriteJsonResponse(w, res)
}

func (s *LinkService) Unlink(w http.ResponseWriter, r *http.Request) {
	params, ok := parseLinkRequest(w, r)
	if !ok {
		return
	}

	res, err := s.links.Unlink(params.ReportId, params.ModifierId)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	utils.WriteJsonResponse(w, res)
}

func (s *LinkService) LinkBulk(w http.ResponseWriter, r *http.Request) {
	var params links.LinkBulkRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	// empty lists are rejected by the manager
	res, err := s.links.LinkBulk(params.Reports, params.Modifiers)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	utils.WriteJsonResponse(w, res)
}

func (s *LinkService) Summary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.links.Summary()
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	utils.WriteJsonResponse(w, summary)
}

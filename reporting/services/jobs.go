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

type JobService struct {
	db       *gorm.DB
	store    *store.Store
	facade   query.Facade
	userAuth auth.IdentityProvider
}

func (s *JobService) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(s.userAuth.AuthMiddleware()...)

	r.Get("/", s.List)
	r.Post("/", s.Create)

	r.Route("/{job_id}", func(r chi.Router) {
		r.Get("/", s.Get)
		r.Put("/", s.Update)
		r.Patch("/", s.PartialUpdate)
		r.Delete("/", s.Delete)
	})

	return r
}

func (s *JobService) List(w http.ResponseWriter, r *http.Request) {
	listHandler(s.db, s.facade, query.Jobs, func(rows []schema.Job) ([]views.Job, error) {
		return views.NewJobs(rows), nil
	})(w, r)
}

func (s *JobService) Get(w http.ResponseWriter, r *http.Request) {
	jobId, err := utils.URLParamId(r, "job_id")
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	job, err := schema.GetJob(jobId, s.db)
	if err != nil {
		utils.WriteError(w, codeLookupError(err))
		return
	}

	utils.WriteJsonResponse(w, views.NewJob(job))
}

func (s *JobService) Create(w http.ResponseWriter, r *http.Request) {
	var params store.JobInput
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	job, err := s.store.CreateJob(params)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	writeCreated(w, views.NewJob(job))
}

func (s *JobService) Update(w http.ResponseWriter, r *http.Request) {
	jobId, err := utils.URLParamId(r, "job_id")
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	var params store.JobInput
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	s.update(w, jobId, params)
}

func (s *JobService) PartialUpdate(w http.ResponseWriter, r *http.Request) {
	jobId, err := utils.URLParamId(r, "job_id")
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	patch, ok := utils.ReadRequestBody(w, r)
	if !ok {
		return
	}

	job, err := s.store.PatchJob(jobId, patch)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	utils.WriteJsonResponse(w, views.NewJob(job))
}

func (s *JobService) update(w http.ResponseWriter, jobId uint, params store.JobInput) {
	job, err := s.store.UpdateJob(jobId, params)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	utils.WriteJsonResponse(w, views.NewJob(job))
}

func (s *JobService) Delete(w http.ResponseWriter, r *http.Request) {
	jobId, err := utils.URLParamId(r, "job_id")
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	if err := s.store.DeleteJob(jobId); err != nil {
		utils.WriteError(w, err)
		return
	}

	utils.WriteNoContent(w)
}

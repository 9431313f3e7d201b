package services

import (
	"log"
	"net/http"
	"os"

	"github.com/artesarh/rpb/reporting/auth"
	"github.com/artesarh/rpb/reporting/links"
	"github.com/artesarh/rpb/reporting/query"
	"github.com/artesarh/rpb/reporting/store"
	"github.com/artesarh/rpb/reporting/views"
	"github.com/artesarh/rpb/utils"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

type Options struct {
	PageSize       int
	MaxPageSize    int
	TokenRateLimit int
}

type Reporting struct {
	report     ReportService
	modifier   ModifierService
	job        JobService
	event      EventService
	eventGroup EventGroupService
	link       LinkService
	token      TokenService
	user       UserService
}

func NewReporting(db *gorm.DB, userAuth auth.IdentityProvider, opts Options) Reporting {
	entities := store.New(db)
	assembler := views.NewAssembler(db)
	facade := query.NewFacade(opts.PageSize, opts.MaxPageSize)

	return Reporting{
		report: ReportService{
			db:       db,
			store:    entities,
			views:    assembler,
			facade:   facade,
			userAuth: userAuth,
		},
		modifier: ModifierService{db: db, store: entities, facade: facade, userAuth: userAuth},
		job:      JobService{db: db, store: entities, facade: facade, userAuth: userAuth},
		event: EventService{
			db:       db,
			store:    entities,
			views:    assembler,
			facade:   facade,
			userAuth: userAuth,
		},
		eventGroup: EventGroupService{
			db:       db,
			store:    entities,
			views:    assembler,
			facade:   facade,
			userAuth: userAuth,
		},
		link:  LinkService{links: links.NewManager(db), userAuth: userAuth},
		token: TokenService{userAuth: userAuth, rateLimit: opts.TokenRateLimit},
		user:  UserService{userAuth: userAuth},
	}
}

func (m *Reporting) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(recoverer)
	r.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{
		Logger: log.New(os.Stderr, "", log.LstdFlags), NoColor: true,
	}))
	r.Use(requestMetrics)
	r.Use(middleware.StripSlashes)

	r.NotFound(notFound)
	r.MethodNotAllowed(methodNotAllowed)

	root := r
	r.Route("/api", func(r chi.Router) {
		r.Get("/", m.Root)
		r.Get("/schema", m.Schema(root))

		r.Mount("/token", m.token.Routes())
		r.Mount("/users", m.user.Routes())

		r.Mount("/reports", m.report.Routes())
		r.Mount("/report-modifiers", m.modifier.Routes())
		r.Mount("/jobs", m.job.Routes())
		r.Mount("/events", m.event.Routes())
		r.Mount("/ring-events", m.event.RingRoutes())
		r.Mount("/box-events", m.event.BoxRoutes())
		r.Mount("/geo-events", m.event.GeoRoutes())
		r.Mount("/event-groups", m.eventGroup.Routes())
		r.Mount("/link-modifier", m.link.Routes())
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		utils.WriteSuccess(w)
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}

type rootResponse struct {
	Meta           rootMeta                     `json:"meta"`
	Endpoints      map[string]map[string]string `json:"endpoints"`
	Authentication map[string]string            `json:"authentication"`
	Schema         string                       `json:"schema"`
}

type rootMeta struct {
	ApiVersion  string `json:"api_version"`
	Description string `json:"description"`
}

// Root lists the entry points of the api.
func (m *Reporting) Root(w http.ResponseWriter, r *http.Request) {
	utils.WriteJsonResponse(w, rootResponse{
		Meta: rootMeta{ApiVersion: "1.0", Description: "Reporting Platform API"},
		Endpoints: map[string]map[string]string{
			"reports": {
				"list":        apiUrl(r, "/reports/"),
				"summary":     apiUrl(r, "/reports/summary/"),
				"description": "Manage reports and their configurations",
			},
			"report_modifiers": {
				"list":        apiUrl(r, "/report-modifiers/"),
				"description": "Manage report modifiers and date-based configurations",
			},
			"jobs": {
				"list":        apiUrl(r, "/jobs/"),
				"description": "Track and manage job executions",
			},
			"events": {
				"base_events":  apiUrl(r, "/events/"),
				"ring_events":  apiUrl(r, "/ring-events/"),
				"box_events":   apiUrl(r, "/box-events/"),
				"geo_events":   apiUrl(r, "/geo-events/"),
				"event_groups": apiUrl(r, "/event-groups/"),
				"description":  "Manage different types of geographical events",
			},
			"relationships": {
				"link_single":   apiUrl(r, "/link-modifier/single/"),
				"unlink":        apiUrl(r, "/link-modifier/unlink/"),
				"link_multiple": apiUrl(r, "/link-modifier/multiple/"),
				"link_summary":  apiUrl(r, "/link-modifier/summary/"),
				"description":   "Manage relationships between reports and modifiers",
			},
		},
		Authentication: map[string]string{
			"token_obtain":  apiUrl(r, "/token/"),
			"token_refresh": apiUrl(r, "/token/refresh/"),
			"description":   "JWT-based authentication endpoints",
		},
		Schema: apiUrl(r, "/schema/"),
	})
}

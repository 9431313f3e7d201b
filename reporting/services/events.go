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

// eventEndpoint serves one event collection. The base collection uses an
// empty variant, which matches events of every variant.
type eventEndpoint[In any] struct {
	db         *gorm.DB
	facade     query.Facade
	collection query.Collection
	variant    schema.EventType
	create     func(In) (schema.Event, error)
	update     func(uint, In) (schema.Event, error)
	patch      func(uint, []byte) (schema.Event, error)
	render     func(schema.Event) (interface{}, error)
	remove     http.HandlerFunc
}

// routes registers the collection endpoints, item adds extra routes below
// /{event_id}.
func (e eventEndpoint[In]) routes(r chi.Router, item func(r chi.Router)) {
	r.Get("/", e.list)
	r.Post("/", e.createHandler)

	r.Route("/{event_id}", func(r chi.Router) {
		r.Get("/", e.get)
		r.Put("/", e.updateHandler)
		r.Patch("/", e.partialUpdate)
		r.Delete("/", e.remove)

		if item != nil {
			item(r)
		}
	})
}

func (e eventEndpoint[In]) write(w http.ResponseWriter, code int, event schema.Event) {
	view, err := e.render(event)
	if err != nil {
		slog.Error("error resolving event variant", "event_id", event.Id, "error", err)
		utils.WriteError(w, utils.CodedError(err, http.StatusInternalServerError))
		return
	}
	utils.WriteJsonResponseCode(w, code, view)
}

func (e eventEndpoint[In]) list(w http.ResponseWriter, r *http.Request) {
	listHandler(e.db, e.facade, e.collection, func(rows []schema.Event) ([]interface{}, error) {
		out := make([]interface{}, 0, len(rows))
		for _, row := range rows {
			view, err := e.render(row)
			if err != nil {
				slog.Error("error resolving event variant", "event_id", row.Id, "error", err)
				return nil, utils.CodedError(err, http.StatusInternalServerError)
			}
			out = append(out, view)
		}
		return out, nil
	})(w, r)
}

func (e eventEndpoint[In]) get(w http.ResponseWriter, r *http.Request) {
	eventId, err := utils.URLParamId(r, "event_id")
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	event, err := store.GetEventOfType(e.db, eventId, e.variant)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	e.write(w, http.StatusOK, event)
}

func (e eventEndpoint[In]) createHandler(w http.ResponseWriter, r *http.Request) {
	var params In
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	event, err := e.create(params)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	e.write(w, http.StatusCreated, event)
}

func (e eventEndpoint[In]) updateHandler(w http.ResponseWriter, r *http.Request) {
	eventId, err := utils.URLParamId(r, "event_id")
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	var params In
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	event, err := e.update(eventId, params)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	e.write(w, http.StatusOK, event)
}

func (e eventEndpoint[In]) partialUpdate(w http.ResponseWriter, r *http.Request) {
	eventId, err := utils.URLParamId(r, "event_id")
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	patch, ok := utils.ReadRequestBody(w, r)
	if !ok {
		return
	}

	event, err := e.patch(eventId, patch)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	e.write(w, http.StatusOK, event)
}

func baseView(e schema.Event) (interface{}, error) {
	return views.NewEvent(e)
}

type EventService struct {
	db       *gorm.DB
	store    *store.Store
	views    *views.Assembler
	facade   query.Facade
	userAuth auth.IdentityProvider
}

func (s *EventService) deleteHandler(variant schema.EventType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		eventId, err := utils.URLParamId(r, "event_id")
		if err != nil {
			utils.WriteError(w, err)
			return
		}

		if err := s.store.DeleteEvent(eventId, variant); err != nil {
			utils.WriteError(w, err)
			return
		}

		utils.WriteNoContent(w)
	}
}

func (s *EventService) EventGroups(w http.ResponseWriter, r *http.Request) {
	eventId, err := utils.URLParamId(r, "event_id")
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	groups, err := s.views.EventEventGroups(eventId)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	utils.WriteJsonResponse(w, groups)
}

// Routes serves the base event collection, it lists events of all variants.
func (s *EventService) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(s.userAuth.AuthMiddleware()...)

	eventEndpoint[store.EventInput]{
		db:         s.db,
		facade:     s.facade,
		collection: query.Events,
		create:     s.store.CreateEvent,
		update:     s.store.UpdateEvent,
		patch:      s.store.PatchEvent,
		render:     baseView,
		remove:     s.deleteHandler(""),
	}.routes(r, func(r chi.Router) {
		r.Get("/event-groups", s.EventGroups)
	})

	return r
}

func (s *EventService) RingRoutes() chi.Router {
	r := chi.NewRouter()

	r.Use(s.userAuth.AuthMiddleware()...)

	eventEndpoint[store.RingEventInput]{
		db:         s.db,
		facade:     s.facade,
		collection: query.RingEvents,
		variant:    schema.RingEventType,
		create:     s.store.CreateRingEvent,
		update:     s.store.UpdateRingEvent,
		patch:      s.store.PatchRingEvent,
		render:     views.NewEventDetail,
		remove:     s.deleteHandler(schema.RingEventType),
	}.routes(r, nil)

	return r
}

func (s *EventService) BoxRoutes() chi.Router {
	r := chi.NewRouter()

	r.Use(s.userAuth.AuthMiddleware()...)

	eventEndpoint[store.BoxEventInput]{
		db:         s.db,
		facade:     s.facade,
		collection: query.BoxEvents,
		variant:    schema.BoxEventType,
		create:     s.store.CreateBoxEvent,
		update:     s.store.UpdateBoxEvent,
		patch:      s.store.PatchBoxEvent,
		render:     views.NewEventDetail,
		remove:     s.deleteHandler(schema.BoxEventType),
	}.routes(r, nil)

	return r
}

func (s *EventService) GeoRoutes() chi.Router {
	r := chi.NewRouter()

	r.Use(s.userAuth.AuthMiddleware()...)

	eventEndpoint[store.GeoEventInput]{
		db:         s.db,
		facade:     s.facade,
		collection: query.GeoEvents,
		variant:    schema.GeoEventType,
		create:     s.store.CreateGeoEvent,
		update:     s.store.UpdateGeoEvent,
		patch:      s.store.PatchGeoEvent,
		render:     views.NewEventDetail,
		remove:     s.deleteHandler(schema.GeoEventType),
	}.routes(r, nil)

	return r
}

package client

import (
	"fmt"

	"github.com/artesarh/rpb/reporting/auth"
	"github.com/artesarh/rpb/reporting/links"
	"github.com/artesarh/rpb/reporting/query"
	"github.com/artesarh/rpb/reporting/store"
	"github.com/artesarh/rpb/reporting/views"
)

type ReportingClient struct {
	BaseClient
	refreshToken string
}

// NewReportingClient expects the server root, requests are sent under /api.
func NewReportingClient(baseUrl string) *ReportingClient {
	return &ReportingClient{BaseClient: NewBaseClient(baseUrl, "")}
}

func (c *ReportingClient) Login(username, password string) error {
	var tokens auth.Tokens
	err := c.Post("/api/token").
		Json(map[string]string{"username": username, "password": password}).
		Do(&tokens)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	c.authToken = tokens.Access
	c.refreshToken = tokens.Refresh
	return nil
}

func (c *ReportingClient) RefreshAccess() error {
	if c.refreshToken == "" {
		return fmt.Errorf("client has no refresh token, call Login first")
	}

	var tokens auth.Tokens
	err := c.Post("/api/token/refresh").
		Json(map[string]string{"refresh": c.refreshToken}).
		Do(&tokens)
	if err != nil {
		return fmt.Errorf("token refresh failed: %w", err)
	}

	c.authToken = tokens.Access
	return nil
}

type wrappedData[T any] struct {
	Data T `json:"data"`
}

func decode[T any](r *httpRequest) (T, error) {
	var out T
	err := r.Do(&out)
	return out, err
}

func (c *ReportingClient) CreateEvent(in store.EventInput) (views.Event, error) {
	return decode[views.Event](c.Post("/api/events").Json(in))
}

func (c *ReportingClient) CreateRingEvent(in store.RingEventInput) (views.RingEvent, error) {
	return decode[views.RingEvent](c.Post("/api/ring-events").Json(in))
}

func (c *ReportingClient) CreateBoxEvent(in store.BoxEventInput) (views.BoxEvent, error) {
	return decode[views.BoxEvent](c.Post("/api/box-events").Json(in))
}

func (c *ReportingClient) CreateGeoEvent(in store.GeoEventInput) (views.GeoEvent, error) {
	return decode[views.GeoEvent](c.Post("/api/geo-events").Json(in))
}

func (c *ReportingClient) ListEvents(params map[string]string) (query.Page[views.Event], error) {
	return decode[query.Page[views.Event]](c.Get("/api/events").Params(params))
}

func (c *ReportingClient) CreateEventGroup(in store.EventGroupInput) (views.EventGroup, error) {
	return decode[views.EventGroup](c.Post("/api/event-groups").Json(in))
}

func (c *ReportingClient) EventGroupDetail(groupId uint) (views.EventGroupDetail, error) {
	return decode[views.EventGroupDetail](c.Get(fmt.Sprintf("/api/event-groups/%d/detail", groupId)))
}

func (c *ReportingClient) DeleteEventGroup(groupId uint) error {
	return c.Delete(fmt.Sprintf("/api/event-groups/%d", groupId)).Do(nil)
}

func (c *ReportingClient) CreateReport(in store.ReportInput) (views.ReportWithModifiers, error) {
	return decode[views.ReportWithModifiers](c.Post("/api/reports").Json(in))
}

func (c *ReportingClient) GetReport(reportId uint) (views.ReportWithModifiers, error) {
	return decode[views.ReportWithModifiers](c.Get(fmt.Sprintf("/api/reports/%d", reportId)))
}

func (c *ReportingClient) ListReports(params map[string]string) (query.Page[views.ReportWithModifiers], error) {
	return decode[query.Page[views.ReportWithModifiers]](c.Get("/api/reports").Params(params))
}

func (c *ReportingClient) DeleteReport(reportId uint) error {
	return c.Delete(fmt.Sprintf("/api/reports/%d", reportId)).Do(nil)
}

// ReportModifiers fails with a 404 when nothing is linked to the report.
func (c *ReportingClient) ReportModifiers(reportId uint) ([]views.Modifier, error) {
	var out wrappedData[views.ReportModifiers]
	if err := c.Get(fmt.Sprintf("/api/reports/%d/modifiers", reportId)).Do(&out); err != nil {
		return nil, err
	}
	return out.Data.Modifiers, nil
}

func (c *ReportingClient) CreateModifier(in store.ModifierInput) (views.Modifier, error) {
	return decode[views.Modifier](c.Post("/api/report-modifiers").Json(in))
}

func (c *ReportingClient) CreateJob(in store.JobInput) (views.Job, error) {
	return decode[views.Job](c.Post("/api/jobs").Json(in))
}

func (c *ReportingClient) Link(reportId, modifierId uint) (links.Result, error) {
	return decode[links.Result](c.Post("/api/link-modifier/single").Json(links.LinkRequest{ReportId: reportId, ModifierId: modifierId}))
}

func (c *ReportingClient) Unlink(reportId, modifierId uint) (links.Result, error) {
	return decode[links.Result](c.Post("/api/link-modifier/unlink").Json(links.LinkRequest{ReportId: reportId, ModifierId: modifierId}))
}

func (c *ReportingClient) LinkBulk(reportIds, modifierIds []uint) (links.BulkResult, error) {
	return decode[links.BulkResult](c.Post("/api/link-modifier/multiple").Json(links.LinkBulkRequest{Reports: reportIds, Modifiers: modifierIds}))
}

func (c *ReportingClient) LinkSummary() (links.Summary, error) {
	return decode[links.Summary](c.Get("/api/link-modifier/summary"))
}

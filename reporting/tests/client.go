package tests

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"

	"github.com/artesarh/rpb/reporting/auth"
	"github.com/artesarh/rpb/reporting/links"
	"github.com/artesarh/rpb/reporting/store"
	"github.com/artesarh/rpb/reporting/views"
	"github.com/artesarh/rpb/utils"
	"github.com/go-chi/chi/v5"
)

type httpTestRequest struct {
	api http.Handler

	method   string
	endpoint string
	headers  map[string]string
	params   url.Values
	json     interface{}
	body     io.Reader
}

func newHttpTestRequest(api http.Handler, method, endpoint string) *httpTestRequest {
	return &httpTestRequest{api: api, method: method, endpoint: endpoint}
}

func (r *httpTestRequest) Header(key, value string) *httpTestRequest {
	if r.headers == nil {
		r.headers = make(map[string]string)
	}
	r.headers[key] = value
	return r
}

func (r *httpTestRequest) Auth(token string) *httpTestRequest {
	return r.Header("Authorization", fmt.Sprintf("Bearer %v", token))
}

func (r *httpTestRequest) Json(data interface{}) *httpTestRequest {
	r.json = data
	return r
}

func (r *httpTestRequest) Body(body io.Reader) *httpTestRequest {
	r.body = body
	return r
}

func (r *httpTestRequest) Param(key, value string) *httpTestRequest {
	if r.params == nil {
		r.params = url.Values{}
	}
	r.params.Set(key, value)
	return r
}

// statusError is returned for any non 2xx response.
type statusError struct {
	method   string
	endpoint string
	code     int
	envelope utils.ErrorResponse
	content  string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("%v request to endpoint %v returned status %d, content '%v'", e.method, e.endpoint, e.code, e.content)
}

var ErrUnauthorized = errors.New("unauthorized")

func (e *statusError) Is(target error) bool {
	return target == ErrUnauthorized && e.code == http.StatusUnauthorized
}

// statusOf returns the response code of a failed request, 0 if the request
// did not fail with a status.
func statusOf(err error) int {
	var serr *statusError
	if errors.As(err, &serr) {
		return serr.code
	}
	return 0
}

func envelopeOf(err error) utils.ErrorResponse {
	var serr *statusError
	if errors.As(err, &serr) {
		return serr.envelope
	}
	return utils.ErrorResponse{}
}

// response body will be parsed into result, passing nil indicates that no result is returned.
func (r *httpTestRequest) Do(result interface{}) error {
	if r.json != nil {
		body := new(bytes.Buffer)
		if err := json.NewEncoder(body).Encode(r.json); err != nil {
			return fmt.Errorf("error encoding json body for endpoint %v: %w", r.endpoint, err)
		}
		r.body = body
	}

	endpoint := r.endpoint
	if r.params != nil {
		endpoint += "?" + r.params.Encode()
	}

	req := httptest.NewRequest(r.method, endpoint, r.body)
	for k, v := range r.headers {
		req.Header.Add(k, v)
	}

	w := httptest.NewRecorder()

	r.api.ServeHTTP(w, req)

	res := w.Result()
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		serr := &statusError{method: r.method, endpoint: endpoint, code: res.StatusCode, content: w.Body.String()}
		_ = json.Unmarshal(w.Body.Bytes(), &serr.envelope)
		return serr
	}

	if result != nil {
		if err := json.NewDecoder(res.Body).Decode(result); err != nil {
			return fmt.Errorf("error parsing %v response from endpoint %v: %w", r.method, r.endpoint, err)
		}
	}

	return nil
}

type client struct {
	api          chi.Router
	authToken    string
	refreshToken string
}

func (c *client) request(method, endpoint string) *httpTestRequest {
	r := newHttpTestRequest(c.api, method, endpoint)
	if c.authToken != "" {
		return r.Auth(c.authToken)
	}
	return r
}

func (c *client) Get(endpoint string) *httpTestRequest {
	return c.request("GET", endpoint)
}

func (c *client) Post(endpoint string) *httpTestRequest {
	return c.request("POST", endpoint)
}

func (c *client) Put(endpoint string) *httpTestRequest {
	return c.request("PUT", endpoint)
}

func (c *client) Patch(endpoint string) *httpTestRequest {
	return c.request("PATCH", endpoint)
}

func (c *client) Delete(endpoint string) *httpTestRequest {
	return c.request("DELETE", endpoint)
}

func (c *client) login(username, password string) error {
	var tokens auth.Tokens
	err := c.Post("/api/token").Json(map[string]string{"username": username, "password": password}).Do(&tokens)
	if err != nil {
		return err
	}

	c.authToken = tokens.Access
	c.refreshToken = tokens.Refresh

	return nil
}

func (c *client) addUser(username, password string, isAdmin bool) error {
	body := map[string]interface{}{"username": username, "password": password, "is_admin": isAdmin}
	return c.Post("/api/users").Json(body).Do(nil)
}

func (c *client) createBoxEvent(name string, maxLat, minLat, maxLon, minLon float64) (views.BoxEvent, error) {
	var event views.BoxEvent
	err := c.Post("/api/box-events").Json(store.BoxEventInput{
		EventInput: store.EventInput{Name: name},
		MaxLat:     maxLat, MinLat: minLat, MaxLon: maxLon, MinLon: minLon,
	}).Do(&event)
	return event, err
}

func (c *client) createRingEvent(name string, lat, lon, radius float64) (views.RingEvent, error) {
	var event views.RingEvent
	err := c.Post("/api/ring-events").Json(store.RingEventInput{
		EventInput: store.EventInput{Name: name},
		Latitude:   lat, Longitude: lon, Radius: radius,
	}).Do(&event)
	return event, err
}

func (c *client) createGeoEvent(name, country string) (views.GeoEvent, error) {
	var event views.GeoEvent
	err := c.Post("/api/geo-events").Json(store.GeoEventInput{
		EventInput: store.EventInput{Name: name},
		Country:    &country,
	}).Do(&event)
	return event, err
}

func (c *client) createEventGroup(name string, eventIds ...uint) (views.EventGroup, error) {
	var group views.EventGroup
	err := c.Post("/api/event-groups").Json(store.EventGroupInput{Name: name, EventIds: eventIds}).Do(&group)
	return group, err
}

func (c *client) createReport(name, peril string, groupId uint) (views.ReportWithModifiers, error) {
	var report views.ReportWithModifiers
	err := c.Post("/api/reports").Json(store.ReportInput{
		Name: name, Peril: peril, EventGroup: groupId, LossPerspective: "GR",
	}).Do(&report)
	return report, err
}

func (c *client) createModifier(asAtDate, fxDate string) (views.Modifier, error) {
	in := store.ModifierInput{}
	if asAtDate != "" {
		in.AsAtDate = &asAtDate
	}
	if fxDate != "" {
		in.FxDate = &fxDate
	}
	var modifier views.Modifier
	err := c.Post("/api/report-modifiers").Json(in).Do(&modifier)
	return modifier, err
}

func (c *client) link(reportId, modifierId uint) (links.Result, error) {
	var res links.Result
	err := c.Post("/api/link-modifier/single").Json(links.LinkRequest{ReportId: reportId, ModifierId: modifierId}).Do(&res)
	return res, err
}

func (c *client) unlink(reportId, modifierId uint) (links.Result, error) {
	var res links.Result
	err := c.Post("/api/link-modifier/unlink").Json(links.LinkRequest{ReportId: reportId, ModifierId: modifierId}).Do(&res)
	return res, err
}

func (c *client) linkBulk(reportIds, modifierIds []uint) (links.BulkResult, error) {
	var res links.BulkResult
	err := c.Post("/api/link-modifier/multiple").Json(links.LinkBulkRequest{Reports: reportIds, Modifiers: modifierIds}).Do(&res)
	return res, err
}

func (c *client) linkSummary() (links.Summary, error) {
	var res links.Summary
	err := c.Get("/api/link-modifier/summary").Do(&res)
	return res, err
}

// fixture creates one box event group and one report using it.
func (c *client) fixture(peril string) (views.EventGroup, views.ReportWithModifiers, error) {
	event, err := c.createBoxEvent("box "+peril, 10, 0, 10, 0)
	if err != nil {
		return views.EventGroup{}, views.ReportWithModifiers{}, err
	}
	group, err := c.createEventGroup("group "+peril, event.Id)
	if err != nil {
		return views.EventGroup{}, views.ReportWithModifiers{}, err
	}
	report, err := c.createReport("report "+peril, peril, group.Id)
	return group, report, err
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

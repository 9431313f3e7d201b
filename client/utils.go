package client

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// ApiError is returned for any response outside the 2xx range. Error and
// Detail are filled from the error envelope when the body carries one.
type ApiError struct {
	Method     string
	Endpoint   string
	StatusCode int
	Kind       string `json:"error"`
	Detail     string `json:"detail"`
}

func (e *ApiError) Error() string {
	if e.Kind != "" {
		return fmt.Sprintf("%v request to endpoint %v returned status %d, %v: %v", e.Method, e.Endpoint, e.StatusCode, e.Kind, e.Detail)
	}
	return fmt.Sprintf("%v request to endpoint %v returned status %d", e.Method, e.Endpoint, e.StatusCode)
}

// StatusCode returns the status of a failed request, or 0 if err did not come
// from a response.
func StatusCode(err error) int {
	var apiErr *ApiError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

type httpRequest struct {
	client      *http.Client
	method      string
	baseUrl     string
	endpoint    string
	headers     map[string]string
	queryParams map[string]string
	json        interface{}
	body        io.Reader
}

func newHttpRequest(client *http.Client, method, baseUrl, endpoint string) *httpRequest {
	return &httpRequest{client: client, method: method, baseUrl: baseUrl, endpoint: endpoint}
}

func (r *httpRequest) Header(key, value string) *httpRequest {
	if r.headers == nil {
		r.headers = make(map[string]string)
	}
	r.headers[key] = value
	return r
}

func (r *httpRequest) Auth(token string) *httpRequest {
	return r.Header("Authorization", fmt.Sprintf("Bearer %v", token))
}

func (r *httpRequest) Json(data interface{}) *httpRequest {
	r.json = data
	return r
}

func (r *httpRequest) Param(key, value string) *httpRequest {
	if r.queryParams == nil {
		r.queryParams = make(map[string]string)
	}
	r.queryParams[key] = value
	return r
}

func (r *httpRequest) Params(params map[string]string) *httpRequest {
	for k, v := range params {
		r.Param(k, v)
	}
	return r
}

func (r *httpRequest) Process(resultHandler func(io.Reader) error) error {
	fullEndpoint, err := url.JoinPath(r.baseUrl, r.endpoint)
	if err != nil {
		return fmt.Errorf("error formatting url for endpoint %v: %w", r.endpoint, err)
	}

	if r.json != nil {
		body := new(bytes.Buffer)
		if err := json.NewEncoder(body).Encode(r.json); err != nil {
			return fmt.Errorf("error encoding json body for endpoint %v: %w", r.endpoint, err)
		}
		r.body = body
	}

	req, err := http.NewRequest(r.method, fullEndpoint, r.body)
	if err != nil {
		return fmt.Errorf("error creating %v request for endpoint %v: %w", r.method, r.endpoint, err)
	}

	if r.json != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range r.headers {
		req.Header.Add(k, v)
	}

	if r.queryParams != nil {
		query := req.URL.Query()
		for k, v := range r.queryParams {
			query.Add(k, v)
		}
		req.URL.RawQuery = query.Encode()
	}

	start := time.Now()

	res, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("error sending %v request to endpoint %v: %w", r.method, r.endpoint, err)
	}
	defer res.Body.Close()

	slog.Debug("reporting client", "method", r.method, "endpoint", r.endpoint, "status", res.StatusCode, "duration", time.Since(start).String())

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		apiErr := &ApiError{Method: r.method, Endpoint: r.endpoint, StatusCode: res.StatusCode}
		if content, err := io.ReadAll(res.Body); err == nil {
			// a body that isn't an envelope just leaves the fields empty
			_ = json.Unmarshal(content, apiErr)
		}
		return apiErr
	}

	if resultHandler != nil && res.StatusCode != http.StatusNoContent {
		if err := resultHandler(res.Body); err != nil {
			return fmt.Errorf("error processing %v response from endpoint %v: %w", r.method, r.endpoint, err)
		}
	}

	return nil
}

func (r *httpRequest) Do(result interface{}) error {
	return r.Process(func(body io.Reader) error {
		if result != nil {
			if err := json.NewDecoder(body).Decode(result); err != nil {
				return fmt.Errorf("error parsing %v response from endpoint %v: %w", r.method, r.endpoint, err)
			}
		}
		return nil
	})
}

type BaseClient struct {
	baseUrl   string
	authToken string
	client    *http.Client
}

func NewBaseClient(baseUrl string, authToken string) BaseClient {
	return BaseClient{baseUrl: baseUrl, authToken: authToken, client: &http.Client{Timeout: 60 * time.Second}}
}

func (c *BaseClient) request(method, endpoint string) *httpRequest {
	r := newHttpRequest(c.client, method, c.baseUrl, endpoint)
	if c.authToken != "" {
		r = r.Auth(c.authToken)
	}
	return r
}

func (c *BaseClient) Get(endpoint string) *httpRequest {
	return c.request(http.MethodGet, endpoint)
}

func (c *BaseClient) Post(endpoint string) *httpRequest {
	return c.request(http.MethodPost, endpoint)
}

func (c *BaseClient) Put(endpoint string) *httpRequest {
	return c.request(http.MethodPut, endpoint)
}

func (c *BaseClient) Patch(endpoint string) *httpRequest {
	return c.request(http.MethodPatch, endpoint)
}

func (c *BaseClient) Delete(endpoint string) *httpRequest {
	return c.request(http.MethodDelete, endpoint)
}

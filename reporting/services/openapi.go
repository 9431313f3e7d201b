package services

import (
	"log/slog"
	"net/http"
	"regexp"
	"strings"

	"github.com/artesarh/rpb/utils"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-chi/chi/v5"
)

const jwtScheme = "jwtAuth"

var pathParam = regexp.MustCompile(`\{([^}/]+)\}`)

var documented = map[string]bool{
	http.MethodGet:    true,
	http.MethodPost:   true,
	http.MethodPut:    true,
	http.MethodPatch:  true,
	http.MethodDelete: true,
}

// publicPath reports whether the route is served without a bearer token.
func publicPath(path string) bool {
	return path == "/api" || path == "/api/schema" || strings.HasPrefix(path, "/api/token")
}

// apiDocument describes every route below /api. The paths are read from the
// router, so the document lists exactly what is mounted.
func apiDocument(routes chi.Routes) (*openapi3.T, error) {
	doc := &openapi3.T{
		OpenAPI: "3.0.3",
		Info: &openapi3.Info{
			Title:       "Reporting Platform API",
			Description: "Reports, report modifiers, jobs, events and event groups",
			Version:     "1.0",
		},
		Paths: openapi3.NewPaths(),
		Components: &openapi3.Components{
			SecuritySchemes: openapi3.SecuritySchemes{
				jwtScheme: &openapi3.SecuritySchemeRef{Value: openapi3.NewJWTSecurityScheme()},
			},
		},
		Security: *openapi3.NewSecurityRequirements().With(openapi3.NewSecurityRequirement().Authenticate(jwtScheme)),
	}

	walk := func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		path := strings.TrimSuffix(route, "/")
		if !strings.HasPrefix(path, "/api") || !documented[method] {
			return nil
		}

		item := doc.Paths.Value(path)
		if item == nil {
			item = &openapi3.PathItem{}
			doc.Paths.Set(path, item)
		}

		op := openapi3.NewOperation()
		op.OperationID = operationId(method, path)
		if tag := resourceTag(path); tag != "" {
			op.Tags = []string{tag}
		}
		for _, match := range pathParam.FindAllStringSubmatch(path, -1) {
			op.AddParameter(openapi3.NewPathParameter(match[1]).WithSchema(openapi3.NewIntegerSchema()))
		}
		if publicPath(path) {
			op.Security = openapi3.NewSecurityRequirements()
		}
		op.AddResponse(0, openapi3.NewResponse().WithDescription("JSON body, errors use the error envelope"))

		item.SetOperation(method, op)
		return nil
	}

	if err := chi.Walk(routes, walk); err != nil {
		return nil, err
	}
	return doc, nil
}

func operationId(method, path string) string {
	parts := []string{strings.ToLower(method)}
	for _, segment := range strings.Split(strings.TrimPrefix(path, "/api"), "/") {
		segment = strings.Trim(segment, "{}")
		if segment != "" {
			parts = append(parts, strings.ReplaceAll(segment, "-", "_"))
		}
	}
	return strings.Join(parts, "_")
}

func resourceTag(path string) string {
	rest := strings.TrimPrefix(strings.TrimPrefix(path, "/api"), "/")
	tag, _, _ := strings.Cut(rest, "/")
	return tag
}

// Schema serves the OpenAPI document of the mounted api.
func (m *Reporting) Schema(routes chi.Routes) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doc, err := apiDocument(routes)
		if err != nil {
			slog.Error("error building api document", "error", err)
			utils.WriteError(w, utils.CodedError(err, http.StatusInternalServerError))
			return
		}
		utils.WriteJsonResponse(w, doc)
	}
}

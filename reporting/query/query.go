package query

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/artesarh/rpb/reporting/schema"
	"github.com/artesarh/rpb/reporting/validation"
	"github.com/artesarh/rpb/utils"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var ErrInvalidPage = errors.New("invalid page")

type FieldKind int

const (
	String FieldKind = iota
	Bool
	Int
	Date
)

type Filter struct {
	Param  string
	Column string
	Kind   FieldKind
}

// Collection declares how one entity collection can be listed. Every column
// name must be qualified with its table since Base may join other tables.
type Collection struct {
	Name     string
	Base     func(db *gorm.DB) *gorm.DB
	// Preload is applied to the page query only, never to the count.
	Preload  func(db *gorm.DB) *gorm.DB
	Select   string
	IdColumn string
	Filters  []Filter
	Search   []string
	// Ordering maps the public field name to its column.
	Ordering map[string]string
	Default  []string
}

type Params struct {
	Page     int
	PageSize int
	Search   string
	Ordering []string
	Filters  map[string]string
}

type Pagination struct {
	Page        int   `json:"page"`
	PageSize    int   `json:"page_size"`
	TotalPages  int   `json:"total_pages"`
	TotalCount  int64 `json:"total_count"`
	HasNext     bool  `json:"has_next"`
	HasPrevious bool  `json:"has_previous"`
}

type Meta struct {
	Pagination Pagination `json:"pagination"`
}

type Links struct {
	Self     string  `json:"self"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	First    string  `json:"first"`
	Last     string  `json:"last"`
}

type Page[T any] struct {
	Meta  Meta  `json:"meta"`
	Links Links `json:"links"`
	Data  []T   `json:"data"`
}

// Facade parses listing parameters and runs the filtered, ordered and
// paginated query for a collection.
type Facade struct {
	PageSize    int
	MaxPageSize int
}

func NewFacade(pageSize, maxPageSize int) Facade {
	if pageSize <= 0 {
		pageSize = 100
	}
	if maxPageSize < pageSize {
		maxPageSize = pageSize
	}
	return Facade{PageSize: pageSize, MaxPageSize: maxPageSize}
}

func (f Facade) Parse(r *http.Request, c Collection) (Params, error) {
	values := r.URL.Query()

	p := Params{Page: 1, PageSize: f.PageSize, Search: strings.TrimSpace(values.Get("search")), Filters: map[string]string{}}

	if raw := values.Get("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 {
			return p, utils.CodedError(fmt.Errorf("%w '%v'", ErrInvalidPage, raw), http.StatusNotFound)
		}
		p.Page = page
	}

	// a malformed page size falls back to the default rather than failing
	if raw := values.Get("page_size"); raw != "" {
		if size, err := strconv.Atoi(raw); err == nil && size > 0 {
			p.PageSize = min(size, f.MaxPageSize)
		}
	}

	if raw := values.Get("ordering"); raw != "" {
		for _, field := range strings.Split(raw, ",") {
			field = strings.TrimSpace(field)
			if field == "" {
				continue
			}
			if _, ok := c.Ordering[strings.TrimPrefix(field, "-")]; !ok {
				return p, utils.CodedError(&validation.FormatError{Field: "ordering", Value: field, Reason: "not an orderable field of " + c.Name}, http.StatusBadRequest)
			}
			p.Ordering = append(p.Ordering, field)
		}
	}

	for _, filter := range c.Filters {
		if values.Has(filter.Param) {
			p.Filters[filter.Param] = values.Get(filter.Param)
		}
	}

	return p, nil
}

func parseValue(filter Filter, raw string) (interface{}, error) {
	switch filter.Kind {
	case Bool:
		switch strings.ToLower(raw) {
		case "true", "1":
			return true, nil
		case "false", "0":
			return false, nil
		}
		return nil, &validation.FormatError{Field: filter.Param, Value: raw, Reason: "expected true or false"}
	case Int:
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, &validation.FormatError{Field: filter.Param, Value: raw, Reason: "expected an integer"}
		}
		return v, nil
	case Date:
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return nil, &validation.FormatError{Field: filter.Param, Value: raw, Reason: "expected a date in the format 2006-01-02"}
		}
		return datatypes.Date(t), nil
	default:
		return raw, nil
	}
}

func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}

// Filtered applies the exact match filters and the search term. Search is a
// case insensitive substring match OR-ed across the search columns.
func Filtered(db *gorm.DB, c Collection, p Params) (*gorm.DB, error) {
	q := c.Base(db)

	var errs []error
	for _, filter := range c.Filters {
		raw, ok := p.Filters[filter.Param]
		if !ok {
			continue
		}
		value, err := parseValue(filter, raw)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		q = q.Where(filter.Column+" = ?", value)
	}
	if err := validation.Join(errs...); err != nil {
		return nil, utils.CodedError(err, http.StatusBadRequest)
	}

	if p.Search != "" && len(c.Search) > 0 {
		pattern := "%" + escapeLike(strings.ToLower(p.Search)) + "%"
		clauses := make([]string, 0, len(c.Search))
		args := make([]interface{}, 0, len(c.Search))
		for _, column := range c.Search {
			clauses = append(clauses, fmt.Sprintf(`LOWER(%s) LIKE ? ESCAPE '\'`, column))
			args = append(args, pattern)
		}
		q = q.Where("("+strings.Join(clauses, " OR ")+")", args...)
	}

	return q.Session(&gorm.Session{}), nil
}

func orderClause(c Collection, ordering []string) string {
	if len(ordering) == 0 {
		ordering = c.Default
	}
	parts := make([]string, 0, len(ordering)+1)
	for _, field := range ordering {
		desc := strings.HasPrefix(field, "-")
		column := c.Ordering[strings.TrimPrefix(field, "-")]
		if desc {
			parts = append(parts, column+" DESC")
		} else {
			parts = append(parts, column+" ASC")
		}
	}
	// stable pages need a total order
	parts = append(parts, c.IdColumn+" ASC")
	return strings.Join(parts, ", ")
}

// List runs the listing query for c and loads one page of rows into dest.
func List[T any](db *gorm.DB, c Collection, p Params, dest *[]T) (Pagination, error) {
	q, err := Filtered(db, c, p)
	if err != nil {
		return Pagination{}, err
	}

	var total int64
	if result := q.Count(&total); result.Error != nil {
		slog.Error("sql error counting collection", "collection", c.Name, "error", result.Error)
		return Pagination{}, utils.CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
	}

	page := Pagination{Page: p.Page, PageSize: p.PageSize, TotalCount: total}
	page.TotalPages = max(1, int(math.Ceil(float64(total)/float64(p.PageSize))))
	if p.Page > page.TotalPages {
		return Pagination{}, utils.CodedError(fmt.Errorf("%w: page %d of %d", ErrInvalidPage, p.Page, page.TotalPages), http.StatusNotFound)
	}
	page.HasNext = p.Page < page.TotalPages
	page.HasPrevious = p.Page > 1

	rows := q.Select(c.Select)
	if c.Preload != nil {
		rows = c.Preload(rows)
	}
	result := rows.
		Order(orderClause(c, p.Ordering)).
		Limit(p.PageSize).
		Offset((p.Page - 1) * p.PageSize).
		Find(dest)
	if result.Error != nil {
		slog.Error("sql error listing collection", "collection", c.Name, "error", result.Error)
		return Pagination{}, utils.CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
	}

	return page, nil
}

func pageUrl(r *http.Request, page int) string {
	values := url.Values{}
	for k, v := range r.URL.Query() {
		values[k] = v
	}
	values.Set("page", strconv.Itoa(page))
	return utils.BaseUrl(r) + r.URL.Path + "?" + values.Encode()
}

func NewPage[T any](r *http.Request, page Pagination, data []T) Page[T] {
	links := Links{
		Self:  pageUrl(r, page.Page),
		First: pageUrl(r, 1),
		Last:  pageUrl(r, page.TotalPages),
	}
	if page.HasNext {
		next := pageUrl(r, page.Page+1)
		links.Next = &next
	}
	if page.HasPrevious {
		prev := pageUrl(r, page.Page-1)
		links.Previous = &prev
	}
	if data == nil {
		data = []T{}
	}
	return Page[T]{Meta: Meta{Pagination: page}, Links: links, Data: data}
}

// Package query describes the paged, sorted and filtered task list request.
package query

import (
	"encoding/json"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/twiced-technology-gmbh/taskdesk/internal/clierr"
	"github.com/twiced-technology-gmbh/taskdesk/internal/date"
	"github.com/twiced-technology-gmbh/taskdesk/internal/task"
)

// PageSizes are the page sizes the task grid offers.
var PageSizes = []int{20, 50, 100}

// DefaultPageSize is the page size of a fresh list.
const DefaultPageSize = 20

// Sort directions.
const (
	Asc  = "asc"
	Desc = "desc"
)

// SortFields are the task columns the backend can sort on.
var SortFields = []string{"title", "description", "dueDate", "assignedTo", "status", "priority", "createdAt"}

// Sort is a single-column sort descriptor. The zero value means
// "backend default order".
type Sort struct {
	Field string `json:"field,omitempty"`
	Dir   string `json:"sort,omitempty"`
}

// IsZero reports whether no sort is set.
func (s Sort) IsZero() bool {
	return s.Field == ""
}

// Encode serializes the descriptor the way the backend expects it:
// "{}" when unset, otherwise {"field":..,"sort":..}.
func (s Sort) Encode() string {
	if s.IsZero() {
		return "{}"
	}
	data, _ := json.Marshal(s) //nolint:errchkjson // two string fields cannot fail
	return string(data)
}

// Validate checks the field and direction.
func (s Sort) Validate() error {
	if s.IsZero() {
		return nil
	}
	if !slices.Contains(SortFields, s.Field) {
		return clierr.Newf(clierr.InvalidSort, "invalid sort field %q", s.Field).
			WithDetails(map[string]any{"field": s.Field, "allowed": SortFields})
	}
	if s.Dir != Asc && s.Dir != Desc {
		return clierr.Newf(clierr.InvalidSort, "invalid sort direction %q (asc or desc)", s.Dir).
			WithDetails(map[string]any{"direction": s.Dir})
	}
	return nil
}

// DecodeSort parses an encoded descriptor. Empty input and "{}" yield the
// zero Sort.
func DecodeSort(raw string) (Sort, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Sort{}, nil
	}
	var s Sort
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return Sort{}, clierr.Newf(clierr.InvalidSort, "invalid sort descriptor %q", raw)
	}
	if s.Field != "" && s.Dir == "" {
		s.Dir = Asc
	}
	return s, s.Validate()
}

// ParseSort parses the command-line form "field" or "field:desc".
func ParseSort(raw string) (Sort, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Sort{}, nil
	}
	field, dir, found := strings.Cut(raw, ":")
	if !found {
		dir = Asc
	}
	s := Sort{Field: field, Dir: strings.ToLower(dir)}
	return s, s.Validate()
}

// String renders the command-line form.
func (s Sort) String() string {
	if s.IsZero() {
		return ""
	}
	return s.Field + ":" + s.Dir
}

// Filters narrows the task list. Empty fields mean "all".
type Filters struct {
	Status     task.Status
	Priority   task.Priority
	AssignedTo string
	Due        date.Range
}

// Params is the complete list request state.
type Params struct {
	Page     int
	PageSize int
	Sort     Sort
	Search   string
	Filters  Filters
}

// New returns the params of a fresh task grid.
func New() Params {
	return Params{PageSize: DefaultPageSize}
}

// Validate checks every field against the list contract.
func (p Params) Validate() error {
	if p.Page < 0 {
		return clierr.Newf(clierr.InvalidInput, "page must be >= 0, got %d", p.Page)
	}
	if err := ValidatePageSize(p.PageSize); err != nil {
		return err
	}
	if err := p.Sort.Validate(); err != nil {
		return err
	}
	if p.Filters.Status != "" {
		if err := task.ValidateStatus(string(p.Filters.Status)); err != nil {
			return err
		}
	}
	if p.Filters.Priority != "" {
		if err := task.ValidatePriority(string(p.Filters.Priority)); err != nil {
			return err
		}
	}
	if p.Filters.AssignedTo != "" {
		if err := task.ValidateUserID(p.Filters.AssignedTo); err != nil {
			return err
		}
	}
	if err := p.Filters.Due.Validate(); err != nil {
		return clierr.New(clierr.InvalidDate, err.Error())
	}
	return nil
}

// ValidatePageSize checks n against PageSizes.
func ValidatePageSize(n int) error {
	if slices.Contains(PageSizes, n) {
		return nil
	}
	return clierr.Newf(clierr.InvalidPageSize, "invalid page size %d", n).
		WithDetails(map[string]any{"page_size": n, "allowed": PageSizes})
}

// Values encodes the params as query parameters. All nine parameters are
// always present so the request mirrors the state exactly; unset filters
// are sent as empty strings.
func (p Params) Values() url.Values {
	v := url.Values{}
	v.Set("page", strconv.Itoa(p.Page))
	v.Set("pageSize", strconv.Itoa(p.PageSize))
	v.Set("sort", p.Sort.Encode())
	v.Set("search", p.Search)
	v.Set("statusFilter", string(p.Filters.Status))
	v.Set("assignedToFilter", p.Filters.AssignedTo)
	v.Set("priorityFilter", string(p.Filters.Priority))
	v.Set("dueDateStart", date.OrEmpty(p.Filters.Due.Start))
	v.Set("dueDateEnd", date.OrEmpty(p.Filters.Due.End))
	return v
}

// FromValues is the inverse of Values. Missing page size falls back to
// DefaultPageSize.
func FromValues(v url.Values) (Params, error) {
	p := New()
	var err error
	if s := v.Get("page"); s != "" {
		if p.Page, err = strconv.Atoi(s); err != nil {
			return Params{}, clierr.Newf(clierr.InvalidInput, "invalid page %q", s)
		}
	}
	if s := v.Get("pageSize"); s != "" {
		if p.PageSize, err = strconv.Atoi(s); err != nil {
			return Params{}, clierr.Newf(clierr.InvalidPageSize, "invalid page size %q", s)
		}
	}
	if p.Sort, err = DecodeSort(v.Get("sort")); err != nil {
		return Params{}, err
	}
	p.Search = v.Get("search")
	p.Filters.Status = task.Status(v.Get("statusFilter"))
	p.Filters.Priority = task.Priority(v.Get("priorityFilter"))
	p.Filters.AssignedTo = v.Get("assignedToFilter")
	if p.Filters.Due.Start, err = date.ParseOptional(v.Get("dueDateStart")); err != nil {
		return Params{}, task.ValidateDate("dueDateStart", v.Get("dueDateStart"), err)
	}
	if p.Filters.Due.End, err = date.ParseOptional(v.Get("dueDateEnd")); err != nil {
		return Params{}, task.ValidateDate("dueDateEnd", v.Get("dueDateEnd"), err)
	}
	return p, p.Validate()
}

// Offset returns the index of the first row on the current page.
func (p Params) Offset() int {
	return p.Page * p.PageSize
}

// PageCount returns how many pages total rows span (at least 1).
func PageCount(total, pageSize int) int {
	if pageSize <= 0 || total <= 0 {
		return 1
	}
	return (total + pageSize - 1) / pageSize
}

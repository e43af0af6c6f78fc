package task

import (
	"strings"

	"github.com/twiced-technology-gmbh/taskdesk/internal/clierr"
	"github.com/twiced-technology-gmbh/taskdesk/internal/date"
)

// Draft is the editable form of a task. An empty ID means the draft
// will be created rather than updated.
type Draft struct {
	ID          string     `yaml:"-" json:"id,omitempty"`
	Title       string     `yaml:"title" json:"title"`
	Description string     `yaml:"-" json:"description"`
	DueDate     *date.Date `yaml:"due,omitempty" json:"dueDate,omitempty"`
	AssignedTo  string     `yaml:"assignee,omitempty" json:"assignedTo"`
	Status      Status     `yaml:"status,omitempty" json:"status"`
	Priority    Priority   `yaml:"priority,omitempty" json:"priority"`
}

// NewDraft returns an empty draft with the default status and priority.
func NewDraft() Draft {
	return Draft{Status: DefaultStatus, Priority: DefaultPriority}
}

// DraftFrom converts a fetched task into an editor draft. The assignee is
// reduced to its id and the due date to a calendar date.
func DraftFrom(t *Task) Draft {
	d := Draft{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		AssignedTo:  t.AssigneeID(),
		Status:      t.Status,
		Priority:    t.Priority,
	}
	if t.DueDate != nil {
		due := *t.DueDate
		d.DueDate = &due
	}
	if d.Status == "" {
		d.Status = DefaultStatus
	}
	if d.Priority == "" {
		d.Priority = DefaultPriority
	}
	return d
}

// IsNew reports whether saving the draft creates a task.
func (d Draft) IsNew() bool {
	return d.ID == ""
}

// Validate checks the draft before it is sent.
func (d Draft) Validate() error {
	if strings.TrimSpace(d.Title) == "" {
		return clierr.New(clierr.InvalidInput, "title is required")
	}
	if err := ValidateStatus(string(d.Status)); err != nil {
		return err
	}
	if err := ValidatePriority(string(d.Priority)); err != nil {
		return err
	}
	if d.AssignedTo != "" {
		if err := ValidateUserID(d.AssignedTo); err != nil {
			return err
		}
	}
	if !d.IsNew() {
		return ValidateID(d.ID)
	}
	return nil
}

// Body is the JSON body sent when creating a task.
type Body struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	DueDate     string   `json:"dueDate"`
	AssignedTo  string   `json:"assignedTo"`
	Status      Status   `json:"status"`
	Priority    Priority `json:"priority"`
}

// Body returns the create body for the draft.
func (d Draft) Body() Body {
	return Body{
		Title:       d.Title,
		Description: d.Description,
		DueDate:     date.OrEmpty(d.DueDate),
		AssignedTo:  d.AssignedTo,
		Status:      d.Status,
		Priority:    d.Priority,
	}
}

// Patch returns an update carrying every editable field of the draft.
func (d Draft) Patch() Patch {
	b := d.Body()
	return Patch{
		Title:       &b.Title,
		Description: &b.Description,
		DueDate:     &b.DueDate,
		AssignedTo:  &b.AssignedTo,
		Status:      &b.Status,
		Priority:    &b.Priority,
	}
}

// Patch is a partial task update. Nil fields are left untouched.
type Patch struct {
	Title       *string   `json:"title,omitempty"`
	Description *string   `json:"description,omitempty"`
	DueDate     *string   `json:"dueDate,omitempty"`
	AssignedTo  *string   `json:"assignedTo,omitempty"`
	Status      *Status   `json:"status,omitempty"`
	Priority    *Priority `json:"priority,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.DueDate == nil &&
		p.AssignedTo == nil && p.Status == nil && p.Priority == nil
}

// Validate checks the fields that are set.
func (p Patch) Validate() error {
	if p.IsEmpty() {
		return clierr.New(clierr.NoChanges, "no changes specified")
	}
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return clierr.New(clierr.InvalidInput, "title cannot be empty")
	}
	if p.Status != nil {
		if err := ValidateStatus(string(*p.Status)); err != nil {
			return err
		}
	}
	if p.Priority != nil {
		if err := ValidatePriority(string(*p.Priority)); err != nil {
			return err
		}
	}
	if p.AssignedTo != nil && *p.AssignedTo != "" {
		if err := ValidateUserID(*p.AssignedTo); err != nil {
			return err
		}
	}
	if p.DueDate != nil && *p.DueDate != "" {
		if _, err := date.Parse(*p.DueDate); err != nil {
			return FormatDueDate(*p.DueDate, err)
		}
	}
	return nil
}

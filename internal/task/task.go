// Package task holds the task domain model as exchanged with the backend.
package task

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/twiced-technology-gmbh/taskdesk/internal/date"
)

// Status is the workflow state of a task.
type Status string

// Task statuses.
const (
	StatusPending    Status = "Pending"
	StatusInProgress Status = "In Progress"
	StatusCompleted  Status = "Completed"
	StatusArchived   Status = "Archived"
)

// Statuses lists every status in display order.
var Statuses = []Status{StatusPending, StatusInProgress, StatusCompleted, StatusArchived}

// Priority is the urgency of a task.
type Priority string

// Task priorities.
const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
)

// Priorities lists every priority from lowest to highest.
var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh}

// Defaults for a freshly opened task editor.
const (
	DefaultStatus   = StatusPending
	DefaultPriority = PriorityMedium
)

// UserRef points at a user. The backend sends either a populated
// object or a bare id string.
type UserRef struct {
	ID   string `json:"_id"`
	Name string `json:"name,omitempty"`
}

// UnmarshalJSON implements json.Unmarshaler.
func (u *UserRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var id string
		if err := json.Unmarshal(data, &id); err != nil {
			return err
		}
		*u = UserRef{ID: id}
		return nil
	}
	type plain UserRef
	return json.Unmarshal(data, (*plain)(u))
}

// DisplayName returns the name, falling back to the id.
func (u UserRef) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.ID
}

// User is an assignable user from the lookup list.
type User struct {
	ID   string `json:"_id"`
	Name string `json:"name"`
}

// Comment is a single entry in a task's comment thread.
type Comment struct {
	ID        string    `json:"_id"`
	Author    UserRef   `json:"userId"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

// Task is a server-owned task record.
type Task struct {
	ID          string     `json:"_id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	DueDate     *date.Date `json:"dueDate,omitempty"`
	AssignedTo  *UserRef   `json:"assignedTo,omitempty"`
	Status      Status     `json:"status"`
	Priority    Priority   `json:"priority"`
	Comments    []Comment  `json:"comments,omitempty"`
	CreatedAt   time.Time  `json:"createdAt,omitzero"`
	UpdatedAt   time.Time  `json:"updatedAt,omitzero"`
}

// UnmarshalJSON implements json.Unmarshaler. Empty due dates and empty
// assignee references decode as nil, and comments are put in creation order.
func (t *Task) UnmarshalJSON(data []byte) error {
	type plain Task
	aux := struct {
		*plain
		DueDate *string `json:"dueDate"`
	}{plain: (*plain)(t)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	t.DueDate = nil
	if aux.DueDate != nil {
		d, err := date.ParseOptional(*aux.DueDate)
		if err != nil {
			return fmt.Errorf("task %s: %w", t.ID, err)
		}
		t.DueDate = d
	}
	if t.AssignedTo != nil && t.AssignedTo.ID == "" {
		t.AssignedTo = nil
	}
	SortComments(t.Comments)
	return nil
}

// AssigneeName returns the assignee's display name or "Unassigned".
func (t *Task) AssigneeName() string {
	if t.AssignedTo == nil {
		return "Unassigned"
	}
	return t.AssignedTo.DisplayName()
}

// AssigneeID returns the assignee's id, or "" when unassigned.
func (t *Task) AssigneeID() string {
	if t.AssignedTo == nil {
		return ""
	}
	return t.AssignedTo.ID
}

// Comment returns the comment with the given id, or nil.
func (t *Task) Comment(id string) *Comment {
	for i := range t.Comments {
		if t.Comments[i].ID == id {
			return &t.Comments[i]
		}
	}
	return nil
}

// SortComments orders comments by creation time, oldest first.
func SortComments(comments []Comment) {
	sort.SliceStable(comments, func(i, j int) bool {
		return comments[i].CreatedAt.Before(comments[j].CreatedAt)
	})
}

// Identity is the user on whose behalf comments are written.
type Identity struct {
	UserID string `yaml:"id" json:"id"`
	Name   string `yaml:"name" json:"name"`
}

// Known reports whether the identity carries a user id.
func (i Identity) Known() bool {
	return i.UserID != ""
}

// Authored reports whether c was written by this identity.
func (i Identity) Authored(c Comment) bool {
	return i.Known() && c.Author.ID == i.UserID
}

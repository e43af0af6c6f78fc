package api

import (
	"context"
	"strings"

	"github.com/twiced-technology-gmbh/taskdesk/internal/clierr"
	"github.com/twiced-technology-gmbh/taskdesk/internal/query"
	"github.com/twiced-technology-gmbh/taskdesk/internal/task"
)

// TaskPage is one page of the task list plus the filtered total.
type TaskPage struct {
	Tasks []task.Task `json:"tasks"`
	Total int         `json:"total"`
}

// ListTasks fetches one page. All nine list parameters are sent.
func (c *Client) ListTasks(ctx context.Context, p query.Params) (*TaskPage, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	var page TaskPage
	if err := c.do(ctx, call{endpoint: GetTasks, params: p.Values()}, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// GetTask finds a task by id. The backend has no single-task route, so the
// first page of the unfiltered list is searched, followed by further pages
// until the total is exhausted.
func (c *Client) GetTask(ctx context.Context, id string) (*task.Task, error) {
	if err := task.ValidateID(id); err != nil {
		return nil, err
	}
	p := query.New()
	p.PageSize = query.PageSizes[len(query.PageSizes)-1]
	for {
		page, err := c.ListTasks(ctx, p)
		if err != nil {
			return nil, err
		}
		for i := range page.Tasks {
			if page.Tasks[i].ID == id {
				return &page.Tasks[i], nil
			}
		}
		if len(page.Tasks) == 0 || (p.Page+1)*p.PageSize >= page.Total {
			return nil, task.TaskNotFound(id)
		}
		p.Page++
	}
}

// CreateTask creates a task from body.
func (c *Client) CreateTask(ctx context.Context, body task.Body) (*task.Task, error) {
	if strings.TrimSpace(body.Title) == "" {
		return nil, clierr.New(clierr.InvalidInput, "title is required")
	}
	var created task.Task
	if err := c.do(ctx, call{endpoint: CreateTask, body: body}, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateTask applies patch to the task with the given id.
func (c *Client) UpdateTask(ctx context.Context, id string, patch task.Patch) (*task.Task, error) {
	if err := task.ValidateID(id); err != nil {
		return nil, err
	}
	if err := patch.Validate(); err != nil {
		return nil, err
	}
	var updated task.Task
	if err := c.do(ctx, call{endpoint: UpdateTask, args: []string{id}, body: patch}, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteTask deletes the task with the given id.
func (c *Client) DeleteTask(ctx context.Context, id string) error {
	if err := task.ValidateID(id); err != nil {
		return err
	}
	return c.do(ctx, call{endpoint: DeleteTask, args: []string{id}}, nil)
}

// SaveDraft creates or updates depending on whether the draft has an id.
func (c *Client) SaveDraft(ctx context.Context, d task.Draft) (*task.Task, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	if d.IsNew() {
		return c.CreateTask(ctx, d.Body())
	}
	return c.UpdateTask(ctx, d.ID, d.Patch())
}

// UsersForAssignment fetches the assignable users.
func (c *Client) UsersForAssignment(ctx context.Context) ([]task.User, error) {
	var users []task.User
	if err := c.do(ctx, call{endpoint: GetUsersForAssignment}, &users); err != nil {
		return nil, err
	}
	return users, nil
}

type commentBody struct {
	UserID string `json:"userId"`
	Text   string `json:"text"`
}

// AddComment appends a comment by userID to the task.
func (c *Client) AddComment(ctx context.Context, taskID, userID, text string) error {
	if err := task.ValidateID(taskID); err != nil {
		return err
	}
	if strings.TrimSpace(text) == "" {
		return clierr.New(clierr.EmptyComment, "comment text is empty")
	}
	if userID == "" {
		return clierr.New(clierr.NoIdentity, "no identity configured; set identity.id in config")
	}
	return c.do(ctx, call{
		endpoint: AddCommentToTask,
		args:     []string{taskID},
		body:     commentBody{UserID: userID, Text: text},
	}, nil)
}

// DeleteComment removes one comment from the task.
func (c *Client) DeleteComment(ctx context.Context, taskID, commentID string) error {
	if err := task.ValidateID(taskID); err != nil {
		return err
	}
	if commentID == "" {
		return clierr.New(clierr.InvalidInput, "comment ID is required")
	}
	return c.do(ctx, call{endpoint: DeleteCommentFromTask, args: []string{taskID, commentID}}, nil)
}

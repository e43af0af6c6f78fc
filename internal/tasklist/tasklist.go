// Package tasklist is the view model behind the task grid. It owns the list
// parameters, the live task and user subscriptions, the editor dialog and
// the comment dialog. It is safe for concurrent use; front ends read it
// through Snapshot and are told about changes through the onChange callback.
package tasklist

import (
	"context"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/twiced-technology-gmbh/taskdesk/internal/api"
	"github.com/twiced-technology-gmbh/taskdesk/internal/clierr"
	"github.com/twiced-technology-gmbh/taskdesk/internal/datasource"
	"github.com/twiced-technology-gmbh/taskdesk/internal/date"
	"github.com/twiced-technology-gmbh/taskdesk/internal/query"
	"github.com/twiced-technology-gmbh/taskdesk/internal/task"
)

// Backend is the part of the API client the controller needs.
type Backend interface {
	WatchTasks(p query.Params, notify func(gen uint64, page *api.TaskPage, err error)) *datasource.Subscription
	WatchUsers(notify func(users []task.User, err error)) *datasource.Subscription
	TasksFetch(p query.Params) datasource.Fetch
	SaveDraft(ctx context.Context, d task.Draft) (*task.Task, error)
	DeleteTask(ctx context.Context, id string) error
	AddComment(ctx context.Context, taskID, userID, text string) error
	DeleteComment(ctx context.Context, taskID, commentID string) error
}

// Editor is the open add/edit dialog.
type Editor struct {
	Draft  task.Draft
	Saving bool
	Err    error
}

// CommentDialog is the open comment thread.
type CommentDialog struct {
	TaskID string
	// Task is the latest fetched copy, or nil once it left the current page.
	Task    *task.Task
	Pending bool
	Err     error
}

// State is a point-in-time copy of the controller.
type State struct {
	Params   query.Params
	Tasks    []task.Task
	Total    int
	Loading  bool
	Err      error
	Users    []task.User
	UsersErr error
	Identity task.Identity
	Editor   *Editor
	Comments *CommentDialog
	// MutationErr is the last failed delete.
	MutationErr error
}

// Pages returns the number of pages the total spans.
func (s State) Pages() int {
	return query.PageCount(s.Total, s.Params.PageSize)
}

// Controller is the task list view model.
type Controller struct {
	backend  Backend
	log      zerolog.Logger
	onChange func()

	mu          sync.Mutex
	params      query.Params
	tasks       []task.Task
	total       int
	loading     bool
	listErr     error
	users       []task.User
	usersErr    error
	identity    task.Identity
	editor      *Editor
	comments    *CommentDialog
	mutationErr error

	tasksSub *datasource.Subscription
	usersSub *datasource.Subscription
}

// New creates a controller with initial params. Call Start to begin loading.
// onChange may be nil.
func New(backend Backend, params query.Params, identity task.Identity, log zerolog.Logger, onChange func()) *Controller {
	if onChange == nil {
		onChange = func() {}
	}
	return &Controller{
		backend:  backend,
		log:      log,
		onChange: onChange,
		params:   params,
		identity: identity,
	}
}

// Start validates the initial params and opens the task and user
// subscriptions.
func (c *Controller) Start() error {
	if err := c.params.Validate(); err != nil {
		return err
	}
	c.mu.Lock()
	c.loading = true
	p := c.params
	c.mu.Unlock()

	tasks := c.backend.WatchTasks(p, c.onTasks)
	users := c.backend.WatchUsers(c.onUsers)

	c.mu.Lock()
	c.tasksSub = tasks
	c.usersSub = users
	c.mu.Unlock()
	return nil
}

// Close stops both subscriptions.
func (c *Controller) Close() {
	c.mu.Lock()
	tasks, users := c.tasksSub, c.usersSub
	c.mu.Unlock()
	if tasks != nil {
		tasks.Close()
	}
	if users != nil {
		users.Close()
	}
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := State{
		Params:      c.params,
		Tasks:       append([]task.Task(nil), c.tasks...),
		Total:       c.total,
		Loading:     c.loading,
		Err:         c.listErr,
		Users:       append([]task.User(nil), c.users...),
		UsersErr:    c.usersErr,
		Identity:    c.identity,
		MutationErr: c.mutationErr,
	}
	if c.editor != nil {
		e := *c.editor
		s.Editor = &e
	}
	if c.comments != nil {
		d := *c.comments
		d.Task = c.findLocked(d.TaskID)
		s.Comments = &d
	}
	return s
}

func (c *Controller) onTasks(gen uint64, page *api.TaskPage, err error) {
	if api.IsCanceled(err) {
		return
	}
	c.mu.Lock()
	if c.tasksSub != nil && gen != c.tasksSub.Generation() {
		c.mu.Unlock()
		return
	}
	c.loading = false
	c.listErr = err
	if err != nil {
		c.log.Error().Err(err).Msg("loading tasks")
	} else if page != nil {
		c.tasks = page.Tasks
		c.total = page.Total
	}
	c.mu.Unlock()
	c.onChange()
}

func (c *Controller) onUsers(users []task.User, err error) {
	if api.IsCanceled(err) {
		return
	}
	c.mu.Lock()
	c.usersErr = err
	if err != nil {
		c.log.Error().Err(err).Msg("loading users")
	} else {
		c.users = users
	}
	c.mu.Unlock()
	c.onChange()
}

// Refresh re-runs the current list query.
func (c *Controller) Refresh() {
	c.mu.Lock()
	sub := c.tasksSub
	c.loading = sub != nil
	c.mu.Unlock()
	if sub != nil {
		sub.Refresh()
	}
	c.onChange()
}

// update applies mod to a copy of the params, validates, and resets the
// subscription. Unless keepPage, the page goes back to 0.
func (c *Controller) update(mod func(*query.Params), keepPage bool) error {
	c.mu.Lock()
	p := c.params
	mod(&p)
	if !keepPage {
		p.Page = 0
	}
	if err := p.Validate(); err != nil {
		c.mu.Unlock()
		return err
	}
	c.params = p
	// Reset under the lock: the subscription sees params in update order.
	if c.tasksSub != nil {
		c.loading = true
		c.tasksSub.Reset(c.backend.TasksFetch(p))
	}
	c.mu.Unlock()

	c.log.Debug().Int("page", p.Page).Int("page_size", p.PageSize).Str("sort", p.Sort.String()).
		Str("search", p.Search).Msg("list params changed")
	c.onChange()
	return nil
}

// SetPage moves to page n (0-based). Other params are kept.
func (c *Controller) SetPage(n int) error {
	return c.update(func(p *query.Params) { p.Page = n }, true)
}

// NextPage advances unless on the last page.
func (c *Controller) NextPage() error {
	s := c.Snapshot()
	if s.Params.Page+1 >= s.Pages() {
		return nil
	}
	return c.SetPage(s.Params.Page + 1)
}

// PrevPage goes back unless on the first page.
func (c *Controller) PrevPage() error {
	s := c.Snapshot()
	if s.Params.Page == 0 {
		return nil
	}
	return c.SetPage(s.Params.Page - 1)
}

// SetPageSize changes the page size and returns to the first page.
func (c *Controller) SetPageSize(n int) error {
	return c.update(func(p *query.Params) { p.PageSize = n }, false)
}

// SetSort changes the sort descriptor.
func (c *Controller) SetSort(s query.Sort) error {
	return c.update(func(p *query.Params) { p.Sort = s }, false)
}

// SetSearch changes the free-text search.
func (c *Controller) SetSearch(q string) error {
	return c.update(func(p *query.Params) { p.Search = q }, false)
}

// SetStatusFilter filters by status; "" clears it.
func (c *Controller) SetStatusFilter(s task.Status) error {
	return c.update(func(p *query.Params) { p.Filters.Status = s }, false)
}

// SetPriorityFilter filters by priority; "" clears it.
func (c *Controller) SetPriorityFilter(pr task.Priority) error {
	return c.update(func(p *query.Params) { p.Filters.Priority = pr }, false)
}

// SetAssigneeFilter filters by assignee id; "" clears it.
func (c *Controller) SetAssigneeFilter(userID string) error {
	return c.update(func(p *query.Params) { p.Filters.AssignedTo = userID }, false)
}

// SetDueRange filters by due date; nil bounds are open.
func (c *Controller) SetDueRange(start, end *date.Date) error {
	return c.update(func(p *query.Params) { p.Filters.Due = date.Range{Start: start, End: end} }, false)
}

// ClearFilters removes every filter and the search.
func (c *Controller) ClearFilters() error {
	return c.update(func(p *query.Params) {
		p.Filters = query.Filters{}
		p.Search = ""
	}, false)
}

// OpenAdd opens the editor with an empty draft.
func (c *Controller) OpenAdd() {
	c.mu.Lock()
	c.editor = &Editor{Draft: task.NewDraft()}
	c.mu.Unlock()
	c.onChange()
}

// OpenEdit opens the editor on t.
func (c *Controller) OpenEdit(t task.Task) {
	c.mu.Lock()
	c.editor = &Editor{Draft: task.DraftFrom(&t)}
	c.mu.Unlock()
	c.onChange()
}

// EditDraft changes the open draft in place. It does nothing when the
// editor is closed.
func (c *Controller) EditDraft(fn func(*task.Draft)) {
	c.mu.Lock()
	if c.editor == nil {
		c.mu.Unlock()
		return
	}
	fn(&c.editor.Draft)
	c.editor.Err = nil
	c.mu.Unlock()
	c.onChange()
}

// CloseEditor discards the draft.
func (c *Controller) CloseEditor() {
	c.mu.Lock()
	c.editor = nil
	c.mu.Unlock()
	c.onChange()
}

// Save creates or updates the draft. On success the editor closes; on
// failure it stays open with the error recorded.
func (c *Controller) Save(ctx context.Context) error {
	c.mu.Lock()
	if c.editor == nil {
		c.mu.Unlock()
		return clierr.New(clierr.InvalidInput, "editor is not open")
	}
	if c.editor.Saving {
		c.mu.Unlock()
		return nil
	}
	draft := c.editor.Draft
	c.editor.Saving = true
	c.editor.Err = nil
	c.mu.Unlock()
	c.onChange()

	saved, err := c.backend.SaveDraft(ctx, draft)

	c.mu.Lock()
	if err != nil {
		if c.editor != nil {
			c.editor.Saving = false
			c.editor.Err = err
		}
		c.mu.Unlock()
		c.log.Error().Err(err).Str("id", draft.ID).Msg("saving task")
		c.onChange()
		return err
	}
	c.editor = nil
	c.mu.Unlock()

	action := "updated"
	if draft.IsNew() {
		action = "created"
	}
	c.log.Info().Str("id", saved.ID).Str("title", draft.Title).Msg("task " + action)
	c.onChange()
	return nil
}

// Delete removes the task with id. Asking for confirmation is the caller's job.
func (c *Controller) Delete(ctx context.Context, id string) error {
	err := c.backend.DeleteTask(ctx, id)
	c.mu.Lock()
	c.mutationErr = err
	c.mu.Unlock()
	if err != nil {
		c.log.Error().Err(err).Str("id", id).Msg("deleting task")
	} else {
		c.log.Info().Str("id", id).Msg("task deleted")
	}
	c.onChange()
	return err
}

// OpenComments opens the comment dialog for the task with taskID.
func (c *Controller) OpenComments(taskID string) {
	c.mu.Lock()
	c.comments = &CommentDialog{TaskID: taskID}
	c.mu.Unlock()
	c.onChange()
}

// CloseComments closes the comment dialog.
func (c *Controller) CloseComments() {
	c.mu.Lock()
	c.comments = nil
	c.mu.Unlock()
	c.onChange()
}

// CanDeleteComment reports whether the current identity wrote cm.
func (c *Controller) CanDeleteComment(cm task.Comment) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.identity.Authored(cm)
}

// SetIdentity replaces the user comments are written as.
func (c *Controller) SetIdentity(id task.Identity) {
	c.mu.Lock()
	c.identity = id
	c.mu.Unlock()
	c.onChange()
}

// AddComment posts text to the open comment dialog's task.
func (c *Controller) AddComment(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return clierr.New(clierr.EmptyComment, "comment text is empty")
	}
	c.mu.Lock()
	if c.comments == nil {
		c.mu.Unlock()
		return clierr.New(clierr.InvalidInput, "comment dialog is not open")
	}
	if !c.identity.Known() {
		c.mu.Unlock()
		return clierr.New(clierr.NoIdentity, "no identity configured; set identity.id in config")
	}
	taskID, userID := c.comments.TaskID, c.identity.UserID
	c.mu.Unlock()

	return c.commentMutation(func() error {
		return c.backend.AddComment(ctx, taskID, userID, text)
	})
}

// DeleteComment removes one of the identity's own comments from the open
// dialog's task.
func (c *Controller) DeleteComment(ctx context.Context, commentID string) error {
	c.mu.Lock()
	if c.comments == nil {
		c.mu.Unlock()
		return clierr.New(clierr.InvalidInput, "comment dialog is not open")
	}
	taskID := c.comments.TaskID
	t := c.findLocked(taskID)
	var cm *task.Comment
	if t != nil {
		cm = t.Comment(commentID)
	}
	if cm == nil {
		c.mu.Unlock()
		return clierr.Newf(clierr.InvalidInput, "comment %s not found on task %s", commentID, taskID)
	}
	if !c.identity.Authored(*cm) {
		c.mu.Unlock()
		return clierr.New(clierr.NotCommentAuthor, "only the author can delete a comment").
			WithDetails(map[string]any{"comment_id": commentID, "author": cm.Author.ID})
	}
	c.mu.Unlock()

	return c.commentMutation(func() error {
		return c.backend.DeleteComment(ctx, taskID, commentID)
	})
}

func (c *Controller) commentMutation(fn func() error) error {
	c.setCommentState(true, nil)
	err := fn()
	if err != nil {
		c.log.Error().Err(err).Msg("comment mutation")
	}
	c.setCommentState(false, err)
	return err
}

func (c *Controller) setCommentState(pending bool, err error) {
	c.mu.Lock()
	if c.comments != nil {
		c.comments.Pending = pending
		c.comments.Err = err
	}
	c.mu.Unlock()
	c.onChange()
}

// findLocked returns a copy of the row with id, or nil. c.mu must be held.
func (c *Controller) findLocked(id string) *task.Task {
	for i := range c.tasks {
		if c.tasks[i].ID == id {
			t := c.tasks[i]
			t.Comments = append([]task.Comment(nil), t.Comments...)
			return &t
		}
	}
	return nil
}

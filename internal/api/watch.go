package api

import (
	"context"

	"github.com/twiced-technology-gmbh/taskdesk/internal/datasource"
	"github.com/twiced-technology-gmbh/taskdesk/internal/query"
	"github.com/twiced-technology-gmbh/taskdesk/internal/task"
)

// TasksFetch returns a fetch for one task page with fixed params.
func (c *Client) TasksFetch(p query.Params) datasource.Fetch {
	return func(ctx context.Context) (any, error) {
		return c.ListTasks(ctx, p)
	}
}

// UsersFetch returns a fetch for the assignable users.
func (c *Client) UsersFetch() datasource.Fetch {
	return func(ctx context.Context) (any, error) {
		return c.UsersForAssignment(ctx)
	}
}

// WatchTasks subscribes to the task list. notify receives the page and
// the generation it belongs to. It panics if the client has no source.
func (c *Client) WatchTasks(p query.Params, notify func(gen uint64, page *TaskPage, err error)) *datasource.Subscription {
	return c.mustSource().Subscribe(GetTasks.Provides, c.TasksFetch(p), func(r datasource.Result) {
		page, _ := r.Value.(*TaskPage)
		notify(r.Generation, page, r.Err)
	})
}

// WatchUsers subscribes to the assignable users.
func (c *Client) WatchUsers(notify func(users []task.User, err error)) *datasource.Subscription {
	return c.mustSource().Subscribe(GetUsersForAssignment.Provides, c.UsersFetch(), func(r datasource.Result) {
		users, _ := r.Value.([]task.User)
		notify(users, r.Err)
	})
}

func (c *Client) mustSource() *datasource.Source {
	if c.source == nil {
		panic("api: client has no data source")
	}
	return c.source
}

package tasklist

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/twiced-technology-gmbh/taskdesk/internal/api"
	"github.com/twiced-technology-gmbh/taskdesk/internal/apitest"
	"github.com/twiced-technology-gmbh/taskdesk/internal/clierr"
	"github.com/twiced-technology-gmbh/taskdesk/internal/datasource"
	"github.com/twiced-technology-gmbh/taskdesk/internal/date"
	"github.com/twiced-technology-gmbh/taskdesk/internal/query"
	"github.com/twiced-technology-gmbh/taskdesk/internal/task"
)

const waitTimeout = 3 * time.Second

type fixture struct {
	srv     *apitest.Server
	ctrl    *Controller
	changed chan struct{}
	me      task.User
}

func setup(t *testing.T) *fixture {
	t.Helper()
	srv := apitest.New(t)
	me := srv.AddUser("Suman Sharma")

	src := datasource.New(zerolog.Nop())
	t.Cleanup(src.Close)
	client, err := api.New(api.Options{BaseURL: srv.URL(), Source: src, Logger: zerolog.Nop()})
	if err != nil {
		t.Fatal(err)
	}

	f := &fixture{srv: srv, me: me, changed: make(chan struct{}, 1)}
	identity := task.Identity{UserID: me.ID, Name: me.Name}
	f.ctrl = New(client, query.New(), identity, zerolog.Nop(), func() {
		select {
		case f.changed <- struct{}{}:
		default:
		}
	})
	t.Cleanup(f.ctrl.Close)
	return f
}

func (f *fixture) start(t *testing.T) {
	t.Helper()
	if err := f.ctrl.Start(); err != nil {
		t.Fatal(err)
	}
	f.waitFor(t, "initial load", func(s State) bool {
		return !s.Loading && (len(s.Users) > 0 || s.UsersErr != nil)
	})
}

// waitFor blocks until cond holds for a snapshot.
func (f *fixture) waitFor(t *testing.T, what string, cond func(State) bool) State {
	t.Helper()
	deadline := time.After(waitTimeout)
	for {
		s := f.ctrl.Snapshot()
		if cond(s) {
			return s
		}
		select {
		case <-f.changed:
		case <-time.After(10 * time.Millisecond):
		case <-deadline:
			t.Fatalf("timed out waiting for %s; state = %+v", what, s)
		}
	}
}

func (f *fixture) seed(t *testing.T, title string, status task.Status) task.Task {
	t.Helper()
	return f.srv.Seed(task.Task{Title: title, Status: status, Priority: task.PriorityMedium})
}

func titles(tasks []task.Task) []string {
	out := make([]string, len(tasks))
	for i, tk := range tasks {
		out[i] = tk.Title
	}
	return out
}

func TestRequestMirrorsState(t *testing.T) {
	f := setup(t)
	f.start(t)

	want := f.ctrl.Snapshot().Params.Values()
	got := f.srv.LastQuery()
	if len(got) != 9 {
		t.Fatalf("sent %d params: %v", len(got), got)
	}
	for k := range want {
		if got.Get(k) != want.Get(k) {
			t.Errorf("%s = %q, want %q", k, got.Get(k), want.Get(k))
		}
	}
}

func TestStatusFilterQuery(t *testing.T) {
	f := setup(t)
	f.seed(t, "open", task.StatusPending)
	f.seed(t, "done", task.StatusCompleted)
	f.start(t)

	if err := f.ctrl.SetStatusFilter(task.StatusCompleted); err != nil {
		t.Fatal(err)
	}
	s := f.waitFor(t, "filtered rows", func(s State) bool { return !s.Loading && s.Total == 1 })
	if got := titles(s.Tasks); len(got) != 1 || got[0] != "done" {
		t.Errorf("rows = %v", got)
	}
	if q := f.srv.LastQuery(); q.Get("statusFilter") != "Completed" {
		t.Errorf("statusFilter = %q", q.Get("statusFilter"))
	}

	if err := f.ctrl.SetStatusFilter("Done"); !clierr.Is(err, clierr.InvalidStatus) {
		t.Errorf("invalid status = %v", err)
	}
	if f.ctrl.Snapshot().Params.Filters.Status != task.StatusCompleted {
		t.Error("rejected filter changed state")
	}
}

func TestFilterChangeResetsPage(t *testing.T) {
	f := setup(t)
	for i := 0; i < 45; i++ {
		f.seed(t, "t", task.StatusPending)
	}
	f.start(t)

	if err := f.ctrl.SetPage(2); err != nil {
		t.Fatal(err)
	}
	s := f.waitFor(t, "page 2", func(s State) bool { return !s.Loading })
	if s.Params.Page != 2 || len(s.Tasks) != 5 || s.Pages() != 3 {
		t.Fatalf("page 2 state: page=%d rows=%d pages=%d", s.Params.Page, len(s.Tasks), s.Pages())
	}

	if err := f.ctrl.SetPriorityFilter(task.PriorityMedium); err != nil {
		t.Fatal(err)
	}
	s = f.waitFor(t, "reset", func(s State) bool { return !s.Loading })
	if s.Params.Page != 0 || f.srv.LastQuery().Get("page") != "0" {
		t.Errorf("page after filter = %d", s.Params.Page)
	}

	if err := f.ctrl.NextPage(); err != nil {
		t.Fatal(err)
	}
	if err := f.ctrl.SetPageSize(50); err != nil {
		t.Fatal(err)
	}
	s = f.waitFor(t, "page size", func(s State) bool { return !s.Loading })
	if s.Params.Page != 0 || len(s.Tasks) != 45 {
		t.Errorf("after page size: page=%d rows=%d", s.Params.Page, len(s.Tasks))
	}
	if err := f.ctrl.SetPageSize(30); !clierr.Is(err, clierr.InvalidPageSize) {
		t.Errorf("page size 30 = %v", err)
	}
}

func TestCreateRefetchesOnce(t *testing.T) {
	f := setup(t)
	f.start(t)
	before := len(f.srv.Queries())

	f.ctrl.OpenAdd()
	s := f.ctrl.Snapshot()
	if s.Editor == nil || s.Editor.Draft.Status != task.StatusPending || s.Editor.Draft.Priority != task.PriorityMedium {
		t.Fatalf("editor = %+v", s.Editor)
	}
	f.ctrl.EditDraft(func(d *task.Draft) {
		d.Title = "new task"
		d.AssignedTo = f.me.ID
	})

	if err := f.ctrl.Save(context.Background()); err != nil {
		t.Fatal(err)
	}
	s = f.waitFor(t, "new row", func(s State) bool { return s.Total == 1 })
	if s.Editor != nil {
		t.Error("editor still open after save")
	}
	if s.Tasks[0].AssigneeName() != "Suman Sharma" {
		t.Errorf("assignee = %s", s.Tasks[0].AssigneeName())
	}
	time.Sleep(50 * time.Millisecond)
	if n := len(f.srv.Queries()) - before; n != 1 {
		t.Errorf("list requests after create = %d, want 1", n)
	}
}

func TestEditConvertsAssignee(t *testing.T) {
	f := setup(t)
	due := date.New(2024, time.June, 30)
	seeded := f.srv.Seed(task.Task{
		Title: "t", Status: task.StatusInProgress, Priority: task.PriorityHigh,
		DueDate: &due, AssignedTo: &task.UserRef{ID: f.me.ID},
	})
	f.start(t)

	row := f.ctrl.Snapshot().Tasks[0]
	f.ctrl.OpenEdit(row)
	d := f.ctrl.Snapshot().Editor.Draft
	if d.ID != seeded.ID || d.AssignedTo != f.me.ID || date.OrEmpty(d.DueDate) != "2024-06-30" {
		t.Fatalf("draft = %+v", d)
	}

	f.ctrl.EditDraft(func(d *task.Draft) { d.Status = task.StatusCompleted })
	if err := f.ctrl.Save(context.Background()); err != nil {
		t.Fatal(err)
	}
	s := f.waitFor(t, "updated row", func(s State) bool {
		return len(s.Tasks) == 1 && s.Tasks[0].Status == task.StatusCompleted
	})
	if s.Tasks[0].AssigneeID() != f.me.ID {
		t.Errorf("assignee lost: %+v", s.Tasks[0].AssignedTo)
	}
}

func TestSaveFailureKeepsEditorOpen(t *testing.T) {
	f := setup(t)
	f.start(t)
	f.srv.Fail("createTask", http.StatusInternalServerError)

	f.ctrl.OpenAdd()
	f.ctrl.EditDraft(func(d *task.Draft) { d.Title = "doomed" })
	err := f.ctrl.Save(context.Background())
	if !clierr.Is(err, clierr.RequestFailed) {
		t.Fatalf("Save = %v", err)
	}
	s := f.ctrl.Snapshot()
	if s.Editor == nil || s.Editor.Err == nil || s.Editor.Saving || s.Editor.Draft.Title != "doomed" {
		t.Errorf("editor after failure = %+v", s.Editor)
	}

	f.ctrl.CloseEditor()
	if f.ctrl.Snapshot().Editor != nil {
		t.Error("editor not closed")
	}
}

func TestSaveRejectsUntitledDraft(t *testing.T) {
	f := setup(t)
	f.start(t)
	f.ctrl.OpenAdd()
	if err := f.ctrl.Save(context.Background()); !clierr.Is(err, clierr.InvalidInput) {
		t.Errorf("Save = %v", err)
	}
	if f.srv.Len() != 0 {
		t.Error("untitled draft reached the backend")
	}
}

func TestDeleteRemovesRow(t *testing.T) {
	f := setup(t)
	keep := f.seed(t, "keep", task.StatusPending)
	drop := f.seed(t, "drop", task.StatusPending)
	f.start(t)

	if err := f.ctrl.Delete(context.Background(), drop.ID); err != nil {
		t.Fatal(err)
	}
	s := f.waitFor(t, "row removed", func(s State) bool { return s.Total == 1 })
	if s.Tasks[0].ID != keep.ID {
		t.Errorf("remaining = %v", titles(s.Tasks))
	}

	if err := f.ctrl.Delete(context.Background(), drop.ID); !clierr.Is(err, clierr.TaskNotFound) {
		t.Errorf("second delete = %v", err)
	}
	if f.ctrl.Snapshot().MutationErr == nil {
		t.Error("delete failure not recorded")
	}
}

func TestCommentLifecycle(t *testing.T) {
	f := setup(t)
	seeded := f.seed(t, "discuss", task.StatusPending)
	f.start(t)

	f.ctrl.OpenComments(seeded.ID)
	if err := f.ctrl.AddComment(context.Background(), "   "); !clierr.Is(err, clierr.EmptyComment) {
		t.Errorf("blank = %v", err)
	}
	if err := f.ctrl.AddComment(context.Background(), "first!"); err != nil {
		t.Fatal(err)
	}
	s := f.waitFor(t, "comment added", func(s State) bool {
		return s.Comments != nil && s.Comments.Task != nil && len(s.Comments.Task.Comments) == 1
	})
	cm := s.Comments.Task.Comments[0]
	if cm.Text != "first!" || cm.Author.ID != f.me.ID || !f.ctrl.CanDeleteComment(cm) {
		t.Fatalf("comment = %+v", cm)
	}

	if err := f.ctrl.DeleteComment(context.Background(), cm.ID); err != nil {
		t.Fatal(err)
	}
	f.waitFor(t, "comment removed", func(s State) bool {
		return s.Comments != nil && s.Comments.Task != nil && len(s.Comments.Task.Comments) == 0
	})

	f.ctrl.CloseComments()
	if f.ctrl.Snapshot().Comments != nil {
		t.Error("dialog still open")
	}
}

func TestDeleteForeignCommentRejected(t *testing.T) {
	f := setup(t)
	other := f.srv.AddUser("Someone Else")
	seeded := f.srv.Seed(task.Task{
		Title: "t", Status: task.StatusPending, Priority: task.PriorityLow,
		Comments: []task.Comment{{
			ID:        "65f1c0a2b3c4d5e6f7a8b9c1",
			Author:    task.UserRef{ID: other.ID, Name: other.Name},
			Text:      "not yours",
			CreatedAt: time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC),
		}},
	})
	f.start(t)
	f.ctrl.OpenComments(seeded.ID)

	cm := f.ctrl.Snapshot().Comments.Task.Comments[0]
	if f.ctrl.CanDeleteComment(cm) {
		t.Error("foreign comment reported deletable")
	}
	requests := f.srv.Requests()
	if err := f.ctrl.DeleteComment(context.Background(), cm.ID); !clierr.Is(err, clierr.NotCommentAuthor) {
		t.Errorf("DeleteComment = %v", err)
	}
	if f.srv.Requests() != requests {
		t.Error("rejected delete reached the backend")
	}
}

func TestCommentNeedsIdentity(t *testing.T) {
	f := setup(t)
	seeded := f.seed(t, "t", task.StatusPending)
	f.start(t)
	f.ctrl.SetIdentity(task.Identity{})
	f.ctrl.OpenComments(seeded.ID)
	if err := f.ctrl.AddComment(context.Background(), "hello"); !clierr.Is(err, clierr.NoIdentity) {
		t.Errorf("AddComment = %v", err)
	}
}

func TestStaleResponseDiscarded(t *testing.T) {
	f := setup(t)
	f.seed(t, "slow match", task.StatusPending)
	f.seed(t, "fast match", task.StatusPending)
	f.start(t)

	f.srv.SetListDelay(func(q url.Values) time.Duration {
		if q.Get("search") == "slow" {
			return 300 * time.Millisecond
		}
		return 0
	})

	if err := f.ctrl.SetSearch("slow"); err != nil {
		t.Fatal(err)
	}
	if err := f.ctrl.SetSearch("fast"); err != nil {
		t.Fatal(err)
	}
	s := f.waitFor(t, "fast results", func(s State) bool { return !s.Loading })
	if got := titles(s.Tasks); len(got) != 1 || got[0] != "fast match" {
		t.Fatalf("rows = %v", got)
	}

	time.Sleep(400 * time.Millisecond)
	s = f.ctrl.Snapshot()
	if got := titles(s.Tasks); len(got) != 1 || got[0] != "fast match" || s.Params.Search != "fast" {
		t.Errorf("stale response overwrote state: rows=%v search=%q", got, s.Params.Search)
	}
}

func TestConcurrentSettersKeepRowsInStep(t *testing.T) {
	f := setup(t)
	const n = 8
	for i := 0; i < n; i++ {
		f.seed(t, fmt.Sprintf("task-%d", i), task.StatusPending)
	}
	f.start(t)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if err := f.ctrl.SetSearch(fmt.Sprintf("task-%d", i)); err != nil {
				t.Error(err)
			}
		}(i)
	}
	wg.Wait()

	s := f.waitFor(t, "settled", func(s State) bool { return !s.Loading })
	if got := titles(s.Tasks); len(got) != 1 || got[0] != s.Params.Search {
		t.Errorf("rows %v do not match search %q", got, s.Params.Search)
	}
}

func TestUsersLoaded(t *testing.T) {
	f := setup(t)
	f.start(t)
	s := f.waitFor(t, "users", func(s State) bool { return len(s.Users) == 1 })
	if s.Users[0].Name != "Suman Sharma" {
		t.Errorf("users = %+v", s.Users)
	}
}

func TestListErrorSurfaced(t *testing.T) {
	f := setup(t)
	f.srv.Fail("getTasks", http.StatusBadGateway)
	f.start(t)
	s := f.ctrl.Snapshot()
	if !clierr.Is(s.Err, clierr.RequestFailed) {
		t.Errorf("list error = %v", s.Err)
	}

	f.srv.Fail("getTasks", 0)
	f.ctrl.Refresh()
	f.waitFor(t, "recovered", func(s State) bool { return !s.Loading && s.Err == nil })
}

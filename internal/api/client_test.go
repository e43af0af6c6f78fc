package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/twiced-technology-gmbh/taskdesk/internal/apitest"
	"github.com/twiced-technology-gmbh/taskdesk/internal/clierr"
	"github.com/twiced-technology-gmbh/taskdesk/internal/datasource"
	"github.com/twiced-technology-gmbh/taskdesk/internal/query"
	"github.com/twiced-technology-gmbh/taskdesk/internal/task"
)

func setup(t *testing.T) (*Client, *apitest.Server) {
	t.Helper()
	srv := apitest.New(t)
	c, err := New(Options{BaseURL: srv.URL(), Logger: zerolog.Nop()})
	if err != nil {
		t.Fatal(err)
	}
	return c, srv
}

func TestNewRejectsBadBaseURL(t *testing.T) {
	for _, base := range []string{"", "localhost:5001", "://x"} {
		if _, err := New(Options{BaseURL: base}); !clierr.Is(err, clierr.InvalidInput) {
			t.Errorf("New(%q) = %v", base, err)
		}
	}
	c, err := New(Options{BaseURL: "http://localhost:5001/api"})
	if err != nil {
		t.Fatal(err)
	}
	if c.BaseURL() != "http://localhost:5001/api/" {
		t.Errorf("BaseURL = %s", c.BaseURL())
	}
}

func TestListTasksSendsAllParams(t *testing.T) {
	c, srv := setup(t)
	srv.Seed(task.Task{Title: "a", Status: task.StatusPending, Priority: task.PriorityLow})
	srv.Seed(task.Task{Title: "b", Status: task.StatusCompleted, Priority: task.PriorityHigh})

	p := query.New()
	p.Filters.Status = task.StatusCompleted
	page, err := c.ListTasks(context.Background(), p)
	if err != nil {
		t.Fatal(err)
	}
	if page.Total != 1 || len(page.Tasks) != 1 || page.Tasks[0].Title != "b" {
		t.Fatalf("page = %+v", page)
	}

	q := srv.LastQuery()
	if len(q) != 9 {
		t.Errorf("sent %d params, want 9: %v", len(q), q)
	}
	if q.Get("statusFilter") != "Completed" || q.Get("sort") != "{}" || q.Get("pageSize") != "20" {
		t.Errorf("query = %v", q)
	}
}

func TestListTasksValidatesLocally(t *testing.T) {
	c, srv := setup(t)
	p := query.New()
	p.PageSize = 30
	if _, err := c.ListTasks(context.Background(), p); !clierr.Is(err, clierr.InvalidPageSize) {
		t.Errorf("err = %v", err)
	}
	if srv.Requests() != 0 {
		t.Errorf("invalid params reached the backend")
	}
}

func TestMutationsInvalidateTags(t *testing.T) {
	srv := apitest.New(t)
	src := datasource.New(zerolog.Nop())
	defer src.Close()
	c, err := New(Options{BaseURL: srv.URL(), Source: src, Logger: zerolog.Nop()})
	if err != nil {
		t.Fatal(err)
	}

	pages := make(chan *TaskPage, 8)
	c.WatchTasks(query.New(), func(_ uint64, page *TaskPage, err error) {
		if err != nil {
			t.Errorf("watch: %v", err)
		}
		pages <- page
	})
	first := receive(t, pages)
	if first.Total != 0 {
		t.Fatalf("initial total = %d", first.Total)
	}

	d := task.NewDraft()
	d.Title = "write docs"
	created, err := c.SaveDraft(context.Background(), d)
	if err != nil {
		t.Fatal(err)
	}
	if created.ID == "" || created.Status != task.StatusPending {
		t.Errorf("created = %+v", created)
	}

	page := receive(t, pages)
	if page.Total != 1 || page.Tasks[0].Title != "write docs" {
		t.Errorf("refetched page = %+v", page)
	}
	if n := len(srv.Queries()); n != 2 {
		t.Errorf("list requests = %d, want 2", n)
	}
}

func receive(t *testing.T, ch <-chan *TaskPage) *TaskPage {
	t.Helper()
	select {
	case p := <-ch:
		return p
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for task page")
		return nil
	}
}

func TestUpdateAndDeleteTask(t *testing.T) {
	c, srv := setup(t)
	alice := srv.AddUser("Alice")
	seeded := srv.Seed(task.Task{Title: "old", Status: task.StatusPending, Priority: task.PriorityLow})
	ctx := context.Background()

	title := "new"
	status := task.StatusInProgress
	updated, err := c.UpdateTask(ctx, seeded.ID, task.Patch{Title: &title, Status: &status, AssignedTo: &alice.ID})
	if err != nil {
		t.Fatal(err)
	}
	if updated.Title != "new" || updated.Status != task.StatusInProgress || updated.AssigneeName() != "Alice" {
		t.Errorf("updated = %+v", updated)
	}

	if err := c.DeleteTask(ctx, seeded.ID); err != nil {
		t.Fatal(err)
	}
	if srv.Len() != 0 {
		t.Errorf("task still stored")
	}

	err = c.DeleteTask(ctx, seeded.ID)
	if !clierr.Is(err, clierr.TaskNotFound) {
		t.Errorf("second delete = %v", err)
	}
	var serr *StatusError
	if !errors.As(err, &serr) || serr.Status != http.StatusNotFound {
		t.Errorf("status error = %#v", err)
	}
}

func TestCommentRoundTrip(t *testing.T) {
	c, srv := setup(t)
	me := srv.AddUser("Suman Sharma")
	seeded := srv.Seed(task.Task{Title: "t", Status: task.StatusPending, Priority: task.PriorityMedium})
	ctx := context.Background()

	if err := c.AddComment(ctx, seeded.ID, me.ID, "  "); !clierr.Is(err, clierr.EmptyComment) {
		t.Errorf("blank comment = %v", err)
	}
	if err := c.AddComment(ctx, seeded.ID, "", "hi"); !clierr.Is(err, clierr.NoIdentity) {
		t.Errorf("no identity = %v", err)
	}
	if err := c.AddComment(ctx, seeded.ID, me.ID, "looks good"); err != nil {
		t.Fatal(err)
	}

	stored, _ := srv.Task(seeded.ID)
	if len(stored.Comments) != 1 || stored.Comments[0].Author.Name != "Suman Sharma" {
		t.Fatalf("comments = %+v", stored.Comments)
	}

	if err := c.DeleteComment(ctx, seeded.ID, stored.Comments[0].ID); err != nil {
		t.Fatal(err)
	}
	stored, _ = srv.Task(seeded.ID)
	if len(stored.Comments) != 0 {
		t.Errorf("comment not removed: %+v", stored.Comments)
	}
}

func TestGetTaskPagesThroughList(t *testing.T) {
	c, srv := setup(t)
	var last task.Task
	for i := 0; i < 105; i++ {
		last = srv.Seed(task.Task{Title: "t", Status: task.StatusPending, Priority: task.PriorityLow})
	}
	got, err := c.GetTask(context.Background(), last.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != last.ID {
		t.Errorf("got %s", got.ID)
	}
	if _, err := c.GetTask(context.Background(), "65f1c0a2b3c4d5e6f7a8b9c0"); !clierr.Is(err, clierr.TaskNotFound) {
		t.Errorf("missing task = %v", err)
	}
}

func TestFailureMapsToRequestFailed(t *testing.T) {
	c, srv := setup(t)
	srv.Fail("getUsersForAssignment", http.StatusInternalServerError)

	_, err := c.UsersForAssignment(context.Background())
	if !clierr.Is(err, clierr.RequestFailed) {
		t.Fatalf("err = %v", err)
	}
	var serr *StatusError
	if !errors.As(err, &serr) || serr.Message != "getUsersForAssignment failed" || serr.RequestID == "" {
		t.Errorf("status error = %+v", serr)
	}
}

func TestGetResource(t *testing.T) {
	c, srv := setup(t)
	srv.SetResource("client/products", []map[string]any{{"name": "widget"}})
	alice := srv.AddUser("Alice")
	ctx := context.Background()

	raw, err := c.Get(ctx, "products", "", nil)
	if err != nil {
		t.Fatal(err)
	}
	if string(raw) != `[{"name":"widget"}]` {
		t.Errorf("raw = %s", raw)
	}
	if _, err := c.Get(ctx, "user", alice.ID, nil); err != nil {
		t.Errorf("user: %v", err)
	}

	tests := []struct {
		name, id, code string
	}{
		{"nope", "", clierr.UnknownResource},
		{"user", "", clierr.InvalidInput},
		{"products", "x", clierr.InvalidInput},
		{"dashboard", "", clierr.RequestFailed},
	}
	for _, tt := range tests {
		if _, err := c.Get(ctx, tt.name, tt.id, nil); !clierr.Is(err, tt.code) {
			t.Errorf("Get(%s, %q) = %v, want %s", tt.name, tt.id, err, tt.code)
		}
	}
}

func TestRequestHeaders(t *testing.T) {
	var got http.Header
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[]`))
	}))
	defer ts.Close()

	token := signed(t, time.Now().Add(time.Hour))
	c, err := New(Options{BaseURL: ts.URL, Token: token})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.UsersForAssignment(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got.Get("Authorization") != "Bearer "+token {
		t.Errorf("authorization = %q", got.Get("Authorization"))
	}
	if len(got.Get("X-Request-ID")) != 36 {
		t.Errorf("request id = %q", got.Get("X-Request-ID"))
	}
}

func TestExpiredTokenNotSent(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		t.Error("request with expired token reached the server")
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	c, err := New(Options{BaseURL: ts.URL, Token: signed(t, time.Now().Add(-time.Minute))})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.UsersForAssignment(context.Background()); !clierr.Is(err, clierr.TokenExpired) {
		t.Errorf("err = %v", err)
	}
}

func TestCheckTokenOpaque(t *testing.T) {
	for _, tok := range []string{"static-api-key", "a.b.c"} {
		if err := checkToken(tok, time.Now()); err != nil {
			t.Errorf("checkToken(%q) = %v", tok, err)
		}
	}
}

func signed(t *testing.T, exp time.Time) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub": "60e86b8b0e5d4a001c8c9a01",
		"exp": exp.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := token.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestEndpointTable(t *testing.T) {
	for _, ep := range Endpoints {
		if ep.IsQuery() && len(ep.Provides) == 0 {
			t.Errorf("%s provides no tag", ep.Name)
		}
		if !ep.IsQuery() && len(ep.Invalidates) == 0 {
			t.Errorf("%s invalidates no tag", ep.Name)
		}
	}
	if got := DeleteCommentFromTask.URLPath("t1", "c/1"); got != "tasks/tasks/t1/comments/c%2F1" {
		t.Errorf("URLPath = %s", got)
	}
	if _, ok := Lookup("getDashboard"); !ok {
		t.Error("getDashboard missing")
	}
}

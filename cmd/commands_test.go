package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/twiced-technology-gmbh/taskdesk/internal/apitest"
	"github.com/twiced-technology-gmbh/taskdesk/internal/clierr"
	"github.com/twiced-technology-gmbh/taskdesk/internal/config"
	"github.com/twiced-technology-gmbh/taskdesk/internal/output"
	"github.com/twiced-technology-gmbh/taskdesk/internal/task"
)

// cli runs commands against a temp config dir pointing at a fake backend.
type cli struct {
	dir string
	srv *apitest.Server
	me  task.User
}

func newCLI(t *testing.T) *cli {
	t.Helper()
	t.Setenv(config.EnvBaseURL, "")
	t.Setenv(config.EnvToken, "")
	t.Setenv(output.EnvOutput, "")

	srv := apitest.New(t)
	me := srv.AddUser("Suman Sharma")

	dir := filepath.Join(t.TempDir(), ".taskdesk")
	cfg, err := config.Init(dir)
	if err != nil {
		t.Fatal(err)
	}
	cfg.API.BaseURL = srv.URL()
	cfg.Identity = task.Identity{UserID: me.ID, Name: me.Name}
	cfg.Auth.BcryptCost = 4
	if err := cfg.Save(); err != nil {
		t.Fatal(err)
	}
	return &cli{dir: dir, srv: srv, me: me}
}

// resetFlags puts every flag back to its default so runs do not leak
// into each other through the shared command tree.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// run executes the root command with args and returns what it printed
// on stdout. Stdin is an empty file, so prompts see no terminal.
func (c *cli) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	stdin, err := os.Open(os.DevNull)
	if err != nil {
		t.Fatal(err)
	}
	defer stdin.Close()
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	oldIn, oldOut := os.Stdin, os.Stdout
	os.Stdin, os.Stdout = stdin, w
	done := make(chan []byte)
	go func() {
		b, _ := io.ReadAll(r)
		done <- b
	}()

	rootCmd.SetArgs(append([]string{"--dir", c.dir}, args...))
	_, runErr := rootCmd.ExecuteContextC(context.Background())

	os.Stdin, os.Stdout = oldIn, oldOut
	w.Close()
	out := <-done
	r.Close()
	return string(out), runErr
}

func (c *cli) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := c.run(t, args...)
	if err != nil {
		t.Fatalf("%v: %v", args, err)
	}
	return out
}

func (c *cli) login(t *testing.T) {
	t.Helper()
	c.mustRun(t, "signup", "a@b.com", "--password", "x")
	c.mustRun(t, "login", "a@b.com", "--password", "x")
}

func TestTaskCommandsRequireLogin(t *testing.T) {
	c := newCLI(t)
	seeded := c.srv.Seed(task.Task{Title: "t", Status: task.StatusPending, Priority: task.PriorityLow})

	tests := [][]string{
		{"list"},
		{"create", "New task"},
		{"edit", seeded.ID, "--status", "completed"},
		{"delete", seeded.ID, "--yes"},
		{"users"},
		{"comment", "add", seeded.ID, "hi"},
	}
	for _, args := range tests {
		t.Run(args[0], func(t *testing.T) {
			if _, err := c.run(t, args...); !clierr.Is(err, clierr.NotAuthenticated) {
				t.Errorf("err = %v, want %s", err, clierr.NotAuthenticated)
			}
		})
	}
	if c.srv.Len() != 1 {
		t.Errorf("backend changed without login: %d tasks", c.srv.Len())
	}

	c.mustRun(t, "signup", "a@b.com", "--password", "x")
	if _, err := c.run(t, "login", "a@b.com", "--password", "y"); !clierr.Is(err, clierr.InvalidCredentials) {
		t.Fatalf("wrong password = %v", err)
	}
	if _, err := c.run(t, "list"); !clierr.Is(err, clierr.NotAuthenticated) {
		t.Errorf("list after failed login = %v", err)
	}
	c.mustRun(t, "login", "a@b.com", "--password", "x")
	c.mustRun(t, "list")

	c.mustRun(t, "logout")
	if _, err := c.run(t, "list"); !clierr.Is(err, clierr.NotAuthenticated) {
		t.Errorf("list after logout = %v", err)
	}
}

func TestListPageIsOneBased(t *testing.T) {
	c := newCLI(t)
	c.login(t)
	for i := 0; i < 25; i++ {
		c.srv.Seed(task.Task{Title: fmt.Sprintf("task %02d", i), Status: task.StatusPending, Priority: task.PriorityMedium})
	}

	out := c.mustRun(t, "list", "--json", "--page", "2", "--page-size", "20")
	if q := c.srv.LastQuery(); q.Get("page") != "1" || q.Get("pageSize") != "20" {
		t.Errorf("query = %v", q)
	}
	var page struct {
		Tasks []task.Task `json:"tasks"`
		Total int         `json:"total"`
		Page  int         `json:"page"`
		Pages int         `json:"pages"`
	}
	if err := json.Unmarshal([]byte(out), &page); err != nil {
		t.Fatalf("decoding %q: %v", out, err)
	}
	if page.Total != 25 || len(page.Tasks) != 5 || page.Pages != 2 {
		t.Errorf("page = total %d, rows %d, pages %d", page.Total, len(page.Tasks), page.Pages)
	}

	if _, err := c.run(t, "list", "--page", "0"); !clierr.Is(err, clierr.InvalidInput) {
		t.Errorf("--page 0 = %v", err)
	}
	if _, err := c.run(t, "list", "--page-size", "30"); !clierr.Is(err, clierr.InvalidPageSize) {
		t.Errorf("--page-size 30 = %v", err)
	}
}

func TestListStatusFilter(t *testing.T) {
	c := newCLI(t)
	c.login(t)
	c.srv.Seed(task.Task{Title: "open", Status: task.StatusPending, Priority: task.PriorityLow})
	c.srv.Seed(task.Task{Title: "done", Status: task.StatusCompleted, Priority: task.PriorityLow})

	out := c.mustRun(t, "list", "--json", "--status", "completed")
	if q := c.srv.LastQuery(); q.Get("statusFilter") != "Completed" {
		t.Errorf("statusFilter = %q", q.Get("statusFilter"))
	}
	var page struct {
		Tasks []task.Task `json:"tasks"`
	}
	if err := json.Unmarshal([]byte(out), &page); err != nil {
		t.Fatal(err)
	}
	if len(page.Tasks) != 1 || page.Tasks[0].Title != "done" {
		t.Errorf("rows = %+v", page.Tasks)
	}
}

func TestCreateEditDelete(t *testing.T) {
	c := newCLI(t)
	c.login(t)

	out := c.mustRun(t, "create", "--json", "Write docs", "--priority", "high", "--assignee", "suman sharma")
	var created task.Task
	if err := json.Unmarshal([]byte(out), &created); err != nil {
		t.Fatalf("decoding %q: %v", out, err)
	}
	stored, ok := c.srv.Task(created.ID)
	if !ok || stored.Title != "Write docs" || stored.Status != task.StatusPending ||
		stored.Priority != task.PriorityHigh || stored.AssignedTo == nil || stored.AssignedTo.ID != c.me.ID {
		t.Fatalf("stored = %+v", stored)
	}

	c.mustRun(t, "edit", created.ID, "--status", "completed", "--unassign")
	stored, _ = c.srv.Task(created.ID)
	if stored.Status != task.StatusCompleted || stored.AssignedTo != nil || stored.Priority != task.PriorityHigh {
		t.Errorf("after edit = %+v", stored)
	}
	if _, err := c.run(t, "edit", created.ID); !clierr.Is(err, clierr.NoChanges) {
		t.Errorf("edit without flags = %v", err)
	}

	if _, err := c.run(t, "delete", created.ID); !clierr.Is(err, clierr.ConfirmationReq) {
		t.Errorf("delete without a terminal = %v", err)
	}
	if c.srv.Len() != 1 {
		t.Fatal("unconfirmed delete removed the task")
	}
	c.mustRun(t, "delete", created.ID, "--yes")
	if _, ok := c.srv.Task(created.ID); ok {
		t.Error("task still stored after delete")
	}
}

func TestBatchReportsFailure(t *testing.T) {
	c := newCLI(t)
	c.login(t)
	a := c.srv.Seed(task.Task{Title: "a", Status: task.StatusPending, Priority: task.PriorityLow})
	b := c.srv.Seed(task.Task{Title: "b", Status: task.StatusPending, Priority: task.PriorityLow})
	missing := primitive.NewObjectID().Hex()

	out, err := c.run(t, "edit", a.ID+","+missing, "--json", "--priority", "high")
	var silent *clierr.SilentError
	if !errors.As(err, &silent) || silent.Code != 1 {
		t.Fatalf("err = %v, want exit code 1", err)
	}
	var results []output.BatchResult
	if err := json.Unmarshal([]byte(out), &results); err != nil {
		t.Fatalf("decoding %q: %v", out, err)
	}
	if len(results) != 2 || !results[0].OK || results[1].OK || results[1].Code != clierr.TaskNotFound {
		t.Errorf("results = %+v", results)
	}
	if got, _ := c.srv.Task(a.ID); got.Priority != task.PriorityHigh {
		t.Errorf("existing task not updated: %+v", got)
	}

	if _, err := c.run(t, "delete", a.ID+","+b.ID); !clierr.Is(err, clierr.ConfirmationReq) {
		t.Errorf("batch delete without --yes = %v", err)
	}
	c.mustRun(t, "delete", a.ID+","+b.ID, "--yes")
	if c.srv.Len() != 0 {
		t.Errorf("%d tasks left after batch delete", c.srv.Len())
	}
}

func TestCommentRm(t *testing.T) {
	c := newCLI(t)
	c.login(t)
	other := c.srv.AddUser("Ravi Kumar")
	foreign := task.Comment{
		ID:        primitive.NewObjectID().Hex(),
		Author:    task.UserRef{ID: other.ID, Name: other.Name},
		Text:      "theirs",
		CreatedAt: time.Date(2023, 12, 31, 9, 0, 0, 0, time.UTC),
	}
	seeded := c.srv.Seed(task.Task{
		Title: "t", Status: task.StatusPending, Priority: task.PriorityLow,
		Comments: []task.Comment{foreign},
	})

	if _, err := c.run(t, "comment", "rm", seeded.ID, foreign.ID, "--yes"); !clierr.Is(err, clierr.NotCommentAuthor) {
		t.Fatalf("removing another user's comment = %v", err)
	}

	c.mustRun(t, "comment", "add", seeded.ID, "mine", "too")
	stored, _ := c.srv.Task(seeded.ID)
	if len(stored.Comments) != 2 {
		t.Fatalf("comments = %+v", stored.Comments)
	}
	var mine task.Comment
	for _, cm := range stored.Comments {
		if cm.Author.ID == c.me.ID {
			mine = cm
		}
	}
	if mine.Text != "mine too" {
		t.Fatalf("own comment = %+v", mine)
	}

	if _, err := c.run(t, "comment", "rm", seeded.ID, mine.ID); !clierr.Is(err, clierr.ConfirmationReq) {
		t.Errorf("rm without a terminal = %v", err)
	}
	c.mustRun(t, "comment", "rm", seeded.ID, mine.ID, "--yes")
	stored, _ = c.srv.Task(seeded.ID)
	if len(stored.Comments) != 1 || stored.Comments[0].ID != foreign.ID {
		t.Errorf("after rm = %+v", stored.Comments)
	}

	if _, err := c.run(t, "comment", "add", seeded.ID, " "); !clierr.Is(err, clierr.EmptyComment) {
		t.Errorf("blank comment = %v", err)
	}
}

// Package apitest runs an in-memory dashboard backend for tests. It serves
// the task, user and comment routes with server-side paging, filtering and
// sorting, records every list query, and can inject failures and delays.
package apitest

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/twiced-technology-gmbh/taskdesk/internal/task"
)

// Server is a fake backend bound to an httptest listener.
type Server struct {
	mu        sync.Mutex
	tasks     []*task.Task
	users     []task.User
	resources map[string]any
	queries   []url.Values
	failures  map[string]int
	listDelay func(url.Values) time.Duration
	clock     time.Time
	requests  int

	http *httptest.Server
}

// New starts a server and stops it when the test ends.
func New(t testing.TB) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	s := &Server{
		resources: make(map[string]any),
		failures:  make(map[string]int),
		clock:     time.Date(2024, time.January, 1, 9, 0, 0, 0, time.UTC),
	}
	s.http = httptest.NewServer(s.routes())
	t.Cleanup(s.http.Close)
	return s
}

// URL returns the base URL to configure a client with.
func (s *Server) URL() string {
	return s.http.URL + "/"
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(s.count)

	tasks := r.Group("/tasks")
	tasks.GET("/tasks", s.listTasks)
	tasks.POST("/tasks", s.createTask)
	tasks.PATCH("/tasks/:id", s.updateTask)
	tasks.DELETE("/tasks/:id", s.deleteTask)
	tasks.POST("/tasks/:id/comments", s.addComment)
	tasks.DELETE("/tasks/:id/comments/:commentId", s.deleteComment)
	tasks.GET("/users-for-assignment", s.listUsers)

	r.GET("/general/user/:id", s.getUser)
	r.NoRoute(s.getResource)
	return r
}

func (s *Server) count(c *gin.Context) {
	s.mu.Lock()
	s.requests++
	s.mu.Unlock()
	c.Next()
}

// AddUser registers an assignable user and returns it.
func (s *Server) AddUser(name string) task.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := task.User{ID: primitive.NewObjectID().Hex(), Name: name}
	s.users = append(s.users, u)
	return u
}

// Seed stores a task as if it had been created earlier. A missing id or
// creation time is filled in.
func (s *Server) Seed(t task.Task) task.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.ID == "" {
		t.ID = primitive.NewObjectID().Hex()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = s.tick()
		t.UpdatedAt = t.CreatedAt
	}
	if t.AssignedTo != nil {
		t.AssignedTo = s.userRef(t.AssignedTo.ID)
	}
	stored := t
	s.tasks = append(s.tasks, &stored)
	return stored
}

// Task returns a copy of the stored task with the given id.
func (s *Server) Task(id string) (task.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t := s.find(id); t != nil {
		return clone(t), true
	}
	return task.Task{}, false
}

// Len returns the number of stored tasks.
func (s *Server) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// Queries returns every list query received, oldest first.
func (s *Server) Queries() []url.Values {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]url.Values, len(s.queries))
	copy(out, s.queries)
	return out
}

// LastQuery returns the most recent list query, or nil.
func (s *Server) LastQuery() url.Values {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queries) == 0 {
		return nil
	}
	return s.queries[len(s.queries)-1]
}

// Requests returns the total number of requests served.
func (s *Server) Requests() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests
}

// Fail makes every call to the named endpoint answer with status until
// cleared with status 0.
func (s *Server) Fail(endpoint string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if status == 0 {
		delete(s.failures, endpoint)
		return
	}
	s.failures[endpoint] = status
}

// SetListDelay installs a per-query delay for task list requests. The
// delay ends early if the client gives up on the request.
func (s *Server) SetListDelay(fn func(url.Values) time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listDelay = fn
}

// SetResource serves v as JSON at path (for example "client/products").
func (s *Server) SetResource(path string, v any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resources[strings.Trim(path, "/")] = v
}

// injected answers with a configured failure and reports whether it did.
func (s *Server) injected(c *gin.Context, endpoint string) bool {
	s.mu.Lock()
	status, ok := s.failures[endpoint]
	s.mu.Unlock()
	if !ok {
		return false
	}
	c.JSON(status, gin.H{"message": endpoint + " failed"})
	return true
}

func (s *Server) tick() time.Time {
	s.clock = s.clock.Add(time.Minute)
	return s.clock
}

func (s *Server) find(id string) *task.Task {
	for _, t := range s.tasks {
		if t.ID == id {
			return t
		}
	}
	return nil
}

func (s *Server) userRef(id string) *task.UserRef {
	if id == "" {
		return nil
	}
	for _, u := range s.users {
		if u.ID == id {
			return &task.UserRef{ID: u.ID, Name: u.Name}
		}
	}
	return &task.UserRef{ID: id}
}

func clone(t *task.Task) task.Task {
	out := *t
	out.Comments = append([]task.Comment(nil), t.Comments...)
	if t.AssignedTo != nil {
		ref := *t.AssignedTo
		out.AssignedTo = &ref
	}
	return out
}

func notFound(c *gin.Context, what string) {
	c.JSON(http.StatusNotFound, gin.H{"message": what + " not found"})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
}

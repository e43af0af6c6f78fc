package apitest

import (
	"errors"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/twiced-technology-gmbh/taskdesk/internal/date"
	"github.com/twiced-technology-gmbh/taskdesk/internal/query"
	"github.com/twiced-technology-gmbh/taskdesk/internal/task"
)

func (s *Server) listTasks(c *gin.Context) {
	raw := c.Request.URL.Query()
	s.mu.Lock()
	s.queries = append(s.queries, raw)
	delay := s.listDelay
	s.mu.Unlock()

	if delay != nil {
		if d := delay(raw); d > 0 {
			select {
			case <-time.After(d):
			case <-c.Request.Context().Done():
				return
			}
		}
	}
	if s.injected(c, "getTasks") {
		return
	}

	params, err := query.FromValues(raw)
	if err != nil {
		badRequest(c, err)
		return
	}

	s.mu.Lock()
	matched := filter(s.tasks, params)
	sortTasks(matched, params.Sort)
	total := len(matched)
	page := paginate(matched, params)
	rows := make([]task.Task, len(page))
	for i, t := range page {
		rows[i] = clone(t)
	}
	s.mu.Unlock()

	c.JSON(http.StatusOK, gin.H{"tasks": rows, "total": total})
}

func (s *Server) createTask(c *gin.Context) {
	if s.injected(c, "createTask") {
		return
	}
	var body task.Body
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}
	if strings.TrimSpace(body.Title) == "" {
		badRequest(c, errors.New("title is required"))
		return
	}
	due, err := date.ParseOptional(body.DueDate)
	if err != nil {
		badRequest(c, err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.tick()
	t := &task.Task{
		ID:          primitive.NewObjectID().Hex(),
		Title:       body.Title,
		Description: body.Description,
		DueDate:     due,
		AssignedTo:  s.userRef(body.AssignedTo),
		Status:      orDefault(body.Status, task.DefaultStatus),
		Priority:    orDefault(body.Priority, task.DefaultPriority),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.tasks = append(s.tasks, t)
	c.JSON(http.StatusCreated, clone(t))
}

func (s *Server) updateTask(c *gin.Context) {
	if s.injected(c, "updateTask") {
		return
	}
	var patch task.Patch
	if err := c.ShouldBindJSON(&patch); err != nil {
		badRequest(c, err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.find(c.Param("id"))
	if t == nil {
		notFound(c, "task")
		return
	}
	if err := s.apply(t, patch); err != nil {
		badRequest(c, err)
		return
	}
	t.UpdatedAt = s.tick()
	c.JSON(http.StatusOK, clone(t))
}

func (s *Server) apply(t *task.Task, p task.Patch) error {
	if p.DueDate != nil {
		due, err := date.ParseOptional(*p.DueDate)
		if err != nil {
			return err
		}
		t.DueDate = due
	}
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.AssignedTo != nil {
		t.AssignedTo = s.userRef(*p.AssignedTo)
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	return nil
}

func (s *Server) deleteTask(c *gin.Context) {
	if s.injected(c, "deleteTask") {
		return
	}
	id := c.Param("id")

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, t := range s.tasks {
		if t.ID == id {
			s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
			c.JSON(http.StatusOK, gin.H{"message": "task deleted"})
			return
		}
	}
	notFound(c, "task")
}

func (s *Server) addComment(c *gin.Context) {
	if s.injected(c, "addCommentToTask") {
		return
	}
	var body struct {
		UserID string `json:"userId"`
		Text   string `json:"text"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}
	if strings.TrimSpace(body.Text) == "" || body.UserID == "" {
		badRequest(c, errors.New("userId and text are required"))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.find(c.Param("id"))
	if t == nil {
		notFound(c, "task")
		return
	}
	author := s.userRef(body.UserID)
	t.Comments = append(t.Comments, task.Comment{
		ID:        primitive.NewObjectID().Hex(),
		Author:    *author,
		Text:      body.Text,
		CreatedAt: s.tick(),
	})
	c.JSON(http.StatusCreated, clone(t))
}

func (s *Server) deleteComment(c *gin.Context) {
	if s.injected(c, "deleteCommentFromTask") {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.find(c.Param("id"))
	if t == nil {
		notFound(c, "task")
		return
	}
	commentID := c.Param("commentId")
	for i, cm := range t.Comments {
		if cm.ID == commentID {
			t.Comments = append(t.Comments[:i], t.Comments[i+1:]...)
			c.JSON(http.StatusOK, clone(t))
			return
		}
	}
	notFound(c, "comment")
}

func (s *Server) listUsers(c *gin.Context) {
	if s.injected(c, "getUsersForAssignment") {
		return
	}
	s.mu.Lock()
	users := append([]task.User{}, s.users...)
	s.mu.Unlock()
	c.JSON(http.StatusOK, users)
}

func (s *Server) getUser(c *gin.Context) {
	if s.injected(c, "getUser") {
		return
	}
	id := c.Param("id")
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.ID == id {
			c.JSON(http.StatusOK, u)
			return
		}
	}
	notFound(c, "user")
}

func (s *Server) getResource(c *gin.Context) {
	if c.Request.Method != http.MethodGet {
		notFound(c, "route")
		return
	}
	path := strings.Trim(c.Request.URL.Path, "/")
	s.mu.Lock()
	v, ok := s.resources[path]
	s.mu.Unlock()
	if !ok {
		notFound(c, path)
		return
	}
	c.JSON(http.StatusOK, v)
}

func filter(tasks []*task.Task, p query.Params) []*task.Task {
	var result []*task.Task
	for _, t := range tasks {
		if matches(t, p) {
			result = append(result, t)
		}
	}
	return result
}

func matches(t *task.Task, p query.Params) bool {
	f := p.Filters
	if f.Status != "" && t.Status != f.Status {
		return false
	}
	if f.Priority != "" && t.Priority != f.Priority {
		return false
	}
	if f.AssignedTo != "" && t.AssigneeID() != f.AssignedTo {
		return false
	}
	if !f.Due.Contains(t.DueDate) {
		return false
	}
	return p.Search == "" || matchesSearch(t, p.Search)
}

// matchesSearch is a case-insensitive substring match on title and description.
func matchesSearch(t *task.Task, q string) bool {
	q = strings.ToLower(q)
	return strings.Contains(strings.ToLower(t.Title), q) ||
		strings.Contains(strings.ToLower(t.Description), q)
}

func sortTasks(tasks []*task.Task, s query.Sort) {
	if s.IsZero() {
		return
	}
	sort.SliceStable(tasks, func(i, j int) bool {
		if s.Dir == query.Desc {
			return less(tasks[j], tasks[i], s.Field)
		}
		return less(tasks[i], tasks[j], s.Field)
	})
}

func less(a, b *task.Task, field string) bool {
	switch field {
	case "title":
		return a.Title < b.Title
	case "description":
		return a.Description < b.Description
	case "dueDate":
		return compareDue(a, b)
	case "assignedTo":
		return a.AssigneeName() < b.AssigneeName()
	case "status":
		return index(task.Statuses, a.Status) < index(task.Statuses, b.Status)
	case "priority":
		return index(task.Priorities, a.Priority) < index(task.Priorities, b.Priority)
	default:
		return a.CreatedAt.Before(b.CreatedAt)
	}
}

// compareDue orders by due date; tasks without one sort last.
func compareDue(a, b *task.Task) bool {
	if a.DueDate == nil {
		return false
	}
	if b.DueDate == nil {
		return true
	}
	return a.DueDate.Before(b.DueDate.Time)
}

func paginate(tasks []*task.Task, p query.Params) []*task.Task {
	start := p.Offset()
	if start >= len(tasks) {
		return nil
	}
	return tasks[start:min(start+p.PageSize, len(tasks))]
}

func index[T comparable](list []T, v T) int {
	for i, x := range list {
		if x == v {
			return i
		}
	}
	return len(list)
}

func orDefault[T ~string](v, def T) T {
	if v == "" {
		return def
	}
	return v
}

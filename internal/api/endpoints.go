package api

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/twiced-technology-gmbh/taskdesk/internal/datasource"
)

// Cache tags.
const (
	TagTasks        datasource.Tag = "Tasks"
	TagUsers        datasource.Tag = "Users"
	TagUser         datasource.Tag = "User"
	TagProducts     datasource.Tag = "Products"
	TagCustomers    datasource.Tag = "Customers"
	TagTransactions datasource.Tag = "Transactions"
	TagGeography    datasource.Tag = "Geography"
	TagSales        datasource.Tag = "Sales"
	TagAdmins       datasource.Tag = "Admins"
	TagPerformance  datasource.Tag = "Performance"
	TagDashboard    datasource.Tag = "Dashboard"
)

// Endpoint declares one backend call. Path segments of the form {name}
// are filled from the call's arguments in order.
type Endpoint struct {
	Name        string
	Method      string
	Path        string
	Provides    []datasource.Tag
	Invalidates []datasource.Tag
}

// IsQuery reports whether the endpoint only reads.
func (e Endpoint) IsQuery() bool {
	return e.Method == http.MethodGet
}

// URLPath expands the path template with args, escaping each one.
func (e Endpoint) URLPath(args ...string) string {
	parts := strings.Split(e.Path, "/")
	next := 0
	for i, p := range parts {
		if strings.HasPrefix(p, "{") && strings.HasSuffix(p, "}") && next < len(args) {
			parts[i] = url.PathEscape(args[next])
			next++
		}
	}
	return strings.Join(parts, "/")
}

func (e Endpoint) params() int {
	return strings.Count(e.Path, "{")
}

var (
	GetTasks = Endpoint{Name: "getTasks", Method: http.MethodGet, Path: "tasks/tasks",
		Provides: []datasource.Tag{TagTasks}}
	CreateTask = Endpoint{Name: "createTask", Method: http.MethodPost, Path: "tasks/tasks",
		Invalidates: []datasource.Tag{TagTasks}}
	UpdateTask = Endpoint{Name: "updateTask", Method: http.MethodPatch, Path: "tasks/tasks/{id}",
		Invalidates: []datasource.Tag{TagTasks}}
	DeleteTask = Endpoint{Name: "deleteTask", Method: http.MethodDelete, Path: "tasks/tasks/{id}",
		Invalidates: []datasource.Tag{TagTasks}}
	GetUsersForAssignment = Endpoint{Name: "getUsersForAssignment", Method: http.MethodGet,
		Path: "tasks/users-for-assignment", Provides: []datasource.Tag{TagUsers}}
	AddCommentToTask = Endpoint{Name: "addCommentToTask", Method: http.MethodPost,
		Path: "tasks/tasks/{id}/comments", Invalidates: []datasource.Tag{TagTasks}}
	DeleteCommentFromTask = Endpoint{Name: "deleteCommentFromTask", Method: http.MethodDelete,
		Path: "tasks/tasks/{taskId}/comments/{commentId}", Invalidates: []datasource.Tag{TagTasks}}

	GetUser = Endpoint{Name: "getUser", Method: http.MethodGet, Path: "general/user/{id}",
		Provides: []datasource.Tag{TagUser}}
	GetProducts = Endpoint{Name: "getProducts", Method: http.MethodGet, Path: "client/products",
		Provides: []datasource.Tag{TagProducts}}
	GetCustomers = Endpoint{Name: "getCustomers", Method: http.MethodGet, Path: "client/customers",
		Provides: []datasource.Tag{TagCustomers}}
	GetTransactions = Endpoint{Name: "getTransactions", Method: http.MethodGet, Path: "client/transactions",
		Provides: []datasource.Tag{TagTransactions}}
	GetGeography = Endpoint{Name: "getGeography", Method: http.MethodGet, Path: "client/geography",
		Provides: []datasource.Tag{TagGeography}}
	GetSales = Endpoint{Name: "getSales", Method: http.MethodGet, Path: "sales/sales",
		Provides: []datasource.Tag{TagSales}}
	GetAdmins = Endpoint{Name: "getAdmins", Method: http.MethodGet, Path: "management/admins",
		Provides: []datasource.Tag{TagAdmins}}
	GetUserPerformance = Endpoint{Name: "getUserPerformance", Method: http.MethodGet,
		Path: "management/performance/{id}", Provides: []datasource.Tag{TagPerformance}}
	GetDashboard = Endpoint{Name: "getDashboard", Method: http.MethodGet, Path: "general/dashboard",
		Provides: []datasource.Tag{TagDashboard}}
)

// Endpoints lists every endpoint the client knows.
var Endpoints = []Endpoint{
	GetTasks, CreateTask, UpdateTask, DeleteTask, GetUsersForAssignment,
	AddCommentToTask, DeleteCommentFromTask,
	GetUser, GetProducts, GetCustomers, GetTransactions, GetGeography,
	GetSales, GetAdmins, GetUserPerformance, GetDashboard,
}

// Lookup returns the endpoint with the given name.
func Lookup(name string) (Endpoint, bool) {
	for _, e := range Endpoints {
		if e.Name == name {
			return e, true
		}
	}
	return Endpoint{}, false
}

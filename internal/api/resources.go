package api

import (
	"context"
	"encoding/json"
	"net/url"
	"sort"

	"github.com/twiced-technology-gmbh/taskdesk/internal/clierr"
)

// resources maps the names accepted by Get to their endpoints.
var resources = map[string]Endpoint{
	"user":         GetUser,
	"products":     GetProducts,
	"customers":    GetCustomers,
	"transactions": GetTransactions,
	"geography":    GetGeography,
	"sales":        GetSales,
	"admins":       GetAdmins,
	"performance":  GetUserPerformance,
	"dashboard":    GetDashboard,
}

// ResourceNames returns the names accepted by Get, sorted.
func ResourceNames() []string {
	names := make([]string, 0, len(resources))
	for n := range resources {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// ResourceNeedsID reports whether the named resource takes an id.
func ResourceNeedsID(name string) bool {
	ep, ok := resources[name]
	return ok && ep.params() > 0
}

// Get fetches a dashboard resource and returns its raw JSON. id is required
// for "user" and "performance" and rejected otherwise.
func (c *Client) Get(ctx context.Context, name, id string, params url.Values) (json.RawMessage, error) {
	ep, ok := resources[name]
	if !ok {
		return nil, clierr.Newf(clierr.UnknownResource, "unknown resource %q", name).
			WithDetails(map[string]any{"resource": name, "allowed": ResourceNames()})
	}
	var args []string
	switch {
	case ep.params() > 0 && id == "":
		return nil, clierr.Newf(clierr.InvalidInput, "resource %q requires an ID", name)
	case ep.params() == 0 && id != "":
		return nil, clierr.Newf(clierr.InvalidInput, "resource %q does not take an ID", name)
	case id != "":
		args = []string{id}
	}

	var raw json.RawMessage
	if err := c.do(ctx, call{endpoint: ep, args: args, params: params}, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

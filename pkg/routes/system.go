package routes

import "net/http"

// System collects routes and groups and builds them into a single handler.
type System interface {
	// RegisterGroup adds a group. Child groups inherit the parent prefix.
	RegisterGroup(group Group)

	// RegisterRoute adds a route outside any group, such as /healthz.
	RegisterRoute(route Route)

	// Build returns a handler serving every registered route.
	Build() http.Handler

	Groups() []Group
	Routes() []Route
}

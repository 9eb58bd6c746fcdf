package routes

import "net/http"

// Group represents a collection of routes under a common URL prefix.
// Groups can contain child groups for hierarchical route organization.
type Group struct {
	Prefix      string
	Tags        []string
	Description string
	Routes      []Route
	Children    []Group
}

// Route binds an HTTP method and path pattern to a handler. Patterns use
// net/http ServeMux wildcard syntax, e.g. "/{doc_id}/{page_number}".
type Route struct {
	Method  string
	Pattern string
	Handler http.HandlerFunc
}

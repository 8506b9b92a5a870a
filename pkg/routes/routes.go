// Package routes declares HTTP routes as data and registers them on a
// ServeMux using method-qualified patterns.
package routes

import "net/http"

// Route binds an HTTP method and a pattern, relative to its group, to a handler.
type Route struct {
	Method  string
	Pattern string
	Handler http.HandlerFunc
}

// Wrapper decorates a handler, e.g. to require an authenticated session.
type Wrapper func(http.HandlerFunc) http.HandlerFunc

// Group collects routes under a common prefix. Wrap applies to every route
// in the group and its children.
type Group struct {
	Prefix   string
	Wrap     Wrapper
	Routes   []Route
	Children []Group
}

// Register adds every route in groups to mux.
func Register(mux *http.ServeMux, groups ...Group) {
	for _, g := range groups {
		register(mux, "", nil, g)
	}
}

func register(mux *http.ServeMux, parent string, wraps []Wrapper, g Group) {
	prefix := parent + g.Prefix
	if g.Wrap != nil {
		wraps = append(wraps[:len(wraps):len(wraps)], g.Wrap)
	}

	for _, r := range g.Routes {
		h := r.Handler
		for i := len(wraps) - 1; i >= 0; i-- {
			h = wraps[i](h)
		}
		mux.HandleFunc(r.Method+" "+prefix+r.Pattern, h)
	}

	for _, child := range g.Children {
		register(mux, prefix, wraps, child)
	}
}

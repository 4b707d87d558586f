package routes

import "net/http"

// Group shares a path prefix across its routes and its children.
type Group struct {
	Prefix   string
	Routes   []Route
	Children []Group
}

// Register adds every route of groups, depth first, to mux.
func Register(mux *http.ServeMux, groups ...Group) {
	for _, g := range groups {
		g.register(mux, "")
	}
}

// Patterns lists the ServeMux patterns groups would register.
func Patterns(groups ...Group) []string {
	var out []string
	for _, g := range groups {
		g.walk("", func(prefix string, r Route) {
			out = append(out, r.pattern(prefix))
		})
	}
	return out
}

func (g Group) register(mux *http.ServeMux, parent string) {
	g.walk(parent, func(prefix string, r Route) {
		mux.HandleFunc(r.pattern(prefix), r.Handler)
	})
}

func (g Group) walk(parent string, fn func(prefix string, r Route)) {
	prefix := parent + g.Prefix
	for _, r := range g.Routes {
		fn(prefix, r)
	}
	for _, child := range g.Children {
		child.walk(prefix, fn)
	}
}

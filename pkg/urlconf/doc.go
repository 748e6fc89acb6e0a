// Package urlconf models a route table ("urlconf") as a tree of typed
// path patterns and walks it.
//
// The package provides:
//   - A converter registry mapping placeholder converters to semantic types
//   - A pattern parser for Django-style routes ("articles/<int:year>/")
//   - The route entry tree, built once by a host and read-only afterwards
//   - Structural validation (cycles, nil children, mixed entries)
//   - A deterministic walker that threads placeholder bindings through
//     nested groups and yields one resolved endpoint per handler
//
// # Patterns
//
// A placeholder is written <converter:name>. A bare <name> uses the str
// converter:
//
//	articles/<int:year>/<slug:title>/
//	users/<id>/
//
// # Building a tree
//
//	root := urlconf.Include("",
//	    urlconf.Path("articles/<int:year>/", urlconf.Handler("blog.YearArchive", nil), nil),
//	    urlconf.Include("users/<int:id>/",
//	        urlconf.Path("posts/<slug:post>/", urlconf.Handler("users.Post", nil), nil),
//	    ),
//	)
//
// # Walking
//
//	w := urlconf.NewWalker(urlconf.DefaultRegistry())
//	for step := range w.Walk(root) {
//	    if step.Kind == urlconf.StepEndpoint {
//	        fmt.Println(step.Endpoint.Route, step.Endpoint.Bindings)
//	    }
//	}
package urlconf
